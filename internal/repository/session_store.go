package repository

import (
	"context"
	"fmt"
	"sync"

	"simulation-server/internal/models"

	"github.com/google/uuid"
)

// SessionStore хранит записи сессий симуляции.
//
// Put атомарно публикует новую сессию; существующий id дает models.ErrSessionExists.
// CompareAndSwap заменяет запись, только если сохраненная версия равна expectedVersion,
// иначе возвращает models.ErrVersionConflict. Версию новой записи выставляет вызывающий.
// Реализации не разделяют память с переданными и возвращаемыми значениями.
type SessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Put(ctx context.Context, session *models.Session) error
	CompareAndSwap(ctx context.Context, session *models.Session, expectedVersion int64) error
}

var _ SessionStore = (*MemorySessionStore)(nil)

// MemorySessionStore - хранилище сессий в памяти процесса.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.Session
}

// NewMemorySessionStore создает пустое хранилище.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[uuid.UUID]*models.Session)}
}

func (s *MemorySessionStore) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
	}
	return session.Clone(), nil
}

func (s *MemorySessionStore) Put(ctx context.Context, session *models.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("%w: %s", models.ErrSessionExists, session.ID)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *MemorySessionStore) CompareAndSwap(ctx context.Context, session *models.Session, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[session.ID]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrSessionNotFound, session.ID)
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("%w: %s (expected version %d, stored %d)",
			models.ErrVersionConflict, session.ID, expectedVersion, current.Version)
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}
