package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"simulation-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var _ SessionStore = (*pgSessionStore)(nil)

const (
	getSessionQuery    = `SELECT data FROM simulation_sessions WHERE id = $1`
	insertSessionQuery = `
        INSERT INTO simulation_sessions (id, scenario_id, status, version, data, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (id) DO NOTHING
    `
	swapSessionQuery = `
        UPDATE simulation_sessions SET
            status = $2, version = $3, data = $4, updated_at = $5, completed_at = $6
        WHERE id = $1 AND version = $7
    `
	sessionExistsQuery = `SELECT EXISTS (SELECT 1 FROM simulation_sessions WHERE id = $1)`
)

type pgSessionStore struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgSessionStore создает хранилище сессий в таблице simulation_sessions.
// Полная запись хранится в jsonb, служебные поля дублируются в колонках.
func NewPgSessionStore(db DBTX, logger *zap.Logger) SessionStore {
	return &pgSessionStore{
		db:     db,
		logger: logger.Named("PgSessionStore"),
	}
}

func (r *pgSessionStore) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var data []byte
	err := r.db.QueryRow(ctx, getSessionQuery, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
		}
		r.logger.Error("Failed to get session", zap.String("session_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return decodeSession(data)
}

func (r *pgSessionStore) Put(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	tag, err := r.db.Exec(ctx, insertSessionQuery,
		session.ID,
		session.ScenarioID,
		session.Status,
		session.Version,
		data,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert session", zap.String("session_id", session.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to insert session %s: %w", session.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", models.ErrSessionExists, session.ID)
	}
	return nil
}

func (r *pgSessionStore) CompareAndSwap(ctx context.Context, session *models.Session, expectedVersion int64) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	tag, err := r.db.Exec(ctx, swapSessionQuery,
		session.ID,
		session.Status,
		session.Version,
		data,
		session.UpdatedAt,
		session.CompletedAt,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update session", zap.String("session_id", session.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to update session %s: %w", session.ID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Ни одна строка не обновлена: сессии нет или версия уже другая
	var exists bool
	if err := r.db.QueryRow(ctx, sessionExistsQuery, session.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check session %s: %w", session.ID, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", models.ErrSessionNotFound, session.ID)
	}
	return fmt.Errorf("%w: %s (expected version %d)", models.ErrVersionConflict, session.ID, expectedVersion)
}
