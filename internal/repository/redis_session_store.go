package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"simulation-server/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ SessionStore = (*redisSessionStore)(nil)

const sessionKeyPrefix = "simulation:session:"

type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSessionStore создает хранилище сессий в Redis.
// Каждая запись хранится как JSON с TTL, который продлевается при каждом сохранении.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) SessionStore {
	return &redisSessionStore{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisSessionStore"),
	}
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}

func (r *redisSessionStore) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", models.ErrSessionNotFound, id)
		}
		r.logger.Error("Failed to get session from redis", zap.String("session_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return decodeSession(data)
}

func (r *redisSessionStore) Put(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	ok, err := r.client.SetNX(ctx, sessionKey(session.ID), data, r.ttl).Result()
	if err != nil {
		r.logger.Error("Failed to put session into redis", zap.String("session_id", session.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to put session %s: %w", session.ID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrSessionExists, session.ID)
	}
	return nil
}

// CompareAndSwap использует WATCH/MULTI: запись заменяется, только если ключ не менялся
// с момента чтения и сохраненная версия совпадает с ожидаемой.
func (r *redisSessionStore) CompareAndSwap(ctx context.Context, session *models.Session, expectedVersion int64) error {
	key := sessionKey(session.ID)
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return fmt.Errorf("%w: %s", models.ErrSessionNotFound, session.ID)
			}
			return err
		}
		var stored struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("failed to decode stored session %s: %w", session.ID, err)
		}
		if stored.Version != expectedVersion {
			return fmt.Errorf("%w: %s (expected version %d, stored %d)",
				models.ErrVersionConflict, session.ID, expectedVersion, stored.Version)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("%w: %s", models.ErrVersionConflict, session.ID)
	case errors.Is(err, models.ErrSessionNotFound), errors.Is(err, models.ErrVersionConflict):
		return err
	default:
		r.logger.Error("Failed to swap session in redis", zap.String("session_id", session.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to swap session %s: %w", session.ID, err)
	}
}

func decodeSession(data []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &session, nil
}
