package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"simulation-server/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// OTPRepository хранит одноразовые коды подтверждения.
type OTPRepository interface {
	Save(ctx context.Context, email, purpose, code string, ttl time.Duration) error
	// Verify сверяет код и удаляет его при совпадении.
	// Отсутствующий или истекший код дает models.ErrOTPMissing, неверный код models.ErrOTPInvalid.
	Verify(ctx context.Context, email, purpose, code string) error
}

var _ OTPRepository = (*redisOTPRepository)(nil)

type redisOTPRepository struct {
	client *redis.Client
	cost   int
	logger *zap.Logger
}

// NewRedisOTPRepository создает хранилище кодов. В Redis хранится только bcrypt-хэш кода.
func NewRedisOTPRepository(client *redis.Client, logger *zap.Logger) OTPRepository {
	return &redisOTPRepository{
		client: client,
		cost:   bcrypt.DefaultCost,
		logger: logger.Named("RedisOTPRepo"),
	}
}

func otpKey(email, purpose string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, strings.ToLower(strings.TrimSpace(email)))
}

func (r *redisOTPRepository) Save(ctx context.Context, email, purpose, code string, ttl time.Duration) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), r.cost)
	if err != nil {
		return fmt.Errorf("failed to hash otp: %w", err)
	}
	if err := r.client.Set(ctx, otpKey(email, purpose), hash, ttl).Err(); err != nil {
		r.logger.Error("Failed to store otp", zap.String("purpose", purpose), zap.Error(err))
		return fmt.Errorf("failed to store otp: %w", err)
	}
	return nil
}

func (r *redisOTPRepository) Verify(ctx context.Context, email, purpose, code string) error {
	key := otpKey(email, purpose)
	hash, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.ErrOTPMissing
		}
		r.logger.Error("Failed to read otp", zap.String("purpose", purpose), zap.Error(err))
		return fmt.Errorf("failed to read otp: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(code)); err != nil {
		return models.ErrOTPInvalid
	}
	// Код одноразовый: если ключ уже удален параллельным запросом, считаем его использованным
	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete otp: %w", err)
	}
	if deleted == 0 {
		return models.ErrOTPMissing
	}
	return nil
}
