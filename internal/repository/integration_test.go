package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"simulation-server/internal/database"
	"simulation-server/internal/models"
	"simulation-server/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// StorageIntegrationSuite проверяет хранилища на настоящих PostgreSQL и Redis.
type StorageIntegrationSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	rdContainer *tcredis.RedisContainer
	pgPool      *pgxpool.Pool
	redisClient *redis.Client
	logger      *zap.Logger
}

func (s *StorageIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = zap.NewNop()
	var err error

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("simulation_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	dsn, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)
	s.pgPool, err = database.NewPool(s.ctx, database.PoolConfig{DSN: dsn, MaxConns: 10}, s.logger)
	require.NoError(s.T(), err, "Failed to connect to test postgres")
	require.NoError(s.T(), database.ApplyMigrations(s.ctx, s.pgPool, s.logger), "Failed to run migrations")

	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")

	redisHost, err := s.rdContainer.Host(s.ctx)
	require.NoError(s.T(), err)
	redisPort, err := s.rdContainer.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)
	s.redisClient = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port())})
	require.NoError(s.T(), s.redisClient.Ping(s.ctx).Err(), "Failed to connect to test redis")
}

func (s *StorageIntegrationSuite) TearDownSuite() {
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
	if s.rdContainer != nil {
		_ = s.rdContainer.Terminate(s.ctx)
	}
}

// Перед каждым тестом очищаем Redis и таблицы
func (s *StorageIntegrationSuite) SetupTest() {
	require.NoError(s.T(), s.redisClient.FlushDB(s.ctx).Err())
	_, err := s.pgPool.Exec(s.ctx, "TRUNCATE TABLE scenarios, simulation_sessions, transactions, subscriptions RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err)
}

func TestStorageIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(StorageIntegrationSuite))
}

func newStoredSession() *models.Session {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Session{
		ID:          uuid.New(),
		ScenarioID:  "technology_product_associate",
		State:       models.State{"risk": 0.4, "deadline_days": 3},
		History:     []models.HistoryEntry{},
		Status:      models.SessionStatusActive,
		Participant: models.Participant{Email: "ada@example.com"},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *StorageIntegrationSuite) sessionStores() map[string]repository.SessionStore {
	return map[string]repository.SessionStore{
		"postgres": repository.NewPgSessionStore(s.pgPool, s.logger),
		"redis":    repository.NewRedisSessionStore(s.redisClient, time.Hour, s.logger),
	}
}

func (s *StorageIntegrationSuite) TestSessionStore_PutGetCompareAndSwap() {
	for name, store := range s.sessionStores() {
		s.Run(name, func() {
			t := s.T()
			sess := newStoredSession()
			require.NoError(t, store.Put(s.ctx, sess))
			assert.ErrorIs(t, store.Put(s.ctx, sess), models.ErrSessionExists)

			got, err := store.Get(s.ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, sess.State, got.State)
			assert.Equal(t, int64(1), got.Version)

			next := got.Clone()
			next.State["risk"] = 0.5
			next.Version = 2
			require.NoError(t, store.CompareAndSwap(s.ctx, next, 1))

			stale := got.Clone()
			stale.Version = 2
			assert.ErrorIs(t, store.CompareAndSwap(s.ctx, stale, 1), models.ErrVersionConflict)

			got, err = store.Get(s.ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, 0.5, got.State["risk"])
			assert.Equal(t, int64(2), got.Version)

			_, err = store.Get(s.ctx, uuid.New())
			assert.ErrorIs(t, err, models.ErrSessionNotFound)
		})
	}
}

func (s *StorageIntegrationSuite) TestSessionStore_ConcurrentCompareAndSwap() {
	for name, store := range s.sessionStores() {
		s.Run(name, func() {
			t := s.T()
			sess := newStoredSession()
			require.NoError(t, store.Put(s.ctx, sess))

			const writers = 8
			var wg sync.WaitGroup
			var mu sync.Mutex
			wins := 0
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					next := sess.Clone()
					next.State["risk"] = float64(i)
					next.Version = 2
					if err := store.CompareAndSwap(s.ctx, next, 1); err == nil {
						mu.Lock()
						wins++
						mu.Unlock()
					} else {
						assert.ErrorIs(t, err, models.ErrVersionConflict)
					}
				}(i)
			}
			wg.Wait()
			assert.Equal(t, 1, wins)
		})
	}
}

func (s *StorageIntegrationSuite) TestScenarioRepository_UpsertLoadList() {
	t := s.T()
	repo := repository.NewPgScenarioRepository(s.pgPool, s.logger)

	sc := &models.Scenario{
		ID:           "finance_junior_analyst",
		Version:      1,
		Meta:         map[string]any{"title": "Variance Review"},
		InitialState: models.State{"risk": 0.5},
		Actions: map[string]models.Action{
			"review": {Choices: map[string]models.Choice{
				"approve": {Effects: map[string]float64{"risk": 0.1}, Feedback: "ok"},
			}},
		},
	}
	require.NoError(t, repo.Upsert(s.ctx, sc))

	sc.Version = 2
	require.NoError(t, repo.Upsert(s.ctx, sc))

	loaded, err := repo.Load(s.ctx, sc.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Version)
	assert.Equal(t, sc.InitialState, loaded.InitialState)
	assert.Equal(t, "ok", loaded.Actions["review"].Choices["approve"].Feedback)

	list, err := repo.List(s.ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "finance_junior_analyst", list[0].ID)

	_, err = repo.Load(s.ctx, "missing_one")
	assert.ErrorIs(t, err, models.ErrScenarioNotFound)
	_, err = repo.Load(s.ctx, "Unknown.Scenario")
	assert.ErrorIs(t, err, models.ErrScenarioNotFound)

	assert.ErrorIs(t, repo.Upsert(s.ctx, &models.Scenario{ID: "broken"}), models.ErrMalformedScenario)
}

func (s *StorageIntegrationSuite) TestPaymentRepository_ChargeSuccessIsIdempotent() {
	t := s.T()
	txHelper := repository.NewTransactionHelper(s.pgPool, s.logger)
	repo := repository.NewPgPaymentRepository(s.pgPool, txHelper, s.logger)

	plan := "pro_monthly"
	require.NoError(t, repo.CreateTransaction(s.ctx, &models.Transaction{
		Reference: "ref-1",
		Email:     "ada@example.com",
		Amount:    500000,
		Currency:  "NGN",
		Status:    models.TransactionStatusPending,
		PlanCode:  &plan,
	}))

	pending, err := repo.GetTransaction(s.ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, pending.Status)

	activatedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	charge := models.ChargeSuccess{
		Reference:    "ref-1",
		Email:        "ada@example.com",
		Amount:       500000,
		Currency:     "NGN",
		RawData:      []byte(`{"reference":"ref-1"}`),
		ActivatedAt:  activatedAt,
		PeriodInDays: 30,
	}
	sub, err := repo.ApplyChargeSuccess(s.ctx, charge)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, &plan, sub.PlanCode)
	assert.True(t, sub.EndsAt.Equal(activatedAt.Add(30*24*time.Hour)))

	again, err := repo.ApplyChargeSuccess(s.ctx, charge)
	require.NoError(t, err)
	assert.Nil(t, again)

	paid, err := repo.GetTransaction(s.ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, paid.Status)

	var subs int
	require.NoError(t, s.pgPool.QueryRow(s.ctx, "SELECT COUNT(*) FROM subscriptions").Scan(&subs))
	assert.Equal(t, 1, subs)

	_, err = repo.GetTransaction(s.ctx, "unknown")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func (s *StorageIntegrationSuite) TestOTPRepository_SingleUse() {
	t := s.T()
	repo := repository.NewRedisOTPRepository(s.redisClient, s.logger)

	require.NoError(t, repo.Save(s.ctx, "Ada@Example.com", "verify", "123456", time.Minute))
	assert.ErrorIs(t, repo.Verify(s.ctx, "ada@example.com", "verify", "000000"), models.ErrOTPInvalid)
	assert.ErrorIs(t, repo.Verify(s.ctx, "ada@example.com", "reset", "123456"), models.ErrOTPMissing)
	require.NoError(t, repo.Verify(s.ctx, "ada@example.com", "verify", "123456"))
	assert.ErrorIs(t, repo.Verify(s.ctx, "ada@example.com", "verify", "123456"), models.ErrOTPMissing)
}
