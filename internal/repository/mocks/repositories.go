package mocks

import (
	"context"
	"time"

	"simulation-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock SessionStore
type SessionStore struct {
	mock.Mock
}

func (m *SessionStore) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*models.Session)
	return s, args.Error(1)
}

func (m *SessionStore) Put(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *SessionStore) CompareAndSwap(ctx context.Context, session *models.Session, expectedVersion int64) error {
	args := m.Called(ctx, session, expectedVersion)
	return args.Error(0)
}

// Mock PaymentRepository
type PaymentRepository struct {
	mock.Mock
}

func (m *PaymentRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *PaymentRepository) GetTransaction(ctx context.Context, reference string) (*models.Transaction, error) {
	args := m.Called(ctx, reference)
	tx, _ := args.Get(0).(*models.Transaction)
	return tx, args.Error(1)
}

func (m *PaymentRepository) ApplyChargeSuccess(ctx context.Context, charge models.ChargeSuccess) (*models.Subscription, error) {
	args := m.Called(ctx, charge)
	sub, _ := args.Get(0).(*models.Subscription)
	return sub, args.Error(1)
}

// Mock OTPRepository
type OTPRepository struct {
	mock.Mock
}

func (m *OTPRepository) Save(ctx context.Context, email, purpose, code string, ttl time.Duration) error {
	args := m.Called(ctx, email, purpose, code, ttl)
	return args.Error(0)
}

func (m *OTPRepository) Verify(ctx context.Context, email, purpose, code string) error {
	args := m.Called(ctx, email, purpose, code)
	return args.Error(0)
}
