package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"simulation-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// PaymentRepository хранит транзакции Paystack и подписки.
type PaymentRepository interface {
	// CreateTransaction сохраняет ожидающую транзакцию; повторная ссылка игнорируется.
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, reference string) (*models.Transaction, error)
	// ApplyChargeSuccess отмечает транзакцию успешной и активирует подписку.
	// Возвращает nil подписку, если по этой ссылке она уже была выдана или email не указан.
	ApplyChargeSuccess(ctx context.Context, charge models.ChargeSuccess) (*models.Subscription, error)
}

const (
	transactionColumns = `id, reference, email, amount, currency, status, plan_code, gateway_response, paid_at, created_at, updated_at`

	insertTransactionQuery = `
        INSERT INTO transactions (reference, email, amount, currency, status, plan_code)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (reference) DO NOTHING
    `
	getTransactionQuery      = `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`
	upsertChargeSuccessQuery = `
        INSERT INTO transactions (reference, email, amount, currency, status, plan_code, gateway_response, paid_at)
        VALUES ($1, $2, $3, $4, 'success', $5, $6, $7)
        ON CONFLICT (reference) DO UPDATE SET
            status = 'success',
            email = CASE WHEN transactions.email = '' THEN EXCLUDED.email ELSE transactions.email END,
            plan_code = COALESCE(transactions.plan_code, EXCLUDED.plan_code),
            gateway_response = EXCLUDED.gateway_response,
            paid_at = COALESCE(EXCLUDED.paid_at, transactions.paid_at),
            updated_at = NOW()
        RETURNING plan_code
    `
	insertSubscriptionQuery = `
        INSERT INTO subscriptions (email, plan_code, status, transaction_reference, started_at, ends_at, auto_renew)
        VALUES ($1, $2, 'active', $3, $4, $5, FALSE)
        ON CONFLICT (transaction_reference) DO NOTHING
        RETURNING id, email, plan_code, status, transaction_reference, started_at, ends_at, auto_renew, created_at, updated_at
    `
)

type pgPaymentRepository struct {
	db     DBTX
	txm    *TransactionHelper
	logger *zap.Logger
}

// NewPgPaymentRepository создает репозиторий платежей.
func NewPgPaymentRepository(db DBTX, txm *TransactionHelper, logger *zap.Logger) PaymentRepository {
	return &pgPaymentRepository{
		db:     db,
		txm:    txm,
		logger: logger.Named("PgPaymentRepo"),
	}
}

func (r *pgPaymentRepository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	logFields := []zap.Field{zap.String("reference", tx.Reference), zap.Int64("amount", tx.Amount)}
	_, err := r.db.Exec(ctx, insertTransactionQuery,
		tx.Reference, tx.Email, tx.Amount, tx.Currency, tx.Status, tx.PlanCode,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to create transaction %s: %w", tx.Reference, err)
	}
	r.logger.Info("Pending transaction stored", logFields...)
	return nil
}

func (r *pgPaymentRepository) GetTransaction(ctx context.Context, reference string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := pgxscan.Get(ctx, r.db, &tx, getTransactionQuery, reference); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", reference, models.ErrNotFound)
		}
		r.logger.Error("Failed to get transaction", zap.String("reference", reference), zap.Error(err))
		return nil, fmt.Errorf("failed to get transaction %s: %w", reference, err)
	}
	return &tx, nil
}

func (r *pgPaymentRepository) ApplyChargeSuccess(ctx context.Context, charge models.ChargeSuccess) (*models.Subscription, error) {
	logFields := []zap.Field{zap.String("reference", charge.Reference), zap.String("email", charge.Email)}
	var activated *models.Subscription

	err := r.txm.WithTransaction(ctx, func(ctx context.Context, tx DBTX) error {
		// План берется из транзакции, если в событии его нет
		var planCode *string
		err := tx.QueryRow(ctx, upsertChargeSuccessQuery,
			charge.Reference, charge.Email, charge.Amount, charge.Currency,
			charge.PlanCode, charge.RawData, charge.PaidAt,
		).Scan(&planCode)
		if err != nil {
			return fmt.Errorf("failed to mark transaction %s as success: %w", charge.Reference, err)
		}
		if charge.Email == "" {
			return nil
		}

		endsAt := charge.ActivatedAt.Add(time.Duration(charge.PeriodInDays) * 24 * time.Hour)
		var sub models.Subscription
		err = pgxscan.Get(ctx, tx, &sub, insertSubscriptionQuery,
			charge.Email, planCode, charge.Reference, charge.ActivatedAt, endsAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Подписка по этой ссылке уже выдана
				return nil
			}
			return fmt.Errorf("failed to activate subscription for %s: %w", charge.Reference, err)
		}
		activated = &sub
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to apply charge.success", append(logFields, zap.Error(err))...)
		return nil, err
	}
	if activated == nil {
		r.logger.Info("Charge already processed or has no customer email", logFields...)
	} else {
		r.logger.Info("Subscription activated", append(logFields, zap.Time("ends_at", activated.EndsAt))...)
	}
	return activated, nil
}
