package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"simulation-server/internal/messaging"
	"simulation-server/internal/models"
	"simulation-server/internal/payment/paystack"
	"simulation-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentGateway - операции платежного провайдера, которые использует сервис.
type PaymentGateway interface {
	InitializeTransaction(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.TransactionData, error)
}

var _ PaymentGateway = (*paystack.Client)(nil)

// PaymentConfig - параметры оплаты подписки.
type PaymentConfig struct {
	WebhookSecret    string
	CallbackURL      string
	Currency         string
	SubscriptionDays int
}

// InitPaymentRequest - запрос на оплату. Amount указывается в целых единицах валюты.
type InitPaymentRequest struct {
	Email  string
	Amount int64
	PlanID string
}

// Статусы ответа на webhook
const (
	WebhookStatusOK      = "ok"
	WebhookStatusIgnored = "ignored"
)

// PaymentService инициализирует платежи и обрабатывает уведомления Paystack.
type PaymentService struct {
	gateway   PaymentGateway
	repo      repository.PaymentRepository
	publisher messaging.EmailTaskPublisher
	cfg       PaymentConfig
	now       func() time.Time
	logger    *zap.Logger
}

// NewPaymentService создает сервис платежей.
func NewPaymentService(
	gateway PaymentGateway,
	repo repository.PaymentRepository,
	publisher messaging.EmailTaskPublisher,
	cfg PaymentConfig,
	logger *zap.Logger,
) *PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "NGN"
	}
	if cfg.SubscriptionDays <= 0 {
		cfg.SubscriptionDays = 30
	}
	return &PaymentService{
		gateway:   gateway,
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.Named("PaymentService"),
	}
}

// Initialize создает транзакцию в Paystack и сохраняет ее в статусе pending.
func (s *PaymentService) Initialize(ctx context.Context, req InitPaymentRequest) (*paystack.InitializeResult, error) {
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrBadRequest)
	}

	amountKobo := req.Amount * 100
	metadata := map[string]any{}
	var planCode *string
	if req.PlanID != "" {
		metadata["plan_id"] = req.PlanID
		planCode = &req.PlanID
	}

	log := s.logger.With(zap.String("plan_id", req.PlanID), zap.Int64("amount_kobo", amountKobo))
	res, err := s.gateway.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:       req.Email,
		Amount:      amountKobo,
		Metadata:    metadata,
		CallbackURL: s.cfg.CallbackURL,
	})
	if err != nil {
		log.Error("Failed to initialize Paystack transaction", zap.Error(err))
		return nil, err
	}

	tx := &models.Transaction{
		Reference: res.Reference,
		Email:     req.Email,
		Amount:    amountKobo,
		Currency:  s.cfg.Currency,
		Status:    models.TransactionStatusPending,
		PlanCode:  planCode,
	}
	if err := s.repo.CreateTransaction(ctx, tx); err != nil {
		log.Error("Failed to store pending transaction", zap.String("reference", res.Reference), zap.Error(err))
		return nil, fmt.Errorf("failed to store transaction: %w", err)
	}
	log.Info("Payment initialized", zap.String("reference", res.Reference))
	return res, nil
}

// Verify запрашивает у Paystack актуальный статус транзакции.
func (s *PaymentService) Verify(ctx context.Context, reference string) (*paystack.TransactionData, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, fmt.Errorf("%w: reference is required", models.ErrBadRequest)
	}
	data, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		s.logger.Error("Failed to verify transaction", zap.String("reference", reference), zap.Error(err))
		return nil, err
	}
	return data, nil
}

// HandleWebhook проверяет подпись и обрабатывает событие.
// charge.success отмечает транзакцию успешной и активирует подписку, остальные события игнорируются.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (string, error) {
	if err := paystack.VerifySignature(s.cfg.WebhookSecret, body, signature); err != nil {
		webhookEvents.WithLabelValues("unknown", "unauthorized").Inc()
		if errors.Is(err, models.ErrWebhookNotConfigured) {
			s.logger.Error("Webhook received but secret is not configured")
		} else {
			s.logger.Warn("Webhook signature rejected")
		}
		return "", err
	}

	event, err := paystack.ParseEvent(body)
	if err != nil {
		webhookEvents.WithLabelValues("unknown", "invalid").Inc()
		return "", err
	}
	if event.Event != paystack.EventChargeSuccess {
		webhookEvents.WithLabelValues(event.Event, WebhookStatusIgnored).Inc()
		s.logger.Debug("Ignoring webhook event", zap.String("event", event.Event))
		return WebhookStatusIgnored, nil
	}
	if event.Data.Reference == "" {
		webhookEvents.WithLabelValues(event.Event, "invalid").Inc()
		return "", fmt.Errorf("%w: charge.success without reference", models.ErrBadRequest)
	}

	charge := models.ChargeSuccess{
		Reference:    event.Data.Reference,
		Email:        strings.TrimSpace(event.Data.Customer.Email),
		Amount:       event.Data.Amount,
		Currency:     event.Data.Currency,
		PlanCode:     event.Data.PlanCode(),
		PaidAt:       event.Data.PaidAt.Ptr(),
		RawData:      event.Raw,
		ActivatedAt:  s.now(),
		PeriodInDays: s.cfg.SubscriptionDays,
	}
	if charge.Currency == "" {
		charge.Currency = s.cfg.Currency
	}

	log := s.logger.With(zap.String("reference", charge.Reference))
	sub, err := s.repo.ApplyChargeSuccess(ctx, charge)
	if err != nil {
		webhookEvents.WithLabelValues(event.Event, "error").Inc()
		log.Error("Failed to apply charge.success", zap.Error(err))
		return "", fmt.Errorf("failed to apply charge: %w", err)
	}
	webhookEvents.WithLabelValues(event.Event, WebhookStatusOK).Inc()

	if sub == nil {
		log.Info("Charge recorded without new subscription")
		return WebhookStatusOK, nil
	}
	log.Info("Subscription activated", zap.Int64("subscription_id", sub.ID), zap.Time("ends_at", sub.EndsAt))
	s.publishActivation(ctx, sub)
	return WebhookStatusOK, nil
}

func (s *PaymentService) publishActivation(ctx context.Context, sub *models.Subscription) {
	if s.publisher == nil {
		return
	}
	activated := &messaging.SubscriptionActivated{
		Reference: sub.TransactionReference,
		StartedAt: sub.StartedAt,
		EndsAt:    sub.EndsAt,
	}
	if sub.PlanCode != nil {
		activated.PlanCode = *sub.PlanCode
	}
	task := messaging.EmailTask{
		TaskID:       uuid.New().String(),
		Type:         messaging.EmailTaskSubscriptionActivated,
		To:           sub.Email,
		Subscription: activated,
		CreatedAt:    s.now(),
	}
	if err := s.publisher.PublishEmailTask(context.WithoutCancel(ctx), task); err != nil {
		s.logger.Error("Failed to publish subscription email task",
			zap.String("reference", sub.TransactionReference),
			zap.Error(err))
	}
}
