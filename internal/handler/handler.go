package handler

import (
	"context"
	"net/http"

	"simulation-server/internal/models"
	"simulation-server/internal/payment/paystack"
	"simulation-server/internal/scenario"
	"simulation-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionService - операции над сессиями симуляции.
type SessionService interface {
	Start(ctx context.Context, req service.StartRequest) (*service.StartResult, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Apply(ctx context.Context, id uuid.UUID, actionID, choiceID string) (*service.ApplyResult, error)
	Complete(ctx context.Context, id uuid.UUID) (*models.CompletionResult, error)
}

// DemoService - демо-режим без сохранения состояния.
type DemoService interface {
	Preview(ctx context.Context, scenarioID string) (*service.DemoPreview, error)
	PreviewAction(ctx context.Context, scenarioID string, state models.State, actionID, choiceID string) (*service.DemoActionResult, error)
}

// PaymentService - платежи и webhook Paystack.
type PaymentService interface {
	Initialize(ctx context.Context, req service.InitPaymentRequest) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.TransactionData, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (string, error)
}

// EmailService - транзакционные письма и одноразовые коды.
type EmailService interface {
	SendOTP(ctx context.Context, to, name, purpose string) error
	VerifyOTP(ctx context.Context, to, code, purpose string) error
	SendWelcome(ctx context.Context, to, name, verificationURL string) error
}

var (
	_ SessionService = (*service.SessionManager)(nil)
	_ DemoService    = (*service.DemoService)(nil)
	_ PaymentService = (*service.PaymentService)(nil)
	_ EmailService   = (*service.EmailService)(nil)
)

// Handler обслуживает HTTP API симуляций, платежей и email.
type Handler struct {
	sessions SessionService
	catalog  scenario.Catalog
	demo     DemoService
	payments PaymentService
	emails   EmailService
	logger   *zap.Logger
}

// Deps - зависимости Handler. Группы маршрутов с nil-сервисом не регистрируются.
type Deps struct {
	Sessions SessionService
	Catalog  scenario.Catalog
	Demo     DemoService
	Payments PaymentService
	Emails   EmailService
}

func NewHandler(deps Deps, logger *zap.Logger) *Handler {
	return &Handler{
		sessions: deps.Sessions,
		catalog:  deps.Catalog,
		demo:     deps.Demo,
		payments: deps.Payments,
		emails:   deps.Emails,
		logger:   logger.Named("HTTPHandler"),
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)

	api := router.Group("/api/v1")

	simulations := api.Group("/simulations")
	{
		if h.catalog != nil {
			simulations.GET("", h.listSimulations)
		}
		if h.sessions != nil {
			simulations.POST("/sessions", h.startSession)
			simulations.GET("/sessions/:session_id", h.getSession)
			simulations.POST("/sessions/:session_id/actions", h.applyAction)
			simulations.POST("/sessions/:session_id/complete", h.completeSession)
		}
	}

	if h.demo != nil {
		demo := api.Group("/demo/simulations")
		{
			demo.GET("/:simulation_id", h.getDemoSimulation)
			demo.POST("/:simulation_id/action", h.runDemoAction)
		}
	}

	if h.payments != nil {
		payments := api.Group("/payments")
		{
			payments.POST("/init", h.initPayment)
			payments.POST("/webhook", h.paystackWebhook)
			payments.GET("/verify/:reference", h.verifyPayment)
		}
	}

	if h.emails != nil {
		emails := api.Group("/email")
		{
			emails.POST("/send-otp", h.sendOTP)
			emails.POST("/verify-otp", h.verifyOTP)
			emails.POST("/send-welcome", h.sendWelcome)
		}
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
