package handler

import (
	"time"

	"simulation-server/internal/models"
)

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Коды ошибок API
const (
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeMalformedScenario = "MALFORMED_SCENARIO"
	ErrCodeInvalidAction     = "INVALID_ACTION"
	ErrCodeInvalidChoice     = "INVALID_CHOICE"
	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeOTPMissing        = "OTP_MISSING"
	ErrCodeOTPInvalid        = "OTP_INVALID"
	ErrCodeUpstream          = "UPSTREAM_ERROR"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// --- Симуляции ---

type participantRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
	Name  string `json:"name"`
}

type startSessionRequest struct {
	SimulationID string              `json:"simulation_id"`
	Industry     string              `json:"industry"`
	Role         string              `json:"role"`
	Participant  *participantRequest `json:"participant"`
}

type startSessionResponse struct {
	SessionID    string                   `json:"session_id"`
	SimulationID string                   `json:"simulation_id"`
	Status       models.SessionStatus     `json:"status"`
	InitialState models.State             `json:"initial_state"`
	Meta         map[string]any           `json:"meta,omitempty"`
	Context      map[string]any           `json:"context,omitempty"`
	Actions      map[string]models.Action `json:"actions"`
}

type applyActionRequest struct {
	ActionID string `json:"action_id" binding:"required"`
	Choice   string `json:"choice" binding:"required"`
}

type applyActionResponse struct {
	NewState models.State     `json:"new_state"`
	Feedback string           `json:"feedback"`
	Log      models.EffectLog `json:"log"`
	Version  int64            `json:"version"`
}

type completeResponse struct {
	FinalState   models.State          `json:"final_state"`
	Score        models.Score          `json:"score"`
	CoachSummary string                `json:"coach_summary"`
	History      []models.HistoryEntry `json:"history"`
}

type catalogResponse struct {
	Simulations []models.ScenarioSummary `json:"simulations"`
}

// --- Демо ---

type demoSimulationResponse struct {
	SimulationID string                   `json:"simulation_id"`
	Meta         map[string]any           `json:"meta"`
	InitialState models.State             `json:"initial_state"`
	Actions      map[string]models.Action `json:"actions"`
}

type demoActionRequest struct {
	State    models.State `json:"state"`
	ActionID string       `json:"action_id" binding:"required"`
	Choice   string       `json:"choice" binding:"required"`
}

type demoActionResponse struct {
	NewState     models.State     `json:"new_state"`
	Feedback     string           `json:"feedback"`
	Score        models.Score     `json:"score"`
	CoachSummary string           `json:"coach_summary"`
	Log          models.EffectLog `json:"log"`
}

// --- Платежи ---

type initPaymentRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Amount int64  `json:"amount" binding:"required,gt=0"`
	PlanID string `json:"plan_id"`
}

type initPaymentResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyPaymentResponse struct {
	Reference string     `json:"reference"`
	Status    string     `json:"status"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Email     string     `json:"email"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

type webhookResponse struct {
	Status string `json:"status"`
}

// --- Email ---

type sendOTPRequest struct {
	Email   string `json:"email" binding:"required,email"`
	Name    string `json:"name" binding:"required"`
	Purpose string `json:"purpose"`
}

type verifyOTPRequest struct {
	Email   string `json:"email" binding:"required,email"`
	OTPCode string `json:"otp_code" binding:"required"`
	Purpose string `json:"purpose"`
}

type sendWelcomeRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Name            string `json:"name" binding:"required"`
	VerificationURL string `json:"verification_url"`
}

type messageResponse struct {
	Message string `json:"message"`
}
