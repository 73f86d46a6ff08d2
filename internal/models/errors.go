package models

import (
	"errors"
	"fmt"
	"strings"
)

// Стандартные ошибки приложения
var (
	// Общие ошибки ресурсов
	ErrNotFound         = errors.New("resource not found")
	ErrScenarioNotFound = fmt.Errorf("scenario %w", ErrNotFound)
	ErrSessionNotFound  = fmt.Errorf("simulation session %w", ErrNotFound)

	// Ошибки содержимого сценария
	ErrMalformedScenario = errors.New("malformed scenario")
	ErrInvalidScenarioID = errors.New("invalid scenario id")

	// Ошибки хода симуляции
	ErrInvalidAction = errors.New("invalid action")
	ErrInvalidChoice = errors.New("invalid choice")
	ErrInvalidState  = errors.New("simulation already completed")

	// Ошибки хранилища сессий
	ErrSessionExists   = errors.New("simulation session already exists")
	ErrVersionConflict = errors.New("simulation session was modified concurrently")

	// Платежи
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrWebhookNotConfigured = errors.New("webhook secret is not configured")
	ErrPaymentProvider      = errors.New("payment provider request failed")

	// Email и OTP
	ErrEmailDelivery = errors.New("email delivery failed")
	ErrOTPMissing    = errors.New("otp expired or missing")
	ErrOTPInvalid    = errors.New("invalid otp")

	// Общие ошибки запросов
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")
)

// MalformedScenarioError описывает сценарий, который не прошел структурную проверку.
// Через errors.Is сопоставляется с ErrMalformedScenario.
type MalformedScenarioError struct {
	ScenarioID string
	Reasons    []string
	Err        error // Исходная ошибка парсинга, если есть
}

func (e *MalformedScenarioError) Error() string {
	var sb strings.Builder
	sb.WriteString("malformed scenario")
	if e.ScenarioID != "" {
		sb.WriteString(" '")
		sb.WriteString(e.ScenarioID)
		sb.WriteString("'")
	}
	if len(e.Reasons) > 0 {
		sb.WriteString(": ")
		sb.WriteString(strings.Join(e.Reasons, "; "))
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *MalformedScenarioError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedScenario, e.Err}
	}
	return []error{ErrMalformedScenario}
}
