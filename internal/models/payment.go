package models

import (
	"encoding/json"
	"time"
)

// TransactionStatus определяет статус платежной транзакции.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// Transaction - платеж через Paystack. Сумма хранится в минимальных единицах (kobo).
type Transaction struct {
	ID              int64             `json:"id" db:"id"`
	Reference       string            `json:"reference" db:"reference"`
	Email           string            `json:"email" db:"email"`
	Amount          int64             `json:"amount" db:"amount"`
	Currency        string            `json:"currency" db:"currency"`
	Status          TransactionStatus `json:"status" db:"status"`
	PlanCode        *string           `json:"plan_code,omitempty" db:"plan_code"`
	GatewayResponse json.RawMessage   `json:"gateway_response,omitempty" db:"gateway_response"`
	PaidAt          *time.Time        `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// SubscriptionStatus определяет статус подписки.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusInactive  SubscriptionStatus = "inactive"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription - доступ к платформе, активированный успешным платежом.
type Subscription struct {
	ID                   int64              `json:"id" db:"id"`
	Email                string             `json:"email" db:"email"`
	PlanCode             *string            `json:"plan_code,omitempty" db:"plan_code"`
	Status               SubscriptionStatus `json:"status" db:"status"`
	TransactionReference string             `json:"transaction_reference" db:"transaction_reference"`
	StartedAt            time.Time          `json:"started_at" db:"started_at"`
	EndsAt               time.Time          `json:"ends_at" db:"ends_at"`
	AutoRenew            bool               `json:"auto_renew" db:"auto_renew"`
	CreatedAt            time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at" db:"updated_at"`
}

// ChargeSuccess - данные события charge.success, нужные для активации подписки.
type ChargeSuccess struct {
	Reference    string
	Email        string
	Amount       int64
	Currency     string
	PlanCode     *string
	PaidAt       *time.Time
	RawData      json.RawMessage
	ActivatedAt  time.Time
	PeriodInDays int
}
