package messaging

import (
	"time"

	"simulation-server/internal/models"
)

// EmailTaskType определяет тип письма в очереди email-задач.
type EmailTaskType string

const (
	EmailTaskSimulationReport      EmailTaskType = "simulation_report"
	EmailTaskSubscriptionActivated EmailTaskType = "subscription_activated"
)

// EmailTask - сообщение в очереди email-задач.
// Заполняется ровно одно из полей Report или Subscription в зависимости от Type.
type EmailTask struct {
	TaskID       string                 `json:"task_id"`
	Type         EmailTaskType          `json:"type"`
	To           string                 `json:"to"`
	Name         string                 `json:"name,omitempty"`
	Report       *SimulationReport      `json:"report,omitempty"`
	Subscription *SubscriptionActivated `json:"subscription,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// SimulationReport - данные для письма с итогами симуляции.
type SimulationReport struct {
	SessionID     string       `json:"session_id"`
	ScenarioID    string       `json:"scenario_id"`
	ScenarioTitle string       `json:"scenario_title,omitempty"`
	Score         models.Score `json:"score"`
	CoachSummary  string       `json:"coach_summary"`
	Decisions     int          `json:"decisions"`
	CompletedAt   time.Time    `json:"completed_at"`
}

// SubscriptionActivated - данные для письма об активации подписки.
type SubscriptionActivated struct {
	Reference string    `json:"reference"`
	PlanCode  string    `json:"plan_code,omitempty"`
	StartedAt time.Time `json:"started_at"`
	EndsAt    time.Time `json:"ends_at"`
}
