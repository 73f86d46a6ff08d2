package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus определяет статус сессии симуляции.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"    // Сессия принимает решения игрока
	SessionStatusCompleted SessionStatus = "completed" // Терминальный статус, переходов нет
)

// AttributeChange - изменение одного атрибута состояния.
type AttributeChange struct {
	Attribute string  `json:"attribute"`
	Before    float64 `json:"before"`
	After     float64 `json:"after"`
}

// EffectLog фиксирует, какие атрибуты изменил примененный выбор.
type EffectLog struct {
	ActionID string             `json:"action_id"`
	ChoiceID string             `json:"choice_id"`
	Effects  map[string]float64 `json:"effects"`
	Changes  []AttributeChange  `json:"changes"` // Отсортированы по имени атрибута
}

// Clone возвращает копию записи, не разделяющую память с оригиналом.
func (l EffectLog) Clone() EffectLog {
	out := l
	if l.Effects != nil {
		out.Effects = make(map[string]float64, len(l.Effects))
		for k, v := range l.Effects {
			out.Effects[k] = v
		}
	}
	if l.Changes != nil {
		out.Changes = append([]AttributeChange(nil), l.Changes...)
	}
	return out
}

// HistoryEntry - запись в истории сессии.
type HistoryEntry struct {
	EffectLog
	Feedback  string    `json:"feedback"`
	AppliedAt time.Time `json:"applied_at"`
}

// Participant - необязательные данные участника для отправки отчета.
type Participant struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Session - одно прохождение сценария одним участником.
type Session struct {
	ID           uuid.UUID      `json:"session_id"`
	ScenarioID   string         `json:"scenario_id"`
	State        State          `json:"state"`
	History      []HistoryEntry `json:"history"`
	Status       SessionStatus  `json:"status"`
	FinalScore   *Score         `json:"final_score,omitempty"`
	CoachSummary *string        `json:"coach_summary,omitempty"`
	Participant  Participant    `json:"participant"`
	Version      int64          `json:"version"` // Увеличивается при каждом сохранении, используется для CAS
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// Completed сообщает, находится ли сессия в терминальном статусе.
func (s *Session) Completed() bool {
	return s.Status == SessionStatusCompleted
}

// Clone возвращает глубокую копию сессии.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.State = s.State.Clone()
	if s.History != nil {
		out.History = make([]HistoryEntry, len(s.History))
		for i, entry := range s.History {
			entry.EffectLog = entry.EffectLog.Clone()
			out.History[i] = entry
		}
	}
	if s.FinalScore != nil {
		score := *s.FinalScore
		out.FinalScore = &score
	}
	if s.CoachSummary != nil {
		summary := *s.CoachSummary
		out.CoachSummary = &summary
	}
	if s.CompletedAt != nil {
		completedAt := *s.CompletedAt
		out.CompletedAt = &completedAt
	}
	return &out
}
