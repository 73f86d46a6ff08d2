package models

// Score - нормализованная оценка прохождения симуляции.
type Score struct {
	Execution             float64 `json:"execution"`
	RiskManagement        float64 `json:"risk_management"`
	StakeholderManagement float64 `json:"stakeholder_management"`
	Overall               float64 `json:"overall"`
}

// CompletionResult - результат завершения сессии.
type CompletionResult struct {
	Score        Score          `json:"score"`
	CoachSummary string         `json:"coach_summary"`
	History      []HistoryEntry `json:"history"`
	FinalState   State          `json:"final_state"`
}
