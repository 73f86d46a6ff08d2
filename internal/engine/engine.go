// Package engine содержит чистые функции симуляции: применение решений,
// подсчет оценки и генерацию итогового отзыва. Пакет не хранит состояния и не пишет логов.
package engine

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"simulation-server/internal/models"
)

// Атрибуты состояния, которые участвуют в оценке.
const (
	AttrDeadlineDays     = "deadline_days"
	AttrRisk             = "risk"
	AttrStakeholderTrust = "stakeholder_trust"
)

// Result - результат применения одного решения.
type Result struct {
	State    models.State
	Feedback string
	Log      models.EffectLog
}

// InitializeState возвращает копию начального состояния сценария.
func InitializeState(scenario *models.Scenario) models.State {
	return scenario.InitialState.Clone()
}

// ApplyAction применяет выбор choiceID в действии actionID к состоянию state.
// Входное состояние не изменяется. При ошибке возвращается нулевой Result.
func ApplyAction(scenario *models.Scenario, state models.State, actionID, choiceID string) (Result, error) {
	choice, err := scenario.Choice(actionID, choiceID)
	if err != nil {
		return Result{}, fmt.Errorf("apply %s/%s: %w", actionID, choiceID, err)
	}

	next := state.Clone()
	effects := make(map[string]float64, len(choice.Effects))
	changes := make([]models.AttributeChange, 0, len(choice.Effects))
	for attr, delta := range choice.Effects {
		before := next.Get(attr)
		after := Round2(before + delta)
		next[attr] = after
		effects[attr] = delta
		changes = append(changes, models.AttributeChange{Attribute: attr, Before: before, After: after})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Attribute < changes[j].Attribute })

	return Result{
		State:    next,
		Feedback: choice.Feedback,
		Log: models.EffectLog{
			ActionID: actionID,
			ChoiceID: choiceID,
			Effects:  effects,
			Changes:  changes,
		},
	}, nil
}

// Round2 округляет значение до двух знаков после запятой.
// Округляется точное двоичное значение, точные половины уходят к четному.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if r == 0 {
		return 0 // без -0
	}
	return r
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
