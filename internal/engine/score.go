package engine

import (
	"fmt"
	"math"
	"strings"

	"simulation-server/internal/models"
)

// GenerateScore вычисляет оценку по итоговому состоянию. Отсутствующие атрибуты считаются нулевыми.
func GenerateScore(state models.State) models.Score {
	execution := clamp01(1 - math.Abs(state.Get(AttrDeadlineDays))/10)
	riskManagement := clamp01(1 - state.Get(AttrRisk))
	stakeholder := state.Get(AttrStakeholderTrust)

	return models.Score{
		Execution:             execution,
		RiskManagement:        riskManagement,
		StakeholderManagement: stakeholder,
		Overall:               Round2((execution + riskManagement + stakeholder) / 3),
	}
}

const (
	summaryHighRisk       = "Your decisions significantly increased delivery risk, which often leads to downstream issues."
	summaryLowRisk        = "You proactively reduced risk, showing strong judgment under pressure."
	summaryLowTrust       = "Stakeholder trust declined, which may affect future alignment."
	summaryHighTrust      = "You strengthened stakeholder confidence during uncertainty."
	summaryBehindSchedule = "You traded speed for quality, a reasonable call in regulated environments."
	summaryAheadSchedule  = "You preserved schedule flexibility, giving your team room to adapt."
	summaryClosing        = "Focus on balancing speed, trust, and risk as complexity increases."
)

// GenerateCoachSummary строит текстовый отзыв по состоянию и оценке.
// Порядок предложений фиксирован: оценка, риск, доверие, сроки, заключение.
func GenerateCoachSummary(state models.State, score models.Score) string {
	sentences := []string{fmt.Sprintf("Overall performance score: %.2f.", Round2(score.Overall))}

	switch risk := state.Get(AttrRisk); {
	case risk > 0.6:
		sentences = append(sentences, summaryHighRisk)
	case risk < 0.3:
		sentences = append(sentences, summaryLowRisk)
	}

	switch trust := state.Get(AttrStakeholderTrust); {
	case trust < 0.4:
		sentences = append(sentences, summaryLowTrust)
	case trust > 0.7:
		sentences = append(sentences, summaryHighTrust)
	}

	switch deadline := state.Get(AttrDeadlineDays); {
	case deadline < 0:
		sentences = append(sentences, summaryBehindSchedule)
	case deadline > 10:
		sentences = append(sentences, summaryAheadSchedule)
	}

	sentences = append(sentences, summaryClosing)
	return strings.Join(sentences, " ")
}
