package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"simulation-server/internal/engine"
	"simulation-server/internal/models"
	"simulation-server/internal/scenario"

	"github.com/spf13/cobra"
)

type playStep struct {
	ActionID string                   `json:"action_id"`
	ChoiceID string                   `json:"choice_id"`
	Feedback string                   `json:"feedback"`
	Changes  []models.AttributeChange `json:"changes"`
}

type playReport struct {
	ScenarioID   string       `json:"scenario_id"`
	Steps        []playStep   `json:"steps"`
	FinalState   models.State `json:"final_state"`
	Score        models.Score `json:"score"`
	CoachSummary string       `json:"coach_summary"`
}

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Play a scenario file with a sequence of decisions",
		Long: `Play a scenario file locally and print the resulting state and score.

Examples:
  simctl play scenarios/technology_product_associate.json \
    --action scope_creep=negotiate --action qa_findings=ship_with_flag`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawActions, _ := cmd.Flags().GetStringArray("action")
			decisions, err := parseDecisions(rawActions)
			if err != nil {
				return err
			}

			sc, err := scenario.ParseFile(args[0])
			if err != nil {
				return err
			}
			report, err := play(sc, decisions)
			if err != nil {
				return err
			}

			if jsonOutput(cmd) {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().StringArray("action", nil, "Decision as action=choice, repeatable, applied in order")
	return cmd
}

type decision struct {
	actionID string
	choiceID string
}

func parseDecisions(raw []string) ([]decision, error) {
	out := make([]decision, 0, len(raw))
	for _, r := range raw {
		actionID, choiceID, ok := strings.Cut(r, "=")
		if !ok || actionID == "" || choiceID == "" {
			return nil, fmt.Errorf("invalid --action '%s', expected action=choice", r)
		}
		out = append(out, decision{actionID: actionID, choiceID: choiceID})
	}
	return out, nil
}

// play применяет решения по порядку и считает итоговую оценку.
func play(sc *models.Scenario, decisions []decision) (*playReport, error) {
	state := engine.InitializeState(sc)
	steps := make([]playStep, 0, len(decisions))
	for _, d := range decisions {
		res, err := engine.ApplyAction(sc, state, d.actionID, d.choiceID)
		if err != nil {
			return nil, err
		}
		state = res.State
		steps = append(steps, playStep{
			ActionID: d.actionID,
			ChoiceID: d.choiceID,
			Feedback: res.Feedback,
			Changes:  res.Log.Changes,
		})
	}
	score := engine.GenerateScore(state)
	return &playReport{
		ScenarioID:   sc.ID,
		Steps:        steps,
		FinalState:   state,
		Score:        score,
		CoachSummary: engine.GenerateCoachSummary(state, score),
	}, nil
}

func printReport(cmd *cobra.Command, r *playReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scenario: %s\n\n", r.ScenarioID)
	for i, s := range r.Steps {
		fmt.Fprintf(out, "%d. %s -> %s\n   %s\n", i+1, s.ActionID, s.ChoiceID, s.Feedback)
		for _, c := range s.Changes {
			fmt.Fprintf(out, "   %s: %g -> %g\n", c.Attribute, c.Before, c.After)
		}
	}

	fmt.Fprintln(out, "\nFinal state:")
	attrs := make([]string, 0, len(r.FinalState))
	for attr := range r.FinalState {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	for _, attr := range attrs {
		fmt.Fprintf(out, "  %-20s %g\n", attr, r.FinalState[attr])
	}

	fmt.Fprintf(out, "\nScore: execution=%.2f risk=%.2f stakeholders=%.2f overall=%.2f\n",
		r.Score.Execution, r.Score.RiskManagement, r.Score.StakeholderManagement, r.Score.Overall)
	fmt.Fprintf(out, "\n%s\n", r.CoachSummary)
}
