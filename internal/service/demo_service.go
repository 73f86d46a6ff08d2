package service

import (
	"context"

	"simulation-server/internal/engine"
	"simulation-server/internal/models"
	"simulation-server/internal/scenario"

	"go.uber.org/zap"
)

// DemoPreview - описание сценария для демо-режима.
type DemoPreview struct {
	Scenario     *models.Scenario
	InitialState models.State
}

// DemoActionResult - результат решения в демо-режиме с промежуточной оценкой.
type DemoActionResult struct {
	State        models.State
	Feedback     string
	Log          models.EffectLog
	Score        models.Score
	CoachSummary string
}

// DemoService прогоняет решения по состоянию, которое присылает клиент. Ничего не сохраняется.
type DemoService struct {
	loader scenario.Loader
	logger *zap.Logger
}

func NewDemoService(loader scenario.Loader, logger *zap.Logger) *DemoService {
	return &DemoService{loader: loader, logger: logger.Named("DemoService")}
}

// Preview возвращает сценарий и его начальное состояние.
func (s *DemoService) Preview(ctx context.Context, scenarioID string) (*DemoPreview, error) {
	sc, err := s.loader.Load(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	return &DemoPreview{Scenario: sc, InitialState: engine.InitializeState(sc)}, nil
}

// PreviewAction применяет выбор к переданному состоянию и сразу оценивает результат.
func (s *DemoService) PreviewAction(ctx context.Context, scenarioID string, state models.State, actionID, choiceID string) (*DemoActionResult, error) {
	sc, err := s.loader.Load(ctx, scenarioID)
	if err != nil {
		return nil, err
	}
	res, err := engine.ApplyAction(sc, state, actionID, choiceID)
	if err != nil {
		return nil, err
	}
	score := engine.GenerateScore(res.State)
	s.logger.Debug("Demo action applied",
		zap.String("scenario_id", scenarioID),
		zap.String("action_id", actionID),
		zap.String("choice_id", choiceID))
	return &DemoActionResult{
		State:        res.State,
		Feedback:     res.Feedback,
		Log:          res.Log,
		Score:        score,
		CoachSummary: engine.GenerateCoachSummary(res.State, score),
	}, nil
}
