package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"simulation-server/internal/engine"
	"simulation-server/internal/messaging"
	"simulation-server/internal/models"
	"simulation-server/internal/repository"
	"simulation-server/internal/scenario"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxWriteAttempts - число попыток записи сессии при конфликте версий с другой репликой.
const DefaultMaxWriteAttempts = 5

// StartRequest - параметры запуска симуляции.
// Сценарий задается либо ScenarioID, либо парой Industry и Role.
type StartRequest struct {
	ScenarioID  string
	Industry    string
	Role        string
	Participant models.Participant
}

// StartResult - созданная сессия и сценарий, по которому она идет.
type StartResult struct {
	Session  *models.Session
	Scenario *models.Scenario
}

// ApplyResult - результат одного решения игрока.
type ApplyResult struct {
	State    models.State
	Feedback string
	Log      models.EffectLog
	Version  int64
}

// SessionManager ведет жизненный цикл сессий симуляции.
// Изменения одной сессии выполняются последовательно под локом сессии,
// между репликами порядок обеспечивает CompareAndSwap хранилища.
type SessionManager struct {
	loader      scenario.Loader
	store       repository.SessionStore
	publisher   messaging.EmailTaskPublisher
	locks       *sessionLocks
	maxAttempts int
	now         func() time.Time
	logger      *zap.Logger
}

// NewSessionManager создает менеджер сессий. publisher может быть nil,
// тогда письма с отчетом не отправляются.
func NewSessionManager(
	loader scenario.Loader,
	store repository.SessionStore,
	publisher messaging.EmailTaskPublisher,
	logger *zap.Logger,
) *SessionManager {
	return &SessionManager{
		loader:      loader,
		store:       store,
		publisher:   publisher,
		locks:       newSessionLocks(),
		maxAttempts: DefaultMaxWriteAttempts,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.Named("SessionManager"),
	}
}

// Start загружает сценарий и публикует новую сессию в статусе active.
// Ошибки загрузчика возвращаются как есть. Если запись не удалась, сессия не появляется.
func (m *SessionManager) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	scenarioID := req.ScenarioID
	if scenarioID == "" {
		if req.Industry == "" || req.Role == "" {
			return nil, fmt.Errorf("%w: simulation_id or industry and role are required", models.ErrBadRequest)
		}
		scenarioID = scenario.IDForRole(req.Industry, req.Role)
	}
	if req.Participant.Email != "" {
		if err := validateEmail(req.Participant.Email); err != nil {
			return nil, err
		}
	}

	sc, err := m.loader.Load(ctx, scenarioID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	session := &models.Session{
		ID:          uuid.New(),
		ScenarioID:  scenarioID,
		State:       engine.InitializeState(sc),
		History:     []models.HistoryEntry{},
		Status:      models.SessionStatusActive,
		Participant: req.Participant,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.store.Put(ctx, session); err != nil {
		m.logger.Error("Failed to store new session", zap.String("scenario_id", sc.ID), zap.Error(err))
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	sessionsStarted.WithLabelValues(sc.ID).Inc()
	m.logger.Info("Simulation session started",
		zap.Stringer("session_id", session.ID),
		zap.String("scenario_id", sc.ID))
	return &StartResult{Session: session, Scenario: sc}, nil
}

// Get возвращает снимок сессии.
func (m *SessionManager) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	return m.store.Get(ctx, id)
}

// Apply применяет выбор к текущему состоянию сессии и добавляет запись в историю.
// Повторный вызов с теми же аргументами применяет эффект еще раз.
func (m *SessionManager) Apply(ctx context.Context, id uuid.UUID, actionID, choiceID string) (*ApplyResult, error) {
	var result *ApplyResult
	err := m.mutate(ctx, id, func(session *models.Session, sc *models.Scenario) error {
		res, err := engine.ApplyAction(sc, session.State, actionID, choiceID)
		if err != nil {
			return err
		}
		session.State = res.State
		session.History = append(session.History, models.HistoryEntry{
			EffectLog: res.Log,
			Feedback:  res.Feedback,
			AppliedAt: session.UpdatedAt,
		})
		result = &ApplyResult{
			State:    res.State.Clone(),
			Feedback: res.Feedback,
			Log:      res.Log.Clone(),
			Version:  session.Version,
		}
		return nil
	})
	actionsApplied.WithLabelValues(actionOutcome(err)).Inc()
	if err != nil {
		return nil, err
	}
	m.logger.Debug("Action applied",
		zap.Stringer("session_id", id),
		zap.String("action_id", actionID),
		zap.String("choice_id", choiceID))
	return result, nil
}

// Complete подсчитывает оценку, фиксирует ее в сессии и переводит сессию в статус completed.
func (m *SessionManager) Complete(ctx context.Context, id uuid.UUID) (*models.CompletionResult, error) {
	var (
		result    *models.CompletionResult
		completed *models.Session
	)
	err := m.mutate(ctx, id, func(session *models.Session, sc *models.Scenario) error {
		score := engine.GenerateScore(session.State)
		summary := engine.GenerateCoachSummary(session.State, score)
		completedAt := session.UpdatedAt

		session.Status = models.SessionStatusCompleted
		session.FinalScore = &score
		session.CoachSummary = &summary
		session.CompletedAt = &completedAt

		completed = session.Clone()
		result = &models.CompletionResult{
			Score:        score,
			CoachSummary: summary,
			History:      completed.History,
			FinalState:   completed.State,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sessionsCompleted.WithLabelValues(completed.ScenarioID).Inc()
	overallScore.Observe(result.Score.Overall)
	m.logger.Info("Simulation session completed",
		zap.Stringer("session_id", id),
		zap.String("scenario_id", completed.ScenarioID),
		zap.Float64("overall", result.Score.Overall))

	m.publishReport(ctx, completed)
	return result, nil
}

// mutate выполняет чтение, изменение и условную запись сессии.
// fn получает копию сессии с уже увеличенной версией и проставленным UpdatedAt.
func (m *SessionManager) mutate(ctx context.Context, id uuid.UUID, fn func(*models.Session, *models.Scenario) error) error {
	unlock := m.locks.lock(id)
	defer unlock()

	for attempt := 1; ; attempt++ {
		current, err := m.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if current.Completed() {
			return fmt.Errorf("%w: session %s", models.ErrInvalidState, id)
		}

		sc, err := m.loader.Load(ctx, current.ScenarioID)
		if err != nil {
			return fmt.Errorf("failed to load scenario for session %s: %w", id, err)
		}

		next := current.Clone()
		next.Version = current.Version + 1
		next.UpdatedAt = m.now()
		if err := fn(next, sc); err != nil {
			return err
		}

		err = m.store.CompareAndSwap(ctx, next, current.Version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, models.ErrVersionConflict) {
			m.logger.Error("Failed to save session", zap.Stringer("session_id", id), zap.Error(err))
			return fmt.Errorf("failed to save session: %w", err)
		}

		versionConflicts.Inc()
		if attempt >= m.maxAttempts {
			m.logger.Warn("Giving up after repeated version conflicts",
				zap.Stringer("session_id", id),
				zap.Int("attempts", attempt))
			return err
		}
		m.logger.Debug("Session version conflict, retrying",
			zap.Stringer("session_id", id),
			zap.Int("attempt", attempt))
	}
}

// publishReport ставит в очередь письмо с итогами. Ошибка публикации не отменяет завершение.
func (m *SessionManager) publishReport(ctx context.Context, session *models.Session) {
	if m.publisher == nil || session.Participant.Email == "" {
		return
	}

	task := messaging.EmailTask{
		TaskID: uuid.New().String(),
		Type:   messaging.EmailTaskSimulationReport,
		To:     session.Participant.Email,
		Name:   session.Participant.Name,
		Report: &messaging.SimulationReport{
			SessionID:    session.ID.String(),
			ScenarioID:   session.ScenarioID,
			Score:        *session.FinalScore,
			CoachSummary: *session.CoachSummary,
			Decisions:    len(session.History),
			CompletedAt:  *session.CompletedAt,
		},
		CreatedAt: m.now(),
	}
	if sc, err := m.loader.Load(ctx, session.ScenarioID); err == nil {
		task.Report.ScenarioTitle = scenarioTitle(sc)
	}

	if err := m.publisher.PublishEmailTask(context.WithoutCancel(ctx), task); err != nil {
		m.logger.Error("Failed to publish simulation report task",
			zap.Stringer("session_id", session.ID),
			zap.String("task_id", task.TaskID),
			zap.Error(err))
	}
}

func scenarioTitle(sc *models.Scenario) string {
	if title, ok := sc.Meta["title"].(string); ok {
		return title
	}
	return ""
}

func actionOutcome(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, models.ErrInvalidAction), errors.Is(err, models.ErrInvalidChoice):
		return "rejected"
	case errors.Is(err, models.ErrInvalidState):
		return "completed"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
