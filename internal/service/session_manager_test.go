package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"testing/fstest"

	"simulation-server/internal/messaging"
	messagingMocks "simulation-server/internal/messaging/mocks"
	"simulation-server/internal/models"
	"simulation-server/internal/repository"
	repositoryMocks "simulation-server/internal/repository/mocks"
	"simulation-server/internal/scenario"
	"simulation-server/internal/service"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// staticLoader отдает сценарии из памяти.
type staticLoader map[string]*models.Scenario

func (l staticLoader) Load(_ context.Context, id string) (*models.Scenario, error) {
	sc, ok := l[id]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", models.ErrScenarioNotFound, id)
	}
	return sc, nil
}

func pmScenario() *models.Scenario {
	return &models.Scenario{
		ID:   "tech_pm",
		Meta: map[string]any{"title": "Tech Project Manager"},
		InitialState: models.State{
			"deadline_days":     0,
			"risk":              0.5,
			"stakeholder_trust": 0.5,
		},
		Actions: map[string]models.Action{
			"a1": {Choices: map[string]models.Choice{
				"c1": {Effects: map[string]float64{"risk": -0.2, "stakeholder_trust": 0.1}, Feedback: "ok"},
				"c2": {Effects: map[string]float64{"deadline_days": 3}, Feedback: "slipped"},
			}},
		},
	}
}

func newManager(store repository.SessionStore, publisher messaging.EmailTaskPublisher) *service.SessionManager {
	return service.NewSessionManager(staticLoader{"tech_pm": pmScenario()}, store, publisher, zap.NewNop())
}

func TestSessionManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	manager := newManager(repository.NewMemorySessionStore(), nil)

	started, err := manager.Start(ctx, service.StartRequest{ScenarioID: "tech_pm"})
	require.NoError(t, err)
	id := started.Session.ID
	assert.Equal(t, models.SessionStatusActive, started.Session.Status)
	assert.Empty(t, started.Session.History)
	assert.Equal(t, "Tech Project Manager", started.Scenario.Meta["title"])

	res, err := manager.Apply(ctx, id, "a1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Feedback)
	want := models.State{"deadline_days": 0, "risk": 0.3, "stakeholder_trust": 0.6}
	if diff := cmp.Diff(want, res.State); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	snapshot, err := manager.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, snapshot.History, 1)
	assert.Equal(t, "a1", snapshot.History[0].ActionID)
	assert.Equal(t, "c1", snapshot.History[0].ChoiceID)
	assert.EqualValues(t, 2, snapshot.Version)

	completion, err := manager.Complete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.Score{Execution: 1, RiskManagement: 0.7, StakeholderManagement: 0.6, Overall: 0.77}, completion.Score)
	assert.Contains(t, completion.CoachSummary, "Overall performance score: 0.77.")
	assert.Len(t, completion.History, 1)

	snapshot, err = manager.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, snapshot.Completed())
	require.NotNil(t, snapshot.FinalScore)
	assert.Equal(t, completion.Score, *snapshot.FinalScore)
	require.NotNil(t, snapshot.CoachSummary)
	assert.Equal(t, completion.CoachSummary, *snapshot.CoachSummary)
	assert.NotNil(t, snapshot.CompletedAt)

	t.Run("повторное завершение", func(t *testing.T) {
		_, err := manager.Complete(ctx, id)
		assert.ErrorIs(t, err, models.ErrInvalidState)
	})

	t.Run("решение после завершения", func(t *testing.T) {
		_, err := manager.Apply(ctx, id, "a1", "c1")
		assert.ErrorIs(t, err, models.ErrInvalidState)

		after, err := manager.Get(ctx, id)
		require.NoError(t, err)
		assert.Len(t, after.History, 1)
	})
}

func TestSessionManager_Start(t *testing.T) {
	ctx := context.Background()

	t.Run("неизвестный сценарий не создает сессию", func(t *testing.T) {
		store := new(repositoryMocks.SessionStore)
		manager := newManager(store, nil)

		_, err := manager.Start(ctx, service.StartRequest{ScenarioID: "missing"})
		assert.ErrorIs(t, err, models.ErrScenarioNotFound)
		assert.ErrorIs(t, err, models.ErrNotFound)
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("поиск по отрасли и роли", func(t *testing.T) {
		manager := newManager(repository.NewMemorySessionStore(), nil)
		started, err := manager.Start(ctx, service.StartRequest{Industry: "Tech", Role: "PM"})
		require.NoError(t, err)
		assert.Equal(t, "tech_pm", started.Session.ScenarioID)
	})

	t.Run("без сценария", func(t *testing.T) {
		manager := newManager(repository.NewMemorySessionStore(), nil)
		_, err := manager.Start(ctx, service.StartRequest{Industry: "tech"})
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("некорректный email участника", func(t *testing.T) {
		manager := newManager(repository.NewMemorySessionStore(), nil)
		_, err := manager.Start(ctx, service.StartRequest{
			ScenarioID:  "tech_pm",
			Participant: models.Participant{Email: "ada"},
		})
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("недопустимый идентификатор считается ненайденным", func(t *testing.T) {
		store := new(repositoryMocks.SessionStore)
		loader := scenario.NewFSLoader(fstest.MapFS{}, zap.NewNop())
		manager := service.NewSessionManager(loader, store, nil, zap.NewNop())

		_, err := manager.Start(ctx, service.StartRequest{ScenarioID: "Unknown.Scenario"})
		assert.ErrorIs(t, err, models.ErrNotFound)
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("id документа не совпадает с именем файла", func(t *testing.T) {
		store := new(repositoryMocks.SessionStore)
		loader := scenario.NewFSLoader(fstest.MapFS{
			"renamed.json": {Data: []byte(`{"id": "other", "initial_state": {"risk": 0.5}, "actions": {"a1": {"choices": {"c1": {"effects": {"risk": 0.1}}}}}}`)},
		}, zap.NewNop())
		manager := service.NewSessionManager(loader, store, nil, zap.NewNop())

		_, err := manager.Start(ctx, service.StartRequest{ScenarioID: "renamed"})
		assert.ErrorIs(t, err, models.ErrMalformedScenario)
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
	})

	t.Run("сессия хранит запрошенный идентификатор сценария", func(t *testing.T) {
		loader := scenario.NewFSLoader(fstest.MapFS{
			"renamed.json": {Data: []byte(`{"initial_state": {"risk": 0.5}, "actions": {"a1": {"choices": {"c1": {"effects": {"risk": 0.1}}}}}}`)},
		}, zap.NewNop())
		manager := service.NewSessionManager(loader, repository.NewMemorySessionStore(), nil, zap.NewNop())

		started, err := manager.Start(ctx, service.StartRequest{ScenarioID: "renamed"})
		require.NoError(t, err)
		assert.Equal(t, "renamed", started.Session.ScenarioID)

		res, err := manager.Apply(ctx, started.Session.ID, "a1", "c1")
		require.NoError(t, err)
		assert.Equal(t, 0.6, res.State["risk"])
	})

	t.Run("отмененный контекст не публикует сессию", func(t *testing.T) {
		store := repository.NewMemorySessionStore()
		manager := newManager(store, nil)
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := manager.Start(cancelled, service.StartRequest{ScenarioID: "tech_pm"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSessionManager_ApplyErrors(t *testing.T) {
	ctx := context.Background()
	manager := newManager(repository.NewMemorySessionStore(), nil)
	started, err := manager.Start(ctx, service.StartRequest{ScenarioID: "tech_pm"})
	require.NoError(t, err)

	_, err = manager.Apply(ctx, uuid.New(), "a1", "c1")
	assert.ErrorIs(t, err, models.ErrSessionNotFound)

	_, err = manager.Apply(ctx, started.Session.ID, "nope", "c1")
	assert.ErrorIs(t, err, models.ErrInvalidAction)

	_, err = manager.Apply(ctx, started.Session.ID, "a1", "nope")
	assert.ErrorIs(t, err, models.ErrInvalidChoice)

	// Отклоненные решения не меняют сессию
	snapshot, err := manager.Get(ctx, started.Session.ID)
	require.NoError(t, err)
	assert.Empty(t, snapshot.History)
	assert.Equal(t, started.Session.State, snapshot.State)
	assert.EqualValues(t, 1, snapshot.Version)

	_, err = manager.Complete(ctx, uuid.New())
	assert.ErrorIs(t, err, models.ErrSessionNotFound)
}

func TestSessionManager_ApplyIsNotIdempotent(t *testing.T) {
	ctx := context.Background()
	manager := newManager(repository.NewMemorySessionStore(), nil)
	started, err := manager.Start(ctx, service.StartRequest{ScenarioID: "tech_pm"})
	require.NoError(t, err)

	first, err := manager.Apply(ctx, started.Session.ID, "a1", "c1")
	require.NoError(t, err)
	second, err := manager.Apply(ctx, started.Session.ID, "a1", "c1")
	require.NoError(t, err)

	// Движок чистый, а сессия применяет эффект дважды
	assert.Equal(t, 0.3, first.State["risk"])
	assert.Equal(t, 0.1, second.State["risk"])
	assert.Equal(t, 0.7, second.State["stakeholder_trust"])

	snapshot, err := manager.Get(ctx, started.Session.ID)
	require.NoError(t, err)
	assert.Len(t, snapshot.History, 2)
}

func TestSessionManager_ConcurrentApply(t *testing.T) {
	defer goleak.VerifyNone(t)

	const n = 50
	sc := &models.Scenario{
		ID:           "parallel",
		InitialState: models.State{"count": 0},
		Actions:      map[string]models.Action{},
	}
	for i := 0; i < n; i++ {
		sc.Actions[fmt.Sprintf("a%d", i)] = models.Action{Choices: map[string]models.Choice{
			"c": {Effects: map[string]float64{"count": 1, fmt.Sprintf("attr_%d", i): float64(i)}, Feedback: "done"},
		}}
	}

	ctx := context.Background()
	manager := service.NewSessionManager(staticLoader{"parallel": sc}, repository.NewMemorySessionStore(), nil, zap.NewNop())
	started, err := manager.Start(ctx, service.StartRequest{ScenarioID: "parallel"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := manager.Apply(ctx, started.Session.ID, fmt.Sprintf("a%d", i), "c")
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	snapshot, err := manager.Get(ctx, started.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(n), snapshot.State["count"])
	for i := 0; i < n; i++ {
		assert.Equal(t, float64(i), snapshot.State[fmt.Sprintf("attr_%d", i)])
	}
	assert.Len(t, snapshot.History, n)
	assert.EqualValues(t, n+1, snapshot.Version)
}

func TestSessionManager_RetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := new(repositoryMocks.SessionStore)
	manager := newManager(store, nil)

	id := uuid.New()
	stored := &models.Session{
		ID:         id,
		ScenarioID: "tech_pm",
		State:      pmScenario().InitialState.Clone(),
		Status:     models.SessionStatusActive,
		Version:    4,
	}
	store.On("Get", ctx, id).Return(stored, nil).Twice()
	// Другая реплика успела записать сессию первой
	store.On("CompareAndSwap", ctx, mock.AnythingOfType("*models.Session"), int64(4)).Return(models.ErrVersionConflict).Once()
	store.On("CompareAndSwap", ctx, mock.MatchedBy(func(s *models.Session) bool {
		return s.Version == 5 && len(s.History) == 1
	}), int64(4)).Return(nil).Once()

	res, err := manager.Apply(ctx, id, "a1", "c1")
	require.NoError(t, err)
	assert.EqualValues(t, 5, res.Version)
	store.AssertExpectations(t)
}

func TestSessionManager_GivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	store := new(repositoryMocks.SessionStore)
	manager := newManager(store, nil)

	id := uuid.New()
	stored := &models.Session{ID: id, ScenarioID: "tech_pm", State: models.State{}, Status: models.SessionStatusActive, Version: 1}
	store.On("Get", ctx, id).Return(stored, nil)
	store.On("CompareAndSwap", ctx, mock.Anything, int64(1)).Return(models.ErrVersionConflict)

	_, err := manager.Apply(ctx, id, "a1", "c1")
	assert.ErrorIs(t, err, models.ErrVersionConflict)
	store.AssertNumberOfCalls(t, "CompareAndSwap", service.DefaultMaxWriteAttempts)
}

func TestSessionManager_CompletionReport(t *testing.T) {
	ctx := context.Background()

	t.Run("участник с email получает отчет", func(t *testing.T) {
		publisher := new(messagingMocks.EmailTaskPublisher)
		manager := newManager(repository.NewMemorySessionStore(), publisher)
		started, err := manager.Start(ctx, service.StartRequest{
			ScenarioID:  "tech_pm",
			Participant: models.Participant{Email: "ada@example.com", Name: "Ada"},
		})
		require.NoError(t, err)
		_, err = manager.Apply(ctx, started.Session.ID, "a1", "c1")
		require.NoError(t, err)

		publisher.On("PublishEmailTask", mock.Anything, mock.MatchedBy(func(task messaging.EmailTask) bool {
			return task.Type == messaging.EmailTaskSimulationReport &&
				task.To == "ada@example.com" &&
				task.Report != nil &&
				task.Report.SessionID == started.Session.ID.String() &&
				task.Report.ScenarioTitle == "Tech Project Manager" &&
				task.Report.Decisions == 1 &&
				task.Report.Score.Overall == 0.77
		})).Return(nil).Once()

		_, err = manager.Complete(ctx, started.Session.ID)
		require.NoError(t, err)
		publisher.AssertExpectations(t)
	})

	t.Run("ошибка публикации не отменяет завершение", func(t *testing.T) {
		publisher := new(messagingMocks.EmailTaskPublisher)
		manager := newManager(repository.NewMemorySessionStore(), publisher)
		started, err := manager.Start(ctx, service.StartRequest{
			ScenarioID:  "tech_pm",
			Participant: models.Participant{Email: "ada@example.com"},
		})
		require.NoError(t, err)

		publisher.On("PublishEmailTask", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

		_, err = manager.Complete(ctx, started.Session.ID)
		require.NoError(t, err)
		snapshot, err := manager.Get(ctx, started.Session.ID)
		require.NoError(t, err)
		assert.True(t, snapshot.Completed())
	})

	t.Run("без email отчет не отправляется", func(t *testing.T) {
		publisher := new(messagingMocks.EmailTaskPublisher)
		manager := newManager(repository.NewMemorySessionStore(), publisher)
		started, err := manager.Start(ctx, service.StartRequest{ScenarioID: "tech_pm"})
		require.NoError(t, err)

		_, err = manager.Complete(ctx, started.Session.ID)
		require.NoError(t, err)
		publisher.AssertNotCalled(t, "PublishEmailTask", mock.Anything, mock.Anything)
	})
}
