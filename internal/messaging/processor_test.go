package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"simulation-server/internal/messaging"
	"simulation-server/internal/messaging/mocks"
	"simulation-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func reportTask() messaging.EmailTask {
	return messaging.EmailTask{
		TaskID: "task-1",
		Type:   messaging.EmailTaskSimulationReport,
		To:     "ada@example.com",
		Name:   "Ada",
		Report: &messaging.SimulationReport{
			SessionID:    "f47ac10b-58cc-4372-a567-0e02b2c3d479",
			ScenarioID:   "tech_pm",
			Score:        models.Score{Execution: 1, RiskManagement: 0.7, StakeholderManagement: 0.6, Overall: 0.77},
			CoachSummary: "Overall performance score: 0.77.",
			CompletedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
}

func TestEmailTaskProcessor_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("Valid task is handed to handler", func(t *testing.T) {
		handler := new(mocks.EmailTaskHandler)
		processor := messaging.NewEmailTaskProcessor(handler, zap.NewNop())
		task := reportTask()
		body, _ := json.Marshal(task)

		handler.On("HandleEmailTask", ctx, mock.MatchedBy(func(got messaging.EmailTask) bool {
			return got.TaskID == task.TaskID && got.Report != nil && got.Report.Score.Overall == 0.77
		})).Return(nil).Once()

		assert.NoError(t, processor.Process(ctx, body))
		handler.AssertExpectations(t)
	})

	t.Run("Handler error is returned", func(t *testing.T) {
		handler := new(mocks.EmailTaskHandler)
		processor := messaging.NewEmailTaskProcessor(handler, zap.NewNop())
		body, _ := json.Marshal(reportTask())
		sendErr := errors.New("smtp down")

		handler.On("HandleEmailTask", ctx, mock.Anything).Return(sendErr).Once()

		err := processor.Process(ctx, body)
		assert.ErrorIs(t, err, sendErr)
		assert.False(t, errors.Is(err, messaging.ErrInvalidTask))
	})

	invalid := map[string]func(*messaging.EmailTask){
		"missing recipient": func(task *messaging.EmailTask) { task.To = "" },
		"missing report":    func(task *messaging.EmailTask) { task.Report = nil },
		"unknown type":      func(task *messaging.EmailTask) { task.Type = "newsletter" },
		"subscription without payload": func(task *messaging.EmailTask) {
			task.Type = messaging.EmailTaskSubscriptionActivated
		},
	}
	for name, mutate := range invalid {
		t.Run("Invalid task: "+name, func(t *testing.T) {
			handler := new(mocks.EmailTaskHandler)
			processor := messaging.NewEmailTaskProcessor(handler, zap.NewNop())
			task := reportTask()
			mutate(&task)
			body, _ := json.Marshal(task)

			err := processor.Process(ctx, body)
			assert.ErrorIs(t, err, messaging.ErrInvalidTask)
			handler.AssertNotCalled(t, "HandleEmailTask", mock.Anything, mock.Anything)
		})
	}

	t.Run("Broken JSON", func(t *testing.T) {
		processor := messaging.NewEmailTaskProcessor(new(mocks.EmailTaskHandler), zap.NewNop())
		assert.ErrorIs(t, processor.Process(ctx, []byte("{not json")), messaging.ErrInvalidTask)
	})
}
