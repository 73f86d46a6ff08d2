package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrInvalidTask помечает сообщения, которые не имеет смысла обрабатывать повторно.
var ErrInvalidTask = errors.New("invalid email task")

// EmailTaskHandler выполняет email-задачу.
type EmailTaskHandler interface {
	HandleEmailTask(ctx context.Context, task EmailTask) error
}

// EmailTaskProcessor разбирает сообщение из очереди и передает задачу обработчику.
type EmailTaskProcessor struct {
	handler EmailTaskHandler
	logger  *zap.Logger
}

// NewEmailTaskProcessor создает процессор email-задач.
func NewEmailTaskProcessor(handler EmailTaskHandler, logger *zap.Logger) *EmailTaskProcessor {
	return &EmailTaskProcessor{
		handler: handler,
		logger:  logger.Named("EmailTaskProcessor"),
	}
}

// Process обрабатывает тело одного сообщения.
// Некорректные сообщения возвращают ошибку, совместимую с ErrInvalidTask.
func (p *EmailTaskProcessor) Process(ctx context.Context, body []byte) error {
	var task EmailTask
	if err := json.Unmarshal(body, &task); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	if err := validateTask(task); err != nil {
		p.logger.Warn("Dropping invalid email task", zap.String("task_id", task.TaskID), zap.Error(err))
		return err
	}

	log := p.logger.With(zap.String("task_id", task.TaskID), zap.String("type", string(task.Type)))
	log.Debug("Processing email task")
	if err := p.handler.HandleEmailTask(ctx, task); err != nil {
		log.Error("Email task failed", zap.Error(err))
		return err
	}
	log.Info("Email task processed")
	return nil
}

func validateTask(task EmailTask) error {
	if task.To == "" {
		return fmt.Errorf("%w: missing recipient", ErrInvalidTask)
	}
	switch task.Type {
	case EmailTaskSimulationReport:
		if task.Report == nil {
			return fmt.Errorf("%w: simulation_report without report", ErrInvalidTask)
		}
	case EmailTaskSubscriptionActivated:
		if task.Subscription == nil {
			return fmt.Errorf("%w: subscription_activated without subscription", ErrInvalidTask)
		}
	default:
		return fmt.Errorf("%w: unknown type '%s'", ErrInvalidTask, task.Type)
	}
	return nil
}
