// Package messaging публикует и обрабатывает email-задачи через RabbitMQ.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EmailTaskPublisher публикует задачи на отправку писем.
type EmailTaskPublisher interface {
	PublishEmailTask(ctx context.Context, task EmailTask) error
}

// rabbitMQPublisher публикует JSON-сообщения в очередь через default exchange.
type rabbitMQPublisher struct {
	mu        sync.Mutex
	channel   *amqp.Channel
	queueName string
	appID     string
	logger    *zap.Logger
}

// NewRabbitMQEmailTaskPublisher открывает канал и объявляет очередь email-задач.
// Параметры очереди должны совпадать с параметрами консьюмера.
func NewRabbitMQEmailTaskPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (EmailTaskPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("email task publisher: failed to open channel: %w", err)
	}
	if err := declareQueue(ch, queueName); err != nil {
		ch.Close()
		return nil, fmt.Errorf("email task publisher: %w", err)
	}
	logger.Info("Email task queue declared", zap.String("queue", queueName))
	return &rabbitMQPublisher{
		channel:   ch,
		queueName: queueName,
		appID:     "simulation-server",
		logger:    logger.Named("EmailTaskPublisher"),
	}, nil
}

func declareQueue(ch *amqp.Channel, queueName string) error {
	_, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue '%s': %w", queueName, err)
	}
	return nil
}

func (p *rabbitMQPublisher) PublishEmailTask(ctx context.Context, task EmailTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal email task %s: %w", task.TaskID, err)
	}
	if err := p.publishMessage(ctx, body); err != nil {
		p.logger.Error("Failed to publish email task",
			zap.String("task_id", task.TaskID),
			zap.String("type", string(task.Type)),
			zap.Error(err))
		return fmt.Errorf("failed to publish email task %s: %w", task.TaskID, err)
	}
	p.logger.Debug("Email task published", zap.String("task_id", task.TaskID), zap.String("type", string(task.Type)))
	return nil
}

func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange
			p.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        p.appID,
			},
		)
		if err == nil {
			return nil
		}
		p.logger.Warn("Publish attempt failed", zap.Int("attempt", attempt), zap.String("queue", p.queueName), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return err
}
