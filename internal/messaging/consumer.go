package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessageProcessor обрабатывает тело одного сообщения.
type MessageProcessor interface {
	Process(ctx context.Context, body []byte) error
}

// EmailTaskConsumer читает очередь email-задач и обрабатывает их пулом воркеров.
//
// Успешное сообщение подтверждается. Некорректное отклоняется без возврата в очередь.
// При ошибке обработки сообщение возвращается в очередь один раз, повторная ошибка
// отклоняет его окончательно.
type EmailTaskConsumer struct {
	conn           *amqp.Connection
	processor      MessageProcessor
	queueName      string
	workers        int
	processTimeout time.Duration
	logger         *zap.Logger

	stopChannel chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewEmailTaskConsumer создает консьюмер. workers задает число параллельных обработчиков.
func NewEmailTaskConsumer(conn *amqp.Connection, processor MessageProcessor, queueName string, workers int, logger *zap.Logger) *EmailTaskConsumer {
	if workers <= 0 {
		workers = 1
	}
	return &EmailTaskConsumer{
		conn:           conn,
		processor:      processor,
		queueName:      queueName,
		workers:        workers,
		processTimeout: 60 * time.Second,
		logger:         logger.Named("EmailTaskConsumer"),
		stopChannel:    make(chan struct{}),
	}
}

// StartConsuming объявляет очередь и обрабатывает сообщения до Stop или закрытия канала.
func (c *EmailTaskConsumer) StartConsuming() error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("consumer: failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := declareQueue(ch, c.queueName); err != nil {
		return fmt.Errorf("consumer: %w", err)
	}
	if err := ch.Qos(c.workers, 0, false); err != nil {
		return fmt.Errorf("consumer: failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName,
		"simulation-email-consumer", // consumer tag
		false,                       // auto-ack
		false,                       // exclusive
		false,                       // no-local
		false,                       // no-wait
		nil,                         // args
	)
	if err != nil {
		return fmt.Errorf("consumer: failed to register consumer: %w", err)
	}
	c.logger.Info("Consumer started", zap.String("queue", c.queueName), zap.Int("workers", c.workers))

	c.Serve(msgs)
	return nil
}

// Serve раздает сообщения воркерам и возвращается, когда канал закрыт или вызван Stop
// и все воркеры завершили текущие сообщения.
func (c *EmailTaskConsumer) Serve(msgs <-chan amqp.Delivery) {
	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(i, msgs)
	}
	c.wg.Wait()
	c.logger.Info("Consumer stopped")
}

func (c *EmailTaskConsumer) worker(id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopChannel:
			return
		case d, ok := <-msgs:
			if !ok {
				c.logger.Debug("Delivery channel closed", zap.Int("worker", id))
				return
			}
			c.handleDelivery(d)
		}
	}
}

func (c *EmailTaskConsumer) handleDelivery(d amqp.Delivery) {
	ctx, cancel := context.WithTimeout(context.Background(), c.processTimeout)
	defer cancel()

	err := c.processor.Process(ctx, d.Body)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case errors.Is(err, ErrInvalidTask):
		_ = d.Nack(false, false)
	case d.Redelivered:
		c.logger.Error("Email task failed after redelivery, dropping",
			zap.Uint64("delivery_tag", d.DeliveryTag), zap.Error(err))
		_ = d.Nack(false, false)
	default:
		c.logger.Warn("Email task failed, requeueing",
			zap.Uint64("delivery_tag", d.DeliveryTag), zap.Error(err))
		_ = d.Nack(false, true)
	}
}

// Stop сигнализирует воркерам о завершении. Повторный вызов безопасен.
func (c *EmailTaskConsumer) Stop() {
	c.stopOnce.Do(func() {
		c.logger.Info("Stopping consumer...")
		close(c.stopChannel)
	})
}
