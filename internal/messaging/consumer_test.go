package messaging_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"simulation-server/internal/messaging"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

// fakeAcknowledger запоминает, как было завершено каждое сообщение.
type fakeAcknowledger struct {
	mu       sync.Mutex
	acked    []uint64
	requeued []uint64
	dropped  []uint64
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if requeue {
		a.requeued = append(a.requeued, tag)
	} else {
		a.dropped = append(a.dropped, tag)
	}
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type processorFunc func(ctx context.Context, body []byte) error

func (f processorFunc) Process(ctx context.Context, body []byte) error { return f(ctx, body) }

func TestEmailTaskConsumer_Serve(t *testing.T) {
	defer goleak.VerifyNone(t)

	ack := &fakeAcknowledger{}
	processor := processorFunc(func(ctx context.Context, body []byte) error {
		switch string(body) {
		case "ok":
			return nil
		case "invalid":
			return messaging.ErrInvalidTask
		default:
			return errors.New("transient")
		}
	})
	consumer := messaging.NewEmailTaskConsumer(nil, processor, "email_tasks", 4, zap.NewNop())

	msgs := make(chan amqp.Delivery, 8)
	deliveries := []amqp.Delivery{
		{Acknowledger: ack, DeliveryTag: 1, Body: []byte("ok")},
		{Acknowledger: ack, DeliveryTag: 2, Body: []byte("invalid")},
		{Acknowledger: ack, DeliveryTag: 3, Body: []byte("fail")},
		{Acknowledger: ack, DeliveryTag: 4, Body: []byte("fail"), Redelivered: true},
		{Acknowledger: ack, DeliveryTag: 5, Body: []byte("ok")},
	}
	for _, d := range deliveries {
		msgs <- d
	}
	close(msgs)

	consumer.Serve(msgs)

	assert.ElementsMatch(t, []uint64{1, 5}, ack.acked)
	assert.ElementsMatch(t, []uint64{3}, ack.requeued)
	assert.ElementsMatch(t, []uint64{2, 4}, ack.dropped)
}

func TestEmailTaskConsumer_Stop(t *testing.T) {
	defer goleak.VerifyNone(t)

	consumer := messaging.NewEmailTaskConsumer(nil, processorFunc(func(context.Context, []byte) error { return nil }), "email_tasks", 3, zap.NewNop())
	msgs := make(chan amqp.Delivery) // никогда не закрывается

	done := make(chan struct{})
	go func() {
		consumer.Serve(msgs)
		close(done)
	}()

	consumer.Stop()
	consumer.Stop() // повторный вызов безопасен
	<-done
}
