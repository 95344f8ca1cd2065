package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orderappu/recon-api/internal/usecase"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchangeName = "recon.events"
	queueName    = "recon.outcome.q"
)

// RabbitProducer implements usecase.OutcomePublisher. Every finished
// reconciliation run, success or failure, becomes one event; downstream
// consumers handle notification fan-out.
type RabbitProducer struct {
	ch *amqp.Channel
}

// NewRabbitProducer sets up the exchange, queue, and binding once at startup.
func NewRabbitProducer(ch *amqp.Channel) (*RabbitProducer, error) {
	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	// One binding catches both routing keys (completed/failed).
	if err := ch.QueueBind(q.Name, "recon.outcome.*", exchangeName, false, nil); err != nil {
		return nil, fmt.Errorf("queue bind: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		return nil, fmt.Errorf("enable confirm mode: %w", err)
	}

	return &RabbitProducer{ch: ch}, nil
}

// PublishOutcome routes on the outcome so consumers can subscribe to
// failures only.
func (p *RabbitProducer) PublishOutcome(ctx context.Context, msg usecase.ReconOutcomeMsg) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	key := "recon.outcome.completed"
	if !msg.Succeeded {
		key = "recon.outcome.failed"
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // survive broker restarts
		Body:         body,
	}

	if err := p.ch.PublishWithContext(ctx, exchangeName, key, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

var _ usecase.OutcomePublisher = (*RabbitProducer)(nil)
