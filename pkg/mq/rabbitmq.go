package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/opencampus/course-portal-api/pkg/config"
)

// Queue is the minimal publish/consume contract used by the notification
// dispatcher. Delivery is at-least-once; consumers must tolerate redelivery.
type Queue interface {
	Publish(ctx context.Context, message interface{}) error
	Consume(ctx context.Context, handler func(ctx context.Context, body []byte) error) error
	Close() error
}

// RabbitMQ implements Queue on top of a durable AMQP queue.
type RabbitMQ struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    amqp.Queue
	prefetch int
	logger   *zap.Logger
}

// NewRabbitMQ dials the broker and declares the queue.
func NewRabbitMQ(cfg config.RabbitMQConfig, logger *zap.Logger) (*RabbitMQ, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	queue, err := channel.QueueDeclare(
		cfg.QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", cfg.QueueName, err)
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &RabbitMQ{conn: conn, channel: channel, queue: queue, prefetch: prefetch, logger: logger}, nil
}

// Publish serializes the message as JSON and enqueues it persistently.
func (r *RabbitMQ) Publish(ctx context.Context, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		"",           // default exchange
		r.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	return nil
}

// Consume runs the handler for each delivery until ctx is cancelled.
// Failed deliveries are nacked with requeue; successes are acked.
func (r *RabbitMQ) Consume(ctx context.Context, handler func(ctx context.Context, body []byte) error) error {
	if err := r.channel.Qos(r.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := r.channel.Consume(
		r.queue.Name,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", r.queue.Name, err)
	}

	go r.handleDeliveries(ctx, deliveries, handler)
	return nil
}

func (r *RabbitMQ) handleDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery, handler func(ctx context.Context, body []byte) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				return
			}
			if err := handler(ctx, delivery.Body); err != nil {
				r.logger.Sugar().Warnw("message handling failed, requeueing", "queue", r.queue.Name, "error", err)
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close tears down the channel and connection.
func (r *RabbitMQ) Close() error {
	var firstErr error
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			firstErr = err
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// HealthCheck verifies the broker connection is still usable.
func (r *RabbitMQ) HealthCheck() error {
	if r.conn == nil || r.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection is closed")
	}
	probe, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq health check: %w", err)
	}
	return probe.Close()
}
