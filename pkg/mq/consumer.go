package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"mailpilot/pkg/metrics"
	"mailpilot/pkg/trace"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	routingKey string
	handler    MessageHandler
	conn       *amqp091.Connection
	dlq        *Publisher
	logger     *zap.Logger
}

// NewConsumer creates a consumer bound to routingKey on the events exchange.
func NewConsumer(url, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	closeAll := func() {
		ch.Close()
		conn.Close()
	}

	if err := DeclareExchange(ch); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := DeclareDLQExchange(ch); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare dlq exchange: %w", err)
	}
	if _, err := DeclareDLQQueue(ch, routingKey); err != nil {
		closeAll()
		return nil, err
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, ExchangeName, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		routingKey: routingKey,
		logger:     logger,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// SetDLQPublisher enables dead-lettering of permanent failures.
func (c *Consumer) SetDLQPublisher(p *Publisher) {
	c.dlq = p
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming consumes until ctx is done or the channel closes. It blocks.
// Every delivery is acked or nacked exactly once.
func (c *Consumer) StartConsuming(ctx context.Context) error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed for queue %s", c.queue.Name)
			}
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg amqp091.Delivery) {
	start := time.Now()
	if traceID, ok := msg.Headers[traceHeader].(string); ok {
		ctx = trace.WithContext(ctx, traceID)
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Handler panic recovered",
				zap.String("routing_key", c.routingKey),
				zap.String("queue", c.queue.Name),
				zap.Any("panic", r),
			)
			c.nack(msg)
		}
	}()

	err := c.handler(ctx, msg.Body)
	metrics.RecordMQConsumeLatency(c.routingKey, c.queue.Name, time.Since(start))

	switch {
	case err == nil:
		if ackErr := msg.Ack(false); ackErr != nil {
			c.logger.Error("Failed to ack message",
				zap.String("routing_key", c.routingKey),
				zap.Error(ackErr),
			)
		}
	case IsPermanent(err) && c.dlq != nil:
		c.logger.Error("Permanent handler error, dead-lettering",
			zap.String("routing_key", c.routingKey),
			zap.String("queue", c.queue.Name),
			zap.Error(err),
		)
		if dlqErr := c.dlq.PublishToDLQ(ctx, c.routingKey, msg.Body, err.Error()); dlqErr != nil {
			c.logger.Error("Failed to publish to DLQ", zap.Error(dlqErr))
			c.nack(msg)
			return
		}
		_ = msg.Ack(false)
	case IsPermanent(err):
		c.logger.Error("Permanent handler error, dropping",
			zap.String("routing_key", c.routingKey),
			zap.Error(err),
		)
		_ = msg.Nack(false, false)
	default:
		c.logger.Error("Handler error",
			zap.String("routing_key", c.routingKey),
			zap.String("queue", c.queue.Name),
			zap.Error(err),
		)
		c.nack(msg)
	}
}

func (c *Consumer) nack(msg amqp091.Delivery) {
	if err := msg.Nack(false, true); err != nil {
		c.logger.Error("Failed to nack message",
			zap.String("routing_key", c.routingKey),
			zap.Error(err),
		)
	}
}
