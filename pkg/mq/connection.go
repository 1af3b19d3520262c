package mq

import (
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "mailpilot.events"
)

// Routing keys used across services.
const (
	RoutingEmailReceived  = "email.received"
	RoutingActionExecute  = "action.execute"
	RoutingApprovalQueued = "approval.queued"
	RoutingDraftCreated   = "draft.created"
)

// NewConnection dials RabbitMQ with a 10s heartbeat.
func NewConnection(url string) (*amqp091.Connection, error) {
	conn, err := amqp091.DialConfig(url, amqp091.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// DeclareExchange declares the durable topic exchange for domain events.
func DeclareExchange(ch *amqp091.Channel) error {
	return ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
