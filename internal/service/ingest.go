package service

import (
	"context"
	"time"

	mqcontracts "mailpilot/contracts/mq"
	"mailpilot/internal/model"
	"mailpilot/pkg/mq"
	"mailpilot/pkg/trace"
)

type EmailSaver interface {
	Save(ctx context.Context, e model.Email) error
}

type EventPublisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// IngestService accepts emails from outside the broker, e.g. for testing
// rules, and publishes them as "email.received".
type IngestService struct {
	emails    EmailSaver
	publisher EventPublisher
	now       func() time.Time
}

func NewIngestService(emails EmailSaver, publisher EventPublisher) *IngestService {
	return &IngestService{emails: emails, publisher: publisher, now: time.Now}
}

// Ingest stores email and publishes it for processing.
func (s *IngestService) Ingest(ctx context.Context, email model.Email) error {
	if err := s.emails.Save(ctx, email); err != nil {
		return err
	}

	payload := mqcontracts.EmailReceivedPayload{
		EmailID:          email.ID,
		UserID:           email.UserID,
		ThreadID:         email.ThreadID,
		From:             email.From,
		To:               email.To,
		Subject:          email.Subject,
		Body:             email.Body,
		Date:             email.Date,
		IsThreadFollowUp: email.IsThreadFollowUp,
		Metadata:         email.Metadata,
		ReceivedAt:       s.now(),
		TraceID:          trace.FromContext(ctx),
	}
	return s.publisher.PublishWithContext(ctx, mq.RoutingEmailReceived, payload)
}
