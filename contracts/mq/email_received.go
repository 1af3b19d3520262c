package mq

import (
	"time"

	"mailpilot/internal/model"
)

// EmailReceivedPayload is published by mail ingestion on "email.received".
type EmailReceivedPayload struct {
	EmailID          int               `json:"email_id"`
	UserID           int               `json:"user_id"`
	ThreadID         string            `json:"thread_id"`
	From             string            `json:"from"`
	To               string            `json:"to"`
	Subject          string            `json:"subject"`
	Body             string            `json:"body"`
	Date             *time.Time        `json:"date,omitempty"`
	IsThreadFollowUp bool              `json:"is_thread_follow_up"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	ReceivedAt       time.Time         `json:"received_at"`
	TraceID          string            `json:"trace_id,omitempty"`
}

// Email converts the payload into the rule engine's view of the email.
func (p EmailReceivedPayload) Email() model.Email {
	return model.Email{
		ID:               p.EmailID,
		UserID:           p.UserID,
		ThreadID:         p.ThreadID,
		From:             p.From,
		To:               p.To,
		Subject:          p.Subject,
		Body:             p.Body,
		Date:             p.Date,
		Metadata:         p.Metadata,
		IsThreadFollowUp: p.IsThreadFollowUp,
	}
}
