package mqhandler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	mqcontracts "mailpilot/contracts/mq"
	"mailpilot/internal/model"
	"mailpilot/internal/service"
	"mailpilot/pkg/logger"
	"mailpilot/pkg/mq"
	"mailpilot/pkg/trace"
	"mailpilot/pkg/util"
)

const retryHandlerName = "email_received"

type EmailProcessor interface {
	Process(ctx context.Context, email model.Email) (service.ProcessOutcome, error)
}

type EmailStore interface {
	Save(ctx context.Context, e model.Email) error
}

type RetryTracker interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// EmailReceivedHandler consumes "email.received": it stores the email for
// thread history and runs it through the rule engine.
type EmailReceivedHandler struct {
	emails     EmailStore
	processor  EmailProcessor
	retries    RetryTracker
	maxRetries int64
	logger     *zap.Logger
}

func NewEmailReceivedHandler(emails EmailStore, processor EmailProcessor, retries RetryTracker, maxRetries int64, logger *zap.Logger) *EmailReceivedHandler {
	return &EmailReceivedHandler{
		emails:     emails,
		processor:  processor,
		retries:    retries,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Handle returns nil to ack, a permanent error to dead-letter, and any other
// error to requeue.
func (h *EmailReceivedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.EmailReceivedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal email received payload", zap.Error(err))
		return mq.Permanent(err)
	}
	if p.EmailID <= 0 || p.UserID <= 0 {
		h.logger.Error("Invalid email received payload",
			zap.Int("email_id", p.EmailID),
			zap.Int("user_id", p.UserID),
		)
		return mq.Permanent(errors.New("email_id and user_id are required"))
	}

	if trace.FromContext(ctx) == "" {
		ctx = trace.WithContext(ctx, p.TraceID)
	}
	ctx, _ = trace.Ensure(ctx)
	log := logger.WithTrace(ctx, h.logger).With(
		zap.Int("email_id", p.EmailID),
		zap.Int("user_id", p.UserID),
	)

	email := p.Email()
	retryKey := util.FormatRetryKey(retryHandlerName, p.EmailID)

	if err := h.emails.Save(ctx, email); err != nil {
		return h.handleError(ctx, log, "save email", retryKey, err)
	}

	out, err := h.processor.Process(ctx, email)
	if err != nil {
		return h.handleError(ctx, log, "process email", retryKey, err)
	}

	if h.retries != nil {
		if err := h.retries.Reset(ctx, retryKey); err != nil {
			log.Warn("Failed to reset retry count", zap.Error(err))
		}
	}

	fields := []zap.Field{zap.Bool("matched", out.Rule != nil), zap.Int("warnings", len(out.Warnings))}
	if out.Rule != nil {
		fields = append(fields,
			zap.String("rule_id", out.Rule.ID),
			zap.String("decision", string(out.Decision)),
			zap.Bool("duplicate", out.Duplicate),
		)
	}
	log.Info("Email received handled", fields...)
	return nil
}

func (h *EmailReceivedHandler) handleError(ctx context.Context, log *zap.Logger, op, retryKey string, err error) error {
	// Shutting down: leave the message for the next consumer.
	if ctx.Err() != nil {
		return err
	}

	retryable, errorType := util.IsRetryableError(err)
	var count int64
	if retryable && h.retries != nil {
		var incErr error
		count, incErr = h.retries.IncrementAndGet(ctx, retryKey)
		if incErr != nil {
			log.Warn("Failed to increment retry count", zap.Error(incErr))
		}
	}

	if util.ShouldRetry(count, h.maxRetries, retryable) {
		log.Warn("Retryable failure, requeueing",
			zap.String("op", op),
			zap.String("error_type", errorType),
			zap.Int64("retry", count),
			zap.Error(err),
		)
		return err
	}

	log.Error("Giving up on email",
		zap.String("op", op),
		zap.String("error_type", errorType),
		zap.Int64("retry", count),
		zap.Error(err),
	)
	if h.retries != nil {
		_ = h.retries.Reset(ctx, retryKey)
	}
	return mq.Permanent(err)
}
