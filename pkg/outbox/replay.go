package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mailpilot/pkg/trace"
)

// ReplayStore is the part of Repository replays need.
type ReplayStore interface {
	GetEventByID(ctx context.Context, eventID int64) (*Event, error)
	GetFailedEvents(ctx context.Context, limit int) ([]*Event, error)
	MarkAsSent(ctx context.Context, eventID int64) error
	ResetEvent(ctx context.Context, eventID int64) error
}

// ReplayService republishes individual or failed outbox events on demand.
// An event whose replay fails goes back to pending with a fresh retry budget,
// so the dispatcher keeps trying it.
type ReplayService struct {
	repo      ReplayStore
	publisher EventPublisher
	logger    *zap.Logger
}

func NewReplayService(repo ReplayStore, publisher EventPublisher, logger *zap.Logger) *ReplayService {
	return &ReplayService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// ReplayEvent publishes eventID again regardless of its status.
func (s *ReplayService) ReplayEvent(ctx context.Context, eventID int64) error {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}

	ctx = trace.WithContext(ctx, event.TraceID)
	if err := s.publisher.PublishRaw(ctx, event.RoutingKey, event.Payload); err != nil {
		if resetErr := s.repo.ResetEvent(ctx, eventID); resetErr != nil {
			return fmt.Errorf("failed to publish and reset: %w (reset error: %v)", err, resetErr)
		}
		return fmt.Errorf("failed to publish: %w", err)
	}

	if err := s.repo.MarkAsSent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to mark as sent: %w", err)
	}

	s.logger.Info("Outbox event replayed",
		zap.Int64("event_id", eventID),
		zap.String("routing_key", event.RoutingKey),
		zap.String("trace_id", event.TraceID),
	)
	return nil
}

// ReplayFailedEvents replays up to limit failed events and returns how many succeeded.
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.repo.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get failed events: %w", err)
	}

	successCount := 0
	for _, event := range events {
		if err := s.ReplayEvent(ctx, event.ID); err != nil {
			s.logger.Warn("Replay failed", zap.Int64("event_id", event.ID), zap.Error(err))
			continue
		}
		successCount++
	}
	return successCount, nil
}
