package service

import (
	"context"

	"go.uber.org/zap"

	"mailpilot/internal/model"
	"mailpilot/internal/repository"
	"mailpilot/pkg/logger"
)

// DefaultHistoryLimit bounds how many earlier emails feed one summary.
const DefaultHistoryLimit = 10

type HistoryCache interface {
	Get(ctx context.Context, userID int, sender string) (string, error)
	Put(ctx context.Context, userID int, sender, summary string) error
}

type SenderHistorySource interface {
	ListFromSender(ctx context.Context, q repository.SenderHistoryQuery) ([]model.ThreadMessage, error)
}

type HistorySummarizer interface {
	Summarize(ctx context.Context, sender string, messages []model.ThreadMessage) (string, error)
}

// HistoryResolver serves the per-sender history summary from the cache and
// builds it from stored emails on a miss.
type HistoryResolver struct {
	cache      HistoryCache
	emails     SenderHistorySource
	summarizer HistorySummarizer
	limit      int
	logger     *zap.Logger
}

func NewHistoryResolver(cache HistoryCache, emails SenderHistorySource, summarizer HistorySummarizer, limit int, logger *zap.Logger) *HistoryResolver {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryResolver{
		cache:      cache,
		emails:     emails,
		summarizer: summarizer,
		limit:      limit,
		logger:     logger,
	}
}

// Summary returns "" when the user has no earlier emails from the sender.
// A failed cache write is logged and the fresh summary is still returned.
func (h *HistoryResolver) Summary(ctx context.Context, email model.Email) (string, error) {
	log := logger.WithTrace(ctx, h.logger).With(
		zap.Int("email_id", email.ID),
		zap.Int("user_id", email.UserID),
	)

	cached, err := h.cache.Get(ctx, email.UserID, email.From)
	if err != nil {
		log.Warn("History cache unavailable, rebuilding summary", zap.Error(err))
	} else if cached != "" {
		return cached, nil
	}

	messages, err := h.emails.ListFromSender(ctx, repository.SenderHistoryQuery{
		UserID:          email.UserID,
		Sender:          email.From,
		ExcludeEmailID:  email.ID,
		ExcludeThreadID: email.ThreadID,
		Limit:           h.limit,
	})
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		return "", nil
	}

	summary, err := h.summarizer.Summarize(ctx, email.From, messages)
	if err != nil {
		return "", err
	}

	if err := h.cache.Put(ctx, email.UserID, email.From, summary); err != nil {
		log.Warn("Failed to cache history summary", zap.Error(err))
	} else {
		log.Debug("History summary cached", zap.Int("message_count", len(messages)))
	}
	return summary, nil
}
