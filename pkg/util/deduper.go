package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb redis.Cmdable, ttl time.Duration) *Deduper {
	return NewDeduperWithLogger(rdb, ttl, zap.NewNop())
}

// NewDeduperWithLogger creates a deduper with logger support
func NewDeduperWithLogger(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// FormatDedupKey builds the key guarding handler for the given subject.
func FormatDedupKey(handler, subject string) string {
	return fmt.Sprintf("dedup:%s:%s", handler, subject)
}

// AcquireOnce returns true the first time it is called for (handler, subject)
// within the TTL and false for duplicates. When Redis is unavailable it allows
// processing and logs a warning.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, subject string) bool {
	key := FormatDedupKey(handler, subject)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		d.logger.Warn("Redis dedup check failed, allowing processing",
			zap.String("handler", handler),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return true
	}

	if !ok {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("dedup_key", key),
		)
	}
	return ok
}

// Release drops the dedup key so the subject can be processed again.
func (d *Deduper) Release(ctx context.Context, handler, subject string) {
	if err := d.rdb.Del(ctx, FormatDedupKey(handler, subject)).Err(); err != nil {
		d.logger.Warn("Failed to release dedup key",
			zap.String("handler", handler),
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}
