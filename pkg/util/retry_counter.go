package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RetryCounter counts delivery attempts per message in redis. Counters expire
// after ttl so abandoned messages do not leak keys.
type RetryCounter struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRetryCounter(rdb redis.Cmdable, ttl time.Duration) *RetryCounter {
	return &RetryCounter{rdb: rdb, ttl: ttl}
}

// IncrementAndGet increments the retry count for key and returns the new count.
func (r *RetryCounter) IncrementAndGet(ctx context.Context, key string) (int64, error) {
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	if count == 1 {
		if err := r.rdb.Expire(ctx, key, r.ttl).Err(); err != nil {
			return count, err
		}
	}

	return count, nil
}

// Reset clears the retry count.
func (r *RetryCounter) Reset(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

// FormatRetryKey formats the retry key for handler and emailID.
func FormatRetryKey(handler string, emailID int) string {
	return fmt.Sprintf("retry:%s:%d", handler, emailID)
}
