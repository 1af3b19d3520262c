package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// HistoryStore caches per-sender email history summaries in Redis.
type HistoryStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewHistoryStore(rdb redis.Cmdable, ttl time.Duration) *HistoryStore {
	return &HistoryStore{rdb: rdb, ttl: ttl}
}

// FormatHistoryKey builds the cache key for a user's history with sender.
func FormatHistoryKey(userID int, sender string) string {
	return fmt.Sprintf("history:%d:%s", userID, strings.ToLower(strings.TrimSpace(sender)))
}

// Get returns the cached summary, or "" when none is cached.
func (s *HistoryStore) Get(ctx context.Context, userID int, sender string) (string, error) {
	summary, err := s.rdb.Get(ctx, FormatHistoryKey(userID, sender)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", wrap("get history summary", err)
	}
	return summary, nil
}

// Put caches summary for the store's TTL.
func (s *HistoryStore) Put(ctx context.Context, userID int, sender, summary string) error {
	err := s.rdb.Set(ctx, FormatHistoryKey(userID, sender), summary, s.ttl).Err()
	return wrap("put history summary", err)
}
