package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

func LearnerHomeKey(learnerID int64) string {
	return fmt.Sprintf("learner:%d:home", learnerID)
}

func LearnerProfileKey(learnerID int64) string {
	return fmt.Sprintf("learner:%d:profile", learnerID)
}

func LearnerEnrollmentsKey(learnerID int64) string {
	return fmt.Sprintf("learner:%d:enrollments", learnerID)
}

// LearnerKeys lists every cached view that depends on a learner's entitlements.
func LearnerKeys(learnerID int64) []string {
	return []string{
		LearnerHomeKey(learnerID),
		LearnerProfileKey(learnerID),
		LearnerEnrollmentsKey(learnerID),
	}
}

// Remember returns the cached JSON value for key, or loads, stores and returns it.
// Cache errors are logged and never fail the caller.
func Remember[T any](ctx context.Context, c Cache, logger *slog.Logger, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	if raw, ok, err := c.Get(ctx, key); err != nil {
		logger.Warn("cache read failed", "key", key, "error", err)
	} else if ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		logger.Warn("cache entry undecodable, reloading", "key", key)
	}

	value, err := load()
	if err != nil {
		return value, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		logger.Warn("cache encode failed", "key", key, "error", err)
		return value, nil
	}
	if err := c.Set(ctx, key, raw, ttl); err != nil {
		logger.Warn("cache write failed", "key", key, "error", err)
	}
	return value, nil
}
