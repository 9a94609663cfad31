package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// GetOrSet returns the cached value for key, or calls producer and caches its
// result for ttl. Cache failures degrade to calling the producer.
func GetOrSet[T any](ctx context.Context, c CacheService, logger *slog.Logger, key string, ttl time.Duration, producer func(ctx context.Context) (T, error)) (T, error) {
	var cached T
	err := c.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		logger.Warn("Cache read failed", "key", key, "error", err)
	}

	value, err := producer(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := c.Set(ctx, key, value, ttl); err != nil {
		logger.Warn("Cache write failed", "key", key, "error", err)
	}
	return value, nil
}

// Invalidate drops every key matching pattern, logging rather than failing.
func Invalidate(ctx context.Context, c CacheService, logger *slog.Logger, pattern string) {
	if err := c.DeletePattern(ctx, pattern); err != nil {
		logger.Warn("Cache invalidation failed", "pattern", pattern, "error", err)
	}
}
