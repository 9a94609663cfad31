package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SAP-F-2025/evaluation-service/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type report struct {
	Department string `json:"department"`
	Submitted  int    `json:"submitted"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMemoryCache_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFixed(time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC))
	c := NewMemoryCache(clk)

	require.NoError(t, c.Set(ctx, "report:department:1", report{Department: "CS", Submitted: 3}, time.Minute))

	var got report
	require.NoError(t, c.Get(ctx, "report:department:1", &got))
	assert.Equal(t, report{Department: "CS", Submitted: 3}, got)

	clk.Advance(time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "report:department:1", &got), ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "forever", 7, 0))
	clk.Advance(24 * time.Hour)
	var n int
	require.NoError(t, c.Get(ctx, "forever", &n))
	assert.Equal(t, 7, n)
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(nil)

	for _, key := range []string{"report:department:1:START:2025", "report:hod:START:2025", "session:abc"} {
		require.NoError(t, c.Set(ctx, key, key, time.Hour))
	}

	require.NoError(t, c.DeletePattern(ctx, "report:*"))

	var v string
	assert.ErrorIs(t, c.Get(ctx, "report:department:1:START:2025", &v), ErrCacheMiss)
	assert.ErrorIs(t, c.Get(ctx, "report:hod:START:2025", &v), ErrCacheMiss)
	require.NoError(t, c.Get(ctx, "session:abc", &v))

	require.NoError(t, c.Delete(ctx, "session:abc"))
	assert.ErrorIs(t, c.Get(ctx, "session:abc", &v), ErrCacheMiss)
}

func TestGetOrSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(nil)
	calls := 0
	producer := func(ctx context.Context) (*report, error) {
		calls++
		return &report{Department: "Math", Submitted: calls}, nil
	}

	first, err := GetOrSet(ctx, c, discardLogger(), "report:x", time.Hour, producer)
	require.NoError(t, err)
	second, err := GetOrSet(ctx, c, discardLogger(), "report:x", time.Hour, producer)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)

	Invalidate(ctx, c, discardLogger(), "report:*")
	third, err := GetOrSet(ctx, c, discardLogger(), "report:x", time.Hour, producer)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Submitted)
}

func TestGetOrSet_ProducerErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(nil)
	boom := errors.New("database down")

	_, err := GetOrSet(ctx, c, discardLogger(), "report:y", time.Hour, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	var v int
	assert.ErrorIs(t, c.Get(ctx, "report:y", &v), ErrCacheMiss)
}
