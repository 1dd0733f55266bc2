package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleCache_RemainingSeats(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewScheduleCache(client)
	ctx := context.Background()
	date := time.Date(2026, 11, 10, 0, 0, 0, 0, time.UTC)
	scheduleID := "test-schedule-123"
	t.Cleanup(func() { _ = cache.Invalidate(ctx, scheduleID, date) })

	t.Run("キャッシュミス時はErrCacheMissを返す", func(t *testing.T) {
		_, err := cache.GetRemainingSeats(ctx, scheduleID, date)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("キャッシュにセットした値を取得できる", func(t *testing.T) {
		require.NoError(t, cache.SetRemainingSeats(ctx, scheduleID, date, 42, 30*time.Second))

		count, err := cache.GetRemainingSeats(ctx, scheduleID, date.Add(9*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 42, count)
	})

	t.Run("運行日が異なればキャッシュは別", func(t *testing.T) {
		_, err := cache.GetRemainingSeats(ctx, scheduleID, date.AddDate(0, 0, 1))
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("キャッシュを無効化できる", func(t *testing.T) {
		require.NoError(t, cache.SetRemainingSeats(ctx, scheduleID, date, 10, 30*time.Second))
		require.NoError(t, cache.Invalidate(ctx, scheduleID, date))

		_, err := cache.GetRemainingSeats(ctx, scheduleID, date)
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}

func TestScheduleCache_TTL(t *testing.T) {
	client := setupTestRedis(t)
	cache := NewScheduleCache(client)
	ctx := context.Background()
	date := time.Date(2026, 11, 11, 0, 0, 0, 0, time.UTC)

	require.NoError(t, cache.SetRemainingSeats(ctx, "test-schedule-ttl", date, 100, 100*time.Millisecond))

	count, err := cache.GetRemainingSeats(ctx, "test-schedule-ttl", date)
	require.NoError(t, err)
	assert.Equal(t, 100, count)

	time.Sleep(150 * time.Millisecond)
	_, err = cache.GetRemainingSeats(ctx, "test-schedule-ttl", date)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
