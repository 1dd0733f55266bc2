package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

// ScheduleCache は運行日ごとの残席数のキャッシュを管理する
type ScheduleCache struct {
	client *redis.Client
}

// NewScheduleCache は新しいScheduleCacheインスタンスを作成する
func NewScheduleCache(client *redis.Client) *ScheduleCache {
	return &ScheduleCache{client: client}
}

// GetRemainingSeats は残席数をキャッシュから取得する
func (c *ScheduleCache) GetRemainingSeats(ctx context.Context, scheduleID string, date time.Time) (int, error) {
	val, err := c.client.Get(ctx, remainingSeatsKey(scheduleID, date)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	return val, nil
}

// SetRemainingSeats は残席数をキャッシュに保存する
func (c *ScheduleCache) SetRemainingSeats(ctx context.Context, scheduleID string, date time.Time, remaining int, ttl time.Duration) error {
	if err := c.client.Set(ctx, remainingSeatsKey(scheduleID, date), remaining, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate は残席数のキャッシュを無効化する
func (c *ScheduleCache) Invalidate(ctx context.Context, scheduleID string, date time.Time) error {
	if err := c.client.Del(ctx, remainingSeatsKey(scheduleID, date)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func remainingSeatsKey(scheduleID string, date time.Time) string {
	return fmt.Sprintf("schedules:remaining:%s:%s", scheduleID, window.Day(date).Format(window.DateLayout))
}
