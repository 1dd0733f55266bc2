package application

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/metrics"
)

const (
	DefaultInventoryMaxRetries = 5
	DefaultInventoryRetryDelay = 5 * time.Millisecond
)

// InventoryConfig は在庫更新の再試行設定
type InventoryConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// SeatInventoryCoordinator は運行日ごとの残席数を楽観的ロックで更新する
// 読み取り・容量確認・比較更新を1単位とし、競合時は上限回数まで再試行する
type SeatInventoryCoordinator struct {
	schedules  schedule.Repository
	cache      AvailabilityCache
	metrics    *metrics.Metrics
	maxRetries int
	retryDelay time.Duration
}

func NewSeatInventoryCoordinator(sr schedule.Repository, cfg InventoryConfig, cache AvailabilityCache, m *metrics.Metrics) *SeatInventoryCoordinator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultInventoryMaxRetries
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = DefaultInventoryRetryDelay
	}
	return &SeatInventoryCoordinator{
		schedules:  sr,
		cache:      cache,
		metrics:    m,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// ReserveSeats は残席から count 席を確保し、更新後の残席数を返す
// 残席が不足する場合は schedule.ErrInsufficientSeats、再試行を使い切った場合は schedule.ErrInventoryConflict
func (c *SeatInventoryCoordinator) ReserveSeats(ctx context.Context, scheduleID string, date time.Time, count int) (int, error) {
	if count <= 0 {
		return 0, fare.ErrInvalidSeatCount
	}
	return c.adjust(ctx, "reserve", scheduleID, date, -count)
}

// ReleaseSeats は count 席を残席に戻し、更新後の残席数を返す
// 座席数を超える解放は在庫計算の不具合であり panic する
func (c *SeatInventoryCoordinator) ReleaseSeats(ctx context.Context, scheduleID string, date time.Time, count int) (int, error) {
	if count <= 0 {
		return 0, fare.ErrInvalidSeatCount
	}
	return c.adjust(ctx, "release", scheduleID, date, count)
}

func (c *SeatInventoryCoordinator) adjust(ctx context.Context, operation, scheduleID string, date time.Time, delta int) (int, error) {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.ObserveInventoryRetry(operation)
			logger.Debug("在庫更新の競合を検出、再試行します",
				zap.String("operation", operation),
				zap.String("schedule_id", scheduleID),
				zap.String("date", date.Format(window.DateLayout)),
				zap.Int("attempt", attempt),
			)
			if err := c.backoff(ctx, attempt); err != nil {
				return 0, err
			}
		}

		s, err := c.schedules.FindByIDAndDate(ctx, scheduleID, date)
		if err != nil {
			return 0, fmt.Errorf("スケジュール取得に失敗: %w", err)
		}

		next := s.RemainingSeats + delta
		if next < 0 {
			return 0, schedule.ErrInsufficientSeats
		}
		s.MustBeWithinCapacity(next)

		ok, err := c.schedules.CompareAndSetRemainingSeats(ctx, scheduleID, s.Date, s.RemainingSeats, next)
		if err != nil {
			return 0, fmt.Errorf("残席数の更新に失敗: %w", err)
		}
		if ok {
			c.invalidate(ctx, scheduleID, s.Date)
			return next, nil
		}
	}

	logger.Warn("在庫更新の再試行上限に到達しました",
		zap.String("operation", operation),
		zap.String("schedule_id", scheduleID),
		zap.Int("max_retries", c.maxRetries),
	)
	return 0, schedule.ErrInventoryConflict
}

func (c *SeatInventoryCoordinator) backoff(ctx context.Context, attempt int) error {
	if c.retryDelay == 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(attempt) * c.retryDelay):
		return nil
	}
}

func (c *SeatInventoryCoordinator) invalidate(ctx context.Context, scheduleID string, date time.Time) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, scheduleID, date); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.String("schedule_id", scheduleID), zap.Error(err))
	}
}
