package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
	redisinfra "github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/logger"
)

const (
	remainingSeatsCacheTTL = 30 * time.Second
)

// ScheduleService は運行スケジュールの参照と残席数の問い合わせを扱う
type ScheduleService struct {
	scheduleRepo schedule.Repository
	cache        AvailabilityCache
}

func NewScheduleService(sr schedule.Repository, cache AvailabilityCache) *ScheduleService {
	return &ScheduleService{scheduleRepo: sr, cache: cache}
}

func (s *ScheduleService) GetSchedule(ctx context.Context, id string, date time.Time) (*schedule.Schedule, error) {
	return s.scheduleRepo.FindByIDAndDate(ctx, id, date)
}

// RemainingSeats は残席数を返す。キャッシュがあればキャッシュを優先する
func (s *ScheduleService) RemainingSeats(ctx context.Context, id string, date time.Time) (int, error) {
	// キャッシュから取得を試みる
	if s.cache != nil {
		count, err := s.cache.GetRemainingSeats(ctx, id, date)
		if err == nil {
			logger.Debug("キャッシュヒット", zap.String("schedule_id", id), zap.Int("remaining_seats", count))
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	sch, err := s.scheduleRepo.FindByIDAndDate(ctx, id, date)
	if err != nil {
		return 0, err
	}

	// キャッシュに保存
	if s.cache != nil {
		if cacheErr := s.cache.SetRemainingSeats(ctx, id, sch.Date, sch.RemainingSeats, remainingSeatsCacheTTL); cacheErr != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return sch.RemainingSeats, nil
}
