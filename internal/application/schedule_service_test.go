package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
	redisinfra "github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/redis"
)

func TestScheduleService_RemainingSeats(t *testing.T) {
	ctx := context.Background()

	t.Run("キャッシュヒット時はリポジトリを参照しない", func(t *testing.T) {
		repo := new(MockScheduleRepository)
		cache := new(MockAvailabilityCache)
		cache.On("GetRemainingSeats", ctx, "EXP-1", unitTravel).Return(7, nil)

		svc := NewScheduleService(repo, cache)
		count, err := svc.RemainingSeats(ctx, "EXP-1", unitTravel)

		require.NoError(t, err)
		assert.Equal(t, 7, count)
		repo.AssertNotCalled(t, "FindByIDAndDate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("キャッシュミス時はリポジトリから取得してキャッシュする", func(t *testing.T) {
		repo := new(MockScheduleRepository)
		cache := new(MockAvailabilityCache)
		cache.On("GetRemainingSeats", ctx, "EXP-1", unitTravel).Return(0, redisinfra.ErrCacheMiss)
		repo.On("FindByIDAndDate", ctx, "EXP-1", unitTravel).Return(unitSchedule(4), nil)
		cache.On("SetRemainingSeats", ctx, "EXP-1", unitTravel, 4, remainingSeatsCacheTTL).Return(nil)

		svc := NewScheduleService(repo, cache)
		count, err := svc.RemainingSeats(ctx, "EXP-1", unitTravel)

		require.NoError(t, err)
		assert.Equal(t, 4, count)
		cache.AssertExpectations(t)
	})

	t.Run("キャッシュ障害時もリポジトリの値を返す", func(t *testing.T) {
		repo := new(MockScheduleRepository)
		cache := new(MockAvailabilityCache)
		cache.On("GetRemainingSeats", ctx, "EXP-1", unitTravel).Return(0, errors.New("connection refused"))
		repo.On("FindByIDAndDate", ctx, "EXP-1", unitTravel).Return(unitSchedule(3), nil)
		cache.On("SetRemainingSeats", ctx, "EXP-1", unitTravel, 3, remainingSeatsCacheTTL).Return(errors.New("connection refused"))

		svc := NewScheduleService(repo, cache)
		count, err := svc.RemainingSeats(ctx, "EXP-1", unitTravel)

		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("キャッシュなしでも動作する", func(t *testing.T) {
		repo := new(MockScheduleRepository)
		repo.On("FindByIDAndDate", ctx, "EXP-1", unitTravel).Return(unitSchedule(9), nil)

		svc := NewScheduleService(repo, nil)
		count, err := svc.RemainingSeats(ctx, "EXP-1", unitTravel)

		require.NoError(t, err)
		assert.Equal(t, 9, count)
	})

	t.Run("存在しないスケジュール", func(t *testing.T) {
		repo := new(MockScheduleRepository)
		repo.On("FindByIDAndDate", ctx, "NONE", unitTravel).Return(nil, schedule.ErrScheduleNotFound)

		svc := NewScheduleService(repo, nil)
		_, err := svc.RemainingSeats(ctx, "NONE", unitTravel)
		assert.ErrorIs(t, err, schedule.ErrScheduleNotFound)

		_, err = svc.GetSchedule(ctx, "NONE", unitTravel)
		assert.ErrorIs(t, err, schedule.ErrScheduleNotFound)
	})
}
