package application

import (
	"context"
	"time"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/apperror"
)

// AvailabilityCache は運行日ごとの残席数キャッシュ
// キャッシュに存在しない場合 GetRemainingSeats は redis.ErrCacheMiss を返す
type AvailabilityCache interface {
	GetRemainingSeats(ctx context.Context, scheduleID string, date time.Time) (int, error)
	SetRemainingSeats(ctx context.Context, scheduleID string, date time.Time, remaining int, ttl time.Duration) error
	Invalidate(ctx context.Context, scheduleID string, date time.Time) error
}

// TravelerLocker は旅行者単位の排他ロックを提供する
// 返される関数でロックを解放する
type TravelerLocker interface {
	LockTraveler(ctx context.Context, travelerID string) (func(context.Context) error, error)
}

// EventPublisher はコミット済みの予約イベントを配信する
type EventPublisher interface {
	Publish(ctx context.Context, event reservation.Event) error
}

// ErrTravelerBusy は同じ旅行者の別の予約処理が進行中の場合のエラー
var ErrTravelerBusy = apperror.New(apperror.KindConflict, "TRAVELER_BUSY", "同じ旅行者の予約処理が進行中です")
