package reservation

import (
	"context"
	"time"
)

// Filter は予約検索の条件
// ゼロ値のフィールドは条件に含めない
type Filter struct {
	TravelerID       string
	Statuses         []Status
	TravelDateBefore *time.Time
}

// Matches は予約が条件に一致するかを返す
func (f Filter) Matches(r *Reservation) bool {
	if f.TravelerID != "" && r.TravelerID != f.TravelerID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if r.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.TravelDateBefore != nil && !r.ReservationDate.Before(*f.TravelDateBefore) {
		return false
	}
	return true
}

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Insert は新しい予約を保存する
	Insert(ctx context.Context, r *Reservation) error

	// FindByID はIDから予約を取得する（存在しない場合は ErrReservationNotFound）
	FindByID(ctx context.Context, id string) (*Reservation, error)

	// Replace はバージョンが expectedVersion の場合のみ予約を置き換える
	// 成功時は r.Version を進め、競合時は ErrVersionConflict を返す
	Replace(ctx context.Context, r *Reservation, expectedVersion int) error

	// FindByFilter は条件に一致する予約を乗車日順に取得する
	FindByFilter(ctx context.Context, f Filter) ([]*Reservation, error)
}
