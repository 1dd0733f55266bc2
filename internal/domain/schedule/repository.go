package schedule

import (
	"context"
	"time"
)

// Repository は運行スケジュールリポジトリのインターフェース
type Repository interface {
	// Create は新しいスケジュールを登録する
	Create(ctx context.Context, s *Schedule) error

	// FindByIDAndDate はIDと運行日からスケジュールを取得する（存在しない場合は ErrScheduleNotFound）
	FindByIDAndDate(ctx context.Context, id string, date time.Time) (*Schedule, error)

	// CompareAndSetRemainingSeats は残席数が expected の場合のみ newValue に更新する
	// 他の書き込みが先行していた場合は false を返す
	CompareAndSetRemainingSeats(ctx context.Context, id string, date time.Time, expected, newValue int) (bool, error)
}
