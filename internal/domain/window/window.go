package window

import (
	"time"

	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/apperror"
)

// DateLayout は予約日・運行日の文字列表現
const DateLayout = "2006-01-02"

const (
	// MaxAdvanceDays は作成時に許される最大の先行日数
	MaxAdvanceDays = 30
	// MinNoticeDays は変更・キャンセルに必要な最小の残り日数
	MinNoticeDays = 5
)

var (
	ErrWindowTooFar   = apperror.New(apperror.KindValidation, "WINDOW_TOO_FAR", "予約日は30日以内である必要があります")
	ErrWindowTooClose = apperror.New(apperror.KindValidation, "WINDOW_TOO_CLOSE", "変更・キャンセルは乗車日の5日前までです")
)

// Policy は予約受付期間のルール
type Policy struct {
	MaxAdvanceDays int
	MinNoticeDays  int
}

// DefaultPolicy は標準の受付期間ルールを返す
func DefaultPolicy() Policy {
	return Policy{MaxAdvanceDays: MaxAdvanceDays, MinNoticeDays: MinNoticeDays}
}

// ValidateCreation は予約作成時の受付期間を検証する
func (p Policy) ValidateCreation(reservationDate, today time.Time) error {
	if DaysBetween(today, reservationDate) > p.MaxAdvanceDays {
		return ErrWindowTooFar
	}
	return nil
}

// ValidateModification は予約変更・キャンセル時の受付期間を検証する
func (p Policy) ValidateModification(reservationDate, today time.Time) error {
	if DaysBetween(today, reservationDate) < p.MinNoticeDays {
		return ErrWindowTooClose
	}
	return nil
}

// Day は時刻を UTC の日付（0時0分）に丸める
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween は from から to までの暦日数を返す
func DaysBetween(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// ParseDate は "2006-01-02" 形式の日付を解析する
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}
