package schedule

import (
	"errors"

	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/apperror"
)

// Schedule ドメインのエラー定義
var (
	ErrScheduleNotFound  = apperror.New(apperror.KindNotFound, "SCHEDULE_NOT_FOUND", "運行スケジュールが見つかりません")
	ErrInsufficientSeats = apperror.New(apperror.KindCapacity, "INSUFFICIENT_SEATS", "空席が不足しています")
	ErrInventoryConflict = apperror.New(apperror.KindConflict, "INVENTORY_CONFLICT", "座席在庫の更新が競合しました")

	ErrScheduleIDRequired = errors.New("スケジュールIDは必須です")
	ErrInvalidCapacity    = errors.New("座席数は1以上である必要があります")
	ErrStationsRequired   = errors.New("停車駅は2駅以上必要です")
	ErrDuplicateStation   = errors.New("停車駅が重複しています")
	ErrInvalidRemaining   = errors.New("残席数は0以上かつ座席数以下である必要があります")
)
