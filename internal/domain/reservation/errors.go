package reservation

import "github.com/sanosuguru/go-train-seat-reservation/internal/pkg/apperror"

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound = apperror.New(apperror.KindNotFound, "RESERVATION_NOT_FOUND", "予約が見つかりません")

	ErrReservationNotPending       = apperror.New(apperror.KindState, "RESERVATION_NOT_PENDING", "予約は保留中ではありません")
	ErrReservationAlreadyConfirmed = apperror.New(apperror.KindState, "ALREADY_CONFIRMED", "予約は既に確定されています")
	ErrReservationAlreadyCancelled = apperror.New(apperror.KindState, "ALREADY_CANCELLED", "予約は既にキャンセルされています")
	ErrReservationAlreadyCompleted = apperror.New(apperror.KindState, "ALREADY_COMPLETED", "予約は既に完了しています")
	ErrInvalidTransition           = apperror.New(apperror.KindState, "INVALID_STATUS_TRANSITION", "現在の状態ではこの操作はできません")

	ErrActiveLimitExceeded = apperror.New(apperror.KindLimitExceeded, "ACTIVE_RESERVATION_LIMIT", "有効な予約は1人4件までです")
	ErrVersionConflict     = apperror.New(apperror.KindConflict, "RESERVATION_VERSION_CONFLICT", "予約が他の操作によって更新されました")

	ErrTravelerIDRequired = apperror.New(apperror.KindValidation, "TRAVELER_ID_REQUIRED", "旅行者IDは必須です")
	ErrScheduleIDRequired = apperror.New(apperror.KindValidation, "SCHEDULE_ID_REQUIRED", "スケジュールIDは必須です")
	ErrStationRequired    = apperror.New(apperror.KindValidation, "STATION_REQUIRED", "出発駅と到着駅は必須です")
)
