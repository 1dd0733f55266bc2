package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
	redisinfra "github.com/sanosuguru/go-train-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/apperror"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/metrics"
)

const defaultRepositoryTimeout = 5 * time.Second

// ReservationConfig は予約ライフサイクルの業務ルール設定
type ReservationConfig struct {
	Policy               window.Policy
	MaxActivePerTraveler int
	RepositoryTimeout    time.Duration
}

// DefaultReservationConfig は標準の業務ルールを返す
func DefaultReservationConfig() ReservationConfig {
	return ReservationConfig{
		Policy:               window.DefaultPolicy(),
		MaxActivePerTraveler: reservation.MaxActivePerTraveler,
		RepositoryTimeout:    defaultRepositoryTimeout,
	}
}

// ReservationOption は ReservationService の任意の依存を設定する
type ReservationOption func(*ReservationService)

// WithTravelerLocker は作成時に旅行者単位のロックを使用する
func WithTravelerLocker(l TravelerLocker) ReservationOption {
	return func(s *ReservationService) { s.locker = l }
}

// WithEventPublisher はコミット後のイベント配信先を設定する
func WithEventPublisher(p EventPublisher) ReservationOption {
	return func(s *ReservationService) { s.publisher = p }
}

// WithMetrics は予約操作のメトリクスを記録する
func WithMetrics(m *metrics.Metrics) ReservationOption {
	return func(s *ReservationService) { s.metrics = m }
}

// WithClock は現在時刻の取得方法を差し替える
func WithClock(now func() time.Time) ReservationOption {
	return func(s *ReservationService) { s.now = now }
}

// ReservationService は予約の作成・変更・取消・確定・完了を調整する
// 在庫は SeatInventoryCoordinator、予約レコードはバージョン付きの置換で更新し
// 失敗した操作は補償によって書き込みを残さない
type ReservationService struct {
	reservationRepo reservation.Repository
	scheduleRepo    schedule.Repository
	inventory       *SeatInventoryCoordinator
	cfg             ReservationConfig
	locker          TravelerLocker
	publisher       EventPublisher
	metrics         *metrics.Metrics
	now             func() time.Time
}

func NewReservationService(rr reservation.Repository, sr schedule.Repository, inv *SeatInventoryCoordinator, cfg ReservationConfig, opts ...ReservationOption) *ReservationService {
	if cfg.MaxActivePerTraveler <= 0 {
		cfg.MaxActivePerTraveler = reservation.MaxActivePerTraveler
	}
	if cfg.RepositoryTimeout <= 0 {
		cfg.RepositoryTimeout = defaultRepositoryTimeout
	}
	s := &ReservationService{
		reservationRepo: rr,
		scheduleRepo:    sr,
		inventory:       inv,
		cfg:             cfg,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateReservationInput struct {
	TravelerID      string
	ScheduleID      string
	ReservationDate time.Time
	StartStation    string
	Destination     string
	Class           fare.Class
	SeatCount       int
}

// CreateReservation は座席を確保して確定済みの予約を作成する
func (s *ReservationService) CreateReservation(ctx context.Context, input CreateReservationInput) (res *reservation.Reservation, err error) {
	defer func() { s.observe("create", err) }()

	if input.TravelerID == "" {
		return nil, reservation.ErrTravelerIDRequired
	}
	if input.ScheduleID == "" {
		return nil, reservation.ErrScheduleIDRequired
	}

	now := s.now()
	if err := s.cfg.Policy.ValidateCreation(input.ReservationDate, now); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RepositoryTimeout)
	defer cancel()

	sch, err := s.scheduleRepo.FindByIDAndDate(ctx, input.ScheduleID, input.ReservationDate)
	if err != nil {
		return nil, fmt.Errorf("スケジュール取得に失敗: %w", err)
	}

	quote, err := fare.Calculate(input.Class, sch.Stations, input.StartStation, input.Destination, input.SeatCount)
	if err != nil {
		return nil, err
	}

	// 同一旅行者の同時作成で上限を超えないようにロックする
	if s.locker != nil {
		release, err := s.locker.LockTraveler(ctx, input.TravelerID)
		if err != nil {
			if errors.Is(err, redisinfra.ErrLockNotAcquired) {
				return nil, ErrTravelerBusy
			}
			return nil, fmt.Errorf("ロック取得に失敗: %w", err)
		}
		defer func() {
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
				logger.Warn("ロック解放エラー", zap.String("traveler_id", input.TravelerID), zap.Error(relErr))
			}
		}()
	}

	active, err := s.reservationRepo.FindByFilter(ctx, reservation.Filter{
		TravelerID: input.TravelerID,
		Statuses:   reservation.ActiveStatuses(),
	})
	if err != nil {
		return nil, fmt.Errorf("有効な予約の取得に失敗: %w", err)
	}
	if len(active) >= s.cfg.MaxActivePerTraveler {
		return nil, reservation.ErrActiveLimitExceeded
	}

	res = reservation.NewReservation(uuid.NewString(), input.TravelerID, reservation.Itinerary{
		ScheduleID:      sch.ID,
		TrainName:       sch.TrainName,
		DepartureTime:   sch.DepartureTime,
		ReservationDate: sch.Date,
		StartStation:    input.StartStation,
		Destination:     input.Destination,
		Class:           quote.Class,
	}, quote.SeatCount, quote.Price, now)
	if err := res.Validate(); err != nil {
		return nil, err
	}

	remaining, err := s.inventory.ReserveSeats(ctx, sch.ID, sch.Date, res.SeatCount)
	if err != nil {
		return nil, err
	}

	if err := s.reservationRepo.Insert(ctx, res); err != nil {
		s.compensateRelease(ctx, res.ScheduleID, res.ReservationDate, res.SeatCount, "create")
		return nil, fmt.Errorf("予約の保存に失敗: %w", err)
	}

	logger.Info("予約を作成しました",
		zap.String("reservation_id", res.ID),
		zap.String("traveler_id", res.TravelerID),
		zap.String("schedule_id", res.ScheduleID),
		zap.Int("seat_count", res.SeatCount),
		zap.Int("price", res.Price),
		zap.Int("remaining_seats", remaining),
	)
	s.publish(ctx, reservation.EventCreated, res, now)
	return res, nil
}

// UpdateReservationInput は変更内容を表す（nil のフィールドは変更しない）
type UpdateReservationInput struct {
	ReservationDate *time.Time
	SeatCount       *int
}

// UpdateReservation は保留中の予約の乗車日・座席数を変更する
// 運賃は元の1席あたりの運賃を維持して座席数に比例させる
func (s *ReservationService) UpdateReservation(ctx context.Context, id string, input UpdateReservationInput) (res *reservation.Reservation, err error) {
	defer func() { s.observe("update", err) }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RepositoryTimeout)
	defer cancel()

	res, err = s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.IsPending() {
		return nil, reservation.ErrReservationNotPending
	}

	newDate := res.ReservationDate
	if input.ReservationDate != nil {
		newDate = window.Day(*input.ReservationDate)
	}
	newSeatCount := res.SeatCount
	if input.SeatCount != nil {
		newSeatCount = *input.SeatCount
	}

	now := s.now()
	if err := s.cfg.Policy.ValidateModification(newDate, now); err != nil {
		return nil, err
	}
	newPrice, err := fare.Reprice(res.Price, res.SeatCount, newSeatCount)
	if err != nil {
		return nil, err
	}

	original := res.Clone()
	dateChanged := !newDate.Equal(original.ReservationDate)
	if dateChanged {
		if _, err := s.scheduleRepo.FindByIDAndDate(ctx, original.ScheduleID, newDate); err != nil {
			return nil, fmt.Errorf("スケジュール取得に失敗: %w", err)
		}
	}

	if err := res.Amend(newDate, newSeatCount, newPrice, now); err != nil {
		return nil, err
	}

	// 増加分は置換前に確保し、減少分は置換のコミット後に解放する
	var reserved int
	switch {
	case dateChanged:
		reserved = newSeatCount
	case newSeatCount > original.SeatCount:
		reserved = newSeatCount - original.SeatCount
	}
	if reserved > 0 {
		if _, err := s.inventory.ReserveSeats(ctx, original.ScheduleID, newDate, reserved); err != nil {
			return nil, err
		}
	}

	if err := s.reservationRepo.Replace(ctx, res, original.Version); err != nil {
		if reserved > 0 {
			s.compensateRelease(ctx, original.ScheduleID, newDate, reserved, "update")
		}
		return nil, s.replaceError(err)
	}

	var released int
	switch {
	case dateChanged:
		released = original.SeatCount
	case newSeatCount < original.SeatCount:
		released = original.SeatCount - newSeatCount
	}
	if released > 0 {
		s.releaseAfterCommit(ctx, original.ScheduleID, original.ReservationDate, released, res.ID, "update")
	}

	logger.Info("予約を変更しました",
		zap.String("reservation_id", res.ID),
		zap.String("reservation_date", res.ReservationDate.Format(window.DateLayout)),
		zap.Int("seat_count", res.SeatCount),
		zap.Int("price", res.Price),
	)
	s.publish(ctx, reservation.EventUpdated, res, now)
	return res, nil
}

// CancelReservation は予約を取り消して座席を解放する
func (s *ReservationService) CancelReservation(ctx context.Context, id string) (res *reservation.Reservation, err error) {
	defer func() { s.observe("cancel", err) }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RepositoryTimeout)
	defer cancel()

	res, err = s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Status == reservation.StatusCancelled {
		return nil, reservation.ErrReservationAlreadyCancelled
	}
	if res.Status == reservation.StatusCompleted {
		return nil, reservation.ErrReservationAlreadyCompleted
	}

	now := s.now()
	if err := s.cfg.Policy.ValidateModification(res.ReservationDate, now); err != nil {
		return nil, err
	}

	expected := res.Version
	if err := res.Cancel(now); err != nil {
		return nil, err
	}
	if err := s.reservationRepo.Replace(ctx, res, expected); err != nil {
		return nil, s.replaceError(err)
	}
	s.releaseAfterCommit(ctx, res.ScheduleID, res.ReservationDate, res.SeatCount, res.ID, "cancel")

	logger.Info("予約をキャンセルしました", zap.String("reservation_id", res.ID), zap.Int("seat_count", res.SeatCount))
	s.publish(ctx, reservation.EventCancelled, res, now)
	return res, nil
}

// ConfirmReservation は保留中の予約を確定する（在庫は変更しない）
func (s *ReservationService) ConfirmReservation(ctx context.Context, id string) (res *reservation.Reservation, err error) {
	defer func() { s.observe("confirm", err) }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RepositoryTimeout)
	defer cancel()

	res, err = s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	expected := res.Version
	if err := res.Confirm(now); err != nil {
		return nil, err
	}
	if err := s.reservationRepo.Replace(ctx, res, expected); err != nil {
		return nil, s.replaceError(err)
	}

	logger.Info("予約を確定しました", zap.String("reservation_id", res.ID))
	s.publish(ctx, reservation.EventConfirmed, res, now)
	return res, nil
}

// CompleteReservation は乗車済みの予約を完了にして座席を解放する
func (s *ReservationService) CompleteReservation(ctx context.Context, id string) (res *reservation.Reservation, err error) {
	defer func() { s.observe("complete", err) }()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RepositoryTimeout)
	defer cancel()

	res, err = s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.complete(ctx, res)
}

func (s *ReservationService) complete(ctx context.Context, res *reservation.Reservation) (*reservation.Reservation, error) {
	now := s.now()
	expected := res.Version
	if err := res.Complete(now); err != nil {
		return nil, err
	}
	if err := s.reservationRepo.Replace(ctx, res, expected); err != nil {
		return nil, s.replaceError(err)
	}
	s.releaseAfterCommit(ctx, res.ScheduleID, res.ReservationDate, res.SeatCount, res.ID, "complete")

	logger.Info("予約を完了しました", zap.String("reservation_id", res.ID))
	s.publish(ctx, reservation.EventCompleted, res, now)
	return res, nil
}

// CompleteDepartedReservations は乗車日を過ぎた確定済み予約を完了にし、完了件数を返す
func (s *ReservationService) CompleteDepartedReservations(ctx context.Context) (int, error) {
	today := window.Day(s.now())

	listCtx, cancel := context.WithTimeout(ctx, s.cfg.RepositoryTimeout)
	departed, err := s.reservationRepo.FindByFilter(listCtx, reservation.Filter{
		Statuses:         []reservation.Status{reservation.StatusConfirmed},
		TravelDateBefore: &today,
	})
	cancel()
	if err != nil {
		return 0, fmt.Errorf("乗車済み予約の取得に失敗: %w", err)
	}

	completed := 0
	for _, res := range departed {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}
		opCtx, cancel := context.WithTimeout(ctx, s.cfg.RepositoryTimeout)
		_, err := s.complete(opCtx, res)
		cancel()
		s.observe("complete", err)
		if err != nil {
			// 他の操作と競合した予約は次回の実行で再評価する
			logger.Warn("予約の完了に失敗", zap.String("reservation_id", res.ID), zap.Error(err))
			continue
		}
		completed++
	}
	return completed, nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RepositoryTimeout)
	defer cancel()
	return s.reservationRepo.FindByID(ctx, id)
}

// ListActiveReservations は全旅行者の有効な予約を返す
func (s *ReservationService) ListActiveReservations(ctx context.Context) ([]*reservation.Reservation, error) {
	return s.list(ctx, reservation.Filter{Statuses: reservation.ActiveStatuses()})
}

// ListReservationsForTraveler は旅行者の有効な予約を返す
func (s *ReservationService) ListReservationsForTraveler(ctx context.Context, travelerID string) ([]*reservation.Reservation, error) {
	if travelerID == "" {
		return nil, reservation.ErrTravelerIDRequired
	}
	return s.list(ctx, reservation.Filter{TravelerID: travelerID, Statuses: reservation.ActiveStatuses()})
}

// ListReservationHistory は旅行者の完了・取消済みの予約を返す
func (s *ReservationService) ListReservationHistory(ctx context.Context, travelerID string) ([]*reservation.Reservation, error) {
	if travelerID == "" {
		return nil, reservation.ErrTravelerIDRequired
	}
	return s.list(ctx, reservation.Filter{TravelerID: travelerID, Statuses: reservation.HistoryStatuses()})
}

func (s *ReservationService) list(ctx context.Context, f reservation.Filter) ([]*reservation.Reservation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RepositoryTimeout)
	defer cancel()
	return s.reservationRepo.FindByFilter(ctx, f)
}

func (s *ReservationService) replaceError(err error) error {
	if errors.Is(err, reservation.ErrVersionConflict) || errors.Is(err, reservation.ErrReservationNotFound) {
		return err
	}
	return fmt.Errorf("予約の更新に失敗: %w", err)
}

// compensateRelease は後続の書き込みに失敗した操作が確保した座席を戻す
func (s *ReservationService) compensateRelease(ctx context.Context, scheduleID string, date time.Time, count int, operation string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RepositoryTimeout)
	defer cancel()
	if _, err := s.inventory.ReleaseSeats(ctx, scheduleID, date, count); err != nil {
		logger.Error("座席確保の補償に失敗",
			zap.String("operation", operation),
			zap.String("schedule_id", scheduleID),
			zap.String("date", date.Format(window.DateLayout)),
			zap.Int("seat_count", count),
			zap.Error(err),
		)
		return
	}
	logger.Warn("確保した座席を戻しました",
		zap.String("operation", operation),
		zap.String("schedule_id", scheduleID),
		zap.Int("seat_count", count),
	)
}

// releaseAfterCommit は予約レコードのコミット後に座席を解放する
func (s *ReservationService) releaseAfterCommit(ctx context.Context, scheduleID string, date time.Time, count int, reservationID, operation string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RepositoryTimeout)
	defer cancel()
	if _, err := s.inventory.ReleaseSeats(ctx, scheduleID, date, count); err != nil {
		logger.Error("座席の解放に失敗",
			zap.String("operation", operation),
			zap.String("reservation_id", reservationID),
			zap.String("schedule_id", scheduleID),
			zap.Int("seat_count", count),
			zap.Error(err),
		)
	}
}

func (s *ReservationService) publish(ctx context.Context, t reservation.EventType, res *reservation.Reservation, now time.Time) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.WithoutCancel(ctx), reservation.NewEvent(t, res, now)); err != nil {
		logger.Warn("イベント配信エラー", zap.String("type", string(t)), zap.String("reservation_id", res.ID), zap.Error(err))
	}
}

func (s *ReservationService) observe(operation string, err error) {
	s.metrics.ObserveReservation(operation, resultLabel(err))
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	if kind, ok := apperror.KindOf(err); ok {
		return string(kind)
	}
	return "error"
}
