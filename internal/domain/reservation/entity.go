package reservation

import (
	"time"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
)

// MaxActivePerTraveler は旅行者1人あたりの有効な予約の上限
const MaxActivePerTraveler = 4

// Itinerary は予約対象の列車・区間・クラス
type Itinerary struct {
	ScheduleID      string
	TrainName       string
	DepartureTime   string
	ReservationDate time.Time
	StartStation    string
	Destination     string
	Class           fare.Class
}

// Reservation は予約エンティティを表す
type Reservation struct {
	ID              string
	TravelerID      string
	ScheduleID      string
	TrainName       string
	DepartureTime   string
	ReservationDate time.Time
	BookingDate     time.Time
	StartStation    string
	Destination     string
	Class           fare.Class
	SeatCount       int
	Price           int
	Status          Status
	ConfirmedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int // 楽観的ロック用
}

// NewReservation は確定状態の新しい予約を作成する
func NewReservation(id, travelerID string, it Itinerary, seatCount, price int, now time.Time) *Reservation {
	return &Reservation{
		ID:              id,
		TravelerID:      travelerID,
		ScheduleID:      it.ScheduleID,
		TrainName:       it.TrainName,
		DepartureTime:   it.DepartureTime,
		ReservationDate: window.Day(it.ReservationDate),
		BookingDate:     window.Day(now),
		StartStation:    it.StartStation,
		Destination:     it.Destination,
		Class:           it.Class,
		SeatCount:       seatCount,
		Price:           price,
		Status:          StatusConfirmed,
		ConfirmedAt:     &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// IsActive は予約が座席を保持しているかを返す
func (r *Reservation) IsActive() bool {
	return r.Status.IsActive()
}

// IsPending は予約が保留中かを返す
func (r *Reservation) IsPending() bool {
	return r.Status == StatusPending
}

// Confirm は予約を確定する
func (r *Reservation) Confirm(now time.Time) error {
	if err := r.transitionTo(StatusConfirmed, now); err != nil {
		return err
	}
	r.ConfirmedAt = &now
	return nil
}

// Cancel は予約をキャンセルする
func (r *Reservation) Cancel(now time.Time) error {
	return r.transitionTo(StatusCancelled, now)
}

// Complete は乗車済みとして予約を完了する
func (r *Reservation) Complete(now time.Time) error {
	return r.transitionTo(StatusCompleted, now)
}

// Amend は保留中の予約の乗車日・座席数・運賃を変更する
func (r *Reservation) Amend(reservationDate time.Time, seatCount, price int, now time.Time) error {
	if r.Status != StatusPending {
		return ErrReservationNotPending
	}
	r.ReservationDate = window.Day(reservationDate)
	r.SeatCount = seatCount
	r.Price = price
	r.UpdatedAt = now
	return nil
}

// Clone は予約のコピーを返す
func (r *Reservation) Clone() *Reservation {
	c := *r
	if r.ConfirmedAt != nil {
		t := *r.ConfirmedAt
		c.ConfirmedAt = &t
	}
	return &c
}

// Validate は予約の検証を行う
func (r *Reservation) Validate() error {
	if r.TravelerID == "" {
		return ErrTravelerIDRequired
	}
	if r.ScheduleID == "" {
		return ErrScheduleIDRequired
	}
	if r.StartStation == "" || r.Destination == "" {
		return ErrStationRequired
	}
	if !r.Class.IsValid() {
		return fare.ErrUnknownClass
	}
	if r.SeatCount <= 0 {
		return fare.ErrInvalidSeatCount
	}
	return nil
}

func (r *Reservation) transitionTo(next Status, now time.Time) error {
	if !r.Status.CanTransitionTo(next) {
		switch {
		case r.Status == StatusCancelled:
			return ErrReservationAlreadyCancelled
		case r.Status == StatusCompleted:
			return ErrReservationAlreadyCompleted
		case r.Status == StatusConfirmed && next == StatusConfirmed:
			return ErrReservationAlreadyConfirmed
		default:
			return ErrInvalidTransition
		}
	}
	r.Status = next
	r.UpdatedAt = now
	return nil
}
