package handler

import (
	"context"
	"time"

	"github.com/sanosuguru/go-train-seat-reservation/internal/application"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
)

// ScheduleServiceInterface は運行スケジュール参照サービスのインターフェース
type ScheduleServiceInterface interface {
	GetSchedule(ctx context.Context, id string, date time.Time) (*schedule.Schedule, error)
	RemainingSeats(ctx context.Context, id string, date time.Time) (int, error)
}

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error)
	UpdateReservation(ctx context.Context, id string, input application.UpdateReservationInput) (*reservation.Reservation, error)
	CancelReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	ConfirmReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	CompleteReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	GetReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	ListActiveReservations(ctx context.Context) ([]*reservation.Reservation, error)
	ListReservationsForTraveler(ctx context.Context, travelerID string) ([]*reservation.Reservation, error)
	ListReservationHistory(ctx context.Context, travelerID string) ([]*reservation.Reservation, error)
}
