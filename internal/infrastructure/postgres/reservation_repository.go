package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/fare"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
)

const reservationColumns = `id, traveler_id, schedule_id, train_name, departure_time, travel_date, booking_date, start_station, destination, class, seat_count, price, status, confirmed_at, created_at, updated_at, version`

type reservationRow struct {
	ID            string     `db:"id"`
	TravelerID    string     `db:"traveler_id"`
	ScheduleID    string     `db:"schedule_id"`
	TrainName     string     `db:"train_name"`
	DepartureTime string     `db:"departure_time"`
	TravelDate    time.Time  `db:"travel_date"`
	BookingDate   time.Time  `db:"booking_date"`
	StartStation  string     `db:"start_station"`
	Destination   string     `db:"destination"`
	Class         string     `db:"class"`
	SeatCount     int        `db:"seat_count"`
	Price         int        `db:"price"`
	Status        string     `db:"status"`
	ConfirmedAt   *time.Time `db:"confirmed_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	Version       int        `db:"version"`
}

type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Insert(ctx context.Context, res *reservation.Reservation) error {
	query := `INSERT INTO reservations (` + reservationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, 1)`
	_, err := r.db.ExecContext(ctx, query,
		res.ID, res.TravelerID, res.ScheduleID, res.TrainName, res.DepartureTime,
		res.ReservationDate.Format(window.DateLayout), res.BookingDate.Format(window.DateLayout),
		res.StartStation, res.Destination, string(res.Class), res.SeatCount, res.Price,
		string(res.Status), res.ConfirmedAt, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	res.Version = 1
	return nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	var row reservationRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return r.toEntity(&row), nil
}

// Replace は version 列を条件にした UPDATE で予約を置き換える
func (r *ReservationRepository) Replace(ctx context.Context, res *reservation.Reservation, expectedVersion int) error {
	query := `UPDATE reservations SET travel_date = $1, seat_count = $2, price = $3, status = $4, confirmed_at = $5, updated_at = $6, version = version + 1 WHERE id = $7 AND version = $8`
	result, err := r.db.ExecContext(ctx, query,
		res.ReservationDate.Format(window.DateLayout), res.SeatCount, res.Price,
		string(res.Status), res.ConfirmedAt, res.UpdatedAt, res.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)`, res.ID); err != nil {
			return fmt.Errorf("予約確認に失敗: %w", err)
		}
		if !exists {
			return reservation.ErrReservationNotFound
		}
		return reservation.ErrVersionConflict
	}
	res.Version = expectedVersion + 1
	return nil
}

func (r *ReservationRepository) FindByFilter(ctx context.Context, f reservation.Filter) ([]*reservation.Reservation, error) {
	var (
		conds []string
		args  []interface{}
	)
	if f.TravelerID != "" {
		args = append(args, f.TravelerID)
		conds = append(conds, fmt.Sprintf("traveler_id = $%d", len(args)))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if f.TravelDateBefore != nil {
		args = append(args, f.TravelDateBefore.Format(window.DateLayout))
		conds = append(conds, fmt.Sprintf("travel_date < $%d", len(args)))
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY travel_date, created_at`

	var rows []reservationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		result[i] = r.toEntity(&rows[i])
	}
	return result, nil
}

func (r *ReservationRepository) toEntity(row *reservationRow) *reservation.Reservation {
	return &reservation.Reservation{
		ID: row.ID, TravelerID: row.TravelerID, ScheduleID: row.ScheduleID,
		TrainName: row.TrainName, DepartureTime: row.DepartureTime,
		ReservationDate: window.Day(row.TravelDate), BookingDate: window.Day(row.BookingDate),
		StartStation: row.StartStation, Destination: row.Destination,
		Class: fare.Class(row.Class), SeatCount: row.SeatCount, Price: row.Price,
		Status: reservation.Status(row.Status), ConfirmedAt: row.ConfirmedAt,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt, Version: row.Version,
	}
}

var _ reservation.Repository = (*ReservationRepository)(nil)
