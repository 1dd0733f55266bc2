package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
)

type scheduleRow struct {
	ID             string    `db:"id"`
	TravelDate     time.Time `db:"travel_date"`
	TrainName      string    `db:"train_name"`
	DepartureTime  string    `db:"departure_time"`
	Capacity       int       `db:"capacity"`
	RemainingSeats int       `db:"remaining_seats"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type stationRow struct {
	Name     string `db:"name"`
	Position int    `db:"position"`
}

type ScheduleRepository struct{ db *sqlx.DB }

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *schedule.Schedule) error {
	if err := s.Validate(); err != nil {
		return err
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	date := s.Date.Format(window.DateLayout)
	query := `INSERT INTO schedules (id, travel_date, train_name, departure_time, capacity, remaining_seats, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if _, err := tx.ExecContext(ctx, query, s.ID, date, s.TrainName, s.DepartureTime, s.Capacity, s.RemainingSeats, s.CreatedAt, s.UpdatedAt); err != nil {
		return fmt.Errorf("スケジュール作成に失敗: %w", err)
	}
	for _, st := range s.Stations {
		if _, err := tx.ExecContext(ctx, `INSERT INTO schedule_stations (schedule_id, travel_date, name, position) VALUES ($1, $2, $3, $4)`, s.ID, date, st.Name, st.Position); err != nil {
			return fmt.Errorf("停車駅登録に失敗: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) FindByIDAndDate(ctx context.Context, id string, date time.Time) (*schedule.Schedule, error) {
	d := window.Day(date).Format(window.DateLayout)

	var row scheduleRow
	query := `SELECT id, travel_date, train_name, departure_time, capacity, remaining_seats, created_at, updated_at FROM schedules WHERE id = $1 AND travel_date = $2`
	if err := r.db.GetContext(ctx, &row, query, id, d); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, schedule.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("スケジュール取得に失敗: %w", err)
	}

	var stations []stationRow
	if err := r.db.SelectContext(ctx, &stations, `SELECT name, position FROM schedule_stations WHERE schedule_id = $1 AND travel_date = $2 ORDER BY position`, id, d); err != nil {
		return nil, fmt.Errorf("停車駅取得に失敗: %w", err)
	}
	return r.toEntity(&row, stations), nil
}

// CompareAndSetRemainingSeats は条件付き UPDATE で残席数を更新する
func (r *ScheduleRepository) CompareAndSetRemainingSeats(ctx context.Context, id string, date time.Time, expected, newValue int) (bool, error) {
	d := window.Day(date).Format(window.DateLayout)
	query := `UPDATE schedules SET remaining_seats = $1, updated_at = NOW() WHERE id = $2 AND travel_date = $3 AND remaining_seats = $4`
	result, err := r.db.ExecContext(ctx, query, newValue, id, d, expected)
	if err != nil {
		return false, fmt.Errorf("残席数更新に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("残席数更新に失敗: %w", err)
	}
	if rows == 1 {
		return true, nil
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM schedules WHERE id = $1 AND travel_date = $2)`, id, d); err != nil {
		return false, fmt.Errorf("スケジュール確認に失敗: %w", err)
	}
	if !exists {
		return false, schedule.ErrScheduleNotFound
	}
	return false, nil
}

func (r *ScheduleRepository) toEntity(row *scheduleRow, stations []stationRow) *schedule.Schedule {
	s := &schedule.Schedule{
		ID: row.ID, Date: window.Day(row.TravelDate),
		TrainName: row.TrainName, DepartureTime: row.DepartureTime,
		Capacity: row.Capacity, RemainingSeats: row.RemainingSeats,
		CreatedAt: row.CreatedAt, UpdatedAt: row.UpdatedAt,
		Stations: make([]schedule.Station, len(stations)),
	}
	for i, st := range stations {
		s.Stations[i] = schedule.Station{Name: st.Name, Position: st.Position}
	}
	return s
}

var _ schedule.Repository = (*ScheduleRepository)(nil)
