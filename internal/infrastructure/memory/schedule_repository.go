package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
)

type scheduleKey struct {
	id   string
	date string
}

func keyOf(id string, date time.Time) scheduleKey {
	return scheduleKey{id: id, date: window.Day(date).Format(window.DateLayout)}
}

// ScheduleRepository はメモリ上のスケジュールリポジトリ
type ScheduleRepository struct {
	mu        sync.Mutex
	schedules map[scheduleKey]*schedule.Schedule
}

var _ schedule.Repository = (*ScheduleRepository)(nil)

func NewScheduleRepository() *ScheduleRepository {
	return &ScheduleRepository{schedules: make(map[scheduleKey]*schedule.Schedule)}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *schedule.Schedule) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyOf(s.ID, s.Date)
	if _, ok := r.schedules[k]; ok {
		return fmt.Errorf("schedule %s/%s already exists", k.id, k.date)
	}
	r.schedules[k] = cloneSchedule(s)
	return nil
}

func (r *ScheduleRepository) FindByIDAndDate(ctx context.Context, id string, date time.Time) (*schedule.Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.schedules[keyOf(id, date)]
	if !ok {
		return nil, schedule.ErrScheduleNotFound
	}
	return cloneSchedule(s), nil
}

func (r *ScheduleRepository) CompareAndSetRemainingSeats(ctx context.Context, id string, date time.Time, expected, newValue int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.schedules[keyOf(id, date)]
	if !ok {
		return false, schedule.ErrScheduleNotFound
	}
	if s.RemainingSeats != expected {
		return false, nil
	}
	s.RemainingSeats = newValue
	s.UpdatedAt = time.Now()
	return true, nil
}

func cloneSchedule(s *schedule.Schedule) *schedule.Schedule {
	c := *s
	c.Stations = append([]schedule.Station(nil), s.Stations...)
	return &c
}
