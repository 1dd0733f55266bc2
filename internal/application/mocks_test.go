package application

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/schedule"
)

// MockReservationRepository implements reservation.Repository
type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) Insert(ctx context.Context, r *reservation.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReservationRepository) FindByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationRepository) Replace(ctx context.Context, r *reservation.Reservation, expectedVersion int) error {
	args := m.Called(ctx, r, expectedVersion)
	return args.Error(0)
}

func (m *MockReservationRepository) FindByFilter(ctx context.Context, f reservation.Filter) ([]*reservation.Reservation, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

// MockScheduleRepository implements schedule.Repository
type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) Create(ctx context.Context, s *schedule.Schedule) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockScheduleRepository) FindByIDAndDate(ctx context.Context, id string, date time.Time) (*schedule.Schedule, error) {
	args := m.Called(ctx, id, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// 呼び出し側が残席数を書き換えても期待値が変わらないようにコピーを返す
	s := *args.Get(0).(*schedule.Schedule)
	return &s, args.Error(1)
}

func (m *MockScheduleRepository) CompareAndSetRemainingSeats(ctx context.Context, id string, date time.Time, expected, newValue int) (bool, error) {
	args := m.Called(ctx, id, date, expected, newValue)
	return args.Bool(0), args.Error(1)
}

// MockAvailabilityCache implements AvailabilityCache
type MockAvailabilityCache struct {
	mock.Mock
}

func (m *MockAvailabilityCache) GetRemainingSeats(ctx context.Context, scheduleID string, date time.Time) (int, error) {
	args := m.Called(ctx, scheduleID, date)
	return args.Int(0), args.Error(1)
}

func (m *MockAvailabilityCache) SetRemainingSeats(ctx context.Context, scheduleID string, date time.Time, remaining int, ttl time.Duration) error {
	args := m.Called(ctx, scheduleID, date, remaining, ttl)
	return args.Error(0)
}

func (m *MockAvailabilityCache) Invalidate(ctx context.Context, scheduleID string, date time.Time) error {
	args := m.Called(ctx, scheduleID, date)
	return args.Error(0)
}

// MockTravelerLocker implements TravelerLocker
type MockTravelerLocker struct {
	mock.Mock
	released int
}

func (m *MockTravelerLocker) LockTraveler(ctx context.Context, travelerID string) (func(context.Context) error, error) {
	args := m.Called(ctx, travelerID)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func(context.Context) error {
		m.released++
		return nil
	}, nil
}

// MockEventPublisher implements EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, e reservation.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
