package schedule

import (
	"fmt"
	"time"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
)

// Station は停車駅と路線上の順序
type Station struct {
	Name     string
	Position int
}

// Schedule は運行日ごとの列車スケジュールを表す
type Schedule struct {
	ID             string
	Date           time.Time
	TrainName      string
	DepartureTime  string
	Stations       []Station
	Capacity       int
	RemainingSeats int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSchedule は残席数が座席数と等しい新しいスケジュールを作成する
func NewSchedule(id string, date time.Time, trainName, departureTime string, stations []Station, capacity int) *Schedule {
	now := time.Now()
	return &Schedule{
		ID:             id,
		Date:           window.Day(date),
		TrainName:      trainName,
		DepartureTime:  departureTime,
		Stations:       stations,
		Capacity:       capacity,
		RemainingSeats: capacity,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate はスケジュールの検証を行う
func (s *Schedule) Validate() error {
	if s.ID == "" {
		return ErrScheduleIDRequired
	}
	if s.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if s.RemainingSeats < 0 || s.RemainingSeats > s.Capacity {
		return ErrInvalidRemaining
	}
	if len(s.Stations) < 2 {
		return ErrStationsRequired
	}
	seen := make(map[string]struct{}, len(s.Stations))
	for _, st := range s.Stations {
		if _, ok := seen[st.Name]; ok {
			return ErrDuplicateStation
		}
		seen[st.Name] = struct{}{}
	}
	return nil
}

// PositionOf は駅名から路線上の順序を返す
func (s *Schedule) PositionOf(name string) (int, bool) {
	for _, st := range s.Stations {
		if st.Name == name {
			return st.Position, true
		}
	}
	return 0, false
}

// MustBeWithinCapacity は残席数の不変条件 0 <= remaining <= capacity を表明する
// 違反は在庫計算の不具合であり、回復可能なエラーとしては扱わない
func (s *Schedule) MustBeWithinCapacity(remaining int) {
	if remaining < 0 || remaining > s.Capacity {
		panic(fmt.Sprintf("schedule %s/%s: remaining seats %d out of range [0, %d]",
			s.ID, s.Date.Format(window.DateLayout), remaining, s.Capacity))
	}
}
