package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/reservation"
)

// ReservationRepository はメモリ上の予約リポジトリ
type ReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]*reservation.Reservation
}

var _ reservation.Repository = (*ReservationRepository)(nil)

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{reservations: make(map[string]*reservation.Reservation)}
}

func (r *ReservationRepository) Insert(ctx context.Context, res *reservation.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reservations[res.ID]; ok {
		return fmt.Errorf("reservation %s already exists", res.ID)
	}
	res.Version = 1
	r.reservations[res.ID] = res.Clone()
	return nil
}

func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	return res.Clone(), nil
}

func (r *ReservationRepository) Replace(ctx context.Context, res *reservation.Reservation, expectedVersion int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.reservations[res.ID]
	if !ok {
		return reservation.ErrReservationNotFound
	}
	if current.Version != expectedVersion {
		return reservation.ErrVersionConflict
	}
	res.Version = expectedVersion + 1
	r.reservations[res.ID] = res.Clone()
	return nil
}

func (r *ReservationRepository) FindByFilter(ctx context.Context, f reservation.Filter) ([]*reservation.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*reservation.Reservation, 0)
	for _, res := range r.reservations {
		if f.Matches(res) {
			result = append(result, res.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ReservationDate.Equal(result[j].ReservationDate) {
			return result[i].ReservationDate.Before(result[j].ReservationDate)
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
