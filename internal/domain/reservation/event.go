package reservation

import "time"

// EventType は予約の状態変化の種類
type EventType string

const (
	EventCreated   EventType = "reservation.created"
	EventUpdated   EventType = "reservation.updated"
	EventCancelled EventType = "reservation.cancelled"
	EventConfirmed EventType = "reservation.confirmed"
	EventCompleted EventType = "reservation.completed"
)

// Event はコミット済みの予約変更を外部に通知するための値
type Event struct {
	Type        EventType
	Reservation *Reservation
	OccurredAt  time.Time
}

func NewEvent(t EventType, r *Reservation, now time.Time) Event {
	return Event{Type: t, Reservation: r.Clone(), OccurredAt: now}
}
