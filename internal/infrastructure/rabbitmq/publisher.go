package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-train-seat-reservation/internal/config"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-train-seat-reservation/internal/domain/window"
	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/logger"
)

const exchangeKind = "topic"

// channel は Publisher が使う amqp.Channel の操作
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher は予約イベントを topic exchange に配信する
// ルーティングキーはイベント種別（reservation.created など）
type Publisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	mu       sync.Mutex
}

// NewPublisher はブローカーに接続し exchange を宣言する
func NewPublisher(cfg *config.RabbitMQConfig) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQ接続エラー: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("チャネル作成エラー: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, exchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("exchange宣言エラー: %w", err)
	}

	logger.Info("RabbitMQに接続しました", zap.String("exchange", cfg.Exchange))
	return &Publisher{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

func newPublisherWithChannel(ch channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// EventMessage は配信するメッセージ本文
type EventMessage struct {
	Type            string    `json:"type"`
	ReservationID   string    `json:"reservation_id"`
	TravelerID      string    `json:"traveler_id"`
	ScheduleID      string    `json:"schedule_id"`
	ReservationDate string    `json:"reservation_date"`
	StartStation    string    `json:"start_station"`
	Destination     string    `json:"destination"`
	Class           string    `json:"class"`
	SeatCount       int       `json:"seat_count"`
	Price           int       `json:"price"`
	Status          string    `json:"status"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewEventMessage は予約イベントからメッセージ本文を組み立てる
func NewEventMessage(ev reservation.Event) EventMessage {
	r := ev.Reservation
	return EventMessage{
		Type:            string(ev.Type),
		ReservationID:   r.ID,
		TravelerID:      r.TravelerID,
		ScheduleID:      r.ScheduleID,
		ReservationDate: r.ReservationDate.Format(window.DateLayout),
		StartStation:    r.StartStation,
		Destination:     r.Destination,
		Class:           string(r.Class),
		SeatCount:       r.SeatCount,
		Price:           r.Price,
		Status:          string(r.Status),
		OccurredAt:      ev.OccurredAt.UTC(),
	}
}

func newPublishing(ev reservation.Event) (amqp.Publishing, error) {
	body, err := json.Marshal(NewEventMessage(ev))
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         string(ev.Type),
		Timestamp:    ev.OccurredAt.UTC(),
		Body:         body,
	}, nil
}

// Publish はイベントを配信する
func (p *Publisher) Publish(ctx context.Context, ev reservation.Event) error {
	if ev.Reservation == nil {
		return fmt.Errorf("予約が空のイベントは配信できません: %s", ev.Type)
	}
	msg, err := newPublishing(ev)
	if err != nil {
		return fmt.Errorf("イベントのシリアライズ: %w", err)
	}

	// amqp.Channel は並行な publish に対応しない
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, msg); err != nil {
		return fmt.Errorf("イベント配信エラー: %w", err)
	}
	return nil
}

// Close はチャネルと接続を閉じる
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
