package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/logger"
)

// ReservationCompleter は乗車日を過ぎた予約を完了にするインターフェース
type ReservationCompleter interface {
	CompleteDepartedReservations(ctx context.Context) (int, error)
}

// CompletionSweeper は乗車済み予約を定期的に完了にして座席を解放するワーカー
type CompletionSweeper struct {
	reservationService ReservationCompleter
	interval           time.Duration
	stopCh             chan struct{}
	doneCh             chan struct{}
}

// NewCompletionSweeper は新しいスイーパーを作成
func NewCompletionSweeper(rs ReservationCompleter, interval time.Duration) *CompletionSweeper {
	return &CompletionSweeper{
		reservationService: rs,
		interval:           interval,
		stopCh:             make(chan struct{}),
		doneCh:             make(chan struct{}),
	}
}

// Start はスイーパーを開始（起動直後に1回実行する）
func (s *CompletionSweeper) Start(ctx context.Context) {
	logger.Info("乗車済み予約スイーパー開始", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("乗車済み予約スイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("乗車済み予約スイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止
func (s *CompletionSweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *CompletionSweeper) sweep(ctx context.Context) {
	log := logger.Get()
	log.Debug("乗車済み予約の完了処理開始")

	count, err := s.reservationService.CompleteDepartedReservations(ctx)
	if err != nil {
		log.Error("乗車済み予約の完了処理失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("乗車済み予約を完了", zap.Int("count", count))
	} else {
		log.Debug("完了対象の予約なし")
	}
}
