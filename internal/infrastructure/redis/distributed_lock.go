package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-train-seat-reservation/internal/pkg/metrics"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません（期限切れの可能性）")
)

const (
	defaultLockTTL        = 10 * time.Second
	defaultLockRetries    = 3
	defaultLockRetryDelay = 100 * time.Millisecond
)

var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

// DistributedLock は Redis を使用した分散ロック
type DistributedLock struct {
	client  *redis.Client
	metrics *metrics.Metrics
	key     string
	value   string
}

// LockManager は分散ロックを管理する
type LockManager struct {
	client     *redis.Client
	metrics    *metrics.Metrics
	ttl        time.Duration
	retries    int
	retryDelay time.Duration
}

// NewLockManager は旅行者ロック用の既定値（TTL 10秒、3回リトライ）で LockManager を作成する
func NewLockManager(client *redis.Client, m *metrics.Metrics) *LockManager {
	return &LockManager{
		client:     client,
		metrics:    m,
		ttl:        defaultLockTTL,
		retries:    defaultLockRetries,
		retryDelay: defaultLockRetryDelay,
	}
}

// WithTTL は LockTraveler が使用するロックの有効期限を設定する
func (m *LockManager) WithTTL(ttl time.Duration) *LockManager {
	if ttl > 0 {
		m.ttl = ttl
	}
	return m
}

// AcquireLock はロックを取得する
func (m *LockManager) AcquireLock(ctx context.Context, key string, ttl time.Duration) (*DistributedLock, error) {
	start := time.Now()
	lockKey := fmt.Sprintf("lock:%s", key)
	lockValue := uuid.New().String()

	// SetNX を使用してロックを取得（キーが存在しない場合のみ設定）
	ok, err := m.client.SetNX(ctx, lockKey, lockValue, ttl).Result()
	if err != nil {
		m.metrics.ObserveLock("acquire", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		m.metrics.ObserveLock("acquire", "failed", time.Since(start).Seconds())
		return nil, ErrLockNotAcquired
	}
	m.metrics.ObserveLock("acquire", "success", time.Since(start).Seconds())

	return &DistributedLock{
		client:  m.client,
		metrics: m.metrics,
		key:     lockKey,
		value:   lockValue,
	}, nil
}

// AcquireLockWithRetry はリトライ付きでロックを取得する
func (m *LockManager) AcquireLockWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (*DistributedLock, error) {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		lock, err := m.AcquireLock(ctx, key, ttl)
		if err == nil {
			return lock, nil
		}
		lastErr = err
		if !errors.Is(err, ErrLockNotAcquired) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, lastErr
}

// LockTraveler は旅行者単位のロックを取得し、解放関数を返す
func (m *LockManager) LockTraveler(ctx context.Context, travelerID string) (func(context.Context) error, error) {
	lock, err := m.AcquireLockWithRetry(ctx, TravelerLockKey(travelerID), m.ttl, m.retries, m.retryDelay)
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}

// TravelerLockKey は旅行者ロックのキーを返す
func TravelerLockKey(travelerID string) string {
	return "traveler:" + travelerID
}

// Release はロックを解放する（Lua スクリプトで所有者確認と削除をアトミックに実行）
func (l *DistributedLock) Release(ctx context.Context) error {
	start := time.Now()
	result, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Int()
	if err != nil {
		l.metrics.ObserveLock("release", "error", time.Since(start).Seconds())
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if result == 0 {
		l.metrics.ObserveLock("release", "failed", time.Since(start).Seconds())
		return ErrLockNotOwned
	}
	l.metrics.ObserveLock("release", "success", time.Since(start).Seconds())
	return nil
}
