package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cindycandyy/fe-kpl/internal/domain/booking"
)

var (
	ErrLockNotAcquired = errors.New("ロックを取得できませんでした")
	ErrLockNotOwned    = errors.New("ロックの所有者ではありません")
)

// 所有者確認と削除をアトミックに行う
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// SubmissionLock は同じ予約試行の二重送信を防ぐロック
type SubmissionLock struct {
	client *redis.Client
	key    string
	token  string
}

// SubmissionLocker はインスタンスをまたいで予約送信を直列化する
type SubmissionLocker struct {
	client *redis.Client
}

func NewSubmissionLocker(client *redis.Client) *SubmissionLocker {
	return &SubmissionLocker{client: client}
}

// Acquire はロックを取得する。既に送信中なら ErrLockNotAcquired を返す
// 待機やリトライはしない
func (l *SubmissionLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (*SubmissionLock, error) {
	lockKey := fmt.Sprintf("booking:submit:%s", key)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	if !ok {
		return nil, ErrLockNotAcquired
	}
	return &SubmissionLock{client: l.client, key: lockKey, token: token}, nil
}

// Release はロックを解放する
func (l *SubmissionLock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("ロック解放に失敗: %w", err)
	}
	if n == 0 {
		return ErrLockNotOwned
	}
	return nil
}

// TryLock は Acquire の結果を解放関数として返す
// 送信中のロックがある場合は booking.ErrSubmissionInProgress を返す
func (l *SubmissionLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		if errors.Is(err, ErrLockNotAcquired) {
			return nil, fmt.Errorf("%w: %w", booking.ErrSubmissionInProgress, err)
		}
		return nil, err
	}
	return lock.Release, nil
}
