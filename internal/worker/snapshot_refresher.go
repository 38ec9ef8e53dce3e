package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cindycandyy/fe-kpl/internal/pkg/logger"
)

// SnapshotSource はイベントスナップショットをキャッシュし直す
type SnapshotSource interface {
	RefreshSnapshots(ctx context.Context, limit int) (int, error)
}

// SnapshotRefresher は一覧のイベントのスナップショットを定期的に更新するワーカー
// イベント画面が新しい残数を読めるようにする
type SnapshotRefresher struct {
	source   SnapshotSource
	interval time.Duration
	limit    int
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// NewSnapshotRefresher は新しいワーカーを作成
func NewSnapshotRefresher(source SnapshotSource, interval time.Duration, limit int) *SnapshotRefresher {
	return &SnapshotRefresher{
		source:   source,
		interval: interval,
		limit:    limit,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はワーカーを開始し、停止するまでブロックする
// 起動直後に1回更新してから interval ごとに更新する
func (r *SnapshotRefresher) Start(ctx context.Context) error {
	r.started.Store(true)
	logger.Info("スナップショット更新ワーカー開始",
		zap.Duration("interval", r.interval),
		zap.Int("limit", r.limit),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer close(r.doneCh)

	r.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("スナップショット更新ワーカー停止（コンテキストキャンセル）")
			return nil
		case <-r.stopCh:
			logger.Info("スナップショット更新ワーカー停止（シグナル受信）")
			return nil
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// Stop はワーカーを停止し、開始済みなら終了を待つ
func (r *SnapshotRefresher) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	if r.started.Load() {
		<-r.doneCh
	}
}

func (r *SnapshotRefresher) refresh(ctx context.Context) {
	log := logger.Get()

	count, err := r.source.RefreshSnapshots(ctx, r.limit)
	if err != nil {
		log.Error("スナップショット更新失敗", zap.Error(err))
		return
	}
	log.Debug("スナップショット更新", zap.Int("count", count))
}
