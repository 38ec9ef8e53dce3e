package event

import "context"

// Repository はイベントリポジトリのインターフェース
type Repository interface {
	// Create は券種を含むイベントを作成する
	Create(ctx context.Context, event *Event) error

	// GetByID はIDからイベントのスナップショットを取得する
	// 存在しない場合は ErrEventNotFound、取得できない場合は ErrEventUnavailable を返す
	GetByID(ctx context.Context, id string) (*Event, error)

	// List はイベント一覧を取得する
	List(ctx context.Context, limit, offset int) ([]*Event, error)
}
