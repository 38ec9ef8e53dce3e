package booking

import "context"

// Submitter は予約送信サービス
// 成功時は確定した予約、失敗時は ErrCapacityExceeded などを返す
type Submitter interface {
	Submit(ctx context.Context, req Request) (*Booking, error)
}

// Repository は予約の参照用リポジトリ
type Repository interface {
	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetByIdempotencyKey はユーザーと冪等性キーから予約を取得する
	GetByIdempotencyKey(ctx context.Context, userID, key string) (*Booking, error)

	// ListByUser はユーザーの予約一覧を取得する
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Booking, error)
}

// Notifier は予約結果の通知先
type Notifier interface {
	BookingSucceeded(ctx context.Context, b *Booking) error
	BookingFailed(ctx context.Context, req Request, cause error) error
}
