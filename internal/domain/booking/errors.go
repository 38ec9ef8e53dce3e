package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound        = errors.New("予約が見つかりません")
	ErrSubmissionFailed       = errors.New("予約の送信に失敗しました")
	ErrSubmissionInProgress   = errors.New("予約を処理中です")
	ErrCapacityExceeded       = errors.New("残数が不足しています")
	ErrServiceError           = errors.New("予約サービスでエラーが発生しました")
	ErrInvalidTransition      = errors.New("予約試行の状態遷移が不正です")
	ErrEventIDRequired        = errors.New("イベントIDは必須です")
	ErrTicketTypeIDRequired   = errors.New("券種IDは必須です")
	ErrUserIDRequired         = errors.New("ユーザーIDは必須です")
	ErrInvalidQuantity        = errors.New("枚数は1以上である必要があります")
	ErrIdempotencyKeyRequired = errors.New("冪等性キーは必須です")
	ErrIdempotencyKeyReused   = errors.New("冪等性キーは別の予約内容で使用済みです")
)
