package selection

import "errors"

// 券種選択のエラー定義
var (
	ErrInvalidInput           = errors.New("入力が不正です")
	ErrUnknownTicketType      = errors.New("券種が見つかりません")
	ErrInvalidQuantity        = errors.New("枚数が不正です")
	ErrSoldOut                = errors.New("売り切れです")
	ErrAuthenticationRequired = errors.New("ログインが必要です")
)
