package event

import "errors"

// Event ドメインのエラー定義
var (
	ErrEventNotFound            = errors.New("イベントが見つかりません")
	ErrEventUnavailable         = errors.New("イベント情報を取得できません")
	ErrEventTitleRequired       = errors.New("イベント名は必須です")
	ErrInvalidMaxTicketsPerUser = errors.New("1人あたりの上限枚数は1以上である必要があります")
	ErrNoTicketTypes            = errors.New("券種が1つ以上必要です")
	ErrDuplicateTicketType      = errors.New("券種IDが重複しています")
	ErrTicketTypeIDRequired     = errors.New("券種IDは必須です")
	ErrInvalidPrice             = errors.New("価格は0以上である必要があります")
	ErrInvalidQuota             = errors.New("発行枚数は0以上である必要があります")
	ErrInvalidAvailability      = errors.New("残数は0以上かつ発行枚数以下である必要があります")
)
