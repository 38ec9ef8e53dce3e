package event

import "time"

// CapNoticeThreshold 未満の上限枚数を持つイベントは上限の案内を表示する
const CapNoticeThreshold = 5

// TicketType はイベント内の券種を表す
type TicketType struct {
	ID          string
	EventID     string
	Name        string
	Price       int64 // 最小通貨単位
	Quota       int
	Available   int
	Description string
}

// Validate は券種の検証を行う
func (t TicketType) Validate() error {
	if t.ID == "" {
		return ErrTicketTypeIDRequired
	}
	if t.Price < 0 {
		return ErrInvalidPrice
	}
	if t.Quota < 0 {
		return ErrInvalidQuota
	}
	if t.Available < 0 || t.Available > t.Quota {
		return ErrInvalidAvailability
	}
	return nil
}

// IsSoldOut は残数がないかを返す
func (t TicketType) IsSoldOut() bool {
	return t.Available == 0
}

// Event はイベントエンティティを表す
// 予約試行の間は読み取り専用のスナップショットとして扱う
type Event struct {
	ID                string
	Title             string
	Description       string
	Type              string
	StartAt           time.Time
	Location          string
	Image             string
	Organizer         string
	TicketTypes       []TicketType
	MaxTicketsPerUser int // 1回の予約あたり
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewEvent は新しいイベントを作成する
func NewEvent(title, description, eventType, location, organizer string, startAt time.Time, maxTicketsPerUser int, ticketTypes []TicketType) *Event {
	now := time.Now()
	return &Event{
		Title:             title,
		Description:       description,
		Type:              eventType,
		StartAt:           startAt,
		Location:          location,
		Organizer:         organizer,
		TicketTypes:       ticketTypes,
		MaxTicketsPerUser: maxTicketsPerUser,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Validate はイベントの検証を行う
func (e *Event) Validate() error {
	if e.Title == "" {
		return ErrEventTitleRequired
	}
	if e.MaxTicketsPerUser < 1 {
		return ErrInvalidMaxTicketsPerUser
	}
	if len(e.TicketTypes) == 0 {
		return ErrNoTicketTypes
	}
	seen := make(map[string]struct{}, len(e.TicketTypes))
	for _, t := range e.TicketTypes {
		if err := t.Validate(); err != nil {
			return err
		}
		if _, ok := seen[t.ID]; ok {
			return ErrDuplicateTicketType
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

// FindTicketType はIDから券種を探す
func (e *Event) FindTicketType(id string) (TicketType, bool) {
	for _, t := range e.TicketTypes {
		if t.ID == id {
			return t, true
		}
	}
	return TicketType{}, false
}

// HasTicketType は券種がこのイベントに属するかを返す
func (e *Event) HasTicketType(t TicketType) bool {
	if t.EventID != "" && e.ID != "" && t.EventID != e.ID {
		return false
	}
	_, ok := e.FindTicketType(t.ID)
	return ok
}

// DefaultTicketType は初期選択の券種（先頭）を返す
func (e *Event) DefaultTicketType() (TicketType, bool) {
	if len(e.TicketTypes) == 0 {
		return TicketType{}, false
	}
	return e.TicketTypes[0], true
}

// ShowsCapNotice は上限枚数の案内を表示するかを返す（表示用、予約の制約ではない）
func (e *Event) ShowsCapNotice() bool {
	return e.MaxTicketsPerUser < CapNoticeThreshold
}
