package booking

import "time"

// Status は予約の状態を表す
type Status string

const (
	StatusConfirmed Status = "confirmed"
)

// Request は予約送信サービスへの依頼
type Request struct {
	EventID        string
	TicketTypeID   string
	UserID         string
	Quantity       int
	IdempotencyKey string
}

// Validate は送信前の依頼を検証する
func (r Request) Validate() error {
	if r.EventID == "" {
		return ErrEventIDRequired
	}
	if r.TicketTypeID == "" {
		return ErrTicketTypeIDRequired
	}
	if r.UserID == "" {
		return ErrUserIDRequired
	}
	if r.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if r.IdempotencyKey == "" {
		return ErrIdempotencyKeyRequired
	}
	return nil
}

// Booking は送信サービスが確定した予約
type Booking struct {
	ID             string
	EventID        string
	TicketTypeID   string
	UserID         string
	Quantity       int
	UnitPrice      int64
	TotalPrice     int64
	Status         Status
	IdempotencyKey string
	CreatedAt      time.Time
}

// NewBooking は依頼と単価から予約を作成する
func NewBooking(req Request, unitPrice int64) *Booking {
	return &Booking{
		EventID:        req.EventID,
		TicketTypeID:   req.TicketTypeID,
		UserID:         req.UserID,
		Quantity:       req.Quantity,
		UnitPrice:      unitPrice,
		TotalPrice:     unitPrice * int64(req.Quantity),
		Status:         StatusConfirmed,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
}

// Matches は予約が依頼と同じ内容かを返す（冪等性キーの再利用判定に使う）
func (b *Booking) Matches(req Request) bool {
	return b.EventID == req.EventID &&
		b.TicketTypeID == req.TicketTypeID &&
		b.UserID == req.UserID &&
		b.Quantity == req.Quantity
}
