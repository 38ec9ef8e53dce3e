// Package selection は券種と枚数の選択を検証し、合計金額を算出する。
// すべての関数は副作用を持たず、残数を変更しない。
package selection

import (
	"github.com/cindycandyy/fe-kpl/internal/domain/event"
)

// Selection はユーザーが選んだ券種と枚数
type Selection struct {
	TicketTypeID string
	Quantity     int
}

// Quote は選択を検証した結果
type Quote struct {
	EventID    string
	TicketType event.TicketType
	Quantity   int
	TotalPrice int64
	Valid      bool
	Reason     error
}

// MaxSelectable は選択できる最大枚数 min(上限枚数, 残数) を返す（0未満にはならない）
func MaxSelectable(ev *event.Event, tt event.TicketType) int {
	n := ev.MaxTicketsPerUser
	if tt.Available < n {
		n = tt.Available
	}
	if n < 0 {
		return 0
	}
	return n
}

// ListSelectableQuantities は選択可能な枚数 1..N を返す
// 空の場合は購入できない
func ListSelectableQuantities(ev *event.Event, tt event.TicketType) ([]int, error) {
	if ev == nil || !ev.HasTicketType(tt) {
		return nil, ErrInvalidInput
	}
	// スナップショット上の値を使う
	current, _ := ev.FindTicketType(tt.ID)
	n := MaxSelectable(ev, current)
	quantities := make([]int, n)
	for i := range quantities {
		quantities[i] = i + 1
	}
	return quantities, nil
}

// QuoteSelection は券種IDと枚数を検証して見積もりを返す
// 不正な場合は Valid=false の Quote とエラーを返す
func QuoteSelection(ev *event.Event, ticketTypeID string, quantity int) (Quote, error) {
	if ev == nil {
		return reject(Quote{TicketType: event.TicketType{ID: ticketTypeID}, Quantity: quantity}, ErrInvalidInput)
	}
	q := Quote{EventID: ev.ID, Quantity: quantity}
	tt, ok := ev.FindTicketType(ticketTypeID)
	if !ok {
		q.TicketType = event.TicketType{ID: ticketTypeID}
		return reject(q, ErrUnknownTicketType)
	}
	q.TicketType = tt
	// 売り切れは枚数に関係なく区別して返す
	if tt.IsSoldOut() {
		return reject(q, ErrSoldOut)
	}
	if quantity < 1 || quantity > MaxSelectable(ev, tt) {
		return reject(q, ErrInvalidQuantity)
	}
	q.TotalPrice = tt.Price * int64(quantity)
	q.Valid = true
	return q, nil
}

// Of は Selection を見積もる
func (s Selection) Of(ev *event.Event) (Quote, error) {
	return QuoteSelection(ev, s.TicketTypeID, s.Quantity)
}

// RequiresAuthentication はセッションがない場合に true を返す
// 予約送信では選択の検証より先に判定する
func RequiresAuthentication(hasSession bool) bool {
	return !hasSession
}

func reject(q Quote, reason error) (Quote, error) {
	q.Valid = false
	q.Reason = reason
	q.TotalPrice = 0
	return q, reason
}
