package selection

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cindycandyy/fe-kpl/internal/domain/event"
)

// BookingPolicies は予約画面に表示する注意事項
var BookingPolicies = []string{
	"Tickets are non-refundable",
	"Please arrive 30 minutes before the event",
	"Bring a valid ID for verification",
}

var rupiah = message.NewPrinter(language.Indonesian)

// FormatPrice は金額をルピア表記（id-ID の桁区切り）にする
func FormatPrice(amount int64) string {
	return rupiah.Sprintf("Rp %d", amount)
}

// QuantityLabel は枚数選択肢の表示名
func QuantityLabel(n int) string {
	if n > 1 {
		return fmt.Sprintf("%d tickets", n)
	}
	return fmt.Sprintf("%d ticket", n)
}

// CapNotice は上限枚数の案内文を返す。案内が不要なら空文字
func CapNotice(ev *event.Event) string {
	if ev == nil || !ev.ShowsCapNotice() {
		return ""
	}
	suffix := ""
	if ev.MaxTicketsPerUser > 1 {
		suffix = "s"
	}
	return fmt.Sprintf("Maximum %d ticket%s per person for this event.", ev.MaxTicketsPerUser, suffix)
}

// SuccessMessage は予約完了時の表示文
func SuccessMessage(ev *event.Event, quantity int) string {
	title := ""
	if ev != nil {
		title = ev.Title
	}
	return fmt.Sprintf("You have successfully booked %d ticket(s) for %s.", quantity, title)
}
