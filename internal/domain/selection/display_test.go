package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cindycandyy/fe-kpl/internal/domain/event"
)

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "Rp 250.000", FormatPrice(250000))
	assert.Equal(t, "Rp 0", FormatPrice(0))
	assert.Equal(t, "Rp 1.500.000", FormatPrice(1500000))
}

func TestQuantityLabel(t *testing.T) {
	assert.Equal(t, "1 ticket", QuantityLabel(1))
	assert.Equal(t, "3 tickets", QuantityLabel(3))
}

func TestCapNotice(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		expected string
	}{
		{"1枚", 1, "Maximum 1 ticket per person for this event."},
		{"4枚", 4, "Maximum 4 tickets per person for this event."},
		{"5枚以上は表示しない", 5, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CapNotice(&event.Event{MaxTicketsPerUser: tt.limit}))
		})
	}
	assert.Empty(t, CapNotice(nil))
}

func TestSuccessMessage(t *testing.T) {
	msg := SuccessMessage(masterclass(), 1)
	assert.Equal(t, "You have successfully booked 1 ticket(s) for Digital Marketing Masterclass 2024.", msg)
}
