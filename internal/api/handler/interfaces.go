package handler

import (
	"context"

	"github.com/cindycandyy/fe-kpl/internal/application"
	"github.com/cindycandyy/fe-kpl/internal/domain/booking"
	"github.com/cindycandyy/fe-kpl/internal/domain/event"
	"github.com/cindycandyy/fe-kpl/internal/domain/selection"
)

// EventServiceInterface はイベントサービスのインターフェース
type EventServiceInterface interface {
	CreateEvent(ctx context.Context, input application.CreateEventInput) (*event.Event, error)
	GetEvent(ctx context.Context, id string) (*event.Event, error)
	ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error)
	SelectableQuantities(ctx context.Context, eventID, ticketTypeID string) (event.TicketType, []int, error)
	Quote(ctx context.Context, eventID, ticketTypeID string, quantity int) (*event.Event, selection.Quote, error)
}

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	Book(ctx context.Context, input application.SubmitInput) (*booking.Booking, error)
	GetBooking(ctx context.Context, id, userID string) (*booking.Booking, error)
	ListUserBookings(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error)
}
