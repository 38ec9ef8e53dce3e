package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cindycandyy/fe-kpl/internal/domain/booking"
)

const (
	TypeBookingSucceeded = "BookingSucceeded"
	TypeBookingFailed    = "BookingFailed"
)

// BookingOutcome は予約結果のメッセージ本文
type BookingOutcome struct {
	Type         string    `json:"type"`
	BookingID    string    `json:"booking_id,omitempty"`
	EventID      string    `json:"event_id"`
	TicketTypeID string    `json:"ticket_type_id"`
	UserID       string    `json:"user_id"`
	Quantity     int       `json:"quantity"`
	TotalPrice   int64     `json:"total_price,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewRedisPublisher は Redis Streams の publisher を作成する
func NewRedisPublisher(client *redis.Client, logger watermill.LoggerAdapter) (message.Publisher, error) {
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("publisher作成に失敗: %w", err)
	}
	return publisher, nil
}

// BookingNotifier は予約結果をメッセージとして発行する
type BookingNotifier struct {
	publisher message.Publisher
	topic     string
}

func NewBookingNotifier(publisher message.Publisher, topic string) *BookingNotifier {
	return &BookingNotifier{publisher: publisher, topic: topic}
}

// BookingSucceeded は予約成功を通知する
func (n *BookingNotifier) BookingSucceeded(ctx context.Context, b *booking.Booking) error {
	return n.publish(ctx, BookingOutcome{
		Type:         TypeBookingSucceeded,
		BookingID:    b.ID,
		EventID:      b.EventID,
		TicketTypeID: b.TicketTypeID,
		UserID:       b.UserID,
		Quantity:     b.Quantity,
		TotalPrice:   b.TotalPrice,
		OccurredAt:   time.Now().UTC(),
	})
}

// BookingFailed は予約失敗を通知する
func (n *BookingNotifier) BookingFailed(ctx context.Context, req booking.Request, cause error) error {
	outcome := BookingOutcome{
		Type:         TypeBookingFailed,
		EventID:      req.EventID,
		TicketTypeID: req.TicketTypeID,
		UserID:       req.UserID,
		Quantity:     req.Quantity,
		OccurredAt:   time.Now().UTC(),
	}
	if cause != nil {
		outcome.Reason = cause.Error()
	}
	return n.publish(ctx, outcome)
}

func (n *BookingNotifier) publish(ctx context.Context, outcome BookingOutcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("メッセージの変換に失敗: %w", err)
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set("type", outcome.Type)
	msg.SetContext(ctx)

	if err := n.publisher.Publish(n.topic, msg); err != nil {
		return fmt.Errorf("メッセージ発行に失敗: %w", err)
	}
	return nil
}

var _ booking.Notifier = (*BookingNotifier)(nil)
