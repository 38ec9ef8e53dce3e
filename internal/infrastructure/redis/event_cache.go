package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cindycandyy/fe-kpl/internal/domain/event"
)

var (
	ErrCacheMiss = errors.New("キャッシュが見つかりません")
)

type cachedTicketType struct {
	ID          string `json:"id"`
	EventID     string `json:"event_id"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Quota       int    `json:"quota"`
	Available   int    `json:"available"`
	Description string `json:"description"`
}

type cachedEvent struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Type              string             `json:"type"`
	StartAt           time.Time          `json:"start_at"`
	Location          string             `json:"location"`
	Image             string             `json:"image"`
	Organizer         string             `json:"organizer"`
	TicketTypes       []cachedTicketType `json:"ticket_types"`
	MaxTicketsPerUser int                `json:"max_tickets_per_user"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func fromEntity(e *event.Event) cachedEvent {
	c := cachedEvent{
		ID: e.ID, Title: e.Title, Description: e.Description, Type: e.Type,
		StartAt: e.StartAt, Location: e.Location, Image: e.Image, Organizer: e.Organizer,
		MaxTicketsPerUser: e.MaxTicketsPerUser, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
		TicketTypes: make([]cachedTicketType, len(e.TicketTypes)),
	}
	for i, t := range e.TicketTypes {
		c.TicketTypes[i] = cachedTicketType(t)
	}
	return c
}

func (c cachedEvent) toEntity() *event.Event {
	e := &event.Event{
		ID: c.ID, Title: c.Title, Description: c.Description, Type: c.Type,
		StartAt: c.StartAt, Location: c.Location, Image: c.Image, Organizer: c.Organizer,
		MaxTicketsPerUser: c.MaxTicketsPerUser, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
		TicketTypes: make([]event.TicketType, len(c.TicketTypes)),
	}
	for i, t := range c.TicketTypes {
		e.TicketTypes[i] = event.TicketType(t)
	}
	return e
}

// EventCache はイベントスナップショットのキャッシュ
type EventCache struct {
	client *redis.Client
}

// NewEventCache は新しいEventCacheを作成する
func NewEventCache(client *redis.Client) *EventCache {
	return &EventCache{client: client}
}

// Get はキャッシュからスナップショットを取得する
func (c *EventCache) Get(ctx context.Context, eventID string) (*event.Event, error) {
	raw, err := c.client.Get(ctx, c.key(eventID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("キャッシュ取得に失敗: %w", err)
	}
	var cached cachedEvent
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("キャッシュの復元に失敗: %w", err)
	}
	return cached.toEntity(), nil
}

// Set はスナップショットをキャッシュに保存する
func (c *EventCache) Set(ctx context.Context, e *event.Event, ttl time.Duration) error {
	raw, err := json.Marshal(fromEntity(e))
	if err != nil {
		return fmt.Errorf("キャッシュの変換に失敗: %w", err)
	}
	if err := c.client.Set(ctx, c.key(e.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("キャッシュ保存に失敗: %w", err)
	}
	return nil
}

// Invalidate はスナップショットを削除する
func (c *EventCache) Invalidate(ctx context.Context, eventID string) error {
	if err := c.client.Del(ctx, c.key(eventID)).Err(); err != nil {
		return fmt.Errorf("キャッシュ無効化に失敗: %w", err)
	}
	return nil
}

func (c *EventCache) key(eventID string) string {
	return fmt.Sprintf("events:snapshot:%s", eventID)
}
