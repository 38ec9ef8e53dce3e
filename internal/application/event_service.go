package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cindycandyy/fe-kpl/internal/domain/event"
	"github.com/cindycandyy/fe-kpl/internal/domain/selection"
	redisinfra "github.com/cindycandyy/fe-kpl/internal/infrastructure/redis"
	"github.com/cindycandyy/fe-kpl/internal/pkg/logger"
	"github.com/cindycandyy/fe-kpl/internal/pkg/metrics"
)

const defaultEventCacheTTL = 30 * time.Second

// EventCache はイベントスナップショットのキャッシュ
type EventCache interface {
	Get(ctx context.Context, eventID string) (*event.Event, error)
	Set(ctx context.Context, e *event.Event, ttl time.Duration) error
	Invalidate(ctx context.Context, eventID string) error
}

type EventService struct {
	eventRepo event.Repository
	cache     EventCache
	cacheTTL  time.Duration
	metrics   *metrics.Metrics
}

// NewEventService は EventService を作成する。cache と m は nil でもよい
func NewEventService(eventRepo event.Repository, cache EventCache, cacheTTL time.Duration, m *metrics.Metrics) *EventService {
	if cacheTTL <= 0 {
		cacheTTL = defaultEventCacheTTL
	}
	return &EventService{eventRepo: eventRepo, cache: cache, cacheTTL: cacheTTL, metrics: m}
}

type TicketTypeInput struct {
	ID          string
	Name        string
	Price       int64
	Quota       int
	Available   *int // 未指定なら発行枚数と同じ
	Description string
}

type CreateEventInput struct {
	Title             string
	Description       string
	Type              string
	StartAt           time.Time
	Location          string
	Image             string
	Organizer         string
	MaxTicketsPerUser int
	TicketTypes       []TicketTypeInput
}

func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*event.Event, error) {
	tickets := make([]event.TicketType, len(input.TicketTypes))
	for i, t := range input.TicketTypes {
		available := t.Quota
		if t.Available != nil {
			available = *t.Available
		}
		tickets[i] = event.TicketType{
			ID: t.ID, Name: t.Name, Price: t.Price, Quota: t.Quota, Available: available, Description: t.Description,
		}
	}
	e := event.NewEvent(input.Title, input.Description, input.Type, input.Location, input.Organizer,
		input.StartAt, input.MaxTicketsPerUser, tickets)
	e.Image = input.Image
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.eventRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return e, nil
}

// GetEvent はイベントのスナップショットを取得する（キャッシュ優先）
func (s *EventService) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	log := logger.FromContext(ctx)
	if s.cache != nil {
		e, err := s.cache.Get(ctx, id)
		switch {
		case err == nil:
			s.countCache("hit")
			log.Debug("キャッシュヒット", zap.String("event_id", id))
			return e, nil
		case errors.Is(err, redisinfra.ErrCacheMiss):
			s.countCache("miss")
		default:
			s.countCache("error")
			log.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, e, s.cacheTTL); err != nil {
			log.Warn("キャッシュ保存エラー", zap.Error(err))
		}
	}
	return e, nil
}

func (s *EventService) ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.eventRepo.List(ctx, limit, offset)
}

// SelectableQuantities は券種ごとの選択可能枚数を返す
func (s *EventService) SelectableQuantities(ctx context.Context, eventID, ticketTypeID string) (event.TicketType, []int, error) {
	e, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return event.TicketType{}, nil, err
	}
	tt, ok := e.FindTicketType(ticketTypeID)
	if !ok {
		return event.TicketType{}, nil, selection.ErrUnknownTicketType
	}
	quantities, err := selection.ListSelectableQuantities(e, tt)
	if err != nil {
		return event.TicketType{}, nil, err
	}
	return tt, quantities, nil
}

// Quote は選択を見積もる。event は表示用に返す
func (s *EventService) Quote(ctx context.Context, eventID, ticketTypeID string, quantity int) (*event.Event, selection.Quote, error) {
	e, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, selection.Quote{}, err
	}
	q, err := selection.QuoteSelection(e, ticketTypeID, quantity)
	if s.metrics != nil {
		s.metrics.QuotesTotal.WithLabelValues(quoteResult(err)).Inc()
	}
	return e, q, err
}

// InvalidateSnapshot はキャッシュ済みのスナップショットを破棄する
func (s *EventService) InvalidateSnapshot(ctx context.Context, eventID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, eventID); err != nil {
		logger.FromContext(ctx).Warn("キャッシュ無効化エラー", zap.String("event_id", eventID), zap.Error(err))
	}
}

// RefreshSnapshots は一覧の先頭 limit 件のスナップショットをキャッシュし直す
func (s *EventService) RefreshSnapshots(ctx context.Context, limit int) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	events, err := s.ListEvents(ctx, limit, 0)
	if err != nil {
		return 0, err
	}
	refreshed := 0
	for _, e := range events {
		if err := s.cache.Set(ctx, e, s.cacheTTL); err != nil {
			logger.FromContext(ctx).Warn("キャッシュ保存エラー", zap.String("event_id", e.ID), zap.Error(err))
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

func (s *EventService) countCache(result string) {
	if s.metrics != nil {
		s.metrics.EventCacheLookups.WithLabelValues(result).Inc()
	}
}

func quoteResult(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, selection.ErrUnknownTicketType):
		return "unknown_ticket_type"
	case errors.Is(err, selection.ErrSoldOut):
		return "sold_out"
	case errors.Is(err, selection.ErrInvalidQuantity):
		return "invalid_quantity"
	default:
		return "invalid_input"
	}
}
