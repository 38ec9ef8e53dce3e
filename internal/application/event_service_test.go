package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cindycandyy/fe-kpl/internal/domain/event"
	"github.com/cindycandyy/fe-kpl/internal/domain/selection"
	redisinfra "github.com/cindycandyy/fe-kpl/internal/infrastructure/redis"
	"github.com/cindycandyy/fe-kpl/internal/pkg/metrics"
)

// MockEventRepository はevent.Repositoryのモック
type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, e *event.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventRepository) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*event.Event), args.Error(1)
}

// MockEventCache はEventCacheのモック
type MockEventCache struct {
	mock.Mock
}

func (m *MockEventCache) Get(ctx context.Context, id string) (*event.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Event), args.Error(1)
}

func (m *MockEventCache) Set(ctx context.Context, e *event.Event, ttl time.Duration) error {
	args := m.Called(ctx, e, ttl)
	return args.Error(0)
}

func (m *MockEventCache) Invalidate(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func masterclassEvent() *event.Event {
	return &event.Event{
		ID:                "event-1",
		Title:             "Digital Marketing Masterclass 2024",
		MaxTicketsPerUser: 1,
		TicketTypes: []event.TicketType{
			{ID: "regular", EventID: "event-1", Name: "Regular", Price: 250000, Quota: 150, Available: 120},
		},
	}
}

func concertEvent() *event.Event {
	return &event.Event{
		ID:                "event-2",
		Title:             "Jakarta Jazz Night",
		MaxTicketsPerUser: 4,
		TicketTypes: []event.TicketType{
			{ID: "vip", EventID: "event-2", Name: "VIP", Price: 1500000, Quota: 50, Available: 2},
			{ID: "regular", EventID: "event-2", Name: "Regular", Price: 300000, Quota: 500, Available: 0},
		},
	}
}

func TestEventService_CreateEvent_Success(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewEventService(mockRepo, nil, 0, nil)

	available := 120
	input := CreateEventInput{
		Title:             "Digital Marketing Masterclass 2024",
		Type:              "Workshop",
		Location:          "Jakarta Convention Center",
		StartAt:           time.Now().Add(24 * time.Hour),
		MaxTicketsPerUser: 1,
		TicketTypes: []TicketTypeInput{
			{ID: "regular", Name: "Regular", Price: 250000, Quota: 150, Available: &available},
			{ID: "student", Name: "Student", Price: 100000, Quota: 50},
		},
	}

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*event.Event")).Return(nil)

	result, err := service.CreateEvent(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, input.Title, result.Title)
	require.Len(t, result.TicketTypes, 2)
	assert.Equal(t, 120, result.TicketTypes[0].Available)
	// 残数未指定なら発行枚数と同じ
	assert.Equal(t, 50, result.TicketTypes[1].Available)
	mockRepo.AssertExpectations(t)
}

func TestEventService_CreateEvent_ValidationError(t *testing.T) {
	tests := []struct {
		name  string
		input CreateEventInput
		want  error
	}{
		{
			name:  "タイトルが空",
			input: CreateEventInput{MaxTicketsPerUser: 1, TicketTypes: []TicketTypeInput{{ID: "a", Quota: 1}}},
			want:  event.ErrEventTitleRequired,
		},
		{
			name:  "券種がない",
			input: CreateEventInput{Title: "t", MaxTicketsPerUser: 1},
			want:  event.ErrNoTicketTypes,
		},
		{
			name: "券種IDの重複",
			input: CreateEventInput{Title: "t", MaxTicketsPerUser: 1, TicketTypes: []TicketTypeInput{
				{ID: "a", Quota: 1}, {ID: "a", Quota: 1},
			}},
			want: event.ErrDuplicateTicketType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockEventRepository)
			service := NewEventService(mockRepo, nil, 0, nil)

			result, err := service.CreateEvent(context.Background(), tt.input)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "バリデーションエラー")
			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestEventService_CreateEvent_RepositoryError(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewEventService(mockRepo, nil, 0, nil)

	mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*event.Event")).
		Return(errors.New("データベースエラー"))

	result, err := service.CreateEvent(context.Background(), CreateEventInput{
		Title: "t", MaxTicketsPerUser: 1, TicketTypes: []TicketTypeInput{{ID: "a", Quota: 1}},
	})

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "イベント作成に失敗しました")
}

func TestEventService_GetEvent(t *testing.T) {
	t.Run("キャッシュヒット時はDBを参照しない", func(t *testing.T) {
		mockRepo := new(MockEventRepository)
		mockCache := new(MockEventCache)
		m := metrics.NewNop()
		service := NewEventService(mockRepo, mockCache, time.Minute, m)

		ev := masterclassEvent()
		mockCache.On("Get", mock.Anything, "event-1").Return(ev, nil)

		result, err := service.GetEvent(context.Background(), "event-1")

		require.NoError(t, err)
		assert.Equal(t, ev, result)
		mockRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.EventCacheLookups.WithLabelValues("hit")))
	})

	t.Run("キャッシュミス時はDBから取得してキャッシュする", func(t *testing.T) {
		mockRepo := new(MockEventRepository)
		mockCache := new(MockEventCache)
		m := metrics.NewNop()
		service := NewEventService(mockRepo, mockCache, time.Minute, m)

		ev := masterclassEvent()
		mockCache.On("Get", mock.Anything, "event-1").Return(nil, redisinfra.ErrCacheMiss)
		mockRepo.On("GetByID", mock.Anything, "event-1").Return(ev, nil)
		mockCache.On("Set", mock.Anything, ev, time.Minute).Return(nil)

		result, err := service.GetEvent(context.Background(), "event-1")

		require.NoError(t, err)
		assert.Equal(t, ev, result)
		mockRepo.AssertExpectations(t)
		mockCache.AssertExpectations(t)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.EventCacheLookups.WithLabelValues("miss")))
	})

	t.Run("キャッシュエラーでもDBから取得できる", func(t *testing.T) {
		mockRepo := new(MockEventRepository)
		mockCache := new(MockEventCache)
		m := metrics.NewNop()
		service := NewEventService(mockRepo, mockCache, time.Minute, m)

		ev := masterclassEvent()
		mockCache.On("Get", mock.Anything, "event-1").Return(nil, errors.New("connection refused"))
		mockRepo.On("GetByID", mock.Anything, "event-1").Return(ev, nil)
		mockCache.On("Set", mock.Anything, ev, time.Minute).Return(errors.New("connection refused"))

		result, err := service.GetEvent(context.Background(), "event-1")

		require.NoError(t, err)
		assert.Equal(t, ev, result)
		assert.Equal(t, float64(1), testutil.ToFloat64(m.EventCacheLookups.WithLabelValues("error")))
	})

	t.Run("存在しないイベント", func(t *testing.T) {
		mockRepo := new(MockEventRepository)
		service := NewEventService(mockRepo, nil, 0, nil)

		mockRepo.On("GetByID", mock.Anything, "non-existent").Return(nil, event.ErrEventNotFound)

		result, err := service.GetEvent(context.Background(), "non-existent")

		assert.Nil(t, result)
		assert.ErrorIs(t, err, event.ErrEventNotFound)
	})
}

func TestEventService_ListEvents(t *testing.T) {
	tests := []struct {
		name                  string
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{name: "デフォルトは20件", limit: 0, offset: 0, wantLimit: 20, wantOffset: 0},
		{name: "指定した件数とオフセット", limit: 10, offset: 20, wantLimit: 10, wantOffset: 20},
		{name: "上限は100件", limit: 200, offset: 0, wantLimit: 100, wantOffset: 0},
		{name: "負のオフセットは0に補正", limit: 0, offset: -10, wantLimit: 20, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockEventRepository)
			service := NewEventService(mockRepo, nil, 0, nil)
			mockRepo.On("List", mock.Anything, tt.wantLimit, tt.wantOffset).Return([]*event.Event{}, nil)

			_, err := service.ListEvents(context.Background(), tt.limit, tt.offset)

			require.NoError(t, err)
			mockRepo.AssertExpectations(t)
		})
	}
}

func TestEventService_SelectableQuantities(t *testing.T) {
	mockRepo := new(MockEventRepository)
	service := NewEventService(mockRepo, nil, 0, nil)
	mockRepo.On("GetByID", mock.Anything, "event-2").Return(concertEvent(), nil)

	t.Run("上限と残数の小さい方まで", func(t *testing.T) {
		tt, quantities, err := service.SelectableQuantities(context.Background(), "event-2", "vip")
		require.NoError(t, err)
		assert.Equal(t, "VIP", tt.Name)
		assert.Equal(t, []int{1, 2}, quantities)
	})

	t.Run("売り切れは空", func(t *testing.T) {
		_, quantities, err := service.SelectableQuantities(context.Background(), "event-2", "regular")
		require.NoError(t, err)
		assert.Empty(t, quantities)
	})

	t.Run("存在しない券種", func(t *testing.T) {
		_, _, err := service.SelectableQuantities(context.Background(), "event-2", "backstage")
		assert.ErrorIs(t, err, selection.ErrUnknownTicketType)
	})
}

func TestEventService_Quote(t *testing.T) {
	mockRepo := new(MockEventRepository)
	m := metrics.NewNop()
	service := NewEventService(mockRepo, nil, 0, m)
	mockRepo.On("GetByID", mock.Anything, "event-2").Return(concertEvent(), nil)

	_, q, err := service.Quote(context.Background(), "event-2", "vip", 2)
	require.NoError(t, err)
	assert.True(t, q.Valid)
	assert.Equal(t, int64(3000000), q.TotalPrice)

	_, q, err = service.Quote(context.Background(), "event-2", "regular", 1)
	assert.ErrorIs(t, err, selection.ErrSoldOut)
	assert.False(t, q.Valid)

	_, _, err = service.Quote(context.Background(), "event-2", "vip", 3)
	assert.ErrorIs(t, err, selection.ErrInvalidQuantity)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.QuotesTotal.WithLabelValues("valid")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QuotesTotal.WithLabelValues("sold_out")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QuotesTotal.WithLabelValues("invalid_quantity")))
}

func TestEventService_RefreshSnapshots(t *testing.T) {
	t.Run("一覧のイベントをキャッシュし直す", func(t *testing.T) {
		mockRepo := new(MockEventRepository)
		mockCache := new(MockEventCache)
		service := NewEventService(mockRepo, mockCache, time.Minute, nil)

		first, second := masterclassEvent(), concertEvent()
		mockRepo.On("List", mock.Anything, 50, 0).Return([]*event.Event{first, second}, nil)
		mockCache.On("Set", mock.Anything, first, time.Minute).Return(nil)
		mockCache.On("Set", mock.Anything, second, time.Minute).Return(errors.New("timeout"))

		n, err := service.RefreshSnapshots(context.Background(), 50)

		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("キャッシュがなければ何もしない", func(t *testing.T) {
		mockRepo := new(MockEventRepository)
		service := NewEventService(mockRepo, nil, 0, nil)

		n, err := service.RefreshSnapshots(context.Background(), 50)

		require.NoError(t, err)
		assert.Zero(t, n)
		mockRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("一覧取得エラー", func(t *testing.T) {
		mockRepo := new(MockEventRepository)
		mockCache := new(MockEventCache)
		service := NewEventService(mockRepo, mockCache, time.Minute, nil)
		mockRepo.On("List", mock.Anything, 50, 0).Return(nil, event.ErrEventUnavailable)

		_, err := service.RefreshSnapshots(context.Background(), 50)

		assert.ErrorIs(t, err, event.ErrEventUnavailable)
	})
}

func TestEventService_InvalidateSnapshot(t *testing.T) {
	mockCache := new(MockEventCache)
	service := NewEventService(new(MockEventRepository), mockCache, time.Minute, nil)
	mockCache.On("Invalidate", mock.Anything, "event-1").Return(errors.New("timeout")).Once()

	// エラーはログのみで呼び出し元には返さない
	service.InvalidateSnapshot(context.Background(), "event-1")

	mockCache.AssertExpectations(t)
}
