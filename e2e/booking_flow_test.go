package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cindycandyy/fe-kpl/internal/api"
	"github.com/cindycandyy/fe-kpl/internal/api/handler"
	"github.com/cindycandyy/fe-kpl/internal/api/middleware"
	"github.com/cindycandyy/fe-kpl/internal/infrastructure/messaging"
)

func userHeader(userID string) map[string]string {
	return map[string]string{middleware.HeaderUserID: userID}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func createEvent(t *testing.T, s *TestServer, maxPerUser int) handler.EventResponse {
	t.Helper()
	zero := 0
	req := handler.CreateEventRequest{
		Title:             "Digital Marketing Masterclass 2024",
		Description:       "Learn advanced digital marketing strategies",
		Type:              "seminar",
		StartAt:           "2030-02-15T10:00:00+07:00",
		Location:          "Jakarta Convention Center",
		Organizer:         "Digital Marketing Institute",
		MaxTicketsPerUser: maxPerUser,
		TicketTypes: []handler.TicketTypeRequest{
			{ID: "regular", Name: "Regular", Price: 250000, Quota: 3},
			{ID: "vip", Name: "VIP", Price: 750000, Quota: 10, Available: &zero},
		},
	}
	rec := s.Request(http.MethodPost, "/api/v1/events", req, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[handler.EventResponse](t, rec.Body.Bytes())
}

func TestE2E_HealthCheck(t *testing.T) {
	s := getTestServer(t)

	rec := s.Request(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

// TestE2E_CompleteBookingJourney はイベント閲覧から予約確定までの流れを検証
func TestE2E_CompleteBookingJourney(t *testing.T) {
	s := getTestServer(t)
	ev := createEvent(t, s, 2)
	eventPath := "/api/v1/events/" + ev.ID

	t.Run("イベント表示に既定の券種と上限の注意書きが含まれる", func(t *testing.T) {
		rec := s.Request(http.MethodGet, eventPath, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		view := decode[handler.EventResponse](t, rec.Body.Bytes())
		assert.Equal(t, "regular", view.DefaultTicketTypeID)
		assert.Equal(t, "Maximum 2 tickets per person for this event.", view.CapNotice)
		assert.NotEmpty(t, view.Policies)
		require.Len(t, view.TicketTypes, 2)
		assert.Equal(t, "Rp 250.000", view.TicketTypes[0].PriceDisplay)
		assert.True(t, view.TicketTypes[1].SoldOut)
	})

	t.Run("選択可能な枚数は上限まで", func(t *testing.T) {
		rec := s.Request(http.MethodGet, eventPath+"/ticket-types/regular/quantities", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		q := decode[handler.QuantitiesResponse](t, rec.Body.Bytes())
		assert.Equal(t, 2, q.MaxSelectable)
		require.Len(t, q.Options, 2)
		assert.Equal(t, "1 ticket", q.Options[0].Label)
		assert.Equal(t, "2 tickets", q.Options[1].Label)
	})

	t.Run("見積もりは単価×枚数", func(t *testing.T) {
		rec := s.Request(http.MethodPost, eventPath+"/quote",
			handler.QuoteRequest{TicketTypeID: "regular", Quantity: 2}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		q := decode[handler.QuoteResponse](t, rec.Body.Bytes())
		assert.True(t, q.Valid)
		assert.Equal(t, int64(500000), q.TotalPrice)
		assert.Equal(t, "Rp 500.000", q.TotalPriceDisplay)
	})

	t.Run("セッションなしの予約はログインへ誘導される", func(t *testing.T) {
		rec := s.Request(http.MethodPost, "/api/v1/bookings", handler.CreateBookingRequest{
			EventID: ev.ID, TicketTypeID: "regular", Quantity: 1,
		}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		errResp := decode[api.ErrorResponse](t, rec.Body.Bytes())
		assert.Equal(t, "authentication_required", errResp.Kind)
		assert.Equal(t, api.LoginPath, errResp.Redirect)
	})

	var bookingID string
	t.Run("予約が確定し通知が送られる", func(t *testing.T) {
		rec := s.Request(http.MethodPost, "/api/v1/bookings", handler.CreateBookingRequest{
			EventID: ev.ID, TicketTypeID: "regular", Quantity: 2, IdempotencyKey: "journey-1",
		}, userHeader("user-1"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		b := decode[handler.BookingResponse](t, rec.Body.Bytes())
		bookingID = b.ID
		assert.Equal(t, "confirmed", b.Status)
		assert.Equal(t, int64(500000), b.TotalPrice)
		assert.Equal(t, handler.DashboardPath, b.Redirect)
		assert.Equal(t, "You have successfully booked 2 ticket(s) for Digital Marketing Masterclass 2024.", b.Message)

		outcome := s.NextOutcome(t)
		assert.Equal(t, messaging.TypeBookingSucceeded, outcome.Type)
		assert.Equal(t, b.ID, outcome.BookingID)
	})

	t.Run("同じ冪等性キーの再送は同じ予約を返す", func(t *testing.T) {
		rec := s.Request(http.MethodPost, "/api/v1/bookings", handler.CreateBookingRequest{
			EventID: ev.ID, TicketTypeID: "regular", Quantity: 2, IdempotencyKey: "journey-1",
		}, userHeader("user-1"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		b := decode[handler.BookingResponse](t, rec.Body.Bytes())
		assert.Equal(t, bookingID, b.ID)
	})

	t.Run("冪等性キーを別の内容で使い回すと409", func(t *testing.T) {
		rec := s.Request(http.MethodPost, "/api/v1/bookings", handler.CreateBookingRequest{
			EventID: ev.ID, TicketTypeID: "regular", Quantity: 1, IdempotencyKey: "journey-1",
		}, userHeader("user-1"))
		require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
		assert.Equal(t, "idempotency_key_reused", decode[api.ErrorResponse](t, rec.Body.Bytes()).Kind)
	})

	t.Run("冪等性キーを使い回しても数量0は400", func(t *testing.T) {
		rec := s.Request(http.MethodPost, "/api/v1/bookings", handler.CreateBookingRequest{
			EventID: ev.ID, TicketTypeID: "regular", Quantity: 0, IdempotencyKey: "journey-1",
		}, userHeader("user-1"))
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Equal(t, "invalid_quantity", decode[api.ErrorResponse](t, rec.Body.Bytes()).Kind)
	})

	t.Run("予約後のイベント表示は残数が減っている", func(t *testing.T) {
		rec := s.Request(http.MethodGet, eventPath, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		view := decode[handler.EventResponse](t, rec.Body.Bytes())
		assert.Equal(t, 1, view.TicketTypes[0].Available)
	})

	t.Run("自分の予約一覧と詳細を取得できる", func(t *testing.T) {
		rec := s.Request(http.MethodGet, "/api/v1/bookings", nil, userHeader("user-1"))
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[[]handler.BookingResponse](t, rec.Body.Bytes())
		require.Len(t, list, 1)
		assert.Equal(t, bookingID, list[0].ID)

		rec = s.Request(http.MethodGet, "/api/v1/bookings/"+bookingID, nil, userHeader("user-1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("他のユーザーの予約は見えない", func(t *testing.T) {
		rec := s.Request(http.MethodGet, "/api/v1/bookings/"+bookingID, nil, userHeader("user-2"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestE2E_BookingErrors(t *testing.T) {
	s := getTestServer(t)
	ev := createEvent(t, s, 4)

	tests := []struct {
		name     string
		req      handler.CreateBookingRequest
		wantCode int
		wantKind string
	}{
		{"売り切れの券種", handler.CreateBookingRequest{EventID: ev.ID, TicketTypeID: "vip", Quantity: 1}, http.StatusConflict, "sold_out"},
		{"存在しない券種", handler.CreateBookingRequest{EventID: ev.ID, TicketTypeID: "backstage", Quantity: 1}, http.StatusNotFound, "unknown_ticket_type"},
		{"残数を超える枚数", handler.CreateBookingRequest{EventID: ev.ID, TicketTypeID: "regular", Quantity: 4}, http.StatusBadRequest, "invalid_quantity"},
		{"0枚", handler.CreateBookingRequest{EventID: ev.ID, TicketTypeID: "regular", Quantity: 0}, http.StatusBadRequest, "invalid_quantity"},
		{"存在しないイベント", handler.CreateBookingRequest{EventID: "00000000-0000-0000-0000-000000000000", TicketTypeID: "regular", Quantity: 1}, http.StatusNotFound, "not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.Request(http.MethodPost, "/api/v1/bookings", tt.req, userHeader("user-err"))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			errResp := decode[api.ErrorResponse](t, rec.Body.Bytes())
			assert.Equal(t, tt.wantKind, errResp.Kind)
		})
	}
}

// TestE2E_LastTickets は残数を使い切った後の予約が売り切れになることを検証
func TestE2E_LastTickets(t *testing.T) {
	s := getTestServer(t)
	ev := createEvent(t, s, 4)

	for i := 0; i < 3; i++ {
		rec := s.Request(http.MethodPost, "/api/v1/bookings", handler.CreateBookingRequest{
			EventID: ev.ID, TicketTypeID: "regular", Quantity: 1,
		}, userHeader(fmt.Sprintf("user-%d", i)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		s.NextOutcome(t)
	}

	rec := s.Request(http.MethodPost, "/api/v1/bookings", handler.CreateBookingRequest{
		EventID: ev.ID, TicketTypeID: "regular", Quantity: 1,
	}, userHeader("user-late"))
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "sold_out", decode[api.ErrorResponse](t, rec.Body.Bytes()).Kind)
}
