package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cindycandyy/fe-kpl/internal/api/middleware"
	"github.com/cindycandyy/fe-kpl/internal/application"
	"github.com/cindycandyy/fe-kpl/internal/domain/booking"
	"github.com/cindycandyy/fe-kpl/internal/domain/selection"
)

// 予約完了後の遷移先
const DashboardPath = "/dashboard"

type BookingHandler struct {
	service BookingServiceInterface
	events  EventServiceInterface
}

// NewBookingHandler は BookingHandler を作成する
// events は完了メッセージのイベント名取得に使う（nil 可）
func NewBookingHandler(s BookingServiceInterface, events EventServiceInterface) *BookingHandler {
	return &BookingHandler{service: s, events: events}
}

type CreateBookingRequest struct {
	EventID        string `json:"event_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	TicketTypeID   string `json:"ticket_type_id" validate:"required" example:"1"`
	Quantity       int    `json:"quantity" example:"1"`
	IdempotencyKey string `json:"idempotency_key,omitempty" example:"order-2024-001"`
}

type BookingResponse struct {
	ID                string `json:"id"`
	EventID           string `json:"event_id"`
	TicketTypeID      string `json:"ticket_type_id"`
	UserID            string `json:"user_id"`
	Quantity          int    `json:"quantity"`
	UnitPrice         int64  `json:"unit_price"`
	TotalPrice        int64  `json:"total_price"`
	TotalPriceDisplay string `json:"total_price_display"`
	Status            string `json:"status" example:"confirmed"`
	IdempotencyKey    string `json:"idempotency_key"`
	CreatedAt         string `json:"created_at"`
	Message           string `json:"message,omitempty"`
	Redirect          string `json:"redirect,omitempty"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:                b.ID,
		EventID:           b.EventID,
		TicketTypeID:      b.TicketTypeID,
		UserID:            b.UserID,
		Quantity:          b.Quantity,
		UnitPrice:         b.UnitPrice,
		TotalPrice:        b.TotalPrice,
		TotalPriceDisplay: selection.FormatPrice(b.TotalPrice),
		Status:            string(b.Status),
		IdempotencyKey:    b.IdempotencyKey,
		CreatedAt:         b.CreatedAt.Format(time.RFC3339),
	}
}

// Create godoc
// @Summary 予約を送信
// @Description 選択内容を検証して予約送信サービスへ送ります。ログインしていない場合は401
// @Tags bookings
// @Accept json
// @Produce json
// @Param X-User-ID header string false "ユーザーID（セッション）"
// @Param Idempotency-Key header string false "冪等性キー"
// @Param request body CreateBookingRequest true "予約内容"
// @Success 201 {object} BookingResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "売り切れ・在庫不足・送信中"
// @Failure 502 {object} api.ErrorResponse
// @Router /bookings [post]
func (h *BookingHandler) Create(c echo.Context) error {
	userID := c.Request().Header.Get(middleware.HeaderUserID)

	// 認証は入力の検証より先に確認する
	if selection.RequiresAuthentication(userID != "") {
		return selection.ErrAuthenticationRequired
	}
	var req CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	key := req.IdempotencyKey
	if key == "" {
		key = c.Request().Header.Get(middleware.HeaderIdempotencyKey)
	}

	ctx := c.Request().Context()
	b, err := h.service.Book(ctx, application.SubmitInput{
		HasSession:     userID != "",
		UserID:         userID,
		EventID:        req.EventID,
		TicketTypeID:   req.TicketTypeID,
		Quantity:       req.Quantity,
		IdempotencyKey: key,
	})
	if err != nil {
		return err
	}

	resp := toBookingResponse(b)
	resp.Redirect = DashboardPath
	if h.events != nil {
		if ev, err := h.events.GetEvent(ctx, b.EventID); err == nil {
			resp.Message = selection.SuccessMessage(ev, b.Quantity)
		}
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetByID godoc
// @Summary 予約を取得
// @Tags bookings
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param id path string true "予約ID"
// @Success 200 {object} BookingResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /bookings/{id} [get]
func (h *BookingHandler) GetByID(c echo.Context) error {
	userID := c.Request().Header.Get(middleware.HeaderUserID)
	if selection.RequiresAuthentication(userID != "") {
		return selection.ErrAuthenticationRequired
	}
	b, err := h.service.GetBooking(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toBookingResponse(b))
}

// List godoc
// @Summary ユーザーの予約一覧を取得
// @Tags bookings
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} BookingResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /bookings [get]
func (h *BookingHandler) List(c echo.Context) error {
	userID := c.Request().Header.Get(middleware.HeaderUserID)
	if selection.RequiresAuthentication(userID != "") {
		return selection.ErrAuthenticationRequired
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	bookings, err := h.service.ListUserBookings(c.Request().Context(), userID, limit, offset)
	if err != nil {
		return err
	}
	resp := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		resp[i] = toBookingResponse(b)
	}
	return c.JSON(http.StatusOK, resp)
}
