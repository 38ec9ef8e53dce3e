package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cindycandyy/fe-kpl/internal/application"
	"github.com/cindycandyy/fe-kpl/internal/domain/event"
	"github.com/cindycandyy/fe-kpl/internal/domain/selection"
)

type EventHandler struct {
	eventService EventServiceInterface
}

func NewEventHandler(eventService EventServiceInterface) *EventHandler {
	return &EventHandler{eventService: eventService}
}

type TicketTypeRequest struct {
	ID          string `json:"id" validate:"required" example:"1"`
	Name        string `json:"name" validate:"required" example:"Regular"`
	Price       int64  `json:"price" validate:"gte=0" example:"250000"`
	Quota       int    `json:"quota" validate:"gte=0" example:"150"`
	Available   *int   `json:"available,omitempty" validate:"omitempty,gte=0" example:"120"`
	Description string `json:"description" example:"Standard access to all sessions"`
}

type CreateEventRequest struct {
	Title             string              `json:"title" validate:"required" example:"Digital Marketing Masterclass 2024"`
	Description       string              `json:"description" example:"Learn advanced digital marketing strategies"`
	Type              string              `json:"type" example:"seminar"`
	StartAt           string              `json:"start_at" validate:"required" example:"2024-02-15T10:00:00+07:00"`
	Location          string              `json:"location" example:"Jakarta Convention Center"`
	Image             string              `json:"image" example:"/images/masterclass.jpg"`
	Organizer         string              `json:"organizer" example:"Digital Marketing Institute"`
	MaxTicketsPerUser int                 `json:"max_tickets_per_user" validate:"gte=1" example:"1"`
	TicketTypes       []TicketTypeRequest `json:"ticket_types" validate:"required,min=1,dive"`
}

type TicketTypeResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        int64  `json:"price"`
	PriceDisplay string `json:"price_display" example:"Rp 250.000"`
	Quota        int    `json:"quota"`
	Available    int    `json:"available"`
	SoldOut      bool   `json:"sold_out"`
	Description  string `json:"description,omitempty"`
}

type EventResponse struct {
	ID                  string               `json:"id"`
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	Type                string               `json:"type"`
	StartAt             string               `json:"start_at"`
	Location            string               `json:"location"`
	Image               string               `json:"image,omitempty"`
	Organizer           string               `json:"organizer"`
	MaxTicketsPerUser   int                  `json:"max_tickets_per_user"`
	TicketTypes         []TicketTypeResponse `json:"ticket_types"`
	DefaultTicketTypeID string               `json:"default_ticket_type_id,omitempty"`
	CapNotice           string               `json:"cap_notice,omitempty"`
	Policies            []string             `json:"policies"`
	CreatedAt           string               `json:"created_at"`
	UpdatedAt           string               `json:"updated_at"`
}

func toTicketTypeResponse(t event.TicketType) TicketTypeResponse {
	return TicketTypeResponse{
		ID:           t.ID,
		Name:         t.Name,
		Price:        t.Price,
		PriceDisplay: selection.FormatPrice(t.Price),
		Quota:        t.Quota,
		Available:    t.Available,
		SoldOut:      t.IsSoldOut(),
		Description:  t.Description,
	}
}

func toEventResponse(e *event.Event) *EventResponse {
	tickets := make([]TicketTypeResponse, len(e.TicketTypes))
	for i, t := range e.TicketTypes {
		tickets[i] = toTicketTypeResponse(t)
	}
	resp := &EventResponse{
		ID:                e.ID,
		Title:             e.Title,
		Description:       e.Description,
		Type:              e.Type,
		StartAt:           e.StartAt.Format(time.RFC3339),
		Location:          e.Location,
		Image:             e.Image,
		Organizer:         e.Organizer,
		MaxTicketsPerUser: e.MaxTicketsPerUser,
		TicketTypes:       tickets,
		CapNotice:         selection.CapNotice(e),
		Policies:          selection.BookingPolicies,
		CreatedAt:         e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         e.UpdatedAt.Format(time.RFC3339),
	}
	if def, ok := e.DefaultTicketType(); ok {
		resp.DefaultTicketTypeID = def.ID
	}
	return resp
}

// Create godoc
// @Summary イベントを作成
// @Description 券種を含むイベントを作成します
// @Tags events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "イベント情報"
// @Success 201 {object} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /events [post]
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	startAt, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "開始時刻の形式が不正です")
	}

	tickets := make([]application.TicketTypeInput, len(req.TicketTypes))
	for i, t := range req.TicketTypes {
		tickets[i] = application.TicketTypeInput{
			ID: t.ID, Name: t.Name, Price: t.Price, Quota: t.Quota, Available: t.Available, Description: t.Description,
		}
	}

	e, err := h.eventService.CreateEvent(c.Request().Context(), application.CreateEventInput{
		Title:             req.Title,
		Description:       req.Description,
		Type:              req.Type,
		StartAt:           startAt,
		Location:          req.Location,
		Image:             req.Image,
		Organizer:         req.Organizer,
		MaxTicketsPerUser: req.MaxTicketsPerUser,
		TicketTypes:       tickets,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toEventResponse(e))
}

// GetByID godoc
// @Summary イベントを取得
// @Description 券種・初期選択・上限案内・注意事項を含むイベントを取得します
// @Tags events
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} EventResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 503 {object} api.ErrorResponse
// @Router /events/{id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	e, err := h.eventService.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// List godoc
// @Summary イベント一覧を取得
// @Tags events
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} EventResponse
// @Router /events [get]
func (h *EventHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	events, err := h.eventService.ListEvents(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}

	responses := make([]*EventResponse, len(events))
	for i, e := range events {
		responses[i] = toEventResponse(e)
	}
	return c.JSON(http.StatusOK, responses)
}

type QuantityOption struct {
	Value int    `json:"value" example:"1"`
	Label string `json:"label" example:"1 ticket"`
}

type QuantitiesResponse struct {
	EventID       string           `json:"event_id"`
	TicketTypeID  string           `json:"ticket_type_id"`
	MaxSelectable int              `json:"max_selectable"`
	SoldOut       bool             `json:"sold_out"`
	Options       []QuantityOption `json:"options"`
}

// Quantities godoc
// @Summary 選択可能な枚数を取得
// @Description 1人あたりの上限と残数の小さい方までの枚数を返します
// @Tags events
// @Produce json
// @Param id path string true "イベントID"
// @Param ticket_type_id path string true "券種ID"
// @Success 200 {object} QuantitiesResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id}/ticket-types/{ticket_type_id}/quantities [get]
func (h *EventHandler) Quantities(c echo.Context) error {
	eventID := c.Param("id")
	tt, quantities, err := h.eventService.SelectableQuantities(c.Request().Context(), eventID, c.Param("ticket_type_id"))
	if err != nil {
		return err
	}
	options := make([]QuantityOption, len(quantities))
	for i, q := range quantities {
		options[i] = QuantityOption{Value: q, Label: selection.QuantityLabel(q)}
	}
	return c.JSON(http.StatusOK, QuantitiesResponse{
		EventID:       eventID,
		TicketTypeID:  tt.ID,
		MaxSelectable: len(quantities),
		SoldOut:       tt.IsSoldOut(),
		Options:       options,
	})
}

type QuoteRequest struct {
	TicketTypeID string `json:"ticket_type_id" validate:"required" example:"1"`
	Quantity     int    `json:"quantity" example:"1"`
}

type QuoteResponse struct {
	EventID           string `json:"event_id"`
	TicketTypeID      string `json:"ticket_type_id"`
	TicketTypeName    string `json:"ticket_type_name"`
	Quantity          int    `json:"quantity"`
	QuantityLabel     string `json:"quantity_label"`
	UnitPrice         int64  `json:"unit_price"`
	TotalPrice        int64  `json:"total_price"`
	TotalPriceDisplay string `json:"total_price_display" example:"Rp 250.000"`
	Valid             bool   `json:"valid"`
}

// Quote godoc
// @Summary 選択内容を見積もる
// @Tags events
// @Accept json
// @Produce json
// @Param id path string true "イベントID"
// @Param request body QuoteRequest true "選択内容"
// @Success 200 {object} QuoteResponse
// @Failure 400 {object} api.ErrorResponse "枚数が不正"
// @Failure 404 {object} api.ErrorResponse "券種が存在しない"
// @Failure 409 {object} api.ErrorResponse "売り切れ"
// @Router /events/{id}/quote [post]
func (h *EventHandler) Quote(c echo.Context) error {
	var req QuoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	_, q, err := h.eventService.Quote(c.Request().Context(), c.Param("id"), req.TicketTypeID, req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, QuoteResponse{
		EventID:           q.EventID,
		TicketTypeID:      q.TicketType.ID,
		TicketTypeName:    q.TicketType.Name,
		Quantity:          q.Quantity,
		QuantityLabel:     selection.QuantityLabel(q.Quantity),
		UnitPrice:         q.TicketType.Price,
		TotalPrice:        q.TotalPrice,
		TotalPriceDisplay: selection.FormatPrice(q.TotalPrice),
		Valid:             q.Valid,
	})
}
