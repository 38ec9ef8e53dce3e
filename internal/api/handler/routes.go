package handler

import "github.com/labstack/echo/v4"

// RegisterRoutes はAPIのルートを登録する
func RegisterRoutes(e *echo.Echo, events *EventHandler, bookings *BookingHandler, health *HealthHandler) {
	e.GET("/health", health.Check)

	v1 := e.Group("/api/v1")
	v1.POST("/events", events.Create)
	v1.GET("/events", events.List)
	v1.GET("/events/:id", events.GetByID)
	v1.GET("/events/:id/ticket-types/:ticket_type_id/quantities", events.Quantities)
	v1.POST("/events/:id/quote", events.Quote)

	v1.POST("/bookings", bookings.Create)
	v1.GET("/bookings", bookings.List)
	v1.GET("/bookings/:id", bookings.GetByID)
}
