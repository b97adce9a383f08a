package router

import (
	"github.com/labstack/echo/v4"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/handler"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/middleware"
)

// RegisterBookings registers the requester-scoped booking endpoints.  Any
// authenticated role may book.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/bookings", middleware.JWTAuth(jwtSecret))
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.POST("/:id/resend-confirmation", h.ResendConfirmation)
	g.POST("/:id/cancel", h.Cancel)
}
