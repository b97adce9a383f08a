package router

import (
	"github.com/labstack/echo/v4"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/handler"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/middleware"
)

// RegisterPayments registers initiate, verify and status behind JWT and
// the rate limiter, and the gateway webhook without authentication.  The
// webhook is registered first so /payments/webhook never falls into the
// authenticated group.
func RegisterPayments(e *echo.Echo, p *handler.PaymentHandler, w *handler.WebhookHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	e.POST("/payments/webhook", w.Handle)

	// JWTAuth runs before the limiter so buckets are per user.
	g := e.Group("/payments", middleware.JWTAuth(jwtSecret), limiter)
	g.POST("/initiate", p.Initiate)
	g.POST("/verify", p.Verify)
	g.GET("/status/:transaction_id", p.Status)
}
