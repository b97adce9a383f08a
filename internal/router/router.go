// Package router registers the HTTP routes of the API on an Echo
// instance.  Paths are registered without a trailing slash; the server
// strips it from incoming requests so both forms resolve.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/handler"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/middleware"
)

// RegisterRoutes registers the routes that need no handler state.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers registration, login and the current-user route.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}
