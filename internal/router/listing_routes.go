package router

import (
	"github.com/labstack/echo/v4"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/handler"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/middleware"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
)

// RegisterListings registers the public catalogue reads, behind the
// response cache, and the listing writes, which require the HOST or ADMIN
// role.
func RegisterListings(e *echo.Echo, h *handler.ListingHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	e.GET("/listings", h.List, cache)
	e.GET("/listings/:id", h.Get, cache)

	g := e.Group(
		"/listings",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleHost, model.RoleAdmin),
	)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
