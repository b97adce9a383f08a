package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/middleware"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/service"
)

// requestTimeout bounds the database work of one request.  Gateway calls
// carry their own client timeout on top.
const requestTimeout = 5 * time.Second

// dateLayout is the wire format of check-in and check-out dates.
const dateLayout = "2006-01-02"

// getUserID returns the authenticated user id set by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		return 0, errors.New("invalid user_id in context")
	}
	return id, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), d)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

func badRequest(c echo.Context, field, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "details": echo.Map{field: msg}})
}

// respondError maps service errors onto HTTP responses.  Unknown errors
// are logged and answered with a generic 500 so no internals leak.
func respondError(c echo.Context, log logrus.FieldLogger, err error) error {
	var (
		ve  *service.ValidationError
		ae  *service.AlreadyInitiatedError
		rej *service.GatewayRejectedError
	)
	switch {
	case errors.As(err, &ve):
		return badRequest(c, ve.Field, ve.Message)
	case errors.As(err, &ae):
		body := echo.Map{"error": "Payment already initiated for this booking", "payment_url": nil}
		if ae.PaymentURL != "" {
			body["payment_url"] = ae.PaymentURL
		}
		if ae.TransactionID != "" {
			body["transaction_id"] = ae.TransactionID
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &rej):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Failed to initiate payment", "details": rej.Reason})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrGatewayUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "Payment gateway unavailable, please retry"})
	case errors.Is(err, context.DeadlineExceeded):
		log.WithError(err).WithField("path", c.Path()).Warn("request timed out")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "request timed out"})
	default:
		log.WithError(err).WithFields(logrus.Fields{
			"path":       c.Path(),
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		}).Error("request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}
