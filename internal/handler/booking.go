package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/service"
)

// BookingHandler exposes the requester's bookings.  Every route is behind
// JWTAuth and every lookup is scoped to the authenticated user.
type BookingHandler struct {
	Bookings *service.BookingService
	Log      logrus.FieldLogger
}

func NewBookingHandler(svc *service.BookingService, log logrus.FieldLogger) *BookingHandler {
	return &BookingHandler{Bookings: svc, Log: log}
}

// createBookingReq deliberately has no status or total_price: both are
// decided by the server and silently ignored when a client sends them.
type createBookingReq struct {
	ListingID       uint64 `json:"listing" validate:"required_without=ListingIDAlt"`
	ListingIDAlt    uint64 `json:"listing_id"`
	CheckIn         string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut        string `json:"check_out" validate:"required,datetime=2006-01-02"`
	NumberOfGuests  int    `json:"number_of_guests" validate:"min=1"`
	SpecialRequests string `json:"special_requests"`
}

type updateBookingReq struct {
	SpecialRequests *string `json:"special_requests"`
}

type bookingResp struct {
	ID              uint64    `json:"id"`
	Reference       string    `json:"reference"`
	ListingID       uint64    `json:"listing"`
	CheckIn         string    `json:"check_in"`
	CheckOut        string    `json:"check_out"`
	Nights          int       `json:"nights"`
	NumberOfGuests  int       `json:"number_of_guests"`
	TotalPrice      string    `json:"total_price"`
	Status          string    `json:"status"`
	SpecialRequests string    `json:"special_requests"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toBookingResp(b model.Booking) bookingResp {
	return bookingResp{
		ID:              b.ID,
		Reference:       b.Reference(),
		ListingID:       b.ListingID,
		CheckIn:         b.CheckIn.Format(dateLayout),
		CheckOut:        b.CheckOut.Format(dateLayout),
		Nights:          b.Nights(),
		NumberOfGuests:  b.NumberOfGuests,
		TotalPrice:      b.TotalPrice.StringFixed(2),
		Status:          b.Status,
		SpecialRequests: b.SpecialRequests,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

// Create handles POST /bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.CheckIn = strings.TrimSpace(req.CheckIn)
	req.CheckOut = strings.TrimSpace(req.CheckOut)
	if ok, err := validate(c, h.Log, &req); !ok {
		return err
	}
	listingID := req.ListingID
	if listingID == 0 {
		listingID = req.ListingIDAlt
	}
	// Both dates passed the datetime rule above.
	in, _ := time.Parse(dateLayout, req.CheckIn)
	out, _ := time.Parse(dateLayout, req.CheckOut)

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()
	b, err := h.Bookings.Create(ctx, userID, service.BookingRequest{
		ListingID:       listingID,
		CheckIn:         in,
		CheckOut:        out,
		NumberOfGuests:  req.NumberOfGuests,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// List handles GET /bookings.
func (h *BookingHandler) List(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()
	items, err := h.Bookings.List(ctx, userID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	out := make([]bookingResp, 0, len(items))
	for _, b := range items {
		out = append(out, toBookingResp(b))
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	return h.byID(c, func(ec echo.Context, id, userID uint64) (model.Booking, error) {
		cctx, cancel := withTimeout(ec, requestTimeout)
		defer cancel()
		return h.Bookings.Get(cctx, id, userID)
	})
}

// Update handles PATCH /bookings/:id.  Only special_requests is editable.
func (h *BookingHandler) Update(c echo.Context) error {
	var req updateBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	return h.byID(c, func(ec echo.Context, id, userID uint64) (model.Booking, error) {
		cctx, cancel := withTimeout(ec, requestTimeout)
		defer cancel()
		if req.SpecialRequests == nil {
			return h.Bookings.Get(cctx, id, userID)
		}
		return h.Bookings.UpdateSpecialRequests(cctx, id, userID, *req.SpecialRequests)
	})
}

// Cancel handles POST /bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.byID(c, func(ec echo.Context, id, userID uint64) (model.Booking, error) {
		cctx, cancel := withTimeout(ec, requestTimeout)
		defer cancel()
		return h.Bookings.Cancel(cctx, id, userID)
	})
}

// ResendConfirmation handles POST /bookings/:id/resend-confirmation.
func (h *BookingHandler) ResendConfirmation(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "id", "invalid booking id")
	}
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()
	b, err := h.Bookings.ResendConfirmation(ctx, id, userID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":           "Confirmation email has been sent",
		"booking_reference": b.Reference(),
	})
}

func (h *BookingHandler) byID(c echo.Context, fn func(c echo.Context, id, userID uint64) (model.Booking, error)) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "id", "invalid booking id")
	}
	b, err := fn(c, id, userID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}
