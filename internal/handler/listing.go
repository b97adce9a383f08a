package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/repository"
)

// ListingRepository is implemented by *repository.ListingRepo.
type ListingRepository interface {
	List(ctx context.Context, onlyAvailable bool) ([]model.Listing, error)
	GetByID(ctx context.Context, id uint64) (model.Listing, error)
	Create(ctx context.Context, l *model.Listing) error
	Update(ctx context.Context, l *model.Listing) error
	Delete(ctx context.Context, id uint64) error
}

// ListingHandler serves the listing catalogue.  Reads are public and only
// show available listings; writes are mounted behind JWT and role checks.
type ListingHandler struct {
	Listings ListingRepository
	Log      logrus.FieldLogger
}

func NewListingHandler(repo ListingRepository, log logrus.FieldLogger) *ListingHandler {
	return &ListingHandler{Listings: repo, Log: log}
}

// listingReq is the body of POST, PUT and PATCH.  Pointer fields let
// PATCH tell "absent" from "zero"; bounds follow the listings columns.
type listingReq struct {
	Title         *string          `json:"title" validate:"omitempty,notblank,max=200"`
	Description   *string          `json:"description"`
	PricePerNight *decimal.Decimal `json:"price_per_night" validate:"omitempty,gte=0,lte=99999999.99"`
	Location      *string          `json:"location" validate:"omitempty,max=200"`
	Bedrooms      *int             `json:"bedrooms" validate:"omitempty,gte=0"`
	Bathrooms     *int             `json:"bathrooms" validate:"omitempty,gte=0"`
	MaxGuests     *int             `json:"max_guests" validate:"omitempty,min=1"`
	Amenities     *string          `json:"amenities"`
	IsAvailable   *bool            `json:"is_available"`
}

// listingRequired holds the fields POST and PUT must carry.
type listingRequired struct {
	Title         *string          `json:"title" validate:"required"`
	PricePerNight *decimal.Decimal `json:"price_per_night" validate:"required"`
	MaxGuests     *int             `json:"max_guests" validate:"required"`
}

// bindListing binds and validates the body.  With full set the required
// fields must be present.
func (h *ListingHandler) bindListing(c echo.Context, full bool) (listingReq, bool, error) {
	var req listingReq
	if err := c.Bind(&req); err != nil {
		return req, false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if full {
		presence := listingRequired{Title: req.Title, PricePerNight: req.PricePerNight, MaxGuests: req.MaxGuests}
		if ok, err := validate(c, h.Log, &presence); !ok {
			return req, false, err
		}
	}
	ok, err := validate(c, h.Log, &req)
	return req, ok, err
}

// apply copies the present fields onto l.
func (r listingReq) apply(l *model.Listing) {
	if r.Title != nil {
		l.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		l.Description = *r.Description
	}
	if r.PricePerNight != nil {
		l.PricePerNight = r.PricePerNight.Round(2)
	}
	if r.Location != nil {
		l.Location = *r.Location
	}
	if r.Bedrooms != nil {
		l.Bedrooms = *r.Bedrooms
	}
	if r.Bathrooms != nil {
		l.Bathrooms = *r.Bathrooms
	}
	if r.MaxGuests != nil {
		l.MaxGuests = *r.MaxGuests
	}
	if r.Amenities != nil {
		l.Amenities = *r.Amenities
	}
	if r.IsAvailable != nil {
		l.IsAvailable = *r.IsAvailable
	}
}

// List handles GET /listings.
func (h *ListingHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()
	items, err := h.Listings.List(ctx, true)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, items)
}

// Get handles GET /listings/:id.
func (h *ListingHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "id", "invalid listing id")
	}
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()
	l, err := h.Listings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !l.IsAvailable) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// Create handles POST /listings.
func (h *ListingHandler) Create(c echo.Context) error {
	req, ok, err := h.bindListing(c, true)
	if !ok {
		return err
	}
	l := model.Listing{IsAvailable: true}
	req.apply(&l)
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()
	if err := h.Listings.Create(ctx, &l); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, l)
}

// Update handles PUT (full) and PATCH (partial) on /listings/:id.
func (h *ListingHandler) Update(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "id", "invalid listing id")
	}
	req, ok, err := h.bindListing(c, c.Request().Method == http.MethodPut)
	if !ok {
		return err
	}
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()
	l, err := h.Listings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	if err != nil {
		return respondError(c, h.Log, err)
	}
	req.apply(&l)
	if err := h.Listings.Update(ctx, &l); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// Delete handles DELETE /listings/:id.  Bookings of the listing are
// removed with it by the foreign key.
func (h *ListingHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "id", "invalid listing id")
	}
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()
	if err := h.Listings.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
		}
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
