package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
)

// BookingRequest is the client input for a new booking.  Status and total
// price are not part of it: both are decided server side.
type BookingRequest struct {
	ListingID       uint64
	CheckIn         time.Time
	CheckOut        time.Time
	NumberOfGuests  int
	SpecialRequests string
}

// maxTotalPrice is the largest total a booking row can store (DECIMAL(10,2)).
var maxTotalPrice = decimal.RequireFromString("99999999.99")

// PriceQuote is the outcome of a successful Quote.
type PriceQuote struct {
	Nights     int
	TotalPrice decimal.Decimal
}

// Quote validates req against the listing and prices it.  Checks run in a
// fixed order and the first failure is returned.  today is compared by
// calendar date only.
func Quote(l model.Listing, req BookingRequest, today time.Time) (PriceQuote, error) {
	in, out := model.DateOf(req.CheckIn), model.DateOf(req.CheckOut)
	if !out.After(in) {
		return PriceQuote{}, invalid("check_out", "check-out date must be after check-in date")
	}
	if in.Before(model.DateOf(today)) {
		return PriceQuote{}, invalid("check_in", "check-in date must be in the future")
	}
	if req.NumberOfGuests < 1 {
		return PriceQuote{}, invalid("number_of_guests", "number of guests must be at least 1")
	}
	if req.NumberOfGuests > l.MaxGuests {
		return PriceQuote{}, invalid("number_of_guests", fmt.Sprintf("maximum guests allowed is %d", l.MaxGuests))
	}
	if !l.IsAvailable {
		return PriceQuote{}, invalid("listing", "listing is not available for booking")
	}
	nights := model.NightsBetween(in, out)
	total := l.PricePerNight.Mul(decimal.NewFromInt(int64(nights))).Round(2)
	if total.GreaterThan(maxTotalPrice) {
		return PriceQuote{}, invalid("check_out", fmt.Sprintf("total price exceeds %s, book a shorter stay", maxTotalPrice.StringFixed(2)))
	}
	return PriceQuote{Nights: nights, TotalPrice: total}, nil
}
