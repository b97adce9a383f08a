package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Booking statuses.  A booking is created PENDING and only a completed
// payment moves it to CONFIRMED.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"
)

// bookingTransitions lists the allowed next states for every booking
// status.  Cancelled and completed are terminal.
var bookingTransitions = map[string][]string{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
	BookingCancelled: {},
	BookingCompleted: {},
}

// CanTransitionBooking reports whether a booking may move from one status
// to another.
func CanTransitionBooking(from, to string) bool {
	for _, s := range bookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Booking is a reservation of a listing for a date range, owned by a user.
// CheckIn and CheckOut are calendar dates (time part is zero, UTC).
// TotalPrice is always derived from the listing price and the number of
// nights and is never taken from the client.
type Booking struct {
	ID              uint64          `json:"id"`               // bookings.id
	UserID          uint64          `json:"user_id"`          // bookings.user_id
	ListingID       uint64          `json:"listing_id"`       // bookings.listing_id
	CheckIn         time.Time       `json:"check_in"`         // bookings.check_in (DATE)
	CheckOut        time.Time       `json:"check_out"`        // bookings.check_out (DATE)
	NumberOfGuests  int             `json:"number_of_guests"` // bookings.number_of_guests
	TotalPrice      decimal.Decimal `json:"total_price"`      // bookings.total_price
	Status          string          `json:"status"`           // bookings.status
	SpecialRequests string          `json:"special_requests"` // bookings.special_requests
	CreatedAt       time.Time       `json:"created_at"`       // bookings.created_at
	UpdatedAt       time.Time       `json:"updated_at"`       // bookings.updated_at
}

// Reference returns the human facing identifier of the booking,
// BOOK-{id:06d}-{YYYYMMDD of creation}.  It is empty until the booking has
// been persisted and carries both an id and a creation timestamp.
func (b *Booking) Reference() string {
	if b == nil || b.ID == 0 || b.CreatedAt.IsZero() {
		return ""
	}
	return fmt.Sprintf("BOOK-%06d-%s", b.ID, b.CreatedAt.Format("20060102"))
}

// Nights is the number of whole days between check-in and check-out.
func (b *Booking) Nights() int {
	return NightsBetween(b.CheckIn, b.CheckOut)
}

// NightsBetween counts calendar days from checkIn to checkOut.  Both values
// are truncated to their date in UTC first so a time of day never changes
// the result.
func NightsBetween(checkIn, checkOut time.Time) int {
	in := DateOf(checkIn)
	out := DateOf(checkOut)
	return int(out.Sub(in).Hours() / 24)
}

// DateOf truncates t to midnight UTC of the same calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
