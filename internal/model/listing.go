package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is a bookable property as stored in the `listings` table.
// Availability only gates new bookings; existing bookings keep their
// reference to the listing whatever its flag becomes.
//
// Fields:
//
//	ID            – primary key identifier.
//	Title         – short display name.
//	Description   – long free text.
//	PricePerNight – nightly price, DECIMAL(10,2), never negative.
//	Location      – free text location.
//	Bedrooms      – number of bedrooms.
//	Bathrooms     – number of bathrooms.
//	MaxGuests     – upper bound for Booking.NumberOfGuests.
//	Amenities     – free text, may be empty.
//	IsAvailable   – whether new bookings are accepted.
type Listing struct {
	ID            uint64          `json:"id"`              // listings.id
	Title         string          `json:"title"`           // listings.title
	Description   string          `json:"description"`     // listings.description
	PricePerNight decimal.Decimal `json:"price_per_night"` // listings.price_per_night
	Location      string          `json:"location"`        // listings.location
	Bedrooms      int             `json:"bedrooms"`        // listings.bedrooms
	Bathrooms     int             `json:"bathrooms"`       // listings.bathrooms
	MaxGuests     int             `json:"max_guests"`      // listings.max_guests
	Amenities     string          `json:"amenities"`       // listings.amenities
	IsAvailable   bool            `json:"is_available"`    // listings.is_available
	CreatedAt     time.Time       `json:"created_at"`      // listings.created_at
	UpdatedAt     time.Time       `json:"updated_at"`      // listings.updated_at
}
