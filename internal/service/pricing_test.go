package service

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
)

func TestQuoteTotal(t *testing.T) {
	l := model.Listing{PricePerNight: decimal.RequireFromString("50.00"), MaxGuests: 4, IsAvailable: true}
	q, err := Quote(l, BookingRequest{CheckIn: day(1), CheckOut: day(4), NumberOfGuests: 2}, testNow)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Nights != 3 {
		t.Fatalf("nights = %d, want 3", q.Nights)
	}
	if !q.TotalPrice.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("total = %s, want 150.00", q.TotalPrice)
	}
}

func TestQuoteCheckInToday(t *testing.T) {
	l := model.Listing{PricePerNight: decimal.RequireFromString("19.99"), MaxGuests: 1, IsAvailable: true}
	q, err := Quote(l, BookingRequest{CheckIn: day(0), CheckOut: day(1), NumberOfGuests: 1}, testNow)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.TotalPrice.StringFixed(2) != "19.99" {
		t.Fatalf("total = %s", q.TotalPrice.StringFixed(2))
	}
}

func TestQuoteValidation(t *testing.T) {
	l := model.Listing{PricePerNight: decimal.RequireFromString("50.00"), MaxGuests: 4, IsAvailable: true}
	closed := l
	closed.IsAvailable = false

	cases := []struct {
		name    string
		listing model.Listing
		req     BookingRequest
		field   string
		msg     string
	}{
		{"check-out equals check-in", l, BookingRequest{CheckIn: day(2), CheckOut: day(2), NumberOfGuests: 1},
			"check_out", "check-out date must be after check-in date"},
		// Every rule is broken here; the date order wins.
		{"first failure wins", closed, BookingRequest{CheckIn: day(-3), CheckOut: day(-5), NumberOfGuests: 9},
			"check_out", "check-out date must be after check-in date"},
		{"past check-in", closed, BookingRequest{CheckIn: day(-1), CheckOut: day(2), NumberOfGuests: 9},
			"check_in", "check-in date must be in the future"},
		{"too many guests", closed, BookingRequest{CheckIn: day(1), CheckOut: day(2), NumberOfGuests: 5},
			"number_of_guests", "maximum guests allowed is 4"},
		{"no guests", l, BookingRequest{CheckIn: day(1), CheckOut: day(2), NumberOfGuests: 0},
			"number_of_guests", "number of guests must be at least 1"},
		{"unavailable", closed, BookingRequest{CheckIn: day(1), CheckOut: day(2), NumberOfGuests: 4},
			"listing", "listing is not available for booking"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Quote(tc.listing, tc.req, testNow)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Field != tc.field || ve.Message != tc.msg {
				t.Fatalf("got %s/%q, want %s/%q", ve.Field, ve.Message, tc.field, tc.msg)
			}
		})
	}
}

func TestQuoteRejectsTotalBeyondColumn(t *testing.T) {
	l := model.Listing{PricePerNight: decimal.RequireFromString("1000000.00"), MaxGuests: 2, IsAvailable: true}
	_, err := Quote(l, BookingRequest{CheckIn: day(1), CheckOut: day(121), NumberOfGuests: 1}, testNow)
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "check_out" {
		t.Fatalf("err = %v, want check_out validation error", err)
	}

	// 99 nights stays within 99,999,999.99.
	q, err := Quote(l, BookingRequest{CheckIn: day(1), CheckOut: day(100), NumberOfGuests: 1}, testNow)
	if err != nil || q.TotalPrice.StringFixed(2) != "99000000.00" {
		t.Fatalf("q = %+v err = %v", q, err)
	}
}
