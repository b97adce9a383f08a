package service

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/service/servicetest"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func day(offset int) time.Time {
	return model.DateOf(testNow).AddDate(0, 0, offset)
}

type fixture struct {
	store    *servicetest.Store
	gw       *servicetest.Gateway
	notifier *servicetest.Notifier
	listing  model.Listing
	user     model.User
	other    model.User
	booking  model.Booking
	bookings *BookingService
	payments *PaymentService
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		store:    servicetest.NewStore(),
		gw:       &servicetest.Gateway{},
		notifier: &servicetest.Notifier{},
		now:      testNow,
	}
	clock := func() time.Time { return f.now }
	f.store.Now = clock
	f.listing = f.store.AddListing(model.Listing{
		Title:         "Lakeside cabin",
		PricePerNight: decimal.RequireFromString("50.00"),
		MaxGuests:     4,
		IsAvailable:   true,
	})
	f.user = f.store.AddUser(model.User{Email: "guest@example.com", FirstName: "Abebe", LastName: "Kebede"})
	f.other = f.store.AddUser(model.User{Email: "other@example.com"})
	f.booking = f.store.AddBooking(model.Booking{
		UserID:         f.user.ID,
		ListingID:      f.listing.ID,
		CheckIn:        day(10),
		CheckOut:       day(13),
		NumberOfGuests: 2,
		TotalPrice:     decimal.RequireFromString("150.00"),
		Status:         model.BookingPending,
	})
	f.bookings = &BookingService{
		Listings: f.store.Listings(),
		Bookings: f.store.Bookings(),
		Users:    f.store.Users(),
		Notifier: f.notifier,
		Log:      quietLogger(),
		Now:      clock,
	}
	f.payments = &PaymentService{
		Bookings: f.store.Bookings(),
		Payments: f.store.Payments(),
		Listings: f.store.Listings(),
		Users:    f.store.Users(),
		Gateway:  f.gw,
		Notifier: f.notifier,
		Log:      quietLogger(),
		Settings: PaymentSettings{
			ReturnURL: "https://app.example.test/bookings/{booking_id}/done",
			Expiry:    30 * time.Minute,
		},
		Now: clock,
	}
	return f
}
