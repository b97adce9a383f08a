package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/queue"
)

func TestCreateBookingDerivesPriceAndStatus(t *testing.T) {
	f := newFixture()
	b, err := f.bookings.Create(context.Background(), f.user.ID, BookingRequest{
		ListingID:       f.listing.ID,
		CheckIn:         day(1),
		CheckOut:        day(4),
		NumberOfGuests:  3,
		SpecialRequests: "late arrival",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Status != model.BookingPending {
		t.Fatalf("status = %s, want pending", b.Status)
	}
	if !b.TotalPrice.Equal(decimal.RequireFromString("150")) {
		t.Fatalf("total = %s, want 150.00", b.TotalPrice)
	}
	if b.Reference() == "" {
		t.Fatal("reference must be set after persistence")
	}
	sent := f.notifier.Sent()
	if len(sent) != 1 || sent[0].Kind != queue.KindBookingConfirmation {
		t.Fatalf("notifications = %+v", sent)
	}
	if sent[0].Email != f.user.Email || sent[0].BookingReference != b.Reference() || sent[0].TotalPrice != "150.00" {
		t.Fatalf("unexpected notification %+v", sent[0])
	}
}

func TestCreateBookingUnknownListing(t *testing.T) {
	f := newFixture()
	_, err := f.bookings.Create(context.Background(), f.user.ID, BookingRequest{
		ListingID: 999, CheckIn: day(1), CheckOut: day(2), NumberOfGuests: 1,
	})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "listing" {
		t.Fatalf("err = %v, want listing validation error", err)
	}
	if len(f.notifier.Sent()) != 0 {
		t.Fatal("no notification expected for a rejected booking")
	}
}

func TestBookingScopedToOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.bookings.Get(ctx, f.booking.ID, f.other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get by other user: err = %v, want ErrNotFound", err)
	}
	if _, err := f.bookings.Cancel(ctx, f.booking.ID, f.other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Cancel by other user: err = %v, want ErrNotFound", err)
	}
	list, err := f.bookings.List(ctx, f.other.ID)
	if err != nil || len(list) != 0 {
		t.Fatalf("List other = %v, %v", list, err)
	}
}

func TestCancelBooking(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b, err := f.bookings.Cancel(ctx, f.booking.ID, f.user.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if b.Status != model.BookingCancelled {
		t.Fatalf("status = %s", b.Status)
	}
	_, err = f.bookings.Cancel(ctx, f.booking.ID, f.user.ID)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("second cancel: err = %v, want validation error", err)
	}
}

func TestUpdateSpecialRequests(t *testing.T) {
	f := newFixture()
	b, err := f.bookings.UpdateSpecialRequests(context.Background(), f.booking.ID, f.user.ID, "crib please")
	if err != nil {
		t.Fatalf("UpdateSpecialRequests: %v", err)
	}
	if b.SpecialRequests != "crib please" || b.Status != model.BookingPending {
		t.Fatalf("booking = %+v", b)
	}
}

func TestResendConfirmation(t *testing.T) {
	f := newFixture()
	if _, err := f.bookings.ResendConfirmation(context.Background(), f.booking.ID, f.user.ID); err != nil {
		t.Fatalf("ResendConfirmation: %v", err)
	}
	if n := f.notifier.Count(queue.KindBookingConfirmation); n != 1 {
		t.Fatalf("booking notifications = %d, want 1", n)
	}
}

func TestCompleteFinishedStays(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	done := f.store.AddBooking(model.Booking{
		UserID: f.user.ID, ListingID: f.listing.ID, CheckIn: day(-5), CheckOut: day(-1),
		NumberOfGuests: 1, Status: model.BookingConfirmed,
	})
	ongoing := f.store.AddBooking(model.Booking{
		UserID: f.user.ID, ListingID: f.listing.ID, CheckIn: day(-1), CheckOut: day(0),
		NumberOfGuests: 1, Status: model.BookingConfirmed,
	})
	n, err := f.bookings.CompleteFinishedStays(ctx)
	if err != nil || n != 1 {
		t.Fatalf("CompleteFinishedStays = %d, %v; want 1", n, err)
	}
	if f.store.Booking(done.ID).Status != model.BookingCompleted {
		t.Fatal("finished stay not completed")
	}
	if f.store.Booking(ongoing.ID).Status != model.BookingConfirmed {
		t.Fatal("stay ending today must stay confirmed")
	}
	if f.store.Booking(f.booking.ID).Status != model.BookingPending {
		t.Fatal("pending booking must not change")
	}
}
