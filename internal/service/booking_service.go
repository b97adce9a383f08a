package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/repository"
)

// BookingService owns the booking lifecycle apart from confirmation,
// which only a completed payment performs (see PaymentService).
type BookingService struct {
	Listings ListingStore
	Bookings BookingStore
	Users    UserStore
	Notifier Notifier
	Log      logrus.FieldLogger
	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *BookingService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *BookingService) notify() notifications {
	return notifications{listings: s.Listings, users: s.Users, out: s.Notifier, log: s.Log}
}

// Create validates and prices req, stores the booking as pending and
// queues the booking confirmation email.
func (s *BookingService) Create(ctx context.Context, userID uint64, req BookingRequest) (model.Booking, error) {
	l, err := s.Listings.GetByID(ctx, req.ListingID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Booking{}, invalid("listing", "listing not found")
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("load listing: %w", err)
	}
	q, err := Quote(l, req, s.now())
	if err != nil {
		return model.Booking{}, err
	}
	b := model.Booking{
		UserID:          userID,
		ListingID:       l.ID,
		CheckIn:         model.DateOf(req.CheckIn),
		CheckOut:        model.DateOf(req.CheckOut),
		NumberOfGuests:  req.NumberOfGuests,
		TotalPrice:      q.TotalPrice,
		Status:          model.BookingPending,
		SpecialRequests: req.SpecialRequests,
	}
	if err := s.Bookings.Create(ctx, &b); err != nil {
		return model.Booking{}, fmt.Errorf("create booking: %w", err)
	}
	s.Log.WithFields(logrus.Fields{
		"booking_id": b.ID,
		"user_id":    userID,
		"listing_id": l.ID,
		"nights":     q.Nights,
		"total":      b.TotalPrice.StringFixed(2),
	}).Info("booking created")
	s.notify().booking(ctx, b)
	return b, nil
}

// Get returns a booking owned by userID.
func (s *BookingService) Get(ctx context.Context, id, userID uint64) (model.Booking, error) {
	b, err := s.Bookings.GetForUser(ctx, id, userID)
	return b, notFound(err)
}

// List returns the bookings of userID, newest first.
func (s *BookingService) List(ctx context.Context, userID uint64) ([]model.Booking, error) {
	return s.Bookings.ListByUser(ctx, userID)
}

// UpdateSpecialRequests replaces the only client editable field.
func (s *BookingService) UpdateSpecialRequests(ctx context.Context, id, userID uint64, text string) (model.Booking, error) {
	if err := s.Bookings.UpdateSpecialRequests(ctx, id, userID, text); err != nil {
		return model.Booking{}, notFound(err)
	}
	return s.Get(ctx, id, userID)
}

// Cancel moves a pending or confirmed booking to cancelled.  The payment,
// if any, is left as it is; refunds happen outside this service.
func (s *BookingService) Cancel(ctx context.Context, id, userID uint64) (model.Booking, error) {
	b, err := s.Get(ctx, id, userID)
	if err != nil {
		return model.Booking{}, err
	}
	if !model.CanTransitionBooking(b.Status, model.BookingCancelled) {
		return model.Booking{}, invalid("status", fmt.Sprintf("booking cannot be cancelled in status %s", b.Status))
	}
	ok, err := s.Bookings.TransitionStatus(ctx, id, []string{model.BookingPending, model.BookingConfirmed}, model.BookingCancelled)
	if err != nil {
		return model.Booking{}, fmt.Errorf("cancel booking: %w", err)
	}
	fresh, err := s.Get(ctx, id, userID)
	if err != nil {
		return model.Booking{}, err
	}
	if !ok {
		// Lost against a concurrent transition.
		if fresh.Status == model.BookingCancelled {
			return fresh, nil
		}
		return model.Booking{}, invalid("status", fmt.Sprintf("booking cannot be cancelled in status %s", fresh.Status))
	}
	s.Log.WithFields(logrus.Fields{"booking_id": id, "from": b.Status}).Info("booking cancelled")
	return fresh, nil
}

// ResendConfirmation queues the booking confirmation email again.
func (s *BookingService) ResendConfirmation(ctx context.Context, id, userID uint64) (model.Booking, error) {
	b, err := s.Get(ctx, id, userID)
	if err != nil {
		return model.Booking{}, err
	}
	s.notify().booking(ctx, b)
	return b, nil
}

// CompleteFinishedStays moves confirmed bookings whose check-out date has
// passed to completed.
func (s *BookingService) CompleteFinishedStays(ctx context.Context) (int64, error) {
	return s.Bookings.CompleteFinished(ctx, model.DateOf(s.now()))
}
