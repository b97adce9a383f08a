package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/queue"
)

const dateLayout = "2006-01-02"

// notifications builds and enqueues emails.  Lookup failures are logged
// and the email skipped; they never fail the operation that triggered it.
type notifications struct {
	listings ListingStore
	users    UserStore
	out      Notifier
	log      logrus.FieldLogger
}

func (n notifications) base(ctx context.Context, kind string, b model.Booking) (queue.Notification, bool) {
	if n.out == nil {
		return queue.Notification{}, false
	}
	entry := n.log.WithFields(logrus.Fields{"kind": kind, "booking_id": b.ID})
	u, err := n.users.GetByID(ctx, b.UserID)
	if err != nil {
		entry.WithError(err).Warn("notification skipped: user lookup failed")
		return queue.Notification{}, false
	}
	msg := queue.Notification{
		Kind:             kind,
		Email:            u.Email,
		RecipientName:    strings.TrimSpace(u.FirstName + " " + u.LastName),
		BookingID:        b.ID,
		BookingReference: b.Reference(),
		CheckIn:          b.CheckIn.Format(dateLayout),
		CheckOut:         b.CheckOut.Format(dateLayout),
		NumberOfGuests:   b.NumberOfGuests,
		TotalPrice:       b.TotalPrice.StringFixed(2),
		BookingStatus:    b.Status,
		CreatedAt:        b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if l, err := n.listings.GetByID(ctx, b.ListingID); err == nil {
		msg.ListingTitle = l.Title
	}
	return msg, true
}

func (n notifications) booking(ctx context.Context, b model.Booking) {
	if msg, ok := n.base(ctx, queue.KindBookingConfirmation, b); ok {
		n.out.Enqueue(msg)
	}
}

func (n notifications) payment(ctx context.Context, b model.Booking, p model.Payment) {
	msg, ok := n.base(ctx, queue.KindPaymentConfirmation, b)
	if !ok {
		return
	}
	msg.TransactionID = p.TransactionID
	msg.Amount = p.Amount.StringFixed(2)
	msg.Currency = p.Currency
	msg.PaymentMethod = p.PaymentMethod
	if p.PaymentDate != nil {
		msg.PaidAt = p.PaymentDate.UTC().Format(time.RFC3339)
	}
	n.out.Enqueue(msg)
}
