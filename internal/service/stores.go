package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/gateway"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/queue"
)

// The interfaces below are satisfied by the MySQL repositories and by the
// in-memory store in servicetest.  Lookups return repository.ErrNotFound.

type ListingStore interface {
	GetByID(ctx context.Context, id uint64) (model.Listing, error)
}

type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	GetForUser(ctx context.Context, id, userID uint64) (model.Booking, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error)
	UpdateSpecialRequests(ctx context.Context, id, userID uint64, text string) error
	// TransitionStatus moves the booking to `to` only if its current status
	// is one of from, and reports whether it did.
	TransitionStatus(ctx context.Context, id uint64, from []string, to string) (bool, error)
	CompleteFinished(ctx context.Context, today time.Time) (int64, error)
}

type PaymentStore interface {
	GetByBookingID(ctx context.Context, bookingID uint64) (model.Payment, error)
	GetByTransactionIDForUser(ctx context.Context, txnID string, userID uint64) (model.Payment, error)
	GetByGatewayTransactionID(ctx context.Context, ref string) (model.Payment, error)
	// CreateIfAbsent returns repository.ErrAlreadyExists when the booking
	// already has a payment and repository.ErrDuplicate on any other
	// unique key collision.
	CreateIfAbsent(ctx context.Context, p *model.Payment) error
	// Complete moves pending → completed and cascades the booking
	// pending → confirmed atomically.  completed is false for every caller
	// but the one that won the transition.
	Complete(ctx context.Context, paymentID, bookingID uint64, method string, raw json.RawMessage, at time.Time) (completed bool, bookingStatus string, err error)
	Fail(ctx context.Context, paymentID uint64, raw json.RawMessage) (bool, error)
	// SaveRawResponse only writes while the payment is pending.
	SaveRawResponse(ctx context.Context, paymentID uint64, raw json.RawMessage) (bool, error)
	// RecordResponse appends to the payment's event log.
	RecordResponse(ctx context.Context, paymentID uint64, source string, raw json.RawMessage) error
	ExpirePending(ctx context.Context, cutoff time.Time) (int64, error)
}

type UserStore interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Gateway is the payment provider.  *gateway.Client implements it.
type Gateway interface {
	Initialize(ctx context.Context, req gateway.InitializeRequest) (gateway.InitializeResult, error)
	Verify(ctx context.Context, reference string) (gateway.VerifyResult, error)
}

// Notifier queues an email.  Enqueue must not block.
type Notifier interface {
	Enqueue(n queue.Notification)
}

// Locker provides short lived mutual exclusion keyed by string.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// noLock is used when no Locker is configured.
type noLock struct{}

func (noLock) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
