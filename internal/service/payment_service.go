package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/gateway"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/repository"
)

// createAttempts bounds retries on a transaction id collision.
const createAttempts = 3

// PaymentSettings holds the tunables of PaymentService.
type PaymentSettings struct {
	Currency    string
	CallbackURL string
	ReturnURL   string // {booking_id} is substituted
	Expiry      time.Duration
	LockTTL     time.Duration
}

// PaymentService drives the payment state machine.  Every transition out
// of pending goes through a conditional update in the store; only the
// caller that performed it cascades the booking and sends the email, so
// verify, webhook and the expiry sweep can race freely.
type PaymentService struct {
	Bookings BookingStore
	Payments PaymentStore
	Listings ListingStore
	Users    UserStore
	Gateway  Gateway
	Notifier Notifier
	Locker   Locker
	Log      logrus.FieldLogger
	Settings PaymentSettings
	Now      func() time.Time
}

func (s *PaymentService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *PaymentService) locker() Locker {
	if s.Locker == nil {
		return noLock{}
	}
	return s.Locker
}

func (s *PaymentService) currency() string {
	if s.Settings.Currency == "" {
		return model.DefaultCurrency
	}
	return s.Settings.Currency
}

// InitiateResult is returned by Initiate.
type InitiateResult struct {
	PaymentURL       string
	TransactionID    string
	BookingReference string
	Payment          model.Payment
}

// Initiate opens a gateway checkout for a pending booking of userID and
// records the payment.  A booking gets at most one payment for its whole
// life; a second call returns an *AlreadyInitiatedError.
func (s *PaymentService) Initiate(ctx context.Context, bookingID, userID uint64) (InitiateResult, error) {
	b, err := s.Bookings.GetForUser(ctx, bookingID, userID)
	if err != nil {
		return InitiateResult{}, notFound(err)
	}
	if err := s.ensureNoPayment(ctx, b.ID); err != nil {
		return InitiateResult{}, err
	}
	if b.Status != model.BookingPending {
		return InitiateResult{}, invalid("booking_id", "booking is not in pending status")
	}

	release, ok, err := s.locker().Acquire(ctx, "payment:initiate:"+strconv.FormatUint(b.ID, 10), s.Settings.LockTTL)
	if err != nil {
		// The conditional insert still guarantees a single payment.
		s.Log.WithError(err).WithField("booking_id", b.ID).Warn("initiate lock unavailable")
	} else if !ok {
		return InitiateResult{}, &AlreadyInitiatedError{}
	}
	defer release()
	if err := s.ensureNoPayment(ctx, b.ID); err != nil {
		return InitiateResult{}, err
	}

	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return InitiateResult{}, fmt.Errorf("load payer: %w", err)
	}
	id := strconv.FormatUint(b.ID, 10)
	txRef := fmt.Sprintf("booking-%d-%d", b.ID, s.now().UnixMilli())
	res, err := s.Gateway.Initialize(ctx, gateway.InitializeRequest{
		Amount:      b.TotalPrice,
		Currency:    s.currency(),
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		PhoneNumber: u.PhoneNumber,
		TxRef:       txRef,
		CallbackURL: s.Settings.CallbackURL,
		ReturnURL:   strings.ReplaceAll(s.Settings.ReturnURL, "{booking_id}", id),
		Customization: gateway.Customization{
			Title:       "Booking Payment",
			Description: "Payment for booking " + b.Reference(),
		},
	})
	if err != nil {
		return InitiateResult{}, s.gatewayError(err, "initialize", b.ID)
	}

	ref := res.Reference
	p := model.Payment{
		BookingID:            b.ID,
		GatewayTransactionID: &ref,
		Amount:               b.TotalPrice,
		Currency:             s.currency(),
		Status:               model.PaymentPending,
		RawResponse:          res.Raw,
	}
	for attempt := 1; ; attempt++ {
		p.TransactionID = model.NewTransactionID()
		err = s.Payments.CreateIfAbsent(ctx, &p)
		if errors.Is(err, repository.ErrDuplicate) && attempt < createAttempts {
			continue
		}
		break
	}
	if errors.Is(err, repository.ErrAlreadyExists) {
		// Another initiate won between our check and the insert; its
		// checkout stays the valid one.
		s.Log.WithField("booking_id", b.ID).Warn("concurrent initiate lost; gateway checkout orphaned")
		return InitiateResult{}, s.alreadyInitiated(ctx, b.ID)
	}
	if err != nil {
		return InitiateResult{}, fmt.Errorf("create payment: %w", err)
	}

	s.Log.WithFields(logrus.Fields{
		"booking_id":     b.ID,
		"transaction_id": p.TransactionID,
		"amount":         p.Amount.StringFixed(2),
	}).Info("payment initiated")
	return InitiateResult{
		PaymentURL:       res.CheckoutURL,
		TransactionID:    p.TransactionID,
		BookingReference: b.Reference(),
		Payment:          p,
	}, nil
}

func (s *PaymentService) ensureNoPayment(ctx context.Context, bookingID uint64) error {
	_, err := s.Payments.GetByBookingID(ctx, bookingID)
	if err == nil {
		return s.alreadyInitiated(ctx, bookingID)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("load payment: %w", err)
}

func (s *PaymentService) alreadyInitiated(ctx context.Context, bookingID uint64) error {
	e := &AlreadyInitiatedError{}
	if p, err := s.Payments.GetByBookingID(ctx, bookingID); err == nil {
		e.TransactionID = p.TransactionID
		if p.Status == model.PaymentPending {
			e.PaymentURL = p.CheckoutURL()
		}
	}
	return e
}

// gatewayError maps gateway failures onto the service taxonomy.  The
// underlying cause is logged, not returned, so it never reaches a client.
func (s *PaymentService) gatewayError(err error, op string, bookingID uint64) error {
	entry := s.Log.WithError(err).WithFields(logrus.Fields{"op": op, "booking_id": bookingID})
	var rej *gateway.RejectedError
	switch {
	case errors.As(err, &rej):
		entry.Warn("gateway rejected request")
		return &GatewayRejectedError{Reason: rej.Message}
	case errors.Is(err, gateway.ErrUnavailable):
		entry.Warn("gateway unavailable")
		return ErrGatewayUnavailable
	default:
		entry.Error("gateway call failed")
		return ErrGatewayUnavailable
	}
}

// VerifyResult is returned by Verify.
type VerifyResult struct {
	TransactionID string
	PaymentStatus string
	BookingStatus string
	Message       string
	VerifiedAt    time.Time
}

// Verify asks the gateway for the outcome of userID's transaction and
// applies it.  A gateway outage changes nothing.
func (s *PaymentService) Verify(ctx context.Context, transactionID string, userID uint64) (VerifyResult, error) {
	p, err := s.Payments.GetByTransactionIDForUser(ctx, transactionID, userID)
	if err != nil {
		return VerifyResult{}, notFound(err)
	}
	ref := p.TransactionID
	if p.GatewayTransactionID != nil && *p.GatewayTransactionID != "" {
		ref = *p.GatewayTransactionID
	}
	res, err := s.Gateway.Verify(ctx, ref)
	if err != nil {
		return VerifyResult{}, s.gatewayError(err, "verify", p.BookingID)
	}

	if res.Success {
		_, err = s.complete(ctx, p, res.PaymentMethod, res.Raw, "verify")
	} else {
		_, err = s.fail(ctx, p, res.Raw, "verify")
	}
	if err != nil {
		return VerifyResult{}, err
	}

	fresh, err := s.Payments.GetByBookingID(ctx, p.BookingID)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("reload payment: %w", err)
	}
	b, err := s.Bookings.GetByID(ctx, p.BookingID)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("reload booking: %w", err)
	}
	msg := res.Message
	if msg == "" {
		msg = "payment " + fresh.Status
	}
	// A completed payment reports when it completed, even if a webhook
	// got there first.
	verifiedAt := s.now()
	if fresh.PaymentDate != nil {
		verifiedAt = fresh.PaymentDate.UTC()
	}
	return VerifyResult{
		TransactionID: fresh.TransactionID,
		PaymentStatus: fresh.Status,
		BookingStatus: b.Status,
		Message:       msg,
		VerifiedAt:    verifiedAt,
	}, nil
}

// complete applies a successful gateway outcome.  applied is true only for
// the caller that moved the payment out of pending.
func (s *PaymentService) complete(ctx context.Context, p model.Payment, method string, raw json.RawMessage, source string) (bool, error) {
	at := s.now()
	entry := s.Log.WithFields(logrus.Fields{"payment_id": p.ID, "booking_id": p.BookingID, "source": source})
	won, bookingStatus, err := s.Payments.Complete(ctx, p.ID, p.BookingID, method, raw, at)
	if err != nil {
		return false, fmt.Errorf("complete payment: %w", err)
	}
	if !won {
		if err := s.Payments.RecordResponse(ctx, p.ID, source, raw); err != nil {
			entry.WithError(err).Error("record late gateway response failed")
		}
		if cur, err := s.Payments.GetByBookingID(ctx, p.BookingID); err == nil && cur.Status == model.PaymentFailed {
			entry.Warn("gateway reports success for a failed payment; manual review needed")
		}
		return false, nil
	}
	if bookingStatus != model.BookingConfirmed {
		entry.WithField("booking_status", bookingStatus).Warn("payment completed but booking was not pending")
	}
	entry.Info("payment completed")

	p.Status = model.PaymentCompleted
	p.PaymentMethod = method
	p.PaymentDate = &at
	if b, err := s.Bookings.GetByID(ctx, p.BookingID); err == nil {
		s.notify().payment(ctx, b, p)
	} else {
		entry.WithError(err).Warn("payment email skipped: booking lookup failed")
	}
	return true, nil
}

func (s *PaymentService) fail(ctx context.Context, p model.Payment, raw json.RawMessage, source string) (bool, error) {
	won, err := s.Payments.Fail(ctx, p.ID, raw)
	if err != nil {
		return false, fmt.Errorf("fail payment: %w", err)
	}
	entry := s.Log.WithFields(logrus.Fields{"payment_id": p.ID, "booking_id": p.BookingID, "source": source})
	if !won {
		if err := s.Payments.RecordResponse(ctx, p.ID, source, raw); err != nil {
			entry.WithError(err).Error("record late gateway response failed")
		}
		return false, nil
	}
	entry.Info("payment failed")
	return true, nil
}

func (s *PaymentService) notify() notifications {
	return notifications{listings: s.Listings, users: s.Users, out: s.Notifier, log: s.Log}
}

// WebhookEvent is the part of a gateway callback the service acts on.
type WebhookEvent struct {
	TxRef         string
	Status        string
	PaymentMethod string
	Raw           json.RawMessage
}

// WebhookOutcome tells the caller what a webhook delivery did.
type WebhookOutcome string

const (
	WebhookApplied   WebhookOutcome = "applied"
	WebhookDuplicate WebhookOutcome = "duplicate"
	WebhookIgnored   WebhookOutcome = "ignored"
)

// HandleWebhook applies a gateway callback.  Redelivery of an event that
// was already applied is a no-op apart from storing the payload.
func (s *PaymentService) HandleWebhook(ctx context.Context, ev WebhookEvent) (WebhookOutcome, error) {
	ref := strings.TrimSpace(ev.TxRef)
	if ref == "" {
		return "", invalid("tx_ref", "tx_ref is required")
	}
	p, err := s.Payments.GetByGatewayTransactionID(ctx, ref)
	if err != nil {
		return "", notFound(err)
	}

	var applied bool
	switch strings.ToLower(strings.TrimSpace(ev.Status)) {
	case "success":
		applied, err = s.complete(ctx, p, ev.PaymentMethod, ev.Raw, "webhook")
	case "failed":
		applied, err = s.fail(ctx, p, ev.Raw, "webhook")
	default:
		saved, err := s.Payments.SaveRawResponse(ctx, p.ID, ev.Raw)
		if err != nil {
			return "", fmt.Errorf("store raw response: %w", err)
		}
		if !saved {
			if err := s.Payments.RecordResponse(ctx, p.ID, "webhook", ev.Raw); err != nil {
				return "", err
			}
		}
		s.Log.WithFields(logrus.Fields{"payment_id": p.ID, "status": ev.Status}).Info("webhook status ignored")
		return WebhookIgnored, nil
	}
	if err != nil {
		return "", err
	}
	if applied {
		return WebhookApplied, nil
	}
	return WebhookDuplicate, nil
}

// ExpirePending fails every payment still pending after the expiry window
// and returns how many it changed.  Bookings are left untouched.
func (s *PaymentService) ExpirePending(ctx context.Context) (int64, error) {
	expiry := s.Settings.Expiry
	if expiry <= 0 {
		expiry = 30 * time.Minute
	}
	return s.Payments.ExpirePending(ctx, s.now().Add(-expiry))
}

// PaymentSnapshot is the read model behind the status endpoint.
type PaymentSnapshot struct {
	TransactionID    string
	Status           string
	Amount           decimal.Decimal
	Currency         string
	BookingReference string
	PaymentMethod    string
	PaymentDate      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Status returns the current state of userID's transaction.
func (s *PaymentService) Status(ctx context.Context, transactionID string, userID uint64) (PaymentSnapshot, error) {
	p, err := s.Payments.GetByTransactionIDForUser(ctx, transactionID, userID)
	if err != nil {
		return PaymentSnapshot{}, notFound(err)
	}
	b, err := s.Bookings.GetByID(ctx, p.BookingID)
	if err != nil {
		return PaymentSnapshot{}, fmt.Errorf("load booking: %w", notFound(err))
	}
	return PaymentSnapshot{
		TransactionID:    p.TransactionID,
		Status:           p.Status,
		Amount:           p.Amount,
		Currency:         p.Currency,
		BookingReference: b.Reference(),
		PaymentMethod:    p.PaymentMethod,
		PaymentDate:      p.PaymentDate,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}, nil
}
