package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
)

// PaymentRepo provides data access to the payments table.  Every status
// change is a conditional UPDATE guarded by the expected previous status,
// so of several concurrent writers exactly one observes RowsAffected == 1.
type PaymentRepo struct{ db *sql.DB }

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = `p.id, p.booking_id, p.transaction_id, p.gateway_transaction_id, p.amount, p.currency,
	p.status, p.payment_method, p.payment_date, p.raw_response, p.created_at, p.updated_at`

func scanPayment(row interface{ Scan(...any) error }, p *model.Payment) error {
	var (
		gatewayTxn sql.NullString
		paidAt     sql.NullTime
		raw        []byte
	)
	if err := row.Scan(&p.ID, &p.BookingID, &p.TransactionID, &gatewayTxn, &p.Amount, &p.Currency,
		&p.Status, &p.PaymentMethod, &paidAt, &raw, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return err
	}
	if gatewayTxn.Valid {
		ref := gatewayTxn.String
		p.GatewayTransactionID = &ref
	}
	if paidAt.Valid {
		t := paidAt.Time
		p.PaymentDate = &t
	}
	if len(raw) > 0 {
		p.RawResponse = json.RawMessage(raw)
	}
	return nil
}

func (r *PaymentRepo) getOne(ctx context.Context, q string, args ...any) (model.Payment, error) {
	var p model.Payment
	err := scanPayment(r.db.QueryRowContext(ctx, q, args...), &p)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Payment{}, ErrNotFound
	}
	return p, err
}

// GetByBookingID returns the payment attached to a booking or ErrNotFound.
func (r *PaymentRepo) GetByBookingID(ctx context.Context, bookingID uint64) (model.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.booking_id = ?`, bookingID)
}

// GetByTransactionIDForUser looks a payment up by its local transaction id,
// restricted to bookings owned by userID.
func (r *PaymentRepo) GetByTransactionIDForUser(ctx context.Context, txnID string, userID uint64) (model.Payment, error) {
	return r.getOne(ctx,
		`SELECT `+paymentColumns+` FROM payments p JOIN bookings b ON b.id = p.booking_id
		 WHERE p.transaction_id = ? AND b.user_id = ?`, txnID, userID)
}

// GetByGatewayTransactionID looks a payment up by the gateway reference.
func (r *PaymentRepo) GetByGatewayTransactionID(ctx context.Context, ref string) (model.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.gateway_transaction_id = ?`, ref)
}

// CreateIfAbsent inserts p only when its booking has no payment yet.  The
// check and the insert are one statement; the unique index on booking_id
// settles the case where two inserts pass the NOT EXISTS at the same time.
// It returns ErrAlreadyExists when the booking already has a payment and
// ErrDuplicate when another unique key (transaction id, gateway reference)
// collides.  On success p is refreshed from the database.
func (r *PaymentRepo) CreateIfAbsent(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, transaction_id, gateway_transaction_id, amount, currency, status, raw_response)
	           SELECT ?, ?, ?, ?, ?, ?, ? FROM DUAL
	           WHERE NOT EXISTS (SELECT 1 FROM payments WHERE booking_id = ?)`
	var gatewayTxn any
	if p.GatewayTransactionID != nil {
		gatewayTxn = *p.GatewayTransactionID
	}
	res, err := r.db.ExecContext(ctx, q,
		p.BookingID, p.TransactionID, gatewayTxn, p.Amount, p.Currency, p.Status, jsonArg(p.RawResponse),
		p.BookingID)
	if err != nil {
		if isDup(err) {
			if dupKeyName(err) == "ux_payments_booking" {
				return ErrAlreadyExists
			}
			return fmt.Errorf("%w: %s", ErrDuplicate, dupKeyName(err))
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	fresh, err := r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.transaction_id = ?`, p.TransactionID)
	if err != nil {
		return err
	}
	*p = fresh
	return nil
}

// Complete moves a pending payment to completed and its booking from
// pending to confirmed in one transaction.  completed is false when the
// payment was no longer pending; nothing is written in that case.  The
// returned booking status is the status after the transaction, which is
// not confirmed if the booking had been cancelled in the meantime.
func (r *PaymentRepo) Complete(ctx context.Context, paymentID, bookingID uint64, method string, raw json.RawMessage, at time.Time) (completed bool, bookingStatus string, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, "", err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE payments SET status = ?, payment_date = ?, payment_method = ?, raw_response = ?
		 WHERE id = ? AND status = ?`,
		model.PaymentCompleted, at.UTC(), method, jsonArg(raw), paymentID, model.PaymentPending)
	if err != nil {
		return false, "", err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, "", err
	}
	if n == 0 {
		return false, "", nil
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ? AND status = ?`,
		model.BookingConfirmed, bookingID, model.BookingPending)
	if err != nil {
		return false, "", err
	}
	bookingStatus = model.BookingConfirmed
	if n, err = res.RowsAffected(); err != nil {
		return false, "", err
	}
	if n == 0 {
		if err := tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ?`, bookingID).Scan(&bookingStatus); err != nil {
			return false, "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, "", err
	}
	committed = true
	return true, bookingStatus, nil
}

// Fail moves a pending payment to failed and stores raw.  It returns false
// when the payment was no longer pending.
func (r *PaymentRepo) Fail(ctx context.Context, paymentID uint64, raw json.RawMessage) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ?, raw_response = ? WHERE id = ? AND status = ?`,
		model.PaymentFailed, jsonArg(raw), paymentID, model.PaymentPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SaveRawResponse replaces the payload of a payment that is still
// pending.  It reports false, and changes nothing, once the payment has
// settled.
func (r *PaymentRepo) SaveRawResponse(ctx context.Context, paymentID uint64, raw json.RawMessage) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET raw_response = ? WHERE id = ? AND status = ?`,
		jsonArg(raw), paymentID, model.PaymentPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// RecordResponse appends a gateway answer to payment_events.
func (r *PaymentRepo) RecordResponse(ctx context.Context, paymentID uint64, source string, raw json.RawMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_events (payment_id, source, raw_response) VALUES (?, ?, ?)`,
		paymentID, source, jsonArg(raw))
	if err != nil {
		return fmt.Errorf("record payment event: %w", err)
	}
	return nil
}

// ExpirePending fails every payment still pending that was created before
// cutoff and returns the number of payments changed.  Payments that a
// concurrent completion already moved out of pending are not matched.
func (r *PaymentRepo) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE payments SET status = ? WHERE status = ? AND created_at < ?`,
		model.PaymentFailed, model.PaymentPending, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// jsonArg converts a raw JSON payload into a driver argument.  JSON columns
// reject binary strings, so the payload is sent as text; an empty payload
// becomes NULL.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
