package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
)

// BookingRepo provides data access to the bookings table.  Bookings are
// never deleted here; status changes go through TransitionStatus so the
// previous status is always part of the WHERE clause.
type BookingRepo struct{ db *sql.DB }

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, listing_id, check_in, check_out, number_of_guests, total_price,
	status, special_requests, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }, b *model.Booking) error {
	return row.Scan(&b.ID, &b.UserID, &b.ListingID, &b.CheckIn, &b.CheckOut, &b.NumberOfGuests,
		&b.TotalPrice, &b.Status, &b.SpecialRequests, &b.CreatedAt, &b.UpdatedAt)
}

// Create inserts a new booking and populates the generated id and
// timestamps on b.  The status column is written from b.Status; callers
// are expected to pass model.BookingPending.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, listing_id, check_in, check_out, number_of_guests, total_price, status, special_requests)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		b.UserID, b.ListingID, b.CheckIn.Format("2006-01-02"), b.CheckOut.Format("2006-01-02"),
		b.NumberOfGuests, b.TotalPrice, b.Status, b.SpecialRequests)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	err = scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id), b)
	if err != nil {
		return err
	}
	return nil
}

// GetByID returns a booking regardless of its owner.  It is used by
// flows that have no requester, such as webhooks.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	var b model.Booking
	err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id), &b)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}

// GetForUser returns the booking only when it belongs to userID.  A
// booking owned by somebody else is reported as ErrNotFound.
func (r *BookingRepo) GetForUser(ctx context.Context, id, userID uint64) (model.Booking, error) {
	var b model.Booking
	err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? AND user_id = ?`, id, userID), &b)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrNotFound
	}
	return b, err
}

// ListByUser returns all bookings of a user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		var b model.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateSpecialRequests changes the free text field of a booking owned by
// userID.
func (r *BookingRepo) UpdateSpecialRequests(ctx context.Context, id, userID uint64, text string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET special_requests = ? WHERE id = ? AND user_id = ?`, text, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetForUser(ctx, id, userID); err != nil {
			return err
		}
	}
	return nil
}

// TransitionStatus moves the booking to `to` only if its current status is
// one of `from`.  It returns false when the guard did not match, which
// means another writer changed the status first or the transition is not
// applicable.
func (r *BookingRepo) TransitionStatus(ctx context.Context, id uint64, from []string, to string) (bool, error) {
	if len(from) == 0 {
		return false, nil
	}
	q := `UPDATE bookings SET status = ? WHERE id = ? AND status IN (?` + repeatPlaceholders(len(from)-1) + `)`
	args := make([]any, 0, len(from)+2)
	args = append(args, to, id)
	for _, s := range from {
		args = append(args, s)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CompleteFinished marks confirmed bookings whose check-out date is before
// `today` as completed and returns how many rows changed.
func (r *BookingRepo) CompleteFinished(ctx context.Context, today time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE status = ? AND check_out < ?`,
		model.BookingCompleted, model.BookingConfirmed, today.Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func repeatPlaceholders(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ", ?"
	}
	return s
}
