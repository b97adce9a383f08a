package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
)

var bookingCols = []string{"id", "user_id", "listing_id", "check_in", "check_out", "number_of_guests", "total_price",
	"status", "special_requests", "created_at", "updated_at"}

func TestBookingTransitionStatusGuards(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBookingRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ? WHERE id = ? AND status IN (?, ?)")).
		WithArgs(model.BookingCancelled, uint64(5), model.BookingPending, model.BookingConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.TransitionStatus(context.Background(), 5,
		[]string{model.BookingPending, model.BookingConfirmed}, model.BookingCancelled)
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v", ok, err)
	}

	ok, err = repo.TransitionStatus(context.Background(), 5, nil, model.BookingCancelled)
	if err != nil || ok {
		t.Fatalf("empty from: ok=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestBookingGetForUserScopesOwner(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ? AND user_id = ?")).
		WithArgs(uint64(5), uint64(2)).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	_, err := NewBookingRepo(db).GetForUser(context.Background(), 5, 2)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestBookingCreateReadsBack(t *testing.T) {
	db, mock := newMock(t)
	in := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	out := in.AddDate(0, 0, 3)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(uint64(2), uint64(1), "2026-03-11", "2026-03-14", 2, sqlmock.AnyArg(), model.BookingPending, "").
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ?")).
		WithArgs(int64(12)).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(12, 2, 1, in, out, 2, "150.00", "pending", "", created, created))

	b := &model.Booking{UserID: 2, ListingID: 1, CheckIn: in, CheckOut: out, NumberOfGuests: 2, Status: model.BookingPending}
	if err := NewBookingRepo(db).Create(context.Background(), b); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.Reference() != "BOOK-000012-20260301" {
		t.Fatalf("reference = %q", b.Reference())
	}
	if b.TotalPrice.StringFixed(2) != "150.00" {
		t.Fatalf("total = %s", b.TotalPrice)
	}
}

func TestBookingCompleteFinished(t *testing.T) {
	db, mock := newMock(t)
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ? WHERE status = ? AND check_out < ?")).
		WithArgs(model.BookingCompleted, model.BookingConfirmed, "2026-03-01").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := NewBookingRepo(db).CompleteFinished(context.Background(), today)
	if err != nil || n != 2 {
		t.Fatalf("got n=%d err=%v", n, err)
	}
}

func TestBookingUpdateSpecialRequestsUnknown(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET special_requests = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE id = ? AND user_id = ?")).
		WillReturnRows(sqlmock.NewRows(bookingCols))

	err := NewBookingRepo(db).UpdateSpecialRequests(context.Background(), 5, 2, "late arrival")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("ann@example.com", sqlmock.AnyArg(), "Ann", "Lee", "", model.RoleGuest).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ann@example.com' for key 'users.email'"})

	_, err := NewUserRepo(db).Create(context.Background(), NewUser{
		Email: "  Ann@Example.com ", Password: "secret-pass", FirstName: "Ann", LastName: "Lee", Role: model.RoleGuest,
	}, 4)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("want ErrDuplicate, got %v", err)
	}
}

func TestUserGetByEmailNormalizes(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("ann@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewUserRepo(db).GetByEmail(context.Background(), " ANN@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
