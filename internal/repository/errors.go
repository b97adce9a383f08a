// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers to distinguish
// between different failure scenarios without inspecting driver errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup matches no row, including lookups
// scoped to an owner that does not own the row.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned by PaymentRepo.CreateIfAbsent when the
// booking already has a payment.
var ErrAlreadyExists = errors.New("record already exists")

// ErrDuplicate is returned when an insert violates a unique key other
// than the one the caller guards against explicitly (e.g. an email or a
// transaction id collision).
var ErrDuplicate = errors.New("duplicate key")

// isDup reports whether err is a MySQL duplicate key error (1062).
func isDup(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// dupKeyName returns the name of the violated index from a 1062 message,
// e.g. "Duplicate entry '7' for key 'payments.ux_payments_booking'".
func dupKeyName(err error) string {
	var me *mysql.MySQLError
	if !errors.As(err, &me) {
		return ""
	}
	i := strings.LastIndex(me.Message, "for key '")
	if i < 0 {
		return ""
	}
	key := strings.TrimSuffix(me.Message[i+len("for key '"):], "'")
	if dot := strings.LastIndex(key, "."); dot >= 0 {
		key = key[dot+1:]
	}
	return key
}
