// Package service implements the booking and payment lifecycle on top of
// the repositories, the payment gateway and the notification publisher.
package service

import (
	"errors"
	"fmt"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/repository"
)

// Sentinel errors returned by the services.  Handlers match them with
// errors.Is; each maps to one HTTP status.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyInitiated   = errors.New("payment already initiated for this booking")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable, please retry")
)

// ValidationError is a client input problem.  Field names the offending
// input; Message is safe to show to the client.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

// GatewayRejectedError is a business refusal by the payment gateway, for
// example an invalid amount or payer email.
type GatewayRejectedError struct {
	Reason string
}

func (e *GatewayRejectedError) Error() string {
	return "payment gateway rejected the request: " + e.Reason
}

// AlreadyInitiatedError carries the existing checkout URL when it is
// known.  It matches ErrAlreadyInitiated.
type AlreadyInitiatedError struct {
	TransactionID string
	PaymentURL    string
}

func (e *AlreadyInitiatedError) Error() string { return ErrAlreadyInitiated.Error() }

func (e *AlreadyInitiatedError) Is(target error) bool { return target == ErrAlreadyInitiated }

// notFound converts the repository sentinel into the service one and
// passes everything else through.
func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
