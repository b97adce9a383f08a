// Package queue defines the notification payloads exchanged over the
// message broker and the consumer that turns them into emails.
package queue

import (
	"fmt"
	"strings"
)

// NotificationQueue is the durable queue both the publisher and the
// consumer declare.
const NotificationQueue = "notifications.email"

// Notification kinds.
const (
	KindBookingConfirmation = "booking.confirmation"
	KindPaymentConfirmation = "payment.confirmation"
)

// Notification is published after a booking is created (or a resend is
// requested) and after a payment completes.  It carries everything the
// email needs so the consumer never queries the primary database.
type Notification struct {
	Kind             string `json:"kind"`
	Email            string `json:"email"`
	RecipientName    string `json:"recipient_name"`
	BookingID        uint64 `json:"booking_id"`
	BookingReference string `json:"booking_reference"`
	ListingTitle     string `json:"listing_title,omitempty"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	NumberOfGuests   int    `json:"number_of_guests"`
	TotalPrice       string `json:"total_price"`
	BookingStatus    string `json:"booking_status"`
	TransactionID    string `json:"transaction_id,omitempty"`
	Amount           string `json:"amount,omitempty"`
	Currency         string `json:"currency,omitempty"`
	PaymentMethod    string `json:"payment_method,omitempty"`
	PaidAt           string `json:"paid_at,omitempty"`
	CreatedAt        string `json:"created_at"`
}

// Validate rejects payloads the consumer cannot deliver.
func (n Notification) Validate() error {
	switch n.Kind {
	case KindBookingConfirmation, KindPaymentConfirmation:
	default:
		return fmt.Errorf("unknown notification kind %q", n.Kind)
	}
	if strings.TrimSpace(n.Email) == "" {
		return fmt.Errorf("notification %s for booking %d has no recipient", n.Kind, n.BookingID)
	}
	return nil
}

// Render returns the plain text subject and body for the notification.
func (n Notification) Render(siteName string) (subject, body string) {
	name := n.RecipientName
	if name == "" {
		name = n.Email
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)
	switch n.Kind {
	case KindPaymentConfirmation:
		subject = fmt.Sprintf("Payment Confirmed - Booking #%s", n.BookingReference)
		fmt.Fprintf(&b, "We received your payment for booking %s.\n\n", n.BookingReference)
		fmt.Fprintf(&b, "Transaction: %s\n", n.TransactionID)
		fmt.Fprintf(&b, "Amount: %s %s\n", n.Amount, n.Currency)
		if n.PaymentMethod != "" {
			fmt.Fprintf(&b, "Method: %s\n", n.PaymentMethod)
		}
		if n.PaidAt != "" {
			fmt.Fprintf(&b, "Paid at: %s\n", n.PaidAt)
		}
	default:
		subject = fmt.Sprintf("Booking Confirmation - %s", n.BookingReference)
		fmt.Fprintf(&b, "Thank you for your booking %s.\n\n", n.BookingReference)
	}
	if n.ListingTitle != "" {
		fmt.Fprintf(&b, "Listing: %s\n", n.ListingTitle)
	}
	fmt.Fprintf(&b, "Check-in: %s\nCheck-out: %s\nGuests: %d\nTotal: %s\nStatus: %s\n",
		n.CheckIn, n.CheckOut, n.NumberOfGuests, n.TotalPrice, n.BookingStatus)
	fmt.Fprintf(&b, "\n%s\n", siteName)
	return subject, b.String()
}
