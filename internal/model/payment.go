package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment statuses.  Pending is the only non-terminal state; refunded is
// reached only through an external process.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// DefaultCurrency is used when a payment is created without an explicit
// currency code.
const DefaultCurrency = "ETB"

var paymentTransitions = map[string][]string{
	PaymentPending:   {PaymentCompleted, PaymentFailed},
	PaymentCompleted: {PaymentRefunded},
	PaymentFailed:    {},
	PaymentRefunded:  {},
}

// CanTransitionPayment reports whether a payment may move from one status
// to another.
func CanTransitionPayment(from, to string) bool {
	for _, s := range paymentTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Payment is the financial record attached one-to-one to a booking.
//
// Fields:
//
//	TransactionID        – local id, TXN-XXXXXXXXXXXX, set once before insert.
//	GatewayTransactionID – reference issued by the gateway, matched by webhooks.
//	Amount               – copy of Booking.TotalPrice at creation time.
//	RawResponse          – payload the final status rests on; answers that
//	                       arrive after settlement go to payment_events.
//	PaymentDate          – set when the payment completes.
type Payment struct {
	ID                   uint64          `json:"id"`                     // payments.id
	BookingID            uint64          `json:"booking_id"`             // payments.booking_id (unique)
	TransactionID        string          `json:"transaction_id"`         // payments.transaction_id (unique)
	GatewayTransactionID *string         `json:"gateway_transaction_id"` // payments.gateway_transaction_id (nullable, unique)
	Amount               decimal.Decimal `json:"amount"`                 // payments.amount
	Currency             string          `json:"currency"`               // payments.currency
	Status               string          `json:"status"`                 // payments.status
	PaymentMethod        string          `json:"payment_method"`         // payments.payment_method
	PaymentDate          *time.Time      `json:"payment_date"`           // payments.payment_date (nullable)
	RawResponse          json.RawMessage `json:"-"`                      // payments.raw_response (JSON)
	CreatedAt            time.Time       `json:"created_at"`             // payments.created_at
	UpdatedAt            time.Time       `json:"updated_at"`             // payments.updated_at
}

// NewTransactionID returns a fresh local transaction id: "TXN-" followed by
// the first 12 hex characters of a random UUID, upper-cased.
func NewTransactionID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TXN-" + strings.ToUpper(hex[:12])
}

// CheckoutURL extracts data.checkout_url from the stored initialize
// response.  It returns an empty string when the raw response is missing
// or does not carry one.
func (p *Payment) CheckoutURL() string {
	if p == nil || len(p.RawResponse) == 0 {
		return ""
	}
	var body struct {
		Data struct {
			CheckoutURL string `json:"checkout_url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(p.RawResponse, &body); err != nil {
		return ""
	}
	return body.Data.CheckoutURL
}
