// Package gateway talks to the Chapa payment gateway.  It wraps the two
// calls the booking flow needs, transaction/initialize and
// transaction/verify, and translates their responses into plain Go values.
// Retrying is left to the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// maxBody bounds how much of a gateway response is read into memory.
const maxBody = 1 << 20

// ErrUnavailable is returned for every transport level failure: timeouts,
// refused connections, 5xx responses and bodies that are not valid JSON.
// Callers may retry.
var ErrUnavailable = errors.New("payment gateway unavailable")

// RejectedError is a business level refusal by the gateway.  Retrying with
// the same input will fail again.
type RejectedError struct {
	StatusCode int
	Message    string
	Raw        json.RawMessage
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("payment gateway rejected request (http %d): %s", e.StatusCode, e.Message)
}

// Config is injected at construction.  SecretKey is only ever written into
// the Authorization header of outgoing requests.
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// String implements fmt.Stringer; the secret key is never printed.
func (c Config) String() string {
	return fmt.Sprintf("gateway.Config{BaseURL:%s Timeout:%s SecretKey:[redacted]}", c.BaseURL, c.Timeout)
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

// New builds a Client.  A zero Timeout falls back to 15 seconds so no call
// can hang forever.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  cfg.SecretKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Customization is displayed on the hosted checkout page.
type Customization struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// InitializeRequest describes the checkout to open.  TxRef is our
// reference for the transaction and is echoed back by webhooks.
type InitializeRequest struct {
	Amount        decimal.Decimal
	Currency      string
	Email         string
	FirstName     string
	LastName      string
	PhoneNumber   string
	TxRef         string
	CallbackURL   string
	ReturnURL     string
	Customization Customization
}

// InitializeResult carries the hosted checkout URL and the reference the
// gateway will use for this transaction.
type InitializeResult struct {
	CheckoutURL string
	Reference   string
	Raw         json.RawMessage
}

// VerifyResult is the outcome of a verification call.  Success is true
// only when the gateway reports the transaction itself as successful.
type VerifyResult struct {
	Success       bool
	Status        string
	PaymentMethod string
	Message       string
	Raw           json.RawMessage
}

type initializeBody struct {
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	PhoneNumber   string        `json:"phone_number,omitempty"`
	TxRef         string        `json:"tx_ref"`
	CallbackURL   string        `json:"callback_url,omitempty"`
	ReturnURL     string        `json:"return_url,omitempty"`
	Customization Customization `json:"customization"`
}

// envelope is the common shape of Chapa responses.  message is a string
// on most responses but an object of field errors on validation failures.
type envelope struct {
	Message json.RawMessage `json:"message"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

// Initialize opens a hosted checkout for the given transaction.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error) {
	body, err := json.Marshal(initializeBody{
		Amount:        req.Amount.StringFixed(2),
		Currency:      req.Currency,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PhoneNumber:   req.PhoneNumber,
		TxRef:         req.TxRef,
		CallbackURL:   req.CallbackURL,
		ReturnURL:     req.ReturnURL,
		Customization: req.Customization,
	})
	if err != nil {
		return InitializeResult{}, fmt.Errorf("encode initialize request: %w", err)
	}
	status, env, raw, err := c.do(ctx, http.MethodPost, c.baseURL+"/transaction/initialize", body)
	if err != nil {
		return InitializeResult{}, err
	}
	if status != http.StatusOK || !strings.EqualFold(env.Status, "success") {
		return InitializeResult{}, &RejectedError{StatusCode: status, Message: messageText(env.Message), Raw: raw}
	}
	var data struct {
		CheckoutURL string `json:"checkout_url"`
		Reference   string `json:"reference"`
	}
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &data)
	}
	if data.CheckoutURL == "" {
		return InitializeResult{}, fmt.Errorf("%w: initialize response without checkout_url", ErrUnavailable)
	}
	ref := data.Reference
	if ref == "" {
		ref = req.TxRef
	}
	return InitializeResult{CheckoutURL: data.CheckoutURL, Reference: ref, Raw: raw}, nil
}

// Verify asks the gateway for the current state of a transaction.  A
// business level non-success is not an error: it is returned as a
// VerifyResult with Success false.
func (c *Client) Verify(ctx context.Context, reference string) (VerifyResult, error) {
	if strings.TrimSpace(reference) == "" {
		return VerifyResult{}, errors.New("empty gateway reference")
	}
	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	status, env, raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return VerifyResult{}, err
	}
	var data struct {
		Status        string `json:"status"`
		PaymentMethod string `json:"payment_method"`
		Method        string `json:"method"`
	}
	if len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &data)
	}
	res := VerifyResult{
		Status:        data.Status,
		PaymentMethod: data.PaymentMethod,
		Message:       messageText(env.Message),
		Raw:           raw,
	}
	if res.PaymentMethod == "" {
		res.PaymentMethod = data.Method
	}
	res.Success = status == http.StatusOK &&
		strings.EqualFold(env.Status, "success") &&
		(data.Status == "" || strings.EqualFold(data.Status, "success"))
	if res.Status == "" {
		res.Status = env.Status
	}
	return res, nil
}

// do performs the request and decodes the envelope.  Every failure that is
// not a well formed gateway answer is reported as ErrUnavailable.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (int, envelope, json.RawMessage, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return 0, envelope{}, nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, envelope{}, nil, fmt.Errorf("%w: %s", ErrUnavailable, transportReason(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return 0, envelope{}, nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return 0, envelope{}, nil, fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0, envelope{}, nil, fmt.Errorf("%w: malformed response body", ErrUnavailable)
	}
	return resp.StatusCode, env, json.RawMessage(raw), nil
}

// transportReason describes err without the request URL so that nothing
// about the outgoing request ends up in logs or API responses.
func transportReason(err error) string {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if uerr.Timeout() {
			return "timeout"
		}
		return uerr.Err.Error()
	}
	return err.Error()
}

func messageText(m json.RawMessage) string {
	if len(m) == 0 || string(m) == "null" {
		return "Unknown error"
	}
	var s string
	if err := json.Unmarshal(m, &s); err == nil {
		if s == "" {
			return "Unknown error"
		}
		return s
	}
	return string(m)
}
