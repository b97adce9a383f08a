package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/service"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/utils"
)

// maxWebhookBody bounds the callback payload read into memory.
const maxWebhookBody = 64 << 10

// WebhookHandler receives the payment gateway callbacks.  It is mounted
// without authentication; when Secret is set every request must carry a
// valid HMAC-SHA256 signature of the raw body.
type WebhookHandler struct {
	Payments *service.PaymentService
	Secret   string
	Log      logrus.FieldLogger
}

func NewWebhookHandler(svc *service.PaymentService, secret string, log logrus.FieldLogger) *WebhookHandler {
	return &WebhookHandler{Payments: svc, Secret: secret, Log: log}
}

type webhookBody struct {
	TxRef         string `json:"tx_ref"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	Method        string `json:"method"`
}

func signatureOf(r *http.Request) string {
	if s := r.Header.Get("Chapa-Signature"); s != "" {
		return s
	}
	return r.Header.Get("X-Chapa-Signature")
}

// Handle handles POST /payments/webhook.
func (h *WebhookHandler) Handle(c echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil || len(raw) > maxWebhookBody {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	if h.Secret != "" {
		if !utils.VerifyHMAC(h.Secret, raw, signatureOf(c.Request())) {
			h.Log.WithField("remote_ip", c.RealIP()).Warn("webhook signature rejected")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
		}
	} else {
		h.Log.Warn("webhook accepted without signature check: no webhook secret configured")
	}

	var body webhookBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if body.PaymentMethod == "" {
		body.PaymentMethod = body.Method
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()
	outcome, err := h.Payments.HandleWebhook(ctx, service.WebhookEvent{
		TxRef:         body.TxRef,
		Status:        body.Status,
		PaymentMethod: body.PaymentMethod,
		Raw:           raw,
	})
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing transaction reference"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Payment not found"})
	case err != nil:
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Webhook processed successfully", "outcome": outcome})
}
