package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/service"
)

// gatewayTimeout bounds a request that calls the payment gateway.  It is
// above the gateway client timeout so the client error wins.
const gatewayTimeout = 30 * time.Second

// PaymentHandler serves initiate, verify and status for the requester's
// own payments.
type PaymentHandler struct {
	Payments *service.PaymentService
	Log      logrus.FieldLogger
}

func NewPaymentHandler(svc *service.PaymentService, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{Payments: svc, Log: log}
}

type initiateReq struct {
	BookingID uint64 `json:"booking_id" validate:"required"`
}

type verifyReq struct {
	TransactionID string `json:"transaction_id" validate:"required,max=100"`
}

// Initiate handles POST /payments/initiate.
func (h *PaymentHandler) Initiate(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req initiateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if ok, err := validate(c, h.Log, &req); !ok {
		return err
	}
	ctx, cancel := withTimeout(c, gatewayTimeout)
	defer cancel()
	res, err := h.Payments.Initiate(ctx, req.BookingID, userID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":           "Payment initiated successfully",
		"payment_url":       res.PaymentURL,
		"transaction_id":    res.TransactionID,
		"booking_reference": res.BookingReference,
	})
}

// Verify handles POST /payments/verify.  A gateway answer other than
// success is reported as 400 with the resulting payment status.
func (h *PaymentHandler) Verify(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if ok, err := validate(c, h.Log, &req); !ok {
		return err
	}
	txn := req.TransactionID
	ctx, cancel := withTimeout(c, gatewayTimeout)
	defer cancel()
	res, err := h.Payments.Verify(ctx, txn, userID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if res.PaymentStatus != model.PaymentCompleted {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":          "Payment verification failed",
			"status":         res.PaymentStatus,
			"transaction_id": res.TransactionID,
			"details":        res.Message,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":        "Payment verified successfully",
		"status":         res.PaymentStatus,
		"transaction_id": res.TransactionID,
		"booking_status": res.BookingStatus,
		"verified_at":    res.VerifiedAt,
	})
}

type paymentStatusResp struct {
	TransactionID    string     `json:"transaction_id"`
	Status           string     `json:"status"`
	Amount           string     `json:"amount"`
	Currency         string     `json:"currency"`
	BookingReference string     `json:"booking_reference"`
	PaymentMethod    string     `json:"payment_method,omitempty"`
	PaymentDate      *time.Time `json:"payment_date"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Status handles GET /payments/status/:transaction_id.
func (h *PaymentHandler) Status(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	txn := strings.TrimSpace(c.Param("transaction_id"))
	if txn == "" {
		return badRequest(c, "transaction_id", "this field is required")
	}
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()
	snap, err := h.Payments.Status(ctx, txn, userID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, paymentStatusResp{
		TransactionID:    snap.TransactionID,
		Status:           snap.Status,
		Amount:           snap.Amount.StringFixed(2),
		Currency:         snap.Currency,
		BookingReference: snap.BookingReference,
		PaymentMethod:    snap.PaymentMethod,
		PaymentDate:      snap.PaymentDate,
		CreatedAt:        snap.CreatedAt,
		UpdatedAt:        snap.UpdatedAt,
	})
}
