package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/gateway"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/handler"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/queue"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/router"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/service"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/service/servicetest"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/utils"
)

const (
	jwtSecret     = "test-secret"
	webhookSecret = "whsec"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

type api struct {
	e        *echo.Echo
	store    *servicetest.Store
	gw       *servicetest.Gateway
	notifier *servicetest.Notifier
	listing  model.Listing
	guest    model.User
	host     model.User
}

func newAPI(t *testing.T) *api {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	clock := func() time.Time { return now }

	a := &api{
		e:        echo.New(),
		store:    servicetest.NewStore(),
		gw:       &servicetest.Gateway{},
		notifier: &servicetest.Notifier{},
	}
	a.store.Now = clock
	a.listing = a.store.AddListing(model.Listing{
		Title:         "Lakeside cabin",
		PricePerNight: decimal.RequireFromString("50.00"),
		MaxGuests:     4,
		IsAvailable:   true,
	})
	a.guest = a.store.AddUser(model.User{Email: "guest@example.com", FirstName: "Abebe"})
	a.host = a.store.AddUser(model.User{Email: "host@example.com", Role: model.RoleHost})

	bookings := &service.BookingService{
		Listings: a.store.Listings(),
		Bookings: a.store.Bookings(),
		Users:    a.store.Users(),
		Notifier: a.notifier,
		Log:      log,
		Now:      clock,
	}
	payments := &service.PaymentService{
		Bookings: a.store.Bookings(),
		Payments: a.store.Payments(),
		Listings: a.store.Listings(),
		Users:    a.store.Users(),
		Gateway:  a.gw,
		Notifier: a.notifier,
		Log:      log,
		Settings: service.PaymentSettings{ReturnURL: "https://app.example.test/bookings/{booking_id}", Expiry: 30 * time.Minute},
		Now:      clock,
	}

	a.e.Validator = handler.NewRequestValidator()
	router.RegisterRoutes(a.e, nil)
	router.RegisterAuth(a.e, handler.NewAuthHandler(handler.AuthSettings{
		JWTSecret: jwtSecret, AccessTTLMin: 15, BcryptCost: 4,
	}, a.store.Users(), log), jwtSecret)
	router.RegisterListings(a.e, handler.NewListingHandler(a.store.Listings(), log), jwtSecret, passthrough)
	router.RegisterBookings(a.e, handler.NewBookingHandler(bookings, log), jwtSecret)
	router.RegisterPayments(a.e,
		handler.NewPaymentHandler(payments, log),
		handler.NewWebhookHandler(payments, webhookSecret, log),
		jwtSecret, passthrough)
	return a
}

func (a *api) token(t *testing.T, u model.User) string {
	t.Helper()
	at, err := utils.NewAccessToken(jwtSecret, u.ID, u.Role, 15)
	if err != nil {
		t.Fatal(err)
	}
	return at.Token
}

func (a *api) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		rdr = bytes.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	out := map[string]any{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func date(offset int) string {
	return model.DateOf(now).AddDate(0, 0, offset).Format("2006-01-02")
}

func (a *api) createBooking(t *testing.T) uint64 {
	t.Helper()
	rec, body := a.do(t, http.MethodPost, "/bookings", a.token(t, a.guest), map[string]any{
		"listing": a.listing.ID, "check_in": date(10), "check_out": date(13), "number_of_guests": 2,
		"total_price": "0.01", "status": "confirmed",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create booking: %d %s", rec.Code, rec.Body.String())
	}
	return uint64(body["id"].(float64))
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	if rec, _ := a.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCreateBookingIgnoresClientPriceAndStatus(t *testing.T) {
	a := newAPI(t)
	rec, body := a.do(t, http.MethodPost, "/bookings", a.token(t, a.guest), map[string]any{
		"listing_id": a.listing.ID, "check_in": date(10), "check_out": date(13), "number_of_guests": 2,
		"total_price": "0.01", "status": "confirmed",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
	}
	if body["total_price"] != "150.00" || body["status"] != model.BookingPending || body["nights"].(float64) != 3 {
		t.Fatalf("unexpected booking: %v", body)
	}
	if a.notifier.Count(queue.KindBookingConfirmation) != 1 {
		t.Fatal("booking confirmation not enqueued")
	}
}

func TestCreateBookingValidation(t *testing.T) {
	a := newAPI(t)
	cases := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing listing", map[string]any{"check_in": date(10), "check_out": date(13), "number_of_guests": 1}, "listing"},
		{"bad date", map[string]any{"listing": a.listing.ID, "check_in": "03/11/2026", "check_out": date(13), "number_of_guests": 1}, "check_in"},
		{"reversed", map[string]any{"listing": a.listing.ID, "check_in": date(13), "check_out": date(10), "number_of_guests": 1}, "check_out"},
		{"too many guests", map[string]any{"listing": a.listing.ID, "check_in": date(10), "check_out": date(13), "number_of_guests": 9}, "number_of_guests"},
		{"zero guests", map[string]any{"listing": a.listing.ID, "check_in": date(10), "check_out": date(13), "number_of_guests": 0}, "number_of_guests"},
		{"missing check_out", map[string]any{"listing": a.listing.ID, "check_in": date(10), "number_of_guests": 1}, "check_out"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := a.do(t, http.MethodPost, "/bookings", a.token(t, a.guest), tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
			}
			details, _ := body["details"].(map[string]any)
			if _, ok := details[tc.field]; !ok {
				t.Fatalf("details missing %q: %v", tc.field, body)
			}
		})
	}
}

func TestBookingsAreScopedToOwner(t *testing.T) {
	a := newAPI(t)
	id := a.createBooking(t)
	path := "/bookings/" + strconv.FormatUint(id, 10)

	if rec, _ := a.do(t, http.MethodGet, path, a.token(t, a.host), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("other user status = %d", rec.Code)
	}
	if rec, _ := a.do(t, http.MethodGet, path, "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d", rec.Code)
	}
	rec, body := a.do(t, http.MethodPatch, path, a.token(t, a.guest), map[string]any{"special_requests": "late arrival"})
	if rec.Code != http.StatusOK || body["special_requests"] != "late arrival" {
		t.Fatalf("update: %d %v", rec.Code, body)
	}
}

func TestListingWritesRequireHostRole(t *testing.T) {
	a := newAPI(t)
	body := map[string]any{"title": "Loft", "price_per_night": "80.00", "max_guests": 2, "is_available": true}

	if rec, _ := a.do(t, http.MethodPost, "/listings", a.token(t, a.guest), body); rec.Code != http.StatusForbidden {
		t.Fatalf("guest status = %d", rec.Code)
	}
	rec, created := a.do(t, http.MethodPost, "/listings", a.token(t, a.host), body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("host status = %d %s", rec.Code, rec.Body.String())
	}
	path := "/listings/" + strconv.FormatUint(uint64(created["id"].(float64)), 10)

	if rec, _ := a.do(t, http.MethodGet, path, "", nil); rec.Code != http.StatusOK {
		t.Fatalf("public get = %d", rec.Code)
	}
	if rec, _ := a.do(t, http.MethodPatch, path, a.token(t, a.host), map[string]any{"is_available": false}); rec.Code != http.StatusOK {
		t.Fatalf("patch = %d", rec.Code)
	}
	if rec, _ := a.do(t, http.MethodGet, path, "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("unavailable listing visible: %d", rec.Code)
	}
	if rec, _ := a.do(t, http.MethodDelete, path, a.token(t, a.host), nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
}

func TestListingValidation(t *testing.T) {
	a := newAPI(t)
	tok := a.token(t, a.host)
	path := "/listings/" + strconv.FormatUint(a.listing.ID, 10)
	cases := []struct {
		name   string
		method string
		path   string
		body   map[string]any
		field  string
	}{
		{"post without title", http.MethodPost, "/listings", map[string]any{"price_per_night": "10.00", "max_guests": 1}, "title"},
		{"negative price", http.MethodPost, "/listings", map[string]any{"title": "Hut", "price_per_night": "-1", "max_guests": 1}, "price_per_night"},
		{"put without max_guests", http.MethodPut, path, map[string]any{"title": "Hut", "price_per_night": "10.00"}, "max_guests"},
		{"patch blank title", http.MethodPatch, path, map[string]any{"title": "   "}, "title"},
		{"patch zero max_guests", http.MethodPatch, path, map[string]any{"max_guests": 0}, "max_guests"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := a.do(t, tc.method, tc.path, tok, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d %s", rec.Code, rec.Body.String())
			}
			details, _ := body["details"].(map[string]any)
			if _, ok := details[tc.field]; !ok {
				t.Fatalf("details missing %q: %v", tc.field, body)
			}
		})
	}
	rec, body := a.do(t, http.MethodPatch, path, tok, map[string]any{"bedrooms": 0})
	if rec.Code != http.StatusOK || body["title"] != "Lakeside cabin" {
		t.Fatalf("partial patch: %d %v", rec.Code, body)
	}
}

func TestPaymentRequestValidation(t *testing.T) {
	a := newAPI(t)
	tok := a.token(t, a.guest)
	rec, body := a.do(t, http.MethodPost, "/payments/initiate", tok, map[string]any{})
	if details, _ := body["details"].(map[string]any); rec.Code != http.StatusBadRequest || details["booking_id"] != "this field is required" {
		t.Fatalf("initiate: %d %v", rec.Code, body)
	}
	rec, body = a.do(t, http.MethodPost, "/payments/verify", tok, map[string]any{"transaction_id": "  "})
	if details, _ := body["details"].(map[string]any); rec.Code != http.StatusBadRequest || details["transaction_id"] == nil {
		t.Fatalf("verify: %d %v", rec.Code, body)
	}
}

func TestPaymentInitiateVerifyAndStatus(t *testing.T) {
	a := newAPI(t)
	id := a.createBooking(t)
	tok := a.token(t, a.guest)

	rec, init := a.do(t, http.MethodPost, "/payments/initiate", tok, map[string]any{"booking_id": id})
	if rec.Code != http.StatusOK {
		t.Fatalf("initiate: %d %s", rec.Code, rec.Body.String())
	}
	txn, _ := init["transaction_id"].(string)
	if txn == "" || init["payment_url"] == "" {
		t.Fatalf("unexpected initiate body: %v", init)
	}

	rec, again := a.do(t, http.MethodPost, "/payments/initiate", tok, map[string]any{"booking_id": id})
	if rec.Code != http.StatusBadRequest || again["transaction_id"] != txn {
		t.Fatalf("second initiate: %d %v", rec.Code, again)
	}

	rec, ver := a.do(t, http.MethodPost, "/payments/verify", tok, map[string]any{"transaction_id": txn})
	if rec.Code != http.StatusOK || ver["status"] != model.PaymentCompleted || ver["booking_status"] != model.BookingConfirmed {
		t.Fatalf("verify: %d %v", rec.Code, ver)
	}

	rec, st := a.do(t, http.MethodGet, "/payments/status/"+txn, tok, nil)
	if rec.Code != http.StatusOK || st["status"] != model.PaymentCompleted || st["amount"] != "150.00" {
		t.Fatalf("status: %d %v", rec.Code, st)
	}
	if rec, _ := a.do(t, http.MethodGet, "/payments/status/"+txn, a.token(t, a.host), nil); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign status lookup = %d", rec.Code)
	}
	if a.notifier.Count(queue.KindPaymentConfirmation) != 1 {
		t.Fatal("payment confirmation not enqueued exactly once")
	}
}

func TestPaymentErrorsMapToStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unavailable", gateway.ErrUnavailable, http.StatusServiceUnavailable},
		{"rejected", &gateway.RejectedError{StatusCode: 400, Message: "invalid currency"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newAPI(t)
			id := a.createBooking(t)
			a.gw.InitializeFunc = func(context.Context, gateway.InitializeRequest) (gateway.InitializeResult, error) {
				return gateway.InitializeResult{}, tc.err
			}
			rec, _ := a.do(t, http.MethodPost, "/payments/initiate", a.token(t, a.guest), map[string]any{"booking_id": id})
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
			if a.store.PaymentCount() != 0 {
				t.Fatal("payment persisted after gateway error")
			}
		})
	}
}

func TestVerifyDeclinedIs400(t *testing.T) {
	a := newAPI(t)
	id := a.createBooking(t)
	tok := a.token(t, a.guest)
	_, init := a.do(t, http.MethodPost, "/payments/initiate", tok, map[string]any{"booking_id": id})
	a.gw.VerifyFunc = func(_ context.Context, ref string) (gateway.VerifyResult, error) {
		return servicetest.FailedVerify(ref), nil
	}

	rec, body := a.do(t, http.MethodPost, "/payments/verify", tok, map[string]any{"transaction_id": init["transaction_id"]})
	if rec.Code != http.StatusBadRequest || body["status"] != model.PaymentFailed {
		t.Fatalf("verify: %d %v", rec.Code, body)
	}
	if b := a.store.Booking(id); b.Status != model.BookingPending {
		t.Fatalf("booking status = %s", b.Status)
	}
}

func TestWebhook(t *testing.T) {
	a := newAPI(t)
	id := a.createBooking(t)
	if rec, _ := a.do(t, http.MethodPost, "/payments/initiate", a.token(t, a.guest), map[string]any{"booking_id": id}); rec.Code != http.StatusOK {
		t.Fatalf("initiate: %d", rec.Code)
	}
	p, err := a.store.Payments().GetByBookingID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte(`{"tx_ref":"` + *p.GatewayTransactionID + `","status":"success","payment_method":"telebirr"}`)

	post := func(body []byte, sig string) (*httptest.ResponseRecorder, map[string]any) {
		req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if sig != "" {
			req.Header.Set("Chapa-Signature", sig)
		}
		rec := httptest.NewRecorder()
		a.e.ServeHTTP(rec, req)
		out := map[string]any{}
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
		return rec, out
	}

	if rec, _ := post(payload, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned = %d", rec.Code)
	}
	if rec, _ := post(payload, utils.SignHMAC("wrong", payload)); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature = %d", rec.Code)
	}

	sig := utils.SignHMAC(webhookSecret, payload)
	rec, body := post(payload, sig)
	if rec.Code != http.StatusOK || body["outcome"] != string(service.WebhookApplied) {
		t.Fatalf("first delivery: %d %v", rec.Code, body)
	}
	rec, body = post(payload, sig)
	if rec.Code != http.StatusOK || body["outcome"] != string(service.WebhookDuplicate) {
		t.Fatalf("redelivery: %d %v", rec.Code, body)
	}
	if a.store.Booking(id).Status != model.BookingConfirmed {
		t.Fatal("booking not confirmed")
	}
	if a.notifier.Count(queue.KindPaymentConfirmation) != 1 {
		t.Fatal("duplicate webhook notified twice")
	}

	missing := []byte(`{"status":"success"}`)
	if rec, _ := post(missing, utils.SignHMAC(webhookSecret, missing)); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing tx_ref = %d", rec.Code)
	}
	unknown := []byte(`{"tx_ref":"nope","status":"success"}`)
	if rec, _ := post(unknown, utils.SignHMAC(webhookSecret, unknown)); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown tx_ref = %d", rec.Code)
	}
}

func TestRegisterLoginMe(t *testing.T) {
	a := newAPI(t)
	creds := map[string]any{"email": "New@Example.com", "password": "longenough", "role": "ADMIN"}

	rec, reg := a.do(t, http.MethodPost, "/auth/register", "", creds)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	if user := reg["user"].(map[string]any); user["role"] != model.RoleGuest || user["email"] != "new@example.com" {
		t.Fatalf("unexpected user: %v", user)
	}
	if rec, _ := a.do(t, http.MethodPost, "/auth/register", "", creds); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register = %d", rec.Code)
	}
	rec, body := a.do(t, http.MethodPost, "/auth/register", "", map[string]any{"email": "x@example.com", "password": "short"})
	if details, _ := body["details"].(map[string]any); rec.Code != http.StatusBadRequest || details["password"] == nil {
		t.Fatalf("short password: %d %v", rec.Code, body)
	}
	rec, body = a.do(t, http.MethodPost, "/auth/register", "", map[string]any{"email": "not-an-email", "password": "longenough"})
	if details, _ := body["details"].(map[string]any); rec.Code != http.StatusBadRequest || details["email"] != "enter a valid email address" {
		t.Fatalf("bad email: %d %v", rec.Code, body)
	}

	if rec, _ := a.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "new@example.com", "password": "wrong-pass"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d", rec.Code)
	}
	rec, login := a.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "new@example.com", "password": "longenough"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d", rec.Code)
	}
	tok := login["access"].(map[string]any)["token"].(string)
	rec, me := a.do(t, http.MethodGet, "/auth/me", tok, nil)
	if rec.Code != http.StatusOK || me["email"] != "new@example.com" {
		t.Fatalf("me: %d %v", rec.Code, me)
	}
}
