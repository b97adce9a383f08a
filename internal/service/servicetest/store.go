// Package servicetest provides in-memory implementations of the service
// dependencies for tests.  The store honours the same conditional update
// rules as the MySQL repositories, so concurrency tests against it are
// meaningful.
package servicetest

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/model"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/repository"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/utils"
)

// Store holds every table behind one mutex.
type Store struct {
	mu       sync.Mutex
	nextID   uint64
	listings map[uint64]model.Listing
	bookings map[uint64]model.Booking
	payments map[uint64]model.Payment
	users    map[uint64]model.User
	events   map[uint64][]PaymentEvent

	// Now stamps created_at/updated_at; defaults to time.Now.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		listings: map[uint64]model.Listing{},
		bookings: map[uint64]model.Booking{},
		payments: map[uint64]model.Payment{},
		users:    map[uint64]model.User{},
		events:   map[uint64][]PaymentEvent{},
	}
}

// PaymentEvent is one row of the payment event log.
type PaymentEvent struct {
	Source string
	Raw    json.RawMessage
}

// Events returns the event log of a payment in insertion order.
func (s *Store) Events(paymentID uint64) []PaymentEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PaymentEvent(nil), s.events[paymentID]...)
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

// Listings, Bookings, Payments and Users return views implementing the
// corresponding store interfaces.
func (s *Store) Listings() *Listings { return &Listings{s} }
func (s *Store) Bookings() *Bookings { return &Bookings{s} }
func (s *Store) Payments() *Payments { return &Payments{s} }
func (s *Store) Users() *Users       { return &Users{s} }

// AddListing inserts l and returns it with its id.
func (s *Store) AddListing(l model.Listing) model.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = s.id()
	l.CreatedAt, l.UpdatedAt = s.now(), s.now()
	s.listings[l.ID] = l
	return l
}

// AddUser inserts u and returns it with its id.
func (s *Store) AddUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.id()
	u.Email = strings.ToLower(u.Email)
	if u.Role == "" {
		u.Role = model.RoleGuest
	}
	u.IsActive = true
	u.CreatedAt, u.UpdatedAt = s.now(), s.now()
	s.users[u.ID] = u
	return u
}

// AddBooking inserts b verbatim apart from its id and timestamps.
func (s *Store) AddBooking(b model.Booking) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.id()
	b.CreatedAt, b.UpdatedAt = s.now(), s.now()
	s.bookings[b.ID] = b
	return b
}

// Booking returns the stored booking by id.
func (s *Store) Booking(id uint64) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id]
}

// Payment returns the stored payment by id.
func (s *Store) Payment(id uint64) model.Payment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments[id]
}

// PaymentCount returns the number of stored payments.
func (s *Store) PaymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

// SetPaymentCreatedAt backdates a payment.
func (s *Store) SetPaymentCreatedAt(id uint64, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.payments[id]
	p.CreatedAt = t
	s.payments[id] = p
}

type Listings struct{ s *Store }

func (v *Listings) List(_ context.Context, onlyAvailable bool) ([]model.Listing, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	out := []model.Listing{}
	for _, l := range v.s.listings {
		if onlyAvailable && !l.IsAvailable {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *Listings) GetByID(_ context.Context, id uint64) (model.Listing, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	l, ok := v.s.listings[id]
	if !ok {
		return model.Listing{}, repository.ErrNotFound
	}
	return l, nil
}

func (v *Listings) Create(_ context.Context, l *model.Listing) error {
	*l = v.s.AddListing(*l)
	return nil
}

func (v *Listings) Update(_ context.Context, l *model.Listing) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	old, ok := v.s.listings[l.ID]
	if !ok {
		return repository.ErrNotFound
	}
	l.CreatedAt = old.CreatedAt
	l.UpdatedAt = v.s.now()
	v.s.listings[l.ID] = *l
	return nil
}

func (v *Listings) Delete(_ context.Context, id uint64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.listings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(v.s.listings, id)
	return nil
}

type Bookings struct{ s *Store }

func (v *Bookings) Create(_ context.Context, b *model.Booking) error {
	*b = v.s.AddBooking(*b)
	return nil
}

func (v *Bookings) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	b, ok := v.s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (v *Bookings) GetForUser(ctx context.Context, id, userID uint64) (model.Booking, error) {
	b, err := v.GetByID(ctx, id)
	if err != nil || b.UserID != userID {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (v *Bookings) ListByUser(_ context.Context, userID uint64) ([]model.Booking, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	out := []model.Booking{}
	for _, b := range v.s.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (v *Bookings) UpdateSpecialRequests(_ context.Context, id, userID uint64, text string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	b, ok := v.s.bookings[id]
	if !ok || b.UserID != userID {
		return repository.ErrNotFound
	}
	b.SpecialRequests = text
	b.UpdatedAt = v.s.now()
	v.s.bookings[id] = b
	return nil
}

func (v *Bookings) TransitionStatus(_ context.Context, id uint64, from []string, to string) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	b, ok := v.s.bookings[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if b.Status == f {
			b.Status = to
			b.UpdatedAt = v.s.now()
			v.s.bookings[id] = b
			return true, nil
		}
	}
	return false, nil
}

func (v *Bookings) CompleteFinished(_ context.Context, today time.Time) (int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var n int64
	for id, b := range v.s.bookings {
		if b.Status == model.BookingConfirmed && b.CheckOut.Before(today) {
			b.Status = model.BookingCompleted
			v.s.bookings[id] = b
			n++
		}
	}
	return n, nil
}

type Payments struct{ s *Store }

func (v *Payments) find(match func(model.Payment) bool) (model.Payment, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, p := range v.s.payments {
		if match(p) {
			return p, nil
		}
	}
	return model.Payment{}, repository.ErrNotFound
}

func (v *Payments) GetByBookingID(_ context.Context, bookingID uint64) (model.Payment, error) {
	return v.find(func(p model.Payment) bool { return p.BookingID == bookingID })
}

func (v *Payments) GetByTransactionIDForUser(_ context.Context, txnID string, userID uint64) (model.Payment, error) {
	v.s.mu.Lock()
	owners := make(map[uint64]uint64, len(v.s.bookings))
	for id, b := range v.s.bookings {
		owners[id] = b.UserID
	}
	v.s.mu.Unlock()
	return v.find(func(p model.Payment) bool { return p.TransactionID == txnID && owners[p.BookingID] == userID })
}

func (v *Payments) GetByGatewayTransactionID(_ context.Context, ref string) (model.Payment, error) {
	return v.find(func(p model.Payment) bool { return p.GatewayTransactionID != nil && *p.GatewayTransactionID == ref })
}

func (v *Payments) CreateIfAbsent(_ context.Context, p *model.Payment) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, other := range v.s.payments {
		if other.BookingID == p.BookingID {
			return repository.ErrAlreadyExists
		}
		if other.TransactionID == p.TransactionID {
			return repository.ErrDuplicate
		}
		if other.GatewayTransactionID != nil && p.GatewayTransactionID != nil &&
			*other.GatewayTransactionID == *p.GatewayTransactionID {
			return repository.ErrDuplicate
		}
	}
	p.ID = v.s.id()
	p.CreatedAt, p.UpdatedAt = v.s.now(), v.s.now()
	v.s.payments[p.ID] = *p
	return nil
}

func (v *Payments) Complete(_ context.Context, paymentID, bookingID uint64, method string, raw json.RawMessage, at time.Time) (bool, string, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, ok := v.s.payments[paymentID]
	if !ok || p.Status != model.PaymentPending {
		return false, "", nil
	}
	p.Status = model.PaymentCompleted
	p.PaymentMethod = method
	p.PaymentDate = &at
	p.RawResponse = raw
	p.UpdatedAt = v.s.now()
	v.s.payments[paymentID] = p

	b := v.s.bookings[bookingID]
	if b.Status == model.BookingPending {
		b.Status = model.BookingConfirmed
		b.UpdatedAt = v.s.now()
		v.s.bookings[bookingID] = b
	}
	return true, b.Status, nil
}

func (v *Payments) Fail(_ context.Context, paymentID uint64, raw json.RawMessage) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, ok := v.s.payments[paymentID]
	if !ok || p.Status != model.PaymentPending {
		return false, nil
	}
	p.Status = model.PaymentFailed
	p.RawResponse = raw
	p.UpdatedAt = v.s.now()
	v.s.payments[paymentID] = p
	return true, nil
}

func (v *Payments) SaveRawResponse(_ context.Context, paymentID uint64, raw json.RawMessage) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	p, ok := v.s.payments[paymentID]
	if !ok || p.Status != model.PaymentPending {
		return false, nil
	}
	p.RawResponse = raw
	v.s.payments[paymentID] = p
	return true, nil
}

func (v *Payments) RecordResponse(_ context.Context, paymentID uint64, source string, raw json.RawMessage) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.events[paymentID] = append(v.s.events[paymentID], PaymentEvent{Source: source, Raw: raw})
	return nil
}

func (v *Payments) ExpirePending(_ context.Context, cutoff time.Time) (int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	var n int64
	for id, p := range v.s.payments {
		if p.Status == model.PaymentPending && p.CreatedAt.Before(cutoff) {
			p.Status = model.PaymentFailed
			v.s.payments[id] = p
			n++
		}
	}
	return n, nil
}

type Users struct{ s *Store }

func (v *Users) Create(_ context.Context, in repository.NewUser, cost int) (uint64, error) {
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return 0, err
	}
	v.s.mu.Lock()
	email := strings.ToLower(strings.TrimSpace(in.Email))
	for _, u := range v.s.users {
		if u.Email == email {
			v.s.mu.Unlock()
			return 0, repository.ErrDuplicate
		}
	}
	v.s.mu.Unlock()
	u := v.s.AddUser(model.User{
		Email: email, PasswordHash: hash, FirstName: in.FirstName, LastName: in.LastName,
		PhoneNumber: in.PhoneNumber, Role: in.Role,
	})
	return u.ID, nil
}

func (v *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range v.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (v *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, ok := v.s.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}
