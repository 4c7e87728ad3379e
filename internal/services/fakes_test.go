package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onehorn/event-booking-backend/internal/database"
	"github.com/onehorn/event-booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// ---------------------------------------------------------------------------
// bookings

type fakeBookingStore struct {
	mu        sync.Mutex
	bookings  map[uuid.UUID]*models.Booking
	payments  *fakePaymentStore
	createErr error
	updateErr error
	creates   int
}

func newFakeBookingStore(payments *fakePaymentStore) *fakeBookingStore {
	return &fakeBookingStore{bookings: map[uuid.UUID]*models.Booking{}, payments: payments}
}

func (f *fakeBookingStore) Create(_ context.Context, b *models.Booking) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	stored := *b
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	f.bookings[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (f *fakeBookingStore) add(b models.Booking) *models.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	f.bookings[b.ID] = &b
	out := b
	return &out
}

func (f *fakeBookingStore) GetByID(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := *b
	return &out, nil
}

func (f *fakeBookingStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			cp := *b
			if f.payments != nil {
				cp.Payments = f.payments.forBooking(b.ID)
			}
			out = append(out, cp)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.BookingStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return false, f.updateErr
	}
	b, ok := f.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (f *fakeBookingStore) status(id uuid.UUID) models.BookingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookings[id].Status
}

// ---------------------------------------------------------------------------
// payments

type fakePaymentStore struct {
	mu          sync.Mutex
	rows        map[uuid.UUID]*models.Payment
	orders      map[string]uuid.UUID
	ensureErr   error
	markErr     error
	setOrderErr error
	ensures     int
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{rows: map[uuid.UUID]*models.Payment{}, orders: map[string]uuid.UUID{}}
}

func (f *fakePaymentStore) Ensure(_ context.Context, bookingID uuid.UUID, stage models.PaymentStage, amount models.Money) (*models.Payment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensures++
	if f.ensureErr != nil {
		return nil, false, f.ensureErr
	}
	for _, p := range f.rows {
		if p.BookingID == bookingID && p.Stage == stage {
			out := *p
			return &out, false, nil
		}
	}
	p := &models.Payment{
		ID:        uuid.New(),
		BookingID: bookingID,
		Stage:     stage,
		Amount:    amount,
		Status:    models.PaymentStatusPending,
		CreatedAt: time.Now(),
	}
	f.rows[p.ID] = p
	out := *p
	return &out, true, nil
}

func (f *fakePaymentStore) GetByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (f *fakePaymentStore) GetByBookingStage(_ context.Context, bookingID uuid.UUID, stage models.PaymentStage) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.BookingID == bookingID && p.Stage == stage {
			out := *p
			return &out, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakePaymentStore) GetByGatewayOrderID(_ context.Context, orderID string) (*models.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.GatewayOrderID != nil && *p.GatewayOrderID == orderID {
			out := *p
			return &out, nil
		}
	}
	if id, ok := f.orders[orderID]; ok {
		out := *f.rows[id]
		return &out, nil
	}
	return nil, database.ErrNotFound
}

func (f *fakePaymentStore) SetGatewayOrderID(_ context.Context, id uuid.UUID, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setOrderErr != nil {
		return f.setOrderErr
	}
	if _, seen := f.orders[orderID]; !seen {
		f.orders[orderID] = id
	}
	if p, ok := f.rows[id]; ok && !p.IsPaid() {
		p.GatewayOrderID = &orderID
	}
	return nil
}

func (f *fakePaymentStore) MarkPaid(_ context.Context, id uuid.UUID, s models.Settlement) (*models.Payment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return nil, false, f.markErr
	}
	p, ok := f.rows[id]
	if !ok {
		return nil, false, database.ErrNotFound
	}
	if p.IsPaid() {
		out := *p
		return &out, false, nil
	}
	p.Status = models.PaymentStatusPaid
	paidAt := s.PaidAt
	txn, method := s.TransactionID, s.PaymentMethod
	p.PaymentDate = &paidAt
	p.TransactionID = &txn
	p.PaymentMethod = &method
	if s.OrderID != "" {
		order := s.OrderID
		p.GatewayOrderID = &order
	}
	out := *p
	return &out, true, nil
}

// markPaidOutOfBand simulates another process settling the row
func (f *fakePaymentStore) markPaidOutOfBand(id uuid.UUID) {
	_, _, _ = f.MarkPaid(context.Background(), id, models.Settlement{TransactionID: "pay_external", PaymentMethod: "upi", PaidAt: time.Now()})
}

// get returns a copy of the stored row
func (f *fakePaymentStore) get(id uuid.UUID) *models.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := *f.rows[id]
	return &out
}

func (f *fakePaymentStore) forBooking(bookingID uuid.UUID) []models.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Payment
	for _, p := range f.rows {
		if p.BookingID == bookingID {
			out = append(out, *p)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// audit, events, gateway

type fakeAuditor struct {
	mu      sync.Mutex
	entries []*models.PaymentAuditEntry
	err     error
}

func (f *fakeAuditor) Log(_ context.Context, e *models.PaymentAuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAuditor) count(action models.PaymentAuditAction) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

func (f *fakeAuditor) last(action models.PaymentAuditAction) *models.PaymentAuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.entries) - 1; i >= 0; i-- {
		if f.entries[i].Action == action {
			return f.entries[i]
		}
	}
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakePublisher) PublishJSON(_ context.Context, key string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return f.err
}

func (f *fakePublisher) published(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.keys {
		if k == key {
			n++
		}
	}
	return n
}

const testSignature = "valid_signature"

type fakeGateway struct {
	mu       sync.Mutex
	err      error
	requests []CheckoutRequest
	// release, when set, holds CreateCheckout until it is closed
	release chan struct{}
}

func (f *fakeGateway) CreateCheckout(_ context.Context, req CheckoutRequest) (*models.CheckoutSession, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	release, err := f.release, f.err
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return &models.CheckoutSession{
		OrderID:     "order_" + uuid.NewString()[:8],
		KeyID:       "rzp_test_key",
		AmountMinor: req.Amount.Paise(),
		Currency:    "INR",
		Description: req.Description,
		Prefill:     req.Prefill,
		Notes:       req.Notes,
	}, nil
}

func (f *fakeGateway) checkouts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeGateway) VerifyPaymentSignature(_, _, signature string) bool {
	return signature == testSignature
}

type fakeWebhookVerifier struct{ ok bool }

func (f fakeWebhookVerifier) VerifyWebhookSignature([]byte, string) bool { return f.ok }
