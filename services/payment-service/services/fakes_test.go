package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/repository"
	"gorm.io/gorm"
)

// fakeMeasurements is an in-memory measurement session table.
type fakeMeasurements struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*models.MeasurementSession
	err      error
}

func newFakeMeasurements() *fakeMeasurements {
	return &fakeMeasurements{sessions: make(map[uuid.UUID]*models.MeasurementSession)}
}

func (f *fakeMeasurements) add(userID string, values map[string]float64) *models.MeasurementSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &models.MeasurementSession{
		ID:           uuid.New(),
		UserID:       userID,
		Provider:     models.MeasurementProviderManual,
		Status:       models.MeasurementStatusCompleted,
		Unit:         "cm",
		Measurements: values,
		CompletedAt:  &at,
	}
	f.sessions[s.ID] = s
	return s
}

func (f *fakeMeasurements) FindByID(_ context.Context, id uuid.UUID) (*models.MeasurementSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

// bind mirrors the guarded UPDATE the real store runs.
func (f *fakeMeasurements) bind(id, orderID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != models.MeasurementStatusCompleted {
		return false
	}
	if s.OrderID != nil && *s.OrderID != orderID {
		return false
	}
	s.OrderID = &orderID
	return true
}

// fakeOrderStore enforces the (session, vendor) uniqueness the database
// provides.
type fakeOrderStore struct {
	mu           sync.Mutex
	orders       map[string]*models.Order
	measurements *fakeMeasurements
	failVendors  map[string]error
	beforeCreate func(order *models.Order)
}

func newFakeOrderStore(m *fakeMeasurements) *fakeOrderStore {
	return &fakeOrderStore{
		orders:       make(map[string]*models.Order),
		measurements: m,
		failVendors:  make(map[string]error),
	}
}

func (s *fakeOrderStore) CreateIfAbsent(_ context.Context, order *models.Order) ([]uuid.UUID, error) {
	if s.beforeCreate != nil {
		s.beforeCreate(order)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failVendors[order.VendorID]; err != nil {
		return nil, err
	}
	key := order.StripeSessionID + "|" + order.VendorID
	if _, ok := s.orders[key]; ok {
		return nil, repository.ErrAlreadyMaterialized
	}

	var lost []uuid.UUID
	for i := range order.Items {
		it := &order.Items[i]
		if it.MeasurementSnapshot == nil || s.measurements == nil {
			continue
		}
		if !s.measurements.bind(*it.MeasurementSessionID, order.ID) {
			lost = append(lost, *it.MeasurementSessionID)
			it.MeasurementSnapshot = nil
		}
	}
	if order.MeasurementSessionID != nil {
		for _, id := range lost {
			if id != *order.MeasurementSessionID {
				continue
			}
			order.MeasurementSessionID = nil
			order.MeasurementSnapshot = nil
			for i := range order.Items {
				if it := order.Items[i]; it.MeasurementSnapshot != nil {
					sid := *it.MeasurementSessionID
					order.MeasurementSessionID = &sid
					order.MeasurementSnapshot = it.MeasurementSnapshot
					break
				}
			}
		}
	}
	s.orders[key] = order
	return lost, nil
}

func (s *fakeOrderStore) all() []*models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out
}

func (s *fakeOrderStore) byVendor(vendorID string) *models.Order {
	for _, o := range s.all() {
		if o.VendorID == vendorID {
			return o
		}
	}
	return nil
}

type transition struct {
	key, from, to string
	paid          bool
}

type fakeStatusUpdater struct {
	mu    sync.Mutex
	calls []transition
	n     int64
	err   error
}

func (f *fakeStatusUpdater) TransitionByPaymentReference(_ context.Context, ref, from, to string, paidAt *time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, transition{key: ref, from: from, to: to, paid: paidAt != nil})
	return f.n, f.err
}

func (f *fakeStatusUpdater) TransitionBySessionID(_ context.Context, sessionID, from, to string, paidAt *time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, transition{key: sessionID, from: from, to: to, paid: paidAt != nil})
	return f.n, f.err
}

type fakeCartStore struct {
	mu    sync.Mutex
	carts map[string][]models.CartItem
	err   error
}

func (f *fakeCartStore) RemoveItems(_ context.Context, userID string, match func(models.CartItem) bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	var kept []models.CartItem
	removed := 0
	for _, it := range f.carts[userID] {
		if match(it) {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	f.carts[userID] = kept
	return removed, nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	orders     []string
	recipients []string
}

func (f *fakeNotifier) OrderCreated(_ context.Context, order *models.Order, recipient string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, order.VendorID)
	f.recipients = append(f.recipients, recipient)
}

type published struct {
	topic, eventType string
	body             []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, topicArn, eventType string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, published{topic: topicArn, eventType: eventType, body: message})
	return nil
}

type fakeSender struct {
	mu     sync.Mutex
	bodies []string
}

func (f *fakeSender) SendMessage(_ context.Context, body string, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, body)
	return nil
}

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int
	calls  map[string]int
}

func (f *fakeCounter) RecordCount(_ context.Context, name string, n int, _ map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.counts[name] += n
	f.calls[name]++
	return nil
}

func (f *fakeCounter) sends(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeCounter) get(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[name]
}

const testAddress = `{"name":"Asha Rao","street":"12 Loom Street","city":"Pune","zip":"411001","country":"IN"}`

// twoVendorCart is the V1 100.00 / V2 50.00 checkout for buyer U1.
func twoVendorCart() map[string]string {
	return map[string]string{
		"checkoutType":        "cart",
		"userId":              "U1",
		"shippingAddress":     testAddress,
		"shippingMethod":      "standard",
		"itemCount":           "2",
		"item_0_productId":    "P1",
		"item_0_vendorId":     "V1",
		"item_0_productTitle": "Sherwani",
		"item_0_quantity":     "1",
		"item_0_unitPrice":    "100.00",
		"item_0_subtotal":     "100.00",
		"item_0_cartItemId":   "ci-1",
		"item_1_productId":    "P2",
		"item_1_vendorId":     "V2",
		"item_1_productTitle": "Kurta",
		"item_1_quantity":     "2",
		"item_1_unitPrice":    "25.00",
		"item_1_subtotal":     "50.00",
		"item_1_notes":        "slim fit",
	}
}

func singleItem() map[string]string {
	return map[string]string{
		"checkoutType":       "single",
		"userId":             "U1",
		"shippingAddress":    testAddress,
		"productId":          "P9",
		"vendorId":           "V9",
		"productTitle":       "Bandhgala",
		"productDescription": "Wool blend",
		"quantity":           "1",
		"unitPrice":          "100.00",
		"subtotal":           "100.00",
	}
}

func checkoutSession(md map[string]string, total int64) *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:              "cs_test_a1",
		AmountTotal:     total,
		Currency:        stripe.CurrencyUSD,
		PaymentStatus:   stripe.CheckoutSessionPaymentStatusPaid,
		PaymentIntent:   &stripe.PaymentIntent{ID: "pi_test_a1"},
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{Email: "asha@example.com"},
		Metadata:        md,
	}
}

func (f *fakeMeasurements) Create(_ context.Context, s *models.MeasurementSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeMeasurements) Complete(_ context.Context, id uuid.UUID, unit string, values map[string]float64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.OrderID != nil || s.Status == models.MeasurementStatusFailed {
		return repository.ErrSessionLocked
	}
	s.Status = models.MeasurementStatusCompleted
	s.Unit = unit
	s.Measurements = values
	s.CompletedAt = &at
	return nil
}

func (f *fakeMeasurements) MarkFailed(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok || s.Status != models.MeasurementStatusPending {
		return repository.ErrSessionLocked
	}
	s.Status = models.MeasurementStatusFailed
	return nil
}
