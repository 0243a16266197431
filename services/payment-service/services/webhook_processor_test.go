package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80/webhook"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/services"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_tailoring"

type processorFixture struct {
	*fanoutFixture
	status    *fakeStatusUpdater
	carts     *fakeCartStore
	notifier  *fakeNotifier
	queue     *fakeSender
	processor *services.WebhookProcessor
}

func newProcessorFixture() *processorFixture {
	ff := newFanoutFixture()
	logger := zap.NewNop()
	f := &processorFixture{
		fanoutFixture: ff,
		status:        &fakeStatusUpdater{},
		carts: &fakeCartStore{carts: map[string][]models.CartItem{
			"U1": {
				{ID: "ci-1", ProductID: "P1", VendorID: "V1"},
				{ID: "ci-2", ProductID: "P2", VendorID: "V2"},
				{ID: "ci-3", ProductID: "P7", VendorID: "V1"},
			},
		}},
		notifier: &fakeNotifier{},
		queue:    &fakeSender{},
	}
	f.processor = services.NewWebhookProcessor(services.WebhookDeps{
		Verifier: services.NewStripeService("sk_test_unused", testWebhookSecret, 5*time.Minute),
		Fanout:   ff.fanout,
		Orders:   f.status,
		Carts:    services.NewCartClearer(f.carts, logger),
		Notifier: f.notifier,
		Failures: services.NewFailureReporter(f.queue, logger),
		Fees:     tenPercent,
		Metrics:  ff.metrics,
		Logger:   logger,
	})
	return f
}

func sessionObject(md map[string]string, total int64) map[string]interface{} {
	return map[string]interface{}{
		"id":               "cs_test_a1",
		"object":           "checkout.session",
		"amount_total":     total,
		"currency":         "usd",
		"payment_status":   "paid",
		"payment_intent":   "pi_test_a1",
		"customer_details": map[string]interface{}{"email": "asha@example.com"},
		"metadata":         md,
	}
}

func signedAt(t *testing.T, eventType string, object interface{}, ts time.Time) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"id":     "evt_test_1",
		"object": "event",
		"type":   eventType,
		"data":   map[string]interface{}{"object": object},
	})
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    testWebhookSecret,
		Timestamp: ts,
	})
	return signed.Payload, signed.Header
}

func signed(t *testing.T, eventType string, object interface{}) ([]byte, string) {
	return signedAt(t, eventType, object, time.Now())
}

func TestProcess_CheckoutCompletedFansOut(t *testing.T) {
	f := newProcessorFixture()
	payload, sig := signed(t, services.EventCheckoutCompleted, sessionObject(twoVendorCart(), 16500))

	out, err := f.processor.Process(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.Equal(t, "evt_test_1", out.EventID)
	require.NotNil(t, out.Fanout)
	assert.Len(t, out.Fanout.Created, 2)
	assert.Len(t, f.store.all(), 2)

	assert.Equal(t, []string{"V1", "V2"}, f.notifier.orders)
	assert.Equal(t, []string{"asha@example.com", "asha@example.com"}, f.notifier.recipients)

	// ci-1 by id, P2/V2 by product; the unrelated item stays.
	require.Len(t, f.carts.carts["U1"], 1)
	assert.Equal(t, "ci-3", f.carts.carts["U1"][0].ID)
	assert.Empty(t, f.queue.bodies)
}

func TestProcess_RedeliveryIsNoop(t *testing.T) {
	f := newProcessorFixture()
	payload, sig := signed(t, services.EventCheckoutCompleted, sessionObject(twoVendorCart(), 16500))

	_, err := f.processor.Process(context.Background(), payload, sig)
	require.NoError(t, err)
	out, err := f.processor.Process(context.Background(), payload, sig)
	require.NoError(t, err)

	assert.Empty(t, out.Fanout.Created)
	assert.Len(t, out.Fanout.AlreadyMaterialized, 2)
	assert.Len(t, f.store.all(), 2)
	assert.Len(t, f.notifier.orders, 2)
}

func TestProcess_RejectsBadSignature(t *testing.T) {
	f := newProcessorFixture()
	payload, _ := signed(t, services.EventCheckoutCompleted, sessionObject(twoVendorCart(), 16500))

	_, err := f.processor.Process(context.Background(), payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, services.ErrSignatureInvalid)
	assert.Empty(t, f.store.all())
}

func TestProcess_RejectsTamperedBody(t *testing.T) {
	f := newProcessorFixture()
	payload, sig := signed(t, services.EventCheckoutCompleted, sessionObject(twoVendorCart(), 16500))
	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = ' '

	_, err := f.processor.Process(context.Background(), tampered, sig)
	assert.ErrorIs(t, err, services.ErrSignatureInvalid)
}

func TestProcess_RejectsStaleSignature(t *testing.T) {
	f := newProcessorFixture()
	payload, sig := signedAt(t, services.EventCheckoutCompleted, sessionObject(twoVendorCart(), 16500), time.Now().Add(-time.Hour))

	_, err := f.processor.Process(context.Background(), payload, sig)
	assert.ErrorIs(t, err, services.ErrSignatureInvalid)
	assert.Empty(t, f.store.all())
}

func TestProcess_DecodeFailureCreatesNothing(t *testing.T) {
	f := newProcessorFixture()
	payload, sig := signed(t, services.EventCheckoutCompleted, sessionObject(singleItem(), 10000))

	_, err := f.processor.Process(context.Background(), payload, sig)
	var de *services.DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "amount_total", de.Field)
	assert.Empty(t, f.store.all())
	assert.Empty(t, f.notifier.orders)
	assert.Len(t, f.carts.carts["U1"], 3)
}

func TestProcess_IgnoresUnknownEvents(t *testing.T) {
	f := newProcessorFixture()
	payload, sig := signed(t, "customer.created", map[string]interface{}{"id": "cus_1", "object": "customer"})

	out, err := f.processor.Process(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.True(t, out.Ignored)
	assert.Empty(t, f.status.calls)
}

func TestProcess_VendorFailureReportsAndErrors(t *testing.T) {
	f := newProcessorFixture()
	f.store.failVendors["V2"] = errors.New("deadlock detected")
	payload, sig := signed(t, services.EventCheckoutCompleted, sessionObject(twoVendorCart(), 16500))

	out, err := f.processor.Process(context.Background(), payload, sig)
	require.Error(t, err)

	var vge *services.VendorGroupError
	require.True(t, errors.As(err, &vge))
	assert.Equal(t, "V2", vge.VendorID)
	assert.Len(t, out.Fanout.Created, 1)
	assert.Equal(t, []string{"V1"}, f.notifier.orders)
	assert.Len(t, f.carts.carts["U1"], 1)

	require.Len(t, f.queue.bodies, 1)
	var queued models.VendorGroupFailedEvent
	require.NoError(t, json.Unmarshal([]byte(f.queue.bodies[0]), &queued))
	assert.Equal(t, "V2", queued.VendorID)
	assert.Equal(t, "cs_test_a1", queued.SessionID)
	assert.Equal(t, "evt_test_1", queued.EventID)
}

func TestProcess_SingleCheckoutLeavesCart(t *testing.T) {
	f := newProcessorFixture()
	payload, sig := signed(t, services.EventCheckoutCompleted, sessionObject(singleItem(), 11000))

	_, err := f.processor.Process(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.Len(t, f.store.all(), 1)
	assert.Len(t, f.carts.carts["U1"], 3)
}

func TestProcess_PaymentIntentReconciliation(t *testing.T) {
	f := newProcessorFixture()
	f.status.n = 2

	payload, sig := signed(t, services.EventPaymentIntentSucceeded, map[string]interface{}{"id": "pi_async", "object": "payment_intent"})
	out, err := f.processor.Process(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.Equal(t, int64(2), out.Transitioned)

	payload, sig = signed(t, services.EventPaymentIntentFailed, map[string]interface{}{"id": "pi_declined", "object": "payment_intent"})
	_, err = f.processor.Process(context.Background(), payload, sig)
	require.NoError(t, err)

	require.Len(t, f.status.calls, 2)
	assert.Equal(t, transition{key: "pi_async", from: models.OrderStatusAwaitingPayment, to: models.OrderStatusPaid, paid: true}, f.status.calls[0])
	assert.Equal(t, transition{key: "pi_declined", from: models.OrderStatusAwaitingPayment, to: models.OrderStatusPaymentFailed}, f.status.calls[1])
	assert.Empty(t, f.store.all())
}

func TestProcess_AsyncPaymentSucceededMaterializesAndSettles(t *testing.T) {
	f := newProcessorFixture()
	payload, sig := signed(t, services.EventCheckoutAsyncPaymentPassed, sessionObject(twoVendorCart(), 16500))

	_, err := f.processor.Process(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.Len(t, f.store.all(), 2)
	require.Len(t, f.status.calls, 1)
	assert.Equal(t, "cs_test_a1", f.status.calls[0].key)
	assert.Equal(t, models.OrderStatusPaid, f.status.calls[0].to)
}

func TestProcess_StatusStoreFailureIsInfrastructureError(t *testing.T) {
	f := newProcessorFixture()
	f.status.err = errors.New("connection refused")
	payload, sig := signed(t, services.EventPaymentIntentSucceeded, map[string]interface{}{"id": "pi_x", "object": "payment_intent"})

	_, err := f.processor.Process(context.Background(), payload, sig)
	require.Error(t, err)
	assert.NotErrorIs(t, err, services.ErrSignatureInvalid)
	var de *services.DecodeError
	assert.False(t, errors.As(err, &de))
}

func unpaidSession(md map[string]string, total int64) map[string]interface{} {
	obj := sessionObject(md, total)
	obj["payment_status"] = "unpaid"
	return obj
}

func TestProcess_AsyncFailureBeforeCompletedLeavesNothingAwaiting(t *testing.T) {
	f := newProcessorFixture()

	payload, sig := signed(t, services.EventCheckoutAsyncPaymentFailed, unpaidSession(twoVendorCart(), 16500))
	out, err := f.processor.Process(context.Background(), payload, sig)
	require.NoError(t, err)
	require.NotNil(t, out.Fanout)
	assert.Len(t, out.Fanout.Created, 2)

	payload, sig = signed(t, services.EventCheckoutCompleted, unpaidSession(twoVendorCart(), 16500))
	out, err = f.processor.Process(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.Empty(t, out.Fanout.Created)
	assert.ElementsMatch(t, []string{"V1", "V2"}, out.Fanout.AlreadyMaterialized)

	orders := f.store.all()
	require.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, models.OrderStatusPaymentFailed, o.Status, "vendor %s", o.VendorID)
		assert.Nil(t, o.PaidAt)
	}
	// The declined checkout keeps the cart and sends no order mail.
	assert.Len(t, f.carts.carts["U1"], 3)
	assert.Empty(t, f.notifier.orders)
}

func TestProcess_AsyncFailureAfterCompletedSettlesExistingOrders(t *testing.T) {
	f := newProcessorFixture()

	payload, sig := signed(t, services.EventCheckoutCompleted, unpaidSession(twoVendorCart(), 16500))
	_, err := f.processor.Process(context.Background(), payload, sig)
	require.NoError(t, err)
	for _, o := range f.store.all() {
		assert.Equal(t, models.OrderStatusAwaitingPayment, o.Status)
	}

	payload, sig = signed(t, services.EventCheckoutAsyncPaymentFailed, unpaidSession(twoVendorCart(), 16500))
	out, err := f.processor.Process(context.Background(), payload, sig)
	require.NoError(t, err)
	assert.Empty(t, out.Fanout.Created)
	require.Len(t, f.status.calls, 1)
	assert.Equal(t, transition{key: "cs_test_a1", from: models.OrderStatusAwaitingPayment, to: models.OrderStatusPaymentFailed}, f.status.calls[0])
}
