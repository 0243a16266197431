package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v80"
	awspkg "github.com/yashrajoria/tailoring-backend/pkg/aws"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"go.uber.org/zap"
)

// Stripe event types the processor acts on.
const (
	EventCheckoutCompleted          = "checkout.session.completed"
	EventCheckoutAsyncPaymentPassed = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncPaymentFailed = "checkout.session.async_payment_failed"
	EventPaymentIntentSucceeded     = "payment_intent.succeeded"
	EventPaymentIntentFailed        = "payment_intent.payment_failed"
)

type EventVerifier interface {
	VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error)
}

// OrderStatusUpdater applies guarded status transitions to existing orders.
type OrderStatusUpdater interface {
	TransitionByPaymentReference(ctx context.Context, paymentRef, from, to string, paidAt *time.Time) (int64, error)
	TransitionBySessionID(ctx context.Context, sessionID, from, to string, paidAt *time.Time) (int64, error)
}

type OrderCreatedNotifier interface {
	OrderCreated(ctx context.Context, order *models.Order, recipient string)
}

// Outcome describes what one delivery did. It is returned alongside an error
// when some vendor groups failed.
type Outcome struct {
	EventID      string
	EventType    string
	Ignored      bool
	Fanout       *FanoutResult
	Transitioned int64
}

// WebhookProcessor verifies a Stripe delivery and routes it.
type WebhookProcessor struct {
	verifier EventVerifier
	fanout   *OrderFanout
	orders   OrderStatusUpdater
	carts    *CartClearer
	notifier OrderCreatedNotifier
	failures *FailureReporter
	fees     FeeSchedule
	metrics  MetricsRecorder
	logger   *zap.Logger
	now      func() time.Time
}

type WebhookDeps struct {
	Verifier EventVerifier
	Fanout   *OrderFanout
	Orders   OrderStatusUpdater
	Carts    *CartClearer
	Notifier OrderCreatedNotifier
	Failures *FailureReporter
	Fees     FeeSchedule
	Metrics  MetricsRecorder
	Logger   *zap.Logger
}

func NewWebhookProcessor(d WebhookDeps) *WebhookProcessor {
	return &WebhookProcessor{
		verifier: d.Verifier,
		fanout:   d.Fanout,
		orders:   d.Orders,
		carts:    d.Carts,
		notifier: d.Notifier,
		failures: d.Failures,
		fees:     d.Fees,
		metrics:  orNoop(d.Metrics),
		logger:   d.Logger,
		now:      time.Now,
	}
}

// Process handles one raw delivery. Errors wrap ErrSignatureInvalid, a
// *DecodeError, or are infrastructure failures that Stripe should retry.
func (p *WebhookProcessor) Process(ctx context.Context, payload []byte, sigHeader string) (*Outcome, error) {
	event, err := p.verifier.VerifyEvent(payload, sigHeader)
	if err != nil {
		_ = p.metrics.RecordCount(ctx, awspkg.MetricWebhookRejected, 1, map[string]string{"Reason": "signature"})
		return nil, err
	}

	eventType := string(event.Type)
	out := &Outcome{EventID: event.ID, EventType: eventType}
	_ = p.metrics.RecordCount(ctx, awspkg.MetricWebhookEvents, 1, map[string]string{"EventType": eventType})

	log := p.logger.With(zap.String("event_id", event.ID), zap.String("event_type", eventType))

	switch eventType {
	case EventCheckoutCompleted:
		err = p.materialize(ctx, log, event, out, false)
	case EventCheckoutAsyncPaymentPassed:
		if err = p.materialize(ctx, log, event, out, false); err != nil {
			return out, err
		}
		err = p.settleSession(ctx, log, event, out, models.OrderStatusPaid)
	case EventCheckoutAsyncPaymentFailed:
		// The failure can overtake a retried checkout.session.completed, so
		// the orders are created here as failed. A later completed delivery
		// then dedupes against them instead of leaving them awaiting payment.
		if err = p.materialize(ctx, log, event, out, true); err != nil {
			return out, err
		}
		err = p.settleSession(ctx, log, event, out, models.OrderStatusPaymentFailed)
	case EventPaymentIntentSucceeded:
		err = p.settlePaymentIntent(ctx, log, event, out, models.OrderStatusPaid)
	case EventPaymentIntentFailed:
		err = p.settlePaymentIntent(ctx, log, event, out, models.OrderStatusPaymentFailed)
	default:
		log.Info("Ignoring unhandled Stripe event")
		out.Ignored = true
	}
	return out, err
}

func (p *WebhookProcessor) materialize(ctx context.Context, log *zap.Logger, event stripe.Event, out *Outcome, paymentFailed bool) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return p.rejectPayload(ctx, log, &DecodeError{Field: "data.object", Reason: err.Error()})
	}

	evt, err := DecodeCheckout(&sess, p.fees)
	if err != nil {
		return p.rejectPayload(ctx, log, err)
	}

	evt.PaymentFailed = paymentFailed && !evt.PaymentSettled

	result := p.fanout.Materialize(ctx, evt)
	out.Fanout = result

	// A declined checkout keeps the buyer's cart and sends no order mail.
	if !evt.PaymentFailed {
		p.carts.Clear(ctx, evt)
		for _, order := range result.Created {
			p.notifier.OrderCreated(ctx, order, evt.BuyerEmail)
		}
	}

	log.Info("Checkout materialized",
		zap.String("session_id", evt.SessionID),
		zap.Int("created", len(result.Created)),
		zap.Int("already_materialized", len(result.AlreadyMaterialized)),
		zap.Int("failed", len(result.Failed)),
	)

	if len(result.Failed) > 0 {
		p.failures.Report(ctx, event.ID, evt, result.Failed)
		return fmt.Errorf("materialize checkout %s: %w", evt.SessionID, result.Err())
	}
	return nil
}

func (p *WebhookProcessor) rejectPayload(ctx context.Context, log *zap.Logger, err error) error {
	fields := []zap.Field{zap.Error(err)}
	var de *DecodeError
	if errors.As(err, &de) {
		fields = append(fields, zap.String("field", de.Field))
	}
	log.Error("Rejecting undecodable checkout payload", fields...)
	_ = p.metrics.RecordCount(ctx, awspkg.MetricWebhookRejected, 1, map[string]string{"Reason": "decode"})
	return err
}

func (p *WebhookProcessor) settleSession(ctx context.Context, log *zap.Logger, event stripe.Event, out *Outcome, to string) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil || sess.ID == "" {
		return p.rejectPayload(ctx, log, &DecodeError{Field: "data.object.id", Reason: "missing checkout session id"})
	}

	n, err := p.orders.TransitionBySessionID(ctx, sess.ID, models.OrderStatusAwaitingPayment, to, p.paidAt(to))
	if err != nil {
		return fmt.Errorf("update orders for session %s: %w", sess.ID, err)
	}
	out.Transitioned += n
	log.Info("Reconciled checkout payment", zap.String("session_id", sess.ID), zap.String("status", to), zap.Int64("orders", n))
	return nil
}

func (p *WebhookProcessor) settlePaymentIntent(ctx context.Context, log *zap.Logger, event stripe.Event, out *Outcome, to string) error {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil || pi.ID == "" {
		return p.rejectPayload(ctx, log, &DecodeError{Field: "data.object.id", Reason: "missing payment intent id"})
	}

	n, err := p.orders.TransitionByPaymentReference(ctx, pi.ID, models.OrderStatusAwaitingPayment, to, p.paidAt(to))
	if err != nil {
		return fmt.Errorf("update orders for payment %s: %w", pi.ID, err)
	}
	out.Transitioned = n
	log.Info("Reconciled payment intent", zap.String("payment_reference", pi.ID), zap.String("status", to), zap.Int64("orders", n))
	return nil
}

func (p *WebhookProcessor) paidAt(status string) *time.Time {
	if status != models.OrderStatusPaid {
		return nil
	}
	now := p.now()
	return &now
}
