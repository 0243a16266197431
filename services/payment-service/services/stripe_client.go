package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
)

// ErrSignatureInvalid means the webhook body was not signed with our secret
// or the signature timestamp is outside the tolerance window.
var ErrSignatureInvalid = errors.New("invalid stripe signature")

type StripeService struct {
	webhookKey string
	tolerance  time.Duration
}

func NewStripeService(secretKey, webhookKey string, tolerance time.Duration) *StripeService {
	stripe.Key = secretKey
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &StripeService{webhookKey: webhookKey, tolerance: tolerance}
}

// VerifyEvent checks the Stripe-Signature header against the raw body and
// returns the parsed event. The body must be exactly the bytes Stripe sent.
func (s *StripeService) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookKey, webhook.ConstructEventOptions{
		Tolerance:                s.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return event, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return event, nil
}

func (s *StripeService) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}
