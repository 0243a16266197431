package models

import "github.com/google/uuid"

// Checkout shapes carried in the checkoutType metadata discriminator.
const (
	CheckoutKindSingle = "single"
	CheckoutKindCart   = "cart"
)

// CheckoutEvent is the decoded, validated form of a completed Stripe checkout
// session. It lives only for the duration of one webhook delivery.
type CheckoutEvent struct {
	SessionID        string
	PaymentReference string
	UserID           string
	BuyerEmail       string
	Kind             string
	ShippingAddress  Address
	ShippingMethod   string
	TotalAmount      int64
	Currency         string
	PaymentSettled   bool
	// PaymentFailed is set when the session arrives through the async
	// failure event; its orders are created already failed.
	PaymentFailed bool
	Items            []CheckoutLineItem
}

// CheckoutLineItem is one purchased product. Subtotal == Quantity * UnitPrice.
type CheckoutLineItem struct {
	ProductID            string
	VendorID             string
	ProductTitle         string
	ProductDescription   string
	MeasurementSessionID *uuid.UUID
	Quantity             int64
	UnitPrice            int64
	Subtotal             int64
	Notes                string
	FabricChoice         string
	CartItemID           string
}

// CreateCheckoutRequest opens a Stripe Checkout Session. With BuyNow set the
// buyer purchases that one product directly; otherwise the cart is checked
// out, optionally restricted to ItemIDs.
type CreateCheckoutRequest struct {
	ShippingAddress Address   `json:"shipping_address"`
	ShippingMethod  string    `json:"shipping_method,omitempty"`
	ItemIDs         []string  `json:"item_ids,omitempty"`
	BuyNow          *CartItem `json:"buy_now,omitempty"`
}

type CheckoutSessionResponse struct {
	SessionID   string `json:"session_id"`
	URL         string `json:"url"`
	TotalAmount int64  `json:"total_amount"`
	PlatformFee int64  `json:"platform_fee"`
	Currency    string `json:"currency"`
}
