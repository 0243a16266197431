package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"
	awspkg "github.com/yashrajoria/tailoring-backend/pkg/aws"
	apperrors "github.com/yashrajoria/tailoring-backend/services/common/errors"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"go.uber.org/zap"
)

type CheckoutSessionCreator interface {
	CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type CartReader interface {
	GetCart(ctx context.Context, userID string) (*models.Cart, error)
}

type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, userID string, req *models.CreateCheckoutRequest) (*models.CheckoutSessionResponse, error)
}

type CheckoutSettings struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

type checkoutServiceImpl struct {
	carts    CartReader
	stripe   CheckoutSessionCreator
	fees     FeeSchedule
	settings CheckoutSettings
	metrics  MetricsRecorder
	logger   *zap.Logger
}

func NewCheckoutService(carts CartReader, creator CheckoutSessionCreator, fees FeeSchedule, settings CheckoutSettings, metrics MetricsRecorder, logger *zap.Logger) CheckoutService {
	settings.Currency = strings.ToLower(settings.Currency)
	return &checkoutServiceImpl{
		carts:    carts,
		stripe:   creator,
		fees:     fees,
		settings: settings,
		metrics:  orNoop(metrics),
		logger:   logger,
	}
}

// CreateCheckoutSession prices the selection, writes the flat metadata the
// webhook decodes and opens a Stripe Checkout Session for it.
func (s *checkoutServiceImpl) CreateCheckoutSession(ctx context.Context, userID string, req *models.CreateCheckoutRequest) (*models.CheckoutSessionResponse, error) {
	if err := validateAddress(req.ShippingAddress); err != nil {
		return nil, err
	}

	evt := &models.CheckoutEvent{
		UserID:          userID,
		ShippingAddress: req.ShippingAddress,
		ShippingMethod:  req.ShippingMethod,
		Currency:        s.settings.Currency,
	}

	var selected []models.CartItem
	if req.BuyNow != nil {
		evt.Kind = models.CheckoutKindSingle
		selected = []models.CartItem{*req.BuyNow}
	} else {
		evt.Kind = models.CheckoutKindCart
		items, err := s.cartSelection(ctx, userID, req.ItemIDs)
		if err != nil {
			return nil, err
		}
		selected = items
	}
	if len(selected) > MaxCartItems {
		return nil, apperrors.BadRequest(fmt.Sprintf("A checkout can hold at most %d items; please check out in parts", MaxCartItems), nil)
	}

	for _, ci := range selected {
		line, err := lineFromCart(ci, evt.Kind == models.CheckoutKindCart)
		if err != nil {
			return nil, err
		}
		evt.Items = append(evt.Items, line)
	}

	md, err := EncodeCheckoutMetadata(evt)
	if err != nil {
		return nil, apperrors.BadRequest("Checkout is too large for one payment", err)
	}

	var fee int64
	for _, g := range GroupByVendor(evt.Items) {
		fee += s.fees.Fee(g.Subtotal())
	}
	total := s.fees.ExpectedTotal(evt.Items)

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.settings.SuccessURL),
		CancelURL:         stripe.String(s.settings.CancelURL),
		ClientReferenceID: stripe.String(userID),
	}
	for _, it := range evt.Items {
		params.LineItems = append(params.LineItems, s.lineItem(it.ProductTitle, it.UnitPrice, it.Quantity))
	}
	if fee > 0 {
		params.LineItems = append(params.LineItems, s.lineItem("Platform fee", fee, 1))
	}
	for k, v := range md {
		params.AddMetadata(k, v)
	}

	sess, err := s.stripe.CreateCheckoutSession(params)
	if err != nil {
		s.logger.Error("Stripe checkout session creation failed", zap.String("user_id", userID), zap.Error(err))
		return nil, apperrors.BadGateway("Payment provider unavailable", err)
	}

	s.logger.Info("Checkout session opened",
		zap.String("user_id", userID),
		zap.String("session_id", sess.ID),
		zap.String("checkout_type", evt.Kind),
		zap.Int("items", len(evt.Items)),
		zap.Int64("total_amount", total),
	)
	_ = s.metrics.RecordCount(ctx, awspkg.MetricCheckoutSessionsOpened, 1, nil)

	return &models.CheckoutSessionResponse{
		SessionID:   sess.ID,
		URL:         sess.URL,
		TotalAmount: total,
		PlatformFee: fee,
		Currency:    evt.Currency,
	}, nil
}

func (s *checkoutServiceImpl) cartSelection(ctx context.Context, userID string, ids []string) ([]models.CartItem, error) {
	cart, err := s.carts.GetCart(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load cart", err)
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, apperrors.BadRequest("Cart is empty", nil)
	}
	if len(ids) == 0 {
		return cart.Items, nil
	}

	byID := make(map[string]models.CartItem, len(cart.Items))
	for _, it := range cart.Items {
		byID[it.ID] = it
	}
	selected := make([]models.CartItem, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, apperrors.BadRequest("Cart item "+id+" not found", nil)
		}
		selected = append(selected, it)
	}
	return selected, nil
}

func (s *checkoutServiceImpl) lineItem(name string, unitAmount, quantity int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(s.settings.Currency),
			UnitAmount: stripe.Int64(unitAmount),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
		},
		Quantity: stripe.Int64(quantity),
	}
}

func lineFromCart(ci models.CartItem, fromCart bool) (models.CheckoutLineItem, error) {
	if ci.ProductID == "" || ci.VendorID == "" || ci.Title == "" {
		return models.CheckoutLineItem{}, apperrors.BadRequest("Item is missing product, vendor or title", nil)
	}
	if ci.Quantity < 1 || ci.UnitPrice < 0 {
		return models.CheckoutLineItem{}, apperrors.BadRequest("Item "+ci.ProductID+" has an invalid quantity or price", nil)
	}

	line := models.CheckoutLineItem{
		ProductID:          ci.ProductID,
		VendorID:           ci.VendorID,
		ProductTitle:       ci.Title,
		ProductDescription: ci.Description,
		Quantity:           ci.Quantity,
		UnitPrice:          ci.UnitPrice,
		Subtotal:           ci.Quantity * ci.UnitPrice,
		Notes:              ci.Notes,
		FabricChoice:       ci.FabricChoice,
	}
	if fromCart {
		line.CartItemID = ci.ID
	}
	if ci.MeasurementSessionID != "" {
		id, err := uuid.Parse(ci.MeasurementSessionID)
		if err != nil {
			return models.CheckoutLineItem{}, apperrors.BadRequest("Invalid measurement session id", err)
		}
		line.MeasurementSessionID = &id
	}
	return line, nil
}

func validateAddress(a models.Address) error {
	if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.PostalCode) == "" || strings.TrimSpace(a.Country) == "" {
		return apperrors.BadRequest("Shipping address needs name, street, city, postal code and country", nil)
	}
	return nil
}
