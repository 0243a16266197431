package services

import (
	"context"

	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"go.uber.org/zap"
)

// CartStore removes matching items from a buyer's cart atomically.
type CartStore interface {
	RemoveItems(ctx context.Context, userID string, match func(models.CartItem) bool) (int, error)
}

// CartClearer drops purchased items from the buyer's cart. It is cleanup
// only: a leftover item cannot be ordered twice for the same session.
type CartClearer struct {
	carts  CartStore
	logger *zap.Logger
}

func NewCartClearer(carts CartStore, logger *zap.Logger) *CartClearer {
	return &CartClearer{carts: carts, logger: logger}
}

// Clear removes the checkout's items. Single-product checkouts never came
// from the cart and are ignored. Errors are logged, not returned.
func (c *CartClearer) Clear(ctx context.Context, evt *models.CheckoutEvent) int {
	if evt.Kind != models.CheckoutKindCart || len(evt.Items) == 0 {
		return 0
	}

	byID := make(map[string]bool)
	byProduct := make(map[string]bool)
	for _, it := range evt.Items {
		if it.CartItemID != "" {
			byID[it.CartItemID] = true
		} else {
			byProduct[it.ProductID+"|"+it.VendorID] = true
		}
	}

	removed, err := c.carts.RemoveItems(ctx, evt.UserID, func(ci models.CartItem) bool {
		if byID[ci.ID] {
			return true
		}
		return byProduct[ci.ProductID+"|"+ci.VendorID]
	})
	if err != nil {
		c.logger.Warn("Failed to clear purchased items from cart",
			zap.String("user_id", evt.UserID),
			zap.String("session_id", evt.SessionID),
			zap.Error(err),
		)
		return 0
	}

	c.logger.Info("Cleared purchased items from cart",
		zap.String("user_id", evt.UserID),
		zap.Int("removed", removed),
	)
	return removed
}
