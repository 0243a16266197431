package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MeasurementLookup loads measurement sessions.
type MeasurementLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.MeasurementSession, error)
}

// BindingAnomaly records a measurement session that could not be frozen into
// an order. The order is still created, without the snapshot.
type BindingAnomaly struct {
	SessionID uuid.UUID
	VendorID  string
	ProductID string
	Reason    string
}

// MeasurementBinder decides which measurement snapshot, if any, a line item
// carries into its order. The binding itself is written by the order store
// in the order's transaction.
type MeasurementBinder struct {
	sessions MeasurementLookup
	logger   *zap.Logger
}

func NewMeasurementBinder(sessions MeasurementLookup, logger *zap.Logger) *MeasurementBinder {
	return &MeasurementBinder{sessions: sessions, logger: logger}
}

// Resolve returns a by-value snapshot of the item's session, or nil. An error
// is returned only for storage failures.
func (b *MeasurementBinder) Resolve(ctx context.Context, buyerID string, item models.CheckoutLineItem) (*models.MeasurementSnapshot, *BindingAnomaly, error) {
	if item.MeasurementSessionID == nil {
		return nil, nil, nil
	}
	id := *item.MeasurementSessionID
	log := b.logger.With(
		zap.String("measurement_session_id", id.String()),
		zap.String("vendor_id", item.VendorID),
		zap.String("product_id", item.ProductID),
	)

	session, err := b.sessions.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn("Measurement session not found, creating order without measurements")
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load measurement session %s: %w", id, err)
	}

	if session.Status != models.MeasurementStatusCompleted {
		log.Info("Measurement session not completed, creating order without measurements",
			zap.String("status", session.Status))
		return nil, nil, nil
	}

	anomaly := func(reason string) *BindingAnomaly {
		return &BindingAnomaly{SessionID: id, VendorID: item.VendorID, ProductID: item.ProductID, Reason: reason}
	}
	if session.UserID != buyerID {
		return nil, anomaly("session belongs to another buyer"), nil
	}
	if session.OrderID != nil {
		return nil, anomaly("session already bound to order " + session.OrderID.String()), nil
	}

	return session.Snapshot(), nil, nil
}
