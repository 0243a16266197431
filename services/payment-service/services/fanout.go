package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	awspkg "github.com/yashrajoria/tailoring-backend/pkg/aws"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/repository"
	"go.uber.org/zap"
)

// OrderStore is the atomic create-if-absent used by the fan-out.
type OrderStore interface {
	CreateIfAbsent(ctx context.Context, order *models.Order) ([]uuid.UUID, error)
}

// VendorGroupError is one vendor group that failed to persist. Sibling
// groups are unaffected and the whole event is safe to redeliver.
type VendorGroupError struct {
	VendorID string
	Err      error
}

func (e *VendorGroupError) Error() string {
	return fmt.Sprintf("vendor %s: %v", e.VendorID, e.Err)
}

func (e *VendorGroupError) Unwrap() error { return e.Err }

// FanoutResult reports each vendor group's outcome.
type FanoutResult struct {
	Created             []*models.Order
	AlreadyMaterialized []string
	Failed              []*VendorGroupError
	Anomalies           []BindingAnomaly
}

// Err joins the failed groups, or returns nil when every group succeeded.
func (r *FanoutResult) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// OrderFanout turns one checkout into one order per vendor.
type OrderFanout struct {
	store   OrderStore
	binder  *MeasurementBinder
	fees    FeeSchedule
	metrics MetricsRecorder
	logger  *zap.Logger
	now     func() time.Time
}

func NewOrderFanout(store OrderStore, binder *MeasurementBinder, fees FeeSchedule, metrics MetricsRecorder, logger *zap.Logger) *OrderFanout {
	return &OrderFanout{
		store:   store,
		binder:  binder,
		fees:    fees,
		metrics: orNoop(metrics),
		logger:  logger,
		now:     time.Now,
	}
}

// Materialize persists every vendor group independently. A failing group is
// recorded and the loop moves on.
func (f *OrderFanout) Materialize(ctx context.Context, evt *models.CheckoutEvent) *FanoutResult {
	result := &FanoutResult{}
	tally := countTally{}
	defer tally.flush(ctx, f.metrics)
	log := f.logger.With(zap.String("session_id", evt.SessionID), zap.String("user_id", evt.UserID))

	for _, group := range GroupByVendor(evt.Items) {
		order, anomalies, err := f.buildOrder(ctx, evt, group)
		if err != nil {
			f.fail(log, result, tally, group.VendorID, err)
			continue
		}

		lost, err := f.store.CreateIfAbsent(ctx, order)
		if errors.Is(err, repository.ErrAlreadyMaterialized) {
			log.Info("Vendor order already materialized, skipping", zap.String("vendor_id", group.VendorID))
			result.AlreadyMaterialized = append(result.AlreadyMaterialized, group.VendorID)
			tally.add(awspkg.MetricOrdersDeduplicated, 1)
			continue
		}
		if err != nil {
			f.fail(log, result, tally, group.VendorID, err)
			continue
		}

		for _, id := range lost {
			anomalies = append(anomalies, BindingAnomaly{
				SessionID: id,
				VendorID:  group.VendorID,
				ProductID: productFor(group, id),
				Reason:    "session bound by a concurrent order",
			})
		}
		for _, a := range anomalies {
			log.Warn("Measurement binding anomaly",
				zap.String("vendor_id", a.VendorID),
				zap.String("product_id", a.ProductID),
				zap.String("measurement_session_id", a.SessionID.String()),
				zap.String("reason", a.Reason),
			)
		}
		tally.add(awspkg.MetricMeasurementAnomalies, len(anomalies))
		result.Anomalies = append(result.Anomalies, anomalies...)

		log.Info("Vendor order created",
			zap.String("order_id", order.ID.String()),
			zap.String("vendor_id", order.VendorID),
			zap.Int64("total_amount", order.TotalAmount),
			zap.Int64("platform_fee", order.PlatformFee),
		)
		tally.add(awspkg.MetricOrdersCreated, 1)
		result.Created = append(result.Created, order)
	}
	return result
}

func (f *OrderFanout) fail(log *zap.Logger, result *FanoutResult, tally countTally, vendorID string, err error) {
	log.Error("Vendor order failed", zap.String("vendor_id", vendorID), zap.Error(err))
	result.Failed = append(result.Failed, &VendorGroupError{VendorID: vendorID, Err: err})
	tally.add(awspkg.MetricVendorGroupsFailed, 1)
}

// buildOrder prices the group and resolves its measurement snapshots.
// Anomalies are only returned to the caller, which reports them once the
// order is known to be new.
func (f *OrderFanout) buildOrder(ctx context.Context, evt *models.CheckoutEvent, group VendorGroup) (*models.Order, []BindingAnomaly, error) {
	split := f.fees.Split(group.Subtotal())

	order := &models.Order{
		ID:               uuid.New(),
		UserID:           evt.UserID,
		VendorID:         group.VendorID,
		Status:           models.OrderStatusAwaitingPayment,
		StripeSessionID:  evt.SessionID,
		PaymentReference: evt.PaymentReference,
		TotalAmount:      split.Total,
		PlatformFee:      split.Fee,
		VendorPayable:    split.VendorPayable,
		Currency:         evt.Currency,
		ShippingAddress:  evt.ShippingAddress,
		ShippingMethod:   evt.ShippingMethod,
		Items:            make([]models.OrderItem, 0, len(group.Items)),
	}
	switch {
	case evt.PaymentSettled:
		now := f.now()
		order.Status = models.OrderStatusPaid
		order.PaidAt = &now
	case evt.PaymentFailed:
		order.Status = models.OrderStatusPaymentFailed
	}

	var anomalies []BindingAnomaly
	for _, it := range group.Items {
		snap, anomaly, err := f.binder.Resolve(ctx, evt.UserID, it)
		if err != nil {
			return nil, nil, err
		}
		if anomaly != nil {
			anomalies = append(anomalies, *anomaly)
		}

		item := models.OrderItem{
			ID:                 uuid.New(),
			OrderID:            order.ID,
			ProductID:          it.ProductID,
			ProductTitle:       it.ProductTitle,
			ProductDescription: it.ProductDescription,
			Quantity:           it.Quantity,
			UnitPrice:          it.UnitPrice,
			Subtotal:           it.Subtotal,
			Notes:              it.Notes,
			FabricChoice:       it.FabricChoice,
		}
		if it.MeasurementSessionID != nil {
			id := *it.MeasurementSessionID
			item.MeasurementSessionID = &id
		}
		item.MeasurementSnapshot = snap

		if snap != nil && order.MeasurementSnapshot == nil {
			id := snap.SessionID
			order.MeasurementSessionID = &id
			order.MeasurementSnapshot = snap
		}
		order.Items = append(order.Items, item)
	}
	return order, anomalies, nil
}

func productFor(group VendorGroup, sessionID uuid.UUID) string {
	for _, it := range group.Items {
		if it.MeasurementSessionID != nil && *it.MeasurementSessionID == sessionID {
			return it.ProductID
		}
	}
	return ""
}
