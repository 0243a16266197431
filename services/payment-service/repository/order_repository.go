package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrAlreadyMaterialized is returned by CreateIfAbsent when an order for the
// same (stripe_session_id, vendor_id) already exists.
var ErrAlreadyMaterialized = errors.New("order already materialized for session and vendor")

// OrderRepository defines data access for orders and their items.
type OrderRepository interface {
	CreateIfAbsent(ctx context.Context, order *models.Order) ([]uuid.UUID, error)
	FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error)
	FindByVendorID(ctx context.Context, vendorID string, page, limit int) ([]models.Order, int64, error)
	FindByIDAndUserID(ctx context.Context, id uuid.UUID, userID string) (*models.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) ([]models.Order, error)
	TransitionByPaymentReference(ctx context.Context, paymentRef, from, to string, paidAt *time.Time) (int64, error)
	TransitionBySessionID(ctx context.Context, sessionID, from, to string, paidAt *time.Time) (int64, error)
}

// GormOrderRepository implements OrderRepository using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// CreateIfAbsent inserts the order, its items and the measurement session
// bindings in one transaction. The insert is conditional on the
// (stripe_session_id, vendor_id) unique index, so of two concurrent
// deliveries exactly one creates the order and the other gets
// ErrAlreadyMaterialized with nothing written.
//
// Items carrying a snapshot bind their session with a guarded update. A
// session that turns out to be consumed by another order is not rebound; its
// snapshot is dropped from the order and its id is returned.
func (r *GormOrderRepository) CreateIfAbsent(ctx context.Context, order *models.Order) ([]uuid.UUID, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	var lost []uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "stripe_session_id"}, {Name: "vendor_id"}},
				DoNothing: true,
			}).
			Create(order)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyMaterialized
		}

		lost = lost[:0]
		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			if item.MeasurementSnapshot == nil || item.MeasurementSessionID == nil {
				continue
			}
			bound, err := bindSession(tx, *item.MeasurementSessionID, order.ID)
			if err != nil {
				return err
			}
			if !bound {
				lost = append(lost, *item.MeasurementSessionID)
				item.MeasurementSnapshot = nil
			}
		}

		if order.MeasurementSessionID != nil && containsID(lost, *order.MeasurementSessionID) {
			promoted := &models.Order{}
			if item := firstBoundItem(order.Items); item != nil {
				id := *item.MeasurementSessionID
				promoted.MeasurementSessionID = &id
				promoted.MeasurementSnapshot = item.MeasurementSnapshot
			}
			if err := tx.Model(&models.Order{}).
				Where("id = ?", order.ID).
				Select("measurement_session_id", "measurement_snapshot").
				Updates(promoted).Error; err != nil {
				return err
			}
			order.MeasurementSessionID = promoted.MeasurementSessionID
			order.MeasurementSnapshot = promoted.MeasurementSnapshot
		}

		if len(order.Items) > 0 {
			if err := tx.Create(&order.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lost, nil
}

// bindSession points a completed session at orderID unless another order
// already holds it. Rebinding to the same order is a no-op success.
func bindSession(tx *gorm.DB, sessionID, orderID uuid.UUID) (bool, error) {
	res := tx.Model(&models.MeasurementSession{}).
		Where("id = ? AND status = ? AND (order_id IS NULL OR order_id = ?)",
			sessionID, models.MeasurementStatusCompleted, orderID).
		Update("order_id", orderID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// firstBoundItem returns the first item still holding a snapshot.
func firstBoundItem(items []models.OrderItem) *models.OrderItem {
	for i := range items {
		if items[i].MeasurementSnapshot != nil && items[i].MeasurementSessionID != nil {
			return &items[i]
		}
	}
	return nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// FindByUserID retrieves a buyer's orders, newest first.
func (r *GormOrderRepository) FindByUserID(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	return r.paginate(ctx, r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID), page, limit)
}

// FindByVendorID retrieves the orders a tailor has to fulfil, newest first.
func (r *GormOrderRepository) FindByVendorID(ctx context.Context, vendorID string, page, limit int) ([]models.Order, int64, error) {
	return r.paginate(ctx, r.db.WithContext(ctx).Model(&models.Order{}).Where("vendor_id = ?", vendorID), page, limit)
}

func (r *GormOrderRepository) paginate(ctx context.Context, query *gorm.DB, page, limit int) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.
		Preload("Items").
		Offset(offset).
		Limit(limit).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// FindByIDAndUserID retrieves one order owned by the buyer.
func (r *GormOrderRepository) FindByIDAndUserID(ctx context.Context, id uuid.UUID, userID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindBySessionID returns every vendor order materialized from one checkout.
func (r *GormOrderRepository) FindBySessionID(ctx context.Context, sessionID string) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("stripe_session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// TransitionByPaymentReference moves orders paid by paymentRef from one
// status to another. Orders in any other status are left alone, which makes
// replays of the same payment event harmless.
func (r *GormOrderRepository) TransitionByPaymentReference(ctx context.Context, paymentRef, from, to string, paidAt *time.Time) (int64, error) {
	if paymentRef == "" {
		return 0, nil
	}
	return r.transition(ctx, "payment_reference = ? AND status = ?", paymentRef, from, to, paidAt)
}

// TransitionBySessionID is TransitionByPaymentReference keyed by checkout
// session.
func (r *GormOrderRepository) TransitionBySessionID(ctx context.Context, sessionID, from, to string, paidAt *time.Time) (int64, error) {
	if sessionID == "" {
		return 0, nil
	}
	return r.transition(ctx, "stripe_session_id = ? AND status = ?", sessionID, from, to, paidAt)
}

func (r *GormOrderRepository) transition(ctx context.Context, where, key, from, to string, paidAt *time.Time) (int64, error) {
	updates := map[string]interface{}{"status": to}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where(where, key, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}
