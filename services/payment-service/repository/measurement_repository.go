package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"gorm.io/gorm"
)

// ErrSessionLocked is returned when a session can no longer change because an
// order already froze it, or it was never in a changeable state.
var ErrSessionLocked = errors.New("measurement session is locked")

type MeasurementRepository interface {
	Create(ctx context.Context, session *models.MeasurementSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.MeasurementSession, error)
	Complete(ctx context.Context, id uuid.UUID, unit string, values map[string]float64, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

type GormMeasurementRepository struct {
	db *gorm.DB
}

func NewGormMeasurementRepository(db *gorm.DB) *GormMeasurementRepository {
	return &GormMeasurementRepository{db: db}
}

func (r *GormMeasurementRepository) Create(ctx context.Context, session *models.MeasurementSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *GormMeasurementRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.MeasurementSession, error) {
	var s models.MeasurementSession
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// Complete stores captured values. Re-capturing a completed session is
// allowed until an order binds it.
func (r *GormMeasurementRepository) Complete(ctx context.Context, id uuid.UUID, unit string, values map[string]float64, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.MeasurementSession{}).
		Where("id = ? AND order_id IS NULL AND status <> ?", id, models.MeasurementStatusFailed).
		Updates(models.MeasurementSession{
			Status:       models.MeasurementStatusCompleted,
			Unit:         unit,
			Measurements: values,
			CompletedAt:  &at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionLocked
	}
	return nil
}

// MarkFailed closes a pending capture that the provider gave up on.
func (r *GormMeasurementRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.MeasurementSession{}).
		Where("id = ? AND status = ?", id, models.MeasurementStatusPending).
		Update("status", models.MeasurementStatusFailed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSessionLocked
	}
	return nil
}
