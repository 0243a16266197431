package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MeasurementStatusPending   = "pending"
	MeasurementStatusCompleted = "completed"
	MeasurementStatusFailed    = "failed"
)

const (
	MeasurementProviderManual    = "manual"
	MeasurementProviderAutomated = "automated"
)

// MeasurementSession is a body-measurement capture. OrderID is set exactly
// once, when an order freezes the session's values.
type MeasurementSession struct {
	ID           uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       string             `gorm:"type:varchar(128);not null;index" json:"user_id"`
	Provider     string             `gorm:"type:varchar(32);not null" json:"provider"`
	Status       string             `gorm:"type:varchar(20);not null" json:"status"`
	Unit         string             `gorm:"type:varchar(8)" json:"unit,omitempty"`
	Measurements map[string]float64 `gorm:"type:jsonb;serializer:json" json:"measurements,omitempty"`
	ExternalRef  string             `gorm:"type:varchar(255)" json:"-"`
	OrderID      *uuid.UUID         `gorm:"type:uuid;index" json:"order_id,omitempty"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	CreatedAt    time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *MeasurementSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Snapshot copies the session's values. The map is cloned so later edits to
// the session cannot reach the copy.
func (s *MeasurementSession) Snapshot() *MeasurementSnapshot {
	values := make(map[string]float64, len(s.Measurements))
	for k, v := range s.Measurements {
		values[k] = v
	}
	snap := &MeasurementSnapshot{
		SessionID: s.ID,
		Unit:      s.Unit,
		Values:    values,
	}
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		snap.CapturedAt = &at
	}
	return snap
}

type CreateMeasurementSessionRequest struct {
	Provider string `json:"provider" binding:"required"`
}

// SubmitMeasurementsRequest carries manually entered values keyed by body
// position, e.g. {"chest": 96.5}.
type SubmitMeasurementsRequest struct {
	Unit   string             `json:"unit" binding:"required,oneof=cm in"`
	Values map[string]float64 `json:"values" binding:"required"`
}

type MeasurementSessionResponse struct {
	Session  *MeasurementSession `json:"session"`
	EntryURL string              `json:"entry_url,omitempty"`
}
