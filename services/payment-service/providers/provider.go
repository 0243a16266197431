package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
)

// Capture is a provider's current view of a measurement session.
type Capture struct {
	Status      string
	Unit        string
	Values      map[string]float64
	CompletedAt *time.Time
}

// MeasurementProvider is one way of capturing a buyer's body measurements.
type MeasurementProvider interface {
	// Name matches models.MeasurementSession.Provider.
	Name() string

	// CreateSession registers the capture with the provider and returns its
	// reference, if it keeps one.
	CreateSession(ctx context.Context, sessionID uuid.UUID, userID string) (string, error)

	// GetMeasurements returns the latest capture state for the session.
	GetMeasurements(ctx context.Context, session *models.MeasurementSession) (*Capture, error)

	// GetMobileEntryPoint returns the URL the buyer opens to start capturing.
	GetMobileEntryPoint(session *models.MeasurementSession) string
}

// Registry resolves providers by name.
type Registry map[string]MeasurementProvider

func NewRegistry(ps ...MeasurementProvider) Registry {
	r := make(Registry, len(ps))
	for _, p := range ps {
		r[p.Name()] = p
	}
	return r
}

func (r Registry) Get(name string) (MeasurementProvider, error) {
	p, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unknown measurement provider %q", name)
	}
	return p, nil
}
