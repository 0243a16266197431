package providers

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
)

// ManualProvider lets the buyer type measurements in themselves. The values
// live only in our own session row.
type ManualProvider struct {
	entryBaseURL string
}

func NewManualProvider(entryBaseURL string) *ManualProvider {
	return &ManualProvider{entryBaseURL: strings.TrimRight(entryBaseURL, "/")}
}

func (p *ManualProvider) Name() string { return models.MeasurementProviderManual }

func (p *ManualProvider) CreateSession(context.Context, uuid.UUID, string) (string, error) {
	return "", nil
}

func (p *ManualProvider) GetMeasurements(_ context.Context, s *models.MeasurementSession) (*Capture, error) {
	return &Capture{
		Status:      s.Status,
		Unit:        s.Unit,
		Values:      s.Measurements,
		CompletedAt: s.CompletedAt,
	}, nil
}

func (p *ManualProvider) GetMobileEntryPoint(s *models.MeasurementSession) string {
	return p.entryBaseURL + "/measurements/" + s.ID.String() + "/manual"
}
