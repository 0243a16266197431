package services_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yashrajoria/tailoring-backend/services/common/errors"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/providers"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/services"
	"go.uber.org/zap"
)

type stubProvider struct {
	capture *providers.Capture
}

func (p *stubProvider) Name() string { return models.MeasurementProviderAutomated }

func (p *stubProvider) CreateSession(context.Context, uuid.UUID, string) (string, error) {
	return "scan_1", nil
}

func (p *stubProvider) GetMeasurements(context.Context, *models.MeasurementSession) (*providers.Capture, error) {
	return p.capture, nil
}

func (p *stubProvider) GetMobileEntryPoint(s *models.MeasurementSession) string {
	return "https://scan.example.com/" + s.ExternalRef
}

func newMeasurementService(repo *fakeMeasurements, auto *stubProvider) services.MeasurementService {
	registry := providers.NewRegistry(providers.NewManualProvider("https://m.example.com"), auto)
	return services.NewMeasurementService(repo, registry, zap.NewNop())
}

func TestMeasurementService_ManualLifecycle(t *testing.T) {
	repo := newFakeMeasurements()
	svc := newMeasurementService(repo, &stubProvider{})

	created, err := svc.CreateSession(context.Background(), "U1", models.MeasurementProviderManual)
	require.NoError(t, err)
	assert.Equal(t, models.MeasurementStatusPending, created.Session.Status)
	assert.Contains(t, created.EntryURL, created.Session.ID.String())

	id := created.Session.ID
	resp, err := svc.SubmitManual(context.Background(), "U1", id, &models.SubmitMeasurementsRequest{
		Unit:   "cm",
		Values: map[string]float64{" Chest ": 96.5, "waist": 81},
	})
	require.NoError(t, err)
	assert.Equal(t, models.MeasurementStatusCompleted, resp.Session.Status)
	assert.Equal(t, 96.5, repo.sessions[id].Measurements["chest"])

	// Re-measuring is allowed until an order freezes the session.
	_, err = svc.SubmitManual(context.Background(), "U1", id, &models.SubmitMeasurementsRequest{Unit: "cm", Values: map[string]float64{"chest": 97}})
	require.NoError(t, err)

	orderID := uuid.New()
	repo.sessions[id].OrderID = &orderID
	_, err = svc.SubmitManual(context.Background(), "U1", id, &models.SubmitMeasurementsRequest{Unit: "cm", Values: map[string]float64{"chest": 99}})
	assert.Equal(t, http.StatusConflict, apperrors.StatusOf(err))
	assert.Equal(t, 97.0, repo.sessions[id].Measurements["chest"])
}

func TestMeasurementService_RejectsBadValues(t *testing.T) {
	repo := newFakeMeasurements()
	svc := newMeasurementService(repo, &stubProvider{})
	created, err := svc.CreateSession(context.Background(), "U1", models.MeasurementProviderManual)
	require.NoError(t, err)

	for _, values := range []map[string]float64{
		{},
		{"chest": -1},
		{"chest": 0},
		{"": 10},
		{"chest": 5000},
	} {
		_, err := svc.SubmitManual(context.Background(), "U1", created.Session.ID, &models.SubmitMeasurementsRequest{Unit: "cm", Values: values})
		assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err), "%v", values)
	}
}

func TestMeasurementService_HidesOtherBuyersSessions(t *testing.T) {
	repo := newFakeMeasurements()
	s := repo.add("U2", map[string]float64{"chest": 90})
	s.Provider = models.MeasurementProviderManual
	svc := newMeasurementService(repo, &stubProvider{})

	_, err := svc.GetSession(context.Background(), "U1", s.ID)
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))

	_, err = svc.GetSession(context.Background(), "U1", uuid.New())
	assert.Equal(t, http.StatusNotFound, apperrors.StatusOf(err))
}

func TestMeasurementService_PollsAutomatedCapture(t *testing.T) {
	repo := newFakeMeasurements()
	auto := &stubProvider{capture: &providers.Capture{Status: models.MeasurementStatusPending}}
	svc := newMeasurementService(repo, auto)

	created, err := svc.CreateSession(context.Background(), "U1", models.MeasurementProviderAutomated)
	require.NoError(t, err)
	assert.Equal(t, "scan_1", created.Session.ExternalRef)
	assert.Equal(t, "https://scan.example.com/scan_1", created.EntryURL)

	got, err := svc.GetSession(context.Background(), "U1", created.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MeasurementStatusPending, got.Session.Status)

	auto.capture = &providers.Capture{Status: models.MeasurementStatusCompleted, Unit: "cm", Values: map[string]float64{"inseam": 78}}
	got, err = svc.GetSession(context.Background(), "U1", created.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MeasurementStatusCompleted, got.Session.Status)
	assert.Equal(t, 78.0, repo.sessions[created.Session.ID].Measurements["inseam"])

	_, err = svc.SubmitManual(context.Background(), "U1", created.Session.ID, &models.SubmitMeasurementsRequest{Unit: "cm", Values: map[string]float64{"inseam": 80}})
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
}

func TestMeasurementService_UnknownProvider(t *testing.T) {
	svc := newMeasurementService(newFakeMeasurements(), &stubProvider{})
	_, err := svc.CreateSession(context.Background(), "U1", "tape-robot")
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
}
