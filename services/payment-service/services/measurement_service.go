package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/yashrajoria/tailoring-backend/services/common/errors"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/providers"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxMeasurementValues = 40
	maxMeasurementValue  = 1000
)

type MeasurementService interface {
	CreateSession(ctx context.Context, userID, provider string) (*models.MeasurementSessionResponse, error)
	GetSession(ctx context.Context, userID string, id uuid.UUID) (*models.MeasurementSessionResponse, error)
	SubmitManual(ctx context.Context, userID string, id uuid.UUID, req *models.SubmitMeasurementsRequest) (*models.MeasurementSessionResponse, error)
}

type measurementServiceImpl struct {
	repo      repository.MeasurementRepository
	providers providers.Registry
	logger    *zap.Logger
}

func NewMeasurementService(repo repository.MeasurementRepository, registry providers.Registry, logger *zap.Logger) MeasurementService {
	return &measurementServiceImpl{repo: repo, providers: registry, logger: logger}
}

func (s *measurementServiceImpl) CreateSession(ctx context.Context, userID, providerName string) (*models.MeasurementSessionResponse, error) {
	p, err := s.providers.Get(providerName)
	if err != nil {
		return nil, apperrors.BadRequest("Unknown measurement provider", err)
	}

	session := &models.MeasurementSession{
		ID:       uuid.New(),
		UserID:   userID,
		Provider: p.Name(),
		Status:   models.MeasurementStatusPending,
	}
	ref, err := p.CreateSession(ctx, session.ID, userID)
	if err != nil {
		s.logger.Error("Measurement provider rejected session", zap.String("provider", p.Name()), zap.Error(err))
		return nil, apperrors.BadGateway("Measurement provider unavailable", err)
	}
	session.ExternalRef = ref

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, apperrors.Internal("Failed to create measurement session", err)
	}

	s.logger.Info("Measurement session created",
		zap.String("measurement_session_id", session.ID.String()),
		zap.String("provider", session.Provider),
	)
	return &models.MeasurementSessionResponse{Session: session, EntryURL: p.GetMobileEntryPoint(session)}, nil
}

// GetSession returns the buyer's session. Pending automated captures are
// refreshed from the provider first.
func (s *measurementServiceImpl) GetSession(ctx context.Context, userID string, id uuid.UUID) (*models.MeasurementSessionResponse, error) {
	session, p, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if session.Status == models.MeasurementStatusPending && session.Provider != models.MeasurementProviderManual {
		s.refresh(ctx, p, session)
	}
	return &models.MeasurementSessionResponse{Session: session, EntryURL: p.GetMobileEntryPoint(session)}, nil
}

func (s *measurementServiceImpl) refresh(ctx context.Context, p providers.MeasurementProvider, session *models.MeasurementSession) {
	c, err := p.GetMeasurements(ctx, session)
	if err != nil {
		s.logger.Warn("Failed to poll measurement provider", zap.String("measurement_session_id", session.ID.String()), zap.Error(err))
		return
	}

	switch c.Status {
	case models.MeasurementStatusCompleted:
		at := time.Now().UTC()
		if c.CompletedAt != nil {
			at = *c.CompletedAt
		}
		if err := s.repo.Complete(ctx, session.ID, c.Unit, c.Values, at); err != nil {
			s.logger.Warn("Failed to store captured measurements", zap.String("measurement_session_id", session.ID.String()), zap.Error(err))
			return
		}
		session.Status = models.MeasurementStatusCompleted
		session.Unit = c.Unit
		session.Measurements = c.Values
		session.CompletedAt = &at
	case models.MeasurementStatusFailed:
		if err := s.repo.MarkFailed(ctx, session.ID); err == nil {
			session.Status = models.MeasurementStatusFailed
		}
	}
}

// SubmitManual records typed-in values. Sessions already frozen into an
// order cannot change.
func (s *measurementServiceImpl) SubmitManual(ctx context.Context, userID string, id uuid.UUID, req *models.SubmitMeasurementsRequest) (*models.MeasurementSessionResponse, error) {
	session, p, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if session.Provider != models.MeasurementProviderManual {
		return nil, apperrors.BadRequest("Session is captured automatically", nil)
	}
	if session.OrderID != nil {
		return nil, apperrors.Conflict("Measurements are already part of an order")
	}

	values, err := cleanMeasurements(req.Values)
	if err != nil {
		return nil, err
	}

	at := time.Now().UTC()
	if err := s.repo.Complete(ctx, id, req.Unit, values, at); err != nil {
		if errors.Is(err, repository.ErrSessionLocked) {
			return nil, apperrors.Conflict("Measurements are already part of an order")
		}
		return nil, apperrors.Internal("Failed to save measurements", err)
	}

	session.Status = models.MeasurementStatusCompleted
	session.Unit = req.Unit
	session.Measurements = values
	session.CompletedAt = &at
	return &models.MeasurementSessionResponse{Session: session, EntryURL: p.GetMobileEntryPoint(session)}, nil
}

func (s *measurementServiceImpl) load(ctx context.Context, userID string, id uuid.UUID) (*models.MeasurementSession, providers.MeasurementProvider, error) {
	session, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperrors.NotFound("Measurement session not found")
	}
	if err != nil {
		return nil, nil, apperrors.Internal("Failed to load measurement session", err)
	}
	// Other buyers' sessions are indistinguishable from missing ones.
	if session.UserID != userID {
		return nil, nil, apperrors.NotFound("Measurement session not found")
	}
	p, err := s.providers.Get(session.Provider)
	if err != nil {
		return nil, nil, apperrors.Internal("Measurement provider not configured", err)
	}
	return session, p, nil
}

func cleanMeasurements(in map[string]float64) (map[string]float64, error) {
	if len(in) == 0 {
		return nil, apperrors.BadRequest("At least one measurement is required", nil)
	}
	if len(in) > maxMeasurementValues {
		return nil, apperrors.BadRequest("Too many measurements", nil)
	}
	out := make(map[string]float64, len(in))
	for name, v := range in {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, apperrors.BadRequest("Measurement names must not be empty", nil)
		}
		if v <= 0 || v >= maxMeasurementValue {
			return nil, apperrors.BadRequest("Measurement "+name+" is out of range", nil)
		}
		out[name] = v
	}
	return out, nil
}
