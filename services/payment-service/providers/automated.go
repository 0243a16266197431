package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yashrajoria/tailoring-backend/services/payment-service/models"
)

// AutomatedProvider drives a phone-camera body scan vendor over HTTP.
type AutomatedProvider struct {
	baseURL      string
	apiKey       string
	entryBaseURL string
	httpClient   *http.Client
}

func NewAutomatedProvider(baseURL, apiKey, entryBaseURL string) *AutomatedProvider {
	return &AutomatedProvider{
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		entryBaseURL: strings.TrimRight(entryBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type scanCreateRequest struct {
	Reference string `json:"reference"`
	UserRef   string `json:"user_ref"`
}

type scanResponse struct {
	ID           string             `json:"id"`
	Status       string             `json:"status"`
	Unit         string             `json:"unit"`
	Measurements map[string]float64 `json:"measurements"`
	CompletedAt  *time.Time         `json:"completed_at"`
}

func (p *AutomatedProvider) Name() string { return models.MeasurementProviderAutomated }

func (p *AutomatedProvider) CreateSession(ctx context.Context, sessionID uuid.UUID, userID string) (string, error) {
	var resp scanResponse
	req := scanCreateRequest{Reference: sessionID.String(), UserRef: userID}
	if err := p.doRequest(ctx, http.MethodPost, "/v1/scans", req, &resp); err != nil {
		return "", fmt.Errorf("automated CreateSession: %w", err)
	}
	if resp.ID == "" {
		return "", fmt.Errorf("automated CreateSession: empty scan id")
	}
	return resp.ID, nil
}

func (p *AutomatedProvider) GetMeasurements(ctx context.Context, s *models.MeasurementSession) (*Capture, error) {
	if s.ExternalRef == "" {
		return nil, fmt.Errorf("automated GetMeasurements: session %s has no scan reference", s.ID)
	}

	var resp scanResponse
	if err := p.doRequest(ctx, http.MethodGet, "/v1/scans/"+url.PathEscape(s.ExternalRef), nil, &resp); err != nil {
		return nil, fmt.Errorf("automated GetMeasurements: %w", err)
	}

	c := &Capture{Status: models.MeasurementStatusPending}
	switch resp.Status {
	case "complete", "completed":
		c.Status = models.MeasurementStatusCompleted
		c.Unit = resp.Unit
		c.Values = resp.Measurements
		c.CompletedAt = resp.CompletedAt
	case "failed", "rejected":
		c.Status = models.MeasurementStatusFailed
	}
	return c, nil
}

func (p *AutomatedProvider) GetMobileEntryPoint(s *models.MeasurementSession) string {
	return p.entryBaseURL + "/scan/" + url.PathEscape(s.ExternalRef)
}

func (p *AutomatedProvider) doRequest(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("capture API error (status %d): %s", resp.StatusCode, string(respBytes))
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
