package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/models"
)

// HTTPSource polls a remote recent-applications endpoint.
type HTTPSource struct {
	config     config.DashboardConfig
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
}

// NewHTTPSource creates a source for cfg.APIEndpoint
func NewHTTPSource(cfg config.DashboardConfig) *HTTPSource {
	if cfg.RetryCount < 1 {
		cfg.RetryCount = 1
	}
	return &HTTPSource{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		backoff: func(attempt int) time.Duration {
			return time.Duration(attempt+1) * time.Second
		},
	}
}

// ListApplications fetches the list with retry logic
func (s *HTTPSource) ListApplications(ctx context.Context) ([]models.Application, error) {
	var lastErr error

	for attempt := 0; attempt < s.config.RetryCount; attempt++ {
		apps, err := s.fetchOnce(ctx)
		if err == nil {
			return apps, nil
		}

		lastErr = err
		if attempt < s.config.RetryCount-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backoff(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("%w: failed after %d attempts: %w", models.ErrUpstreamUnavailable, s.config.RetryCount, lastErr)
}

// fetchOnce performs a single fetch attempt
func (s *HTTPSource) fetchOnce(ctx context.Context) ([]models.Application, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.Token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apps []models.Application
	if err := json.Unmarshal(body, &apps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if apps == nil {
		apps = []models.Application{}
	}
	return apps, nil
}
