package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
)

// healthCheckTimeout bounds adapter health probes independently of the main
// request timeout so a slow provider cannot stall an aggregate health report.
const healthCheckTimeout = 5 * time.Second

type apiClient struct {
	provider   string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

func newAPIClient(provider, baseURL string, timeout time.Duration, logger zerolog.Logger) *apiClient {
	return &apiClient{
		provider: provider,
		baseURL:  baseURL,
		timeout:  timeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger,
	}
}

// doJSON performs one request bounded by the provider timeout. The deadline
// is enforced through context cancellation so a timed-out call releases its
// resources promptly.
func (c *apiClient) doJSON(ctx context.Context, method, endpoint string, headers map[string]string, body, out interface{}) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody []byte
	if body != nil {
		var err error
		reqBody, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%s %s: %w", c.provider, endpoint, domain.ErrProviderTimeout)
		}
		return nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ProviderError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s response: %w", c.provider, err)
		}
	}

	return respBody, nil
}

// healthCheck probes the given endpoint with its own short deadline.
func (c *apiClient) healthCheck(ctx context.Context, endpoint string, headers map[string]string) domain.ProviderHealth {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return domain.ProviderHealth{Status: domain.HealthStatusUnhealthy, Error: err.Error()}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return domain.ProviderHealth{
			Status:         domain.HealthStatusUnhealthy,
			ResponseTimeMs: elapsed,
			Error:          err.Error(),
		}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ProviderHealth{
			Status:         domain.HealthStatusUnhealthy,
			ResponseTimeMs: elapsed,
			Error:          fmt.Sprintf("health endpoint returned status %d", resp.StatusCode),
		}
	}

	return domain.ProviderHealth{Status: domain.HealthStatusHealthy, ResponseTimeMs: elapsed}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
