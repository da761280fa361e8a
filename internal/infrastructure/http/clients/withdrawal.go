package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
	"github.com/RozoAI/api-proxy-sub001/internal/domain/interfaces"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

type withdrawalClient struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewWithdrawalClient builds the client for the external conversion API.
// Each call is a single attempt: the retry budget belongs to the withdrawal
// trigger, not the transport.
func NewWithdrawalClient(cfg config.WithdrawalConfig, logger zerolog.Logger) interfaces.WithdrawalAPI {
	return &withdrawalClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		logger: logger.With().Str("component", "withdrawal_client").Logger(),
	}
}

func (c *withdrawalClient) CreateWithdrawal(ctx context.Context, withdrawal *domain.WithdrawalRequest) (*domain.WithdrawalResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody, err := json.Marshal(withdrawal)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal withdrawal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/withdrawals", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create withdrawal request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("withdrawal request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read withdrawal response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("withdrawal API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result domain.WithdrawalResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal withdrawal response: %w", err)
	}

	c.logger.Info().
		Str("payment_id", withdrawal.PaymentID).
		Str("withdraw_id", result.WithdrawID).
		Msg("Withdrawal request accepted")

	return &result, nil
}
