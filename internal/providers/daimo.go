package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

const daimoMaxAmountDecimals = 18

// DaimoAdapter speaks the Daimo Pay API, which settles on EVM-family chains.
// Its status vocabulary matches the canonical one.
type DaimoAdapter struct {
	cfg    config.ProviderConfig
	client *apiClient
	logger zerolog.Logger
}

func NewDaimoAdapter(cfg config.ProviderConfig, logger zerolog.Logger) *DaimoAdapter {
	return &DaimoAdapter{
		cfg:    cfg,
		client: newAPIClient(cfg.Name, cfg.BaseURL, cfg.Timeout, logger),
		logger: logger.With().Str("provider", cfg.Name).Logger(),
	}
}

type daimoDisplay struct {
	Intent   string `json:"intent"`
	Currency string `json:"currency,omitempty"`
}

type daimoDestination struct {
	DestinationAddress string `json:"destinationAddress"`
	ChainID            string `json:"chainId"`
	AmountUnits        string `json:"amountUnits"`
	TokenAddress       string `json:"tokenAddress,omitempty"`
	TokenSymbol        string `json:"tokenSymbol,omitempty"`
	TxHash             string `json:"txHash,omitempty"`
}

type daimoSource struct {
	PayerAddress string `json:"payerAddress,omitempty"`
	TxHash       string `json:"txHash,omitempty"`
	ChainID      string `json:"chainId,omitempty"`
	AmountUnits  string `json:"amountUnits,omitempty"`
	TokenSymbol  string `json:"tokenSymbol,omitempty"`
}

type daimoPaymentRequest struct {
	Display        daimoDisplay           `json:"display"`
	Destination    daimoDestination       `json:"destination"`
	PreferredChain string                 `json:"preferredChain,omitempty"`
	PreferredToken string                 `json:"preferredToken,omitempty"`
	ExternalID     string                 `json:"externalId,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type daimoPayment struct {
	ID          string                 `json:"id"`
	Status      string                 `json:"status"`
	CreatedAt   string                 `json:"createdAt"`
	Display     daimoDisplay           `json:"display"`
	Source      *daimoSource           `json:"source,omitempty"`
	Destination daimoDestination       `json:"destination"`
	ExternalID  string                 `json:"externalId,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	URL         string                 `json:"url,omitempty"`
}

type daimoWebhookPayload struct {
	Type      string        `json:"type"`
	PaymentID string        `json:"paymentId"`
	TxHash    string        `json:"txHash,omitempty"`
	Payment   *daimoPayment `json:"payment,omitempty"`
}

func (a *DaimoAdapter) Name() string { return a.cfg.Name }

func (a *DaimoAdapter) Enabled() bool { return a.cfg.Enabled }

func (a *DaimoAdapter) ValidateRequest(req *domain.PaymentRequest) error {
	if !isEVMAddress(req.Destination.Address) {
		return &domain.ValidationError{
			Field:  "destination.destinationAddress",
			Reason: "must be a 0x-prefixed 40-hex-digit EVM address",
		}
	}
	if req.Destination.TokenAddress != "" && !isEVMAddress(req.Destination.TokenAddress) {
		return &domain.ValidationError{
			Field:  "destination.tokenAddress",
			Reason: "must be a 0x-prefixed 40-hex-digit EVM address",
		}
	}
	if _, err := validateAmount(req.Destination.AmountUnits, daimoMaxAmountDecimals); err != nil {
		return err
	}
	return nil
}

func (a *DaimoAdapter) CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, json.RawMessage, error) {
	if err := a.ValidateRequest(req); err != nil {
		return nil, nil, err
	}

	var payment daimoPayment
	raw, err := a.client.doJSON(ctx, http.MethodPost, "/api/payment", a.authHeaders(), a.toWire(req), &payment)
	if err != nil {
		return nil, nil, fmt.Errorf("daimo create payment failed: %w", err)
	}

	resp := a.fromWire(&payment)
	return resp, raw, nil
}

func (a *DaimoAdapter) GetPayment(ctx context.Context, externalID string) (*domain.PaymentResponse, json.RawMessage, error) {
	var payment daimoPayment
	raw, err := a.client.doJSON(ctx, http.MethodGet, "/api/payment/"+externalID, a.authHeaders(), nil, &payment)
	if err != nil {
		return nil, nil, fmt.Errorf("daimo get payment %s failed: %w", externalID, err)
	}

	resp := a.fromWire(&payment)
	return resp, raw, nil
}

func (a *DaimoAdapter) HealthCheck(ctx context.Context) domain.ProviderHealth {
	return a.client.healthCheck(ctx, "/api/health", a.authHeaders())
}

func (a *DaimoAdapter) MapStatus(providerStatus string) domain.PaymentStatus {
	switch domain.PaymentStatus(providerStatus) {
	case domain.PaymentStatusUnpaid, domain.PaymentStatusStarted,
		domain.PaymentStatusCompleted, domain.PaymentStatusBounced,
		domain.PaymentStatusRefunded:
		return domain.PaymentStatus(providerStatus)
	default:
		return domain.PaymentStatusUnpaid
	}
}

func (a *DaimoAdapter) ParseWebhook(payload []byte) (*domain.WebhookEvent, error) {
	var event daimoWebhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse daimo webhook payload: %w", err)
	}
	if event.PaymentID == "" && event.Payment != nil {
		event.PaymentID = event.Payment.ID
	}

	parsed := &domain.WebhookEvent{
		ExternalID:     event.PaymentID,
		ProviderStatus: event.Type,
		TxHash:         event.TxHash,
	}
	if event.Payment != nil && event.Payment.Source != nil {
		parsed.PayerAddress = event.Payment.Source.PayerAddress
		if parsed.TxHash == "" {
			parsed.TxHash = event.Payment.Source.TxHash
		}
	}
	return parsed, nil
}

func (a *DaimoAdapter) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.cfg.APIKey}
}

// toWire converts a canonical request to the Daimo wire shape.
func (a *DaimoAdapter) toWire(req *domain.PaymentRequest) *daimoPaymentRequest {
	return &daimoPaymentRequest{
		Display: daimoDisplay{
			Intent:   req.Display.Intent,
			Currency: req.Display.Currency,
		},
		Destination: daimoDestination{
			DestinationAddress: req.Destination.Address,
			ChainID:            req.Destination.ChainID,
			AmountUnits:        req.Destination.AmountUnits,
			TokenAddress:       req.Destination.TokenAddress,
			TokenSymbol:        req.Destination.TokenSymbol,
		},
		PreferredChain: req.PreferredChainID,
		PreferredToken: req.PreferredToken,
		ExternalID:     req.AppID,
		Metadata:       req.Metadata,
	}
}

// fromWire converts a Daimo payment to the canonical response shape.
func (a *DaimoAdapter) fromWire(p *daimoPayment) *domain.PaymentResponse {
	resp := &domain.PaymentResponse{
		ID:        p.ID,
		Status:    a.MapStatus(p.Status),
		CreatedAt: parseDaimoTimestamp(p.CreatedAt),
		Display: domain.PaymentDisplay{
			Intent:   p.Display.Intent,
			Currency: p.Display.Currency,
		},
		Destination: domain.PaymentDestination{
			Address:      p.Destination.DestinationAddress,
			ChainID:      p.Destination.ChainID,
			AmountUnits:  p.Destination.AmountUnits,
			TokenAddress: p.Destination.TokenAddress,
			TokenSymbol:  p.Destination.TokenSymbol,
			TxHash:       p.Destination.TxHash,
		},
		ExternalID:  p.ID,
		Metadata:    p.Metadata,
		CheckoutURL: p.URL,
	}
	if p.Source != nil {
		resp.Source = &domain.PaymentSource{
			PayerAddress: p.Source.PayerAddress,
			TxHash:       p.Source.TxHash,
			ChainID:      p.Source.ChainID,
			AmountUnits:  p.Source.AmountUnits,
			TokenSymbol:  p.Source.TokenSymbol,
		}
	}
	return resp
}

// Daimo timestamps arrive as unix seconds encoded as a string.
func parseDaimoTimestamp(value string) time.Time {
	if value == "" {
		return time.Now().UTC()
	}
	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		if t, parseErr := time.Parse(time.RFC3339, value); parseErr == nil {
			return t
		}
		return time.Now().UTC()
	}
	return time.Unix(seconds, 0).UTC()
}
