package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

// Stellar amounts carry at most 7 decimal places.
const aquaMaxAmountDecimals = 7

// AquaAdapter speaks the Aqua API, which settles on the Stellar network. Its
// status vocabulary is provider-specific and mapped to the canonical one.
type AquaAdapter struct {
	cfg    config.ProviderConfig
	client *apiClient
	logger zerolog.Logger
}

func NewAquaAdapter(cfg config.ProviderConfig, logger zerolog.Logger) *AquaAdapter {
	return &AquaAdapter{
		cfg:    cfg,
		client: newAPIClient(cfg.Name, cfg.BaseURL, cfg.Timeout, logger),
		logger: logger.With().Str("provider", cfg.Name).Logger(),
	}
}

type aquaCreateRequest struct {
	Address     string                 `json:"address"`
	Amount      string                 `json:"amount"`
	AssetCode   string                 `json:"asset_code"`
	Description string                 `json:"description,omitempty"`
	Currency    string                 `json:"currency,omitempty"`
	Reference   string                 `json:"external_reference,omitempty"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
}

type aquaPayment struct {
	PaymentID    string                 `json:"payment_id"`
	Status       string                 `json:"status"`
	Address      string                 `json:"address"`
	Amount       string                 `json:"amount"`
	AssetCode    string                 `json:"asset_code"`
	Description  string                 `json:"description,omitempty"`
	Currency     string                 `json:"currency,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	PayerAddress string                 `json:"payer_address,omitempty"`
	TxHash       string                 `json:"tx_hash,omitempty"`
	CheckoutURL  string                 `json:"checkout_url,omitempty"`
	Meta         map[string]interface{} `json:"meta,omitempty"`
}

type aquaDepositAddress struct {
	Address   string    `json:"address"`
	Memo      string    `json:"memo,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

type aquaWebhookPayload struct {
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	PayerAddress string `json:"payer_address,omitempty"`
	TxHash       string `json:"tx_hash,omitempty"`
}

func (a *AquaAdapter) Name() string { return a.cfg.Name }

func (a *AquaAdapter) Enabled() bool { return a.cfg.Enabled }

func (a *AquaAdapter) ValidateRequest(req *domain.PaymentRequest) error {
	if !isStellarAddress(req.Destination.Address) {
		return &domain.ValidationError{
			Field:  "destination.destinationAddress",
			Reason: "must be a G-prefixed 56-character Stellar address",
		}
	}
	if req.Destination.TokenSymbol == "" {
		return &domain.ValidationError{
			Field:  "destination.tokenSymbol",
			Reason: "token symbol is required for Stellar payments",
		}
	}
	if _, err := validateAmount(req.Destination.AmountUnits, aquaMaxAmountDecimals); err != nil {
		return err
	}
	return nil
}

func (a *AquaAdapter) CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, json.RawMessage, error) {
	if err := a.ValidateRequest(req); err != nil {
		return nil, nil, err
	}

	var payment aquaPayment
	raw, err := a.client.doJSON(ctx, http.MethodPost, "/v1/payments", a.authHeaders(), a.toWire(req), &payment)
	if err != nil {
		return nil, nil, fmt.Errorf("aqua create payment failed: %w", err)
	}

	resp := a.fromWire(&payment)
	a.enrichDepositAddress(ctx, req, resp)
	return resp, raw, nil
}

func (a *AquaAdapter) GetPayment(ctx context.Context, externalID string) (*domain.PaymentResponse, json.RawMessage, error) {
	var payment aquaPayment
	raw, err := a.client.doJSON(ctx, http.MethodGet, "/v1/payments/"+externalID, a.authHeaders(), nil, &payment)
	if err != nil {
		return nil, nil, fmt.Errorf("aqua get payment %s failed: %w", externalID, err)
	}

	resp := a.fromWire(&payment)
	return resp, raw, nil
}

func (a *AquaAdapter) HealthCheck(ctx context.Context) domain.ProviderHealth {
	return a.client.healthCheck(ctx, "/v1/health", a.authHeaders())
}

// MapStatus translates Aqua's event vocabulary. Unknown upstream statuses
// degrade to unpaid so reconciliation stays total over arbitrary input.
func (a *AquaAdapter) MapStatus(providerStatus string) domain.PaymentStatus {
	switch providerStatus {
	case "created":
		return domain.PaymentStatusUnpaid
	case "retry":
		return domain.PaymentStatusStarted
	case "paid":
		return domain.PaymentStatusCompleted
	case "failed":
		return domain.PaymentStatusBounced
	case "deleted":
		return domain.PaymentStatusBounced
	case "refunded":
		return domain.PaymentStatusRefunded
	default:
		return domain.PaymentStatusUnpaid
	}
}

func (a *AquaAdapter) ParseWebhook(payload []byte) (*domain.WebhookEvent, error) {
	var event aquaWebhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse aqua webhook payload: %w", err)
	}
	return &domain.WebhookEvent{
		ExternalID:     event.PaymentID,
		ProviderStatus: event.Status,
		PayerAddress:   event.PayerAddress,
		TxHash:         event.TxHash,
	}, nil
}

func (a *AquaAdapter) authHeaders() map[string]string {
	return map[string]string{"X-API-Key": a.cfg.APIKey}
}

// enrichDepositAddress fetches a time-boxed pay-in address for the preferred
// chain and token. The call is best effort: failures are logged and the
// primary create result is returned untouched.
func (a *AquaAdapter) enrichDepositAddress(ctx context.Context, req *domain.PaymentRequest, resp *domain.PaymentResponse) {
	if req.PreferredChainID == "" || req.PreferredToken == "" {
		return
	}

	endpoint := fmt.Sprintf("/v1/deposit-address?chain=%s&token=%s",
		url.QueryEscape(req.PreferredChainID), url.QueryEscape(req.PreferredToken))

	var deposit aquaDepositAddress
	if _, err := a.client.doJSON(ctx, http.MethodGet, endpoint, a.authHeaders(), nil, &deposit); err != nil {
		a.logger.Warn().Err(err).
			Str("chain_id", req.PreferredChainID).
			Str("token", req.PreferredToken).
			Msg("Failed to fetch deposit address, continuing without enrichment")
		return
	}

	if resp.Metadata == nil {
		resp.Metadata = make(map[string]interface{})
	}
	resp.Metadata["deposit_address"] = deposit.Address
	if deposit.Memo != "" {
		resp.Metadata["deposit_memo"] = deposit.Memo
	}
	if !deposit.ExpiresAt.IsZero() {
		resp.Metadata["deposit_expires_at"] = deposit.ExpiresAt.Format(time.RFC3339)
	}
}

// toWire converts a canonical request to the Aqua wire shape.
func (a *AquaAdapter) toWire(req *domain.PaymentRequest) *aquaCreateRequest {
	return &aquaCreateRequest{
		Address:     req.Destination.Address,
		Amount:      req.Destination.AmountUnits,
		AssetCode:   req.Destination.TokenSymbol,
		Description: req.Display.Intent,
		Currency:    req.Display.Currency,
		Reference:   req.AppID,
		Meta:        req.Metadata,
	}
}

// fromWire converts an Aqua payment to the canonical response shape. Aqua
// does not assign a gateway-visible id, so one is synthesized when absent.
func (a *AquaAdapter) fromWire(p *aquaPayment) *domain.PaymentResponse {
	id := p.PaymentID
	if id == "" {
		id = uuid.New().String()
	}

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	resp := &domain.PaymentResponse{
		ID:        id,
		Status:    a.MapStatus(p.Status),
		CreatedAt: createdAt,
		Display: domain.PaymentDisplay{
			Intent:   p.Description,
			Currency: p.Currency,
		},
		Destination: domain.PaymentDestination{
			Address:     p.Address,
			ChainID:     "stellar",
			AmountUnits: p.Amount,
			TokenSymbol: p.AssetCode,
		},
		ExternalID:  p.PaymentID,
		Metadata:    p.Meta,
		CheckoutURL: p.CheckoutURL,
	}
	if p.PayerAddress != "" || p.TxHash != "" {
		resp.Source = &domain.PaymentSource{
			PayerAddress: p.PayerAddress,
			TxHash:       p.TxHash,
			ChainID:      "stellar",
			AmountUnits:  p.Amount,
			TokenSymbol:  p.AssetCode,
		}
	}
	return resp
}
