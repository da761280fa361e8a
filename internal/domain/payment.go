package domain

import (
	"encoding/json"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid    PaymentStatus = "payment_unpaid"
	PaymentStatusStarted   PaymentStatus = "payment_started"
	PaymentStatusCompleted PaymentStatus = "payment_completed"
	PaymentStatusBounced   PaymentStatus = "payment_bounced"
	PaymentStatusRefunded  PaymentStatus = "payment_refunded"
)

// Terminal reports whether no further status transition is expected.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusBounced, PaymentStatusRefunded:
		return true
	}
	return false
}

type PaymentDisplay struct {
	Intent   string `json:"intent" binding:"required"`
	Currency string `json:"currency,omitempty"`
}

type PaymentDestination struct {
	Address      string `json:"destinationAddress" binding:"required"`
	ChainID      string `json:"chainId" binding:"required"`
	AmountUnits  string `json:"amountUnits" binding:"required,decimalamount"`
	TokenAddress string `json:"tokenAddress,omitempty"`
	TokenSymbol  string `json:"tokenSymbol,omitempty"`
	TxHash       string `json:"txHash,omitempty"`
}

// PaymentSource is populated only once funds have moved.
type PaymentSource struct {
	PayerAddress string `json:"payerAddress,omitempty"`
	TxHash       string `json:"txHash,omitempty"`
	ChainID      string `json:"chainId,omitempty"`
	AmountUnits  string `json:"amountUnits,omitempty"`
	TokenSymbol  string `json:"tokenSymbol,omitempty"`
}

// PaymentRequest is the canonical provider-agnostic creation request.
// PreferredChainID and PreferredToken steer pay-in provider selection and are
// distinct from the destination fields.
type PaymentRequest struct {
	Display          PaymentDisplay         `json:"display" binding:"required"`
	Destination      PaymentDestination     `json:"destination" binding:"required"`
	PreferredChainID string                 `json:"preferredChainId,omitempty"`
	PreferredToken   string                 `json:"preferredToken,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	AppID            string                 `json:"appId,omitempty"`
}

// RoutingChainID returns the chain id used for provider selection.
func (r *PaymentRequest) RoutingChainID() string {
	if r.PreferredChainID != "" {
		return r.PreferredChainID
	}
	return r.Destination.ChainID
}

// PaymentResponse is the canonical provider-agnostic payment view.
type PaymentResponse struct {
	ID          string                 `json:"id"`
	Status      PaymentStatus          `json:"status"`
	CreatedAt   time.Time              `json:"createdAt"`
	Display     PaymentDisplay         `json:"display"`
	Source      *PaymentSource         `json:"source,omitempty"`
	Destination PaymentDestination     `json:"destination"`
	ExternalID  string                 `json:"externalId,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CheckoutURL string                 `json:"checkoutUrl,omitempty"`
}

// PaymentRecord is the persisted superset of PaymentResponse, tagged with the
// provider that handled the payment so refreshes bypass chain re-resolution.
type PaymentRecord struct {
	ID              string
	Provider        string
	ChainID         string
	ExternalID      string
	Status          PaymentStatus
	Request         PaymentRequest
	Response        PaymentResponse
	RawResponse     json.RawMessage
	SourceAddress   string
	SourceTxHash    string
	WithdrawTxHash  string
	WithdrawID      string
	StatusUpdatedAt time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsStale reports whether the record's status should be re-fetched from the
// provider. Terminal records are never stale: a closed payment is an
// immutable fact upstream. A non-terminal record is stale once strictly more
// than threshold has elapsed since the last status change.
func (r *PaymentRecord) IsStale(threshold time.Duration, now time.Time) bool {
	if r.Status.Terminal() {
		return false
	}
	return now.Sub(r.StatusUpdatedAt) > threshold
}

// ToResponse builds the caller-visible view of the record. Sensitive metadata
// is stripped and the record's audit fields override the cached snapshot.
func (r *PaymentRecord) ToResponse() *PaymentResponse {
	resp := r.Response
	resp.ID = r.ID
	resp.ExternalID = r.ExternalID
	resp.Status = r.Status
	resp.Metadata = FilterMetadata(r.Response.Metadata)

	if r.SourceAddress != "" || r.SourceTxHash != "" {
		if resp.Source == nil {
			resp.Source = &PaymentSource{}
		}
		if r.SourceAddress != "" {
			resp.Source.PayerAddress = r.SourceAddress
		}
		if r.SourceTxHash != "" {
			resp.Source.TxHash = r.SourceTxHash
		}
	}
	if r.WithdrawTxHash != "" {
		resp.Destination.TxHash = r.WithdrawTxHash
	}

	return &resp
}

// MerchantTokenKey names the metadata entry carrying the merchant's webhook
// verification token. It must never leave the process in a response.
const MerchantTokenKey = "merchant_token"

// FilterMetadata returns a copy of metadata with the merchant token removed.
// A nil map yields an empty map, never nil.
func FilterMetadata(metadata map[string]interface{}) map[string]interface{} {
	filtered := make(map[string]interface{}, len(metadata))
	for k, v := range metadata {
		if k == MerchantTokenKey {
			continue
		}
		filtered[k] = v
	}
	return filtered
}

// ProviderHealth is the result of a single adapter health probe.
type ProviderHealth struct {
	Status         string `json:"status"`
	ResponseTimeMs int64  `json:"responseTimeMs"`
	Error          string `json:"error,omitempty"`
}

const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// WebhookEvent is the provider-neutral view of an inbound push notification,
// produced by the originating provider's adapter.
type WebhookEvent struct {
	ExternalID     string
	ProviderStatus string
	PayerAddress   string
	TxHash         string
}

// WithdrawalRequest is the payload sent to the downstream conversion API once
// an eligible payment completes.
type WithdrawalRequest struct {
	PaymentID   string `json:"paymentId"`
	Address     string `json:"address"`
	AmountUnits string `json:"amountUnits"`
	Currency    string `json:"currency"`
	ChainID     string `json:"chainId"`
}

type WithdrawalResult struct {
	WithdrawID string `json:"withdrawId"`
	TxHash     string `json:"txHash,omitempty"`
	Status     string `json:"status,omitempty"`
}
