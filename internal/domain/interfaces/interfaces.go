package interfaces

import (
	"context"
	"encoding/json"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

// ProviderAdapter translates canonical payment shapes to and from one
// external settlement provider's wire protocol.
type ProviderAdapter interface {
	Name() string
	Enabled() bool
	ValidateRequest(req *domain.PaymentRequest) error
	CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, json.RawMessage, error)
	GetPayment(ctx context.Context, externalID string) (*domain.PaymentResponse, json.RawMessage, error)
	HealthCheck(ctx context.Context) domain.ProviderHealth
	MapStatus(providerStatus string) domain.PaymentStatus
	ParseWebhook(payload []byte) (*domain.WebhookEvent, error)
}

// PaymentRepository is the durable keyed store for payment records. Lookups
// return (nil, nil) when no record matches.
type PaymentRepository interface {
	Create(ctx context.Context, record *domain.PaymentRecord) error
	GetByID(ctx context.Context, id string) (*domain.PaymentRecord, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.PaymentRecord, error)
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, rawResponse json.RawMessage) error
	UpdateSourceTx(ctx context.Context, id, payerAddress, txHash string) error
	UpdateWithdrawal(ctx context.Context, id, withdrawID, txHash string) error
	ListUnsettled(ctx context.Context, limit, offset int) ([]domain.PaymentRecord, error)
}

// PaymentRouter resolves a provider for a request and dispatches to its
// adapter. It never retries failed provider calls.
type PaymentRouter interface {
	CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, json.RawMessage, string, error)
	GetPayment(ctx context.Context, externalID, chainHint string) (*domain.PaymentResponse, json.RawMessage, error)
	GetPaymentByProvider(ctx context.Context, externalID, providerName string) (*domain.PaymentResponse, json.RawMessage, error)
	LookupAcrossProviders(ctx context.Context, externalID string) (*domain.PaymentResponse, json.RawMessage, string, error)
	CheckProvidersHealth(ctx context.Context) map[string]domain.ProviderHealth
	SupportedChains() []config.ChainConfig
	ProviderSummaries() []ProviderSummary
}

// ProviderSummary is the credential-free view of a configured provider.
type ProviderSummary struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// WithdrawalAPI is the downstream conversion service invoked after an
// eligible payment completes.
type WithdrawalAPI interface {
	CreateWithdrawal(ctx context.Context, req *domain.WithdrawalRequest) (*domain.WithdrawalResult, error)
}

// WithdrawalTrigger runs the post-completion conversion. It absorbs its own
// failures and never reports them to the caller.
type WithdrawalTrigger interface {
	Execute(ctx context.Context, record *domain.PaymentRecord)
}

// StatusNotifier pushes status transitions to interested subscribers.
type StatusNotifier interface {
	BroadcastStatus(paymentID string, status domain.PaymentStatus)
}
