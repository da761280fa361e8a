package routing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
	"github.com/RozoAI/api-proxy-sub001/internal/domain/interfaces"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

type fakeAdapter struct {
	name        string
	enabled     bool
	validateErr error
	getErr      error
	health      domain.ProviderHealth

	createCalls int
	getCalls    int
}

func (f *fakeAdapter) Name() string  { return f.name }
func (f *fakeAdapter) Enabled() bool { return f.enabled }

func (f *fakeAdapter) ValidateRequest(req *domain.PaymentRequest) error {
	return f.validateErr
}

func (f *fakeAdapter) CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, json.RawMessage, error) {
	f.createCalls++
	return &domain.PaymentResponse{
		ID:        f.name + "-payment",
		Status:    domain.PaymentStatusUnpaid,
		CreatedAt: time.Now(),
	}, json.RawMessage(`{}`), nil
}

func (f *fakeAdapter) GetPayment(ctx context.Context, externalID string) (*domain.PaymentResponse, json.RawMessage, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, nil, f.getErr
	}
	return &domain.PaymentResponse{
		ID:         externalID,
		ExternalID: externalID,
		Status:     domain.PaymentStatusStarted,
	}, json.RawMessage(`{}`), nil
}

func (f *fakeAdapter) HealthCheck(ctx context.Context) domain.ProviderHealth {
	return f.health
}

func (f *fakeAdapter) MapStatus(providerStatus string) domain.PaymentStatus {
	return domain.PaymentStatusUnpaid
}

func (f *fakeAdapter) ParseWebhook(payload []byte) (*domain.WebhookEvent, error) {
	return nil, errors.New("not implemented")
}

func newTestRouter(policy string, adapters ...interfaces.ProviderAdapter) *Router {
	table := NewTable([]config.ChainConfig{
		{ChainID: "ethereum", Provider: "daimo", Enabled: true},
		{ChainID: "stellar", Provider: "aqua", Enabled: true},
		{ChainID: "tron", Provider: "legacy", Enabled: true},
	})
	cfg := config.RoutingConfig{Policy: policy, DefaultProvider: "daimo"}
	return NewRouter(table, adapters, cfg, zerolog.Nop())
}

func request(chainID string) *domain.PaymentRequest {
	return &domain.PaymentRequest{
		Display: domain.PaymentDisplay{Intent: "Test"},
		Destination: domain.PaymentDestination{
			Address:     "0x1111111111111111111111111111111111111111",
			ChainID:     chainID,
			AmountUnits: "1.0",
		},
	}
}

func TestCreatePaymentRouting(t *testing.T) {
	t.Run("resolves provider deterministically", func(t *testing.T) {
		daimo := &fakeAdapter{name: "daimo", enabled: true}
		aqua := &fakeAdapter{name: "aqua", enabled: true}
		router := newTestRouter(config.RoutingPolicyStrict, daimo, aqua)

		for i := 0; i < 5; i++ {
			_, _, providerName, err := router.CreatePayment(context.Background(), request("ethereum"))
			require.NoError(t, err)
			assert.Equal(t, "daimo", providerName)
		}
		assert.Equal(t, 5, daimo.createCalls)
		assert.Equal(t, 0, aqua.createCalls)
	})

	t.Run("strict policy rejects unknown chain", func(t *testing.T) {
		daimo := &fakeAdapter{name: "daimo", enabled: true}
		router := newTestRouter(config.RoutingPolicyStrict, daimo)

		_, _, _, err := router.CreatePayment(context.Background(), request("dogecoin"))
		assert.ErrorIs(t, err, domain.ErrUnsupportedChain)
		assert.Zero(t, daimo.createCalls)
	})

	t.Run("strict policy rejects disabled adapter", func(t *testing.T) {
		daimo := &fakeAdapter{name: "daimo", enabled: false}
		router := newTestRouter(config.RoutingPolicyStrict, daimo)

		_, _, _, err := router.CreatePayment(context.Background(), request("ethereum"))
		assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
		assert.Zero(t, daimo.createCalls)
	})

	t.Run("lenient policy falls back to default provider", func(t *testing.T) {
		daimo := &fakeAdapter{name: "daimo", enabled: true}
		router := newTestRouter(config.RoutingPolicyLenient, daimo)

		_, _, providerName, err := router.CreatePayment(context.Background(), request("dogecoin"))
		require.NoError(t, err)
		assert.Equal(t, "daimo", providerName)
	})

	t.Run("lenient policy falls back when routed adapter is disabled", func(t *testing.T) {
		daimo := &fakeAdapter{name: "daimo", enabled: true}
		aqua := &fakeAdapter{name: "aqua", enabled: false}
		router := newTestRouter(config.RoutingPolicyLenient, daimo, aqua)

		_, _, providerName, err := router.CreatePayment(context.Background(), request("stellar"))
		require.NoError(t, err)
		assert.Equal(t, "daimo", providerName)
	})

	t.Run("lenient policy fails when default provider is unavailable", func(t *testing.T) {
		aqua := &fakeAdapter{name: "aqua", enabled: true}
		router := newTestRouter(config.RoutingPolicyLenient, aqua)

		_, _, _, err := router.CreatePayment(context.Background(), request("dogecoin"))
		assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	})

	t.Run("validation failure prevents any provider call", func(t *testing.T) {
		daimo := &fakeAdapter{
			name:        "daimo",
			enabled:     true,
			validateErr: &domain.ValidationError{Field: "destination.destinationAddress", Reason: "bad address"},
		}
		router := newTestRouter(config.RoutingPolicyStrict, daimo)

		_, _, _, err := router.CreatePayment(context.Background(), request("ethereum"))
		var validationErr *domain.ValidationError
		assert.ErrorAs(t, err, &validationErr)
		assert.Zero(t, daimo.createCalls)
	})
}

func TestGetPaymentByProvider(t *testing.T) {
	daimo := &fakeAdapter{name: "daimo", enabled: true}
	router := newTestRouter(config.RoutingPolicyStrict, daimo)

	t.Run("dispatches to the named provider", func(t *testing.T) {
		resp, _, err := router.GetPaymentByProvider(context.Background(), "pay-1", "daimo")
		require.NoError(t, err)
		assert.Equal(t, "pay-1", resp.ID)
	})

	t.Run("unknown provider fails", func(t *testing.T) {
		_, _, err := router.GetPaymentByProvider(context.Background(), "pay-1", "ghost")
		assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	})
}

func TestLookupAcrossProviders(t *testing.T) {
	t.Run("first provider that answers wins", func(t *testing.T) {
		daimo := &fakeAdapter{name: "daimo", enabled: true, getErr: errors.New("not found upstream")}
		aqua := &fakeAdapter{name: "aqua", enabled: true}
		router := newTestRouter(config.RoutingPolicyStrict, daimo, aqua)

		_, _, providerName, err := router.LookupAcrossProviders(context.Background(), "pay-9")
		require.NoError(t, err)
		assert.Equal(t, "aqua", providerName)
		assert.Equal(t, 1, daimo.getCalls)
	})

	t.Run("disabled providers are skipped", func(t *testing.T) {
		daimo := &fakeAdapter{name: "daimo", enabled: false}
		aqua := &fakeAdapter{name: "aqua", enabled: true}
		router := newTestRouter(config.RoutingPolicyStrict, daimo, aqua)

		_, _, providerName, err := router.LookupAcrossProviders(context.Background(), "pay-9")
		require.NoError(t, err)
		assert.Equal(t, "aqua", providerName)
		assert.Zero(t, daimo.getCalls)
	})

	t.Run("no provider answering yields not found", func(t *testing.T) {
		daimo := &fakeAdapter{name: "daimo", enabled: true, getErr: errors.New("miss")}
		router := newTestRouter(config.RoutingPolicyStrict, daimo)

		_, _, _, err := router.LookupAcrossProviders(context.Background(), "pay-9")
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})
}

func TestCheckProvidersHealth(t *testing.T) {
	daimo := &fakeAdapter{
		name:    "daimo",
		enabled: true,
		health:  domain.ProviderHealth{Status: domain.HealthStatusHealthy, ResponseTimeMs: 12},
	}
	aqua := &fakeAdapter{
		name:    "aqua",
		enabled: true,
		health:  domain.ProviderHealth{Status: domain.HealthStatusUnhealthy, Error: "connection refused"},
	}
	router := newTestRouter(config.RoutingPolicyStrict, daimo, aqua)

	results := router.CheckProvidersHealth(context.Background())

	require.Len(t, results, 2)
	assert.Equal(t, domain.HealthStatusHealthy, results["daimo"].Status)
	// One bad provider does not poison the aggregate.
	assert.Equal(t, domain.HealthStatusUnhealthy, results["aqua"].Status)
	assert.Equal(t, "connection refused", results["aqua"].Error)
}
