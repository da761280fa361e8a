package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

var testStellarAddress = "G" + strings.Repeat("A", 55)

func newAquaAdapter(baseURL string) *AquaAdapter {
	return NewAquaAdapter(config.ProviderConfig{
		Name:    "aqua",
		BaseURL: baseURL,
		APIKey:  "aqua-key",
		Timeout: 5 * time.Second,
		Enabled: true,
	}, zerolog.Nop())
}

func stellarRequest() *domain.PaymentRequest {
	return &domain.PaymentRequest{
		Display: domain.PaymentDisplay{Intent: "Donation", Currency: "USD"},
		Destination: domain.PaymentDestination{
			Address:     testStellarAddress,
			ChainID:     "stellar",
			AmountUnits: "25.5",
			TokenSymbol: "USDC",
		},
	}
}

func TestAquaCreatePayment(t *testing.T) {
	var gotKey string
	var gotBody aquaCreateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/payments", r.URL.Path)
		gotKey = r.Header.Get("X-API-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(aquaPayment{
			PaymentID: "aq-1",
			Status:    "created",
			Address:   testStellarAddress,
			Amount:    "25.5",
			AssetCode: "USDC",
			CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		})
	}))
	defer server.Close()

	adapter := newAquaAdapter(server.URL)
	resp, raw, err := adapter.CreatePayment(context.Background(), stellarRequest())

	require.NoError(t, err)
	assert.Equal(t, "aqua-key", gotKey)
	assert.Equal(t, testStellarAddress, gotBody.Address)
	assert.Equal(t, "USDC", gotBody.AssetCode)
	assert.Equal(t, "Donation", gotBody.Description)

	assert.Equal(t, "aq-1", resp.ID)
	assert.Equal(t, domain.PaymentStatusUnpaid, resp.Status)
	assert.Equal(t, "stellar", resp.Destination.ChainID)
	assert.NotEmpty(t, raw)
}

func TestAquaDepositAddressEnrichment(t *testing.T) {
	t.Run("enriches metadata when preferred chain and token are set", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v1/payments":
				json.NewEncoder(w).Encode(aquaPayment{PaymentID: "aq-2", Status: "created"})
			case "/v1/deposit-address":
				assert.Equal(t, "stellar", r.URL.Query().Get("chain"))
				assert.Equal(t, "USDC", r.URL.Query().Get("token"))
				json.NewEncoder(w).Encode(aquaDepositAddress{
					Address:   testStellarAddress,
					Memo:      "12345",
					ExpiresAt: time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC),
				})
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		}))
		defer server.Close()

		req := stellarRequest()
		req.PreferredChainID = "stellar"
		req.PreferredToken = "USDC"

		resp, _, err := newAquaAdapter(server.URL).CreatePayment(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, testStellarAddress, resp.Metadata["deposit_address"])
		assert.Equal(t, "12345", resp.Metadata["deposit_memo"])
		assert.Equal(t, "2025-06-01T13:00:00Z", resp.Metadata["deposit_expires_at"])
	})

	t.Run("enrichment failure does not fail the create", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v1/payments":
				json.NewEncoder(w).Encode(aquaPayment{PaymentID: "aq-3", Status: "created"})
			case "/v1/deposit-address":
				w.WriteHeader(http.StatusInternalServerError)
			}
		}))
		defer server.Close()

		req := stellarRequest()
		req.PreferredChainID = "stellar"
		req.PreferredToken = "USDC"

		resp, _, err := newAquaAdapter(server.URL).CreatePayment(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "aq-3", resp.ID)
		assert.NotContains(t, resp.Metadata, "deposit_address")
	})

	t.Run("skipped without preferred chain", func(t *testing.T) {
		depositCalls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v1/payments":
				json.NewEncoder(w).Encode(aquaPayment{PaymentID: "aq-4", Status: "created"})
			case "/v1/deposit-address":
				depositCalls++
			}
		}))
		defer server.Close()

		_, _, err := newAquaAdapter(server.URL).CreatePayment(context.Background(), stellarRequest())
		require.NoError(t, err)
		assert.Zero(t, depositCalls)
	})
}

func TestAquaValidateRequest(t *testing.T) {
	adapter := newAquaAdapter("http://unused")

	tests := []struct {
		name   string
		mutate func(*domain.PaymentRequest)
		field  string
	}{
		{
			name:   "evm address rejected",
			mutate: func(r *domain.PaymentRequest) { r.Destination.Address = "0x1111111111111111111111111111111111111111" },
			field:  "destination.destinationAddress",
		},
		{
			name:   "lowercase stellar address rejected",
			mutate: func(r *domain.PaymentRequest) { r.Destination.Address = strings.ToLower(testStellarAddress) },
			field:  "destination.destinationAddress",
		},
		{
			name:   "missing token symbol",
			mutate: func(r *domain.PaymentRequest) { r.Destination.TokenSymbol = "" },
			field:  "destination.tokenSymbol",
		},
		{
			name:   "too many decimal places",
			mutate: func(r *domain.PaymentRequest) { r.Destination.AmountUnits = "1.00000001" },
			field:  "destination.amountUnits",
		},
		{
			name:   "zero amount",
			mutate: func(r *domain.PaymentRequest) { r.Destination.AmountUnits = "0" },
			field:  "destination.amountUnits",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := stellarRequest()
			tt.mutate(req)

			err := adapter.ValidateRequest(req)
			var validationErr *domain.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
		})
	}

	t.Run("seven decimal places allowed", func(t *testing.T) {
		req := stellarRequest()
		req.Destination.AmountUnits = "1.0000001"
		assert.NoError(t, adapter.ValidateRequest(req))
	})
}

func TestAquaMapStatus(t *testing.T) {
	adapter := newAquaAdapter("http://unused")

	tests := []struct {
		in   string
		want domain.PaymentStatus
	}{
		{"created", domain.PaymentStatusUnpaid},
		{"retry", domain.PaymentStatusStarted},
		{"paid", domain.PaymentStatusCompleted},
		{"failed", domain.PaymentStatusBounced},
		{"deleted", domain.PaymentStatusBounced},
		{"refunded", domain.PaymentStatusRefunded},
		{"mystery", domain.PaymentStatusUnpaid},
		{"", domain.PaymentStatusUnpaid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, adapter.MapStatus(tt.in), "status %q", tt.in)
	}
}

func TestAquaParseWebhook(t *testing.T) {
	adapter := newAquaAdapter("http://unused")

	event, err := adapter.ParseWebhook([]byte(`{
		"payment_id": "aq-9",
		"status": "paid",
		"payer_address": "` + testStellarAddress + `",
		"tx_hash": "stellar-tx-1"
	}`))
	require.NoError(t, err)
	assert.Equal(t, "aq-9", event.ExternalID)
	assert.Equal(t, "paid", event.ProviderStatus)
	assert.Equal(t, testStellarAddress, event.PayerAddress)
	assert.Equal(t, "stellar-tx-1", event.TxHash)

	_, err = adapter.ParseWebhook([]byte(`not json`))
	assert.Error(t, err)
}

func TestAquaFromWireSynthesizesID(t *testing.T) {
	adapter := newAquaAdapter("http://unused")

	resp := adapter.fromWire(&aquaPayment{Status: "created"})
	assert.NotEmpty(t, resp.ID)
	assert.Empty(t, resp.ExternalID)
	assert.False(t, resp.CreatedAt.IsZero())
}

func TestAquaWireRoundTrip(t *testing.T) {
	adapter := newAquaAdapter("http://unused")

	payment := &aquaPayment{
		PaymentID:   "aq-7",
		Status:      "retry",
		Address:     testStellarAddress,
		Amount:      "12.1234567",
		AssetCode:   "USDC",
		Description: "Invoice 7",
		Currency:    "USD",
		Meta:        map[string]interface{}{"order_id": "ord-7"},
	}

	resp := adapter.fromWire(payment)
	wire := adapter.toWire(&domain.PaymentRequest{
		Display:     resp.Display,
		Destination: resp.Destination,
		Metadata:    resp.Metadata,
	})

	assert.Equal(t, payment.Address, wire.Address)
	assert.Equal(t, payment.Amount, wire.Amount)
	assert.Equal(t, payment.AssetCode, wire.AssetCode)
	assert.Equal(t, payment.Description, wire.Description)
	assert.Equal(t, payment.Currency, wire.Currency)
	assert.Equal(t, payment.Meta, wire.Meta)
}

func TestAquaProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	adapter := newAquaAdapter(server.URL)
	_, _, err := adapter.GetPayment(context.Background(), "aq-1")

	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "aqua", providerErr.Provider)
	assert.Equal(t, http.StatusBadGateway, providerErr.StatusCode)
}
