package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
	"github.com/RozoAI/api-proxy-sub001/internal/domain/interfaces"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

// Router owns the adapter instances and the routing table. It resolves one
// provider per request and dispatches to it. Failed provider calls are never
// retried here: retry policy belongs to the read path and the withdrawal
// trigger, which keeps routing idempotent and side-effect-free on failure.
type Router struct {
	table    *Table
	adapters map[string]interfaces.ProviderAdapter
	order    []string
	cfg      config.RoutingConfig
	logger   zerolog.Logger
}

func NewRouter(table *Table, adapters []interfaces.ProviderAdapter, cfg config.RoutingConfig, logger zerolog.Logger) *Router {
	byName := make(map[string]interfaces.ProviderAdapter, len(adapters))
	order := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		byName[adapter.Name()] = adapter
		order = append(order, adapter.Name())
	}

	return &Router{
		table:    table,
		adapters: byName,
		order:    order,
		cfg:      cfg,
		logger:   logger.With().Str("component", "payment_router").Logger(),
	}
}

// resolveAdapter picks the adapter for a chain id. Unknown or disabled chains
// and disabled adapters either fail (strict policy) or fall back to the
// configured default provider with a warning (lenient policy).
func (r *Router) resolveAdapter(chainID string) (interfaces.ProviderAdapter, error) {
	entry, found := r.table.FirstEnabled(chainID)
	if found {
		adapter, ok := r.adapters[entry.Provider]
		if ok && adapter.Enabled() {
			return adapter, nil
		}
		if r.cfg.Policy == config.RoutingPolicyLenient {
			return r.fallbackAdapter(chainID, entry.Provider)
		}
		return nil, fmt.Errorf("provider %s for chain %s: %w", entry.Provider, chainID, domain.ErrProviderUnavailable)
	}

	if r.cfg.Policy == config.RoutingPolicyLenient {
		return r.fallbackAdapter(chainID, "")
	}
	return nil, fmt.Errorf("chain %s: %w", chainID, domain.ErrUnsupportedChain)
}

func (r *Router) fallbackAdapter(chainID, unavailableProvider string) (interfaces.ProviderAdapter, error) {
	adapter, ok := r.adapters[r.cfg.DefaultProvider]
	if !ok || !adapter.Enabled() {
		return nil, fmt.Errorf("default provider %s: %w", r.cfg.DefaultProvider, domain.ErrProviderUnavailable)
	}
	r.logger.Warn().
		Str("chain_id", chainID).
		Str("unavailable_provider", unavailableProvider).
		Str("fallback_provider", adapter.Name()).
		Msg("Routing fell back to default provider")
	return adapter, nil
}

func (r *Router) CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, json.RawMessage, string, error) {
	adapter, err := r.resolveAdapter(req.RoutingChainID())
	if err != nil {
		return nil, nil, "", err
	}

	// Reject before any network call.
	if err := adapter.ValidateRequest(req); err != nil {
		return nil, nil, "", err
	}

	resp, raw, err := adapter.CreatePayment(ctx, req)
	if err != nil {
		return nil, nil, "", err
	}
	return resp, raw, adapter.Name(), nil
}

func (r *Router) GetPayment(ctx context.Context, externalID, chainHint string) (*domain.PaymentResponse, json.RawMessage, error) {
	adapter, err := r.resolveAdapter(chainHint)
	if err != nil {
		return nil, nil, err
	}
	return adapter.GetPayment(ctx, externalID)
}

// GetPaymentByProvider bypasses chain resolution when the caller already
// knows which provider produced the record. Reads are allowed even when the
// provider has since been disabled for new payments.
func (r *Router) GetPaymentByProvider(ctx context.Context, externalID, providerName string) (*domain.PaymentResponse, json.RawMessage, error) {
	adapter, ok := r.adapters[providerName]
	if !ok {
		return nil, nil, fmt.Errorf("provider %s: %w", providerName, domain.ErrProviderUnavailable)
	}
	return adapter.GetPayment(ctx, externalID)
}

// LookupAcrossProviders asks every enabled provider for the id in fixed
// priority order. The first provider that answers wins.
func (r *Router) LookupAcrossProviders(ctx context.Context, externalID string) (*domain.PaymentResponse, json.RawMessage, string, error) {
	for _, name := range r.order {
		adapter := r.adapters[name]
		if !adapter.Enabled() {
			continue
		}

		resp, raw, err := adapter.GetPayment(ctx, externalID)
		if err != nil {
			r.logger.Debug().Err(err).
				Str("provider", name).
				Str("external_id", externalID).
				Msg("Provider lookup missed")
			continue
		}
		return resp, raw, name, nil
	}
	return nil, nil, "", fmt.Errorf("payment %s: %w", externalID, domain.ErrPaymentNotFound)
}

// CheckProvidersHealth fans out to every configured adapter. Each probe is
// isolated so one bad provider cannot poison the aggregate report.
func (r *Router) CheckProvidersHealth(ctx context.Context) map[string]domain.ProviderHealth {
	results := make(map[string]domain.ProviderHealth, len(r.adapters))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range r.order {
		adapter := r.adapters[name]
		g.Go(func() error {
			health := adapter.HealthCheck(ctx)
			mu.Lock()
			results[adapter.Name()] = health
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return results
}

func (r *Router) SupportedChains() []config.ChainConfig {
	return r.table.EnabledChains()
}

func (r *Router) ProviderSummaries() []interfaces.ProviderSummary {
	summaries := make([]interfaces.ProviderSummary, 0, len(r.order))
	for _, name := range r.order {
		adapter := r.adapters[name]
		summaries = append(summaries, interfaces.ProviderSummary{
			Name:    adapter.Name(),
			Enabled: adapter.Enabled(),
		})
	}
	return summaries
}
