package paymentservice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
	"github.com/RozoAI/api-proxy-sub001/internal/domain/interfaces"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

type paymentService struct {
	repo   interfaces.PaymentRepository
	router interfaces.PaymentRouter
	cache  config.CacheConfig
	poller config.PollerConfig
	logger zerolog.Logger
}

func New(
	repo interfaces.PaymentRepository,
	router interfaces.PaymentRouter,
	cache config.CacheConfig,
	poller config.PollerConfig,
	logger zerolog.Logger,
) IPaymentService {
	return &paymentService{
		repo:   repo,
		router: router,
		cache:  cache,
		poller: poller,
		logger: logger.With().Str("component", "payment_service").Logger(),
	}
}

// CreatePayment validates, routes, creates via the resolved provider, and
// persists the record tagged with the provider's name so later refreshes can
// bypass chain re-resolution. Creation errors are always surfaced.
func (s *paymentService) CreatePayment(ctx context.Context, req *domain.PaymentRequest) (*domain.PaymentResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	resp, raw, providerName, err := s.router.CreatePayment(ctx, req)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &domain.PaymentRecord{
		ID:              uuid.New().String(),
		Provider:        providerName,
		ChainID:         req.RoutingChainID(),
		ExternalID:      resp.ExternalID,
		Status:          resp.Status,
		Request:         *req,
		Response:        *resp,
		RawResponse:     raw,
		StatusUpdatedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if record.ExternalID == "" {
		record.ExternalID = resp.ID
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist payment: %w", err)
	}

	s.logger.Info().
		Str("payment_id", record.ID).
		Str("external_id", record.ExternalID).
		Str("provider", providerName).
		Str("chain_id", record.ChainID).
		Msg("Payment created")

	return record.ToResponse(), nil
}

// GetPayment is the cache-first read path. The id may be either the internal
// id or the provider-assigned external id. Fresh records are served from the
// store; stale non-terminal records get one provider refresh, degrading to
// the cached view if the refresh fails. Unknown ids fall back to a
// best-effort lookup across every enabled provider.
func (s *paymentService) GetPayment(ctx context.Context, id string) (*domain.PaymentResponse, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		record, err = s.repo.GetByExternalID(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	if record != nil {
		return s.refreshIfStale(ctx, record), nil
	}

	return s.discoverPayment(ctx, id)
}

func (s *paymentService) refreshIfStale(ctx context.Context, record *domain.PaymentRecord) *domain.PaymentResponse {
	if !record.IsStale(s.cache.StaleThreshold, time.Now()) {
		return record.ToResponse()
	}

	resp, raw, err := s.router.GetPaymentByProvider(ctx, record.ExternalID, record.Provider)
	if err != nil {
		// A slightly stale read beats a hard failure.
		s.logger.Warn().Err(err).
			Str("payment_id", record.ID).
			Str("provider", record.Provider).
			Msg("Provider refresh failed, serving cached payment")
		return record.ToResponse()
	}

	if err := s.repo.UpdateStatus(ctx, record.ID, resp.Status, raw); err != nil {
		s.logger.Error().Err(err).
			Str("payment_id", record.ID).
			Msg("Failed to persist refreshed payment status")
	}

	record.Status = resp.Status
	record.Response = *resp
	record.RawResponse = raw
	return record.ToResponse()
}

// discoverPayment handles ids the gateway never created, e.g. payments
// initiated directly with a provider. The first enabled provider that
// recognizes the id wins and the result is persisted for future cache hits.
func (s *paymentService) discoverPayment(ctx context.Context, id string) (*domain.PaymentResponse, error) {
	resp, raw, providerName, err := s.router.LookupAcrossProviders(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &domain.PaymentRecord{
		ID:         uuid.New().String(),
		Provider:   providerName,
		ChainID:    resp.Destination.ChainID,
		ExternalID: resp.ExternalID,
		Status:     resp.Status,
		Request: domain.PaymentRequest{
			Display:     resp.Display,
			Destination: resp.Destination,
			Metadata:    resp.Metadata,
		},
		Response:        *resp,
		RawResponse:     raw,
		StatusUpdatedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if record.ExternalID == "" {
		record.ExternalID = id
	}

	if err := s.repo.Create(ctx, record); err != nil {
		// The caller still gets the provider's answer.
		s.logger.Error().Err(err).
			Str("external_id", record.ExternalID).
			Str("provider", providerName).
			Msg("Failed to persist discovered payment")
	} else {
		s.logger.Info().
			Str("payment_id", record.ID).
			Str("external_id", record.ExternalID).
			Str("provider", providerName).
			Msg("Externally-initiated payment discovered and persisted")
	}

	return record.ToResponse(), nil
}

// StartReconciliationLoop periodically refreshes stale non-terminal records
// from their originating providers. It runs until the context is cancelled.
func (s *paymentService) StartReconciliationLoop(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.poller.Interval).
		Int("workers", s.poller.Workers).
		Msg("Starting payment reconciliation loop")

	ticker := time.NewTicker(s.poller.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Payment reconciliation loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.refreshStalePayments(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Failed to refresh stale payments")
			}
		}
	}
}

func (s *paymentService) refreshStalePayments(ctx context.Context) error {
	limit := s.poller.BatchSize
	offset := 0
	now := time.Now()

	var stale []domain.PaymentRecord
	for {
		records, err := s.repo.ListUnsettled(ctx, limit, offset)
		if err != nil {
			return fmt.Errorf("failed to load unsettled payments: %w", err)
		}
		for _, record := range records {
			if record.IsStale(s.cache.StaleThreshold, now) {
				stale = append(stale, record)
			}
		}
		if len(records) < limit {
			break
		}
		offset += limit
	}

	if len(stale) == 0 {
		return nil
	}

	semaphore := make(chan struct{}, s.poller.Workers)
	for _, record := range stale {
		semaphore <- struct{}{}
		go func(record domain.PaymentRecord) {
			defer func() { <-semaphore }()
			s.refreshIfStale(ctx, &record)
		}(record)
	}
	for i := 0; i < cap(semaphore); i++ {
		semaphore <- struct{}{}
	}

	return nil
}

func validateRequest(req *domain.PaymentRequest) error {
	if req.Display.Intent == "" {
		return &domain.ValidationError{Field: "display.intent", Reason: "intent is required"}
	}
	if req.Destination.Address == "" {
		return &domain.ValidationError{Field: "destination.destinationAddress", Reason: "destination address is required"}
	}
	if req.Destination.ChainID == "" {
		return &domain.ValidationError{Field: "destination.chainId", Reason: "chain id is required"}
	}

	amount, err := decimal.NewFromString(req.Destination.AmountUnits)
	if err != nil {
		return &domain.ValidationError{Field: "destination.amountUnits", Reason: "amount must be a decimal string"}
	}
	if !amount.IsPositive() {
		return &domain.ValidationError{Field: "destination.amountUnits", Reason: "amount must be positive"}
	}

	return nil
}
