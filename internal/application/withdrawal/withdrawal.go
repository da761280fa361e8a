package withdrawal

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
	"github.com/RozoAI/api-proxy-sub001/internal/domain/interfaces"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

// Trigger invokes the downstream withdrawal/conversion API for completed
// payments that match the configured eligibility policy. Failures are logged
// and absorbed: the webhook acknowledging provider status must never fail
// because the downstream conversion did.
type Trigger struct {
	api    interfaces.WithdrawalAPI
	repo   interfaces.PaymentRepository
	cfg    config.WithdrawalConfig
	logger zerolog.Logger
}

func New(api interfaces.WithdrawalAPI, repo interfaces.PaymentRepository, cfg config.WithdrawalConfig, logger zerolog.Logger) *Trigger {
	return &Trigger{
		api:    api,
		repo:   repo,
		cfg:    cfg,
		logger: logger.With().Str("component", "withdrawal_trigger").Logger(),
	}
}

func (t *Trigger) Execute(ctx context.Context, record *domain.PaymentRecord) {
	if !t.eligible(record) {
		t.logger.Debug().
			Str("payment_id", record.ID).
			Str("provider", record.Provider).
			Str("chain_id", record.ChainID).
			Msg("Payment not eligible for withdrawal")
		return
	}

	// The withdrawal target is always the stored canonical destination.
	req := &domain.WithdrawalRequest{
		PaymentID:   record.ID,
		Address:     record.Request.Destination.Address,
		AmountUnits: record.Request.Destination.AmountUnits,
		Currency:    t.recordCurrency(record),
		ChainID:     record.Request.Destination.ChainID,
	}

	for attempt := 1; attempt <= t.cfg.MaxRetries; attempt++ {
		result, err := t.api.CreateWithdrawal(ctx, req)
		if err == nil {
			if err := t.repo.UpdateWithdrawal(ctx, record.ID, result.WithdrawID, result.TxHash); err != nil {
				t.logger.Error().Err(err).
					Str("payment_id", record.ID).
					Str("withdraw_id", result.WithdrawID).
					Msg("Failed to persist withdrawal result")
			}
			t.logger.Info().
				Str("payment_id", record.ID).
				Str("withdraw_id", result.WithdrawID).
				Str("tx_hash", result.TxHash).
				Int("attempt", attempt).
				Msg("Withdrawal executed")
			return
		}

		t.logger.Warn().Err(err).
			Str("payment_id", record.ID).
			Int("attempt", attempt).
			Msg("Withdrawal attempt failed")

		if attempt < t.cfg.MaxRetries {
			time.Sleep(t.cfg.RetryBackoffBase * time.Duration(1<<attempt))
		}
	}

	t.logger.Error().
		Str("payment_id", record.ID).
		Int("max_retries", t.cfg.MaxRetries).
		Msg("Withdrawal failed after all retries")
}

// eligible is a conjunction: the configured provider, chain, and currency
// must all match and the amount must be positive.
func (t *Trigger) eligible(record *domain.PaymentRecord) bool {
	if record.Provider != t.cfg.Provider {
		return false
	}
	if record.ChainID != t.cfg.ChainID {
		return false
	}
	if !strings.EqualFold(t.recordCurrency(record), t.cfg.Currency) {
		return false
	}

	amount, err := decimal.NewFromString(record.Request.Destination.AmountUnits)
	if err != nil || !amount.IsPositive() {
		return false
	}
	return true
}

func (t *Trigger) recordCurrency(record *domain.PaymentRecord) string {
	if record.Request.Destination.TokenSymbol != "" {
		return record.Request.Destination.TokenSymbol
	}
	return record.Request.Display.Currency
}
