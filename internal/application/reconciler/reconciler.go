package reconciler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
	"github.com/RozoAI/api-proxy-sub001/internal/domain/interfaces"
	"github.com/RozoAI/api-proxy-sub001/pkg/config"
)

// ReconcileResult is the outcome reported to the webhook caller. Unknown
// external ids are acknowledged (Found=false) rather than erroring, since
// duplicate and unexpected webhooks are expected in this integration.
type ReconcileResult struct {
	Found     bool                 `json:"found"`
	PaymentID string               `json:"paymentId,omitempty"`
	Status    domain.PaymentStatus `json:"status,omitempty"`
}

// Reconciler applies inbound provider events to stored payment records and
// fires the withdrawal trigger on the first transition into completed.
type Reconciler struct {
	repo     interfaces.PaymentRepository
	adapters map[string]interfaces.ProviderAdapter
	tokens   map[string]string
	trigger  interfaces.WithdrawalTrigger
	notifier interfaces.StatusNotifier
	logger   zerolog.Logger
}

func New(
	repo interfaces.PaymentRepository,
	adapters []interfaces.ProviderAdapter,
	providers map[string]config.ProviderConfig,
	trigger interfaces.WithdrawalTrigger,
	notifier interfaces.StatusNotifier,
	logger zerolog.Logger,
) *Reconciler {
	byName := make(map[string]interfaces.ProviderAdapter, len(adapters))
	for _, adapter := range adapters {
		byName[adapter.Name()] = adapter
	}
	tokens := make(map[string]string, len(providers))
	for name, provider := range providers {
		tokens[name] = provider.WebhookToken
	}

	return &Reconciler{
		repo:     repo,
		adapters: byName,
		tokens:   tokens,
		trigger:  trigger,
		notifier: notifier,
		logger:   logger.With().Str("component", "webhook_reconciler").Logger(),
	}
}

// HandleEvent processes one inbound provider event. Status update failures
// are surfaced so the provider's delivery mechanism redelivers; withdrawal
// trigger failures are always absorbed.
func (r *Reconciler) HandleEvent(ctx context.Context, provider, token string, payload []byte) (*ReconcileResult, error) {
	adapter, ok := r.adapters[provider]
	expected := r.tokens[provider]
	if !ok || expected == "" || token != expected {
		return nil, fmt.Errorf("webhook for provider %s: %w", provider, domain.ErrUnauthorized)
	}

	event, err := adapter.ParseWebhook(payload)
	if err != nil {
		return nil, &domain.ValidationError{Field: "payload", Reason: err.Error()}
	}
	if event.ExternalID == "" {
		return nil, &domain.ValidationError{Field: "payload", Reason: "missing payment id"}
	}

	status := adapter.MapStatus(event.ProviderStatus)

	record, err := r.repo.GetByExternalID(ctx, event.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment %s: %w", event.ExternalID, err)
	}
	if record == nil {
		r.logger.Info().
			Str("provider", provider).
			Str("external_id", event.ExternalID).
			Msg("Webhook for unknown payment, acknowledging")
		return &ReconcileResult{Found: false}, nil
	}

	// The first-completion guard reads the state fetched before the status
	// write so a redelivered completion event cannot re-trigger.
	wasCompleted := record.Status == domain.PaymentStatusCompleted

	if err := r.repo.UpdateStatus(ctx, record.ID, status, payload); err != nil {
		return nil, fmt.Errorf("failed to update payment %s status: %w", record.ID, err)
	}

	r.logger.Info().
		Str("provider", provider).
		Str("payment_id", record.ID).
		Str("external_id", event.ExternalID).
		Str("provider_status", event.ProviderStatus).
		Str("status", string(status)).
		Msg("Webhook reconciled")

	if r.notifier != nil {
		r.notifier.BroadcastStatus(record.ID, status)
	}

	if status == domain.PaymentStatusCompleted && !wasCompleted {
		if event.PayerAddress != "" || event.TxHash != "" {
			if err := r.repo.UpdateSourceTx(ctx, record.ID, event.PayerAddress, event.TxHash); err != nil {
				r.logger.Error().Err(err).
					Str("payment_id", record.ID).
					Msg("Failed to persist source transaction details")
			}
			record.SourceAddress = event.PayerAddress
			record.SourceTxHash = event.TxHash
		}
		record.Status = status

		// Fired on its own goroutine with a detached context: the webhook
		// acknowledgment never waits out the trigger's retry budget, and a
		// disconnecting caller cannot cancel a started withdrawal.
		go r.trigger.Execute(context.Background(), record)
	}

	return &ReconcileResult{Found: true, PaymentID: record.ID, Status: status}, nil
}
