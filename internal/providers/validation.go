package providers

import (
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/RozoAI/api-proxy-sub001/internal/domain"
)

var (
	evmAddressPattern     = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	stellarAddressPattern = regexp.MustCompile(`^G[A-Z2-7]{55}$`)
)

func isEVMAddress(address string) bool {
	return evmAddressPattern.MatchString(address)
}

func isStellarAddress(address string) bool {
	return stellarAddressPattern.MatchString(address)
}

// validateAmount parses a decimal amount string and enforces positivity and
// the target ledger's precision limit.
func validateAmount(amount string, maxDecimals int32) (*decimal.Decimal, error) {
	if amount == "" {
		return nil, &domain.ValidationError{Field: "destination.amountUnits", Reason: "amount is required"}
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, &domain.ValidationError{Field: "destination.amountUnits", Reason: "amount must be a decimal string"}
	}
	if !dec.IsPositive() {
		return nil, &domain.ValidationError{Field: "destination.amountUnits", Reason: "amount must be positive"}
	}
	if dec.Exponent() < -maxDecimals {
		return nil, &domain.ValidationError{Field: "destination.amountUnits", Reason: "amount exceeds ledger precision"}
	}

	return &dec, nil
}
