package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnsupportedChain    = errors.New("unsupported chain")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrProviderTimeout     = errors.New("provider request timed out")
)

// ValidationError rejects a request before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// ProviderError is an upstream non-2xx result.
type ProviderError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// HTTPStatus maps an engine error onto the boundary's status code contract.
func HTTPStatus(err error) int {
	var validationErr *ValidationError
	var providerErr *ProviderError

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnsupportedChain):
		return http.StatusBadRequest
	case errors.Is(err, ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrProviderTimeout):
		return http.StatusBadGateway
	case errors.As(err, &providerErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
