package interpreter

import (
	"errors"
	"fmt"
)

// ErrInterpreterUnavailable is returned when no provider is configured or
// every provider failed.
var ErrInterpreterUnavailable = errors.New("no language model provider available")

// ProviderErrorCode classifies a provider failure.
type ProviderErrorCode string

const (
	CodeUnavailable ProviderErrorCode = "PROVIDER_UNAVAILABLE"
	CodeTimeout     ProviderErrorCode = "PROVIDER_TIMEOUT"
	CodeRateLimited ProviderErrorCode = "PROVIDER_RATE_LIMITED"
	CodeBadResponse ProviderErrorCode = "PROVIDER_BAD_RESPONSE"
)

// ProviderError is a failed call to one provider.
type ProviderError struct {
	Code     ProviderErrorCode
	Provider Provider
	Status   int // HTTP status, 0 when the request never completed
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Code, e.Provider, e.Message)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}
