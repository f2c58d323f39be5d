package provider

import (
	"context"
	"errors"
	"fmt"
)

// Static errors for provider and orchestration operations.
var (
	// ErrNotInitialized is returned when an adapter operation is called
	// before a successful Initialize.
	ErrNotInitialized = errors.New("provider: not initialized")
	// ErrMissingInput is returned when a generation request carries
	// neither an audio URL nor text, or both. Never retried and never
	// attempted against a second provider.
	ErrMissingInput = errors.New("provider: request must carry exactly one of audio_url and text")
	// ErrNoProviderAvailable is returned when no active, healthy provider
	// matches the requested features.
	ErrNoProviderAvailable = errors.New("provider: no active provider available for this request")
	// ErrJobNotFound is returned when no provider recognizes a job ID.
	ErrJobNotFound = errors.New("provider: job not found")
	// ErrAllProvidersFailed is returned when every candidate provider
	// exhausted its retries without an underlying error being captured.
	ErrAllProvidersFailed = errors.New("provider: all providers failed")
	// ErrUnknownType is returned when no factory is registered for a
	// provider type.
	ErrUnknownType = errors.New("provider: unknown provider type")
)

// ConfigurationError reports a bad or missing provider configuration.
// It is fatal: surfaced to the admin and never retried.
type ConfigurationError struct {
	Provider Type
	Field    string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("provider %s: invalid configuration: %s: %s", e.Provider, e.Field, e.Reason)
}

// ProviderError wraps a provider-side failure with enough structure for
// the orchestrator to decide between retrying and surfacing it.
type ProviderError struct {
	// Provider is the back end that produced the error.
	Provider Type
	// Code is the provider-specific error code, e.g. an HTTP status or a
	// vendor error identifier.
	Code string
	// Message is a human-readable description.
	Message string
	// Retryable is true for server-side failures (5xx-class, timeouts,
	// rate limits) and false for client-side ones (validation, auth).
	Retryable bool
	// Err is the underlying transport error, if any.
	Err error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider %s: %s (code %s)", e.Provider, e.Message, e.Code)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether an error is worth retrying against the same
// provider. ProviderError carries an explicit flag; configuration,
// request-level, and caller-cancellation errors are never retried;
// anything unclassified (raw transport failures) is treated as transient.
func Retryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch {
	case errors.Is(err, ErrMissingInput),
		errors.Is(err, ErrNotInitialized),
		errors.Is(err, ErrNoProviderAvailable),
		errors.Is(err, ErrJobNotFound),
		errors.Is(err, ErrUnknownType):
		return false
	}
	return true
}
