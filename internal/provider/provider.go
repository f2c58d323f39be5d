package provider

import "context"

// Provider is the contract every video generation adapter satisfies.
// Initialize must be called, and succeed, before any other operation;
// after that the adapter must be safe for concurrent use.
type Provider interface {
	// Initialize validates the config and builds the authenticated client.
	// Returns a ConfigurationError when required fields are missing or
	// malformed.
	Initialize(cfg Config) error

	// GenerateVideo submits one generation job. The request must carry
	// exactly one of AudioURL and Text; otherwise it fails with
	// ErrMissingInput before any network call. Provider failures are
	// wrapped as *ProviderError.
	GenerateVideo(ctx context.Context, req GenerationRequest) (GenerationResult, error)

	// CheckJobStatus maps the provider's native status onto the canonical
	// vocabulary. Unknown native statuses map to processing, never to a
	// dropped job. Network failures are retryable ProviderErrors.
	CheckJobStatus(ctx context.Context, jobID string) (GenerationResult, error)

	// CancelJob is best-effort. Providers without cancellation support
	// return false without an error.
	CancelJob(ctx context.Context, jobID string) (bool, error)

	// CheckHealth performs one lightweight liveness/quota call. It never
	// fails: errors are folded into the returned Health as status down,
	// with the elapsed response time always measured.
	CheckHealth(ctx context.Context) Health

	// EstimateCost computes a local cost estimate with no network call,
	// using the configured cost per minute when present and a
	// provider-specific heuristic otherwise. The estimate is always
	// finite and non-negative.
	EstimateCost(req GenerationRequest) (float64, error)

	// ValidateConfig checks a config locally, without network calls.
	ValidateConfig(cfg Config) ValidationResult

	// Capabilities lists what this provider supports.
	Capabilities() []Capability

	// ConfigSchema describes the provider-specific Extra config.
	ConfigSchema() ConfigSchema
}
