// Package orchestrator coordinates video generation across a tenant's
// configured providers: selection by strategy, bounded retry, failover,
// health bookkeeping, and cross-provider status, cancel and cost lookups.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/avatarlab/avatar-api/internal/jobindex"
	"github.com/avatarlab/avatar-api/internal/provider"
	"github.com/avatarlab/avatar-api/internal/secrets"
	"github.com/avatarlab/avatar-api/internal/store"
)

// Strategy is the policy used to rank candidate providers.
type Strategy string

// Selection strategies.
const (
	// StrategyPriority ranks by default flag, then priority, then speed.
	StrategyPriority Strategy = "priority"
	// StrategyCost ranks by ascending configured cost per minute. A
	// missing cost sorts first; see the package tests for this known quirk.
	StrategyCost Strategy = "cost"
	// StrategySpeed ranks by ascending average processing time.
	StrategySpeed Strategy = "speed"
	// StrategyFailover uses the persisted priority order strictly.
	StrategyFailover Strategy = "failover"
)

// ParseStrategy maps a config string onto a Strategy, defaulting to
// priority.
func ParseStrategy(s string) Strategy {
	switch Strategy(s) {
	case StrategyCost, StrategySpeed, StrategyFailover:
		return Strategy(s)
	default:
		return StrategyPriority
	}
}

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second

	// speedDefaultSec ranks providers with no observed processing time
	// under the speed strategy.
	speedDefaultSec = 60
)

// Orchestrator coordinates generation for one tenant. It is safe for
// concurrent use; retry sleeps block only the calling goroutine.
type Orchestrator struct {
	tenantID uuid.UUID
	store    store.Store
	codec    secrets.Codec
	registry *provider.Registry
	index    jobindex.Index
	logger   *slog.Logger

	strategy   Strategy
	maxRetries int
	retryDelay time.Duration
	failover   bool

	cache *adapterCache
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStrategy sets the provider selection strategy.
func WithStrategy(s Strategy) Option {
	return func(o *Orchestrator) { o.strategy = s }
}

// WithMaxRetries sets how many attempts are made against one provider.
func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxRetries = n
		}
	}
}

// WithRetryDelay sets the sleep between attempts against one provider.
func WithRetryDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.retryDelay = d
		}
	}
}

// WithFailover enables or disables moving to the next candidate after a
// provider exhausts its retries.
func WithFailover(enabled bool) Option {
	return func(o *Orchestrator) { o.failover = enabled }
}

// WithJobIndex wires the job-to-provider index consulted before the
// cross-provider probe.
func WithJobIndex(idx jobindex.Index) Option {
	return func(o *Orchestrator) { o.index = idx }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New creates a tenant-scoped orchestrator.
func New(tenantID uuid.UUID, st store.Store, codec secrets.Codec, registry *provider.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tenantID:   tenantID,
		store:      st,
		codec:      codec,
		registry:   registry,
		logger:     slog.Default(),
		strategy:   StrategyPriority,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		failover:   true,
		cache:      newAdapterCache(defaultCacheSize),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GenerateVideo routes one generation request to the best available
// provider, retrying and failing over per the configured policy.
func (o *Orchestrator) GenerateVideo(ctx context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
	// Request-level validation happens before any provider work.
	if !req.HasInput() {
		return provider.GenerationResult{}, provider.ErrMissingInput
	}

	candidates, err := o.loadCandidates(ctx, req)
	if err != nil {
		return provider.GenerationResult{}, err
	}
	if len(candidates) == 0 {
		return provider.GenerationResult{}, provider.ErrNoProviderAvailable
	}
	o.rank(candidates)

	var lastErr error
	for _, cfg := range candidates {
		adapter, err := o.adapterFor(cfg)
		if err != nil {
			// A misconfigured provider is skipped, not a request failure.
			o.logger.Warn("skipping provider: adapter construction failed",
				slog.String("tenant_id", o.tenantID.String()),
				slog.String("provider", string(cfg.Type)),
				slog.String("error", err.Error()),
			)
			lastErr = err
			continue
		}

		result, attemptErr := o.attemptWithRetry(ctx, adapter, cfg, req)
		if attemptErr == nil {
			o.recordSuccess(ctx, cfg)
			o.recordJob(ctx, result)
			return result, nil
		}
		lastErr = attemptErr

		// Caller cancellation is not a provider fault: leave the health
		// record alone and surface the cancellation as-is.
		if ctx.Err() != nil {
			return provider.GenerationResult{}, attemptErr
		}
		o.recordFailure(ctx, cfg, attemptErr)

		// A non-retryable error signals a request-validity problem, not a
		// provider outage: abort instead of burning the remaining
		// candidates on it.
		if !provider.Retryable(attemptErr) {
			return provider.GenerationResult{}, attemptErr
		}
		if !o.failover {
			break
		}
		o.logger.Info("failing over to next provider",
			slog.String("tenant_id", o.tenantID.String()),
			slog.String("provider", string(cfg.Type)),
			slog.String("error", attemptErr.Error()),
		)
	}

	if lastErr == nil {
		return provider.GenerationResult{}, provider.ErrAllProvidersFailed
	}
	return provider.GenerationResult{}, fmt.Errorf("%w: %w", provider.ErrAllProvidersFailed, lastErr)
}

// attemptWithRetry makes up to maxRetries attempts against one provider,
// sleeping retryDelay between attempts and stopping early on a
// non-retryable error.
func (o *Orchestrator) attemptWithRetry(ctx context.Context, adapter provider.Provider, cfg store.ProviderConfig, req provider.GenerationRequest) (provider.GenerationResult, error) {
	var lastErr error
	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return provider.GenerationResult{}, fmt.Errorf("orchestrator: cancelled: %w", ctx.Err())
			case <-time.After(o.retryDelay):
			}
		}

		result, err := adapter.GenerateVideo(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !provider.Retryable(err) {
			return provider.GenerationResult{}, err
		}
		o.logger.Warn("generation attempt failed",
			slog.String("tenant_id", o.tenantID.String()),
			slog.String("provider", string(cfg.Type)),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", o.maxRetries),
			slog.String("error", err.Error()),
		)
	}
	return provider.GenerationResult{}, lastErr
}

// loadCandidates loads the tenant's active, feature-matching configs and
// drops providers currently marked down.
func (o *Orchestrator) loadCandidates(ctx context.Context, req provider.GenerationRequest) ([]store.ProviderConfig, error) {
	configs, err := o.store.FindActiveProviders(ctx, o.tenantID, filterFor(req))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load providers: %w", err)
	}
	candidates := configs[:0]
	for _, cfg := range configs {
		if cfg.HealthStatus == provider.HealthDown {
			continue
		}
		candidates = append(candidates, cfg)
	}
	return candidates, nil
}

// rank orders candidates in place per the configured strategy. The store
// already returns the priority/failover order.
func (o *Orchestrator) rank(candidates []store.ProviderConfig) {
	switch o.strategy {
	case StrategyCost:
		// Missing cost defaults to 0 and sorts first. Preserved behavior;
		// flagged as an open question in the design notes.
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].CostPerMinute < candidates[j].CostPerMinute
		})
	case StrategySpeed:
		sort.SliceStable(candidates, func(i, j int) bool {
			return effectiveSpeed(candidates[i]) < effectiveSpeed(candidates[j])
		})
	case StrategyPriority, StrategyFailover:
		// Persisted order.
	}
}

func effectiveSpeed(cfg store.ProviderConfig) int {
	if cfg.AvgProcessingSec <= 0 {
		return speedDefaultSec
	}
	return cfg.AvgProcessingSec
}

// filterFor maps requested animation features onto the store filter.
func filterFor(req provider.GenerationRequest) store.Filter {
	return store.Filter{
		RequireLipSync:     req.LipSync,
		RequireEyeMovement: req.EyeMovement,
		RequireEmotions:    len(req.Emotions) > 0,
		RequireBackground:  req.Background != "",
	}
}

// adapterFor returns the cached adapter for a config, constructing and
// initializing one when absent or stale.
func (o *Orchestrator) adapterFor(cfg store.ProviderConfig) (provider.Provider, error) {
	if adapter, ok := o.cache.get(cfg.ID, cfg.UpdatedAt); ok {
		return adapter, nil
	}

	apiKey, err := o.codec.Decrypt(cfg.APIKeyEncrypted)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: decrypt api key: %w", err)
	}
	apiSecret, err := o.codec.Decrypt(cfg.APISecretEncrypted)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: decrypt api secret: %w", err)
	}

	adapter, err := o.registry.New(cfg.Type)
	if err != nil {
		return nil, err
	}
	if err := adapter.Initialize(provider.Config{
		Type:              cfg.Type,
		APIKey:            apiKey,
		APISecret:         apiSecret,
		BaseURL:           cfg.BaseURL,
		WebhookURL:        cfg.WebhookURL,
		CostPerMinute:     cfg.CostPerMinute,
		AvgProcessingSec:  cfg.AvgProcessingSec,
		MaxVideoLengthSec: cfg.MaxVideoLengthSec,
		MaxResolution:     cfg.MaxResolution,
		Extra:             cfg.ExtraMap(),
	}); err != nil {
		return nil, err
	}

	o.cache.put(cfg.ID, cfg.UpdatedAt, adapter)
	return adapter, nil
}

// recordSuccess marks the provider healthy and stamps usage. Health and
// usage writes are best-effort and never fail the caller.
func (o *Orchestrator) recordSuccess(ctx context.Context, cfg store.ProviderConfig) {
	now := time.Now()
	if err := o.store.UpdateProviderHealth(ctx, cfg.ID, provider.HealthHealthy, now); err != nil {
		o.logger.Warn("health update failed",
			slog.String("provider_id", cfg.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	if err := o.store.UpdateProviderUsage(ctx, cfg.ID, now); err != nil {
		o.logger.Warn("usage update failed",
			slog.String("provider_id", cfg.ID.String()),
			slog.String("error", err.Error()),
		)
	}
}

// recordFailure pushes the provider toward degraded. Down is reserved for
// explicit failed health checks so one transient generation error does
// not blacklist a provider.
func (o *Orchestrator) recordFailure(ctx context.Context, cfg store.ProviderConfig, cause error) {
	now := time.Now()
	if err := o.store.UpdateProviderHealth(ctx, cfg.ID, provider.HealthDegraded, now); err != nil {
		o.logger.Warn("health update failed",
			slog.String("provider_id", cfg.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	if err := o.store.UpdateProviderUsage(ctx, cfg.ID, now); err != nil {
		o.logger.Warn("usage update failed",
			slog.String("provider_id", cfg.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	o.logger.Warn("provider generation failed",
		slog.String("tenant_id", o.tenantID.String()),
		slog.String("provider", string(cfg.Type)),
		slog.String("error", cause.Error()),
	)
}

// recordJob stores the job-to-provider mapping so later lookups can skip
// the probe. Best-effort.
func (o *Orchestrator) recordJob(ctx context.Context, result provider.GenerationResult) {
	if o.index == nil || result.JobID == "" {
		return
	}
	if err := o.index.Record(ctx, o.tenantID, result.JobID, result.Provider); err != nil {
		o.logger.Warn("job index record failed",
			slog.String("job_id", result.JobID),
			slog.String("error", err.Error()),
		)
	}
}

// resolveByType returns the tenant's active config of the given type.
func (o *Orchestrator) resolveByType(ctx context.Context, t provider.Type) (*store.ProviderConfig, error) {
	cfg, err := o.store.FindProviderByType(ctx, o.tenantID, t)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: no active provider of type %s", provider.ErrNoProviderAvailable, t)
		}
		return nil, fmt.Errorf("orchestrator: resolve provider: %w", err)
	}
	return cfg, nil
}
