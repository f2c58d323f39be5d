package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/avatarlab/avatar-api/internal/provider"
	"github.com/avatarlab/avatar-api/internal/store"
)

// CheckJobStatus looks up a job's normalized status. With a provider type
// it delegates directly; without one it consults the job index and then
// falls back to probing every active provider. The probe path is
// best-effort: colliding job IDs across providers make it ambiguous, so
// the type-qualified path is the reliable one.
func (o *Orchestrator) CheckJobStatus(ctx context.Context, jobID string, providerType provider.Type) (provider.GenerationResult, error) {
	if providerType != "" {
		return o.delegateStatus(ctx, jobID, providerType)
	}

	if o.index != nil {
		t, ok, err := o.index.Lookup(ctx, o.tenantID, jobID)
		if err != nil {
			o.logger.Warn("job index lookup failed",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		} else if ok {
			result, err := o.delegateStatus(ctx, jobID, t)
			if err == nil {
				return result, nil
			}
			// Stale index entry; fall through to the probe.
		}
	}

	configs, err := o.store.FindActiveProviders(ctx, o.tenantID, store.Filter{})
	if err != nil {
		return provider.GenerationResult{}, fmt.Errorf("orchestrator: load providers: %w", err)
	}
	for _, cfg := range configs {
		adapter, err := o.adapterFor(cfg)
		if err != nil {
			continue
		}
		result, err := adapter.CheckJobStatus(ctx, jobID)
		if err != nil {
			continue
		}
		return result, nil
	}
	return provider.GenerationResult{}, fmt.Errorf("%w: %s", provider.ErrJobNotFound, jobID)
}

// delegateStatus resolves the config of one type and checks the job there.
func (o *Orchestrator) delegateStatus(ctx context.Context, jobID string, t provider.Type) (provider.GenerationResult, error) {
	cfg, err := o.resolveByType(ctx, t)
	if err != nil {
		return provider.GenerationResult{}, err
	}
	adapter, err := o.adapterFor(*cfg)
	if err != nil {
		return provider.GenerationResult{}, err
	}
	return adapter.CheckJobStatus(ctx, jobID)
}

// CancelJob requests best-effort cancellation. Returns false, not an
// error, when no provider confirms.
func (o *Orchestrator) CancelJob(ctx context.Context, jobID string, providerType provider.Type) (bool, error) {
	if providerType != "" {
		cfg, err := o.resolveByType(ctx, providerType)
		if err != nil {
			return false, err
		}
		adapter, err := o.adapterFor(*cfg)
		if err != nil {
			return false, err
		}
		return adapter.CancelJob(ctx, jobID)
	}

	if o.index != nil {
		t, ok, err := o.index.Lookup(ctx, o.tenantID, jobID)
		if err == nil && ok {
			if cancelled, err := o.cancelByType(ctx, jobID, t); err == nil {
				return cancelled, nil
			}
		}
	}

	configs, err := o.store.FindActiveProviders(ctx, o.tenantID, store.Filter{})
	if err != nil {
		return false, fmt.Errorf("orchestrator: load providers: %w", err)
	}
	for _, cfg := range configs {
		adapter, err := o.adapterFor(cfg)
		if err != nil {
			continue
		}
		cancelled, err := adapter.CancelJob(ctx, jobID)
		if err != nil {
			continue
		}
		if cancelled {
			return true, nil
		}
	}
	return false, nil
}

func (o *Orchestrator) cancelByType(ctx context.Context, jobID string, t provider.Type) (bool, error) {
	cfg, err := o.resolveByType(ctx, t)
	if err != nil {
		return false, err
	}
	adapter, err := o.adapterFor(*cfg)
	if err != nil {
		return false, err
	}
	return adapter.CancelJob(ctx, jobID)
}

// EstimateCost returns one provider's estimate, or, without a type, the
// cheapest estimate across the tenant's active matching providers.
// Individual estimator failures are excluded rather than surfaced; this
// is a display figure, not billing.
func (o *Orchestrator) EstimateCost(ctx context.Context, req provider.GenerationRequest, providerType provider.Type) (float64, error) {
	if providerType != "" {
		cfg, err := o.resolveByType(ctx, providerType)
		if err != nil {
			return 0, err
		}
		adapter, err := o.adapterFor(*cfg)
		if err != nil {
			return 0, err
		}
		return adapter.EstimateCost(req)
	}

	configs, err := o.store.FindActiveProviders(ctx, o.tenantID, filterFor(req))
	if err != nil {
		return 0, fmt.Errorf("orchestrator: load providers: %w", err)
	}

	cheapest := math.Inf(1)
	for _, cfg := range configs {
		adapter, err := o.adapterFor(cfg)
		if err != nil {
			continue
		}
		estimate, err := adapter.EstimateCost(req)
		if err != nil {
			continue
		}
		if estimate < cheapest {
			cheapest = estimate
		}
	}
	if math.IsInf(cheapest, 1) {
		return 0, provider.ErrNoProviderAvailable
	}
	return cheapest, nil
}

// CheckProviderHealth runs a live health check against one provider and
// persists the durable summary. The down classification comes only from
// here, never from a failed generation.
func (o *Orchestrator) CheckProviderHealth(ctx context.Context, providerType provider.Type) (provider.Health, error) {
	cfg, err := o.resolveByType(ctx, providerType)
	if err != nil {
		return provider.Health{}, err
	}
	adapter, err := o.adapterFor(*cfg)
	if err != nil {
		return provider.Health{}, err
	}

	health := adapter.CheckHealth(ctx)
	if err := o.store.UpdateProviderHealth(ctx, cfg.ID, health.Status, time.Now()); err != nil {
		o.logger.Warn("health update failed",
			slog.String("provider_id", cfg.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return health, nil
}
