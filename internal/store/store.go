package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/avatarlab/avatar-api/internal/provider"
)

// Static errors for store operations.
var (
	// ErrNotFound is returned when a provider config does not exist.
	ErrNotFound = errors.New("store: provider config not found")
)

// Filter narrows active-provider lookups to back ends that support the
// requested animation features.
type Filter struct {
	RequireLipSync     bool
	RequireEyeMovement bool
	RequireEmotions    bool
	RequireBackground  bool
}

// Store is the persistence port for provider configurations.
// Implementations must serialize concurrent health/usage writes per row.
type Store interface {
	// Create persists a new provider config. When cfg.IsDefault is true,
	// any previous default for the tenant is unset in the same
	// transaction so at most one default exists per tenant.
	Create(ctx context.Context, cfg *ProviderConfig) error

	// Update persists changes to an existing config, applying the same
	// single-default invariant as Create.
	Update(ctx context.Context, cfg *ProviderConfig) error

	// FindActiveProviders returns the tenant's active configs that match
	// the feature filter, ordered by (is_default desc, priority desc,
	// avg_processing_sec asc, created_at desc).
	FindActiveProviders(ctx context.Context, tenantID uuid.UUID, f Filter) ([]ProviderConfig, error)

	// FindProviderByType returns the tenant's active config of the given
	// type, or ErrNotFound.
	FindProviderByType(ctx context.Context, tenantID uuid.UUID, t provider.Type) (*ProviderConfig, error)

	// FindByID returns a config by its ID, or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*ProviderConfig, error)

	// SetDefault marks one config as the tenant's default, unsetting any
	// other default transactionally.
	SetDefault(ctx context.Context, tenantID, id uuid.UUID) error

	// UpdateProviderHealth records the durable health summary after a
	// health check or generation attempt.
	UpdateProviderHealth(ctx context.Context, id uuid.UUID, status provider.HealthStatus, checkedAt time.Time) error

	// UpdateProviderUsage records when a provider was last used.
	UpdateProviderUsage(ctx context.Context, id uuid.UUID, usedAt time.Time) error

	// Delete removes a config. In-flight jobs already dispatched to the
	// provider are unaffected.
	Delete(ctx context.Context, id uuid.UUID) error
}
