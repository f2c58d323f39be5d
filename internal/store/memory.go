package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avatarlab/avatar-api/internal/provider"
)

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory implementation of Store. It uses a map with
// RWMutex for thread-safe access and clones on read so callers never
// share mutable state. Suitable for development and testing; swap for
// PostgresStore in production.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[uuid.UUID]*ProviderConfig
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		configs: make(map[uuid.UUID]*ProviderConfig),
	}
}

// Create persists a new provider config, unsetting any previous default
// for the tenant when cfg.IsDefault is true.
func (s *MemoryStore) Create(_ context.Context, cfg *ProviderConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	cfg.CreatedAt = now
	cfg.UpdatedAt = now
	if cfg.HealthStatus == "" {
		cfg.HealthStatus = provider.HealthUnknown
	}
	if cfg.IsDefault {
		s.unsetDefaultLocked(cfg.TenantID, cfg.ID)
	}

	clone := *cfg
	s.configs[cfg.ID] = &clone
	return nil
}

// Update persists changes to an existing config.
func (s *MemoryStore) Update(_ context.Context, cfg *ProviderConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.configs[cfg.ID]; !ok {
		return ErrNotFound
	}
	cfg.UpdatedAt = time.Now()
	if cfg.IsDefault {
		s.unsetDefaultLocked(cfg.TenantID, cfg.ID)
	}
	clone := *cfg
	s.configs[cfg.ID] = &clone
	return nil
}

// FindActiveProviders returns the tenant's active, feature-matching
// configs in ranked order.
func (s *MemoryStore) FindActiveProviders(_ context.Context, tenantID uuid.UUID, f Filter) ([]ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []ProviderConfig
	for _, cfg := range s.configs {
		if cfg.TenantID != tenantID || !cfg.Active {
			continue
		}
		if !cfg.SupportsFeatures(f) {
			continue
		}
		result = append(result, *cfg)
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.IsDefault != b.IsDefault {
			return a.IsDefault
		}
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.AvgProcessingSec != b.AvgProcessingSec {
			return a.AvgProcessingSec < b.AvgProcessingSec
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return result, nil
}

// FindProviderByType returns the tenant's active config of the given type.
func (s *MemoryStore) FindProviderByType(_ context.Context, tenantID uuid.UUID, t provider.Type) (*ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *ProviderConfig
	for _, cfg := range s.configs {
		if cfg.TenantID != tenantID || !cfg.Active || cfg.Type != t {
			continue
		}
		// Prefer the default when multiple configs share a type.
		if found == nil || cfg.IsDefault {
			found = cfg
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	clone := *found
	return &clone, nil
}

// FindByID returns a config by ID.
func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*ProviderConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *cfg
	return &clone, nil
}

// SetDefault marks one config as the tenant's default.
func (s *MemoryStore) SetDefault(_ context.Context, tenantID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[id]
	if !ok || cfg.TenantID != tenantID {
		return ErrNotFound
	}
	s.unsetDefaultLocked(tenantID, id)
	cfg.IsDefault = true
	cfg.UpdatedAt = time.Now()
	return nil
}

// UpdateProviderHealth records the durable health summary.
func (s *MemoryStore) UpdateProviderHealth(_ context.Context, id uuid.UUID, status provider.HealthStatus, checkedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[id]
	if !ok {
		return ErrNotFound
	}
	// Bookkeeping only; UpdatedAt marks config edits.
	cfg.HealthStatus = status
	cfg.LastHealthCheckAt = checkedAt
	return nil
}

// UpdateProviderUsage records when a provider was last used.
func (s *MemoryStore) UpdateProviderUsage(_ context.Context, id uuid.UUID, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.configs[id]
	if !ok {
		return ErrNotFound
	}
	cfg.LastUsedAt = usedAt
	return nil
}

// Delete removes a config.
func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.configs[id]; !ok {
		return ErrNotFound
	}
	delete(s.configs, id)
	return nil
}

// unsetDefaultLocked clears IsDefault on every other config of the tenant.
// Caller must hold the write lock.
func (s *MemoryStore) unsetDefaultLocked(tenantID, except uuid.UUID) {
	for _, cfg := range s.configs {
		if cfg.TenantID == tenantID && cfg.ID != except && cfg.IsDefault {
			cfg.IsDefault = false
			cfg.UpdatedAt = time.Now()
		}
	}
}
