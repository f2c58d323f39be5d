package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/avatarlab/avatar-api/internal/provider"
	"github.com/avatarlab/avatar-api/internal/secrets"
	"github.com/avatarlab/avatar-api/internal/store"
)

// Manager hands out tenant-scoped orchestrators, creating each lazily
// with a shared store, codec and registry. It is the surface an HTTP
// controller talks to.
type Manager struct {
	mu       sync.Mutex
	store    store.Store
	codec    secrets.Codec
	registry *provider.Registry
	opts     []Option
	tenants  map[uuid.UUID]*Orchestrator
}

// NewManager creates a manager. The options are applied to every tenant
// orchestrator it creates.
func NewManager(st store.Store, codec secrets.Codec, registry *provider.Registry, opts ...Option) *Manager {
	return &Manager{
		store:    st,
		codec:    codec,
		registry: registry,
		opts:     opts,
		tenants:  make(map[uuid.UUID]*Orchestrator),
	}
}

// ForTenant returns the tenant's orchestrator, creating it on first use.
func (m *Manager) ForTenant(tenantID uuid.UUID) *Orchestrator {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o, ok := m.tenants[tenantID]; ok {
		return o
	}
	o := New(tenantID, m.store, m.codec, m.registry, m.opts...)
	m.tenants[tenantID] = o
	return o
}

// GenerateVideo routes a generation request for a tenant.
func (m *Manager) GenerateVideo(ctx context.Context, tenantID uuid.UUID, req provider.GenerationRequest) (provider.GenerationResult, error) {
	return m.ForTenant(tenantID).GenerateVideo(ctx, req)
}

// CheckJobStatus looks up a job for a tenant.
func (m *Manager) CheckJobStatus(ctx context.Context, tenantID uuid.UUID, jobID string, providerType provider.Type) (provider.GenerationResult, error) {
	return m.ForTenant(tenantID).CheckJobStatus(ctx, jobID, providerType)
}

// CancelJob requests best-effort cancellation for a tenant.
func (m *Manager) CancelJob(ctx context.Context, tenantID uuid.UUID, jobID string, providerType provider.Type) (bool, error) {
	return m.ForTenant(tenantID).CancelJob(ctx, jobID, providerType)
}

// EstimateCost estimates the cost of a request for a tenant.
func (m *Manager) EstimateCost(ctx context.Context, tenantID uuid.UUID, req provider.GenerationRequest, providerType provider.Type) (float64, error) {
	return m.ForTenant(tenantID).EstimateCost(ctx, req, providerType)
}

// CheckProviderHealth runs a live health check for a tenant's provider.
func (m *Manager) CheckProviderHealth(ctx context.Context, tenantID uuid.UUID, providerType provider.Type) (provider.Health, error) {
	return m.ForTenant(tenantID).CheckProviderHealth(ctx, providerType)
}
