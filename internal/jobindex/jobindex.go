// Package jobindex records which provider owns a submitted job ID so
// later status and cancel calls can skip the cross-provider probe.
// The index is best-effort: a miss falls back to probing, and a write
// failure never fails the caller's generation request.
package jobindex

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avatarlab/avatar-api/internal/provider"
)

// DefaultTTL bounds how long a mapping is kept. Terminal jobs are
// typically collected by the caller well within this window.
const DefaultTTL = 24 * time.Hour

// Index maps (tenant, job ID) to the owning provider type.
type Index interface {
	// Record stores the mapping at submission time.
	Record(ctx context.Context, tenantID uuid.UUID, jobID string, t provider.Type) error

	// Lookup returns the owning provider type, or false when unknown.
	Lookup(ctx context.Context, tenantID uuid.UUID, jobID string) (provider.Type, bool, error)
}

// Compile-time check that MemoryIndex implements Index.
var _ Index = (*MemoryIndex)(nil)

type memoryEntry struct {
	providerType provider.Type
	expiresAt    time.Time
}

// MemoryIndex is an in-process implementation of Index with TTL expiry.
type MemoryIndex struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

// NewMemoryIndex creates an in-memory index. A non-positive ttl uses
// DefaultTTL.
func NewMemoryIndex(ttl time.Duration) *MemoryIndex {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryIndex{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

// Record stores the mapping.
func (m *MemoryIndex) Record(_ context.Context, tenantID uuid.UUID, jobID string, t provider.Type) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key(tenantID, jobID)] = memoryEntry{
		providerType: t,
		expiresAt:    time.Now().Add(m.ttl),
	}
	return nil
}

// Lookup returns the owning provider type if the mapping is still live.
func (m *MemoryIndex) Lookup(_ context.Context, tenantID uuid.UUID, jobID string) (provider.Type, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key(tenantID, jobID)]
	m.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if time.Now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key(tenantID, jobID))
		m.mu.Unlock()
		return "", false, nil
	}
	return entry.providerType, true, nil
}

func key(tenantID uuid.UUID, jobID string) string {
	return tenantID.String() + ":" + jobID
}
