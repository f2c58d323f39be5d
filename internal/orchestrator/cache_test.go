package orchestrator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarlab/avatar-api/internal/provider"
)

func TestAdapterCache_GetPut(t *testing.T) {
	c := newAdapterCache(4)
	id := uuid.New()
	updatedAt := time.Now()
	adapter := &fakeProvider{typ: provider.TypeCustom, backend: &fakeBackend{}}

	_, ok := c.get(id, updatedAt)
	assert.False(t, ok)

	c.put(id, updatedAt, adapter)
	got, ok := c.get(id, updatedAt)
	require.True(t, ok)
	assert.Same(t, adapter, got)
}

func TestAdapterCache_StaleOnConfigChange(t *testing.T) {
	c := newAdapterCache(4)
	id := uuid.New()
	updatedAt := time.Now()
	c.put(id, updatedAt, &fakeProvider{typ: provider.TypeCustom, backend: &fakeBackend{}})

	_, ok := c.get(id, updatedAt.Add(time.Second))
	assert.False(t, ok, "a moved UpdatedAt invalidates the entry")
	assert.Zero(t, c.len(), "the stale entry is dropped")
}

func TestAdapterCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newAdapterCache(2)
	now := time.Now()
	first := uuid.New()
	second := uuid.New()

	c.put(first, now, &fakeProvider{backend: &fakeBackend{}})
	time.Sleep(time.Millisecond)
	c.put(second, now, &fakeProvider{backend: &fakeBackend{}})
	time.Sleep(time.Millisecond)

	// Touch the first entry so the second becomes least recently used.
	_, ok := c.get(first, now)
	require.True(t, ok)
	time.Sleep(time.Millisecond)

	c.put(uuid.New(), now, &fakeProvider{backend: &fakeBackend{}})

	_, ok = c.get(first, now)
	assert.True(t, ok)
	_, ok = c.get(second, now)
	assert.False(t, ok)
	assert.Equal(t, 2, c.len())
}

func TestAdapterCache_ReplaceDoesNotEvict(t *testing.T) {
	c := newAdapterCache(2)
	now := time.Now()
	first := uuid.New()
	second := uuid.New()

	c.put(first, now, &fakeProvider{backend: &fakeBackend{}})
	c.put(second, now, &fakeProvider{backend: &fakeBackend{}})

	// Replacing an existing entry at capacity keeps the other one.
	c.put(first, now.Add(time.Second), &fakeProvider{backend: &fakeBackend{}})

	_, ok := c.get(second, now)
	assert.True(t, ok)
	assert.Equal(t, 2, c.len())
}
