package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarlab/avatar-api/internal/provider"
)

func newConfig(tenantID uuid.UUID, name string) *ProviderConfig {
	return &ProviderConfig{
		TenantID: tenantID,
		Name:     name,
		Type:     provider.TypePhotoToVideo,
		Active:   true,
	}
}

func TestMemoryStore_CreateAndFind(t *testing.T) {
	s := NewMemoryStore()
	tenantID := uuid.New()

	cfg := newConfig(tenantID, "did-prod")
	require.NoError(t, s.Create(t.Context(), cfg))
	assert.NotEqual(t, uuid.Nil, cfg.ID)
	assert.False(t, cfg.CreatedAt.IsZero())
	assert.Equal(t, provider.HealthUnknown, cfg.HealthStatus)

	found, err := s.FindByID(t.Context(), cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, "did-prod", found.Name)
}

func TestMemoryStore_FindByID_NotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.FindByID(t.Context(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CloneOnRead(t *testing.T) {
	s := NewMemoryStore()
	cfg := newConfig(uuid.New(), "did-prod")
	require.NoError(t, s.Create(t.Context(), cfg))

	found, err := s.FindByID(t.Context(), cfg.ID)
	require.NoError(t, err)
	found.Name = "mutated"

	again, err := s.FindByID(t.Context(), cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, "did-prod", again.Name)
}

func TestMemoryStore_Update(t *testing.T) {
	s := NewMemoryStore()
	cfg := newConfig(uuid.New(), "did-prod")
	require.NoError(t, s.Create(t.Context(), cfg))

	cfg.Priority = 50
	require.NoError(t, s.Update(t.Context(), cfg))

	found, err := s.FindByID(t.Context(), cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, found.Priority)
	assert.True(t, found.UpdatedAt.After(found.CreatedAt) || found.UpdatedAt.Equal(found.CreatedAt))
}

func TestMemoryStore_Update_NotFound(t *testing.T) {
	s := NewMemoryStore()
	cfg := newConfig(uuid.New(), "ghost")
	cfg.ID = uuid.New()

	assert.ErrorIs(t, s.Update(t.Context(), cfg), ErrNotFound)
}

func TestMemoryStore_SingleDefaultInvariant(t *testing.T) {
	s := NewMemoryStore()
	tenantID := uuid.New()

	first := newConfig(tenantID, "first")
	first.IsDefault = true
	require.NoError(t, s.Create(t.Context(), first))

	second := newConfig(tenantID, "second")
	second.IsDefault = true
	require.NoError(t, s.Create(t.Context(), second))

	oldDefault, err := s.FindByID(t.Context(), first.ID)
	require.NoError(t, err)
	assert.False(t, oldDefault.IsDefault, "creating a new default must unset the previous one")

	newDefault, err := s.FindByID(t.Context(), second.ID)
	require.NoError(t, err)
	assert.True(t, newDefault.IsDefault)
}

func TestMemoryStore_SetDefault(t *testing.T) {
	s := NewMemoryStore()
	tenantID := uuid.New()

	first := newConfig(tenantID, "first")
	first.IsDefault = true
	require.NoError(t, s.Create(t.Context(), first))

	second := newConfig(tenantID, "second")
	require.NoError(t, s.Create(t.Context(), second))

	require.NoError(t, s.SetDefault(t.Context(), tenantID, second.ID))

	a, _ := s.FindByID(t.Context(), first.ID)
	b, _ := s.FindByID(t.Context(), second.ID)
	assert.False(t, a.IsDefault)
	assert.True(t, b.IsDefault)
}

func TestMemoryStore_SetDefault_WrongTenant(t *testing.T) {
	s := NewMemoryStore()
	cfg := newConfig(uuid.New(), "first")
	require.NoError(t, s.Create(t.Context(), cfg))

	assert.ErrorIs(t, s.SetDefault(t.Context(), uuid.New(), cfg.ID), ErrNotFound)
}

func TestMemoryStore_DefaultScopedPerTenant(t *testing.T) {
	s := NewMemoryStore()
	tenantA := uuid.New()
	tenantB := uuid.New()

	a := newConfig(tenantA, "a-default")
	a.IsDefault = true
	require.NoError(t, s.Create(t.Context(), a))

	b := newConfig(tenantB, "b-default")
	b.IsDefault = true
	require.NoError(t, s.Create(t.Context(), b))

	foundA, _ := s.FindByID(t.Context(), a.ID)
	assert.True(t, foundA.IsDefault, "another tenant's default must not unset this one")
}

func TestMemoryStore_FindActiveProviders_Ordering(t *testing.T) {
	s := NewMemoryStore()
	tenantID := uuid.New()

	low := newConfig(tenantID, "low-priority")
	low.Priority = 10
	require.NoError(t, s.Create(t.Context(), low))

	high := newConfig(tenantID, "high-priority")
	high.Priority = 90
	require.NoError(t, s.Create(t.Context(), high))

	def := newConfig(tenantID, "the-default")
	def.Priority = 1
	def.IsDefault = true
	require.NoError(t, s.Create(t.Context(), def))

	configs, err := s.FindActiveProviders(t.Context(), tenantID, Filter{})
	require.NoError(t, err)
	require.Len(t, configs, 3)
	assert.Equal(t, "the-default", configs[0].Name, "default ranks first regardless of priority")
	assert.Equal(t, "high-priority", configs[1].Name)
	assert.Equal(t, "low-priority", configs[2].Name)
}

func TestMemoryStore_FindActiveProviders_SpeedTieBreak(t *testing.T) {
	s := NewMemoryStore()
	tenantID := uuid.New()

	slow := newConfig(tenantID, "slow")
	slow.Priority = 50
	slow.AvgProcessingSec = 300
	require.NoError(t, s.Create(t.Context(), slow))

	fast := newConfig(tenantID, "fast")
	fast.Priority = 50
	fast.AvgProcessingSec = 30
	require.NoError(t, s.Create(t.Context(), fast))

	configs, err := s.FindActiveProviders(t.Context(), tenantID, Filter{})
	require.NoError(t, err)
	require.Len(t, configs, 2)
	assert.Equal(t, "fast", configs[0].Name)
}

func TestMemoryStore_FindActiveProviders_Filtering(t *testing.T) {
	s := NewMemoryStore()
	tenantID := uuid.New()

	plain := newConfig(tenantID, "plain")
	require.NoError(t, s.Create(t.Context(), plain))

	emotive := newConfig(tenantID, "emotive")
	emotive.SupportsEmotions = true
	require.NoError(t, s.Create(t.Context(), emotive))

	inactive := newConfig(tenantID, "inactive")
	inactive.Active = false
	inactive.SupportsEmotions = true
	require.NoError(t, s.Create(t.Context(), inactive))

	other := newConfig(uuid.New(), "other-tenant")
	other.SupportsEmotions = true
	require.NoError(t, s.Create(t.Context(), other))

	configs, err := s.FindActiveProviders(t.Context(), tenantID, Filter{RequireEmotions: true})
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "emotive", configs[0].Name)
}

func TestMemoryStore_FindProviderByType(t *testing.T) {
	s := NewMemoryStore()
	tenantID := uuid.New()

	plain := newConfig(tenantID, "plain")
	require.NoError(t, s.Create(t.Context(), plain))

	def := newConfig(tenantID, "default-of-type")
	def.IsDefault = true
	require.NoError(t, s.Create(t.Context(), def))

	found, err := s.FindProviderByType(t.Context(), tenantID, provider.TypePhotoToVideo)
	require.NoError(t, err)
	assert.Equal(t, "default-of-type", found.Name)

	_, err = s.FindProviderByType(t.Context(), tenantID, provider.TypeCustom)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UpdateProviderHealth(t *testing.T) {
	s := NewMemoryStore()
	cfg := newConfig(uuid.New(), "did-prod")
	require.NoError(t, s.Create(t.Context(), cfg))

	checkedAt := time.Now()
	require.NoError(t, s.UpdateProviderHealth(t.Context(), cfg.ID, provider.HealthDegraded, checkedAt))

	found, err := s.FindByID(t.Context(), cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, provider.HealthDegraded, found.HealthStatus)
	assert.WithinDuration(t, checkedAt, found.LastHealthCheckAt, time.Second)
}

func TestMemoryStore_BookkeepingDoesNotTouchUpdatedAt(t *testing.T) {
	s := NewMemoryStore()
	cfg := newConfig(uuid.New(), "did-prod")
	require.NoError(t, s.Create(t.Context(), cfg))

	created, err := s.FindByID(t.Context(), cfg.ID)
	require.NoError(t, err)

	require.NoError(t, s.UpdateProviderHealth(t.Context(), cfg.ID, provider.HealthHealthy, time.Now()))
	require.NoError(t, s.UpdateProviderUsage(t.Context(), cfg.ID, time.Now()))

	found, err := s.FindByID(t.Context(), cfg.ID)
	require.NoError(t, err)
	assert.True(t, found.UpdatedAt.Equal(created.UpdatedAt), "health and usage writes must not look like config edits")
}

func TestMemoryStore_UpdateProviderUsage(t *testing.T) {
	s := NewMemoryStore()
	cfg := newConfig(uuid.New(), "did-prod")
	require.NoError(t, s.Create(t.Context(), cfg))

	usedAt := time.Now()
	require.NoError(t, s.UpdateProviderUsage(t.Context(), cfg.ID, usedAt))

	found, err := s.FindByID(t.Context(), cfg.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, usedAt, found.LastUsedAt, time.Second)
}

func TestMemoryStore_Delete(t *testing.T) {
	s := NewMemoryStore()
	cfg := newConfig(uuid.New(), "did-prod")
	require.NoError(t, s.Create(t.Context(), cfg))

	require.NoError(t, s.Delete(t.Context(), cfg.ID))
	_, err := s.FindByID(t.Context(), cfg.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(t.Context(), cfg.ID), ErrNotFound)
}

func TestProviderConfig_SupportsFeatures(t *testing.T) {
	cfg := ProviderConfig{SupportsLipSync: true, SupportsEmotions: true}

	assert.True(t, cfg.SupportsFeatures(Filter{}))
	assert.True(t, cfg.SupportsFeatures(Filter{RequireLipSync: true, RequireEmotions: true}))
	assert.False(t, cfg.SupportsFeatures(Filter{RequireEyeMovement: true}))
	assert.False(t, cfg.SupportsFeatures(Filter{RequireBackground: true}))
}

func TestProviderConfig_ExtraMap(t *testing.T) {
	cfg := ProviderConfig{ExtraConfig: []byte(`{"credit_price": 0.5}`)}
	assert.Equal(t, 0.5, cfg.ExtraMap()["credit_price"])

	assert.Empty(t, ProviderConfig{}.ExtraMap())
	assert.Empty(t, ProviderConfig{ExtraConfig: []byte(`{broken`)}.ExtraMap())
}
