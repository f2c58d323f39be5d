package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider is a minimal Provider used to exercise the registry.
type stubProvider struct {
	typ Type
}

func (s *stubProvider) Initialize(cfg Config) error { return nil }
func (s *stubProvider) GenerateVideo(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	return GenerationResult{Provider: s.typ, Status: StatusQueued}, nil
}
func (s *stubProvider) CheckJobStatus(ctx context.Context, jobID string) (GenerationResult, error) {
	return GenerationResult{Provider: s.typ, Status: StatusProcessing, JobID: jobID}, nil
}
func (s *stubProvider) CancelJob(ctx context.Context, jobID string) (bool, error) { return false, nil }
func (s *stubProvider) CheckHealth(ctx context.Context) Health {
	return Health{Healthy: true, Status: HealthHealthy}
}
func (s *stubProvider) EstimateCost(req GenerationRequest) (float64, error) { return 0, nil }
func (s *stubProvider) ValidateConfig(cfg Config) ValidationResult {
	return ValidationResult{Valid: true}
}
func (s *stubProvider) Capabilities() []Capability { return nil }
func (s *stubProvider) ConfigSchema() ConfigSchema { return ConfigSchema{} }

func TestRegistry_New(t *testing.T) {
	r := NewRegistry()
	r.Register(TypeCustom, func() Provider { return &stubProvider{typ: TypeCustom} })

	p, err := r.New(TypeCustom)
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestRegistry_New_UnknownType(t *testing.T) {
	r := NewRegistry()

	_, err := r.New(TypePhotoToVideo)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestRegistry_New_ReturnsFreshInstances(t *testing.T) {
	r := NewRegistry()
	r.Register(TypeCustom, func() Provider { return &stubProvider{typ: TypeCustom} })

	a, err := r.New(TypeCustom)
	require.NoError(t, err)
	b, err := r.New(TypeCustom)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestRegistry_Types(t *testing.T) {
	r := NewRegistry()
	r.Register(TypePhotoToVideo, func() Provider { return &stubProvider{typ: TypePhotoToVideo} })
	r.Register(TypeCustom, func() Provider { return &stubProvider{typ: TypeCustom} })

	types := r.Types()
	assert.Len(t, types, 2)
	assert.ElementsMatch(t, []Type{TypePhotoToVideo, TypeCustom}, types)
}
