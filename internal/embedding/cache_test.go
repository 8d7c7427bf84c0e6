package embedding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder returns a fixed vector and counts calls; it can be armed
// to fail.
type countingEmbedder struct {
	calls int
	fail  bool
}

func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.fail {
		return nil, errors.New("embed backend down")
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (e *countingEmbedder) GetModel() string { return "counting" }

func TestEmbedCachesRepeatedText(t *testing.T) {
	gen := &countingEmbedder{}
	provider, err := NewCachedProvider(gen, 8)
	require.NoError(t, err)

	first, err := provider.Embed(context.Background(), "Kubernetes")
	require.NoError(t, err)
	second, err := provider.Embed(context.Background(), "Kubernetes")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, gen.calls)

	hits, misses := provider.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestEmbedDistinctTextsMiss(t *testing.T) {
	gen := &countingEmbedder{}
	provider, err := NewCachedProvider(gen, 8)
	require.NoError(t, err)

	_, err = provider.Embed(context.Background(), "Kubernetes")
	require.NoError(t, err)
	_, err = provider.Embed(context.Background(), "kubernetes")
	require.NoError(t, err)

	// The cache is exact-content, not case-folded; normalization is the
	// resolver's concern.
	assert.Equal(t, 2, gen.calls)
}

func TestEmbedErrorNotCached(t *testing.T) {
	gen := &countingEmbedder{fail: true}
	provider, err := NewCachedProvider(gen, 8)
	require.NoError(t, err)

	_, err = provider.Embed(context.Background(), "Redis")
	require.Error(t, err)

	gen.fail = false
	vec, err := provider.Embed(context.Background(), "Redis")
	require.NoError(t, err)
	assert.NotEmpty(t, vec)
	assert.Equal(t, 2, gen.calls)
}

func TestNewCachedProviderDefaultSize(t *testing.T) {
	provider, err := NewCachedProvider(&countingEmbedder{}, 0)
	require.NoError(t, err)
	assert.NotNil(t, provider)
	assert.Equal(t, "counting", provider.GetModel())
}
