// Package embedding wraps an embedding generator with a content-hash cache
// so the same text is never embedded twice within a run. Entity names
// repeat heavily across units; the cache turns most resolver embedding
// lookups into memory hits.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kgforge/kgforge/internal/llm"
)

// DefaultCacheSize is the default number of cached vectors. Vectors are
// small (a few KB); 16k entries covers a large corpus comfortably.
const DefaultCacheSize = 16384

// CachedProvider is an EmbeddingGenerator with an LRU cache keyed by the
// SHA-256 of the input text. Safe for concurrent use by multiple workers.
type CachedProvider struct {
	generator llm.EmbeddingGenerator
	cache     *lru.Cache[string, []float32]

	mu     sync.Mutex
	hits   uint64
	misses uint64
}

// NewCachedProvider wraps generator with a cache of the given size.
// A non-positive size falls back to DefaultCacheSize.
func NewCachedProvider(generator llm.EmbeddingGenerator, size int) (*CachedProvider, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedding: failed to create cache: %w", err)
	}
	return &CachedProvider{
		generator: generator,
		cache:     cache,
	}, nil
}

// Embed returns the embedding for text, from cache when available.
// Errors from the underlying generator are never cached.
func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := contentHash(text)

	if vec, ok := p.cache.Get(key); ok {
		p.mu.Lock()
		p.hits++
		p.mu.Unlock()
		return vec, nil
	}

	vec, err := p.generator.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	p.cache.Add(key, vec)
	p.mu.Lock()
	p.misses++
	p.mu.Unlock()
	return vec, nil
}

// GetModel returns the underlying generator's model name.
func (p *CachedProvider) GetModel() string {
	return p.generator.GetModel()
}

// Stats returns cache hit and miss counts.
func (p *CachedProvider) Stats() (hits, misses uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hits, p.misses
}

// contentHash returns the hex SHA-256 of text.
func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Compile-time assertion.
var _ llm.EmbeddingGenerator = (*CachedProvider)(nil)
