// Package llm implements the extraction-adapter and embedding-provider
// boundaries of the knowledge graph engine. It contains strict JSON-only
// prompt templates, tolerant response parsers, and HTTP clients for Ollama,
// OpenAI, and Anthropic, each wrapped in a circuit breaker and a
// client-side rate limiter.
//
// Every failure a client surfaces is a *ServiceError with a closed Kind
// (transient or permanent). The orchestrator's retry policy depends on that
// classification being structural; clients never require callers to sniff
// error strings.
package llm

import (
	"context"

	"github.com/kgforge/kgforge/pkg/types"
)

// TextGenerator is the interface for LLM text completion.
// All extraction prompts use single-string completion style (not chat).
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}

// Extractor is the extraction-adapter contract the orchestrator depends on:
// bounded text in, candidate entities and relations out, failures
// classified as transient or permanent.
type Extractor interface {
	// Extract runs entity extraction (and, when relations is true, relation
	// extraction) over the text. hints lists entity names already known to
	// the graph so the model reuses canonical surface forms. Oversized text
	// is truncated deterministically with an explicit marker before any
	// prompt is built.
	Extract(ctx context.Context, text string, hints []string, tier types.ExtractionTier, relations bool) ([]types.CandidateEntity, []types.CandidateRelation, error)
}
