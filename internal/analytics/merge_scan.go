// Package analytics provides offline graph maintenance jobs: a
// merge-candidate scan that finds near-duplicate entities by embedding
// similarity, and density-based clustering over entity embeddings. Both
// consume the graph store only and run as batch work, never inside the
// ingest pipeline.
package analytics

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/kgforge/kgforge/internal/storage"
	"github.com/kgforge/kgforge/pkg/types"
)

// MergeCandidate pairs two entities of the same type whose embeddings are
// close enough to suspect they name the same concept. Target is always the
// record with the higher mention count; it survives an applied merge.
type MergeCandidate struct {
	SourceID   string  `json:"source_id"`
	SourceName string  `json:"source_name"`
	TargetID   string  `json:"target_id"`
	TargetName string  `json:"target_name"`
	Type       string  `json:"entity_type"`
	Similarity float64 `json:"similarity"`
}

// Scanner finds and optionally applies merge candidates.
type Scanner struct {
	store     storage.GraphStore
	threshold float64
}

// NewScanner creates a scanner. threshold is the minimum cosine similarity
// for a candidate pair; sensible values sit above the resolver's match
// threshold since merging is destructive.
func NewScanner(store storage.GraphStore, threshold float64) *Scanner {
	return &Scanner{store: store, threshold: threshold}
}

// ScanMergeCandidates compares embeddings pairwise within each entity type
// and returns candidate pairs sorted by similarity descending. Entities
// without embeddings never appear.
func (s *Scanner) ScanMergeCandidates(ctx context.Context) ([]MergeCandidate, error) {
	entities, err := s.store.EntitiesWithEmbeddings(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("analytics: failed to load entities: %w", err)
	}

	byType := make(map[types.EntityType][]*types.Entity)
	for _, e := range entities {
		byType[e.Type] = append(byType[e.Type], e)
	}

	var candidates []MergeCandidate
	for t, group := range byType {
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				sim := cosineSimilarity(group[i].Embedding, group[j].Embedding)
				if sim < s.threshold {
					continue
				}
				source, target := group[i], group[j]
				// The record with more mentions survives.
				if source.MentionCount > target.MentionCount {
					source, target = target, source
				}
				candidates = append(candidates, MergeCandidate{
					SourceID:   source.ID,
					SourceName: source.CanonicalName,
					TargetID:   target.ID,
					TargetName: target.CanonicalName,
					Type:       string(t),
					Similarity: sim,
				})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	return candidates, nil
}

// ApplyMerges executes the candidate merges. A source that was already
// absorbed by an earlier merge in the same batch is skipped. Returns the
// number of merges applied.
func (s *Scanner) ApplyMerges(ctx context.Context, candidates []MergeCandidate) (int, error) {
	absorbed := make(map[string]bool)
	applied := 0

	for _, c := range candidates {
		if absorbed[c.SourceID] || absorbed[c.TargetID] {
			continue
		}
		if _, err := s.store.MergeEntities(ctx, c.SourceID, c.TargetID); err != nil {
			return applied, fmt.Errorf("analytics: merge %s into %s: %w", c.SourceID, c.TargetID, err)
		}
		log.Printf("analytics: merged %q into %q (similarity %.3f)", c.SourceName, c.TargetName, c.Similarity)
		absorbed[c.SourceID] = true
		applied++
	}
	return applied, nil
}

// cosineSimilarity computes the cosine similarity of two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
