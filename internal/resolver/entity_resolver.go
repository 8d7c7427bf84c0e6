// Package resolver maps extraction candidates onto stable graph records.
//
// The entity resolver guarantees one record per real-world concept: a
// candidate passes through an ordered cascade of match stages (session
// cache, canonical name, alias, embedding similarity) and only becomes a
// new entity when every stage misses. The relation resolver maps candidate
// triples onto the closed predicate vocabulary and drops anything whose
// endpoints did not resolve in the same unit.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/kgforge/kgforge/internal/llm"
	"github.com/kgforge/kgforge/internal/storage"
	"github.com/kgforge/kgforge/pkg/types"
)

// EntityResolver resolves candidate entities against the graph store.
//
// The session cache maps normalized (type, name) keys to entity IDs for the
// lifetime of the resolver. Workers sharing a resolver share the cache; the
// cache is an optimization only, correctness comes from the store's
// uniqueness constraints.
type EntityResolver struct {
	store    storage.GraphStore
	embedder llm.EmbeddingGenerator

	// similarityThreshold is the minimum cosine similarity for an
	// embedding-stage match.
	similarityThreshold float64

	mu      sync.Mutex
	session map[string]string // normalized (type, name) -> entity ID
}

// NewEntityResolver creates a resolver backed by the given store and
// embedding provider. embedder may be nil, which disables the embedding
// stage (candidates then match by name or alias only).
func NewEntityResolver(store storage.GraphStore, embedder llm.EmbeddingGenerator, similarityThreshold float64) *EntityResolver {
	return &EntityResolver{
		store:               store,
		embedder:            embedder,
		similarityThreshold: similarityThreshold,
		session:             make(map[string]string),
	}
}

// Resolution describes the outcome of resolving one candidate.
type Resolution struct {
	Entity *types.Entity

	// Created is true when the candidate became a new entity record.
	Created bool

	// MentionCreated is true when a mention record was inserted for
	// (entity, unit). False means the unit already had one, so no hit side
	// effects were applied either.
	MentionCreated bool
}

// Resolve maps a candidate onto an entity record and records the
// observation. Matches apply their hit side effects (mention_count,
// source_breakdown, seen window) in a single store transaction; a fresh
// entity starts with the observation already counted. The mention record
// is inserted for (entity, unit) idempotently.
func (r *EntityResolver) Resolve(ctx context.Context, cand types.CandidateEntity, unit *types.WorkUnit) (*Resolution, error) {
	name := strings.TrimSpace(cand.Name)
	if name == "" {
		return nil, fmt.Errorf("resolver: %w: candidate name is empty", storage.ErrInvalidInput)
	}

	entity, created, err := r.resolveEntity(ctx, name, cand, unit)
	if err != nil {
		return nil, err
	}

	mention := &types.EntityMention{
		ID:             types.NewMentionID(),
		EntityID:       entity.ID,
		UnitID:         unit.ID,
		ContextSnippet: unit.Snippet(),
		Timestamp:      unit.Timestamp,
	}
	mentionCreated, err := r.store.InsertMention(ctx, mention)
	if err != nil {
		return nil, err
	}

	// A match only counts once per unit: side effects follow the mention
	// insert, and a new entity was created with its first observation
	// already folded in.
	if mentionCreated && !created {
		if err := r.store.RecordHit(ctx, entity.ID, unit.SourceBucket, unit.Timestamp); err != nil {
			return nil, err
		}
	}

	// Candidate aliases enrich the record regardless of match stage.
	for _, alias := range cand.Aliases {
		if strings.EqualFold(alias, entity.CanonicalName) || entity.HasAlias(alias) {
			continue
		}
		if err := r.store.AddAlias(ctx, entity.ID, alias); err != nil {
			return nil, err
		}
	}

	return &Resolution{Entity: entity, Created: created, MentionCreated: mentionCreated}, nil
}

// resolveEntity runs the match cascade and returns the winning entity.
func (r *EntityResolver) resolveEntity(ctx context.Context, name string, cand types.CandidateEntity, unit *types.WorkUnit) (*types.Entity, bool, error) {
	key := sessionKey(cand.Type, name)

	// Stage 1: session cache.
	if id, ok := r.sessionGet(key); ok {
		entity, err := r.store.GetEntity(ctx, id)
		if err == nil {
			return entity, false, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, false, err
		}
		// Entity merged away since it was cached; drop the stale entry and
		// fall through to the store stages.
		r.sessionDelete(key)
	}

	// Stage 2: case-insensitive canonical name match.
	entity, err := r.store.FindByCanonicalName(ctx, name, cand.Type)
	if err == nil {
		r.sessionPut(key, entity.ID)
		return entity, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	// Stage 3: case-insensitive alias match.
	entity, err = r.store.FindByAlias(ctx, name, cand.Type)
	if err == nil {
		r.sessionPut(key, entity.ID)
		return entity, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	// Stage 4: embedding similarity. The matched entity absorbs the
	// candidate name as an alias so future units short-circuit at stage 3.
	embedding := r.embedName(ctx, name)
	if len(embedding) > 0 {
		nearest, sim, err := r.store.NearestEntity(ctx, embedding, cand.Type)
		if err == nil && sim >= r.similarityThreshold {
			if addErr := r.store.AddAlias(ctx, nearest.ID, name); addErr != nil {
				return nil, false, addErr
			}
			nearest.AddAlias(name)
			r.sessionPut(key, nearest.ID)
			return nearest, false, nil
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, false, err
		}
	}

	// Stage 5: create. A concurrent worker may win the uniqueness race; the
	// duplicate conflict means the winner is the match.
	entity = &types.Entity{
		ID:            types.NewEntityID(),
		CanonicalName: name,
		Type:          cand.Type,
		Aliases:       nil,
		Embedding:     embedding,
		MentionCount:  1,
		Confidence:    cand.Confidence,
		Breakdown:     types.SourceBreakdown{unit.SourceBucket: 1},
		FirstSeen:     unit.Timestamp,
		LastSeen:      unit.Timestamp,
	}
	entity.SourceTag = entity.Breakdown.Tag()

	err = r.store.CreateEntity(ctx, entity)
	if errors.Is(err, storage.ErrDuplicate) {
		winner, readErr := r.store.FindByCanonicalName(ctx, name, cand.Type)
		if readErr != nil {
			return nil, false, readErr
		}
		r.sessionPut(key, winner.ID)
		return winner, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	r.sessionPut(key, entity.ID)
	return entity, true, nil
}

// Merge absorbs source into target and invalidates any session entries that
// pointed at the absorbed record. reason is logged for the audit trail.
func (r *EntityResolver) Merge(ctx context.Context, sourceID, targetID, reason string) (*types.Entity, error) {
	merged, err := r.store.MergeEntities(ctx, sourceID, targetID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	for key, id := range r.session {
		if id == sourceID {
			delete(r.session, key)
		}
	}
	r.mu.Unlock()

	log.Printf("resolver: merged %s into %s (%s)", sourceID, targetID, reason)
	return merged, nil
}

// embedName computes the candidate's embedding. A permanent provider
// failure degrades to name-only resolution instead of failing the unit;
// transient failures are not retried here because a miss only costs one
// potential dedup, not correctness.
func (r *EntityResolver) embedName(ctx context.Context, name string) []float32 {
	if r.embedder == nil {
		return nil
	}
	embedding, err := r.embedder.Embed(ctx, name)
	if err != nil {
		log.Printf("resolver: embedding unavailable for %q (falling back to name matching): %v", name, err)
		return nil
	}
	return embedding
}

func (r *EntityResolver) sessionGet(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.session[key]
	return id, ok
}

func (r *EntityResolver) sessionPut(key, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session[key] = id
}

func (r *EntityResolver) sessionDelete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.session, key)
}

func sessionKey(t types.EntityType, name string) string {
	return string(t) + "\x00" + strings.ToLower(name)
}
