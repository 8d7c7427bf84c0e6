// Package storage defines the persistence contract for the knowledge graph.
//
// The storage layer is designed around one focused interface, GraphStore,
// with independent backends (Postgres with pgvector, SQLite). Uniqueness
// constraints in the schema, not application locks, are the source of
// truth for correctness under concurrent workers: idempotent operations
// surface conflicts as ErrDuplicate or swallow them outright as documented
// per method.
package storage

import (
	"context"
	"time"

	"github.com/kgforge/kgforge/pkg/types"
)

// GraphStore provides durable records for entities, mentions, and relations.
type GraphStore interface {
	// CreateEntity inserts a new entity. Returns ErrDuplicate when an entity
	// with the same case-insensitive canonical name and type already exists;
	// the caller re-reads the winner and proceeds as a match.
	CreateEntity(ctx context.Context, entity *types.Entity) error

	// GetEntity retrieves an entity by ID. Returns ErrNotFound if missing.
	GetEntity(ctx context.Context, id string) (*types.Entity, error)

	// FindByCanonicalName looks up an entity by case-insensitive canonical
	// name within a type. Returns ErrNotFound when no entity matches.
	FindByCanonicalName(ctx context.Context, name string, t types.EntityType) (*types.Entity, error)

	// FindByAlias looks up an entity whose alias set contains name
	// case-insensitively, within a type. Returns ErrNotFound when none does.
	FindByAlias(ctx context.Context, name string, t types.EntityType) (*types.Entity, error)

	// NearestEntity returns the entity of the given type whose embedding is
	// closest to the query vector, along with the cosine similarity.
	// Returns ErrNotFound when no entity of that type has an embedding.
	NearestEntity(ctx context.Context, embedding []float32, t types.EntityType) (*types.Entity, float64, error)

	// RecordHit applies the side effects of a resolver match in a single
	// transaction: increments mention_count, bumps source_breakdown[bucket],
	// recomputes source_tag, and widens the first_seen/last_seen window to
	// include ts.
	RecordHit(ctx context.Context, id string, bucket string, ts time.Time) error

	// AddAlias appends an alias to an entity unless it already carries it
	// case-insensitively (a silent no-op in that case).
	AddAlias(ctx context.Context, id string, alias string) error

	// SetEmbedding stores or replaces the embedding vector for an entity.
	SetEmbedding(ctx context.Context, id string, embedding []float32) error

	// ListEntities retrieves entities with pagination and filtering, sorted
	// by mention_count descending.
	ListEntities(ctx context.Context, opts ListOptions) ([]*types.Entity, error)

	// EntitiesWithEmbeddings returns every entity of the given type that has
	// a stored embedding. Used by offline analytics; t == "" means all types.
	EntitiesWithEmbeddings(ctx context.Context, t types.EntityType) ([]*types.Entity, error)

	// MergeEntities absorbs the source entity into the target in one
	// transaction: unions aliases (including the source's canonical name),
	// sums mention counts and source breakdowns, widens the seen window,
	// re-points all mentions and relations from source to target (collapsing
	// any records that would violate uniqueness after the re-point), and
	// deletes the source. Returns the merged target.
	MergeEntities(ctx context.Context, sourceID, targetID string) (*types.Entity, error)

	// InsertMention inserts a mention record. A conflict on the
	// (entity_id, unit_id) unique constraint is swallowed: the method
	// returns created=false and no error, so concurrent duplicate inserts
	// from racing workers are indistinguishable from a prior run's insert.
	InsertMention(ctx context.Context, mention *types.EntityMention) (created bool, err error)

	// HasMentionForUnit reports whether any mention exists for the unit.
	// This is the orchestrator's idempotent-resume probe.
	HasMentionForUnit(ctx context.Context, unitID string) (bool, error)

	// UpsertRelation inserts a relation or, when a record already exists for
	// (source, target, type, unit_id), increments its occurrence_count and
	// refreshes last_seen. Returns created=true only for a fresh insert.
	// Conflicts from concurrent workers are retried internally as updates.
	UpsertRelation(ctx context.Context, rel *types.Relation) (created bool, err error)

	// RelationsForEntity returns relations where the entity is source or
	// target.
	RelationsForEntity(ctx context.Context, entityID string) ([]*types.Relation, error)

	// Stats returns record counts for the stored graph.
	Stats(ctx context.Context) (*GraphStats, error)

	// Close releases any resources held by the store.
	Close() error
}
