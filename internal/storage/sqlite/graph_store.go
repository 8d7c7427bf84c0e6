// Package sqlite provides a SQLite implementation of the graph store.
// It is the default backend: pure Go (modernc.org/sqlite), no server, good
// enough for corpora in the hundreds of thousands of units. Vector search
// is a linear cosine scan in Go; Postgres with pgvector is the backend to
// reach for when entity counts make that scan hurt.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/kgforge/kgforge/internal/storage"
	"github.com/kgforge/kgforge/pkg/types"
)

// GraphStore implements storage.GraphStore using SQLite.
type GraphStore struct {
	db *sql.DB
}

// NewGraphStore opens a SQLite database at dsn, configures WAL mode, and
// applies the schema.
func NewGraphStore(dsn string) (*GraphStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY under concurrent workers;
	// WAL mode lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to apply schema: %w", err)
	}

	return &GraphStore{db: db}, nil
}

// Close releases the database connection.
func (s *GraphStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const entityColumns = `id, canonical_name, entity_type, aliases, embedding,
	mention_count, confidence, source_breakdown, source_tag, first_seen, last_seen`

// CreateEntity inserts a new entity. Returns storage.ErrDuplicate when the
// case-insensitive (canonical_name, entity_type) pair already exists.
func (s *GraphStore) CreateEntity(ctx context.Context, entity *types.Entity) error {
	if entity == nil || entity.ID == "" || entity.CanonicalName == "" {
		return fmt.Errorf("%w: entity ID and canonical name are required", storage.ErrInvalidInput)
	}

	aliasesJSON, breakdownJSON, err := marshalEntityJSON(entity)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entities (`+entityColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, canonical_name COLLATE NOCASE) DO NOTHING
	`, entity.ID, entity.CanonicalName, string(entity.Type), aliasesJSON,
		serializeVector(entity.Embedding), entity.MentionCount, entity.Confidence,
		breakdownJSON, string(entity.SourceTag), entity.FirstSeen.UTC(), entity.LastSeen.UTC())
	if err != nil {
		return fmt.Errorf("sqlite: failed to insert entity: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrDuplicate
	}
	return nil
}

// GetEntity retrieves an entity by ID.
func (s *GraphStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	return scanEntity(row)
}

// FindByCanonicalName looks up an entity by case-insensitive canonical name
// within a type.
func (s *GraphStore) FindByCanonicalName(ctx context.Context, name string, t types.EntityType) (*types.Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entityColumns+` FROM entities
		WHERE entity_type = ? AND canonical_name = ? COLLATE NOCASE
	`, string(t), name)
	return scanEntity(row)
}

// FindByAlias looks up an entity carrying name as an alias, within a type.
// Aliases are stored as a JSON array; json_each unpacks them server-side.
func (s *GraphStore) FindByAlias(ctx context.Context, name string, t types.EntityType) (*types.Entity, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+entityColumns+` FROM entities
		WHERE entity_type = ? AND id IN (
			SELECT e.id FROM entities e, json_each(e.aliases)
			WHERE e.entity_type = ? AND lower(json_each.value) = lower(?)
		)
		LIMIT 1
	`, string(t), string(t), name)
	return scanEntity(row)
}

// NearestEntity scans entities of the given type and returns the one with
// the highest cosine similarity to the query vector.
func (s *GraphStore) NearestEntity(ctx context.Context, embedding []float32, t types.EntityType) (*types.Entity, float64, error) {
	if len(embedding) == 0 {
		return nil, 0, fmt.Errorf("%w: query embedding is empty", storage.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entityColumns+` FROM entities
		WHERE entity_type = ? AND embedding IS NOT NULL
	`, string(t))
	if err != nil {
		return nil, 0, fmt.Errorf("sqlite: failed to query entities for similarity: %w", err)
	}
	defer rows.Close()

	var best *types.Entity
	bestSim := -1.0

	for rows.Next() {
		entity, err := scanEntityRows(rows)
		if err != nil {
			return nil, 0, err
		}
		sim := cosineSimilarity(embedding, entity.Embedding)
		if sim > bestSim {
			best = entity
			bestSim = sim
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlite: similarity scan failed: %w", err)
	}

	if best == nil {
		return nil, 0, storage.ErrNotFound
	}
	return best, bestSim, nil
}

// RecordHit applies the side effects of a resolver match in one
// transaction.
func (s *GraphStore) RecordHit(ctx context.Context, id string, bucket string, ts time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	entity, err := scanEntity(row)
	if err != nil {
		return err
	}

	entity.MentionCount++
	if entity.Breakdown == nil {
		entity.Breakdown = types.SourceBreakdown{}
	}
	entity.Breakdown[bucket]++
	entity.SourceTag = entity.Breakdown.Tag()
	entity.ObserveAt(ts)

	breakdownJSON, err := json.Marshal(entity.Breakdown)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal source breakdown: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE entities
		SET mention_count = ?, source_breakdown = ?, source_tag = ?, first_seen = ?, last_seen = ?
		WHERE id = ?
	`, entity.MentionCount, string(breakdownJSON), string(entity.SourceTag),
		entity.FirstSeen.UTC(), entity.LastSeen.UTC(), id); err != nil {
		return fmt.Errorf("sqlite: failed to record hit: %w", err)
	}

	return tx.Commit()
}

// AddAlias appends an alias unless the entity already carries it
// case-insensitively.
func (s *GraphStore) AddAlias(ctx context.Context, id string, alias string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	entity, err := scanEntity(row)
	if err != nil {
		return err
	}

	if !entity.AddAlias(alias) {
		return nil
	}

	aliasesJSON, err := json.Marshal(entity.Aliases)
	if err != nil {
		return fmt.Errorf("sqlite: failed to marshal aliases: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE entities SET aliases = ? WHERE id = ?`,
		string(aliasesJSON), id); err != nil {
		return fmt.Errorf("sqlite: failed to add alias: %w", err)
	}

	return tx.Commit()
}

// SetEmbedding stores or replaces the embedding vector for an entity.
func (s *GraphStore) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	res, err := s.db.ExecContext(ctx, `UPDATE entities SET embedding = ? WHERE id = ?`,
		serializeVector(embedding), id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to set embedding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListEntities retrieves entities sorted by mention_count descending.
func (s *GraphStore) ListEntities(ctx context.Context, opts storage.ListOptions) ([]*types.Entity, error) {
	opts.Normalize()

	query := `SELECT ` + entityColumns + ` FROM entities WHERE 1=1`
	var args []interface{}

	if opts.Type != "" {
		query += ` AND entity_type = ?`
		args = append(args, opts.Type)
	}
	if opts.MinMentions > 0 {
		query += ` AND mention_count >= ?`
		args = append(args, opts.MinMentions)
	}
	if !opts.SeenAfter.IsZero() {
		query += ` AND last_seen > ?`
		args = append(args, opts.SeenAfter.UTC())
	}
	query += ` ORDER BY mention_count DESC, canonical_name ASC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset())

	return s.queryEntities(ctx, query, args...)
}

// EntitiesWithEmbeddings returns every entity of type t that has a stored
// embedding; t == "" means all types.
func (s *GraphStore) EntitiesWithEmbeddings(ctx context.Context, t types.EntityType) ([]*types.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE embedding IS NOT NULL`
	var args []interface{}
	if t != "" {
		query += ` AND entity_type = ?`
		args = append(args, string(t))
	}
	return s.queryEntities(ctx, query, args...)
}

// MergeEntities absorbs the source entity into the target in one
// transaction. Mentions and relations that would collide with existing
// target records after the re-point are collapsed into them; relations that
// would become self-loops are dropped.
func (s *GraphStore) MergeEntities(ctx context.Context, sourceID, targetID string) (*types.Entity, error) {
	if sourceID == targetID {
		return nil, fmt.Errorf("%w: cannot merge an entity into itself", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	source, err := scanEntity(tx.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, sourceID))
	if err != nil {
		return nil, err
	}
	target, err := scanEntity(tx.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, targetID))
	if err != nil {
		return nil, err
	}

	mergeEntityRecords(source, target)

	// Mentions: drop source mentions for units the target already covers,
	// then re-point the rest.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM entity_mentions
		WHERE entity_id = ? AND unit_id IN (SELECT unit_id FROM entity_mentions WHERE entity_id = ?)
	`, sourceID, targetID); err != nil {
		return nil, fmt.Errorf("sqlite: failed to collapse duplicate mentions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE entity_mentions SET entity_id = ? WHERE entity_id = ?`,
		targetID, sourceID); err != nil {
		return nil, fmt.Errorf("sqlite: failed to re-point mentions: %w", err)
	}

	// Relations that would become self-loops after the re-point.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM relations
		WHERE (source_entity_id = ? AND target_entity_id = ?)
		   OR (source_entity_id = ? AND target_entity_id = ?)
	`, sourceID, targetID, targetID, sourceID); err != nil {
		return nil, fmt.Errorf("sqlite: failed to drop self-loop relations: %w", err)
	}

	for _, side := range []string{"source_entity_id", "target_entity_id"} {
		// Fold occurrence counts into colliding target-side records.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
			UPDATE relations AS t
			SET occurrence_count = t.occurrence_count + src.occurrence_count,
			    last_seen = max(t.last_seen, src.last_seen)
			FROM relations AS src
			WHERE src.%[1]s = ?
			  AND t.%[1]s = ?
			  AND t.%[2]s = src.%[2]s
			  AND t.relation_type = src.relation_type
			  AND t.unit_id = src.unit_id
		`, side, otherSide(side)), sourceID, targetID); err != nil {
			return nil, fmt.Errorf("sqlite: failed to fold duplicate relations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
			DELETE FROM relations
			WHERE %[1]s = ? AND EXISTS (
				SELECT 1 FROM relations t
				WHERE t.%[1]s = ?
				  AND t.%[2]s = relations.%[2]s
				  AND t.relation_type = relations.relation_type
				  AND t.unit_id = relations.unit_id
			)
		`, side, otherSide(side)), sourceID, targetID); err != nil {
			return nil, fmt.Errorf("sqlite: failed to delete folded relations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE relations SET %s = ? WHERE %s = ?`, side, side),
			targetID, sourceID); err != nil {
			return nil, fmt.Errorf("sqlite: failed to re-point relations: %w", err)
		}
	}

	aliasesJSON, breakdownJSON, err := marshalEntityJSON(target)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE entities
		SET aliases = ?, mention_count = ?, confidence = ?, source_breakdown = ?,
		    source_tag = ?, first_seen = ?, last_seen = ?
		WHERE id = ?
	`, aliasesJSON, target.MentionCount, target.Confidence, breakdownJSON,
		string(target.SourceTag), target.FirstSeen.UTC(), target.LastSeen.UTC(), targetID); err != nil {
		return nil, fmt.Errorf("sqlite: failed to update merge target: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, sourceID); err != nil {
		return nil, fmt.Errorf("sqlite: failed to delete merge source: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: failed to commit merge: %w", err)
	}
	return target, nil
}

// InsertMention inserts a mention record; conflicts on (entity_id, unit_id)
// are swallowed and reported as created=false.
func (s *GraphStore) InsertMention(ctx context.Context, mention *types.EntityMention) (bool, error) {
	if mention == nil || mention.EntityID == "" || mention.UnitID == "" {
		return false, fmt.Errorf("%w: mention entity ID and unit ID are required", storage.ErrInvalidInput)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entity_mentions (id, entity_id, unit_id, context_snippet, timestamp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_id, unit_id) DO NOTHING
	`, mention.ID, mention.EntityID, mention.UnitID,
		types.BoundSnippet(mention.ContextSnippet), mention.Timestamp.UTC())
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to insert mention: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	return n > 0, nil
}

// HasMentionForUnit reports whether any mention exists for the unit.
func (s *GraphStore) HasMentionForUnit(ctx context.Context, unitID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM entity_mentions WHERE unit_id = ? LIMIT 1`, unitID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to probe unit mentions: %w", err)
	}
	return true, nil
}

// UpsertRelation inserts a relation or increments the occurrence count of
// the existing (source, target, type, unit) record.
func (s *GraphStore) UpsertRelation(ctx context.Context, rel *types.Relation) (bool, error) {
	if rel == nil || rel.SourceEntityID == "" || rel.TargetEntityID == "" {
		return false, fmt.Errorf("%w: relation endpoints are required", storage.ErrInvalidInput)
	}
	if rel.SourceEntityID == rel.TargetEntityID {
		return false, fmt.Errorf("%w: relation source and target must differ", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE relations
		SET occurrence_count = occurrence_count + 1, last_seen = ?
		WHERE source_entity_id = ? AND target_entity_id = ? AND relation_type = ? AND unit_id = ?
	`, rel.LastSeen.UTC(), rel.SourceEntityID, rel.TargetEntityID, string(rel.Type), rel.UnitID)
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to update relation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}

	created := false
	if n == 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO relations (id, source_entity_id, target_entity_id, relation_type,
				confidence, occurrence_count, evidence_snippet, unit_id, first_seen, last_seen)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
		`, rel.ID, rel.SourceEntityID, rel.TargetEntityID, string(rel.Type),
			rel.Confidence, types.BoundSnippet(rel.EvidenceSnippet), rel.UnitID,
			rel.FirstSeen.UTC(), rel.LastSeen.UTC()); err != nil {
			return false, fmt.Errorf("sqlite: failed to insert relation: %w", err)
		}
		created = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: failed to commit relation upsert: %w", err)
	}
	return created, nil
}

// RelationsForEntity returns relations where the entity is source or target.
func (s *GraphStore) RelationsForEntity(ctx context.Context, entityID string) ([]*types.Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_entity_id, target_entity_id, relation_type, confidence,
		       occurrence_count, evidence_snippet, unit_id, first_seen, last_seen
		FROM relations
		WHERE source_entity_id = ? OR target_entity_id = ?
		ORDER BY occurrence_count DESC
	`, entityID, entityID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query relations: %w", err)
	}
	defer rows.Close()

	var relations []*types.Relation
	for rows.Next() {
		rel := &types.Relation{}
		var relType string
		var evidence sql.NullString
		if err := rows.Scan(&rel.ID, &rel.SourceEntityID, &rel.TargetEntityID, &relType,
			&rel.Confidence, &rel.OccurrenceCount, &evidence, &rel.UnitID,
			&rel.FirstSeen, &rel.LastSeen); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan relation: %w", err)
		}
		rel.Type = types.RelationType(relType)
		rel.EvidenceSnippet = evidence.String
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

// Stats returns record counts for the stored graph.
func (s *GraphStore) Stats(ctx context.Context) (*storage.GraphStats, error) {
	stats := &storage.GraphStats{}
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM entities),
			(SELECT COUNT(*) FROM entity_mentions),
			(SELECT COUNT(*) FROM relations),
			(SELECT COUNT(DISTINCT unit_id) FROM entity_mentions)
	`)
	if err := row.Scan(&stats.Entities, &stats.Mentions, &stats.Relations, &stats.UnitsIndexed); err != nil {
		return nil, fmt.Errorf("sqlite: failed to read stats: %w", err)
	}
	return stats, nil
}

// queryEntities runs an entity query and scans all rows.
func (s *GraphStore) queryEntities(ctx context.Context, query string, args ...interface{}) ([]*types.Entity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to query entities: %w", err)
	}
	defer rows.Close()

	var entities []*types.Entity
	for rows.Next() {
		entity, err := scanEntityRows(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, rows.Err()
}

// mergeEntityRecords folds the source entity's fields into the target.
// Shared by both backends' merge implementations.
func mergeEntityRecords(source, target *types.Entity) {
	target.AddAlias(source.CanonicalName)
	for _, a := range source.Aliases {
		target.AddAlias(a)
	}
	target.MentionCount += source.MentionCount
	if target.Breakdown == nil {
		target.Breakdown = types.SourceBreakdown{}
	}
	for bucket, n := range source.Breakdown {
		target.Breakdown[bucket] += n
	}
	target.SourceTag = target.Breakdown.Tag()
	if !source.FirstSeen.IsZero() {
		target.ObserveAt(source.FirstSeen)
	}
	if !source.LastSeen.IsZero() {
		target.ObserveAt(source.LastSeen)
	}
	if source.Confidence > target.Confidence {
		target.Confidence = source.Confidence
	}
}

func otherSide(side string) string {
	if side == "source_entity_id" {
		return "target_entity_id"
	}
	return "source_entity_id"
}

// marshalEntityJSON marshals the aliases and source breakdown columns.
func marshalEntityJSON(entity *types.Entity) (aliases string, breakdown string, err error) {
	a := entity.Aliases
	if a == nil {
		a = []string{}
	}
	aliasesBytes, err := json.Marshal(a)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: failed to marshal aliases: %w", err)
	}

	b := entity.Breakdown
	if b == nil {
		b = types.SourceBreakdown{}
	}
	breakdownBytes, err := json.Marshal(b)
	if err != nil {
		return "", "", fmt.Errorf("sqlite: failed to marshal source breakdown: %w", err)
	}

	return string(aliasesBytes), string(breakdownBytes), nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntity(row *sql.Row) (*types.Entity, error) {
	entity, err := scanEntityFrom(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	return entity, err
}

func scanEntityRows(rows *sql.Rows) (*types.Entity, error) {
	return scanEntityFrom(rows)
}

func scanEntityFrom(row rowScanner) (*types.Entity, error) {
	entity := &types.Entity{}
	var entityType, sourceTag string
	var aliasesJSON, breakdownJSON string
	var embeddingBlob []byte

	err := row.Scan(&entity.ID, &entity.CanonicalName, &entityType, &aliasesJSON,
		&embeddingBlob, &entity.MentionCount, &entity.Confidence, &breakdownJSON,
		&sourceTag, &entity.FirstSeen, &entity.LastSeen)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("sqlite: failed to scan entity: %w", err)
	}

	entity.Type = types.EntityType(entityType)
	entity.SourceTag = types.SourceTag(sourceTag)

	if err := json.Unmarshal([]byte(aliasesJSON), &entity.Aliases); err != nil {
		return nil, fmt.Errorf("sqlite: corrupt aliases for %s: %w", entity.ID, err)
	}
	if err := json.Unmarshal([]byte(breakdownJSON), &entity.Breakdown); err != nil {
		return nil, fmt.Errorf("sqlite: corrupt source breakdown for %s: %w", entity.ID, err)
	}
	if len(embeddingBlob) > 0 {
		vec, err := deserializeVector(embeddingBlob)
		if err != nil {
			return nil, fmt.Errorf("sqlite: corrupt embedding for %s: %w", entity.ID, err)
		}
		entity.Embedding = vec
	}

	return entity, nil
}

// Compile-time assertion.
var _ storage.GraphStore = (*GraphStore)(nil)
