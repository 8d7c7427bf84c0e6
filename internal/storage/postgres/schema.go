// Package postgres provides a PostgreSQL implementation of the graph store.
package postgres

// Schema contains the SQL statements to create the graph schema for
// PostgreSQL. All statements are idempotent. Uniqueness is enforced by the
// database, not by application locks: canonical names are case-insensitively
// unique per type, mentions per (entity, unit), relations per
// (source, target, type, unit).
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
    id               TEXT PRIMARY KEY,
    canonical_name   TEXT NOT NULL,
    entity_type      TEXT NOT NULL,
    aliases          JSONB NOT NULL DEFAULT '[]',
    embedding        BYTEA,
    mention_count    INTEGER NOT NULL DEFAULT 1,
    confidence       REAL NOT NULL DEFAULT 0.5,
    source_breakdown JSONB NOT NULL DEFAULT '{}',
    source_tag       TEXT NOT NULL DEFAULT 'primary-only',
    first_seen       TIMESTAMP NOT NULL,
    last_seen        TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_canonical
    ON entities(entity_type, lower(canonical_name));

CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(entity_type);

CREATE TABLE IF NOT EXISTS entity_mentions (
    id              TEXT PRIMARY KEY,
    entity_id       TEXT NOT NULL REFERENCES entities(id),
    unit_id         TEXT NOT NULL,
    context_snippet TEXT,
    timestamp       TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_mentions_entity_unit
    ON entity_mentions(entity_id, unit_id);

CREATE INDEX IF NOT EXISTS idx_mentions_unit ON entity_mentions(unit_id);

CREATE TABLE IF NOT EXISTS relations (
    id               TEXT PRIMARY KEY,
    source_entity_id TEXT NOT NULL REFERENCES entities(id),
    target_entity_id TEXT NOT NULL REFERENCES entities(id),
    relation_type    TEXT NOT NULL,
    confidence       REAL NOT NULL DEFAULT 0.5,
    occurrence_count INTEGER NOT NULL DEFAULT 1,
    evidence_snippet TEXT,
    unit_id          TEXT NOT NULL,
    first_seen       TIMESTAMP NOT NULL,
    last_seen        TIMESTAMP NOT NULL,
    CHECK (source_entity_id <> target_entity_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_relations_edge_unit
    ON relations(source_entity_id, target_entity_id, relation_type, unit_id);

CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(source_entity_id);
CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(target_entity_id);
`

// MigrationPgvector adds the embedding_vec column used for cosine-distance
// queries. Applied only when the vector extension is available; safe to run
// multiple times.
const MigrationPgvector = `
DO $$
BEGIN
    IF NOT EXISTS (
        SELECT 1 FROM information_schema.columns
        WHERE table_name = 'entities' AND column_name = 'embedding_vec'
    ) THEN
        ALTER TABLE entities ADD COLUMN embedding_vec vector;
    END IF;
END
$$;
`
