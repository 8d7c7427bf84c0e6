package sqlite

// Schema is the embedded SQLite schema. All statements are idempotent.
// The unique indexes, not application locks, enforce the graph's
// correctness invariants under concurrent workers: canonical names are
// case-insensitively unique per type, mentions are unique per
// (entity, unit), relations are unique per (source, target, type, unit).
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
	id               TEXT PRIMARY KEY,
	canonical_name   TEXT NOT NULL,
	entity_type      TEXT NOT NULL,
	aliases          TEXT NOT NULL DEFAULT '[]',
	embedding        BLOB,
	mention_count    INTEGER NOT NULL DEFAULT 1,
	confidence       REAL NOT NULL DEFAULT 0.5,
	source_breakdown TEXT NOT NULL DEFAULT '{}',
	source_tag       TEXT NOT NULL DEFAULT 'primary-only',
	first_seen       TIMESTAMP NOT NULL,
	last_seen        TIMESTAMP NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_canonical
	ON entities(entity_type, canonical_name COLLATE NOCASE);

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
