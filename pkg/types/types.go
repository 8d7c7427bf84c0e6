// Package types defines the knowledge-graph data model shared across the
// kgforge engine: canonical entities, provenance mentions, typed relations,
// extraction candidates, and the ingest work-unit state machine.
package types

import (
	"fmt"

	"github.com/google/uuid"
)

// NewEntityID returns a fresh entity identifier (format: ent:uuid).
func NewEntityID() string {
	return fmt.Sprintf("ent:%s", uuid.NewString())
}

// NewMentionID returns a fresh mention identifier (format: men:uuid).
func NewMentionID() string {
	return fmt.Sprintf("men:%s", uuid.NewString())
}

// NewRelationID returns a fresh relation identifier (format: rel:uuid).
func NewRelationID() string {
	return fmt.Sprintf("rel:%s", uuid.NewString())
}
