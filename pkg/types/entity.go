package types

import (
	"strings"
	"time"
)

// EntityType classifies a canonical entity. The set is closed: extraction
// output with any other type is rejected at the resolver boundary.
type EntityType string

const (
	EntityTool     EntityType = "tool"
	EntityPattern  EntityType = "pattern"
	EntityProblem  EntityType = "problem"
	EntityConcept  EntityType = "concept"
	EntityPerson   EntityType = "person"
	EntityProject  EntityType = "project"
	EntityWorkflow EntityType = "workflow"
	EntityOther    EntityType = "other"
)

// ValidEntityTypes is the closed set of accepted entity types.
var ValidEntityTypes = map[EntityType]bool{
	EntityTool:     true,
	EntityPattern:  true,
	EntityProblem:  true,
	EntityConcept:  true,
	EntityPerson:   true,
	EntityProject:  true,
	EntityWorkflow: true,
	EntityOther:    true,
}

// ParseEntityType maps a raw extraction type string onto the closed enum.
// Unknown types fall back to EntityOther rather than failing the candidate;
// the type string itself is advisory, the name is what matters.
func ParseEntityType(raw string) EntityType {
	t := EntityType(strings.ToLower(strings.TrimSpace(raw)))
	if ValidEntityTypes[t] {
		return t
	}
	return EntityOther
}

// SourceTag describes which corpus buckets an entity has been seen in.
// It is derived from SourceBreakdown and recomputed whenever the breakdown
// changes.
type SourceTag string

const (
	SourcePrimaryOnly   SourceTag = "primary-only"
	SourceSecondaryOnly SourceTag = "secondary-only"
	SourceCross         SourceTag = "cross-source"
)

// SourceBreakdown counts mentions per originating corpus bucket
// (e.g. {"primary": 12, "secondary": 3}).
type SourceBreakdown map[string]int

// Tag derives the source tag for the breakdown: cross-source when more than
// one bucket is non-zero, otherwise named after the single bucket.
func (b SourceBreakdown) Tag() SourceTag {
	nonZero := 0
	single := ""
	for bucket, n := range b {
		if n > 0 {
			nonZero++
			single = bucket
		}
	}
	if nonZero > 1 {
		return SourceCross
	}
	if single == "secondary" {
		return SourceSecondaryOnly
	}
	return SourcePrimaryOnly
}

// Entity is the single authoritative record for a real-world concept,
// identified by canonical_name + entity_type. canonical_name is
// case-insensitively unique within its type; aliases are case-insensitively
// unique within the entity. Entities are never hard-deleted except by an
// explicit merge that absorbs them into another entity.
type Entity struct {
	ID            string          `json:"id"`
	CanonicalName string          `json:"canonical_name"`
	Type          EntityType      `json:"entity_type"`
	Aliases       []string        `json:"aliases,omitempty"`
	Embedding     []float32       `json:"embedding,omitempty"`
	MentionCount  int             `json:"mention_count"`
	Confidence    float64         `json:"confidence"`
	Breakdown     SourceBreakdown `json:"source_breakdown,omitempty"`
	SourceTag     SourceTag       `json:"source_tag"`
	FirstSeen     time.Time       `json:"first_seen"`
	LastSeen      time.Time       `json:"last_seen"`
}

// HasAlias reports whether name is already an alias of the entity under
// case-insensitive comparison.
func (e *Entity) HasAlias(name string) bool {
	for _, a := range e.Aliases {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// AddAlias appends name to the alias set unless it duplicates the canonical
// name or an existing alias case-insensitively. Returns true when the alias
// was added.
func (e *Entity) AddAlias(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, e.CanonicalName) || e.HasAlias(name) {
		return false
	}
	e.Aliases = append(e.Aliases, name)
	return true
}

// ObserveAt widens the first_seen/last_seen window to include ts.
func (e *Entity) ObserveAt(ts time.Time) {
	if e.FirstSeen.IsZero() || ts.Before(e.FirstSeen) {
		e.FirstSeen = ts
	}
	if ts.After(e.LastSeen) {
		e.LastSeen = ts
	}
}
