package types

import "time"

// RelationType is the closed vocabulary of canonical relation predicates.
// Raw predicates from extraction are normalized into this set via the
// resolver's synonym map; unmappable predicates are dropped.
type RelationType string

const (
	RelSolves        RelationType = "SOLVES"
	RelCauses        RelationType = "CAUSES"
	RelEnables       RelationType = "ENABLES"
	RelPartOf        RelationType = "PART_OF"
	RelUsedWith      RelationType = "USED_WITH"
	RelAlternativeTo RelationType = "ALTERNATIVE_TO"
	RelRequires      RelationType = "REQUIRES"
	RelImplements    RelationType = "IMPLEMENTS"
	RelMentionedBy   RelationType = "MENTIONED_BY"

	// Temporal relation types.
	RelFollowedBy   RelationType = "FOLLOWED_BY"
	RelReferencedBy RelationType = "REFERENCED_BY"
	RelObsoletes    RelationType = "OBSOLETES"
)

// ValidRelationTypes is the closed set of canonical relation types.
var ValidRelationTypes = map[RelationType]bool{
	RelSolves:        true,
	RelCauses:        true,
	RelEnables:       true,
	RelPartOf:        true,
	RelUsedWith:      true,
	RelAlternativeTo: true,
	RelRequires:      true,
	RelImplements:    true,
	RelMentionedBy:   true,
	RelFollowedBy:    true,
	RelReferencedBy:  true,
	RelObsoletes:     true,
}

// Relation is an observed typed edge between two resolved entities.
// Relations are unique on (source, target, type, unit_id); re-observation
// of the same edge in the same unit increments OccurrenceCount instead of
// inserting a second record. Source and target must differ.
type Relation struct {
	ID              string       `json:"id"`
	SourceEntityID  string       `json:"source_entity_id"`
	TargetEntityID  string       `json:"target_entity_id"`
	Type            RelationType `json:"relation_type"`
	Confidence      float64      `json:"confidence"`
	OccurrenceCount int          `json:"occurrence_count"`
	EvidenceSnippet string       `json:"evidence_snippet,omitempty"`
	UnitID          string       `json:"unit_id"`
	FirstSeen       time.Time    `json:"first_seen"`
	LastSeen        time.Time    `json:"last_seen"`
}
