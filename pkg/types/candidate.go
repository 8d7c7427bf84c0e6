package types

// ExtractionTier selects the extraction quality tier for a unit. The tier
// is passed through to the Extraction Adapter, which may choose cheaper
// prompts or models for user-generated content.
type ExtractionTier string

const (
	TierHighFidelity  ExtractionTier = "high-fidelity"
	TierUserGenerated ExtractionTier = "user-generated"
)

// CandidateEntity is an unresolved entity proposed by the Extraction
// Adapter. Candidates carry the adapter's raw type string already parsed
// onto the closed enum; resolution onto a stable entity record happens in
// the resolver.
type CandidateEntity struct {
	Name       string     `json:"name"`
	Type       EntityType `json:"type"`
	Aliases    []string   `json:"aliases,omitempty"`
	Confidence float64    `json:"confidence"`
}

// CandidateRelation is an unresolved relation triple proposed by the
// Extraction Adapter. Source and target are surface names; they must map to
// entities resolved in the same unit or the candidate is rejected.
type CandidateRelation struct {
	SourceName string  `json:"source"`
	TargetName string  `json:"target"`
	Predicate  string  `json:"predicate"`
	Evidence   string  `json:"evidence,omitempty"`
	Confidence float64 `json:"confidence"`
}
