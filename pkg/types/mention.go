package types

import "time"

// maxSnippetLen bounds the stored context excerpt for a mention.
const maxSnippetLen = 500

// EntityMention records one observed occurrence of an entity within a work
// unit. Mentions are unique on (entity_id, unit_id): re-processing the same
// unit must not create a duplicate, and concurrent duplicate inserts are
// treated as success by the storage layer.
type EntityMention struct {
	ID             string    `json:"id"`
	EntityID       string    `json:"entity_id"`
	UnitID         string    `json:"unit_id"`
	ContextSnippet string    `json:"context_snippet,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// BoundSnippet truncates a context excerpt to the stored bound, cutting on a
// rune boundary.
func BoundSnippet(text string) string {
	runes := []rune(text)
	if len(runes) <= maxSnippetLen {
		return text
	}
	return string(runes[:maxSnippetLen])
}
