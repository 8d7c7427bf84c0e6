package llm

import (
	"context"
	"fmt"

	"github.com/kgforge/kgforge/pkg/types"
)

// ExtractionAdapter drives a TextGenerator through the two-call extraction
// sequence (entities first, then relations over the extracted names) and
// parses the responses into typed candidates.
type ExtractionAdapter struct {
	generator  TextGenerator
	charBudget int
}

// NewExtractionAdapter creates an adapter over the given generator.
// charBudget bounds prompt text; non-positive means DefaultCharBudget.
func NewExtractionAdapter(generator TextGenerator, charBudget int) *ExtractionAdapter {
	if charBudget <= 0 {
		charBudget = DefaultCharBudget
	}
	return &ExtractionAdapter{
		generator:  generator,
		charBudget: charBudget,
	}
}

// Extract implements the Extractor contract. Service failures from the
// generator pass through with their transient/permanent classification
// intact; parse failures are returned unclassified (the unit fails without
// retry - re-sending an unparseable response's prompt rarely changes it).
func (a *ExtractionAdapter) Extract(ctx context.Context, text string, hints []string, tier types.ExtractionTier, relations bool) ([]types.CandidateEntity, []types.CandidateRelation, error) {
	bounded := Truncate(text, a.charBudget)

	raw, err := a.generator.Complete(ctx, EntityExtractionPrompt(bounded, hints, tier))
	if err != nil {
		return nil, nil, fmt.Errorf("llm: entity extraction call: %w", err)
	}

	entities, err := ParseEntityResponse(raw)
	if err != nil {
		return nil, nil, err
	}

	if !relations || len(entities) < 2 {
		return entities, nil, nil
	}

	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}

	raw, err = a.generator.Complete(ctx, RelationExtractionPrompt(bounded, names))
	if err != nil {
		// Entities already extracted are still usable; surface the error so
		// the caller can decide, but hand the entities back with it.
		return entities, nil, fmt.Errorf("llm: relation extraction call: %w", err)
	}

	rels, err := ParseRelationResponse(raw)
	if err != nil {
		return entities, nil, err
	}

	return entities, rels, nil
}

// Compile-time assertion.
var _ Extractor = (*ExtractionAdapter)(nil)
