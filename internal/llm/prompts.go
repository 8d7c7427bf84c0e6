package llm

import (
	"fmt"
	"strings"

	"github.com/kgforge/kgforge/pkg/types"
)

// entityTypeDescriptions maps the closed entity types to brief descriptions
// used in the extraction prompt.
var entityTypeDescriptions = []string{
	"tool: Software, library, framework, service, or technology",
	"pattern: Reusable technique, practice, or approach",
	"problem: Named difficulty, failure mode, or pain point",
	"concept: Idea, principle, or theory",
	"person: Individual human",
	"project: Specific initiative, product, or named work",
	"workflow: Multi-step process or procedure",
	"other: Clearly an entity but none of the above",
}

// EntityExtractionPrompt generates a strict JSON-only prompt for entity
// extraction. hints lists entity names already known to the graph; the
// model is instructed to reuse those exact surface forms so the resolver's
// exact-match stage fires instead of the embedding stage. tier selects
// extraction strictness: user-generated content gets a higher confidence
// bar to keep chatty text from flooding the graph.
func EntityExtractionPrompt(content string, hints []string, tier types.ExtractionTier) string {
	var b strings.Builder

	b.WriteString(`TASK: Extract entities from text.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks. NO ARRAY - MUST BE OBJECT.

ENTITY TYPES (ONLY these 8):
`)
	for _, d := range entityTypeDescriptions {
		fmt.Fprintf(&b, "- %s\n", d)
	}

	b.WriteString(`
REQUIRED JSON STRUCTURE:
Your response MUST start with { and end with }
Your response MUST have an "entities" key with an array value
Each entity MUST have: name, type, aliases, confidence

Example structure (EXACT FORMAT REQUIRED):
{
  "entities": [
    {"name":"PostgreSQL","type":"tool","aliases":["Postgres"],"confidence":0.95},
    {"name":"connection pooling","type":"pattern","aliases":[],"confidence":0.8}
  ]
}

VALIDATION (STRICT):
1. Start with { - End with }
2. "entities" key must be present with an array value
3. Each entity is an object with: name, type, aliases, confidence
4. aliases is an array of strings (may be empty)
5. No null values, no trailing commas, valid JSON syntax
`)

	if len(hints) > 0 {
		b.WriteString("\nKNOWN ENTITIES (reuse these exact names when the text refers to them):\n")
		for _, h := range hints {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	if tier == types.TierUserGenerated {
		b.WriteString("\nThis text is informal user-generated content. Only extract entities you are confident about (confidence >= 0.7). Skip vague or conversational phrases.\n")
	}

	fmt.Fprintf(&b, "\nTEXT:\n%s\n\nJSON:", content)
	return b.String()
}

// RelationExtractionPrompt generates a strict JSON-only prompt for relation
// extraction. entityNames must be the names resolved from the same unit;
// the model is told to only relate those.
func RelationExtractionPrompt(content string, entityNames []string) string {
	var b strings.Builder

	b.WriteString(`TASK: Extract relationships between the listed entities, based only on the text.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

REQUIRED JSON STRUCTURE:
{
  "relations": [
    {"source":"PgBouncer","target":"connection exhaustion","predicate":"solves","evidence":"we put PgBouncer in front and the exhaustion stopped","confidence":0.9}
  ]
}

RULES:
1. source and target MUST be names from the entity list below, spelled exactly
2. source and target MUST be different entities
3. predicate is a short verb phrase (e.g. "solves", "requires", "part of", "alternative to")
4. evidence is a short quote or paraphrase from the text supporting the relation
5. Only extract relations the text actually states or strongly implies
6. No null values, no trailing commas, valid JSON syntax

ENTITIES:
`)
	for _, n := range entityNames {
		fmt.Fprintf(&b, "- %s\n", n)
	}

	fmt.Fprintf(&b, "\nTEXT:\n%s\n\nJSON:", content)
	return b.String()
}
