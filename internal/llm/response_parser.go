package llm

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/kgforge/kgforge/pkg/types"
)

// entityResponse is the wire shape of one extracted entity.
type entityResponse struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Aliases    []string `json:"aliases"`
	Confidence float64  `json:"confidence"`
}

// entityExtractionResponse is the complete entity extraction response.
type entityExtractionResponse struct {
	Entities []entityResponse `json:"entities"`
}

// relationResponse is the wire shape of one extracted relation.
type relationResponse struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Predicate  string  `json:"predicate"`
	Evidence   string  `json:"evidence"`
	Confidence float64 `json:"confidence"`
}

// relationExtractionResponse is the complete relation extraction response.
type relationExtractionResponse struct {
	Relations []relationResponse `json:"relations"`
}

// extractJSON extracts the first balanced JSON object from a string that may
// contain extra text. LLMs add explanations and markdown fences around JSON
// despite instructions; this strips them.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text // no JSON found, return as-is and let the parser fail
	}

	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text[start:]
}

// ParseEntityResponse parses an LLM entity-extraction response into
// candidate entities. Malformed individual entries are dropped with a log
// line (a ValidationError is unit-local, never fatal); a response that is
// not JSON at all returns an error.
func ParseEntityResponse(raw string) ([]types.CandidateEntity, error) {
	jsonStr := extractJSON(raw)

	var resp entityExtractionResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return nil, fmt.Errorf("llm: failed to parse entity response: %w", err)
	}

	candidates := make([]types.CandidateEntity, 0, len(resp.Entities))
	for _, e := range resp.Entities {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			log.Printf("llm: dropping entity candidate with empty name")
			continue
		}
		if len(name) > 200 {
			log.Printf("llm: dropping oversized entity candidate %q...", name[:40])
			continue
		}
		conf := clampConfidence(e.Confidence)

		candidates = append(candidates, types.CandidateEntity{
			Name:       name,
			Type:       types.ParseEntityType(e.Type),
			Aliases:    cleanAliases(e.Aliases, name),
			Confidence: conf,
		})
	}

	return candidates, nil
}

// ParseRelationResponse parses an LLM relation-extraction response into
// candidate relations. Entries missing an endpoint or predicate are dropped
// locally.
func ParseRelationResponse(raw string) ([]types.CandidateRelation, error) {
	jsonStr := extractJSON(raw)

	var resp relationExtractionResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return nil, fmt.Errorf("llm: failed to parse relation response: %w", err)
	}

	candidates := make([]types.CandidateRelation, 0, len(resp.Relations))
	for _, r := range resp.Relations {
		source := strings.TrimSpace(r.Source)
		target := strings.TrimSpace(r.Target)
		predicate := strings.TrimSpace(r.Predicate)
		if source == "" || target == "" || predicate == "" {
			log.Printf("llm: dropping relation candidate with empty field (%q -> %q, %q)", source, target, predicate)
			continue
		}

		candidates = append(candidates, types.CandidateRelation{
			SourceName: source,
			TargetName: target,
			Predicate:  predicate,
			Evidence:   strings.TrimSpace(r.Evidence),
			Confidence: clampConfidence(r.Confidence),
		})
	}

	return candidates, nil
}

// cleanAliases trims aliases, drops empties and duplicates of the entity
// name itself.
func cleanAliases(aliases []string, name string) []string {
	var out []string
	for _, a := range aliases {
		a = strings.TrimSpace(a)
		if a == "" || strings.EqualFold(a, name) {
			continue
		}
		dup := false
		for _, seen := range out {
			if strings.EqualFold(seen, a) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, a)
		}
	}
	return out
}

// clampConfidence bounds a confidence value to [0, 1], defaulting blank
// zero values to 0.5.
func clampConfidence(c float64) float64 {
	if c == 0 {
		return 0.5
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
