package llm

import "strings"

// DefaultCharBudget bounds text sent to a completion model. Roughly 6k
// tokens at the usual 4 chars/token estimate, leaving prompt headroom.
const DefaultCharBudget = 24000

// TruncationMarker is appended whenever input is cut so the model (and any
// human reading stored prompts) can see that the text is incomplete.
const TruncationMarker = "\n[... truncated ...]"

// EstimateTokens approximates the token count of text. Uses the common
// 4-characters-per-token heuristic; good enough for budget checks.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Truncate deterministically bounds text to budget characters, cutting on a
// rune boundary and falling back to the last word boundary within the final
// 200 runes when one exists. The same input always yields the same output,
// which keeps checkpoint resume and re-extraction byte-stable.
func Truncate(text string, budget int) string {
	if budget <= 0 {
		budget = DefaultCharBudget
	}

	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}

	cut := budget
	for i := budget; i > budget-200 && i > 0; i-- {
		if runes[i-1] == ' ' || runes[i-1] == '\n' {
			cut = i - 1
			break
		}
	}

	return strings.TrimRight(string(runes[:cut]), " \n") + TruncationMarker
}
