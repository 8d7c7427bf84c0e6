// Package quality scores text units for extraction-worthiness before any
// external call is made. The gate is the pipeline's primary cost control:
// a unit that fails the gate never reaches the extraction adapter.
package quality

import (
	"regexp"
	"strings"
)

// Result is the outcome of scoring one text unit.
type Result struct {
	// Score is the weighted signal sum, capped at 1.0.
	Score float64

	// ShouldIndex is true when Score meets the configured threshold.
	ShouldIndex bool

	// Signals names the signals that contributed, for diagnostics.
	Signals []string
}

// Gate scores text units from independent, domain-agnostic signals.
// Construct with NewGate; the zero value uses a zero threshold.
type Gate struct {
	threshold float64
}

// DefaultThreshold is the score at or above which a unit is indexable.
// Tuned empirically; override per corpus via configuration.
const DefaultThreshold = 0.30

// Signal weights. Problem and solution vocabulary score more together than
// either does alone.
const (
	weightNamedEntities   = 0.25
	weightTechnicalTerms  = 0.20
	weightProblemSolution = 0.25
	weightProblemOnly     = 0.08
	weightSolutionOnly    = 0.08
	weightComparative     = 0.10
	weightNumericMetric   = 0.10
	weightFramework       = 0.10
)

var (
	// Capitalized multi-word sequences ("Visual Studio Code", "Apache Kafka").
	namedEntityRe = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9]+(?:\s+[A-Z][a-zA-Z0-9]+)+\b`)

	// Mixed-case identifiers, hyphenated compounds, dotted names.
	mixedCaseRe  = regexp.MustCompile(`\b[a-z]+[A-Z][a-zA-Z]*\b|\b[A-Z][a-z]+[A-Z][a-zA-Z]*\b`)
	hyphenatedRe = regexp.MustCompile(`\b[a-zA-Z]+(?:-[a-zA-Z]+)+\b`)
	dottedRe     = regexp.MustCompile(`\b[a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]+)+\b`)

	// Numbers with units or percentages ("40%", "3.2s", "500ms", "10x").
	// "%" needs no trailing boundary: it is itself a non-word character.
	numericRe = regexp.MustCompile(`\b\d+(?:\.\d+)?\s?(?:%|(?:ms|s|m|x|GB|MB|KB|qps|rps)\b)`)

	comparativeWords = []string{
		"better than", "worse than", "faster than", "slower than",
		"instead of", "rather than", "compared to", "versus", " vs ",
		"alternative to", "superior", "outperforms",
	}

	problemWords = []string{
		"error", "bug", "issue", "problem", "fails", "failure", "broken",
		"crash", "slow", "bottleneck", "struggle", "stuck", "pain",
	}

	solutionWords = []string{
		"fix", "fixed", "solve", "solved", "solution", "workaround",
		"resolved", "improve", "optimize", "speedup", "mitigate",
	}

	frameworkWords = []string{
		"framework", "library", "sdk", "toolkit", "plugin", "extension",
		"architecture", "protocol", "pipeline",
	}

	// Promotional/sponsor boilerplate. Two or more hits short-circuit the
	// score to zero regardless of other signals.
	promoPatterns = []string{
		"use code", "discount", "sponsor", "sponsored", "limited time",
		"sign up today", "subscribe", "affiliate", "promo", "% off",
		"check out the link", "link in the description",
	}

	// Capitalized words that are sentence furniture, not entities.
	entityStopwords = map[string]bool{
		"The": true, "This": true, "That": true, "These": true, "Those": true,
		"And": true, "But": true, "With": true, "From": true, "Then": true,
		"When": true, "What": true, "Where": true, "While": true, "After": true,
		"Before": true, "First": true, "Second": true, "Also": true, "However": true,
	}
)

// NewGate creates a quality gate with the given indexing threshold.
// A non-positive threshold falls back to DefaultThreshold.
func NewGate(threshold float64) *Gate {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Gate{threshold: threshold}
}

// Threshold returns the configured indexing threshold.
func (g *Gate) Threshold() float64 {
	return g.threshold
}

// Score evaluates one text unit. contentKind is advisory ("transcript",
// "article", ...); scoring itself is content-kind agnostic.
//
// The score is a weighted sum of independent signals, capped at 1.0. A unit
// that matches two or more promotional patterns scores zero outright.
func (g *Gate) Score(text string, contentKind string) Result {
	res := Result{}
	if strings.TrimSpace(text) == "" {
		return res
	}

	lower := strings.ToLower(text)

	if promoHits(lower) >= 2 {
		res.Signals = append(res.Signals, "promotional boilerplate")
		return res
	}

	namedEntities := countNamedEntities(text)
	if namedEntities > 0 {
		res.Score += weightNamedEntities * densityFactor(namedEntities, 4)
		res.Signals = append(res.Signals, "named entities")
	}

	if technical := countTechnicalTerms(text); technical > 0 {
		res.Score += weightTechnicalTerms * densityFactor(technical, 3)
		res.Signals = append(res.Signals, "technical terms")
	}

	hasProblem := containsAny(lower, problemWords)
	hasSolution := containsAny(lower, solutionWords)
	switch {
	case hasProblem && hasSolution:
		res.Score += weightProblemSolution
		res.Signals = append(res.Signals, "problem+solution vocabulary")
	case hasProblem:
		res.Score += weightProblemOnly
		res.Signals = append(res.Signals, "problem vocabulary")
	case hasSolution:
		res.Score += weightSolutionOnly
		res.Signals = append(res.Signals, "solution vocabulary")
	}

	if containsAny(lower, comparativeWords) {
		res.Score += weightComparative
		res.Signals = append(res.Signals, "comparative language")
	}

	if numericRe.MatchString(text) {
		res.Score += weightNumericMetric
		res.Signals = append(res.Signals, "numeric metrics")
	}

	// Framework mentions only count alongside at least two named entities;
	// otherwise generic words like "framework" or "approach" inflate junk.
	if containsAny(lower, frameworkWords) && namedEntities >= 2 {
		res.Score += weightFramework
		res.Signals = append(res.Signals, "framework mentions")
	}

	if res.Score > 1.0 {
		res.Score = 1.0
	}
	res.ShouldIndex = res.Score >= g.threshold
	return res
}

// promoHits counts how many promotional patterns appear in the text.
func promoHits(lower string) int {
	hits := 0
	for _, p := range promoPatterns {
		if strings.Contains(lower, p) {
			hits++
		}
	}
	return hits
}

// countNamedEntities counts capitalized multi-word sequences whose leading
// word is not a stopword.
func countNamedEntities(text string) int {
	count := 0
	for _, match := range namedEntityRe.FindAllString(text, -1) {
		first := strings.Fields(match)[0]
		if !entityStopwords[first] {
			count++
		}
	}
	return count
}

// countTechnicalTerms counts mixed-case identifiers, hyphenated compound
// terms, and dotted names.
func countTechnicalTerms(text string) int {
	return len(mixedCaseRe.FindAllString(text, -1)) +
		len(hyphenatedRe.FindAllString(text, -1)) +
		len(dottedRe.FindAllString(text, -1))
}

// densityFactor maps a raw occurrence count onto (0, 1], saturating at full.
func densityFactor(count, full int) float64 {
	if count >= full {
		return 1.0
	}
	return float64(count) / float64(full)
}

func containsAny(lower string, words []string) bool {
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
