package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgforge/kgforge/pkg/types"
)

// scriptedGenerator returns canned responses in call order and records the
// prompts it received.
type scriptedGenerator struct {
	responses []string
	errs      []error
	prompts   []string
}

func (g *scriptedGenerator) Complete(_ context.Context, prompt string) (string, error) {
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	return g.responses[i], nil
}

func (g *scriptedGenerator) GetModel() string { return "scripted" }

const entityJSON = `{"entities": [
	{"name": "Vite", "type": "tool", "confidence": 0.9},
	{"name": "Webpack", "type": "tool", "confidence": 0.8}
]}`

const relationJSON = `{"relations": [
	{"source": "Vite", "target": "Webpack", "predicate": "replaces", "confidence": 0.7}
]}`

func TestExtractTwoCallSequence(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{entityJSON, relationJSON}}
	adapter := NewExtractionAdapter(gen, 0)

	entities, relations, err := adapter.Extract(
		context.Background(), "we swapped webpack for vite",
		[]string{"Webpack"}, types.TierHighFidelity, true)

	require.NoError(t, err)
	require.Len(t, entities, 2)
	require.Len(t, relations, 1)
	require.Len(t, gen.prompts, 2)

	// Hints reach the entity prompt; extracted names reach the relation prompt.
	assert.Contains(t, gen.prompts[0], "Webpack")
	assert.Contains(t, gen.prompts[1], "Vite")
	assert.Equal(t, "replaces", relations[0].Predicate)
}

func TestExtractSkipsRelationsWhenDisabled(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{entityJSON}}
	adapter := NewExtractionAdapter(gen, 0)

	entities, relations, err := adapter.Extract(
		context.Background(), "text", nil, types.TierHighFidelity, false)

	require.NoError(t, err)
	assert.Len(t, entities, 2)
	assert.Nil(t, relations)
	assert.Len(t, gen.prompts, 1)
}

func TestExtractSkipsRelationsBelowTwoEntities(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`{"entities": [{"name": "Vite", "type": "tool"}]}`}}
	adapter := NewExtractionAdapter(gen, 0)

	entities, relations, err := adapter.Extract(
		context.Background(), "text", nil, types.TierHighFidelity, true)

	require.NoError(t, err)
	assert.Len(t, entities, 1)
	assert.Nil(t, relations)
	assert.Len(t, gen.prompts, 1)
}

func TestExtractRelationFailureKeepsEntities(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{entityJSON, ""},
		errs:      []error{nil, transientErr("scripted complete", assert.AnError)},
	}
	adapter := NewExtractionAdapter(gen, 0)

	entities, relations, err := adapter.Extract(
		context.Background(), "text", nil, types.TierHighFidelity, true)

	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Len(t, entities, 2)
	assert.Nil(t, relations)
}

func TestExtractTruncatesOversizedText(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{entityJSON}}
	adapter := NewExtractionAdapter(gen, 500)

	_, _, err := adapter.Extract(
		context.Background(), strings.Repeat("long transcript text ", 200),
		nil, types.TierHighFidelity, false)

	require.NoError(t, err)
	assert.Contains(t, gen.prompts[0], TruncationMarker)
}
