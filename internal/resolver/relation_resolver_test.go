package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgforge/kgforge/pkg/types"
)

func TestNormalizePredicate(t *testing.T) {
	tests := []struct {
		raw  string
		want types.RelationType
		ok   bool
	}{
		{"SOLVES", types.RelSolves, true},
		{"solves", types.RelSolves, true},
		{"fixes", types.RelSolves, true},
		{"depends on", types.RelRequires, true},
		{"depends-on", types.RelRequires, true},
		{"integrates_with", types.RelUsedWith, true},
		{"REPLACES", types.RelObsoletes, true},
		{"part_of", types.RelPartOf, true},
		{"refers to", types.RelReferencedBy, true},
		{"is vaguely related to", "", false},
		{"", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizePredicate(tt.raw)
		if ok != tt.ok {
			t.Errorf("NormalizePredicate(%q): ok = %v, want %v", tt.raw, ok, tt.ok)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("NormalizePredicate(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestRelationResolverGatesAndUpserts(t *testing.T) {
	entityResolver, store := newTestResolver(t, nil)
	relResolver := NewRelationResolver(store)
	ctx := context.Background()
	unit := testUnit("unit-1")

	prometheus, err := entityResolver.Resolve(ctx, types.CandidateEntity{
		Name: "Prometheus", Type: types.EntityTool, Confidence: 0.9,
	}, unit)
	require.NoError(t, err)
	grafana, err := entityResolver.Resolve(ctx, types.CandidateEntity{
		Name: "Grafana", Type: types.EntityTool, Confidence: 0.9,
	}, unit)
	require.NoError(t, err)

	nameToEntity := map[string]*types.Entity{
		"prometheus": prometheus.Entity,
		"grafana":    grafana.Entity,
	}

	candidates := []types.CandidateRelation{
		// Valid: persists.
		{SourceName: "Prometheus", TargetName: "Grafana", Predicate: "integrates_with", Confidence: 0.9},
		// Self-relation after case-fold: dropped.
		{SourceName: "Prometheus", TargetName: "prometheus", Predicate: "uses", Confidence: 0.9},
		// Generic endpoint: dropped.
		{SourceName: "the tool", TargetName: "Grafana", Predicate: "solves", Confidence: 0.9},
		// Endpoint not resolved in this unit: dropped.
		{SourceName: "Loki", TargetName: "Grafana", Predicate: "used_with", Confidence: 0.9},
		// Unmappable predicate: dropped.
		{SourceName: "Prometheus", TargetName: "Grafana", Predicate: "is vaguely related to", Confidence: 0.9},
	}

	outcome, err := relResolver.Resolve(ctx, candidates, nameToEntity, unit)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Created)
	assert.Equal(t, 0, outcome.Updated)
	assert.Equal(t, 4, outcome.Dropped)

	// Re-observation of the surviving edge in the same unit increments the
	// occurrence count instead of inserting a second record.
	outcome, err = relResolver.Resolve(ctx, candidates[:1], nameToEntity, unit)
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.Created)
	assert.Equal(t, 1, outcome.Updated)

	relations, err := store.RelationsForEntity(ctx, prometheus.Entity.ID)
	require.NoError(t, err)
	require.Len(t, relations, 1)
	assert.Equal(t, types.RelUsedWith, relations[0].Type)
	assert.Equal(t, 2, relations[0].OccurrenceCount)
	assert.NotEmpty(t, relations[0].EvidenceSnippet)
}
