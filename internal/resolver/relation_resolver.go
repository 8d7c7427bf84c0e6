package resolver

import (
	"context"
	"strings"

	"github.com/kgforge/kgforge/internal/storage"
	"github.com/kgforge/kgforge/pkg/types"
)

// predicateSynonyms maps raw extraction predicates onto the closed
// vocabulary. Keys are lowercased with spaces and hyphens collapsed to
// underscores; canonical predicates match themselves through
// types.ValidRelationTypes before this map is consulted.
var predicateSynonyms = map[string]types.RelationType{
	"fixes":             types.RelSolves,
	"resolves":          types.RelSolves,
	"addresses":         types.RelSolves,
	"mitigates":         types.RelSolves,
	"leads_to":          types.RelCauses,
	"results_in":        types.RelCauses,
	"triggers":          types.RelCauses,
	"breaks":            types.RelCauses,
	"allows":            types.RelEnables,
	"supports":          types.RelEnables,
	"powers":            types.RelEnables,
	"belongs_to":        types.RelPartOf,
	"component_of":      types.RelPartOf,
	"module_of":         types.RelPartOf,
	"included_in":       types.RelPartOf,
	"is_part_of":        types.RelPartOf,
	"uses":              types.RelUsedWith,
	"used_by":           types.RelUsedWith,
	"works_with":        types.RelUsedWith,
	"integrates_with":   types.RelUsedWith,
	"combined_with":     types.RelUsedWith,
	"paired_with":       types.RelUsedWith,
	"alternative":       types.RelAlternativeTo,
	"is_alternative":    types.RelAlternativeTo,
	"competes_with":     types.RelAlternativeTo,
	"instead_of":        types.RelAlternativeTo,
	"similar_to":        types.RelAlternativeTo,
	"depends_on":        types.RelRequires,
	"needs":             types.RelRequires,
	"built_on":          types.RelRequires,
	"implemented_by":    types.RelImplements,
	"is_implemented_in": types.RelImplements,
	"discussed_by":      types.RelMentionedBy,
	"recommended_by":    types.RelMentionedBy,
	"precedes":          types.RelFollowedBy,
	"succeeded_by":      types.RelFollowedBy,
	"followed_up_by":    types.RelFollowedBy,
	"references":        types.RelReferencedBy,
	"refers_to":         types.RelReferencedBy,
	"cites":             types.RelReferencedBy,
	"replaces":          types.RelObsoletes,
	"supersedes":        types.RelObsoletes,
	"deprecated_by":     types.RelObsoletes,
	"deprecates":        types.RelObsoletes,
	"makes_obsolete":    types.RelObsoletes,
}

// genericEndpoints lists surface names too vague to carry a relation.
// Candidates whose source or target case-folds to one of these are dropped.
var genericEndpoints = map[string]bool{
	"it":          true,
	"this":        true,
	"that":        true,
	"they":        true,
	"thing":       true,
	"things":      true,
	"stuff":       true,
	"tool":        true,
	"tools":       true,
	"the tool":    true,
	"system":      true,
	"the system":  true,
	"code":        true,
	"the code":    true,
	"app":         true,
	"the app":     true,
	"software":    true,
	"solution":    true,
	"problem":     true,
	"the problem": true,
	"issue":       true,
	"the issue":   true,
	"project":     true,
	"the project": true,
	"everything":  true,
	"something":   true,
	"people":      true,
	"users":       true,
	"workflow":    true,
	"process":     true,
}

// NormalizePredicate maps a raw predicate string onto the closed
// vocabulary. Returns false when the predicate cannot be mapped.
func NormalizePredicate(raw string) (types.RelationType, bool) {
	p := strings.TrimSpace(raw)
	p = strings.NewReplacer(" ", "_", "-", "_").Replace(p)
	if p == "" {
		return "", false
	}

	canonical := types.RelationType(strings.ToUpper(p))
	if types.ValidRelationTypes[canonical] {
		return canonical, true
	}
	if t, ok := predicateSynonyms[strings.ToLower(p)]; ok {
		return t, true
	}
	return "", false
}

// RelationResolver persists candidate relations against entities resolved
// in the same unit.
type RelationResolver struct {
	store storage.GraphStore
}

// NewRelationResolver creates a relation resolver backed by the store.
func NewRelationResolver(store storage.GraphStore) *RelationResolver {
	return &RelationResolver{store: store}
}

// RelationOutcome counts what happened to a unit's relation candidates.
type RelationOutcome struct {
	Created int
	Updated int
	Dropped int
}

// Resolve gates and persists candidate relations. nameToEntity maps
// case-folded surface names from this unit's resolutions onto entity
// records. Candidates with a generic, unmapped, or self-referential
// endpoint and candidates with an unmappable predicate are dropped
// silently; a dropped relation never fails the unit.
func (r *RelationResolver) Resolve(ctx context.Context, candidates []types.CandidateRelation, nameToEntity map[string]*types.Entity, unit *types.WorkUnit) (*RelationOutcome, error) {
	outcome := &RelationOutcome{}

	for _, cand := range candidates {
		source := lookupEndpoint(nameToEntity, cand.SourceName)
		target := lookupEndpoint(nameToEntity, cand.TargetName)
		if source == nil || target == nil {
			outcome.Dropped++
			continue
		}
		if source.ID == target.ID {
			outcome.Dropped++
			continue
		}

		relType, ok := NormalizePredicate(cand.Predicate)
		if !ok {
			outcome.Dropped++
			continue
		}

		evidence := cand.Evidence
		if evidence == "" {
			evidence = unit.Snippet()
		}

		rel := &types.Relation{
			ID:              types.NewRelationID(),
			SourceEntityID:  source.ID,
			TargetEntityID:  target.ID,
			Type:            relType,
			Confidence:      cand.Confidence,
			EvidenceSnippet: evidence,
			UnitID:          unit.ID,
			FirstSeen:       unit.Timestamp,
			LastSeen:        unit.Timestamp,
		}

		created, err := r.store.UpsertRelation(ctx, rel)
		if err != nil {
			return outcome, err
		}
		if created {
			outcome.Created++
		} else {
			outcome.Updated++
		}
	}

	return outcome, nil
}

// lookupEndpoint resolves a candidate surface name against the unit's
// resolution map, rejecting generic endpoints.
func lookupEndpoint(nameToEntity map[string]*types.Entity, name string) *types.Entity {
	folded := strings.ToLower(strings.TrimSpace(name))
	if folded == "" || genericEndpoints[folded] {
		return nil
	}
	return nameToEntity[folded]
}
