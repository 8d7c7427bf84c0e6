package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kgforge/kgforge/internal/storage"
	"github.com/kgforge/kgforge/pkg/types"
)

// newTestStore creates an in-memory SQLite store for testing.
func newTestStore(t *testing.T) *GraphStore {
	t.Helper()
	store, err := NewGraphStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testEntity(name string, entityType types.EntityType) *types.Entity {
	now := time.Now().UTC().Truncate(time.Second)
	return &types.Entity{
		ID:            types.NewEntityID(),
		CanonicalName: name,
		Type:          entityType,
		MentionCount:  1,
		Confidence:    0.8,
		Breakdown:     types.SourceBreakdown{"primary": 1},
		SourceTag:     types.SourcePrimaryOnly,
		FirstSeen:     now,
		LastSeen:      now,
	}
}

func TestCreateAndGetEntity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entity := testEntity("PostgreSQL", types.EntityTool)
	entity.Aliases = []string{"postgres", "pg"}
	entity.Embedding = []float32{0.1, 0.2, 0.3}

	if err := store.CreateEntity(ctx, entity); err != nil {
		t.Fatalf("CreateEntity() failed: %v", err)
	}

	got, err := store.GetEntity(ctx, entity.ID)
	if err != nil {
		t.Fatalf("GetEntity() failed: %v", err)
	}
	if got.CanonicalName != "PostgreSQL" {
		t.Errorf("CanonicalName: got %q, want %q", got.CanonicalName, "PostgreSQL")
	}
	if got.Type != types.EntityTool {
		t.Errorf("Type: got %q, want %q", got.Type, types.EntityTool)
	}
	if len(got.Aliases) != 2 {
		t.Errorf("Aliases: got %v, want 2 entries", got.Aliases)
	}
	if len(got.Embedding) != 3 {
		t.Errorf("Embedding: got %d dims, want 3", len(got.Embedding))
	}
	if got.Breakdown["primary"] != 1 {
		t.Errorf("Breakdown: got %v, want primary=1", got.Breakdown)
	}
	if !got.FirstSeen.Equal(entity.FirstSeen) {
		t.Errorf("FirstSeen: got %v, want %v", got.FirstSeen, entity.FirstSeen)
	}
}

func TestGetEntityNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetEntity(context.Background(), "ent:missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateEntityDuplicateCanonicalName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateEntity(ctx, testEntity("Redis", types.EntityTool)); err != nil {
		t.Fatalf("CreateEntity() failed: %v", err)
	}

	// Same name, different case, same type: must conflict.
	err := store.CreateEntity(ctx, testEntity("redis", types.EntityTool))
	if !errors.Is(err, storage.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for case-insensitive name collision, got %v", err)
	}

	// Same name, different type: allowed.
	if err := store.CreateEntity(ctx, testEntity("Redis", types.EntityConcept)); err != nil {
		t.Errorf("CreateEntity() with different type failed: %v", err)
	}
}

func TestFindByCanonicalNameCaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entity := testEntity("Kubernetes", types.EntityTool)
	if err := store.CreateEntity(ctx, entity); err != nil {
		t.Fatalf("CreateEntity() failed: %v", err)
	}

	got, err := store.FindByCanonicalName(ctx, "kubernetes", types.EntityTool)
	if err != nil {
		t.Fatalf("FindByCanonicalName() failed: %v", err)
	}
	if got.ID != entity.ID {
		t.Errorf("got entity %s, want %s", got.ID, entity.ID)
	}

	// Wrong type misses.
	if _, err := store.FindByCanonicalName(ctx, "kubernetes", types.EntityPerson); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for wrong type, got %v", err)
	}
}

func TestFindByAlias(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entity := testEntity("Kubernetes", types.EntityTool)
	entity.Aliases = []string{"k8s", "kube"}
	if err := store.CreateEntity(ctx, entity); err != nil {
		t.Fatalf("CreateEntity() failed: %v", err)
	}

	got, err := store.FindByAlias(ctx, "K8S", types.EntityTool)
	if err != nil {
		t.Fatalf("FindByAlias() failed: %v", err)
	}
	if got.ID != entity.ID {
		t.Errorf("got entity %s, want %s", got.ID, entity.ID)
	}

	if _, err := store.FindByAlias(ctx, "kates", types.EntityTool); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown alias, got %v", err)
	}
}

func TestAddAliasDeduplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entity := testEntity("Terraform", types.EntityTool)
	if err := store.CreateEntity(ctx, entity); err != nil {
		t.Fatalf("CreateEntity() failed: %v", err)
	}

	if err := store.AddAlias(ctx, entity.ID, "TF"); err != nil {
		t.Fatalf("AddAlias() failed: %v", err)
	}
	// Case-variant of an existing alias and of the canonical name: both no-ops.
	if err := store.AddAlias(ctx, entity.ID, "tf"); err != nil {
		t.Fatalf("AddAlias() duplicate failed: %v", err)
	}
	if err := store.AddAlias(ctx, entity.ID, "terraform"); err != nil {
		t.Fatalf("AddAlias() canonical-name duplicate failed: %v", err)
	}

	got, err := store.GetEntity(ctx, entity.ID)
	if err != nil {
		t.Fatalf("GetEntity() failed: %v", err)
	}
	if len(got.Aliases) != 1 || got.Aliases[0] != "TF" {
		t.Errorf("Aliases: got %v, want [TF]", got.Aliases)
	}
}

func TestRecordHit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entity := testEntity("Go", types.EntityTool)
	if err := store.CreateEntity(ctx, entity); err != nil {
		t.Fatalf("CreateEntity() failed: %v", err)
	}

	later := entity.LastSeen.Add(48 * time.Hour)
	if err := store.RecordHit(ctx, entity.ID, "secondary", later); err != nil {
		t.Fatalf("RecordHit() failed: %v", err)
	}

	got, err := store.GetEntity(ctx, entity.ID)
	if err != nil {
		t.Fatalf("GetEntity() failed: %v", err)
	}
	if got.MentionCount != 2 {
		t.Errorf("MentionCount: got %d, want 2", got.MentionCount)
	}
	if got.Breakdown["secondary"] != 1 {
		t.Errorf("Breakdown: got %v, want secondary=1", got.Breakdown)
	}
	if got.SourceTag != types.SourceCross {
		t.Errorf("SourceTag: got %q, want %q", got.SourceTag, types.SourceCross)
	}
	if !got.LastSeen.Equal(later) {
		t.Errorf("LastSeen: got %v, want %v", got.LastSeen, later)
	}
	if !got.FirstSeen.Equal(entity.FirstSeen) {
		t.Errorf("FirstSeen moved: got %v, want %v", got.FirstSeen, entity.FirstSeen)
	}
}

func TestSetEmbeddingAndNearestEntity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testEntity("Vector A", types.EntityConcept)
	b := testEntity("Vector B", types.EntityConcept)
	for _, e := range []*types.Entity{a, b} {
		if err := store.CreateEntity(ctx, e); err != nil {
			t.Fatalf("CreateEntity() failed: %v", err)
		}
	}
	if err := store.SetEmbedding(ctx, a.ID, []float32{1, 0, 0}); err != nil {
		t.Fatalf("SetEmbedding() failed: %v", err)
	}
	if err := store.SetEmbedding(ctx, b.ID, []float32{0, 1, 0}); err != nil {
		t.Fatalf("SetEmbedding() failed: %v", err)
	}

	got, sim, err := store.NearestEntity(ctx, []float32{0.9, 0.1, 0}, types.EntityConcept)
	if err != nil {
		t.Fatalf("NearestEntity() failed: %v", err)
	}
	if got.ID != a.ID {
		t.Errorf("nearest: got %s, want %s", got.CanonicalName, a.CanonicalName)
	}
	if sim < 0.9 {
		t.Errorf("similarity: got %f, want > 0.9", sim)
	}

	// No embeddings of the requested type.
	if _, _, err := store.NearestEntity(ctx, []float32{1, 0, 0}, types.EntityPerson); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetEmbeddingMissingEntity(t *testing.T) {
	store := newTestStore(t)

	err := store.SetEmbedding(context.Background(), "ent:missing", []float32{1})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsertMentionIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entity := testEntity("Docker", types.EntityTool)
	if err := store.CreateEntity(ctx, entity); err != nil {
		t.Fatalf("CreateEntity() failed: %v", err)
	}

	mention := &types.EntityMention{
		ID:             types.NewMentionID(),
		EntityID:       entity.ID,
		UnitID:         "unit-1",
		ContextSnippet: "we containerised the service with Docker",
		Timestamp:      time.Now().UTC(),
	}

	created, err := store.InsertMention(ctx, mention)
	if err != nil {
		t.Fatalf("InsertMention() failed: %v", err)
	}
	if !created {
		t.Error("first insert: created = false, want true")
	}

	// Same (entity, unit) again, fresh mention ID: swallowed.
	dup := *mention
	dup.ID = types.NewMentionID()
	created, err = store.InsertMention(ctx, &dup)
	if err != nil {
		t.Fatalf("InsertMention() duplicate failed: %v", err)
	}
	if created {
		t.Error("duplicate insert: created = true, want false")
	}

	has, err := store.HasMentionForUnit(ctx, "unit-1")
	if err != nil {
		t.Fatalf("HasMentionForUnit() failed: %v", err)
	}
	if !has {
		t.Error("HasMentionForUnit(unit-1) = false, want true")
	}
	has, err = store.HasMentionForUnit(ctx, "unit-2")
	if err != nil {
		t.Fatalf("HasMentionForUnit() failed: %v", err)
	}
	if has {
		t.Error("HasMentionForUnit(unit-2) = true, want false")
	}
}

func TestUpsertRelationIncrementsOccurrence(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testEntity("Prometheus", types.EntityTool)
	b := testEntity("Grafana", types.EntityTool)
	for _, e := range []*types.Entity{a, b} {
		if err := store.CreateEntity(ctx, e); err != nil {
			t.Fatalf("CreateEntity() failed: %v", err)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	rel := &types.Relation{
		ID:             types.NewRelationID(),
		SourceEntityID: a.ID,
		TargetEntityID: b.ID,
		Type:           types.RelUsedWith,
		Confidence:     0.9,
		UnitID:         "unit-1",
		FirstSeen:      now,
		LastSeen:       now,
	}

	created, err := store.UpsertRelation(ctx, rel)
	if err != nil {
		t.Fatalf("UpsertRelation() failed: %v", err)
	}
	if !created {
		t.Error("first upsert: created = false, want true")
	}

	rel2 := *rel
	rel2.ID = types.NewRelationID()
	rel2.LastSeen = now.Add(time.Hour)
	created, err = store.UpsertRelation(ctx, &rel2)
	if err != nil {
		t.Fatalf("UpsertRelation() repeat failed: %v", err)
	}
	if created {
		t.Error("repeat upsert: created = true, want false")
	}

	relations, err := store.RelationsForEntity(ctx, a.ID)
	if err != nil {
		t.Fatalf("RelationsForEntity() failed: %v", err)
	}
	if len(relations) != 1 {
		t.Fatalf("relations: got %d, want 1", len(relations))
	}
	if relations[0].OccurrenceCount != 2 {
		t.Errorf("OccurrenceCount: got %d, want 2", relations[0].OccurrenceCount)
	}
	if !relations[0].LastSeen.Equal(rel2.LastSeen) {
		t.Errorf("LastSeen: got %v, want %v", relations[0].LastSeen, rel2.LastSeen)
	}
}

func TestUpsertRelationRejectsSelfLoop(t *testing.T) {
	store := newTestStore(t)

	rel := &types.Relation{
		ID:             types.NewRelationID(),
		SourceEntityID: "ent:same",
		TargetEntityID: "ent:same",
		Type:           types.RelUsedWith,
		UnitID:         "unit-1",
	}
	_, err := store.UpsertRelation(context.Background(), rel)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMergeEntities(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)

	target := testEntity("Kubernetes", types.EntityTool)
	target.MentionCount = 5
	source := testEntity("K8s", types.EntityTool)
	source.MentionCount = 2
	source.Aliases = []string{"kube"}
	source.Breakdown = types.SourceBreakdown{"secondary": 2}
	other := testEntity("Helm", types.EntityTool)
	for _, e := range []*types.Entity{target, source, other} {
		if err := store.CreateEntity(ctx, e); err != nil {
			t.Fatalf("CreateEntity() failed: %v", err)
		}
	}

	// unit-1 mentions both source and target; unit-2 only source.
	mentions := []*types.EntityMention{
		{ID: types.NewMentionID(), EntityID: target.ID, UnitID: "unit-1", Timestamp: now},
		{ID: types.NewMentionID(), EntityID: source.ID, UnitID: "unit-1", Timestamp: now},
		{ID: types.NewMentionID(), EntityID: source.ID, UnitID: "unit-2", Timestamp: now},
	}
	for _, m := range mentions {
		if _, err := store.InsertMention(ctx, m); err != nil {
			t.Fatalf("InsertMention() failed: %v", err)
		}
	}

	// A relation between source and target becomes a self-loop and must go;
	// parallel source->other and target->other edges in the same unit fold.
	relations := []*types.Relation{
		{ID: types.NewRelationID(), SourceEntityID: source.ID, TargetEntityID: target.ID,
			Type: types.RelUsedWith, UnitID: "unit-1", FirstSeen: now, LastSeen: now},
		{ID: types.NewRelationID(), SourceEntityID: source.ID, TargetEntityID: other.ID,
			Type: types.RelUsedWith, UnitID: "unit-2", FirstSeen: now, LastSeen: now},
		{ID: types.NewRelationID(), SourceEntityID: target.ID, TargetEntityID: other.ID,
			Type: types.RelUsedWith, UnitID: "unit-2", FirstSeen: now, LastSeen: now},
	}
	for _, r := range relations {
		if _, err := store.UpsertRelation(ctx, r); err != nil {
			t.Fatalf("UpsertRelation() failed: %v", err)
		}
	}

	merged, err := store.MergeEntities(ctx, source.ID, target.ID)
	if err != nil {
		t.Fatalf("MergeEntities() failed: %v", err)
	}

	if merged.MentionCount != 7 {
		t.Errorf("MentionCount: got %d, want 7", merged.MentionCount)
	}
	if !merged.HasAlias("K8s") || !merged.HasAlias("kube") {
		t.Errorf("Aliases: got %v, want to include K8s and kube", merged.Aliases)
	}
	if merged.SourceTag != types.SourceCross {
		t.Errorf("SourceTag: got %q, want %q", merged.SourceTag, types.SourceCross)
	}

	if _, err := store.GetEntity(ctx, source.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("source entity still present after merge: %v", err)
	}

	// unit-1's duplicate mention collapsed; unit-2's re-pointed to target.
	for _, unit := range []string{"unit-1", "unit-2"} {
		has, err := store.HasMentionForUnit(ctx, unit)
		if err != nil || !has {
			t.Errorf("HasMentionForUnit(%s): got %v, %v", unit, has, err)
		}
	}

	got, err := store.RelationsForEntity(ctx, target.ID)
	if err != nil {
		t.Fatalf("RelationsForEntity() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("relations after merge: got %d, want 1 (self-loop dropped, parallel edges folded)", len(got))
	}
	if got[0].TargetEntityID != other.ID {
		t.Errorf("relation target: got %s, want %s", got[0].TargetEntityID, other.ID)
	}
	if got[0].OccurrenceCount != 2 {
		t.Errorf("folded OccurrenceCount: got %d, want 2", got[0].OccurrenceCount)
	}
}

func TestListEntitiesFiltersAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)

	popular := testEntity("Git", types.EntityTool)
	popular.MentionCount = 10
	rare := testEntity("Jujutsu", types.EntityTool)
	rare.MentionCount = 1
	rare.FirstSeen = now.Add(-72 * time.Hour)
	rare.LastSeen = now.Add(-72 * time.Hour)
	person := testEntity("Linus", types.EntityPerson)
	for _, e := range []*types.Entity{popular, rare, person} {
		if err := store.CreateEntity(ctx, e); err != nil {
			t.Fatalf("CreateEntity() failed: %v", err)
		}
	}

	got, err := store.ListEntities(ctx, storage.ListOptions{Type: string(types.EntityTool)})
	if err != nil {
		t.Fatalf("ListEntities() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("type filter: got %d entities, want 2", len(got))
	}
	if got[0].ID != popular.ID {
		t.Errorf("order: got %s first, want %s", got[0].CanonicalName, popular.CanonicalName)
	}

	got, err = store.ListEntities(ctx, storage.ListOptions{MinMentions: 5})
	if err != nil {
		t.Fatalf("ListEntities() failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != popular.ID {
		t.Errorf("MinMentions filter: got %d entities, want just %s", len(got), popular.CanonicalName)
	}

	got, err = store.ListEntities(ctx, storage.ListOptions{SeenAfter: now.Add(-time.Hour)})
	if err != nil {
		t.Fatalf("ListEntities() failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("SeenAfter filter: got %d entities, want 2", len(got))
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testEntity("A", types.EntityConcept)
	b := testEntity("B", types.EntityConcept)
	for _, e := range []*types.Entity{a, b} {
		if err := store.CreateEntity(ctx, e); err != nil {
			t.Fatalf("CreateEntity() failed: %v", err)
		}
	}
	now := time.Now().UTC()
	for _, m := range []*types.EntityMention{
		{ID: types.NewMentionID(), EntityID: a.ID, UnitID: "unit-1", Timestamp: now},
		{ID: types.NewMentionID(), EntityID: b.ID, UnitID: "unit-1", Timestamp: now},
		{ID: types.NewMentionID(), EntityID: a.ID, UnitID: "unit-2", Timestamp: now},
	} {
		if _, err := store.InsertMention(ctx, m); err != nil {
			t.Fatalf("InsertMention() failed: %v", err)
		}
	}
	if _, err := store.UpsertRelation(ctx, &types.Relation{
		ID: types.NewRelationID(), SourceEntityID: a.ID, TargetEntityID: b.ID,
		Type: types.RelUsedWith, UnitID: "unit-1", FirstSeen: now, LastSeen: now,
	}); err != nil {
		t.Fatalf("UpsertRelation() failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if stats.Entities != 2 || stats.Mentions != 3 || stats.Relations != 1 || stats.UnitsIndexed != 2 {
		t.Errorf("Stats: got %+v, want {2 3 1 2}", stats)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.75, 0}
	got, err := deserializeVector(serializeVector(vec))
	if err != nil {
		t.Fatalf("deserializeVector() failed: %v", err)
	}
	if len(got) != len(vec) {
		t.Fatalf("length: got %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("index %d: got %f, want %f", i, got[i], vec[i])
		}
	}

	if serializeVector(nil) != nil {
		t.Error("serializeVector(nil) should be nil")
	}
	if _, err := deserializeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for misaligned blob")
	}
}
