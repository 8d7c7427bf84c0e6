package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kgforge/kgforge/internal/storage/sqlite"
	"github.com/kgforge/kgforge/pkg/types"
)

// newTestGraph creates a populated graph database and returns its path.
func newTestGraph(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "kgforge.db")

	store, err := sqlite.NewGraphStore(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	entity := &types.Entity{
		ID:            types.NewEntityID(),
		Type:          types.EntityTool,
		CanonicalName: "Postgres",
		MentionCount:  1,
		FirstSeen:     time.Now().UTC(),
		LastSeen:      time.Now().UTC(),
	}
	if err := store.CreateEntity(context.Background(), entity); err != nil {
		t.Fatalf("failed to seed entity: %v", err)
	}
	return dbPath
}

func TestTakeAndVerifySnapshot(t *testing.T) {
	dbPath := newTestGraph(t)
	snapDir := t.TempDir()

	m, err := NewManager(dbPath, snapDir, 0)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	snap, err := m.Take(context.Background())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if snap.Size == 0 {
		t.Error("expected a non-empty snapshot")
	}
	if filepath.Dir(snap.Path) != snapDir {
		t.Errorf("snapshot landed outside the snapshot directory: %s", snap.Path)
	}

	if err := Verify(context.Background(), snap.Path); err != nil {
		t.Errorf("snapshot failed verification: %v", err)
	}

	snaps, err := m.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
}

func TestTakeMissingDatabase(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "absent.db"), t.TempDir(), 0)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if _, err := m.Take(context.Background()); err == nil {
		t.Fatal("expected an error for a missing database")
	}
}

func TestRetentionKeepsNewest(t *testing.T) {
	dbPath := newTestGraph(t)
	snapDir := t.TempDir()

	m, err := NewManager(dbPath, snapDir, 2)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	var last *Snapshot
	for i := 0; i < 4; i++ {
		last, err = m.Take(context.Background())
		if err != nil {
			t.Fatalf("snapshot %d failed: %v", i, err)
		}
		// Retention orders by mtime, so snapshots need distinct timestamps.
		time.Sleep(5 * time.Millisecond)
	}

	snaps, err := m.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected retention to keep 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].Path != last.Path {
		t.Errorf("newest snapshot missing after retention: %s", last.Path)
	}
}

func TestRestoreReplacesDatabase(t *testing.T) {
	dbPath := newTestGraph(t)
	snapDir := t.TempDir()

	m, err := NewManager(dbPath, snapDir, 0)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	snap, err := m.Take(context.Background())
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	// Corrupt the live database, then restore over it.
	if err := os.WriteFile(dbPath, []byte("not a database"), 0o600); err != nil {
		t.Fatalf("failed to corrupt database: %v", err)
	}
	if err := m.Restore(context.Background(), snap.Path); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	store, err := sqlite.NewGraphStore(dbPath)
	if err != nil {
		t.Fatalf("restored database does not open: %v", err)
	}
	defer store.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats on restored database failed: %v", err)
	}
	if stats.Entities != 1 {
		t.Errorf("expected 1 entity after restore, got %d", stats.Entities)
	}
}

func TestRestoreRejectsCorruptSnapshot(t *testing.T) {
	dbPath := newTestGraph(t)
	m, err := NewManager(dbPath, t.TempDir(), 0)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	bogus := filepath.Join(t.TempDir(), "bogus.db")
	if err := os.WriteFile(bogus, []byte("garbage"), 0o600); err != nil {
		t.Fatalf("failed to write bogus snapshot: %v", err)
	}
	if err := m.Restore(context.Background(), bogus); err == nil {
		t.Fatal("expected restore to reject a corrupt snapshot")
	}
}
