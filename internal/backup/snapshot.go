// Package backup takes consistent snapshots of the SQLite graph database.
// Snapshots use VACUUM INTO, which produces a point-in-time copy that is
// correct under WAL mode, and every snapshot passes an integrity check
// before it counts as taken.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultKeep is how many snapshots retention preserves.
const DefaultKeep = 10

// Snapshot describes one graph database snapshot on disk.
type Snapshot struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager snapshots one graph database into a snapshot directory and
// enforces a keep-newest retention count.
type Manager struct {
	dbPath string
	dir    string
	keep   int
}

// NewManager creates a snapshot manager. A non-positive keep falls back to
// DefaultKeep.
func NewManager(dbPath, dir string, keep int) (*Manager, error) {
	if keep <= 0 {
		keep = DefaultKeep
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("backup: mkdir %s: %w", dir, err)
	}
	return &Manager{dbPath: dbPath, dir: dir, keep: keep}, nil
}

// Take snapshots the graph database, verifies the copy, and applies
// retention. The partial file is removed when any step fails.
func (m *Manager) Take(ctx context.Context) (*Snapshot, error) {
	if _, err := os.Stat(m.dbPath); err != nil {
		return nil, fmt.Errorf("backup: graph database not found: %w", err)
	}

	name := fmt.Sprintf("graph-%s.db", time.Now().UTC().Format("20060102-150405.000000"))
	dest := filepath.Join(m.dir, name)

	if err := vacuumInto(ctx, m.dbPath, dest); err != nil {
		_ = os.Remove(dest)
		return nil, err
	}
	if err := Verify(ctx, dest); err != nil {
		_ = os.Remove(dest)
		return nil, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("backup: stat snapshot: %w", err)
	}

	m.applyRetention()

	return &Snapshot{Path: dest, Size: info.Size(), CreatedAt: info.ModTime()}, nil
}

// List returns the snapshots on disk, newest first.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("backup: read snapshot directory: %w", err)
	}

	var snaps []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snaps = append(snaps, Snapshot{
			Path:      filepath.Join(m.dir, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps, nil
}

// Restore replaces the graph database with the snapshot at path. The
// snapshot is verified before the copy and the restored file is verified
// after it. The database must not be open during a restore.
func (m *Manager) Restore(ctx context.Context, path string) error {
	if err := Verify(ctx, path); err != nil {
		return err
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("backup: open snapshot: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(m.dbPath)
	if err != nil {
		return fmt.Errorf("backup: create target: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("backup: copy snapshot: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return fmt.Errorf("backup: sync target: %w", err)
	}

	return Verify(ctx, m.dbPath)
}

// applyRetention deletes snapshots beyond the keep count, oldest first.
// Retention failures are logged, not fatal: the snapshot itself succeeded.
func (m *Manager) applyRetention() {
	snaps, err := m.List()
	if err != nil {
		log.Printf("backup: retention listing failed: %v", err)
		return
	}
	for _, snap := range snaps[min(m.keep, len(snaps)):] {
		if err := os.Remove(snap.Path); err != nil {
			log.Printf("backup: failed to remove old snapshot %s: %v", snap.Path, err)
		}
	}
}

// Verify opens the database at path read-only and runs an integrity check.
func Verify(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("backup: open %s: %w", path, err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup: integrity check on %s: %w", path, err)
	}
	if result != "ok" {
		return fmt.Errorf("backup: integrity check on %s failed: %s", path, result)
	}
	return nil
}

// vacuumInto copies the source database into dest via VACUUM INTO.
func vacuumInto(ctx context.Context, source, dest string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", source))
	if err != nil {
		return fmt.Errorf("backup: open source: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", dest)); err != nil {
		return fmt.Errorf("backup: vacuum into %s: %w", dest, err)
	}
	return nil
}
