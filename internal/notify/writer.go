package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kgforge/kgforge/pkg/types"
)

// DropWriter deposits work-unit batches into the drop directory for a
// running watcher to ingest.
type DropWriter struct {
	dir string
}

// NewDropWriter creates a writer that emits batches to {dataPath}/drop/.
func NewDropWriter(dataPath string) *DropWriter {
	return &DropWriter{dir: filepath.Join(dataPath, "drop")}
}

// Write serializes the units as one .jsonl batch file. The batch is
// written to a temp name and renamed into place so the watcher never sees
// a half-written file. Safe to call concurrently.
func (w *DropWriter) Write(units []*types.WorkUnit) (string, error) {
	if len(units) == 0 {
		return "", fmt.Errorf("notify: empty batch")
	}
	if err := os.MkdirAll(w.dir, 0o700); err != nil {
		return "", fmt.Errorf("notify: mkdir %s: %w", w.dir, err)
	}

	name := fmt.Sprintf("batch-%d.jsonl", time.Now().UnixNano())
	path := filepath.Join(w.dir, name)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("notify: create batch: %w", err)
	}
	enc := json.NewEncoder(f)
	for _, unit := range units {
		if err := enc.Encode(unit); err != nil {
			f.Close()
			_ = os.Remove(tmp)
			return "", fmt.Errorf("notify: encode unit %s: %w", unit.ID, err)
		}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("notify: close batch: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("notify: finalize batch: %w", err)
	}
	return path, nil
}
