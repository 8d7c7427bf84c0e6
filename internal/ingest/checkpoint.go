package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kgforge/kgforge/internal/config"
)

// checkpointKeep is how many checkpoint files survive retention.
const checkpointKeep = 5

// Checkpoint records ingest progress so an interrupted run can resume
// without redoing completed units. A checkpoint is only honoured when the
// corpus size and the configuration fingerprint both match the current run;
// otherwise the run starts fresh and relies on the skip-if-indexed probe.
type Checkpoint struct {
	CreatedAt         time.Time `json:"created_at"`
	CorpusSize        int       `json:"corpus_size"`
	ConfigFingerprint string    `json:"config_fingerprint"`
	DoneUnits         []string  `json:"done_units"`
}

// CheckpointManager persists checkpoints under a directory, writing each
// flush to a timestamped file and pruning old ones.
type CheckpointManager struct {
	dir         string
	fingerprint string
	corpusSize  int
}

// NewCheckpointManager creates a manager rooted at dir. The fingerprint
// binds checkpoints to the configuration that produced them.
func NewCheckpointManager(dir string, cfg *config.Config, corpusSize int) (*CheckpointManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ingest: failed to create checkpoint directory: %w", err)
	}
	return &CheckpointManager{
		dir:         dir,
		fingerprint: ConfigFingerprint(cfg),
		corpusSize:  corpusSize,
	}, nil
}

// ConfigFingerprint hashes the configuration fields that change what a run
// produces. Two runs with the same fingerprint over the same corpus are
// interchangeable for resume purposes.
func ConfigFingerprint(cfg *config.Config) string {
	h := sha256.New()
	fmt.Fprintf(h, "engine=%s|provider=%s|model=%s|relations=%t|quality=%.4f|similarity=%.4f",
		cfg.Storage.Engine,
		cfg.LLM.Provider,
		cfg.LLM.OllamaModel+cfg.LLM.OpenAIModel+cfg.LLM.AnthropicModel,
		cfg.Ingest.Relations,
		cfg.Resolution.QualityThreshold,
		cfg.Resolution.SimilarityThreshold,
	)
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Load returns the set of done unit IDs from the newest compatible
// checkpoint, or an empty set when no compatible checkpoint exists.
func (m *CheckpointManager) Load() map[string]bool {
	done := make(map[string]bool)

	files, err := m.listCheckpoints()
	if err != nil || len(files) == 0 {
		return done
	}

	// Newest first; the first compatible checkpoint wins.
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cp Checkpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			log.Printf("ingest: ignoring corrupt checkpoint %s: %v", path, err)
			continue
		}
		if cp.ConfigFingerprint != m.fingerprint || cp.CorpusSize != m.corpusSize {
			log.Printf("ingest: checkpoint %s is for a different corpus or configuration; ignoring", filepath.Base(path))
			continue
		}
		for _, id := range cp.DoneUnits {
			done[id] = true
		}
		log.Printf("ingest: resuming from checkpoint %s (%d units already done)", filepath.Base(path), len(done))
		return done
	}
	return done
}

// Flush writes a checkpoint containing the done units, atomically via a
// temp file rename, then applies retention.
func (m *CheckpointManager) Flush(doneUnits []string) error {
	cp := Checkpoint{
		CreatedAt:         time.Now().UTC(),
		CorpusSize:        m.corpusSize,
		ConfigFingerprint: m.fingerprint,
		DoneUnits:         doneUnits,
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("ingest: failed to marshal checkpoint: %w", err)
	}

	name := fmt.Sprintf("checkpoint-%s.json", cp.CreatedAt.Format("20060102-150405.000000000"))
	path := filepath.Join(m.dir, name)
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("ingest: failed to write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("ingest: failed to finalize checkpoint: %w", err)
	}

	m.applyRetention()
	return nil
}

// listCheckpoints returns checkpoint paths sorted newest first. Names embed
// a sortable timestamp, so lexical order is chronological.
func (m *CheckpointManager) listCheckpoints() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to read checkpoint directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, "checkpoint-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		files = append(files, filepath.Join(m.dir, name))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

// applyRetention deletes all but the newest checkpointKeep files.
func (m *CheckpointManager) applyRetention() {
	files, err := m.listCheckpoints()
	if err != nil {
		log.Printf("ingest: checkpoint retention skipped: %v", err)
		return
	}
	if len(files) <= checkpointKeep {
		return
	}
	for _, path := range files[checkpointKeep:] {
		if err := os.Remove(path); err != nil {
			log.Printf("ingest: failed to remove old checkpoint %s: %v", path, err)
		}
	}
}
