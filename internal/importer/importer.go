package importer

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kgforge/kgforge/pkg/types"
)

// unitNamespace scopes deterministic unit IDs derived from note paths.
var unitNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("kgforge/note"))

// LoadNotesDir walks root for Markdown files and converts each into a work
// unit. Unit IDs are derived from the relative path, so re-importing the
// same vault yields the same IDs and already-indexed notes are skipped by
// the orchestrator. Hidden directories and Obsidian template folders are
// not walked. Unparseable notes are logged and dropped rather than failing
// the import.
func LoadNotesDir(root string) ([]*types.WorkUnit, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("importer: cannot access %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("importer: %s is not a directory", root)
	}

	var units []*types.WorkUnit
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, ".") || name == "templates" || name == "_templates") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".md") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		unit, err := loadUnit(path, rel)
		if err != nil {
			log.Printf("importer: skipping %s: %v", rel, err)
			return nil
		}
		if unit != nil {
			units = append(units, unit)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("importer: walk failed: %w", err)
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("importer: no Markdown notes found under %s", root)
	}
	log.Printf("importer: loaded %d note(s) from %s", len(units), root)
	return units, nil
}

// loadUnit reads and parses one note file. Empty notes return (nil, nil).
func loadUnit(path, rel string) (*types.WorkUnit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	n, err := parseNote(content, rel)
	if err != nil {
		return nil, err
	}

	// A title alone is not a note; parseNote synthesizes one from the file
	// name even when the file is empty.
	if strings.TrimSpace(n.Body) == "" && len(n.Tags) == 0 && len(n.Links) == 0 {
		return nil, nil
	}

	text := n.text()
	if text == "" {
		return nil, nil
	}

	ts := n.Timestamp
	if ts.IsZero() {
		if info, err := os.Stat(path); err == nil {
			ts = info.ModTime().UTC()
		} else {
			ts = time.Now().UTC()
		}
	}

	return &types.WorkUnit{
		ID:           unitID(rel),
		Text:         text,
		ContentKind:  "note",
		SourceBucket: bucketFromPath(rel),
		Tier:         types.TierUserGenerated,
		Timestamp:    ts,
	}, nil
}

// unitID derives a stable unit identifier from the note's relative path.
func unitID(rel string) string {
	return fmt.Sprintf("note:%s", uuid.NewSHA1(unitNamespace, []byte(filepath.ToSlash(rel))))
}

// bucketFromPath maps the note's top-level directory to a source bucket.
// Root-level notes land in the "notes" bucket.
func bucketFromPath(rel string) string {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "notes"
	}
	bucket := strings.ToLower(strings.TrimSpace(parts[0]))
	bucket = strings.ReplaceAll(bucket, " ", "-")
	if bucket == "" {
		return "notes"
	}
	return bucket
}
