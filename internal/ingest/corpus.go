package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kgforge/kgforge/pkg/types"
)

// maxUnitLineBytes bounds a single corpus line. Units larger than this are
// rejected at load time rather than truncated mid-record.
const maxUnitLineBytes = 4 * 1024 * 1024

// LoadCorpus reads work units from path. A directory is scanned for .jsonl
// files (sorted by name); a single file is read directly. Each line is one
// JSON-encoded WorkUnit. Malformed lines and units without an ID are logged
// and dropped; they never fail the load.
func LoadCorpus(path string) ([]*types.WorkUnit, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to stat corpus path: %w", err)
	}

	var files []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("ingest: failed to read corpus directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".jsonl") {
				continue
			}
			files = append(files, filepath.Join(path, entry.Name()))
		}
		sort.Strings(files)
		if len(files) == 0 {
			return nil, fmt.Errorf("ingest: no .jsonl files in corpus directory %s", path)
		}
	} else {
		files = []string{path}
	}

	var units []*types.WorkUnit
	seen := make(map[string]bool)
	for _, file := range files {
		loaded, err := loadCorpusFile(file, seen)
		if err != nil {
			return nil, err
		}
		units = append(units, loaded...)
	}
	return units, nil
}

func loadCorpusFile(path string, seen map[string]bool) ([]*types.WorkUnit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to open corpus file: %w", err)
	}
	defer f.Close()

	var units []*types.WorkUnit
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxUnitLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var unit types.WorkUnit
		if err := json.Unmarshal([]byte(line), &unit); err != nil {
			log.Printf("ingest: %s:%d: dropping malformed unit: %v", filepath.Base(path), lineNo, err)
			continue
		}
		if unit.ID == "" || strings.TrimSpace(unit.Text) == "" {
			log.Printf("ingest: %s:%d: dropping unit without ID or text", filepath.Base(path), lineNo)
			continue
		}
		if seen[unit.ID] {
			continue
		}
		seen[unit.ID] = true

		if unit.SourceBucket == "" {
			unit.SourceBucket = "primary"
		}
		if unit.Tier == "" {
			unit.Tier = types.TierHighFidelity
		}
		units = append(units, &unit)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ingest: failed to read %s: %w", path, err)
	}
	return units, nil
}
