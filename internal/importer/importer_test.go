package importer_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kgforge/kgforge/internal/importer"
	"github.com/kgforge/kgforge/pkg/types"
)

// writeNote writes a note file, creating parent directories as needed.
func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func TestLoadNotesDir(t *testing.T) {
	vault := t.TempDir()

	writeNote(t, vault, "tooling/vite-setup.md", `---
title: Vite Setup
tags: [frontend, build-tools]
date: 2026-03-01
---

We migrated from [[Webpack]] to [[Vite|the Vite bundler]] for faster builds. #devex
`)
	writeNote(t, vault, "journal.md", "# Journal\n\nPlain note without frontmatter.\n")
	writeNote(t, vault, ".obsidian/workspace.md", "internal state, never imported")
	writeNote(t, vault, "templates/daily.md", "# Daily template")
	writeNote(t, vault, "tooling/empty.md", "")
	writeNote(t, vault, "tooling/readme.txt", "not markdown")

	units, err := importer.LoadNotesDir(vault)
	if err != nil {
		t.Fatalf("LoadNotesDir failed: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}

	byBucket := make(map[string]*types.WorkUnit)
	for _, u := range units {
		byBucket[u.SourceBucket] = u
	}

	tooling := byBucket["tooling"]
	if tooling == nil {
		t.Fatal("expected a unit in the tooling bucket")
	}
	if tooling.ContentKind != "note" || tooling.Tier != types.TierUserGenerated {
		t.Errorf("unexpected kind/tier: %q / %q", tooling.ContentKind, tooling.Tier)
	}
	if !strings.HasPrefix(tooling.ID, "note:") {
		t.Errorf("expected note-scoped ID, got %q", tooling.ID)
	}
	want := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	if !tooling.Timestamp.Equal(want) {
		t.Errorf("expected frontmatter date %v, got %v", want, tooling.Timestamp)
	}

	// Wiki links are flattened in the body and surfaced as context lines.
	if strings.Contains(tooling.Text, "[[") {
		t.Errorf("wiki link syntax leaked into unit text:\n%s", tooling.Text)
	}
	if !strings.Contains(tooling.Text, "the Vite bundler") {
		t.Errorf("aliased link should render its alias:\n%s", tooling.Text)
	}
	if !strings.Contains(tooling.Text, "Linked notes: Webpack, Vite") {
		t.Errorf("missing linked-notes context line:\n%s", tooling.Text)
	}
	if !strings.Contains(tooling.Text, "Tags: frontend, build-tools, devex") {
		t.Errorf("missing merged tags line:\n%s", tooling.Text)
	}

	journal := byBucket["notes"]
	if journal == nil {
		t.Fatal("expected the root-level note in the notes bucket")
	}
	if !strings.HasPrefix(journal.Text, "# Journal") {
		t.Errorf("H1 title should not be duplicated:\n%s", journal.Text)
	}
}

func TestLoadNotesDirDropsContentlessNotes(t *testing.T) {
	vault := t.TempDir()
	writeNote(t, vault, "keep.md", "# Keep\n\nActual prose.\n")
	writeNote(t, vault, "blank.md", "")
	// A frontmatter title with no body is still contentless; the derived
	// heading alone must not become a unit.
	writeNote(t, vault, "title-only.md", "---\ntitle: Title Only\n---\n")

	units, err := importer.LoadNotesDir(vault)
	if err != nil {
		t.Fatalf("LoadNotesDir failed: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected 1 unit, got %d", len(units))
	}
	if !strings.HasPrefix(units[0].Text, "# Keep") {
		t.Errorf("wrong note survived:\n%s", units[0].Text)
	}
}

func TestLoadNotesDirStableIDs(t *testing.T) {
	vault := t.TempDir()
	writeNote(t, vault, "a.md", "# A\n\nfirst pass")

	first, err := importer.LoadNotesDir(vault)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}

	// Content changes must not change the ID; identity follows the path.
	writeNote(t, vault, "a.md", "# A\n\nedited later")
	second, err := importer.LoadNotesDir(vault)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}

	if first[0].ID != second[0].ID {
		t.Errorf("unit ID changed across imports: %q vs %q", first[0].ID, second[0].ID)
	}
}

func TestLoadNotesDirEmptyVault(t *testing.T) {
	if _, err := importer.LoadNotesDir(t.TempDir()); err == nil {
		t.Fatal("expected an error for a vault with no notes")
	}
}
