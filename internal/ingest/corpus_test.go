package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgforge/kgforge/pkg/types"
)

func writeCorpusFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCorpusSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpusFile(t, dir, "units.jsonl", `
{"id":"unit-1","text":"first unit","source_bucket":"primary","timestamp":"2026-08-01T10:00:00Z"}
{"id":"unit-2","text":"second unit","source_bucket":"secondary","tier":"user-generated","timestamp":"2026-08-01T11:00:00Z"}
`)

	units, err := LoadCorpus(path)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "unit-1", units[0].ID)
	assert.Equal(t, types.TierHighFidelity, units[0].Tier, "tier defaults when absent")
	assert.Equal(t, types.TierUserGenerated, units[1].Tier)
	assert.Equal(t, "secondary", units[1].SourceBucket)
}

func TestLoadCorpusDirectorySortedAndDeduplicated(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, dir, "b.jsonl", `{"id":"unit-3","text":"from later file","timestamp":"2026-08-01T10:00:00Z"}`)
	writeCorpusFile(t, dir, "a.jsonl", `
{"id":"unit-1","text":"from earlier file","timestamp":"2026-08-01T10:00:00Z"}
{"id":"unit-3","text":"from earlier file","timestamp":"2026-08-01T10:00:00Z"}
`)
	writeCorpusFile(t, dir, "notes.txt", "not a corpus file")

	units, err := LoadCorpus(dir)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "unit-1", units[0].ID)
	assert.Equal(t, "unit-3", units[1].ID)
	assert.Equal(t, "from earlier file", units[1].Text, "first occurrence wins")
}

func TestLoadCorpusDropsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := writeCorpusFile(t, dir, "units.jsonl", `
{"id":"unit-1","text":"good","timestamp":"2026-08-01T10:00:00Z"}
{this is not json}
{"id":"","text":"missing id","timestamp":"2026-08-01T10:00:00Z"}
{"id":"unit-2","text":"  ","timestamp":"2026-08-01T10:00:00Z"}
{"id":"unit-3","text":"also good","timestamp":"2026-08-01T10:00:00Z"}
`)

	units, err := LoadCorpus(path)
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Equal(t, "unit-1", units[0].ID)
	assert.Equal(t, "unit-3", units[1].ID)
}

func TestLoadCorpusEmptyDirectoryFails(t *testing.T) {
	_, err := LoadCorpus(t.TempDir())
	assert.Error(t, err)
}
