package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgforge/kgforge/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Storage:    config.StorageConfig{Engine: "sqlite"},
		LLM:        config.LLMConfig{Provider: "ollama", OllamaModel: "qwen2.5:7b"},
		Ingest:     config.IngestConfig{Relations: true},
		Resolution: config.ResolutionConfig{QualityThreshold: 0.30, SimilarityThreshold: 0.85},
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()

	m, err := NewCheckpointManager(dir, cfg, 100)
	require.NoError(t, err)

	require.NoError(t, m.Flush([]string{"unit-1", "unit-2"}))

	resumed, err := NewCheckpointManager(dir, cfg, 100)
	require.NoError(t, err)
	done := resumed.Load()
	assert.True(t, done["unit-1"])
	assert.True(t, done["unit-2"])
	assert.Len(t, done, 2)
}

func TestCheckpointIgnoresIncompatible(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()

	m, err := NewCheckpointManager(dir, cfg, 100)
	require.NoError(t, err)
	require.NoError(t, m.Flush([]string{"unit-1"}))

	// Different corpus size: ignored.
	bigger, err := NewCheckpointManager(dir, cfg, 200)
	require.NoError(t, err)
	assert.Empty(t, bigger.Load())

	// Different configuration: ignored.
	changed := testConfig()
	changed.Resolution.SimilarityThreshold = 0.95
	other, err := NewCheckpointManager(dir, changed, 100)
	require.NoError(t, err)
	assert.Empty(t, other.Load())
}

func TestCheckpointIgnoresCorruptFile(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()

	m, err := NewCheckpointManager(dir, cfg, 100)
	require.NoError(t, err)
	require.NoError(t, m.Flush([]string{"unit-1"}))

	// A newer corrupt file must not shadow the good one.
	corrupt := filepath.Join(dir, "checkpoint-99999999-999999.999999999.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))

	done := m.Load()
	assert.True(t, done["unit-1"])
}

func TestCheckpointRetention(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()

	m, err := NewCheckpointManager(dir, cfg, 100)
	require.NoError(t, err)

	for i := 0; i < checkpointKeep+3; i++ {
		require.NoError(t, m.Flush([]string{"unit-1"}))
		time.Sleep(2 * time.Millisecond) // distinct timestamped names
	}

	files, err := m.listCheckpoints()
	require.NoError(t, err)
	assert.Len(t, files, checkpointKeep)
}

func TestConfigFingerprintStability(t *testing.T) {
	a := ConfigFingerprint(testConfig())
	b := ConfigFingerprint(testConfig())
	assert.Equal(t, a, b)

	changed := testConfig()
	changed.Ingest.Relations = false
	assert.NotEqual(t, a, ConfigFingerprint(changed))
}
