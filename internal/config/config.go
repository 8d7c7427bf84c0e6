// Package config provides configuration management for kgforge.
// It loads settings from environment variables with the KGFORGE_ prefix,
// optionally overlaid by a YAML file, and provides sensible defaults for
// every option. Thresholds are configuration on purpose: the similarity and
// quality defaults below are tuned empirically and do not generalize to
// other corpora without re-validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the kgforge engine.
type Config struct {
	Storage    StorageConfig    `yaml:"storage"`
	LLM        LLMConfig        `yaml:"llm"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Resolution ResolutionConfig `yaml:"resolution"`
}

// StorageConfig contains database and checkpoint configuration.
type StorageConfig struct {
	// Engine selects the storage backend: sqlite or postgres (default: sqlite).
	Engine string `yaml:"engine"`

	// DataPath is the data directory for SQLite files and checkpoints
	// (default: ./data).
	DataPath string `yaml:"data_path"`

	// PostgresDSN is the connection string when Engine is postgres.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// LLMConfig contains extraction and embedding provider configuration.
type LLMConfig struct {
	Provider             string `yaml:"provider"`               // ollama, openai, anthropic (default: ollama)
	OllamaURL            string `yaml:"ollama_url"`             // default: http://localhost:11434
	OllamaModel          string `yaml:"ollama_model"`           // default: qwen2.5:7b
	OllamaEmbeddingModel string `yaml:"ollama_embedding_model"` // default: nomic-embed-text
	OpenAIAPIKey         string `yaml:"openai_api_key"`
	OpenAIModel          string `yaml:"openai_model"` // default: gpt-4o-mini
	AnthropicAPIKey      string `yaml:"anthropic_api_key"`
	AnthropicModel       string `yaml:"anthropic_model"` // default: claude-haiku-4-5-20251001

	// CharBudget bounds text sent per extraction call (default: 24000 chars).
	CharBudget int `yaml:"char_budget"`
}

// IngestConfig contains orchestrator configuration.
type IngestConfig struct {
	// Workers is the worker pool size (default: 4).
	Workers int `yaml:"workers"`

	// DryRun evaluates the quality gate without extraction or persistence.
	DryRun bool `yaml:"dry_run"`

	// ForceReindex disables the skip-if-indexed probe so already-processed
	// units run again.
	ForceReindex bool `yaml:"force_reindex"`

	// Relations toggles relation extraction (default: true).
	Relations bool `yaml:"relations"`

	// MaxRetries bounds transient-failure retries per unit (default: 3).
	MaxRetries int `yaml:"max_retries"`

	// RetryBaseDelay is the first backoff delay (default: 500ms). Delays
	// double per attempt up to RetryMaxDelay.
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// RetryMaxDelay caps the backoff delay (default: 15s).
	RetryMaxDelay time.Duration `yaml:"retry_max_delay"`

	// CheckpointEvery is the number of completed units between checkpoint
	// flushes (default: 25).
	CheckpointEvery int `yaml:"checkpoint_every"`

	// Limit caps how many units are processed this run; 0 means no cap.
	Limit int `yaml:"limit"`

	// Since restricts the corpus to units with timestamps after this
	// moment. Zero means no window.
	Since time.Time `yaml:"since"`

	// KnownBadUnits are unit IDs skipped unconditionally (units previously
	// found to exceed size or processing limits).
	KnownBadUnits []string `yaml:"known_bad_units"`
}

// ResolutionConfig contains resolver thresholds.
type ResolutionConfig struct {
	// QualityThreshold is the minimum quality-gate score for a unit to be
	// indexed (default: 0.30).
	QualityThreshold float64 `yaml:"quality_threshold"`

	// SimilarityThreshold is the minimum cosine similarity for an
	// embedding-stage entity match (default: 0.85).
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

// LoadConfig loads configuration from environment variables with defaults.
func LoadConfig() (*Config, error) {
	return buildBaseConfig(), nil
}

// LoadConfigFile loads configuration from environment variables and then
// overlays values from the YAML file at path. File values win over
// environment values; absent file keys keep the env/default value.
func LoadConfigFile(path string) (*Config, error) {
	cfg := buildBaseConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	if c.Storage.Engine != "sqlite" && c.Storage.Engine != "postgres" {
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.Engine)
	}
	if c.Storage.Engine == "postgres" && c.Storage.PostgresDSN == "" {
		return fmt.Errorf("config: postgres engine requires KGFORGE_POSTGRES_DSN")
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("config: worker count must be at least 1")
	}
	if c.Resolution.QualityThreshold < 0 || c.Resolution.QualityThreshold > 1 {
		return fmt.Errorf("config: quality threshold must be in [0, 1]")
	}
	if c.Resolution.SimilarityThreshold < 0 || c.Resolution.SimilarityThreshold > 1 {
		return fmt.Errorf("config: similarity threshold must be in [0, 1]")
	}
	return nil
}

// buildBaseConfig constructs a Config from environment variables and
// defaults.
func buildBaseConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Engine:      getEnv("KGFORGE_STORAGE_ENGINE", "sqlite"),
			DataPath:    getEnv("KGFORGE_DATA_PATH", "./data"),
			PostgresDSN: getEnv("KGFORGE_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			Provider:             getEnv("KGFORGE_LLM_PROVIDER", "ollama"),
			OllamaURL:            getEnv("KGFORGE_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:          getEnv("KGFORGE_OLLAMA_MODEL", "qwen2.5:7b"),
			OllamaEmbeddingModel: getEnv("KGFORGE_EMBEDDING_MODEL", "nomic-embed-text"),
			OpenAIAPIKey:         getEnv("KGFORGE_OPENAI_API_KEY", ""),
			OpenAIModel:          getEnv("KGFORGE_OPENAI_MODEL", "gpt-4o-mini"),
			AnthropicAPIKey:      getEnv("KGFORGE_ANTHROPIC_API_KEY", ""),
			AnthropicModel:       getEnv("KGFORGE_ANTHROPIC_MODEL", "claude-haiku-4-5-20251001"),
			CharBudget:           getEnvInt("KGFORGE_CHAR_BUDGET", 24000),
		},
		Ingest: IngestConfig{
			Workers:         getEnvInt("KGFORGE_WORKERS", 4),
			DryRun:          getEnvBool("KGFORGE_DRY_RUN", false),
			ForceReindex:    getEnvBool("KGFORGE_FORCE_REINDEX", false),
			Relations:       getEnvBool("KGFORGE_RELATIONS", true),
			MaxRetries:      getEnvInt("KGFORGE_MAX_RETRIES", 3),
			RetryBaseDelay:  getEnvDuration("KGFORGE_RETRY_BASE_DELAY", 500*time.Millisecond),
			RetryMaxDelay:   getEnvDuration("KGFORGE_RETRY_MAX_DELAY", 15*time.Second),
			CheckpointEvery: getEnvInt("KGFORGE_CHECKPOINT_EVERY", 25),
			Limit:           getEnvInt("KGFORGE_LIMIT", 0),
			KnownBadUnits:   getEnvList("KGFORGE_KNOWN_BAD_UNITS"),
		},
		Resolution: ResolutionConfig{
			QualityThreshold:    getEnvFloat("KGFORGE_QUALITY_THRESHOLD", 0.30),
			SimilarityThreshold: getEnvFloat("KGFORGE_SIMILARITY_THRESHOLD", 0.85),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value when unset or unparseable.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default
// value when unset or unparseable.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" and "false", "0", "no"
// case-insensitively.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable (Go duration
// syntax, e.g. "500ms") or returns a default value.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList retrieves a comma-separated environment variable as a slice,
// trimming whitespace and dropping empties.
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
