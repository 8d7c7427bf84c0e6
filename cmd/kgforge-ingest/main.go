// Command kgforge-ingest runs the knowledge graph construction pipeline over
// a corpus of work units.
//
// Startup sequence:
//  1. Load configuration from environment variables, optionally overlaid by
//     a YAML file, then apply command-line overrides.
//  2. Open the configured graph store (SQLite or Postgres).
//  3. Wire the LLM extraction adapter and the cached embedding provider.
//  4. Load the corpus and any compatible checkpoint, then run the
//     orchestrator until the corpus is exhausted or a permanent provider
//     error stops dispatch.
//
// With -watch the command stays resident and ingests batch files dropped
// into {data_path}/drop instead of processing a fixed corpus. With -import
// a directory of Markdown notes serves as the corpus; -emit-batch stages
// the imported units for a running watcher instead of ingesting inline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kgforge/kgforge/internal/config"
	"github.com/kgforge/kgforge/internal/embedding"
	"github.com/kgforge/kgforge/internal/importer"
	"github.com/kgforge/kgforge/internal/ingest"
	"github.com/kgforge/kgforge/internal/llm"
	"github.com/kgforge/kgforge/internal/notify"
	"github.com/kgforge/kgforge/internal/quality"
	"github.com/kgforge/kgforge/internal/resolver"
	"github.com/kgforge/kgforge/internal/storage"
	"github.com/kgforge/kgforge/internal/storage/postgres"
	"github.com/kgforge/kgforge/internal/storage/sqlite"
	"github.com/kgforge/kgforge/pkg/types"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file (optional, env vars by default)")
	corpusPath = flag.String("corpus", "", "Path to a JSONL corpus file or directory of JSONL files")
	importPath = flag.String("import", "", "Import a directory of Markdown notes as the corpus")
	emitBatch  = flag.Bool("emit-batch", false, "With -import, write the units as a drop batch for a running watcher instead of ingesting")
	watchMode  = flag.Bool("watch", false, "Watch {data_path}/drop for batch files instead of a fixed corpus")
	dryRun     = flag.Bool("dry-run", false, "Evaluate the quality gate only, persist nothing")
	force      = flag.Bool("force", false, "Reprocess units that are already indexed")
	workers    = flag.Int("workers", 0, "Worker pool size (overrides config)")
	limit      = flag.Int("limit", 0, "Process at most this many units (overrides config)")
	since      = flag.String("since", "", "Only process units with timestamps after this RFC3339 moment")
	jsonOut    = flag.Bool("json", false, "Print the final report as JSON")
)

func main() {
	flag.Parse()

	log.SetPrefix("kgforge-ingest: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if !*watchMode && *corpusPath == "" && *importPath == "" {
		fmt.Fprintln(os.Stderr, "usage: kgforge-ingest -corpus <path> | -import <dir> | -watch")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := os.MkdirAll(cfg.Storage.DataPath, 0o700); err != nil {
		log.Fatalf("failed to create data directory %q: %v", cfg.Storage.DataPath, err)
	}

	// -import -emit-batch only stages units for a running watcher; it needs
	// neither the store nor the LLM providers.
	if *importPath != "" && *emitBatch {
		units, err := importer.LoadNotesDir(*importPath)
		if err != nil {
			log.Fatalf("import failed: %v", err)
		}
		path, err := notify.NewDropWriter(cfg.Storage.DataPath).Write(units)
		if err != nil {
			log.Fatalf("failed to write drop batch: %v", err)
		}
		log.Printf("staged %d unit(s) in %s", len(units), path)
		return
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open graph store: %v", err)
	}
	defer store.Close()

	// Root context cancelled on SIGINT / SIGTERM. Cancellation stops
	// dispatch; in-flight units finish and the checkpoint is flushed.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	pipeline, err := buildPipeline(cfg, store)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}

	if *watchMode {
		runWatch(ctx, cfg, pipeline)
		return
	}

	var units []*types.WorkUnit
	if *importPath != "" {
		units, err = importer.LoadNotesDir(*importPath)
		if err != nil {
			log.Fatalf("import failed: %v", err)
		}
	} else {
		units, err = ingest.LoadCorpus(*corpusPath)
		if err != nil {
			log.Fatalf("failed to load corpus from %q: %v", *corpusPath, err)
		}
	}

	report, err := pipeline.run(ctx, cfg, units)
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}

	printReport(ctx, store, report)
	if report.StoppedEarly {
		os.Exit(1)
	}
}

// pipeline bundles the stages shared by corpus and watch modes. The
// orchestrator itself is built per run because its checkpoint manager is
// bound to a corpus size.
type pipeline struct {
	store     storage.GraphStore
	gate      *quality.Gate
	extractor llm.Extractor
	entities  *resolver.EntityResolver
	relations *resolver.RelationResolver
}

func buildPipeline(cfg *config.Config, store storage.GraphStore) (*pipeline, error) {
	generator, err := llm.NewTextGenerator(cfg.LLM)
	if err != nil {
		return nil, err
	}
	embedder, err := llm.NewEmbeddingGenerator(cfg.LLM)
	if err != nil {
		return nil, err
	}
	cached, err := embedding.NewCachedProvider(embedder, embedding.DefaultCacheSize)
	if err != nil {
		return nil, err
	}

	return &pipeline{
		store:     store,
		gate:      quality.NewGate(cfg.Resolution.QualityThreshold),
		extractor: llm.NewExtractionAdapter(generator, cfg.LLM.CharBudget),
		entities:  resolver.NewEntityResolver(store, cached, cfg.Resolution.SimilarityThreshold),
		relations: resolver.NewRelationResolver(store),
	}, nil
}

// run executes one orchestrator pass over units with a checkpoint manager
// sized to this corpus.
func (p *pipeline) run(ctx context.Context, cfg *config.Config, units []*types.WorkUnit) (*types.IngestReport, error) {
	checkpointDir := filepath.Join(cfg.Storage.DataPath, "checkpoints")
	checkpoints, err := ingest.NewCheckpointManager(checkpointDir, cfg, len(units))
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint directory: %w", err)
	}

	orch := ingest.NewOrchestrator(p.store, p.gate, p.extractor, p.entities, p.relations, checkpoints, cfg.Ingest)
	return orch.Run(ctx, units)
}

// runWatch blocks ingesting batch files as they appear in the drop
// directory. Each claimed batch runs as its own orchestrator pass; a
// permanent provider error stops the watcher as well.
func runWatch(ctx context.Context, cfg *config.Config, p *pipeline) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watcher := notify.NewDropWatcher(cfg.Storage.DataPath, func(path string) {
		units, err := ingest.LoadCorpus(path)
		if err != nil {
			log.Printf("failed to load batch %s: %v", path, err)
			return
		}
		log.Printf("ingesting batch %s (%d units)", filepath.Base(path), len(units))

		report, err := p.run(ctx, cfg, units)
		if err != nil {
			log.Printf("batch %s failed: %v", filepath.Base(path), err)
			return
		}
		log.Printf("batch %s done: processed=%d skipped=%d failed=%d",
			filepath.Base(path), report.UnitsProcessed, report.UnitsSkipped, report.UnitsFailed)
		if err := os.Remove(path); err != nil {
			log.Printf("failed to remove consumed batch %s: %v", path, err)
		}
		if report.StoppedEarly {
			log.Printf("stopping watcher: %s", report.StopCause)
			cancel()
		}
	})

	if err := watcher.Start(); err != nil {
		log.Fatalf("failed to start drop watcher: %v", err)
	}
	defer watcher.Stop()

	log.Printf("watching %s for batch files", filepath.Join(cfg.Storage.DataPath, "drop"))
	<-ctx.Done()
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.LoadConfigFile(*configPath)
	}
	return config.LoadConfig()
}

// applyOverrides maps command-line flags onto the loaded config. Flags win
// over both environment and file values.
func applyOverrides(cfg *config.Config) {
	if *dryRun {
		cfg.Ingest.DryRun = true
	}
	if *force {
		cfg.Ingest.ForceReindex = true
	}
	if *workers > 0 {
		cfg.Ingest.Workers = *workers
	}
	if *limit > 0 {
		cfg.Ingest.Limit = *limit
	}
	if *since != "" {
		t, err := time.Parse(time.RFC3339, *since)
		if err != nil {
			log.Fatalf("invalid -since value %q: %v", *since, err)
		}
		cfg.Ingest.Since = t
	}
}

func openStore(cfg *config.Config) (storage.GraphStore, error) {
	switch cfg.Storage.Engine {
	case "postgres":
		return postgres.NewGraphStore(cfg.Storage.PostgresDSN)
	default:
		return sqlite.NewGraphStore(filepath.Join(cfg.Storage.DataPath, "kgforge.db"))
	}
}

func printReport(ctx context.Context, store storage.GraphStore, report *types.IngestReport) {
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Fatalf("failed to encode report: %v", err)
		}
		return
	}

	fmt.Printf("Ingest finished in %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Printf("  Units:     %d total, %d processed, %d skipped, %d failed, %d not attempted\n",
		report.UnitsTotal, report.UnitsProcessed, report.UnitsSkipped, report.UnitsFailed, report.UnitsNotTried)
	fmt.Printf("  Entities:  %d created, %d deduplicated, %d candidates rejected\n",
		report.EntitiesCreated, report.EntitiesDedup, report.CandidatesRejected)
	fmt.Printf("  Mentions:  %d created\n", report.MentionsCreated)
	fmt.Printf("  Relations: %d created\n", report.RelationsCreated)

	if report.StoppedEarly {
		fmt.Printf("  Stopped early: %s\n", report.StopCause)
		fmt.Println("  Re-run with the same corpus to resume; indexed units are skipped.")
	}

	if stats, err := store.Stats(ctx); err == nil {
		fmt.Printf("  Graph now:  %d entities, %d mentions, %d relations across %d units\n",
			stats.Entities, stats.Mentions, stats.Relations, stats.UnitsIndexed)
	}
}
