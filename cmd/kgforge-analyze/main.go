// Command kgforge-analyze runs offline maintenance over a constructed
// knowledge graph: embedding-based merge scans, density clustering, and
// graph statistics. It operates directly on the store and never calls an
// LLM provider.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kgforge/kgforge/internal/analytics"
	"github.com/kgforge/kgforge/internal/config"
	"github.com/kgforge/kgforge/internal/storage"
	"github.com/kgforge/kgforge/internal/storage/postgres"
	"github.com/kgforge/kgforge/internal/storage/sqlite"
	"github.com/kgforge/kgforge/pkg/types"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file (optional, env vars by default)")
	mergeScan  = flag.Bool("merge-scan", false, "Scan for near-duplicate entities and exit")
	applyFlag  = flag.Bool("apply", false, "Apply the merges found by -merge-scan")
	threshold  = flag.Float64("threshold", 0, "Similarity threshold for -merge-scan (overrides config)")
	clusterCmd = flag.Bool("cluster", false, "Cluster entity embeddings and exit")
	entityType = flag.String("type", "", "Entity type to cluster (tool, pattern, problem, concept, person, project, workflow, other)")
	eps        = flag.Float64("eps", 0.25, "Maximum cosine distance between cluster neighbors")
	minPoints  = flag.Int("min-points", 3, "Minimum neighborhood size for a cluster core point")
	statsCmd   = flag.Bool("stats", false, "Print graph statistics and exit")
	jsonOut    = flag.Bool("json", false, "Print results as JSON")
)

func main() {
	flag.Parse()

	log.SetPrefix("kgforge-analyze: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to open graph store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	switch {
	case *mergeScan:
		handleMergeScan(ctx, store, cfg)
	case *clusterCmd:
		handleCluster(ctx, store, cfg)
	case *statsCmd:
		handleStats(ctx, store)
	default:
		fmt.Fprintln(os.Stderr, "usage: kgforge-analyze -merge-scan [-apply] | -cluster -type <type> | -stats")
		flag.PrintDefaults()
		os.Exit(2)
	}
}

func handleMergeScan(ctx context.Context, store storage.GraphStore, cfg *config.Config) {
	t := cfg.Resolution.SimilarityThreshold
	if *threshold > 0 {
		t = *threshold
	}

	scanner := analytics.NewScanner(store, t)
	candidates, err := scanner.ScanMergeCandidates(ctx)
	if err != nil {
		log.Fatalf("merge scan failed: %v", err)
	}

	if *jsonOut {
		printJSON(candidates)
	} else if len(candidates) == 0 {
		fmt.Printf("No merge candidates at threshold %.2f\n", t)
	} else {
		fmt.Printf("Found %d merge candidate(s) at threshold %.2f:\n\n", len(candidates), t)
		for i, c := range candidates {
			fmt.Printf("%d. [%s] %q -> %q (similarity %.3f)\n", i+1, c.Type, c.SourceName, c.TargetName, c.Similarity)
		}
	}

	if !*applyFlag || len(candidates) == 0 {
		return
	}

	applied, err := scanner.ApplyMerges(ctx, candidates)
	if err != nil {
		log.Fatalf("merge apply failed: %v", err)
	}
	fmt.Printf("\nApplied %d merge(s)\n", applied)
}

func handleCluster(ctx context.Context, store storage.GraphStore, cfg *config.Config) {
	t := types.EntityType(*entityType)
	if !types.ValidEntityTypes[t] {
		log.Fatalf("-cluster requires a valid -type, got %q", *entityType)
	}

	scanner := analytics.NewScanner(store, cfg.Resolution.SimilarityThreshold)
	clusters, err := scanner.ClusterEmbeddings(ctx, t, *eps, *minPoints)
	if err != nil {
		log.Fatalf("clustering failed: %v", err)
	}

	if *jsonOut {
		out := make([][]string, len(clusters))
		for i, c := range clusters {
			out[i] = c.Names()
		}
		printJSON(out)
		return
	}

	if len(clusters) == 0 {
		fmt.Printf("No clusters of %s entities at eps=%.2f min-points=%d\n", t, *eps, *minPoints)
		return
	}
	fmt.Printf("Found %d cluster(s) of %s entities:\n\n", len(clusters), t)
	for i, c := range clusters {
		names := c.Names()
		fmt.Printf("%d. %d members: %v\n", i+1, len(names), names)
	}
}

func handleStats(ctx context.Context, store storage.GraphStore) {
	stats, err := store.Stats(ctx)
	if err != nil {
		log.Fatalf("failed to read stats: %v", err)
	}

	if *jsonOut {
		printJSON(stats)
		return
	}
	fmt.Printf("Entities:      %d\n", stats.Entities)
	fmt.Printf("Mentions:      %d\n", stats.Mentions)
	fmt.Printf("Relations:     %d\n", stats.Relations)
	fmt.Printf("Units indexed: %d\n", stats.UnitsIndexed)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("failed to encode output: %v", err)
	}
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.LoadConfigFile(*configPath)
	}
	return config.LoadConfig()
}

func openStore(cfg *config.Config) (storage.GraphStore, error) {
	switch cfg.Storage.Engine {
	case "postgres":
		return postgres.NewGraphStore(cfg.Storage.PostgresDSN)
	default:
		return sqlite.NewGraphStore(filepath.Join(cfg.Storage.DataPath, "kgforge.db"))
	}
}
