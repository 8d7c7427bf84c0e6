// Command kgforge-backup snapshots the SQLite graph database on a schedule,
// or performs one-off snapshot, list, and restore operations. It only
// applies to the sqlite storage engine; Postgres deployments use their own
// backup tooling.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/kgforge/kgforge/internal/backup"
	"github.com/kgforge/kgforge/internal/config"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file (optional, env vars by default)")
	dbPath     = flag.String("db", "", "Path to the graph database (overrides config)")
	snapDir    = flag.String("snapshot-dir", "", "Snapshot directory (default: {data_path}/snapshots)")
	keep       = flag.Int("keep", backup.DefaultKeep, "Number of snapshots to retain")
	interval   = flag.Duration("interval", time.Hour, "Snapshot interval for continuous mode")
	oneshot    = flag.Bool("oneshot", false, "Take a single snapshot and exit")
	listCmd    = flag.Bool("list", false, "List snapshots and exit")
	restore    = flag.String("restore", "", "Restore the database from this snapshot and exit")
)

func main() {
	flag.Parse()

	log.SetPrefix("kgforge-backup: ")
	log.SetFlags(log.LstdFlags)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Engine != "sqlite" {
		log.Fatalf("snapshots only apply to the sqlite engine, config has %q", cfg.Storage.Engine)
	}

	db := filepath.Join(cfg.Storage.DataPath, "kgforge.db")
	if *dbPath != "" {
		db = *dbPath
	}
	dir := filepath.Join(cfg.Storage.DataPath, "snapshots")
	if *snapDir != "" {
		dir = *snapDir
	}

	manager, err := backup.NewManager(db, dir, *keep)
	if err != nil {
		log.Fatalf("failed to create snapshot manager: %v", err)
	}

	ctx := context.Background()

	switch {
	case *restore != "":
		if err := manager.Restore(ctx, *restore); err != nil {
			log.Fatalf("restore failed: %v", err)
		}
		log.Printf("restored %s from %s", db, *restore)
	case *listCmd:
		handleList(manager)
	case *oneshot:
		takeOne(ctx, manager)
	default:
		runService(ctx, manager)
	}
}

func handleList(manager *backup.Manager) {
	snaps, err := manager.List()
	if err != nil {
		log.Fatalf("failed to list snapshots: %v", err)
	}
	if len(snaps) == 0 {
		fmt.Println("No snapshots found")
		return
	}
	fmt.Printf("Found %d snapshot(s):\n", len(snaps))
	for i, s := range snaps {
		fmt.Printf("%d. %s  %.2f MB  %s (%s ago)\n", i+1, s.Path,
			float64(s.Size)/(1024*1024),
			s.CreatedAt.Format(time.RFC3339),
			time.Since(s.CreatedAt).Round(time.Minute))
	}
}

func takeOne(ctx context.Context, manager *backup.Manager) {
	start := time.Now()
	snap, err := manager.Take(ctx)
	if err != nil {
		log.Fatalf("snapshot failed: %v", err)
	}
	log.Printf("snapshot %s (%.2f MB) taken in %v", snap.Path,
		float64(snap.Size)/(1024*1024), time.Since(start).Round(time.Millisecond))
}

func runService(ctx context.Context, manager *backup.Manager) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("received shutdown signal")
		cancel()
	}()

	log.Printf("snapshotting every %v", *interval)
	takeOne(ctx, manager)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if snap, err := manager.Take(ctx); err != nil {
				log.Printf("scheduled snapshot failed: %v", err)
			} else {
				log.Printf("snapshot %s (%.2f MB)", snap.Path, float64(snap.Size)/(1024*1024))
			}
		}
	}
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.LoadConfigFile(*configPath)
	}
	return config.LoadConfig()
}
