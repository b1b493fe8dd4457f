package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/omniretail/omnidesk/internal/config"
	"github.com/omniretail/omnidesk/internal/fixtures"
	"github.com/omniretail/omnidesk/internal/observability"
	"github.com/omniretail/omnidesk/internal/storage"
	s3store "github.com/omniretail/omnidesk/internal/storage/s3"
	"github.com/omniretail/omnidesk/internal/store"
	"github.com/omniretail/omnidesk/internal/store/parquetdb"
	"github.com/omniretail/omnidesk/internal/store/registry"
)

func main() {
	target := flag.String("target", "sqlite", "seed target: sqlite|registry|parquet")
	reset := flag.Bool("reset", false, "replace existing data")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall seeding timeout")
	flag.Parse()

	cfg, err := config.LoadFromEnv("omnidesk-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stderr)

	dataset, err := fixtures.NewGenerator(cfg.Seed).Generate()
	if err != nil {
		logger.Error("failed to generate fixtures", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var counts map[string]int
	switch *target {
	case "sqlite":
		defs := registry.Defaults(cfg.Stores.DataDir)
		names := make([]string, 0, len(defs))
		for _, def := range defs {
			names = append(names, def.Name)
		}
		counts, err = fixtures.SeedSQLite(ctx, cfg.Stores.DataDir, names, dataset, *reset)
	case "registry":
		var defs []store.Definition
		defs, err = registry.Definitions(cfg.Stores)
		if err == nil {
			counts, err = seedDefinitions(ctx, cfg, defs, dataset, *reset)
		}
	case "parquet":
		defs := registry.Defaults(cfg.Stores.DataDir)
		for i := range defs {
			defs[i].Driver = parquetdb.Driver
			defs[i].DSN = ""
		}
		counts, err = seedDefinitions(ctx, cfg, defs, dataset, *reset)
	default:
		fmt.Fprintf(os.Stderr, "invalid target: %s\n", *target)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("seeding failed", slog.String("target", *target), slog.Any("error", err))
		os.Exit(1)
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s: %d\n", name, counts[name])
	}
}

func seedDefinitions(ctx context.Context, cfg config.Config, defs []store.Definition, d fixtures.Dataset, reset bool) (map[string]int, error) {
	var objects storage.ObjectStore
	if registry.NeedsObjectStore(defs) {
		bucket, err := s3store.Open(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("initialize object store: %w", err)
		}
		objects = bucket
	}
	return fixtures.SeedRegistry(ctx, defs, objects, d, reset)
}
