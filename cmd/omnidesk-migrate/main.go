package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/omniretail/omnidesk/internal/config"
	"github.com/omniretail/omnidesk/internal/migrations"
	"github.com/omniretail/omnidesk/internal/store"
	"github.com/omniretail/omnidesk/internal/store/parquetdb"
	"github.com/omniretail/omnidesk/internal/store/registry"
)

func main() {
	storeName := flag.String("store", "", "store to migrate; empty means every SQL store")
	direction := flag.String("direction", "up", "migration direction: up|down")
	steps := flag.Int("steps", 0, "number of migration steps; 0 means all for up, 1 for down")
	flag.Parse()

	cfg, err := config.LoadFromEnv("omnidesk-migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if *direction != "up" && *direction != "down" {
		fmt.Fprintf(os.Stderr, "invalid direction: %s\n", *direction)
		os.Exit(2)
	}
	defs, err := registry.Definitions(cfg.Stores)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store registry error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	matched := false
	for _, def := range defs {
		if def.Driver == parquetdb.Driver || (*storeName != "" && def.Name != *storeName) {
			continue
		}
		matched = true
		if err := migrate(ctx, def, *direction, *steps); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", def.Name, err)
			os.Exit(1)
		}
	}
	if !matched {
		fmt.Fprintf(os.Stderr, "no SQL store named %q\n", *storeName)
		os.Exit(1)
	}
}

func migrate(ctx context.Context, def store.Definition, direction string, steps int) error {
	runner, err := migrations.NewRunner(def.Name)
	if err != nil {
		return err
	}
	db, err := sql.Open(def.Driver, def.DSN)
	if err != nil {
		return fmt.Errorf("database open error: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping error: %w", err)
	}

	if direction == "up" {
		applied, err := runner.Up(ctx, db, steps)
		if err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
		fmt.Printf("%s: applied %d migration(s)\n", def.Name, applied)
		return nil
	}
	rolled, err := runner.Down(ctx, db, steps)
	if err != nil {
		return fmt.Errorf("migration down failed: %w", err)
	}
	fmt.Printf("%s: rolled back %d migration(s)\n", def.Name, rolled)
	return nil
}
