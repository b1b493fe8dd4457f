package fixtures

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/omniretail/omnidesk/internal/migrations"
	"github.com/omniretail/omnidesk/internal/storage"
	"github.com/omniretail/omnidesk/internal/store"
	"github.com/omniretail/omnidesk/internal/store/parquetdb"
	"github.com/omniretail/omnidesk/internal/store/registry"
	"github.com/omniretail/omnidesk/internal/store/sqldb"
)

// SeedDatabase migrates one store's database and loads its fixtures. With
// reset, every applied migration is rolled back first.
func SeedDatabase(ctx context.Context, db *sql.DB, storeName string, d Dataset, reset bool) (int, error) {
	runner, err := migrations.NewRunner(storeName)
	if err != nil {
		return 0, err
	}
	if reset {
		if _, err := runner.Down(ctx, db, math.MaxInt32); err != nil {
			return 0, fmt.Errorf("reset %s: %w", storeName, err)
		}
	}
	if _, err := runner.Up(ctx, db, 0); err != nil {
		return 0, fmt.Errorf("migrate %s: %w", storeName, err)
	}
	return Load(ctx, db, storeName, d)
}

// SeedSQLite writes DB_<store>.db for each store under dataDir. Existing
// files are replaced when reset is set and rejected otherwise.
func SeedSQLite(ctx context.Context, dataDir string, storeNames []string, d Dataset, reset bool) (map[string]int, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	counts := make(map[string]int, len(storeNames))
	for _, name := range storeNames {
		path := registry.SQLitePath(dataDir, name)
		if _, err := os.Stat(path); err == nil {
			if !reset {
				return nil, fmt.Errorf("%s already exists (use reset to replace it)", path)
			}
			if err := os.Remove(path); err != nil {
				return nil, fmt.Errorf("remove %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		count, err := seedSQLiteFile(ctx, path, name, d)
		if err != nil {
			return nil, err
		}
		counts[name] = count
	}
	return counts, nil
}

func seedSQLiteFile(ctx context.Context, path, storeName string, d Dataset) (int, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)
	return SeedDatabase(ctx, db, storeName, d, false)
}

// SeedRegistry loads d into every store in defs: SQL stores are migrated and
// filled in place, parquet stores are exported to objects. With reset, parquet
// snapshots left under a store's prefix are removed before the export.
func SeedRegistry(ctx context.Context, defs []store.Definition, objects storage.ObjectStore, d Dataset, reset bool) (map[string]int, error) {
	counts := make(map[string]int, len(defs))
	for _, def := range defs {
		switch def.Driver {
		case parquetdb.Driver:
			if objects == nil {
				return nil, fmt.Errorf("store %s: object store is required", def.Name)
			}
			prefix := parquetdb.Prefix(def)
			if reset {
				if _, err := ClearParquet(ctx, objects, prefix); err != nil {
					return nil, fmt.Errorf("reset %s: %w", def.Name, err)
				}
			}
			infos, err := ExportParquet(ctx, objects, prefix, def.Name, d)
			if err != nil {
				return nil, fmt.Errorf("export %s: %w", def.Name, err)
			}
			counts[def.Name] = len(infos)
		case sqldb.DriverSQLite, sqldb.DriverPostgres, sqldb.DriverDuckDB:
			count, err := seedDSN(ctx, def, d, reset)
			if err != nil {
				return nil, err
			}
			counts[def.Name] = count
		default:
			return nil, fmt.Errorf("store %s: unsupported driver %q", def.Name, def.Driver)
		}
	}
	return counts, nil
}

func seedDSN(ctx context.Context, def store.Definition, d Dataset, reset bool) (int, error) {
	db, err := sql.Open(def.Driver, def.DSN)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", def.Name, err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("ping %s: %w", def.Name, err)
	}
	return SeedDatabase(ctx, db, def.Name, d, reset)
}


// ClearParquet deletes every .parquet object under prefix and returns how
// many were removed. Other objects under the prefix are left alone.
func ClearParquet(ctx context.Context, objects storage.ObjectStore, prefix string) (int, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return 0, fmt.Errorf("object prefix is required")
	}
	infos, err := objects.List(ctx, prefix+"/")
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, info := range infos {
		if !strings.HasSuffix(info.Key, ".parquet") {
			continue
		}
		if err := objects.Delete(ctx, info.Key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
