// Package registry decides which stores exist and binds each definition to a
// backend.
package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/omniretail/omnidesk/internal/config"
	"github.com/omniretail/omnidesk/internal/storage"
	"github.com/omniretail/omnidesk/internal/storage/s3"
	"github.com/omniretail/omnidesk/internal/store"
	"github.com/omniretail/omnidesk/internal/store/parquetdb"
	"github.com/omniretail/omnidesk/internal/store/sqldb"
)

const (
	ShopCore   = "ShopCore"
	ShipStream = "ShipStream"
	PayGuard   = "PayGuard"
	CareDesk   = "CareDesk"
)

// Defaults returns the four SQLite stores, in planning order.
func Defaults(dataDir string) []store.Definition {
	return []store.Definition{
		{
			Name:        ShopCore,
			Driver:      sqldb.DriverSQLite,
			DSN:         SQLitePath(dataDir, ShopCore),
			Description: "Accounts, Products, Catalog, and initial Order placement.",
			Focus:       `Find UserID, OrderID, and Name. If user says "I" or "my", find the most RECENT matching order.`,
			EntryPoint:  true,
			Tables:      []string{"Users", "Products", "Orders"},
		},
		{
			Name:        ShipStream,
			Driver:      sqldb.DriverSQLite,
			DSN:         SQLitePath(dataDir, ShipStream),
			Description: "Logistics, Shipments, and Tracking.",
			Focus:       "Find StatusUpdate and Warehouse Location using OrderID.",
			DependsOn:   "OrderID",
			Tables:      []string{"Shipments", "Warehouses", "TrackingEvents"},
		},
		{
			Name:        PayGuard,
			Driver:      sqldb.DriverSQLite,
			DSN:         SQLitePath(dataDir, PayGuard),
			Description: "Balances and Transactions.",
			Focus:       "Find Balance and Transaction details using UserID or OrderID.",
			DependsOn:   "UserID/OrderID",
			Tables:      []string{"Wallets", "Transactions", "PaymentMethods"},
		},
		{
			Name:        CareDesk,
			Driver:      sqldb.DriverSQLite,
			DSN:         SQLitePath(dataDir, CareDesk),
			Description: "Tickets, Messages, and Surveys.",
			Focus:       "Find Ticket Status, latest Message, and Survey Rating/Comments.",
			DependsOn:   "UserID/OrderID",
			Tables:      []string{"Tickets", "TicketMessages", "SatisfactionSurveys"},
		},
	}
}

// SQLitePath is the conventional file name of a store inside the data dir.
func SQLitePath(dataDir, storeName string) string {
	return filepath.Join(dataDir, "DB_"+storeName+".db")
}

type registryFile struct {
	Stores []store.Definition `yaml:"stores"`
}

// LoadFile reads a YAML registry. Entries without a driver default to SQLite,
// and SQLite entries without a DSN resolve to DB_<name>.db under dataDir.
func LoadFile(path, dataDir string) ([]store.Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read store registry: %w", err)
	}
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse store registry %s: %w", path, err)
	}
	if len(file.Stores) == 0 {
		return nil, fmt.Errorf("store registry %s lists no stores", path)
	}

	seen := map[string]bool{}
	defs := make([]store.Definition, 0, len(file.Stores))
	for i, def := range file.Stores {
		def.Name = strings.TrimSpace(def.Name)
		if def.Name == "" {
			return nil, fmt.Errorf("store registry %s: entry %d has no name", path, i)
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("store registry %s: duplicate store %q", path, def.Name)
		}
		seen[def.Name] = true
		def.Driver = strings.TrimSpace(def.Driver)
		if def.Driver == "" {
			def.Driver = sqldb.DriverSQLite
		}
		if def.Driver == sqldb.DriverSQLite && strings.TrimSpace(def.DSN) == "" {
			def.DSN = SQLitePath(dataDir, def.Name)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func Definitions(cfg config.StoresConfig) ([]store.Definition, error) {
	if strings.TrimSpace(cfg.RegistryFile) != "" {
		return LoadFile(cfg.RegistryFile, cfg.DataDir)
	}
	return Defaults(cfg.DataDir), nil
}

// Open resolves the configured definitions and binds them. The object store is
// only dialed when a parquet store is present.
func Open(ctx context.Context, cfg config.Config) ([]store.Store, error) {
	defs, err := Definitions(cfg.Stores)
	if err != nil {
		return nil, err
	}
	var objects storage.ObjectStore
	if NeedsObjectStore(defs) {
		bucket, err := s3.Open(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("open object store: %w", err)
		}
		objects = bucket
	}
	return Bind(defs, objects)
}

func NeedsObjectStore(defs []store.Definition) bool {
	for _, def := range defs {
		if def.Driver == parquetdb.Driver {
			return true
		}
	}
	return false
}

func Bind(defs []store.Definition, objects storage.ObjectStore) ([]store.Store, error) {
	stores := make([]store.Store, 0, len(defs))
	for _, def := range defs {
		var (
			backend store.Backend
			err     error
		)
		switch def.Driver {
		case parquetdb.Driver:
			backend, err = parquetdb.New(def, objects)
		default:
			backend, err = sqldb.New(def)
		}
		if err != nil {
			return nil, err
		}
		stores = append(stores, store.Store{Definition: def, Backend: backend})
	}
	return stores, nil
}
