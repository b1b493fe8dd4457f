// Package sqldb implements store backends on database/sql drivers.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/omniretail/omnidesk/internal/store"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
	DriverDuckDB   = "duckdb"
)

// Opener matches sql.Open so tests can substitute a mock connection.
type Opener func(driverName, dataSourceName string) (*sql.DB, error)

type Backend struct {
	name   string
	driver string
	dsn    string
	path   string
	open   Opener
}

func New(def store.Definition) (*Backend, error) {
	return NewWithOpener(def, sql.Open)
}

func NewWithOpener(def store.Definition, open Opener) (*Backend, error) {
	if open == nil {
		return nil, fmt.Errorf("opener is required")
	}
	if strings.TrimSpace(def.DSN) == "" {
		return nil, fmt.Errorf("store %s: dsn is required", def.Name)
	}
	backend := &Backend{name: def.Name, driver: def.Driver, open: open}
	switch def.Driver {
	case DriverSQLite:
		backend.dsn, backend.path = sqliteReadOnlyDSN(def.DSN)
	case DriverPostgres, DriverDuckDB:
		backend.dsn = strings.TrimSpace(def.DSN)
	default:
		return nil, fmt.Errorf("store %s: unsupported driver %q", def.Name, def.Driver)
	}
	return backend, nil
}

func (b *Backend) Query(ctx context.Context, sqlText string) ([]store.Row, error) {
	db, err := b.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return store.ScanRows(rows)
}

func (b *Backend) Tables(ctx context.Context) ([]store.Table, error) {
	db, err := b.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	if b.driver == DriverSQLite {
		return sqliteTables(ctx, db)
	}
	schema := "public"
	if b.driver == DriverDuckDB {
		schema = "main"
	}
	return informationSchemaTables(ctx, db, schema)
}

func (b *Backend) Ping(ctx context.Context) error {
	db, err := b.connect()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", b.name, err)
	}
	return nil
}

func (b *Backend) connect() (*sql.DB, error) {
	if b.path != "" {
		if _, err := os.Stat(b.path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("database %s not found at %s", b.name, b.path)
			}
			return nil, fmt.Errorf("stat database %s: %w", b.name, err)
		}
	}
	db, err := b.open(b.driver, b.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", b.name, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

func sqliteTables(ctx context.Context, db *sql.DB) ([]store.Table, error) {
	rows, err := db.QueryContext(ctx, `SELECT name, sql FROM sqlite_master WHERE type = 'table' AND sql IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("list sqlite tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]store.Table, 0)
	for rows.Next() {
		var name, ddl string
		if err := rows.Scan(&name, &ddl); err != nil {
			return nil, fmt.Errorf("scan sqlite table: %w", err)
		}
		if internalTable(name) {
			continue
		}
		tables = append(tables, store.Table{Name: name, DDL: ddl})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sqlite tables: %w", err)
	}
	return tables, nil
}

func informationSchemaTables(ctx context.Context, db *sql.DB, schema string) ([]store.Table, error) {
	rows, err := db.QueryContext(ctx, `SELECT table_name, column_name, data_type
FROM information_schema.columns
WHERE table_schema = $1
ORDER BY table_name, ordinal_position`, schema)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]store.Table, 0)
	index := map[string]int{}
	for rows.Next() {
		var tableName, columnName, dataType string
		if err := rows.Scan(&tableName, &columnName, &dataType); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if internalTable(tableName) {
			continue
		}
		position, ok := index[tableName]
		if !ok {
			position = len(tables)
			index[tableName] = position
			tables = append(tables, store.Table{Name: tableName})
		}
		tables[position].Columns = append(tables[position].Columns, store.Column{Name: columnName, Type: strings.ToUpper(dataType)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	return tables, nil
}

// internalTable hides engine bookkeeping and the migrations version table.
func internalTable(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "sqlite_") || strings.HasPrefix(lower, "omnidesk_")
}

// sqliteReadOnlyDSN turns a file path or file: URI into a read-only URI and
// returns the filesystem path that must exist.
func sqliteReadOnlyDSN(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	path := strings.TrimPrefix(raw, "file:")
	query := ""
	if i := strings.Index(path, "?"); i >= 0 {
		path, query = path[:i], path[i+1:]
	}
	if path == ":memory:" {
		return raw, ""
	}
	if !strings.Contains(query, "mode=") {
		if query != "" {
			query += "&"
		}
		query += "mode=ro"
	}
	return "file:" + path + "?" + query, path
}
