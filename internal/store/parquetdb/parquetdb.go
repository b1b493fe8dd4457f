// Package parquetdb serves a store whose tables live as parquet objects in an
// S3-compatible bucket. Each call pulls the objects into a scratch directory
// and queries them through a throwaway DuckDB instance.
package parquetdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/omniretail/omnidesk/internal/storage"
	"github.com/omniretail/omnidesk/internal/store"
)

const Driver = "parquet"

type Backend struct {
	name    string
	tables  []string
	keys    map[string]string
	objects storage.ObjectStore
}

func New(def store.Definition, objects storage.ObjectStore) (*Backend, error) {
	if objects == nil {
		return nil, fmt.Errorf("store %s: object store is required", def.Name)
	}
	if len(def.Tables) == 0 {
		return nil, fmt.Errorf("store %s: tables are required for the parquet driver", def.Name)
	}
	prefix := Prefix(def)
	keys := make(map[string]string, len(def.Tables))
	for _, table := range def.Tables {
		key, err := storage.BuildTableObjectPath(prefix, table)
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", def.Name, err)
		}
		keys[table] = key
	}
	return &Backend{name: def.Name, tables: append([]string(nil), def.Tables...), keys: keys, objects: objects}, nil
}

// Prefix is the object key prefix holding the store's tables: the DSN when
// set, otherwise the store name.
func Prefix(def store.Definition) string {
	if prefix := strings.Trim(strings.TrimSpace(def.DSN), "/"); prefix != "" {
		return prefix
	}
	return def.Name
}

func (b *Backend) Query(ctx context.Context, sqlText string) ([]store.Row, error) {
	var result []store.Row
	err := b.withDatabase(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, stripTrailingSemicolons(sqlText))
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		result, err = store.ScanRows(rows)
		return err
	})
	return result, err
}

func (b *Backend) Tables(ctx context.Context) ([]store.Table, error) {
	tables := make([]store.Table, 0, len(b.tables))
	err := b.withDatabase(ctx, func(db *sql.DB) error {
		for _, name := range b.tables {
			rows, err := db.QueryContext(ctx, `SELECT column_name, data_type
FROM information_schema.columns
WHERE table_name = $1
ORDER BY ordinal_position`, name)
			if err != nil {
				return fmt.Errorf("describe %s: %w", name, err)
			}
			table := store.Table{Name: name}
			for rows.Next() {
				var column store.Column
				if err := rows.Scan(&column.Name, &column.Type); err != nil {
					_ = rows.Close()
					return fmt.Errorf("scan column of %s: %w", name, err)
				}
				table.Columns = append(table.Columns, column)
			}
			if err := rows.Err(); err != nil {
				_ = rows.Close()
				return fmt.Errorf("iterate columns of %s: %w", name, err)
			}
			_ = rows.Close()
			tables = append(tables, table)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

func (b *Backend) Ping(ctx context.Context) error {
	for _, table := range b.tables {
		key := b.keys[table]
		if _, err := b.objects.Stat(ctx, key); err != nil {
			return fmt.Errorf("stat %s: %w", key, err)
		}
	}
	return nil
}

func (b *Backend) withDatabase(ctx context.Context, fn func(db *sql.DB) error) error {
	workDir, err := os.MkdirTemp("", "omnidesk-parquet-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	localPaths := make(map[string]string, len(b.tables))
	for _, table := range b.tables {
		key := b.keys[table]
		reader, err := b.objects.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("get object %q: %w", key, err)
		}
		localPath := filepath.Join(workDir, table+".parquet")
		if err := writeFile(localPath, reader); err != nil {
			_ = reader.Close()
			return fmt.Errorf("write local parquet file %q: %w", localPath, err)
		}
		if err := reader.Close(); err != nil {
			return fmt.Errorf("close object %q: %w", key, err)
		}
		localPaths[table] = localPath
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	for _, table := range b.tables {
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(table), quoteString(localPaths[table]))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			return fmt.Errorf("create view for table %q: %w", table, err)
		}
	}
	return fn(db)
}

func writeFile(path string, reader io.Reader) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(file, reader); err != nil {
		return err
	}
	return nil
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
