package store

import (
	"context"
	"fmt"
	"strings"
)

// RenderSchema produces the schema text shown to the SQL translator. Raw DDL is
// used when the backend exposes it; otherwise a CREATE TABLE line is built
// from the column list.
func RenderSchema(storeName string, tables []Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Schema for %s:\n", storeName)
	for _, table := range tables {
		ddl := strings.TrimSpace(table.DDL)
		if ddl == "" {
			ddl = columnsDDL(table)
		}
		b.WriteString(ddl)
		b.WriteString("\n")
	}
	return b.String()
}

// LoadSchemas reads table metadata from every store. Any failure aborts: an
// agent without a schema for each store cannot translate safely.
func LoadSchemas(ctx context.Context, stores []Store) (map[string]string, error) {
	schemas := make(map[string]string, len(stores))
	for _, s := range stores {
		if s.Backend == nil {
			return nil, fmt.Errorf("load schema for %s: backend is required", s.Name)
		}
		tables, err := s.Backend.Tables(ctx)
		if err != nil {
			return nil, fmt.Errorf("load schema for %s: %w", s.Name, err)
		}
		if len(tables) == 0 {
			return nil, fmt.Errorf("load schema for %s: no tables found", s.Name)
		}
		schemas[s.Name] = RenderSchema(s.Name, tables)
	}
	return schemas, nil
}

func columnsDDL(table Table) string {
	parts := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		part := col.Name
		if strings.TrimSpace(col.Type) != "" {
			part += " " + col.Type
		}
		parts = append(parts, part)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table.Name, strings.Join(parts, ", "))
}
