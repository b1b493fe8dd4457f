package omni

import (
	"context"
	"fmt"
	"strings"

	"github.com/omniretail/omnidesk/internal/llm"
	"github.com/omniretail/omnidesk/internal/store"
	"github.com/omniretail/omnidesk/internal/store/parquetdb"
	"github.com/omniretail/omnidesk/internal/store/sqldb"
)

const stageTranslator = "translator"

// Translator turns a request into one SELECT statement for a single store.
type Translator struct {
	llm     llm.Completer
	defs    []store.Definition
	schemas map[string]string
}

func NewTranslator(completer llm.Completer, defs []store.Definition, schemas map[string]string) *Translator {
	return &Translator{llm: completer, defs: defs, schemas: schemas}
}

// Translate returns the generated statement, or SentinelSQL when the model
// produced anything other than a SELECT. Only a failed model call is an error.
func (t *Translator) Translate(ctx context.Context, request, storeName string, hints Hints) (string, error) {
	def, ok := t.definition(storeName)
	if !ok {
		return "", fmt.Errorf("%w: %s", store.ErrUnknownStore, storeName)
	}
	resp, err := t.llm.Complete(ctx, llm.Request{
		Stage: stageTranslator,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: BuildTranslationPrompt(def, t.schemas[storeName], t.defs, hints)},
			{Role: llm.RoleUser, Content: "User's request: " + request},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", err
	}
	return SanitizeSQL(resp.Content), nil
}

func (t *Translator) definition(name string) (store.Definition, bool) {
	for _, def := range t.defs {
		if def.Name == name {
			return def, true
		}
	}
	return store.Definition{}, false
}

// SanitizeSQL strips code fences and enforces the SELECT-only gate.
func SanitizeSQL(raw string) string {
	sqlText := strings.TrimSpace(strings.ReplaceAll(stripCodeFences(raw), "```", ""))
	if !strings.HasPrefix(strings.ToLower(sqlText), "select") {
		return store.SentinelSQL
	}
	return sqlText
}

// BuildTranslationPrompt renders the system prompt for one store. It is a
// pure function of its inputs.
func BuildTranslationPrompt(target store.Definition, schema string, defs []store.Definition, hints Hints) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s Expert for the '%s' database.\n", dialect(target.Driver), target.Name)
	b.WriteString("STRICT SCHEMA:\n")
	b.WriteString(schema)
	if !strings.HasSuffix(schema, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\nTASK:\nGenerate a SINGLE SELECT statement for the user's request.\n\n")
	b.WriteString("DOMAINS:\n")
	for _, def := range defs {
		fmt.Fprintf(&b, "- %s: %s\n", def.Name, def.Focus)
	}
	fmt.Fprintf(&b, "\nSTRICT SCHEMA RULES for \"%s\":\n", target.Name)
	b.WriteString("1. ONLY USE TABLES and COLUMNS listed in the schema ABOVE.\n")
	fmt.Fprintf(&b, "2. NO HALLUCINATIONS: Do not guess table or column names (e.g., %s has none of the other platforms' tables).\n", target.Name)
	b.WriteString("3. NO CROSS-DB JOINS: Do not mention other databases.\n")
	b.WriteString("4. USE SIMPLE JOINS: Join related tables within this DB only.\n")
	fmt.Fprintf(&b, "5. FILTERING: Use these Master IDs: %s. (e.g., WHERE OrderID = [Value])\n", hints.String())
	b.WriteString("6. OUTPUT: Return ONLY the SQL string.")
	return b.String()
}

// dialect names the SQL flavour of a registry driver. Parquet stores are
// queried through DuckDB.
func dialect(driver string) string {
	switch driver {
	case sqldb.DriverPostgres:
		return "PostgreSQL"
	case sqldb.DriverDuckDB, parquetdb.Driver:
		return "DuckDB"
	default:
		return "SQLite"
	}
}
