package omni

import (
	"context"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/omniretail/omnidesk/internal/llm"
	"github.com/omniretail/omnidesk/internal/store"
	"github.com/omniretail/omnidesk/internal/store/registry"
	"github.com/omniretail/omnidesk/internal/store/sqldb"
)

func TestSanitizeSQL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "SELECT 1", want: "SELECT 1"},
		{raw: "```sql\nSELECT * FROM Users\n```", want: "SELECT * FROM Users"},
		{raw: "```SQL SELECT 1```", want: "SELECT 1"},
		{raw: "  select Name from Users  ", want: "select Name from Users"},
		{raw: "DELETE FROM Users", want: store.SentinelSQL},
		{raw: "Here is your query: SELECT 1", want: store.SentinelSQL},
		{raw: "```\nWITH x AS (SELECT 1) SELECT * FROM x\n```", want: store.SentinelSQL},
		{raw: "", want: store.SentinelSQL},
	}
	for _, tt := range tests {
		if got := SanitizeSQL(tt.raw); got != tt.want {
			t.Fatalf("SanitizeSQL(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestTranslatorSendsSchemaAndRequest(t *testing.T) {
	defs := registry.Defaults("data")
	schemas := map[string]string{registry.ShipStream: "Schema for ShipStream:\nCREATE TABLE Shipments (ShipmentID INTEGER)\n"}
	model := &scriptedLLM{sql: map[string]string{registry.ShipStream: "```sql\nSELECT ShipmentID FROM Shipments WHERE OrderID = 101\n```"}}
	translator := NewTranslator(model, defs, schemas)
	hints := Hints{"OrderID": int64(101)}

	got, err := translator.Translate(context.Background(), "Where is my package?", registry.ShipStream, hints)
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != "SELECT ShipmentID FROM Shipments WHERE OrderID = 101" {
		t.Fatalf("Translate() = %q", got)
	}

	req := model.requests[0]
	if req.Stage != stageTranslator || req.Temperature != 0 || req.JSONMode {
		t.Fatalf("request = %#v", req)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != llm.RoleSystem || req.Messages[1].Role != llm.RoleUser {
		t.Fatalf("messages = %#v", req.Messages)
	}
	if want := BuildTranslationPrompt(defs[1], schemas[registry.ShipStream], defs, hints); req.Messages[0].Content != want {
		t.Fatalf("system prompt = %q", req.Messages[0].Content)
	}
	if req.Messages[1].Content != "User's request: Where is my package?" {
		t.Fatalf("user message = %q", req.Messages[1].Content)
	}
}

func TestTranslatorReturnsSentinelForNonSelect(t *testing.T) {
	model := &scriptedLLM{sql: map[string]string{registry.ShopCore: "DROP TABLE Users;"}}
	translator := NewTranslator(model, registry.Defaults("data"), map[string]string{})
	got, err := translator.Translate(context.Background(), "drop everything", registry.ShopCore, Hints{})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if got != store.SentinelSQL {
		t.Fatalf("Translate() = %q", got)
	}
}

func TestTranslatorPropagatesModelErrors(t *testing.T) {
	model := &scriptedLLM{sqlErr: map[string]error{registry.PayGuard: errors.New("upstream unavailable")}}
	translator := NewTranslator(model, registry.Defaults("data"), map[string]string{})
	if _, err := translator.Translate(context.Background(), "balance", registry.PayGuard, Hints{}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := translator.Translate(context.Background(), "balance", "Warehouse9", Hints{}); !errors.Is(err, store.ErrUnknownStore) {
		t.Fatalf("Translate(unknown) error = %v", err)
	}
}

func TestBuildTranslationPromptIsStable(t *testing.T) {
	defs := registry.Defaults("data")
	schema := "Schema for ShipStream:\nCREATE TABLE Shipments (ShipmentID INTEGER PRIMARY KEY, OrderID INTEGER, TrackingNumber TEXT)\n"
	hints := Hints{"UserID": int64(1), "OrderID": int64(101)}

	first := BuildTranslationPrompt(defs[1], schema, defs, hints)
	second := BuildTranslationPrompt(defs[1], schema, defs, hints.Clone())
	if first != second {
		t.Fatal("identical inputs produced different prompts")
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "translator_prompt_with_hints", []byte(first))

	empty := BuildTranslationPrompt(defs[0], "Schema for ShopCore:\nCREATE TABLE Users (UserID INTEGER PRIMARY KEY, Name TEXT)\n", defs, Hints{})
	g.Assert(t, "translator_prompt_without_hints", []byte(empty))
}

func TestDialectFollowsDriver(t *testing.T) {
	for driver, want := range map[string]string{"sqlite3": "SQLite", "pgx": "PostgreSQL", "duckdb": "DuckDB", "parquet": "DuckDB"} {
		if got := dialect(driver); got != want {
			t.Fatalf("dialect(%q) = %q, want %q", driver, got, want)
		}
	}
}

func TestDialectCoversEveryBindableDriver(t *testing.T) {
	for _, driver := range []string{"sqlite3", "pgx", "duckdb"} {
		if _, err := sqldb.New(store.Definition{Name: "ShopCore", Driver: driver, DSN: "unused"}); err != nil {
			t.Fatalf("sqldb.New(%q) error = %v", driver, err)
		}
	}
	if _, err := sqldb.New(store.Definition{Name: "ShopCore", Driver: "postgres", DSN: "unused"}); err == nil {
		t.Fatal("sqldb.New(postgres) accepted an unregistered driver name")
	}
	if got := dialect("postgres"); got != "SQLite" {
		t.Fatalf("dialect(postgres) = %q, want the default", got)
	}
}
