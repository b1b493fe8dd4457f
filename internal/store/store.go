// Package store describes the relational stores the agent can query and
// executes generated SQL against them.
package store

import (
	"context"
	"errors"
)

// SentinelSQL replaces any generated statement that fails the SELECT-only gate.
const SentinelSQL = "SELECT 'Error: Invalid SQL generated' AS Error;"

var (
	ErrUnknownStore = errors.New("unknown store")
	ErrInvalidSQL   = errors.New("invalid sql generated")
)

type Definition struct {
	Name        string `yaml:"name" json:"name"`
	Driver      string `yaml:"driver" json:"driver"`
	DSN         string `yaml:"dsn" json:"-"`
	Description string `yaml:"description" json:"description"`
	// Focus tells the SQL translator what this store is usually asked for.
	Focus      string   `yaml:"focus" json:"focus,omitempty"`
	DependsOn  string   `yaml:"depends_on" json:"depends_on,omitempty"`
	EntryPoint bool     `yaml:"entry_point" json:"entry_point,omitempty"`
	Tables     []string `yaml:"tables" json:"tables,omitempty"`
}

type Row map[string]any

type Column struct {
	Name string
	Type string
}

type Table struct {
	Name    string
	DDL     string
	Columns []Column
}

// Backend runs read-only statements against one store. Implementations open a
// fresh connection per call and release it before returning.
type Backend interface {
	Query(ctx context.Context, sqlText string) ([]Row, error)
	Tables(ctx context.Context) ([]Table, error)
	Ping(ctx context.Context) error
}

type Store struct {
	Definition
	Backend Backend
}

// QueryError reports a failed store call. Its message is the backend's own;
// callers add the store name where they need it.
type QueryError struct {
	Store string
	SQL   string
	Err   error
}

func (e *QueryError) Error() string {
	if e.Err == nil {
		return "query failed"
	}
	return e.Err.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
