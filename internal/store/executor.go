package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/omniretail/omnidesk/internal/observability"
)

type Executor struct {
	stores  map[string]Store
	order   []string
	timeout time.Duration
	logger  *slog.Logger
}

func NewExecutor(stores []Store, timeout time.Duration, logger *slog.Logger) (*Executor, error) {
	if len(stores) == 0 {
		return nil, fmt.Errorf("at least one store is required")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	executor := &Executor{
		stores:  make(map[string]Store, len(stores)),
		order:   make([]string, 0, len(stores)),
		timeout: timeout,
		logger:  logger,
	}
	for _, s := range stores {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return nil, fmt.Errorf("store name is required")
		}
		if s.Backend == nil {
			return nil, fmt.Errorf("store %s: backend is required", name)
		}
		if _, exists := executor.stores[name]; exists {
			return nil, fmt.Errorf("duplicate store %q", name)
		}
		executor.stores[name] = s
		executor.order = append(executor.order, name)
	}
	return executor, nil
}

// Stores returns the registered stores in registration order.
func (e *Executor) Stores() []Store {
	out := make([]Store, 0, len(e.order))
	for _, name := range e.order {
		out = append(out, e.stores[name])
	}
	return out
}

func (e *Executor) Lookup(name string) (Store, bool) {
	s, ok := e.stores[name]
	return s, ok
}

// Execute runs sqlText against the named store. Every failure is returned as
// a *QueryError so callers can record it and move on.
func (e *Executor) Execute(ctx context.Context, storeName, sqlText string) ([]Row, error) {
	s, ok := e.stores[storeName]
	if !ok {
		return nil, &QueryError{Store: storeName, SQL: sqlText, Err: ErrUnknownStore}
	}
	if strings.TrimSpace(sqlText) == SentinelSQL {
		observability.IncrementSQLRejected(storeName)
		return nil, &QueryError{Store: storeName, SQL: sqlText, Err: ErrInvalidSQL}
	}

	queryCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		queryCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := s.Backend.Query(queryCtx, sqlText)
	elapsed := time.Since(start)
	observability.ObserveStoreQuery(storeName, err, elapsed)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("query timed out after %s: %w", e.timeout, err)
		}
		e.logger.DebugContext(ctx, "store query failed",
			slog.String("run_id", observability.RunIDFromContext(ctx)),
			slog.String("store", storeName),
			slog.String("error", err.Error()),
		)
		return nil, &QueryError{Store: storeName, SQL: sqlText, Err: err}
	}

	e.logger.DebugContext(ctx, "store query executed",
		slog.String("run_id", observability.RunIDFromContext(ctx)),
		slog.String("store", storeName),
		slog.Int("rows", len(rows)),
		slog.String("duration", elapsed.String()),
	)
	return rows, nil
}

// Ping checks every store and returns the failures keyed by store name.
func (e *Executor) Ping(ctx context.Context) map[string]error {
	failures := map[string]error{}
	for _, name := range e.order {
		if err := e.stores[name].Backend.Ping(ctx); err != nil {
			failures[name] = err
		}
	}
	return failures
}
