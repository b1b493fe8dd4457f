// Package omni plans, translates, executes and synthesizes one customer
// request across the registered stores.
package omni

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omniretail/omnidesk/internal/llm"
	"github.com/omniretail/omnidesk/internal/observability"
	"github.com/omniretail/omnidesk/internal/store"
)

var ErrEmptyRequest = errors.New("request is empty")

type Answer struct {
	Response       string                 `json:"response"`
	ThoughtProcess []string               `json:"thought_process"`
	Plan           Plan                   `json:"plan"`
	Hints          Hints                  `json:"hints"`
	Results        map[string][]store.Row `json:"results"`
	Model          string                 `json:"model,omitempty"`
	RunID          string                 `json:"run_id"`
}

type Options struct {
	// Temperature applies to planning and synthesis. Translation always runs at 0.
	Temperature float64
	Logger      *slog.Logger
}

type Agent struct {
	llm         llm.Completer
	executor    *store.Executor
	defs        []store.Definition
	schemas     map[string]string
	planner     *Planner
	translator  *Translator
	synthesizer *Synthesizer
	logger      *slog.Logger
}

// New loads every store's schema up front. A store that cannot describe
// itself is a construction error.
func New(ctx context.Context, completer llm.Completer, executor *store.Executor, opts Options) (*Agent, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	stores := executor.Stores()
	schemas, err := store.LoadSchemas(ctx, stores)
	if err != nil {
		return nil, err
	}
	defs := make([]store.Definition, 0, len(stores))
	for _, s := range stores {
		defs = append(defs, s.Definition)
	}

	return &Agent{
		llm:         completer,
		executor:    executor,
		defs:        defs,
		schemas:     schemas,
		planner:     NewPlanner(completer, defs, opts.Temperature, logger),
		translator:  NewTranslator(completer, defs, schemas),
		synthesizer: NewSynthesizer(completer, opts.Temperature),
		logger:      logger,
	}, nil
}

func (a *Agent) Definitions() []store.Definition {
	return append([]store.Definition(nil), a.defs...)
}

// Schema returns the rendered schema text for a store.
func (a *Agent) Schema(storeName string) string {
	return a.schemas[storeName]
}

// Ping checks every store backend; the map holds only failures.
func (a *Agent) Ping(ctx context.Context) map[string]error {
	return a.executor.Ping(ctx)
}

// Run answers one request. Store failures end up in the trail; only a
// cancelled context or a synthesis failure is returned as an error.
func (a *Agent) Run(ctx context.Context, request string) (answer Answer, err error) {
	request = strings.TrimSpace(request)
	if request == "" {
		return Answer{}, ErrEmptyRequest
	}

	runID := uuid.NewString()
	ctx = observability.ContextWithRunID(ctx, runID)
	start := time.Now()
	defer func() {
		observability.ObserveChatRun(err, time.Since(start))
	}()

	plan, err := a.planner.Plan(ctx, request)
	if err != nil {
		return Answer{}, fmt.Errorf("plan request: %w", err)
	}
	a.logger.InfoContext(ctx, "plan ready",
		slog.String("run_id", runID),
		slog.Any("plan", []string(plan)),
	)

	var trail Trail
	trail.planned(plan)
	hints := Hints{}
	results := map[string][]store.Row{}

	for _, storeName := range plan {
		if _, ok := a.executor.Lookup(storeName); !ok {
			a.logger.DebugContext(ctx, "skipping unknown store in plan",
				slog.String("run_id", runID),
				slog.String("store", storeName),
			)
			continue
		}

		sqlText, err := a.translator.Translate(ctx, request, storeName, hints.Clone())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Answer{}, fmt.Errorf("translate for %s: %w", storeName, ctxErr)
			}
			trail.failed(storeName, err)
			continue
		}
		trail.querying(storeName, sqlText)

		rows, err := a.executor.Execute(ctx, storeName, sqlText)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Answer{}, fmt.Errorf("query %s: %w", storeName, ctxErr)
			}
			trail.failed(storeName, err)
			continue
		}
		if rows == nil {
			rows = []store.Row{}
		}
		results[storeName] = rows
		hints.Absorb(rows)
		trail.found(storeName, len(rows))
	}

	response, err := a.synthesizer.Synthesize(ctx, request, plan, results)
	if err != nil {
		return Answer{}, fmt.Errorf("synthesize answer: %w", err)
	}

	return Answer{
		Response:       response,
		ThoughtProcess: trail,
		Plan:           plan,
		Hints:          hints,
		Results:        results,
		Model:          a.model(),
		RunID:          runID,
	}, nil
}

func (a *Agent) model() string {
	if m, ok := a.llm.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}
