package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/omniretail/omnidesk/internal/observability"
)

// Tiered routes every call to the primary model until the primary reports a
// rate limit. From then on the instance stays on the fallback model.
type Tiered struct {
	backend  Completer
	primary  string
	fallback string
	degraded atomic.Bool
	logger   *slog.Logger
}

func NewTiered(backend Completer, primary, fallback string, logger *slog.Logger) (*Tiered, error) {
	if backend == nil {
		return nil, fmt.Errorf("completer is required")
	}
	primary = strings.TrimSpace(primary)
	if primary == "" {
		return nil, fmt.Errorf("primary model is required")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Tiered{
		backend:  backend,
		primary:  primary,
		fallback: strings.TrimSpace(fallback),
		logger:   logger,
	}, nil
}

// Model returns the model the next call will use.
func (t *Tiered) Model() string {
	if t.degraded.Load() {
		return t.fallback
	}
	return t.primary
}

func (t *Tiered) Degraded() bool {
	return t.degraded.Load()
}

func (t *Tiered) Complete(ctx context.Context, req Request) (Response, error) {
	model := t.Model()
	req.Model = model
	resp, err := t.backend.Complete(ctx, req)
	observability.ObserveLLMRequest(req.Stage, model, err)
	if err == nil {
		return resp, nil
	}
	if model != t.primary || t.fallback == "" || t.fallback == t.primary || !IsRateLimited(err) {
		return Response{}, err
	}

	if t.degraded.CompareAndSwap(false, true) {
		observability.IncrementLLMFallback()
		t.logger.WarnContext(ctx, "primary model rate limited; switching to fallback",
			slog.String("primary_model", t.primary),
			slog.String("fallback_model", t.fallback),
			slog.String("stage", req.Stage),
			slog.String("run_id", observability.RunIDFromContext(ctx)),
		)
	}

	req.Model = t.fallback
	resp, err = t.backend.Complete(ctx, req)
	observability.ObserveLLMRequest(req.Stage, t.fallback, err)
	if err != nil {
		return Response{}, fmt.Errorf("fallback model %s: %w", t.fallback, err)
	}
	return resp, nil
}
