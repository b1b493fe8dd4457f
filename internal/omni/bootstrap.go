package omni

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/omniretail/omnidesk/internal/config"
	"github.com/omniretail/omnidesk/internal/llm"
	"github.com/omniretail/omnidesk/internal/store"
	"github.com/omniretail/omnidesk/internal/store/registry"
)

// NewFromConfig wires the model client, the configured stores and the agent.
// A missing API key or an unreadable store schema is an error.
func NewFromConfig(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Agent, error) {
	if err := cfg.LLM.RequireAPIKey(); err != nil {
		return nil, err
	}
	client, err := llm.NewClient(llm.ClientConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Timeout: cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create llm client: %w", err)
	}
	tiered, err := llm.NewTiered(client, cfg.LLM.PrimaryModel, cfg.LLM.FallbackModel, logger)
	if err != nil {
		return nil, fmt.Errorf("create model tier: %w", err)
	}

	stores, err := registry.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open stores: %w", err)
	}
	executor, err := store.NewExecutor(stores, cfg.Stores.QueryTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("create executor: %w", err)
	}
	return New(ctx, tiered, executor, Options{Temperature: cfg.LLM.Temperature, Logger: logger})
}
