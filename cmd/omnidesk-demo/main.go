package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/omniretail/omnidesk/internal/config"
	"github.com/omniretail/omnidesk/internal/observability"
	"github.com/omniretail/omnidesk/internal/omni"
)

var scenarios = []string{
	"I am Alice Johnson. I ordered a 'Gaming Monitor' recently, but it hasn't arrived. " +
		"I opened a ticket about this. Can you tell me where the package is right now " +
		"and the status of my ticket?",
	"I am Alice Johnson. I returned a 'Wireless Mouse'. " +
		"Can you check if a refund transaction appears in my wallet for that order, " +
		"and if the support ticket is marked as resolved?",
	"Check on Bob Smith. Does he have any orders currently processing? " +
		"Also, based on his payment history, what is his current wallet balance?",
}

func main() {
	cfg, err := config.LoadFromEnv("omnidesk-demo")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stderr)

	ctx := context.Background()
	agent, err := omni.NewFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize agent", slog.Any("error", err))
		os.Exit(1)
	}

	rule := strings.Repeat("=", 50)
	fmt.Printf("%s\nSTARTING DEMONSTRATION\n%s\n", rule, rule)
	failed := 0
	for i, query := range scenarios {
		fmt.Printf("\n\n### DEMO SCENARIO %d ###\nUser Query: %s\n", i+1, query)
		answer, err := agent.Run(ctx, query)
		if err != nil {
			failed++
			fmt.Printf("Error processing query: %v\n", err)
			continue
		}
		fmt.Printf("\nResult:\n%s\n\nThought process:\n", answer.Response)
		for n, step := range answer.ThoughtProcess {
			fmt.Printf("%2d. %s\n", n+1, step)
		}
	}
	fmt.Printf("\n%s\nDEMONSTRATION COMPLETE\n%s\n", rule, rule)
	if failed > 0 {
		os.Exit(1)
	}
}
