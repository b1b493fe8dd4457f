package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/omniretail/omnidesk/internal/cli/omnictl"
)

func main() {
	timeout := parseDurationWithDefault(strings.TrimSpace(os.Getenv("OMNIDESK_CLI_TIMEOUT")), 120*time.Second)
	options := omnictl.Options{
		BaseURL: envOr("OMNIDESK_API_URL", "http://localhost:8000"),
		Timeout: timeout,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}

	code := omnictl.Run(context.Background(), os.Args[1:], options)
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseDurationWithDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid OMNIDESK_CLI_TIMEOUT %q; using %s\n", raw, fallback)
		return fallback
	}
	return parsed
}
