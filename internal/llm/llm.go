// Package llm talks to OpenAI-compatible chat-completion endpoints and
// implements the sticky primary/fallback model policy.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	// Stage labels the call for metrics and logs (planner, translator, synthesizer).
	Stage       string
	Model       string
	Messages    []Message
	Temperature float64
	JSONMode    bool
}

type Response struct {
	Content string
	Model   string
}

type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat completion failed status=%d body=%s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether err carries a rate-limit marker, either a 429
// status or provider text mentioning it.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "rate limit")
}
