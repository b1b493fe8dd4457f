package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/omniretail/omnidesk/internal/config"
	"github.com/omniretail/omnidesk/internal/observability"
	"github.com/omniretail/omnidesk/internal/omni"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response       string   `json:"response"`
	ThoughtProcess []string `json:"thought_process"`
}

// handleChat runs one request through the agent. Once the message is valid,
// every failure is reported in the response body with status 200.
func handleChat(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "agent is not configured", false, nil)
		return
	}

	var request chatRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid chat request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Message) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "MESSAGE_REQUIRED", "message is required", false, nil)
		return
	}

	ctx := r.Context()
	if cfg.HTTP.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.HTTP.RequestTimeout)
		defer cancel()
	}

	answer, err := deps.Agent.Run(ctx, request.Message)
	if err != nil {
		if deps.Logger != nil {
			deps.Logger.ErrorContext(r.Context(), "chat request failed",
				slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
				slog.String("session_id", request.SessionID),
				slog.String("error", err.Error()),
			)
		}
		if errors.Is(err, omni.ErrEmptyRequest) {
			writeError(r.Context(), w, http.StatusBadRequest, "MESSAGE_REQUIRED", "message is required", false, nil)
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{
			Response:       "Error executing request: " + err.Error(),
			ThoughtProcess: []string{"Error encountered."},
		})
		return
	}

	if deps.Logger != nil {
		deps.Logger.InfoContext(r.Context(), "chat request answered",
			slog.String("trace_id", observability.TraceIDFromContext(r.Context())),
			slog.String("run_id", answer.RunID),
			slog.String("session_id", request.SessionID),
			slog.String("model", answer.Model),
			slog.Int("trail_entries", len(answer.ThoughtProcess)),
		)
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: answer.Response, ThoughtProcess: answer.ThoughtProcess})
}
