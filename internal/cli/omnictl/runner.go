// Package omnictl is the command-line client for the omnidesk API.
package omnictl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// requestError marks failures that happened after the command line was
// accepted; they exit 1 instead of 2.
type requestError struct {
	err error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

var errUsage = errors.New("a command is required")

// Run executes one omnictl invocation and returns the process exit code:
// 0 on success, 1 when the request fails, 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	root := NewRootCommand(defaults)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var reqErr *requestError
	if errors.As(err, &reqErr) {
		_, _ = fmt.Fprintln(stderr, reqErr.Error())
		return 1
	}
	_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
	_, _ = fmt.Fprint(stderr, root.UsageString())
	return 2
}

type rootOptions struct {
	baseURL string
	timeout time.Duration
	json    bool
	client  *http.Client
}

func NewRootCommand(defaults Options) *cobra.Command {
	opts := &rootOptions{client: defaults.HTTPClient}

	cmd := &cobra.Command{
		Use:           "omnictl",
		Short:         "Client for the omnidesk customer-support API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return errUsage
		},
	}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8000"), "omnidesk API base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", durationOr(defaults.Timeout, 120*time.Second), "HTTP timeout (e.g. 90s)")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON responses")

	cmd.AddCommand(
		newGetCommand(opts, "health", "Show API health", "/v1/health"),
		newGetCommand(opts, "ready", "Check that every store is reachable", "/v1/ready"),
		newStoresCommand(opts),
		newChatCommand(opts),
	)
	return cmd
}

func newGetCommand(opts *rootOptions, name, short, path string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := opts.do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			writeJSONOrRaw(cmd.OutOrStdout(), body)
			return nil
		},
	}
}

func newStoresCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stores",
		Short: "List the registered stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := opts.do(cmd.Context(), http.MethodGet, "/v1/stores", nil)
			if err != nil {
				return err
			}
			if opts.json {
				writeJSONOrRaw(cmd.OutOrStdout(), body)
				return nil
			}
			var payload struct {
				Stores []struct {
					Name        string `json:"name"`
					Driver      string `json:"driver"`
					Description string `json:"description"`
					DependsOn   string `json:"depends_on"`
					EntryPoint  bool   `json:"entry_point"`
				} `json:"stores"`
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				return &requestError{err: fmt.Errorf("decode stores response: %w", err)}
			}
			out := cmd.OutOrStdout()
			for _, s := range payload.Stores {
				note := ""
				switch {
				case s.EntryPoint:
					note = " [entry point]"
				case s.DependsOn != "":
					note = " [needs " + s.DependsOn + "]"
				}
				_, _ = fmt.Fprintf(out, "%-12s %-8s %s%s\n", s.Name, s.Driver, s.Description, note)
			}
			return nil
		},
	}
}

func newChatCommand(opts *rootOptions) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat <message...>",
		Short: "Ask the assistant a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := json.Marshal(map[string]string{
				"message":    strings.Join(args, " "),
				"session_id": sessionID,
			})
			if err != nil {
				return &requestError{err: err}
			}
			body, err := opts.do(cmd.Context(), http.MethodPost, "/chat", payload)
			if err != nil {
				return err
			}
			if opts.json {
				writeJSONOrRaw(cmd.OutOrStdout(), body)
				return nil
			}
			var answer struct {
				Response       string   `json:"response"`
				ThoughtProcess []string `json:"thought_process"`
			}
			if err := json.Unmarshal(body, &answer); err != nil {
				return &requestError{err: fmt.Errorf("decode chat response: %w", err)}
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, answer.Response)
			if len(answer.ThoughtProcess) > 0 {
				_, _ = fmt.Fprintln(out, "\nThought process:")
				for i, step := range answer.ThoughtProcess {
					_, _ = fmt.Fprintf(out, "%2d. %s\n", i+1, step)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session-id", "", "session identifier sent with the message")
	return cmd
}

func (o *rootOptions) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	client := o.client
	if client == nil {
		client = &http.Client{Timeout: o.timeout}
	}
	endpoint := strings.TrimRight(o.baseURL, "/") + path
	code, body, err := doRequest(ctx, client, method, endpoint, payload)
	if err != nil {
		return nil, &requestError{err: fmt.Errorf("request failed: %w", err)}
	}
	if code >= 400 {
		return nil, &requestError{err: fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(body)))}
	}
	return body, nil
}

func doRequest(ctx context.Context, client *http.Client, method, url string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func writeJSONOrRaw(w io.Writer, body []byte) {
	if pretty, ok := prettyJSON(body); ok {
		_, _ = fmt.Fprintln(w, pretty)
		return
	}
	if len(body) > 0 {
		_, _ = fmt.Fprintln(w, string(body))
	}
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(anyValue); err != nil {
		return "", false
	}
	return strings.TrimRight(buf.String(), "\n"), true
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
