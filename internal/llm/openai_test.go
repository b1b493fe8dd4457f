package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientCompletePostsChatPayload(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Fatalf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"m1","choices":[{"message":{"role":"assistant","content":"{\"plan\":[\"ShopCore\"]}"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL + "/", APIKey: "secret"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	resp, err := client.Complete(context.Background(), Request{
		Model:    "m1",
		Messages: []Message{{Role: RoleSystem, Content: "plan"}, {Role: RoleUser, Content: "hi"}},
		JSONMode: true,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != `{"plan":["ShopCore"]}` || resp.Model != "m1" {
		t.Fatalf("Complete() = %+v", resp)
	}
	if got["model"] != "m1" || got["stream"] != false {
		t.Fatalf("payload = %v", got)
	}
	format, ok := got["response_format"].(map[string]any)
	if !ok || format["type"] != "json_object" {
		t.Fatalf("response_format = %v", got["response_format"])
	}
	if msgs, ok := got["messages"].([]any); !ok || len(msgs) != 2 {
		t.Fatalf("messages = %v", got["messages"])
	}
}

func TestClientCompleteOmitsResponseFormatForText(t *testing.T) {
	payload := buildChatPayload(Request{Model: "m1", Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if _, ok := payload["response_format"]; ok {
		t.Fatalf("payload = %v", payload)
	}
}

func TestClientCompleteReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "secret"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	_, err = client.Complete(context.Background(), Request{Model: "m1", Messages: []Message{{Role: RoleUser, Content: "x"}}})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("Complete() error = %v", err)
	}
	if !IsRateLimited(err) {
		t.Fatal("IsRateLimited() = false")
	}
}

func TestClientCompleteRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client, _ := NewClient(ClientConfig{BaseURL: server.URL, APIKey: "secret"})
	if _, err := client.Complete(context.Background(), Request{Model: "m1", Messages: []Message{{Role: RoleUser, Content: "x"}}}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestNewClientRequiresKeyAndURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{BaseURL: "http://x"}); err == nil {
		t.Fatal("expected missing api key error")
	}
	if _, err := NewClient(ClientConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected missing base url error")
	}
}

func TestIsRateLimited(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&StatusError{StatusCode: 500}, false},
		{fmt.Errorf("wrapped: %w", &StatusError{StatusCode: 429}), true},
		{errors.New("Error code: 429 - too many tokens"), true},
		{errors.New("Rate limit exceeded for model"), true},
		{errors.New("connection refused"), false},
	}
	for _, tc := range cases {
		if got := IsRateLimited(tc.err); got != tc.want {
			t.Fatalf("IsRateLimited(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
