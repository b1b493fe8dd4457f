package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
)

func TestTieredSwitchesToFallbackOnRateLimit(t *testing.T) {
	backend := &fakeCompleter{failModels: map[string]error{"big": &StatusError{StatusCode: http.StatusTooManyRequests}}}
	tiered, err := NewTiered(backend, "big", "small", nil)
	if err != nil {
		t.Fatalf("NewTiered() error = %v", err)
	}

	resp, err := tiered.Complete(context.Background(), Request{Stage: "planner", Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Model != "small" {
		t.Fatalf("response model = %q", resp.Model)
	}
	if !tiered.Degraded() || tiered.Model() != "small" {
		t.Fatalf("tiered state degraded=%v model=%q", tiered.Degraded(), tiered.Model())
	}

	if _, err := tiered.Complete(context.Background(), Request{Stage: "translator", Messages: []Message{{Role: RoleUser, Content: "y"}}}); err != nil {
		t.Fatalf("second Complete() error = %v", err)
	}
	want := []string{"big", "small", "small"}
	if got := backend.models(); len(got) != len(want) || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("models called = %v, want %v", got, want)
	}
}

func TestTieredFreshInstanceStartsOnPrimary(t *testing.T) {
	backend := &fakeCompleter{failModels: map[string]error{"big": errors.New("429 too many requests")}}
	first, _ := NewTiered(backend, "big", "small", nil)
	if _, err := first.Complete(context.Background(), Request{}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	second, _ := NewTiered(&fakeCompleter{}, "big", "small", nil)
	if second.Model() != "big" {
		t.Fatalf("fresh Model() = %q", second.Model())
	}
}

func TestTieredDoesNotFallBackOnOtherErrors(t *testing.T) {
	backend := &fakeCompleter{failModels: map[string]error{"big": &StatusError{StatusCode: http.StatusInternalServerError}}}
	tiered, _ := NewTiered(backend, "big", "small", nil)
	if _, err := tiered.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	if tiered.Degraded() {
		t.Fatal("non rate-limit error should not degrade")
	}
	if got := backend.models(); len(got) != 1 {
		t.Fatalf("models called = %v", got)
	}
}

func TestTieredFallbackFailureIsReturned(t *testing.T) {
	backend := &fakeCompleter{failModels: map[string]error{
		"big":   &StatusError{StatusCode: http.StatusTooManyRequests},
		"small": errors.New("upstream down"),
	}}
	tiered, _ := NewTiered(backend, "big", "small", nil)
	if _, err := tiered.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected fallback error")
	}
	if !tiered.Degraded() {
		t.Fatal("expected instance to stay on fallback")
	}
}

func TestTieredWithoutFallbackReturnsRateLimit(t *testing.T) {
	backend := &fakeCompleter{failModels: map[string]error{"big": &StatusError{StatusCode: http.StatusTooManyRequests}}}
	tiered, _ := NewTiered(backend, "big", "", nil)
	_, err := tiered.Complete(context.Background(), Request{})
	if !IsRateLimited(err) {
		t.Fatalf("Complete() error = %v", err)
	}
}

func TestNewTieredRequiresPrimary(t *testing.T) {
	if _, err := NewTiered(&fakeCompleter{}, " ", "small", nil); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewTiered(nil, "big", "small", nil); err == nil {
		t.Fatal("expected error")
	}
}

type fakeCompleter struct {
	mu         sync.Mutex
	failModels map[string]error
	called     []string
}

func (f *fakeCompleter) Complete(_ context.Context, req Request) (Response, error) {
	f.mu.Lock()
	f.called = append(f.called, req.Model)
	f.mu.Unlock()
	if err := f.failModels[req.Model]; err != nil {
		return Response{}, err
	}
	return Response{Content: "ok", Model: req.Model}, nil
}

func (f *fakeCompleter) models() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.called...)
}
