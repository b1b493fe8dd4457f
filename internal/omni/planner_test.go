package omni

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/omniretail/omnidesk/internal/llm"
	"github.com/omniretail/omnidesk/internal/store/registry"
)

func TestParsePlan(t *testing.T) {
	defs := registry.Defaults("data")
	tests := []struct {
		name    string
		content string
		want    Plan
	}{
		{name: "object", content: `{"plan": ["ShopCore", "ShipStream"]}`, want: Plan{"ShopCore", "ShipStream"}},
		{name: "fenced and mixed case", content: "```json\n{\"plan\": [\"shopcore\", \"CAREDESK\"]}\n```", want: Plan{"ShopCore", "CareDesk"}},
		{name: "bare array", content: `["PayGuard"]`, want: Plan{"PayGuard"}},
		{name: "unknown kept and duplicates dropped", content: `{"plan": ["ShopCore", "Mystery", "ShopCore"]}`, want: Plan{"ShopCore", "Mystery"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePlan(tt.content, defs)
			if err != nil {
				t.Fatalf("ParsePlan() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParsePlan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePlanRejectsMalformedContent(t *testing.T) {
	defs := registry.Defaults("data")
	for _, content := range []string{
		"",
		"not json",
		`{"stores": ["ShopCore"]}`,
		`{"plan": [1, 2]}`,
		`{"plan": []}`,
		`{"plan": ["  "]}`,
	} {
		if _, err := ParsePlan(content, defs); err == nil {
			t.Fatalf("ParsePlan(%q) expected error", content)
		}
	}
	if _, err := ParsePlan(`{"plan": []}`, defs); !errors.Is(err, errEmptyPlan) {
		t.Fatalf("ParsePlan(empty) error = %v, want errEmptyPlan", err)
	}
}

func TestPlannerFallsBackToDefaultPlan(t *testing.T) {
	tests := []struct {
		name string
		llm  *scriptedLLM
	}{
		{name: "llm error", llm: &scriptedLLM{planErr: errors.New("upstream unavailable")}},
		{name: "invalid json", llm: &scriptedLLM{plan: "ShopCore then CareDesk"}},
		{name: "empty plan", llm: &scriptedLLM{plan: `{"plan": []}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner := NewPlanner(tt.llm, registry.Defaults("data"), 0.1, nil)
			plan, err := planner.Plan(context.Background(), "Check on Bob Smith.")
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			want := Plan{"ShopCore", "ShipStream", "PayGuard", "CareDesk"}
			if !reflect.DeepEqual(plan, want) {
				t.Fatalf("Plan() = %v, want %v", plan, want)
			}
		})
	}
}

func TestPlannerReturnsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	planner := NewPlanner(&scriptedLLM{planErr: context.Canceled}, registry.Defaults("data"), 0, nil)
	if _, err := planner.Plan(ctx, "Where is my order?"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Plan() error = %v, want context.Canceled", err)
	}
}

func TestPlannerSendsJSONModeRequest(t *testing.T) {
	model := &scriptedLLM{plan: `{"plan": ["ShopCore"]}`}
	planner := NewPlanner(model, registry.Defaults("data"), 0.1, nil)
	if _, err := planner.Plan(context.Background(), "Where is my order?"); err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	req := model.requests[0]
	if req.Stage != stagePlanner || !req.JSONMode || req.Temperature != 0.1 {
		t.Fatalf("request = %#v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != llm.RoleUser {
		t.Fatalf("messages = %#v", req.Messages)
	}
}

func TestPlannerPutsEntryPointFirstForFirstPersonRequests(t *testing.T) {
	// The model never mentions ShopCore; the guard must still put it first.
	adversarial := `{"plan": ["CareDesk", "PayGuard"]}`
	firstPerson := []string{
		"Where is my order?",
		"I ordered a Gaming Monitor last week.",
		"I'm waiting on a refund.",
		"Can you help me with a return?",
		"That parcel is mine, where is it?",
		"I've been charged twice.",
		"I'd like a status update on ticket 7001.",
		"I'll wait for the courier, just tell me when.",
		"I’m using a curly apostrophe.",
		"MY WALLET BALANCE PLEASE",
		"Tell me something about myself.",
	}
	for _, request := range firstPerson {
		planner := NewPlanner(&scriptedLLM{plan: adversarial}, registry.Defaults("data"), 0, nil)
		plan, err := planner.Plan(context.Background(), request)
		if err != nil {
			t.Fatalf("Plan(%q) error = %v", request, err)
		}
		want := Plan{"ShopCore", "CareDesk", "PayGuard"}
		if !reflect.DeepEqual(plan, want) {
			t.Fatalf("Plan(%q) = %v, want %v", request, plan, want)
		}
	}

	thirdPerson := []string{
		"Check on Bob Smith.",
		"What is the balance of wallet 10001?",
		"Is ticket 7001 resolved?",
		"Inventory status for the Mumbai warehouse.",
	}
	for _, request := range thirdPerson {
		planner := NewPlanner(&scriptedLLM{plan: adversarial}, registry.Defaults("data"), 0, nil)
		plan, err := planner.Plan(context.Background(), request)
		if err != nil {
			t.Fatalf("Plan(%q) error = %v", request, err)
		}
		if !reflect.DeepEqual(plan, Plan{"CareDesk", "PayGuard"}) {
			t.Fatalf("Plan(%q) = %v, want model plan unchanged", request, plan)
		}
	}
}

func TestPlannerMovesEntryPointInsteadOfDuplicating(t *testing.T) {
	planner := NewPlanner(&scriptedLLM{plan: `{"plan": ["ShipStream", "ShopCore"]}`}, registry.Defaults("data"), 0, nil)
	plan, err := planner.Plan(context.Background(), "Where is my package?")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !reflect.DeepEqual(plan, Plan{"ShopCore", "ShipStream"}) {
		t.Fatalf("Plan() = %v", plan)
	}
}

func TestBuildPlanningPromptGolden(t *testing.T) {
	prompt := BuildPlanningPrompt("Where is my Gaming Monitor order?", registry.Defaults("data"))
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "planner_prompt", []byte(prompt))
}
