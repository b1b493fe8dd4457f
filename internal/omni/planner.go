package omni

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/omniretail/omnidesk/internal/llm"
	"github.com/omniretail/omnidesk/internal/observability"
	"github.com/omniretail/omnidesk/internal/store"
)

const stagePlanner = "planner"

// Plan is the ordered list of store names to visit for one request.
type Plan []string

var errEmptyPlan = errors.New("plan is empty")

var firstPersonWords = map[string]struct{}{
	"i": {}, "me": {}, "my": {}, "mine": {}, "myself": {},
	"i'm": {}, "i've": {}, "i'd": {}, "i'll": {},
}

type Planner struct {
	llm         llm.Completer
	defs        []store.Definition
	temperature float64
	logger      *slog.Logger
}

func NewPlanner(completer llm.Completer, defs []store.Definition, temperature float64, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Planner{llm: completer, defs: defs, temperature: temperature, logger: logger}
}

// DefaultPlan visits every known store in registration order.
func (p *Planner) DefaultPlan() Plan {
	plan := make(Plan, 0, len(p.defs))
	for _, def := range p.defs {
		plan = append(plan, def.Name)
	}
	return plan
}

// Plan asks the model which stores to visit. Any failure other than
// cancellation falls back to the default plan. First-person requests always
// start at the entry-point store.
func (p *Planner) Plan(ctx context.Context, request string) (Plan, error) {
	resp, err := p.llm.Complete(ctx, llm.Request{
		Stage:       stagePlanner,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: BuildPlanningPrompt(request, p.defs)}},
		Temperature: p.temperature,
		JSONMode:    true,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return p.fallback(ctx, request, "llm_error", err), nil
	}

	plan, err := ParsePlan(resp.Content, p.defs)
	if err != nil {
		reason := "invalid_json"
		if errors.Is(err, errEmptyPlan) {
			reason = "empty_plan"
		}
		return p.fallback(ctx, request, reason, err), nil
	}
	return p.withEntryPoint(plan, request), nil
}

func (p *Planner) fallback(ctx context.Context, request, reason string, cause error) Plan {
	observability.IncrementPlanFallback(reason)
	p.logger.WarnContext(ctx, "planner fell back to default plan",
		slog.String("run_id", observability.RunIDFromContext(ctx)),
		slog.String("reason", reason),
		slog.String("error", cause.Error()),
	)
	return p.withEntryPoint(p.DefaultPlan(), request)
}

func (p *Planner) withEntryPoint(plan Plan, request string) Plan {
	if !IsFirstPerson(request) {
		return plan
	}
	entry := p.entryPoint()
	if entry == "" || (len(plan) > 0 && plan[0] == entry) {
		return plan
	}
	out := make(Plan, 0, len(plan)+1)
	out = append(out, entry)
	for _, name := range plan {
		if name != entry {
			out = append(out, name)
		}
	}
	return out
}

func (p *Planner) entryPoint() string {
	for _, def := range p.defs {
		if def.EntryPoint {
			return def.Name
		}
	}
	if len(p.defs) > 0 {
		return p.defs[0].Name
	}
	return ""
}

// IsFirstPerson reports whether the request speaks about the customer
// themselves ("I", "my", "I'm", ...).
func IsFirstPerson(request string) bool {
	request = strings.NewReplacer("’", "'", "‘", "'").Replace(request)
	words := strings.FieldsFunc(request, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, word := range words {
		if _, ok := firstPersonWords[strings.ToLower(strings.Trim(word, "'"))]; ok {
			return true
		}
	}
	return false
}

// ParsePlan accepts {"plan": [...]} or a bare array of store names, with or
// without code fences. Names are matched to defs case-insensitively; unknown
// names are kept as given. Duplicates are dropped.
func ParsePlan(content string, defs []store.Definition) (Plan, error) {
	raw := strings.TrimSpace(stripCodeFences(content))
	if raw == "" {
		return nil, errEmptyPlan
	}

	var names []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			return nil, fmt.Errorf("decode plan array: %w", err)
		}
	} else {
		var payload struct {
			Plan *[]string `json:"plan"`
		}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, fmt.Errorf("decode plan object: %w", err)
		}
		if payload.Plan == nil {
			return nil, fmt.Errorf("plan key is missing")
		}
		names = *payload.Plan
	}

	known := make(map[string]string, len(defs))
	for _, def := range defs {
		known[strings.ToLower(def.Name)] = def.Name
	}
	plan := make(Plan, 0, len(names))
	seen := map[string]struct{}{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if canonical, ok := known[strings.ToLower(name)]; ok {
			name = canonical
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		plan = append(plan, name)
	}
	if len(plan) == 0 {
		return nil, errEmptyPlan
	}
	return plan, nil
}

// BuildPlanningPrompt renders the planner prompt for request.
func BuildPlanningPrompt(request string, defs []store.Definition) string {
	entry := ""
	for _, def := range defs {
		if def.EntryPoint {
			entry = def.Name
			break
		}
	}
	if entry == "" && len(defs) > 0 {
		entry = defs[0].Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are the Omni-Retail Omni-Agent. You handle queries across %d production platforms:\n", len(defs))
	for i, def := range defs {
		fmt.Fprintf(&b, "%d. %s: %s", i+1, def.Name, def.Description)
		switch {
		case def.EntryPoint:
			b.WriteString(` (MANDATORY entry point for "I", "My", or finding Users/Products)`)
		case def.DependsOn != "":
			fmt.Fprintf(&b, " (Depends on %s)", def.DependsOn)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nUSER QUERY: \"%s\"\n\n", request)
	b.WriteString("TASK: Identify which platforms need to be queried.\n")
	b.WriteString("Return your plan as a JSON object with a \"plan\" key containing a list of database names.\n")
	if entry != "" {
		fmt.Fprintf(&b, "CRITICAL: If the query is personal (\"I\", \"My\") or mentions a product name, you MUST start with \"%s\" to identify the User/Order.\n", entry)
	}
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
	}
	example, _ := json.Marshal(map[string][]string{"plan": names})
	fmt.Fprintf(&b, "Example: %s", example)
	return b.String()
}

// stripCodeFences removes every markdown fence marker along with a bare
// language tag following it.
func stripCodeFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if !strings.Contains(line, "```") {
			out = append(out, line)
			continue
		}
		line = strings.TrimSpace(strings.ReplaceAll(line, "```", ""))
		for _, tag := range fenceTags {
			if strings.EqualFold(line, tag) {
				line = ""
				break
			}
			if rest, ok := cutPrefixFold(line, tag+" "); ok {
				line = rest
				break
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

var fenceTags = []string{"sqlite", "sql", "postgresql", "json"}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
