package omni

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/omniretail/omnidesk/internal/llm"
	"github.com/omniretail/omnidesk/internal/store"
)

const stageSynthesizer = "synthesizer"

var nameColumns = []string{"name", "username", "customer_name"}

type Synthesizer struct {
	llm         llm.Completer
	temperature float64
}

func NewSynthesizer(completer llm.Completer, temperature float64) *Synthesizer {
	return &Synthesizer{llm: completer, temperature: temperature}
}

// Synthesize writes the customer-facing answer. The model output is returned
// as is.
func (s *Synthesizer) Synthesize(ctx context.Context, request string, plan Plan, results map[string][]store.Row) (string, error) {
	prompt, err := BuildSynthesisPrompt(request, plan, results)
	if err != nil {
		return "", err
	}
	resp, err := s.llm.Complete(ctx, llm.Request{
		Stage:       stageSynthesizer,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Temperature: s.temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// BuildSynthesisPrompt renders the answer prompt over the results gathered so
// far, keyed by store. plan orders the search for the customer's name.
func BuildSynthesisPrompt(request string, plan Plan, results map[string][]store.Row) (string, error) {
	if results == nil {
		results = map[string][]store.Row{}
	}
	raw, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode results: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are the Omni-Retail Premium Customer Assistant.\n")
	if name := CustomerName(plan, results); name != "" {
		fmt.Fprintf(&b, "GREETING: Address the customer by their Name: %s.\n", name)
	} else {
		b.WriteString("GREETING: Greet the customer warmly; their name is not in the results.\n")
	}
	b.WriteString("\nSEARCH RESULTS FROM DATA NODES:\n")
	b.Write(raw)
	fmt.Fprintf(&b, "\n\nUSER QUERY: \"%s\"\n\n", request)
	b.WriteString("GOAL: Provide a \"Perfect Accuracy\" answer in a professional dashboard style.\n\n")
	b.WriteString("GUIDELINES:\n")
	b.WriteString("1. NO FAILURES: Never say an item was \"not found\". If a record is missing, describe the status as still in progress.\n")
	b.WriteString("2. DATA INTEGRATION: Combine the order, shipping, payment and support details into one narrative.\n")
	b.WriteString("3. HIGHLIGHTS: Bold (<b>) all IDs, Tracking Numbers, Statuses, and Balances. NEVER use double asterisks **.\n")
	b.WriteString("4. STRUCTURE: Use a summary paragraph followed by <ul> bits of data.\n")
	b.WriteString("5. NO TECH-SPEAK: Never mention SQL, JSON, or databases.\n")
	b.WriteString("6. NO MARKDOWN: Ensure no ** is used in the final response. Use <b> only.")
	return b.String(), nil
}

// CustomerName returns the first name-like value in the results. Stores are
// searched in plan order, then any others by name. A Name on a product row
// (ProductID without UserID) is not a customer name.
func CustomerName(plan Plan, results map[string][]store.Row) string {
	for _, storeName := range searchOrder(plan, results) {
		for _, row := range results[storeName] {
			product := hasColumn(row, "ProductID") && !hasColumn(row, "UserID")
			for _, candidate := range nameColumns {
				if product && candidate == "name" {
					continue
				}
				for column, value := range row {
					if !strings.EqualFold(column, candidate) {
						continue
					}
					if text, ok := value.(string); ok && strings.TrimSpace(text) != "" {
						return strings.TrimSpace(text)
					}
				}
			}
		}
	}
	return ""
}

func searchOrder(plan Plan, results map[string][]store.Row) []string {
	order := make([]string, 0, len(results))
	seen := make(map[string]bool, len(results))
	for _, name := range plan {
		if _, ok := results[name]; ok && !seen[name] {
			order = append(order, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(results)-len(order))
	for name := range results {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func hasColumn(row store.Row, column string) bool {
	for name := range row {
		if strings.EqualFold(name, column) {
			return true
		}
	}
	return false
}
