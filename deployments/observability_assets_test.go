package deployments

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Groups []struct {
		Name  string `yaml:"name"`
		Rules []struct {
			Alert  string            `yaml:"alert"`
			Record string            `yaml:"record"`
			Expr   string            `yaml:"expr"`
			Labels map[string]string `yaml:"labels"`
		} `yaml:"rules"`
	} `yaml:"groups"`
}

// exportedMetrics mirrors the collectors registered by internal/observability.
var exportedMetrics = map[string]bool{
	"omnidesk_http_requests_total":           true,
	"omnidesk_http_request_duration_seconds": true,
	"omnidesk_chat_runs_total":               true,
	"omnidesk_chat_run_duration_seconds":     true,
	"omnidesk_llm_requests_total":            true,
	"omnidesk_llm_fallback_total":            true,
	"omnidesk_plan_fallback_total":           true,
	"omnidesk_sql_rejected_total":            true,
	"omnidesk_store_queries_total":           true,
	"omnidesk_store_query_duration_seconds":  true,
}

var metricRef = regexp.MustCompile(`omnidesk_[a-z_]+`)

func TestRecordingRulesReferenceExportedMetrics(t *testing.T) {
	rules := loadRules(t, "omnidesk_recording_rules.yaml")

	records := map[string]bool{}
	for _, group := range rules.Groups {
		for _, rule := range group.Rules {
			if rule.Record == "" || strings.TrimSpace(rule.Expr) == "" {
				t.Fatalf("group %s has incomplete rule %#v", group.Name, rule)
			}
			records[rule.Record] = true
			for _, ref := range metricRef.FindAllString(rule.Expr, -1) {
				name := strings.TrimSuffix(ref, "_bucket")
				if !exportedMetrics[name] {
					t.Fatalf("record %s references unknown metric %q", rule.Record, ref)
				}
			}
		}
	}
	for _, name := range []string{
		"omnidesk:slo_chat_latency_seconds_p95",
		"omnidesk:slo_chat_error_rate_5m",
		"omnidesk:slo_store_error_rate_5m",
		"omnidesk:slo_http_error_rate_5m",
	} {
		if !records[name] {
			t.Fatalf("recording rules missing record %q", name)
		}
	}
}

func TestAlertsUseRecordedSeriesAndSeverity(t *testing.T) {
	records := map[string]bool{}
	for _, group := range loadRules(t, "omnidesk_recording_rules.yaml").Groups {
		for _, rule := range group.Rules {
			records[rule.Record] = true
		}
	}

	alerts := loadRules(t, "omnidesk_rules.yaml")
	seen := map[string]bool{}
	recordRef := regexp.MustCompile(`omnidesk:[a-z0-9_]+`)
	for _, group := range alerts.Groups {
		for _, rule := range group.Rules {
			seen[rule.Alert] = true
			if severity := rule.Labels["severity"]; severity != "warning" && severity != "critical" {
				t.Fatalf("alert %s severity = %q", rule.Alert, severity)
			}
			for _, ref := range recordRef.FindAllString(rule.Expr, -1) {
				if !records[ref] {
					t.Fatalf("alert %s references unknown record %q", rule.Alert, ref)
				}
			}
		}
	}
	for _, name := range []string{"OmniDeskChatErrorRateHigh", "OmniDeskStoreErrorsHigh", "OmniDeskModelRateLimited"} {
		if !seen[name] {
			t.Fatalf("rules missing alert %q", name)
		}
	}
}

func TestPrometheusScrapeExampleContainsMetricsPathAndRules(t *testing.T) {
	path := filepath.Join(repoRoot(t), "deployments", "observability", "prometheus", "prometheus-scrape.example.yaml")
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read scrape example: %v", err)
	}
	text := string(content)

	for _, token := range []string{
		"metrics_path: /v1/metrics",
		"job_name: omnidesk-api",
		"omnidesk_rules.yaml",
		"omnidesk_recording_rules.yaml",
	} {
		if !strings.Contains(text, token) {
			t.Fatalf("scrape example missing %q", token)
		}
	}
}

func loadRules(t *testing.T, name string) ruleFile {
	t.Helper()
	path := filepath.Join(repoRoot(t), "deployments", "observability", "prometheus", name)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rules file: %v", err)
	}
	var rules ruleFile
	if err := yaml.Unmarshal(content, &rules); err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	if len(rules.Groups) == 0 {
		t.Fatalf("%s has no groups", name)
	}
	return rules
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
}
