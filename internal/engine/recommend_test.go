package engine

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

func TestGuidanceEngineRules(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guidance.yaml")
	if err := os.WriteFile(path, []byte(`rules:
  - id: orders-backup
    match:
      error_type: "TABLE_NOT_FOUND"
      message_contains: ["orders"]
    commands: ["SHOW TABLES LIKE 'orders%';"]
    recommendations: ["Restore orders_backup from the nightly snapshot"]
    severity: high
  - id: unrelated
    match:
      error_type: "DEADLOCK"
    recommendations: ["Should not appear"]
`), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	engine, err := NewGuidanceEngine(path, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	if err != nil {
		t.Fatalf("new guidance engine: %v", err)
	}
	if engine.Rules() != 2 {
		t.Fatalf("expected 2 rules, got %d", engine.Rules())
	}

	plan := engine.Guided(models.ErrorRecord{Type: models.ErrorTableNotFound, Message: "Table 'orders_backup' doesn't exist"})
	if plan.Strategy != models.StrategyGuidedResolution || !plan.RequiresHumanReview {
		t.Fatalf("expected guided plan requiring review, got %+v", plan)
	}
	if len(plan.PreventionMeasures) != 1 || !strings.Contains(plan.PreventionMeasures[0], "nightly snapshot") {
		t.Fatalf("unexpected prevention measures %v", plan.PreventionMeasures)
	}
	if plan.Severity != models.SeverityHigh {
		t.Fatalf("expected rule severity to raise plan severity, got %s", plan.Severity)
	}
	if plan.EffectivenessScore != 0.7 {
		t.Fatalf("expected effectiveness 0.7, got %v", plan.EffectivenessScore)
	}
}

func TestGuidanceEngineNoFile(t *testing.T) {
	engine, err := NewGuidanceEngine("non-existent", nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if engine != nil {
		t.Fatalf("expected nil engine when file missing")
	}

	plan := engine.Guided(models.ErrorRecord{Type: models.ErrorAccessDenied, Message: "Access denied for user 'app'@'%'"})
	if len(plan.Commands) == 0 || plan.Commands[0] != "SHOW GRANTS FOR CURRENT_USER();" {
		t.Fatalf("expected built-in grants guidance, got %v", plan.Commands)
	}
}

func TestGuidanceEngineBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("rules: [unterminated"), 0644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	if _, err := NewGuidanceEngine(path, nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestGuidedSyntaxError(t *testing.T) {
	var engine *GuidanceEngine
	plan := engine.Guided(models.ErrorRecord{
		Type:  models.ErrorSyntax,
		Query: "SELEC id\nFROM orders;",
	})
	last := plan.Commands[len(plan.Commands)-1]
	if last != "EXPLAIN SELEC id FROM orders;  -- Test query structure" {
		t.Fatalf("unexpected explain command %q", last)
	}
}
