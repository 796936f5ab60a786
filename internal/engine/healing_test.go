package engine

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

func TestRegistryUnknownTypeEscalates(t *testing.T) {
	r := NewRegistry()
	plan := r.Generate("NOT_A_REAL_TYPE", models.ErrorRecord{Type: "NOT_A_REAL_TYPE"}, 0)
	if plan.Success {
		t.Fatalf("expected success=false")
	}
	if !plan.RequiresHumanReview {
		t.Fatalf("expected human review")
	}
	if len(plan.Commands) != 0 {
		t.Fatalf("expected empty commands, got %v", plan.Commands)
	}
	if plan.Strategy != models.StrategyEscalation {
		t.Fatalf("expected escalation, got %s", plan.Strategy)
	}
}

func TestRegistryMissingTable(t *testing.T) {
	r := NewRegistry()
	plan := r.Generate(models.ErrorTableNotFound, models.ErrorRecord{Type: models.ErrorTableNotFound, Table: "orders_backup"}, 1)
	if !plan.Success || plan.EffectivenessScore != 0.8 {
		t.Fatalf("expected successful plan with 0.8 effectiveness, got %+v", plan)
	}
	if !strings.Contains(plan.Commands[len(plan.Commands)-1], "CREATE TABLE IF NOT EXISTS `orders_backup`") {
		t.Fatalf("expected create table command, got %v", plan.Commands)
	}
	if plan.RollbackCommands[0] != "DROP TABLE IF EXISTS `orders_backup`;" {
		t.Fatalf("unexpected rollback %v", plan.RollbackCommands)
	}
	if plan.VerificationCommands[0] != "SHOW TABLES LIKE 'orders_backup';" {
		t.Fatalf("unexpected verification %v", plan.VerificationCommands)
	}

	escalated := r.Generate(models.ErrorTableNotFound, models.ErrorRecord{Type: models.ErrorTableNotFound}, 1)
	if escalated.Success || escalated.Strategy != models.StrategyEscalation || !escalated.RequiresHumanReview {
		t.Fatalf("expected escalation without a table name, got %+v", escalated)
	}
}

func TestRegistryMissingTableMultibyteName(t *testing.T) {
	plan := NewRegistry().Generate(models.ErrorTableNotFound, models.ErrorRecord{Type: models.ErrorTableNotFound, Table: "订单表_归档_2024"}, 1)
	if !plan.Success {
		t.Fatalf("expected successful plan, got %+v", plan)
	}
	for _, cmd := range append(append([]string{}, plan.Commands...), plan.VerificationCommands...) {
		if !utf8.ValidString(cmd) {
			t.Fatalf("invalid UTF-8 in command %q", cmd)
		}
	}
	if !strings.Contains(plan.Commands[0], "LIKE '%订单表_归%'") {
		t.Fatalf("expected five character table prefix, got %q", plan.Commands[0])
	}
}

func TestRegistryQuotesIdentifiers(t *testing.T) {
	plan := NewRegistry().Generate(models.ErrorTableNotFound, models.ErrorRecord{Table: "x`; DROP DATABASE prod; --"}, 1)
	if !strings.Contains(plan.RollbackCommands[0], "`x``; DROP DATABASE prod; --`") {
		t.Fatalf("expected escaped identifier, got %q", plan.RollbackCommands[0])
	}
}

func TestRegistryBuiltInHealers(t *testing.T) {
	r := NewRegistry()
	cases := []struct {
		errorType models.ErrorType
		severity  models.Severity
		score     float64
		review    bool
	}{
		{models.ErrorDeadlock, models.SeverityHigh, 0.9, false},
		{models.ErrorLockTimeout, models.SeverityHigh, 0.9, false},
		{models.ErrorConnection, models.SeverityHigh, 0.7, false},
		{models.ErrorTooManyConnections, models.SeverityCritical, 0.85, false},
		{models.ErrorDiskFull, models.SeverityCritical, 0.75, false},
		{models.ErrorSlowQuery, models.SeverityMedium, 0.6, true},
		{models.ErrorTimeout, models.SeverityMedium, 0.6, true},
	}
	for _, tc := range cases {
		plan := r.Generate(tc.errorType, models.ErrorRecord{Type: tc.errorType}, 0)
		if !plan.Success || plan.Strategy != models.StrategySelfHealing {
			t.Fatalf("%s: expected successful self-healing plan, got %+v", tc.errorType, plan)
		}
		if plan.Severity != tc.severity || plan.EffectivenessScore != tc.score || plan.RequiresHumanReview != tc.review {
			t.Fatalf("%s: unexpected plan %+v", tc.errorType, plan)
		}
		if len(plan.Commands) == 0 {
			t.Fatalf("%s: expected diagnostic commands", tc.errorType)
		}
	}
}

func TestRegistrySlowQueryIndexOpportunity(t *testing.T) {
	plan := NewRegistry().Generate(models.ErrorSlowQuery, models.ErrorRecord{
		Query: "SELECT * FROM orders where customer_id = 7;",
		Table: "orders",
	}, 0)
	if plan.Commands[0] != "EXPLAIN FORMAT=JSON SELECT * FROM orders where customer_id = 7;" {
		t.Fatalf("unexpected explain %q", plan.Commands[0])
	}
	found := false
	for _, action := range plan.ActionsTaken {
		if action == "Identified potential index opportunities" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected index opportunity, got %v", plan.ActionsTaken)
	}
}

func TestRegistryImmediate(t *testing.T) {
	r := NewRegistry()
	for _, errorType := range []models.ErrorType{models.ErrorConnection, models.ErrorTooManyConnections, models.ErrorDiskFull, models.ErrorSyntax} {
		plan := r.Immediate(errorType, models.ErrorRecord{Type: errorType}, 0)
		if plan.Strategy != models.StrategyImmediateFix || plan.Severity != models.SeverityCritical {
			t.Fatalf("%s: unexpected plan %+v", errorType, plan)
		}
		if len(plan.VerificationCommands) == 0 || plan.VerificationCommands[0] != "SELECT 1;" {
			t.Fatalf("%s: expected connectivity re-test", errorType)
		}
		if plan.EffectivenessScore != 0.9 {
			t.Fatalf("%s: expected 0.9 effectiveness", errorType)
		}
	}
}

func TestRegistryPreventiveReportsRecurrence(t *testing.T) {
	r := NewRegistry()
	for _, errorType := range []models.ErrorType{models.ErrorTableNotFound, models.ErrorDeadlock, models.ErrorSyntax, ""} {
		plan := r.Preventive(errorType, models.ErrorRecord{Type: errorType, Table: "orders_backup"}, 7)
		if plan.Strategy != models.StrategyPreventiveAction || plan.EffectivenessScore != 0.95 {
			t.Fatalf("%q: unexpected plan %+v", errorType, plan)
		}
		if plan.ActionsTaken[1] != "Error pattern occurs 7 times - implementing prevention" {
			t.Fatalf("%q: expected recurrence report, got %v", errorType, plan.ActionsTaken)
		}
		scheduled := false
		for _, cmd := range plan.Commands {
			if strings.Contains(cmd, "ON SCHEDULE EVERY") {
				scheduled = true
			}
		}
		if !scheduled {
			t.Fatalf("%q: expected scheduled monitoring construct, got %v", errorType, plan.Commands)
		}
	}
}

func TestRegistryCustomHealer(t *testing.T) {
	r := NewRegistry()
	if r.HasHealer(models.ErrorFunction) {
		t.Fatalf("expected no built-in function healer")
	}
	r.RegisterHealer(models.ErrorFunction, func(rec models.ErrorRecord, _ int) models.ResolutionPlan {
		return models.ResolutionPlan{Strategy: models.StrategySelfHealing, Success: true, Commands: []string{"SHOW FUNCTION STATUS;"}}
	})
	plan := r.Generate(models.ErrorFunction, models.ErrorRecord{}, 0)
	if !plan.Success || plan.Commands[0] != "SHOW FUNCTION STATUS;" {
		t.Fatalf("expected custom healer to run, got %+v", plan)
	}
}
