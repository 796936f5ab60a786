package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

// GuidanceEngine builds guided-resolution plans from built-in advice plus an
// optional YAML guidance pack.
type GuidanceEngine struct {
	rules  []GuidanceRule
	logger *slog.Logger
}

// GuidanceRule contributes advisory commands and prevention measures to
// matching error records.
type GuidanceRule struct {
	ID              string            `yaml:"id"`
	Match           GuidanceMatch     `yaml:"match"`
	Actions         []string          `yaml:"actions"`
	Commands        []string          `yaml:"commands"`
	Recommendations []string          `yaml:"recommendations"`
	Severity        string            `yaml:"severity"`
	Metadata        map[string]string `yaml:"metadata"`
}

// GuidanceMatch defines optional attributes for rule matching; empty fields match anything.
type GuidanceMatch struct {
	ErrorType       string   `yaml:"error_type"`
	Code            string   `yaml:"code"`
	Table           string   `yaml:"table"`
	MessageContains []string `yaml:"message_contains"`
}

// GuidanceFile is the YAML root structure.
type GuidanceFile struct {
	Rules []GuidanceRule `yaml:"rules"`
}

// NewGuidanceEngine loads rules from path. An empty or missing path yields a nil
// engine, which still serves built-in guidance.
func NewGuidanceEngine(path string, logger *slog.Logger) (*GuidanceEngine, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read guidance pack: %w", err)
	}
	var file GuidanceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse guidance pack: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("guidance pack loaded", slog.String("path", path), slog.Int("rules", len(file.Rules)))
	return &GuidanceEngine{rules: file.Rules, logger: logger}, nil
}

// Rules returns the number of loaded rules.
func (g *GuidanceEngine) Rules() int {
	if g == nil {
		return 0
	}
	return len(g.rules)
}

// Guided builds a GUIDED_RESOLUTION plan for rec. Guided plans always require
// human review.
func (g *GuidanceEngine) Guided(rec models.ErrorRecord) models.ResolutionPlan {
	plan := models.ResolutionPlan{
		Strategy:             models.StrategyGuidedResolution,
		Severity:             models.DefaultSeverity(rec.Type),
		Success:              true,
		ActionsTaken:         []string{"Providing guided resolution steps"},
		Commands:             []string{},
		VerificationCommands: []string{},
		RollbackCommands:     []string{},
		EffectivenessScore:   0.7,
		RequiresHumanReview:  true,
	}
	builtinGuidance(rec, &plan)

	for _, rule := range g.matching(rec) {
		plan.ActionsTaken = appendUnique(plan.ActionsTaken, rule.Actions...)
		plan.Commands = appendUnique(plan.Commands, rule.Commands...)
		plan.PreventionMeasures = appendUnique(plan.PreventionMeasures, rule.Recommendations...)
		if rule.Severity != "" {
			if sev := models.ParseSeverity(rule.Severity); sev.Rank() > plan.Severity.Rank() {
				plan.Severity = sev
			}
		}
	}
	return plan
}

func (g *GuidanceEngine) matching(rec models.ErrorRecord) []GuidanceRule {
	if g == nil {
		return nil
	}
	matched := make([]GuidanceRule, 0)
	for _, rule := range g.rules {
		if rule.Match.ErrorType != "" && !strings.EqualFold(rule.Match.ErrorType, string(rec.Type)) {
			continue
		}
		if rule.Match.Code != "" && rule.Match.Code != rec.Code {
			continue
		}
		if rule.Match.Table != "" && !strings.EqualFold(rule.Match.Table, rec.Table) {
			continue
		}
		if len(rule.Match.MessageContains) > 0 && !messageContains(rec.Message, rule.Match.MessageContains) {
			continue
		}
		matched = append(matched, rule)
	}
	return matched
}

func builtinGuidance(rec models.ErrorRecord, plan *models.ResolutionPlan) {
	switch rec.Type {
	case models.ErrorSyntax:
		query := strings.TrimRight(strings.TrimSpace(rec.Query), ";")
		plan.Commands = append(plan.Commands, "-- Original query with syntax error:")
		if query != "" {
			plan.Commands = append(plan.Commands, "-- "+singleLine(query))
		}
		plan.Commands = append(plan.Commands, "-- Check syntax using:", "SELECT 1;  -- Test basic syntax")
		if query != "" {
			plan.Commands = append(plan.Commands, fmt.Sprintf("EXPLAIN %s;  -- Test query structure", singleLine(query)))
		}
		plan.ActionsTaken = append(plan.ActionsTaken, "Generated syntax validation commands")
	case models.ErrorAccessDenied:
		plan.Commands = append(plan.Commands,
			"SHOW GRANTS FOR CURRENT_USER();",
			"SELECT USER(), CURRENT_USER();",
			"-- Grant necessary permissions:",
			"-- GRANT SELECT ON <schema>.* TO <user>;",
		)
		plan.ActionsTaken = append(plan.ActionsTaken, "Generated permission analysis commands")
	case models.ErrorColumnNotFound:
		if rec.Table != "" {
			plan.Commands = append(plan.Commands, fmt.Sprintf("SHOW COLUMNS FROM %s;", quoteIdent(rec.Table)))
		}
		plan.ActionsTaken = append(plan.ActionsTaken, "Generated column inspection commands")
	case models.ErrorDuplicateKey:
		if rec.Table != "" {
			plan.Commands = append(plan.Commands, fmt.Sprintf("SHOW INDEX FROM %s WHERE Non_unique = 0;", quoteIdent(rec.Table)))
		}
		plan.ActionsTaken = append(plan.ActionsTaken, "Generated unique key inspection commands")
		plan.PreventionMeasures = appendUnique(plan.PreventionMeasures, "Use INSERT ... ON DUPLICATE KEY UPDATE where upserts are intended")
	}
}

func messageContains(message string, keywords []string) bool {
	lower := strings.ToLower(message)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func appendUnique(existing []string, additions ...string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec] = struct{}{}
	}
	for _, item := range additions {
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		existing = append(existing, item)
		seen[item] = struct{}{}
	}
	return existing
}
