package engine

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

// Generator builds an unexecuted plan for one error record. Identity, timing and
// signature fields are stamped by the engine afterwards.
type Generator func(rec models.ErrorRecord, recurrence int) models.ResolutionPlan

// Registry maps error types onto plan generators for the self-healing,
// immediate-fix and preventive strategies. It never executes anything.
type Registry struct {
	mu         sync.RWMutex
	healers    map[models.ErrorType]Generator
	immediate  map[models.ErrorType]Generator
	preventive map[models.ErrorType]Generator
}

// NewRegistry returns a Registry loaded with the built-in generators.
func NewRegistry() *Registry {
	return &Registry{
		healers: map[models.ErrorType]Generator{
			models.ErrorTableNotFound:      healMissingTable,
			models.ErrorDeadlock:           healLockContention,
			models.ErrorLockTimeout:        healLockContention,
			models.ErrorConnection:         healConnection,
			models.ErrorTooManyConnections: healConnectionLimit,
			models.ErrorDiskFull:           healDiskSpace,
			models.ErrorSlowQuery:          healSlowOperation,
			models.ErrorTimeout:            healSlowOperation,
		},
		immediate: map[models.ErrorType]Generator{
			models.ErrorConnection:         immediateConnection,
			models.ErrorTooManyConnections: immediateConnectionLimit,
			models.ErrorDiskFull:           immediateDiskSpace,
		},
		preventive: map[models.ErrorType]Generator{
			models.ErrorTableNotFound: preventMissingTable,
			models.ErrorDeadlock:      preventDeadlock,
		},
	}
}

// RegisterHealer installs or replaces the self-healing generator for errorType.
func (r *Registry) RegisterHealer(errorType models.ErrorType, gen Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.healers[errorType] = gen
}

// HasHealer reports whether a self-healing generator exists for errorType.
func (r *Registry) HasHealer(errorType models.ErrorType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.healers[errorType]
	return ok
}

// Generate builds a self-healing plan. Types without a generator, and generators
// that cannot produce a usable plan, yield an escalation plan.
func (r *Registry) Generate(errorType models.ErrorType, rec models.ErrorRecord, recurrence int) models.ResolutionPlan {
	r.mu.RLock()
	gen, ok := r.healers[errorType]
	r.mu.RUnlock()
	if !ok {
		return escalate(errorType, fmt.Sprintf("No self-healing action available for %s", displayType(errorType)))
	}
	plan := gen(rec, recurrence)
	if !plan.Success {
		reason := "Self-healing could not build a usable plan"
		if len(plan.ActionsTaken) > 0 {
			reason = plan.ActionsTaken[len(plan.ActionsTaken)-1]
		}
		return escalate(errorType, reason)
	}
	return plan
}

// Immediate builds an immediate-fix plan: the narrowest corrective commands plus
// a connectivity re-test.
func (r *Registry) Immediate(errorType models.ErrorType, rec models.ErrorRecord, recurrence int) models.ResolutionPlan {
	r.mu.RLock()
	gen, ok := r.immediate[errorType]
	r.mu.RUnlock()
	if ok {
		return gen(rec, recurrence)
	}
	return models.ResolutionPlan{
		Strategy:             models.StrategyImmediateFix,
		Severity:             models.SeverityCritical,
		Success:              true,
		ActionsTaken:         []string{"Initiated emergency response protocol"},
		Commands:             []string{},
		VerificationCommands: []string{"SELECT 1;"},
		RollbackCommands:     []string{},
		EffectivenessScore:   0.9,
	}
}

// Preventive builds a plan that reports the triggering recurrence count and
// proposes a scheduled monitoring construct.
func (r *Registry) Preventive(errorType models.ErrorType, rec models.ErrorRecord, recurrence int) models.ResolutionPlan {
	r.mu.RLock()
	gen, ok := r.preventive[errorType]
	r.mu.RUnlock()
	if !ok {
		gen = preventGeneric
	}
	plan := gen(rec, recurrence)
	plan.ActionsTaken = append([]string{
		"Analyzing error patterns for prevention",
		fmt.Sprintf("Error pattern occurs %d times - implementing prevention", recurrence),
	}, plan.ActionsTaken...)
	return plan
}

func escalate(errorType models.ErrorType, reason string) models.ResolutionPlan {
	return models.ResolutionPlan{
		Strategy:             models.StrategyEscalation,
		Severity:             models.DefaultSeverity(errorType),
		Success:              false,
		ActionsTaken:         []string{reason, "Escalated for human review"},
		Commands:             []string{},
		VerificationCommands: []string{},
		RollbackCommands:     []string{},
		EffectivenessScore:   0,
		RequiresHumanReview:  true,
	}
}

func healMissingTable(rec models.ErrorRecord, _ int) models.ResolutionPlan {
	if rec.Table == "" {
		return models.ResolutionPlan{
			Strategy:     models.StrategySelfHealing,
			ActionsTaken: []string{"Missing table name; cannot propose a re-creation schema"},
		}
	}
	table := quoteIdent(rec.Table)
	return models.ResolutionPlan{
		Strategy: models.StrategySelfHealing,
		Severity: models.SeverityMedium,
		Success:  true,
		ActionsTaken: []string{
			fmt.Sprintf("Analyzed similar tables for %s", rec.Table),
			fmt.Sprintf("Generated CREATE TABLE statement for %s", rec.Table),
		},
		Commands: []string{
			fmt.Sprintf("SELECT TABLE_SCHEMA, TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME LIKE %s;", quoteLiteral("%"+prefix(rec.Table, 5)+"%")),
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INT AUTO_INCREMENT PRIMARY KEY, created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP, data JSON, INDEX idx_created (created_at));", table),
		},
		VerificationCommands: []string{fmt.Sprintf("SHOW TABLES LIKE %s;", quoteLiteral(rec.Table))},
		RollbackCommands:     []string{fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)},
		EffectivenessScore:   0.8,
		PreventionMeasures: []string{
			"Validate schema migrations before deploy",
			"Add table existence checks to application startup",
		},
	}
}

func healLockContention(rec models.ErrorRecord, _ int) models.ResolutionPlan {
	return models.ResolutionPlan{
		Strategy: models.StrategySelfHealing,
		Severity: models.SeverityHigh,
		Success:  true,
		ActionsTaken: []string{
			"Detected lock contention",
			"Identified longest running locked transaction",
		},
		Commands: []string{
			"SHOW ENGINE INNODB STATUS;",
			"SELECT * FROM INFORMATION_SCHEMA.INNODB_TRX ORDER BY trx_started;",
			"SELECT * FROM performance_schema.data_lock_waits;",
			"SELECT CONCAT('KILL ', id, ';') AS kill_command FROM INFORMATION_SCHEMA.PROCESSLIST WHERE state LIKE '%lock%' ORDER BY time DESC LIMIT 1;",
		},
		VerificationCommands: []string{"SHOW PROCESSLIST;"},
		RollbackCommands:     []string{},
		EffectivenessScore:   0.9,
		PreventionMeasures: []string{
			"Implement proper indexing to reduce lock time",
			"Use shorter transactions",
			"Consider using READ COMMITTED isolation level",
		},
	}
}

func healConnection(models.ErrorRecord, int) models.ResolutionPlan {
	return models.ResolutionPlan{
		Strategy: models.StrategySelfHealing,
		Severity: models.SeverityHigh,
		Success:  true,
		ActionsTaken: []string{
			"Analyzing connection health",
			"Recommended connection pool restart",
		},
		Commands: []string{
			"SHOW STATUS LIKE 'Threads_connected';",
			"SHOW STATUS LIKE 'Aborted_connects';",
			"SHOW VARIABLES LIKE 'max_connections';",
		},
		VerificationCommands: []string{"SELECT 1;"},
		RollbackCommands:     []string{},
		EffectivenessScore:   0.7,
		PreventionMeasures: []string{
			"Enable connection retry with backoff in clients",
			"Monitor network latency between application and database",
		},
	}
}

func healConnectionLimit(models.ErrorRecord, int) models.ResolutionPlan {
	return models.ResolutionPlan{
		Strategy: models.StrategySelfHealing,
		Severity: models.SeverityCritical,
		Success:  true,
		ActionsTaken: []string{
			"Analyzing connection usage",
			"Identified idle connections for termination",
		},
		Commands: []string{
			"SHOW PROCESSLIST;",
			"SELECT COUNT(*) AS active_connections FROM INFORMATION_SCHEMA.PROCESSLIST WHERE COMMAND != 'Sleep';",
			"SHOW STATUS LIKE 'Max_used_connections';",
			"SELECT CONCAT('KILL ', id, ';') AS kill_command FROM INFORMATION_SCHEMA.PROCESSLIST WHERE COMMAND = 'Sleep' AND time > 300 ORDER BY time DESC;",
		},
		VerificationCommands: []string{"SHOW STATUS LIKE 'Threads_connected';"},
		RollbackCommands:     []string{},
		EffectivenessScore:   0.85,
		PreventionMeasures: []string{
			"Implement connection pooling",
			"Set proper connection timeouts",
			"Monitor connection usage regularly",
		},
	}
}

func healDiskSpace(models.ErrorRecord, int) models.ResolutionPlan {
	return models.ResolutionPlan{
		Strategy: models.StrategySelfHealing,
		Severity: models.SeverityCritical,
		Success:  true,
		ActionsTaken: []string{
			"Analyzing disk usage",
			"Scheduled binary log cleanup",
		},
		Commands: []string{
			"SELECT table_schema, SUM(data_length + index_length) / 1024 / 1024 AS size_mb FROM information_schema.tables GROUP BY table_schema;",
			"SHOW BINARY LOGS;",
			"PURGE BINARY LOGS BEFORE DATE_SUB(NOW(), INTERVAL 7 DAY);",
		},
		VerificationCommands: []string{"SHOW BINARY LOGS;"},
		RollbackCommands:     []string{},
		EffectivenessScore:   0.75,
		PreventionMeasures: []string{
			"Implement automated log rotation",
			"Set up disk space monitoring",
			"Archive old data regularly",
		},
	}
}

var filterClause = regexp.MustCompile(`(?i)\bWHERE\b`)

func healSlowOperation(rec models.ErrorRecord, _ int) models.ResolutionPlan {
	plan := models.ResolutionPlan{
		Strategy:             models.StrategySelfHealing,
		Severity:             models.SeverityMedium,
		Success:              true,
		ActionsTaken:         []string{"Analyzing query performance"},
		Commands:             []string{},
		VerificationCommands: []string{},
		RollbackCommands:     []string{},
		EffectivenessScore:   0.6,
		RequiresHumanReview:  true,
		PreventionMeasures: []string{
			"Add appropriate indexes",
			"Rewrite query for better performance",
			"Consider query caching",
		},
	}
	query := strings.TrimRight(strings.TrimSpace(rec.Query), ";")
	if query == "" {
		plan.ActionsTaken = append(plan.ActionsTaken, "No query captured; inspect the slow query log")
		plan.Commands = append(plan.Commands, "SHOW FULL PROCESSLIST;")
		return plan
	}
	plan.Commands = append(plan.Commands, fmt.Sprintf("EXPLAIN FORMAT=JSON %s;", query))
	plan.ActionsTaken = append(plan.ActionsTaken, "Analyzing query execution plan")
	if filterClause.MatchString(query) {
		plan.ActionsTaken = append(plan.ActionsTaken, "Identified potential index opportunities")
		if rec.Table != "" {
			plan.Commands = append(plan.Commands, fmt.Sprintf("SHOW INDEX FROM %s;", quoteIdent(rec.Table)))
		}
	}
	return plan
}

func immediateConnection(models.ErrorRecord, int) models.ResolutionPlan {
	return models.ResolutionPlan{
		Strategy: models.StrategyImmediateFix,
		Severity: models.SeverityCritical,
		Success:  true,
		ActionsTaken: []string{
			"Initiated emergency response protocol",
			"Testing database connectivity",
		},
		Commands: []string{
			"SHOW PROCESSLIST;",
			"SHOW STATUS LIKE 'Threads_connected';",
			"SELECT 1 AS connection_test;",
		},
		VerificationCommands: []string{"SELECT 1;"},
		RollbackCommands:     []string{},
		EffectivenessScore:   0.9,
	}
}

func immediateConnectionLimit(models.ErrorRecord, int) models.ResolutionPlan {
	return models.ResolutionPlan{
		Strategy: models.StrategyImmediateFix,
		Severity: models.SeverityCritical,
		Success:  true,
		ActionsTaken: []string{
			"Initiated emergency response protocol",
			"Increased connection limit and killed idle connections",
		},
		Commands: []string{
			"SHOW STATUS LIKE 'Max_used_connections';",
			"SET GLOBAL max_connections = @@max_connections + 100;",
			"SELECT CONCAT('KILL ', id, ';') AS kill_command FROM INFORMATION_SCHEMA.PROCESSLIST WHERE COMMAND = 'Sleep' ORDER BY TIME DESC LIMIT 1;",
		},
		VerificationCommands: []string{"SELECT 1;"},
		RollbackCommands:     []string{"SET GLOBAL max_connections = @@max_connections - 100;"},
		EffectivenessScore:   0.9,
	}
}

func immediateDiskSpace(models.ErrorRecord, int) models.ResolutionPlan {
	return models.ResolutionPlan{
		Strategy: models.StrategyImmediateFix,
		Severity: models.SeverityCritical,
		Success:  true,
		ActionsTaken: []string{
			"Initiated emergency response protocol",
			"Purging binary logs older than one day",
		},
		Commands:             []string{"PURGE BINARY LOGS BEFORE DATE_SUB(NOW(), INTERVAL 1 DAY);"},
		VerificationCommands: []string{"SELECT 1;"},
		RollbackCommands:     []string{},
		EffectivenessScore:   0.9,
	}
}

func preventMissingTable(rec models.ErrorRecord, _ int) models.ResolutionPlan {
	monitor := "table_existence_monitoring"
	if rec.Table != "" {
		monitor = rec.Table + "_monitoring"
	}
	return models.ResolutionPlan{
		Strategy: models.StrategyPreventiveAction,
		Severity: models.SeverityMedium,
		Success:  true,
		Commands: []string{
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (check_time TIMESTAMP DEFAULT CURRENT_TIMESTAMP);", quoteIdent(monitor)),
			"CREATE EVENT IF NOT EXISTS table_existence_check ON SCHEDULE EVERY 1 HOUR DO SELECT 'Table monitoring active';",
		},
		VerificationCommands: []string{"SHOW EVENTS LIKE 'table_existence_check';"},
		RollbackCommands: []string{
			"DROP EVENT IF EXISTS table_existence_check;",
			fmt.Sprintf("DROP TABLE IF EXISTS %s;", quoteIdent(monitor)),
		},
		EffectivenessScore: 0.95,
		PreventionMeasures: []string{
			"Create monitoring for table existence",
			"Implement table creation automation",
			"Add validation in application layer",
		},
	}
}

func preventDeadlock(models.ErrorRecord, int) models.ResolutionPlan {
	return models.ResolutionPlan{
		Strategy: models.StrategyPreventiveAction,
		Severity: models.SeverityMedium,
		Success:  true,
		Commands: []string{
			"SET GLOBAL innodb_deadlock_detect = ON;",
			"SET GLOBAL innodb_print_all_deadlocks = ON;",
			"CREATE EVENT IF NOT EXISTS deadlock_monitor ON SCHEDULE EVERY 1 HOUR DO SELECT COUNT(*) FROM INFORMATION_SCHEMA.INNODB_TRX WHERE trx_state = 'LOCK WAIT';",
		},
		VerificationCommands: []string{"SHOW VARIABLES LIKE 'innodb_print_all_deadlocks';"},
		RollbackCommands: []string{
			"SET GLOBAL innodb_print_all_deadlocks = OFF;",
			"DROP EVENT IF EXISTS deadlock_monitor;",
		},
		EffectivenessScore: 0.95,
		PreventionMeasures: []string{
			"Implement proper index optimization",
			"Reduce transaction scope",
			"Use consistent lock ordering",
		},
	}
}

func preventGeneric(rec models.ErrorRecord, recurrence int) models.ResolutionPlan {
	event := "error_pattern_monitor_" + strings.ToLower(identChars.ReplaceAllString(displayType(rec.Type), "_"))
	return models.ResolutionPlan{
		Strategy: models.StrategyPreventiveAction,
		Severity: models.SeverityMedium,
		Success:  true,
		Commands: []string{
			fmt.Sprintf("CREATE EVENT IF NOT EXISTS %s ON SCHEDULE EVERY 1 HOUR DO SELECT %s AS monitored_pattern, %d AS occurrences;",
				quoteIdent(event), quoteLiteral(displayType(rec.Type)), recurrence),
		},
		VerificationCommands: []string{fmt.Sprintf("SHOW EVENTS LIKE %s;", quoteLiteral(event))},
		RollbackCommands:     []string{fmt.Sprintf("DROP EVENT IF EXISTS %s;", quoteIdent(event))},
		EffectivenessScore:   0.95,
		PreventionMeasures: []string{
			fmt.Sprintf("Add monitoring for recurring %s errors", displayType(rec.Type)),
			"Review the application code path producing this error",
		},
	}
}

var identChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

func displayType(errorType models.ErrorType) string {
	if errorType == "" {
		return string(models.ErrorUnknown)
	}
	return string(errorType)
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// prefix returns the first n characters of s.
func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
