package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/miradorstack/mirador-resolver/internal/config"
)

func runRoot(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	root := newRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return out.String()
}

func TestClassifyCommand(t *testing.T) {
	out := runRoot(t, "", "classify", `(1146, "Table 'shop.orders' doesn't exist")`, "--query", "SELECT * FROM orders")
	for _, want := range []string{"TABLE_NOT_FOUND", "[medium]", "table:     orders", "code:      1146"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestClassifyCommandLogMode(t *testing.T) {
	log := strings.Join([]string{
		"[Note] ready for connections",
		"[ERROR] [MY-001040] Too many connections",
		"[ERROR] Deadlock found when trying to get lock",
	}, "\n")
	out := runRoot(t, log, "classify", "--log")
	if !strings.Contains(out, "TOO_MANY_CONNECTIONS  [critical]") || !strings.Contains(out, "DEADLOCK  [high]") {
		t.Fatalf("unexpected output:\n%s", out)
	}

	out = runRoot(t, "nothing to see\n", "classify", "--log")
	if !strings.Contains(out, "no recognised errors") {
		t.Fatalf("expected empty notice, got:\n%s", out)
	}
}

func TestEngineOptionsFromConfig(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Engine.RecurrenceThreshold = 9
	cfg.Engine.MaintenanceWindow = true
	cfg.Alerts.CriticalPerDayStrict = 0

	opts := engineOptions(cfg)
	if opts.RecurrenceThreshold != 9 || !opts.DefaultFlags.MaintenanceWindow || !opts.DefaultFlags.AutoFixEnabled {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.Alerts.CriticalPerDayStrict != 0 || opts.Alerts.CriticalPerDay != 5 {
		t.Fatalf("unexpected alert thresholds %+v", opts.Alerts)
	}
	if opts.HistoryCapacity != 1000 || opts.LedgerCapacity != 500 {
		t.Fatalf("unexpected capacities %+v", opts)
	}
}
