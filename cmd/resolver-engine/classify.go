package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/miradorstack/mirador-resolver/internal/extractors"
	"github.com/miradorstack/mirador-resolver/internal/models"
	"github.com/miradorstack/mirador-resolver/internal/signature"
)

func newClassifyCommand() *cobra.Command {
	var query string
	var logMode bool

	cmd := &cobra.Command{
		Use:   "classify [message]",
		Short: "Classify a driver error message, or server log lines from stdin with --log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if logMode {
				return classifyLog(cmd.InOrStdin(), out)
			}
			if len(args) == 0 {
				return fmt.Errorf("message argument required unless --log is set")
			}
			printRecord(out, extractors.ClassifyDriverError(args[0], query))
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "Statement that produced the error")
	cmd.Flags().BoolVar(&logMode, "log", false, "Read server error log lines from stdin")
	return cmd
}

func classifyLog(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	matched := 0
	for scanner.Scan() {
		rec, ok := extractors.ParseLogLine(scanner.Text())
		if !ok {
			continue
		}
		matched++
		printRecord(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	if matched == 0 {
		color.New(color.FgYellow).Fprintln(out, "no recognised errors")
	}
	return nil
}

func printRecord(out io.Writer, rec models.ErrorRecord) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)

	severity := models.DefaultSeverity(rec.Type)
	bold.Fprintf(out, "%s", rec.Type)
	fmt.Fprint(out, "  ")
	severityColor(severity).Fprintf(out, "[%s]\n", severity)
	cyan.Fprintf(out, "  signature: ")
	fmt.Fprintln(out, signature.Compute(rec))
	cyan.Fprintf(out, "  code:      ")
	fmt.Fprintln(out, rec.Code)
	if rec.Table != "" {
		cyan.Fprintf(out, "  table:     ")
		fmt.Fprintln(out, rec.Table)
	}
	if rec.Query != "" {
		cyan.Fprintf(out, "  query:     ")
		fmt.Fprintln(out, strings.TrimSpace(rec.Query))
	}
}

func severityColor(sev models.Severity) *color.Color {
	switch sev {
	case models.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case models.SeverityHigh:
		return color.New(color.FgRed)
	case models.SeverityMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}
