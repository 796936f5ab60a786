package extractors

import (
	"regexp"
	"strings"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

// logPattern recognises one class of failure in a database server error log.
type logPattern struct {
	re        *regexp.Regexp
	errorType models.ErrorType
}

var logPatterns = []logPattern{
	{re: regexp.MustCompile(`(?i)Table '[^']+' doesn't exist`), errorType: models.ErrorTableNotFound},
	{re: regexp.MustCompile(`(?i)Unknown column '[^']+'`), errorType: models.ErrorColumnNotFound},
	{re: regexp.MustCompile(`(?i)You have an error in your SQL syntax`), errorType: models.ErrorSyntax},
	{re: regexp.MustCompile(`(?i)Access denied for user`), errorType: models.ErrorAccessDenied},
	{re: regexp.MustCompile(`(?i)Too many connections`), errorType: models.ErrorTooManyConnections},
	{re: regexp.MustCompile(`(?i)Deadlock found when trying to get lock`), errorType: models.ErrorDeadlock},
	{re: regexp.MustCompile(`(?i)Lock wait timeout exceeded`), errorType: models.ErrorLockTimeout},
	{re: regexp.MustCompile(`(?i)Disk full|No space left on device`), errorType: models.ErrorDiskFull},
}

var (
	serverCodePattern = regexp.MustCompile(`\[MY-0*(\d+)\]`)
	bareCodePattern   = regexp.MustCompile(`\b(\d{4})\b`)

	logQueryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bQuery:?\s+(.+?)(?:\s+for\b|$)`),
		regexp.MustCompile(`(?i)\bExecute:?\s+(.+?)(?:\s+for\b|$)`),
		regexp.MustCompile(`(?i)\b((?:SELECT|INSERT|UPDATE|DELETE|CREATE|DROP|ALTER)\b.+)`),
	}

	messageTablePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)table '[^'.]+\.([^']+)'`),
		regexp.MustCompile(`(?i)table '([^']+)'`),
		regexp.MustCompile("(?i)\\bfrom\\s+`?([\\w.]+)`?"),
	}
)

// ParseLogLine classifies one line from a database server error log. The
// boolean is false when the line does not describe a recognised failure.
func ParseLogLine(line string) (models.ErrorRecord, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return models.ErrorRecord{}, false
	}

	for _, p := range logPatterns {
		if !p.re.MatchString(trimmed) {
			continue
		}
		return models.ErrorRecord{
			Type:    p.errorType,
			Code:    extractLogCode(trimmed),
			Message: trimmed,
			Query:   extractLogQuery(trimmed),
			Table:   tableFromMessage(trimmed),
		}, true
	}
	return models.ErrorRecord{}, false
}

func extractLogCode(line string) string {
	if m := serverCodePattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	if m := bareCodePattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return string(models.ErrorUnknown)
}

func extractLogQuery(line string) string {
	for _, re := range logQueryPatterns {
		if m := re.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// tableFromMessage prefers the unqualified name of a schema.table reference.
func tableFromMessage(message string) string {
	for _, re := range messageTablePatterns {
		if m := re.FindStringSubmatch(message); m != nil {
			name := m[1]
			if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
				name = name[idx+1:]
			}
			return name
		}
	}
	return ""
}
