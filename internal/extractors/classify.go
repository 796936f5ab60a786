package extractors

import (
	"regexp"
	"strings"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

var (
	driverCodePattern = regexp.MustCompile(`\((\d{4}),`)
	errorCodePattern  = regexp.MustCompile(`(?i)\bERROR\s+(\d{4})\b`)
	queryTablePattern = regexp.MustCompile("(?i)(?:FROM|INTO|TABLE|UPDATE|JOIN)\\s+`?(\\w+)`?")
)

// classification maps a vendor code or message phrase onto the error taxonomy.
type classification struct {
	errorType models.ErrorType
	codes     []string
	phrases   []string
}

// driverClassifications is evaluated in order; the first match wins.
// "too many connections" must precede the generic connection phrase.
var driverClassifications = []classification{
	{errorType: models.ErrorTableNotFound, codes: []string{"1146"}, phrases: []string{"doesn't exist"}},
	{errorType: models.ErrorAccessDenied, codes: []string{"1044", "1045"}, phrases: []string{"access denied"}},
	{errorType: models.ErrorSyntax, codes: []string{"1064"}, phrases: []string{"syntax error", "error in your sql syntax"}},
	{errorType: models.ErrorColumnNotFound, codes: []string{"1054"}, phrases: []string{"unknown column"}},
	{errorType: models.ErrorDuplicateKey, codes: []string{"1062"}, phrases: []string{"duplicate entry"}},
	{errorType: models.ErrorDeadlock, codes: []string{"1213"}, phrases: []string{"deadlock"}},
	{errorType: models.ErrorLockTimeout, codes: []string{"1205"}, phrases: []string{"lock wait timeout"}},
	{errorType: models.ErrorTooManyConnections, codes: []string{"1040"}, phrases: []string{"too many connections"}},
	{errorType: models.ErrorDiskFull, codes: []string{"1021"}, phrases: []string{"disk full", "no space left"}},
	{errorType: models.ErrorFunction, codes: []string{"1305"}, phrases: []string{"function"}},
	{errorType: models.ErrorConnection, phrases: []string{"connection"}},
	{errorType: models.ErrorTimeout, phrases: []string{"timeout", "timed out"}},
}

// ClassifyDriverError turns a raw driver error message and the statement that
// produced it into an ErrorRecord. Unrecognised errors classify as GENERAL.
func ClassifyDriverError(message, query string) models.ErrorRecord {
	code := extractDriverCode(message)
	rec := models.ErrorRecord{
		Type:    classify(code, message),
		Code:    code,
		Message: strings.TrimSpace(message),
		Query:   strings.TrimSpace(query),
	}
	if rec.Query != "" {
		rec.Table = tableFromQuery(rec.Query)
	}
	if rec.Table == "" {
		rec.Table = tableFromMessage(message)
	}
	return rec
}

func classify(code, message string) models.ErrorType {
	lower := strings.ToLower(message)
	for _, c := range driverClassifications {
		for _, candidate := range c.codes {
			if code == candidate {
				return c.errorType
			}
		}
		for _, phrase := range c.phrases {
			if strings.Contains(lower, phrase) {
				return c.errorType
			}
		}
	}
	return models.ErrorGeneral
}

func extractDriverCode(message string) string {
	if m := driverCodePattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	if m := errorCodePattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return string(models.ErrorUnknown)
}

func tableFromQuery(query string) string {
	if m := queryTablePattern.FindStringSubmatch(query); m != nil {
		return m[1]
	}
	return ""
}
