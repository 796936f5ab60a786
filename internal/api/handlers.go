package api

import (
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-resolver/internal/models"
	"github.com/miradorstack/mirador-resolver/internal/utils"
)

// Field names shared by request and response documents.
const (
	FieldErrorType    = "error_type"
	FieldErrorCode    = "error_code"
	FieldMessage      = "message"
	FieldQuery        = "query"
	FieldTable        = "table"
	FieldContext      = "context"
	FieldObservedAt   = "observed_at"
	FieldResolutionID = "resolution_id"
	FieldFeedback     = "feedback"
	FieldScore        = "effectiveness_score"

	FieldReportLatency = "report_latency"
)

// FromStructErrorRecord maps a ReportError/ClassifyError document into an ErrorRecord.
// Missing fields are left empty; fields of the wrong kind are rejected.
func FromStructErrorRecord(doc *structpb.Struct) (models.ErrorRecord, error) {
	if doc == nil {
		return models.ErrorRecord{}, fmt.Errorf("request is nil")
	}
	fields := doc.GetFields()

	var rec models.ErrorRecord
	var err error
	var errorType string
	if errorType, err = optionalString(fields, FieldErrorType); err != nil {
		return models.ErrorRecord{}, err
	}
	rec.Type = models.ErrorType(errorType)
	if rec.Code, err = optionalString(fields, FieldErrorCode); err != nil {
		return models.ErrorRecord{}, err
	}
	if rec.Message, err = optionalString(fields, FieldMessage); err != nil {
		return models.ErrorRecord{}, err
	}
	if rec.Query, err = optionalString(fields, FieldQuery); err != nil {
		return models.ErrorRecord{}, err
	}
	if rec.Table, err = optionalString(fields, FieldTable); err != nil {
		return models.ErrorRecord{}, err
	}

	observedAt, err := optionalString(fields, FieldObservedAt)
	if err != nil {
		return models.ErrorRecord{}, err
	}
	if observedAt != "" {
		if rec.ObservedAt, err = utils.ParseTimestamp(observedAt); err != nil {
			return models.ErrorRecord{}, fmt.Errorf("%s: %w", FieldObservedAt, err)
		}
	}

	if v, ok := fields[FieldContext]; ok && v.GetStructValue() == nil {
		if _, isNull := v.GetKind().(*structpb.Value_NullValue); !isNull {
			return models.ErrorRecord{}, fmt.Errorf("%s must be an object", FieldContext)
		}
	}
	if ctxDoc := fields[FieldContext].GetStructValue(); ctxDoc != nil {
		rec.Context = make(map[string]string, len(ctxDoc.GetFields()))
		for key, value := range ctxDoc.GetFields() {
			rec.Context[key] = scalarString(value)
		}
	}
	return rec, nil
}

// ToStructErrorRecord renders an ErrorRecord, used for ClassifyError responses and clients.
func ToStructErrorRecord(rec models.ErrorRecord) (*structpb.Struct, error) {
	m := map[string]interface{}{
		FieldErrorType: string(rec.Type),
		FieldErrorCode: rec.Code,
		FieldMessage:   rec.Message,
		FieldQuery:     rec.Query,
		FieldTable:     rec.Table,
	}
	if ts := utils.FormatTimestamp(rec.ObservedAt); ts != "" {
		m[FieldObservedAt] = ts
	}
	if len(rec.Context) > 0 {
		ctx := make(map[string]interface{}, len(rec.Context))
		for k, v := range rec.Context {
			ctx[k] = v
		}
		m[FieldContext] = ctx
	}
	return structpb.NewStruct(m)
}

// FromStructFeedback maps a SubmitFeedback document into domain feedback.
func FromStructFeedback(doc *structpb.Struct) (models.Feedback, error) {
	if doc == nil {
		return models.Feedback{}, fmt.Errorf("request is nil")
	}
	fields := doc.GetFields()

	id, err := optionalString(fields, FieldResolutionID)
	if err != nil {
		return models.Feedback{}, err
	}
	if id == "" {
		return models.Feedback{}, fmt.Errorf("%s is required", FieldResolutionID)
	}
	text, err := optionalString(fields, FieldFeedback)
	if err != nil {
		return models.Feedback{}, err
	}
	scoreValue, ok := fields[FieldScore]
	if !ok {
		return models.Feedback{}, fmt.Errorf("%s is required", FieldScore)
	}
	number, ok := scoreValue.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return models.Feedback{}, fmt.Errorf("%s must be a number", FieldScore)
	}
	return models.Feedback{ResolutionID: id, Text: text, EffectivenessScore: number.NumberValue}, nil
}

// ToStructResolution renders the outcome of ReportError.
func ToStructResolution(res models.Resolution) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"signature": string(res.Signature),
		"frequency": res.Frequency,
		"plan":      planMap(res.Plan),
		"alerts":    alertList(res.Alerts),
	})
}

// ToStructLedgerEntry renders the acknowledgement of SubmitFeedback.
func ToStructLedgerEntry(entry models.LedgerEntry) (*structpb.Struct, error) {
	m := map[string]interface{}{
		"plan":                      planMap(entry.Plan),
		"user_feedback":             entry.UserFeedback,
		"final_effectiveness_score": entry.FinalEffectivenessScore,
		"accepted":                  true,
	}
	if !entry.FeedbackAt.IsZero() {
		m["feedback_at"] = utils.FormatTimestamp(entry.FeedbackAt)
	}
	return structpb.NewStruct(m)
}

// ToStructAlerts renders the result of CheckAlerts.
func ToStructAlerts(alerts []models.Alert) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{"alerts": alertList(alerts)})
}

// ToStructHealth renders a health report.
func ToStructHealth(report models.HealthReport) (*structpb.Struct, error) {
	rates := make(map[string]interface{}, len(report.SuccessRates))
	for errorType, rate := range report.SuccessRates {
		rates[string(errorType)] = rate
	}
	m := map[string]interface{}{
		"status":                     report.Status,
		"generated_at":               utils.FormatTimestamp(report.GeneratedAt),
		"trends":                     trendsMap(report.Trends),
		"success_rates":              rates,
		"average_generation_time_ms": millis(report.AverageGenerationTime),
		"recent_success_rate":        report.RecentSuccessRate,
		"total_resolutions":          report.TotalResolutions,
		"top_patterns":               patternList(report.TopPatterns),
		"recommendations":            stringList(report.Recommendations),
	}
	if report.Prediction != nil {
		m["prediction"] = map[string]interface{}{
			"signature":                string(report.Prediction.Signature),
			"error_type":               string(report.Prediction.ErrorType),
			"probability":              report.Prediction.Probability,
			"average_interval_seconds": report.Prediction.AverageInterval.Seconds(),
		}
	}
	return structpb.NewStruct(m)
}

// ToStructLatency renders a latency summary in milliseconds.
func ToStructLatency(summary utils.LatencySummary) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"samples": summary.Samples,
		"p50_ms":  millis(summary.P50),
		"p95_ms":  millis(summary.P95),
		"max_ms":  millis(summary.Max),
	})
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func planMap(plan models.ResolutionPlan) map[string]interface{} {
	return map[string]interface{}{
		FieldResolutionID:       plan.ID,
		"error_signature":       string(plan.Signature),
		FieldErrorType:          string(plan.ErrorType),
		"strategy":              string(plan.Strategy),
		"severity":              string(plan.Severity),
		"success":               plan.Success,
		"actions_taken":         stringList(plan.ActionsTaken),
		"commands":              stringList(plan.Commands),
		"verification_commands": stringList(plan.VerificationCommands),
		"rollback_commands":     stringList(plan.RollbackCommands),
		FieldScore:              plan.EffectivenessScore,
		"prevention_measures":   stringList(plan.PreventionMeasures),
		"requires_human_review": plan.RequiresHumanReview,
		"generated_at":          utils.FormatTimestamp(plan.GeneratedAt),
		"execution_time_micros": plan.ExecutionTimeMicros,
	}
}

func trendsMap(trends models.TrendSummary) map[string]interface{} {
	return map[string]interface{}{
		"total_errors":        trends.TotalErrors,
		"errors_last_24h":     trends.ErrorsLast24h,
		"errors_last_week":    trends.ErrorsLastWeek,
		"top_patterns":        patternList(trends.TopPatterns),
		"error_rate_per_hour": trends.ErrorRatePerHour,
		"trending_up":         trends.TrendingUp,
	}
}

func patternList(patterns []models.PatternCount) []interface{} {
	out := make([]interface{}, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, map[string]interface{}{
			"signature":  string(p.Signature),
			"error_type": string(p.ErrorType),
			"count":      p.Count,
		})
	}
	return out
}

func alertList(alerts []models.Alert) []interface{} {
	out := make([]interface{}, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, map[string]interface{}{
			"rule":      a.Rule,
			"severity":  string(a.Severity),
			"message":   a.Message,
			"raised_at": utils.FormatTimestamp(a.RaisedAt),
		})
	}
	return out
}

// stringList converts to the []interface{} form structpb accepts.
func stringList(values []string) []interface{} {
	out := make([]interface{}, 0, len(values))
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func optionalString(fields map[string]*structpb.Value, key string) (string, error) {
	v, ok := fields[key]
	if !ok {
		return "", nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue, nil
	case *structpb.Value_NullValue:
		return "", nil
	case *structpb.Value_NumberValue:
		// Vendor codes frequently arrive as JSON numbers.
		if key == FieldErrorCode {
			return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64), nil
		}
	}
	return "", fmt.Errorf("%s must be a string", key)
}

func scalarString(v *structpb.Value) string {
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return kind.StringValue
	case *structpb.Value_BoolValue:
		return strconv.FormatBool(kind.BoolValue)
	case *structpb.Value_NumberValue:
		return strconv.FormatFloat(kind.NumberValue, 'f', -1, 64)
	case *structpb.Value_NullValue:
		return ""
	default:
		data, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(data)
	}
}
