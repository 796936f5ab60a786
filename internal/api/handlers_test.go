package api

import (
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-resolver/internal/models"
	"github.com/miradorstack/mirador-resolver/internal/utils"
)

func TestFromStructErrorRecord(t *testing.T) {
	doc, err := structpb.NewStruct(map[string]interface{}{
		"error_type":  "TABLE_NOT_FOUND",
		"error_code":  1146,
		"message":     "Table 'shop.orders' doesn't exist",
		"table":       "orders",
		"observed_at": "2025-02-01T10:00:00Z",
		"context": map[string]interface{}{
			"maintenance_window": true,
			"attempt":            2,
			"source":             "app",
		},
	})
	if err != nil {
		t.Fatalf("build struct: %v", err)
	}

	rec, err := FromStructErrorRecord(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Type != models.ErrorTableNotFound || rec.Code != "1146" || rec.Table != "orders" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !rec.ObservedAt.Equal(time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected observed_at %s", rec.ObservedAt)
	}
	if rec.Context["maintenance_window"] != "true" || rec.Context["attempt"] != "2" || rec.Context["source"] != "app" {
		t.Fatalf("unexpected context %+v", rec.Context)
	}
}

func TestFromStructErrorRecordRejectsBadKinds(t *testing.T) {
	cases := []map[string]interface{}{
		{"message": true},
		{"error_type": 3},
		{"context": "maintenance"},
		{"observed_at": "last tuesday"},
	}
	for _, fields := range cases {
		doc, err := structpb.NewStruct(fields)
		if err != nil {
			t.Fatalf("build struct: %v", err)
		}
		if _, err := FromStructErrorRecord(doc); err == nil {
			t.Fatalf("expected error for %v", fields)
		}
	}
	if _, err := FromStructErrorRecord(nil); err == nil {
		t.Fatalf("expected error for nil request")
	}
}

func TestFromStructFeedback(t *testing.T) {
	doc, _ := structpb.NewStruct(map[string]interface{}{
		"resolution_id":       "abc",
		"feedback":            "worked",
		"effectiveness_score": 0.8,
	})
	fb, err := FromStructFeedback(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fb.ResolutionID != "abc" || fb.Text != "worked" || fb.EffectivenessScore != 0.8 {
		t.Fatalf("unexpected feedback %+v", fb)
	}

	missingID, _ := structpb.NewStruct(map[string]interface{}{"effectiveness_score": 0.8})
	if _, err := FromStructFeedback(missingID); err == nil {
		t.Fatalf("expected error for missing resolution id")
	}
	stringScore, _ := structpb.NewStruct(map[string]interface{}{"resolution_id": "abc", "effectiveness_score": "high"})
	if _, err := FromStructFeedback(stringScore); err == nil {
		t.Fatalf("expected error for non-numeric score")
	}
}

func TestToStructResolution(t *testing.T) {
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	res := models.Resolution{
		Signature: "0123456789abcdef0123456789abcdef",
		Frequency: 3,
		Plan: models.ResolutionPlan{
			ID:                  "res-1",
			ErrorType:           models.ErrorDeadlock,
			Strategy:            models.StrategySelfHealing,
			Severity:            models.SeverityHigh,
			Success:             true,
			Commands:            []string{"SHOW ENGINE INNODB STATUS"},
			EffectivenessScore:  0.75,
			RequiresHumanReview: false,
			GeneratedAt:         now,
		},
		Alerts: []models.Alert{{Rule: "error_rate", Severity: models.SeverityHigh, Message: "high", RaisedAt: now}},
	}

	doc, err := ToStructResolution(res)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	plan := doc.GetFields()["plan"].GetStructValue().GetFields()
	if plan["strategy"].GetStringValue() != "SELF_HEALING" || plan["effectiveness_score"].GetNumberValue() != 0.75 {
		t.Fatalf("unexpected plan %v", plan)
	}
	if got := plan["commands"].GetListValue().GetValues(); len(got) != 1 || got[0].GetStringValue() != "SHOW ENGINE INNODB STATUS" {
		t.Fatalf("unexpected commands %v", got)
	}
	if plan["generated_at"].GetStringValue() != "2025-02-01T10:00:00Z" {
		t.Fatalf("unexpected generated_at %v", plan["generated_at"])
	}
	if len(plan["rollback_commands"].GetListValue().GetValues()) != 0 {
		t.Fatalf("expected empty rollback list")
	}
	alerts := doc.GetFields()["alerts"].GetListValue().GetValues()
	if len(alerts) != 1 || alerts[0].GetStructValue().GetFields()["rule"].GetStringValue() != "error_rate" {
		t.Fatalf("unexpected alerts %v", alerts)
	}
}

func TestToStructHealth(t *testing.T) {
	report := models.HealthReport{
		Status:                models.HealthNeedsAttention,
		GeneratedAt:           time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
		SuccessRates:          map[models.ErrorType]float64{models.ErrorDeadlock: 0.5},
		AverageGenerationTime: 1500 * time.Millisecond,
		Prediction:            &models.Prediction{Signature: "abc", ErrorType: models.ErrorDeadlock, Probability: 0.9, AverageInterval: time.Minute},
		Recommendations:       []string{"Improve resolution strategies for DEADLOCK errors"},
	}
	doc, err := ToStructHealth(report)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	fields := doc.GetFields()
	if fields["status"].GetStringValue() != models.HealthNeedsAttention {
		t.Fatalf("unexpected status %v", fields["status"])
	}
	if fields["average_generation_time_ms"].GetNumberValue() != 1500 {
		t.Fatalf("unexpected generation time %v", fields["average_generation_time_ms"])
	}
	if fields["success_rates"].GetStructValue().GetFields()["DEADLOCK"].GetNumberValue() != 0.5 {
		t.Fatalf("unexpected success rates %v", fields["success_rates"])
	}
	if fields["prediction"].GetStructValue().GetFields()["average_interval_seconds"].GetNumberValue() != 60 {
		t.Fatalf("unexpected prediction %v", fields["prediction"])
	}
}

func TestToStructLatency(t *testing.T) {
	doc, err := ToStructLatency(utils.LatencySummary{Samples: 3, P50: 2 * time.Millisecond, P95: 1500 * time.Microsecond, Max: 4 * time.Millisecond})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	fields := doc.GetFields()
	if fields["samples"].GetNumberValue() != 3 || fields["p95_ms"].GetNumberValue() != 1.5 || fields["max_ms"].GetNumberValue() != 4 {
		t.Fatalf("unexpected latency %v", fields)
	}
}
