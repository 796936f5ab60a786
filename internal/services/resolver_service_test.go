package services

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-resolver/internal/alerts"
	"github.com/miradorstack/mirador-resolver/internal/api"
	"github.com/miradorstack/mirador-resolver/internal/config"
	"github.com/miradorstack/mirador-resolver/internal/engine"
	resolverv1 "github.com/miradorstack/mirador-resolver/internal/grpc/resolverv1"
	"github.com/miradorstack/mirador-resolver/internal/models"
)

func newTestClient(t *testing.T) resolverv1.ResolutionEngineClient {
	t.Helper()

	opts := engine.DefaultOptions()
	opts.Alerts = alerts.Thresholds{}
	service := NewResolverService(nil, engine.New(nil, opts))

	lis := bufconn.Listen(1 << 20)
	srv := api.NewServerWithListener(config.ServerConfig{GracefulTimeout: time.Second}, lis, service)
	go func() { _ = srv.Start() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufconn: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return resolverv1.NewResolutionEngineClient(conn)
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("build struct: %v", err)
	}
	return s
}

func planField(resp *structpb.Struct, key string) *structpb.Value {
	return resp.GetFields()["plan"].GetStructValue().GetFields()[key]
}

func TestReportErrorSelfHealsInMaintenanceWindow(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.ReportError(context.Background(), mustStruct(t, map[string]interface{}{
		"error_type": "TABLE_NOT_FOUND",
		"error_code": 1146,
		"message":    "Table 'shop.orders' doesn't exist",
		"table":      "orders",
		"context":    map[string]interface{}{"maintenance_window": true},
	}))
	if err != nil {
		t.Fatalf("report error: %v", err)
	}
	if got := planField(resp, "strategy").GetStringValue(); got != string(models.StrategySelfHealing) {
		t.Fatalf("expected self healing, got %s", got)
	}
	if !planField(resp, "success").GetBoolValue() {
		t.Fatalf("expected successful plan")
	}
	if len(planField(resp, "commands").GetListValue().GetValues()) == 0 {
		t.Fatalf("expected remediation commands")
	}
	if resp.GetFields()["frequency"].GetNumberValue() != 1 {
		t.Fatalf("expected first occurrence, got %v", resp.GetFields()["frequency"])
	}
	if len(resp.GetFields()["signature"].GetStringValue()) != 32 {
		t.Fatalf("expected 32 hex char signature, got %q", resp.GetFields()["signature"].GetStringValue())
	}
}

func TestReportErrorMultibyteTableName(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.ReportError(context.Background(), mustStruct(t, map[string]interface{}{
		"error_type": "TABLE_NOT_FOUND",
		"error_code": 1146,
		"message":    "Table 'shop.订单表' doesn't exist",
		"table":      "订单表",
		"context":    map[string]interface{}{"maintenance_window": true},
	}))
	if err != nil {
		t.Fatalf("report error: %v", err)
	}
	commands := planField(resp, "commands").GetListValue().GetValues()
	if len(commands) == 0 || commands[0].GetStringValue() != "SELECT TABLE_SCHEMA, TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME LIKE '%订单表%';" {
		t.Fatalf("unexpected commands %v", commands)
	}
}

func TestReportErrorClassifiesUntypedRecords(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.ReportError(context.Background(), mustStruct(t, map[string]interface{}{
		"message": "(1040, 'Too many connections')",
	}))
	if err != nil {
		t.Fatalf("report error: %v", err)
	}
	if got := planField(resp, "error_type").GetStringValue(); got != string(models.ErrorTooManyConnections) {
		t.Fatalf("expected classified type, got %s", got)
	}
	if got := planField(resp, "severity").GetStringValue(); got != string(models.SeverityCritical) {
		t.Fatalf("expected critical severity, got %s", got)
	}
}

func TestReportErrorRejectsWrongKinds(t *testing.T) {
	client := newTestClient(t)

	_, err := client.ReportError(context.Background(), mustStruct(t, map[string]interface{}{
		"error_type": "DEADLOCK",
		"message":    42,
	}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestReportErrorAcceptsUnknownTypes(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.ReportError(context.Background(), mustStruct(t, map[string]interface{}{
		"error_type": "NOT_A_REAL_TYPE",
		"message":    "mystery",
		"context":    map[string]interface{}{"maintenance_window": "true"},
	}))
	if err != nil {
		t.Fatalf("report error: %v", err)
	}
	if got := planField(resp, "strategy").GetStringValue(); got != string(models.StrategyEscalation) {
		t.Fatalf("expected escalation, got %s", got)
	}
	if planField(resp, "success").GetBoolValue() || !planField(resp, "requires_human_review").GetBoolValue() {
		t.Fatalf("expected unsuccessful plan requiring review")
	}
}

func TestSubmitFeedback(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	resp, err := client.ReportError(ctx, mustStruct(t, map[string]interface{}{
		"error_type": "SYNTAX_ERROR",
		"message":    "You have an error in your SQL syntax near 'FORM users'",
	}))
	if err != nil {
		t.Fatalf("report error: %v", err)
	}
	id := planField(resp, "resolution_id").GetStringValue()
	if id == "" {
		t.Fatalf("expected resolution id")
	}

	ack, err := client.SubmitFeedback(ctx, mustStruct(t, map[string]interface{}{
		"resolution_id":       id,
		"feedback":            "fixed typo",
		"effectiveness_score": 1.7,
	}))
	if err != nil {
		t.Fatalf("submit feedback: %v", err)
	}
	if got := ack.GetFields()["final_effectiveness_score"].GetNumberValue(); got != 1 {
		t.Fatalf("expected clamped score 1, got %v", got)
	}
	if !ack.GetFields()["accepted"].GetBoolValue() {
		t.Fatalf("expected accepted acknowledgement")
	}

	_, err = client.SubmitFeedback(ctx, mustStruct(t, map[string]interface{}{
		"resolution_id":       "missing",
		"effectiveness_score": 0.5,
	}))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = client.SubmitFeedback(ctx, mustStruct(t, map[string]interface{}{"resolution_id": id}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for missing score, got %v", err)
	}
}

func TestClassifyError(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.ClassifyError(context.Background(), mustStruct(t, map[string]interface{}{
		"message": "(1213, 'Deadlock found when trying to get lock')",
		"query":   "UPDATE accounts SET balance = balance - 10 WHERE id = 7",
	}))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got := resp.GetFields()["error_type"].GetStringValue(); got != string(models.ErrorDeadlock) {
		t.Fatalf("expected deadlock, got %s", got)
	}
	if got := resp.GetFields()["table"].GetStringValue(); got != "accounts" {
		t.Fatalf("expected table accounts, got %s", got)
	}

	_, err = client.ClassifyError(context.Background(), mustStruct(t, map[string]interface{}{}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestGetHealthAndAlerts(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	health, err := client.GetHealth(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	if got := health.GetFields()["status"].GetStringValue(); got != models.HealthHealthy {
		t.Fatalf("expected healthy, got %s", got)
	}
	if len(health.GetFields()["recommendations"].GetListValue().GetValues()) == 0 {
		t.Fatalf("expected recommendations")
	}
	latency := health.GetFields()["report_latency"].GetStructValue().GetFields()
	if latency["samples"].GetNumberValue() != 0 {
		t.Fatalf("expected no latency samples before any report, got %v", latency)
	}

	for i := 0; i < 3; i++ {
		if _, err := client.ReportError(ctx, mustStruct(t, map[string]interface{}{
			"error_type": "DEADLOCK",
			"message":    "Deadlock found when trying to get lock",
		})); err != nil {
			t.Fatalf("report error: %v", err)
		}
	}
	health, err = client.GetHealth(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	latency = health.GetFields()["report_latency"].GetStructValue().GetFields()
	if latency["samples"].GetNumberValue() != 3 {
		t.Fatalf("expected 3 latency samples, got %v", latency)
	}
	if latency["p95_ms"].GetNumberValue() > latency["max_ms"].GetNumberValue() {
		t.Fatalf("p95 above max: %v", latency)
	}

	raised, err := client.CheckAlerts(ctx, &structpb.Struct{})
	if err != nil {
		t.Fatalf("check alerts: %v", err)
	}
	if n := len(raised.GetFields()["alerts"].GetListValue().GetValues()); n != 0 {
		t.Fatalf("expected no alerts with rules disabled, got %d", n)
	}
}

func TestServiceWithoutEngine(t *testing.T) {
	service := NewResolverService(nil, nil)

	_, err := service.ReportError(context.Background(), &structpb.Struct{})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}
	_, err = service.GetHealth(context.Background(), &structpb.Struct{})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}
	_, err = service.ReportError(context.Background(), nil)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
