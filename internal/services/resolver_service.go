package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/mirador-resolver/internal/api"
	"github.com/miradorstack/mirador-resolver/internal/extractors"
	resolverv1 "github.com/miradorstack/mirador-resolver/internal/grpc/resolverv1"
	"github.com/miradorstack/mirador-resolver/internal/models"
	"github.com/miradorstack/mirador-resolver/internal/utils"
)

// Resolver is the slice of the engine the gRPC facade depends on.
type Resolver interface {
	Resolve(ctx context.Context, rec models.ErrorRecord) models.Resolution
	Learn(ctx context.Context, fb models.Feedback) (models.LedgerEntry, bool)
	Health() models.HealthReport
	CheckAlerts(ctx context.Context) []models.Alert
}

// ResolverService implements the gRPC ResolutionEngine service.
type ResolverService struct {
	resolverv1.UnimplementedResolutionEngineServer

	logger    *slog.Logger
	engine    Resolver
	latencies *utils.LatencyWindow
}

// NewResolverService constructs the resolver service facade.
func NewResolverService(logger *slog.Logger, engine Resolver) *ResolverService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResolverService{
		logger:    logger,
		engine:    engine,
		latencies: utils.NewLatencyWindow(1024),
	}
}

// ReportError ingests one error record and returns the generated resolution.
// Records without a type are classified from their message first.
func (s *ResolverService) ReportError(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.engine == nil {
		return nil, status.Error(codes.FailedPrecondition, "engine not configured")
	}

	rec, err := api.FromStructErrorRecord(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if strings.TrimSpace(string(rec.Type)) == "" && rec.Message != "" {
		classified := extractors.ClassifyDriverError(rec.Message, rec.Query)
		rec.Type = classified.Type
		if rec.Code == "" {
			rec.Code = classified.Code
		}
		if rec.Table == "" {
			rec.Table = classified.Table
		}
	}

	start := time.Now()
	res := s.engine.Resolve(ctx, rec)
	s.latencies.Observe(time.Since(start))

	out, err := api.ToStructResolution(res)
	if err != nil {
		s.logger.Error("encode resolution failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode resolution")
	}
	return out, nil
}

// ClassifyError maps a raw driver error onto the error taxonomy without recording it.
func (s *ResolverService) ClassifyError(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	rec, err := api.FromStructErrorRecord(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if strings.TrimSpace(rec.Message) == "" {
		return nil, status.Error(codes.InvalidArgument, "message is required")
	}

	classified := extractors.ClassifyDriverError(rec.Message, rec.Query)
	classified.Context = rec.Context
	out, err := api.ToStructErrorRecord(classified)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode classification")
	}
	return out, nil
}

// SubmitFeedback applies an operator's effectiveness score to an issued resolution.
func (s *ResolverService) SubmitFeedback(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request cannot be nil")
	}
	if s.engine == nil {
		return nil, status.Error(codes.FailedPrecondition, "engine not configured")
	}

	fb, err := api.FromStructFeedback(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	entry, ok := s.engine.Learn(ctx, fb)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "resolution %s not found", fb.ResolutionID)
	}
	out, err := api.ToStructLedgerEntry(entry)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode feedback acknowledgement")
	}
	return out, nil
}

// GetHealth returns the current health report together with the latency of
// recent ReportError calls.
func (s *ResolverService) GetHealth(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.engine == nil {
		return nil, status.Error(codes.FailedPrecondition, "engine not configured")
	}
	out, err := api.ToStructHealth(s.engine.Health())
	if err != nil {
		s.logger.Error("encode health failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to encode health report")
	}
	latency, err := api.ToStructLatency(s.latencies.Summary())
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode report latency")
	}
	out.Fields[api.FieldReportLatency] = structpb.NewStructValue(latency)
	return out, nil
}

// CheckAlerts evaluates alert rules on demand.
func (s *ResolverService) CheckAlerts(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.engine == nil {
		return nil, status.Error(codes.FailedPrecondition, "engine not configured")
	}
	out, err := api.ToStructAlerts(s.engine.CheckAlerts(ctx))
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode alerts")
	}
	return out, nil
}
