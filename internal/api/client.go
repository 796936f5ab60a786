package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	resolverv1 "github.com/miradorstack/mirador-resolver/internal/grpc/resolverv1"
	"github.com/miradorstack/mirador-resolver/internal/models"
)

// Client is a thin typed wrapper over the ResolutionEngine stub.
type Client struct {
	conn *grpc.ClientConn
	stub resolverv1.ResolutionEngineClient
}

// Dial connects to a resolver at target without transport security.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial resolver %s: %w", target, err)
	}
	return &Client{conn: conn, stub: resolverv1.NewResolutionEngineClient(conn)}, nil
}

// ReportError submits rec and returns the resolution document.
func (c *Client) ReportError(ctx context.Context, rec models.ErrorRecord) (*structpb.Struct, error) {
	doc, err := ToStructErrorRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("encode error record: %w", err)
	}
	return c.stub.ReportError(ctx, doc)
}

// Classify asks the resolver to classify a raw driver error.
func (c *Client) Classify(ctx context.Context, message, query string) (*structpb.Struct, error) {
	doc, err := structpb.NewStruct(map[string]interface{}{FieldMessage: message, FieldQuery: query})
	if err != nil {
		return nil, fmt.Errorf("encode classify request: %w", err)
	}
	return c.stub.ClassifyError(ctx, doc)
}

// SubmitFeedback reports how well a resolution worked.
func (c *Client) SubmitFeedback(ctx context.Context, fb models.Feedback) (*structpb.Struct, error) {
	doc, err := structpb.NewStruct(map[string]interface{}{
		FieldResolutionID: fb.ResolutionID,
		FieldFeedback:     fb.Text,
		FieldScore:        fb.EffectivenessScore,
	})
	if err != nil {
		return nil, fmt.Errorf("encode feedback: %w", err)
	}
	return c.stub.SubmitFeedback(ctx, doc)
}

// Health fetches the current health report.
func (c *Client) Health(ctx context.Context) (*structpb.Struct, error) {
	return c.stub.GetHealth(ctx, &structpb.Struct{})
}

// CheckAlerts evaluates alert rules on demand.
func (c *Client) CheckAlerts(ctx context.Context) (*structpb.Struct, error) {
	return c.stub.CheckAlerts(ctx, &structpb.Struct{})
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
