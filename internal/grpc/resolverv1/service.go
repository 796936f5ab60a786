// Package resolverv1 declares the resolver.v1.ResolutionEngine gRPC service.
// Requests and responses are google.protobuf.Struct documents so the payload
// schema can evolve without regenerating stubs.
package resolverv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// PackageName is the proto package the service is declared in.
const PackageName = "resolver.v1"

const ServiceName = PackageName + ".ResolutionEngine"

const (
	ResolutionEngine_ReportError_FullMethodName    = "/" + ServiceName + "/ReportError"
	ResolutionEngine_ClassifyError_FullMethodName  = "/" + ServiceName + "/ClassifyError"
	ResolutionEngine_SubmitFeedback_FullMethodName = "/" + ServiceName + "/SubmitFeedback"
	ResolutionEngine_GetHealth_FullMethodName      = "/" + ServiceName + "/GetHealth"
	ResolutionEngine_CheckAlerts_FullMethodName    = "/" + ServiceName + "/CheckAlerts"
)

// ResolutionEngineClient is the client API for the ResolutionEngine service.
type ResolutionEngineClient interface {
	ReportError(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	ClassifyError(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	SubmitFeedback(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetHealth(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	CheckAlerts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type resolutionEngineClient struct {
	cc grpc.ClientConnInterface
}

// NewResolutionEngineClient wraps a client connection.
func NewResolutionEngineClient(cc grpc.ClientConnInterface) ResolutionEngineClient {
	return &resolutionEngineClient{cc}
}

func (c *resolutionEngineClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts []grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *resolutionEngineClient) ReportError(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ResolutionEngine_ReportError_FullMethodName, in, opts)
}

func (c *resolutionEngineClient) ClassifyError(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ResolutionEngine_ClassifyError_FullMethodName, in, opts)
}

func (c *resolutionEngineClient) SubmitFeedback(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ResolutionEngine_SubmitFeedback_FullMethodName, in, opts)
}

func (c *resolutionEngineClient) GetHealth(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ResolutionEngine_GetHealth_FullMethodName, in, opts)
}

func (c *resolutionEngineClient) CheckAlerts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, ResolutionEngine_CheckAlerts_FullMethodName, in, opts)
}

// ResolutionEngineServer is the server API for the ResolutionEngine service.
type ResolutionEngineServer interface {
	ReportError(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClassifyError(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitFeedback(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetHealth(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckAlerts(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// UnimplementedResolutionEngineServer can be embedded for forward compatibility.
type UnimplementedResolutionEngineServer struct{}

func (UnimplementedResolutionEngineServer) ReportError(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ReportError not implemented")
}

func (UnimplementedResolutionEngineServer) ClassifyError(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method ClassifyError not implemented")
}

func (UnimplementedResolutionEngineServer) SubmitFeedback(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SubmitFeedback not implemented")
}

func (UnimplementedResolutionEngineServer) GetHealth(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetHealth not implemented")
}

func (UnimplementedResolutionEngineServer) CheckAlerts(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method CheckAlerts not implemented")
}

// RegisterResolutionEngineServer attaches srv to a gRPC service registrar.
func RegisterResolutionEngineServer(s grpc.ServiceRegistrar, srv ResolutionEngineServer) {
	s.RegisterService(&ResolutionEngine_ServiceDesc, srv)
}

type unaryCall func(srv ResolutionEngineServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

// methodHandler matches the unexported handler type grpc.MethodDesc expects.
type methodHandler = func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error)

func unaryHandler(fullMethod string, call unaryCall) methodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ResolutionEngineServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(ResolutionEngineServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ResolutionEngine_ServiceDesc is the grpc.ServiceDesc for the ResolutionEngine service.
var ResolutionEngine_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ResolutionEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ReportError",
			Handler: unaryHandler(ResolutionEngine_ReportError_FullMethodName, func(srv ResolutionEngineServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.ReportError(ctx, in)
			}),
		},
		{
			MethodName: "ClassifyError",
			Handler: unaryHandler(ResolutionEngine_ClassifyError_FullMethodName, func(srv ResolutionEngineServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.ClassifyError(ctx, in)
			}),
		},
		{
			MethodName: "SubmitFeedback",
			Handler: unaryHandler(ResolutionEngine_SubmitFeedback_FullMethodName, func(srv ResolutionEngineServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.SubmitFeedback(ctx, in)
			}),
		},
		{
			MethodName: "GetHealth",
			Handler: unaryHandler(ResolutionEngine_GetHealth_FullMethodName, func(srv ResolutionEngineServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetHealth(ctx, in)
			}),
		},
		{
			MethodName: "CheckAlerts",
			Handler: unaryHandler(ResolutionEngine_CheckAlerts_FullMethodName, func(srv ResolutionEngineServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return srv.CheckAlerts(ctx, in)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "resolver/v1/resolver.proto",
}
