package resolverv1

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"
)

// File_resolver_v1_resolver_proto describes the ResolutionEngine service. It is
// registered in protoregistry.GlobalFiles so server reflection can serve it.
var File_resolver_v1_resolver_proto protoreflect.FileDescriptor

func init() {
	fd, err := buildFileDescriptor()
	if err != nil {
		panic(fmt.Sprintf("resolverv1: register file descriptor: %v", err))
	}
	File_resolver_v1_resolver_proto = fd
}

func buildFileDescriptor() (protoreflect.FileDescriptor, error) {
	structFile := structpb.File_google_protobuf_struct_proto
	structType := "." + string((&structpb.Struct{}).ProtoReflect().Descriptor().FullName())

	methods := make([]*descriptorpb.MethodDescriptorProto, 0, len(ResolutionEngine_ServiceDesc.Methods))
	for _, m := range ResolutionEngine_ServiceDesc.Methods {
		methods = append(methods, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m.MethodName),
			InputType:  proto.String(structType),
			OutputType: proto.String(structType),
		})
	}

	file := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(ResolutionEngine_ServiceDesc.Metadata.(string)),
		Package:    proto.String(PackageName),
		Dependency: []string{structFile.Path()},
		Syntax:     proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String(string(protoreflect.FullName(ServiceName).Name())),
			Method: methods,
		}},
	}

	fd, err := protodesc.NewFile(file, protoregistry.GlobalFiles)
	if err != nil {
		return nil, err
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		return nil, err
	}
	return fd, nil
}
