package handlers

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the basket gRPC service. Every
// method exchanges JSON-like documents encoded as google.protobuf.Struct.
const ServiceName = "amalgam.v1.AmalgamService"

type AmalgamServiceServer interface {
	Instantiate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Execute(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Query(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Fund(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetEventStream(req *structpb.Struct, stream grpc.ServerStream) error
}

func RegisterAmalgamServiceServer(s grpc.ServiceRegistrar, srv AmalgamServiceServer) {
	s.RegisterService(&AmalgamServiceDesc, srv)
}

var AmalgamServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AmalgamServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("Instantiate", AmalgamServiceServer.Instantiate),
		unaryMethod("Execute", AmalgamServiceServer.Execute),
		unaryMethod("Query", AmalgamServiceServer.Query),
		unaryMethod("Fund", AmalgamServiceServer.Fund),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "GetEventStream",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				req := new(structpb.Struct)
				if err := stream.RecvMsg(req); err != nil {
					return err
				}
				return srv.(AmalgamServiceServer).GetEventStream(req, stream)
			},
		},
	},
	Metadata: "amalgam/v1/service.proto",
}

type unaryCall func(
	srv AmalgamServiceServer, ctx context.Context, req *structpb.Struct,
) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(
			srv any, ctx context.Context,
			dec func(any) error, interceptor grpc.UnaryServerInterceptor,
		) (any, error) {
			req := new(structpb.Struct)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(AmalgamServiceServer), ctx, req)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(AmalgamServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, req, info, handler)
		},
	}
}

func FullMethod(name string) string {
	return fmt.Sprintf("/%s/%s", ServiceName, name)
}

// AmalgamServiceClient is the client side of AmalgamServiceDesc, used by the
// http gateway and the cli.
type AmalgamServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewAmalgamServiceClient(cc grpc.ClientConnInterface) *AmalgamServiceClient {
	return &AmalgamServiceClient{cc}
}

func (c *AmalgamServiceClient) Instantiate(
	ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, "Instantiate", req, opts...)
}

func (c *AmalgamServiceClient) Execute(
	ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, "Execute", req, opts...)
}

func (c *AmalgamServiceClient) Query(
	ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, "Query", req, opts...)
}

func (c *AmalgamServiceClient) Fund(
	ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	return c.invoke(ctx, "Fund", req, opts...)
}

func (c *AmalgamServiceClient) invoke(
	ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	resp := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), req, resp, opts...); err != nil {
		return nil, err
	}
	return resp, nil
}
