package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ModerationService is the server API of navi.Moderation.
type ModerationService interface {
	ListFilters(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckContent(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTasks(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	CancelTask(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
}

// Register attaches srv to a gRPC server.
func Register(s grpc.ServiceRegistrar, srv ModerationService) {
	s.RegisterService(&serviceDesc, srv)
}

func unary[Req any](method string, call func(ModerationService, context.Context, *Req) (interface{}, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ModerationService), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(ModerationService), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ModerationService)(nil),
	Methods: []grpc.MethodDesc{
		unary("ListFilters", func(s ModerationService, ctx context.Context, in *structpb.Struct) (interface{}, error) {
			return s.ListFilters(ctx, in)
		}),
		unary("CheckContent", func(s ModerationService, ctx context.Context, in *structpb.Struct) (interface{}, error) {
			return s.CheckContent(ctx, in)
		}),
		unary("ListTasks", func(s ModerationService, ctx context.Context, in *wrapperspb.StringValue) (interface{}, error) {
			return s.ListTasks(ctx, in)
		}),
		unary("CancelTask", func(s ModerationService, ctx context.Context, in *wrapperspb.Int64Value) (interface{}, error) {
			return s.CancelTask(ctx, in)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "navi/moderation",
}
