// Package server exposes the engine over gRPC, HTTP and websockets.
package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "rails.v1.GameService"

// GameServiceServer is the server side of rails.v1.GameService. Every message
// is a google.protobuf.Struct.
type GameServiceServer interface {
	CreateGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetView(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LegalActions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Undo(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListVariants(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(GameServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(GameServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(GameServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// GameServiceDesc describes rails.v1.GameService for grpc.Server.
var GameServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GameServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateGame", GameServiceServer.CreateGame),
		unaryMethod("SubmitAction", GameServiceServer.SubmitAction),
		unaryMethod("GetView", GameServiceServer.GetView),
		unaryMethod("LegalActions", GameServiceServer.LegalActions),
		unaryMethod("Undo", GameServiceServer.Undo),
		unaryMethod("ListVariants", GameServiceServer.ListVariants),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rails/v1/game_service.proto",
}

// RegisterGameServiceServer registers srv with s.
func RegisterGameServiceServer(s grpc.ServiceRegistrar, srv GameServiceServer) {
	s.RegisterService(&GameServiceDesc, srv)
}

// GameServiceClient calls rails.v1.GameService.
type GameServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewGameServiceClient wraps a client connection.
func NewGameServiceClient(cc grpc.ClientConnInterface) *GameServiceClient {
	return &GameServiceClient{cc: cc}
}

func (c *GameServiceClient) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GameServiceClient) CreateGame(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CreateGame", in, opts...)
}

func (c *GameServiceClient) SubmitAction(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "SubmitAction", in, opts...)
}

func (c *GameServiceClient) GetView(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetView", in, opts...)
}

func (c *GameServiceClient) LegalActions(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "LegalActions", in, opts...)
}

func (c *GameServiceClient) Undo(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Undo", in, opts...)
}

func (c *GameServiceClient) ListVariants(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListVariants", in, opts...)
}
