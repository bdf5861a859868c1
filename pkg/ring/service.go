package ring

import (
	"context"

	"google.golang.org/grpc"

	ringproto "github.com/lshknn/dlsh/pkg/ring/proto"
)

// Server is the set of RPCs one worker exposes to its ring peers: shard
// and top-k rotation, plus the generic vector primitives
// collective.Comm needs during hash-family construction.
type Server interface {
	SendShard(ctx context.Context, chunk *ringproto.ShardChunk) (*ringproto.Ack, error)
	SendTopK(ctx context.Context, chunk *ringproto.TopKChunk) (*ringproto.Ack, error)
	SendVector(ctx context.Context, v *ringproto.Vector) (*ringproto.Ack, error)
	SendUint64Vector(ctx context.Context, v *ringproto.Uint64Vector) (*ringproto.Ack, error)
}

// serviceDesc is what protoc-gen-go-grpc would otherwise generate from a
// .proto file describing these four unary RPCs. Authored by hand against
// grpc.ServiceDesc directly since no proto sources or protoc step are
// part of this codebase (DESIGN.md).
var serviceDesc = grpc.ServiceDesc{
	ServiceName: "dlsh.ring.Ring",
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SendShard", Handler: sendShardHandler},
		{MethodName: "SendTopK", Handler: sendTopKHandler},
		{MethodName: "SendVector", Handler: sendVectorHandler},
		{MethodName: "SendUint64Vector", Handler: sendUint64VectorHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ring.proto",
}

func sendShardHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ringproto.ShardChunk)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).SendShard(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/dlsh.ring.Ring/SendShard"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).SendShard(ctx, req.(*ringproto.ShardChunk))
	}
	return interceptor(ctx, in, info, handler)
}

func sendTopKHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ringproto.TopKChunk)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).SendTopK(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/dlsh.ring.Ring/SendTopK"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).SendTopK(ctx, req.(*ringproto.TopKChunk))
	}
	return interceptor(ctx, in, info, handler)
}

func sendVectorHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ringproto.Vector)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).SendVector(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/dlsh.ring.Ring/SendVector"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).SendVector(ctx, req.(*ringproto.Vector))
	}
	return interceptor(ctx, in, info, handler)
}

func sendUint64VectorHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ringproto.Uint64Vector)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Server).SendUint64Vector(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/dlsh.ring.Ring/SendUint64Vector"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Server).SendUint64Vector(ctx, req.(*ringproto.Uint64Vector))
	}
	return interceptor(ctx, in, info, handler)
}

// RegisterServer registers srv's four RPCs against s, the hand-written
// equivalent of a generated RegisterRingServer function.
func RegisterServer(s *grpc.Server, srv Server) {
	s.RegisterService(&serviceDesc, srv)
}
