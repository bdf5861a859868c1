package ring

import (
	"context"

	"google.golang.org/grpc"

	ringproto "github.com/lshknn/dlsh/pkg/ring/proto"
)

// client is the hand-written equivalent of a protoc-gen-go-grpc client
// stub: one method per RPC serviceDesc registers, each a plain unary
// Invoke over the shared connection.
type client struct {
	cc *grpc.ClientConn
}

func newClient(cc *grpc.ClientConn) *client { return &client{cc: cc} }

func (c *client) SendShard(ctx context.Context, in *ringproto.ShardChunk) (*ringproto.Ack, error) {
	out := new(ringproto.Ack)
	if err := c.cc.Invoke(ctx, "/dlsh.ring.Ring/SendShard", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) SendTopK(ctx context.Context, in *ringproto.TopKChunk) (*ringproto.Ack, error) {
	out := new(ringproto.Ack)
	if err := c.cc.Invoke(ctx, "/dlsh.ring.Ring/SendTopK", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) SendVector(ctx context.Context, in *ringproto.Vector) (*ringproto.Ack, error) {
	out := new(ringproto.Ack)
	if err := c.cc.Invoke(ctx, "/dlsh.ring.Ring/SendVector", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) SendUint64Vector(ctx context.Context, in *ringproto.Uint64Vector) (*ringproto.Ack, error) {
	out := new(ringproto.Ack)
	if err := c.cc.Invoke(ctx, "/dlsh.ring.Ring/SendUint64Vector", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
