package ring

import (
	"context"

	ringproto "github.com/lshknn/dlsh/pkg/ring/proto"
)

// inboundHandler is the gRPC-facing Server this worker runs: every
// method does nothing but drop its payload into the owning Transport's
// inbox so a blocked Recv/RotateShard/RotateTopK call can pick it up.
type inboundHandler struct {
	t *Transport
}

func (h *inboundHandler) SendShard(ctx context.Context, chunk *ringproto.ShardChunk) (*ringproto.Ack, error) {
	h.t.shardInbox <- chunk
	return &ringproto.Ack{}, nil
}

func (h *inboundHandler) SendTopK(ctx context.Context, chunk *ringproto.TopKChunk) (*ringproto.Ack, error) {
	h.t.topkInbox <- chunk
	return &ringproto.Ack{}, nil
}

func (h *inboundHandler) SendVector(ctx context.Context, v *ringproto.Vector) (*ringproto.Ack, error) {
	h.t.vectors.push(v.Tag, v.Data)
	return &ringproto.Ack{}, nil
}

func (h *inboundHandler) SendUint64Vector(ctx context.Context, v *ringproto.Uint64Vector) (*ringproto.Ack, error) {
	h.t.uint64Vectors.push(v.Tag, v.Data)
	return &ringproto.Ack{}, nil
}
