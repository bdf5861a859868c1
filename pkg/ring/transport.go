// Package ring is the gRPC-backed production transport: it implements
// collective.Comm for the setup-phase broadcast/reduce/pairwise calls
// pkg/hashfamily and pkg/sortnet make, and separately drives the
// per-round shard/top-k rotation spec §4.F describes. pkg/collective's
// LocalCluster plays the same role in tests without a network.
package ring

import (
	"context"
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/lshknn/dlsh/internal/netcodec"
	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/knn"
	ringproto "github.com/lshknn/dlsh/pkg/ring/proto"
)

// Fixed tags for the collective primitives; user tags (sortnet's
// mergeTag/sortedTag) are offset well clear of these so they can never
// collide on the same vectorInbox.
const (
	tagBroadcast       int32 = 1
	tagBroadcastU64    int32 = 2
	tagAllReduceGather int32 = 3
	tagAllReduceResult int32 = 4
	userTagBase        int32 = 1000
)

// Transport is one worker's gRPC endpoint: it serves the Ring service
// for its peers and dials out to them as a client. addrs[r] is rank r's
// listen address; every worker in the job is constructed with the same
// addrs slice.
type Transport struct {
	rank, size int
	addrs      []string

	grpcServer *grpc.Server
	handler    *inboundHandler

	peers map[int]*client

	shardInbox chan *ringproto.ShardChunk
	topkInbox  chan *ringproto.TopKChunk

	vectors       *vectorInbox
	uint64Vectors *uint64Inbox
}

// NewTransport builds the transport for rank among len(addrs) workers;
// call Listen before any collective or rotation call runs.
func NewTransport(rank int, addrs []string) *Transport {
	t := &Transport{
		rank: rank, size: len(addrs), addrs: addrs,
		peers:         make(map[int]*client),
		shardInbox:    make(chan *ringproto.ShardChunk, 1),
		topkInbox:     make(chan *ringproto.TopKChunk, 1),
		vectors:       newVectorInbox(),
		uint64Vectors: newUint64Inbox(),
	}
	t.handler = &inboundHandler{t: t}
	return t
}

// Listen starts this worker's gRPC server bound to addrs[rank], forcing
// the gob codec on every call it serves (no protobuf types exist for
// this service — see internal/netcodec).
func (t *Transport) Listen() (net.Listener, error) {
	lis, err := net.Listen("tcp", t.addrs[t.rank])
	if err != nil {
		return nil, fmt.Errorf("ring: listen on %s: %w", t.addrs[t.rank], err)
	}
	t.grpcServer = grpc.NewServer(grpc.ForceServerCodec(netcodec.Codec{}))
	RegisterServer(t.grpcServer, t.handler)
	go func() {
		if err := t.grpcServer.Serve(lis); err != nil {
			log.Printf("ring: serve on %s: %v", t.addrs[t.rank], err)
		}
	}()
	return lis, nil
}

// Stop gracefully shuts down this worker's server.
func (t *Transport) Stop() {
	if t.grpcServer != nil {
		t.grpcServer.GracefulStop()
	}
}

func (t *Transport) peer(rank int) (*client, error) {
	if c, ok := t.peers[rank]; ok {
		return c, nil
	}
	cc, err := grpc.NewClient(t.addrs[rank],
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(netcodec.Codec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("ring: dial rank %d at %s: %w", rank, t.addrs[rank], err)
	}
	c := newClient(cc)
	t.peers[rank] = c
	return c, nil
}

func (t *Transport) sendVector(to int, tag int32, data []float64) error {
	c, err := t.peer(to)
	if err != nil {
		return err
	}
	_, err = c.SendVector(context.Background(), &ringproto.Vector{Tag: tag, Data: data})
	return err
}

func (t *Transport) sendUint64Vector(to int, tag int32, data []uint64) error {
	c, err := t.peer(to)
	if err != nil {
		return err
	}
	_, err = c.SendUint64Vector(context.Background(), &ringproto.Uint64Vector{Tag: tag, Data: data})
	return err
}

// Rank and Size implement collective.Comm.
func (t *Transport) Rank() int { return t.rank }
func (t *Transport) Size() int { return t.size }

// Broadcast implements collective.Comm by having root fan out to every
// other rank directly (a star, not a tree — see DESIGN.md for why this
// simplification is acceptable at the job sizes this module targets).
func (t *Transport) Broadcast(root int, buf []float64) ([]float64, error) {
	if t.rank == root {
		for r := 0; r < t.size; r++ {
			if r == root {
				continue
			}
			if err := t.sendVector(r, tagBroadcast, buf); err != nil {
				return nil, err
			}
		}
		return buf, nil
	}
	return t.vectors.pop(tagBroadcast), nil
}

// BroadcastUint64 mirrors Broadcast for the uint64 payload channel.
func (t *Transport) BroadcastUint64(root int, buf []uint64) ([]uint64, error) {
	if t.rank == root {
		for r := 0; r < t.size; r++ {
			if r == root {
				continue
			}
			if err := t.sendUint64Vector(r, tagBroadcastU64, buf); err != nil {
				return nil, err
			}
		}
		return buf, nil
	}
	return t.uint64Vectors.pop(tagBroadcastU64), nil
}

// AllReduceSum implements collective.Comm via a rank-0 gather/sum/
// scatter star, the same simplification Broadcast makes.
func (t *Transport) AllReduceSum(buf []float64) ([]float64, error) {
	if t.rank != 0 {
		if err := t.sendVector(0, tagAllReduceGather, buf); err != nil {
			return nil, err
		}
		return t.vectors.pop(tagAllReduceResult), nil
	}

	sum := append([]float64(nil), buf...)
	for r := 1; r < t.size; r++ {
		other := t.vectors.pop(tagAllReduceGather)
		for i, v := range other {
			sum[i] += v
		}
	}
	for r := 1; r < t.size; r++ {
		if err := t.sendVector(r, tagAllReduceResult, sum); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// Send and Recv implement collective.Comm's pairwise primitive
// (pkg/sortnet's distributed odd-even sort). User tags are shifted past
// userTagBase so they can never collide with the fixed collective tags
// above on the same vectorInbox.
func (t *Transport) Send(peer, tag int, data []float64) error {
	return t.sendVector(peer, userTagBase+int32(tag), data)
}

func (t *Transport) Recv(peer, tag int) ([]float64, error) {
	return t.vectors.pop(userTagBase + int32(tag)), nil
}

// RotateShard sends local to this worker's ring successor and returns
// whatever the predecessor sent it this round (spec §4.F's shadow-
// buffer shard rotation).
func (t *Transport) RotateShard(local *dataset.Shard) (*dataset.Shard, error) {
	dest := (t.rank + 1) % t.size
	c, err := t.peer(dest)
	if err != nil {
		return nil, err
	}
	if _, err := c.SendShard(context.Background(), shardToChunk(local)); err != nil {
		return nil, fmt.Errorf("ring: send shard to rank %d: %w", dest, err)
	}
	chunk := <-t.shardInbox
	return chunkToShard(chunk), nil
}

// RotateTopK sends local's running top-k result to this worker's ring
// successor and returns whatever the predecessor sent it this round.
func (t *Transport) RotateTopK(local *knn.TopK) (*knn.TopK, error) {
	dest := (t.rank + 1) % t.size
	c, err := t.peer(dest)
	if err != nil {
		return nil, err
	}
	if _, err := c.SendTopK(context.Background(), topkToChunk(local)); err != nil {
		return nil, fmt.Errorf("ring: send topk to rank %d: %w", dest, err)
	}
	chunk := <-t.topkInbox
	return chunkToTopK(chunk), nil
}
