// Package proto holds the wire message types pkg/ring's hand-written
// gRPC service exchanges. There is no .proto source or protoc step
// behind these — see DESIGN.md for why — so these are plain Go structs
// serialized by internal/netcodec's gob codec rather than
// protoc-gen-go output.
package proto

// ShardChunk carries one worker's shard across the ring: the flat,
// already-padded coordinate buffer plus its parallel global-ID array
// and enough metadata for the receiver to rebuild a *dataset.Shard
// without recomputing the padding rule.
type ShardChunk struct {
	Layout    int
	Dims      uint64
	TotalSize uint64
	RankSize  uint64
	BaseID    uint64
	RealCount uint64
	Data      []float64
	IDs       []uint64
}

// TopKChunk carries one worker's running top-k result across the ring
// alongside its shard (spec §4.F's two rotated buffers travel together
// each round).
type TopKChunk struct {
	K    int
	IDs  [][]uint64
	Dist [][]float64
}

// Vector is the generic float64 payload for Broadcast/AllReduceSum and
// the pairwise Send/Recv primitive sortnet's distributed sort uses.
type Vector struct {
	Tag  int32
	Data []float64
}

// Uint64Vector mirrors Vector for BroadcastUint64 (index/seed payloads).
type Uint64Vector struct {
	Tag  int32
	Data []uint64
}

// Ack is the empty response every unary method here returns; none of
// these RPCs carry meaningful reply data, only delivery confirmation.
type Ack struct{}
