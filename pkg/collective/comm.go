// Package collective defines the narrow "parallel execution context per
// worker" spec §5 says the core may assume: broadcast, pairwise exchange,
// and all-reduce-sum. pkg/ring implements Comm over gRPC; pkg/hashfamily
// and pkg/sortnet only depend on this interface, so building the hash
// family never needs to import the ring transport.
package collective

// Comm is the collective-communication contract one worker's process
// holds for the duration of the job.
type Comm interface {
	// Rank is this worker's 0-based index.
	Rank() int
	// Size is the total number of workers, P.
	Size() int
	// Broadcast sends root's buf to every other rank. The root must pass
	// its real data; non-root callers' buf argument is ignored and they
	// receive the broadcast copy as the return value. Every rank
	// (including root) gets the same slice back.
	Broadcast(root int, buf []float64) ([]float64, error)
	// Send delivers data to peer tagged tag. The pairwise send/recv
	// primitive pairs below it (spec §4.C's pairwise_exchange) rely on
	// Send/Recv being independently orderable, unlike a single paired
	// Exchange call, since the odd-even sort's lower-rank/upper-rank
	// roles in a pair run asymmetric protocols.
	Send(peer, tag int, data []float64) error
	// Recv blocks until a message tagged tag has arrived for this rank.
	// Messages are matched by tag only; peer is not checked against the
	// sender.
	Recv(peer, tag int) ([]float64, error)
	// AllReduceSum element-wise sums buf across every rank and returns
	// the identical result on all ranks (spec §4.B's cut-off materialization).
	AllReduceSum(buf []float64) ([]float64, error)
	// BroadcastUint64 is Broadcast's counterpart for index/seed payloads.
	BroadcastUint64(root int, buf []uint64) ([]uint64, error)
}
