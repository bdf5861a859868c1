package ring

import (
	"sync"

	"github.com/lshknn/dlsh/pkg/bucket"
	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/hashfamily"
	"github.com/lshknn/dlsh/pkg/knn"
)

// Driver runs the P-round ring pattern (spec §4.F) over one worker: in
// round r the compute kernel (pkg/knn.Round) runs against the shard and
// top-k buffer currently "visiting" this worker, while — concurrently,
// since the visiting shard is read-only input this round doesn't
// mutate — the next round's shard is already being rotated in from the
// predecessor. The top-k buffer travels in lockstep with the visiting
// shard (same origin, same pairing) rather than with this worker's own
// identity, so it can only be rotated once this round's compute has
// finished mutating it.
//
// ComputeRound/BarrierJoin/Advance collapse into a single loop body
// here: BarrierJoin is the wg.Wait() that joins the background shard
// rotation before the (now-safe) top-k rotation begins.
type Driver struct {
	transport *Transport
	local     *dataset.Shard
	tables    *bucket.Index
	family    hashfamily.Family
	k         int
}

// NewDriver wires one worker's fixed, read-only inputs — its own shard,
// the bucket index built over it, and the (cluster-wide identical) hash
// family — to the transport that will carry the ring rotation.
func NewDriver(transport *Transport, local *dataset.Shard, tables *bucket.Index, family hashfamily.Family, k int) *Driver {
	return &Driver{transport: transport, local: local, tables: tables, family: family, k: k}
}

// Run drives exactly Size() rounds. Round 0 is a pure local pass: the
// visiting shard and top-k buffer are this worker's own, since no
// rotation has happened yet (spec §4.F). After Size() rounds the
// top-k buffer has made a full trip around the ring and landed back on
// the rank that owns the points it describes (spec §8 property 7).
func (d *Driver) Run() (*knn.TopK, error) {
	size := d.transport.Size()
	shadow := dataset.NewShardBuffer(d.local)
	topk := knn.NewTopK(int(d.local.RankSize()), d.k)

	for r := 0; r < size; r++ {
		visit := shadow.Active()

		var next *dataset.Shard
		var shardErr error
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, shardErr = d.transport.RotateShard(visit)
		}()

		knn.Round(d.tables, d.family, d.local, visit, topk)

		wg.Wait() // BarrierJoin: compute and the background shard transfer both complete.
		if shardErr != nil {
			return nil, shardErr
		}
		shadow.Advance(next) // Advance: the newly-received shard becomes active.

		nextTopK, err := d.transport.RotateTopK(topk)
		if err != nil {
			return nil, err
		}
		topk = nextTopK
	}

	return topk, nil
}
