package dataset

import "sync/atomic"

// ShardBuffer is the two-buffer "active/shadow" store the ring driver
// rotates (spec §4.A's rotate(), §9's two-buffer design note). Go's GC
// makes the classic pre-allocated shadow buffer unnecessary: the transfer
// path builds a brand new *Shard off the critical path and Advance()
// publishes it with a single atomic pointer swap, which is the "constant-
// time relabel, no copy" the design note asks for.
type ShardBuffer struct {
	ptr atomic.Pointer[Shard]
}

// NewShardBuffer seeds the buffer with the worker's own initial shard.
func NewShardBuffer(initial *Shard) *ShardBuffer {
	b := &ShardBuffer{}
	b.ptr.Store(initial)
	return b
}

// Active returns the shard the compute kernel should read this round.
func (b *ShardBuffer) Active() *Shard {
	return b.ptr.Load()
}

// Advance publishes next as the active shard. Call only from BarrierJoin,
// after the background transfer that produced next has completed — never
// while a compute kernel may still be reading the old active shard.
func (b *ShardBuffer) Advance(next *Shard) {
	b.ptr.Store(next)
}
