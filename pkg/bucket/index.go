// Package bucket builds the per-hash-table bucket index spec §4.D
// describes: count points per bucket, prefix-sum to offsets, then
// scatter point IDs into a flat, offset-addressed array so pkg/knn can
// scan one bucket in O(bucket size) without per-candidate allocation.
package bucket

import (
	"sync"
	"sync/atomic"

	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/hashfamily"
)

// numWorkers bounds the count/fill worker pools; rank_size is usually
// far larger than this, so it just amortizes goroutine setup cost,
// mirroring the teacher's batch-insert worker pool shape.
const numWorkers = 8

// Index is one worker's bucket index across all of its hash tables.
type Index struct {
	numTables     int
	hashTableSize uint32
	rankSize      dataset.Idx
	blockingSize  int
	// offsets[t] has length hashTableSize+1; offsets[t][b] is where
	// table t's bucket b begins within buckets[t*rankSize:].
	offsets [][]uint64
	// buckets holds numTables*rankSize real entries followed by a
	// blockingSize sentinel tail (spec §4.D).
	buckets []dataset.Idx
}

// Build runs the count/offset/fill passes over shard for every table
// family exposes.
func Build(family hashfamily.Family, shard *dataset.Shard, hashTableSize uint32, blockingSize int) *Index {
	numTables := family.NumTables()
	rankSize := shard.RankSize()

	idx := &Index{
		numTables:     numTables,
		hashTableSize: hashTableSize,
		rankSize:      rankSize,
		blockingSize:  blockingSize,
		offsets:       make([][]uint64, numTables),
		buckets:       make([]dataset.Idx, int(rankSize)*numTables+blockingSize),
	}

	counts := make([][]uint64, numTables)
	for t := range counts {
		counts[t] = make([]uint64, hashTableSize)
	}

	// Pass 1: count.
	forEachPoint(rankSize, func(p dataset.Idx) {
		for t := 0; t < numTables; t++ {
			b := family.Hash(t, shard, p)
			atomic.AddUint64(&counts[t][b], 1)
		}
	})

	// Pass 2: offsets, with the two-slot lead so the fill pass below can
	// use offsets[t][b+1] as an atomic append cursor for bucket b.
	for t := 0; t < numTables; t++ {
		offsets := make([]uint64, hashTableSize+1)
		for b := uint64(2); b <= uint64(hashTableSize); b++ {
			offsets[b] = offsets[b-1] + counts[t][b-2]
		}
		idx.offsets[t] = offsets
	}

	// Pass 3: fill, scattering each point's global ID into its bucket's
	// slot via an atomic post-increment of the cursor left by pass 2.
	forEachPoint(rankSize, func(p dataset.Idx) {
		id := shard.GlobalID(p)
		for t := 0; t < numTables; t++ {
			b := family.Hash(t, shard, p)
			cursor := atomic.AddUint64(&idx.offsets[t][b+1], 1) - 1
			idx.buckets[dataset.Idx(t)*rankSize+dataset.Idx(cursor)] = id
		}
	})

	idx.fillBlockingTail(shard)
	return idx
}

func (idx *Index) fillBlockingTail(shard *dataset.Shard) {
	tail := shard.GlobalID(0)
	if shard.RealCount() > 0 {
		tail = shard.GlobalID(shard.RealCount() - 1)
	}
	base := int(idx.rankSize) * idx.numTables
	for i := 0; i < idx.blockingSize; i++ {
		idx.buckets[base+i] = tail
	}
}

// Bounds returns table t's [start, end) range for bucket b within
// Buckets() (offset by t*rank_size).
func (idx *Index) Bounds(t int, b dataset.Hash) (start, end uint64) {
	o := idx.offsets[t]
	return o[b], o[b+1]
}

// TableOffset is the base index of table t's region in Buckets().
func (idx *Index) TableOffset(t int) dataset.Idx { return dataset.Idx(t) * idx.rankSize }

// Buckets exposes the flat point-ID array backing every table plus the
// blocking-safe tail.
func (idx *Index) Buckets() []dataset.Idx { return idx.buckets }

func (idx *Index) NumTables() int   { return idx.numTables }
func (idx *Index) RankSize() dataset.Idx { return idx.rankSize }
func (idx *Index) BlockingSize() int { return idx.blockingSize }

func forEachPoint(rankSize dataset.Idx, fn func(p dataset.Idx)) {
	if rankSize == 0 {
		return
	}
	jobs := make(chan dataset.Idx, rankSize)
	for p := dataset.Idx(0); p < rankSize; p++ {
		jobs <- p
	}
	close(jobs)

	workers := numWorkers
	if dataset.Idx(workers) > rankSize {
		workers = int(rankSize)
	}
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				fn(p)
			}
		}()
	}
	wg.Wait()
}
