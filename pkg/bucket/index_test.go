package bucket

import (
	"testing"

	"github.com/lshknn/dlsh/pkg/collective"
	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/hashfamily"
	"github.com/lshknn/dlsh/pkg/options"
)

func buildTestShard(t *testing.T, n, dims int) *dataset.Shard {
	t.Helper()
	flat := make([]dataset.Real, n*dims)
	for i := 0; i < n; i++ {
		for d := 0; d < dims; d++ {
			flat[i*dims+d] = float64(i*dims + d)
		}
	}
	s, err := dataset.NewShard(0, 1, dataset.Idx(n), dataset.Idx(dims), dataset.AoS, flat)
	if err != nil {
		t.Fatalf("NewShard: %v", err)
	}
	return s
}

func buildTestFamily(t *testing.T, opt *options.Options, shard *dataset.Shard) hashfamily.Family {
	t.Helper()
	cluster := collective.NewLocalCluster(1)
	f, err := hashfamily.Build(opt, shard, cluster.Comm(0))
	if err != nil {
		t.Fatalf("hashfamily.Build: %v", err)
	}
	return f
}

// TestOffsetsNonDecreasingAndSumToRankSize checks spec §8 property 6:
// per table, offsets are non-decreasing and the last entry equals
// rank_size.
func TestOffsetsNonDecreasingAndSumToRankSize(t *testing.T) {
	opt := options.Default()
	opt.DebugSeed = true
	opt.HashTableSize = 17
	opt.NumHashTables = 3

	shard := buildTestShard(t, 50, 4)
	family := buildTestFamily(t, opt, shard)
	idx := Build(family, shard, opt.HashTableSize, opt.BlockingSize)

	for table := 0; table < idx.NumTables(); table++ {
		prev := uint64(0)
		for b := dataset.Hash(0); b < dataset.Hash(opt.HashTableSize); b++ {
			start, end := idx.Bounds(table, b)
			if start < prev {
				t.Fatalf("table %d bucket %d: offsets not non-decreasing (start=%d < prev=%d)", table, b, start, prev)
			}
			if end < start {
				t.Fatalf("table %d bucket %d: end %d < start %d", table, b, end, start)
			}
			prev = end
		}
		if prev != uint64(shard.RankSize()) {
			t.Fatalf("table %d: last offset %d != rank_size %d", table, prev, shard.RankSize())
		}
	}
}

// TestBucketsContainEveryPointExactlyOnce checks that every real point's
// global ID appears exactly once per table across all of that table's
// buckets.
func TestBucketsContainEveryPointExactlyOnce(t *testing.T) {
	opt := options.Default()
	opt.DebugSeed = true
	opt.HashTableSize = 11
	opt.NumHashTables = 2

	shard := buildTestShard(t, 30, 3)
	family := buildTestFamily(t, opt, shard)
	idx := Build(family, shard, opt.HashTableSize, opt.BlockingSize)

	for table := 0; table < idx.NumTables(); table++ {
		seen := make(map[dataset.Idx]int)
		base := idx.TableOffset(table)
		for i := dataset.Idx(0); i < shard.RankSize(); i++ {
			seen[idx.Buckets()[base+i]]++
		}
		for p := dataset.Idx(0); p < shard.RealCount(); p++ {
			id := shard.GlobalID(p)
			if seen[id] != 1 {
				t.Fatalf("table %d: point %d (id %d) appears %d times, want 1", table, p, id, seen[id])
			}
		}
	}
}

// TestBlockingTailHoldsSentinel verifies the extra slots past the last
// table are filled with the shard's last real global ID.
func TestBlockingTailHoldsSentinel(t *testing.T) {
	opt := options.Default()
	opt.DebugSeed = true
	opt.BlockingSize = 8

	shard := buildTestShard(t, 13, 2)
	family := buildTestFamily(t, opt, shard)
	idx := Build(family, shard, opt.HashTableSize, opt.BlockingSize)

	want := shard.GlobalID(shard.RealCount() - 1)
	base := int(idx.RankSize()) * idx.NumTables()
	for i := 0; i < idx.BlockingSize(); i++ {
		if got := idx.Buckets()[base+i]; got != want {
			t.Fatalf("tail[%d] = %d, want sentinel %d", i, got, want)
		}
	}
}
