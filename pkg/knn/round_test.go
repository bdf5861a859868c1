package knn

import (
	"math"
	"sort"
	"testing"

	"github.com/lshknn/dlsh/pkg/bucket"
	"github.com/lshknn/dlsh/pkg/collective"
	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/hashfamily"
	"github.com/lshknn/dlsh/pkg/options"
)

// With hash_table_size == 1 every point hashes to bucket 0 regardless of
// family, so a single round degenerates to brute force — letting these
// tests check exact top-k correctness without depending on LSH recall.
func buildBruteForceRound(t *testing.T, points [][]float64, k int) (*dataset.Shard, *TopK) {
	t.Helper()
	dims := len(points[0])
	flat := make([]dataset.Real, 0, len(points)*dims)
	for _, p := range points {
		flat = append(flat, p...)
	}
	shard, err := dataset.NewShard(0, 1, dataset.Idx(len(points)), dataset.Idx(dims), dataset.AoS, flat)
	if err != nil {
		t.Fatalf("NewShard: %v", err)
	}

	opt := options.Default()
	opt.DebugSeed = true
	opt.HashTableSize = 1
	opt.NumHashTables = 1

	cluster := collective.NewLocalCluster(1)
	family, err := hashfamily.Build(opt, shard, cluster.Comm(0))
	if err != nil {
		t.Fatalf("hashfamily.Build: %v", err)
	}

	idx := bucket.Build(family, shard, opt.HashTableSize, opt.BlockingSize)
	topk := NewTopK(int(shard.RankSize()), k)
	Round(idx, family, shard, shard, topk)
	return shard, topk
}

func bruteForceDistances(points [][]float64, from int) []float64 {
	dists := make([]float64, len(points))
	for i, p := range points {
		var sum float64
		for d := range p {
			diff := points[from][d] - p[d]
			sum += diff * diff
		}
		dists[i] = sum
	}
	return dists
}

func TestRoundMatchesBruteForceTopK(t *testing.T) {
	points := [][]float64{
		{0, 0}, {1, 0}, {0, 1}, {5, 5}, {10, 10}, {1, 1}, {2, 2}, {-3, -3},
	}
	k := 3
	shard, topk := buildBruteForceRound(t, points, k)

	for p := 0; p < len(points); p++ {
		dists := bruteForceDistances(points, p)
		type cand struct {
			id   int
			dist float64
		}
		var cands []cand
		for i, d := range dists {
			if i == p {
				continue
			}
			cands = append(cands, cand{i, d})
		}
		sort.Slice(cands, func(a, b int) bool { return cands[a].dist < cands[b].dist })

		want := make(map[int]bool)
		for i := 0; i < k; i++ {
			want[cands[i].id] = true
		}

		got := topk.IDs(p)
		if len(got) != k {
			t.Fatalf("point %d: got %d slots, want %d", p, len(got), k)
		}
		for _, id := range got {
			if id == noID {
				t.Fatalf("point %d: unfilled top-k slot, want all %d filled", p, k)
			}
			if !want[int(id)-int(shard.BaseID())] {
				t.Errorf("point %d: got neighbor id %d not among true top-%d", p, id, k)
			}
		}
	}
}

func TestRoundRejectsSelf(t *testing.T) {
	points := [][]float64{{0, 0}, {1, 1}, {2, 2}}
	shard, topk := buildBruteForceRound(t, points, 2)
	for p := 0; p < len(points); p++ {
		selfID := shard.GlobalID(dataset.Idx(p))
		for _, id := range topk.IDs(p) {
			if id == selfID {
				t.Fatalf("point %d: self (id %d) appeared in its own top-k", p, selfID)
			}
		}
	}
}

func TestTopKTryInsertMaintainsMaxAtZero(t *testing.T) {
	topk := NewTopK(1, 3)
	topk.tryInsert(0, 10, 5)
	topk.tryInsert(0, 11, 1)
	topk.tryInsert(0, 12, 3)

	dists := topk.Dists(0)
	maxD := dists[0]
	for _, d := range dists {
		if d > maxD {
			t.Fatalf("slot 0 (%v) is not the max of %v", maxD, dists)
		}
	}
	if math.IsInf(maxD, 1) {
		t.Fatalf("expected slot 0 filled after 3 inserts into a k=3 buffer")
	}
}
