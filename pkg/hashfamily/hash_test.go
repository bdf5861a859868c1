package hashfamily

import (
	"sync"
	"testing"

	"github.com/lshknn/dlsh/pkg/collective"
	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/options"
)

// buildPoints splits a flat set of AoS points evenly across worldSize
// shards of dims columns, returning one *dataset.Shard per rank.
func buildPoints(t *testing.T, points [][]float64, dims, worldSize int) []*dataset.Shard {
	t.Helper()
	total := dataset.Idx(len(points))
	rankSize := dataset.RankSize(total, worldSize)
	shards := make([]*dataset.Shard, worldSize)
	for r := 0; r < worldSize; r++ {
		start := dataset.Idx(r) * rankSize
		end := start + rankSize
		if end > total {
			end = total
		}
		if start > total {
			start = total
		}
		var flat []dataset.Real
		for _, p := range points[start:end] {
			flat = append(flat, p...)
		}
		s, err := dataset.NewShard(r, worldSize, total, dataset.Idx(dims), dataset.AoS, flat)
		if err != nil {
			t.Fatalf("rank %d: %v", r, err)
		}
		shards[r] = s
	}
	return shards
}

func buildAcrossCluster(t *testing.T, opt *options.Options, shards []*dataset.Shard) []Family {
	p := len(shards)
	cluster := collective.NewLocalCluster(p)
	families := make([]Family, p)
	var wg sync.WaitGroup
	for r := 0; r < p; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			f, err := Build(opt, shards[r], cluster.Comm(r))
			if err != nil {
				t.Errorf("rank %d build: %v", r, err)
				return
			}
			families[r] = f
		}(r)
	}
	wg.Wait()
	return families
}

func samplePoints() [][]float64 {
	pts := make([][]float64, 0, 16)
	for i := 0; i < 16; i++ {
		pts = append(pts, []float64{float64(i), float64(i * i % 7), float64(-i)})
	}
	return pts
}

func TestRandomProjectionAgreesAcrossRanks(t *testing.T) {
	opt := options.Default()
	opt.HashFamily = options.RandomProjection
	opt.DebugSeed = true
	opt.NumHashTables = 3
	opt.NumHashFunctions = 2

	shards := buildPoints(t, samplePoints(), 3, 4)
	families := buildAcrossCluster(t, opt, shards)

	// Every rank's broadcast coefficients must be bit-identical: evaluate
	// each family against the *same* shard (rank 0's) and compare.
	for table := 0; table < opt.NumHashTables; table++ {
		for p := dataset.Idx(0); p < shards[0].RankSize(); p++ {
			want := families[0].Hash(table, shards[0], p)
			for r := 1; r < len(families); r++ {
				if got := families[r].Hash(table, shards[0], p); got != want {
					t.Fatalf("table %d point %d: rank 0 = %d, rank %d = %d (hash functions not shared identically)", table, p, want, r, got)
				}
			}
		}
	}
}

func TestRandomProjectionHashInRange(t *testing.T) {
	opt := options.Default()
	opt.HashFamily = options.RandomProjection
	opt.DebugSeed = true
	opt.HashTableSize = 997

	shards := buildPoints(t, samplePoints(), 3, 2)
	families := buildAcrossCluster(t, opt, shards)

	for table := 0; table < opt.NumHashTables; table++ {
		for p := dataset.Idx(0); p < shards[0].RankSize(); p++ {
			h := families[0].Hash(table, shards[0], p)
			if uint32(h) >= opt.HashTableSize {
				t.Fatalf("hash %d out of range [0,%d)", h, opt.HashTableSize)
			}
		}
	}
}

func TestEntropyBasedHashInRange(t *testing.T) {
	opt := options.Default()
	opt.HashFamily = options.EntropyBased
	opt.DebugSeed = true
	opt.NumCutOffPoints = 3
	opt.HashTableSize = 251

	shards := buildPoints(t, samplePoints(), 3, 4)
	families := buildAcrossCluster(t, opt, shards)

	for r, f := range families {
		for table := 0; table < opt.NumHashTables; table++ {
			for p := dataset.Idx(0); p < shards[r].RankSize(); p++ {
				h := f.Hash(table, shards[r], p)
				if uint32(h) >= opt.HashTableSize {
					t.Fatalf("rank %d table %d point %d: hash %d out of range", r, table, p, h)
				}
			}
		}
	}
}

func TestMixedHashInRange(t *testing.T) {
	opt := options.Default()
	opt.HashFamily = options.Mixed
	opt.DebugSeed = true
	opt.NumCutOffPoints = 3
	opt.HashTableSize = 509

	shards := buildPoints(t, samplePoints(), 3, 4)
	families := buildAcrossCluster(t, opt, shards)

	for r, f := range families {
		for table := 0; table < opt.NumHashTables; table++ {
			for p := dataset.Idx(0); p < shards[r].RankSize(); p++ {
				h := f.Hash(table, shards[r], p)
				if uint32(h) >= opt.HashTableSize {
					t.Fatalf("rank %d table %d point %d: hash %d out of range", r, table, p, h)
				}
			}
		}
	}
}

func TestBuildRejectsTooManyMultiProbes(t *testing.T) {
	opt := options.Default()
	opt.NumHashFunctions = 2
	opt.NumMultiProbes = 3
	shards := buildPoints(t, samplePoints(), 3, 1)
	cluster := collective.NewLocalCluster(1)
	if _, err := Build(opt, shards[0], cluster.Comm(0)); err != ErrTooManyMultiProbes {
		t.Fatalf("expected ErrTooManyMultiProbes, got %v", err)
	}
}

func TestCombineIsDeterministic(t *testing.T) {
	a := combine(7, 100)
	b := combine(7, 100)
	if a != b {
		t.Fatalf("combine not deterministic: %d vs %d", a, b)
	}
	if combine(7, 100) == combine(7, 101) {
		t.Fatalf("combine should distinguish different inputs")
	}
}
