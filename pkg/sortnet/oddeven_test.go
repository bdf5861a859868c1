package sortnet

import (
	"sort"
	"sync"
	"testing"

	"github.com/lshknn/dlsh/pkg/collective"
)

func runSort(t *testing.T, shards [][]float64) [][]float64 {
	t.Helper()
	p := len(shards)
	cluster := collective.NewLocalCluster(p)
	results := make([][]float64, p)
	var wg sync.WaitGroup
	for r := 0; r < p; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			local := append([]float64(nil), shards[r]...)
			if err := Sort(cluster.Comm(r), local); err != nil {
				t.Errorf("rank %d: %v", r, err)
			}
			results[r] = local
		}(r)
	}
	wg.Wait()
	return results
}

func TestSortProducesGloballySortedSequence(t *testing.T) {
	shards := [][]float64{
		{9, 1, 5},
		{2, 8, 0},
		{7, 3, 6},
		{4, 10, -1},
	}
	want := []float64{}
	for _, s := range shards {
		want = append(want, s...)
	}
	sort.Float64s(want)

	got := runSort(t, shards)
	var flat []float64
	for _, s := range got {
		flat = append(flat, s...)
	}
	if len(flat) != len(want) {
		t.Fatalf("got %d values, want %d", len(flat), len(want))
	}
	for i := range want {
		if flat[i] != want[i] {
			t.Fatalf("position %d: got %v, want %v (full: %v)", i, flat[i], want[i], flat)
		}
	}
}

func TestSortSingleWorkerIsNoOp(t *testing.T) {
	shards := [][]float64{{3, 1, 2}}
	got := runSort(t, shards)
	want := []float64{1, 2, 3}
	for i := range want {
		if got[0][i] != want[i] {
			t.Fatalf("got %v, want %v", got[0], want)
		}
	}
}

func TestSortEachRankKeepsItsShare(t *testing.T) {
	shards := [][]float64{
		{100, 200},
		{1, 2},
	}
	got := runSort(t, shards)
	if len(got[0]) != 2 || len(got[1]) != 2 {
		t.Fatalf("rank shard sizes changed: %v", got)
	}
	if got[0][0] != 1 || got[0][1] != 2 {
		t.Fatalf("rank 0 should hold the two smallest values, got %v", got[0])
	}
	if got[1][0] != 100 || got[1][1] != 200 {
		t.Fatalf("rank 1 should hold the two largest values, got %v", got[1])
	}
}
