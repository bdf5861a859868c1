// Package knn implements the bounded top-k engine spec §4.E runs once
// per ring round: for every visiting point, probe the local bucket
// index under every hash table and admit closer candidates into a
// fixed-size running result.
package knn

import (
	"math"

	"github.com/lshknn/dlsh/pkg/dataset"
)

// noID marks an empty top-k slot; no real point ever carries this ID
// since global IDs are bounded by the dataset's total_size.
const noID = ^dataset.Idx(0)

// TopK is the K_visit running result: one bounded, slot-0-is-max array
// per point, rotated around the ring alongside its shard.
type TopK struct {
	k    int
	ids  [][]dataset.Idx
	dist [][]dataset.Real
}

// NewTopK allocates an all-empty top-k buffer for n points.
func NewTopK(n, k int) *TopK {
	t := &TopK{k: k, ids: make([][]dataset.Idx, n), dist: make([][]dataset.Real, n)}
	for i := 0; i < n; i++ {
		t.ids[i] = make([]dataset.Idx, k)
		t.dist[i] = make([]dataset.Real, k)
		for j := 0; j < k; j++ {
			t.ids[i][j] = noID
			t.dist[i][j] = math.Inf(1)
		}
	}
	return t
}

func (t *TopK) IDs(p int) []dataset.Idx    { return t.ids[p] }
func (t *TopK) Dists(p int) []dataset.Real { return t.dist[p] }
func (t *TopK) K() int                     { return t.k }
func (t *TopK) Len() int                   { return len(t.ids) }

func (t *TopK) contains(p int, id dataset.Idx) bool {
	for _, v := range t.ids[p] {
		if v == id {
			return true
		}
	}
	return false
}

// tryInsert admits (id, dist) into point p's result if it beats the
// current worst entry (always parked at slot 0), then restores the
// slot-0-is-max invariant with a k-step scan (spec §4.E step 2c).
func (t *TopK) tryInsert(p int, id dataset.Idx, dist dataset.Real) {
	if dist >= t.dist[p][0] {
		return
	}
	t.dist[p][0] = dist
	t.ids[p][0] = id

	maxSlot := 0
	for j := 1; j < t.k; j++ {
		if t.dist[p][j] > t.dist[p][maxSlot] {
			maxSlot = j
		}
	}
	t.dist[p][0], t.dist[p][maxSlot] = t.dist[p][maxSlot], t.dist[p][0]
	t.ids[p][0], t.ids[p][maxSlot] = t.ids[p][maxSlot], t.ids[p][0]
}

// FilledCount returns how many of point p's k slots hold a real
// candidate (used by pkg/eval's unfilled-slot accounting).
func (t *TopK) FilledCount(p int) int {
	n := 0
	for _, id := range t.ids[p] {
		if id != noID {
			n++
		}
	}
	return n
}
