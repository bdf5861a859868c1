package hashfamily

import (
	"math"

	"github.com/lshknn/dlsh/pkg/collective"
	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/options"
	"github.com/lshknn/dlsh/pkg/sortnet"
)

// mixed combines random_projection's w-bucketed per-function hashes into
// a single real value via a weighted sum, then buckets that value by
// entropy-based cut-offs — spec §4.B's third family. Unlike the other
// two families, mixed generates its coefficients directly per table
// (no shared pool-and-select step), matching the reference
// construction it's grounded on.
type mixed struct {
	numTables    int
	numFunctions int
	dims         int
	numCutOffs   int
	w            float64
	tableSize    uint32
	// direction[table][function] is a dims-length non-negative projection
	// vector; offset[table][function] its uniform offset in [0, w).
	direction [][][]float64
	offset    [][]float64
	// weight[table][function] combines the per-function floor(hash/w)
	// terms into one scalar value before cut-off bucketing.
	weight [][]float64
	cutoff [][]float64
}

func buildMixed(opt *options.Options, shard *dataset.Shard, comm collective.Comm) (Family, error) {
	dims := int(shard.Dims())
	numCutOffs := opt.NumCutOffPoints - 1
	numTables := opt.NumHashTables
	numFunctions := opt.NumHashFunctions

	directionFlat := make([]float64, numTables*numFunctions*dims)
	offsetFlat := make([]float64, numTables*numFunctions)
	weightFlat := make([]float64, numTables*numFunctions)
	if comm.Rank() == 0 {
		rng := newPoolRNG(opt)
		for t := 0; t < numTables; t++ {
			for f := 0; f < numFunctions; f++ {
				base := (t*numFunctions + f) * dims
				for d := 0; d < dims; d++ {
					directionFlat[base+d] = math.Abs(rng.NormFloat64())
				}
				offsetFlat[t*numFunctions+f] = rng.Float64() * opt.W
				weightFlat[t*numFunctions+f] = rng.NormFloat64()
			}
		}
	}
	var err error
	directionFlat, err = comm.Broadcast(0, directionFlat)
	if err != nil {
		return nil, err
	}
	offsetFlat, err = comm.Broadcast(0, offsetFlat)
	if err != nil {
		return nil, err
	}
	weightFlat, err = comm.Broadcast(0, weightFlat)
	if err != nil {
		return nil, err
	}

	m := &mixed{
		numTables:    numTables,
		numFunctions: numFunctions,
		dims:         dims,
		numCutOffs:   numCutOffs,
		w:            opt.W,
		tableSize:    opt.HashTableSize,
		direction:    make([][][]float64, numTables),
		offset:       make([][]float64, numTables),
		weight:       make([][]float64, numTables),
		cutoff:       make([][]float64, numTables),
	}
	for t := 0; t < numTables; t++ {
		m.direction[t] = make([][]float64, numFunctions)
		for f := 0; f < numFunctions; f++ {
			base := (t*numFunctions + f) * dims
			m.direction[t][f] = directionFlat[base : base+dims]
		}
		m.offset[t] = offsetFlat[t*numFunctions : (t+1)*numFunctions]
		m.weight[t] = weightFlat[t*numFunctions : (t+1)*numFunctions]
	}

	// Cut-off points: sample this table's combined value at every local
	// point, distributed-sort, and read off the quantile boundaries.
	rankSize := int(shard.RankSize())
	jump := (rankSize * comm.Size()) / opt.NumCutOffPoints
	rank := comm.Rank()
	for t := 0; t < numTables; t++ {
		values := make([]float64, rankSize)
		for p := 0; p < rankSize; p++ {
			values[p] = m.combinedValue(t, shard, dataset.Idx(p))
		}
		if err := sortnet.Sort(comm, values); err != nil {
			return nil, err
		}

		cutoffs := make([]float64, numCutOffs)
		for cop := 0; cop < numCutOffs; cop++ {
			idx := (cop + 1) * jump
			if idx >= rank*rankSize && idx < (rank+1)*rankSize {
				cutoffs[cop] = values[idx%rankSize]
			}
		}
		cutoffs, err = comm.AllReduceSum(cutoffs)
		if err != nil {
			return nil, err
		}
		m.cutoff[t] = cutoffs
	}

	return m, nil
}

// combinedValue computes the weighted-sum value mixed's cut-off pass
// buckets, ahead of cutoff materialization (so cutoff[table] may still
// be empty the first time this runs, during sampling).
func (m *mixed) combinedValue(table int, shard *dataset.Shard, p dataset.Idx) float64 {
	var value float64
	for f := 0; f < m.numFunctions; f++ {
		hash := m.offset[table][f] + dot(shard, p, m.direction[table][f])
		value += float64(floorDiv(hash, m.w)) * m.weight[table][f]
	}
	return value
}

func (m *mixed) NumTables() int { return m.numTables }

func (m *mixed) Hash(table int, shard *dataset.Shard, p dataset.Idx) dataset.Hash {
	value := m.combinedValue(table, shard, p)
	var combined uint32
	for _, c := range m.cutoff[table] {
		if value > c {
			combined++
		}
	}
	return dataset.Hash(combined % m.tableSize)
}
