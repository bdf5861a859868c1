package hashfamily

import (
	"math"

	"github.com/lshknn/dlsh/pkg/collective"
	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/options"
	"github.com/lshknn/dlsh/pkg/sortnet"
)

// entropyBased hashes a point by projecting it onto a random direction
// per hash function, then bucketing the projection by where it falls
// among num_cut_off_points-1 globally-computed quantile cut-offs — an
// entropy-sensitive alternative to random_projection's fixed-width w
// buckets (spec §4.B).
type entropyBased struct {
	numTables    int
	numFunctions int
	dims         int
	numCutOffs   int // num_cut_off_points - 1
	tableSize    uint32
	// direction[table][function] is a dims-length projection vector.
	direction [][][]float64
	// cutoff[table][function] is a numCutOffs-length ascending slice.
	cutoff [][][]float64
}

func buildEntropyBased(opt *options.Options, shard *dataset.Shard, comm collective.Comm) (Family, error) {
	dims := int(shard.Dims())
	numCutOffs := opt.NumCutOffPoints - 1

	// Pool of direction vectors, broadcast to every rank so the cut-off
	// sampling pass below can be computed identically everywhere.
	poolFlat := make([]float64, opt.HashPoolSize*dims)
	if comm.Rank() == 0 {
		rng := newPoolRNG(opt)
		for i := 0; i < opt.HashPoolSize; i++ {
			for d := 0; d < dims; d++ {
				poolFlat[i*dims+d] = math.Abs(rng.NormFloat64())
			}
		}
	}
	poolFlat, err := comm.Broadcast(0, poolFlat)
	if err != nil {
		return nil, err
	}
	pool := make([][]float64, opt.HashPoolSize)
	for i := range pool {
		pool[i] = poolFlat[i*dims : (i+1)*dims]
	}

	// For every pool direction, compute every rank's local hash values,
	// distributed-sort them, and read off the num_cut_off_points-1
	// quantile boundaries.
	cutoffPool := make([][]float64, opt.HashPoolSize)
	rankSize := int(shard.RankSize())
	totalSize := int(shard.TotalSize())
	jump := totalSize / opt.NumCutOffPoints
	for i, dir := range pool {
		values := make([]float64, rankSize)
		for p := 0; p < rankSize; p++ {
			values[p] = dot(shard, dataset.Idx(p), dir)
		}
		if err := sortnet.Sort(comm, values); err != nil {
			return nil, err
		}

		cutoffs := make([]float64, numCutOffs)
		rank := comm.Rank()
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
		cutoffPool[i] = cutoffs
	}

	// Master picks num_hash_tables*num_hash_functions (direction, cutoff)
	// pairs from the pool and broadcasts the picks.
	directionFlat := make([]float64, opt.NumHashTables*opt.NumHashFunctions*dims)
	cutoffFlat := make([]float64, opt.NumHashTables*opt.NumHashFunctions*numCutOffs)
	if comm.Rank() == 0 {
		rng := newPoolRNG(opt)
		for t := 0; t < opt.NumHashTables; t++ {
			for f := 0; f < opt.NumHashFunctions; f++ {
				pick := rng.Intn(opt.HashPoolSize)
				di := (t*opt.NumHashFunctions + f) * dims
				copy(directionFlat[di:di+dims], pool[pick])
				ci := (t*opt.NumHashFunctions + f) * numCutOffs
				copy(cutoffFlat[ci:ci+numCutOffs], cutoffPool[pick])
			}
		}
	}
	directionFlat, err = comm.Broadcast(0, directionFlat)
	if err != nil {
		return nil, err
	}
	cutoffFlat, err = comm.Broadcast(0, cutoffFlat)
	if err != nil {
		return nil, err
	}

	eb := &entropyBased{
		numTables:    opt.NumHashTables,
		numFunctions: opt.NumHashFunctions,
		dims:         dims,
		numCutOffs:   numCutOffs,
		tableSize:    opt.HashTableSize,
		direction:    make([][][]float64, opt.NumHashTables),
		cutoff:       make([][][]float64, opt.NumHashTables),
	}
	for t := 0; t < opt.NumHashTables; t++ {
		eb.direction[t] = make([][]float64, opt.NumHashFunctions)
		eb.cutoff[t] = make([][]float64, opt.NumHashFunctions)
		for f := 0; f < opt.NumHashFunctions; f++ {
			di := (t*opt.NumHashFunctions + f) * dims
			eb.direction[t][f] = directionFlat[di : di+dims]
			ci := (t*opt.NumHashFunctions + f) * numCutOffs
			eb.cutoff[t][f] = cutoffFlat[ci : ci+numCutOffs]
		}
	}
	return eb, nil
}

func (eb *entropyBased) NumTables() int { return eb.numTables }

func (eb *entropyBased) Hash(table int, shard *dataset.Shard, p dataset.Idx) dataset.Hash {
	combined := uint32(eb.numFunctions)
	for f := 0; f < eb.numFunctions; f++ {
		value := dot(shard, p, eb.direction[table][f])
		cutoffs := eb.cutoff[table][f]
		rank := 0
		for rank < len(cutoffs) && cutoffs[rank] < value {
			rank++
		}
		combined = combine(combined, uint32(rank))
	}
	return dataset.Hash(combined % eb.tableSize)
}
