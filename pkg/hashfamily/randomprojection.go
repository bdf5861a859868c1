package hashfamily

import (
	"math"

	"github.com/lshknn/dlsh/pkg/collective"
	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/options"
)

// randomProjection hashes a point by projecting it onto num_hash_tables *
// num_hash_functions random directions and bucketing each projection by
// w. Construction draws hash_pool_size candidate (direction, offset)
// pairs on rank 0, picks num_hash_tables*num_hash_functions of them
// uniformly at random (with replacement), and broadcasts the picks —
// never the whole pool — to every rank.
type randomProjection struct {
	numTables    int
	numFunctions int
	dims         int
	w            float64
	tableSize    uint32
	// coeffs[table][function] is a dims+1 slice: [0:dims) is the
	// projection direction, [dims] is the uniform offset in [0, w).
	coeffs [][][]float64
}

func buildRandomProjection(opt *options.Options, shard *dataset.Shard, comm collective.Comm) (Family, error) {
	dims := int(shard.Dims())

	flat := make([]float64, opt.NumHashTables*opt.NumHashFunctions*(dims+1))
	var err error
	if comm.Rank() == 0 {
		rng := newPoolRNG(opt)
		pool := make([][]float64, opt.HashPoolSize)
		for i := range pool {
			row := make([]float64, dims+1)
			for d := 0; d < dims; d++ {
				row[d] = math.Abs(rng.NormFloat64())
			}
			row[dims] = rng.Float64() * opt.W
			pool[i] = row
		}
		for t := 0; t < opt.NumHashTables; t++ {
			for f := 0; f < opt.NumHashFunctions; f++ {
				pick := pool[rng.Intn(opt.HashPoolSize)]
				copy(flat[rpIndex(opt, t, f, 0, dims):], pick)
			}
		}
	}

	flat, err = comm.Broadcast(0, flat)
	if err != nil {
		return nil, err
	}

	rp := &randomProjection{
		numTables:    opt.NumHashTables,
		numFunctions: opt.NumHashFunctions,
		dims:         dims,
		w:            opt.W,
		tableSize:    opt.HashTableSize,
		coeffs:       make([][][]float64, opt.NumHashTables),
	}
	for t := 0; t < opt.NumHashTables; t++ {
		rp.coeffs[t] = make([][]float64, opt.NumHashFunctions)
		for f := 0; f < opt.NumHashFunctions; f++ {
			start := rpIndex(opt, t, f, 0, dims)
			rp.coeffs[t][f] = flat[start : start+dims+1]
		}
	}
	return rp, nil
}

func rpIndex(opt *options.Options, table, function, dim, dims int) int {
	return table*opt.NumHashFunctions*(dims+1) + function*(dims+1) + dim
}

func (rp *randomProjection) NumTables() int { return rp.numTables }

func (rp *randomProjection) Hash(table int, shard *dataset.Shard, p dataset.Idx) dataset.Hash {
	combined := uint32(rp.numFunctions)
	for f := 0; f < rp.numFunctions; f++ {
		c := rp.coeffs[table][f]
		hash := c[rp.dims] + dot(shard, p, c[:rp.dims])
		combined = combine(combined, floorDiv(hash, rp.w))
	}
	return dataset.Hash(combined % rp.tableSize)
}
