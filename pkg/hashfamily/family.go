// Package hashfamily builds and evaluates the three LSH hash-function
// families spec §4.B names — random projection, entropy-based, and
// mixed — each constructed once per job (drawing from a shared random
// pool on the root worker, then broadcast) and evaluated per point per
// hash table on every ring round.
package hashfamily

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"

	"github.com/lshknn/dlsh/pkg/collective"
	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/options"
)

// Family evaluates a point's hash in every hash table. Implementations
// are immutable once built: the same coefficients are used for every
// round of the job, across every worker.
type Family interface {
	// Hash returns the bucket index of point p in the given table.
	Hash(table int, shard *dataset.Shard, p dataset.Idx) dataset.Hash
	// NumTables is the number of independent hash tables this family
	// maintains (spec §4.B's num_hash_tables).
	NumTables() int
}

// ErrTooManyMultiProbes is returned when the configured number of
// multi-probes exceeds the number of hash functions per table — there
// are not that many Hamming-distance-1 neighbors to probe.
var ErrTooManyMultiProbes = errors.New("hashfamily: num_multi_probes must not exceed num_hash_functions")

// Build constructs the hash family opt.HashFamily selects. shard is this
// worker's local point shard (every family reads its dimensionality;
// entropy/mixed also sample it for cut-offs) and comm is the collective
// context every rank must call
// into identically, since construction broadcasts the pool draw from
// rank 0 and, for entropy/mixed, distributed-sorts sampled hash values.
func Build(opt *options.Options, shard *dataset.Shard, comm collective.Comm) (Family, error) {
	if opt.NumMultiProbes > opt.NumHashFunctions {
		return nil, ErrTooManyMultiProbes
	}
	switch opt.HashFamily {
	case options.RandomProjection:
		return buildRandomProjection(opt, shard, comm)
	case options.EntropyBased:
		return buildEntropyBased(opt, shard, comm)
	case options.Mixed:
		return buildMixed(opt, shard, comm)
	default:
		return nil, errors.New("hashfamily: unknown hash family " + string(opt.HashFamily))
	}
}

// newPoolRNG returns the generator used to draw the shared hash-function
// pool and the per-table/per-function pool picks. With DebugSeed set the
// seed is fixed, so every run draws the exact same pool and picks;
// otherwise the seed is read from crypto/rand and runs differ.
func newPoolRNG(opt *options.Options) *rand.Rand {
	if opt.DebugSeed {
		return rand.New(rand.NewSource(42))
	}
	var seed [8]byte
	cryptorand.Read(seed[:])
	return rand.New(rand.NewSource(int64(binary.LittleEndian.Uint64(seed[:]))))
}

// floorDiv mirrors the C++ construction's static_cast<hash_value_type>(hash / w):
// a floored division truncated (via wraparound) into the unsigned hash
// width, so that nearby floats on either side of a w-boundary land in
// adjacent hash buckets rather than colliding on truncation-toward-zero.
func floorDiv(hash, w float64) uint32 {
	return uint32(int64(math.Floor(hash / w)))
}

// dot computes the inner product of point p's coordinates against a
// coefficient slice of length shard.Dims().
func dot(shard *dataset.Shard, p dataset.Idx, coeffs []float64) float64 {
	var sum float64
	dims := shard.Dims()
	for d := dataset.Idx(0); d < dims; d++ {
		sum += shard.At(p, d) * coeffs[d]
	}
	return sum
}
