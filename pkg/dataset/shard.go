// Package dataset implements the shard store (spec §4.A): the local slice
// of the distributed N×D point matrix each worker owns, its AoS/SoA
// indexing, the last-rank padding rule, and the two-buffer rotation the
// ring driver (pkg/ring) uses to overlap compute with transfer.
//
// Everything downstream (pkg/hashfamily, pkg/bucket, pkg/knn) is
// parameterized over the three scalar types spec §3 names:
package dataset

// Real is the floating-point type for coordinates, hash coefficients and
// distances. float64 throughout — this module does not offer a float32
// instantiation since nothing in the spec requires dual width beyond "32-
// or 64-bit"; float64 is the safer default and is what Go's math package
// is written against.
type Real = float64

// Idx addresses points: point IDs and shard offsets.
type Idx = uint64

// Hash is the hash-value type; its width bounds the maximum
// hash_table_size (spec §3). uint32 leaves ~4B buckets of headroom and is
// what the fold_h constants in pkg/hashfamily are tuned for.
type Hash = uint32

// Layout is the point-array memory layout (spec §3's AoS/SoA choice,
// resolved here at Shard-construction time rather than as a compile-time
// type parameter).
type Layout int

const (
	AoS Layout = iota
	SoA
)

func (l Layout) String() string {
	if l == SoA {
		return "soa"
	}
	return "aos"
}

// RankSize returns ceil(totalSize/worldSize), the per-shard row count
// every worker's shard is padded to (spec §3).
func RankSize(totalSize Idx, worldSize int) Idx {
	w := Idx(worldSize)
	return (totalSize + w - 1) / w
}

// RealCount returns how many non-padded rows rank holds under the
// padding rule (spec §4.A) — shared by NewShard and pkg/fileio's reader,
// which needs this count before a Shard exists to ask it.
func RealCount(totalSize Idx, worldSize, rank int) Idx {
	rankSize := RankSize(totalSize, worldSize)
	baseID := Idx(rank) * rankSize
	if baseID >= totalSize {
		return 0
	}
	if remaining := totalSize - baseID; remaining < rankSize {
		return remaining
	}
	return rankSize
}

// Shard is one worker's local slice of the point set: rankSize rows of
// dims columns, stored flat per Layout, plus a parallel global-ID array
// so padded rows can carry the sentinel ID spec §4.A requires.
type Shard struct {
	layout    Layout
	dims      Idx
	totalSize Idx
	rankSize  Idx
	baseID    Idx // global ID of local row 0
	realCount Idx // number of non-padded rows on this shard
	data      []Real
	ids       []Idx
}

// NewShard builds a worker's shard from the rows it read off disk
// (localReal, always AoS as the file format mandates — spec §6), applying
// the padding rule when this is the last rank and totalSize isn't evenly
// divisible by worldSize.
func NewShard(rank, worldSize int, totalSize, dims Idx, layout Layout, localReal []Real) (*Shard, error) {
	rankSize := RankSize(totalSize, worldSize)
	baseID := Idx(rank) * rankSize
	realCount := RealCount(totalSize, worldSize, rank)
	if Idx(len(localReal)) != realCount*dims {
		return nil, errShardLength(realCount, dims, Idx(len(localReal)))
	}

	s := &Shard{
		layout:    layout,
		dims:      dims,
		totalSize: totalSize,
		rankSize:  rankSize,
		baseID:    baseID,
		realCount: realCount,
		data:      make([]Real, rankSize*dims),
		ids:       make([]Idx, rankSize),
	}

	for p := Idx(0); p < realCount; p++ {
		for d := Idx(0); d < dims; d++ {
			s.data[s.LinearID(p, d)] = localReal[p*dims+d]
		}
		s.ids[p] = baseID + p
	}

	// Padding rule (spec §4.A): repeat the last real point and tag padded
	// slots with its global ID so it can never be anyone's neighbor (a
	// point never considers itself).
	if realCount < rankSize {
		var sentinel Idx
		if realCount > 0 {
			sentinel = baseID + realCount - 1
		} else {
			sentinel = baseID
		}
		for p := realCount; p < rankSize; p++ {
			if realCount > 0 {
				for d := Idx(0); d < dims; d++ {
					s.data[s.LinearID(p, d)] = s.data[s.LinearID(realCount-1, d)]
				}
			}
			s.ids[p] = sentinel
		}
	}

	return s, nil
}

func errShardLength(realCount, dims, got Idx) error {
	return &shardLengthError{realCount, dims, got}
}

type shardLengthError struct{ realCount, dims, got Idx }

func (e *shardLengthError) Error() string {
	return "dataset: local shard has wrong length: want " +
		itoa(e.realCount*e.dims) + " (" + itoa(e.realCount) + "x" + itoa(e.dims) + "), got " + itoa(e.got)
}

func itoa(v Idx) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// NewShardFromRaw reconstructs a shard from an already-padded wire
// payload (pkg/ring's rotation messages carry exactly this shape) —
// unlike NewShard it performs no padding computation, since the sender
// already applied the padding rule before transmitting.
func NewShardFromRaw(layout Layout, dims, totalSize, rankSize, baseID, realCount Idx, data []Real, ids []Idx) *Shard {
	return &Shard{
		layout:    layout,
		dims:      dims,
		totalSize: totalSize,
		rankSize:  rankSize,
		baseID:    baseID,
		realCount: realCount,
		data:      data,
		ids:       ids,
	}
}

// IDsRaw exposes the backing global-ID slice for bulk transfer (pkg/ring's
// rotation wire format); callers should treat it as read-only.
func (s *Shard) IDsRaw() []Idx { return s.ids }

// LinearID maps a (point, dim) pair to a flat offset per s.layout — the
// single mapping every kernel in this module goes through, so AoS and SoA
// runs stay byte-for-byte equivalent modulo storage order (spec §8
// property 3).
func (s *Shard) LinearID(p, d Idx) Idx {
	if s.layout == SoA {
		return p + d*s.rankSize
	}
	return p*s.dims + d
}

// At returns the coordinate at (p, d).
func (s *Shard) At(p, d Idx) Real { return s.data[s.LinearID(p, d)] }

// GlobalID returns the global point ID of local row p (handles padding).
func (s *Shard) GlobalID(p Idx) Idx { return s.ids[p] }

func (s *Shard) Layout() Layout  { return s.layout }
func (s *Shard) Dims() Idx       { return s.dims }
func (s *Shard) RankSize() Idx   { return s.rankSize }
func (s *Shard) TotalSize() Idx  { return s.totalSize }
func (s *Shard) BaseID() Idx     { return s.baseID }
func (s *Shard) RealCount() Idx  { return s.realCount }

// Raw exposes the backing coordinate slice for bulk kernels (the
// "accessor object" of spec §9 — callers still must go through LinearID).
func (s *Shard) Raw() []Real { return s.data }

// AsLayout returns a copy of this shard converted to the requested
// layout. Spec §9 open question 1 treats layout conversion as required
// and well-defined for every family (not stubbed to 0 as one reference
// variant did).
func (s *Shard) AsLayout(layout Layout) *Shard {
	if layout == s.layout {
		cp := *s
		cp.data = append([]Real(nil), s.data...)
		cp.ids = append([]Idx(nil), s.ids...)
		return &cp
	}
	out := &Shard{
		layout:    layout,
		dims:      s.dims,
		totalSize: s.totalSize,
		rankSize:  s.rankSize,
		baseID:    s.baseID,
		realCount: s.realCount,
		data:      make([]Real, len(s.data)),
		ids:       append([]Idx(nil), s.ids...),
	}
	for p := Idx(0); p < s.rankSize; p++ {
		for d := Idx(0); d < s.dims; d++ {
			out.data[out.LinearID(p, d)] = s.At(p, d)
		}
	}
	return out
}
