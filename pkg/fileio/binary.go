// Package fileio implements spec §6's two data-file codecs (binary and
// ARFF) plus the saved-neighbor file format §6/§8 property 8 describe —
// the concrete parsing beyond the data contract itself is explicitly
// out of scope (spec.md §1 Non-goals), so both parsers stop at "read
// every point's coordinates, shard them the way dataset.NewShard
// expects" rather than a fully general ARFF implementation.
package fileio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/lshknn/dlsh/pkg/dataset"
)

const wordSize = 8 // both Idx and Real are 8 bytes on the wire (spec §3/§6).

// Parser is the data-file abstraction options.FileParser selects
// between: read path and return this rank's shard of the dataset.
type Parser interface {
	ParseShard(path string, rank, worldSize int) (*dataset.Shard, error)
}

// BinaryParser implements spec §6's binary data file format: a
// little-endian stream of two Idx words (total_size, dims) followed by
// total_size*dims Real words in point-major (AoS) order.
type BinaryParser struct{}

func (BinaryParser) ParseShard(path string, rank, worldSize int) (*dataset.Shard, error) {
	return ReadBinaryShard(path, rank, worldSize)
}

// ReadBinaryShard reads only rank's byte range out of path — it never
// loads the whole file — and lets dataset.NewShard apply the padding
// rule for a short final read.
func ReadBinaryShard(path string, rank, worldSize int) (*dataset.Shard, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fileio: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("fileio: stat %s: %w", path, err)
	}

	header := make([]byte, 2*wordSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, fmt.Errorf("fileio: read header of %s: %w", path, err)
	}
	totalSize := binary.LittleEndian.Uint64(header[0:8])
	dims := binary.LittleEndian.Uint64(header[8:16])

	wantLen := int64(2*wordSize) + int64(totalSize)*int64(dims)*wordSize
	if info.Size() != wantLen {
		return nil, fmt.Errorf("fileio: %s has %d bytes, want %d (total_size=%d dims=%d)",
			path, info.Size(), wantLen, totalSize, dims)
	}

	rankSize := dataset.RankSize(totalSize, worldSize)
	baseID := dataset.Idx(rank) * rankSize
	realCount := dataset.RealCount(totalSize, worldSize, rank)

	local := make([]dataset.Real, realCount*dims)
	if realCount > 0 {
		byteOffset := int64(2*wordSize) + int64(baseID)*int64(dims)*wordSize
		buf := make([]byte, int64(realCount)*int64(dims)*wordSize)
		if _, err := f.ReadAt(buf, byteOffset); err != nil {
			return nil, fmt.Errorf("fileio: read shard of %s at offset %d: %w", path, byteOffset, err)
		}
		for i := range local {
			local[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*wordSize:]))
		}
	}

	return dataset.NewShard(rank, worldSize, totalSize, dims, dataset.AoS, local)
}
