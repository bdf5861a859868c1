package fileio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/lshknn/dlsh/pkg/dataset"
	"github.com/lshknn/dlsh/pkg/knn"
)

// CreateNeighborFile pre-allocates a saved-neighbor file (spec §6):
// identical header layout (total_size, k) followed by total_size*k
// fixed-width values. Call once, before any worker's WriteShardIDs/
// WriteShardDists — every worker then pwrites its own shard's rows
// independently at baseID*k offset, in rank order as spec §6 requires.
func CreateNeighborFile(path string, totalSize uint64, k int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fileio: create %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, 2*wordSize)
	binary.LittleEndian.PutUint64(header[0:8], totalSize)
	binary.LittleEndian.PutUint64(header[8:16], uint64(k))
	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("fileio: write header of %s: %w", path, err)
	}
	if err := f.Truncate(int64(2*wordSize) + int64(totalSize)*int64(k)*wordSize); err != nil {
		return fmt.Errorf("fileio: truncate %s: %w", path, err)
	}
	return nil
}

// WriteShardIDs writes shard's real (non-padded) rows of topk's IDs at
// their rank-ordered offset into an already-created neighbor-ID file.
func WriteShardIDs(path string, shard *dataset.Shard, topk *knn.TopK) error {
	k := topk.K()
	buf := make([]byte, int64(shard.RealCount())*int64(k)*wordSize)
	for p := dataset.Idx(0); p < shard.RealCount(); p++ {
		ids := topk.IDs(int(p))
		for j := 0; j < k; j++ {
			binary.LittleEndian.PutUint64(buf[(int64(p)*int64(k)+int64(j))*wordSize:], ids[j])
		}
	}
	return writeShardRows(path, shard, k, buf)
}

// WriteShardDists writes shard's real rows of topk's distances, after
// sqrt (spec §6: "Real (after sqrt) for the distances file" — topk
// stores squared distance throughout the pipeline).
func WriteShardDists(path string, shard *dataset.Shard, topk *knn.TopK) error {
	k := topk.K()
	buf := make([]byte, int64(shard.RealCount())*int64(k)*wordSize)
	for p := dataset.Idx(0); p < shard.RealCount(); p++ {
		dists := topk.Dists(int(p))
		for j := 0; j < k; j++ {
			bits := math.Float64bits(math.Sqrt(dists[j]))
			binary.LittleEndian.PutUint64(buf[(int64(p)*int64(k)+int64(j))*wordSize:], bits)
		}
	}
	return writeShardRows(path, shard, k, buf)
}

func writeShardRows(path string, shard *dataset.Shard, k int, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("fileio: open %s for write: %w", path, err)
	}
	defer f.Close()

	offset := int64(2*wordSize) + int64(shard.BaseID())*int64(k)*wordSize
	if _, err := f.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("fileio: write %s at offset %d: %w", path, offset, err)
	}
	return nil
}

// ReadNeighborIDs reads rank's shard of an already-written neighbor-ID
// file, returning one row of k IDs for each real point of that shard.
// Padded positions of a short final shard have no row: the file only
// ever held totalSize*k real entries.
func ReadNeighborIDs(path string, rank, worldSize int) ([][]uint64, int, error) {
	totalSize, k, err := readNeighborHeader(path)
	if err != nil {
		return nil, 0, err
	}
	raw, err := readShardRows(path, totalSize, k, rank, worldSize)
	if err != nil {
		return nil, 0, err
	}
	rows := make([][]uint64, len(raw)/(k*wordSize))
	for p := range rows {
		rows[p] = make([]uint64, k)
		for j := 0; j < k; j++ {
			rows[p][j] = binary.LittleEndian.Uint64(raw[(p*k+j)*wordSize:])
		}
	}
	return rows, k, nil
}

// ReadNeighborDists mirrors ReadNeighborIDs for a distances file (plain
// Real values, no further transform on read — WriteShardDists already
// applied sqrt before writing).
func ReadNeighborDists(path string, rank, worldSize int) ([][]float64, int, error) {
	totalSize, k, err := readNeighborHeader(path)
	if err != nil {
		return nil, 0, err
	}
	raw, err := readShardRows(path, totalSize, k, rank, worldSize)
	if err != nil {
		return nil, 0, err
	}
	rows := make([][]float64, len(raw)/(k*wordSize))
	for p := range rows {
		rows[p] = make([]float64, k)
		for j := 0; j < k; j++ {
			rows[p][j] = math.Float64frombits(binary.LittleEndian.Uint64(raw[(p*k+j)*wordSize:]))
		}
	}
	return rows, k, nil
}

func readNeighborHeader(path string) (totalSize uint64, k int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("fileio: open %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, 2*wordSize)
	if _, err := f.ReadAt(header, 0); err != nil {
		return 0, 0, fmt.Errorf("fileio: read header of %s: %w", path, err)
	}
	totalSize = binary.LittleEndian.Uint64(header[0:8])
	k = int(binary.LittleEndian.Uint64(header[8:16]))
	return totalSize, k, nil
}

func readShardRows(path string, totalSize uint64, k, rank, worldSize int) ([]byte, error) {
	realCount := dataset.RealCount(dataset.Idx(totalSize), worldSize, rank)
	rankSize := dataset.RankSize(dataset.Idx(totalSize), worldSize)
	baseID := dataset.Idx(rank) * rankSize
	if realCount == 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fileio: open %s: %w", path, err)
	}
	defer f.Close()

	offset := int64(2*wordSize) + int64(baseID)*int64(k)*wordSize
	buf := make([]byte, int64(realCount)*int64(k)*wordSize)
	if _, err := f.ReadAt(buf, offset); err != nil {
		return nil, fmt.Errorf("fileio: read %s at offset %d: %w", path, offset, err)
	}
	return buf, nil
}
