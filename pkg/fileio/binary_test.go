package fileio

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/lshknn/dlsh/pkg/dataset"
)

func writeBinaryFile(t *testing.T, points [][]float64) string {
	t.Helper()
	dims := len(points[0])
	path := filepath.Join(t.TempDir(), "data.bin")

	buf := make([]byte, 0, 16+len(points)*dims*8)
	header := make([]byte, 16)
	binary.LittleEndian.PutUint64(header[0:8], uint64(len(points)))
	binary.LittleEndian.PutUint64(header[8:16], uint64(dims))
	buf = append(buf, header...)
	for _, p := range points {
		for _, v := range p {
			word := make([]byte, 8)
			binary.LittleEndian.PutUint64(word, math.Float64bits(v))
			buf = append(buf, word...)
		}
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestReadBinaryShardSplitsAcrossRanksWithPadding(t *testing.T) {
	points := [][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}, {4, 4}, {5, 5}, {6, 6}}
	path := writeBinaryFile(t, points)
	worldSize := 2

	shard0, err := ReadBinaryShard(path, 0, worldSize)
	if err != nil {
		t.Fatalf("rank 0: %v", err)
	}
	shard1, err := ReadBinaryShard(path, 1, worldSize)
	if err != nil {
		t.Fatalf("rank 1: %v", err)
	}

	rankSize := dataset.RankSize(dataset.Idx(len(points)), worldSize)
	if shard0.RankSize() != rankSize || shard1.RankSize() != rankSize {
		t.Fatalf("rank sizes = %d, %d, want %d each", shard0.RankSize(), shard1.RankSize(), rankSize)
	}
	if shard1.RealCount() >= rankSize {
		t.Fatalf("rank 1 real count %d should be short of rank_size %d (7 points / 2 workers)", shard1.RealCount(), rankSize)
	}

	for p := dataset.Idx(0); p < shard0.RealCount(); p++ {
		for d := dataset.Idx(0); d < shard0.Dims(); d++ {
			if shard0.At(p, d) != points[p][d] {
				t.Fatalf("rank 0 point %d dim %d = %v, want %v", p, d, shard0.At(p, d), points[p][d])
			}
		}
	}
}

func TestReadBinaryShardRejectsWrongLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	header := make([]byte, 16)
	binary.LittleEndian.PutUint64(header[0:8], 10)
	binary.LittleEndian.PutUint64(header[8:16], 3)
	if err := os.WriteFile(path, header, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := ReadBinaryShard(path, 0, 1); err == nil {
		t.Fatalf("expected a length-mismatch error, got nil")
	}
}
