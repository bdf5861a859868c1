package fileio

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/lshknn/dlsh/pkg/dataset"
)

// ARFFParser reads a Weka-style ARFF file: `%` comment lines, an
// `@attribute name numeric` line per coordinate, and an `@data` section
// of comma-separated rows. Unlike BinaryParser this loads every row
// into memory before slicing out rank's share, since ARFF's text
// encoding has no fixed-width random access.
type ARFFParser struct{}

func (ARFFParser) ParseShard(path string, rank, worldSize int) (*dataset.Shard, error) {
	rows, dims, err := parseARFF(path)
	if err != nil {
		return nil, err
	}
	totalSize := dataset.Idx(len(rows))
	realCount := dataset.RealCount(totalSize, worldSize, rank)
	rankSize := dataset.RankSize(totalSize, worldSize)
	baseID := dataset.Idx(rank) * rankSize

	local := make([]dataset.Real, 0, realCount*dataset.Idx(dims))
	for p := dataset.Idx(0); p < realCount; p++ {
		local = append(local, rows[baseID+p]...)
	}
	return dataset.NewShard(rank, worldSize, totalSize, dataset.Idx(dims), dataset.AoS, local)
}

func parseARFF(path string) ([][]dataset.Real, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("fileio: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	dims := 0
	inData := false
	var rows [][]dataset.Real
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") {
			continue
		}
		lower := strings.ToLower(line)

		if !inData {
			switch {
			case strings.HasPrefix(lower, "@attribute"):
				dims++
			case strings.HasPrefix(lower, "@data"):
				inData = true
			}
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != dims {
			return nil, 0, fmt.Errorf("fileio: %s line %d: row has %d fields, want %d attributes", path, lineNo, len(fields), dims)
		}
		row := make([]dataset.Real, dims)
		for i, field := range fields {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, 0, fmt.Errorf("fileio: %s line %d field %d: %w", path, lineNo, i, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("fileio: scanning %s: %w", path, err)
	}
	if dims == 0 {
		return nil, 0, fmt.Errorf("fileio: %s has no @attribute lines", path)
	}
	return rows, dims, nil
}
