package fileio

import (
	"os"
	"path/filepath"
	"testing"
)

func TestARFFParserReadsNumericRows(t *testing.T) {
	content := `% comment
@relation points
@attribute x numeric
@attribute y numeric
@data
0,0
1,1
2,2
3,3
`
	path := filepath.Join(t.TempDir(), "points.arff")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var p ARFFParser
	shard, err := p.ParseShard(path, 0, 1)
	if err != nil {
		t.Fatalf("ParseShard: %v", err)
	}
	if shard.Dims() != 2 || shard.RealCount() != 4 {
		t.Fatalf("got dims=%d realCount=%d, want 2, 4", shard.Dims(), shard.RealCount())
	}
	if shard.At(2, 0) != 2 || shard.At(2, 1) != 2 {
		t.Fatalf("point 2 = (%v, %v), want (2, 2)", shard.At(2, 0), shard.At(2, 1))
	}
}

func TestARFFParserRejectsMismatchedRowWidth(t *testing.T) {
	content := `@attribute x numeric
@attribute y numeric
@data
0,0
1
`
	path := filepath.Join(t.TempDir(), "bad.arff")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var p ARFFParser
	if _, err := p.ParseShard(path, 0, 1); err == nil {
		t.Fatalf("expected a row-width mismatch error, got nil")
	}
}
