package dataset

import "testing"

func TestRankSize(t *testing.T) {
	cases := []struct {
		total, world int
		want         Idx
	}{
		{10, 2, 5},
		{7, 2, 4},
		{1, 1, 1},
		{8, 4, 2},
	}
	for _, c := range cases {
		if got := RankSize(Idx(c.total), c.world); got != c.want {
			t.Errorf("RankSize(%d,%d) = %d, want %d", c.total, c.world, got, c.want)
		}
	}
}

func TestNewShardEvenSplitNoPadding(t *testing.T) {
	// 4 points, 2 dims, 2 workers: rank 0 owns points 0,1.
	local := []Real{0, 0, 1, 0}
	s, err := NewShard(0, 2, 4, 2, AoS, local)
	if err != nil {
		t.Fatalf("NewShard: %v", err)
	}
	if s.RealCount() != 2 || s.RankSize() != 2 {
		t.Fatalf("unexpected sizes: real=%d rank=%d", s.RealCount(), s.RankSize())
	}
	if s.GlobalID(0) != 0 || s.GlobalID(1) != 1 {
		t.Fatalf("unexpected ids: %d %d", s.GlobalID(0), s.GlobalID(1))
	}
	if s.At(1, 0) != 1 {
		t.Fatalf("expected point 1 dim 0 == 1, got %v", s.At(1, 0))
	}
}

func TestNewShardPaddingRule(t *testing.T) {
	// 7 points, 2 workers -> rank_size = 4. Worker 1 holds real ids 4,5,6
	// and pads one slot with a duplicate of point 6.
	local := []Real{10, 10, 11, 11, 12, 12}
	s, err := NewShard(1, 2, 7, 2, AoS, local)
	if err != nil {
		t.Fatalf("NewShard: %v", err)
	}
	if s.RealCount() != 3 {
		t.Fatalf("expected realCount=3, got %d", s.RealCount())
	}
	if s.RankSize() != 4 {
		t.Fatalf("expected rankSize=4, got %d", s.RankSize())
	}
	// Padded slot (local index 3) must carry the sentinel ID of the last
	// real point (global id 6) and duplicate its coordinates.
	if s.GlobalID(3) != s.GlobalID(2) {
		t.Fatalf("padded slot id = %d, want sentinel %d", s.GlobalID(3), s.GlobalID(2))
	}
	if s.At(3, 0) != s.At(2, 0) || s.At(3, 1) != s.At(2, 1) {
		t.Fatalf("padded slot coordinates do not duplicate the last real point")
	}
}

func TestLinearIDLayoutEquivalence(t *testing.T) {
	local := []Real{1, 2, 3, 4, 5, 6, 7, 8}
	aos, err := NewShard(0, 1, 4, 2, AoS, local)
	if err != nil {
		t.Fatal(err)
	}
	soa := aos.AsLayout(SoA)

	for p := Idx(0); p < 4; p++ {
		for d := Idx(0); d < 2; d++ {
			if aos.At(p, d) != soa.At(p, d) {
				t.Fatalf("layout mismatch at (%d,%d): aos=%v soa=%v", p, d, aos.At(p, d), soa.At(p, d))
			}
		}
	}
}

func TestShardBufferAdvance(t *testing.T) {
	local := []Real{0, 0}
	first, _ := NewShard(0, 1, 1, 2, AoS, local)
	buf := NewShardBuffer(first)
	if buf.Active() != first {
		t.Fatalf("expected Active() to return the seeded shard")
	}

	second, _ := NewShard(0, 1, 1, 2, AoS, []Real{9, 9})
	buf.Advance(second)
	if buf.Active() != second {
		t.Fatalf("expected Active() to return the advanced shard")
	}
}
