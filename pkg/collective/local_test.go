package collective

import (
	"sync"
	"testing"
)

func TestBroadcastDeliversRootBuffer(t *testing.T) {
	const p = 4
	cluster := NewLocalCluster(p)
	var wg sync.WaitGroup
	got := make([][]float64, p)
	for r := 0; r < p; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			comm := cluster.Comm(r)
			var buf []float64
			if r == 2 {
				buf = []float64{1, 2, 3}
			}
			out, err := comm.Broadcast(2, buf)
			if err != nil {
				t.Errorf("rank %d: %v", r, err)
			}
			got[r] = out
		}(r)
	}
	wg.Wait()

	for r := 0; r < p; r++ {
		if len(got[r]) != 3 || got[r][0] != 1 || got[r][2] != 3 {
			t.Fatalf("rank %d got %v, want [1 2 3]", r, got[r])
		}
	}
}

func TestAllReduceSum(t *testing.T) {
	const p = 3
	cluster := NewLocalCluster(p)
	var wg sync.WaitGroup
	got := make([][]float64, p)
	for r := 0; r < p; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			comm := cluster.Comm(r)
			out, err := comm.AllReduceSum([]float64{float64(r), float64(r * 2)})
			if err != nil {
				t.Errorf("rank %d: %v", r, err)
			}
			got[r] = out
		}(r)
	}
	wg.Wait()

	want := []float64{0 + 1 + 2, 0 + 2 + 4}
	for r := 0; r < p; r++ {
		if got[r][0] != want[0] || got[r][1] != want[1] {
			t.Fatalf("rank %d got %v, want %v", r, got[r], want)
		}
	}
}

func TestSendRecvPairwise(t *testing.T) {
	cluster := NewLocalCluster(2)
	var wg sync.WaitGroup
	var a, b []float64
	wg.Add(2)
	go func() {
		defer wg.Done()
		comm := cluster.Comm(0)
		if err := comm.Send(1, 10, []float64{1, 2}); err != nil {
			t.Error(err)
		}
		out, err := comm.Recv(1, 20)
		if err != nil {
			t.Error(err)
		}
		a = out
	}()
	go func() {
		defer wg.Done()
		comm := cluster.Comm(1)
		out, err := comm.Recv(0, 10)
		if err != nil {
			t.Error(err)
		}
		b = out
		if err := comm.Send(0, 20, []float64{3, 4}); err != nil {
			t.Error(err)
		}
	}()
	wg.Wait()

	if a[0] != 3 || a[1] != 4 {
		t.Fatalf("rank 0 received %v, want [3 4]", a)
	}
	if b[0] != 1 || b[1] != 2 {
		t.Fatalf("rank 1 received %v, want [1 2]", b)
	}
}
