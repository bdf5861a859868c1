package collective

import "sync"

// LocalCluster runs P Comm instances as in-process goroutine peers,
// connected by channels instead of gRPC. It gives pkg/hashfamily,
// pkg/sortnet and pkg/eval real, concurrent, tag-correct collective
// semantics to test against without a network.
type LocalCluster struct {
	size      int
	all       *allGather
	exchanges *exchangeHub
}

// NewLocalCluster builds a cluster of size P; call Comm(rank) once per
// simulated worker goroutine.
func NewLocalCluster(size int) *LocalCluster {
	return &LocalCluster{
		size:      size,
		all:       newAllGather(size),
		exchanges: newExchangeHub(),
	}
}

// Comm returns the Comm handle for one rank in this cluster.
func (c *LocalCluster) Comm(rank int) Comm {
	return &localComm{rank: rank, size: c.size, all: c.all, exchanges: c.exchanges}
}

type localComm struct {
	rank, size int
	all        *allGather
	exchanges  *exchangeHub
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.size }

func (c *localComm) Broadcast(root int, buf []float64) ([]float64, error) {
	slots := c.all.enter(c.rank, buf)
	return slots[root], nil
}

func (c *localComm) BroadcastUint64(root int, buf []uint64) ([]uint64, error) {
	f := make([]float64, len(buf))
	for i, v := range buf {
		f[i] = float64(v)
	}
	slots := c.all.enterU64(c.rank, f)
	src := slots[root]
	out := make([]uint64, len(src))
	for i, v := range src {
		out[i] = uint64(v)
	}
	return out, nil
}

func (c *localComm) AllReduceSum(buf []float64) ([]float64, error) {
	slots := c.all.enter(c.rank, buf)
	if len(slots) == 0 {
		return nil, nil
	}
	sum := make([]float64, len(slots[0]))
	for _, s := range slots {
		for i, v := range s {
			sum[i] += v
		}
	}
	return sum, nil
}

func (c *localComm) Send(peer, tag int, data []float64) error {
	cp := make([]float64, len(data))
	copy(cp, data)
	c.exchanges.send(peer, tag, c.rank, cp)
	return nil
}

func (c *localComm) Recv(peer, tag int) ([]float64, error) {
	msg := c.exchanges.recv(c.rank, tag)
	return msg.data, nil
}

// allGather is a reusable N-party rendezvous barrier: every participant
// contributes its buffer, all participants receive every contribution,
// repeatable call after call as long as every rank calls it the same
// number of times in the same order (true for collective call sequences,
// which do not data-depend on a particular rank's values).
type allGather struct {
	mu         sync.Mutex
	cond       *sync.Cond
	n          int
	arrived    int
	generation int
	slots      [][]float64
	result     [][]float64
}

func newAllGather(n int) *allGather {
	a := &allGather{n: n, slots: make([][]float64, n)}
	a.cond = sync.NewCond(&a.mu)
	return a
}

func (a *allGather) enter(rank int, data []float64) [][]float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	gen := a.generation
	a.slots[rank] = data
	a.arrived++
	if a.arrived == a.n {
		result := make([][]float64, a.n)
		copy(result, a.slots)
		a.result = result
		a.arrived = 0
		a.generation++
		a.cond.Broadcast()
		return result
	}
	for a.generation == gen {
		a.cond.Wait()
	}
	// a.result stays this generation's snapshot until every rank,
	// including this one, has entered the next collective.
	return a.result
}

// enterU64 shares the same rendezvous machinery; collectives in this
// package are float64-based, uint64 payloads just ride through as floats.
func (a *allGather) enterU64(rank int, data []float64) [][]float64 {
	return a.enter(rank, data)
}

// exchangeHub routes pairwise tagged messages between ranks, the
// in-process analogue of MPI_Send/MPI_Recv pairs (spec §4.C).
type exchangeHub struct {
	mu    sync.Mutex
	boxes map[[2]int]chan exchangeMsg
}

type exchangeMsg struct {
	from int
	data []float64
}

func newExchangeHub() *exchangeHub {
	return &exchangeHub{boxes: make(map[[2]int]chan exchangeMsg)}
}

func (h *exchangeHub) boxFor(rank, tag int) chan exchangeMsg {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := [2]int{rank, tag}
	ch, ok := h.boxes[key]
	if !ok {
		ch = make(chan exchangeMsg, 8)
		h.boxes[key] = ch
	}
	return ch
}

func (h *exchangeHub) send(to, tag, from int, data []float64) {
	h.boxFor(to, tag) <- exchangeMsg{from: from, data: data}
}

func (h *exchangeHub) recv(me, tag int) exchangeMsg {
	return <-h.boxFor(me, tag)
}
