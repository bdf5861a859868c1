package ring

import "sync"

// vectorInbox routes incoming Vector messages to the waiting Recv/AllReduce
// call by tag, mirroring pkg/collective's in-process exchangeHub but over
// the wire: each tag gets its own buffered channel, created lazily.
type vectorInbox struct {
	mu    sync.Mutex
	boxes map[int32]chan []float64
}

func newVectorInbox() *vectorInbox {
	return &vectorInbox{boxes: make(map[int32]chan []float64)}
}

func (b *vectorInbox) boxFor(tag int32) chan []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.boxes[tag]
	if !ok {
		ch = make(chan []float64, 8)
		b.boxes[tag] = ch
	}
	return ch
}

func (b *vectorInbox) push(tag int32, data []float64) { b.boxFor(tag) <- data }
func (b *vectorInbox) pop(tag int32) []float64         { return <-b.boxFor(tag) }

// uint64Inbox is vectorInbox's counterpart for BroadcastUint64 payloads.
type uint64Inbox struct {
	mu    sync.Mutex
	boxes map[int32]chan []uint64
}

func newUint64Inbox() *uint64Inbox {
	return &uint64Inbox{boxes: make(map[int32]chan []uint64)}
}

func (b *uint64Inbox) boxFor(tag int32) chan []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.boxes[tag]
	if !ok {
		ch = make(chan []uint64, 8)
		b.boxes[tag] = ch
	}
	return ch
}

func (b *uint64Inbox) push(tag int32, data []uint64) { b.boxFor(tag) <- data }
func (b *uint64Inbox) pop(tag int32) []uint64         { return <-b.boxFor(tag) }
