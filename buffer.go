// Shared Buffer
// Unbounded FIFO guarded by one mutex, with a condition variable signalling
// "queue non-empty". Shutdown is delivered as sentinel entries, one per consumer.

package monitorbuf

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Item is one unit of work pushed by a producer.
type Item[V any] struct {
	ProducerID int
	Value      V
}

// entry is either an Item or a shutdown marker. The marker never shares the
// payload domain so no value of V can be mistaken for it.
type entry[V any] struct {
	item Item[V]
	stop bool
}

// BufferStats is a point-in-time view of the buffer counters.
type BufferStats struct {
	Pushed    int // items accepted through Push
	Popped    int // items handed out by Pop, sentinels excluded
	Sentinels int // sentinels ever enqueued
	Depth     int // entries currently queued, sentinels included
}

// Buffer is an unbounded FIFO shared by producers and consumers. Every access holds mu.
type Buffer[V any] struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	queue    []entry[V]
	head     int

	pushed    int
	popped    int
	sentinels int

	depth prometheus.Gauge
}

type bufferConfig struct {
	depth prometheus.Gauge
}

// BufferOption configures a Buffer at construction.
type BufferOption func(*bufferConfig)

// WithDepthGauge exports the queue depth after every mutation.
func WithDepthGauge(g prometheus.Gauge) BufferOption {
	return func(c *bufferConfig) {
		c.depth = g
	}
}

// Create a new empty buffer
func NewBuffer[V any](opts ...BufferOption) *Buffer[V] {
	var cfg bufferConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	b := &Buffer[V]{depth: cfg.depth}
	b.notEmpty = sync.NewCond(&b.mu)
	return b
}

// Append item to the tail and wake one waiting consumer.
// Never blocks beyond the critical section.
func (b *Buffer[V]) Push(item Item[V]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.queue = append(b.queue, entry[V]{item: item})
	b.pushed++
	b.observeDepth()

	b.notEmpty.Signal()
}

// Remove and return the oldest entry, blocking while the queue is empty.
// ok is false when the entry was a sentinel; the caller must stop popping.
func (b *Buffer[V]) Pop() (item Item[V], ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.size() == 0 {
		b.notEmpty.Wait() // woken does not mean non-empty, re-check
	}

	e := b.queue[b.head]
	b.queue[b.head] = entry[V]{}
	b.head++
	b.compact()
	b.observeDepth()

	if e.stop {
		return Item[V]{}, false
	}
	b.popped++
	return e.item, true
}

// Enqueue n sentinels in one critical section and wake every waiter.
// Broadcast is required: several consumers may be parked and each needs its own sentinel.
func (b *Buffer[V]) PushSentinels(n int) {
	if n <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for range n {
		b.queue = append(b.queue, entry[V]{stop: true})
	}
	b.sentinels += n
	b.observeDepth()

	b.notEmpty.Broadcast()
}

// Return the number of queued entries, sentinels included
func (b *Buffer[V]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size()
}

// Stats returns a snapshot of the buffer counters.
func (b *Buffer[V]) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Pushed:    b.pushed,
		Popped:    b.popped,
		Sentinels: b.sentinels,
		Depth:     b.size(),
	}
}

// size and the helpers below require b.mu.
func (b *Buffer[V]) size() int {
	return len(b.queue) - b.head
}

// compact drops the consumed prefix once it is at least half of the backing array.
func (b *Buffer[V]) compact() {
	if b.head == len(b.queue) {
		b.queue = b.queue[:0]
		b.head = 0
		return
	}
	if b.head >= 64 && b.head*2 >= len(b.queue) {
		n := copy(b.queue, b.queue[b.head:])
		clear(b.queue[n:])
		b.queue = b.queue[:n]
		b.head = 0
	}
}

func (b *Buffer[V]) observeDepth() {
	if b.depth != nil {
		b.depth.Set(float64(b.size()))
	}
}
