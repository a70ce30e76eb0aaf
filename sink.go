package monitorbuf

import (
	"fmt"
	"io"
	"math"
	"sync"
)

// Sink is where consumers hand popped items. Errors are local to the consumer:
// they are logged and counted, and the consumer moves on to the next item.
type Sink[V any] interface {
	Process(consumerID int, item Item[V]) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc[V any] func(consumerID int, item Item[V]) error

func (f SinkFunc[V]) Process(consumerID int, item Item[V]) error {
	return f(consumerID, item)
}

// WriterSink writes one line per item. Lines from different consumers never interleave.
type WriterSink[V any] struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink[V any](w io.Writer) *WriterSink[V] {
	return &WriterSink[V]{w: w}
}

func (s *WriterSink[V]) Process(consumerID int, item Item[V]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "consumer %d consumed %v (producer %d)\n", consumerID, item.Value, item.ProducerID)
	return err
}

// Record is one processed item as seen by a RecordingSink.
type Record[V any] struct {
	ConsumerID int
	Item       Item[V]
}

// RecordingSink keeps every processed item in arrival order.
type RecordingSink[V any] struct {
	mu      sync.Mutex
	records []Record[V]
}

func (s *RecordingSink[V]) Process(consumerID int, item Item[V]) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, Record[V]{ConsumerID: consumerID, Item: item})
	return nil
}

// Records returns a copy of everything processed so far.
func (s *RecordingSink[V]) Records() []Record[V] {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record[V], len(s.records))
	copy(out, s.records)
	return out
}

// Values returns the processed payloads in arrival order.
func (s *RecordingSink[V]) Values() []V {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]V, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Item.Value)
	}
	return out
}

// Integer is the payload constraint for BusyWorkSink.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// BusyWorkSink burns Value square roots of CPU per item before delegating to Next.
// It stands in for real per-item work when measuring contention.
type BusyWorkSink[V Integer] struct {
	Next Sink[V]
}

func (s BusyWorkSink[V]) Process(consumerID int, item Item[V]) error {
	var acc float64
	for i := V(0); i < item.Value; i++ {
		acc += math.Sqrt(float64(i))
	}
	_ = acc
	return s.Next.Process(consumerID, item)
}
