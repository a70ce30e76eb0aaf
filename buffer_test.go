package monitorbuf

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// Pop should block when the buffer is empty and unblock after a push.
func TestBufferPopBlocksWhenEmpty(t *testing.T) {
	b := NewBuffer[string]()

	done := make(chan struct{})
	var got Item[string]
	var ok bool

	go func() {
		defer close(done)
		got, ok = b.Pop()
	}()

	// Give it time to block.
	time.Sleep(50 * time.Millisecond)

	select {
	case <-done:
		t.Fatalf("Pop did not block on empty buffer")
	default:
		// good, still blocked
	}

	want := Item[string]{ProducerID: 1, Value: "x"}
	b.Push(want)

	select {
	case <-done:
		require.True(t, ok, "Pop reported a sentinel for a real item")
		assert.Equal(t, want, got)
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("blocked Pop did not complete after Push")
	}
}

func TestBufferFIFO(t *testing.T) {
	b := NewBuffer[int]()
	const n = 500 // enough to cross the compaction threshold several times

	for i := range n {
		b.Push(Item[int]{ProducerID: 1, Value: i})
	}
	require.Equal(t, n, b.Len())

	got := make([]int, 0, n)
	for range n {
		item, ok := b.Pop()
		require.True(t, ok)
		got = append(got, item.Value)
	}

	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pop order mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, b.Len())
}

func TestBufferInterleavedPushPopKeepsOrder(t *testing.T) {
	b := NewBuffer[int]()
	next := 0
	var got []int
	for round := range 100 {
		for range round%7 + 1 {
			b.Push(Item[int]{Value: next})
			next++
		}
		for range round%5 + 1 {
			if b.Len() == 0 {
				break
			}
			item, ok := b.Pop()
			require.True(t, ok)
			got = append(got, item.Value)
		}
	}
	for b.Len() > 0 {
		item, ok := b.Pop()
		require.True(t, ok)
		got = append(got, item.Value)
	}

	require.Len(t, got, next)
	for i, v := range got {
		require.Equal(t, i, v, "position %d", i)
	}
}

func TestBufferSentinelsAfterItems(t *testing.T) {
	b := NewBuffer[int]()
	b.Push(Item[int]{Value: 7})
	b.PushSentinels(2)

	item, ok := b.Pop()
	require.True(t, ok)
	assert.Equal(t, 7, item.Value)

	for range 2 {
		_, ok := b.Pop()
		assert.False(t, ok, "expected a sentinel")
	}

	assert.Equal(t, BufferStats{Pushed: 1, Popped: 1, Sentinels: 2, Depth: 0}, b.Stats())
}

func TestBufferPushSentinelsIgnoresNonPositive(t *testing.T) {
	b := NewBuffer[int]()
	b.PushSentinels(0)
	b.PushSentinels(-3)
	assert.Equal(t, BufferStats{}, b.Stats())
}

// PushSentinels must wake every parked consumer, not only one.
func TestBufferPushSentinelsWakesAllWaiters(t *testing.T) {
	b := NewBuffer[int]()
	const waiters = 5

	var wg sync.WaitGroup
	results := make(chan bool, waiters)
	for range waiters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := b.Pop()
			results <- ok
		}()
	}

	time.Sleep(50 * time.Millisecond) // let them park

	b.PushSentinels(waiters)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("not every waiter was woken by PushSentinels")
	}
	close(results)
	for ok := range results {
		assert.False(t, ok, "every waiter should have received a sentinel")
	}
	assert.Zero(t, b.Len())
}

// A single Push must hand its item to exactly one of several parked consumers.
func TestBufferPushWakesOneWaiter(t *testing.T) {
	b := NewBuffer[int]()
	const waiters = 3

	got := make(chan Item[int], waiters)
	for range waiters {
		go func() {
			item, ok := b.Pop()
			if ok {
				got <- item
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)

	b.Push(Item[int]{Value: 1})

	select {
	case item := <-got:
		assert.Equal(t, 1, item.Value)
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("no waiter received the pushed item")
	}

	select {
	case item := <-got:
		t.Fatalf("a second waiter returned %v for a single push", item)
	case <-time.After(50 * time.Millisecond):
	}

	// Release the remaining waiters.
	b.PushSentinels(waiters - 1)
}

// Concurrent producers/consumers, good for go test -race.
func TestBufferConcurrentProducersConsumers(t *testing.T) {
	b := NewBuffer[int]()

	const (
		numProducers     = 8
		numConsumers     = 8
		itemsPerProducer = 200
	)

	var producers errgroup.Group
	for p := range numProducers {
		producers.Go(func() error {
			for i := range itemsPerProducer {
				b.Push(Item[int]{ProducerID: p, Value: p*1000 + i})
			}
			return nil
		})
	}

	var mu sync.Mutex
	perProducer := make(map[int][]int)
	var consumers sync.WaitGroup
	for range numConsumers {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				item, ok := b.Pop()
				if !ok {
					return
				}
				mu.Lock()
				perProducer[item.ProducerID] = append(perProducer[item.ProducerID], item.Value)
				mu.Unlock()
			}
		}()
	}

	prodDone := make(chan error, 1)
	go func() { prodDone <- producers.Wait() }()

	select {
	case err := <-prodDone:
		require.NoError(t, err)
		b.PushSentinels(numConsumers)
	case <-time.After(5 * time.Second):
		t.Fatalf("producers did not finish in time")
	}

	done := make(chan struct{})
	go func() {
		consumers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("consumers did not finish in time after sentinels")
	}

	require.Len(t, perProducer, numProducers)
	for p, values := range perProducer {
		sort.Ints(values)
		require.Len(t, values, itemsPerProducer, "producer %d", p)
		for i, v := range values {
			require.Equal(t, p*1000+i, v)
		}
	}
	assert.Equal(t, BufferStats{
		Pushed:    numProducers * itemsPerProducer,
		Popped:    numProducers * itemsPerProducer,
		Sentinels: numConsumers,
	}, b.Stats())
}

func TestBufferDepthGauge(t *testing.T) {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "depth"})
	b := NewBuffer[int](WithDepthGauge(g))

	b.Push(Item[int]{Value: 1})
	b.Push(Item[int]{Value: 2})
	assert.Equal(t, 2.0, testutil.ToFloat64(g))

	b.PushSentinels(3)
	assert.Equal(t, 5.0, testutil.ToFloat64(g))

	b.Pop()
	assert.Equal(t, 4.0, testutil.ToFloat64(g))
}
