// Worker join barrier
// Collects the workers of one phase and blocks until all of them have ended,
// whether they returned or panicked.

package monitorbuf

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/multierr"
)

// ErrWorkerPanic is wrapped by every error reporting a panicking worker.
var ErrWorkerPanic = errors.New("worker panicked")

type Role string

const (
	RoleProducer Role = "producer"
	RoleConsumer Role = "consumer"
)

// WorkerPanicError describes one worker that terminated by panicking.
type WorkerPanicError struct {
	Role  Role
	ID    int
	Value any
	Stack []byte
}

func (e *WorkerPanicError) Error() string {
	return fmt.Sprintf("%s %d panicked: %v", e.Role, e.ID, e.Value)
}

func (e *WorkerPanicError) Unwrap() error {
	return ErrWorkerPanic
}

type group struct {
	mu      sync.Mutex
	done    *sync.Cond
	running int
	err     error

	onPanic func(*WorkerPanicError)
}

func newGroup(onPanic func(*WorkerPanicError)) *group {
	g := &group{onPanic: onPanic}
	g.done = sync.NewCond(&g.mu)
	return g
}

// Go starts fn in its own goroutine. A panic in fn is recovered and reported by Wait.
func (g *group) Go(role Role, id int, fn func()) {
	g.mu.Lock()
	g.running++
	g.mu.Unlock()

	go func() {
		var perr *WorkerPanicError
		defer func() {
			if r := recover(); r != nil {
				perr = &WorkerPanicError{Role: role, ID: id, Value: r, Stack: debug.Stack()}
				if g.onPanic != nil {
					g.onPanic(perr)
				}
			}
			g.finish(perr)
		}()
		fn()
	}()
}

func (g *group) finish(perr *WorkerPanicError) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if perr != nil {
		g.err = multierr.Append(g.err, perr)
	}
	g.running--
	if g.running == 0 {
		g.done.Broadcast()
	}
}

// Wait blocks until every started worker has ended and returns the combined panics, if any.
func (g *group) Wait() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.running > 0 {
		g.done.Wait()
	}
	return g.err
}
