// Package tactile launches interpreter processes without waiting for them.
//
// Submit starts a process and returns a Handle at once. Output is relayed as
// Events in arrival order per stream, followed by exactly one exit event.
// A run cannot be cancelled or timed out once submitted.
package tactile

import (
	"context"
	"sync"
)

// Runner is the process runner consumed by the orchestration layer.
type Runner interface {
	// Submit starts cmd and returns without waiting for it to finish.
	// An error means the process was never started.
	Submit(cmd Command) (*Handle, error)

	Capabilities() RunnerCapabilities
}

// Handle tracks one submitted run.
type Handle struct {
	ID      string
	Command Command

	done   chan struct{}
	result *ExecutionResult

	log       eventLog
	eventsOne sync.Once
	events    chan Event
}

func newHandle(id string, cmd Command) *Handle {
	h := &Handle{ID: id, Command: cmd, done: make(chan struct{})}
	h.log.cond = sync.NewCond(&h.log.mu)
	return h
}

// Done is closed after the process exited and all output was relayed.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Result returns the run summary, or nil while the run is in flight.
func (h *Handle) Result() *ExecutionResult {
	select {
	case <-h.done:
		return h.result
	default:
		return nil
	}
}

// Wait blocks until the run finishes or ctx is done. Returning early does
// not stop the process.
func (h *Handle) Wait(ctx context.Context) (*ExecutionResult, error) {
	select {
	case <-h.done:
		return h.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Events returns the run's event stream. Every call returns the same
// channel. Events emitted before the first call are replayed, so a late
// subscriber misses nothing; the channel closes after the exit event.
// A subscriber must drain the channel.
func (h *Handle) Events() <-chan Event {
	h.eventsOne.Do(func() {
		h.events = make(chan Event)
		go h.log.forward(h.events)
	})
	return h.events
}

// finish records the result and releases waiters. Called once.
func (h *Handle) finish(res *ExecutionResult) {
	h.result = res
	h.log.close()
	close(h.done)
}

// eventLog stores a run's events so that subscribing never blocks the
// output pumps, whether or not anyone reads.
type eventLog struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []Event
	closed bool
}

func (l *eventLog) append(ev Event) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	l.cond.Broadcast()
}

func (l *eventLog) close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cond.Broadcast()
}

func (l *eventLog) forward(ch chan<- Event) {
	defer close(ch)
	for i := 0; ; i++ {
		l.mu.Lock()
		for i >= len(l.events) && !l.closed {
			l.cond.Wait()
		}
		if i >= len(l.events) {
			l.mu.Unlock()
			return
		}
		ev := l.events[i]
		l.mu.Unlock()
		ch <- ev
	}
}
