// Package events provides the serialized event-dispatch loop shared by
// Connection and Listener. Each dispatcher owns exactly one goroutine that
// drains a buffered queue of callbacks in submission order; this is what
// gives the ordering guarantees in §5 of SPEC_FULL.md (ascending sent
// refs, ready-before-received, closed-is-terminal) without putting a lock
// around the application's EventHandler itself.
//
// This replaces the teacher's goroutine-per-service isolation
// (responder/responder.go's design rationale) with goroutine-per-
// connection isolation: the unit that needs serialized delivery here is a
// Connection or a Listener, not a registered service.
package events

import "sync"

// Dispatcher runs submitted jobs on a single goroutine, in the order they
// were submitted. It is the concrete form of the "explicit runtime handle"
// redesign note in §9 of spec.md: one dispatcher per Connection/Listener,
// not one process-wide loop.
type Dispatcher struct {
	jobs   chan func()
	done   chan struct{}
	once   sync.Once
	closed bool
	mu     sync.Mutex
}

// NewDispatcher starts a dispatcher with the given queue depth. A depth of
// 0 is treated as a reasonable default.
func NewDispatcher(queueDepth int) *Dispatcher {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	d := &Dispatcher{
		jobs: make(chan func(), queueDepth),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for job := range d.jobs {
		job()
	}
}

// Submit enqueues job to run on the dispatch goroutine. It is a no-op if
// the dispatcher has already been stopped — events fired after Close are
// silently dropped, matching the invariant that nothing fires after the
// terminal Closed/Stopped event.
//
// mu is held across the send so a concurrent Stop cannot close d.jobs
// between the closed check and the send; Stop takes the same lock before
// closing the channel, so the two never interleave.
func (d *Dispatcher) Submit(job func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.jobs <- job
}

// Stop closes the queue and waits for the dispatch goroutine to drain and
// exit. Safe to call more than once.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.jobs)
		d.mu.Unlock()
	})
	<-d.done
}
