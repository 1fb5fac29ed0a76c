// Package registry correlates asynchronous provider callbacks with the
// in-process waiters that created the tasks. Callbacks for ids nobody
// is waiting on, including webhook redeliveries, are logged and dropped.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrShutdown rejects all waiters when the registry is torn down.
var ErrShutdown = errors.New("registry: shut down")

// Meta describes the waiter for logging and diagnostics.
type Meta struct {
	SegmentNumber int
	Provider      string
}

type outcome struct {
	url string
	err error
}

// Pending is a registered task awaiting its callback.
type Pending struct {
	id   string
	meta Meta
	done chan outcome
}

// Wait blocks until the task is resolved, rejected, or ctx is cancelled.
// There is no internal timeout; callers bound the wait with ctx.
func (p *Pending) Wait(ctx context.Context) (string, error) {
	select {
	case out := <-p.done:
		return out.url, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Registry maps remote task ids to pending waiters.
type Registry struct {
	mu       sync.Mutex
	pending  map[string]*Pending
	shutdown bool
}

func New() *Registry {
	return &Registry{pending: make(map[string]*Pending)}
}

// Register creates a waiter for taskID. At most one waiter may be
// pending per id; a second Register for a live id is an error.
func (r *Registry) Register(taskID string, meta Meta) (*Pending, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.shutdown {
		return nil, ErrShutdown
	}
	if _, exists := r.pending[taskID]; exists {
		return nil, fmt.Errorf("registry: task %s already pending", taskID)
	}

	p := &Pending{
		id:   taskID,
		meta: meta,
		done: make(chan outcome, 1),
	}
	r.pending[taskID] = p
	return p, nil
}

// Resolve completes the waiter for taskID with a result URL. Unknown or
// already-settled ids are ignored, so webhook redelivery is harmless.
func (r *Registry) Resolve(taskID, url string) {
	r.settle(taskID, outcome{url: url})
}

// Reject completes the waiter for taskID with an error. Unknown ids are
// ignored.
func (r *Registry) Reject(taskID string, err error) {
	r.settle(taskID, outcome{err: err})
}

func (r *Registry) settle(taskID string, out outcome) {
	r.mu.Lock()
	p, ok := r.pending[taskID]
	if ok {
		delete(r.pending, taskID)
	}
	r.mu.Unlock()

	if !ok {
		log.Printf("[Registry] ignoring callback for unknown task %s", taskID)
		return
	}
	p.done <- out
}

// PendingCount reports how many tasks are still awaiting callbacks.
func (r *Registry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Shutdown rejects every pending waiter and refuses new registrations.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[string]*Pending)
	r.shutdown = true
	r.mu.Unlock()

	for id, p := range pending {
		log.Printf("[Registry] shutdown: rejecting pending task %s (segment %d)", id, p.meta.SegmentNumber)
		p.done <- outcome{err: ErrShutdown}
	}
}
