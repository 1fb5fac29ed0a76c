package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/storyforge/api/internal/model"
)

// baseRun is the bookkeeping shared by every long-running pipeline.
type baseRun struct {
	id          string
	status      model.RunStatus
	startedAt   time.Time
	completedAt time.Time
	errMsg      string
	mu          sync.Mutex
}

func finishRun(r *baseRun, status model.RunStatus) {
	r.mu.Lock()
	r.status = status
	r.completedAt = time.Now()
	r.mu.Unlock()
}

func failRun(r *baseRun, msg string) {
	r.mu.Lock()
	r.status = model.RunFailed
	r.errMsg = msg
	r.completedAt = time.Now()
	r.mu.Unlock()
}

// runStore is a concurrency-safe id-to-run map. Runs are kept for the
// process lifetime; there is no persistence.
type runStore[T any] struct {
	mu   sync.RWMutex
	runs map[string]T
}

func newRunStore[T any]() *runStore[T] {
	return &runStore[T]{runs: make(map[string]T)}
}

func (s *runStore[T]) put(id string, run T) {
	s.mu.Lock()
	s.runs[id] = run
	s.mu.Unlock()
}

func (s *runStore[T]) get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	return run, ok
}

// atomicCounter counts completions across worker lanes.
type atomicCounter struct {
	n int64
}

func (c *atomicCounter) inc() int {
	return int(atomic.AddInt64(&c.n, 1))
}
