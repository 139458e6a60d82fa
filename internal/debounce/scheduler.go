// Package debounce owns the quiet-period timers, one per request id.
// A handle moves Scheduled → Fired or Scheduled → Cancelled, never both:
// the handle is claimed under the scheduler lock before onFire runs, and
// Cancel removes it before the timer can claim it.
package debounce

import (
	"sync"
	"time"
)

type handle struct {
	timer *time.Timer
}

// Scheduler tracks one cancellable delayed task per request id.
// Safe for concurrent use.
type Scheduler struct {
	mu      sync.Mutex
	handles map[string]*handle
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{handles: make(map[string]*handle)}
}

// Schedule starts a delayed task for the given request id. When the delay
// elapses without cancellation, onFire(id) runs exactly once on its own
// goroutine; the handle self-retires first. Scheduling an id that already
// has a handle replaces it and the previous task never fires.
func (s *Scheduler) Schedule(id string, delay time.Duration, onFire func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.handles[id]; ok {
		prev.timer.Stop()
	}

	h := &handle{}
	h.timer = time.AfterFunc(delay, func() {
		// Claim the handle before firing. If Cancel (or a replacement) got
		// the lock first, this handle is no longer installed and the fire
		// was already decided against.
		s.mu.Lock()
		live := s.handles[id] == h
		if live {
			delete(s.handles, id)
		}
		s.mu.Unlock()

		if live {
			onFire(id)
		}
	})
	s.handles[id] = h
}

// Cancel stops and discards the timer for the given id. Cancelling an
// unknown or already-fired id is a no-op, never an error. Returns whether a
// live handle was cancelled.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[id]
	if !ok {
		return false
	}
	h.timer.Stop()
	delete(s.handles, id)
	return true
}

// Pending returns the number of live handles.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Stop cancels every live handle. Used at shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, h := range s.handles {
		h.timer.Stop()
		delete(s.handles, id)
	}
}
