package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitForCount(t *testing.T, n *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n.Load() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("count = %d, want %d", n.Load(), want)
}

func TestSchedule_FiresOnce(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("r1", 10*time.Millisecond, func(string) { fired.Add(1) })

	waitForCount(t, &fired, 1)

	// Give a stray duplicate time to show up.
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d after fire, want 0", s.Pending())
	}
}

func TestCancel_BeforeFire(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("r1", 50*time.Millisecond, func(string) { fired.Add(1) })

	if !s.Cancel("r1") {
		t.Fatal("Cancel returned false for a pending timer")
	}

	time.Sleep(100 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("cancelled timer fired %d times", got)
	}
}

func TestCancel_AfterFireIsNoop(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("r1", 5*time.Millisecond, func(string) { fired.Add(1) })
	waitForCount(t, &fired, 1)

	if s.Cancel("r1") {
		t.Error("Cancel returned true after the timer already fired")
	}
}

func TestCancel_UnknownID(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	if s.Cancel("nope") {
		t.Error("Cancel returned true for an unknown id")
	}
}

// TestSchedule_ReplaceSameID verifies rescheduling under the same id
// retires the earlier timer so the callback runs exactly once.
func TestSchedule_ReplaceSameID(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var first, second atomic.Int32
	s.Schedule("r1", 30*time.Millisecond, func(string) { first.Add(1) })
	s.Schedule("r1", 10*time.Millisecond, func(string) { second.Add(1) })

	waitForCount(t, &second, 1)
	time.Sleep(60 * time.Millisecond)

	if got := first.Load(); got != 0 {
		t.Errorf("replaced timer fired %d times, want 0", got)
	}
	if got := second.Load(); got != 1 {
		t.Errorf("replacement fired %d times, want 1", got)
	}
}

func TestStop_CancelsEverything(t *testing.T) {
	s := NewScheduler()

	var fired atomic.Int32
	for _, id := range []string{"a", "b", "c"} {
		s.Schedule(id, 30*time.Millisecond, func(string) { fired.Add(1) })
	}
	if s.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", s.Pending())
	}

	s.Stop()

	time.Sleep(80 * time.Millisecond)
	if got := fired.Load(); got != 0 {
		t.Errorf("%d timers fired after Stop", got)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d after Stop, want 0", s.Pending())
	}
}

// TestFire_RemovedBeforeCallback verifies the handle is gone by the time the
// callback runs, so the callback itself can reschedule the same id.
func TestFire_RemovedBeforeCallback(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	pending := make(chan int, 1)
	s.Schedule("r1", 5*time.Millisecond, func(string) {
		pending <- s.Pending()
	})

	select {
	case n := <-pending:
		if n != 0 {
			t.Errorf("Pending() = %d inside callback, want 0", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("callback never ran")
	}
}
