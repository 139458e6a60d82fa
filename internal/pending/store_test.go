package pending

import (
	"strings"
	"testing"
	"time"
)

func TestUpsert_Create(t *testing.T) {
	s := NewStore()
	now := time.Now()

	id, prevID, merged := s.Upsert(42, "hello", now)
	if merged {
		t.Error("first Upsert reported merged = true")
	}
	if prevID != "" {
		t.Errorf("first Upsert prevID = %q, want empty", prevID)
	}
	if id == "" {
		t.Fatal("empty request id")
	}

	req, ok := s.Peek(42)
	if !ok {
		t.Fatal("Peek found nothing after Upsert")
	}
	if req.Text != "hello" || req.ID != id || req.Owner != 42 {
		t.Errorf("Peek = %+v, want text %q id %q owner 42", req, "hello", id)
	}
	if !req.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", req.CreatedAt, now)
	}
}

func TestUpsert_MergeRegeneratesID(t *testing.T) {
	s := NewStore()
	t0 := time.Now()
	t1 := t0.Add(10 * time.Second)

	first, _, _ := s.Upsert(42, "A", t0)
	second, prevID, merged := s.Upsert(42, "B", t1)

	if !merged {
		t.Fatal("second Upsert reported merged = false")
	}
	if prevID != first {
		t.Errorf("prevID = %q, want %q", prevID, first)
	}
	if second == first {
		t.Error("merge did not regenerate the request id")
	}

	req, ok := s.Peek(42)
	if !ok {
		t.Fatal("Peek found nothing after merge")
	}
	if want := "A" + MergeSeparator + "B"; req.Text != want {
		t.Errorf("merged text = %q, want %q", req.Text, want)
	}
	if !req.CreatedAt.Equal(t1) {
		t.Errorf("CreatedAt not reset on merge: got %v, want %v", req.CreatedAt, t1)
	}
}

// TestUpsert_FullMergeAcrossWindow verifies that three or more rapid
// messages all fold into the single pending request, in order.
func TestUpsert_FullMergeAcrossWindow(t *testing.T) {
	s := NewStore()
	now := time.Now()

	texts := []string{"one", "two", "three", "four"}
	for _, txt := range texts {
		s.Upsert(7, txt, now)
	}

	req, ok := s.Peek(7)
	if !ok {
		t.Fatal("no pending request after merges")
	}
	if want := strings.Join(texts, MergeSeparator); req.Text != want {
		t.Errorf("merged text = %q, want %q", req.Text, want)
	}
	if s.Len() != 1 {
		t.Errorf("store holds %d entries for one owner, want 1", s.Len())
	}
}

func TestTake(t *testing.T) {
	s := NewStore()
	now := time.Now()
	id, _, _ := s.Upsert(42, "hello", now)

	tests := []struct {
		name     string
		owner    int64
		id       string
		wantOK   bool
		wantKept bool // entry still present afterwards
	}{
		{"stale id leaves entry", 42, "42_0_deadbeef", false, true},
		{"wrong owner", 99, id, false, true},
		{"current id removes", 42, id, true, false},
		{"already taken", 42, id, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, ok := s.Take(tt.owner, tt.id)
			if ok != tt.wantOK {
				t.Fatalf("Take(%d, %q) ok = %v, want %v", tt.owner, tt.id, ok, tt.wantOK)
			}
			if ok && req.Text != "hello" {
				t.Errorf("taken text = %q, want %q", req.Text, "hello")
			}
			if _, kept := s.Peek(42); kept != tt.wantKept {
				t.Errorf("entry present = %v, want %v", kept, tt.wantKept)
			}
		})
	}
}

func TestClear(t *testing.T) {
	s := NewStore()
	id, _, _ := s.Upsert(42, "hello", time.Now())

	gotID, removed := s.Clear(42)
	if !removed || gotID != id {
		t.Errorf("Clear = (%q, %v), want (%q, true)", gotID, removed, id)
	}

	// Idempotent: nothing pending means not-removed, not an error.
	if _, removed := s.Clear(42); removed {
		t.Error("second Clear reported removed = true")
	}
	if _, removed := s.Clear(999); removed {
		t.Error("Clear of unknown owner reported removed = true")
	}
}

// TestOwnersIsolated verifies one owner's operations never touch another's
// entry.
func TestOwnersIsolated(t *testing.T) {
	s := NewStore()
	now := time.Now()
	idA, _, _ := s.Upsert(1, "from A", now)
	s.Upsert(2, "from B", now)

	s.Clear(2)

	req, ok := s.Peek(1)
	if !ok || req.ID != idA || req.Text != "from A" {
		t.Errorf("owner 1 entry disturbed: %+v, ok=%v", req, ok)
	}
}

func TestNewRequestID_Distinct(t *testing.T) {
	now := time.Now()
	a := newRequestID(42, now)
	b := newRequestID(42, now)
	if a == b {
		t.Errorf("same-instant ids collide: %q", a)
	}
	if !strings.HasPrefix(a, "42_") {
		t.Errorf("id %q does not start with owner prefix", a)
	}
}
