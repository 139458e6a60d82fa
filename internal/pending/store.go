// Package pending holds at most one aggregated request per user. Successive
// messages from the same user merge into the pending request under a fresh
// id; the previous id is retired so its timer can be cancelled precisely.
package pending

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MergeSeparator is inserted between the existing text and an appended
// message so the final prompt shows where the follow-up starts.
const MergeSeparator = "\n\nFollow-up:\n"

// Request is one user's aggregated request awaiting dispatch.
type Request struct {
	Owner     int64
	ID        string
	Text      string
	CreatedAt time.Time
}

// Store maps each owner to at most one pending Request. All operations are
// atomic with respect to each other; no lock is ever held across a wait or
// an upstream call. Safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*Request
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{entries: make(map[int64]*Request)}
}

// newRequestID derives an id from the owner and creation instant, plus a
// short random suffix so merges within the same second still retire into a
// distinct id.
func newRequestID(owner int64, now time.Time) string {
	return fmt.Sprintf("%d_%d_%s", owner, now.Unix(), uuid.NewString()[:8])
}

// Upsert creates a fresh request for the owner, or merges text into the
// existing one. A merge regenerates the id, appends text behind
// MergeSeparator and resets CreatedAt. It returns the current id, the
// retired previous id ("" on create) and whether a merge happened.
//
// Retiring the old timer and installing the new one is the caller's job:
// timer lifecycle stays owned by the scheduler, and a stale fire that slips
// into the gap finds Take empty and does nothing.
func (s *Store) Upsert(owner int64, text string, now time.Time) (id, prevID string, merged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = newRequestID(owner, now)

	prev, ok := s.entries[owner]
	if !ok {
		s.entries[owner] = &Request{
			Owner:     owner,
			ID:        id,
			Text:      text,
			CreatedAt: now,
		}
		return id, "", false
	}

	prevID = prev.ID
	s.entries[owner] = &Request{
		Owner:     owner,
		ID:        id,
		Text:      prev.Text + MergeSeparator + text,
		CreatedAt: now,
	}
	return id, prevID, true
}

// Take removes and returns the owner's request iff its current id matches
// the given id. A stale id means the request was superseded by a merge (or
// cancelled); the caller must treat absence as "do not send, do not error".
func (s *Store) Take(owner int64, id string) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.entries[owner]
	if !ok || req.ID != id {
		return Request{}, false
	}
	delete(s.entries, owner)
	return *req, true
}

// Peek returns a copy of the owner's pending request without removing it.
func (s *Store) Peek(owner int64) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.entries[owner]
	if !ok {
		return Request{}, false
	}
	return *req, true
}

// Clear removes the owner's request if present and returns its id so the
// caller can cancel the matching timer. Clearing an owner with nothing
// pending is a no-op.
func (s *Store) Clear(owner int64) (id string, removed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.entries[owner]
	if !ok {
		return "", false
	}
	delete(s.entries, owner)
	return req.ID, true
}

// Len returns the number of owners with a pending request.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
