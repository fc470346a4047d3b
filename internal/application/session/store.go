// Package session keeps the in-memory per-requester order sessions, the
// requester-to-provider selection map and pending chat dialogs.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
)

// slot owns one requester's session. Its mutex serializes updates for that
// requester only.
type slot struct {
	mu      sync.Mutex
	session *entity.Session
	refs    int
}

// MemoryStore implements port.SessionStore
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string]*slot
	now   func() time.Time
}

// NewMemoryStore creates an empty session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots: make(map[string]*slot),
		now:   time.Now,
	}
}

// acquire returns the slot for a requester, creating it, and pins it against removal
func (s *MemoryStore) acquire(requesterID string) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[requesterID]
	if !ok {
		sl = &slot{}
		s.slots[requesterID] = sl
	}
	sl.refs++
	return sl
}

// release unpins a slot and drops it once it is empty and unused
func (s *MemoryStore) release(requesterID string, sl *slot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl.refs--
	if sl.refs == 0 && sl.session == nil {
		delete(s.slots, requesterID)
	}
}

// Get returns a copy of the requester's session
func (s *MemoryStore) Get(ctx context.Context, requesterID string) (*entity.Session, bool) {
	sl := s.acquire(requesterID)
	defer s.release(requesterID, sl)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.session == nil {
		return nil, false
	}
	return sl.session.Clone(), true
}

// Update runs fn with exclusive access to the requester's session
func (s *MemoryStore) Update(ctx context.Context, requesterID string, fn func(*entity.Session) (*entity.Session, error)) (*entity.Session, error) {
	sl := s.acquire(requesterID)
	defer s.release(requesterID, sl)

	sl.mu.Lock()
	defer sl.mu.Unlock()

	next, err := fn(sl.session.Clone())
	if err != nil {
		return nil, err
	}
	if next == nil {
		sl.session = nil
		return nil, nil
	}

	next.Touch(s.now())
	sl.session = next.Clone()
	return next, nil
}

// Clear removes the requester's session
func (s *MemoryStore) Clear(ctx context.Context, requesterID string) {
	sl := s.acquire(requesterID)
	defer s.release(requesterID, sl)

	sl.mu.Lock()
	sl.session = nil
	sl.mu.Unlock()
}

// Snapshot returns copies of all live sessions ordered by requester
func (s *MemoryStore) Snapshot(ctx context.Context) []*entity.Session {
	s.mu.Lock()
	slots := make([]*slot, 0, len(s.slots))
	for _, sl := range s.slots {
		slots = append(slots, sl)
	}
	s.mu.Unlock()

	out := make([]*entity.Session, 0, len(slots))
	for _, sl := range slots {
		sl.mu.Lock()
		if sl.session != nil {
			out = append(out, sl.session.Clone())
		}
		sl.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].RequesterID < out[j].RequesterID })
	return out
}

var _ port.SessionStore = (*MemoryStore)(nil)
