package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
)

// DialogStore implements port.DialogStore. Dialogs are stored and returned
// by value so callers never share a draft.
type DialogStore struct {
	mu      sync.Mutex
	dialogs map[string]entity.Dialog
}

// NewDialogStore creates an empty dialog store
func NewDialogStore() *DialogStore {
	return &DialogStore{dialogs: make(map[string]entity.Dialog)}
}

// Get returns a copy of the user's pending dialog
func (s *DialogStore) Get(ctx context.Context, userID string) (*entity.Dialog, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.dialogs[userID]
	if !ok {
		return nil, false
	}
	return &d, true
}

// Put stores the dialog, replacing any pending one for the same user
func (s *DialogStore) Put(ctx context.Context, dialog *entity.Dialog) {
	s.mu.Lock()
	s.dialogs[dialog.UserID] = *dialog
	s.mu.Unlock()
}

// Clear drops the user's pending dialog
func (s *DialogStore) Clear(ctx context.Context, userID string) {
	s.mu.Lock()
	delete(s.dialogs, userID)
	s.mu.Unlock()
}

// Expire drops dialogs last updated before cutoff
func (s *DialogStore) Expire(ctx context.Context, cutoff time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []string
	for id, d := range s.dialogs {
		if d.UpdatedAt.Before(cutoff) {
			delete(s.dialogs, id)
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	return expired
}

var _ port.DialogStore = (*DialogStore)(nil)
