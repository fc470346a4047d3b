package session

import (
	"sync"

	"github.com/garyjia/dorm-print/internal/application/port"
)

// SelectionRegistry implements port.SelectionRegistry. Writes are
// last-write-wins per requester.
type SelectionRegistry struct {
	mu       sync.RWMutex
	selected map[string]string
}

// NewSelectionRegistry creates an empty registry
func NewSelectionRegistry() *SelectionRegistry {
	return &SelectionRegistry{selected: make(map[string]string)}
}

// Select records the requester's provider choice
func (r *SelectionRegistry) Select(requesterID, providerID string) {
	r.mu.Lock()
	r.selected[requesterID] = providerID
	r.mu.Unlock()
}

// Selected returns the requester's current provider choice
func (r *SelectionRegistry) Selected(requesterID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.selected[requesterID]
	return id, ok
}

// Forget drops the requester's choice
func (r *SelectionRegistry) Forget(requesterID string) {
	r.mu.Lock()
	delete(r.selected, requesterID)
	r.mu.Unlock()
}

var _ port.SelectionRegistry = (*SelectionRegistry)(nil)
