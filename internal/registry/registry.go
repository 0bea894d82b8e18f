package registry

import (
	"sync"
	"time"

	"github.com/coderunner/coderunner/api/internal/sandbox"
)

// Entry tracks one sandbox the control plane owns
type Entry struct {
	SandboxID    string
	UserID       string
	ProjectID    string
	Handle       sandbox.Handle
	CreatedAt    time.Time
	LastActivity time.Time
}

// Registry is the single source of truth for which sandboxes the
// control plane manages. It is shared by the deploy, discovery and
// cleanup paths and safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func New() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
	}
}

// Register adds or replaces a tracking entry for a sandbox
func (r *Registry) Register(sandboxID, userID, projectID string, handle sandbox.Handle) *Entry {
	now := time.Now()
	entry := &Entry{
		SandboxID:    sandboxID,
		UserID:       userID,
		ProjectID:    projectID,
		Handle:       handle,
		CreatedAt:    now,
		LastActivity: now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[sandboxID] = entry
	return entry
}

// Remove drops a tracking entry
func (r *Registry) Remove(sandboxID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, sandboxID)
}

// Get returns the entry for a sandbox, if tracked
func (r *Registry) Get(sandboxID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[sandboxID]
	return entry, ok
}

// Touch refreshes the last-activity timestamp for a sandbox
func (r *Registry) Touch(sandboxID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[sandboxID]; ok {
		entry.LastActivity = time.Now()
	}
}

// List returns a snapshot of all tracked entries
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, *entry)
	}
	return result
}

// ListByUser returns a snapshot of the entries owned by a user
func (r *Registry) ListByUser(userID string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Entry
	for _, entry := range r.entries {
		if entry.UserID == userID {
			result = append(result, *entry)
		}
	}
	return result
}

// CountByUser returns how many sandboxes a user currently has tracked
func (r *Registry) CountByUser(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, entry := range r.entries {
		if entry.UserID == userID {
			count++
		}
	}
	return count
}

// OldestByUser returns the user's entry with the oldest last-activity
// timestamp, or false if the user has none
func (r *Registry) OldestByUser(userID string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var oldest *Entry
	for _, entry := range r.entries {
		if entry.UserID != userID {
			continue
		}
		if oldest == nil || entry.LastActivity.Before(oldest.LastActivity) {
			oldest = entry
		}
	}
	if oldest == nil {
		return Entry{}, false
	}
	return *oldest, true
}

// Len returns the number of tracked sandboxes
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
