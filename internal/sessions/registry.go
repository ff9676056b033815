// Package sessions tracks the reveal sessions currently connected to the
// server. Nothing is persisted; entries disappear when a session closes.
package sessions

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRequest  = errors.New("invalid session request")
)

// Entry is the public view of one session.
type Entry struct {
	ID        string    `json:"id"`
	Recipient string    `json:"recipient,omitempty"`
	RemoteIP  string    `json:"remote_ip"`
	Term      string    `json:"term,omitempty"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Started   time.Time `json:"started"`
	Updated   time.Time `json:"updated"`

	Screen            string  `json:"screen"`
	State             string  `json:"state"`
	Selection         string  `json:"selection"`
	ExplosionConsumed bool    `json:"explosion_consumed"`
	InFlight          bool    `json:"in_flight"`
	Theme             string  `json:"theme"`
	Track             string  `json:"track,omitempty"`
	Volume            float64 `json:"volume"`
}

// Stats are registry-wide counters.
type Stats struct {
	Active    int    `json:"active"`
	Opened    uint64 `json:"opened"`
	Revealed  uint64 `json:"revealed"`
	Completed uint64 `json:"completed"`
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	stats   Stats
	now     func() time.Time
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: map[string]Entry{}, now: func() time.Time { return time.Now().UTC() }}
}

// Open adds e. Its ID must be a UUID that is not already registered.
func (r *Registry) Open(e Entry) error {
	if _, err := uuid.Parse(e.ID); err != nil {
		return fmt.Errorf("%w: id %q: %v", ErrInvalidRequest, e.ID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[e.ID]; exists {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidRequest, e.ID)
	}
	now := r.now()
	if e.Started.IsZero() {
		e.Started = now
	}
	e.Updated = now
	r.entries[e.ID] = e
	r.stats.Opened++
	return nil
}

// Update applies fn to the entry with id. The first time an entry reports
// the explosion consumed it is counted as revealed.
func (r *Registry) Update(id string, fn func(*Entry)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	consumed := e.ExplosionConsumed
	fn(&e)
	e.ID = id
	e.Updated = r.now()
	if !consumed && e.ExplosionConsumed {
		r.stats.Revealed++
	}
	r.entries[id] = e
	return nil
}

// Close removes the entry with id.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(r.entries, id)
	r.stats.Completed++
	return nil
}

// Get returns a copy of the entry with id.
func (r *Registry) Get(id string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

// List returns every entry, oldest first.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Started.Equal(out[j].Started) {
			return out[i].ID < out[j].ID
		}
		return out[i].Started.Before(out[j].Started)
	})
	return out
}

// Stats returns the counters.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.stats
	s.Active = len(r.entries)
	return s
}
