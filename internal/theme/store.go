package theme

import (
	"sort"
	"sync"
)

// Style variable keys published by the Store. The presentation layer reads
// them as a flat map.
const (
	VarPrimary       = "theme-primary"
	VarSecondary     = "theme-secondary"
	VarAccent        = "theme-accent"
	VarBackground    = "theme-background"
	VarText          = "theme-text"
	VarTextSecondary = "theme-text-secondary"
	VarCardBg        = "theme-card-bg"
	VarFontFamily    = "font-family"
	VarTextTransform = "text-transform"
)

// StyleVars is the flat key -> value map derived from a Descriptor.
type StyleVars map[string]string

// Vars derives the style variables for d.
func (d Descriptor) Vars() StyleVars {
	return StyleVars{
		VarPrimary:       d.Colors.Primary,
		VarSecondary:     d.Colors.Secondary,
		VarAccent:        d.Colors.Accent,
		VarBackground:    d.Colors.Background,
		VarText:          d.Colors.Text,
		VarTextSecondary: d.Colors.TextSecondary,
		VarCardBg:        d.Colors.CardBackground,
		VarFontFamily:    d.Font,
		VarTextTransform: string(d.casing()),
	}
}

// Store tracks the active descriptor of one session. Exactly one descriptor is
// current at any time, starting with the registry's neutral descriptor.
type Store struct {
	registry *Registry

	mu      sync.RWMutex
	current Descriptor
	vars    StyleVars

	subMu  sync.Mutex
	subs   map[int]func(Descriptor)
	nextID int
}

// NewStore returns a Store positioned on the registry's neutral descriptor.
func NewStore(registry *Registry) *Store {
	neutral := registry.Neutral()
	return &Store{
		registry: registry,
		current:  neutral,
		vars:     neutral.Vars(),
		subs:     map[int]func(Descriptor){},
	}
}

// Get returns the current descriptor.
func (s *Store) Get() Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// Lookup consults the backing registry without mutating the Store.
func (s *Store) Lookup(id ID) (Descriptor, bool) {
	return s.registry.Lookup(id)
}

// Set makes id current. It is a no-op returning false when id is unknown or
// already current. Descriptor and style variables are swapped together before
// Set returns; subscribers run afterwards on the calling goroutine.
func (s *Store) Set(id ID) bool {
	next, ok := s.registry.Lookup(id)
	if !ok {
		return false
	}

	s.mu.Lock()
	if s.current.ID == id {
		s.mu.Unlock()
		return false
	}
	s.current = next
	s.vars = next.Vars()
	s.mu.Unlock()

	s.notify(next)
	return true
}

// Vars returns a copy of the current style variables.
func (s *Store) Vars() StyleVars {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(StyleVars, len(s.vars))
	for k, v := range s.vars {
		out[k] = v
	}
	return out
}

// Var returns a single style variable.
func (s *Store) Var(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vars[key]
}

// Subscribe registers fn for change notifications and returns its cancel func.
func (s *Store) Subscribe(fn func(Descriptor)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(d Descriptor) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	fns := make([]func(Descriptor), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(d.clone())
	}
}
