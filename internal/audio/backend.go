package audio

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrPlaybackBlocked is returned when the runtime refuses to start playback.
	ErrPlaybackBlocked = errors.New("audio playback blocked")
	// ErrHandleReleased is returned when a discarded handle is asked to play.
	ErrHandleReleased = errors.New("audio handle released")
)

// TrackRef identifies a track understood by a Backend.
type TrackRef string

// Handle is one playable resource bound to a single track.
type Handle interface {
	Track() TrackRef
	Play() error
	Pause()
	SetVolume(v float64)
	Volume() float64
	Playing() bool
	// Release frees the handle. A released handle never plays again.
	Release()
}

// Backend opens handles for tracks.
type Backend interface {
	Open(track TrackRef) (Handle, error)
}

// MemoryBackend is a virtual mixer. Handles track volume and play state in
// memory; the terminal UI renders them as a now-playing line. With Block set
// every Play call fails with ErrPlaybackBlocked, which is how a muted session
// (or a client that cannot receive audio) behaves.
type MemoryBackend struct {
	Block bool

	history bool
	mu      sync.Mutex
	opened  []*MemoryHandle
}

// MemoryOption configures a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithHistory keeps every opened handle so Opened can list them.
func WithHistory() MemoryOption {
	return func(b *MemoryBackend) { b.history = true }
}

// NewMemoryBackend returns a backend whose handles play unless block is set.
func NewMemoryBackend(block bool, opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{Block: block}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open implements Backend.
func (b *MemoryBackend) Open(track TrackRef) (Handle, error) {
	if track == "" {
		return nil, fmt.Errorf("open track: empty track reference")
	}
	h := &MemoryHandle{track: track, blocked: b.Block}
	if b.history {
		b.mu.Lock()
		b.opened = append(b.opened, h)
		b.mu.Unlock()
	}
	return h, nil
}

// Opened lists every handle opened so far, oldest first. It is empty unless
// the backend was built WithHistory.
func (b *MemoryBackend) Opened() []*MemoryHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*MemoryHandle(nil), b.opened...)
}

// MemoryHandle is the Handle produced by MemoryBackend.
type MemoryHandle struct {
	track   TrackRef
	blocked bool

	mu       sync.Mutex
	volume   float64
	playing  bool
	released bool
}

func (h *MemoryHandle) Track() TrackRef { return h.track }

func (h *MemoryHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrHandleReleased
	}
	if h.blocked {
		return fmt.Errorf("%w: %s", ErrPlaybackBlocked, h.track)
	}
	h.playing = true
	return nil
}

func (h *MemoryHandle) Pause() {
	h.mu.Lock()
	h.playing = false
	h.mu.Unlock()
}

func (h *MemoryHandle) SetVolume(v float64) {
	h.mu.Lock()
	h.volume = clamp01(v)
	h.mu.Unlock()
}

func (h *MemoryHandle) Volume() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume
}

func (h *MemoryHandle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *MemoryHandle) Release() {
	h.mu.Lock()
	h.playing = false
	h.released = true
	h.mu.Unlock()
}

// Released reports whether Release was called.
func (h *MemoryHandle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
