// Package audio owns the background audio channel of a reveal session: one
// current voice, at most one outgoing voice while it fades, and linear volume
// ramps stepped on the session frame clock.
package audio

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"reveal-terminal/internal/frameclock"
)

const (
	// NominalVolume is the level of both the ambient and the theme tracks.
	NominalVolume = 0.4

	AmbientFadeOut = 1200 * time.Millisecond
	ThemeFadeIn    = 1500 * time.Millisecond
	SwapFadeOut    = 500 * time.Millisecond

	rampStep = 50 * time.Millisecond
)

type voice struct {
	handle   Handle
	ramp     frameclock.Timer
	released bool
}

func (v *voice) audible() bool {
	return !v.released && v.handle.Playing() && v.handle.Volume() > 0
}

// Controller manages the single audio channel. All methods must be called from
// the goroutine that advances the clock.
type Controller struct {
	clock   frameclock.Clock
	backend Backend
	ambient TrackRef
	logger  *log.Logger

	current  *voice
	outgoing *voice
}

// NewController builds a controller that plays ambient as its neutral track.
func NewController(clock frameclock.Clock, backend Backend, ambient TrackRef, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{clock: clock, backend: backend, ambient: ambient, logger: logger}
}

// StartAmbient plays the neutral track at NominalVolume unless a voice is
// already playing. A blocked start is logged and returned; the channel is left
// without a current voice.
func (c *Controller) StartAmbient() error {
	if c.current != nil && c.current.handle.Playing() {
		return nil
	}
	if c.current != nil {
		c.discard(c.current)
		c.current = nil
	}

	v, err := c.open(c.ambient)
	if err != nil {
		return err
	}
	v.handle.SetVolume(NominalVolume)
	if err := v.handle.Play(); err != nil {
		c.discard(v)
		c.logger.Warn("ambient playback blocked", "event", "playback_blocked", "track", c.ambient, "err", err)
		return fmt.Errorf("start ambient: %w", err)
	}
	c.current = v
	c.logger.Debug("ambient started", "event", "audio_start", "track", c.ambient)
	return nil
}

// FadeOutCurrent ramps the current voice to silence over d, then pauses and
// releases it. Without a playing current voice it does nothing; a voice that
// is already fading out is never released twice.
func (c *Controller) FadeOutCurrent(d time.Duration) {
	v := c.current
	if v == nil || !v.handle.Playing() {
		return
	}
	c.current = nil
	c.retire(v, d)
}

// FadeInNew opens track at volume 0, plays it and ramps to target over d. A
// voice that was still current is retired with SwapFadeOut first. When play
// is rejected the failure is logged and returned and no voice is current.
func (c *Controller) FadeInNew(track TrackRef, d time.Duration, target float64) error {
	if prev := c.current; prev != nil {
		c.current = nil
		c.retire(prev, SwapFadeOut)
	}

	v, err := c.open(track)
	if err != nil {
		return err
	}
	v.handle.SetVolume(0)
	if err := v.handle.Play(); err != nil {
		c.discard(v)
		c.logger.Warn("theme playback blocked", "event", "playback_blocked", "track", track, "err", err)
		return fmt.Errorf("fade in %s: %w", track, err)
	}
	c.current = v
	c.ramp(v, clamp01(target), d, nil)
	c.logger.Debug("track fading in", "event", "audio_fade_in", "track", track, "target", target, "duration", d)
	return nil
}

// SwapInstant fades the current voice out over SwapFadeOut while the new track
// fades in over ThemeFadeIn. Both ramps run at the same time so there is no
// silent gap between them.
func (c *Controller) SwapInstant(track TrackRef, target float64) error {
	c.FadeOutCurrent(SwapFadeOut)
	return c.FadeInNew(track, ThemeFadeIn, target)
}

// Playing reports whether track is the current voice and is playing.
func (c *Controller) Playing(track TrackRef) bool {
	v := c.current
	return v != nil && !v.released && v.handle.Track() == track && v.handle.Playing()
}

// Teardown releases every voice immediately.
func (c *Controller) Teardown() {
	if c.current != nil {
		c.discard(c.current)
		c.current = nil
	}
	if c.outgoing != nil {
		c.discard(c.outgoing)
		c.outgoing = nil
	}
}

// Voice is a point-in-time view of one voice.
type Voice struct {
	Track   TrackRef
	Volume  float64
	Playing bool
}

// Status reports the current and outgoing voices.
type Status struct {
	Current  *Voice
	Outgoing *Voice
}

// Audible counts voices with non-zero volume.
func (s Status) Audible() int {
	n := 0
	for _, v := range []*Voice{s.Current, s.Outgoing} {
		if v != nil && v.Playing && v.Volume > 0 {
			n++
		}
	}
	return n
}

// Status snapshots the channel for presentation.
func (c *Controller) Status() Status {
	return Status{Current: snapshot(c.current), Outgoing: snapshot(c.outgoing)}
}

func snapshot(v *voice) *Voice {
	if v == nil || v.released {
		return nil
	}
	return &Voice{Track: v.handle.Track(), Volume: v.handle.Volume(), Playing: v.handle.Playing()}
}

func (c *Controller) open(track TrackRef) (*voice, error) {
	h, err := c.backend.Open(track)
	if err != nil {
		c.logger.Warn("audio open failed", "event", "audio_open_failed", "track", track, "err", err)
		return nil, fmt.Errorf("open %s: %w", track, err)
	}
	return &voice{handle: h}, nil
}

// retire moves v into the outgoing slot and fades it to silence. An older
// outgoing voice is discarded at once so at most one voice is ever fading out.
func (c *Controller) retire(v *voice, d time.Duration) {
	if prev := c.outgoing; prev != nil && prev != v {
		c.discard(prev)
	}
	c.outgoing = v
	c.ramp(v, 0, d, func() {
		c.discard(v)
		if c.outgoing == v {
			c.outgoing = nil
		}
	})
}

// discard pauses and releases v exactly once.
func (c *Controller) discard(v *voice) {
	if v.released {
		return
	}
	if v.ramp != nil {
		v.ramp.Stop()
		v.ramp = nil
	}
	v.handle.SetVolume(0)
	v.handle.Pause()
	v.handle.Release()
	v.released = true
}

// ramp linearly moves v's volume to target over d. Each voice has at most one
// ramp; starting another stops the previous one from its current level.
func (c *Controller) ramp(v *voice, target float64, d time.Duration, done func()) {
	if v.ramp != nil {
		v.ramp.Stop()
		v.ramp = nil
	}
	from := v.handle.Volume()
	start := c.clock.Now()
	if d <= 0 {
		v.handle.SetVolume(target)
		if done != nil {
			done()
		}
		return
	}

	var step func()
	step = func() {
		v.ramp = nil
		if v.released {
			return
		}
		frac := float64(c.clock.Now().Sub(start)) / float64(d)
		if frac >= 1 {
			v.handle.SetVolume(target)
			if done != nil {
				done()
			}
			return
		}
		v.handle.SetVolume(from + (target-from)*frac)
		v.ramp = c.clock.After(rampStep, step)
	}
	v.ramp = c.clock.After(rampStep, step)
}
