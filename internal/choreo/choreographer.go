// Package choreo is the session state machine that binds the intro, the
// one-shot explosion reveal and later crossfade reswitches to the theme store,
// the audio channel and the transition sequencer.
//
// It is the only writer of the theme store and the audio channel. All methods
// run on the session's clock goroutine.
package choreo

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"reveal-terminal/internal/audio"
	"reveal-terminal/internal/sequencer"
	"reveal-terminal/internal/theme"
)

// AudioChannel is the subset of the audio controller the choreographer drives.
type AudioChannel interface {
	StartAmbient() error
	FadeOutCurrent(d time.Duration)
	FadeInNew(track audio.TrackRef, d time.Duration, target float64) error
	SwapInstant(track audio.TrackRef, target float64) error
	Playing(track audio.TrackRef) bool
}

// ThemeStore is the subset of the theme store the choreographer drives.
type ThemeStore interface {
	Get() theme.Descriptor
	Set(id theme.ID) bool
	Lookup(id theme.ID) (theme.Descriptor, bool)
}

// Runner starts transition runs.
type Runner interface {
	Run(mode sequencer.Mode, cb sequencer.Callbacks) (*sequencer.Run, error)
	InFlight() bool
}

// Hooks lets the presentation layer follow the session. Any may be nil.
type Hooks struct {
	OnStateChange func(from, to State)
	// OnPhase forwards sequencer phase changes (overlay mount/unmount).
	OnPhase func(mode sequencer.Mode, phase sequencer.Phase)
	// OnReveal fires when themed content for sel is authorized and should
	// play its entrance animation.
	OnReveal func(sel Selection)
}

// Config wires a Choreographer.
type Config struct {
	Themes    ThemeStore
	Audio     AudioChannel
	Sequencer Runner
	// Options maps each selectable option to a theme id.
	Options map[Selection]theme.ID
	Hooks   Hooks
	Logger  *log.Logger
}

// Choreographer is the session state machine.
type Choreographer struct {
	themes  ThemeStore
	audio   AudioChannel
	runner  Runner
	options map[Selection]theme.ID
	hooks   Hooks
	logger  *log.Logger

	state          State
	session        Session
	from, to       Selection
	visible        Selection
	contentVisible bool
	run            *sequencer.Run
	closed         bool
}

// New returns a Choreographer in StateIntro.
func New(cfg Config) (*Choreographer, error) {
	if cfg.Themes == nil || cfg.Audio == nil || cfg.Sequencer == nil {
		return nil, errors.New("choreo: themes, audio and sequencer are required")
	}
	for _, sel := range []Selection{SelectionA, SelectionB} {
		if cfg.Options[sel] == "" {
			return nil, fmt.Errorf("choreo: no theme configured for option %s", sel)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	options := map[Selection]theme.ID{
		SelectionA: cfg.Options[SelectionA],
		SelectionB: cfg.Options[SelectionB],
	}
	return &Choreographer{
		themes:  cfg.Themes,
		audio:   cfg.Audio,
		runner:  cfg.Sequencer,
		options: options,
		hooks:   cfg.Hooks,
		logger:  logger,
		state:   StateIntro,
	}, nil
}

// State reports the current state.
func (c *Choreographer) State() State { return c.state }

// Snapshot returns the presentation view of the session.
func (c *Choreographer) Snapshot() Snapshot {
	s := Snapshot{
		State:          c.state,
		Session:        c.session,
		Visible:        c.visible,
		ContentVisible: c.contentVisible,
	}
	if c.state == StateTransitioningReswitch {
		s.From, s.To = c.from, c.to
	}
	return s
}

// Run returns the in-flight transition run, if any.
func (c *Choreographer) Run() *sequencer.Run { return c.run }

// DismissIntro moves Intro to Neutral and starts the ambient track. A blocked
// ambient start is logged and the session continues silently. Reports whether
// the transition happened.
func (c *Choreographer) DismissIntro() bool {
	if c.closed || c.state != StateIntro {
		return false
	}
	c.session.IntroDismissed = true
	c.setState(StateNeutral)
	if err := c.audio.StartAmbient(); err != nil {
		c.logger.Warn("continuing without ambient audio", "event", "ambient_degraded", "err", err)
	}
	return true
}

// Select handles a "selection requested" input.
func (c *Choreographer) Select(sel Selection) Outcome {
	if c.closed || (sel != SelectionA && sel != SelectionB) {
		return OutcomeIgnored
	}
	if c.state == StateIntro {
		return OutcomeIgnored
	}
	if sel == c.session.Selection {
		return OutcomeNoop
	}
	if c.session.InFlight || c.runner.InFlight() {
		c.logger.Debug("selection ignored during transition", "event", "selection_rejected", "selection", sel, "state", c.state)
		return OutcomeRejected
	}

	if c.state == StateNeutral && c.session.Selection == SelectionNone && !c.session.ExplosionConsumed {
		return c.explode(sel)
	}
	return c.reswitch(c.session.Selection, sel)
}

// ResetToNeutral cancels any in-flight transition and returns the session to
// the neutral selector with no selection. The explosion guard is kept, so the
// next selection takes the crossfade path.
func (c *Choreographer) ResetToNeutral() bool {
	if c.closed || c.state == StateIntro {
		return false
	}
	if c.run != nil {
		c.run.Cancel()
		c.run = nil
	}
	c.session.InFlight = false
	c.session.Selection = SelectionNone
	c.from, c.to = SelectionNone, SelectionNone
	c.visible = SelectionNone
	c.contentVisible = false
	c.setState(StateNeutral)
	c.logger.Debug("session reset to neutral", "event", "reset", "explosion_consumed", c.session.ExplosionConsumed)
	return true
}

// Teardown cancels any in-flight transition. The session accepts no further
// input afterwards.
func (c *Choreographer) Teardown() {
	if c.closed {
		return
	}
	c.closed = true
	if c.run != nil {
		c.run.Cancel()
		c.run = nil
	}
	c.session.InFlight = false
}

func (c *Choreographer) explode(sel Selection) Outcome {
	target, known := c.resolve(sel)

	c.audio.FadeOutCurrent(audio.AmbientFadeOut)
	if known {
		c.themes.Set(target.ID)
	}
	c.session.Selection = sel
	c.session.ExplosionConsumed = true
	c.session.InFlight = true
	c.visible = SelectionNone
	c.contentVisible = false
	c.setState(StateTransitioningFirst)

	run, err := c.runner.Run(sequencer.ModeExplosion, sequencer.Callbacks{
		OnPhase:       c.forwardPhase(sequencer.ModeExplosion),
		OnRevealReady: c.explosionRevealReady,
		OnComplete:    c.explosionComplete,
	})
	if err != nil {
		// InFlight was checked above, so this only happens with a
		// misconfigured sequencer. Settle straight into Active.
		c.logger.Error("explosion transition failed to start", "event", "run_start_failed", "err", err)
		c.session.InFlight = false
		c.explosionRevealReady()
		c.setState(StateActive)
		c.reveal(sel)
		return OutcomeExplosion
	}
	if !run.Done() {
		c.run = run
	}
	c.logger.Info("explosion started", "event", "explosion_start", "selection", sel, "theme", c.themes.Get().ID)
	return OutcomeExplosion
}

func (c *Choreographer) explosionRevealReady() {
	current := c.themes.Get()
	if err := c.audio.FadeInNew(audio.TrackRef(current.Audio), audio.ThemeFadeIn, audio.NominalVolume); err != nil {
		c.logger.Warn("continuing without theme audio", "event", "theme_audio_degraded", "theme", current.ID, "err", err)
	}
	c.visible = c.session.Selection
}

func (c *Choreographer) explosionComplete() {
	c.run = nil
	c.session.InFlight = false
	c.setState(StateActive)
	c.reveal(c.session.Selection)
}

func (c *Choreographer) reswitch(from, to Selection) Outcome {
	target, known := c.resolve(to)

	applied := false
	if known {
		// A reset during the explosion can leave the target theme applied
		// with its track never started, so the channel is checked as well.
		track := audio.TrackRef(target.Audio)
		if target.ID != c.themes.Get().ID || !c.audio.Playing(track) {
			if err := c.audio.SwapInstant(track, audio.NominalVolume); err != nil {
				c.logger.Warn("continuing without theme audio", "event", "theme_audio_degraded", "theme", target.ID, "err", err)
			}
		}
		applied = c.themes.Set(target.ID)
	}
	c.session.Selection = to
	c.session.InFlight = true
	c.from, c.to = from, to
	c.visible = from
	c.setState(StateTransitioningReswitch)

	run, err := c.runner.Run(sequencer.ModeCrossfade, sequencer.Callbacks{
		OnPhase:       c.forwardPhase(sequencer.ModeCrossfade),
		OnRevealReady: c.reswitchRevealReady,
		OnComplete:    c.reswitchComplete,
	})
	if err != nil {
		c.logger.Error("crossfade transition failed to start", "event", "run_start_failed", "err", err)
		c.session.InFlight = false
		c.visible = to
		c.setState(StateActive)
		c.reveal(to)
		return OutcomeReswitch
	}
	if !run.Done() {
		c.run = run
	}
	c.logger.Info("reswitch started", "event", "reswitch_start", "from", from, "to", to, "theme_applied", applied)
	return OutcomeReswitch
}

func (c *Choreographer) reswitchRevealReady() {
	c.visible = c.to
}

func (c *Choreographer) reswitchComplete() {
	c.run = nil
	c.session.InFlight = false
	to := c.to
	c.from, c.to = SelectionNone, SelectionNone
	c.setState(StateActive)
	c.reveal(to)
}

// resolve looks up the theme for sel. Unknown ids are logged and the visual
// transition proceeds on the last valid theme.
func (c *Choreographer) resolve(sel Selection) (theme.Descriptor, bool) {
	id := c.options[sel]
	d, ok := c.themes.Lookup(id)
	if !ok {
		c.logger.Warn("theme not in registry; keeping current theme", "event", "unknown_theme", "selection", sel, "err", fmt.Errorf("%w: %s", theme.ErrUnknownTheme, id))
	}
	return d, ok
}

func (c *Choreographer) reveal(sel Selection) {
	c.visible = sel
	c.contentVisible = true
	if c.hooks.OnReveal != nil {
		c.hooks.OnReveal(sel)
	}
}

func (c *Choreographer) forwardPhase(mode sequencer.Mode) func(sequencer.Phase) {
	return func(p sequencer.Phase) {
		if c.hooks.OnPhase != nil {
			c.hooks.OnPhase(mode, p)
		}
	}
}

func (c *Choreographer) setState(next State) {
	prev := c.state
	c.state = next
	if prev != next && c.hooks.OnStateChange != nil {
		c.hooks.OnStateChange(prev, next)
	}
}
