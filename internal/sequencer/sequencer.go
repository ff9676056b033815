// Package sequencer runs phase-based transition timelines on a frame clock.
//
// A Sequencer owns at most one Run at a time. Phases advance from scheduled
// callbacks; callers observe them through Callbacks and render from
// Run.Frame, which is a pure function of the phase clock.
package sequencer

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"reveal-terminal/internal/frameclock"
)

var (
	// ErrRunActive is returned by Run while another run is in flight.
	ErrRunActive = errors.New("transition already running")
	// ErrUnknownMode is returned for a mode without a configured timeline.
	ErrUnknownMode = errors.New("unknown transition mode")
	// ErrMissingMountTarget marks an effect skipped because its target is absent.
	ErrMissingMountTarget = errors.New("mount target missing")
)

// Stage reports which presentation targets are mounted.
type Stage interface {
	Mounted(Target) bool
}

// StageFunc adapts a function to Stage.
type StageFunc func(Target) bool

func (f StageFunc) Mounted(t Target) bool { return f(t) }

// Callbacks are invoked on the clock goroutine. Any may be nil.
type Callbacks struct {
	// OnPhase fires when a phase begins and with PhaseDone on completion.
	OnPhase func(Phase)
	// OnRevealReady fires once, at the end of the phase tagged RevealReady.
	OnRevealReady func()
	// OnComplete fires exactly once when the last phase ends.
	OnComplete func()
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithStage sets the mount-target oracle. Without one every target counts as
// mounted.
func WithStage(stage Stage) Option {
	return func(s *Sequencer) { s.stage = stage }
}

// WithTimeline replaces the timeline used for tl.Mode.
func WithTimeline(tl Timeline) Option {
	return func(s *Sequencer) { s.timelines[tl.Mode] = tl }
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Sequencer) { s.logger = logger }
}

// Sequencer starts and tracks transition runs.
type Sequencer struct {
	clock     frameclock.Clock
	stage     Stage
	logger    *log.Logger
	timelines map[Mode]Timeline

	active *Run
	nextID uint64
}

// New returns a Sequencer with the default explosion and crossfade timelines.
func New(clock frameclock.Clock, opts ...Option) *Sequencer {
	s := &Sequencer{
		clock:  clock,
		logger: log.Default(),
		timelines: map[Mode]Timeline{
			ModeExplosion: Explosion(),
			ModeCrossfade: Crossfade(),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InFlight reports whether a run is active.
func (s *Sequencer) InFlight() bool { return s.active != nil }

// Active returns the in-flight run, or nil.
func (s *Sequencer) Active() *Run { return s.active }

// Timeline returns the timeline configured for mode.
func (s *Sequencer) Timeline(mode Mode) (Timeline, bool) {
	tl, ok := s.timelines[mode]
	return tl, ok
}

// Run starts mode's timeline. While another run is in flight it returns
// ErrRunActive and leaves that run untouched.
func (s *Sequencer) Run(mode Mode, cb Callbacks) (*Run, error) {
	if s.active != nil {
		s.logger.Warn("transition rejected", "event", "run_rejected", "mode", mode, "active_run", s.active.id, "active_phase", s.active.Phase())
		return nil, fmt.Errorf("%w: run %d in phase %s", ErrRunActive, s.active.id, s.active.Phase())
	}
	tl, ok := s.timelines[mode]
	if !ok || len(tl.Phases) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}

	s.nextID++
	r := &Run{
		id:       s.nextID,
		seq:      s,
		timeline: tl,
		cb:       cb,
		started:  s.clock.Now(),
		phaseIdx: -1,
		skipped:  map[Target]bool{},
	}
	s.active = r
	s.logger.Debug("transition started", "event", "run_start", "run", r.id, "mode", mode, "duration", tl.Duration())
	r.enter(0)
	return r, nil
}

func (s *Sequencer) release(r *Run) {
	if s.active == r {
		s.active = nil
	}
}

type runState int

const (
	runRunning runState = iota
	runCompleted
	runCancelled
)

// Run is a single execution of a timeline.
type Run struct {
	id       uint64
	seq      *Sequencer
	timeline Timeline
	cb       Callbacks

	state      runState
	started    time.Time
	phaseIdx   int
	phaseStart time.Time
	timer      frameclock.Timer
	revealed   bool
	skipped    map[Target]bool
}

// ID identifies the run within its Sequencer.
func (r *Run) ID() uint64 { return r.id }

// Mode reports the timeline mode.
func (r *Run) Mode() Mode { return r.timeline.Mode }

// Phase is the phase cursor.
func (r *Run) Phase() Phase {
	switch {
	case r.state == runCompleted:
		return PhaseDone
	case r.phaseIdx < 0 || r.phaseIdx >= len(r.timeline.Phases):
		return PhaseIdle
	default:
		return r.timeline.Phases[r.phaseIdx].Name
	}
}

// Elapsed is the time since the run started, measured on the frame clock.
func (r *Run) Elapsed() time.Duration { return r.seq.clock.Now().Sub(r.started) }

// Done reports whether the run completed.
func (r *Run) Done() bool { return r.state == runCompleted }

// Cancelled reports whether the run was cancelled.
func (r *Run) Cancelled() bool { return r.state == runCancelled }

// Skipped reports whether effects on target were skipped for a missing mount.
func (r *Run) Skipped(target Target) bool { return r.skipped[target] }

// Cancel halts the run. No callback fires afterwards, including completion.
// It reports whether the run was still running.
func (r *Run) Cancel() bool {
	if r.state != runRunning {
		return false
	}
	r.state = runCancelled
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.seq.release(r)
	r.seq.logger.Debug("transition cancelled", "event", "run_cancel", "run", r.id, "phase", r.Phase())
	return true
}

func (r *Run) enter(idx int) {
	phase := r.timeline.Phases[idx]
	r.phaseIdx = idx
	r.phaseStart = r.seq.clock.Now()

	for _, e := range phase.Effects {
		if r.seq.stage == nil || r.skipped[e.Target] || r.seq.stage.Mounted(e.Target) {
			continue
		}
		r.skipped[e.Target] = true
		r.seq.logger.Warn("effect skipped", "event", "effect_degraded", "run", r.id, "phase", phase.Name, "effect", e.Name, "err", fmt.Errorf("%w: %s", ErrMissingMountTarget, e.Target))
	}

	if r.cb.OnPhase != nil {
		r.cb.OnPhase(phase.Name)
		if r.state != runRunning {
			return
		}
	}
	r.timer = r.seq.clock.After(phase.Duration, r.exit)
}

func (r *Run) exit() {
	r.timer = nil
	if r.state != runRunning {
		return
	}
	phase := r.timeline.Phases[r.phaseIdx]
	if phase.RevealReady && !r.revealed {
		r.revealed = true
		if r.cb.OnRevealReady != nil {
			r.cb.OnRevealReady()
			if r.state != runRunning {
				return
			}
		}
	}

	if next := r.phaseIdx + 1; next < len(r.timeline.Phases) {
		r.enter(next)
		return
	}

	r.state = runCompleted
	r.seq.release(r)
	r.seq.logger.Debug("transition complete", "event", "run_complete", "run", r.id, "mode", r.timeline.Mode, "elapsed", r.Elapsed())
	if r.cb.OnPhase != nil {
		r.cb.OnPhase(PhaseDone)
	}
	if r.cb.OnComplete != nil {
		r.cb.OnComplete()
	}
}
