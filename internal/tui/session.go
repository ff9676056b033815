package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"reveal-terminal/internal/audio"
	"reveal-terminal/internal/choreo"
	"reveal-terminal/internal/frameclock"
	"reveal-terminal/internal/sequencer"
	"reveal-terminal/internal/theme"
)

// Session is the per-connection graph: one frame clock driving one theme
// store, audio channel, sequencer and choreographer.
type Session struct {
	Clock     *frameclock.Scheduler
	Themes    *theme.Store
	Audio     *audio.Controller
	Sequencer *sequencer.Sequencer
	Choreo    *choreo.Choreographer
	Options   map[choreo.Selection]theme.Descriptor
}

// SessionConfig wires a Session.
type SessionConfig struct {
	Registry *theme.Registry
	OptionA  theme.ID
	OptionB  theme.ID
	Backend  audio.Backend
	Stage    sequencer.Stage
	Hooks    choreo.Hooks
	Logger   *log.Logger
	Start    time.Time
}

// NewSession builds the session graph. The clock starts at cfg.Start.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Registry == nil {
		return nil, errors.New("tui: theme registry is required")
	}
	if cfg.Backend == nil {
		return nil, errors.New("tui: audio backend is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	options := map[choreo.Selection]theme.Descriptor{}
	for sel, id := range map[choreo.Selection]theme.ID{choreo.SelectionA: cfg.OptionA, choreo.SelectionB: cfg.OptionB} {
		d, ok := cfg.Registry.Lookup(id)
		if !ok {
			// The choreographer degrades to the last valid theme; labels
			// fall back to the raw id.
			logger.Warn("option theme not in registry", "event", "unknown_theme", "selection", sel, "err", fmt.Errorf("%w: %s", theme.ErrUnknownTheme, id))
			d = theme.Descriptor{ID: id, Name: string(id)}
		}
		options[sel] = d
	}

	clock := frameclock.New(cfg.Start)
	store := theme.NewStore(cfg.Registry)
	ctl := audio.NewController(clock, cfg.Backend, audio.TrackRef(cfg.Registry.Neutral().Audio), logger.With("component", "audio"))

	seqOpts := []sequencer.Option{sequencer.WithLogger(logger.With("component", "sequencer"))}
	if cfg.Stage != nil {
		seqOpts = append(seqOpts, sequencer.WithStage(cfg.Stage))
	}
	seq := sequencer.New(clock, seqOpts...)

	c, err := choreo.New(choreo.Config{
		Themes:    store,
		Audio:     ctl,
		Sequencer: seq,
		Options: map[choreo.Selection]theme.ID{
			choreo.SelectionA: cfg.OptionA,
			choreo.SelectionB: cfg.OptionB,
		},
		Hooks:  cfg.Hooks,
		Logger: logger.With("component", "choreo"),
	})
	if err != nil {
		return nil, err
	}

	return &Session{
		Clock:     clock,
		Themes:    store,
		Audio:     ctl,
		Sequencer: seq,
		Choreo:    c,
		Options:   options,
	}, nil
}

// Close cancels the in-flight transition and releases every audio voice.
func (s *Session) Close() {
	s.Choreo.Teardown()
	s.Audio.Teardown()
}
