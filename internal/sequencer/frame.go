package sequencer

import "time"

// Frame is what a renderer needs to draw the current instant of a run.
type Frame struct {
	RunID         uint64
	Mode          Mode
	Phase         Phase
	PhaseElapsed  time.Duration
	PhaseProgress float64
	Effects       []EffectFrame
}

// EffectFrame is one effect of the current phase.
type EffectFrame struct {
	Effect
	// Local is the time since the effect's own offset; negative before start.
	Local   time.Duration
	Skipped bool
}

// Frame computes the current frame. A finished or cancelled run reports its
// terminal phase with no effects.
func (r *Run) Frame() Frame {
	f := Frame{RunID: r.id, Mode: r.timeline.Mode, Phase: r.Phase()}
	if r.state != runRunning || r.phaseIdx < 0 {
		if r.state == runCompleted {
			f.PhaseProgress = 1
		}
		return f
	}

	phase := r.timeline.Phases[r.phaseIdx]
	f.PhaseElapsed = r.seq.clock.Now().Sub(r.phaseStart)
	f.PhaseProgress = progress(f.PhaseElapsed, phase.Duration)
	f.Effects = make([]EffectFrame, 0, len(phase.Effects))
	for _, e := range phase.Effects {
		f.Effects = append(f.Effects, EffectFrame{
			Effect:  e,
			Local:   f.PhaseElapsed - e.Offset,
			Skipped: r.skipped[e.Target],
		})
	}
	return f
}

// Effect returns the frame of the first effect on target.
func (f Frame) Effect(target Target) (EffectFrame, bool) {
	for _, e := range f.Effects {
		if e.Target == target {
			return e, true
		}
	}
	return EffectFrame{}, false
}

// Progress is the eased progress of the whole effect (element 0).
func (e EffectFrame) Progress() float64 { return e.ElementProgress(0) }

// Started reports whether the effect offset has passed.
func (e EffectFrame) Started() bool { return e.Local >= 0 }

// ElementProgress is the eased progress of element i, honoring stagger and
// repeat. Repeats alternate direction, so an even repeat count ends at 1 and
// an odd one at 0.
func (e EffectFrame) ElementProgress(i int) float64 {
	if e.Skipped {
		return 0
	}
	local := e.Local - e.Stagger*time.Duration(i)
	if local <= 0 || e.Duration <= 0 {
		if e.Duration <= 0 && local >= 0 {
			return 1
		}
		return 0
	}

	cycle := int(local / e.Duration)
	if cycle > e.Repeat {
		cycle = e.Repeat
		local = e.Duration * time.Duration(e.Repeat+1)
	}
	p := progress(local-e.Duration*time.Duration(cycle), e.Duration)
	if local >= e.Duration*time.Duration(e.Repeat+1) {
		p = 1
	}
	if cycle%2 == 1 {
		p = 1 - p
	}
	ease := e.Ease
	if ease == nil {
		ease = Linear
	}
	return ease(p)
}

func progress(elapsed, total time.Duration) float64 {
	if total <= 0 {
		return 1
	}
	p := float64(elapsed) / float64(total)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
