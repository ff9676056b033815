package sequencer

import (
	"math"
	"time"
)

// Mode selects one of the configured timelines.
type Mode int

const (
	// ModeExplosion is the one-shot first-selection transition.
	ModeExplosion Mode = iota + 1
	// ModeCrossfade is the lighter reswitch transition.
	ModeCrossfade
)

func (m Mode) String() string {
	switch m {
	case ModeExplosion:
		return "explosion"
	case ModeCrossfade:
		return "crossfade"
	default:
		return "unknown"
	}
}

// Phase names a timeline phase. PhaseDone is reported once a run completes.
type Phase string

const (
	PhaseIdle     Phase = ""
	PhaseBuildup  Phase = "buildup"
	PhaseBurst    Phase = "burst"
	PhaseFadeOut  Phase = "fade-out"
	PhaseOutgoing Phase = "outgoing"
	PhaseIncoming Phase = "incoming"
	PhaseDone     Phase = "done"
)

// Target names a presentation element an effect animates.
type Target string

const (
	TargetFocalIcon Target = "focal-icon"
	TargetGlow      Target = "glow"
	TargetFlash     Target = "flash"
	TargetParticles Target = "particles"
	TargetSpiral    Target = "spiral"
	TargetOverlay   Target = "overlay"
	TargetOutgoing  Target = "outgoing-content"
	TargetIncoming  Target = "incoming-content"
)

// Effect is one sub-animation inside a phase window. Effects only read the
// phase clock, so concurrent effects never share mutable state.
type Effect struct {
	Name     string
	Target   Target
	Offset   time.Duration
	Duration time.Duration
	Ease     Ease
	// Count and Stagger describe multi-element effects. Element i starts
	// i*Stagger after the effect.
	Count   int
	Stagger time.Duration
	// Repeat plays the effect Repeat extra times, alternating direction.
	Repeat int
}

// Span is the time from the effect offset to the end of the last element.
func (e Effect) Span() time.Duration {
	n := e.Count
	if n < 1 {
		n = 1
	}
	return e.Duration*time.Duration(e.Repeat+1) + e.Stagger*time.Duration(n-1)
}

// PhaseSpec is one record of a timeline.
type PhaseSpec struct {
	Name     Phase
	Duration time.Duration
	Effects  []Effect
	// RevealReady fires OnRevealReady when this phase ends, before the next
	// phase begins.
	RevealReady bool
}

// Timeline is a tagged sequence of phases.
type Timeline struct {
	Mode   Mode
	Phases []PhaseSpec
}

// Duration sums the phase windows.
func (t Timeline) Duration() time.Duration {
	var total time.Duration
	for _, p := range t.Phases {
		total += p.Duration
	}
	return total
}

// Explosion is the default first-selection timeline: buildup, burst, the
// reveal-ready boundary, then the overlay fade-out.
func Explosion() Timeline {
	return Timeline{
		Mode: ModeExplosion,
		Phases: []PhaseSpec{
			{
				Name:     PhaseBuildup,
				Duration: 1200 * time.Millisecond,
				Effects: []Effect{
					{Name: "focal-scale-in", Target: TargetFocalIcon, Duration: 1200 * time.Millisecond, Ease: EaseInQuad},
					{Name: "glow-build", Target: TargetGlow, Duration: 1200 * time.Millisecond, Ease: EaseInQuad},
				},
			},
			{
				Name:        PhaseBurst,
				Duration:    1600 * time.Millisecond,
				RevealReady: true,
				Effects: []Effect{
					{Name: "focal-burst", Target: TargetFocalIcon, Duration: 500 * time.Millisecond, Ease: EaseOutCubic},
					{Name: "glow-burst", Target: TargetGlow, Duration: 600 * time.Millisecond, Ease: EaseOutQuad},
					{Name: "flash", Target: TargetFlash, Duration: 150 * time.Millisecond, Ease: EaseInOutQuad, Repeat: 2},
					{Name: "particle-burst", Target: TargetParticles, Offset: 100 * time.Millisecond, Duration: time.Second, Ease: EaseOutQuad, Count: 20, Stagger: 20 * time.Millisecond},
					{Name: "icon-spiral", Target: TargetSpiral, Offset: 100 * time.Millisecond, Duration: 1100 * time.Millisecond, Ease: EaseOutCubic, Count: 12, Stagger: 30 * time.Millisecond},
				},
			},
			{
				Name:     PhaseFadeOut,
				Duration: 1100 * time.Millisecond,
				Effects: []Effect{
					{Name: "overlay-fade", Target: TargetOverlay, Offset: 300 * time.Millisecond, Duration: 800 * time.Millisecond, Ease: EaseInOutQuad},
				},
			},
		},
	}
}

// Crossfade is the default reswitch timeline. The incoming phase only starts
// once the outgoing content is fully transparent.
func Crossfade() Timeline {
	return Timeline{
		Mode: ModeCrossfade,
		Phases: []PhaseSpec{
			{
				Name:        PhaseOutgoing,
				Duration:    250 * time.Millisecond,
				RevealReady: true,
				Effects: []Effect{
					{Name: "outgoing-fade", Target: TargetOutgoing, Duration: 250 * time.Millisecond, Ease: EaseInQuad},
				},
			},
			{
				Name:     PhaseIncoming,
				Duration: 250 * time.Millisecond,
				Effects: []Effect{
					{Name: "incoming-fade", Target: TargetIncoming, Duration: 250 * time.Millisecond, Ease: EaseOutQuad},
				},
			},
		},
	}
}

// Ease maps linear progress in [0,1] to eased progress.
type Ease func(float64) float64

func Linear(t float64) float64 { return t }
func EaseInQuad(t float64) float64 { return t * t }
func EaseOutQuad(t float64) float64 { return 1 - (1-t)*(1-t) }
func EaseOutCubic(t float64) float64 { return 1 - math.Pow(1-t, 3) }
func EaseInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}
