package choreo

import "fmt"

// State is the top-level state of a reveal session.
type State int

const (
	StateIntro State = iota
	StateNeutral
	StateTransitioningFirst
	StateActive
	StateTransitioningReswitch
)

func (s State) String() string {
	switch s {
	case StateIntro:
		return "intro"
	case StateNeutral:
		return "neutral"
	case StateTransitioningFirst:
		return "transitioning-first"
	case StateActive:
		return "active"
	case StateTransitioningReswitch:
		return "transitioning-reswitch"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Selection is the user's gift choice.
type Selection int

const (
	SelectionNone Selection = iota
	SelectionA
	SelectionB
)

func (s Selection) String() string {
	switch s {
	case SelectionNone:
		return "none"
	case SelectionA:
		return "A"
	case SelectionB:
		return "B"
	default:
		return fmt.Sprintf("selection(%d)", int(s))
	}
}

// Other returns the opposite option. SelectionNone has no opposite.
func (s Selection) Other() Selection {
	switch s {
	case SelectionA:
		return SelectionB
	case SelectionB:
		return SelectionA
	default:
		return SelectionNone
	}
}

// Outcome reports what a Select call did.
type Outcome int

const (
	// OutcomeIgnored: input not accepted in the current state.
	OutcomeIgnored Outcome = iota
	// OutcomeNoop: the option is already the active selection.
	OutcomeNoop
	// OutcomeRejected: a transition is in flight.
	OutcomeRejected
	// OutcomeExplosion: the one-shot first-selection transition started.
	OutcomeExplosion
	// OutcomeReswitch: a crossfade to the other option started.
	OutcomeReswitch
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeNoop:
		return "noop"
	case OutcomeRejected:
		return "rejected"
	case OutcomeExplosion:
		return "explosion"
	case OutcomeReswitch:
		return "reswitch"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Session is the session-scoped bookkeeping. It is created once per session
// and never recreated; ExplosionConsumed never resets.
type Session struct {
	IntroDismissed    bool
	Selection         Selection
	ExplosionConsumed bool
	InFlight          bool
}

// Snapshot is a read-only view for the presentation layer.
type Snapshot struct {
	State   State
	Session Session
	// From and To are set while a reswitch is in flight.
	From, To Selection
	// Visible is the selection whose themed content may be rendered.
	Visible Selection
	// ContentVisible is true once themed content is authorized.
	ContentVisible bool
}
