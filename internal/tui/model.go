package tui

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"reveal-terminal/internal/audio"
	"reveal-terminal/internal/choreo"
	"reveal-terminal/internal/sequencer"
	"reveal-terminal/internal/theme"
)

const (
	loaderLineDelay = 400 * time.Millisecond
	loaderLineFade  = 800 * time.Millisecond
	loaderHold      = time.Second
	loaderFadeOut   = 600 * time.Millisecond
	loaderGap       = 300 * time.Millisecond

	introLeave = 600 * time.Millisecond
	entrance   = 600 * time.Millisecond

	defaultFrameInterval = 33 * time.Millisecond
	maxFrameCatchUp      = 250 * time.Millisecond

	// Below this size the particle field and the icon spiral have nowhere to
	// go, so those targets are reported unmounted.
	minFieldWidth  = 40
	minFieldHeight = 14
)

// loaderLines are revealed one after another while the loader runs.
var loaderLines = []string{"Merry", "Christmas!", "🎄 Your gift awaits... 🎁"}

// loaderDuration is the time from model start until the intro screen shows.
func loaderDuration() time.Duration {
	lines := loaderLineDelay*time.Duration(len(loaderLines)-1) + loaderLineFade
	return lines + loaderHold + loaderFadeOut + loaderGap
}

// Screen identifies the active top-level view.
type Screen int

const (
	ScreenLoader Screen = iota
	ScreenIntro
	ScreenGifts
	ScreenExit
)

func (s Screen) String() string {
	switch s {
	case ScreenLoader:
		return "loader"
	case ScreenIntro:
		return "intro"
	case ScreenGifts:
		return "gifts"
	case ScreenExit:
		return "exit"
	default:
		return "unknown"
	}
}

type frameMsg time.Time

// Report is what the UI publishes about its session after every update that
// changed it.
type Report struct {
	Screen   Screen
	Snapshot choreo.Snapshot
	Theme    theme.ID
	Audio    audio.Status
}

// Options configures a Model.
type Options struct {
	Width  int
	Height int
	// Recipient is shown in the greeting; empty hides it.
	Recipient string

	Registry *theme.Registry
	OptionA  theme.ID
	OptionB  theme.ID
	Backend  audio.Backend

	Renderer  *lipgloss.Renderer
	Term      string
	ForceMono bool

	FrameInterval time.Duration
	Logger        *log.Logger
	// OnReport receives a Report whenever the session state, the theme or
	// the current track changes.
	OnReport func(Report)
	// Start is the frame clock origin. Zero means time.Now().
	Start time.Time
}

// Model is the bubbletea model of one reveal session.
type Model struct {
	opts     Options
	keys     KeyMap
	help     help.Model
	session  *Session
	logger   *log.Logger
	renderer *lipgloss.Renderer

	width  int
	height int

	screen      Screen
	screenSince time.Time
	leaving     bool
	leaveSince  time.Time

	flipped   bool
	focus     choreo.Selection
	revealAt  time.Time
	revealed  choreo.Selection
	lastFrame time.Time

	spring  harmonica.Spring
	iconPos float64
	iconVel float64

	styles     map[theme.ID]theme.Styles
	lastReport reportKey
	closed     bool
}

type reportKey struct {
	screen   Screen
	snapshot choreo.Snapshot
	theme    theme.ID
	track    audio.TrackRef
}

// NewModel builds the model and its session graph.
func NewModel(opts Options) (*Model, error) {
	if opts.Registry == nil {
		opts.Registry = theme.DefaultRegistry()
	}
	if opts.OptionA == "" {
		opts.OptionA = theme.IDExpedition33
	}
	if opts.OptionB == "" {
		opts.OptionB = theme.IDBaldursGate3
	}
	if opts.Backend == nil {
		opts.Backend = audio.NewMemoryBackend(false)
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = defaultFrameInterval
	}
	if opts.Renderer == nil {
		opts.Renderer = lipgloss.DefaultRenderer()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}
	if opts.OptionA == opts.OptionB {
		return nil, errors.New("tui: the two options must use different themes")
	}

	m := &Model{
		opts:     opts,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		logger:   opts.Logger,
		renderer: opts.Renderer,
		width:    opts.Width,
		height:   opts.Height,
		screen:   ScreenLoader,
		spring:   harmonica.NewSpring(harmonica.FPS(fps(opts.FrameInterval)), 7.0, 0.45),
		styles:   map[theme.ID]theme.Styles{},
	}
	m.help.Width = opts.Width

	session, err := NewSession(SessionConfig{
		Registry: opts.Registry,
		OptionA:  opts.OptionA,
		OptionB:  opts.OptionB,
		Backend:  opts.Backend,
		Stage:    sequencer.StageFunc(m.mounted),
		Hooks: choreo.Hooks{
			OnPhase:  m.onPhase,
			OnReveal: m.onReveal,
		},
		Logger: opts.Logger,
		Start:  opts.Start,
	})
	if err != nil {
		return nil, err
	}
	m.session = session
	m.screenSince = session.Clock.Now()
	session.Clock.After(loaderDuration(), m.showIntro)
	return m, nil
}

func fps(interval time.Duration) int {
	n := int(time.Second / interval)
	if n < 1 {
		return 1
	}
	return n
}

// Session exposes the session graph.
func (m *Model) Session() *Session { return m.session }

// Screen reports the active screen.
func (m *Model) Screen() Screen { return m.screen }

// Init starts the frame ticker.
func (m *Model) Init() tea.Cmd {
	m.report()
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.opts.FrameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// Update advances model state in response to events.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.closed {
		return m, nil
	}

	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
	case frameMsg:
		m.advance(m.frameDelta(time.Time(msg)))
		cmd = m.tick()
	case tea.KeyMsg:
		cmd = m.handleKey(msg)
	}

	if !m.closed {
		m.report()
	}
	return m, cmd
}

func (m *Model) frameDelta(now time.Time) time.Duration {
	prev := m.lastFrame
	m.lastFrame = now
	if prev.IsZero() {
		return m.opts.FrameInterval
	}
	d := now.Sub(prev)
	switch {
	case d <= 0:
		return m.opts.FrameInterval
	case d > maxFrameCatchUp:
		return maxFrameCatchUp
	default:
		return d
	}
}

// advance moves the session clock and steps the focal icon spring once.
func (m *Model) advance(d time.Duration) {
	m.session.Clock.AdvanceBy(d)
	m.iconPos, m.iconVel = m.spring.Update(m.iconPos, m.iconVel, m.iconTarget())
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.close()
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return nil
	}

	switch m.screen {
	case ScreenIntro:
		if key.Matches(msg, m.keys.Continue) && !m.leaving {
			m.leaving = true
			m.leaveSince = m.now()
			m.session.Clock.After(introLeave, m.enterGifts)
		}
	case ScreenGifts:
		switch {
		case key.Matches(msg, m.keys.OptionA):
			m.choose(choreo.SelectionA)
		case key.Matches(msg, m.keys.OptionB):
			m.choose(choreo.SelectionB)
		case key.Matches(msg, m.keys.Switch):
			next := m.focus.Other()
			if next == choreo.SelectionNone {
				next = choreo.SelectionA
			}
			m.choose(next)
		case key.Matches(msg, m.keys.Flip):
			if snap := m.session.Choreo.Snapshot(); snap.ContentVisible && !snap.Session.InFlight {
				m.flipped = !m.flipped
			}
		case key.Matches(msg, m.keys.Back):
			if m.session.Choreo.ResetToNeutral() {
				m.flipped = false
				m.focus = choreo.SelectionNone
				m.revealed = choreo.SelectionNone
			}
		}
	}
	return nil
}

func (m *Model) choose(sel choreo.Selection) {
	outcome := m.session.Choreo.Select(sel)
	m.logger.Debug("selection handled", "event", "select", "selection", sel, "outcome", outcome)
	switch outcome {
	case choreo.OutcomeExplosion, choreo.OutcomeReswitch:
		m.focus = sel
		m.flipped = false
	}
}

func (m *Model) showIntro() {
	if m.screen != ScreenLoader {
		return
	}
	m.screen = ScreenIntro
	m.screenSince = m.now()
}

func (m *Model) enterGifts() {
	if m.closed {
		return
	}
	m.session.Choreo.DismissIntro()
	m.leaving = false
	m.screen = ScreenGifts
	m.screenSince = m.now()
}

func (m *Model) onPhase(mode sequencer.Mode, phase sequencer.Phase) {
	if mode == sequencer.ModeExplosion && phase == sequencer.PhaseBuildup {
		m.iconPos, m.iconVel = 0, 0
	}
}

func (m *Model) onReveal(sel choreo.Selection) {
	m.revealed = sel
	m.revealAt = m.now()
}

// mounted is the sequencer stage: small terminals cannot host the particle
// field or the spiral.
func (m *Model) mounted(t sequencer.Target) bool {
	switch t {
	case sequencer.TargetParticles, sequencer.TargetSpiral:
		return m.width >= minFieldWidth && m.height >= minFieldHeight
	default:
		return true
	}
}

func (m *Model) now() time.Time { return m.session.Clock.Now() }

func (m *Model) close() {
	if m.closed {
		return
	}
	m.closed = true
	m.screen = ScreenExit
	m.session.Close()
	m.report()
}

// Close tears the session down. It is safe to call more than once.
func (m *Model) Close() { m.close() }

func (m *Model) report() {
	if m.opts.OnReport == nil {
		return
	}
	r := Report{
		Screen:   m.screen,
		Snapshot: m.session.Choreo.Snapshot(),
		Theme:    m.session.Themes.Get().ID,
		Audio:    m.session.Audio.Status(),
	}
	k := reportKey{screen: r.Screen, snapshot: r.Snapshot, theme: r.Theme}
	if r.Audio.Current != nil {
		k.track = r.Audio.Current.Track
	}
	if k == m.lastReport {
		return
	}
	m.lastReport = k
	m.opts.OnReport(r)
}

func (m *Model) currentStyles() theme.Styles {
	d := m.session.Themes.Get()
	if s, ok := m.styles[d.ID]; ok {
		return s
	}
	s := theme.ResolveStyles(m.renderer, d, theme.ResolveOptions{Term: m.opts.Term, ForceMono: m.opts.ForceMono})
	m.styles[d.ID] = s
	return s
}

// View renders the active screen with the status bar and help line.
func (m *Model) View() string {
	if m.closed {
		return ""
	}
	styles := m.currentStyles()
	footer := lipgloss.JoinVertical(lipgloss.Left, m.renderStatus(styles), m.help.View(m.keys))
	bodyHeight := max(m.height-lipgloss.Height(footer), 1)

	var body string
	switch m.screen {
	case ScreenLoader:
		body = m.renderLoader(styles, bodyHeight)
	case ScreenIntro:
		body = m.renderIntro(styles, bodyHeight)
	case ScreenGifts:
		body = m.renderGifts(styles, bodyHeight)
		if run := m.session.Choreo.Run(); run != nil && run.Mode() == sequencer.ModeExplosion {
			body = m.renderExplosion(styles, run.Frame(), body, bodyHeight)
		}
	}

	body = lipgloss.Place(max(m.width, 1), bodyHeight, lipgloss.Center, lipgloss.Center, body)
	return styles.Screen.Render(lipgloss.JoinVertical(lipgloss.Left, body, footer))
}
