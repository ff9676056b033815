package tui

import (
	"fmt"
	"hash/fnv"
	"math"
	"path"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"reveal-terminal/internal/audio"
	"reveal-terminal/internal/choreo"
	"reveal-terminal/internal/sequencer"
	"reveal-terminal/internal/theme"
)

const meterWidth = 10

func (m *Model) renderLoader(styles theme.Styles, height int) string {
	p := styles.Palette
	elapsed := m.now().Sub(m.screenSince)
	colors := []string{p.Text, p.TextSecondary, p.Text}

	fadeStart := loaderLineDelay*time.Duration(len(loaderLines)-1) + loaderLineFade + loaderHold
	out := clamp01(float64(elapsed-fadeStart) / float64(loaderFadeOut))

	lines := make([]string, 0, len(loaderLines)*2)
	for i, text := range loaderLines {
		in := easeOutQuad(clamp01(float64(elapsed-loaderLineDelay*time.Duration(i)) / float64(loaderLineFade)))
		// Lines rise one row into place while fading in.
		if in < 0.5 {
			lines = append(lines, "")
		}
		visibility := in * (1 - out)
		style := m.renderer.NewStyle().Bold(i < 2).Foreground(blend(p.Background, colors[i], visibility))
		lines = append(lines, style.Render(text))
		if in >= 0.5 {
			lines = append(lines, "")
		}
	}
	return lipgloss.PlaceVertical(height, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, lines...))
}

func (m *Model) renderIntro(styles theme.Styles, height int) string {
	p := styles.Palette
	visibility := 1.0
	if m.leaving {
		visibility = 1 - clamp01(float64(m.now().Sub(m.leaveSince))/float64(introLeave))
	}
	fg := func(c string) lipgloss.Color { return blend(p.Background, c, visibility) }

	title := m.renderer.NewStyle().Bold(true).Foreground(fg(p.Text)).Render("Merry Christmassssss!")
	subtitle := m.renderer.NewStyle().Foreground(fg(p.TextSecondary)).Render("🎄 Your gift awaits... 🎁")
	button := m.renderer.NewStyle().
		Bold(true).
		Foreground(fg(p.Background)).
		Background(fg(p.Accent)).
		Padding(0, 3).
		Render("🎁 View Gift")
	hint := styles.Muted.Render("press enter")

	parts := []string{title, "", subtitle, ""}
	if m.opts.Recipient != "" {
		parts = append(parts, styles.Subtitle.Render("for "+m.opts.Recipient), "")
	}
	parts = append(parts, button, "", hint)
	return lipgloss.PlaceVertical(height, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, parts...))
}

func (m *Model) renderGifts(styles theme.Styles, height int) string {
	snap := m.session.Choreo.Snapshot()
	neutral := m.opts.Registry.Neutral()

	heading := styles.Title.Render(styles.Apply("Choose Your Gift"))
	if snap.Visible == choreo.SelectionNone {
		heading = styles.Title.Render(styles.Apply(neutral.Name))
	}
	parts := []string{heading}
	if m.opts.Recipient != "" {
		parts = append(parts, styles.Muted.Render("for "+m.opts.Recipient))
	}
	parts = append(parts, "", m.renderTabs(styles, snap), "")

	switch {
	case snap.Visible == choreo.SelectionNone:
		parts = append(parts, styles.Card.Render(styles.Subtitle.Render("🎁 Pick a gift to unwrap it")))
	case snap.State == choreo.StateTransitioningReswitch:
		parts = append(parts, m.renderCrossfade(styles, snap))
	default:
		parts = append(parts, m.entranceOffset(snap)+m.renderCard(styles, snap.Visible, 0))
	}

	return lipgloss.PlaceVertical(height, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Center, parts...))
}

func (m *Model) renderTabs(styles theme.Styles, snap choreo.Snapshot) string {
	labels := map[choreo.Selection]string{choreo.SelectionA: "Gift 1", choreo.SelectionB: "Gift 2"}
	if snap.Session.ExplosionConsumed {
		for sel, d := range m.session.Options {
			labels[sel] = d.Name
		}
	}

	tabs := make([]string, 0, 2)
	for _, sel := range []choreo.Selection{choreo.SelectionA, choreo.SelectionB} {
		label := styles.Apply(labels[sel])
		if sel == snap.Session.Selection {
			tabs = append(tabs, styles.TabActive.Render(label))
			continue
		}
		tabs = append(tabs, styles.TabInactive.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs[0], "  ", tabs[1])
}

// entranceOffset slides freshly revealed content up into place.
func (m *Model) entranceOffset(snap choreo.Snapshot) string {
	if !snap.ContentVisible || m.revealAt.IsZero() {
		return ""
	}
	p := easeOutQuad(clamp01(float64(m.now().Sub(m.revealAt)) / float64(entrance)))
	rows := int(math.Round((1 - p) * 3))
	return strings.Repeat("\n", rows)
}

func (m *Model) renderCrossfade(styles theme.Styles, snap choreo.Snapshot) string {
	run := m.session.Choreo.Run()
	if run == nil {
		return m.renderCard(styles, snap.Visible, 0)
	}
	f := run.Frame()
	fade := 0.0
	switch f.Phase {
	case sequencer.PhaseOutgoing:
		if e, ok := f.Effect(sequencer.TargetOutgoing); ok {
			fade = e.Progress()
		}
	case sequencer.PhaseIncoming:
		fade = 1
		if e, ok := f.Effect(sequencer.TargetIncoming); ok {
			fade = 1 - e.Progress()
		}
	}
	return m.renderCard(styles, snap.Visible, fade)
}

// renderCard draws the coupon for sel. fade 0 is fully visible, 1 is fully
// dissolved into the card background.
func (m *Model) renderCard(styles theme.Styles, sel choreo.Selection, fade float64) string {
	d := m.session.Options[sel]
	p := styles.Palette
	text := blend(p.Text, p.CardBackground, fade)
	accent := blend(p.TextSecondary, p.CardBackground, fade)

	titleStyle := styles.CardTitle.Foreground(accent)
	bodyStyle := m.renderer.NewStyle().Foreground(text)
	width := min(max(m.width-8, 24), 56)

	var lines []string
	if !m.flipped {
		lines = append(lines,
			titleStyle.Render(styles.Apply(d.Coupon.Name)),
			"",
			bodyStyle.Render(styles.Apply(d.Coupon.Description)),
			"",
			styles.Muted.Render(styles.Apply("space: how to redeem")),
		)
	} else {
		lines = append(lines, titleStyle.Render(styles.Apply("How to Redeem:")), "")
		for i, step := range d.Coupon.Instructions {
			lines = append(lines, bodyStyle.Render(fmt.Sprintf("%d. %s", i+1, styles.Apply(step))))
		}
	}

	return styles.Card.
		Width(width).
		BorderForeground(blend(p.Secondary, p.CardBackground, fade)).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderStatus(styles theme.Styles) string {
	status := m.session.Audio.Status()
	track := "♪ silent"
	if v := status.Current; v != nil {
		track = fmt.Sprintf("♪ %s %s", path.Base(string(v.Track)), volumeMeter(v.Volume))
	}
	if v := status.Outgoing; v != nil {
		track += fmt.Sprintf("  ↘ %s %s", path.Base(string(v.Track)), volumeMeter(v.Volume))
	}
	state := m.session.Choreo.State().String()
	if m.screen != ScreenGifts {
		state = m.screen.String()
	}

	left := styles.Status.Render(track)
	right := styles.Muted.Render(state)
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func volumeMeter(v float64) string {
	filled := int(math.Round(clamp01(v/audio.NominalVolume) * meterWidth))
	return "[" + strings.Repeat("▮", filled) + strings.Repeat("▯", meterWidth-filled) + "]"
}

// iconTarget is where the focal icon spring is pulled this frame.
func (m *Model) iconTarget() float64 {
	run := m.session.Choreo.Run()
	if run == nil || run.Mode() != sequencer.ModeExplosion {
		return 0
	}
	f := run.Frame()
	e, ok := f.Effect(sequencer.TargetFocalIcon)
	if !ok {
		return 0
	}
	switch f.Phase {
	case sequencer.PhaseBuildup:
		return e.Progress()
	case sequencer.PhaseBurst:
		return 1 + 2*e.Progress()
	default:
		return 0
	}
}

// renderExplosion draws the full-screen overlay. During fade-out the overlay
// dissolves line by line into the content underneath.
func (m *Model) renderExplosion(styles theme.Styles, f sequencer.Frame, under string, height int) string {
	w, h := max(m.width, 1), height
	c := newCanvas(w, h)
	cx, cy := float64(w)/2, float64(h)/2
	maxR := math.Min(float64(w)/4, float64(h)/2)
	p := styles.Palette

	glowColor := p.Primary
	switch f.Phase {
	case sequencer.PhaseBuildup:
		if e, ok := f.Effect(sequencer.TargetGlow); ok {
			c.ring(cx, cy, 1+e.Progress()*maxR*0.4, '·')
		}
		c.diamond(cx, cy, m.iconPos*2, '◆')
	case sequencer.PhaseBurst:
		glowColor = p.Accent
		if e, ok := f.Effect(sequencer.TargetFlash); ok && e.Started() && e.Local < e.Span() && e.Progress() > 0.5 {
			c.fill('░')
		}
		if e, ok := f.Effect(sequencer.TargetGlow); ok && e.Progress() < 1 {
			c.ring(cx, cy, maxR*(0.4+0.6*e.Progress()), '·')
		}
		if e, ok := f.Effect(sequencer.TargetFocalIcon); ok && e.Progress() < 1 {
			icon := '◆'
			if e.Progress() > 0.5 {
				icon = '◇'
			}
			c.diamond(cx, cy, m.iconPos*2, icon)
		}
		if e, ok := f.Effect(sequencer.TargetParticles); ok && !e.Skipped {
			for i := 0; i < e.Count; i++ {
				ep := e.ElementProgress(i)
				if ep <= 0 || ep >= 1 {
					continue
				}
				angle := float64(i)*2*math.Pi/float64(e.Count) + jitter(i)
				c.polar(cx, cy, angle, ep*maxR*1.8, '*')
			}
		}
		if e, ok := f.Effect(sequencer.TargetSpiral); ok && !e.Skipped {
			for i := 0; i < e.Count; i++ {
				ep := e.ElementProgress(i)
				if ep <= 0 || ep >= 1 {
					continue
				}
				angle := float64(i)*2*math.Pi/float64(e.Count) + ep*math.Pi
				c.polar(cx, cy, angle, ep*maxR*1.2, '✦')
			}
		}
	case sequencer.PhaseFadeOut:
		glowColor = p.TextSecondary
	}

	style := m.renderer.NewStyle().Foreground(lipgloss.Color(glowColor)).Bold(true)
	overlay := c.lines()
	for i := range overlay {
		overlay[i] = style.Render(overlay[i])
	}

	if f.Phase != sequencer.PhaseFadeOut {
		return strings.Join(overlay, "\n")
	}
	dissolve := 0.0
	if e, ok := f.Effect(sequencer.TargetOverlay); ok {
		dissolve = e.Progress()
	}
	return dissolveLines(overlay, strings.Split(lipgloss.PlaceVertical(h, lipgloss.Center, under), "\n"), dissolve)
}

// dissolveLines swaps overlay lines for content lines once their hashed
// threshold falls below p.
func dissolveLines(overlay, under []string, p float64) string {
	out := make([]string, len(overlay))
	for i := range overlay {
		out[i] = overlay[i]
		if i < len(under) && threshold(i) < p {
			out[i] = under[i]
		}
	}
	return strings.Join(out, "\n")
}

func threshold(i int) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte{byte(i), byte(i >> 8)})
	return float64(h.Sum32()%1000) / 1000
}

func jitter(i int) float64 {
	return (threshold(i+977) - 0.5) * 0.3
}

type canvas struct {
	w, h  int
	cells [][]rune
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, cells: make([][]rune, h)}
	for y := range c.cells {
		c.cells[y] = []rune(strings.Repeat(" ", w))
	}
	return c
}

func (c *canvas) set(x, y int, r rune) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y][x] = r
}

func (c *canvas) fill(r rune) {
	for y := range c.cells {
		for x := range c.cells[y] {
			c.cells[y][x] = r
		}
	}
}

// polar plots r at distance d along angle. Cells are about twice as tall as
// wide, so x is stretched.
func (c *canvas) polar(cx, cy, angle, d float64, r rune) {
	c.set(int(math.Round(cx+math.Cos(angle)*d*2)), int(math.Round(cy+math.Sin(angle)*d)), r)
}

func (c *canvas) ring(cx, cy, radius float64, r rune) {
	if radius <= 0 {
		return
	}
	steps := int(radius*12) + 8
	for i := 0; i < steps; i++ {
		c.polar(cx, cy, float64(i)*2*math.Pi/float64(steps), radius, r)
	}
}

func (c *canvas) diamond(cx, cy, radius float64, r rune) {
	if radius <= 0.2 {
		return
	}
	for y := 0; y < c.h; y++ {
		for x := 0; x < c.w; x++ {
			dx := math.Abs(float64(x)-cx) / 2
			dy := math.Abs(float64(y) - cy)
			if dx+dy <= radius {
				c.cells[y][x] = r
			}
		}
	}
}

func (c *canvas) lines() []string {
	out := make([]string, c.h)
	for y, row := range c.cells {
		out[y] = string(row)
	}
	return out
}

// blend mixes two hex colors in Lab space. Unparseable colors snap to the
// nearer end.
func blend(from, to string, t float64) lipgloss.Color {
	t = clamp01(t)
	a, errA := colorful.Hex(from)
	b, errB := colorful.Hex(to)
	if errA != nil || errB != nil {
		if t < 0.5 {
			return lipgloss.Color(from)
		}
		return lipgloss.Color(to)
	}
	return lipgloss.Color(a.BlendLab(b, t).Clamped().Hex())
}

func easeOutQuad(t float64) float64 { return 1 - (1-t)*(1-t) }

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
