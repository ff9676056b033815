package theme

import (
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TermProfile describes terminal rendering capabilities derived from TERM.
type TermProfile struct {
	Colors    int
	TrueColor bool
	IsTTY     bool
}

// TermProfileDetector maps a TERM value to a terminal capability profile.
type TermProfileDetector func(term string) TermProfile

var (
	termProfileCache sync.Map
	knownProfiles    = map[string]TermProfile{
		"dumb":           {Colors: 0, TrueColor: false, IsTTY: false},
		"ansi":           {Colors: 8, TrueColor: false, IsTTY: true},
		"linux":          {Colors: 16, TrueColor: false, IsTTY: true},
		"xterm":          {Colors: 16, TrueColor: false, IsTTY: true},
		"xterm-256color": {Colors: 256, TrueColor: false, IsTTY: true},
		"screen":         {Colors: 8, TrueColor: false, IsTTY: true},
		"tmux":           {Colors: 256, TrueColor: false, IsTTY: true},
		"vt100":          {Colors: 8, TrueColor: false, IsTTY: true},
		"xterm-kitty":    {Colors: 1 << 24, TrueColor: true, IsTTY: true},
		"wezterm":        {Colors: 1 << 24, TrueColor: true, IsTTY: true},
	}
)

// DetectTermProfile maps TERM to a terminal capability profile.
func DetectTermProfile(term string) TermProfile {
	norm := strings.ToLower(strings.TrimSpace(term))
	if cached, ok := termProfileCache.Load(norm); ok {
		return cached.(TermProfile)
	}

	profile := detectTermProfileUncached(norm)
	termProfileCache.Store(norm, profile)
	return profile
}

func detectTermProfileUncached(norm string) TermProfile {
	if norm == "" {
		return TermProfile{Colors: 0, TrueColor: false, IsTTY: false}
	}

	if p, ok := knownProfiles[norm]; ok {
		return p
	}

	profile := TermProfile{Colors: 16, TrueColor: false, IsTTY: true}
	if strings.Contains(norm, "truecolor") || strings.Contains(norm, "24bit") || strings.Contains(norm, "kitty") || strings.Contains(norm, "wezterm") {
		profile.TrueColor = true
		profile.Colors = 1 << 24
	}
	if strings.Contains(norm, "256") {
		profile.Colors = 256
	}
	if strings.Contains(norm, "dumb") {
		profile = TermProfile{Colors: 0, TrueColor: false, IsTTY: false}
	}
	if strings.Contains(norm, "screen") {
		profile.Colors = 8
	}

	return profile
}

// ResolveOptions controls how styles are resolved once a TERM profile exists.
type ResolveOptions struct {
	Term       string
	ForceColor bool
	ForceMono  bool
	Detector   TermProfileDetector
}

// Monochrome reports whether the descriptor palette should be replaced by the
// grayscale fallback. Themes are hand-tuned hex palettes; below 256 colors the
// quantized result loses the contrast between text and card background.
func (o ResolveOptions) Monochrome() bool {
	if o.ForceMono {
		return true
	}
	if o.ForceColor {
		return false
	}
	detector := o.Detector
	if detector == nil {
		detector = DetectTermProfile
	}
	profile := detector(o.Term)
	if !profile.IsTTY {
		return true
	}
	return profile.Colors < 256
}

// Styles are the lipgloss styles a view needs to render one descriptor.
type Styles struct {
	Casing Casing
	Mono   bool
	// Palette is the palette the styles were built from, after the
	// monochrome fallback.
	Palette Palette

	Screen      lipgloss.Style
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Accent      lipgloss.Style
	Card        lipgloss.Style
	CardTitle   lipgloss.Style
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
	Muted       lipgloss.Style
	Status      lipgloss.Style
}

// ResolveStyles builds the styles for d on renderer r. A nil renderer uses the
// lipgloss default renderer.
func ResolveStyles(r *lipgloss.Renderer, d Descriptor, opts ResolveOptions) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	p := d.Colors
	mono := opts.Monochrome()
	if mono {
		p = grayscalePalette()
	}

	return Styles{
		Casing:      d.casing(),
		Mono:        mono,
		Palette:     p,
		Screen:      r.NewStyle().Foreground(lipgloss.Color(p.Text)).Background(lipgloss.Color(p.Background)),
		Title:       r.NewStyle().Foreground(lipgloss.Color(p.Text)).Bold(true),
		Subtitle:    r.NewStyle().Foreground(lipgloss.Color(p.TextSecondary)),
		Accent:      r.NewStyle().Foreground(lipgloss.Color(p.Accent)).Bold(true),
		Card:        r.NewStyle().Foreground(lipgloss.Color(p.Text)).Background(lipgloss.Color(p.CardBackground)).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(p.Secondary)).Padding(1, 2),
		CardTitle:   r.NewStyle().Foreground(lipgloss.Color(p.TextSecondary)).Bold(true),
		TabActive:   r.NewStyle().Foreground(lipgloss.Color(p.Text)).Background(lipgloss.Color(p.Primary)).Bold(true).Padding(0, 3),
		TabInactive: r.NewStyle().Foreground(lipgloss.Color(p.Text)).Faint(true).Padding(0, 3),
		Muted:       r.NewStyle().Foreground(lipgloss.Color(p.TextSecondary)).Faint(true),
		Status:      r.NewStyle().Foreground(lipgloss.Color(p.Accent)),
	}
}

// Apply runs the descriptor's casing directive over s.
func (s Styles) Apply(text string) string {
	return ApplyCasing(s.Casing, text)
}

// ApplyCasing transforms text according to the casing directive. Casers keep
// state, so one is built per call.
func ApplyCasing(c Casing, text string) string {
	if c != CasingUppercase {
		return text
	}
	return cases.Upper(language.Und).String(text)
}

func grayscalePalette() Palette {
	return Palette{
		Primary:        "#111111",
		Secondary:      "#8F8F8F",
		Accent:         "#FFFFFF",
		Background:     "#000000",
		Text:           "#F2F2F2",
		TextSecondary:  "#CFCFCF",
		CardBackground: "#222222",
	}
}
