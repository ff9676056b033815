package theme

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectTermProfileTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		term string
		want TermProfile
	}{
		{name: "xterm", term: "xterm", want: TermProfile{Colors: 16, IsTTY: true}},
		{name: "xterm-256color", term: "xterm-256color", want: TermProfile{Colors: 256, IsTTY: true}},
		{name: "screen", term: "screen", want: TermProfile{Colors: 8, IsTTY: true}},
		{name: "tmux", term: "tmux", want: TermProfile{Colors: 256, IsTTY: true}},
		{name: "dumb", term: "dumb", want: TermProfile{Colors: 0, IsTTY: false}},
		{name: "empty", term: "", want: TermProfile{Colors: 0, IsTTY: false}},
		{name: "kitty truecolor", term: "xterm-kitty", want: TermProfile{Colors: 1 << 24, TrueColor: true, IsTTY: true}},
		{name: "unknown truecolor", term: "foot-truecolor", want: TermProfile{Colors: 1 << 24, TrueColor: true, IsTTY: true}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DetectTermProfile(tt.term); got != tt.want {
				t.Fatalf("DetectTermProfile(%q) = %+v, want %+v", tt.term, got, tt.want)
			}
		})
	}
}

func TestDefaultRegistryHasNeutralAndBothOptions(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	if got := r.Neutral().ID; got != IDNeutral {
		t.Fatalf("Neutral().ID = %q", got)
	}
	for _, id := range []ID{IDNeutral, IDExpedition33, IDBaldursGate3} {
		d, ok := r.Lookup(id)
		if !ok {
			t.Fatalf("Lookup(%q) missing", id)
		}
		if d.Audio == "" {
			t.Fatalf("theme %q has no audio track", id)
		}
	}
	if _, ok := r.Lookup("mystery"); ok {
		t.Fatal("Lookup(mystery) reported a descriptor")
	}
}

func TestRegistryLookupReturnsCopies(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	first, _ := r.Lookup(IDBaldursGate3)
	first.Coupon.Instructions[0] = "tampered"
	first.Colors.Primary = "#000000"

	second, _ := r.Lookup(IDBaldursGate3)
	if second.Coupon.Instructions[0] == "tampered" || second.Colors.Primary != "#744979" {
		t.Fatalf("registry descriptor was mutated through a lookup copy")
	}
}

func TestNewRegistryValidation(t *testing.T) {
	t.Parallel()

	valid := builtinDescriptors()[0]
	badColor := valid
	badColor.ID = "bad"
	badColor.Colors.Accent = "gold"
	badCasing := valid
	badCasing.ID = "shouty"
	badCasing.Casing = "title"

	tests := []struct {
		name        string
		neutral     ID
		descriptors []Descriptor
	}{
		{name: "missing neutral", neutral: "other", descriptors: []Descriptor{valid}},
		{name: "duplicate", neutral: IDNeutral, descriptors: []Descriptor{valid, valid}},
		{name: "bad color", neutral: IDNeutral, descriptors: []Descriptor{valid, badColor}},
		{name: "bad casing", neutral: IDNeutral, descriptors: []Descriptor{valid, badCasing}},
		{name: "empty id", neutral: IDNeutral, descriptors: []Descriptor{valid, {Name: "nameless"}}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewRegistry(tt.neutral, tt.descriptors...)
			if !errors.Is(err, ErrInvalidRegistry) {
				t.Fatalf("NewRegistry() error = %v, want ErrInvalidRegistry", err)
			}
		})
	}
}

const sampleThemeFile = `
neutral = "calm"

[[themes]]
id = "calm"
name = "Calm"
font = "serif"
audio = "/audio/calm.mp3"
[themes.colors]
primary = "#111111"
secondary = "#222222"
accent = "#333333"
background = "#000000"
text = "#ffffff"
text_secondary = "#eeeeee"
card_bg = "#101010"

[[themes]]
id = "loud"
name = "Loud"
font = "sans"
text_transform = "uppercase"
audio = "/audio/loud.mp3"
[themes.colors]
primary = "#ff0000"
secondary = "#00ff00"
accent = "#0000ff"
background = "#000000"
background_gradient = "#000000, #ff0000"
text = "#ffffff"
text_secondary = "#eeeeee"
card_bg = "#101010"
[themes.coupon]
name = "Loud Coupon"
instructions = ["shout", "twice"]
`

func TestLoadRegistryFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "themes.toml")
	if err := os.WriteFile(path, []byte(sampleThemeFile), 0o600); err != nil {
		t.Fatal(err)
	}

	r, err := LoadRegistryFile(path)
	if err != nil {
		t.Fatalf("LoadRegistryFile() error = %v", err)
	}
	if r.Neutral().ID != "calm" {
		t.Fatalf("neutral = %q", r.Neutral().ID)
	}
	loud, ok := r.Lookup("loud")
	if !ok {
		t.Fatal("loud theme missing")
	}
	if loud.Casing != CasingUppercase || len(loud.Coupon.Instructions) != 2 {
		t.Fatalf("loud theme decoded as %+v", loud)
	}
	if got := r.IDs(); len(got) != 2 || got[0] != "calm" || got[1] != "loud" {
		t.Fatalf("IDs() = %v", got)
	}
}

func TestLoadRegistryFileRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "themes.toml")
	body := sampleThemeFile + "\n[[themes]]\nid = \"typo\"\ncolour = \"#fff\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRegistryFile(path); !errors.Is(err, ErrInvalidRegistry) {
		t.Fatalf("LoadRegistryFile() error = %v, want ErrInvalidRegistry", err)
	}
}

func TestApplyCasing(t *testing.T) {
	t.Parallel()

	if got := ApplyCasing(CasingUppercase, "Baldur's Gate"); got != "BALDUR'S GATE" {
		t.Fatalf("uppercase = %q", got)
	}
	if got := ApplyCasing(CasingNone, "Expedition"); got != "Expedition" {
		t.Fatalf("none = %q", got)
	}
}

func TestMonochromeDecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts ResolveOptions
		want bool
	}{
		{name: "truecolor", opts: ResolveOptions{Term: "wezterm"}, want: false},
		{name: "256 colors", opts: ResolveOptions{Term: "xterm-256color"}, want: false},
		{name: "16 colors", opts: ResolveOptions{Term: "xterm"}, want: true},
		{name: "no tty", opts: ResolveOptions{Term: ""}, want: true},
		{name: "force color", opts: ResolveOptions{Term: "dumb", ForceColor: true}, want: false},
		{name: "force mono", opts: ResolveOptions{Term: "wezterm", ForceMono: true}, want: true},
		{name: "custom detector", opts: ResolveOptions{Term: "anything", Detector: func(string) TermProfile {
			return TermProfile{Colors: 1 << 24, TrueColor: true, IsTTY: true}
		}}, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.opts.Monochrome(); got != tt.want {
				t.Fatalf("Monochrome() = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestResolveStylesCarriesCasing(t *testing.T) {
	t.Parallel()

	d, _ := DefaultRegistry().Lookup(IDBaldursGate3)
	styles := ResolveStyles(nil, d, ResolveOptions{Term: "wezterm"})
	if styles.Mono {
		t.Fatal("wezterm resolved to monochrome")
	}
	if got := styles.Apply("how to redeem"); got != "HOW TO REDEEM" {
		t.Fatalf("Apply() = %q", got)
	}
}
