package theme

import "fmt"

// ID identifies a theme in the registry.
type ID string

const (
	IDNeutral      ID = "neutral"
	IDExpedition33 ID = "expedition33"
	IDBaldursGate3 ID = "baldursgate3"
)

// Casing is the text-casing directive applied to themed copy.
type Casing string

const (
	CasingNone      Casing = "none"
	CasingUppercase Casing = "uppercase"
)

// TrackRef points at an audio track understood by the audio backend.
type TrackRef string

// Palette defines the color slots consumed by the presentation layer.
type Palette struct {
	Primary            string `toml:"primary"`
	Secondary          string `toml:"secondary"`
	Accent             string `toml:"accent"`
	Background         string `toml:"background"`
	BackgroundGradient string `toml:"background_gradient"`
	Text               string `toml:"text"`
	TextSecondary      string `toml:"text_secondary"`
	CardBackground     string `toml:"card_bg"`
	CardGradient       string `toml:"card_gradient"`
}

// Coupon is the themed content revealed once a selection settles.
type Coupon struct {
	Name         string   `toml:"name"`
	Description  string   `toml:"description"`
	Instructions []string `toml:"instructions"`
	Image        string   `toml:"image"`
	Logo         string   `toml:"logo"`
}

// Descriptor is an immutable bundle of palette, typography, casing and audio.
// Values returned from the registry or the Store are copies.
type Descriptor struct {
	ID     ID       `toml:"id"`
	Name   string   `toml:"name"`
	Font   string   `toml:"font"`
	Casing Casing   `toml:"text_transform"`
	Colors Palette  `toml:"colors"`
	Audio  TrackRef `toml:"audio"`
	Coupon Coupon   `toml:"coupon"`
}

func (d Descriptor) clone() Descriptor {
	if d.Coupon.Instructions != nil {
		d.Coupon.Instructions = append([]string(nil), d.Coupon.Instructions...)
	}
	return d
}

// casing normalizes an empty directive to CasingNone.
func (d Descriptor) casing() Casing {
	if d.Casing == "" {
		return CasingNone
	}
	return d.Casing
}

var couponRules = []string{
	"This coupon grants the bearer the sacred and unquestionable right to claim one (1) copy of %s for PS5",
	"This coupon is valid for 3 months from the date of issue",
	"After expiration, please contact Administration to negotiate a possible gift exchange (no guarantees, no promises, no refunds)",
	"This coupon can be combined with the Birthday Coupon, increasing its power level and allowing the user to obtain both gifts at the same time, avoiding the suffering of choosing only one",
	"Non-transferable (unless Administration randomly approves it)",
	"No cash value",
	"Void if lost, eaten, or if it suffers emotional damage",
}

func builtinDescriptors() []Descriptor {
	return []Descriptor{
		{
			ID:     IDNeutral,
			Name:   "Choose your coupon",
			Font:   "system-ui, -apple-system, sans-serif",
			Casing: CasingNone,
			Colors: Palette{
				Primary:            "#c41e3a",
				Secondary:          "#2d5016",
				Accent:             "#ffd700",
				Background:         "#1a1a2e",
				BackgroundGradient: "#c41e3a,#8b2635,#2d5016,#1e3a0f",
				Text:               "#ffffff",
				TextSecondary:      "#ffd700",
				CardBackground:     "#2a1a1a",
				CardGradient:       "#c41e3a,#2d5016",
			},
			Audio:  "/audio/christmas.mp3",
			Coupon: Coupon{Name: "placeholder"},
		},
		{
			ID:     IDExpedition33,
			Name:   "Clair Obscur: Expedition 33",
			Font:   "'Cinzel', serif",
			Casing: CasingNone,
			Colors: Palette{
				Primary:            "#2a2a2a",
				Secondary:          "#b8945f",
				Accent:             "#6b4c9a",
				Background:         "#1a1a1a",
				BackgroundGradient: "#1a1a1a,#2a2a2a,#3d3154",
				Text:               "#e8e8e8",
				TextSecondary:      "#b8945f",
				CardBackground:     "#2a2a2a",
				CardGradient:       "#2a2a2a,#3d3154",
			},
			Audio: "/audio/alicia.mp3",
			Coupon: Coupon{
				Name:         "Clair Obscur: Expedition 33",
				Description:  "F-JRPG AKA: The only good thing the French have done",
				Instructions: rulesFor("Clair Obscur: Expedition 33"),
				Image:        "/images/ex33-coupon.png",
				Logo:         "/images/ex33-logo.webp",
			},
		},
		{
			ID:     IDBaldursGate3,
			Name:   "Baldur's Gate 3",
			Font:   "'Alegreya', serif",
			Casing: CasingUppercase,
			Colors: Palette{
				Primary:            "#744979",
				Secondary:          "#e0a40b",
				Accent:             "#b84028",
				Background:         "#2d1b2e",
				BackgroundGradient: "#2d1b2e,#744979,#d0a1d3",
				Text:               "#f0d794",
				TextSecondary:      "#d0a1d3",
				CardBackground:     "#3d2940",
				CardGradient:       "#3d2940,#744979",
			},
			Audio: "/audio/down-by-the-river.mp3",
			Coupon: Coupon{
				Name:         "Baldur's Gate 3",
				Description:  "Undoubtedly the GOTC",
				Instructions: rulesFor("Baldur's Gate 3"),
				Image:        "/images/baldursgate3.jpg",
				Logo:         "/images/bg3-logo.png",
			},
		},
	}
}

func rulesFor(game string) []string {
	out := make([]string, len(couponRules))
	for i, rule := range couponRules {
		if i == 0 {
			rule = fmt.Sprintf(rule, game)
		}
		out[i] = rule
	}
	return out
}
