package theme

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lucasb-eyer/go-colorful"
)

var (
	// ErrUnknownTheme is returned when a requested id has no registry entry.
	ErrUnknownTheme = errors.New("unknown theme")
	// ErrInvalidRegistry is returned when registry data fails validation.
	ErrInvalidRegistry = errors.New("invalid theme registry")
)

// Registry is the fixed id -> Descriptor mapping consulted by the Store.
type Registry struct {
	neutral ID
	byID    map[ID]Descriptor
	order   []ID
}

// NewRegistry validates and indexes descriptors. The neutral id must be among
// them; it is the initial value of every Store built on the registry.
func NewRegistry(neutral ID, descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{neutral: neutral, byID: make(map[ID]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		if strings.TrimSpace(string(d.ID)) == "" {
			return nil, fmt.Errorf("%w: descriptor %q has an empty id", ErrInvalidRegistry, d.Name)
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidRegistry, d.ID)
		}
		if err := validateDescriptor(d); err != nil {
			return nil, err
		}
		r.byID[d.ID] = d.clone()
		r.order = append(r.order, d.ID)
	}
	if _, ok := r.byID[neutral]; !ok {
		return nil, fmt.Errorf("%w: neutral id %q not defined", ErrInvalidRegistry, neutral)
	}
	return r, nil
}

// DefaultRegistry returns the built-in neutral, Expedition 33 and Baldur's
// Gate 3 themes.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(IDNeutral, builtinDescriptors()...)
	if err != nil {
		panic(fmt.Sprintf("theme: builtin registry: %v", err))
	}
	return r
}

type registryFile struct {
	Neutral ID           `toml:"neutral"`
	Themes  []Descriptor `toml:"themes"`
}

// LoadRegistryFile reads a TOML registry:
//
//	neutral = "neutral"
//
//	[[themes]]
//	id = "neutral"
//	name = "Choose your coupon"
//	audio = "/audio/christmas.mp3"
//	[themes.colors]
//	primary = "#c41e3a"
//	...
//
// Unknown keys are rejected so typos do not silently fall back to defaults.
func LoadRegistryFile(path string) (*Registry, error) {
	var file registryFile
	meta, err := toml.DecodeFile(path, &file)
	if err != nil {
		return nil, fmt.Errorf("decode theme file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: unknown keys in %s: %s", ErrInvalidRegistry, path, strings.Join(keys, ", "))
	}
	neutral := file.Neutral
	if neutral == "" {
		neutral = IDNeutral
	}
	return NewRegistry(neutral, file.Themes...)
}

// Lookup returns a copy of the descriptor registered under id.
func (r *Registry) Lookup(id ID) (Descriptor, bool) {
	d, ok := r.byID[id]
	if !ok {
		return Descriptor{}, false
	}
	return d.clone(), true
}

// Neutral returns the reserved initial descriptor.
func (r *Registry) Neutral() Descriptor {
	return r.byID[r.neutral].clone()
}

// IDs lists registered ids in definition order.
func (r *Registry) IDs() []ID {
	return append([]ID(nil), r.order...)
}

func validateDescriptor(d Descriptor) error {
	switch d.casing() {
	case CasingNone, CasingUppercase:
	default:
		return fmt.Errorf("%w: theme %q: unsupported text_transform %q", ErrInvalidRegistry, d.ID, d.Casing)
	}

	solid := map[string]string{
		"primary":        d.Colors.Primary,
		"secondary":      d.Colors.Secondary,
		"accent":         d.Colors.Accent,
		"background":     d.Colors.Background,
		"text":           d.Colors.Text,
		"text_secondary": d.Colors.TextSecondary,
		"card_bg":        d.Colors.CardBackground,
	}
	for slot, value := range solid {
		if _, err := colorful.Hex(value); err != nil {
			return fmt.Errorf("%w: theme %q: color %s=%q: %v", ErrInvalidRegistry, d.ID, slot, value, err)
		}
	}
	for slot, value := range map[string]string{"background_gradient": d.Colors.BackgroundGradient, "card_gradient": d.Colors.CardGradient} {
		if value == "" {
			continue
		}
		if _, err := GradientStops(value); err != nil {
			return fmt.Errorf("%w: theme %q: %s: %v", ErrInvalidRegistry, d.ID, slot, err)
		}
	}
	return nil
}

// GradientStops parses a comma separated list of hex colors.
func GradientStops(value string) ([]colorful.Color, error) {
	parts := strings.Split(value, ",")
	stops := make([]colorful.Color, 0, len(parts))
	for _, part := range parts {
		c, err := colorful.Hex(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("gradient stop %q: %w", part, err)
		}
		stops = append(stops, c)
	}
	return stops, nil
}
