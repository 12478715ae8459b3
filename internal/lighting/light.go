// Package lighting provides emitter settings and the falloff model that turns
// an emitter and a surface point into an illumination intensity.
package lighting

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chewxy/math32"
)

// ErrInvalidSettings is wrapped by every Validate failure.
var ErrInvalidSettings = errors.New("invalid light settings")

// LightType selects the falloff model.
type LightType uint8

const (
	// Sun is a directional light with no range limit.
	Sun LightType = iota
	// Point is an omnidirectional light with linear falloff to Range.
	Point
	// Spot is a Point light restricted to a cone around the forward axis.
	Spot
	// Area is a rectangular light emitting along its local -Z axis.
	Area
)

var lightTypeNames = [...]string{"sun", "point", "spot", "area"}

// String returns the lowercase type name.
func (t LightType) String() string {
	if int(t) < len(lightTypeNames) {
		return lightTypeNames[t]
	}
	return fmt.Sprintf("light(%d)", t)
}

// UsesRange reports whether the light has a finite range.
func (t LightType) UsesRange() bool {
	return t != Sun
}

// ParseLightType converts a name to a LightType.
func ParseLightType(s string) (LightType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range lightTypeNames {
		if n == name {
			return LightType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown light type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t LightType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *LightType) UnmarshalText(text []byte) error {
	v, err := ParseLightType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// BlendMode shapes the intensity before compositing.
type BlendMode uint8

const (
	// Normal leaves the intensity unchanged.
	Normal BlendMode = iota
	// Sharp squares the intensity for a high-contrast edge.
	Sharp
	// Dirty halves the intensity.
	Dirty
)

var blendModeNames = [...]string{"normal", "sharp", "dirty"}

// String returns the lowercase mode name.
func (m BlendMode) String() string {
	if int(m) < len(blendModeNames) {
		return blendModeNames[m]
	}
	return fmt.Sprintf("mode(%d)", m)
}

// ParseBlendMode converts a name to a BlendMode.
func ParseBlendMode(s string) (BlendMode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range blendModeNames {
		if n == name {
			return BlendMode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown blend mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m BlendMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *BlendMode) UnmarshalText(text []byte) error {
	v, err := ParseBlendMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Limits on settings values.
const (
	MinRange     = 0.1
	MinSpotAngle = 1.0
	MaxSpotAngle = 90.0
	MinAreaSize  = 0.1
)

// Settings describes everything about the emitter except its transform.
type Settings struct {
	Type       LightType
	Color      [3]float32 // RGB emission color (0-1 range)
	Strength   float32    // Intensity multiplier (0-1)
	Range      float32    // Falloff distance, ignored for Sun
	SpotAngle  float32    // Cone half-angle in degrees
	AreaWidth  float32
	AreaHeight float32
	Mode       BlendMode
	Darken     bool // Halve the blend rate toward the emission color
}

// DefaultSettings returns a white point light with a range of 5.
func DefaultSettings() Settings {
	return Settings{
		Type:       Point,
		Color:      [3]float32{1, 1, 1},
		Strength:   1,
		Range:      5,
		SpotAngle:  30,
		AreaWidth:  2,
		AreaHeight: 2,
		Mode:       Normal,
	}
}

// Validate checks every field against its allowed range.
func (s Settings) Validate() error {
	if int(s.Type) >= len(lightTypeNames) {
		return fmt.Errorf("%w: light type %d", ErrInvalidSettings, s.Type)
	}
	if int(s.Mode) >= len(blendModeNames) {
		return fmt.Errorf("%w: blend mode %d", ErrInvalidSettings, s.Mode)
	}
	for i, c := range s.Color {
		if !inUnit(c) {
			return fmt.Errorf("%w: color channel %d is %v, want 0-1", ErrInvalidSettings, i, c)
		}
	}
	if !inUnit(s.Strength) {
		return fmt.Errorf("%w: strength %v, want 0-1", ErrInvalidSettings, s.Strength)
	}
	if s.Type.UsesRange() && !atLeast(s.Range, MinRange) {
		return fmt.Errorf("%w: range %v below minimum %v", ErrInvalidSettings, s.Range, MinRange)
	}
	if s.Type == Spot && !(s.SpotAngle >= MinSpotAngle && s.SpotAngle <= MaxSpotAngle) {
		return fmt.Errorf("%w: spot angle %v, want %v-%v", ErrInvalidSettings, s.SpotAngle, MinSpotAngle, MaxSpotAngle)
	}
	if s.Type == Area && !(atLeast(s.AreaWidth, MinAreaSize) && atLeast(s.AreaHeight, MinAreaSize)) {
		return fmt.Errorf("%w: area size %vx%v below minimum %v", ErrInvalidSettings, s.AreaWidth, s.AreaHeight, MinAreaSize)
	}
	return nil
}

// inUnit rejects NaN as well as values outside [0, 1].
func inUnit(v float32) bool {
	return v >= 0 && v <= 1
}

func atLeast(v, lo float32) bool {
	return v >= lo && !math32.IsInf(v, 1)
}

// Delta is a partial settings update. Nil fields are left unchanged.
type Delta struct {
	Type       *LightType
	Color      *[3]float32
	Strength   *float32
	Range      *float32
	SpotAngle  *float32
	AreaWidth  *float32
	AreaHeight *float32
	Mode       *BlendMode
	Darken     *bool
}

// IsEmpty reports whether the delta changes nothing.
func (d Delta) IsEmpty() bool {
	return d == Delta{}
}

// Apply returns s with the delta's fields applied. The result is validated;
// on error s is returned unchanged.
func (s Settings) Apply(d Delta) (Settings, error) {
	next := s
	if d.Type != nil {
		next.Type = *d.Type
	}
	if d.Color != nil {
		next.Color = *d.Color
	}
	if d.Strength != nil {
		next.Strength = *d.Strength
	}
	if d.Range != nil {
		next.Range = *d.Range
	}
	if d.SpotAngle != nil {
		next.SpotAngle = *d.SpotAngle
	}
	if d.AreaWidth != nil {
		next.AreaWidth = *d.AreaWidth
	}
	if d.AreaHeight != nil {
		next.AreaHeight = *d.AreaHeight
	}
	if d.Mode != nil {
		next.Mode = *d.Mode
	}
	if d.Darken != nil {
		next.Darken = *d.Darken
	}
	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}

// Diff returns the delta that turns s into other.
func (s Settings) Diff(other Settings) Delta {
	var d Delta
	if other.Type != s.Type {
		d.Type = &other.Type
	}
	if other.Color != s.Color {
		d.Color = &other.Color
	}
	if other.Strength != s.Strength {
		d.Strength = &other.Strength
	}
	if other.Range != s.Range {
		d.Range = &other.Range
	}
	if other.SpotAngle != s.SpotAngle {
		d.SpotAngle = &other.SpotAngle
	}
	if other.AreaWidth != s.AreaWidth {
		d.AreaWidth = &other.AreaWidth
	}
	if other.AreaHeight != s.AreaHeight {
		d.AreaHeight = &other.AreaHeight
	}
	if other.Mode != s.Mode {
		d.Mode = &other.Mode
	}
	if other.Darken != s.Darken {
		d.Darken = &other.Darken
	}
	return d
}
