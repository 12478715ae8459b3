// Package config handles vlpaint configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/Faultbox/vertexlight/internal/lighting"
	"github.com/Faultbox/vertexlight/internal/mesh"
	"github.com/Faultbox/vertexlight/internal/scheduler"
	"github.com/Faultbox/vertexlight/pkg/math"
)

// Config holds all vlpaint settings.
type Config struct {
	Painter PainterConfig `yaml:"painter" toml:"painter"`
	Emitter EmitterConfig `yaml:"emitter" toml:"emitter"`
	Scene   SceneConfig   `yaml:"scene" toml:"scene"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// PainterConfig holds paint session and scheduler settings.
type PainterConfig struct {
	Attribute         string   `yaml:"attribute" toml:"attribute"`
	Interval          Duration `yaml:"interval" toml:"interval"`
	PositionThreshold float32  `yaml:"position_threshold" toml:"position_threshold"`
	RotationThreshold float32  `yaml:"rotation_threshold" toml:"rotation_threshold"` // Radians
	PaintOnStart      bool     `yaml:"paint_on_start" toml:"paint_on_start"`
	CommitOnExit      bool     `yaml:"commit_on_exit" toml:"commit_on_exit"`
	SaveLayer         bool     `yaml:"save_layer" toml:"save_layer"`                     // Store the result as the saved layer on exit
	ConvertTo         string   `yaml:"convert_to,omitempty" toml:"convert_to,omitempty"` // "point" or "corner", applied before painting
}

// EmitterConfig holds the initial light settings and transform.
type EmitterConfig struct {
	Type       lighting.LightType `yaml:"type" toml:"type"`
	Color      string             `yaml:"color" toml:"color"` // Hex sRGB, e.g. "#ffcc88"
	Strength   float32            `yaml:"strength" toml:"strength"`
	Range      float32            `yaml:"range" toml:"range"`
	SpotAngle  float32            `yaml:"spot_angle" toml:"spot_angle"`
	AreaWidth  float32            `yaml:"area_width" toml:"area_width"`
	AreaHeight float32            `yaml:"area_height" toml:"area_height"`
	Mode       lighting.BlendMode `yaml:"mode" toml:"mode"`
	Darken     bool               `yaml:"darken" toml:"darken"`

	Position  [3]float32  `yaml:"position" toml:"position"`
	Longitude float32     `yaml:"longitude" toml:"longitude"` // Degrees around Y
	Latitude  float32     `yaml:"latitude" toml:"latitude"`   // Degrees above the horizon
	Target    *[3]float32 `yaml:"target,omitempty" toml:"target,omitempty"`
}

// SceneConfig holds input and output file paths.
type SceneConfig struct {
	Path        string `yaml:"path" toml:"path"`
	EmitterPath string `yaml:"emitter_path" toml:"emitter_path"` // Watched for live edits
	Output      string `yaml:"output" toml:"output"`
	Watch       bool   `yaml:"watch" toml:"watch"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	light := lighting.DefaultSettings()
	return &Config{
		Painter: PainterConfig{
			Attribute:         "VertexLight",
			Interval:          Duration(scheduler.DefaultInterval),
			PositionThreshold: scheduler.DefaultPositionThreshold,
			RotationThreshold: scheduler.DefaultRotationThreshold,
			PaintOnStart:      true,
			CommitOnExit:      true,
		},
		Emitter: EmitterConfig{
			Type:       light.Type,
			Color:      "#ffffff",
			Strength:   light.Strength,
			Range:      light.Range,
			SpotAngle:  light.SpotAngle,
			AreaWidth:  light.AreaWidth,
			AreaHeight: light.AreaHeight,
			Mode:       light.Mode,
			Latitude:   90,
		},
		Scene: SceneConfig{
			Watch: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks painter and emitter settings.
func (c *Config) Validate() error {
	if c.Painter.Attribute == "" {
		return errors.New("painter.attribute is empty")
	}
	if _, _, err := c.Painter.Convert(); err != nil {
		return fmt.Errorf("painter.convert_to: %w", err)
	}
	if err := c.Scheduler().Validate(); err != nil {
		return fmt.Errorf("painter: %w", err)
	}
	if _, err := c.Emitter.Settings(); err != nil {
		return fmt.Errorf("emitter: %w", err)
	}
	return nil
}

// Convert returns the domain the painted attribute is converted to before
// painting. ok is false when no conversion is configured.
func (p PainterConfig) Convert() (d mesh.Domain, ok bool, err error) {
	if p.ConvertTo == "" {
		return 0, false, nil
	}
	d, err = mesh.ParseDomain(p.ConvertTo)
	if err != nil {
		return 0, false, err
	}
	return d, true, nil
}

// Live reports whether painting follows emitter file edits. Without an
// emitter file there is nothing to watch, so the scene is painted once.
func (c *Config) Live() bool {
	return c.Scene.Watch && c.Scene.EmitterPath != ""
}

// Scheduler returns the scheduler settings.
func (c *Config) Scheduler() scheduler.Config {
	return scheduler.Config{
		Interval:          time.Duration(c.Painter.Interval),
		PositionThreshold: c.Painter.PositionThreshold,
		RotationThreshold: c.Painter.RotationThreshold,
		PaintOnStart:      c.Painter.PaintOnStart,
	}
}

// Settings converts the emitter section to validated light settings.
func (e EmitterConfig) Settings() (lighting.Settings, error) {
	color, err := ParseColor(e.Color)
	if err != nil {
		return lighting.Settings{}, err
	}
	s := lighting.Settings{
		Type:       e.Type,
		Color:      color,
		Strength:   e.Strength,
		Range:      e.Range,
		SpotAngle:  e.SpotAngle,
		AreaWidth:  e.AreaWidth,
		AreaHeight: e.AreaHeight,
		Mode:       e.Mode,
		Darken:     e.Darken,
	}
	if err := s.Validate(); err != nil {
		return lighting.Settings{}, err
	}
	return s, nil
}

// Transform returns the configured emitter position and orientation.
// A target overrides the longitude/latitude angles.
func (e EmitterConfig) Transform() (math.Vec3, math.Quat) {
	pos := math.Vec3{X: e.Position[0], Y: e.Position[1], Z: e.Position[2]}
	if e.Target != nil {
		target := math.Vec3{X: e.Target[0], Y: e.Target[1], Z: e.Target[2]}
		return pos, lighting.OrientationToward(pos, target)
	}
	return pos, lighting.OrientationFromAngles(e.Longitude, e.Latitude)
}

// ParseColor converts a hex sRGB color to linear RGB in [0, 1].
func ParseColor(hex string) ([3]float32, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return [3]float32{}, fmt.Errorf("color %q: %w", hex, err)
	}
	r, g, b := c.Clamped().LinearRgb()
	return [3]float32{float32(r), float32(g), float32(b)}, nil
}

// FormatColor converts linear RGB to a hex sRGB string.
func FormatColor(rgb [3]float32) string {
	return colorful.LinearRgb(float64(rgb[0]), float64(rgb[1]), float64(rgb[2])).Clamped().Hex()
}

// Duration is a time.Duration written as a string such as "200ms".
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
