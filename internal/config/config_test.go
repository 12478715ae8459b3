package config

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/Faultbox/vertexlight/internal/lighting"
	"github.com/Faultbox/vertexlight/internal/mesh"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Test painter defaults
	if cfg.Painter.Attribute != "VertexLight" {
		t.Errorf("expected attribute VertexLight, got %s", cfg.Painter.Attribute)
	}
	if time.Duration(cfg.Painter.Interval) != 200*time.Millisecond {
		t.Errorf("expected interval 200ms, got %v", time.Duration(cfg.Painter.Interval))
	}
	if cfg.Painter.PositionThreshold != 1e-4 {
		t.Errorf("expected position threshold 1e-4, got %v", cfg.Painter.PositionThreshold)
	}
	if !cfg.Painter.CommitOnExit {
		t.Error("expected commit_on_exit to be true by default")
	}

	// Test emitter defaults
	if cfg.Emitter.Type != lighting.Point {
		t.Errorf("expected point light, got %s", cfg.Emitter.Type)
	}
	if cfg.Emitter.Range != 5 {
		t.Errorf("expected range 5, got %v", cfg.Emitter.Range)
	}

	// Test logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestDefaultEmitterPointsUp(t *testing.T) {
	_, rot := Default().Emitter.Transform()
	fwd := lighting.Forward(rot)
	if math.Abs(float64(fwd.Y-1)) > 1e-5 {
		t.Errorf("expected forward +Y, got %+v", fwd)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
painter:
  attribute: "Glow"
  interval: 100ms
  rotation_threshold: 0.01
  commit_on_exit: false

emitter:
  type: spot
  color: "#ff0000"
  strength: 0.5
  range: 8
  spot_angle: 45
  mode: sharp
  darken: true
  position: [1, 2, 3]
  target: [1, 2, 0]

scene:
  path: "scene.yaml"
  output: "out.yaml"

logging:
  level: "debug"
  log_file: "vlpaint.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Load config
	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify values were loaded
	if cfg.Painter.Attribute != "Glow" {
		t.Errorf("expected attribute Glow, got %s", cfg.Painter.Attribute)
	}
	if time.Duration(cfg.Painter.Interval) != 100*time.Millisecond {
		t.Errorf("expected interval 100ms, got %v", time.Duration(cfg.Painter.Interval))
	}
	if cfg.Painter.RotationThreshold != 0.01 {
		t.Errorf("expected rotation threshold 0.01, got %v", cfg.Painter.RotationThreshold)
	}
	if cfg.Painter.CommitOnExit {
		t.Error("expected commit_on_exit to be false")
	}
	// Untouched fields keep their defaults
	if cfg.Painter.PositionThreshold != 1e-4 {
		t.Errorf("expected default position threshold, got %v", cfg.Painter.PositionThreshold)
	}

	s, err := cfg.Emitter.Settings()
	if err != nil {
		t.Fatalf("emitter settings: %v", err)
	}
	if s.Type != lighting.Spot || s.Mode != lighting.Sharp || !s.Darken {
		t.Errorf("unexpected settings %+v", s)
	}
	if s.Color != [3]float32{1, 0, 0} {
		t.Errorf("expected red, got %v", s.Color)
	}
	if s.SpotAngle != 45 || s.Range != 8 || s.Strength != 0.5 {
		t.Errorf("unexpected spot settings %+v", s)
	}

	pos, rot := cfg.Emitter.Transform()
	if pos.X != 1 || pos.Y != 2 || pos.Z != 3 {
		t.Errorf("unexpected position %+v", pos)
	}
	if fwd := lighting.Forward(rot); math.Abs(float64(fwd.Z+1)) > 1e-5 {
		t.Errorf("expected forward -Z toward target, got %+v", fwd)
	}

	if cfg.Scene.Path != "scene.yaml" || cfg.Scene.Output != "out.yaml" {
		t.Errorf("unexpected scene config %+v", cfg.Scene)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.LogFile != "vlpaint.log" {
		t.Errorf("unexpected logging config %+v", cfg.Logging)
	}
}

func TestLoadFromTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	tomlContent := `
[painter]
attribute = "Col"
interval = "75ms"

[emitter]
type = "area"
area_width = 3.0
area_height = 1.5
color = "#808080"
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Painter.Attribute != "Col" {
		t.Errorf("expected attribute Col, got %s", cfg.Painter.Attribute)
	}
	if time.Duration(cfg.Painter.Interval) != 75*time.Millisecond {
		t.Errorf("expected interval 75ms, got %v", time.Duration(cfg.Painter.Interval))
	}
	if cfg.Emitter.Type != lighting.Area || cfg.Emitter.AreaWidth != 3 || cfg.Emitter.AreaHeight != 1.5 {
		t.Errorf("unexpected emitter config %+v", cfg.Emitter)
	}

	// sRGB mid grey is about 0.216 in linear space
	s, err := cfg.Emitter.Settings()
	if err != nil {
		t.Fatalf("emitter settings: %v", err)
	}
	if math.Abs(float64(s.Color[0])-0.2158) > 1e-3 {
		t.Errorf("expected linear grey ~0.216, got %v", s.Color[0])
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	// Create temporary config file with invalid YAML
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
painter:
  interval: not a duration
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Try to load - should error
	cfg := Default()
	err := loadFromFile(cfg, configPath)
	if err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileUnknownLightType(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("emitter:\n  type: laser\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if err := loadFromFile(Default(), configPath); err == nil {
		t.Error("expected error for unknown light type, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty attribute", func(c *Config) { c.Painter.Attribute = "" }},
		{"interval below minimum", func(c *Config) { c.Painter.Interval = Duration(10 * time.Millisecond) }},
		{"negative threshold", func(c *Config) { c.Painter.PositionThreshold = -1 }},
		{"bad color", func(c *Config) { c.Emitter.Color = "orange" }},
		{"zero range", func(c *Config) { c.Emitter.Range = 0 }},
		{"spot angle", func(c *Config) { c.Emitter.Type = lighting.Spot; c.Emitter.SpotAngle = 120 }},
		{"unknown convert domain", func(c *Config) { c.Painter.ConvertTo = "edge" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestColorRoundTrip(t *testing.T) {
	for _, hex := range []string{"#000000", "#ffffff", "#ff8800", "#123456"} {
		c, err := ParseColor(hex)
		if err != nil {
			t.Fatalf("ParseColor(%s): %v", hex, err)
		}
		if got := FormatColor(c); got != hex {
			t.Errorf("FormatColor(ParseColor(%s)) = %s", hex, got)
		}
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	// Just verify it returns a non-empty path
	// Actual path depends on OS
	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}

	// Verify path is absolute
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	// Save current directory
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	// Create temp directory and change to it
	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	// No config file exists - should return empty
	path := findConfigFile()
	if path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	// Create vlpaint.toml in current directory
	configPath := filepath.Join(tmpDir, "vlpaint.toml")
	if err := os.WriteFile(configPath, []byte("[painter]\nattribute = \"X\"\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	// Should find it now
	path = findConfigFile()
	if path == "" {
		t.Error("expected to find vlpaint.toml in current directory")
	}
}

func TestSaveTo(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Default()
	cfg.Painter.Attribute = "Saved"
	cfg.Painter.Interval = Duration(150 * time.Millisecond)
	cfg.Emitter.Type = lighting.Sun
	target := [3]float32{0, 0, 0}
	cfg.Emitter.Target = &target

	for _, name := range []string{"nested/config.yaml", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(tmpDir, name)
			if err := cfg.SaveTo(path); err != nil {
				t.Fatalf("SaveTo: %v", err)
			}

			loaded := Default()
			if err := loadFromFile(loaded, path); err != nil {
				t.Fatalf("reload: %v", err)
			}
			if loaded.Painter.Attribute != "Saved" {
				t.Errorf("expected attribute Saved, got %s", loaded.Painter.Attribute)
			}
			if loaded.Painter.Interval != cfg.Painter.Interval {
				t.Errorf("expected interval %v, got %v", cfg.Painter.Interval, loaded.Painter.Interval)
			}
			if loaded.Emitter.Type != lighting.Sun {
				t.Errorf("expected sun, got %s", loaded.Emitter.Type)
			}
			if loaded.Emitter.Target == nil || *loaded.Emitter.Target != target {
				t.Errorf("expected target to round trip, got %v", loaded.Emitter.Target)
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*Config)
		teardown func()
	}{
		{
			name: "debug flag",
			setup: func() {
				*flagDebug = true
			},
			verify: func(cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() {
				*flagDebug = false
			},
		},
		{
			name: "scene flags",
			setup: func() {
				*flagScene = "in.yaml"
				*flagEmitter = "emitter.yaml"
				*flagOutput = "out.yaml"
			},
			verify: func(cfg *Config) {
				if cfg.Scene.Path != "in.yaml" || cfg.Scene.EmitterPath != "emitter.yaml" || cfg.Scene.Output != "out.yaml" {
					t.Errorf("unexpected scene config %+v", cfg.Scene)
				}
			},
			teardown: func() {
				*flagScene = ""
				*flagEmitter = ""
				*flagOutput = ""
			},
		},
		{
			name: "light flags",
			setup: func() {
				*flagLight = "sun"
				*flagColor = "#00ff00"
			},
			verify: func(cfg *Config) {
				if cfg.Emitter.Type != lighting.Sun {
					t.Errorf("expected sun, got %s", cfg.Emitter.Type)
				}
				if cfg.Emitter.Color != "#00ff00" {
					t.Errorf("expected color #00ff00, got %s", cfg.Emitter.Color)
				}
			},
			teardown: func() {
				*flagLight = ""
				*flagColor = ""
			},
		},
		{
			name: "painter flags",
			setup: func() {
				*flagAttribute = "Paint"
				*flagInterval = 80 * time.Millisecond
				*flagDiscard = true
				*flagNoWatch = true
			},
			verify: func(cfg *Config) {
				if cfg.Painter.Attribute != "Paint" {
					t.Errorf("expected attribute Paint, got %s", cfg.Painter.Attribute)
				}
				if time.Duration(cfg.Painter.Interval) != 80*time.Millisecond {
					t.Errorf("expected interval 80ms, got %v", time.Duration(cfg.Painter.Interval))
				}
				if cfg.Painter.CommitOnExit {
					t.Error("expected commit_on_exit false with discard flag")
				}
				if cfg.Scene.Watch {
					t.Error("expected watch false with no-watch flag")
				}
			},
			teardown: func() {
				*flagAttribute = ""
				*flagInterval = 0
				*flagDiscard = false
				*flagNoWatch = false
			},
		},
		{
			name: "convert flag",
			setup: func() {
				*flagConvert = "corner"
			},
			verify: func(cfg *Config) {
				d, ok, err := cfg.Painter.Convert()
				if err != nil || !ok || d != mesh.DomainCorner {
					t.Errorf("expected corner conversion, got %v %v %v", d, ok, err)
				}
			},
			teardown: func() {
				*flagConvert = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			tt.setup()
			defer tt.teardown()

			// Apply flags to default config
			cfg := Default()
			if err := applyFlags(cfg); err != nil {
				t.Fatalf("applyFlags: %v", err)
			}

			// Verify
			tt.verify(cfg)
		})
	}
}

func TestApplyFlagsBadLight(t *testing.T) {
	*flagLight = "laser"
	defer func() { *flagLight = "" }()

	if err := applyFlags(Default()); err == nil {
		t.Error("expected error for unknown light type, got nil")
	}
}

func TestLoadPriority(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
painter:
  attribute: "FromFile"
  interval: 300ms
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagAttribute = "FromFlag"
	defer func() {
		*flagConfig = ""
		*flagAttribute = ""
	}()

	// Load config
	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Attribute should be from flag, not file
	if cfg.Painter.Attribute != "FromFlag" {
		t.Errorf("expected attribute FromFlag, got %s", cfg.Painter.Attribute)
	}

	// Interval should be from file since no flag override
	if time.Duration(cfg.Painter.Interval) != 300*time.Millisecond {
		t.Errorf("expected interval 300ms from file, got %v", time.Duration(cfg.Painter.Interval))
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("painter:\n  interval: 1ms\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected error for interval below minimum, got nil")
	}
}

func TestLoadRejectsNaNRange(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("emitter:\n  range: .nan\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected error for NaN range, got nil")
	}
}

func TestConvertDefaultsToNone(t *testing.T) {
	_, ok, err := Default().Painter.Convert()
	if err != nil || ok {
		t.Errorf("expected no conversion by default, got ok=%v err=%v", ok, err)
	}
}

func TestLive(t *testing.T) {
	cfg := Default()
	if cfg.Live() {
		t.Error("expected a single pass without an emitter file")
	}

	cfg.Scene.EmitterPath = "emitter.yaml"
	if !cfg.Live() {
		t.Error("expected live painting with an emitter file")
	}

	cfg.Scene.Watch = false
	if cfg.Live() {
		t.Error("expected a single pass with watch disabled")
	}
}

func TestSave(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME is only read on linux")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Painter.ConvertTo = "point"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, filepath.Join(ConfigDir(), "config.yaml")); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Painter.ConvertTo != "point" {
		t.Errorf("expected convert_to point, got %q", loaded.Painter.ConvertTo)
	}
}
