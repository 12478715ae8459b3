package config

import (
	"flag"
	"fmt"

	"github.com/Faultbox/vertexlight/internal/lighting"
)

var (
	flagConfig    = flag.String("config", "", "Path to config file (.yaml or .toml)")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagScene     = flag.String("scene", "", "Scene file to paint")
	flagEmitter   = flag.String("emitter", "", "Emitter file watched for live edits")
	flagOutput    = flag.String("out", "", "Write the painted scene here")
	flagAttribute = flag.String("attribute", "", "Color attribute to paint")
	flagInterval  = flag.Duration("interval", 0, "Tick interval, e.g. 100ms")
	flagLight     = flag.String("light", "", "Light type: sun, point, spot or area")
	flagColor     = flag.String("color", "", "Emission color as hex, e.g. #ff8800")
	flagNoWatch   = flag.Bool("no-watch", false, "Paint once and exit instead of watching the emitter")
	flagDiscard   = flag.Bool("discard", false, "Restore the original colors on exit")
	flagConvert   = flag.String("convert", "", "Convert the painted attribute to point or corner before painting")
	flagSave      = flag.Bool("save-config", false, "Write the effective config to the user config directory and exit")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// SaveRequested reports whether -save-config was given.
func SaveRequested() bool {
	return *flagSave
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) error {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagScene != "" {
		cfg.Scene.Path = *flagScene
	}
	if *flagEmitter != "" {
		cfg.Scene.EmitterPath = *flagEmitter
	}
	if *flagOutput != "" {
		cfg.Scene.Output = *flagOutput
	}
	if *flagAttribute != "" {
		cfg.Painter.Attribute = *flagAttribute
	}
	if *flagInterval > 0 {
		cfg.Painter.Interval = Duration(*flagInterval)
	}
	if *flagLight != "" {
		t, err := lighting.ParseLightType(*flagLight)
		if err != nil {
			return fmt.Errorf("-light: %w", err)
		}
		cfg.Emitter.Type = t
	}
	if *flagColor != "" {
		cfg.Emitter.Color = *flagColor
	}
	if *flagNoWatch {
		cfg.Scene.Watch = false
	}
	if *flagDiscard {
		cfg.Painter.CommitOnExit = false
	}
	if *flagConvert != "" {
		cfg.Painter.ConvertTo = *flagConvert
	}
	return nil
}
