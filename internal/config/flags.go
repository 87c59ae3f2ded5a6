package config

import "flag"

var (
	flagConfig       = flag.String("config", "", "Path to config file")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging")
	flagAbsoluteIdx  = flag.Bool("absolute-indexing", false, "Treat undeclared face indices as file-wide absolute (legacy files)")
	flagNoAnimations = flag.Bool("no-animations", false, "Skip animation tracks")
	flagBinaryGLTF   = flag.Bool("glb", false, "Write binary glTF output")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagAbsoluteIdx {
		cfg.Import.AbsoluteIndexing = true
	}
	if *flagNoAnimations {
		cfg.Import.Animations = false
	}
	if *flagBinaryGLTF {
		cfg.Export.Binary = true
	}
}
