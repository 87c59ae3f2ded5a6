// Package config handles mshtool configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Import  ImportConfig  `yaml:"import"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// ImportConfig holds .msh parsing options.
type ImportConfig struct {
	// AbsoluteIndexing makes nodes without an explicit indexing-mode
	// chunk decode their face indices against the flattened file-wide
	// vertex buffer instead of per-group relative offsets. Needed only
	// for legacy files; leave off otherwise.
	AbsoluteIndexing bool `yaml:"absolute_indexing"`
	// Animations controls whether keyframe tracks are reported and
	// exported.
	Animations bool `yaml:"animations"`
}

// ExportConfig holds glTF export settings.
type ExportConfig struct {
	// Binary writes .glb output when the target extension does not
	// decide the container.
	Binary bool `yaml:"binary"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			AbsoluteIndexing: false,
			Animations:       true,
		},
		Export: ExportConfig{
			Binary: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
