package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/archifact/archifact/pkg/pipeline"
)

// Config holds user-level defaults read from the optional config file.
// Command-line flags always win over config values.
type Config struct {
	// TemplatesDir is the default directory scanned by `templates list`.
	TemplatesDir string `toml:"templates_dir"`

	// SchemaDir holds the official ArchiMate XSD set. Empty skips
	// validation unless --schemas is passed.
	SchemaDir string `toml:"schema_dir"`

	// OutputDir receives generated artifacts.
	OutputDir string `toml:"output_dir"`

	// RasterScale is the PNG resolution multiplier.
	RasterScale float64 `toml:"raster_scale"`
}

// defaultConfig returns the built-in defaults applied when no config file
// exists or a field is left unset.
func defaultConfig() Config {
	return Config{
		TemplatesDir: "templates",
		OutputDir:    pipeline.DefaultOutputDir,
		RasterScale:  pipeline.DefaultRasterScale,
	}
}

// configPath returns the config file location: $ARCHIFACT_CONFIG when set,
// otherwise ~/.config/archifact/config.toml (respecting XDG_CONFIG_HOME).
func configPath() (string, error) {
	if p := os.Getenv("ARCHIFACT_CONFIG"); p != "" {
		return p, nil
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// loadConfig reads the config file, falling back to defaults when the file
// does not exist. A file that exists but fails to parse is an error.
func loadConfig() (Config, error) {
	cfg := defaultConfig()

	path, err := configPath()
	if err != nil {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = pipeline.DefaultOutputDir
	}
	if cfg.RasterScale <= 0 {
		cfg.RasterScale = pipeline.DefaultRasterScale
	}
	return cfg, nil
}
