// CLAUDE:SUMMARY YAML config with env overrides and per-platform default data dir.
package caselaw

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// DefaultManifestURL points at the public artifact repository.
const DefaultManifestURL = "https://huggingface.co/datasets/voilaj/swiss-caselaw-artifacts/resolve/main/manifest.json"

// Config configures the caselaw service.
type Config struct {
	// DataDir holds the installed database, sync state, and downloads.
	DataDir string `yaml:"data_dir"`

	// ManifestURL is the remote manifest to pull artifacts from.
	ManifestURL string `yaml:"manifest_url"`

	// Listen is the HTTP listen address for serve mode.
	Listen string `yaml:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultDataDir returns the per-platform application data directory
// for the tool: %APPDATA% on Windows, Application Support on macOS,
// XDG_DATA_HOME (or ~/.local/share) elsewhere.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	switch runtime.GOOS {
	case "windows":
		if base := os.Getenv("APPDATA"); base != "" {
			return filepath.Join(base, "swiss-caselaw")
		}
		return filepath.Join(home, "swiss-caselaw")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "swiss-caselaw")
	default:
		if base := os.Getenv("XDG_DATA_HOME"); base != "" {
			return filepath.Join(base, "swiss-caselaw")
		}
		return filepath.Join(home, ".local", "share", "swiss-caselaw")
	}
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir:     DefaultDataDir(),
		ManifestURL: DefaultManifestURL,
		Listen:      "127.0.0.1:8787",
		LogLevel:    "info",
	}
}

// LoadConfig reads a YAML config file merged over DefaultConfig, then
// applies environment overrides. An empty path skips the file entirely.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("caselaw: read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("caselaw: parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

// applyEnv lets the environment win over both defaults and file values,
// matching how the updater is driven in scripted installs.
func (c *Config) applyEnv() {
	if v := os.Getenv("CASELAW_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("CASELAW_MANIFEST_URL"); v != "" {
		c.ManifestURL = v
	}
}

// Validate checks that required fields are present.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("caselaw: data_dir is required")
	}
	if c.ManifestURL == "" {
		return fmt.Errorf("caselaw: manifest_url is required")
	}
	return nil
}
