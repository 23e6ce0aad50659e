package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	// Start with defaults
	cfg := Default()

	// Try to load from file (explicit path takes priority)
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	// Apply CLI flags (highest priority)
	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the animation runtime cannot honor.
func (c *Config) Validate() error {
	if c.Animation.DefaultTicksPerSecond <= 0 {
		return fmt.Errorf("animation.default_ticks_per_second must be positive, got %v", c.Animation.DefaultTicksPerSecond)
	}
	if c.Animation.FrameEpsilon < 0 {
		return fmt.Errorf("animation.frame_epsilon must not be negative, got %v", c.Animation.FrameEpsilon)
	}
	if c.Animation.CrossfadeSeconds < 0 {
		return fmt.Errorf("animation.crossfade_seconds must not be negative, got %v", c.Animation.CrossfadeSeconds)
	}
	seen := make(map[string]bool, len(c.Characters))
	for i, ch := range c.Characters {
		if ch.Name == "" {
			return fmt.Errorf("characters[%d]: name is required", i)
		}
		if seen[ch.Name] {
			return fmt.Errorf("characters[%d]: duplicate name %q", i, ch.Name)
		}
		seen[ch.Name] = true
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./config.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Knightfall")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Knightfall")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "knightfall")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "knightfall")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
// Unknown keys are rejected; an empty file leaves cfg unchanged.
func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
