package config

import (
	"errors"
	"fmt"
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
		return filepath.Join(home, "Library", "Application Support", "RoomView")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "RoomView")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "roomview")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "roomview")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate checks values that would otherwise fail far from where they were set.
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	}
	if c.Assets.Concurrency < 0 {
		return fmt.Errorf("%w: assets.concurrency %d", ErrInvalid, c.Assets.Concurrency)
	}
	switch c.Gizmo.Mode {
	case "translate", "rotate", "scale":
	default:
		return fmt.Errorf("%w: gizmo.mode %q", ErrInvalid, c.Gizmo.Mode)
	}
	switch c.Gizmo.Space {
	case "local", "world":
	default:
		return fmt.Errorf("%w: gizmo.space %q", ErrInvalid, c.Gizmo.Space)
	}
	for i, o := range c.Scene.Objects {
		if o.Model == "" {
			return fmt.Errorf("%w: scene.objects[%d] has no model", ErrInvalid, i)
		}
	}
	if c.Lighting.Strength < 0 || c.Lighting.Strength > 1 {
		return fmt.Errorf("%w: lighting.strength %v", ErrInvalid, c.Lighting.Strength)
	}
	if c.Interaction.BounceScale <= 0 {
		return fmt.Errorf("%w: interaction.bounce_scale %v", ErrInvalid, c.Interaction.BounceScale)
	}
	return nil
}
