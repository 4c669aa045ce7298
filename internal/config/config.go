// Package config loads and validates openinglens.yml.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"openinglens/internal/dataset"
)

// Config represents the top-level openinglens.yml configuration
type Config struct {
	Version   string           `yaml:"version"`
	Assets    AssetsConfig     `yaml:"assets"`
	Defaults  DefaultsConfig   `yaml:"defaults,omitempty"`
	Animation *AnimationConfig `yaml:"animation,omitempty"`
	Session   *SessionConfig   `yaml:"session,omitempty"`
}

// AssetsConfig points at the offline pipeline's output files
type AssetsConfig struct {
	Dataset string `yaml:"dataset"` // Required: frequency dataset JSON
	Catalog string `yaml:"catalog"` // Required: opening catalog JSON
}

// DefaultsConfig is the filter state the explorer starts with
type DefaultsConfig struct {
	TimeControl string `yaml:"time_control,omitempty"`
	Elo         string `yaml:"elo,omitempty"`
	Color       string `yaml:"color,omitempty"`
	Opening     string `yaml:"opening,omitempty"`
}

// AnimationConfig tunes replay and zoom pacing
type AnimationConfig struct {
	ReplayTotalMs *int `yaml:"replay_total_ms,omitempty"` // Total budget for a multi-move replay (default 1200)
	ReplayStepMs  *int `yaml:"replay_step_ms,omitempty"`  // Pacing between replay steps (default 150)
	FocusMs       *int `yaml:"focus_ms,omitempty"`        // Zoom transition length (default 400)
	FocusFrames   *int `yaml:"focus_frames,omitempty"`    // Interpolation steps per zoom (default 12)
}

// SessionConfig enables the optional Redis session mirror
type SessionConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	Name      string `yaml:"name"`
}

var validColors = map[string]bool{"both": true, "white": true, "black": true}

// Validate performs strict validation and applies defaults
func (c *Config) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	// Required: asset paths
	if c.Assets.Dataset == "" {
		return fmt.Errorf("assets.dataset is required")
	}
	if c.Assets.Catalog == "" {
		return fmt.Errorf("assets.catalog is required")
	}

	// Apply filter defaults
	if c.Defaults.TimeControl == "" {
		c.Defaults.TimeControl = "blitz"
	}
	if c.Defaults.Elo == "" {
		c.Defaults.Elo = "1500-2000"
	}
	if c.Defaults.Color == "" {
		c.Defaults.Color = "both"
	}
	if c.Defaults.Opening == "" {
		c.Defaults.Opening = "All"
	}

	if !contains(dataset.TimeControls, c.Defaults.TimeControl) {
		return fmt.Errorf("defaults.time_control: unknown time control %q (valid: %v)", c.Defaults.TimeControl, dataset.TimeControls)
	}
	if !contains(dataset.EloBrackets, c.Defaults.Elo) {
		return fmt.Errorf("defaults.elo: unknown elo bracket %q (valid: %v)", c.Defaults.Elo, dataset.EloBrackets)
	}
	if !validColors[c.Defaults.Color] {
		return fmt.Errorf("defaults.color: invalid color %q (must be 'both', 'white', or 'black')", c.Defaults.Color)
	}

	// Apply animation defaults if missing
	if c.Animation == nil {
		c.Animation = &AnimationConfig{}
	}
	applyIntDefault(&c.Animation.ReplayTotalMs, 1200)
	applyIntDefault(&c.Animation.ReplayStepMs, 150)
	applyIntDefault(&c.Animation.FocusMs, 400)
	applyIntDefault(&c.Animation.FocusFrames, 12)

	if *c.Animation.ReplayTotalMs < 0 {
		return fmt.Errorf("animation.replay_total_ms must be >= 0, got %d", *c.Animation.ReplayTotalMs)
	}
	if *c.Animation.ReplayStepMs < 0 {
		return fmt.Errorf("animation.replay_step_ms must be >= 0, got %d", *c.Animation.ReplayStepMs)
	}
	if *c.Animation.FocusMs < 0 {
		return fmt.Errorf("animation.focus_ms must be >= 0, got %d", *c.Animation.FocusMs)
	}
	if *c.Animation.FocusFrames < 1 {
		return fmt.Errorf("animation.focus_frames must be >= 1, got %d", *c.Animation.FocusFrames)
	}

	// Session mirror is opt-in; a name is needed to namespace its keys
	if c.Session != nil && c.Session.RedisAddr != "" && c.Session.Name == "" {
		return fmt.Errorf("session.name is required when session.redis_addr is set")
	}

	return nil
}

func applyIntDefault(field **int, def int) {
	if *field == nil {
		v := def
		*field = &v
	}
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Load reads and validates openinglens.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
