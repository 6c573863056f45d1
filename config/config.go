// Package config handles warren.toml world configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents a warren.toml world configuration.
type Config struct {
	World      World      `toml:"world"`
	Checkpoint Checkpoint `toml:"checkpoint"`

	// Dir is the directory containing the warren.toml file (set at load
	// time).
	Dir string `toml:"-"`
}

// World configures the interpreter and its network surfaces.
type World struct {
	Name       string `toml:"name"`
	Listen     string `toml:"listen"`      // RPC address, e.g. ":7770"
	TelnetAddr string `toml:"telnet-addr"` // line-oriented user address, e.g. ":7777"
	StepBudget int    `toml:"step-budget"` // steps per scheduler slice
}

// Checkpoint configures the durable snapshot store.
type Checkpoint struct {
	Path     string `toml:"path"`
	Interval string `toml:"interval"` // Go duration, e.g. "30s"
	Keep     int    `toml:"keep"`
}

// Default returns the configuration used when no warren.toml exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.World.Listen == "" {
		c.World.Listen = ":7770"
	}
	if c.World.TelnetAddr == "" {
		c.World.TelnetAddr = ":7777"
	}
	if c.World.StepBudget <= 0 {
		c.World.StepBudget = 1000
	}
	if c.Checkpoint.Path == "" {
		c.Checkpoint.Path = "warren.db"
	}
	if c.Checkpoint.Interval == "" {
		c.Checkpoint.Interval = "30s"
	}
	if c.Checkpoint.Keep <= 0 {
		c.Checkpoint.Keep = 10
	}
}

// Load parses a warren.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "warren.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find a warren.toml file. Returns
// the defaults if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "warren.toml")); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}
