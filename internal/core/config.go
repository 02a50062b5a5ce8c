package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds per-user runner settings.
type Config struct {
	Log   string `yaml:"log"`
	Color string `yaml:"color"`
	// Env and EnvFile supply defaults applied to every step before the
	// task's own settings.
	Env     map[string]string `yaml:"env"`
	EnvFile string            `yaml:"env-file"`

	// Dir is the directory of the loaded file; relative EnvFile paths are
	// resolved against it.
	Dir string `yaml:"-"`
}

// DefaultConfigPath resolves $XDG_CONFIG_HOME/rr/config.yaml or
// ~/.config/rr/config.yaml.
func DefaultConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "rr", "config.yaml")
}

// LoadConfig reads YAML configuration from a path. If path is empty the
// default location is used, and a missing default file yields an empty
// Config.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	optional := path == ""
	if optional {
		path = DefaultConfigPath()
	}
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}
