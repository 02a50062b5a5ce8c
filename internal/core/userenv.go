package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/3cpo-dev/rr/internal/envfile"
)

// UserEnv is the user's default environment for every step.
type UserEnv struct {
	Vars map[string]string
	// Text is the content of the user env file and Source its path.
	Text   string
	Source string
}

// LoadUserEnv reads the env file named by cfg, if any. The file is checked
// for syntax errors here; substitutions happen per step.
func LoadUserEnv(cfg Config) (UserEnv, error) {
	user := UserEnv{Vars: cfg.Env}
	path := strings.TrimSpace(cfg.EnvFile)
	if path == "" {
		return user, nil
	}
	if rest, ok := strings.CutPrefix(path, "~"); ok && (rest == "" || os.IsPathSeparator(rest[0])) {
		home, err := os.UserHomeDir()
		if err != nil {
			return user, fmt.Errorf("expand env-file: %w", err)
		}
		path = home + rest
	}
	if !filepath.IsAbs(path) && cfg.Dir != "" {
		path = filepath.Join(cfg.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return user, fmt.Errorf("read user env file: %w", err)
	}
	if _, err := envfile.Parse(string(data)); err != nil {
		return user, fmt.Errorf("parse user env file %s: %w", path, err)
	}
	user.Text = string(data)
	user.Source = path
	return user, nil
}
