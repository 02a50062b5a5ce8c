package core

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/3cpo-dev/rr/internal/envfile"
	"github.com/3cpo-dev/rr/internal/paths"
)

// Variables set for every step.
const (
	EnvVirtualEnv    = "VIRTUAL_ENV"
	EnvVirtualEnvBin = "VIRTUAL_ENV_BIN"
	EnvInitialDir    = "INITIAL_DIR"
	EnvProjectDir    = "PROJECT_DIR"
	EnvWorkspaceDir  = "WORKSPACE_DIR"
	EnvPath          = "PATH"
	EnvPythonHome    = "PYTHONHOME"
)

// RunContext is the state shared by every step of one invocation. It is not
// modified after construction.
type RunContext struct {
	InitialDir string
	ProjectDir string
	// WorkspaceDir is empty when the project is not part of a workspace.
	WorkspaceDir string
	VenvDir      string
	VenvBin      string
	// Environ is a snapshot of the runner's own environment.
	Environ map[string]string
	User    UserEnv
}

// Resolver returns the path resolver anchored at the project directory.
func (rc *RunContext) Resolver() paths.Resolver {
	return paths.New(rc.ProjectDir)
}

// Snapshot converts a list of "key=value" strings, as returned by
// os.Environ, into a map.
func Snapshot(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		// Windows keeps per-drive directories in entries like "=C:=C:\x".
		i := strings.IndexByte(kv, '=')
		if i == 0 {
			continue
		}
		if i < 0 {
			env[envfile.Key(kv)] = ""
			continue
		}
		env[envfile.Key(kv[:i])] = kv[i+1:]
	}
	return env
}

// Environ converts env back into sorted "key=value" strings.
func Environ(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// BuildEnv returns the environment for a step of task. Later sources win:
// the inherited snapshot, the fixed runner variables, the user defaults, the
// task's env setting and finally its env file. The snapshot is not modified.
func BuildEnv(rc *RunContext, task *Task) (map[string]string, error) {
	env := make(map[string]string, len(rc.Environ)+8)
	for k, v := range rc.Environ {
		env[k] = v
	}

	env[envfile.Key(EnvVirtualEnv)] = rc.VenvDir
	env[envfile.Key(EnvVirtualEnvBin)] = rc.VenvBin
	env[envfile.Key(EnvInitialDir)] = rc.InitialDir
	env[envfile.Key(EnvProjectDir)] = rc.ProjectDir
	if rc.WorkspaceDir != "" {
		env[envfile.Key(EnvWorkspaceDir)] = rc.WorkspaceDir
	} else {
		delete(env, envfile.Key(EnvWorkspaceDir))
	}
	pathKey := envfile.Key(EnvPath)
	if p, ok := env[pathKey]; ok && p != "" {
		env[pathKey] = rc.VenvBin + string(os.PathListSeparator) + p
	} else {
		env[pathKey] = rc.VenvBin
	}
	delete(env, envfile.Key(EnvPythonHome))

	for k, v := range rc.User.Vars {
		env[envfile.Key(k)] = v
	}
	if rc.User.Text != "" {
		if err := apply(env, rc.User.Text); err != nil {
			return nil, &EnvError{Task: task.Name, Source: rc.User.Source, Err: err}
		}
	}

	for k, v := range task.Env {
		env[envfile.Key(k)] = v
	}
	if task.EnvText != "" {
		if err := apply(env, task.EnvText); err != nil {
			return nil, &EnvError{Task: task.Name, Source: "env", Err: err}
		}
	}
	if task.EnvFile != "" {
		path := rc.Resolver().Resolve(task.EnvFile, rc.InitialDir)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &EnvError{Task: task.Name, Source: path, Err: fmt.Errorf("read env file: %w", err)}
		}
		if err := apply(env, string(data)); err != nil {
			return nil, &EnvError{Task: task.Name, Source: path, Err: err}
		}
	}
	return env, nil
}

func apply(env map[string]string, text string) error {
	ops, err := envfile.Evaluate(text, envfile.MapLookup(env))
	if err != nil {
		return err
	}
	envfile.Apply(env, ops)
	return nil
}
