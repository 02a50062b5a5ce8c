// Package project finds and loads pyproject.toml manifests and the
// workspace and virtual environment they belong to.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"

	"github.com/3cpo-dev/rr/internal/core"
	"github.com/3cpo-dev/rr/pkg/api"
)

// ManifestName is the file name of a project manifest.
const ManifestName = "pyproject.toml"

// VenvEnvVar overrides the location of the project's virtual environment.
const VenvEnvVar = "UV_PROJECT_ENVIRONMENT"

// ErrNotProject is returned for manifests without a [project] name.
var ErrNotProject = errors.New("invalid python project: missing [project] name")

// NotFoundError reports that no project manifest was found.
type NotFoundError struct {
	Start string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s was not found in %q or any of its parent directories", ManifestName, e.Start)
}

// Project is a loaded pyproject.toml.
type Project struct {
	Name string
	Root string
	File string

	doc   map[string]any
	order []string

	workspace       *Workspace
	workspaceLoaded bool
}

// Load reads the manifest at file. It fails with ErrNotProject when the
// manifest has no [project] name.
func Load(file string) (*Project, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", file, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", abs, err)
	}
	name, _ := lookup(doc, "project", "name").(string)
	if name == "" {
		return nil, fmt.Errorf("%s: %w", abs, ErrNotProject)
	}
	return &Project{
		Name:  name,
		Root:  filepath.Dir(abs),
		File:  abs,
		doc:   doc,
		order: tableKeyOrder(data, taskPath),
	}, nil
}

// Discover walks up from start to the nearest directory holding a valid
// project manifest. Manifests without a project name are skipped.
func Discover(start string) (*Project, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", start, err)
	}
	for {
		file := filepath.Join(dir, ManifestName)
		if fi, err := os.Stat(file); err == nil && fi.Mode().IsRegular() {
			p, err := Load(file)
			if err == nil {
				return p, nil
			}
			if !errors.Is(err, ErrNotProject) {
				return nil, err
			}
			log.Debug().Str("file", file).Msg("Skipping manifest without project name")
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, &NotFoundError{Start: start}
		}
		dir = parent
	}
}

// Open loads the project named by path, which may be a manifest file or a
// directory to start discovery from. An empty path starts at the working
// directory.
func Open(path string) (*Project, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		return Discover(wd)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	if fi.IsDir() {
		return Discover(path)
	}
	return Load(path)
}

var taskPath = []string{"tool", "pyproject-runner", "tasks"}

// Tasks returns the project's task table.
func (p *Project) Tasks() *core.Table {
	entries, _ := lookup(p.doc, taskPath...).(map[string]any)
	if entries == nil {
		entries = map[string]any{}
	}
	return core.NewTable(entries, p.order)
}

// VenvDir returns the virtual environment shared by the project and its
// workspace.
func (p *Project) VenvDir() string {
	if v := os.Getenv(VenvEnvVar); v != "" {
		if abs, err := filepath.Abs(v); err == nil {
			return abs
		}
		return v
	}
	root := p.Root
	if ws := p.Workspace(); ws != nil {
		root = ws.Root
	}
	return filepath.Join(root, ".venv")
}

// VenvBin returns the directory holding the environment's executables.
func (p *Project) VenvBin() string {
	return filepath.Join(p.VenvDir(), venvBinName())
}

func venvBinName() string {
	if runtime.GOOS == "windows" {
		return "Scripts"
	}
	return "bin"
}

// RunContext returns the execution context for running the project's tasks
// from initialDir with the given inherited environment.
func (p *Project) RunContext(initialDir string, environ []string, user core.UserEnv) *core.RunContext {
	rc := &core.RunContext{
		InitialDir: initialDir,
		ProjectDir: p.Root,
		VenvDir:    p.VenvDir(),
		VenvBin:    p.VenvBin(),
		Environ:    core.Snapshot(environ),
		User:       user,
	}
	if ws := p.Workspace(); ws != nil {
		rc.WorkspaceDir = ws.Root
	}
	return rc
}

// Spec returns the display form of the project.
func (p *Project) Spec() api.ProjectSpec {
	spec := api.ProjectSpec{Name: p.Name, Root: p.Root, Venv: p.VenvDir()}
	if ws := p.Workspace(); ws != nil {
		members := make([]string, 0, len(ws.Members))
		for _, m := range ws.Members {
			if rel, err := filepath.Rel(ws.Root, m); err == nil {
				m = rel
			}
			members = append(members, filepath.ToSlash(m))
		}
		spec.Workspace = &api.WorkspaceSpec{Name: ws.Name, Root: ws.Root, Members: members}
	}
	return spec
}

func lookup(doc map[string]any, keys ...string) any {
	var v any = doc
	for _, k := range keys {
		table, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = table[k]
	}
	return v
}
