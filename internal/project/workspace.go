package project

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"
)

// Workspace is a project whose [tool.uv.workspace] table groups member
// projects sharing one virtual environment.
type Workspace struct {
	Name    string
	Root    string
	Members []string
}

// Workspace returns the workspace the project belongs to: its own
// [tool.uv.workspace] table, or the nearest ancestor project listing it as a
// member. It returns nil when there is none.
func (p *Project) Workspace() *Workspace {
	if p.workspaceLoaded {
		return p.workspace
	}
	p.workspaceLoaded = true
	if ws := p.ownWorkspace(); ws != nil {
		p.workspace = ws
		return ws
	}
	p.workspace = p.discoverWorkspace()
	return p.workspace
}

func (p *Project) discoverWorkspace() *Workspace {
	dir := p.Root
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil
		}
		candidate, err := Discover(parent)
		if err != nil {
			return nil
		}
		dir = candidate.Root
		ws := candidate.ownWorkspace()
		if ws == nil {
			continue
		}
		for _, member := range ws.Members {
			if sameDir(member, p.Root) {
				return ws
			}
		}
	}
}

func (p *Project) ownWorkspace() *Workspace {
	table, ok := lookup(p.doc, "tool", "uv", "workspace").(map[string]any)
	if !ok {
		return nil
	}
	patterns, ok := table["members"].([]any)
	if !ok {
		return nil
	}
	excluded := map[string]bool{}
	if exclude, ok := table["exclude"].([]any); ok {
		for _, dir := range globDirs(p.Root, exclude) {
			excluded[dir] = true
		}
	}
	ws := &Workspace{Name: p.Name, Root: p.Root}
	for _, dir := range globDirs(p.Root, patterns) {
		if !excluded[dir] {
			ws.Members = append(ws.Members, dir)
		}
	}
	return ws
}

// globDirs expands workspace member patterns relative to root into the
// matching directories.
func globDirs(root string, patterns []any) []string {
	fsys := os.DirFS(root)
	seen := map[string]bool{}
	var dirs []string
	for _, v := range patterns {
		pattern, ok := v.(string)
		if !ok {
			continue
		}
		pattern = filepath.ToSlash(filepath.Clean(pattern))
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			log.Warn().Str("pattern", pattern).Err(err).Msg("Ignoring invalid workspace pattern")
			continue
		}
		for _, m := range matches {
			dir := filepath.Join(root, filepath.FromSlash(m))
			if fi, err := os.Stat(dir); err != nil || !fi.IsDir() || seen[dir] {
				continue
			}
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

func sameDir(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	fa, err := os.Stat(a)
	if err != nil {
		return false
	}
	fb, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(fa, fb)
}
