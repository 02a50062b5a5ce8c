// Package paths resolves manifest-supplied path strings.
//
// A leading bang atom anchors a path at the project directory: "!" alone is
// the project directory and "!/scripts/lint" is scripts/lint inside it. Any
// other relative path is joined to a reference directory chosen by the caller.
// Resolution is lexical only; nothing here touches the filesystem.
package paths

import (
	"os"
	"path/filepath"
)

// Bang is the atom that anchors a path at the project directory.
const Bang = '!'

// Resolver resolves paths for one project.
type Resolver struct {
	// Project is the directory containing the manifest.
	Project string
}

// New returns a resolver anchored at project.
func New(project string) Resolver {
	return Resolver{Project: filepath.Clean(project)}
}

// Resolve turns raw into an absolute, cleaned path. Relative paths that are
// not bang-prefixed are joined to base.
func (r Resolver) Resolve(raw, base string) string {
	if raw == "" || raw == string(Bang) {
		return r.Project
	}
	if rest, ok := TrimBang(raw); ok {
		return filepath.Join(r.Project, rest)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Join(base, raw)
}

// TrimBang reports whether raw is project-relative and returns the part after
// the bang and separator.
func TrimBang(raw string) (string, bool) {
	if raw == string(Bang) {
		return "", true
	}
	if len(raw) < 2 || raw[0] != Bang || !os.IsPathSeparator(raw[1]) {
		return "", false
	}
	return raw[2:], true
}

// HasSeparator reports whether name contains a path separator, meaning it is
// a path rather than a bare command name.
func HasSeparator(name string) bool {
	for i := 0; i < len(name); i++ {
		if os.IsPathSeparator(name[i]) {
			return true
		}
	}
	return false
}
