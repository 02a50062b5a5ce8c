package core

import (
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// lookPath searches the directories in pathList for an executable named
// file. Unlike exec.LookPath it searches the step's PATH rather than the
// runner's own.
func lookPath(file, pathList, pathExt string) (string, error) {
	for _, dir := range filepath.SplitList(pathList) {
		if dir == "" {
			dir = "."
		}
		if path, ok := findExecutable(filepath.Join(dir, file), pathExt); ok {
			if !filepath.IsAbs(path) {
				if abs, err := filepath.Abs(path); err == nil {
					path = abs
				}
			}
			return path, nil
		}
	}
	return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
}

func findExecutable(path, pathExt string) (string, bool) {
	if runtime.GOOS != "windows" {
		fi, err := os.Stat(path)
		return path, err == nil && IsExecutable(fi)
	}
	if filepath.Ext(path) != "" {
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			return path, true
		}
	}
	if pathExt == "" {
		pathExt = ".com;.exe;.bat;.cmd"
	}
	for _, ext := range strings.Split(pathExt, ";") {
		if ext == "" {
			continue
		}
		if fi, err := os.Stat(path + ext); err == nil && fi.Mode().IsRegular() {
			return path + ext, true
		}
	}
	return "", false
}

// IsExecutable reports whether fi describes a file the runner can execute.
func IsExecutable(fi fs.FileInfo) bool {
	if !fi.Mode().IsRegular() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return fi.Mode().Perm()&0o111 != 0
}

// IsScript reports whether name in the virtual environment's bin directory
// can be run as a script. Shared libraries and the activation scripts are
// excluded.
func IsScript(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if runtime.GOOS == "windows" {
		if ext != ".exe" && ext != ".bat" {
			return false
		}
		base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		return base != "activate" && base != "deactivate"
	}
	return ext != ".so" && ext != ".dylib"
}

// FindScript returns the path of the script called name in venvBin.
func FindScript(venvBin, name string) (string, bool) {
	if venvBin == "" || name == "" || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	path, err := lookPath(name, venvBin, ".exe;.bat")
	if err != nil || !IsScript(filepath.Base(path)) {
		return "", false
	}
	return path, true
}

func isNotFound(err error) bool {
	return errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}
