package project

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/3cpo-dev/rr/internal/core"
)

// Scripts returns the names of the scripts installed in the virtual
// environment's bin directory. On Windows the extension is dropped.
func (p *Project) Scripts() []string {
	return scripts(p.VenvBin())
}

func scripts(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if !core.IsScript(name) {
			continue
		}
		fi, err := os.Stat(filepath.Join(dir, name))
		if err != nil || !core.IsExecutable(fi) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, windowsExt(name)))
	}
	sort.Strings(names)
	return names
}

func windowsExt(name string) string {
	if venvBinName() != "Scripts" {
		return ""
	}
	return filepath.Ext(name)
}
