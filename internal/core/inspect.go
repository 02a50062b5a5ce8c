package core

import (
	"fmt"
	"os"

	"github.com/3cpo-dev/rr/internal/envfile"
	"github.com/3cpo-dev/rr/pkg/api"
)

// Inspect returns the display form of the task called name with the
// problems that would stop it from running. Nothing is executed.
func (r *Runner) Inspect(name string) (api.TaskSpec, error) {
	task, err := r.Table.Lookup(name)
	if err != nil {
		return api.TaskSpec{Name: name, Kind: api.KindTask}, err
	}
	spec := task.Spec()
	if task.EnvText != "" {
		if _, err := envfile.Parse(task.EnvText); err != nil {
			spec.Problems = append(spec.Problems, fmt.Sprintf("parsing 'env' value: %v", err))
		}
	}
	if task.EnvFile != "" {
		path := r.Context.Resolver().Resolve(task.EnvFile, r.Context.InitialDir)
		if data, err := os.ReadFile(path); err != nil {
			spec.Problems = append(spec.Problems, fmt.Sprintf("reading 'env-file' value: %v", err))
		} else if _, err := envfile.Parse(string(data)); err != nil {
			spec.Problems = append(spec.Problems, fmt.Sprintf("parsing 'env-file' %s: %v", path, err))
		}
	}
	if _, err := r.Plan(name, nil); err != nil {
		spec.Problems = append(spec.Problems, fmt.Sprintf("resolving task: %v", err))
	}
	return spec, nil
}
