package core

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/rs/zerolog/log"

	"github.com/3cpo-dev/rr/internal/envfile"
	"github.com/3cpo-dev/rr/internal/paths"
	"github.com/3cpo-dev/rr/internal/telemetry"
	"github.com/3cpo-dev/rr/pkg/api"
)

// Step is one planned command: a task with a command and the arguments
// appended to it. Its argv, directory and environment are resolved just
// before it runs.
type Step struct {
	Task *Task
	Args []string
}

// Runner resolves tasks from a table and runs them one step at a time.
type Runner struct {
	Table   *Table
	Context *RunContext
	Metrics *telemetry.Collector

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewRunner creates a runner connected to the process's standard streams.
func NewRunner(table *Table, rc *RunContext) *Runner {
	return &Runner{
		Table:   table,
		Context: rc,
		Metrics: telemetry.NewCollector(true),
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Run runs the task called name with args appended to its command and
// returns the exit status to report. A step exiting non-zero stops the run
// and its status is returned without an error. Errors that prevent a step
// from running are returned with a non-zero status.
func (r *Runner) Run(ctx context.Context, name string, args []string) (int, error) {
	plan, err := r.Plan(name, args)
	if err != nil {
		return 1, err
	}
	log.Debug().Str("task", name).Int("steps", len(plan)).Msg("Plan ready")
	defer r.Metrics.Flush()

	for i, step := range plan {
		err := r.runStep(ctx, step)
		if err == nil {
			continue
		}
		var failure *CommandFailure
		if errors.As(err, &failure) {
			log.Debug().Str("task", step.Task.Name).Int("status", failure.Status).
				Int("skipped", len(plan)-i-1).Msg("Step failed")
			return failure.Status, nil
		}
		var spawn *CommandSpawnError
		if errors.As(err, &spawn) {
			return spawn.Status(), err
		}
		return 1, err
	}
	return 0, nil
}

// Plan expands name into the ordered steps to run. Every task reference is
// looked up and checked for cycles before anything runs. A name that is not
// a task but matches a script in the virtual environment plans that script.
func (r *Runner) Plan(name string, args []string) ([]Step, error) {
	if !r.Table.Has(name) {
		if path, ok := FindScript(r.Context.VenvBin, name); ok {
			log.Debug().Str("script", path).Msg("Running virtual environment script")
			task := &Task{Name: name, Cmd: []string{path}, Script: true}
			return []Step{{Task: task, Args: args}}, nil
		}
	}
	return r.expand(Invocation{Name: name, Args: args}, "", nil, nil)
}

func (r *Runner) expand(inv Invocation, parent string, stack []string, plan []Step) ([]Step, error) {
	for i, name := range stack {
		if name == inv.Name {
			path := append(append([]string(nil), stack[i:]...), inv.Name)
			return nil, &TaskCycleError{Path: path}
		}
	}
	task, err := r.Table.Lookup(inv.Name)
	if err != nil {
		var missing *TaskNotFoundError
		if errors.As(err, &missing) && parent != "" {
			return nil, &TaskNotFoundError{Name: inv.Name, Parent: parent}
		}
		return nil, err
	}
	stack = append(stack, inv.Name)

	for _, pre := range task.Pre {
		if plan, err = r.expand(pre, task.Name, stack, plan); err != nil {
			return nil, err
		}
	}
	if len(task.Cmd) > 0 {
		plan = append(plan, Step{Task: task, Args: inv.Args})
	} else if len(inv.Args) > 0 {
		log.Warn().Str("task", task.Name).Strs("args", inv.Args).Msg("Task has no cmd; ignoring arguments")
	}
	for _, post := range task.Post {
		if plan, err = r.expand(post, task.Name, stack, plan); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// Command builds the process for step: its environment, working directory
// and resolved executable.
func (r *Runner) Command(ctx context.Context, step Step) (*exec.Cmd, error) {
	rc := r.Context
	env, err := BuildEnv(rc, step.Task)
	if err != nil {
		return nil, err
	}
	dir := rc.InitialDir
	if step.Task.Cwd != "" {
		dir = rc.Resolver().Resolve(step.Task.Cwd, rc.InitialDir)
	}

	argv := append(append([]string(nil), step.Task.Cmd...), step.Args...)
	name := argv[0]
	var path string
	if paths.HasSeparator(name) {
		path = rc.Resolver().Resolve(name, dir)
	} else {
		path, err = lookPath(name, env[envfile.Key(EnvPath)], env[envfile.Key("PATHEXT")])
		if err != nil {
			return nil, &CommandSpawnError{Path: name, Err: err}
		}
	}

	cmd := exec.CommandContext(ctx, path, argv[1:]...)
	if !paths.HasSeparator(name) {
		cmd.Args[0] = name
	}
	cmd.Dir = dir
	cmd.Env = Environ(env)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd, nil
}

func (r *Runner) runStep(ctx context.Context, step Step) error {
	cmd, err := r.Command(ctx, step)
	if err != nil {
		return err
	}
	log.Debug().Str("task", step.Task.Name).Strs("argv", cmd.Args).Str("dir", cmd.Dir).Msg("Running step")

	scope := r.Metrics.StartStep(step.Task.Name)
	if err := cmd.Start(); err != nil {
		scope.End(api.RunNotStarted)
		return &CommandSpawnError{Path: cmd.Path, Err: err}
	}
	err = cmd.Wait()
	if err == nil {
		scope.End(api.RunSucceeded)
		return nil
	}
	scope.End(api.RunFailed)
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		status := exit.ExitCode()
		if status < 0 {
			status = 1
		}
		return &CommandFailure{Argv: cmd.Args, Status: status}
	}
	return err
}
