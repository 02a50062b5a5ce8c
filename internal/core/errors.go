package core

import (
	"fmt"
	"strings"
)

// Exit statuses reported when a step cannot be started.
const (
	StatusNotExecutable = 126
	StatusNotFound      = 127
)

// TaskNotFoundError reports a task name missing from the table.
type TaskNotFoundError struct {
	Name string
	// Parent is the task whose pre or post list referenced Name, if any.
	Parent string
}

func (e *TaskNotFoundError) Error() string {
	if e.Parent != "" {
		return fmt.Sprintf("task %q (referenced by %q) not found", e.Name, e.Parent)
	}
	return fmt.Sprintf("task %q not found", e.Name)
}

// TaskCycleError reports a task that is reached again while it is being
// expanded. Path starts and ends with the repeated task.
type TaskCycleError struct {
	Path []string
}

func (e *TaskCycleError) Error() string {
	return "task cycle: " + strings.Join(e.Path, " -> ")
}

// InvalidTaskDefinitionError reports a manifest entry that cannot be used as
// a task.
type InvalidTaskDefinitionError struct {
	Name   string
	Reason string
}

func (e *InvalidTaskDefinitionError) Error() string {
	return fmt.Sprintf("invalid task %q: %s", e.Name, e.Reason)
}

// CommandSpawnError reports an executable that could not be located or
// started.
type CommandSpawnError struct {
	Path string
	Err  error
}

func (e *CommandSpawnError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Path, e.Err)
}

func (e *CommandSpawnError) Unwrap() error { return e.Err }

// Status returns the exit status used for the failed start.
func (e *CommandSpawnError) Status() int {
	if isNotFound(e.Err) {
		return StatusNotFound
	}
	return StatusNotExecutable
}

// CommandFailure records a step that ran and exited with a non-zero status.
type CommandFailure struct {
	Argv   []string
	Status int
}

func (e *CommandFailure) Error() string {
	return fmt.Sprintf("%s exited with status %d", strings.Join(e.Argv, " "), e.Status)
}

// EnvError reports an environment definition that could not be read or
// parsed while building a step's environment. Source is "env" for an inline
// definition or the path of an env file.
type EnvError struct {
	Task   string
	Source string
	Err    error
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("task %q: %s: %v", e.Task, e.Source, e.Err)
}

func (e *EnvError) Unwrap() error { return e.Err }
