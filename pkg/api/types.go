package api

// v0 contains public types used for task listings and project display.

type TaskKind string

const (
	KindTask   TaskKind = "task"
	KindScript TaskKind = "script"
)

type TaskSpec struct {
	Name    string            `json:"name" yaml:"-"`
	Kind    TaskKind          `json:"kind" yaml:"-"`
	Help    string            `json:"help,omitempty" yaml:"help,omitempty"`
	Cmd     []string          `json:"cmd,omitempty" yaml:"cmd,omitempty,flow"`
	Cwd     string            `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	EnvText string            `json:"env_text,omitempty" yaml:"env-text,omitempty"`
	EnvFile string            `json:"env_file,omitempty" yaml:"env-file,omitempty"`
	Pre     []string          `json:"pre,omitempty" yaml:"pre,omitempty,flow"`
	Post    []string          `json:"post,omitempty" yaml:"post,omitempty,flow"`
	// Problems lists issues found while checking the task without running it.
	Problems []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

type WorkspaceSpec struct {
	Name    string   `json:"name" yaml:"name"`
	Root    string   `json:"root" yaml:"root"`
	Members []string `json:"members" yaml:"members"`
}

type ProjectSpec struct {
	Name      string         `json:"name" yaml:"name"`
	Root      string         `json:"root" yaml:"root"`
	Venv      string         `json:"venv" yaml:"venv"`
	Workspace *WorkspaceSpec `json:"workspace,omitempty" yaml:"workspace,omitempty"`
}

type RunStatus string

const (
	RunSucceeded  RunStatus = "succeeded"
	RunFailed     RunStatus = "failed"
	RunNotStarted RunStatus = "not_started"
)
