package core

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/3cpo-dev/rr/pkg/api"
)

// Invocation names a task and the literal arguments appended to its command.
type Invocation struct {
	Name string
	Args []string
}

func (i Invocation) String() string {
	if len(i.Args) == 0 {
		return i.Name
	}
	return shellquote.Join(append([]string{i.Name}, i.Args...)...)
}

// Task is one decoded task definition. Tasks are read-only once parsed.
type Task struct {
	Name string
	// Cmd is the argv of the task's own command, empty when the task only
	// chains other tasks.
	Cmd  []string
	Pre  []Invocation
	Post []Invocation
	Cwd  string
	// Env holds literal variables; EnvText holds an inline environment
	// definition. At most one of them is set.
	Env     map[string]string
	EnvText string
	EnvFile string
	Help    string
	// Script is set for executables found in the virtual environment rather
	// than defined in the manifest.
	Script bool
}

var taskKeys = map[string]bool{
	"cmd": true, "cwd": true, "env": true, "env-file": true,
	"help": true, "pre": true, "post": true,
}

// ParseTask decodes a manifest entry: a command string, a command list, or a
// table with cmd, cwd, env, env-file, help, pre and post keys.
func ParseTask(name string, entry any) (*Task, error) {
	invalid := func(format string, args ...any) error {
		return &InvalidTaskDefinitionError{Name: name, Reason: fmt.Sprintf(format, args...)}
	}
	task := &Task{Name: name}
	switch v := entry.(type) {
	case string, []any, []string:
		cmd, err := parseCommand(v)
		if err != nil {
			return nil, invalid("%v", err)
		}
		task.Cmd = cmd
	case map[string]any:
		if err := task.parseTable(v); err != nil {
			return nil, invalid("%v", err)
		}
	default:
		return nil, invalid("expected a string, list, or table, got %s", typeName(entry))
	}
	if len(task.Cmd) == 0 && len(task.Pre) == 0 && len(task.Post) == 0 {
		return nil, invalid("no cmd, pre, or post defined")
	}
	return task, nil
}

func (t *Task) parseTable(table map[string]any) error {
	var err error
	if v, ok := table["cmd"]; ok && !blank(v) {
		if t.Cmd, err = parseCommand(v); err != nil {
			return fmt.Errorf("cmd: %w", err)
		}
	}
	if t.Cwd, err = optionalString(table, "cwd"); err != nil {
		return err
	}
	if t.EnvFile, err = optionalString(table, "env-file"); err != nil {
		return err
	}
	if t.Help, err = optionalString(table, "help"); err != nil {
		return err
	}
	switch env := table["env"].(type) {
	case nil:
	case string:
		t.EnvText = strings.TrimSpace(env)
	case map[string]any:
		t.Env = make(map[string]string, len(env))
		for k, v := range env {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("env: value of %s must be a string, got %s", k, typeName(v))
			}
			t.Env[k] = s
		}
	default:
		return fmt.Errorf("env: expected a string or table, got %s", typeName(env))
	}
	if t.Pre, err = parseInvocations(table["pre"]); err != nil {
		return fmt.Errorf("pre: %w", err)
	}
	if t.Post, err = parseInvocations(table["post"]); err != nil {
		return fmt.Errorf("post: %w", err)
	}
	for k := range table {
		if !taskKeys[k] {
			log.Warn().Str("task", t.Name).Str("key", k).Msg("Ignoring unknown task key")
		}
	}
	return nil
}

// parseCommand turns a command string or list into argv. Strings are split
// with POSIX shell quoting rules; no other shell processing happens.
func parseCommand(v any) ([]string, error) {
	var argv []string
	switch cmd := v.(type) {
	case string:
		words, err := shellquote.Split(strings.TrimSpace(cmd))
		if err != nil {
			return nil, fmt.Errorf("split %q: %w", cmd, err)
		}
		argv = words
	case []string:
		argv = append(argv, cmd...)
	case []any:
		list, err := stringList(cmd)
		if err != nil {
			return nil, err
		}
		argv = list
	default:
		return nil, fmt.Errorf("expected a string or list of strings, got %s", typeName(v))
	}
	if len(argv) > 0 {
		argv[0] = strings.TrimSpace(argv[0])
	}
	if len(argv) == 0 || argv[0] == "" {
		return nil, fmt.Errorf("empty command")
	}
	return argv, nil
}

func parseInvocations(v any) ([]Invocation, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %s", typeName(v))
	}
	out := make([]Invocation, 0, len(list))
	for i, item := range list {
		argv, err := parseCommand(item)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		out = append(out, Invocation{Name: argv[0], Args: argv[1:]})
	}
	return out, nil
}

func optionalString(table map[string]any, key string) (string, error) {
	v, ok := table[key]
	if !ok {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: expected a string, got %s", key, typeName(v))
	}
	return strings.TrimSpace(s), nil
}

func stringList(list []any) ([]string, error) {
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected a list of strings, found %s", typeName(item))
		}
		out = append(out, s)
	}
	return out, nil
}

func blank(v any) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "nothing"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int64, float64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "table"
	}
	return fmt.Sprintf("%T", v)
}

// Spec returns the display form of the task.
func (t *Task) Spec() api.TaskSpec {
	spec := api.TaskSpec{
		Name:    t.Name,
		Help:    t.Help,
		Cmd:     t.Cmd,
		Cwd:     t.Cwd,
		EnvText: t.EnvText,
		EnvFile: t.EnvFile,
	}
	if len(t.Env) > 0 {
		spec.Env = make(map[string]string, len(t.Env))
		for k, v := range t.Env {
			spec.Env[k] = v
		}
	}
	for _, inv := range t.Pre {
		spec.Pre = append(spec.Pre, inv.String())
	}
	for _, inv := range t.Post {
		spec.Post = append(spec.Post, inv.String())
	}
	if t.Script {
		spec.Kind = api.KindScript
	} else {
		spec.Kind = api.KindTask
	}
	return spec
}
