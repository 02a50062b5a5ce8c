package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"

	"github.com/3cpo-dev/rr/internal/envfile"
)

const manifest = `
[project]
name = "demo"

[tool.pyproject-runner.tasks]
build = { cmd = "python -m build", help = "Build the distribution" }
fail = ["/bin/sh", "-c", "exit 4"]
broken = { help = "no command" }
"check:env" = { cmd = "true", env = "A='open" }
`

func setupProject(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("UV_PROJECT_ENVIRONMENT", "")
	t.Setenv("COLUMNS", "80")
	color.NoColor = true
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	color.NoColor = true
	return out.String(), err
}

func TestListTasks(t *testing.T) {
	dir := setupProject(t)
	out, err := execute(t, "--project", dir, "--list", "--color", "never")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := "build      Build the distribution\nfail\ncheck:env\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestOverviewWithoutCommand(t *testing.T) {
	dir := setupProject(t)
	out, err := execute(t, "--project", filepath.Join(dir, "pyproject.toml"), "--color", "never")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, line := range []string{"+ build", "+ check:env", "+ fail"} {
		if !strings.Contains(out, line+"\n") {
			t.Fatalf("missing %q in:\n%s", line, out)
		}
	}
	if strings.Contains(out, "broken") {
		t.Fatalf("invalid task listed:\n%s", out)
	}
}

func TestShowProject(t *testing.T) {
	dir := setupProject(t)
	out, err := execute(t, "--project", dir, "--show-project", "--color", "never")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{
		"name  demo\n",
		"root  " + dir + "\n",
		"venv  " + filepath.Join(dir, ".venv") + "\n",
		"\ntasks\n",
		"  broken\n    invalid task \"broken\": no cmd, pre, or post defined\n",
		"    help: Build the distribution\n",
		"    cmd: [python, ",
		"    Error parsing 'env' value: line 1, column 3: expected a matching end quote\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRunReportsChildStatus(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires /bin/sh")
	}
	dir := setupProject(t)
	_, err := execute(t, "--project", dir, "fail")
	var stderr bytes.Buffer
	if status := report(&stderr, err); status != 4 {
		t.Fatalf("status %d, want 4", status)
	}
	if stderr.Len() != 0 {
		t.Fatalf("unexpected error output %q", stderr.String())
	}
}

func TestRunErrors(t *testing.T) {
	dir := setupProject(t)
	cases := []struct {
		args   []string
		status int
		msg    string
	}{
		{[]string{"--project", dir, "nope"}, 1, `task "nope" not found`},
		{[]string{"--project", dir, "broken"}, 1, "no cmd, pre, or post defined"},
		{[]string{"--bogus"}, 2, "unknown flag: --bogus"},
		{[]string{"--color", "sometimes", "--project", dir, "-l"}, 2, "invalid color mode"},
		{[]string{"--log", "loud", "--project", dir, "-l"}, 2, "invalid log level"},
		{[]string{"--project", filepath.Join(dir, "missing")}, 1, "open project"},
	}
	for _, c := range cases {
		_, err := execute(t, c.args...)
		if err == nil {
			t.Fatalf("%v: expected error", c.args)
		}
		var stderr bytes.Buffer
		if status := report(&stderr, err); status != c.status {
			t.Fatalf("%v: status %d, want %d", c.args, status, c.status)
		}
		if !strings.Contains(stderr.String(), c.msg) {
			t.Fatalf("%v: message %q does not contain %q", c.args, stderr.String(), c.msg)
		}
	}
}

func TestFormatErrorPointsAtColumn(t *testing.T) {
	color.NoColor = true
	_, err := envfile.Parse("A=1\nB 2\n")
	if err == nil {
		t.Fatalf("expected parse error")
	}
	got := formatError(errors.Join(errors.New("task \"x\": env"), err))
	if !strings.HasSuffix(got, "\n  | B 2\n  |   ^") {
		t.Fatalf("unexpected format %q", got)
	}
}

func TestWrap(t *testing.T) {
	got := wrap("  one two three four", 10)
	want := []string{"  one two", "  three", "  four"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("wrap mismatch (-want +got):\n%s", diff)
	}
	if got := wrap("", 10); len(got) != 1 || got[0] != "" {
		t.Fatalf("empty line wrapped to %q", got)
	}
}

func TestDefinitionListLongTerm(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	p := &printer{w: &out, width: 40}
	p.definitionList([]definition{
		{term: "a", text: "short"},
		{term: "a-very-long-task-name-indeed", text: "wraps onto the next line"},
	}, 0)
	want := "a  short\na-very-long-task-name-indeed\n   wraps onto the next line\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Fatalf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestSetupColor(t *testing.T) {
	t.Cleanup(func() { color.NoColor = true })
	if err := setupColor("always"); err != nil || color.NoColor {
		t.Fatalf("always: %v %v", err, color.NoColor)
	}
	t.Setenv("NO_COLOR", "1")
	if err := setupColor(""); err != nil || !color.NoColor {
		t.Fatalf("NO_COLOR not honored")
	}
	t.Setenv("NO_COLOR", "")
	t.Setenv("FORCE_COLOR", "1")
	if err := setupColor(""); err != nil || color.NoColor {
		t.Fatalf("FORCE_COLOR not honored")
	}
	if err := setupColor("rainbow"); err == nil {
		t.Fatalf("expected error for invalid mode")
	}
}
