package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/3cpo-dev/rr/internal/core"
	"github.com/3cpo-dev/rr/internal/envfile"
	"github.com/3cpo-dev/rr/internal/project"
)

const (
	maxWidth   = 120
	maxTermCol = 20
)

var (
	bold = color.New(color.Bold).SprintFunc()
	cyan = color.New(color.FgCyan).SprintFunc()
	red  = color.New(color.FgRed).SprintFunc()
)

// setupColor applies the --color mode. Without a mode, NO_COLOR and
// FORCE_COLOR are honored before falling back to terminal detection.
func setupColor(mode string) error {
	switch mode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	case "auto":
	case "":
		if os.Getenv("NO_COLOR") != "" {
			color.NoColor = true
		} else if os.Getenv("FORCE_COLOR") != "" {
			color.NoColor = false
		}
	default:
		return fmt.Errorf("invalid color mode %q: want auto, always, or never", mode)
	}
	return nil
}

// contentWidth returns the terminal width, capped for readability.
func contentWidth() int {
	width := 0
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width = w
	}
	if width <= 0 {
		width, _ = strconv.Atoi(os.Getenv("COLUMNS"))
	}
	if width <= 0 {
		width = 80
	}
	if width > maxWidth {
		width = maxWidth
	}
	return width
}

type printer struct {
	w     io.Writer
	width int
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, width: contentWidth()}
}

type definition struct {
	term string
	text string
}

// tasks prints the usable tasks and their help as a definition list.
func (p *printer) tasks(table *core.Table) {
	var items []definition
	for _, name := range table.Names() {
		task, err := table.Lookup(name)
		if err != nil {
			continue
		}
		items = append(items, definition{term: name, text: task.Help})
	}
	p.definitionList(items, 0)
}

// definitionList prints terms followed by their wrapped definitions. Terms
// longer than maxTermCol get a line of their own.
func (p *printer) definitionList(items []definition, indent int) {
	termWidth := 1
	for _, item := range items {
		if n := len(item.term); n <= maxTermCol && n > termWidth {
			termWidth = n
		}
	}
	lead := strings.Repeat(" ", indent)
	hanging := strings.Repeat(" ", indent+termWidth+2)
	textWidth := p.width - indent - termWidth - 2
	if textWidth < 20 {
		textWidth = 20
	}
	for _, item := range items {
		var lines []string
		for _, line := range strings.Split(item.text, "\n") {
			lines = append(lines, wrap(line, textWidth)...)
		}
		if item.text == "" {
			lines = nil
		}
		fmt.Fprint(p.w, lead, bold(item.term))
		if len(item.term) > termWidth || len(lines) == 0 {
			fmt.Fprintln(p.w)
		} else {
			fmt.Fprint(p.w, strings.Repeat(" ", termWidth-len(item.term)+2), lines[0], "\n")
			lines = lines[1:]
		}
		for _, line := range lines {
			fmt.Fprintln(p.w, strings.TrimRight(hanging+line, " "))
		}
	}
}

// wrap breaks line into chunks no wider than width at spaces, keeping the
// line's leading indentation on every chunk.
func wrap(line string, width int) []string {
	trimmed := strings.TrimLeft(line, " \t")
	indent := line[:len(line)-len(trimmed)]
	words := strings.Fields(trimmed)
	if len(words) == 0 {
		return []string{""}
	}
	var out []string
	cur := indent + words[0]
	for _, word := range words[1:] {
		if len(cur)+1+len(word) > width {
			out = append(out, cur)
			cur = indent + word
			continue
		}
		cur += " " + word
	}
	return append(out, cur)
}

// overview prints the tasks (+) and environment scripts available when rr is
// run without a command.
func (p *printer) overview(table *core.Table, scripts []string) {
	type entry struct {
		name   string
		script bool
	}
	var entries []entry
	for _, name := range table.Names() {
		if _, err := table.Lookup(name); err == nil {
			entries = append(entries, entry{name: name})
		}
	}
	for _, name := range scripts {
		entries = append(entries, entry{name: name, script: true})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	fmt.Fprintln(p.w, "Provide a command to invoke with `rr <command>`.")
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "The following scripts ( ) and tasks (+) are available in the environment:")
	fmt.Fprintln(p.w)
	for _, e := range entries {
		marker := cyan("+")
		if e.script {
			marker = " "
		}
		fmt.Fprintf(p.w, "%s %s\n", marker, e.name)
	}
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "See %s for more information\n", bold("`rr --help`"))
}

// project prints the project layout and every task with the problems found
// while checking it.
func (p *printer) project(proj *project.Project, runner *core.Runner) error {
	spec := proj.Spec()
	p.definitionList([]definition{
		{term: "name", text: spec.Name},
		{term: "root", text: spec.Root},
		{term: "venv", text: spec.Venv},
	}, 0)
	if ws := spec.Workspace; ws != nil {
		fmt.Fprintln(p.w)
		fmt.Fprintln(p.w, bold("workspace"))
		p.definitionList([]definition{
			{term: "name", text: ws.Name},
			{term: "root", text: ws.Root},
			{term: "members", text: strings.Join(ws.Members, ", ")},
		}, 2)
	}

	names := runner.Table.Names()
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, bold("tasks"))
	for _, name := range names {
		fmt.Fprintln(p.w, "  "+bold(name))
		task, err := runner.Inspect(name)
		if err != nil {
			fmt.Fprintln(p.w, red("    "+err.Error()))
			continue
		}
		problems := task.Problems
		task.Problems = nil

		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(task); err != nil {
			return fmt.Errorf("encode task %s: %w", name, err)
		}
		_ = enc.Close()
		for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
			fmt.Fprintln(p.w, "    "+line)
		}
		for _, problem := range problems {
			fmt.Fprintln(p.w, red("    Error "+problem))
		}
	}
	return nil
}

// formatError renders err for the terminal, pointing at the offending
// column for environment definition errors.
func formatError(err error) string {
	msg := red("rr:") + " " + err.Error()
	var perr *envfile.ParseError
	if errors.As(err, &perr) && perr.Text != "" {
		col := perr.Column - 1
		if col < 0 {
			col = 0
		}
		msg += "\n  | " + perr.Text + "\n  | " + strings.Repeat(" ", col) + "^"
	}
	return msg
}
