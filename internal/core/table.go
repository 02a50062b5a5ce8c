package core

import "sort"

// Table holds the manifest's task entries. Entries are decoded on first
// lookup so one malformed task does not prevent running the others.
type Table struct {
	names   []string
	entries map[string]any
	tasks   map[string]*Task
}

// NewTable returns a table over entries. order gives the listing order;
// names missing from order are listed after it in sorted order.
func NewTable(entries map[string]any, order []string) *Table {
	t := &Table{entries: entries, tasks: make(map[string]*Task, len(entries))}
	seen := make(map[string]bool, len(entries))
	for _, name := range order {
		if _, ok := entries[name]; ok && !seen[name] {
			seen[name] = true
			t.names = append(t.names, name)
		}
	}
	var rest []string
	for name := range entries {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	t.names = append(t.names, rest...)
	return t
}

// Names returns the task names in listing order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Has reports whether name has an entry, valid or not.
func (t *Table) Has(name string) bool {
	_, ok := t.entries[name]
	return ok
}

// Lookup returns the task called name. It fails with *TaskNotFoundError or
// *InvalidTaskDefinitionError.
func (t *Table) Lookup(name string) (*Task, error) {
	if task, ok := t.tasks[name]; ok {
		return task, nil
	}
	entry, ok := t.entries[name]
	if !ok {
		return nil, &TaskNotFoundError{Name: name}
	}
	task, err := ParseTask(name, entry)
	if err != nil {
		return nil, err
	}
	t.tasks[name] = task
	return task, nil
}
