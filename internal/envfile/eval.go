package envfile

import (
	"regexp"
	"runtime"
	"strings"
)

// caseInsensitive mirrors the platform environment: Windows variable names
// are case-insensitive and are normalized to upper case.
var caseInsensitive = runtime.GOOS == "windows"

var substRE = regexp.MustCompile(`\$(?:\{([A-Za-z_][A-Za-z0-9_]*)\}|([A-Za-z_][A-Za-z0-9_]*))`)

// Lookup returns the value of a variable and whether it is set.
type Lookup func(name string) (string, bool)

// MapLookup returns a Lookup backed by env.
func MapLookup(env map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}
}

// Key normalizes a variable name for the current platform.
func Key(name string) string {
	if caseInsensitive {
		return strings.ToUpper(name)
	}
	return name
}

func substitute(text string, lookup Lookup) string {
	return substRE.ReplaceAllStringFunc(text, func(m string) string {
		sub := substRE.FindStringSubmatch(m)
		name := sub[1]
		if name == "" {
			name = sub[2]
		}
		if lookup == nil {
			return ""
		}
		v, _ := lookup(Key(name))
		return v
	})
}

// Op is one evaluated assignment: set Name to Value, or remove Name when
// Unset is true.
type Op struct {
	Name  string
	Value string
	Unset bool
}

// Evaluate parses text and expands every assignment in order. Substitutions
// see the assignments made earlier in text first and base second; a later
// assignment never changes an earlier value. Nothing is evaluated if text
// fails to parse.
func Evaluate(text string, base Lookup) ([]Op, error) {
	assignments, err := Parse(text)
	if err != nil {
		return nil, err
	}
	updates := make(map[string]Op, len(assignments))
	lookup := func(name string) (string, bool) {
		if op, ok := updates[name]; ok {
			return op.Value, !op.Unset
		}
		if base == nil {
			return "", false
		}
		return base(name)
	}
	ops := make([]Op, 0, len(assignments))
	for _, a := range assignments {
		op := Op{Name: Key(a.Name), Unset: a.Unset()}
		if !op.Unset {
			op.Value = a.Expand(lookup)
		}
		updates[op.Name] = op
		ops = append(ops, op)
	}
	return ops, nil
}

// Apply applies ops to env in order, modifying env.
func Apply(env map[string]string, ops []Op) {
	for _, op := range ops {
		if op.Unset {
			delete(env, op.Name)
		} else {
			env[op.Name] = op.Value
		}
	}
}

// Expand returns a copy of env updated by the assignments in text. env is
// not modified.
func Expand(text string, env map[string]string) (map[string]string, error) {
	ops, err := Evaluate(text, MapLookup(env))
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(env)+len(ops))
	for k, v := range env {
		out[k] = v
	}
	Apply(out, ops)
	return out, nil
}
