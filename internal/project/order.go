package project

import (
	"github.com/pelletier/go-toml/v2/unstable"
)

// tableKeyOrder returns the keys of the table at path in the order they
// first appear in data. Keys defined through inline tables above path are not
// seen and fall back to sorted order in the task table. Syntax errors end the
// scan early; toml.Unmarshal reports them.
func tableKeyOrder(data []byte, path []string) []string {
	var (
		p     unstable.Parser
		order []string
		table []string
		seen  = map[string]bool{}
	)
	add := func(key []string) {
		if len(key) <= len(path) || !hasPrefix(key, path) {
			return
		}
		if name := key[len(path)]; !seen[name] {
			seen[name] = true
			order = append(order, name)
		}
	}
	p.Reset(data)
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			table = keyParts(expr.Key())
			add(table)
		case unstable.KeyValue:
			key := append(append([]string(nil), table...), keyParts(expr.Key())...)
			add(key)
		}
	}
	return order
}

func keyParts(it unstable.Iterator) []string {
	var parts []string
	for it.Next() {
		parts = append(parts, string(it.Node().Data))
	}
	return parts
}

func hasPrefix(key, prefix []string) bool {
	for i, k := range prefix {
		if key[i] != k {
			return false
		}
	}
	return true
}
