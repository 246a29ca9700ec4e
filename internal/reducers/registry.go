package reducers

import (
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/lcr/internal/reduce"
)

// Registry resolves reducers by name
type Registry struct {
	order  []string
	byName map[string]reduce.Reducer
}

// NewRegistry creates a registry holding reducers in the given order
func NewRegistry(rs ...reduce.Reducer) *Registry {
	reg := &Registry{byName: make(map[string]reduce.Reducer, len(rs))}
	for _, r := range rs {
		if _, dup := reg.byName[r.Name()]; dup {
			continue
		}
		reg.order = append(reg.order, r.Name())
		reg.byName[r.Name()] = r
	}
	return reg
}

// Builtin returns the registry of reducers shipped with lcr
func Builtin() *Registry {
	return NewRegistry(Var{}, Name{}, Parentheses{}, ThisQualifier{}, Escaping{})
}

// Default returns every built-in reducer in the default order
func Default() []reduce.Reducer {
	return Builtin().All()
}

// Names returns the registered names in order
func (reg *Registry) Names() []string {
	return append([]string(nil), reg.order...)
}

// All returns every registered reducer in order
func (reg *Registry) All() []reduce.Reducer {
	out := make([]reduce.Reducer, 0, len(reg.order))
	for _, name := range reg.order {
		out = append(out, reg.byName[name])
	}
	return out
}

// Get returns the reducer called name
func (reg *Registry) Get(name string) (reduce.Reducer, bool) {
	r, ok := reg.byName[strings.TrimSpace(name)]
	return r, ok
}

// Select returns the named reducers in the order given. An empty list
// selects every reducer. Unknown names are reported with the closest
// registered name.
func (reg *Registry) Select(names []string) ([]reduce.Reducer, error) {
	if len(names) == 0 {
		return reg.All(), nil
	}
	out := make([]reduce.Reducer, 0, len(names))
	seen := make(map[string]bool)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		r, ok := reg.byName[name]
		if !ok {
			if s := reg.Suggest(name); s != "" {
				return nil, fmt.Errorf("unknown reducer %q (did you mean %q?)", name, s)
			}
			return nil, fmt.Errorf("unknown reducer %q", name)
		}
		seen[name] = true
		out = append(out, r)
	}
	return out, nil
}

// Select picks built-in reducers by name
func Select(names []string) ([]reduce.Reducer, error) {
	return Builtin().Select(names)
}

// Suggest returns the registered name closest to name, or "" when nothing
// is within two edits.
func (reg *Registry) Suggest(name string) string {
	best, bestDistance := "", 3
	for _, candidate := range reg.order {
		if d := edlib.LevenshteinDistance(strings.ToLower(name), candidate); d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	return best
}
