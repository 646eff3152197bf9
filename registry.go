package searchql

import (
	"fmt"
	"sort"
)

// Args carries constructor arguments. Each kind reads the fields it needs.
type Args struct {
	Param   string
	Op      Op
	Value   any
	From    any
	To      any
	Pattern string
	Name    string
	Content Node
	Items   []Node
}

// Constructor builds a node of one kind.
type Constructor func(Args) (Node, error)

// Registry maps node type names to constructors. A backend forks the base
// registry once and overrides the names it specializes; the base registry is
// never affected by a fork.
type Registry struct {
	prefix string
	parent *Registry
	ctors  map[string]Constructor
}

// NewRegistry returns an empty base registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// BaseRegistry returns a base registry holding the generic node kinds.
func BaseRegistry() *Registry {
	r := NewRegistry()
	r.mustRegister(KindComparison, func(a Args) (Node, error) {
		return NewComparison(a.Param, a.Op, a.Value)
	})
	r.mustRegister(KindRangeComparison, func(a Args) (Node, error) {
		return NewRangeComparison(a.Param, a.From, a.To)
	})
	r.mustRegister(KindStringPattern, func(a Args) (Node, error) {
		return &StringPattern{Param: a.Param, Pattern: a.Pattern}, nil
	})
	r.mustRegister(KindConjunction, func(a Args) (Node, error) {
		return &Conjunction{Items: a.Items}, nil
	})
	r.mustRegister(KindConjunctionCopies, func(a Args) (Node, error) {
		return &ConjunctionCopies{Items: a.Items}, nil
	})
	r.mustRegister(KindDisjunction, func(a Args) (Node, error) {
		return &Disjunction{Items: a.Items}, nil
	})
	r.mustRegister(KindSubForm, func(a Args) (Node, error) {
		return &SubForm{Name: a.Name, Content: a.Content}, nil
	})
	return r
}

// Prefix returns the fork prefix, empty for a base registry.
func (r *Registry) Prefix() string {
	return r.prefix
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds a new kind to a base registry.
func (r *Registry) Register(name string, ctor Constructor) error {
	if r.parent != nil {
		return newConfigError(name, "forked registries accept overrides only, use Override")
	}
	if name == "" || ctor == nil {
		return newConfigError(name, "name and constructor are required")
	}
	if _, exists := r.ctors[name]; exists {
		return newConfigError(name, "already registered")
	}
	r.ctors[name] = ctor
	return nil
}

func (r *Registry) mustRegister(name string, ctor Constructor) {
	if err := r.Register(name, ctor); err != nil {
		panic(err)
	}
}

// Fork copies the registry for a backend whose overrides are named
// prefix + base name.
func (r *Registry) Fork(prefix string) (*Registry, error) {
	if prefix == "" {
		return nil, newConfigError("fork", "prefix must not be empty")
	}
	fork := &Registry{
		prefix: prefix,
		parent: r,
		ctors:  make(map[string]Constructor, len(r.ctors)),
	}
	for name, ctor := range r.ctors {
		fork.ctors[name] = ctor
	}
	return fork, nil
}

// MustFork is Fork that panics.
func (r *Registry) MustFork(prefix string) *Registry {
	fork, err := r.Fork(prefix)
	if err != nil {
		panic(err)
	}
	return fork
}

// Override shadows a base kind. name must be the fork prefix followed by a
// name registered in the parent, e.g. "SQL" + "Comparison".
func (r *Registry) Override(name string, ctor Constructor) error {
	if r.parent == nil {
		return newConfigError(name, "only forked registries accept overrides")
	}
	if ctor == nil {
		return newConfigError(name, "constructor is required")
	}
	base, ok := r.baseName(name)
	if !ok {
		return newConfigError(name, "name must be %q followed by one of %v", r.prefix, r.parent.Names())
	}
	if a, ok := sampleArgs(base); ok {
		n, err := ctor(a)
		if err != nil {
			return newConfigError(name, "constructor rejects sample %s arguments: %v", base, err)
		}
		if n == nil || n.Kind() != base {
			return newConfigError(name, "constructor builds a %s, want %s", kindOf(n), base)
		}
	}
	r.ctors[base] = r.checked(base, ctor)
	return nil
}

// sampleArgs returns valid arguments for a generic kind, used to check an
// override when it is defined. Kinds registered by callers have none and
// are checked on every build only.
func sampleArgs(kind string) (Args, bool) {
	leaf := &Comparison{Param: "field", Op: Eq, Value: 1}
	switch kind {
	case KindComparison:
		return Args{Param: "field", Op: Eq, Value: 1}, true
	case KindRangeComparison:
		return Args{Param: "field", From: 1, To: 2}, true
	case KindStringPattern:
		return Args{Param: "field", Pattern: "a*"}, true
	case KindConjunction, KindConjunctionCopies, KindDisjunction:
		return Args{Items: []Node{leaf}}, true
	case KindSubForm:
		return Args{Name: "form", Content: &Conjunction{Items: []Node{leaf}}}, true
	}
	return Args{}, false
}

func kindOf(n Node) string {
	if n == nil {
		return "nil node"
	}
	return n.Kind()
}

// MustOverride is Override that panics.
func (r *Registry) MustOverride(name string, ctor Constructor) {
	if err := r.Override(name, ctor); err != nil {
		panic(err)
	}
}

func (r *Registry) baseName(name string) (string, bool) {
	if len(name) <= len(r.prefix) || name[:len(r.prefix)] != r.prefix {
		return "", false
	}
	base := name[len(r.prefix):]
	_, ok := r.parent.ctors[base]
	return base, ok
}

// checked wraps ctor so a node of the wrong kind is rejected.
func (r *Registry) checked(base string, ctor Constructor) Constructor {
	return func(a Args) (Node, error) {
		n, err := ctor(a)
		if err != nil {
			return nil, err
		}
		if n == nil || n.Kind() != base {
			return nil, newConfigError(r.prefix+base, "constructor built a %s, want %s", kindOf(n), base)
		}
		return n, nil
	}
}

// Lookup resolves a constructor by name.
func (r *Registry) Lookup(name string) (Constructor, error) {
	ctor, ok := r.ctors[name]
	if !ok {
		return nil, &LookupError{Name: name, Registry: r.prefix}
	}
	return ctor, nil
}

// Build resolves name and constructs a node.
func (r *Registry) Build(name string, a Args) (Node, error) {
	ctor, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	n, err := ctor(a)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", name, err)
	}
	return n, nil
}

// Comparison builds the Comparison kind.
func (r *Registry) Comparison(param string, op Op, value any) (Node, error) {
	return r.Build(KindComparison, Args{Param: param, Op: op, Value: value})
}

// RangeComparison builds the RangeComparison kind.
func (r *Registry) RangeComparison(param string, from, to any) (Node, error) {
	return r.Build(KindRangeComparison, Args{Param: param, From: from, To: to})
}

// StringPattern builds the StringPattern kind.
func (r *Registry) StringPattern(param, pattern string) (Node, error) {
	return r.Build(KindStringPattern, Args{Param: param, Pattern: pattern})
}

// Conjunction builds the Conjunction kind.
func (r *Registry) Conjunction(items []Node) (Node, error) {
	return r.Build(KindConjunction, Args{Items: items})
}

// ConjunctionCopies builds the ConjunctionCopies kind.
func (r *Registry) ConjunctionCopies(items []Node) (Node, error) {
	return r.Build(KindConjunctionCopies, Args{Items: items})
}

// Disjunction builds the Disjunction kind.
func (r *Registry) Disjunction(items []Node) (Node, error) {
	return r.Build(KindDisjunction, Args{Items: items})
}

// SubForm builds the SubForm kind.
func (r *Registry) SubForm(name string, content Node) (Node, error) {
	return r.Build(KindSubForm, Args{Name: name, Content: content})
}
