package lang

import (
	"context"
	"sort"
)

// Pipe transforms a value. It is applied with "value | name:arg…" and
// receives the evaluated input followed by the evaluated arguments.
type Pipe interface {
	Invoke(ctx context.Context, value any, args []any) (any, error)
}

// PipeFunc adapts an ordinary function to the [Pipe] interface.
type PipeFunc func(ctx context.Context, value any, args []any) (any, error)

// Invoke calls f(ctx, value, args).
func (f PipeFunc) Invoke(ctx context.Context, value any, args []any) (any, error) {
	return f(ctx, value, args)
}

// Func is a function called with "name(arg…)".
type Func interface {
	Invoke(ctx context.Context, args []any) (any, error)
}

// FuncFunc adapts an ordinary function to the [Func] interface.
type FuncFunc func(ctx context.Context, args []any) (any, error)

// Invoke calls f(ctx, args).
func (f FuncFunc) Invoke(ctx context.Context, args []any) (any, error) {
	return f(ctx, args)
}

// Scope is the runtime environment of a render: variables, pipes, functions
// and named templates.
//
// Variables are layered. A child scope made with [Scope.Child] holds only its
// own bindings and resolves every other name through its parent, so loop
// iterations never copy the enclosing environment. Pipes, functions and
// templates are held by the root scope and visible from every child; setting
// one on a child registers it on the root.
//
// A Scope is not safe for concurrent mutation. Concurrent renders may share a
// scope only while no goroutine modifies it.
type Scope struct {
	parent    *Scope
	root      *Scope
	vars      map[string]any
	pipes     map[string]Pipe
	funcs     map[string]Func
	templates map[string]*Template
}

// ScopeOption configures a new root [Scope].
type ScopeOption func(*Scope)

// WithBuiltins registers the builtin pipes and functions.
func WithBuiltins() ScopeOption {
	return func(s *Scope) {
		registerBuiltins(s)
	}
}

// WithVars binds every entry of vars as a variable.
func WithVars(vars map[string]any) ScopeOption {
	return func(s *Scope) {
		for name, v := range vars {
			s.SetVar(name, v)
		}
	}
}

// NewScope returns an empty root scope configured by opts.
func NewScope(opts ...ScopeOption) *Scope {
	s := &Scope{
		vars:      make(map[string]any),
		pipes:     make(map[string]Pipe),
		funcs:     make(map[string]Func),
		templates: make(map[string]*Template),
	}
	s.root = s

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Child returns a new scope whose variable lookups fall through to s.
func (s *Scope) Child() *Scope {
	return &Scope{parent: s, root: s.root}
}

// Parent returns the enclosing scope, or nil for a root scope.
func (s *Scope) Parent() *Scope { return s.parent }

// SetVar binds name to the template value of v in this scope frame.
// The value is normalized with [ToValue].
func (s *Scope) SetVar(name string, v any) {
	if s.vars == nil {
		s.vars = make(map[string]any, 1)
	}

	s.vars[name] = ToValue(v)
}

// bind stores an already normalized value.
func (s *Scope) bind(name string, v any) {
	if s.vars == nil {
		s.vars = make(map[string]any, 2)
	}

	s.vars[name] = v
}

// Var returns the value bound to name in the innermost frame that defines it.
func (s *Scope) Var(name string) (any, bool) {
	for f := s; f != nil; f = f.parent {
		if v, ok := f.vars[name]; ok {
			return v, true
		}
	}

	return nil, false
}

// Vars returns the variables visible from s, inner bindings shadowing outer
// ones.
func (s *Scope) Vars() map[string]any {
	out := make(map[string]any)

	for f := s; f != nil; f = f.parent {
		for name, v := range f.vars {
			if _, ok := out[name]; !ok {
				out[name] = v
			}
		}
	}

	return out
}

// VarNames returns the sorted names of the variables visible from s.
func (s *Scope) VarNames() []string { return sortedKeys(s.Vars()) }

// SetPipe registers p under name.
func (s *Scope) SetPipe(name string, p Pipe) { s.root.pipes[name] = p }

// SetPipeFunc registers f under name.
func (s *Scope) SetPipeFunc(name string, f PipeFunc) { s.SetPipe(name, f) }

// Pipe returns the pipe registered under name.
func (s *Scope) Pipe(name string) (Pipe, bool) {
	p, ok := s.root.pipes[name]

	return p, ok
}

// PipeNames returns the sorted names of all registered pipes.
func (s *Scope) PipeNames() []string { return sortedKeys(s.root.pipes) }

// SetFunc registers f under name.
func (s *Scope) SetFunc(name string, f Func) { s.root.funcs[name] = f }

// SetFuncFunc registers f under name.
func (s *Scope) SetFuncFunc(name string, f FuncFunc) { s.SetFunc(name, f) }

// Func returns the function registered under name.
func (s *Scope) Func(name string) (Func, bool) {
	f, ok := s.root.funcs[name]

	return f, ok
}

// FuncNames returns the sorted names of all registered functions.
func (s *Scope) FuncNames() []string { return sortedKeys(s.root.funcs) }

// SetTemplate registers tpl under name for @include and [RenderNamed].
func (s *Scope) SetTemplate(name string, tpl *Template) { s.root.templates[name] = tpl }

// Template returns the template registered under name.
func (s *Scope) Template(name string) (*Template, bool) {
	t, ok := s.root.templates[name]

	return t, ok
}

// TemplateNames returns the sorted names of all registered templates.
func (s *Scope) TemplateNames() []string { return sortedKeys(s.root.templates) }

// names returns every name resolvable in the namespace of kind, for
// suggestions.
func (s *Scope) names(kind ErrorKind) []string {
	switch kind {
	case UndefinedVariable:
		return s.VarNames()
	case UndefinedPipe:
		return s.PipeNames()
	case UndefinedTemplate:
		return s.TemplateNames()
	case NotCallable:
		return s.FuncNames()
	default:
		return nil
	}
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
