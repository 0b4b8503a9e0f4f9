package lang

import (
	"context"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScopeVariables(t *testing.T) {
	root := NewScope(WithVars(map[string]any{"a": 1, "b": "root"}))

	child := root.Child()
	child.SetVar("b", "child")
	child.SetVar("c", []int{1})

	if child.Parent() != root || root.Parent() != nil {
		t.Fatal("Parent links are wrong")
	}

	tests := []struct {
		scope *Scope
		name  string
		want  any
		ok    bool
	}{
		{root, "a", int64(1), true},
		{root, "b", "root", true},
		{root, "c", nil, false},
		{child, "a", int64(1), true},
		{child, "b", "child", true},
		{child, "c", []any{int64(1)}, true},
	}

	for _, tt := range tests {
		got, ok := tt.scope.Var(tt.name)
		if ok != tt.ok {
			t.Errorf("Var(%q) ok = %v, want %v", tt.name, ok, tt.ok)
		}

		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Var(%q) mismatch (-want +got):\n%s", tt.name, diff)
		}
	}

	want := map[string]any{"a": int64(1), "b": "child", "c": []any{int64(1)}}
	if diff := cmp.Diff(want, child.Vars()); diff != "" {
		t.Errorf("Vars mismatch (-want +got):\n%s", diff)
	}

	if got := child.VarNames(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("VarNames = %v", got)
	}
}

func TestScopeNullBinding(t *testing.T) {
	s := NewScope(WithVars(map[string]any{"n": nil}))

	v, ok := s.Var("n")
	if !ok || v != nil {
		t.Errorf("Var(n) = %v, %v; want nil, true", v, ok)
	}
}

func TestScopeRegistriesLiveOnRoot(t *testing.T) {
	root := NewScope()
	child := root.Child().Child()

	child.SetPipeFunc("p", func(_ context.Context, v any, _ []any) (any, error) { return v, nil })
	child.SetFuncFunc("f", func(context.Context, []any) (any, error) { return nil, nil })
	child.SetTemplate("t", MustParse("x"))

	if _, ok := root.Pipe("p"); !ok {
		t.Error("pipe registered on child is not visible from root")
	}

	if _, ok := root.Func("f"); !ok {
		t.Error("function registered on child is not visible from root")
	}

	if _, ok := root.Template("t"); !ok {
		t.Error("template registered on child is not visible from root")
	}

	if got := child.PipeNames(); !slices.Equal(got, []string{"p"}) {
		t.Errorf("PipeNames = %v", got)
	}

	if got := child.FuncNames(); !slices.Equal(got, []string{"f"}) {
		t.Errorf("FuncNames = %v", got)
	}

	if got := child.TemplateNames(); !slices.Equal(got, []string{"t"}) {
		t.Errorf("TemplateNames = %v", got)
	}
}

func TestScopeBuiltins(t *testing.T) {
	s := NewScope(WithBuiltins())

	for _, name := range []string{"upper", "trim", "join", "json", "yaml", "pathprepend", "default"} {
		if _, ok := s.Pipe(name); !ok {
			t.Errorf("builtin pipe %q is not registered", name)
		}
	}

	for _, name := range []string{"range", "len", "env", "min", "max", "expr"} {
		if _, ok := s.Func(name); !ok {
			t.Errorf("builtin function %q is not registered", name)
		}
	}

	if _, ok := NewScope().Pipe("upper"); ok {
		t.Error("scope without builtins has builtin pipes")
	}
}
