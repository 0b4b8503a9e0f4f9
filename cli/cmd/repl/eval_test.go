package repl

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardnew/xtera/lang"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantText string
		wantKind string
	}{
		{"pipe", "user.name | upper", `"ADA"`, "string"},
		{"arithmetic", "count * 2 + 1", "7", "int"},
		{"array", "user.tags", `["admin","dev"]`, "array"},
		{"method", "user.tags.join('+')", `"admin+dev"`, "string"},
		{"null", "user.missing", "null", "null"},
		{"function", "len(user.tags)", "2", "int"},
		{"interpolation", "Hello, {{ user.name }}!", "Hello, ada!", ""},
		{"directive", "@if (count > 2) {big} @else {small}", "big", ""},
		{"loop", "@for (t of user.tags) {[{{ t }}]}", "[admin][dev]", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := evaluate(t.Context(), testScope(), tt.input)
			if err != nil {
				t.Fatalf("evaluate(%q) error: %v", tt.input, err)
			}

			if res.text != tt.wantText || res.kind != tt.wantKind {
				t.Errorf("evaluate(%q) = (%q, %q), want (%q, %q)",
					tt.input, res.text, res.kind, tt.wantText, tt.wantKind)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sentinel error
		contains []string
	}{
		{
			name:     "undefined variable",
			input:    "usr.name",
			sentinel: lang.ErrUndefinedVariable,
			contains: []string{"undefined variable 'usr'", "^^^", "did you mean user?"},
		},
		{
			name:     "undefined pipe",
			input:    "user.name | uper",
			sentinel: lang.ErrUndefinedPipe,
			contains: []string{"did you mean upper?"},
		},
		{
			name:     "parse error",
			input:    "1 +",
			sentinel: lang.ErrParse,
			contains: []string{"repl:1:"},
		},
		{
			name:     "template parse error",
			input:    "@if (count) {",
			sentinel: lang.ErrParse,
			contains: []string{"unclosed @if body"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := testScope()

			_, err := evaluate(t.Context(), scope, tt.input)
			if !errors.Is(err, tt.sentinel) {
				t.Fatalf("evaluate(%q) error = %v, want %v", tt.input, err, tt.sentinel)
			}

			got := describe(err, scope)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("describe() = %q, missing %q", got, s)
				}
			}
		})
	}
}

func TestFormatResult(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{"a\"b", `"a\"b"`},
		{int64(-3), "-3"},
		{1.5, "1.5"},
		{true, "true"},
		{map[string]any{"b": int64(1), "a": "x"}, `{"a":"x","b":1}`},
	}

	for _, tt := range tests {
		if got := formatResult(tt.in); got != tt.want {
			t.Errorf("formatResult(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCommand(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		scope := testScope()

		out, err := command(t.Context(), scope, "set", "double = count * 2")
		if err != nil {
			t.Fatal(err)
		}

		if out != "double = 6" {
			t.Errorf("set output = %q", out)
		}

		if v, _ := scope.Var("double"); v != int64(6) {
			t.Errorf("double = %#v, want 6", v)
		}
	})

	t.Run("set usage", func(t *testing.T) {
		for _, args := range []string{"", "= 1", "x", "a.b = 1", "two words = 1", "null = 1", "a-b = 1"} {
			if _, err := command(t.Context(), testScope(), "set", args); !errors.Is(err, ErrUsage) {
				t.Errorf("set %q error = %v, want ErrUsage", args, err)
			}
		}
	})

	t.Run("set eval error", func(t *testing.T) {
		_, err := command(t.Context(), testScope(), "set", "x = nope")
		if !errors.Is(err, lang.ErrUndefinedVariable) {
			t.Errorf("error = %v, want undefined variable", err)
		}
	})

	t.Run("load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "vars.yaml")
		if err := os.WriteFile(path, []byte("port: 8080\nhost: example.com\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		scope := testScope()

		out, err := command(t.Context(), scope, "load", path)
		if err != nil {
			t.Fatal(err)
		}

		if !strings.HasPrefix(out, "loaded 2 variables") {
			t.Errorf("load output = %q", out)
		}

		res, err := evaluate(t.Context(), scope, "host + ':' + str(port)")
		if err != nil {
			t.Fatal(err)
		}

		if res.text != `"example.com:8080"` {
			t.Errorf("loaded vars evaluate to %s", res.text)
		}
	})

	t.Run("load missing", func(t *testing.T) {
		_, err := command(t.Context(), testScope(), "load", filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("error = %v, want not exist", err)
		}
	})

	t.Run("render and templates", func(t *testing.T) {
		scope := testScope()
		scope.SetTemplate("greet", lang.MustParse("hi {{ user.name }}", lang.WithName("greet")))
		scope.SetTemplate("page", lang.MustParse("@include ('greet')", lang.WithName("page")))

		out, err := command(t.Context(), scope, "render", "page")
		if err != nil {
			t.Fatal(err)
		}

		if out != "hi ada" {
			t.Errorf("render page = %q", out)
		}

		list, err := command(t.Context(), scope, "templates", "")
		if err != nil {
			t.Fatal(err)
		}

		if !strings.Contains(list, "greet") || !strings.Contains(plain(list), "page includes greet") {
			t.Errorf("templates = %q", list)
		}

		if _, err := command(t.Context(), scope, "render", "nope"); !errors.Is(err, lang.ErrUndefinedTemplate) {
			t.Errorf("render nope error = %v", err)
		}
	})

	t.Run("listings", func(t *testing.T) {
		scope := testScope()

		vars, _ := command(t.Context(), scope, "vars", "")
		if !strings.Contains(vars, "count") || !strings.Contains(plain(vars), "user object") {
			t.Errorf("vars = %q", vars)
		}

		pipes, _ := command(t.Context(), scope, "pipes", "")
		if !strings.Contains(pipes, "upper") {
			t.Errorf("pipes = %q", pipes)
		}

		funcs, _ := command(t.Context(), scope, "funcs", "")
		if !strings.Contains(funcs, "range") {
			t.Errorf("funcs = %q", funcs)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := command(t.Context(), testScope(), "frobnicate", ""); err == nil {
			t.Error("unknown command succeeded")
		}
	})
}
