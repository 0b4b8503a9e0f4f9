package lang

import (
	"errors"
	"os"
	"slices"
	"strings"
	"testing"
)

func evalString(t *testing.T, src string, vars map[string]any) (string, error) {
	t.Helper()

	return renderString(t, "{{ "+src+" }}", NewScope(WithBuiltins(), WithVars(vars)))
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		expr string
		vars map[string]any
		want string
	}{
		{expr: "'hello wide-world' | title", want: "Hello Wide-World"},
		{expr: "'MiXed' | lower", want: "mixed"},
		{expr: "'a,b' | split:','", want: `["a","b"]`},
		{expr: "'a-b-c' | replace:'-':'+'", want: "a+b+c"},
		{expr: "['a', 'b'] | join:'/'", want: "a/b"},
		{expr: "[1, null, 'x'] | join", want: "1x"},
		{expr: "'abc' | contains:'b'", want: "true"},
		{expr: "[1, 2] | contains:2.0", want: "true"},
		{expr: "[1, 2, 3] | first", want: "1"},
		{expr: "[1, 2, 3] | last", want: "3"},
		{expr: "[] | first", want: ""},
		{expr: "{b: 1, a: 2} | keys", want: `["a","b"]`},
		{expr: "{b: 1, a: 2} | values", want: "[2,1]"},
		{expr: "'héllo' | length", want: "5"},
		{expr: "[3, 1, 2] | sort", want: "[1,2,3]"},
		{expr: "[2.5, 1, 2] | sort", want: "[1,2,2.5]"},
		{expr: "['b', 'c', 'a'] | sort | reverse", want: `["c","b","a"]`},
		{expr: "'abc' | reverse", want: "cba"},
		{expr: "{a: [1, 'x']} | json", want: `{"a":[1,"x"]}`},
		{expr: "{a: 1} | json:'  '", want: "{\n  \"a\": 1\n}"},
		{expr: "{a: 1} | yaml", want: "a: 1"},
		{expr: `'say "hi"' | quote`, want: `"say \"hi\""`},
		{expr: "x | abs", vars: map[string]any{"x": -3}, want: "3"},
		{expr: "x | abs", vars: map[string]any{"x": -2.5}, want: "2.5"},
		{expr: "2.5 | round", want: "3"},
		{expr: "1.25 | round:1", want: "1.3"},
		{expr: "7 | round", want: "7"},
		{expr: "null | default:'none'", want: "none"},
		{expr: "0 | default:5", want: "0"},

		{expr: "range(2, 5)", want: "[2,3,4]"},
		{expr: "range(0)", want: "[]"},
		{expr: "range(5, 2)", want: "[]"},
		{expr: "len('abc') + len([1]) + len({a: 1})", want: "5"},
		{expr: "min(3, 1, 2)", want: "1"},
		{expr: "max([4, 9.5, 1])", want: "9.5"},
		{expr: "max('a', 'c', 'b')", want: "c"},
		{expr: "min()", want: ""},
		{expr: "str(1.5) + '!'", want: "1.5!"},
		{expr: "int('42') + int(2.9) + int(true) + int(' 0x10 ')", want: "61"},
		{expr: "float(1) / 2", want: "0.5"},
		{expr: "float('2.5')", want: "2.5"},
		{expr: "expr('a * 2', {a: 21})", want: "42"},
		{expr: "expr('n + 1')", vars: map[string]any{"n": 1}, want: "2"},
		{expr: "expr('name + \"!\"')", vars: map[string]any{"name": "hi"}, want: "hi!"},

		{expr: "'abc'.startsWith('a') && 'abc'.endsWith('c')", want: "true"},
		{expr: "[1, 2, 3, 4].slice(1, 3)", want: "[2,3]"},
		{expr: "[1, 2, 3].slice(1)", want: "[2,3]"},
		{expr: "{a: 1}.keys()", want: `["a"]`},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evalString(t, tt.expr, tt.vars)
			if err != nil {
				t.Fatalf("error: %v", err)
			}

			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuiltinPathPrepend(t *testing.T) {
	sep := string(os.PathListSeparator)

	got, err := evalString(t, "path | pathprepend:'/opt/bin'",
		map[string]any{"path": "/usr/bin" + sep + "/bin"})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(got, "/opt/bin"+sep) {
		t.Errorf("pathprepend = %q, want %q first", got, "/opt/bin")
	}
}

func TestBuiltinEnv(t *testing.T) {
	t.Setenv("XTERA_TEST_VAR", "set")

	got, err := evalString(t, "env('XTERA_TEST_VAR')", nil)
	if err != nil || got != "set" {
		t.Errorf("env(set) = %q, %v; want set", got, err)
	}

	got, err = evalString(t, "env('XTERA_TEST_UNSET_VAR') | default:'none'", nil)
	if err != nil || got != "none" {
		t.Errorf("env(unset) = %q, %v; want none", got, err)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		expr string
		want error
	}{
		{"'x' | title:1", ErrTypeMismatch},
		{"1 | upper", ErrTypeMismatch},
		{"[1, 'a'] | sort", ErrTypeMismatch},
		{"'a' | split:1", ErrTypeMismatch},
		{"'a' | round", ErrTypeMismatch},
		{"1 | pathprepend:'/bin'", ErrTypeMismatch},
		{"range('a')", ErrTypeMismatch},
		{"range(0, 2000000)", ErrRangeLimit},
		{"len(1)", ErrTypeMismatch},
		{"max(1, 'a')", ErrTypeMismatch},
		{"int('abc')", ErrTypeMismatch},
		{"float(null)", ErrTypeMismatch},
		{"expr('1 +')", ErrExprCompile},
		{"expr('missing.field', {})", ErrExprCompile},
		{"expr(1)", ErrTypeMismatch},
		{"[1].slice(2)", ErrIndexOutOfBounds},
		{"[1, 2].slice(1, 0)", ErrIndexOutOfBounds},
		{"'abc'.upper(1)", ErrTypeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := evalString(t, tt.expr, nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEvalExpr(t *testing.T) {
	v, err := EvalExpr(`upper(name) + "!"`, map[string]any{"name": "go"})
	if err != nil {
		t.Fatal(err)
	}

	if v != "GO!" {
		t.Errorf("EvalExpr = %#v, want %q", v, "GO!")
	}

	v, err = EvalExpr("[1, 2, 3]", nil)
	if err != nil {
		t.Fatal(err)
	}

	if arr, ok := v.([]any); !ok || len(arr) != 3 || arr[0] != int64(1) {
		t.Errorf("EvalExpr array = %#v, want normalized []any", v)
	}
}

func TestMethodNames(t *testing.T) {
	if got := MethodNames(KindString); !slices.Contains(got, "upper") || !slices.IsSorted(got) {
		t.Errorf("MethodNames(string) = %v", got)
	}

	if got := MethodNames(KindInt); len(got) != 0 {
		t.Errorf("MethodNames(int) = %v, want none", got)
	}

	if got := kindsWith("len"); got != "string or array or object" {
		t.Errorf("kindsWith(len) = %q", got)
	}

	if got := kindsWith("keys"); !strings.EqualFold(got, "object") {
		t.Errorf("kindsWith(keys) = %q", got)
	}
}
