package repl

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ardnew/xtera/lang"
)

func TestDetectFunctionCall(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		cursor     int
		wantName   string
		wantIndex  int
		wantInCall bool
	}{
		{"no call", "greeting", 8, "", 0, false},
		{"first arg empty", "range(", 6, "range", 0, true},
		{"first arg typed", "range(1", 7, "range", 0, true},
		{"second arg", "range(1,", 8, "range", 1, true},
		{"second arg typed", "range(1, 5", 10, "range", 1, true},
		{"method call", "user.name.split(", 16, "user.name.split", 0, true},
		{"method on index", "xs[0].slice(1, ", 15, ".slice", 1, true},
		{"nested call inner", "max(len(xs", 10, "len", 0, true},
		{"nested call closed", "max(len(xs), ", 13, "max", 1, true},
		{"comma inside array", "max([1, 2], ", 12, "max", 1, true},
		{"closed call", "range(3)", 8, "", 0, false},
		{"inside array literal", "[1, ", 4, "", 0, false},
		{"grouping paren", "(a + ", 5, "", 0, false},
		{"cursor before paren", "range(1)", 3, "", 0, false},
		{"cursor past end", "len(", 99, "len", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := detectFunctionCall(tt.input, tt.cursor)
			want := functionCall{name: tt.wantName, argIndex: tt.wantIndex, inCall: tt.wantInCall}

			if got != want {
				t.Errorf("detectFunctionCall(%q, %d) = %+v, want %+v",
					tt.input, tt.cursor, got, want)
			}
		})
	}
}

func TestGetSignature(t *testing.T) {
	scope := lang.NewScope(lang.WithBuiltins())
	scope.SetFuncFunc("greet", func(context.Context, []any) (any, error) { return "hi", nil })

	tests := []struct {
		name          string
		funcName      string
		wantSignature string
		wantParams    []string
	}{
		{"builtin range", "range", "range(from, to)", []string{"from", "to"}},
		{"builtin variadic", "max", "max(...values)", []string{"...values"}},
		{"builtin expr", "expr", "expr(source, env)", []string{"source", "env"}},
		{"method with args", "name.replace", "replace(old, new)", []string{"old", "new"}},
		{"method without args", "user.name.upper", "upper()", nil},
		{"user function", "greet", "greet(...args)", []string{"...args"}},
		{"method after index", ".slice", "slice(from, to)", []string{"from", "to"}},
		{"unknown method", "user.shout", "", nil},
		{"unknown function", "doesnotexist", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotSig, gotParams := getSignature(scope, tt.funcName)

			if gotSig != tt.wantSignature {
				t.Errorf("getSignature(%q) signature = %q, want %q", tt.funcName, gotSig, tt.wantSignature)
			}

			if diff := cmp.Diff(tt.wantParams, gotParams); diff != "" {
				t.Errorf("getSignature(%q) params mismatch (-want +got):\n%s", tt.funcName, diff)
			}
		})
	}
}

func TestRenderSignatureHint(t *testing.T) {
	tests := []struct {
		name       string
		signature  string
		params     []string
		currentArg int
		want       string
	}{
		{"empty", "", nil, 0, ""},
		{"no params", "upper()", nil, 0, "upper()"},
		{"first param", "range(from, to)", []string{"from", "to"}, 0, "range(from, to)"},
		{"variadic", "max(...values)", []string{"...values"}, 3, "max(...values)"},
		{"malformed", "broken", nil, 0, "broken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := plain(renderSignatureHint(tt.signature, tt.params, tt.currentArg))
			if got != tt.want {
				t.Errorf("renderSignatureHint(%q) = %q, want %q", tt.signature, got, tt.want)
			}
		})
	}
}

// plain drops terminal escape sequences from s.
func plain(s string) string {
	var b strings.Builder

	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b {
			for i < len(s) && s[i] != 'm' {
				i++
			}

			continue
		}

		b.WriteByte(s[i])
	}

	return b.String()
}

func BenchmarkDetectFunctionCall(b *testing.B) {
	inputs := []string{
		"range(1, 10)",
		"user.name.split(\",\")",
		"max(len(items), len(other), ",
		"items | join:\", \"",
	}

	b.ReportAllocs()

	for i := 0; b.Loop(); i++ {
		in := inputs[i%len(inputs)]
		_ = detectFunctionCall(in, len(in))
	}
}
