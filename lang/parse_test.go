package lang

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// astOpts compares syntax trees while ignoring source locations.
var astOpts = cmp.Options{
	cmpopts.IgnoreUnexported(
		TextNode{}, InterpNode{}, IfNode{}, ForNode{}, SwitchNode{}, IncludeNode{},
		LiteralExpr{}, IdentExpr{}, MemberExpr{}, IndexExpr{}, CallExpr{},
		MethodCallExpr{}, PipeExpr{}, BinaryExpr{}, UnaryExpr{}, ArrayExpr{},
		ObjectExpr{}, GroupExpr{},
	),
	cmpopts.IgnoreTypes(Span{}),
	cmpopts.EquateEmpty(),
}

func ident(name string) *IdentExpr { return &IdentExpr{Name: name} }

func lit(v any) *LiteralExpr { return &LiteralExpr{Value: v} }

func TestParseExpr(t *testing.T) {
	tests := []struct {
		input string
		want  Expr
	}{
		{
			input: "a + b * c",
			want: &BinaryExpr{
				Op:    OpAdd,
				Left:  ident("a"),
				Right: &BinaryExpr{Op: OpMul, Left: ident("b"), Right: ident("c")},
			},
		},
		{
			input: "a - b - c",
			want: &BinaryExpr{
				Op:    OpSub,
				Left:  &BinaryExpr{Op: OpSub, Left: ident("a"), Right: ident("b")},
				Right: ident("c"),
			},
		},
		{
			input: "!a && b || c == d",
			want: &BinaryExpr{
				Op: OpOr,
				Left: &BinaryExpr{
					Op:    OpAnd,
					Left:  &UnaryExpr{Op: OpNot, Operand: ident("a")},
					Right: ident("b"),
				},
				Right: &BinaryExpr{Op: OpEq, Left: ident("c"), Right: ident("d")},
			},
		},
		{
			input: "1 < 2 == true",
			want: &BinaryExpr{
				Op:    OpEq,
				Left:  &BinaryExpr{Op: OpLt, Left: lit(int64(1)), Right: lit(int64(2))},
				Right: lit(true),
			},
		},
		{
			input: "-x.y",
			want: &UnaryExpr{Op: OpNeg, Operand: &MemberExpr{Base: ident("x"), Field: "y"}},
		},
		{
			input: "a.b(1)[0]",
			want: &IndexExpr{
				Base: &MethodCallExpr{
					Receiver: ident("a"),
					Name:     "b",
					Args:     []Expr{lit(int64(1))},
				},
				Index: lit(int64(0)),
			},
		},
		{
			input: "f()",
			want:  &CallExpr{Name: "f"},
		},
		{
			input: "range(1, 3,)",
			want:  &CallExpr{Name: "range", Args: []Expr{lit(int64(1)), lit(int64(3))}},
		},
		{
			input: "x | f:1 | g",
			want: &PipeExpr{
				Name: "g",
				Input: &PipeExpr{
					Name:  "f",
					Input: ident("x"),
					Args:  []Expr{lit(int64(1))},
				},
			},
		},
		{
			input: "x | f(1, y | g)",
			want: &PipeExpr{
				Name:  "f",
				Input: ident("x"),
				Args: []Expr{
					lit(int64(1)),
					&PipeExpr{Name: "g", Input: ident("y")},
				},
			},
		},
		{
			input: "x | f:a.b:-1",
			want: &PipeExpr{
				Name:  "f",
				Input: ident("x"),
				Args: []Expr{
					&MemberExpr{Base: ident("a"), Field: "b"},
					&UnaryExpr{Op: OpNeg, Operand: lit(int64(1))},
				},
			},
		},
		{
			input: "a + b | f",
			want: &BinaryExpr{
				Op:    OpAdd,
				Left:  ident("a"),
				Right: &PipeExpr{Name: "f", Input: ident("b")},
			},
		},
		{
			input: `{k: 1, "two words": [true, null], of: 2.5}`,
			want: &ObjectExpr{Entries: []ObjectEntry{
				{Key: "k", Value: lit(int64(1))},
				{Key: "two words", Value: &ArrayExpr{Elems: []Expr{lit(true), lit(nil)}}},
				{Key: "of", Value: lit(2.5)},
			}},
		},
		{
			input: "(a + b) * c",
			want: &BinaryExpr{
				Op: OpMul,
				Left: &GroupExpr{Inner: &BinaryExpr{
					Op: OpAdd, Left: ident("a"), Right: ident("b"),
				}},
				Right: ident("c"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseExpr(t.Context(), tt.input)
			if err != nil {
				t.Fatalf("ParseExpr(%q) error: %v", tt.input, err)
			}

			if diff := cmp.Diff(tt.want, got, astOpts); diff != "" {
				t.Errorf("ParseExpr(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestParseExprTrailingInput(t *testing.T) {
	for _, input := range []string{"1 2", "a b", "x |", ""} {
		if _, err := ParseExpr(t.Context(), input); !errors.Is(err, ErrParse) {
			t.Errorf("ParseExpr(%q) error = %v, want parse error", input, err)
		}
	}
}

func TestParseDirectives(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Node
	}{
		{
			name:  "text and interpolation",
			input: "Hi {{ name }}!",
			want: []Node{
				&TextNode{Text: "Hi "},
				&InterpNode{Expr: ident("name")},
				&TextNode{Text: "!"},
			},
		},
		{
			name:  "if else-if else",
			input: "@if (a) {A} @else @if (b) {B}\n@else {C}",
			want: []Node{&IfNode{
				Branches: []IfBranch{
					{Cond: ident("a"), Body: []Node{&TextNode{Text: "A"}}},
					{Cond: ident("b"), Body: []Node{&TextNode{Text: "B"}}},
				},
				Else:    []Node{&TextNode{Text: "C"}},
				HasElse: true,
			}},
		},
		{
			name:  "if without else keeps trailing text",
			input: "@if (a) {A} tail",
			want: []Node{
				&IfNode{Branches: []IfBranch{{Cond: ident("a"), Body: []Node{&TextNode{Text: "A"}}}}},
				&TextNode{Text: " tail"},
			},
		},
		{
			name:  "for with track",
			input: "@for (item of items; track item.id) {[{{ item }}]}",
			want: []Node{&ForNode{
				Binding:  "item",
				Iterable: ident("items"),
				Track:    &MemberExpr{Base: ident("item"), Field: "id"},
				Body: []Node{
					&TextNode{Text: "["},
					&InterpNode{Expr: ident("item")},
					&TextNode{Text: "]"},
				},
			}},
		},
		{
			name:  "switch with catch-all case",
			input: "@switch (x) {\n  @case (1) {one}\n  @case (_) {other}\n}",
			want: []Node{&SwitchNode{
				Subject:    ident("x"),
				Cases:      []SwitchCase{{Value: lit(int64(1)), Body: []Node{&TextNode{Text: "one"}}}},
				Default:    []Node{&TextNode{Text: "other"}},
				HasDefault: true,
			}},
		},
		{
			name:  "include",
			input: `@include ("footer")`,
			want:  []Node{&IncludeNode{Name: lit("footer")}},
		},
		{
			name:  "nested bodies",
			input: "@if (a) {@for (x of xs) {{{ x }}}}",
			want: []Node{&IfNode{Branches: []IfBranch{{
				Cond: ident("a"),
				Body: []Node{&ForNode{
					Binding:  "x",
					Iterable: ident("xs"),
					Body:     []Node{&InterpNode{Expr: ident("x")}},
				}},
			}}}},
		},
		{
			name:  "object literal inside interpolation",
			input: "{{ {a: 1}}}",
			want: []Node{&InterpNode{Expr: &ObjectExpr{Entries: []ObjectEntry{
				{Key: "a", Value: lit(int64(1))},
			}}}},
		},
		{
			name:  "braces and at signs outside bodies are text",
			input: "a } b @ c@d.org",
			want:  []Node{&TextNode{Text: "a } b @ c@d.org"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := ParseString(t.Context(), tt.input)
			if err != nil {
				t.Fatalf("ParseString error: %v", err)
			}

			if diff := cmp.Diff(tt.want, tpl.Nodes, astOpts); diff != "" {
				t.Errorf("nodes mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trailing tokens", "{{ 1 2 }}", `unexpected number 2 after expression`},
		{"unterminated interpolation", "{{ x", "unterminated expression"},
		{"empty interpolation", "{{ }}", "expected expression"},
		{"unclosed body", "@if (a) {x", "unclosed @if body"},
		{"missing body", "@if (a) x", `expected "{" to open @if body`},
		{"stray else", "@else {x}", "@else without a preceding @if"},
		{"stray case", "@case (1) {x}", "@case outside of @switch"},
		{"duplicate default", "@switch (x) { @default {a} @default {b} }", "duplicate @default"},
		{"catch-all then default", "@switch (x) { @case (_) {a} @default {b} }", "duplicate @default"},
		{"default then catch-all", "@switch (x) { @default {a} @case (_) {b} }", "duplicate catch-all"},
		{"two catch-alls", "@switch (x) { @case (_) {a} @case (_) {b} }", "duplicate catch-all"},
		{"text in switch", "@switch (x) { junk }", "in @switch body"},
		{"unclosed switch", "@switch (x) {", "unclosed @switch body"},
		{"for without of", "@for (x in xs) {}", `expected "of"`},
		{"for without binding", "@for (1 of xs) {}", "as @for loop variable"},
		{"track without expression", "@for (x of xs; track) {}", "expected expression"},
		{"junk after track", "@for (x of xs; track x junk) {}", `")" to close @for header`},
		{"junk after iterable", "@for (x of xs junk) {}", `")" to close @for header`},
		{"call on group", "{{ (a)(1) }}", "only functions and methods can be called"},
		{"member without name", "{{ a. }}", `expected identifier after "."`},
		{"unclosed array", "{{ [1, 2 }}", `in array literal`},
		{"bad object key", "{{ {1: 2} }}", "object key"},
		{"pipe without name", "{{ x | 1 }}", "as pipe name"},
		{"header left open", "@include ('a' {}", `")" to close @include header`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := ParseString(t.Context(), tt.input)
			if err == nil {
				t.Fatalf("ParseString(%q) = %q, want error", tt.input, tpl.String())
			}

			if !errors.Is(err, ErrParse) {
				t.Errorf("error %v does not match ErrParse", err)
			}

			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("error %T is not *ParseError", err)
			}

			if !strings.Contains(pe.Msg, tt.want) {
				t.Errorf("message %q does not contain %q", pe.Msg, tt.want)
			}
		})
	}
}

func TestParseErrorLocation(t *testing.T) {
	_, err := ParseString(t.Context(), "ok\n{{ 1 2 }}", WithName("page.xt"))

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error %v is not *ParseError", err)
	}

	if got, want := pe.Span.Position().String(), "2:6"; got != want {
		t.Errorf("position = %s, want %s", got, want)
	}

	if !strings.HasPrefix(err.Error(), "page.xt:2:6: ") {
		t.Errorf("Error() = %q, want prefix %q", err.Error(), "page.xt:2:6: ")
	}

	want := "  2 | {{ 1 2 }}\n" + strings.Repeat(" ", 11) + "^\n"
	if got := pe.Snippet(); got != want {
		t.Errorf("Snippet() =\n%s\nwant\n%s", got, want)
	}
}

func TestParseNestingLimit(t *testing.T) {
	nest := func(open, close string, n int) string {
		return "{{ " + strings.Repeat(open, n) + "1" + strings.Repeat(close, n) + " }}"
	}

	tests := []struct {
		name        string
		open, close string
	}{
		{"group", "(", ")"},
		{"index", "a[", "]"},
		{"array", "[", "]"},
		{"unary", "-", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(t.Context(), nest(tt.open, tt.close, maxNesting+1))
			if err == nil || !strings.Contains(err.Error(), "nesting too deep") {
				t.Errorf("error = %v, want nesting limit", err)
			}

			if _, err := ParseString(t.Context(), nest(tt.open, tt.close, 32)); err != nil {
				t.Errorf("shallow nesting: %v", err)
			}
		})
	}

	// Far beyond the limit, the parser must stop early rather than exhaust
	// the stack.
	huge := nest("a[", "]", 200000)
	if _, err := ParseString(t.Context(), huge); err == nil {
		t.Error("deep index nesting parsed without error")
	}
}

// Printing a parsed template and parsing the output again yields the same
// tree, and printing is idempotent.
func TestParsePrintRoundTrip(t *testing.T) {
	sources := []string{
		"Hello, {{ user.name | title }}!",
		"@if (a > 1 && !b) {yes} @else @if (c) {maybe} @else {no}",
		"@for (x of items; track x.id) {<{{ $index }}:{{ x }}>}",
		"@switch (role) {\n @case ('admin') {all}\n @case (_) {none}\n}",
		"@include ('footer') and @include (base + '.xt')",
		"{{ (a + b) * c - -d % 2 }}",
		"{{ a - (b - c) }}",
		"{{ x | f:1:'two' | g(y | h, 3) }}",
		"{{ x | f:-1 | g:(a + b) }}",
		"{{ !x | f }}",
		`{{ {name: 'n', "odd key": [1, 2.5, null, true]} }}`,
		"{{ a.b[0].c(1, 2) }}",
		`{{ 'esc\n"q"\t\\' }}`,
		"{{ 1.0 + 2 }}",
		"a } b @ c",
		"@if (x) {@switch (y) {@default {@for (z of zs) {{{ z }}}}}}",
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			first, err := ParseString(t.Context(), src)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}

			printed := first.String()

			second, err := ParseString(t.Context(), printed)
			if err != nil {
				t.Fatalf("reparse of %q: %v", printed, err)
			}

			if diff := cmp.Diff(first.Nodes, second.Nodes, astOpts); diff != "" {
				t.Errorf("reparsed tree differs (-first +second):\n%s", diff)
			}

			if again := second.String(); again != printed {
				t.Errorf("printing is not idempotent:\n%q\n%q", printed, again)
			}
		})
	}
}

func TestParseCanonicalForm(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"{{a+b*c}}", "{{ a + b * c }}"},
		{"@if(a){x}@else{y}", "@if (a) {x} @else {y}"},
		{"@for(i of xs;track i){-}", "@for (i of xs; track i) {-}"},
		{"{{ x|f( 1 ) }}", "{{ x | f:1 }}"},
		{"{{ x | f(a || b) }}", "{{ x | f(a || b) }}"},
		{"{{ 'it\\'s' }}", `{{ "it's" }}`},
		{"@switch(x){@case(1){a}@case(_){b}}", "@switch (x) {\n@case (1) {a}\n@default {b}\n}"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tpl, err := ParseString(t.Context(), tt.input)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}

			if got := tpl.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseReader(t *testing.T) {
	tpl, err := ParseReader(t.Context(), strings.NewReader("Hi {{ name }}"), WithName("greet"))
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}

	if tpl.Name != "greet" || len(tpl.Nodes) != 2 {
		t.Errorf("template = %q with %d nodes, want greet with 2", tpl.Name, len(tpl.Nodes))
	}

	_, err = ParseReader(t.Context(), failingReader{})
	if !errors.Is(err, ErrReadInput) {
		t.Errorf("error = %v, want ErrReadInput", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestMustParse(t *testing.T) {
	if tpl := MustParse("ok"); len(tpl.Nodes) != 1 {
		t.Errorf("MustParse(ok) has %d nodes, want 1", len(tpl.Nodes))
	}

	defer func() {
		if recover() == nil {
			t.Error("MustParse of malformed source did not panic")
		}
	}()

	MustParse("{{")
}
