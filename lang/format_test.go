package lang

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
)

func TestTemplateFormat(t *testing.T) {
	tpl := MustParse("@if(a){x}")

	var b bytes.Buffer
	if err := tpl.Format(t.Context(), &b); err != nil {
		t.Fatal(err)
	}

	if b.String() != "@if (a) {x}" {
		t.Errorf("Format = %q", b.String())
	}
}

func TestExprString(t *testing.T) {
	tests := []struct {
		expr Expr
		want string
	}{
		{lit(int64(-3)), "-3"},
		{&UnaryExpr{Op: OpNeg, Operand: lit(int64(-3))}, "-(-3)"},
		{&MemberExpr{Base: lit(int64(-3)), Field: "x"}, "(-3).x"},
		{lit(2.0), "2.0"},
		{lit("a\"b"), `"a\"b"`},
		{&ObjectExpr{Entries: []ObjectEntry{{Key: "not ident", Value: lit(nil)}}}, `{"not ident": null}`},
		{&ObjectExpr{Entries: []ObjectEntry{{Key: "null", Value: lit(nil)}}}, `{"null": null}`},
		{
			&BinaryExpr{
				Op:    OpMul,
				Left:  &BinaryExpr{Op: OpAdd, Left: ident("a"), Right: ident("b")},
				Right: ident("c"),
			},
			"(a + b) * c",
		},
		{
			&BinaryExpr{
				Op:    OpSub,
				Left:  ident("a"),
				Right: &BinaryExpr{Op: OpSub, Left: ident("b"), Right: ident("c")},
			},
			"a - (b - c)",
		},
		{
			&PipeExpr{Name: "f", Input: &BinaryExpr{Op: OpAdd, Left: ident("a"), Right: ident("b")}},
			"(a + b) | f",
		},
	}

	for _, tt := range tests {
		if got := ExprString(tt.expr); got != tt.want {
			t.Errorf("ExprString = %q, want %q", got, tt.want)
		}
	}
}

func TestIsIdent(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"x", true},
		{"_x1", true},
		{"$index", true},
		{"$", true},
		{"", false},
		{"1x", false},
		{"x$", false},
		{"a-b", false},
		{"a.b", false},
		{"true", false},
		{"track", false},
		{"héllo", false},
	}

	for _, tt := range tests {
		if got := IsIdent(tt.in); got != tt.want {
			t.Errorf("IsIdent(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// Trees built directly, not parsed, print to source that reprints unchanged
// after parsing.
func TestExprStringReparses(t *testing.T) {
	exprs := []Expr{
		&BinaryExpr{
			Op:    OpMul,
			Left:  &BinaryExpr{Op: OpOr, Left: ident("a"), Right: ident("b")},
			Right: &UnaryExpr{Op: OpNot, Operand: ident("c")},
		},
		&PipeExpr{
			Name:  "g",
			Input: &PipeExpr{Name: "f", Input: ident("x"), Args: []Expr{lit(int64(1))}},
			Args:  []Expr{&PipeExpr{Name: "h", Input: ident("y")}},
		},
		&IndexExpr{
			Base:  &UnaryExpr{Op: OpNeg, Operand: ident("a")},
			Index: lit("k"),
		},
	}

	for _, e := range exprs {
		src := ExprString(e)

		got, err := ParseExpr(t.Context(), src)
		if err != nil {
			t.Fatalf("ParseExpr(%q): %v", src, err)
		}

		// Parentheses the printer adds come back as groups.
		if ExprString(got) != src {
			t.Errorf("reprint of %q = %q", src, ExprString(got))
		}
	}
}

func TestTemplateFormatJSON(t *testing.T) {
	tpl := MustParse("Hi {{ user.name | upper }}", WithName("greet"))

	var b bytes.Buffer
	if err := tpl.FormatJSON(t.Context(), &b, 2); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(b.String(), "\n  \"name\": \"greet\"") {
		t.Errorf("indented JSON missing name:\n%s", b.String())
	}

	var tree struct {
		Name  string           `json:"name"`
		Nodes []map[string]any `json:"nodes"`
	}

	if err := json.Unmarshal(b.Bytes(), &tree); err != nil {
		t.Fatal(err)
	}

	if len(tree.Nodes) != 2 || tree.Nodes[0]["type"] != "Text" || tree.Nodes[1]["type"] != "Interpolation" {
		t.Fatalf("nodes = %v", tree.Nodes)
	}

	pipe, _ := tree.Nodes[1]["expr"].(map[string]any)
	if pipe["type"] != "Pipe" || pipe["name"] != "upper" || pipe["span"] != "6..23" {
		t.Errorf("pipe = %v", pipe)
	}

	data, err := json.Marshal(tpl)
	if err != nil {
		t.Fatal(err)
	}

	b.Reset()

	if err := tpl.FormatJSON(t.Context(), &b, 0); err != nil {
		t.Fatal(err)
	}

	if strings.TrimSuffix(b.String(), "\n") != string(data) {
		t.Errorf("compact FormatJSON differs from MarshalJSON:\n%s\n%s", b.String(), data)
	}
}

func TestTemplateFormatYAML(t *testing.T) {
	tpl := MustParse("@for (x of xs) {{{ x }}}")

	var b bytes.Buffer
	if err := tpl.FormatYAML(t.Context(), &b, 2); err != nil {
		t.Fatal(err)
	}

	var tree map[string]any
	if err := yaml.Unmarshal(b.Bytes(), &tree); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, b.String())
	}

	nodes, _ := tree["nodes"].([]any)
	if len(nodes) != 1 {
		t.Fatalf("nodes = %v", tree["nodes"])
	}

	node, _ := nodes[0].(map[string]any)
	if node["type"] != "For" || node["binding"] != "x" {
		t.Errorf("node = %v", node)
	}

	b.Reset()

	if err := tpl.FormatYAML(t.Context(), &b, 0); err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(b.String(), "{") {
		t.Errorf("flow YAML = %q, want a flow mapping", b.String())
	}
}
