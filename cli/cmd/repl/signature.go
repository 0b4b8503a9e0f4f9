package repl

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/xtera/lang"
)

// funcParams names the parameters of the builtin functions.
// A leading "..." marks a variadic parameter.
var funcParams = map[string][]string{
	"range": {"from", "to"},
	"len":   {"value"},
	"env":   {"name"},
	"min":   {"...values"},
	"max":   {"...values"},
	"str":   {"value"},
	"int":   {"value"},
	"float": {"value"},
	"expr":  {"source", "env"},
}

// methodParams names the parameters of the value methods. Methods missing
// from this table take no arguments.
var methodParams = map[string][]string{
	"contains":   {"value"},
	"startsWith": {"prefix"},
	"endsWith":   {"suffix"},
	"split":      {"sep"},
	"replace":    {"old", "new"},
	"join":       {"sep"},
	"slice":      {"from", "to"},
	"has":        {"key"},
}

var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
	signatureSeparatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// functionCall describes the call whose argument list contains the cursor.
type functionCall struct {
	name     string // callee chain, e.g. "range", "user.name.split" or ".slice"
	argIndex int    // 0-based index of the argument under the cursor
	inCall   bool
}

// detectFunctionCall finds the innermost unclosed call preceding cursor and
// the index of the argument being typed.
func detectFunctionCall(input string, cursor int) functionCall {
	if cursor > len(input) {
		cursor = len(input)
	}

	open := -1
	depth := 0

	for i := cursor; i > 0 && open < 0; {
		r, size := utf8.DecodeLastRuneInString(input[:i])
		i -= size

		switch r {
		case ')', ']', '}':
			depth++
		case '(', '[', '{':
			if depth == 0 {
				if r != '(' {
					return functionCall{}
				}

				open = i
			}

			depth--
		}
	}

	if open < 0 {
		return functionCall{}
	}

	start := open
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if r != '.' && !isIdentRune(r) {
			break
		}

		start -= size
	}

	name := input[start:open]
	if name == "" || strings.HasSuffix(name, ".") {
		return functionCall{}
	}

	argIndex := 0
	depth = 0

	for _, r := range input[open+1 : cursor] {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				argIndex++
			}
		}
	}

	return functionCall{name: name, argIndex: argIndex, inCall: true}
}

// getSignature returns the display signature and parameter names of the
// callee. A name containing a dot is a method call and resolves through the
// method table. Functions registered in scope without a known parameter
// list show a single variadic placeholder. It returns "" for unknown callees.
func getSignature(
	scope *lang.Scope,
	name string,
) (signature string, params []string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		method := name[i+1:]
		if !isMethod(method) {
			return "", nil
		}

		params = methodParams[method]

		return formatSignature(method, params), params
	}

	if params, ok := funcParams[name]; ok {
		return formatSignature(name, params), params
	}

	if _, ok := scope.Func(name); ok {
		params = []string{"...args"}

		return formatSignature(name, params), params
	}

	return "", nil
}

// isMethod reports whether any value kind has a method with the given name.
func isMethod(name string) bool {
	for _, k := range []lang.Kind{lang.KindString, lang.KindArray, lang.KindObject} {
		for _, m := range lang.MethodNames(k) {
			if m == name {
				return true
			}
		}
	}

	return false
}

func formatSignature(name string, params []string) string {
	return name + "(" + strings.Join(params, ", ") + ")"
}

// renderSignatureHint renders the signature with the parameter at
// currentArgIdx highlighted. A variadic parameter stays highlighted for every
// argument at or after its position.
func renderSignatureHint(
	signature string,
	params []string,
	currentArgIdx int,
) string {
	if signature == "" {
		return ""
	}

	name, _, ok := strings.Cut(signature, "(")
	if !ok || !strings.HasSuffix(signature, ")") {
		return signatureStyle.Render(signature)
	}

	if len(params) == 0 {
		return signatureNameStyle.Render(name) + signatureStyle.Render("()")
	}

	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(name))
	b.WriteString(signatureStyle.Render("("))

	for i, param := range params {
		if i > 0 {
			b.WriteString(signatureSeparatorStyle.Render(", "))
		}

		variadic := strings.HasPrefix(param, "...")

		if (variadic && currentArgIdx >= i) || (!variadic && currentArgIdx == i) {
			b.WriteString(currentParamStyle.Render(param))
		} else {
			b.WriteString(signatureStyle.Render(param))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	return b.String()
}
