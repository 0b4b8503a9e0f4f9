package repl

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/xtera/lang"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{
	"help", "vars", "pipes", "funcs", "templates",
	"set", "load", "render", "edit", "clear", "quit",
}

// isIdentRune reports whether r may appear inside an identifier.
func isIdentRune(r rune) bool {
	return r == '_' || r == '$' ||
		('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
}

// isWordBoundary reports whether r delimits a completion word. Every rune
// outside an identifier is a boundary, so operators, punctuation and hyphens
// all split words.
func isWordBoundary(r rune) bool { return !isIdentRune(r) }

// wordBounds returns the word containing the cursor and its byte offsets in
// input. The word is empty when the cursor sits between two boundaries.
func wordBounds(input string, cursor int) (word string, start, end int) {
	if cursor > len(input) {
		cursor = len(input)
	}

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parentPath returns the member-access chain leading up to the word at
// wordStart. For "x + user.tags[0].na" with the word "na" it returns
// "user.tags[0]". Index brackets are skipped as balanced groups. Returns ""
// when the word is not preceded by a dot.
func parentPath(input string, wordStart int) string {
	prefix := input[:wordStart]
	if !strings.HasSuffix(prefix, ".") {
		return ""
	}

	prefix = strings.TrimSuffix(prefix, ".")
	pos := len(prefix)

	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])

		switch {
		case r == '.' || isIdentRune(r):
			pos -= size

			continue

		case r == ']':
			open := matchingBracket(prefix[:pos])
			if open < 0 {
				return ""
			}

			pos = open

			continue
		}

		break
	}

	return strings.TrimLeft(prefix[pos:], ".")
}

// matchingBracket returns the offset of the '[' balancing the ']' that ends
// s, or -1 when there is none.
func matchingBracket(s string) int {
	depth := 0

	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ']':
			depth++
		case '[':
			depth--
			if depth == 0 {
				return i
			}
		}
	}

	return -1
}

// afterPipe reports whether the word at wordStart names a pipe, that is, the
// nearest non-space rune before it is a single '|'.
func afterPipe(input string, wordStart int) bool {
	prefix := strings.TrimRight(input[:wordStart], " \t")

	return strings.HasSuffix(prefix, "|") && !strings.HasSuffix(prefix, "||")
}

// childCandidates returns the completions valid after the member-access
// chain parent. The chain is evaluated in scope. Object results offer their
// keys, and every result offers the methods of its kind. An empty parent
// offers the variables and functions in scope.
func childCandidates(
	ctx context.Context,
	scope *lang.Scope,
	parent string,
) []string {
	if parent == "" {
		names := scope.VarNames()

		for _, f := range scope.FuncNames() {
			if !slices.Contains(names, f) {
				names = append(names, f)
			}
		}

		return names
	}

	expr, err := lang.ParseExpr(ctx, parent)
	if err != nil {
		return nil
	}

	v, err := lang.Eval(ctx, expr, scope)
	if err != nil {
		return nil
	}

	var names []string

	if obj, ok := v.(map[string]any); ok {
		for k := range obj {
			names = append(names, k)
		}

		slices.Sort(names)
	}

	return append(names, lang.MethodNames(lang.KindOf(v))...)
}

// computeMatches calculates the fuzzy matches for the word at the cursor,
// ranked best-first, along with the candidate list and the word's offsets.
// An empty word yields no matches at the top level. After a dot or a pipe
// every candidate matches so the user can browse them.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	candidates []string,
	wordStart, wordEnd int,
) {
	input := m.input.Value()
	cursor := m.input.Position()

	word, wordStart, wordEnd := wordBounds(input, cursor)

	browse := false

	switch {
	case m.mode == modeCtrl:
		if word == "" || strings.TrimSpace(input[:wordStart]) != "" {
			return nil, nil, wordStart, wordEnd
		}

		candidates = ctrlCommands

	case afterPipe(input, wordStart):
		candidates = m.scope.PipeNames()
		browse = true

	default:
		parent := parentPath(input, wordStart)
		candidates = childCandidates(m.ctxFunc(), m.scope, parent)
		browse = parent != ""
	}

	if len(candidates) == 0 {
		return nil, nil, wordStart, wordEnd
	}

	if word == "" {
		if !browse {
			return nil, nil, wordStart, wordEnd
		}

		matches = make(fuzzy.Matches, len(candidates))
		for i, c := range candidates {
			matches[i] = fuzzy.Match{Str: c, Index: i}
		}

		return matches, candidates, wordStart, wordEnd
	}

	return fuzzy.Find(word, candidates), candidates, wordStart, wordEnd
}

// renderCandidateBar builds the single-line completion bar, ellipsized to
// fit within width. The selected candidate uses the selected style while
// tab-cycling.
func renderCandidateBar(
	matches fuzzy.Matches,
	suggIdx int,
	tabActive bool,
	width int,
	isFunc func(string) bool,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		rendered := renderCandidate(match, tabActive && i == suggIdx, isFunc(match.Str))

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if i > 0 && used+entryWidth+ellipsisWidth > width {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders one candidate with its matched characters
// highlighted. Functions get a "()" suffix that is not part of the
// completion.
func renderCandidate(match fuzzy.Match, selected, function bool) string {
	baseStyle := suggestionStyle
	highlightStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("4")).
		Bold(true)

	if selected {
		baseStyle = selectedStyle
		highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4")).
			Bold(true)
	}

	var b strings.Builder

	for i, r := range match.Str {
		if slices.Contains(match.MatchedIndexes, i) {
			b.WriteString(highlightStyle.Render(string(r)))
		} else {
			b.WriteString(baseStyle.Render(string(r)))
		}
	}

	if function {
		b.WriteString(baseStyle.Render("()"))
	}

	return b.String()
}

// formatPreview returns a short single-line rendering of v for listings.
func formatPreview(v any) string {
	const maxPreview = 40

	s := fmt.Sprintf("%s %s", lang.KindOf(v), formatResult(v))
	if len(s) > maxPreview {
		return s[:maxPreview-3] + "..."
	}

	return s
}
