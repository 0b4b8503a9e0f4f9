package lang

import (
	"errors"
	"slices"

	"github.com/sahilm/fuzzy"
)

// maxSuggestions bounds the names returned by Suggest.
const maxSuggestions = 3

// Suggest returns up to three candidates resembling name, best first.
// A candidate matches when the characters of one string appear in order in
// the other.
func Suggest(name string, candidates []string) []string {
	if name == "" || len(candidates) == 0 {
		return nil
	}

	var out []string

	for _, m := range fuzzy.Find(name, candidates) {
		out = append(out, m.Str)
	}

	for _, c := range candidates {
		if len(fuzzy.Find(c, []string{name})) > 0 && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}

	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}

	return out
}

// Hint returns names in scope resembling the one err failed to resolve.
// It returns nil unless err wraps an [*EvalError] naming an undefined
// variable, pipe, template or function.
func Hint(err error, scope *Scope) []string {
	var ee *EvalError
	if !errors.As(err, &ee) || scope == nil || ee.Name == "" {
		return nil
	}

	return Suggest(ee.Name, scope.names(ee.Kind))
}
