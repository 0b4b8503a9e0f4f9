package lang

import (
	"slices"
	"testing"
)

func TestSuggest(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		candidates []string
		want       []string
		reject     []string
	}{
		{
			name:       "abbreviation",
			input:      "usr",
			candidates: []string{"user", "title", "users"},
			want:       []string{"user", "users"},
			reject:     []string{"title"},
		},
		{
			name:       "candidate inside input",
			input:      "username",
			candidates: []string{"user", "email"},
			want:       []string{"user"},
			reject:     []string{"email"},
		},
		{
			name:       "nothing similar",
			input:      "zzz",
			candidates: []string{"user"},
			reject:     []string{"user"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Suggest(tt.input, tt.candidates)

			for _, w := range tt.want {
				if !slices.Contains(got, w) {
					t.Errorf("Suggest(%q) = %v, missing %q", tt.input, got, w)
				}
			}

			for _, r := range tt.reject {
				if slices.Contains(got, r) {
					t.Errorf("Suggest(%q) = %v, unexpected %q", tt.input, got, r)
				}
			}
		})
	}
}

func TestSuggestLimits(t *testing.T) {
	if got := Suggest("", []string{"a"}); got != nil {
		t.Errorf("Suggest(empty) = %v, want nil", got)
	}

	if got := Suggest("a", nil); got != nil {
		t.Errorf("Suggest without candidates = %v, want nil", got)
	}

	if got := Suggest("a", []string{"a1", "a2", "a3", "a4", "a5"}); len(got) != maxSuggestions {
		t.Errorf("Suggest returned %d names, want %d", len(got), maxSuggestions)
	}
}

func TestHint(t *testing.T) {
	scope := NewScope(WithBuiltins(), WithVars(map[string]any{"user": "x", "title": "y"}))
	scope.SetTemplate("footer", MustParse(""))

	tests := []struct {
		input string
		want  string
	}{
		{"{{ usr }}", "user"},
		{"{{ 1 | uper }}", "upper"},
		{"{{ rnge(1) }}", "range"},
		{"@include ('foot')", "footer"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := renderString(t, tt.input, scope)
			if err == nil {
				t.Fatal("render succeeded")
			}

			if got := Hint(err, scope); !slices.Contains(got, tt.want) {
				t.Errorf("Hint = %v, want %q among them", got, tt.want)
			}
		})
	}

	if got := Hint(ErrParse, scope); got != nil {
		t.Errorf("Hint(non-eval error) = %v, want nil", got)
	}
}
