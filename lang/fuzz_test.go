package lang

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"
)

// FuzzParse checks that parsing never panics, that failures are parse
// errors, and that successful parses survive a print round trip.
func FuzzParse(f *testing.F) {
	f.Add("plain text")
	f.Add("Hello, {{ user.name | title }}!")
	f.Add("@if (a > 1 && !b) {yes} @else @if (c) {maybe} @else {no}")
	f.Add("@for (x of items; track x.id) {{{ $index }}:{{ x }}}")
	f.Add("@switch (r) { @case ('a') {1} @case (_) {2} }")
	f.Add("@include ('footer')")
	f.Add(`{{ {a: [1, 2.5, "s\n"], b: null} }}`)
	f.Add("{{ x | f:1:-2 | g(y | h) }}")
	f.Add("a } b @ c {{")
	f.Add("@if (a) {")

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip("invalid UTF-8")
		}

		defer func() {
			if r := recover(); r != nil {
				t.Errorf("parser panicked on input %q: %v", input, r)
			}
		}()

		tpl, err := ParseString(context.Background(), input)
		if err != nil {
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("error %T is not *ParseError", err)
			}

			if pe != nil && (pe.Span.Start < 0 || pe.Span.End > len(input)) {
				t.Errorf("error span %v outside input of length %d", pe.Span, len(input))
			}

			return
		}

		printed := tpl.String()

		again, err := ParseString(context.Background(), printed)
		if err != nil {
			t.Fatalf("canonical form %q of %q does not parse: %v", printed, input, err)
		}

		if reprinted := again.String(); reprinted != printed {
			t.Errorf("printing is not idempotent for %q:\n%q\n%q", input, printed, reprinted)
		}
	})
}

// FuzzRender checks that rendering a parsed template against an empty scope
// never panics and fails only with evaluation errors.
func FuzzRender(f *testing.F) {
	f.Add("{{ 1 / 0 }}")
	f.Add("{{ [1, 2][5] }}")
	f.Add("@for (x of range(3)) {{{ x * x }}}")
	f.Add("{{ 'abc'[1] + 'x' | upper }}")
	f.Add("{{ -9223372036854775807 - 2 }}")
	f.Add("@include ('x')")

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip("invalid UTF-8")
		}

		tpl, err := ParseString(context.Background(), input)
		if err != nil {
			return
		}

		defer func() {
			if r := recover(); r != nil {
				t.Errorf("render panicked on input %q: %v", input, r)
			}
		}()

		_, err = Render(context.Background(), tpl, NewScope(WithBuiltins()))
		if err == nil {
			return
		}

		var ee *EvalError
		if !errors.As(err, &ee) {
			t.Errorf("error %T (%v) is not *EvalError", err, err)
		}
	})
}
