// Package lang implements xtera, an embedded template language.
//
// A template is literal text interleaved with interpolations and directives:
//
//	Hello, {{ user.name | title }}!
//	@if (items.len() > 0) {
//	  @for (item of items; track item.id) {- {{ $index + 1 }}. {{ item.label }}
//	  }
//	} @else {nothing to do}
//	@switch (user.role) {
//	  @case ("admin") {full access}
//	  @default {read only}
//	}
//	@include ("footer")
//
// [ParseString] compiles source text into an immutable [Template], which
// [Render] evaluates against a [Scope] of variables, pipes, functions and
// named templates. A template may be rendered concurrently against
// independent scopes.
//
// # Expressions
//
// Operators, loosest binding first:
//
//	||
//	&&
//	== !=
//	< <= > >=
//	+ -
//	* / %
//	! -            (prefix)
//	. [] () |      (postfix)
//
// All binary operators are left-associative. A pipe "x | name:a:b" passes
// x and the arguments a and b to the pipe registered as name; "x |
// name(a, b)" is equivalent. Colon arguments never extend past the next
// pipe, so "x | f | g:1:2" applies g to the result of f.
//
// # Values
//
// Values are null, bool, int, float, string, array and object, held as the Go
// types listed under [Kind]. Null, false, zero, the empty string and empty
// collections are falsy. && and || yield the operand that decided the
// result. + concatenates when either operand is a string. Interpolation
// renders null as the empty string and arrays and objects as compact JSON.
//
// # Errors
//
// Malformed source yields a [*ParseError]; failures while rendering yield an
// [*EvalError] whose [ErrorKind] identifies the cause. Both carry the [Span]
// of the offending source.
package lang
