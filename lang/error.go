package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values).
//
// Every [*ParseError] matches [ErrParse] and every [*EvalError] matches the
// sentinel of its [ErrorKind] under [errors.Is].
var (
	ErrParse     = NewError("parse error")
	ErrReadInput = NewError("failed to read input")

	ErrWriteOutput = NewError("failed to write output")

	ErrUndefinedVariable      = NewError("undefined variable")
	ErrUndefinedPipe          = NewError("undefined pipe")
	ErrUndefinedTemplate      = NewError("undefined template")
	ErrTypeMismatch           = NewError("type error")
	ErrDivisionByZero         = NewError("division by zero")
	ErrIndexOutOfBounds       = NewError("index out of bounds")
	ErrNotIterable            = NewError("value is not iterable")
	ErrNotCallable            = NewError("not callable")
	ErrRecursionLimitExceeded = NewError("include recursion limit exceeded")
	ErrCallFailed             = NewError("call failed")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	// Build error message using the first available format,
	// depending on which fields are set:
	//
	//   1. "<msg>: <err>" // base and wrapped error both set
	//   2. "<msg>"        // wrapped error is nil
	//   3. "<err>"        // base error message is empty
	//   4. ""             // no fields are set
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.Any("cause", e.err))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // Share attrs
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

// Is reports whether target is the same sentinel as e. Derived errors made
// with Wrap or With match the sentinel they were derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.msg != "" && t.msg == e.msg && t.err == nil
}

// ParseError reports malformed template source.
type ParseError struct {
	Msg  string
	Span Span
}

func newParseError(span Span, msg string) *ParseError {
	return &ParseError{Msg: msg, Span: span}
}

// Error implements the error interface.
// The message is prefixed with "name:line:column" of the offending span.
func (e *ParseError) Error() string {
	return location(e.Span) + ": " + e.Msg
}

// Is reports whether target is [ErrParse].
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// Snippet returns the offending source line followed by a caret marker under
// the start of the span. It returns "" when no source is attached.
func (e *ParseError) Snippet() string { return snippet(e.Span) }

// LogValue implements slog.LogValuer.
func (e *ParseError) LogValue() slog.Value {
	pos := e.Span.Position()

	return slog.GroupValue(
		slog.String("error", e.Msg),
		slog.String("source", sourceName(e.Span)),
		slog.Int("line", pos.Line),
		slog.Int("column", pos.Column),
		slog.String("span", e.Span.String()),
	)
}

// ErrorKind discriminates the failure modes of rendering.
type ErrorKind int

const (
	UndefinedVariable ErrorKind = iota
	UndefinedPipe
	UndefinedTemplate
	TypeError
	DivisionByZero
	IndexOutOfBounds
	NotIterable
	NotCallable
	RecursionLimitExceeded
	CallFailed
)

var errorKindSentinel = [...]*Error{
	UndefinedVariable:      ErrUndefinedVariable,
	UndefinedPipe:          ErrUndefinedPipe,
	UndefinedTemplate:      ErrUndefinedTemplate,
	TypeError:              ErrTypeMismatch,
	DivisionByZero:         ErrDivisionByZero,
	IndexOutOfBounds:       ErrIndexOutOfBounds,
	NotIterable:            ErrNotIterable,
	NotCallable:            ErrNotCallable,
	RecursionLimitExceeded: ErrRecursionLimitExceeded,
	CallFailed:             ErrCallFailed,
}

// String returns the name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case UndefinedVariable:
		return "UndefinedVariable"
	case UndefinedPipe:
		return "UndefinedPipe"
	case UndefinedTemplate:
		return "UndefinedTemplate"
	case TypeError:
		return "TypeError"
	case DivisionByZero:
		return "DivisionByZero"
	case IndexOutOfBounds:
		return "IndexOutOfBounds"
	case NotIterable:
		return "NotIterable"
	case NotCallable:
		return "NotCallable"
	case RecursionLimitExceeded:
		return "RecursionLimitExceeded"
	case CallFailed:
		return "CallFailed"
	default:
		return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Sentinel returns the sentinel error matched by errors of kind k.
func (k ErrorKind) Sentinel() *Error {
	if k < 0 || int(k) >= len(errorKindSentinel) {
		return nil
	}

	return errorKindSentinel[k]
}

// EvalError reports a failure to render a well-formed template against a
// particular scope. Only the fields relevant to Kind are set.
type EvalError struct {
	Err      error // cause, for CallFailed and host errors
	Span     Span
	Name     string // variable, pipe, template, function or method name
	Expected string // TypeError
	Got      string // TypeError, NotIterable
	Chain    []string // RecursionLimitExceeded: template names, outermost first
	Kind     ErrorKind
	Index    int // IndexOutOfBounds
	Len      int // IndexOutOfBounds
	Depth    int // RecursionLimitExceeded
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	var msg string

	switch e.Kind {
	case UndefinedVariable:
		msg = "undefined variable '" + e.Name + "'"
	case UndefinedPipe:
		msg = "undefined pipe '" + e.Name + "'"
	case UndefinedTemplate:
		msg = "undefined template '" + e.Name + "'"
	case TypeError:
		msg = "type error: expected " + e.Expected + ", got " + e.Got
	case DivisionByZero:
		msg = "division by zero"
	case IndexOutOfBounds:
		msg = "index " + strconv.Itoa(e.Index) +
			" out of bounds (len " + strconv.Itoa(e.Len) + ")"
	case NotIterable:
		msg = "value of type " + e.Got + " is not iterable"
	case NotCallable:
		msg = "'" + e.Name + "' is not callable"
	case RecursionLimitExceeded:
		msg = "include recursion limit exceeded (depth " +
			strconv.Itoa(e.Depth) + ")"
		if len(e.Chain) > 0 {
			msg += ": " + strings.Join(e.Chain, " -> ")
		}
	case CallFailed:
		msg = "call to '" + e.Name + "' failed"
	default:
		msg = e.Kind.String()
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	if e.Span.IsZero() {
		return msg
	}

	return location(e.Span) + ": " + msg
}

// Unwrap returns the underlying cause, if any.
func (e *EvalError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel of e's kind.
func (e *EvalError) Is(target error) bool {
	s := e.Kind.Sentinel()

	return s != nil && target == s
}

// Snippet returns the offending source line with a caret marker.
func (e *EvalError) Snippet() string { return snippet(e.Span) }

// LogValue implements slog.LogValuer.
func (e *EvalError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("error", e.Kind.String()),
		slog.String("message", e.Error()),
	}

	if !e.Span.IsZero() {
		pos := e.Span.Position()
		attrs = append(attrs,
			slog.String("source", sourceName(e.Span)),
			slog.Int("line", pos.Line),
			slog.Int("column", pos.Column),
		)
	}

	if e.Name != "" {
		attrs = append(attrs, slog.String("name", e.Name))
	}

	if e.Err != nil {
		attrs = append(attrs, slog.Any("cause", e.Err))
	}

	return slog.GroupValue(attrs...)
}

func newEvalError(kind ErrorKind, span Span) *EvalError {
	return &EvalError{Kind: kind, Span: span}
}

func undefinedError(kind ErrorKind, name string, span Span) *EvalError {
	return &EvalError{Kind: kind, Name: name, Span: span}
}

func typeError(expected string, got any, span Span) *EvalError {
	return &EvalError{
		Kind:     TypeError,
		Expected: expected,
		Got:      KindOf(got).String(),
		Span:     span,
	}
}

// callError surfaces an error returned by a host pipe or function. An
// *EvalError passes through unchanged except that a missing span is filled.
func callError(name string, err error, span Span) error {
	if ee, ok := err.(*EvalError); ok { //nolint:errorlint // wrapped errors keep their chain
		if ee.Span.IsZero() {
			cp := *ee
			cp.Span = span

			return &cp
		}

		return ee
	}

	return &EvalError{Kind: CallFailed, Name: name, Err: err, Span: span}
}

func sourceName(s Span) string {
	if s.Source == nil || s.Source.Name == "" {
		return "<template>"
	}

	return s.Source.Name
}

func location(s Span) string {
	return sourceName(s) + ":" + s.Position().String()
}

func snippet(s Span) string {
	if s.Source == nil {
		return ""
	}

	text := s.Source.Text
	pos := s.Position()

	lineStart := s.Start - (pos.Column - 1)

	lineEnd := strings.IndexByte(text[s.Start:], '\n')
	if lineEnd < 0 {
		lineEnd = len(text)
	} else {
		lineEnd += s.Start
	}

	var b strings.Builder

	num := strconv.Itoa(pos.Line)

	b.WriteString("  ")
	b.WriteString(num)
	b.WriteString(" | ")
	b.WriteString(text[lineStart:lineEnd])
	b.WriteByte('\n')

	// +5 accounts for: 2 leading spaces + " | " (3 chars)
	b.WriteString(strings.Repeat(" ", len(num)+5+pos.Column-1))

	width := max(1, min(s.End, lineEnd)-s.Start)
	b.WriteString(strings.Repeat("^", width))
	b.WriteByte('\n')

	return b.String()
}
