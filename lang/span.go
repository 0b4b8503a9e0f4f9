package lang

import (
	"strconv"
	"strings"
)

// Source is a template's original text. A single Source is shared by every
// token, node and error produced from it.
type Source struct {
	Name string
	Text string
}

// NewSource returns a Source with the given name and text.
func NewSource(name, text string) *Source {
	return &Source{Name: name, Text: text}
}

// Span is a half-open byte range [Start, End) into a Source.
type Span struct {
	Source *Source
	Start  int
	End    int
}

// NewSpan returns the span [start, end) of src.
//
// NewSpan panics if start > end or end exceeds the length of the source text.
// Spans are only constructed by the lexer and parser, so a violation is a
// programming error rather than a property of template content.
func NewSpan(src *Source, start, end int) Span {
	n := 0
	if src != nil {
		n = len(src.Text)
	}

	if start < 0 || start > end || end > n {
		panic("lang: invalid span " + strconv.Itoa(start) + ".." +
			strconv.Itoa(end) + " (source length " + strconv.Itoa(n) + ")")
	}

	return Span{Source: src, Start: start, End: end}
}

// IsZero reports whether s is the zero Span.
func (s Span) IsZero() bool {
	return s.Source == nil && s.Start == 0 && s.End == 0
}

// Len returns the number of bytes covered by s.
func (s Span) Len() int { return s.End - s.Start }

// Merge returns the smallest span covering both s and o.
// If either span is zero, the other is returned.
func (s Span) Merge(o Span) Span {
	switch {
	case s.IsZero():
		return o
	case o.IsZero():
		return s
	}

	return Span{
		Source: s.Source,
		Start:  min(s.Start, o.Start),
		End:    max(s.End, o.End),
	}
}

// Text returns the source text covered by s.
func (s Span) Text() string {
	if s.Source == nil {
		return ""
	}

	return s.Source.Text[s.Start:s.End]
}

// Position returns the line and column of the start of s.
func (s Span) Position() Position {
	pos := Position{Offset: s.Start, Line: 1, Column: 1}
	if s.Source == nil {
		return pos
	}

	head := s.Source.Text[:s.Start]
	pos.Line += strings.Count(head, "\n")

	if i := strings.LastIndexByte(head, '\n'); i >= 0 {
		pos.Column = s.Start - i
	} else {
		pos.Column = s.Start + 1
	}

	return pos
}

// String returns s formatted as "start..end".
func (s Span) String() string {
	return strconv.Itoa(s.Start) + ".." + strconv.Itoa(s.End)
}

// Position is a location in source text.
// Line and Column are 1-based; Column counts bytes.
type Position struct {
	Offset int
	Line   int
	Column int
}

// String returns pos formatted as "line:column".
func (pos Position) String() string {
	return strconv.Itoa(pos.Line) + ":" + strconv.Itoa(pos.Column)
}
