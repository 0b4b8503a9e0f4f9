package lang

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// lexer is a dual-mode tokenizer. The parser decides which mode applies to
// the next token by calling nextText or nextExpr; the lexer never switches
// modes on its own, since "}" closes a directive body in text mode but is an
// object-literal brace in expression mode.
type lexer struct {
	src    *Source
	peeked *token
	pos    int
	// peekPos is the offset scanning resumed from when peeked was produced.
	peekPos int
	// depth counts open directive bodies; "}" is only a body closer when
	// depth > 0 and is literal text otherwise.
	depth int
}

func newLexer(src *Source) *lexer {
	return &lexer{src: src}
}

func (l *lexer) openBody() { l.depth++ }

func (l *lexer) closeBody() {
	if l.depth > 0 {
		l.depth--
	}
}

func (l *lexer) span(start, end int) Span {
	return NewSpan(l.src, start, end)
}

func (l *lexer) here() Span { return l.span(l.pos, l.pos) }

func (l *lexer) eof() bool { return l.pos >= len(l.src.Text) }

// rewind discards a pending expression-mode lookahead so that the next scan,
// in either mode, restarts where that lookahead began.
func (l *lexer) rewind() {
	if l.peeked != nil {
		l.pos = l.peekPos
		l.peeked = nil
	}
}

// skipSpace advances over ASCII whitespace.
func (l *lexer) skipSpace() {
	l.rewind()

	for !l.eof() && isSpace(l.src.Text[l.pos]) {
		l.pos++
	}
}

// atKeyword reports whether the remaining input, after whitespace, begins
// with the directive keyword kind. Nothing is consumed.
func (l *lexer) atKeyword(kind tokenKind) bool {
	l.rewind()

	i := l.pos
	for i < len(l.src.Text) && isSpace(l.src.Text[i]) {
		i++
	}

	k, _, ok := l.keywordAt(i)

	return ok && k == kind
}

// nextText scans the next token in text mode: a run of literal text, "{{",
// a directive keyword, a body-closing "}" (only inside a body), or EOF.
// Empty text runs are never produced.
func (l *lexer) nextText() token {
	l.rewind()

	text := l.src.Text
	start := l.pos

	for i := start; i < len(text); i++ {
		var (
			kind tokenKind
			size int
		)

		switch c := text[i]; {
		case c == '{' && i+1 < len(text) && text[i+1] == '{':
			kind, size = tokenInterpStart, 2

		case c == '}' && l.depth > 0:
			kind, size = tokenCloseBody, 1

		case c == '@':
			k, n, ok := l.keywordAt(i)
			if !ok {
				continue
			}

			kind, size = k, n

		default:
			continue
		}

		if i > start {
			l.pos = i

			return l.textToken(start, i)
		}

		l.pos = i + size

		return token{kind: kind, span: l.span(i, i+size), text: text[i : i+size]}
	}

	l.pos = len(text)
	if l.pos > start {
		return l.textToken(start, l.pos)
	}

	return token{kind: tokenEOF, span: l.here()}
}

func (l *lexer) textToken(start, end int) token {
	s := l.src.Text[start:end]

	return token{kind: tokenText, span: l.span(start, end), text: s, val: s}
}

// keywordAt reports whether text at offset i is "@" followed by a directive
// keyword that is not the prefix of a longer identifier.
func (l *lexer) keywordAt(i int) (tokenKind, int, bool) {
	text := l.src.Text
	if i >= len(text) || text[i] != '@' {
		return tokenEOF, 0, false
	}

	rest := text[i+1:]
	for _, kw := range atKeywords {
		if !strings.HasPrefix(rest, kw.word) {
			continue
		}

		n := len(kw.word)
		if n < len(rest) && isIdentContinue(rest[n]) {
			continue
		}

		return kw.kind, n + 1, true
	}

	return tokenEOF, 0, false
}

// peekExpr returns the next expression-mode token without consuming it.
func (l *lexer) peekExpr() (token, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}

	at := l.pos

	t, err := l.scanExpr()
	if err != nil {
		l.pos = at

		return token{}, err
	}

	l.peeked, l.peekPos = &t, at

	return t, nil
}

// nextExpr consumes and returns the next expression-mode token.
func (l *lexer) nextExpr() (token, error) {
	if l.peeked != nil {
		t := *l.peeked
		l.peeked = nil

		return t, nil
	}

	return l.scanExpr()
}

var twoCharOps = map[string]tokenKind{
	"}}": tokenInterpEnd,
	"==": tokenEq,
	"!=": tokenNe,
	"<=": tokenLe,
	">=": tokenGe,
	"&&": tokenAnd,
	"||": tokenOr,
}

var oneCharOps = map[byte]tokenKind{
	'(': tokenLParen,
	')': tokenRParen,
	'[': tokenLBracket,
	']': tokenRBracket,
	'{': tokenLBrace,
	'}': tokenRBrace,
	',': tokenComma,
	':': tokenColon,
	';': tokenSemi,
	'.': tokenDot,
	'|': tokenPipe,
	'+': tokenPlus,
	'-': tokenMinus,
	'*': tokenStar,
	'/': tokenSlash,
	'%': tokenPercent,
	'<': tokenLt,
	'>': tokenGt,
	'!': tokenBang,
}

func (l *lexer) scanExpr() (token, error) {
	text := l.src.Text

	for !l.eof() && isSpace(text[l.pos]) {
		l.pos++
	}

	if l.eof() {
		return token{kind: tokenEOF, span: l.here()}, nil
	}

	start := l.pos
	c := text[start]

	if start+1 < len(text) {
		if kind, ok := twoCharOps[text[start:start+2]]; ok {
			l.pos += 2

			return token{kind: kind, span: l.span(start, l.pos), text: text[start:l.pos]}, nil
		}
	}

	switch {
	case c == '"' || c == '\'':
		return l.scanString(c)

	case isDigit(c):
		return l.scanNumber()

	case isIdentStart(c):
		for l.pos++; !l.eof() && isIdentContinue(text[l.pos]); l.pos++ {
		}

		word := text[start:l.pos]
		if kind, ok := exprKeywords[word]; ok {
			return token{kind: kind, span: l.span(start, l.pos), text: word}, nil
		}

		return token{kind: tokenIdent, span: l.span(start, l.pos), text: word}, nil
	}

	if kind, ok := oneCharOps[c]; ok {
		l.pos++

		return token{kind: kind, span: l.span(start, l.pos), text: text[start:l.pos]}, nil
	}

	_, size := utf8.DecodeRuneInString(text[start:])

	return token{}, newParseError(
		l.span(start, start+size),
		"unexpected character "+strconv.Quote(text[start:start+size]),
	)
}

func (l *lexer) scanString(quote byte) (token, error) {
	text := l.src.Text
	start := l.pos

	for i := start + 1; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++ // skip escaped byte

		case quote:
			l.pos = i + 1

			return token{
				kind: tokenString,
				span: l.span(start, l.pos),
				text: text[start:l.pos],
				val:  unescape(text[start+1 : i]),
			}, nil
		}
	}

	l.pos = len(text)

	return token{}, newParseError(l.span(start, l.pos), "unterminated string literal")
}

func (l *lexer) scanNumber() (token, error) {
	text := l.src.Text
	start := l.pos

	l.pos = skipDigits(text, l.pos)

	float := false

	if l.pos+1 < len(text) && text[l.pos] == '.' && isDigit(text[l.pos+1]) {
		float = true
		l.pos = skipDigits(text, l.pos+1)

		if l.pos < len(text) && (text[l.pos] == 'e' || text[l.pos] == 'E') {
			i := l.pos + 1
			if i < len(text) && (text[i] == '+' || text[i] == '-') {
				i++
			}

			if i < len(text) && isDigit(text[i]) {
				l.pos = skipDigits(text, i)
			}
		}
	}

	lit := text[start:l.pos]
	span := l.span(start, l.pos)

	if float {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return token{}, newParseError(span, "invalid float literal "+lit)
		}

		return token{kind: tokenFloat, span: span, text: lit, val: f}, nil
	}

	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return token{}, newParseError(span, "integer literal out of range "+lit)
	}

	return token{kind: tokenInt, span: span, text: lit, val: n}, nil
}

func skipDigits(s string, i int) int {
	for i < len(s) && isDigit(s[i]) {
		i++
	}

	return i
}

// unescape decodes backslash escapes in a string literal body. Unknown
// escapes are kept verbatim.
func unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}

	var b strings.Builder

	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)

			continue
		}

		if i+1 >= len(s) {
			b.WriteByte('\\')

			break
		}

		i++

		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case '\\', '\'', '"':
			b.WriteByte(s[i])
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}

	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isIdentContinue(c byte) bool {
	return c == '_' || isDigit(c) || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
