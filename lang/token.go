package lang

import "strconv"

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenText
	tokenInterpStart // {{
	tokenInterpEnd   // }}

	// Directive keywords, recognized in text mode.
	tokenAtIf
	tokenAtElse
	tokenAtFor
	tokenAtSwitch
	tokenAtCase
	tokenAtDefault
	tokenAtInclude

	// A "}" closing a directive body, recognized in text mode.
	tokenCloseBody

	// Literals and names.
	tokenIdent
	tokenInt
	tokenFloat
	tokenString
	tokenTrue
	tokenFalse
	tokenNull
	tokenOf
	tokenTrack

	// Punctuation.
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
	tokenLBrace
	tokenRBrace
	tokenComma
	tokenColon
	tokenSemi
	tokenDot
	tokenPipe

	// Operators.
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenPercent
	tokenEq
	tokenNe
	tokenLt
	tokenLe
	tokenGt
	tokenGe
	tokenAnd
	tokenOr
	tokenBang
)

var tokenNames = map[tokenKind]string{
	tokenEOF:         "end of input",
	tokenText:        "text",
	tokenInterpStart: `"{{"`,
	tokenInterpEnd:   `"}}"`,
	tokenAtIf:        "@if",
	tokenAtElse:      "@else",
	tokenAtFor:       "@for",
	tokenAtSwitch:    "@switch",
	tokenAtCase:      "@case",
	tokenAtDefault:   "@default",
	tokenAtInclude:   "@include",
	tokenCloseBody:   `"}"`,
	tokenIdent:       "identifier",
	tokenInt:         "integer",
	tokenFloat:       "float",
	tokenString:      "string",
	tokenTrue:        "true",
	tokenFalse:       "false",
	tokenNull:        "null",
	tokenOf:          `"of"`,
	tokenTrack:       `"track"`,
	tokenLParen:      `"("`,
	tokenRParen:      `")"`,
	tokenLBracket:    `"["`,
	tokenRBracket:    `"]"`,
	tokenLBrace:      `"{"`,
	tokenRBrace:      `"}"`,
	tokenComma:       `","`,
	tokenColon:       `":"`,
	tokenSemi:        `";"`,
	tokenDot:         `"."`,
	tokenPipe:        `"|"`,
	tokenPlus:        `"+"`,
	tokenMinus:       `"-"`,
	tokenStar:        `"*"`,
	tokenSlash:       `"/"`,
	tokenPercent:     `"%"`,
	tokenEq:          `"=="`,
	tokenNe:          `"!="`,
	tokenLt:          `"<"`,
	tokenLe:          `"<="`,
	tokenGt:          `">"`,
	tokenGe:          `">="`,
	tokenAnd:         `"&&"`,
	tokenOr:          `"||"`,
	tokenBang:        `"!"`,
}

func (k tokenKind) String() string {
	if s, ok := tokenNames[k]; ok {
		return s
	}

	return "token(" + strconv.Itoa(int(k)) + ")"
}

// token is a lexeme with its location. Literal tokens carry their decoded
// value in val: int64 for tokenInt, float64 for tokenFloat, and the unescaped
// string for tokenString and tokenText. Identifiers carry their name.
type token struct {
	val  any
	text string
	span Span
	kind tokenKind
}

// describe returns a short human-readable rendition of t for error messages.
func (t token) describe() string {
	switch t.kind {
	case tokenIdent:
		return "identifier " + strconv.Quote(t.text)
	case tokenInt, tokenFloat:
		return "number " + t.text
	case tokenString:
		return "string " + t.text
	case tokenText:
		return "text " + strconv.Quote(abbreviate(t.text, 16))
	default:
		return t.kind.String()
	}
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}

var atKeywords = []struct {
	word string
	kind tokenKind
}{
	// Longest first so "default" is not shadowed by a shorter prefix.
	{"include", tokenAtInclude},
	{"default", tokenAtDefault},
	{"switch", tokenAtSwitch},
	{"case", tokenAtCase},
	{"else", tokenAtElse},
	{"for", tokenAtFor},
	{"if", tokenAtIf},
}

var exprKeywords = map[string]tokenKind{
	"true":  tokenTrue,
	"false": tokenFalse,
	"null":  tokenNull,
	"of":    tokenOf,
	"track": tokenTrack,
}
