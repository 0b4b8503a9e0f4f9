package lang

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/klauspost/readahead"

	"github.com/ardnew/xtera/log"
)

// maxNesting bounds the nesting of bodies and sub-expressions accepted by the
// parser so adversarial input cannot exhaust the stack.
const maxNesting = 512

// ParseReader parses a template read from r.
func ParseReader(ctx context.Context, r io.Reader, opts ...Option) (*Template, error) {
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).
			With(slog.String("source", "reader"))
	}

	return ParseString(ctx, string(data), opts...)
}

// ParseString parses a template from its source text.
//
// Parsing stops at the first error, which is returned as a [*ParseError]
// carrying the span of the offending input. No partial template is returned.
func ParseString(ctx context.Context, s string, opts ...Option) (*Template, error) {
	cfg := makeConfig(opts...)

	cfg.logger.TraceContext(ctx, "parse start",
		slog.String("name", cfg.name),
		slog.Int("source_length", len(s)),
	)

	src := NewSource(cfg.name, s)
	p := &parser{lex: newLexer(src), src: src, logger: cfg.logger}

	tpl, err := p.parseTemplate()
	if err != nil {
		cfg.logger.TraceContext(ctx, "parse failed", slog.Any("error", err))

		return nil, err
	}

	tpl.Name = cfg.name

	cfg.logger.TraceContext(ctx, "parse complete",
		slog.String("name", cfg.name),
		slog.Int("node_count", len(tpl.Nodes)),
	)

	return tpl, nil
}

// ParseExpr parses a single expression. The whole of s must be consumed.
func ParseExpr(ctx context.Context, s string, opts ...Option) (Expr, error) {
	cfg := makeConfig(opts...)

	src := NewSource(cfg.name, s)
	p := &parser{lex: newLexer(src), src: src, logger: cfg.logger}

	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	t, err := p.lex.nextExpr()
	if err != nil {
		return nil, err
	}

	if t.kind != tokenEOF {
		return nil, p.unexpected(t, "end of expression")
	}

	cfg.logger.TraceContext(ctx, "parsed expression",
		slog.String("expr", ExprString(e)),
	)

	return e, nil
}

// MustParse is like [ParseString] but panics if the source cannot be parsed.
// It is intended for templates fixed at compile time.
func MustParse(s string, opts ...Option) *Template {
	tpl, err := ParseString(context.Background(), s, opts...)
	if err != nil {
		panic(err)
	}

	return tpl
}

// parser holds the parser state.
type parser struct {
	lex    *lexer
	src    *Source
	logger log.Logger
	nest   int
}

func (p *parser) enter(at Span) error {
	p.nest++
	if p.nest > maxNesting {
		return newParseError(at, "nesting too deep")
	}

	return nil
}

func (p *parser) leave() { p.nest-- }

func (p *parser) parseTemplate() (*Template, error) {
	nodes, _, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}

	span := NewSpan(p.src, 0, 0)
	if len(nodes) > 0 {
		span = nodes[0].Span().Merge(nodes[len(nodes)-1].Span())
	}

	return &Template{Nodes: nodes, Span: span}, nil
}

// parseNodes parses a node sequence. At top level (open == nil) it stops at
// end of input. Inside a directive body it stops at the closing "}", which
// is returned, and end of input is an error naming the open directive.
func (p *parser) parseNodes(open *token) ([]Node, token, error) {
	var nodes []Node

	for {
		t := p.lex.nextText()

		switch t.kind {
		case tokenEOF:
			if open != nil {
				return nil, t, newParseError(open.span,
					"unclosed "+open.kind.String()+" body: expected \"}\" before end of input")
			}

			return nodes, t, nil

		case tokenCloseBody:
			return nodes, t, nil

		case tokenText:
			nodes = append(nodes, &TextNode{Text: t.text, span: t.span})

		case tokenInterpStart:
			n, err := p.parseInterp(t)
			if err != nil {
				return nil, t, err
			}

			nodes = append(nodes, n)

		case tokenAtIf:
			n, err := p.parseIf(t)
			if err != nil {
				return nil, t, err
			}

			nodes = append(nodes, n)

		case tokenAtFor:
			n, err := p.parseFor(t)
			if err != nil {
				return nil, t, err
			}

			nodes = append(nodes, n)

		case tokenAtSwitch:
			n, err := p.parseSwitch(t)
			if err != nil {
				return nil, t, err
			}

			nodes = append(nodes, n)

		case tokenAtInclude:
			n, err := p.parseInclude(t)
			if err != nil {
				return nil, t, err
			}

			nodes = append(nodes, n)

		case tokenAtElse:
			return nil, t, newParseError(t.span, "@else without a preceding @if")

		case tokenAtCase, tokenAtDefault:
			return nil, t, newParseError(t.span, t.kind.String()+" outside of @switch")

		default:
			return nil, t, newParseError(t.span, "unexpected "+t.describe())
		}
	}
}

func (p *parser) parseInterp(open token) (Node, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	end, err := p.lex.nextExpr()
	if err != nil {
		return nil, err
	}

	switch end.kind {
	case tokenInterpEnd:
		return &InterpNode{Expr: expr, span: open.span.Merge(end.span)}, nil

	case tokenEOF:
		return nil, newParseError(open.span.Merge(end.span),
			"unterminated expression: expected \"}}\" before end of input")

	default:
		return nil, newParseError(end.span,
			"unexpected "+end.describe()+" after expression, expected \"}}\"")
	}
}

// parseBody parses "{" nodes "}" following the header of the directive at.
func (p *parser) parseBody(at token) ([]Node, Span, error) {
	if _, err := p.expect(tokenLBrace, "to open "+at.kind.String()+" body"); err != nil {
		return nil, Span{}, err
	}

	if err := p.enter(at.span); err != nil {
		return nil, Span{}, err
	}
	defer p.leave()

	p.lex.openBody()

	nodes, end, err := p.parseNodes(&at)
	if err != nil {
		return nil, Span{}, err
	}

	p.lex.closeBody()

	return nodes, end.span, nil
}

// parseHeader parses "(" expr ")" following a directive keyword.
// The expression must consume every token up to the closing parenthesis.
func (p *parser) parseHeader(at token) (Expr, error) {
	if _, err := p.expect(tokenLParen, "after "+at.kind.String()); err != nil {
		return nil, err
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(tokenRParen, "to close "+at.kind.String()+" header"); err != nil {
		return nil, err
	}

	return expr, nil
}

func (p *parser) parseIf(at token) (Node, error) {
	n := &IfNode{}

	cond, err := p.parseHeader(at)
	if err != nil {
		return nil, err
	}

	body, end, err := p.parseBody(at)
	if err != nil {
		return nil, err
	}

	n.Branches = append(n.Branches, IfBranch{
		Cond: cond,
		Body: body,
		Span: at.span.Merge(end),
	})
	n.span = at.span.Merge(end)

	for p.lex.atKeyword(tokenAtElse) {
		p.lex.skipSpace()
		elseTok := p.lex.nextText()

		if p.lex.atKeyword(tokenAtIf) {
			p.lex.skipSpace()
			ifTok := p.lex.nextText()

			cond, err := p.parseHeader(ifTok)
			if err != nil {
				return nil, err
			}

			body, end, err := p.parseBody(ifTok)
			if err != nil {
				return nil, err
			}

			n.Branches = append(n.Branches, IfBranch{
				Cond: cond,
				Body: body,
				Span: elseTok.span.Merge(end),
			})
			n.span = n.span.Merge(end)

			continue
		}

		body, end, err := p.parseBody(elseTok)
		if err != nil {
			return nil, err
		}

		n.Else, n.HasElse = body, true
		n.span = n.span.Merge(end)

		break
	}

	return n, nil
}

func (p *parser) parseFor(at token) (Node, error) {
	n := &ForNode{}

	if _, err := p.expect(tokenLParen, "after @for"); err != nil {
		return nil, err
	}

	binding, err := p.expect(tokenIdent, "as @for loop variable")
	if err != nil {
		return nil, err
	}

	n.Binding = binding.text

	if _, err := p.expect(tokenOf, "after @for loop variable"); err != nil {
		return nil, err
	}

	if n.Iterable, err = p.parseExpr(); err != nil {
		return nil, err
	}

	t, err := p.lex.nextExpr()
	if err != nil {
		return nil, err
	}

	if t.kind == tokenSemi {
		if _, err := p.expect(tokenTrack, "after \";\" in @for header"); err != nil {
			return nil, err
		}

		if n.Track, err = p.parseExpr(); err != nil {
			return nil, err
		}

		if t, err = p.lex.nextExpr(); err != nil {
			return nil, err
		}
	}

	if t.kind != tokenRParen {
		return nil, p.unexpected(t, `")" to close @for header`)
	}

	body, end, err := p.parseBody(at)
	if err != nil {
		return nil, err
	}

	n.Body = body
	n.span = at.span.Merge(end)

	return n, nil
}

func (p *parser) parseSwitch(at token) (Node, error) {
	n := &SwitchNode{}

	subject, err := p.parseHeader(at)
	if err != nil {
		return nil, err
	}

	n.Subject = subject

	if _, err := p.expect(tokenLBrace, "to open @switch body"); err != nil {
		return nil, err
	}

	p.lex.openBody()

	for {
		t := p.lex.nextText()

		switch t.kind {
		case tokenText:
			if strings.TrimSpace(t.text) != "" {
				return nil, newParseError(t.span,
					"unexpected "+t.describe()+" in @switch body, expected @case, @default or \"}\"")
			}

		case tokenAtCase:
			value, err := p.parseHeader(t)
			if err != nil {
				return nil, err
			}

			body, end, err := p.parseBody(t)
			if err != nil {
				return nil, err
			}

			if isCatchAll(value) {
				if n.HasDefault {
					return nil, newParseError(t.span.Merge(value.Span()),
						"duplicate catch-all arm in @switch")
				}

				n.Default, n.HasDefault = body, true

				continue
			}

			n.Cases = append(n.Cases, SwitchCase{
				Value: value,
				Body:  body,
				Span:  t.span.Merge(end),
			})

		case tokenAtDefault:
			if n.HasDefault {
				return nil, newParseError(t.span, "duplicate @default in @switch")
			}

			body, _, err := p.parseBody(t)
			if err != nil {
				return nil, err
			}

			n.Default, n.HasDefault = body, true

		case tokenCloseBody:
			p.lex.closeBody()
			n.span = at.span.Merge(t.span)

			return n, nil

		case tokenEOF:
			return nil, newParseError(at.span,
				"unclosed @switch body: expected \"}\" before end of input")

		default:
			return nil, newParseError(t.span,
				"unexpected "+t.describe()+" in @switch body, expected @case, @default or \"}\"")
		}
	}
}

// isCatchAll reports whether a case label is the wildcard "_".
func isCatchAll(e Expr) bool {
	id, ok := e.(*IdentExpr)

	return ok && id.Name == "_"
}

func (p *parser) parseInclude(at token) (Node, error) {
	name, err := p.parseHeader(at)
	if err != nil {
		return nil, err
	}

	return &IncludeNode{Name: name, span: at.span.Merge(p.lastSpan(name))}, nil
}

// lastSpan returns the span from e through the header's closing parenthesis.
func (p *parser) lastSpan(e Expr) Span {
	end := p.lex.pos

	return NewSpan(p.src, e.Span().Start, end)
}

// expect consumes the next expression token and requires it to be of kind.
func (p *parser) expect(kind tokenKind, context string) (token, error) {
	t, err := p.lex.nextExpr()
	if err != nil {
		return t, err
	}

	if t.kind != kind {
		return t, p.unexpected(t, kind.String()+" "+context)
	}

	return t, nil
}

func (p *parser) unexpected(t token, expected string) *ParseError {
	if t.kind == tokenEOF {
		return newParseError(t.span, "unexpected end of input, expected "+expected)
	}

	return newParseError(t.span, "unexpected "+t.describe()+", expected "+expected)
}

// Expression parsing

func (p *parser) parseExpr() (Expr, error) {
	return p.parseBinary(precOr)
}

// parseBinary parses operators binding at least as tightly as minPrec.
// All binary operators are left-associative, so the right operand is parsed
// with a strictly higher minimum.
func (p *parser) parseBinary(minPrec int) (Expr, error) {
	left, err := p.parseUnary(true)
	if err != nil {
		return nil, err
	}

	for {
		t, err := p.lex.peekExpr()
		if err != nil {
			return nil, err
		}

		op, ok := binaryOps[t.kind]
		if !ok || op.Precedence() < minPrec {
			return left, nil
		}

		_, _ = p.lex.nextExpr()

		right, err := p.parseBinary(op.Precedence() + 1)
		if err != nil {
			return nil, err
		}

		left = &BinaryExpr{
			Op:    op,
			Left:  left,
			Right: right,
			span:  left.Span().Merge(right.Span()),
		}
	}
}

// parseUnary parses prefix operators followed by a postfix chain. Pipes are
// part of the chain only when allowPipe is set; colon-separated pipe
// arguments disable it so "a | f:x | g" applies g to the result of f.
func (p *parser) parseUnary(allowPipe bool) (Expr, error) {
	t, err := p.lex.peekExpr()
	if err != nil {
		return nil, err
	}

	var op UnaryOp

	switch t.kind {
	case tokenBang:
		op = OpNot
	case tokenMinus:
		op = OpNeg
	default:
		return p.parsePostfix(allowPipe)
	}

	_, _ = p.lex.nextExpr()

	if err := p.enter(t.span); err != nil {
		return nil, err
	}
	defer p.leave()

	operand, err := p.parseUnary(allowPipe)
	if err != nil {
		return nil, err
	}

	return &UnaryExpr{Op: op, Operand: operand, span: t.span.Merge(operand.Span())}, nil
}

func (p *parser) parsePostfix(allowPipe bool) (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		t, err := p.lex.peekExpr()
		if err != nil {
			return nil, err
		}

		switch t.kind {
		case tokenDot:
			_, _ = p.lex.nextExpr()

			name, err := p.expect(tokenIdent, "after \".\"")
			if err != nil {
				return nil, err
			}

			next, err := p.lex.peekExpr()
			if err != nil {
				return nil, err
			}

			if next.kind == tokenLParen {
				args, end, err := p.parseArgs()
				if err != nil {
					return nil, err
				}

				expr = &MethodCallExpr{
					Receiver: expr,
					Name:     name.text,
					Args:     args,
					span:     expr.Span().Merge(end),
				}

				continue
			}

			expr = &MemberExpr{Base: expr, Field: name.text, span: expr.Span().Merge(name.span)}

		case tokenLBracket:
			_, _ = p.lex.nextExpr()

			if expr, err = p.parseIndex(expr, t); err != nil {
				return nil, err
			}

		case tokenLParen:
			return nil, newParseError(t.span,
				"unexpected \"(\": only functions and methods can be called")

		case tokenPipe:
			if !allowPipe {
				return expr, nil
			}

			_, _ = p.lex.nextExpr()

			if expr, err = p.parsePipe(expr); err != nil {
				return nil, err
			}

		default:
			return expr, nil
		}
	}
}

// parseIndex parses the index expression and closing "]" after open.
func (p *parser) parseIndex(base Expr, open token) (Expr, error) {
	if err := p.enter(open.span); err != nil {
		return nil, err
	}
	defer p.leave()

	index, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	end, err := p.expect(tokenRBracket, "to close index")
	if err != nil {
		return nil, err
	}

	return &IndexExpr{Base: base, Index: index, span: base.Span().Merge(end.span)}, nil
}

// parsePipe parses "name" followed by either a parenthesized argument list
// or any number of ":arg" arguments. The "|" has been consumed.
func (p *parser) parsePipe(input Expr) (Expr, error) {
	name, err := p.expect(tokenIdent, "as pipe name after \"|\"")
	if err != nil {
		return nil, err
	}

	pipe := &PipeExpr{Input: input, Name: name.text, span: input.Span().Merge(name.span)}

	t, err := p.lex.peekExpr()
	if err != nil {
		return nil, err
	}

	if t.kind == tokenLParen {
		args, end, err := p.parseArgs()
		if err != nil {
			return nil, err
		}

		pipe.Args = args
		pipe.span = pipe.span.Merge(end)

		return pipe, nil
	}

	for t.kind == tokenColon {
		_, _ = p.lex.nextExpr()

		arg, err := p.parseUnary(false)
		if err != nil {
			return nil, err
		}

		pipe.Args = append(pipe.Args, arg)
		pipe.span = pipe.span.Merge(arg.Span())

		if t, err = p.lex.peekExpr(); err != nil {
			return nil, err
		}
	}

	return pipe, nil
}

// parseArgs parses "(" [expr {"," expr}] ")".
func (p *parser) parseArgs() ([]Expr, Span, error) {
	open, err := p.expect(tokenLParen, "to open argument list")
	if err != nil {
		return nil, Span{}, err
	}

	args, end, err := p.parseList(open, tokenRParen, "argument list")
	if err != nil {
		return nil, Span{}, err
	}

	return args, end, nil
}

// parseList parses comma-separated expressions up to the close token.
// A trailing comma is accepted. The opening token has been consumed.
func (p *parser) parseList(open token, close tokenKind, what string) ([]Expr, Span, error) {
	if err := p.enter(open.span); err != nil {
		return nil, Span{}, err
	}
	defer p.leave()

	var list []Expr

	for {
		t, err := p.lex.peekExpr()
		if err != nil {
			return nil, Span{}, err
		}

		if t.kind == close {
			_, _ = p.lex.nextExpr()

			return list, open.span.Merge(t.span), nil
		}

		e, err := p.parseExpr()
		if err != nil {
			return nil, Span{}, err
		}

		list = append(list, e)

		t, err = p.lex.nextExpr()
		if err != nil {
			return nil, Span{}, err
		}

		switch t.kind {
		case close:
			return list, open.span.Merge(t.span), nil
		case tokenComma:
		default:
			return nil, Span{}, p.unexpected(t, "\",\" or "+close.String()+" in "+what)
		}
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	t, err := p.lex.nextExpr()
	if err != nil {
		return nil, err
	}

	switch t.kind {
	case tokenInt, tokenFloat, tokenString:
		return &LiteralExpr{Value: t.val, span: t.span}, nil

	case tokenTrue:
		return &LiteralExpr{Value: true, span: t.span}, nil

	case tokenFalse:
		return &LiteralExpr{Value: false, span: t.span}, nil

	case tokenNull:
		return &LiteralExpr{Value: nil, span: t.span}, nil

	case tokenIdent:
		next, err := p.lex.peekExpr()
		if err != nil {
			return nil, err
		}

		if next.kind == tokenLParen {
			args, end, err := p.parseArgs()
			if err != nil {
				return nil, err
			}

			return &CallExpr{Name: t.text, Args: args, span: t.span.Merge(end)}, nil
		}

		return &IdentExpr{Name: t.text, span: t.span}, nil

	case tokenLParen:
		if err := p.enter(t.span); err != nil {
			return nil, err
		}
		defer p.leave()

		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		end, err := p.expect(tokenRParen, "to close group")
		if err != nil {
			return nil, err
		}

		return &GroupExpr{Inner: inner, span: t.span.Merge(end.span)}, nil

	case tokenLBracket:
		elems, span, err := p.parseList(t, tokenRBracket, "array literal")
		if err != nil {
			return nil, err
		}

		return &ArrayExpr{Elems: elems, span: span}, nil

	case tokenLBrace:
		return p.parseObject(t)

	default:
		return nil, p.unexpected(t, "expression")
	}
}

// parseObject parses an object literal; the "{" has been consumed.
// Keys are identifiers, keywords or string literals.
func (p *parser) parseObject(open token) (Expr, error) {
	if err := p.enter(open.span); err != nil {
		return nil, err
	}
	defer p.leave()

	obj := &ObjectExpr{}

	for {
		t, err := p.closeBrace()
		if err != nil {
			return nil, err
		}

		if t.kind == tokenRBrace {
			_, _ = p.lex.nextExpr()
			obj.span = open.span.Merge(t.span)

			return obj, nil
		}

		key, err := p.lex.nextExpr()
		if err != nil {
			return nil, err
		}

		var name string

		switch key.kind {
		case tokenIdent, tokenTrue, tokenFalse, tokenNull, tokenOf, tokenTrack:
			name = key.text
		case tokenString:
			name, _ = key.val.(string)
		default:
			return nil, p.unexpected(key, "object key")
		}

		if _, err := p.expect(tokenColon, "after object key"); err != nil {
			return nil, err
		}

		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		obj.Entries = append(obj.Entries, ObjectEntry{Key: name, Value: value})

		if t, err = p.closeBrace(); err != nil {
			return nil, err
		}

		switch t.kind {
		case tokenRBrace:
			// closed on the next iteration
		case tokenComma:
			_, _ = p.lex.nextExpr()
		default:
			return nil, p.unexpected(t, "\",\" or \"}\" in object literal")
		}
	}
}

// closeBrace peeks at the next token, splitting "}}" so the first brace can
// close an object literal nested inside an interpolation.
func (p *parser) closeBrace() (token, error) {
	t, err := p.lex.peekExpr()
	if err != nil {
		return t, err
	}

	if t.kind != tokenInterpEnd {
		return t, nil
	}

	brace := token{
		kind: tokenRBrace,
		span: NewSpan(p.src, t.span.Start, t.span.Start+1),
		text: "}",
	}

	p.lex.peeked, p.lex.peekPos = &brace, t.span.Start
	p.lex.pos = t.span.Start + 1

	return brace, nil
}
