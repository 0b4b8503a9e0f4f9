package lang

// Template is a parsed template. It is immutable after parsing and may be
// rendered concurrently against independent scopes.
type Template struct {
	Name  string
	Nodes []Node
	Span  Span
}

// Node is a top-level or body element of a template.
type Node interface {
	Span() Span
	node()
}

// TextNode is literal text copied verbatim to the output.
type TextNode struct {
	Text string
	span Span
}

// InterpNode is an interpolation {{ expr }}.
type InterpNode struct {
	Expr Expr
	span Span
}

// IfBranch is a conditional branch of an IfNode.
type IfBranch struct {
	Cond Expr
	Body []Node
	Span Span
}

// IfNode is an @if directive with optional @else @if chains and a final
// @else body. Else is nil when there is no @else.
type IfNode struct {
	Else     []Node
	Branches []IfBranch
	HasElse  bool
	span     Span
}

// ForNode is an @for (binding of iterable; track key) directive.
// Track is nil when absent.
type ForNode struct {
	Iterable Expr
	Track    Expr
	Binding  string
	Body     []Node
	span     Span
}

// SwitchCase is an @case arm of a SwitchNode.
type SwitchCase struct {
	Value Expr
	Body  []Node
	Span  Span
}

// SwitchNode is an @switch directive. Default holds the @default (or
// @case (_)) body when HasDefault is set.
type SwitchNode struct {
	Subject    Expr
	Cases      []SwitchCase
	Default    []Node
	HasDefault bool
	span       Span
}

// IncludeNode is an @include (name) directive.
type IncludeNode struct {
	Name Expr
	span Span
}

func (n *TextNode) Span() Span    { return n.span }
func (n *InterpNode) Span() Span  { return n.span }
func (n *IfNode) Span() Span      { return n.span }
func (n *ForNode) Span() Span     { return n.span }
func (n *SwitchNode) Span() Span  { return n.span }
func (n *IncludeNode) Span() Span { return n.span }

func (*TextNode) node()    {}
func (*InterpNode) node()  {}
func (*IfNode) node()      {}
func (*ForNode) node()     {}
func (*SwitchNode) node()  {}
func (*IncludeNode) node() {}

// Expr is an expression.
type Expr interface {
	Span() Span
	expr()
}

// LiteralExpr is a null, bool, int64, float64, or string constant.
type LiteralExpr struct {
	Value any
	span  Span
}

// IdentExpr is a variable reference.
type IdentExpr struct {
	Name string
	span Span
}

// MemberExpr is field access base.field.
type MemberExpr struct {
	Base  Expr
	Field string
	span  Span
}

// IndexExpr is subscript access base[index].
type IndexExpr struct {
	Base  Expr
	Index Expr
	span  Span
}

// CallExpr is a call of a registered function name(args).
type CallExpr struct {
	Name string
	Args []Expr
	span Span
}

// MethodCallExpr is a call of a value method receiver.name(args).
type MethodCallExpr struct {
	Receiver Expr
	Name     string
	Args     []Expr
	span     Span
}

// PipeExpr is a pipe application input | name:args.
type PipeExpr struct {
	Input Expr
	Name  string
	Args  []Expr
	span  Span
}

// BinaryExpr is a binary operation.
type BinaryExpr struct {
	Left  Expr
	Right Expr
	Op    BinaryOp
	span  Span
}

// UnaryExpr is a prefix operation.
type UnaryExpr struct {
	Operand Expr
	Op      UnaryOp
	span    Span
}

// ArrayExpr is an array literal [a, b].
type ArrayExpr struct {
	Elems []Expr
	span  Span
}

// ObjectEntry is a key-value pair of an ObjectExpr.
type ObjectEntry struct {
	Value Expr
	Key   string
}

// ObjectExpr is an object literal {key: value}. Entries keep source order.
type ObjectExpr struct {
	Entries []ObjectEntry
	span    Span
}

// GroupExpr is a parenthesized expression.
type GroupExpr struct {
	Inner Expr
	span  Span
}

func (e *LiteralExpr) Span() Span    { return e.span }
func (e *IdentExpr) Span() Span      { return e.span }
func (e *MemberExpr) Span() Span     { return e.span }
func (e *IndexExpr) Span() Span      { return e.span }
func (e *CallExpr) Span() Span       { return e.span }
func (e *MethodCallExpr) Span() Span { return e.span }
func (e *PipeExpr) Span() Span       { return e.span }
func (e *BinaryExpr) Span() Span     { return e.span }
func (e *UnaryExpr) Span() Span      { return e.span }
func (e *ArrayExpr) Span() Span      { return e.span }
func (e *ObjectExpr) Span() Span     { return e.span }
func (e *GroupExpr) Span() Span      { return e.span }

func (*LiteralExpr) expr()    {}
func (*IdentExpr) expr()      {}
func (*MemberExpr) expr()     {}
func (*IndexExpr) expr()      {}
func (*CallExpr) expr()       {}
func (*MethodCallExpr) expr() {}
func (*PipeExpr) expr()       {}
func (*BinaryExpr) expr()     {}
func (*UnaryExpr) expr()      {}
func (*ArrayExpr) expr()      {}
func (*ObjectExpr) expr()     {}
func (*GroupExpr) expr()      {}

// BinaryOp is a binary operator.
type BinaryOp int

const (
	OpOr BinaryOp = iota
	OpAnd
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

var binaryOpText = [...]string{
	OpOr:  "||",
	OpAnd: "&&",
	OpEq:  "==",
	OpNe:  "!=",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
}

// String returns the operator's source text.
func (op BinaryOp) String() string { return binaryOpText[op] }

// Binding powers, lowest first. Unary and postfix bind tighter than any
// binary operator.
const (
	precLowest = iota
	precOr
	precAnd
	precEquality
	precRelational
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
)

// Precedence returns the binding power of op.
func (op BinaryOp) Precedence() int {
	switch op {
	case OpOr:
		return precOr
	case OpAnd:
		return precAnd
	case OpEq, OpNe:
		return precEquality
	case OpLt, OpLe, OpGt, OpGe:
		return precRelational
	case OpAdd, OpSub:
		return precAdditive
	default:
		return precMultiplicative
	}
}

var binaryOps = map[tokenKind]BinaryOp{
	tokenOr:      OpOr,
	tokenAnd:     OpAnd,
	tokenEq:      OpEq,
	tokenNe:      OpNe,
	tokenLt:      OpLt,
	tokenLe:      OpLe,
	tokenGt:      OpGt,
	tokenGe:      OpGe,
	tokenPlus:    OpAdd,
	tokenMinus:   OpSub,
	tokenStar:    OpMul,
	tokenSlash:   OpDiv,
	tokenPercent: OpMod,
}

// UnaryOp is a prefix operator.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

// String returns the operator's source text.
func (op UnaryOp) String() string {
	if op == OpNeg {
		return "-"
	}

	return "!"
}
