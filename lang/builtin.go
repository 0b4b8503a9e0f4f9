package lang

// This file defines the builtin pipes and functions registered by
// [WithBuiltins]. Builtins fail with a TypeError when given arguments of the
// wrong number or kind.

import (
	"cmp"
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/ardnew/mung"
	"github.com/expr-lang/expr"
	"github.com/goccy/go-yaml"
)

// Predefined builtin errors.
var (
	ErrExprCompile = NewError("failed to compile expression")
	ErrExprRun     = NewError("failed to evaluate expression")
	ErrMarshal     = NewError("failed to marshal value")
	ErrRangeLimit  = NewError("range too large")
)

// maxRangeLen bounds the length of arrays built by range().
const maxRangeLen = 1 << 20

func registerBuiltins(s *Scope) {
	// Pipes sharing a value method dispatch on the input's kind.
	for _, name := range []string{
		"upper", "lower", "trim", "split", "replace", "join",
		"contains", "first", "last", "keys", "values",
	} {
		s.SetPipe(name, methodPipe(name))
	}

	s.SetPipe("length", methodPipe("len"))

	s.SetPipeFunc("title", pipeTitle)
	s.SetPipeFunc("default", pipeDefault)
	s.SetPipeFunc("reverse", pipeReverse)
	s.SetPipeFunc("sort", pipeSort)
	s.SetPipeFunc("json", pipeJSON)
	s.SetPipeFunc("yaml", pipeYAML)
	s.SetPipeFunc("quote", pipeQuote)
	s.SetPipeFunc("pathprepend", pipePathPrepend)
	s.SetPipeFunc("abs", pipeAbs)
	s.SetPipeFunc("round", pipeRound)

	s.SetFuncFunc("range", funcRange)
	s.SetFuncFunc("len", funcLen)
	s.SetFuncFunc("env", funcEnv)
	s.SetFuncFunc("min", extremum(-1))
	s.SetFuncFunc("max", extremum(1))
	s.SetFuncFunc("str", funcStr)
	s.SetFuncFunc("int", funcInt)
	s.SetFuncFunc("float", funcFloat)
	s.SetFunc("expr", exprFunc{scope: s})
}

// methodPipe applies the value method name to the pipe input.
func methodPipe(name string) PipeFunc {
	return func(_ context.Context, value any, args []any) (any, error) {
		m, ok := methods[KindOf(value)][name]
		if !ok {
			return nil, &EvalError{
				Kind:     TypeError,
				Expected: kindsWith(name),
				Got:      KindOf(value).String(),
			}
		}

		return m(value, args)
	}
}

// kindsWith names the kinds that define method name.
func kindsWith(name string) string {
	var kinds []string

	for _, k := range []Kind{KindString, KindArray, KindObject} {
		if _, ok := methods[k][name]; ok {
			kinds = append(kinds, k.String())
		}
	}

	return strings.Join(kinds, " or ")
}

func stringInput(value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", &EvalError{Kind: TypeError, Expected: "string", Got: KindOf(value).String()}
	}

	return s, nil
}

func pipeTitle(_ context.Context, value any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	s, err := stringInput(value)
	if err != nil {
		return nil, err
	}

	out := []rune(s)
	for i, r := range out {
		if i == 0 || unicode.IsSpace(out[i-1]) || out[i-1] == '-' || out[i-1] == '_' {
			out[i] = unicode.ToTitle(r)
		}
	}

	return string(out), nil
}

// pipeDefault substitutes its argument for a null input.
func pipeDefault(_ context.Context, value any, args []any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}

	if value == nil {
		return args[0], nil
	}

	return value, nil
}

func pipeReverse(_ context.Context, value any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	switch x := value.(type) {
	case []any:
		out := slices.Clone(x)
		slices.Reverse(out)

		return out, nil

	case string:
		r := []rune(x)
		slices.Reverse(r)

		return string(r), nil

	default:
		return nil, &EvalError{Kind: TypeError, Expected: "array or string", Got: KindOf(value).String()}
	}
}

// pipeSort orders an array of numbers or an array of strings.
func pipeSort(_ context.Context, value any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	arr, ok := value.([]any)
	if !ok {
		return nil, &EvalError{Kind: TypeError, Expected: "array", Got: KindOf(value).String()}
	}

	for _, e := range arr {
		if _, ok := compare(e, arr[0]); !ok {
			return nil, &EvalError{
				Kind:     TypeError,
				Expected: "array of numbers or strings",
				Got:      "array containing " + KindOf(e).String(),
			}
		}
	}

	out := slices.Clone(arr)
	slices.SortStableFunc(out, func(a, b any) int {
		c, _ := compare(a, b)

		return c
	})

	return out, nil
}

func pipeJSON(_ context.Context, value any, args []any) (any, error) {
	if err := arity(args, 0, 1); err != nil {
		return nil, err
	}

	if len(args) == 0 {
		var b strings.Builder
		writeJSON(&b, value)

		return b.String(), nil
	}

	indent, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(value, "", indent)
	if err != nil {
		return nil, ErrMarshal.Wrap(err)
	}

	return string(data), nil
}

func pipeYAML(_ context.Context, value any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(value)
	if err != nil {
		return nil, ErrMarshal.Wrap(err)
	}

	return strings.TrimSuffix(string(data), "\n"), nil
}

func pipeQuote(_ context.Context, value any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	return strconv.Quote(Stringify(value)), nil
}

// pipePathPrepend moves its arguments to the front of a PATH-style list
// input, dropping duplicates.
func pipePathPrepend(_ context.Context, value any, args []any) (any, error) {
	s, err := stringInput(value)
	if err != nil {
		return nil, err
	}

	items := make([]string, len(args))

	for i := range args {
		if items[i], err = stringArg(args, i); err != nil {
			return nil, err
		}
	}

	return mung.Make(
		mung.WithSubjectItems(s),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(items...),
	).String(), nil
}

func pipeAbs(_ context.Context, value any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	switch x := value.(type) {
	case int64:
		if x < 0 {
			return -x, nil
		}

		return x, nil

	case float64:
		return math.Abs(x), nil

	default:
		return nil, &EvalError{Kind: TypeError, Expected: "number", Got: KindOf(value).String()}
	}
}

// pipeRound rounds half away from zero to the given number of decimal
// places (default 0). Ints are returned unchanged.
func pipeRound(_ context.Context, value any, args []any) (any, error) {
	if err := arity(args, 0, 1); err != nil {
		return nil, err
	}

	var places int64

	if len(args) == 1 {
		var err error
		if places, err = intArg(args, 0); err != nil {
			return nil, err
		}
	}

	switch x := value.(type) {
	case int64:
		return x, nil

	case float64:
		if places == 0 {
			return math.Round(x), nil
		}

		p := math.Pow(10, float64(places))

		return math.Round(x*p) / p, nil

	default:
		return nil, &EvalError{Kind: TypeError, Expected: "number", Got: KindOf(value).String()}
	}
}

// funcRange returns [0, n) for range(n) and [a, b) for range(a, b).
func funcRange(_ context.Context, args []any) (any, error) {
	if err := arity(args, 1, 2); err != nil {
		return nil, err
	}

	var lo, hi int64

	n, err := intArg(args, 0)
	if err != nil {
		return nil, err
	}

	hi = n

	if len(args) == 2 {
		lo = n
		if hi, err = intArg(args, 1); err != nil {
			return nil, err
		}
	}

	if hi <= lo {
		return []any{}, nil
	}

	if uint64(hi-lo) > maxRangeLen {
		return nil, ErrRangeLimit.With(
			slog.Int64("from", lo),
			slog.Int64("to", hi),
			slog.Int("limit", maxRangeLen),
		)
	}

	out := make([]any, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, i)
	}

	return out, nil
}

func funcLen(_ context.Context, args []any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}

	m, ok := methods[KindOf(args[0])]["len"]
	if !ok {
		return nil, &EvalError{
			Kind:     TypeError,
			Expected: kindsWith("len"),
			Got:      KindOf(args[0]).String(),
		}
	}

	return m(args[0], nil)
}

// funcEnv returns the value of a process environment variable, or null when
// it is unset.
func funcEnv(_ context.Context, args []any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}

	name, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv(name); ok {
		return v, nil
	}

	return nil, nil
}

// extremum returns min (sign -1) or max (sign 1) over its arguments, or over
// the elements of a single array argument. It returns null when there are
// none.
func extremum(sign int) FuncFunc {
	return func(_ context.Context, args []any) (any, error) {
		if len(args) == 1 {
			if arr, ok := args[0].([]any); ok {
				args = arr
			}
		}

		if len(args) == 0 {
			return nil, nil
		}

		best := args[0]

		for _, v := range args {
			c, ok := compare(v, best)
			if !ok {
				return nil, &EvalError{
					Kind:     TypeError,
					Expected: "numbers or strings",
					Got:      KindOf(v).String(),
				}
			}

			if cmp.Compare(c, 0) == sign {
				best = v
			}
		}

		return best, nil
	}
}

func funcStr(_ context.Context, args []any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}

	return Stringify(args[0]), nil
}

// funcInt converts a number, bool or numeric string to an int, truncating
// floats toward zero.
func funcInt(_ context.Context, args []any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}

	switch x := args[0].(type) {
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	case bool:
		if x {
			return int64(1), nil
		}

		return int64(0), nil
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 0, 64); err == nil {
			return n, nil
		}

		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), nil
		}
	}

	return nil, &EvalError{Kind: TypeError, Expected: "number or numeric string", Got: describeArg(args[0])}
}

func funcFloat(_ context.Context, args []any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}

	switch x := args[0].(type) {
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
			return f, nil
		}
	}

	return nil, &EvalError{Kind: TypeError, Expected: "number or numeric string", Got: describeArg(args[0])}
}

func describeArg(v any) string {
	if s, ok := v.(string); ok {
		return "string " + strconv.Quote(s)
	}

	return KindOf(v).String()
}

// exprFunc evaluates an expr-lang expression. The environment is its second
// argument, or the variables of the scope the builtins were registered on.
type exprFunc struct {
	scope *Scope
}

func (f exprFunc) Invoke(_ context.Context, args []any) (any, error) {
	if err := arity(args, 1, 2); err != nil {
		return nil, err
	}

	source, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	var env map[string]any

	if len(args) == 2 {
		obj, ok := args[1].(map[string]any)
		if !ok {
			return nil, &EvalError{Kind: TypeError, Expected: "object argument 2", Got: KindOf(args[1]).String()}
		}

		env = obj
	} else {
		env = f.scope.Vars()
	}

	return EvalExpr(source, env)
}

// EvalExpr compiles and runs an expr-lang expression against env and
// returns the normalized result.
func EvalExpr(source string, env map[string]any) (any, error) {
	if env == nil {
		env = map[string]any{}
	}

	program, err := expr.Compile(source, expr.Env(env))
	if err != nil {
		return nil, ErrExprCompile.Wrap(err).
			With(slog.String("source", source))
	}

	out, err := expr.Run(program, env)
	if err != nil {
		return nil, ErrExprRun.Wrap(err).
			With(slog.String("source", source))
	}

	return ToValue(out), nil
}
