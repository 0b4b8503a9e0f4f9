package lang

import (
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// method is a function dispatched on the kind of its receiver.
type method func(recv any, args []any) (any, error)

var methods = map[Kind]map[string]method{
	KindString: {
		"len":        strLen,
		"upper":      strUpper,
		"lower":      strLower,
		"trim":       strTrim,
		"contains":   strContains,
		"startsWith": strStartsWith,
		"endsWith":   strEndsWith,
		"split":      strSplit,
		"replace":    strReplace,
	},
	KindArray: {
		"len":      arrLen,
		"join":     arrJoin,
		"contains": arrContains,
		"first":    arrFirst,
		"last":     arrLast,
		"slice":    arrSlice,
	},
	KindObject: {
		"len":    objLen,
		"keys":   objKeys,
		"values": objValues,
		"has":    objHas,
	},
}

// callMethod invokes the method name of recv's kind.
func callMethod(recv any, name string, args []any, span Span) (any, error) {
	m, ok := methods[KindOf(recv)][name]
	if !ok {
		return nil, undefinedError(NotCallable, KindOf(recv).String()+"."+name, span)
	}

	v, err := m(recv, args)
	if err != nil {
		return nil, callError(name, err, span)
	}

	return v, nil
}

// MethodNames returns the sorted method names available on values of kind k.
func MethodNames(k Kind) []string { return sortedKeys(methods[k]) }

// arity fails unless lo <= len(args) <= hi.
func arity(args []any, lo, hi int) error {
	if n := len(args); n >= lo && n <= hi {
		return nil
	}

	want := strconv.Itoa(lo)
	if hi != lo {
		want += " to " + strconv.Itoa(hi)
	}

	return &EvalError{
		Kind:     TypeError,
		Expected: want + " arguments",
		Got:      strconv.Itoa(len(args)) + " arguments",
	}
}

func stringArg(args []any, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", &EvalError{
			Kind:     TypeError,
			Expected: "string argument " + strconv.Itoa(i+1),
			Got:      KindOf(args[i]).String(),
		}
	}

	return s, nil
}

func intArg(args []any, i int) (int64, error) {
	n, ok := toInt(args[i])
	if !ok {
		return 0, &EvalError{
			Kind:     TypeError,
			Expected: "int argument " + strconv.Itoa(i+1),
			Got:      KindOf(args[i]).String(),
		}
	}

	return n, nil
}

func strLen(recv any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	return int64(utf8.RuneCountInString(recv.(string))), nil
}

func strUpper(recv any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	return strings.ToUpper(recv.(string)), nil
}

func strLower(recv any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	return strings.ToLower(recv.(string)), nil
}

func strTrim(recv any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	return strings.TrimSpace(recv.(string)), nil
}

// strPredicate adapts a two-string predicate to a one-argument method.
func strPredicate(f func(s, arg string) bool) method {
	return func(recv any, args []any) (any, error) {
		if err := arity(args, 1, 1); err != nil {
			return nil, err
		}

		arg, err := stringArg(args, 0)
		if err != nil {
			return nil, err
		}

		return f(recv.(string), arg), nil
	}
}

var (
	strContains   = strPredicate(strings.Contains)
	strStartsWith = strPredicate(strings.HasPrefix)
	strEndsWith   = strPredicate(strings.HasSuffix)
)

func strSplit(recv any, args []any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}

	sep, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(recv.(string), sep)

	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}

	return out, nil
}

func strReplace(recv any, args []any) (any, error) {
	if err := arity(args, 2, 2); err != nil {
		return nil, err
	}

	old, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	repl, err := stringArg(args, 1)
	if err != nil {
		return nil, err
	}

	return strings.ReplaceAll(recv.(string), old, repl), nil
}

func arrLen(recv any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	return int64(len(recv.([]any))), nil
}

func arrJoin(recv any, args []any) (any, error) {
	if err := arity(args, 0, 1); err != nil {
		return nil, err
	}

	sep := ""

	if len(args) == 1 {
		var err error
		if sep, err = stringArg(args, 0); err != nil {
			return nil, err
		}
	}

	arr := recv.([]any)

	parts := make([]string, len(arr))
	for i, e := range arr {
		parts[i] = Stringify(e)
	}

	return strings.Join(parts, sep), nil
}

func arrContains(recv any, args []any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}

	return slices.ContainsFunc(recv.([]any), func(e any) bool {
		return Equal(e, args[0])
	}), nil
}

func arrFirst(recv any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	if arr := recv.([]any); len(arr) > 0 {
		return arr[0], nil
	}

	return nil, nil
}

func arrLast(recv any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	if arr := recv.([]any); len(arr) > 0 {
		return arr[len(arr)-1], nil
	}

	return nil, nil
}

// arrSlice returns elements [start, end); end defaults to the length.
func arrSlice(recv any, args []any) (any, error) {
	if err := arity(args, 1, 2); err != nil {
		return nil, err
	}

	arr := recv.([]any)

	start, err := intArg(args, 0)
	if err != nil {
		return nil, err
	}

	end := int64(len(arr))

	if len(args) == 2 {
		if end, err = intArg(args, 1); err != nil {
			return nil, err
		}
	}

	if start < 0 || start > int64(len(arr)) {
		return nil, &EvalError{Kind: IndexOutOfBounds, Index: int(start), Len: len(arr)}
	}

	if end < start || end > int64(len(arr)) {
		return nil, &EvalError{Kind: IndexOutOfBounds, Index: int(end), Len: len(arr)}
	}

	return slices.Clone(arr[start:end]), nil
}

func objLen(recv any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	return int64(len(recv.(map[string]any))), nil
}

func objKeys(recv any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	keys := sortedKeys(recv.(map[string]any))

	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = k
	}

	return out, nil
}

func objValues(recv any, args []any) (any, error) {
	if err := arity(args, 0, 0); err != nil {
		return nil, err
	}

	obj := recv.(map[string]any)
	keys := sortedKeys(obj)

	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = obj[k]
	}

	return out, nil
}

func objHas(recv any, args []any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}

	key, err := stringArg(args, 0)
	if err != nil {
		return nil, err
	}

	_, ok := recv.(map[string]any)[key]

	return ok, nil
}
