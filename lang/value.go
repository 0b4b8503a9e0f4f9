package lang

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a template value.
//
// Template values are plain Go values restricted to a small set of types:
//
//	KindNull    nil
//	KindBool    bool
//	KindInt     int64
//	KindFloat   float64
//	KindString  string
//	KindArray   []any
//	KindObject  map[string]any
//
// [ToValue] converts arbitrary host values into this representation.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
	KindInvalid
)

// String returns the kind's name as used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// IsNumber reports whether k is KindInt or KindFloat.
func (k Kind) IsNumber() bool { return k == KindInt || k == KindFloat }

// KindOf returns the kind of a normalized value.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case int64:
		return KindInt
	case float64:
		return KindFloat
	case string:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	default:
		return KindInvalid
	}
}

// ToValue converts a host value into a template value.
//
// Integers of every width become int64 (unsigned values above the int64 range
// become float64), float32 becomes float64, slices and arrays become []any
// ([]byte becomes a string), maps become map[string]any with keys formatted
// by [fmt.Sprint], and structs become map[string]any keyed by exported field
// name or the name given in a "json" struct tag. Values other than maps,
// slices and arrays that implement [error] or [fmt.Stringer] become their
// string form. Pointers and interfaces are otherwise followed; nil pointers
// become null. Remaining values are formatted with [fmt.Sprint].
func ToValue(v any) any {
	switch x := v.(type) {
	case nil, bool, int64, float64, string:
		return x
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = ToValue(e)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = ToValue(e)
		}

		return out
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}

		f, _ := x.Float64()

		return f
	}

	return reflectValue(reflect.ValueOf(v))
}

func reflectValue(rv reflect.Value) any {
	if !rv.IsValid() {
		return nil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}

	case reflect.Map, reflect.Slice, reflect.Array:
		return reflectContainer(rv)
	}

	if rv.CanInterface() {
		switch x := rv.Interface().(type) {
		case error:
			return x.Error()
		case fmt.Stringer:
			return x.String()
		}
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return ToValue(rv.Elem().Interface())

	case reflect.Bool:
		return rv.Bool()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return float64(u)
		}

		return int64(u)

	case reflect.Float32, reflect.Float64:
		return rv.Float()

	case reflect.String:
		return rv.String()

	case reflect.Struct:
		return structValue(rv)

	default:
		if rv.CanInterface() {
			return fmt.Sprint(rv.Interface())
		}

		return nil
	}
}

func reflectContainer(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}

		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)

			return string(b)
		}

		out := make([]any, rv.Len())
		for i := range out {
			out[i] = ToValue(rv.Index(i).Interface())
		}

		return out

	case reflect.Map:
		out := make(map[string]any, rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = ToValue(iter.Value().Interface())
		}

		return out
	}

	return nil
}

func structValue(rv reflect.Value) map[string]any {
	rt := rv.Type()
	out := make(map[string]any, rt.NumField())

	for i := range rt.NumField() {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}

		name := f.Name

		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}

			if tagName != "" {
				name = tagName
			}
		}

		out[name] = ToValue(rv.Field(i).Interface())
	}

	return out
}

// Truthy reports whether v counts as true in a condition.
// Null, false, zero, the empty string and empty arrays and objects are
// falsy; every other value is truthy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}

// Equal reports whether a and b are the same kind with the same content.
// Ints and floats compare numerically; arrays and objects compare deeply.
func Equal(a, b any) bool {
	ka, kb := KindOf(a), KindOf(b)

	if ka.IsNumber() && kb.IsNumber() {
		if ka == KindInt && kb == KindInt {
			return a.(int64) == b.(int64)
		}

		fa, _ := toFloat(a)
		fb, _ := toFloat(b)

		return fa == fb
	}

	if ka != kb {
		return false
	}

	switch x := a.(type) {
	case nil:
		return true
	case bool:
		return x == b.(bool)
	case string:
		return x == b.(string)
	case []any:
		y := b.([]any)

		return slices.EqualFunc(x, y, Equal)
	case map[string]any:
		y := b.(map[string]any)
		if len(x) != len(y) {
			return false
		}

		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}

		return true
	default:
		return false
	}
}

// compare orders two numbers or two strings. ok is false for any other pair.
func compare(a, b any) (cmp int, ok bool) {
	if sa, isStr := a.(string); isStr {
		sb, isStr := b.(string)
		if !isStr {
			return 0, false
		}

		return strings.Compare(sa, sb), true
	}

	if ia, isInt := a.(int64); isInt {
		if ib, isInt := b.(int64); isInt {
			switch {
			case ia < ib:
				return -1, true
			case ia > ib:
				return 1, true
			default:
				return 0, true
			}
		}
	}

	fa, okA := toFloat(a)
	fb, okB := toFloat(b)

	if !okA || !okB {
		return 0, false
	}

	switch {
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	default:
		return 0, true
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// toInt returns v as an int64 if it is an int or a float with no fractional
// part.
func toInt(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		if x == math.Trunc(x) && x >= math.MinInt64 && x < math.MaxInt64 {
			return int64(x), true
		}
	}

	return 0, false
}

// Stringify formats v for interpolation.
//
// Null renders as the empty string, bools as "true" or "false", numbers as
// their shortest decimal form, and strings verbatim. Arrays and objects
// render as compact JSON with object keys in sorted order.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatFloat(x)
	case string:
		return x
	case []any, map[string]any:
		var b strings.Builder
		writeJSON(&b, x)

		return b.String()
	default:
		return Stringify(ToValue(v))
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func writeJSON(b *strings.Builder, v any) {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(strconv.FormatBool(x))
	case int64:
		b.WriteString(strconv.FormatInt(x, 10))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			b.WriteString(strconv.Quote(formatFloat(x)))
		} else {
			b.WriteString(formatFloat(x))
		}
	case string:
		q, _ := json.Marshal(x)
		b.Write(q)
	case []any:
		b.WriteByte('[')

		for i, e := range x {
			if i > 0 {
				b.WriteByte(',')
			}

			writeJSON(b, e)
		}

		b.WriteByte(']')
	case map[string]any:
		b.WriteByte('{')

		for i, k := range sortedKeys(x) {
			if i > 0 {
				b.WriteByte(',')
			}

			q, _ := json.Marshal(k)
			b.Write(q)
			b.WriteByte(':')
			writeJSON(b, x[k])
		}

		b.WriteByte('}')
	default:
		writeJSON(b, ToValue(v))
	}
}
