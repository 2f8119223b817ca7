// Package eval implements the SIGMOS expression evaluator: a pure
// function of an AST expression and an immutable context, delegating
// plugin calls to pkg/plugin.
package eval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind tags the Value sum type.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is the single tagged variant every expression evaluates to.
type Value struct {
	kind   Kind
	b      bool
	n      float64
	s      string
	arr    []Value
	object *OrderedMap
}

func Null() Value           { return Value{kind: KindNull} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Array(vs []Value) Value { return Value{kind: KindArray, arr: vs} }
func Object(m *OrderedMap) Value { return Value{kind: KindObject, object: m} }

func (v Value) Kind() Kind        { return v.kind }
func (v Value) AsBool() bool      { return v.b }
func (v Value) AsNumber() float64 { return v.n }
func (v Value) AsString() string  { return v.s }
func (v Value) AsArray() []Value  { return v.arr }
func (v Value) AsObject() *OrderedMap { return v.object }

func (v Value) IsNull() bool { return v.kind == KindNull }

// OrderedMap is an insertion-ordered string→Value map, used for the
// Object value variant so field iteration order (e.g. for template
// pretty-printing) is deterministic.
type OrderedMap struct {
	keys   []string
	values map[string]Value
}

func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]Value)}
}

func (m *OrderedMap) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

func (m *OrderedMap) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap) Keys() []string { return m.keys }

func (m *OrderedMap) Len() int { return len(m.keys) }

// SortedKeys returns the keys in alphabetical order, independent of
// insertion order.
func (m *OrderedMap) SortedKeys() []string {
	keys := append([]string(nil), m.keys...)
	sort.Strings(keys)
	return keys
}

// Truthy implements the coercion rule: non-null, non-zero numbers,
// non-empty strings, non-empty arrays/objects, and true are truthy;
// everything else is falsy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	case KindString:
		return v.s != ""
	case KindArray:
		return len(v.arr) > 0
	case KindObject:
		return v.object != nil && v.object.Len() > 0
	default:
		return false
	}
}

// Equal implements the `==`/`!=` rule: defined for any two values of
// the same variant, false across variants.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindString:
		return v.s == other.s
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if v.object.Len() != other.object.Len() {
			return false
		}
		for _, k := range v.object.Keys() {
			a, _ := v.object.Get(k)
			b, ok := other.object.Get(k)
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Stringify implements the stringification rule, reused by both
// string templates and the `+` concatenation coercion.
func Stringify(v Value) string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v.n)
	case KindString:
		return v.s
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = prettyValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		return prettyValue(v)
	default:
		return ""
	}
}

// prettyValue renders a deterministic JSON-like form for nested
// array/object stringification.
func prettyValue(v Value) string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return Stringify(v)
	case KindNumber:
		return formatNumber(v.n)
	case KindString:
		return strconv.Quote(v.s)
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = prettyValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindObject:
		parts := make([]string, 0, v.object.Len())
		for _, k := range v.object.Keys() {
			val, _ := v.object.Get(k)
			parts = append(parts, fmt.Sprintf("%s: %s", strconv.Quote(k), prettyValue(val)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

// formatNumber renders the shortest round-trippable decimal for a
// float64, without a trailing ".0" for integral values.
func formatNumber(n float64) string {
	if n == float64(int64(n)) && !isNegZero(n) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

func isNegZero(n float64) bool {
	return n == 0 && strconv.FormatFloat(n, 'g', -1, 64) == "-0"
}
