// Package value implements Thorn's runtime value model (spec §3's tagged
// sum and spec §4.3's operator semantics), shared by the tree evaluator
// and the virtual machine. Grounded on the teacher's vmregister/value.go
// object taxonomy (StringObj/ArrayObj/MapObj/FunctionObj/ClosureObj), but
// traded down from its NaN-boxed uint64 encoding to a plain Go interface:
// an interpreter whose source text is never compiled has no way to verify
// a hand-written bit-packing scheme, so correctness wins over the
// teacher's packed representation here. The variant set and its
// invariants are unchanged.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which of the ten Value variants a value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindDict
	KindFunction
	KindClass
	KindInstance
	KindResult
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "Array"
	case KindDict:
		return "Dict"
	case KindFunction:
		return "Function"
	case KindClass:
		return "Class"
	case KindInstance:
		return "Instance"
	case KindResult:
		return "Result"
	default:
		return "unknown"
	}
}

// Value is implemented by every runtime variant. Identity-style methods
// (Kind, String) are cheap enough to put on the interface directly;
// arithmetic and comparison live in free functions below since they need
// to inspect both operands.
type Value interface {
	Kind() Kind
	String() string
}

// Null is the unit value; the zero Value of every uninitialized binding.
type Null struct{}

func (Null) Kind() Kind     { return KindNull }
func (Null) String() string { return "null" }

type Bool bool

func (Bool) Kind() Kind        { return KindBool }
func (b Bool) String() string  { return strconv.FormatBool(bool(b)) }

// Number is always an IEEE-754 double (spec §3: "all numerics are
// IEEE-754 doubles"). Equality is bitwise-NaN-sensitive: NaN != NaN.
type Number float64

func (Number) Kind() Kind { return KindNumber }

func (n Number) String() string {
	f := float64(n)
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if math.IsNaN(f) {
		return "NaN"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// String is immutable UTF-8 text; concatenation always allocates a new
// value (spec §3).
type String string

func (String) Kind() Kind       { return KindString }
func (s String) String() string { return string(s) }

// List is a mutable, reference-shared sequence (spec §3: "List and Dict
// are reference-shared; assignment copies the reference"). The pointer
// receiver is the sharing mechanism: two Values both holding the same
// *List observe each other's mutations.
type List struct {
	Elements []Value
}

func NewList(elems []Value) *List { return &List{Elements: elems} }

func (*List) Kind() Kind { return KindList }

func (l *List) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, e := range l.Elements {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(displayString(e))
	}
	sb.WriteByte(']')
	return sb.String()
}

// Dict is a mutable, insertion-ordered map keyed by structural equality
// (spec §3). Go maps require comparable keys, which Value is not (List
// and Dict are not comparable), so entries are kept in a slice and
// indexed by a computed hash string; the key Value itself is retained so
// keys()/iteration return the original key, not its hash.
type Dict struct {
	order   []string
	entries map[string]*dictEntry
}

type dictEntry struct {
	key Value
	val Value
}

func NewDict() *Dict {
	return &Dict{entries: make(map[string]*dictEntry)}
}

func (*Dict) Kind() Kind { return KindDict }

func (d *Dict) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, h := range d.order {
		if i > 0 {
			sb.WriteString(", ")
		}
		e := d.entries[h]
		fmt.Fprintf(&sb, "%s: %s", displayString(e.key), displayString(e.val))
	}
	sb.WriteByte('}')
	return sb.String()
}

// Set installs key->val, preserving the first-insertion position on
// overwrite (spec §3: "insertion order preserved for keys()/values()").
func (d *Dict) Set(key, val Value) {
	h := hashKey(key)
	if e, ok := d.entries[h]; ok {
		e.val = val
		return
	}
	d.order = append(d.order, h)
	d.entries[h] = &dictEntry{key: key, val: val}
}

// Get returns the bound value and whether key is present; a missing key
// is the caller's cue to substitute Null (spec §4.3: "missing key reads
// as Null").
func (d *Dict) Get(key Value) (Value, bool) {
	e, ok := d.entries[hashKey(key)]
	if !ok {
		return Null{}, false
	}
	return e.val, true
}

func (d *Dict) Has(key Value) bool {
	_, ok := d.entries[hashKey(key)]
	return ok
}

func (d *Dict) Remove(key Value) bool {
	h := hashKey(key)
	if _, ok := d.entries[h]; !ok {
		return false
	}
	delete(d.entries, h)
	for i, k := range d.order {
		if k == h {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

func (d *Dict) Size() int { return len(d.order) }

// Keys returns keys in insertion order (spec §4.3 / S5).
func (d *Dict) Keys() []Value {
	out := make([]Value, 0, len(d.order))
	for _, h := range d.order {
		out = append(out, d.entries[h].key)
	}
	return out
}

func (d *Dict) Values() []Value {
	out := make([]Value, 0, len(d.order))
	for _, h := range d.order {
		out = append(out, d.entries[h].val)
	}
	return out
}

// hashKey produces a stable string encoding for structural dict-key
// equality. Numbers and strings get an unambiguous tagged prefix so "1"
// (string) and 1 (number) never collide.
func hashKey(v Value) string {
	switch k := v.(type) {
	case Null:
		return "n:"
	case Bool:
		if k {
			return "b:1"
		}
		return "b:0"
	case Number:
		return "f:" + strconv.FormatFloat(float64(k), 'x', -1, 64)
	case String:
		return "s:" + string(k)
	case *List:
		var sb strings.Builder
		sb.WriteString("l:[")
		for _, e := range k.Elements {
			sb.WriteString(hashKey(e))
			sb.WriteByte(',')
		}
		sb.WriteByte(']')
		return sb.String()
	case *Dict:
		var sb strings.Builder
		sb.WriteString("d:{")
		for _, h := range k.order {
			e := k.entries[h]
			sb.WriteString(hashKey(e.key))
			sb.WriteByte('=')
			sb.WriteString(hashKey(e.val))
			sb.WriteByte(',')
		}
		sb.WriteByte('}')
		return sb.String()
	default:
		return fmt.Sprintf("r:%p", v)
	}
}

// Result is the first-class Ok/Error sum (spec §9: "represent Result as a
// dedicated variant of Value rather than shoehorning it into an instance
// of a stdlib class").
type Result struct {
	Payload Value
	IsError bool
}

func Ok(v Value) *Result    { return &Result{Payload: v, IsError: false} }
func ErrorVal(v Value) *Result { return &Result{Payload: v, IsError: true} }

func (*Result) Kind() Kind { return KindResult }

func (r *Result) String() string {
	if r.IsError {
		return fmt.Sprintf("Error(%s)", displayString(r.Payload))
	}
	return fmt.Sprintf("Ok(%s)", displayString(r.Payload))
}

func (r *Result) IsOk() bool { return !r.IsError }

func (r *Result) UnwrapOr(def Value) Value {
	if r.IsError {
		return def
	}
	return r.Payload
}

// displayString renders a value the way it appears nested inside a list
// or dict's String(): strings are quoted there but not at the top level
// (matching common scripting-language repr conventions).
func displayString(v Value) string {
	if s, ok := v.(String); ok {
		return strconv.Quote(string(s))
	}
	return v.String()
}

// Truthy implements spec §4.3: "null and false falsey; everything else
// truthy including 0 and ''".
func Truthy(v Value) bool {
	switch t := v.(type) {
	case Null:
		return false
	case Bool:
		return bool(t)
	default:
		return true
	}
}

// Equals implements spec §4.3: structural equality for numbers, bools,
// strings, lists, dicts, results; reference equality for classes,
// instances, and function values. Number equality is bitwise-NaN-
// sensitive: NaN != NaN, matching IEEE-754 (spec §3 invariants).
func Equals(a, b Value) bool {
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		return ok && float64(x) == float64(y)
	case String:
		y, ok := b.(String)
		return ok && x == y
	case *List:
		y, ok := b.(*List)
		if !ok || len(x.Elements) != len(y.Elements) {
			return false
		}
		for i := range x.Elements {
			if !Equals(x.Elements[i], y.Elements[i]) {
				return false
			}
		}
		return true
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Size() != y.Size() {
			return false
		}
		for _, h := range x.order {
			e := x.entries[h]
			yv, present := y.entries[h]
			if !present || !Equals(e.val, yv.val) {
				return false
			}
		}
		return true
	case *Result:
		y, ok := b.(*Result)
		return ok && x.IsError == y.IsError && Equals(x.Payload, y.Payload)
	default:
		return a == b // reference equality for Function/Class/Instance
	}
}

// LessThan implements ordered comparison; only defined for two numbers or
// two strings (lexicographic). Callers translate the bool-false-ok case
// into a TypeError at the call site, where source position is available.
func LessThan(a, b Value) (bool, bool) {
	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		if !ok {
			return false, false
		}
		return float64(x) < float64(y), true
	case String:
		y, ok := b.(String)
		if !ok {
			return false, false
		}
		return string(x) < string(y), true
	default:
		return false, false
	}
}

// NormalizeIndex resolves a list/string index per spec §4.3: negative
// indices count from the end. ok is false when the resolved index is out
// of [0, length).
func NormalizeIndex(idx int, length int) (int, bool) {
	if idx < 0 {
		idx += length
	}
	if idx < 0 || idx >= length {
		return 0, false
	}
	return idx, true
}

// NormalizeSlice resolves a[start:end] per spec §4.3: either bound
// optional, negative indices count from the end, start defaults to 0 and
// end to length; the result is always clamped into [0, length] with
// start <= end.
func NormalizeSlice(start, end *int, length int) (int, int) {
	s, e := 0, length
	if start != nil {
		s = *start
		if s < 0 {
			s += length
		}
		if s < 0 {
			s = 0
		}
		if s > length {
			s = length
		}
	}
	if end != nil {
		e = *end
		if e < 0 {
			e += length
		}
		if e < 0 {
			e = 0
		}
		if e > length {
			e = length
		}
	}
	if e < s {
		e = s
	}
	return s, e
}
