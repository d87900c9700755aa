package frontmatter

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind tags the dynamic type held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindTime
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "null"
	}
}

// Value is an immutable tagged tree holding author-defined metadata.
//
// The zero Value is null. Accessors never panic: asking for the wrong kind
// yields the zero result and false.
type Value struct {
	kind   Kind
	str    string
	num    float64
	isInt  bool
	b      bool
	t      time.Time
	seq    []Value
	keys   []string
	fields map[string]Value
}

// Pair is one key of a mapping under construction.
type Pair struct {
	Key   string
	Value Value
}

func Null() Value            { return Value{} }
func String(s string) Value  { return Value{kind: KindString, str: s} }
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Int(i int64) Value      { return Value{kind: KindNumber, num: float64(i), isInt: true} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }
func Sequence(vs ...Value) Value {
	return Value{kind: KindSequence, seq: append([]Value(nil), vs...)}
}

// Map builds a mapping preserving the order of pairs. A repeated key keeps
// its first position and its last value.
func Map(pairs ...Pair) Value {
	v := Value{kind: KindMapping, fields: make(map[string]Value, len(pairs))}
	for _, p := range pairs {
		if _, seen := v.fields[p.Key]; !seen {
			v.keys = append(v.keys, p.Key)
		}
		v.fields[p.Key] = p.Value
	}
	return v
}

// EmptyMap returns a mapping with no keys.
func EmptyMap() Value { return Map() }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) IsMapping() bool { return v.kind == KindMapping }

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

// AsInt returns integral numbers only.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber || v.num != math.Trunc(v.num) {
		return 0, false
	}
	return int64(v.num), true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsTime returns timestamps, and strings in one of the accepted date layouts.
func (v Value) AsTime() (time.Time, bool) {
	switch v.kind {
	case KindTime:
		return v.t, true
	case KindString:
		return ParseTime(v.str)
	default:
		return time.Time{}, false
	}
}

func (v Value) AsSeq() ([]Value, bool) {
	if v.kind != KindSequence {
		return nil, false
	}
	return append([]Value(nil), v.seq...), true
}

// Keys returns mapping keys in source order.
func (v Value) Keys() []string {
	if v.kind != KindMapping {
		return nil
	}
	return append([]string(nil), v.keys...)
}

// Len reports the number of sequence items or mapping keys.
func (v Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seq)
	case KindMapping:
		return len(v.keys)
	default:
		return 0
	}
}

// Get returns a mapping member.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMapping {
		return Value{}, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// Lookup walks a dotted path of mapping keys and sequence indexes ("a.b.0").
func (v Value) Lookup(path string) (Value, bool) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		switch cur.kind {
		case KindMapping:
			next, ok := cur.fields[part]
			if !ok {
				return Value{}, false
			}
			cur = next
		case KindSequence:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(cur.seq) {
				return Value{}, false
			}
			cur = cur.seq[i]
		default:
			return Value{}, false
		}
	}
	return cur, true
}

// StringOr is a convenience for optional string fields.
func (v Value) StringOr(key, fallback string) string {
	if f, ok := v.Get(key); ok {
		if s, ok := f.AsString(); ok {
			return s
		}
	}
	return fallback
}

// Strings returns a field as a list of strings. A scalar string is split on
// whitespace, which is how category and tag lists are commonly written.
func (v Value) Strings(key string) []string {
	f, ok := v.Get(key)
	if !ok {
		return nil
	}
	if s, ok := f.AsString(); ok {
		return strings.Fields(s)
	}
	items, ok := f.AsSeq()
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		switch it.kind {
		case KindString:
			out = append(out, it.str)
		case KindNumber, KindBool:
			out = append(out, it.Text())
		}
	}
	return out
}

// With returns a copy of the mapping with key set to val. Non-mappings are
// treated as empty mappings.
func (v Value) With(key string, val Value) Value {
	out := Value{kind: KindMapping, fields: make(map[string]Value, len(v.keys)+1)}
	if v.kind == KindMapping {
		out.keys = append(out.keys, v.keys...)
		for k, f := range v.fields {
			out.fields[k] = f
		}
	}
	if _, ok := out.fields[key]; !ok {
		out.keys = append(out.keys, key)
	}
	out.fields[key] = val
	return out
}

// Text renders scalars the way templates print them.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.isInt || v.num == math.Trunc(v.num) && math.Abs(v.num) < 1e15 {
			return strconv.FormatInt(int64(v.num), 10)
		}
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		return v.t.Format(time.RFC3339)
	default:
		return ""
	}
}

// Interface projects the tree onto plain Go values for template evaluation.
// Null mapping members are dropped so that templates see them as missing.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		if v.isInt {
			return int64(v.num)
		}
		return v.num
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, it := range v.seq {
			out[i] = it.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			f := v.fields[k]
			if f.kind == KindNull {
				continue
			}
			out[k] = f.Interface()
		}
		return out
	default:
		return nil
	}
}

// Merge deep-merges two values. Mappings merge key by key with over taking
// precedence; any other non-null over replaces base.
func Merge(base, over Value) Value {
	if over.kind == KindNull {
		return base
	}
	if base.kind != KindMapping || over.kind != KindMapping {
		return over
	}
	out := base
	for _, k := range over.keys {
		ov := over.fields[k]
		if bv, ok := base.fields[k]; ok {
			ov = Merge(bv, ov)
		}
		out = out.With(k, ov)
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses the date formats accepted in front matter. Values without
// a zone are interpreted in time.Local.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
