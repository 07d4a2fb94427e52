// Package document models untyped JSON/YAML documents as an ordered tree.
//
// Mappings keep their keys in document order, which the rest of the tool
// relies on for deterministic endpoint and property ordering.
package document

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind discriminates the variants of a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Map
	Seq
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Map:
		return "object"
	case Seq:
		return "array"
	default:
		return "unknown"
	}
}

// Member is one key/value pair of a Map value.
type Member struct {
	Key   string
	Value *Value
}

// Value is a node of a parsed document. A nil *Value means "absent" and
// reports Kind Null.
type Value struct {
	kind    Kind
	boolean bool
	text    string // string contents, or the canonical JSON literal of a number
	members []Member
	index   map[string]int
	items   []*Value
}

// NullValue returns an explicit null.
func NullValue() *Value { return &Value{kind: Null} }

// BoolValue returns a boolean scalar.
func BoolValue(b bool) *Value { return &Value{kind: Bool, boolean: b} }

// StringValue returns a string scalar.
func StringValue(s string) *Value { return &Value{kind: String, text: s} }

// Int returns an integer number.
func Int(i int64) *Value { return &Value{kind: Number, text: strconv.FormatInt(i, 10)} }

// Float returns a floating point number. Non-finite values become null.
func Float(f float64) *Value {
	lit, err := json.Marshal(f)
	if err != nil {
		return NullValue()
	}
	return &Value{kind: Number, text: string(lit)}
}

// NewMap returns an empty mapping.
func NewMap() *Value { return &Value{kind: Map, index: map[string]int{}} }

// NewSeq returns a sequence holding items.
func NewSeq(items ...*Value) *Value {
	return &Value{kind: Seq, items: append([]*Value{}, items...)}
}

// Kind returns the variant of v.
func (v *Value) Kind() Kind {
	if v == nil {
		return Null
	}
	return v.kind
}

// IsNull reports whether v is absent or an explicit null.
func (v *Value) IsNull() bool { return v.Kind() == Null }

// Str returns the string payload.
func (v *Value) Str() (string, bool) {
	if v.Kind() != String {
		return "", false
	}
	return v.text, true
}

// Scalar renders a non-container value as text: strings verbatim, numbers as
// their JSON literal, booleans as true/false. Containers and null return false.
func (v *Value) Scalar() (string, bool) {
	switch v.Kind() {
	case String, Number:
		return v.text, true
	case Bool:
		return strconv.FormatBool(v.boolean), true
	}
	return "", false
}

// Len returns the number of members or items.
func (v *Value) Len() int {
	switch v.Kind() {
	case Map:
		return len(v.members)
	case Seq:
		return len(v.items)
	}
	return 0
}

// Get returns the member stored under key, or nil.
func (v *Value) Get(key string) *Value {
	if v.Kind() != Map {
		return nil
	}
	if i, ok := v.index[key]; ok {
		return v.members[i].Value
	}
	return nil
}

// Has reports whether the mapping defines key, even with a null value.
func (v *Value) Has(key string) bool {
	if v.Kind() != Map {
		return false
	}
	_, ok := v.index[key]
	return ok
}

// Set stores val under key. An existing key keeps its position.
func (v *Value) Set(key string, val *Value) {
	if v.kind != Map {
		panic("document: Set on " + v.kind.String())
	}
	if val == nil {
		val = NullValue()
	}
	if i, ok := v.index[key]; ok {
		v.members[i].Value = val
		return
	}
	v.index[key] = len(v.members)
	v.members = append(v.members, Member{Key: key, Value: val})
}

// Members returns the mapping's pairs in document order. Callers must not modify the slice.
func (v *Value) Members() []Member {
	if v.Kind() != Map {
		return nil
	}
	return v.members
}

// Keys returns the mapping's keys in document order.
func (v *Value) Keys() []string {
	keys := make([]string, 0, v.Len())
	for _, m := range v.Members() {
		keys = append(keys, m.Key)
	}
	return keys
}

// Items returns the sequence elements. Callers must not modify the slice.
func (v *Value) Items() []*Value {
	if v.Kind() != Seq {
		return nil
	}
	return v.items
}

// Append adds an element to a sequence.
func (v *Value) Append(item *Value) {
	if v.kind != Seq {
		panic("document: Append on " + v.kind.String())
	}
	if item == nil {
		item = NullValue()
	}
	v.items = append(v.items, item)
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	switch v.kind {
	case Map:
		out := NewMap()
		for _, m := range v.members {
			out.Set(m.Key, m.Value.Clone())
		}
		return out
	case Seq:
		out := &Value{kind: Seq, items: make([]*Value, len(v.items))}
		for i, item := range v.items {
			out.items[i] = item.Clone()
		}
		return out
	default:
		c := *v
		return &c
	}
}

// MarshalJSON encodes v compactly, keeping mapping order.
func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Indent encodes v as JSON with a two-space indent.
func (v *Value) Indent() (string, error) {
	raw, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return "", err
	}
	return out.String(), nil
}

func (v *Value) encode(buf *bytes.Buffer) error {
	switch v.Kind() {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.boolean))
	case Number:
		buf.WriteString(v.text)
	case String:
		return encodeString(buf, v.text)
	case Map:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case Seq:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
