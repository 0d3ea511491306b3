// Package jsonpath resolves compact dot/bracket path expressions against
// decoded JSON documents.
package jsonpath

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Kind identifies which variant a Value holds
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
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
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "unknown"
}

// Value is a decoded JSON value. Only the field matching Kind is meaningful.
// Object keys keep document order so rendering is stable.
type Value struct {
	kind   Kind
	b      bool
	num    float64
	str    string
	items  []Value
	keys   []string
	fields map[string]Value
}

func NullValue() Value { return Value{kind: Null} }
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }
func NumberValue(n float64) Value { return Value{kind: Number, num: n} }
func StringValue(s string) Value { return Value{kind: String, str: s} }
func ArrayValue(items ...Value) Value {
	return Value{kind: Array, items: items}
}

// ObjectValue builds an object from a map; keys are sorted.
func ObjectValue(fields map[string]Value) Value {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return Value{kind: Object, keys: keys, fields: fields}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == Null }
func (v Value) Bool() bool { return v.b }
func (v Value) Number() float64 { return v.num }
func (v Value) Str() string { return v.str }
func (v Value) Len() int { return len(v.items) }
func (v Value) Items() []Value { return v.items }
func (v Value) Keys() []string { return v.keys }

// Index returns the array element at i
func (v Value) Index(i int) (Value, bool) {
	if v.kind != Array || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Field returns the object member named key
func (v Value) Field(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// Interface converts the value to plain Go types: nil, bool, float64,
// string, []interface{} or map[string]interface{}.
func (v Value) Interface() interface{} {
	switch v.kind {
	case Bool:
		return v.b
	case Number:
		return v.num
	case String:
		return v.str
	case Array:
		out := make([]interface{}, len(v.items))
		for i, item := range v.items {
			out[i] = item.Interface()
		}
		return out
	case Object:
		out := make(map[string]interface{}, len(v.fields))
		for k, f := range v.fields {
			out[k] = f.Interface()
		}
		return out
	}
	return nil
}

// MarshalJSON writes the value back out, keeping object key order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Number:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			buf.WriteString("null")
			break
		}
		buf.WriteString(FormatNumber(v.num))
	case String:
		data, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(data)
	case Array:
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
	case Object:
		buf.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := v.fields[k].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}

// Parse decodes a complete JSON document. Trailing data after the first
// value is an error.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			return Value{}, errors.New("unexpected data after top-level value")
		}
		return Value{}, err
	}
	return v, nil
}

// ParseString is Parse for string input
func ParseString(s string) (Value, error) {
	return Parse([]byte(s))
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		// out-of-range literals such as 1e400 become ±Inf
		n, err := strconv.ParseFloat(string(t), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return Value{}, errors.Wrapf(err, "invalid number %q", t)
		}
		return NumberValue(n), nil
	case string:
		return StringValue(t), nil
	case json.Delim:
		switch t {
		case '[':
			items := []Value{}
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ArrayValue(items...), nil
		case '{':
			obj := Value{kind: Object, fields: make(map[string]Value)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, errors.Newf("invalid object key %v", keyTok)
				}
				member, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				// Duplicate keys: last one wins, first position kept.
				if _, seen := obj.fields[key]; !seen {
					obj.keys = append(obj.keys, key)
				}
				obj.fields[key] = member
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return obj, nil
		}
	}
	return Value{}, errors.Newf("unexpected token %v", tok)
}
