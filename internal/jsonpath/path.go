package jsonpath

import (
	"math"
	"strconv"
	"strings"
)

// Segments flattens a path expression into ordered lookup keys.
//
// A leading "$", "$." or "." is dropped, the rest is split on dots and every
// dot-part is split again on brackets, so "$.data[0].usage" becomes
// ["data", "0", "usage"]. Empty pieces are discarded.
func Segments(path string) []string {
	cleaned := path
	switch {
	case strings.HasPrefix(cleaned, "$."):
		cleaned = cleaned[2:]
	case strings.HasPrefix(cleaned, "."):
		cleaned = cleaned[1:]
	}
	cleaned = strings.TrimPrefix(cleaned, "$")

	var segments []string
	for _, part := range strings.Split(cleaned, ".") {
		segments = append(segments, strings.FieldsFunc(part, func(r rune) bool {
			return r == '[' || r == ']'
		})...)
	}
	return segments
}

// Resolve walks path through v. The boolean is false when the path is empty
// or any step is structurally absent: a missing key, an index out of range,
// a non-numeric segment on an array, or a step through null or a scalar.
// An explicit JSON null at the end of the path is returned as found.
func Resolve(v Value, path string) (Value, bool) {
	if path == "" {
		return Value{}, false
	}

	current := v
	for _, segment := range Segments(path) {
		switch current.kind {
		case Null:
			return Value{}, false
		case Array:
			idx, ok := arrayIndex(segment)
			if !ok {
				return Value{}, false
			}
			next, ok := current.Index(idx)
			if !ok {
				return Value{}, false
			}
			current = next
		case Object:
			next, ok := current.Field(segment)
			if !ok {
				return Value{}, false
			}
			current = next
		default:
			return Value{}, false
		}
	}
	return current, true
}

// Lookup is Resolve with null treated as absent, which is the rule every
// mapping fallback uses.
func Lookup(v Value, path string) (Value, bool) {
	found, ok := Resolve(v, path)
	if !ok || found.IsNull() {
		return Value{}, false
	}
	return found, true
}

// arrayIndex applies numeric-string rules to a segment: surrounding spaces
// are ignored and only whole, non-negative numbers address an element.
func arrayIndex(segment string) (int, bool) {
	n := ToNumber(StringValue(segment))
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || n != math.Trunc(n) {
		return 0, false
	}
	if n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

// ToNumber coerces a JSON value to a number. Strings are parsed as decimal
// (or 0x/0o/0b integer) literals, blank strings and null give 0, booleans
// give 0 or 1, single-element arrays coerce their element, and everything
// else is NaN.
func ToNumber(v Value) float64 {
	switch v.kind {
	case Null:
		return 0
	case Bool:
		if v.b {
			return 1
		}
		return 0
	case Number:
		return v.num
	case String:
		return parseNumeric(v.str)
	case Array:
		switch len(v.items) {
		case 0:
			return 0
		case 1:
			if v.items[0].kind == Null {
				return 0
			}
			return parseNumeric(ToString(v.items[0]))
		}
	}
	return math.NaN()
}

func parseNumeric(raw string) float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}

	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}

	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil || strings.Contains(s, "_") {
				return math.NaN()
			}
			return float64(n)
		}
	}

	// strconv accepts spellings ("inf", "nan", "1_0", hex floats) that are
	// not numeric literals here.
	for _, r := range s {
		if !strings.ContainsRune("0123456789+-.eE", r) {
			return math.NaN()
		}
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

// ToString renders a value as text. Strings are returned as-is, numbers in
// their shortest form, arrays and objects as compact JSON.
func ToString(v Value) string {
	switch v.kind {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.b)
	case Number:
		return FormatNumber(v.num)
	case String:
		return v.str
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(data)
}

// FormatNumber prints n the shortest way that round-trips: plain notation
// between 1e-6 and 1e21, exponent notation outside it.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == 0:
		return "0"
	}

	abs := math.Abs(n)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}

	s := strconv.FormatFloat(n, 'e', -1, 64)
	// Go writes e+06 / e-07; trim the exponent's leading zeros.
	mantissa, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits
}
