package interp

import (
	"math"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Coercions
// ---------------------------------------------------------------------------

// ToBoolean converts any value to a Boolean. Only undefined, null, false,
// ±0, NaN and the empty string are falsy.
func ToBoolean(v Value) Boolean {
	switch x := v.(type) {
	case Undefined, Null:
		return false
	case Boolean:
		return x
	case Number:
		return Boolean(!(x == 0 || x.IsNaN()))
	case String:
		return x != ""
	default:
		return true
	}
}

// ToNumber converts any value to a Number following JavaScript semantics.
func ToNumber(v Value) Number {
	switch x := v.(type) {
	case Undefined:
		return Number(math.NaN())
	case Null:
		return 0
	case Boolean:
		if x {
			return 1
		}
		return 0
	case Number:
		return x
	case String:
		return stringToNumber(string(x))
	case *Object:
		return ToNumber(ToPrimitive(v, "number"))
	default:
		return Number(math.NaN())
	}
}

// jsWhitespace is the set of characters stringToNumber trims, matching the
// language's WhiteSpace and LineTerminator productions.
const jsWhitespace = " \t\v\f\r\n                 　\uFEFF"

func stringToNumber(s string) Number {
	s = strings.Trim(s, jsWhitespace)
	if s == "" {
		return 0
	}
	if len(s) > 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return Number(math.NaN())
		}
		return Number(n)
	}
	body := s
	if body[0] == '+' || body[0] == '-' {
		body = body[1:]
	}
	switch body {
	case "Infinity":
		if s[0] == '-' {
			return Number(math.Inf(-1))
		}
		return Number(math.Inf(1))
	}
	// strconv accepts forms the language does not ("Inf", "NaN", hex
	// floats, underscores); filter them before parsing.
	if !isDecimalLiteral(body) {
		return Number(math.NaN())
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number(math.NaN())
	}
	return Number(f)
}

func isDecimalLiteral(s string) bool {
	i := 0
	digits := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		if i == len(s) {
			return false
		}
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	return i == len(s)
}

// ToString converts any value to a String following JavaScript semantics.
// Note ToString(-0) is "0".
func ToString(v Value) String {
	switch x := v.(type) {
	case Undefined:
		return "undefined"
	case Null:
		return "null"
	case Boolean:
		if x {
			return "true"
		}
		return "false"
	case Number:
		return String(numberToString(float64(x)))
	case String:
		return x
	case *Object:
		return ToString(ToPrimitive(v, "string"))
	default:
		return ""
	}
}

func numberToString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 {
		return stripExpZero(strconv.FormatFloat(f, 'e', -1, 64))
	}
	if f == math.Trunc(f) || abs >= 1e-6 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return stripExpZero(strconv.FormatFloat(f, 'e', -1, 64))
}

// stripExpZero rewrites Go's zero-padded exponents ("1e-07") to the
// language's unpadded form ("1e-7").
func stripExpZero(s string) string {
	i := strings.IndexByte(s, 'e')
	if i < 0 {
		return s
	}
	mant, exp := s[:i+1], s[i+1:]
	sign := ""
	if len(exp) > 0 && (exp[0] == '+' || exp[0] == '-') {
		sign, exp = string(exp[0]), exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	return mant + sign + exp
}

// ToPrimitive converts v to a primitive value. For objects the conversion
// is driven by the class tag: Date prefers the string hint, everything else
// the number hint. User-defined valueOf/toString overrides are not
// consulted; conversion never re-enters the step engine.
func ToPrimitive(v Value, hint string) Value {
	obj, ok := v.(*Object)
	if !ok {
		return v
	}
	if hint == "" {
		if obj.Class() == ClassDate {
			hint = "string"
		} else {
			hint = "number"
		}
	}
	return obj.defaultValue(hint)
}

// IsPrimitive reports whether v is not a pseudo-object reference.
func IsPrimitive(v Value) bool {
	return v.IsPrimitive()
}

// TypeOf returns the typeof-operator name for v.
func TypeOf(v Value) string {
	return v.Typeof()
}

// ---------------------------------------------------------------------------
// Equality
// ---------------------------------------------------------------------------

// StrictEquals implements the === operator. It never coerces.
func StrictEquals(a, b Value) bool {
	switch x := a.(type) {
	case Undefined:
		_, ok := b.(Undefined)
		return ok
	case Null:
		_, ok := b.(Null)
		return ok
	case Boolean:
		y, ok := b.(Boolean)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		return ok && x == y // NaN != NaN and -0 == 0 both fall out of ==
	case String:
		y, ok := b.(String)
		return ok && x == y
	case *Object:
		y, ok := b.(*Object)
		return ok && x == y
	default:
		return false
	}
}

// LooseEquals implements the == operator's coercion table.
func LooseEquals(a, b Value) bool {
	switch x := a.(type) {
	case Undefined:
		switch b.(type) {
		case Undefined, Null:
			return true
		}
		return false
	case Null:
		switch b.(type) {
		case Undefined, Null:
			return true
		}
		return false
	case Number:
		switch y := b.(type) {
		case Number:
			return x == y
		case String:
			return x == ToNumber(y)
		case Boolean:
			return x == ToNumber(y)
		case *Object:
			return LooseEquals(x, ToPrimitive(y, ""))
		}
		return false
	case String:
		switch y := b.(type) {
		case String:
			return x == y
		case Number:
			return ToNumber(x) == y
		case Boolean:
			return ToNumber(x) == ToNumber(y)
		case *Object:
			return LooseEquals(x, ToPrimitive(y, ""))
		}
		return false
	case Boolean:
		switch b.(type) {
		case *Object:
			return LooseEquals(ToNumber(x), ToPrimitive(b, ""))
		}
		return LooseEquals(ToNumber(x), b)
	case *Object:
		switch b.(type) {
		case *Object:
			return a == b
		case Number, String:
			return LooseEquals(ToPrimitive(x, ""), b)
		case Boolean:
			return LooseEquals(ToPrimitive(x, ""), ToNumber(b.(Boolean)))
		}
		return false
	default:
		return false
	}
}
