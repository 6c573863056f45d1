package interp

import (
	"math"
	"strconv"
	"strings"
)

func nan() float64 { return math.NaN() }
func inf() float64 { return math.Inf(1) }

// registerCorePrimitives installs the top-level conversion and utility
// functions.
func (i *Interpreter) registerCorePrimitives() {
	i.defineGlobal("log", i.native("log", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		i.log.Infof("%s", joinForLog(args))
		return Undefined{}, nil
	}))

	i.defineGlobal("parseInt", i.native("parseInt", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		s := strings.Trim(argString(args, 0), jsWhitespace)
		radix := argInt(args, 1)
		neg := false
		if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
			neg = s[0] == '-'
			s = s[1:]
		}
		if radix == 0 {
			if len(s) > 1 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
				radix = 16
				s = s[2:]
			} else {
				radix = 10
			}
		} else if radix == 16 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
			s = s[2:]
		}
		if radix < 2 || radix > 36 {
			return Number(nan()), nil
		}
		// Take the longest valid prefix.
		end := 0
		for end < len(s) {
			d := digitValue(s[end])
			if d < 0 || d >= radix {
				break
			}
			end++
		}
		if end == 0 {
			return Number(nan()), nil
		}
		f := 0.0
		for _, c := range []byte(s[:end]) {
			f = f*float64(radix) + float64(digitValue(c))
		}
		if neg {
			f = -f
		}
		return Number(f), nil
	}))

	i.defineGlobal("parseFloat", i.native("parseFloat", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		s := strings.Trim(argString(args, 0), jsWhitespace)
		// Longest valid numeric prefix.
		for end := len(s); end > 0; end-- {
			if f, err := strconv.ParseFloat(s[:end], 64); err == nil && isFloatPrefix(s[:end]) {
				return Number(f), nil
			}
		}
		return Number(nan()), nil
	}))

	i.defineGlobal("isNaN", i.native("isNaN", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		return Boolean(math.IsNaN(argNumber(args, 0))), nil
	}))

	i.defineGlobal("isFinite", i.native("isFinite", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		f := argNumber(args, 0)
		return Boolean(!math.IsNaN(f) && !math.IsInf(f, 0)), nil
	}))

	i.defineGlobal("String", i.native("String", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		if len(args) == 0 {
			return String(""), nil
		}
		return ToString(args[0]), nil
	}))

	i.defineGlobal("Number", i.native("Number", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		if len(args) == 0 {
			return Number(0), nil
		}
		return ToNumber(args[0]), nil
	}))

	i.defineGlobal("Boolean", i.native("Boolean", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		return ToBoolean(argAt(args, 0)), nil
	}))
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return -1
}

// isFloatPrefix rejects strconv-isms (hex floats, "Inf", "NaN") that the
// language's parseFloat does not accept.
func isFloatPrefix(s string) bool {
	if s == "" {
		return false
	}
	body := s
	if body[0] == '+' || body[0] == '-' {
		body = body[1:]
	}
	if body == "Infinity" {
		return true
	}
	return isDecimalLiteral(body)
}
