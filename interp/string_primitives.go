package interp

import (
	"strings"
	"unicode/utf16"
)

// registerStringPrimitives installs String.prototype methods. String
// primitives reach them through the member-access path for primitive
// bases.
func (i *Interpreter) registerStringPrimitives() {
	proto := i.protos.String

	i.method(proto, "charAt", "String.prototype.charAt", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		units := utf16.Encode([]rune(string(ToString(this))))
		idx := argInt(args, 0)
		if idx < 0 || idx >= len(units) {
			return String(""), nil
		}
		return String(utf16.Decode(units[idx : idx+1])), nil
	})

	i.method(proto, "charCodeAt", "String.prototype.charCodeAt", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		units := utf16.Encode([]rune(string(ToString(this))))
		idx := argInt(args, 0)
		if idx < 0 || idx >= len(units) {
			return Number(nan()), nil
		}
		return Number(units[idx]), nil
	})

	i.method(proto, "indexOf", "String.prototype.indexOf", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		s := string(ToString(this))
		return Number(strings.Index(s, argString(args, 0))), nil
	})

	i.method(proto, "slice", "String.prototype.slice", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		units := utf16.Encode([]rune(string(ToString(this))))
		n := int64(len(units))
		start := sliceBound(argAt(args, 0), 0, n)
		end := sliceBound(argAt(args, 1), n, n)
		if start >= end {
			return String(""), nil
		}
		return String(utf16.Decode(units[start:end])), nil
	})

	i.method(proto, "substring", "String.prototype.substring", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		units := utf16.Encode([]rune(string(ToString(this))))
		n := int64(len(units))
		start := clampIndex(argAt(args, 0), 0, n)
		end := clampIndex(argAt(args, 1), n, n)
		if start > end {
			start, end = end, start
		}
		return String(utf16.Decode(units[start:end])), nil
	})

	i.method(proto, "split", "String.prototype.split", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		s := string(ToString(this))
		if _, isU := argAt(args, 0).(Undefined); isU {
			return i.NewArrayOf(String(s)), nil
		}
		sep := argString(args, 0)
		var parts []string
		if sep == "" {
			for _, r := range s {
				parts = append(parts, string(r))
			}
		} else {
			parts = strings.Split(s, sep)
		}
		vals := make([]Value, len(parts))
		for idx, p := range parts {
			vals[idx] = String(p)
		}
		return i.NewArrayOf(vals...), nil
	})

	i.method(proto, "toUpperCase", "String.prototype.toUpperCase", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		return String(strings.ToUpper(string(ToString(this)))), nil
	})

	i.method(proto, "toLowerCase", "String.prototype.toLowerCase", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		return String(strings.ToLower(string(ToString(this)))), nil
	})

	i.method(proto, "trim", "String.prototype.trim", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		return String(strings.Trim(string(ToString(this)), jsWhitespace)), nil
	})

	i.method(proto, "replace", "String.prototype.replace", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		s := string(ToString(this))
		if re, ok := argAt(args, 0).(*Object); ok && re.Class() == ClassRegExp {
			rd := re.Data().(*RegExpData)
			repl := argString(args, 1)
			count := 1
			if strings.ContainsRune(rd.Flags, 'g') {
				count = -1
			}
			out, err := rd.Re.Replace(s, repl, 0, count)
			if err != nil {
				return nil, NewSyntaxError("regular expression replace failed: " + err.Error())
			}
			return String(out), nil
		}
		return String(strings.Replace(s, argString(args, 0), argString(args, 1), 1)), nil
	})
}

// clampIndex normalizes a substring index: NaN and negatives clamp to 0,
// overlarge values clamp to n; absent arguments use def.
func clampIndex(v Value, def, n int64) int64 {
	if _, isU := v.(Undefined); isU {
		return def
	}
	f := float64(ToNumber(v))
	if f != f || f < 0 {
		return 0
	}
	idx := int64(f)
	if idx > n {
		return n
	}
	return idx
}
