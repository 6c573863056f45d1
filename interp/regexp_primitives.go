package interp

import (
	"strconv"
	"strings"
)

// registerRegExpPrimitives installs the RegExp constructor and prototype.
func (i *Interpreter) registerRegExpPrimitives() {
	i.constructor("RegExp", i.protos.RegExp, func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		if re, ok := argAt(args, 0).(*Object); ok && re.Class() == ClassRegExp {
			return re, nil
		}
		pattern := ""
		if _, isU := argAt(args, 0).(Undefined); !isU {
			pattern = argString(args, 0)
		}
		flags := ""
		if _, isU := argAt(args, 1).(Undefined); !isU {
			flags = argString(args, 1)
		}
		return i.NewRegExp(pattern, flags)
	})

	proto := i.protos.RegExp

	i.method(proto, "test", "RegExp.prototype.test", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		rd, err := thisRegExp(this)
		if err != nil {
			return nil, err
		}
		ok, merr := rd.Re.MatchString(argString(args, 0))
		if merr != nil {
			return nil, NewSyntaxError("regular expression match failed: " + merr.Error())
		}
		return Boolean(ok), nil
	})

	i.method(proto, "exec", "RegExp.prototype.exec", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		o := this.(*Object)
		rd, err := thisRegExp(this)
		if err != nil {
			return nil, err
		}
		input := argString(args, 0)
		start := 0
		global := strings.ContainsRune(rd.Flags, 'g')
		if global {
			if li, found := o.Get("lastIndex"); found {
				start = int(ToNumber(li))
			}
			if start > len(input) {
				o.Set("lastIndex", Number(0))
				return Null{}, nil
			}
		}
		m, merr := rd.Re.FindStringMatchStartingAt(input, start)
		if merr != nil {
			return nil, NewSyntaxError("regular expression match failed: " + merr.Error())
		}
		if m == nil {
			if global {
				o.Set("lastIndex", Number(0))
			}
			return Null{}, nil
		}
		if global {
			o.Set("lastIndex", Number(m.Index+len(m.String())))
		}
		out := i.NewArray()
		for gi, g := range m.Groups() {
			if len(g.Captures) == 0 {
				out.Set(strconv.Itoa(gi), Undefined{})
			} else {
				out.Set(strconv.Itoa(gi), String(g.String()))
			}
		}
		out.Set("index", Number(m.Index))
		out.Set("input", String(input))
		return out, nil
	})
}

func thisRegExp(this Value) (*RegExpData, *UserError) {
	o, ok := this.(*Object)
	if !ok || o.Class() != ClassRegExp {
		return nil, NewTypeError("receiver is not a RegExp")
	}
	rd, _ := o.Data().(*RegExpData)
	if rd == nil {
		return nil, NewTypeError("receiver is not a RegExp")
	}
	return rd, nil
}
