package interp

import (
	"math"
	"time"
)

// registerDatePrimitives installs the Date constructor and prototype.
func (i *Interpreter) registerDatePrimitives() {
	ctor := i.constructor("Date", i.protos.Date, func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		switch len(args) {
		case 0:
			return i.NewDate(float64(i.clock.NowMillis())), nil
		default:
			switch a := args[0].(type) {
			case String:
				parsed, err := time.Parse(time.RFC3339Nano, string(a))
				if err != nil {
					return i.NewDate(math.NaN()), nil
				}
				return i.NewDate(float64(parsed.UnixMilli())), nil
			default:
				return i.NewDate(float64(ToNumber(args[0]))), nil
			}
		}
	})

	i.method(ctor, "now", "Date.now", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		return Number(i.clock.NowMillis()), nil
	})

	proto := i.protos.Date

	i.method(proto, "getTime", "Date.prototype.getTime", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		d, err := thisDate(this)
		if err != nil {
			return nil, err
		}
		return Number(d.Ms), nil
	})

	i.method(proto, "toISOString", "Date.prototype.toISOString", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		d, err := thisDate(this)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(d.Ms) {
			return nil, NewRangeError("invalid time value")
		}
		return String(d.Time().Format("2006-01-02T15:04:05.000Z")), nil
	})

	i.method(proto, "valueOf", "Date.prototype.valueOf", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		d, err := thisDate(this)
		if err != nil {
			return nil, err
		}
		return Number(d.Ms), nil
	})
}

func thisDate(this Value) (*DateData, *UserError) {
	o, ok := this.(*Object)
	if !ok || o.Class() != ClassDate {
		return nil, NewTypeError("receiver is not a Date")
	}
	d, _ := o.Data().(*DateData)
	if d == nil {
		return nil, NewTypeError("receiver is not a Date")
	}
	return d, nil
}
