package interp

import (
	"math"
	"math/rand"
)

// registerMathPrimitives installs the Math namespace object.
func (i *Interpreter) registerMathPrimitives() {
	m := NewObject(i.protos.Object)
	m.DefineOwn("PI", &Property{Value: Number(math.Pi), Enumerable: true})
	m.DefineOwn("E", &Property{Value: Number(math.E), Enumerable: true})

	unary := func(name string, fn func(float64) float64) {
		i.method(m, name, "Math."+name, func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
			return Number(fn(argNumber(args, 0))), nil
		})
	}
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("abs", math.Abs)
	unary("sqrt", math.Sqrt)
	unary("round", func(f float64) float64 { return math.Floor(f + 0.5) })

	i.method(m, "pow", "Math.pow", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		return Number(math.Pow(argNumber(args, 0), argNumber(args, 1))), nil
	})

	i.method(m, "max", "Math.max", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		out := math.Inf(-1)
		for idx := range args {
			f := argNumber(args, idx)
			if math.IsNaN(f) {
				return Number(nan()), nil
			}
			if f > out {
				out = f
			}
		}
		return Number(out), nil
	})

	i.method(m, "min", "Math.min", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		out := math.Inf(1)
		for idx := range args {
			f := argNumber(args, idx)
			if math.IsNaN(f) {
				return Number(nan()), nil
			}
			if f < out {
				out = f
			}
		}
		return Number(out), nil
	})

	i.method(m, "random", "Math.random", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		return Number(rand.Float64()), nil
	})

	i.defineGlobal("Math", m)
}
