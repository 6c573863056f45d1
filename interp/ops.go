package interp

import (
	"math"
)

// ToInt32 implements the ToInt32 abstract operation.
func ToInt32(v Value) int32 {
	f := float64(ToNumber(v))
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int32(uint32(int64(f)))
}

// ToUint32 implements the ToUint32 abstract operation.
func ToUint32(v Value) uint32 {
	f := float64(ToNumber(v))
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return uint32(int64(f))
}

// binaryOp applies a binary operator to already-evaluated operands.
// && and || are not handled here; they short-circuit in their own state.
func binaryOp(i *Interpreter, op string, left, right Value) (Value, *UserError) {
	switch op {
	case "+":
		lp := ToPrimitive(left, "")
		rp := ToPrimitive(right, "")
		_, ls := lp.(String)
		_, rs := rp.(String)
		if ls || rs {
			return ToString(lp) + ToString(rp), nil
		}
		return ToNumber(lp) + ToNumber(rp), nil
	case "-":
		return ToNumber(left) - ToNumber(right), nil
	case "*":
		return ToNumber(left) * ToNumber(right), nil
	case "/":
		return ToNumber(left) / ToNumber(right), nil
	case "%":
		return Number(math.Mod(float64(ToNumber(left)), float64(ToNumber(right)))), nil

	case "<", ">", "<=", ">=":
		return relational(op, left, right), nil

	case "==":
		return Boolean(LooseEquals(left, right)), nil
	case "!=":
		return Boolean(!LooseEquals(left, right)), nil
	case "===":
		return Boolean(StrictEquals(left, right)), nil
	case "!==":
		return Boolean(!StrictEquals(left, right)), nil

	case "&":
		return Number(ToInt32(left) & ToInt32(right)), nil
	case "|":
		return Number(ToInt32(left) | ToInt32(right)), nil
	case "^":
		return Number(ToInt32(left) ^ ToInt32(right)), nil
	case "<<":
		return Number(ToInt32(left) << (ToUint32(right) & 31)), nil
	case ">>":
		return Number(ToInt32(left) >> (ToUint32(right) & 31)), nil
	case ">>>":
		return Number(ToUint32(left) >> (ToUint32(right) & 31)), nil

	case "instanceof":
		fn, ok := right.(*Object)
		if !ok || !fn.Callable() {
			return nil, NewTypeError("right-hand side of instanceof is not callable")
		}
		obj, ok := left.(*Object)
		if !ok {
			return Boolean(false), nil
		}
		protoV, _ := fn.Get("prototype")
		proto, ok := protoV.(*Object)
		if !ok {
			return nil, NewTypeError("function has non-object prototype in instanceof")
		}
		for walk := obj.Proto(); walk != nil; walk = walk.Proto() {
			if walk == proto {
				return Boolean(true), nil
			}
		}
		return Boolean(false), nil

	case "in":
		obj, ok := right.(*Object)
		if !ok {
			return nil, NewTypeError("cannot use 'in' operator on a primitive")
		}
		return Boolean(obj.Has(string(ToString(left)))), nil
	}
	return nil, NewSyntaxError("unknown binary operator " + op)
}

// relational implements the abstract relational comparison for < > <= >=.
func relational(op string, left, right Value) Value {
	lp := ToPrimitive(left, "number")
	rp := ToPrimitive(right, "number")
	ls, lok := lp.(String)
	rs, rok := rp.(String)
	if lok && rok {
		switch op {
		case "<":
			return Boolean(ls < rs)
		case ">":
			return Boolean(ls > rs)
		case "<=":
			return Boolean(ls <= rs)
		default:
			return Boolean(ls >= rs)
		}
	}
	ln := float64(ToNumber(lp))
	rn := float64(ToNumber(rp))
	if math.IsNaN(ln) || math.IsNaN(rn) {
		return Boolean(false)
	}
	switch op {
	case "<":
		return Boolean(ln < rn)
	case ">":
		return Boolean(ln > rn)
	case "<=":
		return Boolean(ln <= rn)
	default:
		return Boolean(ln >= rn)
	}
}

// unaryOp applies a unary operator to an evaluated operand. typeof and
// delete never reach here; they are handled before operand evaluation.
func unaryOp(op string, v Value) (Value, *UserError) {
	switch op {
	case "-":
		return -ToNumber(v), nil
	case "+":
		return ToNumber(v), nil
	case "!":
		return !ToBoolean(v), nil
	case "~":
		return Number(^ToInt32(v)), nil
	case "void":
		return Undefined{}, nil
	}
	return nil, NewSyntaxError("unknown unary operator " + op)
}

// typeofValue is the typeof operator for an evaluated value.
func typeofValue(v Value) String {
	if o, ok := v.(*Object); ok {
		return String(o.TypeofValue())
	}
	return String(v.Typeof())
}
