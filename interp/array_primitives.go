package interp

import "strconv"

// registerArrayPrimitives installs the Array constructor and
// Array.prototype methods.
func (i *Interpreter) registerArrayPrimitives() {
	ctor := i.constructor("Array", i.protos.Array, func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		if len(args) == 1 {
			if n, ok := args[0].(Number); ok {
				ln := int64(n)
				if float64(ln) != float64(n) || ln < 0 {
					return nil, NewRangeError("invalid array length")
				}
				arr := i.NewArray()
				arr.Set("length", Number(ln))
				return arr, nil
			}
		}
		return i.NewArrayOf(args...), nil
	})

	i.method(ctor, "isArray", "Array.isArray", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		o, ok := argAt(args, 0).(*Object)
		return Boolean(ok && o.Class() == ClassArray), nil
	})

	proto := i.protos.Array

	i.method(proto, "push", "Array.prototype.push", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		arr, err := thisArray(this)
		if err != nil {
			return nil, err
		}
		n := arr.ArrayLength()
		for _, v := range args {
			if err := arr.Set(strconv.FormatInt(n, 10), v); err != nil {
				return nil, err
			}
			n++
		}
		return Number(arr.ArrayLength()), nil
	})

	i.method(proto, "pop", "Array.prototype.pop", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		arr, err := thisArray(this)
		if err != nil {
			return nil, err
		}
		n := arr.ArrayLength()
		if n == 0 {
			return Undefined{}, nil
		}
		key := strconv.FormatInt(n-1, 10)
		v, _ := arr.Get(key)
		arr.Delete(key)
		arr.Set("length", Number(n-1))
		return v, nil
	})

	i.method(proto, "shift", "Array.prototype.shift", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		arr, err := thisArray(this)
		if err != nil {
			return nil, err
		}
		n := arr.ArrayLength()
		if n == 0 {
			return Undefined{}, nil
		}
		first, _ := arr.Get("0")
		for idx := int64(1); idx < n; idx++ {
			v, ok := arr.Get(strconv.FormatInt(idx, 10))
			key := strconv.FormatInt(idx-1, 10)
			if ok {
				arr.Set(key, v)
			} else {
				arr.Delete(key)
			}
		}
		arr.Delete(strconv.FormatInt(n-1, 10))
		arr.Set("length", Number(n-1))
		return first, nil
	})

	i.method(proto, "indexOf", "Array.prototype.indexOf", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		arr, err := thisArray(this)
		if err != nil {
			return nil, err
		}
		needle := argAt(args, 0)
		n := arr.ArrayLength()
		for idx := int64(0); idx < n; idx++ {
			if v, ok := arr.Get(strconv.FormatInt(idx, 10)); ok && StrictEquals(v, needle) {
				return Number(idx), nil
			}
		}
		return Number(-1), nil
	})

	i.method(proto, "join", "Array.prototype.join", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		arr, err := thisArray(this)
		if err != nil {
			return nil, err
		}
		sep := ","
		if len(args) > 0 {
			if _, isU := args[0].(Undefined); !isU {
				sep = argString(args, 0)
			}
		}
		out := ""
		n := arr.ArrayLength()
		for idx := int64(0); idx < n; idx++ {
			if idx > 0 {
				out += sep
			}
			v, ok := arr.Get(strconv.FormatInt(idx, 10))
			if !ok {
				continue
			}
			switch v.(type) {
			case Undefined, Null:
			default:
				out += string(ToString(v))
			}
		}
		return String(out), nil
	})

	i.method(proto, "slice", "Array.prototype.slice", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		arr, err := thisArray(this)
		if err != nil {
			return nil, err
		}
		n := arr.ArrayLength()
		start := sliceBound(argAt(args, 0), 0, n)
		end := sliceBound(argAt(args, 1), n, n)
		out := i.NewArray()
		outIdx := int64(0)
		for idx := start; idx < end; idx++ {
			if v, ok := arr.Get(strconv.FormatInt(idx, 10)); ok {
				out.Set(strconv.FormatInt(outIdx, 10), v)
			}
			outIdx++
		}
		out.Set("length", Number(outIdx))
		return out, nil
	})

	i.method(proto, "concat", "Array.prototype.concat", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		arr, err := thisArray(this)
		if err != nil {
			return nil, err
		}
		out := i.NewArray()
		outIdx := int64(0)
		appendOne := func(v Value) {
			if a, ok := v.(*Object); ok && a.Class() == ClassArray {
				n := a.ArrayLength()
				for idx := int64(0); idx < n; idx++ {
					if e, present := a.Get(strconv.FormatInt(idx, 10)); present {
						out.Set(strconv.FormatInt(outIdx, 10), e)
					}
					outIdx++
				}
				return
			}
			out.Set(strconv.FormatInt(outIdx, 10), v)
			outIdx++
		}
		appendOne(arr)
		for _, v := range args {
			appendOne(v)
		}
		out.Set("length", Number(outIdx))
		return out, nil
	})
}

func thisArray(this Value) (*Object, *UserError) {
	arr, ok := this.(*Object)
	if !ok || arr.Class() != ClassArray {
		return nil, NewTypeError("receiver is not an array")
	}
	return arr, nil
}

// sliceBound normalizes a slice index argument: negatives count from the
// end, absent arguments use def.
func sliceBound(v Value, def, n int64) int64 {
	if _, isU := v.(Undefined); isU {
		return def
	}
	idx := int64(ToNumber(v))
	if idx < 0 {
		idx += n
	}
	if idx < 0 {
		return 0
	}
	if idx > n {
		return n
	}
	return idx
}
