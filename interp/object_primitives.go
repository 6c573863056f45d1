package interp

// registerObjectPrimitives installs the Object constructor and
// Object.prototype methods.
func (i *Interpreter) registerObjectPrimitives() {
	ctor := i.constructor("Object", i.protos.Object, func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		if o, ok := argAt(args, 0).(*Object); ok {
			return o, nil
		}
		return NewObject(i.protos.Object), nil
	})

	i.method(ctor, "keys", "Object.keys", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		o, ok := argAt(args, 0).(*Object)
		if !ok {
			return nil, NewTypeError("Object.keys called on non-object")
		}
		keys := o.EnumerableKeys()
		vals := make([]Value, len(keys))
		for idx, k := range keys {
			vals[idx] = String(k)
		}
		return i.NewArrayOf(vals...), nil
	})

	i.method(ctor, "getOwnPropertyNames", "Object.getOwnPropertyNames", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		o, ok := argAt(args, 0).(*Object)
		if !ok {
			return nil, NewTypeError("Object.getOwnPropertyNames called on non-object")
		}
		keys := o.OwnKeys()
		vals := make([]Value, len(keys))
		for idx, k := range keys {
			vals[idx] = String(k)
		}
		return i.NewArrayOf(vals...), nil
	})

	i.method(ctor, "getPrototypeOf", "Object.getPrototypeOf", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		o, ok := argAt(args, 0).(*Object)
		if !ok {
			return nil, NewTypeError("Object.getPrototypeOf called on non-object")
		}
		if p := o.Proto(); p != nil {
			return p, nil
		}
		return Null{}, nil
	})

	i.method(ctor, "create", "Object.create", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		switch p := argAt(args, 0).(type) {
		case *Object:
			return NewObject(p), nil
		case Null:
			return NewObject(nil), nil
		default:
			return nil, NewTypeError("Object.create prototype must be an object or null")
		}
	})

	i.method(ctor, "defineProperty", "Object.defineProperty", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		o, ok := argAt(args, 0).(*Object)
		if !ok {
			return nil, NewTypeError("Object.defineProperty called on non-object")
		}
		desc, ok := argAt(args, 2).(*Object)
		if !ok {
			return nil, NewTypeError("property descriptor must be an object")
		}
		key := argString(args, 1)
		prop := &Property{Value: Undefined{}}
		if existing := o.GetOwn(key); existing != nil {
			*prop = *existing
		}
		if v, found := desc.Get("value"); found {
			prop.Value = v
		}
		if v, found := desc.Get("writable"); found {
			prop.Writable = bool(ToBoolean(v))
		}
		if v, found := desc.Get("enumerable"); found {
			prop.Enumerable = bool(ToBoolean(v))
		}
		if v, found := desc.Get("configurable"); found {
			prop.Configurable = bool(ToBoolean(v))
		}
		if err := o.DefineOwn(key, prop); err != nil {
			return nil, err
		}
		return o, nil
	})

	i.method(ctor, "preventExtensions", "Object.preventExtensions", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		o, ok := argAt(args, 0).(*Object)
		if !ok {
			return nil, NewTypeError("Object.preventExtensions called on non-object")
		}
		o.PreventExtensions()
		return o, nil
	})

	i.method(ctor, "isExtensible", "Object.isExtensible", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		o, ok := argAt(args, 0).(*Object)
		if !ok {
			return Boolean(false), nil
		}
		return Boolean(o.Extensible()), nil
	})

	proto := i.protos.Object
	i.method(proto, "hasOwnProperty", "Object.prototype.hasOwnProperty", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		o, ok := this.(*Object)
		if !ok {
			return Boolean(false), nil
		}
		return Boolean(o.GetOwn(argString(args, 0)) != nil), nil
	})

	i.method(proto, "isPrototypeOf", "Object.prototype.isPrototypeOf", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		self, ok := this.(*Object)
		if !ok {
			return Boolean(false), nil
		}
		o, ok := argAt(args, 0).(*Object)
		if !ok {
			return Boolean(false), nil
		}
		for walk := o.Proto(); walk != nil; walk = walk.Proto() {
			if walk == self {
				return Boolean(true), nil
			}
		}
		return Boolean(false), nil
	})

	i.method(proto, "toString", "Object.prototype.toString", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		return ToString(this), nil
	})

	i.method(proto, "valueOf", "Object.prototype.valueOf", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		return this, nil
	})
}
