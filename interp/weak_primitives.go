package interp

// registerWeakPrimitives installs the iterable weak container constructors.
// size and iteration are methods rather than accessors; both observe the
// container and therefore drop dead entries.
func (i *Interpreter) registerWeakPrimitives() {
	i.constructor("WeakMap", i.protos.WeakMap, func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		m := NewTagged(i.protos.WeakMap, ClassWeakMap)
		m.SetData(NewWeakMapData())
		return m, nil
	})

	mp := i.protos.WeakMap

	i.method(mp, "get", "WeakMap.prototype.get", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		m, err := thisWeakMap(this)
		if err != nil {
			return nil, err
		}
		key, ok := argAt(args, 0).(*Object)
		if !ok {
			return Undefined{}, nil
		}
		v, _ := m.Get(key)
		return v, nil
	})

	i.method(mp, "set", "WeakMap.prototype.set", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		m, err := thisWeakMap(this)
		if err != nil {
			return nil, err
		}
		key, ok := argAt(args, 0).(*Object)
		if !ok {
			return nil, NewTypeError("weak map keys must be objects")
		}
		m.Set(key, argAt(args, 1))
		return this, nil
	})

	i.method(mp, "has", "WeakMap.prototype.has", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		m, err := thisWeakMap(this)
		if err != nil {
			return nil, err
		}
		key, ok := argAt(args, 0).(*Object)
		return Boolean(ok && m.Has(key)), nil
	})

	i.method(mp, "delete", "WeakMap.prototype.delete", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		m, err := thisWeakMap(this)
		if err != nil {
			return nil, err
		}
		key, ok := argAt(args, 0).(*Object)
		return Boolean(ok && m.Delete(key)), nil
	})

	i.method(mp, "size", "WeakMap.prototype.size", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		m, err := thisWeakMap(this)
		if err != nil {
			return nil, err
		}
		return Number(m.Size()), nil
	})

	i.method(mp, "keys", "WeakMap.prototype.keys", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		m, err := thisWeakMap(this)
		if err != nil {
			return nil, err
		}
		out := i.NewArray()
		idx := 0
		m.Each(func(key *Object, v Value) {
			out.Set(itoaKey(idx), key)
			idx++
		})
		return out, nil
	})

	i.constructor("WeakSet", i.protos.WeakSet, func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		s := NewTagged(i.protos.WeakSet, ClassWeakSet)
		s.SetData(NewWeakSetData())
		return s, nil
	})

	sp := i.protos.WeakSet

	i.method(sp, "add", "WeakSet.prototype.add", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		s, err := thisWeakSet(this)
		if err != nil {
			return nil, err
		}
		key, ok := argAt(args, 0).(*Object)
		if !ok {
			return nil, NewTypeError("weak set members must be objects")
		}
		s.Add(key)
		return this, nil
	})

	i.method(sp, "has", "WeakSet.prototype.has", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		s, err := thisWeakSet(this)
		if err != nil {
			return nil, err
		}
		key, ok := argAt(args, 0).(*Object)
		return Boolean(ok && s.Has(key)), nil
	})

	i.method(sp, "delete", "WeakSet.prototype.delete", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		s, err := thisWeakSet(this)
		if err != nil {
			return nil, err
		}
		key, ok := argAt(args, 0).(*Object)
		return Boolean(ok && s.Delete(key)), nil
	})

	i.method(sp, "size", "WeakSet.prototype.size", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		s, err := thisWeakSet(this)
		if err != nil {
			return nil, err
		}
		return Number(s.Size()), nil
	})

	i.method(sp, "values", "WeakSet.prototype.values", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		s, err := thisWeakSet(this)
		if err != nil {
			return nil, err
		}
		out := i.NewArray()
		idx := 0
		s.Each(func(key *Object) {
			out.Set(itoaKey(idx), key)
			idx++
		})
		return out, nil
	})
}

func thisWeakMap(this Value) (*WeakMapData, *UserError) {
	o, ok := this.(*Object)
	if !ok || o.Class() != ClassWeakMap {
		return nil, NewTypeError("receiver is not a WeakMap")
	}
	m, _ := o.Data().(*WeakMapData)
	if m == nil {
		return nil, NewTypeError("receiver is not a WeakMap")
	}
	return m, nil
}

func thisWeakSet(this Value) (*WeakSetData, *UserError) {
	o, ok := this.(*Object)
	if !ok || o.Class() != ClassWeakSet {
		return nil, NewTypeError("receiver is not a WeakSet")
	}
	s, _ := o.Data().(*WeakSetData)
	if s == nil {
		return nil, NewTypeError("receiver is not a WeakSet")
	}
	return s, nil
}
