package interp

import "strconv"

func itoaKey(idx int) string { return strconv.Itoa(idx) }

// registerRegistryPrimitives installs the registry namespace: named,
// durable roots user code shares across threads and checkpoints.
func (i *Interpreter) registerRegistryPrimitives() {
	ns := NewObject(i.protos.Object)

	i.method(ns, "get", "registry.get", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		if obj := i.registry.Lookup(argString(args, 0)); obj != nil {
			return obj, nil
		}
		return Undefined{}, nil
	})

	i.method(ns, "set", "registry.set", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		obj, ok := argAt(args, 1).(*Object)
		if !ok {
			return nil, NewTypeError("registry values must be objects")
		}
		name := argString(args, 0)
		if name == "" {
			return nil, NewTypeError("registry names must be non-empty")
		}
		i.registry.Bind(name, obj)
		return obj, nil
	})

	i.method(ns, "remove", "registry.remove", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		i.registry.Unbind(argString(args, 0))
		return Undefined{}, nil
	})

	i.method(ns, "names", "registry.names", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		names := i.registry.Names()
		vals := make([]Value, len(names))
		for idx, n := range names {
			vals[idx] = String(n)
		}
		return i.NewArrayOf(vals...), nil
	})

	i.defineGlobal("registry", ns)
}
