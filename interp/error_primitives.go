package interp

// registerErrorPrimitives installs the Error constructor hierarchy,
// including the host-defined PermissionError.
func (i *Interpreter) registerErrorPrimitives() {
	for _, name := range errorClassNames {
		name := name
		proto := i.protos.ErrorByName[name]
		proto.DefineOwn("name", &Property{Value: String(name), Writable: true, Configurable: true})
		proto.DefineOwn("message", &Property{Value: String(""), Writable: true, Configurable: true})
		i.constructor(name, proto, func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
			e := NewTagged(proto, ClassError)
			if _, isU := argAt(args, 0).(Undefined); !isU {
				e.Set("message", ToString(args[0]))
			}
			return e, nil
		})
	}

	i.method(i.protos.Error, "toString", "Error.prototype.toString", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		return ToString(this), nil
	})
}
