package interp

// registerThreadPrimitives installs the Thread namespace: spawn, sleep,
// yield, kill and current. sleep is also aliased as a global.
func (i *Interpreter) registerThreadPrimitives() {
	ns := NewObject(i.protos.Object)

	i.method(ns, "spawn", "Thread.spawn", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		fn, ok := argAt(args, 0).(*Object)
		if !ok || !fn.Callable() {
			return nil, NewTypeError("Thread.spawn needs a function")
		}
		spawned, err := i.SpawnFunction(fn, args[1:])
		if err != nil {
			return nil, err
		}
		return i.NewThreadHandle(spawned), nil
	})

	sleep := i.native("Thread.sleep", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		ms := argNumber(args, 0)
		if ms < 0 || ms != ms {
			ms = 0
		}
		t.Sleep(i.clock.NowMillis() + int64(ms))
		return Undefined{}, nil
	})
	ns.DefineOwn("sleep", &Property{Value: sleep, Writable: true, Configurable: true})
	i.defineGlobal("sleep", sleep)

	i.method(ns, "yield", "Thread.yield", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		t.Yield()
		return Undefined{}, nil
	})

	i.method(ns, "kill", "Thread.kill", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		handle, ok := argAt(args, 0).(*Object)
		if !ok || handle.Class() != ClassThread {
			return nil, NewTypeError("Thread.kill needs a thread handle")
		}
		ref, _ := handle.Data().(*ThreadRef)
		if ref == nil {
			return Boolean(false), nil
		}
		return Boolean(i.sched.Kill(ref.ID)), nil
	})

	i.method(ns, "current", "Thread.current", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		return i.NewThreadHandle(t), nil
	})

	i.method(ns, "status", "Thread.status", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		handle, ok := argAt(args, 0).(*Object)
		if !ok || handle.Class() != ClassThread {
			return nil, NewTypeError("Thread.status needs a thread handle")
		}
		ref, _ := handle.Data().(*ThreadRef)
		if ref == nil {
			return String(StatusDone), nil
		}
		target := i.sched.Lookup(ref.ID)
		if target == nil {
			return String(StatusDone), nil
		}
		return String(target.Status()), nil
	})

	i.defineGlobal("Thread", ns)
}
