package interp

import "strings"

// setupGlobals builds the prototype singletons, anchors them in the
// registry, registers the built-in natives and seeds the global scope.
func (i *Interpreter) setupGlobals() {
	p := &i.protos

	p.Object = NewObject(nil)
	p.Function = NewObject(p.Object)
	p.Array = NewObject(p.Object)
	p.Date = NewObject(p.Object)
	p.RegExp = NewObject(p.Object)
	p.Error = NewObject(p.Object)
	p.String = NewObject(p.Object)
	p.Number = NewObject(p.Object)
	p.Boolean = NewObject(p.Object)
	p.Thread = NewObject(p.Object)
	p.WeakMap = NewObject(p.Object)
	p.WeakSet = NewObject(p.Object)
	p.Server = NewObject(p.Object)
	p.Connection = NewObject(p.Object)

	p.ErrorByName = map[string]*Object{"Error": p.Error}
	for _, name := range errorClassNames {
		if name == "Error" {
			continue
		}
		sub := NewObject(p.Error)
		p.ErrorByName[name] = sub
	}

	// Registry anchors: decode reuses these instead of duplicating them.
	i.registry.Bind("Object.prototype", p.Object)
	i.registry.Bind("Function.prototype", p.Function)
	i.registry.Bind("Array.prototype", p.Array)
	i.registry.Bind("Date.prototype", p.Date)
	i.registry.Bind("RegExp.prototype", p.RegExp)
	i.registry.Bind("String.prototype", p.String)
	i.registry.Bind("Number.prototype", p.Number)
	i.registry.Bind("Boolean.prototype", p.Boolean)
	i.registry.Bind("Thread.prototype", p.Thread)
	i.registry.Bind("WeakMap.prototype", p.WeakMap)
	i.registry.Bind("WeakSet.prototype", p.WeakSet)
	i.registry.Bind("Server.prototype", p.Server)
	i.registry.Bind("Connection.prototype", p.Connection)
	for _, name := range errorClassNames {
		i.registry.Bind(name+".prototype", p.ErrorByName[name])
	}

	i.global = NewScope(nil, i)

	i.registerCorePrimitives()
	i.registerObjectPrimitives()
	i.registerArrayPrimitives()
	i.registerStringPrimitives()
	i.registerMathPrimitives()
	i.registerJSONPrimitives()
	i.registerErrorPrimitives()
	i.registerDatePrimitives()
	i.registerRegExpPrimitives()
	i.registerThreadPrimitives()
	i.registerWeakPrimitives()
	i.registerRegistryPrimitives()
	i.registerSocketPrimitives()

	g := i.global
	g.SetLocal("undefined", Undefined{})
	g.SetLocal("NaN", Number(nan()))
	g.SetLocal("Infinity", Number(inf()))
}

var errorClassNames = []string{
	"Error", "ReferenceError", "TypeError", "RangeError",
	"SyntaxError", "URIError", "EvalError", "PermissionError",
}

// native registers a native function and gives it Function.prototype.
func (i *Interpreter) native(id string, fn NativeFunc) *Object {
	obj := i.natives.Register(id, fn)
	obj.SetProto(i.protos.Function)
	return obj
}

// method installs a native as a non-enumerable method on target.
func (i *Interpreter) method(target *Object, name, id string, fn NativeFunc) {
	target.DefineOwn(name, &Property{Value: i.native(id, fn), Writable: true, Configurable: true})
}

// defineGlobal binds a value in the global scope.
func (i *Interpreter) defineGlobal(name string, v Value) {
	i.global.SetLocal(name, v)
}

// constructor builds a native constructor wired to its prototype and binds
// it as a global.
func (i *Interpreter) constructor(name string, proto *Object, fn NativeFunc) *Object {
	ctor := i.native(name, fn)
	ctor.DefineOwn("prototype", &Property{Value: proto})
	proto.DefineOwn("constructor", &Property{Value: ctor, Writable: true, Configurable: true})
	i.defineGlobal(name, ctor)
	return ctor
}

// joinForLog renders log arguments the way a console would.
func joinForLog(args []Value) string {
	parts := make([]string, len(args))
	for idx, a := range args {
		parts[idx] = string(ToString(a))
	}
	return strings.Join(parts, " ")
}
