package interp

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/chazu/warren/ast"
)

// Protos holds the built-in prototype singletons. They are bound in the
// registry under stable names so snapshot decode can reuse them rather
// than duplicate them.
type Protos struct {
	Object     *Object
	Function   *Object
	Array      *Object
	Date       *Object
	RegExp     *Object
	Error      *Object
	String     *Object
	Number     *Object
	Boolean    *Object
	Thread     *Object
	WeakMap    *Object
	WeakSet    *Object
	Server     *Object
	Connection *Object

	// ErrorByName maps an error class name (TypeError, PermissionError,
	// ...) to its prototype.
	ErrorByName map[string]*Object
}

// Interpreter is the root of one interpreter instance: the native table,
// the registry, the global scope, the prototype singletons, the loaded
// programs, and the thread scheduler. Instances are self-contained; tests
// run several side by side.
type Interpreter struct {
	natives  *NativeTable
	registry *Registry
	global   *Scope
	protos   Protos
	programs []*ast.Program
	sched    *Scheduler

	clock      Clock
	log        Logger
	nativeSeed func(*NativeTable)

	nextThread int64
	value      Value

	// excludeClasses lists pseudo-object classes backed by host resources;
	// the snapshot encoder replaces references to them with null.
	excludeClasses map[string]bool
	// pruneLists lists per-class property names the encoder omits.
	pruneLists map[string][]string
}

// New creates a fully initialized interpreter: built-in natives registered,
// prototypes built, global environment seeded. The result is also the
// pre-initialized target Restore requires.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		natives:  NewNativeTable(),
		registry: NewRegistry(),
		clock:    SystemClock{},
		log:      nopLogger{},
		excludeClasses: map[string]bool{
			ClassServer:     true,
			ClassConnection: true,
		},
		pruneLists: map[string][]string{
			ClassServer:     {"socket"},
			ClassConnection: {"socket"},
		},
	}
	for _, opt := range opts {
		opt(i)
	}
	i.sched = newScheduler(i)
	i.setupGlobals()
	if i.nativeSeed != nil {
		i.nativeSeed(i.natives)
		// Late-seeded natives still need Function.prototype.
		for _, id := range i.natives.IDs() {
			fn := i.natives.Lookup(id)
			if fn.Proto() == nil {
				fn.SetProto(i.protos.Function)
			}
		}
	}
	return i
}

// Registry returns the interpreter's name ↔ object registry.
func (i *Interpreter) Registry() *Registry { return i.registry }

// Natives returns the interpreter's native-function table.
func (i *Interpreter) Natives() *NativeTable { return i.natives }

// Global returns the global scope.
func (i *Interpreter) Global() *Scope { return i.global }

// Scheduler returns the thread scheduler.
func (i *Interpreter) Scheduler() *Scheduler { return i.sched }

// Value returns the completion value of the most recently finished thread.
func (i *Interpreter) Value() Value {
	if i.value == nil {
		return Undefined{}
	}
	return i.value
}

// Clock returns the host clock.
func (i *Interpreter) Clock() Clock { return i.clock }

// ---------------------------------------------------------------------------
// Program loading and threads
// ---------------------------------------------------------------------------

// LoadProgram hoists the program's declarations into the global scope and
// spawns a thread that will run its body.
func (i *Interpreter) LoadProgram(prog *ast.Program) *Thread {
	i.programs = append(i.programs, prog)
	i.global.Populate(prog, prog)
	t := i.newThread()
	t.cur = newState(nil, i.global, prog, prog)
	i.sched.add(t)
	return t
}

// LoadJSON parses an ESTree JSON document and loads it.
func (i *Interpreter) LoadJSON(src string) (*Thread, error) {
	prog, err := ast.ParseJSON(src)
	if err != nil {
		return nil, err
	}
	return i.LoadProgram(prog), nil
}

// Eval loads a program and drives the scheduler until its thread finishes
// or maxSteps is exhausted. Other threads keep making progress meanwhile;
// stretches where every thread sleeps don't count against the budget.
func (i *Interpreter) Eval(src string, maxSteps int) (Value, error) {
	t, err := i.LoadJSON(src)
	if err != nil {
		return nil, err
	}
	const slice = 1000
	steps := 0
	for t.Status() != StatusDone {
		if steps >= maxSteps {
			return nil, fmt.Errorf("interp: eval exceeded %d steps", maxSteps)
		}
		if i.sched.RunnableCount() == 0 {
			if !i.sched.alive() {
				break
			}
			if wake := i.sched.NextWake(); wake > 0 {
				if delay := wake - i.clock.NowMillis(); delay > 0 {
					time.Sleep(time.Duration(delay) * time.Millisecond)
				}
				i.sched.Tick(slice)
				continue
			}
			// Only blocked threads remain; nothing can wake them here.
			return nil, fmt.Errorf("interp: eval deadlocked on blocked threads")
		}
		i.sched.Tick(slice)
		steps += slice
	}
	if t.Uncaught() != nil {
		return nil, fmt.Errorf("interp: uncaught %s", ToString(t.Uncaught()))
	}
	return t.Value(), nil
}

// SpawnFunction spawns a thread that invokes fn with the given arguments.
func (i *Interpreter) SpawnFunction(fn *Object, args []Value) (*Thread, *UserError) {
	if !fn.Callable() {
		return nil, NewTypeError("spawn target is not a function")
	}
	t := i.newThread()
	call := &stateCall{
		stateCommon: stateCommon{parent: nil, scope: i.global, prog: fn.FuncData().Prog},
		fn:          fn,
		haveFn:      true,
		argv:        args,
	}
	t.cur = call
	i.sched.add(t)
	return t, nil
}

func (i *Interpreter) newThread() *Thread {
	i.nextThread++
	return &Thread{
		id:     i.nextThread,
		status: StatusRunnable,
		interp: i,
	}
}

// Step advances the current thread by a single step.
func (i *Interpreter) Step() bool {
	return i.sched.Tick(1)
}

// Tick advances the scheduler by one slice of at most budget steps.
func (i *Interpreter) Tick(budget int) bool {
	return i.sched.Tick(budget)
}

// Run ticks the scheduler until no thread can make progress or the total
// step budget runs out.
func (i *Interpreter) Run(budget int) {
	const slice = 1000
	for spent := 0; spent < budget; spent += slice {
		if !i.sched.Tick(slice) {
			return
		}
	}
}

// Kill cancels a thread. Its finally blocks do not run.
func (i *Interpreter) Kill(id int64) bool {
	return i.sched.Kill(id)
}

// NotifyReady reports a host resource ready, unblocking the threads parked
// on it.
func (i *Interpreter) NotifyReady(blocker string) {
	i.sched.NotifyReady(blocker)
}

// reportUncaught is called when a throw unwinds past a thread's root.
func (i *Interpreter) reportUncaught(t *Thread, v Value) {
	i.value = t.value
	i.log.Errorf("thread %d died on uncaught %s", t.id, ToString(v))
}

// ---------------------------------------------------------------------------
// Object construction helpers
// ---------------------------------------------------------------------------

// newFunction builds a source-defined function object closing over scope.
func (i *Interpreter) newFunction(params []*ast.Identifier, body *ast.BlockStatement, nodeID int, prog *ast.Program, scope *Scope) *Object {
	names := make([]string, len(params))
	for idx, p := range params {
		names[idx] = p.Name
	}
	fn := NewTagged(i.protos.Function, ClassFunction)
	fn.SetData(&FunctionData{
		Params: names,
		Body:   body,
		Node:   nodeID,
		Prog:   prog,
		Scope:  scope,
	})
	fn.DefineOwn("length", &Property{Value: Number(len(names))})
	proto := NewObject(i.protos.Object)
	proto.DefineOwn("constructor", &Property{Value: fn, Writable: true, Configurable: true})
	fn.DefineOwn("prototype", &Property{Value: proto, Writable: true})
	return fn
}

// NewArray creates an empty Array-class object.
func (i *Interpreter) NewArray() *Object {
	arr := NewTagged(i.protos.Array, ClassArray)
	arr.DefineOwn("length", &Property{Value: Number(0), Writable: true})
	return arr
}

// NewArrayOf creates an Array-class object holding the given elements.
func (i *Interpreter) NewArrayOf(elems ...Value) *Object {
	arr := i.NewArray()
	for idx, v := range elems {
		arr.Set(strconv.Itoa(idx), v)
	}
	return arr
}

// newArguments builds the arguments object for a call.
func (i *Interpreter) newArguments(argv []Value) *Object {
	args := NewTagged(i.protos.Object, ClassArguments)
	for idx, v := range argv {
		args.Set(strconv.Itoa(idx), v)
	}
	args.DefineOwn("length", &Property{Value: Number(len(argv)), Writable: true})
	return args
}

// NewDate creates a Date-class object from Unix milliseconds.
func (i *Interpreter) NewDate(ms float64) *Object {
	d := NewTagged(i.protos.Date, ClassDate)
	d.SetData(&DateData{Ms: ms})
	return d
}

// NewRegExp compiles a regular expression object. The pattern uses the
// language's dialect, which regexp2 supports directly.
func (i *Interpreter) NewRegExp(pattern, flags string) (*Object, *UserError) {
	var opts regexp2.RegexOptions = regexp2.ECMAScript
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 'g':
			// Global matching is driven by lastIndex at call sites.
		default:
			return nil, NewSyntaxError("unsupported regular expression flag " + string(f))
		}
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, NewSyntaxError("invalid regular expression: " + err.Error())
	}
	obj := NewTagged(i.protos.RegExp, ClassRegExp)
	obj.SetData(&RegExpData{Source: pattern, Flags: flags, Re: re})
	obj.DefineOwn("lastIndex", &Property{Value: Number(0), Writable: true})
	return obj, nil
}

// NewThreadHandle wraps a thread in its Thread-class pseudo-object.
func (i *Interpreter) NewThreadHandle(t *Thread) *Object {
	obj := NewTagged(i.protos.Thread, ClassThread)
	obj.SetData(&ThreadRef{ID: t.id})
	obj.DefineOwn("id", &Property{Value: Number(t.id), Enumerable: true})
	return obj
}

// NewError builds an Error-class object of the named error class.
func (i *Interpreter) NewError(name, message string) *Object {
	proto := i.protos.ErrorByName[name]
	if proto == nil {
		proto = i.protos.Error
	}
	e := NewTagged(proto, ClassError)
	e.Set("message", String(message))
	return e
}

// makeError converts an engine-raised UserError into its pseudo-object.
func (i *Interpreter) makeError(ue *UserError) Value {
	return i.NewError(ue.Name, ue.Message)
}

// ---------------------------------------------------------------------------
// Numeric helpers shared by builtins
// ---------------------------------------------------------------------------

func argAt(args []Value, idx int) Value {
	if idx < len(args) {
		return args[idx]
	}
	return Undefined{}
}

func argNumber(args []Value, idx int) float64 {
	return float64(ToNumber(argAt(args, idx)))
}

func argString(args []Value, idx int) string {
	return string(ToString(argAt(args, idx)))
}

func argInt(args []Value, idx int) int {
	f := argNumber(args, idx)
	if math.IsNaN(f) {
		return 0
	}
	return int(f)
}
