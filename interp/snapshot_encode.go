package interp

import (
	"math"

	"github.com/chazu/warren/ast"
)

// Snapshot serializes the entire live interpreter state — pseudo-heap,
// scopes, suspended state trees, threads, registry, loaded programs — to a
// self-contained record array. Record 0 is the interpreter root. Traversal
// is depth-first with first-visit numbering, so identical heaps built in
// the same order produce identical snapshots. References to excluded
// host-resource objects encode as null.
func (i *Interpreter) Snapshot() []Record {
	e := &encoder{
		interp:      i,
		objIndex:    make(map[*Object]int),
		scopeIndex:  make(map[*Scope]int),
		stateIndex:  make(map[state]int),
		threadIndex: make(map[*Thread]int),
		progIndex:   make(map[*ast.Program]int),
	}
	e.encodeRoot()
	out := make([]Record, len(e.records))
	for idx, r := range e.records {
		out[idx] = *r
	}
	return out
}

type encoder struct {
	interp  *Interpreter
	records []*Record

	objIndex    map[*Object]int
	scopeIndex  map[*Scope]int
	stateIndex  map[state]int
	threadIndex map[*Thread]int
	progIndex   map[*ast.Program]int
}

// alloc reserves the next record index. The record is filled after its
// index is fixed so cyclic structures encode as back-references.
func (e *encoder) alloc() (*Record, int) {
	rec := &Record{}
	idx := len(e.records)
	e.records = append(e.records, rec)
	return rec, idx
}

func (e *encoder) encodeRoot() {
	rec, _ := e.alloc()
	rec.Type = "Interpreter"
	rec.Version = SnapshotVersion

	i := e.interp
	s := i.sched

	threads := make([]interface{}, 0, len(s.threads))
	for _, t := range s.threads {
		threads = append(threads, Ref{e.refThread(t)})
	}
	runnable := make([]interface{}, 0, len(s.runnable))
	for _, t := range s.runnable {
		runnable = append(runnable, Ref{e.refThread(t)})
	}
	programs := make([]interface{}, 0, len(i.programs))
	for _, p := range i.programs {
		programs = append(programs, Ref{e.refProg(p)})
	}

	value := i.value
	if value == nil {
		value = Undefined{}
	}
	rec.Props = PropList{
		{K: "value", V: e.encodeValue(value)},
		{K: "nextThread", V: float64(i.nextThread)},
		{K: "global", V: Ref{e.refScope(i.global)}},
		{K: "registry", V: Ref{e.refRegistry()}},
		{K: "programs", V: programs},
		{K: "threads", V: threads},
		{K: "runnable", V: runnable},
	}
}

// encodeValue renders a value as a record-embeddable scalar or reference.
func (e *encoder) encodeValue(v Value) interface{} {
	switch x := v.(type) {
	case nil, Undefined:
		return undefinedScalar()
	case Null:
		return nil
	case Boolean:
		return bool(x)
	case Number:
		f := float64(x)
		switch {
		case x.IsNaN():
			return numberScalar("NaN")
		case math.IsInf(f, 1):
			return numberScalar("Infinity")
		case math.IsInf(f, -1):
			return numberScalar("-Infinity")
		case x.IsNegZero():
			return numberScalar("-0")
		default:
			return f
		}
	case String:
		return string(x)
	case *Object:
		if e.interp.excludeClasses[x.Class()] {
			return nil
		}
		return Ref{e.refObject(x)}
	default:
		return undefinedScalar()
	}
}

// ---------------------------------------------------------------------------
// Pseudo-objects
// ---------------------------------------------------------------------------

// recordTypeFor maps a class tag to its record type tag.
func recordTypeFor(class string) string {
	switch class {
	case ClassWeakMap:
		return "IterableWeakMap"
	case ClassWeakSet:
		return "IterableWeakSet"
	case ClassThread:
		return "ThreadHandle"
	default:
		return class
	}
}

func (e *encoder) refObject(o *Object) int {
	if idx, ok := e.objIndex[o]; ok {
		return idx
	}
	rec, idx := e.alloc()
	e.objIndex[o] = idx

	i := e.interp

	// Native functions serialize as bare ID references; their identity is
	// re-established from the table at decode.
	if id := i.natives.IDOf(o); id != "" {
		rec.Type = "Function"
		rec.ID = id
		return idx
	}

	rec.Type = recordTypeFor(o.Class())
	if name := i.registry.NameOf(o); name != "" {
		rec.Name = name
	}

	def := i.defaultProtoFor(o.Class())
	if o.Proto() != def {
		if o.Proto() == nil {
			rec.ProtoNull = true
		} else {
			rec.Proto = &Ref{e.refObject(o.Proto())}
		}
	}

	pruned := i.pruneLists[o.Class()]
	for _, key := range o.OwnKeys() {
		if inList(pruned, key) {
			continue
		}
		p := o.GetOwn(key)
		rec.Props = append(rec.Props, PropEntry{K: key, V: e.encodeValue(p.Value)})
		if !p.Configurable {
			rec.NonConfigurable = append(rec.NonConfigurable, key)
		}
		if !p.Enumerable {
			rec.NonEnumerable = append(rec.NonEnumerable, key)
		}
		if !p.Writable {
			rec.NonWritable = append(rec.NonWritable, key)
		}
	}
	if !o.Extensible() {
		f := false
		rec.Extensible = &f
	}

	switch data := o.Data().(type) {
	case *FunctionData:
		rec.Data = map[string]interface{}{
			"node":  e.nodeRef(data.Prog, data.Node),
			"scope": Ref{e.refScope(data.Scope)},
		}
	case *DateData:
		if math.IsNaN(data.Ms) {
			rec.Data = nil
		} else {
			rec.Data = data.Time().Format("2006-01-02T15:04:05.000Z")
		}
	case *RegExpData:
		rec.Source = data.Source
		rec.Flags = data.Flags
	case *ThreadRef:
		rec.Data = float64(data.ID)
	case *WeakMapData:
		entries := make([][2]interface{}, 0, data.Size())
		data.Each(func(key *Object, v Value) {
			entries = append(entries, [2]interface{}{Ref{e.refObject(key)}, e.encodeValue(v)})
		})
		rec.Entries = entries
	case *WeakSetData:
		members := make([]interface{}, 0, data.Size())
		data.Each(func(key *Object) {
			members = append(members, Ref{e.refObject(key)})
		})
		rec.Data = members
	}
	return idx
}

func inList(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// defaultProtoFor returns the prototype a class tag implies; records omit
// the proto field when it matches.
func (i *Interpreter) defaultProtoFor(class string) *Object {
	p := &i.protos
	switch class {
	case ClassFunction:
		return p.Function
	case ClassArray:
		return p.Array
	case ClassDate:
		return p.Date
	case ClassRegExp:
		return p.RegExp
	case ClassError:
		return p.Error
	case ClassWeakMap:
		return p.WeakMap
	case ClassWeakSet:
		return p.WeakSet
	case ClassThread:
		return p.Thread
	case ClassServer:
		return p.Server
	case ClassConnection:
		return p.Connection
	default:
		return p.Object
	}
}

// ---------------------------------------------------------------------------
// Scopes, registry, programs, threads
// ---------------------------------------------------------------------------

func (e *encoder) refScope(s *Scope) int {
	if idx, ok := e.scopeIndex[s]; ok {
		return idx
	}
	rec, idx := e.alloc()
	e.scopeIndex[s] = idx
	rec.Type = "Scope"
	for _, name := range s.names {
		rec.Props = append(rec.Props, PropEntry{K: name, V: e.encodeValue(s.vars[name])})
	}
	extra := map[string]interface{}{}
	if s.parent != nil {
		extra["parent"] = Ref{e.refScope(s.parent)}
	}
	if s.hasThis {
		extra["this"] = e.encodeValue(s.this)
	}
	if len(extra) > 0 {
		rec.Data = extra
	}
	return idx
}

func (e *encoder) refRegistry() int {
	rec, idx := e.alloc()
	rec.Type = "Registry"
	r := e.interp.registry
	entries := make([][2]interface{}, 0, r.Len())
	for _, name := range r.names {
		entries = append(entries, [2]interface{}{name, Ref{e.refObject(r.byName[name])}})
	}
	rec.Entries = entries
	return idx
}

func (e *encoder) refProg(p *ast.Program) int {
	if idx, ok := e.progIndex[p]; ok {
		return idx
	}
	rec, idx := e.alloc()
	e.progIndex[p] = idx
	rec.Type = "AST-Node"
	rec.Data = p.Source
	return idx
}

// nodeRef encodes an AST node reference as [program ref, node id].
func (e *encoder) nodeRef(p *ast.Program, nodeID int) interface{} {
	return []interface{}{Ref{e.refProg(p)}, float64(nodeID)}
}

func (e *encoder) refThread(t *Thread) int {
	if idx, ok := e.threadIndex[t]; ok {
		return idx
	}
	rec, idx := e.alloc()
	e.threadIndex[t] = idx
	rec.Type = "Thread"

	props := PropList{
		{K: "id", V: float64(t.id)},
		{K: "status", V: string(t.status)},
	}
	if t.killed {
		props = append(props, PropEntry{K: "killed", V: true})
	}
	if t.wakeAt != 0 {
		props = append(props, PropEntry{K: "wakeAt", V: float64(t.wakeAt)})
	}
	if t.blocker != "" {
		props = append(props, PropEntry{K: "blocker", V: t.blocker})
	}
	if t.value != nil {
		props = append(props, PropEntry{K: "value", V: e.encodeValue(t.value)})
	}
	if t.uncaught != nil {
		props = append(props, PropEntry{K: "uncaught", V: e.encodeValue(t.uncaught)})
	}
	if t.pending != nil {
		props = append(props, PropEntry{K: "pendingKind", V: t.pending.kind.String()})
		if t.pending.label != "" {
			props = append(props, PropEntry{K: "pendingLabel", V: t.pending.label})
		}
		if t.pending.value != nil {
			props = append(props, PropEntry{K: "pendingValue", V: e.encodeValue(t.pending.value)})
		}
	}
	if t.cur != nil {
		props = append(props, PropEntry{K: "cur", V: Ref{e.refState(t.cur)}})
	}
	rec.Props = props
	return idx
}
