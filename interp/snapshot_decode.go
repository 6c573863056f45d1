package interp

import (
	"container/heap"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/chazu/warren/ast"
)

// Restore rehydrates a snapshot into this interpreter. The interpreter
// must be pre-initialized (New) with the same native-function table the
// snapshot was taken against. Decode is all-or-nothing: on error the
// interpreter keeps its pre-decode state.
func (i *Interpreter) Restore(records []Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = decodeErrf(DecodeType, "malformed snapshot: %v", r)
		}
	}()

	if len(records) == 0 {
		return decodeErrf(DecodeShape, "empty record array")
	}
	root := records[0]
	if root.Type != "Interpreter" {
		return decodeErrf(DecodeShape, "record 0 is %q, want Interpreter", root.Type)
	}
	if root.Version != 0 && root.Version != SnapshotVersion {
		return decodeErrf(DecodeShape, "unsupported snapshot version %d", root.Version)
	}

	d := &decoder{
		interp:     i,
		records:    records,
		objects:    make(map[int]*Object),
		scopes:     make(map[int]*Scope),
		threads:    make(map[int]*Thread),
		progs:      make(map[int]*ast.Program),
		registries: make(map[int]*Registry),
		states:     make(map[int]state),
		inProgress: make(map[int]bool),
		reused:     make(map[int]bool),
	}

	if err := d.stubs(); err != nil {
		return err
	}
	if err := d.validateRefs(); err != nil {
		return err
	}
	if err := d.validateProtoChains(); err != nil {
		return err
	}
	for idx := range records {
		if records[idx].Type == "State" {
			if _, err := d.materializeState(idx); err != nil {
				return err
			}
		}
	}

	// Everything below mutates only decoded instances until commit, with
	// one exception: records anchored to a registry name reuse the live
	// singleton, so their property overwrite is deferred to last.
	d.populateFresh()

	global, registry, err := d.rootInstances()
	if err != nil {
		return err
	}

	d.populateReused()
	d.commit(global, registry)
	return nil
}

type decoder struct {
	interp  *Interpreter
	records []Record

	objects    map[int]*Object
	scopes     map[int]*Scope
	threads    map[int]*Thread
	progs      map[int]*ast.Program
	registries map[int]*Registry
	states     map[int]state
	inProgress map[int]bool
	// reused marks records whose instance is a live builtin singleton.
	reused map[int]bool
}

// ---------------------------------------------------------------------------
// Pass 1: stubs
// ---------------------------------------------------------------------------

// classForRecordType maps a record type tag back to its class tag, or ""
// for non-pseudo-object records.
func classForRecordType(typ string) string {
	switch typ {
	case "IterableWeakMap":
		return ClassWeakMap
	case "IterableWeakSet":
		return ClassWeakSet
	case "ThreadHandle":
		return ClassThread
	case "Object", "Function", "Array", "Date", "RegExp", "Error",
		"Arguments", "Box", "Server", "Connection":
		return typ
	default:
		return ""
	}
}

func (d *decoder) stubs() error {
	i := d.interp
	for idx := range d.records {
		rec := &d.records[idx]
		if idx == 0 {
			continue
		}
		switch rec.Type {
		case "Interpreter":
			return decodeErrf(DecodeShape, "record %d duplicates the interpreter root", idx)

		case "Scope":
			d.scopes[idx] = NewScope(nil, i)

		case "Thread":
			d.threads[idx] = &Thread{interp: i}

		case "Registry":
			d.registries[idx] = NewRegistry()

		case "AST-Node":
			src, ok := rec.Data.(string)
			if !ok {
				return decodeErrf(DecodeType, "record %d: AST-Node without source", idx)
			}
			prog, err := ast.ParseJSON(src)
			if err != nil {
				return decodeErrf(DecodeType, "record %d: %v", idx, err)
			}
			d.progs[idx] = prog

		case "State":
			// Materialized after stubs; nothing to allocate yet.

		case "Function":
			if rec.ID != "" {
				fn := i.natives.Lookup(rec.ID)
				if fn == nil {
					return decodeErrf(DecodeRange, "unknown native function %q", rec.ID)
				}
				d.objects[idx] = fn
				d.reused[idx] = true
				continue
			}
			d.stubObject(idx, rec, ClassFunction)

		default:
			class := classForRecordType(rec.Type)
			if class == "" {
				return decodeErrf(DecodeType, "record %d: unknown type %q", idx, rec.Type)
			}
			if err := d.stubPayload(idx, rec, class); err != nil {
				return err
			}
		}
	}
	return nil
}

// stubObject allocates (or reuses) the pseudo-object for a record.
func (d *decoder) stubObject(idx int, rec *Record, class string) *Object {
	if rec.Name != "" {
		if existing := d.interp.registry.Lookup(rec.Name); existing != nil {
			d.objects[idx] = existing
			d.reused[idx] = true
			return existing
		}
	}
	o := NewTagged(nil, class)
	d.objects[idx] = o
	return o
}

// stubPayload allocates the object and its class-specific internal slots,
// validating the payloads that can be validated early.
func (d *decoder) stubPayload(idx int, rec *Record, class string) error {
	o := d.stubObject(idx, rec, class)
	switch class {
	case ClassDate:
		if rec.Data == nil {
			o.SetData(&DateData{Ms: math.NaN()})
			return nil
		}
		iso, ok := rec.Data.(string)
		if !ok {
			return decodeErrf(DecodeType, "record %d: Date payload is %T", idx, rec.Data)
		}
		ts, err := time.Parse("2006-01-02T15:04:05.000Z", iso)
		if err != nil {
			return decodeErrf(DecodeType, "record %d: invalid Date %q", idx, iso)
		}
		o.SetData(&DateData{Ms: float64(ts.UnixMilli())})
	case ClassRegExp:
		fresh, uerr := d.interp.NewRegExp(rec.Source, rec.Flags)
		if uerr != nil {
			return decodeErrf(DecodeType, "record %d: %s", idx, uerr.Message)
		}
		o.SetData(fresh.Data())
	case ClassWeakMap:
		o.SetData(NewWeakMapData())
	case ClassWeakSet:
		o.SetData(NewWeakSetData())
	case ClassThread:
		o.SetData(&ThreadRef{ID: int64(d.asNumber(rec.Data))})
	case ClassServer, ClassConnection:
		// Host resources are excluded from snapshots; if a record claims
		// one anyway, its backing stays nil until the host reconnects.
		o.SetData(&SocketData{})
	}
	return nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

func (d *decoder) validateRefs() error {
	n := len(d.records)
	var check func(v interface{}) error
	check = func(v interface{}) error {
		switch x := v.(type) {
		case Ref:
			if x.N < 0 || x.N >= n {
				return decodeErrf(DecodeReference, "dangling reference %d", x.N)
			}
		case *Ref:
			if x != nil {
				return check(*x)
			}
		case []interface{}:
			for _, e := range x {
				if err := check(e); err != nil {
					return err
				}
			}
		case map[string]interface{}:
			if ref, ok := d.asRef(x); ok {
				if ref < 0 || ref >= n {
					return decodeErrf(DecodeReference, "dangling reference %d", ref)
				}
				return nil
			}
			for _, e := range x {
				if err := check(e); err != nil {
					return err
				}
			}
		case [2]interface{}:
			if err := check(x[0]); err != nil {
				return err
			}
			return check(x[1])
		}
		return nil
	}

	for idx := range d.records {
		rec := &d.records[idx]
		if rec.Proto != nil {
			if err := check(*rec.Proto); err != nil {
				return err
			}
		}
		for _, p := range rec.Props {
			if err := check(p.V); err != nil {
				return err
			}
		}
		for _, pair := range rec.Entries {
			if err := check(pair); err != nil {
				return err
			}
		}
		if err := check(rec.Data); err != nil {
			return err
		}
	}
	return nil
}

// validateProtoChains rejects snapshots whose explicit proto references
// form a cycle.
func (d *decoder) validateProtoChains() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(d.records))
	var visit func(idx int) error
	visit = func(idx int) error {
		if color[idx] == black {
			return nil
		}
		if color[idx] == gray {
			return decodeErrf(DecodeType, "prototype cycle through record %d", idx)
		}
		color[idx] = gray
		if p := d.records[idx].Proto; p != nil {
			if err := visit(p.N); err != nil {
				return err
			}
		}
		color[idx] = black
		return nil
	}
	for idx := range d.records {
		if err := visit(idx); err != nil {
			return err
		}
	}
	return nil
}

// rootInstances resolves the root record's global scope and registry.
func (d *decoder) rootInstances() (*Scope, *Registry, error) {
	props := d.records[0].Props
	gidx, ok := d.asRef(props.Get("global"))
	if !ok {
		return nil, nil, decodeErrf(DecodeShape, "root record missing global scope")
	}
	global, ok := d.scopes[gidx]
	if !ok {
		return nil, nil, decodeErrf(DecodeShape, "root global is not a Scope record")
	}
	ridx, ok := d.asRef(props.Get("registry"))
	if !ok {
		return nil, nil, decodeErrf(DecodeShape, "root record missing registry")
	}
	registry, ok := d.registries[ridx]
	if !ok {
		return nil, nil, decodeErrf(DecodeShape, "root registry is not a Registry record")
	}
	return global, registry, nil
}

// ---------------------------------------------------------------------------
// Pass 2: populate
// ---------------------------------------------------------------------------

func (d *decoder) populateFresh() {
	for idx := range d.records {
		if idx == 0 || d.reused[idx] {
			continue
		}
		d.populateOne(idx)
	}
}

func (d *decoder) populateReused() {
	for idx := range d.records {
		if d.reused[idx] && d.records[idx].ID == "" {
			d.populateOne(idx)
		}
	}
}

func (d *decoder) populateOne(idx int) {
	rec := &d.records[idx]
	switch rec.Type {
	case "Scope":
		d.populateScope(d.scopes[idx], rec)
	case "Thread":
		d.populateThread(d.threads[idx], rec)
	case "Registry":
		r := d.registries[idx]
		for _, pair := range rec.Entries {
			name, _ := pair[0].(string)
			if name == "" {
				continue
			}
			if oidx, ok := d.asRef(pair[1]); ok {
				if obj := d.objects[oidx]; obj != nil {
					r.Bind(name, obj)
				}
			}
		}
	case "AST-Node", "State":
		// Fully built during stubs / materialization.
	default:
		if o := d.objects[idx]; o != nil {
			d.populateObject(o, rec)
		}
	}
}

func (d *decoder) populateScope(s *Scope, rec *Record) {
	for _, p := range rec.Props {
		s.SetLocal(p.K, d.asValue(p.V))
	}
	extra, _ := rec.Data.(map[string]interface{})
	if extra == nil {
		if m, ok := rec.Data.(map[interface{}]interface{}); ok {
			extra = make(map[string]interface{}, len(m))
			for k, v := range m {
				if ks, ok := k.(string); ok {
					extra[ks] = v
				}
			}
		}
	}
	if extra != nil {
		if pidx, ok := d.asRef(extra["parent"]); ok {
			s.parent = d.scopes[pidx]
		}
		if tv, ok := extra["this"]; ok {
			s.BindThis(d.asValue(tv))
		}
	}
}

func (d *decoder) populateThread(t *Thread, rec *Record) {
	props := rec.Props
	t.id = int64(d.asNumber(props.Get("id")))
	status, _ := props.Get("status").(string)
	t.status = ThreadStatus(status)
	if t.status == "" {
		t.status = StatusDone
	}
	t.wakeAt = int64(d.asNumber(props.Get("wakeAt")))
	t.blocker, _ = props.Get("blocker").(string)
	t.killed, _ = props.Get("killed").(bool)
	if props.Has("value") {
		t.value = d.asValue(props.Get("value"))
	}
	if props.Has("uncaught") {
		t.uncaught = d.asValue(props.Get("uncaught"))
	}
	if k, ok := props.Get("pendingKind").(string); ok && k != "" {
		c := &completion{kind: completionKindOf(k)}
		c.label, _ = props.Get("pendingLabel").(string)
		if props.Has("pendingValue") {
			c.value = d.asValue(props.Get("pendingValue"))
		}
		t.pending = c
	}
	if sidx, ok := d.asRef(props.Get("cur")); ok {
		t.cur = d.states[sidx]
	}
}

func (d *decoder) populateObject(o *Object, rec *Record) {
	// Reset, then rebuild: reused singletons take the snapshot's shape.
	o.keys = nil
	o.props = make(map[string]*Property)
	o.extensible = true

	switch {
	case rec.ProtoNull:
		o.proto = nil
	case rec.Proto != nil:
		o.proto = d.objects[rec.Proto.N]
	default:
		o.proto = d.interp.defaultProtoFor(o.Class())
	}

	for _, p := range rec.Props {
		prop := &Property{
			Value:        d.asValue(p.V),
			Writable:     !inList(rec.NonWritable, p.K),
			Enumerable:   !inList(rec.NonEnumerable, p.K),
			Configurable: !inList(rec.NonConfigurable, p.K),
		}
		o.defineOwn(p.K, prop)
	}

	switch o.Class() {
	case ClassFunction:
		d.populateFunction(o, rec)
	case ClassWeakMap:
		data := o.Data().(*WeakMapData)
		for _, pair := range rec.Entries {
			if kidx, ok := d.asRef(pair[0]); ok {
				if key := d.objects[kidx]; key != nil {
					data.Set(key, d.asValue(pair[1]))
				}
			}
		}
	case ClassWeakSet:
		data := o.Data().(*WeakSetData)
		if members, ok := rec.Data.([]interface{}); ok {
			for _, m := range members {
				if kidx, ok := d.asRef(m); ok {
					if key := d.objects[kidx]; key != nil {
						data.Add(key)
					}
				}
			}
		}
	}

	if rec.Extensible != nil && !*rec.Extensible {
		o.extensible = false
	}
}

// populateFunction wires a source-defined function's internal slots from
// its record payload.
func (d *decoder) populateFunction(o *Object, rec *Record) {
	payload, ok := rec.Data.(map[string]interface{})
	if !ok {
		if m, isM := rec.Data.(map[interface{}]interface{}); isM {
			payload = make(map[string]interface{}, len(m))
			for k, v := range m {
				if ks, isS := k.(string); isS {
					payload[ks] = v
				}
			}
		}
	}
	if payload == nil {
		return
	}
	prog, node, err := d.nodeAt(payload["node"])
	if err != nil {
		return
	}
	var params []*ast.Identifier
	var body *ast.BlockStatement
	var nodeID int
	switch fn := node.(type) {
	case *ast.FunctionExpression:
		params, body, nodeID = fn.Params, fn.Body, fn.NodeID()
	case *ast.FunctionDeclaration:
		params, body, nodeID = fn.Params, fn.Body, fn.NodeID()
	default:
		return
	}
	names := make([]string, len(params))
	for i2, p := range params {
		names[i2] = p.Name
	}
	var scope *Scope
	if sidx, ok := d.asRef(payload["scope"]); ok {
		scope = d.scopes[sidx]
	}
	o.SetData(&FunctionData{
		Params: names,
		Body:   body,
		Node:   nodeID,
		Prog:   prog,
		Scope:  scope,
	})
}

// ---------------------------------------------------------------------------
// Commit
// ---------------------------------------------------------------------------

func (d *decoder) commit(global *Scope, registry *Registry) {
	i := d.interp
	props := d.records[0].Props

	i.global = global
	i.registry = registry
	i.value = d.asValue(props.Get("value"))
	i.nextThread = int64(d.asNumber(props.Get("nextThread")))

	i.programs = nil
	if list, ok := props.Get("programs").([]interface{}); ok {
		for _, pv := range list {
			if pidx, ok := d.asRef(pv); ok {
				if prog := d.progs[pidx]; prog != nil {
					i.programs = append(i.programs, prog)
				}
			}
		}
	}

	// Rebuild the scheduler: threads re-enter their queues by recorded
	// status; runnable order is preserved explicitly.
	i.sched = newScheduler(i)
	if list, ok := props.Get("threads").([]interface{}); ok {
		for _, tv := range list {
			tidx, ok := d.asRef(tv)
			if !ok {
				continue
			}
			t := d.threads[tidx]
			if t == nil || t.status == StatusDone {
				continue
			}
			i.sched.threads = append(i.sched.threads, t)
			i.sched.byID[t.id] = t
			switch t.status {
			case StatusSleeping:
				heap.Push(&i.sched.sleepers, t)
			case StatusBlocked:
				i.sched.blocked[t.blocker] = append(i.sched.blocked[t.blocker], t)
			}
		}
	}
	if list, ok := props.Get("runnable").([]interface{}); ok {
		for _, tv := range list {
			if tidx, ok := d.asRef(tv); ok {
				if t := d.threads[tidx]; t != nil && t.status == StatusRunnable {
					i.sched.runnable = append(i.sched.runnable, t)
				}
			}
		}
	}

	i.postDeserialize()
}

// postDeserialize re-anchors the prototype singletons from the restored
// registry. Host resources stay disconnected until the host reconnects
// them.
func (i *Interpreter) postDeserialize() {
	bind := func(name string, target **Object) {
		if o := i.registry.Lookup(name); o != nil {
			*target = o
		}
	}
	p := &i.protos
	bind("Object.prototype", &p.Object)
	bind("Function.prototype", &p.Function)
	bind("Array.prototype", &p.Array)
	bind("Date.prototype", &p.Date)
	bind("RegExp.prototype", &p.RegExp)
	bind("String.prototype", &p.String)
	bind("Number.prototype", &p.Number)
	bind("Boolean.prototype", &p.Boolean)
	bind("Thread.prototype", &p.Thread)
	bind("WeakMap.prototype", &p.WeakMap)
	bind("WeakSet.prototype", &p.WeakSet)
	bind("Server.prototype", &p.Server)
	bind("Connection.prototype", &p.Connection)
	for _, name := range errorClassNames {
		if o := i.registry.Lookup(name + ".prototype"); o != nil {
			p.ErrorByName[name] = o
		}
	}
	bind("Error.prototype", &p.Error)
}

// ---------------------------------------------------------------------------
// Raw-value helpers
// ---------------------------------------------------------------------------

// asRef extracts a record index from any transported reference shape.
func (d *decoder) asRef(v interface{}) (int, bool) {
	switch x := v.(type) {
	case Ref:
		return x.N, true
	case *Ref:
		if x == nil {
			return 0, false
		}
		return x.N, true
	case map[string]interface{}:
		if len(x) == 1 {
			if n, ok := x["#"]; ok {
				return int(d.asNumber(n)), true
			}
		}
	case map[interface{}]interface{}:
		if len(x) == 1 {
			if n, ok := x["#"]; ok {
				return int(d.asNumber(n)), true
			}
		}
	}
	return 0, false
}

func (d *decoder) asNumber(v interface{}) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case json.Number:
		f, _ := x.Float64()
		return f
	default:
		return 0
	}
}

// asValue interprets a transported scalar or reference as a Value.
func (d *decoder) asValue(v interface{}) Value {
	switch x := v.(type) {
	case nil:
		return Null{}
	case bool:
		return Boolean(x)
	case float64, float32, int, int64, uint64, json.Number:
		return Number(d.asNumber(x))
	case string:
		return String(x)
	default:
		if idx, ok := d.asRef(v); ok {
			if o := d.objects[idx]; o != nil {
				return o
			}
			return Undefined{}
		}
		if name, ok := specialScalar(v); ok {
			switch name {
			case "undefined":
				return Undefined{}
			case "NaN":
				return Number(math.NaN())
			case "Infinity":
				return Number(math.Inf(1))
			case "-Infinity":
				return Number(math.Inf(-1))
			case "-0":
				return Number(math.Copysign(0, -1))
			}
		}
		return Undefined{}
	}
}

// specialScalar recognizes the {"Value": ...} / {"Number": ...} encodings.
func specialScalar(v interface{}) (string, bool) {
	get := func(m map[string]interface{}) (string, bool) {
		if len(m) != 1 {
			return "", false
		}
		if s, ok := m["Value"].(string); ok {
			return s, true
		}
		if s, ok := m["Number"].(string); ok {
			return s, true
		}
		return "", false
	}
	switch x := v.(type) {
	case map[string]interface{}:
		return get(x)
	case map[string]string:
		if len(x) != 1 {
			return "", false
		}
		if s, ok := x["Value"]; ok {
			return s, true
		}
		if s, ok := x["Number"]; ok {
			return s, true
		}
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(x))
		for k, val := range x {
			if ks, ok := k.(string); ok {
				m[ks] = val
			}
		}
		return get(m)
	}
	return "", false
}

// scopeAt resolves a scope reference.
func (d *decoder) scopeAt(v interface{}) (*Scope, error) {
	idx, ok := d.asRef(v)
	if !ok {
		return nil, fmt.Errorf("missing scope reference")
	}
	s := d.scopes[idx]
	if s == nil {
		return nil, fmt.Errorf("record %d is not a Scope", idx)
	}
	return s, nil
}

// progAt resolves a program reference.
func (d *decoder) progAt(v interface{}) (*ast.Program, error) {
	idx, ok := d.asRef(v)
	if !ok {
		return nil, fmt.Errorf("missing program reference")
	}
	p := d.progs[idx]
	if p == nil {
		return nil, fmt.Errorf("record %d is not an AST-Node", idx)
	}
	return p, nil
}

// nodeAt resolves a [program ref, node id] pair.
func (d *decoder) nodeAt(v interface{}) (*ast.Program, ast.Node, error) {
	pair, ok := v.([]interface{})
	if !ok || len(pair) != 2 {
		return nil, nil, fmt.Errorf("malformed node reference %v", v)
	}
	prog, err := d.progAt(pair[0])
	if err != nil {
		return nil, nil, err
	}
	node := prog.ByID(int(d.asNumber(pair[1])))
	if node == nil {
		return nil, nil, fmt.Errorf("node id %v out of range", pair[1])
	}
	return prog, node, nil
}
