package interp

import (
	"encoding/json"
	"errors"
	"math"
	"runtime"
	"strings"
	"testing"
)

// runToDone drives the scheduler until the thread completes.
func runToDone(t *testing.T, i *Interpreter, th *Thread) {
	t.Helper()
	for tick := 0; tick < 100_000 && th.Status() != StatusDone; tick++ {
		if !i.Tick(100) {
			break
		}
	}
	if th.Status() != StatusDone {
		t.Fatalf("thread never finished (status %s)", th.Status())
	}
}

func TestSnapshotMidProgramRoundTrip(t *testing.T) {
	src := marshalProg(
		vardecl(declr("x", lit(0.0))),
		exprStmt(assign("=", ident("x"), lit(44.0))),
		exprStmt(ident("x")),
	)

	i1 := New(WithClock(&fakeClock{}))
	th1, err := i1.LoadJSON(src)
	if err != nil {
		t.Fatal(err)
	}
	// Advance a few steps: partway into `var x=0;`, well short of completion.
	i1.Tick(4)
	if th1.Status() == StatusDone {
		t.Fatal("program finished before snapshot; reduce the step count")
	}
	records := i1.Snapshot()

	i2 := New(WithClock(&fakeClock{}))
	if err := i2.Restore(records); err != nil {
		t.Fatalf("restore: %v", err)
	}

	// Both interpreters continue and agree.
	runToDone(t, i1, th1)
	th2 := i2.Scheduler().Threads()[0]
	runToDone(t, i2, th2)

	if th1.Value() != Number(44) {
		t.Errorf("original value == %v, want 44", th1.Value())
	}
	if th2.Value() != Number(44) {
		t.Errorf("restored value == %v, want 44", th2.Value())
	}
}

func TestSnapshotSharedStructure(t *testing.T) {
	// var a={}; var b=[a,a]; registry.set("b", b)
	src := marshalProg(
		vardecl(declr("a", objlit())),
		vardecl(declr("b", arrlit(ident("a"), ident("a")))),
		exprStmt(call(member(ident("registry"), "set"), lit("b"), ident("b"))),
	)
	i1 := New()
	if _, err := i1.Eval(src, evalBudget); err != nil {
		t.Fatal(err)
	}
	records := i1.Snapshot()

	// The array record holds two identical back-references.
	var arrRec *Record
	for idx := range records {
		if records[idx].Type == "Array" {
			arrRec = &records[idx]
			break
		}
	}
	if arrRec == nil {
		t.Fatal("no Array record in snapshot")
	}
	r0, ok0 := arrRec.Props.Get("0").(Ref)
	r1, ok1 := arrRec.Props.Get("1").(Ref)
	if !ok0 || !ok1 || r0.N != r1.N {
		t.Fatalf("shared element refs differ: %v vs %v", arrRec.Props.Get("0"), arrRec.Props.Get("1"))
	}

	i2 := New()
	if err := i2.Restore(records); err != nil {
		t.Fatalf("restore: %v", err)
	}
	b := i2.Registry().Lookup("b")
	if b == nil {
		t.Fatal("registry binding lost")
	}
	e0, _ := b.Get("0")
	e1, _ := b.Get("1")
	if e0 != e1 {
		t.Error("b[0] and b[1] are different objects after restore")
	}
}

func TestSnapshotNumericFidelity(t *testing.T) {
	i1 := New()
	src := marshalProg(
		vardecl(declr("o", objlit())),
		exprStmt(assign("=", member(ident("o"), "nan"), bin("/", lit(0.0), lit(0.0)))),
		exprStmt(assign("=", member(ident("o"), "inf"), bin("/", lit(1.0), lit(0.0)))),
		exprStmt(assign("=", member(ident("o"), "ninf"), bin("/", lit(-1.0), lit(0.0)))),
		exprStmt(assign("=", member(ident("o"), "nzero"), unary("-", lit(0.0)))),
		exprStmt(assign("=", member(ident("o"), "undef"), ident("undefined"))),
		exprStmt(call(member(ident("registry"), "set"), lit("o"), ident("o"))),
	)
	if _, err := i1.Eval(src, evalBudget); err != nil {
		t.Fatal(err)
	}

	records := i1.Snapshot()

	// The snapshot also survives a JSON round trip bit-for-bit.
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	var decoded []Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	i2 := New()
	if err := i2.Restore(decoded); err != nil {
		t.Fatalf("restore: %v", err)
	}
	o := i2.Registry().Lookup("o")
	if o == nil {
		t.Fatal("registry binding lost")
	}

	nanV, _ := o.Get("nan")
	if n, ok := nanV.(Number); !ok || !n.IsNaN() {
		t.Errorf("nan == %v", nanV)
	}
	infV, _ := o.Get("inf")
	if infV != Number(math.Inf(1)) {
		t.Errorf("inf == %v", infV)
	}
	ninfV, _ := o.Get("ninf")
	if ninfV != Number(math.Inf(-1)) {
		t.Errorf("ninf == %v", ninfV)
	}
	nzV, _ := o.Get("nzero")
	if n, ok := nzV.(Number); !ok || !n.IsNegZero() {
		t.Errorf("nzero == %v, want -0", nzV)
	}
	undefV, _ := o.Get("undef")
	if _, ok := undefV.(Undefined); !ok {
		t.Errorf("undef == %v (%T)", undefV, undefV)
	}
}

func TestSnapshotPropertyAttributes(t *testing.T) {
	i1 := New()
	src := marshalProg(
		vardecl(declr("o", objlit())),
		exprStmt(call(member(ident("Object"), "defineProperty"),
			ident("o"), lit("ro"),
			objlit(prop("value", lit(7.0)), prop("writable", lit(false)), prop("enumerable", lit(true))))),
		exprStmt(call(member(ident("Object"), "preventExtensions"), ident("o"))),
		exprStmt(call(member(ident("registry"), "set"), lit("o"), ident("o"))),
	)
	if _, err := i1.Eval(src, evalBudget); err != nil {
		t.Fatal(err)
	}

	i2 := New()
	if err := i2.Restore(i1.Snapshot()); err != nil {
		t.Fatal(err)
	}
	o := i2.Registry().Lookup("o")
	p := o.GetOwn("ro")
	if p == nil || p.Writable || !p.Enumerable || p.Configurable {
		t.Errorf("restored attributes wrong: %+v", p)
	}
	if o.Extensible() {
		t.Error("extensibility not restored")
	}
}

func TestSnapshotCrossCheckpointLoop(t *testing.T) {
	// A fiber appends to an array with a sleep between iterations; the
	// world checkpoints mid-loop and the restored fiber finishes the job.
	const total = 200
	clock := &fakeClock{ms: 0}
	i1 := New(WithClock(clock))
	src := marshalProg(
		vardecl(declr("out", arrlit())),
		exprStmt(call(member(ident("registry"), "set"), lit("out"), ident("out"))),
		fndecl("work", nil,
			forstmt(
				vardecl(declr("k", lit(0.0))),
				bin("<", ident("k"), lit(float64(total))),
				update("++", false, ident("k")),
				block(
					exprStmt(call(member(ident("out"), "push"), ident("k"))),
					exprStmt(call(ident("sleep"), lit(1.0))),
				),
			),
		),
	)
	if _, err := i1.LoadJSON(src); err != nil {
		t.Fatal(err)
	}
	i1.Run(100_000)
	fnV, _ := i1.global.Get("work")
	th, _ := i1.SpawnFunction(fnV.(*Object), nil)

	// Run ~100 iterations by alternating ticks and clock advances.
	for clock.ms = 0; clock.ms < 100; clock.ms++ {
		for tick := 0; tick < 20; tick++ {
			i1.Tick(1000)
		}
	}
	out1 := i1.Registry().Lookup("out")
	progress := out1.ArrayLength()
	if progress == 0 || progress >= total {
		t.Fatalf("loop progress %d before checkpoint, want mid-loop", progress)
	}
	if th.Status() == StatusDone {
		t.Fatal("fiber finished before checkpoint")
	}

	records := i1.Snapshot()

	clock2 := &fakeClock{ms: clock.ms}
	i2 := New(WithClock(clock2))
	if err := i2.Restore(records); err != nil {
		t.Fatalf("restore: %v", err)
	}

	for ; clock2.ms < 10*total; clock2.ms++ {
		done := true
		for _, rt := range i2.Scheduler().Threads() {
			if rt.Status() != StatusDone {
				done = false
			}
		}
		if done {
			break
		}
		for tick := 0; tick < 20; tick++ {
			i2.Tick(1000)
		}
	}

	out2 := i2.Registry().Lookup("out")
	if got := out2.ArrayLength(); got != total {
		t.Fatalf("restored loop finished at %d, want %d", got, total)
	}
	// The restored array continued from the checkpoint, not from zero:
	// every index holds its own value.
	for k := int64(0); k < total; k += 37 {
		v, _ := out2.Get(string(ToString(Number(k))))
		if v != Number(k) {
			t.Errorf("out[%d] == %v", k, v)
		}
	}
}

func TestSnapshotDeterministic(t *testing.T) {
	build := func() *Interpreter {
		i := New(WithClock(&fakeClock{}))
		src := marshalProg(
			vardecl(declr("a", objlit(prop("x", lit(1.0))))),
			vardecl(declr("b", arrlit(ident("a"), lit("two")))),
			exprStmt(call(member(ident("registry"), "set"), lit("root"), ident("b"))),
		)
		if _, err := i.Eval(src, evalBudget); err != nil {
			t.Fatal(err)
		}
		return i
	}
	r1, _ := json.Marshal(build().Snapshot())
	r2, _ := json.Marshal(build().Snapshot())
	if string(r1) != string(r2) {
		t.Error("identical heaps produced different snapshots")
	}
}

func TestSnapshotWeakContainer(t *testing.T) {
	i1 := New()
	src := marshalProg(
		vardecl(declr("ws", neww(ident("WeakSet")))),
		vardecl(declr("keep", objlit(prop("k", lit(1.0))))),
		exprStmt(call(member(ident("ws"), "add"), ident("keep"))),
		exprStmt(call(member(ident("registry"), "set"), lit("ws"), ident("ws"))),
		exprStmt(call(member(ident("registry"), "set"), lit("keep"), ident("keep"))),
	)
	if _, err := i1.Eval(src, evalBudget); err != nil {
		t.Fatal(err)
	}

	i2 := New()
	if err := i2.Restore(i1.Snapshot()); err != nil {
		t.Fatal(err)
	}
	ws := i2.Registry().Lookup("ws")
	keep := i2.Registry().Lookup("keep")
	data := ws.Data().(*WeakSetData)
	if data.Size() != 1 || !data.Has(keep) {
		t.Error("weak set membership lost across restore")
	}
}

func TestSnapshotDropsDeadWeakEntries(t *testing.T) {
	i1 := New()
	ws := NewTagged(i1.protos.WeakSet, ClassWeakSet)
	data := NewWeakSetData()
	ws.SetData(data)
	i1.Registry().Bind("ws", ws)

	addDoomed(data, i1)
	runtime.GC()
	runtime.GC()

	records := i1.Snapshot()
	for idx := range records {
		if records[idx].Type == "IterableWeakSet" {
			if members, ok := records[idx].Data.([]interface{}); ok && len(members) != 0 {
				t.Errorf("dead weak member survived into snapshot: %v", members)
			}
		}
	}
}

// addDoomed inserts an object that becomes garbage as soon as the call
// returns.
func addDoomed(data *WeakSetData, i *Interpreter) {
	doomed := NewObject(i.protos.Object)
	data.Add(doomed)
}

func TestRestoreMissingNative(t *testing.T) {
	i1 := New(WithNativeTable(func(nt *NativeTable) {
		nt.Register("custom.fn", func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
			return Undefined{}, nil
		})
	}))
	i1.Global().SetLocal("customFn", i1.Natives().Lookup("custom.fn"))
	records := i1.Snapshot()

	i2 := New() // no custom.fn registered
	err := i2.Restore(records)
	var derr *DecodeError
	if !errors.As(err, &derr) || derr.Kind != DecodeRange {
		t.Fatalf("err = %v, want range decode error", err)
	}
	if !strings.Contains(err.Error(), "custom.fn") {
		t.Errorf("error does not name the missing native: %v", err)
	}
}

func TestRestoreFailuresLeaveInterpreterUntouched(t *testing.T) {
	cases := []struct {
		desc string
		mut  func([]Record) []Record
		kind DecodeErrorKind
	}{
		{"empty", func(r []Record) []Record { return nil }, DecodeShape},
		{"not interpreter", func(r []Record) []Record {
			r[0].Type = "Object"
			return r
		}, DecodeShape},
		{"bad version", func(r []Record) []Record {
			r[0].Version = 99
			return r
		}, DecodeShape},
		{"unknown type", func(r []Record) []Record {
			r[len(r)-1].Type = "Gizmo"
			return r
		}, DecodeType},
		{"dangling ref", func(r []Record) []Record {
			r[0].Props = append(r[0].Props, PropEntry{K: "oops", V: Ref{N: 999999}})
			return r
		}, DecodeReference},
	}

	for _, c := range cases {
		i1 := New()
		if _, err := i1.Eval(marshalProg(
			vardecl(declr("a", objlit(prop("x", lit(1.0))))),
			exprStmt(call(member(ident("registry"), "set"), lit("a"), ident("a"))),
		), evalBudget); err != nil {
			t.Fatal(err)
		}
		records := c.mut(i1.Snapshot())

		i2 := New()
		if _, err := i2.Eval(marshalProg(
			vardecl(declr("marker", objlit())),
			exprStmt(call(member(ident("registry"), "set"), lit("marker"), ident("marker"))),
		), evalBudget); err != nil {
			t.Fatal(err)
		}

		err := i2.Restore(records)
		var derr *DecodeError
		if !errors.As(err, &derr) {
			t.Errorf("%s: err = %v, want DecodeError", c.desc, err)
			continue
		}
		if derr.Kind != c.kind {
			t.Errorf("%s: kind = %s, want %s", c.desc, derr.Kind, c.kind)
		}
		if i2.Registry().Lookup("marker") == nil {
			t.Errorf("%s: failed decode disturbed the interpreter", c.desc)
		}
	}
}

func TestSnapshotExcludesConnections(t *testing.T) {
	i1 := New()
	conn := i1.NewConnectionObject(nil, 7, "test")
	holder := NewObject(i1.protos.Object)
	holder.Set("conn", conn)
	i1.Registry().Bind("holder", holder)

	records := i1.Snapshot()
	for idx := range records {
		if records[idx].Type == "Connection" {
			t.Fatal("connection object was serialized")
		}
	}

	i2 := New()
	if err := i2.Restore(records); err != nil {
		t.Fatal(err)
	}
	h := i2.Registry().Lookup("holder")
	v, _ := h.Get("conn")
	if _, ok := v.(Null); !ok {
		t.Errorf("excluded reference decoded as %T, want null", v)
	}
}

func TestSnapshotFunctionRoundTrip(t *testing.T) {
	// A closure's captured environment survives the round trip.
	i1 := New()
	src := marshalProg(
		fndecl("mk", []string{"n"},
			ret(fnexpr(nil,
				exprStmt(update("++", false, ident("n"))),
				ret(ident("n"))))),
		vardecl(declr("c", call(ident("mk"), lit(10.0)))),
		exprStmt(call(ident("c"))),
		vardecl(declr("holder", objlit(prop("fn", ident("c"))))),
		exprStmt(call(member(ident("registry"), "set"), lit("holder"), ident("holder"))),
	)
	if _, err := i1.Eval(src, evalBudget); err != nil {
		t.Fatal(err)
	}

	i2 := New()
	if err := i2.Restore(i1.Snapshot()); err != nil {
		t.Fatal(err)
	}
	holder := i2.Registry().Lookup("holder")
	fnV, _ := holder.Get("fn")
	fn, ok := fnV.(*Object)
	if !ok || !fn.Callable() {
		t.Fatalf("restored closure is %T", fnV)
	}
	th, uerr := i2.SpawnFunction(fn, nil)
	if uerr != nil {
		t.Fatal(uerr)
	}
	runToDone(t, i2, th)
	// The counter was at 11 when snapshotted; the restored closure
	// continues from there.
	if th.Value() != Number(12) {
		t.Errorf("restored closure returned %v, want 12", th.Value())
	}
}
