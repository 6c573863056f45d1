package interp

import (
	"math"
	"strings"
	"testing"
)

const evalBudget = 10_000_000

func mustEval(t *testing.T, i *Interpreter, src string) Value {
	t.Helper()
	v, err := i.Eval(src, evalBudget)
	if err != nil {
		t.Fatalf("eval failed: %v", err)
	}
	return v
}

func TestInterpreterSimple(t *testing.T) {
	tests := []struct {
		desc     string
		src      string
		expected Value
	}{
		{"1+1", marshalProg(exprStmt(bin("+", lit(1.0), lit(1.0)))), Number(2)},
		{"(3+12/4)*(10-3)", marshalProg(exprStmt(
			bin("*",
				bin("+", lit(3.0), bin("/", lit(12.0), lit(4.0))),
				bin("-", lit(10.0), lit(3.0))))), Number(42)},
		{"?: true", marshalProg(exprStmt(cond(lit(true), lit("then"), lit("else")))), String("then")},
		{"?: false", marshalProg(exprStmt(cond(lit(false), lit("then"), lit("else")))), String("else")},
		{"if true", marshalProg(iff(lit(true),
			block(exprStmt(lit("then"))), block(exprStmt(lit("else"))))), String("then")},
		{"if false", marshalProg(iff(lit(false),
			block(exprStmt(lit("then"))), block(exprStmt(lit("else"))))), String("else")},
		{"var x=43; x", marshalProg(
			vardecl(declr("x", lit(43.0))),
			exprStmt(ident("x"))), Number(43)},
		{"var x=0; x=44; x", marshalProg(
			vardecl(declr("x", lit(0.0))),
			exprStmt(assign("=", ident("x"), lit(44.0))),
			exprStmt(ident("x"))), Number(44)},
		{"var x=45; x++; x++", marshalProg(
			vardecl(declr("x", lit(45.0))),
			exprStmt(update("++", false, ident("x"))),
			exprStmt(update("++", false, ident("x")))), Number(46)},
		{"var x=45; ++x; ++x", marshalProg(
			vardecl(declr("x", lit(45.0))),
			exprStmt(update("++", true, ident("x"))),
			exprStmt(update("++", true, ident("x")))), Number(47)},
		{"string concat", marshalProg(exprStmt(bin("+", lit("foo"), lit(7.0)))), String("foo7")},
		{"compound assign", marshalProg(
			vardecl(declr("x", lit(40.0))),
			exprStmt(assign("+=", ident("x"), lit(2.0))),
			exprStmt(ident("x"))), Number(42)},
		{"strict equal", marshalProg(exprStmt(bin("===", lit(1.0), lit("1")))), Boolean(false)},
		{"loose equal", marshalProg(exprStmt(bin("==", lit(1.0), lit("1")))), Boolean(true)},
		{"sequence", marshalProg(exprStmt(seq(lit(1.0), lit(2.0), lit(3.0)))), Number(3)},
		{"typeof number", marshalProg(exprStmt(unary("typeof", lit(1.0)))), String("number")},
		{"typeof unresolved", marshalProg(exprStmt(unary("typeof", ident("zebra")))), String("undefined")},
		{"void", marshalProg(exprStmt(unary("void", lit(7.0)))), Undefined{}},
		{"negate", marshalProg(exprStmt(unary("-", lit(6.0)))), Number(-6)},
		{"bitwise", marshalProg(exprStmt(bin("|", lit(5.0), lit(2.0)))), Number(7)},
		{"shift", marshalProg(exprStmt(bin("<<", lit(1.0), lit(5.0)))), Number(32)},
	}

	for _, c := range tests {
		i := New()
		v, err := i.Eval(c.src, evalBudget)
		if err != nil {
			t.Errorf("%s: %v", c.desc, err)
			continue
		}
		if !StrictEquals(v, c.expected) {
			t.Errorf("%s == %v (%T), expected %v (%T)", c.desc, v, v, c.expected, c.expected)
		}
	}
}

func TestObjectExpression(t *testing.T) {
	i := New()
	v := mustEval(t, i, marshalProg(exprStmt(objlit(
		prop("foo", lit("bar")),
		prop("answer", lit(42.0)),
	))))
	obj, ok := v.(*Object)
	if !ok {
		t.Fatalf("object literal returned %T", v)
	}
	if got := len(obj.OwnKeys()); got != 2 {
		t.Errorf("own property count = %d, want 2", got)
	}
	if foo, _ := obj.Get("foo"); foo != String("bar") {
		t.Errorf("foo == %v, want \"bar\"", foo)
	}
	if answer, _ := obj.Get("answer"); answer != Number(42) {
		t.Errorf("answer == %v, want 42", answer)
	}
	if obj.Proto() != i.protos.Object {
		t.Error("object literal prototype is not Object.prototype")
	}
}

func TestPropertyAssignment(t *testing.T) {
	i := New()
	v := mustEval(t, i, marshalProg(
		vardecl(declr("o", objlit())),
		exprStmt(assign("=", member(ident("o"), "foo"), lit(45.0))),
		exprStmt(member(ident("o"), "foo")),
	))
	if v != Number(45) {
		t.Errorf("o.foo == %v, want 45", v)
	}
}

func TestComputedMember(t *testing.T) {
	i := New()
	v := mustEval(t, i, marshalProg(
		vardecl(declr("a", arrlit(lit(10.0), lit(20.0), lit(30.0)))),
		exprStmt(index(ident("a"), bin("+", lit(1.0), lit(1.0)))),
	))
	if v != Number(30) {
		t.Errorf("a[2] == %v, want 30", v)
	}
}

func TestWhileLoop(t *testing.T) {
	i := New()
	v := mustEval(t, i, marshalProg(
		vardecl(declr("n", lit(0.0)), declr("sum", lit(0.0))),
		while(bin("<", ident("n"), lit(10.0)), block(
			exprStmt(assign("+=", ident("sum"), ident("n"))),
			exprStmt(update("++", false, ident("n"))),
		)),
		exprStmt(ident("sum")),
	))
	if v != Number(45) {
		t.Errorf("sum == %v, want 45", v)
	}
}

func TestDoWhileRunsOnce(t *testing.T) {
	i := New()
	v := mustEval(t, i, marshalProg(
		vardecl(declr("n", lit(0.0))),
		dowhile(block(exprStmt(update("++", false, ident("n")))), lit(false)),
		exprStmt(ident("n")),
	))
	if v != Number(1) {
		t.Errorf("n == %v, want 1", v)
	}
}

func TestForLoopBreakContinue(t *testing.T) {
	// for (var i=0; i<10; i++) { if (i===3) continue; if (i===6) break; sum+=i }
	i := New()
	v := mustEval(t, i, marshalProg(
		vardecl(declr("sum", lit(0.0))),
		forstmt(
			vardecl(declr("i", lit(0.0))),
			bin("<", ident("i"), lit(10.0)),
			update("++", false, ident("i")),
			block(
				iff(bin("===", ident("i"), lit(3.0)), cont(""), nil),
				iff(bin("===", ident("i"), lit(6.0)), brk(""), nil),
				exprStmt(assign("+=", ident("sum"), ident("i"))),
			),
		),
		exprStmt(ident("sum")),
	))
	// 0+1+2+4+5 = 12
	if v != Number(12) {
		t.Errorf("sum == %v, want 12", v)
	}
}

func TestLabeledBreak(t *testing.T) {
	// outer: for(var i=0;i<3;i++) for(var j=0;j<3;j++) { if (j===1) break outer; count++ }
	i := New()
	v := mustEval(t, i, marshalProg(
		vardecl(declr("count", lit(0.0))),
		labeled("outer", forstmt(
			vardecl(declr("i", lit(0.0))),
			bin("<", ident("i"), lit(3.0)),
			update("++", false, ident("i")),
			forstmt(
				vardecl(declr("j", lit(0.0))),
				bin("<", ident("j"), lit(3.0)),
				update("++", false, ident("j")),
				block(
					iff(bin("===", ident("j"), lit(1.0)), brk("outer"), nil),
					exprStmt(update("++", false, ident("count"))),
				),
			),
		)),
		exprStmt(ident("count")),
	))
	if v != Number(1) {
		t.Errorf("count == %v, want 1", v)
	}
}

func TestFunctionsAndClosures(t *testing.T) {
	// function mk(n) { return function() { n++; return n } }
	// var c = mk(40); c(); c()
	i := New()
	v := mustEval(t, i, marshalProg(
		fndecl("mk", []string{"n"},
			ret(fnexpr(nil,
				exprStmt(update("++", false, ident("n"))),
				ret(ident("n")),
			)),
		),
		vardecl(declr("c", call(ident("mk"), lit(40.0)))),
		exprStmt(call(ident("c"))),
		exprStmt(call(ident("c"))),
	))
	if v != Number(42) {
		t.Errorf("closure counter == %v, want 42", v)
	}
}

func TestHoisting(t *testing.T) {
	// typeof-free hoisting check:
	// function f() { var r = x; if (true) { var x = 1 } return r === undefined } f()
	// r must be undefined because x is hoisted but not yet initialized.
	i := New()
	v := mustEval(t, i, marshalProg(
		fndecl("f", nil,
			vardecl(declr("r", ident("x"))),
			iff(lit(true), block(vardecl(declr("x", lit(1.0)))), nil),
			ret(bin("===", ident("r"), m{"type": "Identifier", "name": "undefined"})),
		),
		exprStmt(call(ident("f"))),
	))
	if v != Boolean(true) {
		t.Errorf("hoisted read == %v, want true", v)
	}
}

func TestRecursion(t *testing.T) {
	// function fib(n) { if (n<2) return n; return fib(n-1)+fib(n-2) } fib(10)
	i := New()
	v := mustEval(t, i, marshalProg(
		fndecl("fib", []string{"n"},
			iff(bin("<", ident("n"), lit(2.0)), ret(ident("n")), nil),
			ret(bin("+",
				call(ident("fib"), bin("-", ident("n"), lit(1.0))),
				call(ident("fib"), bin("-", ident("n"), lit(2.0))),
			)),
		),
		exprStmt(call(ident("fib"), lit(10.0))),
	))
	if v != Number(55) {
		t.Errorf("fib(10) == %v, want 55", v)
	}
}

func TestStackOverflowThrows(t *testing.T) {
	i := New()
	_, err := i.Eval(marshalProg(
		fndecl("loop", nil, ret(call(ident("loop")))),
		exprStmt(call(ident("loop"))),
	), evalBudget)
	if err == nil || !strings.Contains(err.Error(), "RangeError") {
		t.Errorf("infinite recursion: err = %v, want RangeError", err)
	}
}

func TestNewExpression(t *testing.T) {
	// function Point(x, y) { this.x = x; this.y = y }
	// var p = new Point(3, 4); p.x + p.y
	i := New()
	v := mustEval(t, i, marshalProg(
		fndecl("Point", []string{"x", "y"},
			exprStmt(assign("=", member(thisExpr(), "x"), ident("x"))),
			exprStmt(assign("=", member(thisExpr(), "y"), ident("y"))),
		),
		vardecl(declr("p", neww(ident("Point"), lit(3.0), lit(4.0)))),
		exprStmt(bin("+", member(ident("p"), "x"), member(ident("p"), "y"))),
	))
	if v != Number(7) {
		t.Errorf("p.x+p.y == %v, want 7", v)
	}
}

func TestPrototypeMethods(t *testing.T) {
	// function Counter() { this.n = 0 }
	// Counter.prototype.bump = function() { this.n++; return this.n }
	// var c = new Counter(); c.bump(); c.bump()
	i := New()
	v := mustEval(t, i, marshalProg(
		fndecl("Counter", nil,
			exprStmt(assign("=", member(thisExpr(), "n"), lit(0.0)))),
		exprStmt(assign("=",
			member(member(ident("Counter"), "prototype"), "bump"),
			fnexpr(nil,
				exprStmt(update("++", false, member(thisExpr(), "n"))),
				ret(member(thisExpr(), "n"))))),
		vardecl(declr("c", neww(ident("Counter")))),
		exprStmt(call(member(ident("c"), "bump"))),
		exprStmt(call(member(ident("c"), "bump"))),
	))
	if v != Number(2) {
		t.Errorf("c.bump() twice == %v, want 2", v)
	}
}

func TestTryCatchFinally(t *testing.T) {
	// var trace = ""; try { throw "boom" } catch (e) { trace += "c:" + e } finally { trace += ";f" } trace
	i := New()
	v := mustEval(t, i, marshalProg(
		vardecl(declr("trace", lit(""))),
		try(
			block(thrw(lit("boom"))),
			"e",
			block(exprStmt(assign("+=", ident("trace"), bin("+", lit("c:"), ident("e"))))),
			block(exprStmt(assign("+=", ident("trace"), lit(";f")))),
		),
		exprStmt(ident("trace")),
	))
	if v != String("c:boom;f") {
		t.Errorf("trace == %v, want \"c:boom;f\"", v)
	}
}

func TestFinallyOverridesCompletion(t *testing.T) {
	// function f() { try { return 1 } finally { return 2 } } f()
	i := New()
	v := mustEval(t, i, marshalProg(
		fndecl("f", nil,
			try(block(ret(lit(1.0))), "", nil, block(ret(lit(2.0)))),
		),
		exprStmt(call(ident("f"))),
	))
	if v != Number(2) {
		t.Errorf("f() == %v, want 2", v)
	}
}

func TestUncaughtThrowKillsThread(t *testing.T) {
	i := New()
	_, err := i.Eval(marshalProg(thrw(lit("kaput"))), evalBudget)
	if err == nil || !strings.Contains(err.Error(), "kaput") {
		t.Errorf("uncaught throw: err = %v, want kaput", err)
	}
}

func TestCatchTypedErrors(t *testing.T) {
	// try { nosuch() } catch (e) { e.name }
	i := New()
	v := mustEval(t, i, marshalProg(
		try(
			block(exprStmt(call(ident("nosuch")))),
			"e",
			block(exprStmt(member(ident("e"), "name"))),
			nil,
		),
	))
	if v != String("ReferenceError") {
		t.Errorf("e.name == %v, want ReferenceError", v)
	}
}

func TestSwitchFallthrough(t *testing.T) {
	// switch (2) { case 1: trace+="a"; case 2: trace+="b"; case 3: trace+="c"; break; default: trace+="d" }
	i := New()
	v := mustEval(t, i, marshalProg(
		vardecl(declr("trace", lit(""))),
		sw(lit(2.0),
			cse(lit(1.0), exprStmt(assign("+=", ident("trace"), lit("a")))),
			cse(lit(2.0), exprStmt(assign("+=", ident("trace"), lit("b")))),
			cse(lit(3.0), exprStmt(assign("+=", ident("trace"), lit("c"))), brk("")),
			cse(nil, exprStmt(assign("+=", ident("trace"), lit("d")))),
		),
		exprStmt(ident("trace")),
	))
	if v != String("bc") {
		t.Errorf("trace == %v, want \"bc\"", v)
	}
}

func TestSwitchDefault(t *testing.T) {
	i := New()
	v := mustEval(t, i, marshalProg(
		vardecl(declr("trace", lit(""))),
		sw(lit(9.0),
			cse(lit(1.0), exprStmt(assign("+=", ident("trace"), lit("a")))),
			cse(nil, exprStmt(assign("+=", ident("trace"), lit("d")))),
		),
		exprStmt(ident("trace")),
	))
	if v != String("d") {
		t.Errorf("trace == %v, want \"d\"", v)
	}
}

func TestForIn(t *testing.T) {
	i := New()
	v := mustEval(t, i, marshalProg(
		vardecl(declr("o", objlit(prop("a", lit(1.0)), prop("b", lit(2.0)), prop("c", lit(3.0))))),
		vardecl(declr("keys", lit(""))),
		forin(vardecl(declr("k", nil)), ident("o"),
			block(exprStmt(assign("+=", ident("keys"), ident("k"))))),
		exprStmt(ident("keys")),
	))
	if v != String("abc") {
		t.Errorf("keys == %v, want \"abc\" (insertion order)", v)
	}
}

func TestShortCircuit(t *testing.T) {
	// false && boom() must not call boom; true || boom() must not either.
	i := New()
	v := mustEval(t, i, marshalProg(
		vardecl(declr("called", lit(false))),
		fndecl("boom", nil,
			exprStmt(assign("=", ident("called"), lit(true))),
			ret(lit(true))),
		exprStmt(logical("&&", lit(false), call(ident("boom")))),
		exprStmt(logical("||", lit(true), call(ident("boom")))),
		exprStmt(ident("called")),
	))
	if v != Boolean(false) {
		t.Errorf("called == %v, want false", v)
	}
}

func TestLogicalValuePassthrough(t *testing.T) {
	i := New()
	v := mustEval(t, i, marshalProg(exprStmt(logical("||", lit(""), lit("fallback")))))
	if v != String("fallback") {
		t.Errorf("\"\" || \"fallback\" == %v", v)
	}
}

func TestDeleteProperty(t *testing.T) {
	i := New()
	v := mustEval(t, i, marshalProg(
		vardecl(declr("o", objlit(prop("x", lit(1.0))))),
		exprStmt(unary("delete", member(ident("o"), "x"))),
		exprStmt(call(member(ident("o"), "hasOwnProperty"), lit("x"))),
	))
	if v != Boolean(false) {
		t.Errorf("hasOwnProperty after delete == %v, want false", v)
	}
}

func TestArguments(t *testing.T) {
	// function f() { return arguments.length + arguments[0] } f(40, 9)
	i := New()
	v := mustEval(t, i, marshalProg(
		fndecl("f", nil,
			ret(bin("+", member(ident("arguments"), "length"), index(ident("arguments"), lit(0.0))))),
		exprStmt(call(ident("f"), lit(40.0), lit(9.0))),
	))
	if v != Number(42) {
		t.Errorf("f(40,9) == %v, want 42", v)
	}
}

func TestBuiltinsSmoke(t *testing.T) {
	tests := []struct {
		desc     string
		src      string
		expected Value
	}{
		{"Math.floor", marshalProg(exprStmt(call(member(ident("Math"), "floor"), lit(3.7)))), Number(3)},
		{"parseInt hex", marshalProg(exprStmt(call(ident("parseInt"), lit("0x2a")))), Number(42)},
		{"parseFloat", marshalProg(exprStmt(call(ident("parseFloat"), lit("3.5abc")))), Number(3.5)},
		{"isNaN", marshalProg(exprStmt(call(ident("isNaN"), lit("zebra")))), Boolean(true)},
		{"String()", marshalProg(exprStmt(call(ident("String"), lit(42.0)))), String("42")},
		{"Number()", marshalProg(exprStmt(call(ident("Number"), lit("6e1")))), Number(60)},
		{"join", marshalProg(exprStmt(call(member(arrlit(lit(1.0), lit(2.0)), "join"), lit("-")))), String("1-2")},
		{"push returns length", marshalProg(
			vardecl(declr("a", arrlit())),
			exprStmt(call(member(ident("a"), "push"), lit("x"), lit("y"))),
		), Number(2)},
		{"charAt", marshalProg(exprStmt(call(member(lit("hello"), "charAt"), lit(1.0)))), String("e")},
		{"string length", marshalProg(exprStmt(member(lit("hello"), "length"))), Number(5)},
		{"toUpperCase", marshalProg(exprStmt(call(member(lit("abc"), "toUpperCase")))), String("ABC")},
		{"JSON round trip", marshalProg(exprStmt(
			member(call(member(ident("JSON"), "parse"),
				call(member(ident("JSON"), "stringify"), objlit(prop("n", lit(5.0))))), "n"))), Number(5)},
		{"Object.keys", marshalProg(exprStmt(
			call(member(call(member(ident("Object"), "keys"),
				objlit(prop("a", lit(1.0)), prop("b", lit(2.0)))), "join"), lit(",")))), String("a,b")},
		{"regexp test", marshalProg(exprStmt(
			call(member(neww(ident("RegExp"), lit("^a+b$")), "test"), lit("aaab")))), Boolean(true)},
		{"regexp lookahead", marshalProg(exprStmt(
			call(member(neww(ident("RegExp"), lit("foo(?=bar)")), "test"), lit("foobar")))), Boolean(true)},
		{"Error message", marshalProg(exprStmt(
			member(neww(ident("TypeError"), lit("nope")), "message"))), String("nope")},
		{"instanceof error", marshalProg(exprStmt(
			bin("instanceof", neww(ident("TypeError"), lit("x")), ident("Error")))), Boolean(true)},
	}

	for _, c := range tests {
		i := New()
		v, err := i.Eval(c.src, evalBudget)
		if err != nil {
			t.Errorf("%s: %v", c.desc, err)
			continue
		}
		if !StrictEquals(v, c.expected) {
			t.Errorf("%s == %v (%T), expected %v (%T)", c.desc, v, v, c.expected, c.expected)
		}
	}
}

func TestNaNArithmetic(t *testing.T) {
	i := New()
	v := mustEval(t, i, marshalProg(exprStmt(bin("/", lit(0.0), lit(0.0)))))
	n, ok := v.(Number)
	if !ok || !math.IsNaN(float64(n)) {
		t.Errorf("0/0 == %v, want NaN", v)
	}
}

func TestReferenceErrorOnUnresolvedSet(t *testing.T) {
	i := New()
	_, err := i.Eval(marshalProg(exprStmt(assign("=", ident("ghost"), lit(1.0)))), evalBudget)
	if err == nil || !strings.Contains(err.Error(), "ReferenceError") {
		t.Errorf("unresolved set: err = %v, want ReferenceError", err)
	}
}
