package interp

import (
	"testing"

	"github.com/chazu/warren/ast"
)

func TestScopeLookup(t *testing.T) {
	i := New()
	outer := NewScope(nil, i)
	inner := NewScope(outer, i)

	outer.Declare("x")
	outer.Set("x", Number(1))

	v, err := inner.Get("x")
	if err != nil || v != Number(1) {
		t.Errorf("inner.Get(x) == %v, %v", v, err)
	}

	// Writes land in the declaring scope.
	if err := inner.Set("x", Number(2)); err != nil {
		t.Fatal(err)
	}
	v, _ = outer.Get("x")
	if v != Number(2) {
		t.Errorf("outer x == %v after inner write, want 2", v)
	}

	// Shadowing.
	inner.Declare("x")
	inner.Set("x", Number(3))
	if v, _ := outer.Get("x"); v != Number(2) {
		t.Errorf("outer x == %v after shadowed write, want 2", v)
	}
}

func TestScopeUnresolved(t *testing.T) {
	i := New()
	s := NewScope(nil, i)
	if _, err := s.Get("ghost"); err == nil || err.Name != "ReferenceError" {
		t.Errorf("unresolved get: %v", err)
	}
	if err := s.Set("ghost", Number(1)); err == nil || err.Name != "ReferenceError" {
		t.Errorf("unresolved set: %v", err)
	}
}

func TestDeclareIdempotent(t *testing.T) {
	i := New()
	s := NewScope(nil, i)
	s.Declare("x")
	s.Set("x", Number(9))
	s.Declare("x")
	v, _ := s.Get("x")
	if v != Number(9) {
		t.Errorf("redeclare clobbered value: %v", v)
	}
	if n := len(s.Names()); n != 1 {
		t.Errorf("redeclare duplicated the slot: %d names", n)
	}
}

func TestPopulateHoisting(t *testing.T) {
	// Declarations are collected from every nested statement but not from
	// nested function bodies.
	src := marshalProg(
		vardecl(declr("top", lit(1.0))),
		iff(lit(true), block(vardecl(declr("inIf", nil))), nil),
		while(lit(false), block(vardecl(declr("inWhile", nil)))),
		forstmt(vardecl(declr("inForInit", nil)), nil, nil,
			block(vardecl(declr("inForBody", nil)))),
		try(
			block(vardecl(declr("inTry", nil))),
			"e",
			block(vardecl(declr("inCatch", nil))),
			block(vardecl(declr("inFinally", nil))),
		),
		sw(lit(1.0), cse(lit(1.0), vardecl(declr("inCase", nil)))),
		labeled("lbl", block(vardecl(declr("inLabel", nil)))),
		fndecl("fn", nil, vardecl(declr("inFunction", nil))),
	)
	prog, err := ast.ParseJSON(src)
	if err != nil {
		t.Fatal(err)
	}
	i := New()
	s := NewScope(nil, i)
	s.Populate(prog, prog)

	for _, name := range []string{
		"top", "inIf", "inWhile", "inForInit", "inForBody",
		"inTry", "inCatch", "inFinally", "inCase", "inLabel", "fn",
	} {
		if !s.Resolvable(name) {
			t.Errorf("%s not hoisted", name)
		}
	}
	if s.Resolvable("inFunction") {
		t.Error("hoisting descended into a nested function body")
	}

	// Initializers are untouched: top is undefined, not 1.
	v, _ := s.Get("top")
	if _, ok := v.(Undefined); !ok {
		t.Errorf("top == %v before execution, want undefined", v)
	}
	// Function declarations are bound at hoist time.
	fnV, _ := s.Get("fn")
	if fn, ok := fnV.(*Object); !ok || !fn.Callable() {
		t.Errorf("fn == %T, want callable", fnV)
	}

	// The pass is idempotent.
	s.Set("top", Number(5))
	s.Populate(prog, prog)
	v, _ = s.Get("top")
	if v != Number(5) {
		t.Errorf("repopulate reset top to %v", v)
	}
}
