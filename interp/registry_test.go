package interp

import "testing"

func TestRegistryBindLookup(t *testing.T) {
	r := NewRegistry()
	a := NewObject(nil)
	b := NewObject(nil)

	r.Bind("a", a)
	r.Bind("b", b)

	if r.Lookup("a") != a || r.Lookup("b") != b {
		t.Error("lookup mismatch")
	}
	if r.NameOf(a) != "a" || r.NameOf(b) != "b" {
		t.Error("reverse lookup mismatch")
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("names = %v, want insertion order", names)
	}
}

func TestRegistryRebind(t *testing.T) {
	r := NewRegistry()
	a := NewObject(nil)
	b := NewObject(nil)

	r.Bind("x", a)
	r.Bind("x", b)
	if r.Lookup("x") != b {
		t.Error("rebinding name did not replace the object")
	}
	if r.NameOf(a) != "" {
		t.Error("stale reverse mapping for replaced object")
	}

	// Binding the same object under a new name drops the old name.
	r.Bind("y", b)
	if r.Lookup("x") != nil {
		t.Error("old name still bound after object moved")
	}
	if r.NameOf(b) != "y" {
		t.Errorf("NameOf == %q, want y", r.NameOf(b))
	}
	if r.Len() != 1 {
		t.Errorf("len == %d, want 1", r.Len())
	}
}

func TestRegistryUnbind(t *testing.T) {
	r := NewRegistry()
	a := NewObject(nil)
	r.Bind("a", a)
	r.Unbind("a")
	if r.Lookup("a") != nil || r.NameOf(a) != "" || r.Len() != 0 {
		t.Error("unbind left residue")
	}
}

func TestNativeTable(t *testing.T) {
	nt := NewNativeTable()
	fn := func(i *Interpreter, t *Thread, this Value, args []Value) (Value, *UserError) {
		return Undefined{}, nil
	}
	obj := nt.Register("ns.fn", fn)
	if nt.Lookup("ns.fn") != obj {
		t.Error("lookup by id failed")
	}
	if nt.IDOf(obj) != "ns.fn" {
		t.Error("reverse lookup failed")
	}
	if nt.Lookup("nope") != nil {
		t.Error("unknown id resolved")
	}
	// Re-registration keeps the object identity.
	again := nt.Register("ns.fn", fn)
	if again != obj {
		t.Error("re-registration replaced the function object")
	}
	ids := nt.IDs()
	if len(ids) != 1 || ids[0] != "ns.fn" {
		t.Errorf("ids = %v", ids)
	}
}

func TestInterpretersAreIsolated(t *testing.T) {
	i1 := New()
	i2 := New()
	i1.Registry().Bind("only1", NewObject(nil))
	if i2.Registry().Lookup("only1") != nil {
		t.Error("registries shared between interpreters")
	}
	if i1.protos.Object == i2.protos.Object {
		t.Error("prototype singletons shared between interpreters")
	}
}
