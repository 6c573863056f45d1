package checkpoint

import (
	"testing"

	"github.com/chazu/warren/interp"
)

func TestWireRoundTrip(t *testing.T) {
	records := []interp.Record{
		{
			Type:    "Interpreter",
			Version: interp.SnapshotVersion,
			Props: interp.PropList{
				{K: "value", V: map[string]string{"Value": "undefined"}},
				{K: "nextThread", V: float64(3)},
			},
		},
		{
			Type: "Object",
			Props: interp.PropList{
				{K: "zebra", V: float64(1)},
				{K: "apple", V: float64(2)},
				{K: "mango", V: interp.Ref{N: 0}},
				{K: "nan", V: map[string]string{"Number": "NaN"}},
				{K: "neg", V: map[string]string{"Number": "-0"}},
			},
			NonWritable: []string{"apple"},
		},
	}

	data, err := Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("record count %d", len(got))
	}

	// Property insertion order survives the wire.
	props := got[1].Props
	if len(props) != 5 {
		t.Fatalf("prop count %d", len(props))
	}
	wantOrder := []string{"zebra", "apple", "mango", "nan", "neg"}
	for i, k := range wantOrder {
		if props[i].K != k {
			t.Errorf("prop %d = %q, want %q", i, props[i].K, k)
		}
	}
	if got[1].NonWritable[0] != "apple" {
		t.Error("attribute companion list lost")
	}
}

func TestWireSnapshotRestores(t *testing.T) {
	i1 := interp.New()
	obj := interp.NewObject(nil)
	i1.Registry().Bind("wired", obj)

	data, err := Marshal(i1.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	records, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}

	i2 := interp.New()
	if err := i2.Restore(records); err != nil {
		t.Fatalf("restore after wire round trip: %v", err)
	}
	if i2.Registry().Lookup("wired") == nil {
		t.Error("binding lost across the wire")
	}
}

func TestWireDeterministic(t *testing.T) {
	records := interp.New().Snapshot()
	d1, err := Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := Marshal(records)
	if err != nil {
		t.Fatal(err)
	}
	if string(d1) != string(d2) {
		t.Error("canonical encoding is not deterministic")
	}
}

func TestWireGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte("not cbor at all")); err == nil {
		t.Error("garbage unmarshal succeeded")
	}
}
