package checkpoint

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/warren/interp"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func snapshotOf(t *testing.T, bindings ...string) []interp.Record {
	t.Helper()
	i := interp.New()
	for _, name := range bindings {
		i.Registry().Bind(name, interp.NewObject(nil))
	}
	return i.Snapshot()
}

func TestStorePutGet(t *testing.T) {
	s := openTestStore(t)
	records := snapshotOf(t, "thing")

	id, err := s.Put(records)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(records) {
		t.Errorf("record count %d, want %d", len(got), len(records))
	}
	if got[0].Type != "Interpreter" {
		t.Errorf("record 0 type = %q", got[0].Type)
	}
}

func TestStoreLatest(t *testing.T) {
	s := openTestStore(t)
	if _, _, err := s.Latest(); !errors.Is(err, ErrNoCheckpoint) {
		t.Fatalf("empty latest: %v", err)
	}
	first, _ := s.Put(snapshotOf(t))
	second, _ := s.Put(snapshotOf(t, "extra"))
	if second <= first {
		t.Fatalf("ids not increasing: %d then %d", first, second)
	}
	id, _, err := s.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if id != second {
		t.Errorf("latest id = %d, want %d", id, second)
	}
}

func TestStoreListAndPrune(t *testing.T) {
	s := openTestStore(t)
	for k := 0; k < 5; k++ {
		if _, err := s.Put(snapshotOf(t)); err != nil {
			t.Fatal(err)
		}
	}
	metas, err := s.List(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 5 {
		t.Fatalf("list length %d, want 5", len(metas))
	}
	if metas[0].ID < metas[4].ID {
		t.Error("list not newest-first")
	}

	if err := s.Prune(2); err != nil {
		t.Fatal(err)
	}
	metas, _ = s.List(10)
	if len(metas) != 2 {
		t.Errorf("after prune: %d checkpoints, want 2", len(metas))
	}
}

func TestStoreGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(12345); !errors.Is(err, ErrNoCheckpoint) {
		t.Errorf("missing get: %v", err)
	}
}
