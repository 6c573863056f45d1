package interp

import "weak"

// ---------------------------------------------------------------------------
// Iterable weak containers
// ---------------------------------------------------------------------------
//
// Both containers expose the usual associative API plus iteration in
// insertion order, and neither extends the lifetime of its keys. A dead
// entry is dropped the next time anything observes the container (Size,
// Has, Get, iteration); until then its absence is unobservable to user
// code.

type weakMapEntry struct {
	key   weak.Pointer[Object]
	value Value
}

// WeakMapData is the internal slot of a WeakMap-class pseudo-object.
type WeakMapData struct {
	entries []weakMapEntry
}

// NewWeakMapData creates an empty iterable weak map payload.
func NewWeakMapData() *WeakMapData {
	return &WeakMapData{}
}

// compact drops entries whose key has been collected.
func (m *WeakMapData) compact() {
	live := m.entries[:0]
	for _, e := range m.entries {
		if e.key.Value() != nil {
			live = append(live, e)
		}
	}
	m.entries = live
}

// Get returns the value for key, if the key is present and alive.
func (m *WeakMapData) Get(key *Object) (Value, bool) {
	m.compact()
	for _, e := range m.entries {
		if e.key.Value() == key {
			return e.value, true
		}
	}
	return Undefined{}, false
}

// Set inserts or updates the entry for key.
func (m *WeakMapData) Set(key *Object, v Value) {
	m.compact()
	for i := range m.entries {
		if m.entries[i].key.Value() == key {
			m.entries[i].value = v
			return
		}
	}
	m.entries = append(m.entries, weakMapEntry{key: weak.Make(key), value: v})
}

// Has reports whether key is present and alive.
func (m *WeakMapData) Has(key *Object) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes the entry for key, reporting whether it was present.
func (m *WeakMapData) Delete(key *Object) bool {
	m.compact()
	for i, e := range m.entries {
		if e.key.Value() == key {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Size returns the number of currently live entries.
func (m *WeakMapData) Size() int {
	m.compact()
	return len(m.entries)
}

// Each calls fn for every live entry in insertion order.
func (m *WeakMapData) Each(fn func(key *Object, v Value)) {
	m.compact()
	for _, e := range m.entries {
		if k := e.key.Value(); k != nil {
			fn(k, e.value)
		}
	}
}

type weakSetEntry struct {
	key weak.Pointer[Object]
}

// WeakSetData is the internal slot of a WeakSet-class pseudo-object.
type WeakSetData struct {
	entries []weakSetEntry
}

// NewWeakSetData creates an empty iterable weak set payload.
func NewWeakSetData() *WeakSetData {
	return &WeakSetData{}
}

func (s *WeakSetData) compact() {
	live := s.entries[:0]
	for _, e := range s.entries {
		if e.key.Value() != nil {
			live = append(live, e)
		}
	}
	s.entries = live
}

// Add inserts key if not already present.
func (s *WeakSetData) Add(key *Object) {
	s.compact()
	for _, e := range s.entries {
		if e.key.Value() == key {
			return
		}
	}
	s.entries = append(s.entries, weakSetEntry{key: weak.Make(key)})
}

// Has reports whether key is present and alive.
func (s *WeakSetData) Has(key *Object) bool {
	s.compact()
	for _, e := range s.entries {
		if e.key.Value() == key {
			return true
		}
	}
	return false
}

// Delete removes key, reporting whether it was present.
func (s *WeakSetData) Delete(key *Object) bool {
	s.compact()
	for i, e := range s.entries {
		if e.key.Value() == key {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Size returns the number of currently live members.
func (s *WeakSetData) Size() int {
	s.compact()
	return len(s.entries)
}

// Each calls fn for every live member in insertion order.
func (s *WeakSetData) Each(fn func(key *Object)) {
	s.compact()
	for _, e := range s.entries {
		if k := e.key.Value(); k != nil {
			fn(k)
		}
	}
}
