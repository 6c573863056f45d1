package interp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// SnapshotVersion is the format version stamped on the root record.
const SnapshotVersion = 1

// Ref is a reference to another record by index. It marshals as {"#": n}.
type Ref struct {
	N int
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`{"#":%d}`, r.N)), nil
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n, ok := raw["#"]
	if !ok {
		return fmt.Errorf("interp: reference missing #")
	}
	r.N = n
	return nil
}

func (r Ref) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(map[string]int{"#": r.N})
}

func (r *Ref) UnmarshalCBOR(data []byte) error {
	var raw map[string]int
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	n, ok := raw["#"]
	if !ok {
		return fmt.Errorf("interp: reference missing #")
	}
	r.N = n
	return nil
}

// PropEntry is one property of a record. PropList preserves insertion
// order across JSON and CBOR transport; the snapshot's fidelity to
// iteration order depends on it.
type PropEntry struct {
	K string
	V interface{}
}

// PropList is an ordered string → value mapping. It marshals to a JSON
// object whose keys appear in list order, and to a CBOR array of [k, v]
// pairs.
type PropList []PropEntry

// Get returns the value for key k, or nil.
func (p PropList) Get(k string) interface{} {
	for _, e := range p {
		if e.K == k {
			return e.V
		}
	}
	return nil
}

// Has reports whether key k is present.
func (p PropList) Has(k string) bool {
	for _, e := range p {
		if e.K == k {
			return true
		}
	}
	return false
}

func (p PropList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for idx, e := range p {
		if idx > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(e.K)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(e.V)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *PropList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("interp: props must be an object")
	}
	var out PropList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("interp: prop key is %T", keyTok)
		}
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = append(out, PropEntry{K: key, V: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*p = out
	return nil
}

func (p PropList) MarshalCBOR() ([]byte, error) {
	pairs := make([][2]interface{}, len(p))
	for idx, e := range p {
		pairs[idx] = [2]interface{}{e.K, e.V}
	}
	return cbor.Marshal(pairs)
}

func (p *PropList) UnmarshalCBOR(data []byte) error {
	var pairs [][2]interface{}
	if err := cbor.Unmarshal(data, &pairs); err != nil {
		return err
	}
	out := make(PropList, 0, len(pairs))
	for _, pair := range pairs {
		k, ok := pair[0].(string)
		if !ok {
			return fmt.Errorf("interp: prop key is %T", pair[0])
		}
		out = append(out, PropEntry{K: k, V: pair[1]})
	}
	*p = out
	return nil
}

// Record describes one live object of a snapshot: a pseudo-object, scope,
// state node, thread, registry, weak container, loaded program, or the
// interpreter root (always record 0).
type Record struct {
	Type    string `json:"type"`
	Version int    `json:"v,omitempty"`    // root record only
	Name    string `json:"name,omitempty"` // registry anchor for singletons
	ID      string `json:"id,omitempty"`   // native-function ID
	Kind    string `json:"kind,omitempty"` // state kind

	Proto     *Ref `json:"proto,omitempty"`
	ProtoNull bool `json:"protoNull,omitempty"`

	Props           PropList `json:"props,omitempty"`
	NonConfigurable []string `json:"nonConfigurable,omitempty"`
	NonEnumerable   []string `json:"nonEnumerable,omitempty"`
	NonWritable     []string `json:"nonWritable,omitempty"`
	Extensible      *bool    `json:"isExtensible,omitempty"` // only ever false

	Source string `json:"source,omitempty"` // RegExp
	Flags  string `json:"flags,omitempty"`  // RegExp

	// Data carries type-specific payloads: Date ISO string, WeakSet member
	// refs, AST-Node source, function internals, thread-handle id.
	Data interface{} `json:"data,omitempty"`
	// Entries carries [key, value] pairs for weak maps and the registry.
	Entries [][2]interface{} `json:"entries,omitempty"`
}

// ---------------------------------------------------------------------------
// Scalar encodings
// ---------------------------------------------------------------------------
//
// The transport cannot distinguish every numeric value and has no
// undefined, so those encode as single-key maps:
//
//	undefined  {"Value": "undefined"}
//	NaN        {"Number": "NaN"}
//	Infinity   {"Number": "Infinity"}
//	-Infinity  {"Number": "-Infinity"}
//	-0         {"Number": "-0"}

func undefinedScalar() interface{} {
	return map[string]string{"Value": "undefined"}
}

func numberScalar(name string) interface{} {
	return map[string]string{"Number": name}
}
