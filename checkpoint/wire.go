// Package checkpoint stores interpreter snapshots durably and encodes them
// for transport. Snapshots are CBOR-encoded record arrays kept in a SQLite
// database, one row per checkpoint.
package checkpoint

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/warren/interp"
)

// cborEncMode uses canonical encoding so identical snapshots produce
// identical bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("checkpoint: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a snapshot record array to CBOR bytes.
func Marshal(records []interp.Record) ([]byte, error) {
	return cborEncMode.Marshal(records)
}

// Unmarshal deserializes a snapshot record array from CBOR bytes.
func Unmarshal(data []byte) ([]interp.Record, error) {
	var records []interp.Record
	if err := cbor.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal snapshot: %w", err)
	}
	return records, nil
}
