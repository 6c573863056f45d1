package world

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// JSONCodec returns the Connect option clients and handlers use to speak
// warren's JSON protocol.
func JSONCodec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

// jsonCodec is the Connect codec for warren's hand-declared message
// structs. Warren carries no generated protobuf bindings; every procedure
// speaks JSON over the Connect protocol.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg interface{}) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("world: decoding request: %w", err)
	}
	return nil
}
