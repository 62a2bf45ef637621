package cbl

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"time"

	"github.com/kolbkit/ckv/ckverr"
)

func init() {
	gob.Register([]any{})
	gob.Register(map[string]any{})
	gob.Register(time.Time{})
}

const (
	gobNilMarker   byte = 0x00
	gobValueMarker byte = 0x01
)

// encodeValue serializes v for storage in the backend. When useJSON is
// false it uses encoding/gob over the fixed JSON-shaped value domain
// this layer supports, the same technique the RPC layer's gob
// serializer uses for wire messages.
func encodeValue(v any, useJSON bool) ([]byte, error) {
	if useJSON {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, ckverr.Wrap(ckverr.CodeTypeMismatch, "json encode value", err)
		}
		return b, nil
	}

	var buf bytes.Buffer
	if v == nil {
		buf.WriteByte(gobNilMarker)
		return buf.Bytes(), nil
	}
	buf.WriteByte(gobValueMarker)
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, ckverr.Wrap(ckverr.CodeTypeMismatch, "gob encode value", err)
	}
	return buf.Bytes(), nil
}

// decodeValue is the inverse of encodeValue.
func decodeValue(b []byte, useJSON bool) (any, error) {
	if useJSON {
		var v any
		if len(b) == 0 {
			return nil, nil
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return nil, ckverr.Wrap(ckverr.CodeTypeMismatch, "json decode value", err)
		}
		return v, nil
	}

	if len(b) == 0 || b[0] == gobNilMarker {
		return nil, nil
	}
	var v any
	if err := gob.NewDecoder(bytes.NewReader(b[1:])).Decode(&v); err != nil {
		return nil, ckverr.Wrap(ckverr.CodeTypeMismatch, "gob decode value", err)
	}
	return v, nil
}
