package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

type Payload map[string]any

// Decode parses a request body into a payload. Absent and empty bodies
// (including null, {}, [], "", 0 and false) yield ErrNoInputData; anything
// that is not a JSON object yields a ViolationError under SchemaKey.
func Decode(body []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrNoInputData
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, Violation(SchemaKey, MsgInvalidInput)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, Violation(SchemaKey, MsgInvalidInput)
	}

	if isEmpty(raw) {
		return nil, ErrNoInputData
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, Violation(SchemaKey, MsgInvalidInput)
	}
	return Payload(obj), nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case string:
		return t == ""
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	}
	return false
}
