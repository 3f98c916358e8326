package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FieldValue is one field as the oracle returns it, or as ground truth states it.
// It decodes from a bare string/number/bool or from {"value": ..., "status": ...}.
type FieldValue struct {
	Value  string `json:"value"`
	Status string `json:"status,omitempty"`
}

func (v *FieldValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = FieldValue{}
		return nil
	}
	if b[0] != '{' {
		s, err := scalarString(b)
		if err != nil {
			// Arrays come back as their JSON text.
			s = string(b)
		}
		*v = FieldValue{Value: s}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("field value: %w", err)
	}
	raw, ok := obj["value"]
	if !ok {
		// No value key: keep the whole object as text so the mismatch shows what came back.
		*v = FieldValue{Value: string(b)}
		return nil
	}
	val, err := scalarString(bytes.TrimSpace(raw))
	if err != nil {
		val = string(raw)
	}
	out := FieldValue{Value: val}
	if st, ok := obj["status"]; ok {
		if s, err := scalarString(bytes.TrimSpace(st)); err == nil {
			out.Status = s
		}
	}
	*v = out
	return nil
}

func scalarString(b []byte) (string, error) {
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return "", nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	case 't', 'f':
		var x bool
		if err := json.Unmarshal(b, &x); err != nil {
			return "", err
		}
		return strconv.FormatBool(x), nil
	case '{', '[':
		return "", fmt.Errorf("not a scalar: %s", b)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}

// Extraction maps field id to the value the oracle produced for one document.
type Extraction map[string]FieldValue

// Expected maps field id to its ground-truth value for one document.
type Expected map[string]FieldValue

// FieldIDs returns the expected field ids in a stable order.
func (e Expected) FieldIDs() []string {
	ids := make([]string, 0, len(e))
	for id := range e {
		ids = append(ids, id)
	}
	sortFieldIDs(ids)
	return ids
}
