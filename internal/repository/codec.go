package repository

import (
	"encoding/json"
	"errors"
)

// ErrStaleState is returned when a guarded update matched zero rows
// because another writer changed the row first
var ErrStaleState = errors.New("stale workflow state")

// marshalJSON encodes a value into the TEXT column representation.
// nil slices become empty JSON arrays so columns stay queryable.
func marshalJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "[]", nil
	}
	return string(data), nil
}

func unmarshalStrings(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
