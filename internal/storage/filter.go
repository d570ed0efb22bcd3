package storage

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// Filter is a conjunction of exact metadata matches. A nil or empty filter
// matches every record.
type Filter map[string]any

// Matches reports whether metadata carries every key of f with an equal
// value. Values are compared by their JSON encoding so that numbers survive
// a round trip through a database column.
func (f Filter) Matches(metadata map[string]any) bool {
	for key, want := range f {
		got, ok := metadata[key]
		if !ok || !sameValue(got, want) {
			return false
		}
	}
	return true
}

func sameValue(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}
