package results

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Snapshot is the set of values reported after one dispatch.
// It is never modified once a Reducer has published it.
type Snapshot struct {
	values map[string]any
}

// NewSnapshot copies values into a snapshot.
func NewSnapshot(values map[string]any) Snapshot {
	m := make(map[string]any, len(values))
	for k, v := range values {
		m[k] = v
	}
	return Snapshot{values: m}
}

// Get returns the value reported for key.
func (s Snapshot) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Len returns the number of keys.
func (s Snapshot) Len() int {
	return len(s.values)
}

// Keys returns the reported keys in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the snapshot's values.
func (s Snapshot) Map() map[string]any {
	m := make(map[string]any, len(s.values))
	for k, v := range s.values {
		m[k] = v
	}
	return m
}

// MarshalJSON encodes the snapshot as a JSON object with sorted keys.
// Values that have no JSON form (functions, channels) are written as their
// Go type name.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := []byte("{}")
	for _, k := range s.Keys() {
		raw, err := json.Marshal(s.values[k])
		if err != nil {
			raw, _ = json.Marshal(fmt.Sprintf("%T", s.values[k]))
		}
		out, err = sjson.SetRawBytes(out, escapeKey(k), raw)
		if err != nil {
			return nil, fmt.Errorf("results: encode key %q: %w", k, err)
		}
	}
	return out, nil
}

// Query evaluates a gjson path against the JSON form of the snapshot,
// e.g. "order.items.#" or "user.name".
func (s Snapshot) Query(path string) gjson.Result {
	data, err := s.MarshalJSON()
	if err != nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(data, path)
}

// escapeKey turns a report key into a single sjson path component.
func escapeKey(key string) string {
	var b strings.Builder
	numeric := key != ""
	for _, r := range key {
		if r < '0' || r > '9' {
			numeric = false
		}
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	if numeric {
		// sjson treats bare numbers as array indexes.
		return ":" + b.String()
	}
	return b.String()
}
