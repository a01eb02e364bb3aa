package app

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseDescriptor parses "NAME", "NAME=JSON" or "NAME JSON" into a
// Descriptor. The JSON payload is decoded with numbers as float64.
func ParseDescriptor(s string) (Descriptor, error) {
	s = strings.TrimSpace(s)
	name, raw := s, ""
	if i := strings.IndexAny(s, "= "); i >= 0 {
		name, raw = s[:i], strings.TrimSpace(s[i+1:])
	}

	if name == "" {
		return Descriptor{}, fmt.Errorf("%w: empty action name in %q", ErrInvalidArgument, s)
	}
	if raw == "" {
		return Descriptor{Name: name}, nil
	}
	if !gjson.Valid(raw) {
		return Descriptor{}, fmt.Errorf("%w: invalid JSON payload for %s", ErrInvalidArgument, name)
	}
	return Descriptor{Name: name, Payload: gjson.Parse(raw).Value()}, nil
}
