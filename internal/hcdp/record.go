package hcdp

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// Record is one unwrapped result entry. Fields vary by collection (the
// portal stores most scalars as strings), so access is by key with explicit
// conversion.
type Record struct {
	raw gjson.Result
}

// Has reports whether the record carries the given field.
func (r Record) Has(key string) bool {
	return r.raw.Get(key).Exists()
}

// Str returns the field as a string, or "" when absent.
func (r Record) Str(key string) string {
	return r.raw.Get(key).String()
}

// Float parses the field as a number. The portal serializes readings and
// coordinates as strings, so this goes through strconv rather than trusting
// the JSON type.
func (r Record) Float(key string) (float64, error) {
	v := r.raw.Get(key)
	if !v.Exists() {
		return 0, fmt.Errorf("hcdp: record has no field %q", key)
	}
	f, err := strconv.ParseFloat(v.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("hcdp: field %q: %w", key, err)
	}
	return f, nil
}

// RecordFromJSON builds a Record from a raw field map. Intended for tests
// and fixtures.
func RecordFromJSON(s string) Record {
	return Record{raw: gjson.Parse(s)}
}
