// Package envelope flattens the API's list envelopes into uniform records.
//
// Responses arrive either as {"data": [...]} or as a bare list, and each
// item may itself be wrapped as {"data": {...}}. Normalize strips both
// layers. Everything downstream works with Record and its typed accessors
// rather than raw decoded JSON.
package envelope

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record is one normalised item.
type Record map[string]any

// Normalize unwraps a decoded payload into records. Unrecognised shapes
// yield an empty slice and non-object items are dropped.
func Normalize(payload any) []Record {
	var items []any
	switch p := payload.(type) {
	case map[string]any:
		list, ok := p["data"].([]any)
		if !ok {
			return []Record{}
		}
		items = list
	case []any:
		items = p
	default:
		return []Record{}
	}

	out := make([]Record, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if inner, ok := m["data"].(map[string]any); ok {
			m = inner
		}
		out = append(out, Record(m))
	}
	return out
}

// Has reports whether key is present with a non-null value.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	return ok && v != nil
}

// String returns the value at key rendered as text. Numbers keep their
// JSON form; absent and null values yield "".
func (r Record) String(key string) string {
	return toString(r[key])
}

// StringOr returns String(key), or def when that is empty.
func (r Record) StringOr(key, def string) string {
	if s := r.String(key); s != "" {
		return s
	}
	return def
}

// Int returns the integer at key. Fractional numbers, strings and other
// types report false.
func (r Record) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	}
	return 0, false
}

// IntOr returns Int(key), or def when key does not hold an integer.
func (r Record) IntOr(key string, def int) int {
	if n, ok := r.Int(key); ok {
		return n
	}
	return def
}

// IntPtr returns a pointer to the integer at key, nil if absent.
func (r Record) IntPtr(key string) *int {
	n, ok := r.Int(key)
	if !ok {
		return nil
	}
	return &n
}

// Bool reports whether the value at key is truthy: true, a non-zero number
// or a non-empty string.
func (r Record) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	return false
}

// Record returns the nested object at key, or nil.
func (r Record) Record(key string) Record {
	if m, ok := r[key].(map[string]any); ok {
		return Record(m)
	}
	if m, ok := r[key].(Record); ok {
		return m
	}
	return nil
}

// Strings returns the list at key as text, skipping null and empty entries.
// A plain string value is returned as a single-element list.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				item = m["name"]
			}
			if s := strings.TrimSpace(toString(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	}
	return nil
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}
