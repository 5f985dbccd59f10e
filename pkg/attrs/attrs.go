// Package attrs reads values back out of slog-style key/value attribute lists,
// so audit helpers can log and emit from the same arguments.
package attrs

import "fmt"

// Lookup returns the value for key in a [k1, v1, k2, v2, ...] list. String
// and fmt.Stringer values are returned as text; anything else is not found.
func Lookup(attrs []any, key string) (string, bool) {
	for i := 0; i+1 < len(attrs); i += 2 {
		if k, ok := attrs[i].(string); !ok || k != key {
			continue
		}
		switch v := attrs[i+1].(type) {
		case string:
			return v, true
		case fmt.Stringer:
			return v.String(), true
		}
	}
	return "", false
}

// ExtractString is Lookup without the found flag.
func ExtractString(attrs []any, key string) string {
	v, _ := Lookup(attrs, key)
	return v
}

// FirstOf returns the first non-empty value among keys.
func FirstOf(attrs []any, keys ...string) string {
	for _, key := range keys {
		if v := ExtractString(attrs, key); v != "" {
			return v
		}
	}
	return ""
}
