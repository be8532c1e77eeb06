// Package maputil provides utilities for working with map[string]any data structures
// addressed by dot-delimited paths such as "colors.primary".
package maputil

import (
	"strconv"
	"strings"
)

// Separator delimits the keys of a path.
const Separator = "."

// Split splits a dotted path into its keys.
// Split never returns an empty slice: the empty path is a single empty key,
// so it only resolves when the tree actually contains an empty key.
func Split(path string) []string {
	return strings.Split(path, Separator)
}

// Join builds a dotted path from keys.
func Join(keys ...string) string {
	return strings.Join(keys, Separator)
}

// Lookup retrieves the value at the given dotted path.
// Returns the value and true if found, or nil and false if not found.
//
// Traversal stops as soon as the current node is neither a map nor a slice,
// or does not contain the next key. Slices accept decimal indices.
// A key that is present with a nil value resolves to (nil, true).
//
// Example:
//
//	data := map[string]any{
//	    "colors": map[string]any{
//	        "primary": "#007bff",
//	    },
//	}
//	value, ok := Lookup(data, "colors.primary")  // "#007bff", true
//	value, ok := Lookup(data, "colors.missing")  // nil, false
func Lookup(data any, path string) (any, bool) {
	return LookupKeys(data, Split(path))
}

// LookupKeys traverses the data structure using pre-split keys.
func LookupKeys(data any, keys []string) (any, bool) {
	current := data

	for _, key := range keys {
		switch v := current.(type) {
		case map[string]any:
			val, ok := v[key]
			if !ok {
				return nil, false
			}
			current = val

		case []any:
			index, err := strconv.Atoi(key)
			if err != nil || index < 0 || index >= len(v) {
				return nil, false
			}
			current = v[index]

		default:
			return nil, false
		}
	}

	return current, true
}

// LookupOr retrieves the value at the given dotted path.
// Returns the default value if the path is not found.
func LookupOr(data any, path string, defaultValue any) any {
	value, ok := Lookup(data, path)
	if !ok {
		return defaultValue
	}
	return value
}

// Merge deep-merges src into dst and returns dst.
// Nested maps merge key by key; any other value in src replaces the value in dst.
// Values taken from src are deep-copied.
func Merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, sv := range src {
		sm, srcIsMap := sv.(map[string]any)
		dm, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			dst[k] = Merge(dm, sm)
			continue
		}
		dst[k] = cloneValue(sv)
	}
	return dst
}

// Clone returns a copy of tree that shares no maps or slices with it.
// A nil tree yields an empty, non-nil map.
func Clone(tree map[string]any) map[string]any {
	out := make(map[string]any, len(tree))
	for k, v := range tree {
		out[k] = cloneValue(v)
	}
	return out
}

// cloneValue copies the containers a decoded tree can hold; leaves are
// immutable scalars and are returned unchanged.
func cloneValue(v any) any {
	switch node := v.(type) {
	case map[string]any:
		return Clone(node)
	case []any:
		items := make([]any, len(node))
		for i, item := range node {
			items[i] = cloneValue(item)
		}
		return items
	default:
		return v
	}
}
