package sitetheme

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ErrMalformedConfig is returned when a persisted snapshot cannot be decoded
// into a configuration object.
var ErrMalformedConfig = errors.New("malformed configuration")

// Config is a configuration object: a nested mapping whose "colors" entry
// drives the live style state.
type Config map[string]any

// ParseConfig decodes a persisted snapshot.
// Empty input, syntax errors and roots that are not objects are reported as
// ErrMalformedConfig.
func ParseConfig(data []byte) (Config, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedConfig)
	}

	var root any
	if err := json.Unmarshal(trimmed, &root); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedConfig, err)
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: root must be an object, got %T", ErrMalformedConfig, root)
	}
	return Config(obj), nil
}

// Marshal encodes the configuration as a snapshot.
func (c Config) Marshal() ([]byte, error) {
	data, err := json.Marshal(map[string]any(c))
	if err != nil {
		return nil, fmt.Errorf("encode configuration: %w", err)
	}
	return data, nil
}

// Colors returns the "colors" mapping, if present.
func (c Config) Colors() (map[string]any, bool) {
	if c == nil {
		return nil, false
	}
	colors, ok := c["colors"].(map[string]any)
	return colors, ok
}

// truthy reports whether v counts as set: nil, false, "", numeric zero and NaN do not.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case float64:
		return val != 0 && !math.IsNaN(val)
	case float32:
		return val != 0 && !math.IsNaN(float64(val))
	case int:
		return val != 0
	case int64:
		return val != 0
	case int32:
		return val != 0
	case uint64:
		return val != 0
	case json.Number:
		return val != "" && val != "0"
	default:
		return true
	}
}

// propertyValue formats a truthy color value as a property value.
func propertyValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
