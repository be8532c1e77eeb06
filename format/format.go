// Package format decodes site configuration documents into map[string]any trees.
//
// Supported formats are YAML, TOML, JSON and JSONC (JSON with comments and
// trailing commas). The format is chosen from the file extension.
package format

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// Format identifies a document format.
type Format string

// Supported formats.
const (
	FormatYAML  Format = "yaml"
	FormatTOML  Format = "toml"
	FormatJSON  Format = "json"
	FormatJSONC Format = "jsonc"
)

// ErrUnsupportedFormat is returned when no decoder matches a file extension.
var ErrUnsupportedFormat = errors.New("unsupported configuration format")

// Detect returns the format for the given file name based on its extension.
func Detect(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	case ".jsonc":
		return FormatJSONC, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// DecodeFile decodes data using the format detected from name.
func DecodeFile(name string, data []byte) (map[string]any, error) {
	f, err := Detect(name)
	if err != nil {
		return nil, err
	}
	return Decode(f, data)
}

// Decode parses data in the given format and returns content as map[string]any.
// Returns an empty map if data is empty. A root that is not an object is an error.
func Decode(f Format, data []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}

	var (
		root any
		err  error
	)
	switch f {
	case FormatYAML:
		err = yaml.Unmarshal(trimmed, &root)
		root = normalize(root)
	case FormatTOML:
		var m map[string]any
		err = toml.Unmarshal(trimmed, &m)
		root = m
	case FormatJSON:
		err = json.Unmarshal(trimmed, &root)
	case FormatJSONC:
		var std []byte
		std, err = hujson.Standardize(trimmed)
		if err == nil {
			err = json.Unmarshal(std, &root)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", strings.ToUpper(string(f)), err)
	}

	if root == nil {
		return map[string]any{}, nil
	}

	obj, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to parse %s: root must be an object, got %T", strings.ToUpper(string(f)), root)
	}
	return obj, nil
}

// normalize converts YAML mappings with non-string keys into map[string]any
// so that every decoder yields the same tree shape.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	default:
		return v
	}
}
