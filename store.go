package sitetheme

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/yacchi/sitetheme/format"
	"github.com/yacchi/sitetheme/maputil"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var parseDefaults = sync.OnceValues(func() (map[string]any, error) {
	return format.Decode(format.FormatYAML, defaultsYAML)
})

// Store holds a static configuration tree and answers dotted-path lookups.
//
// A Store is immutable after construction, so every accessor is pure and safe
// for concurrent use: repeated calls with the same path return identical results.
type Store struct {
	tree map[string]any
}

// NewStore creates a Store over a deep copy of tree.
func NewStore(tree map[string]any) *Store {
	return &Store{tree: maputil.Clone(tree)}
}

// Default returns a Store holding the built-in default site configuration.
func Default() *Store {
	tree, err := parseDefaults()
	if err != nil {
		// The embedded document is part of the build; failing to parse it is a bug.
		panic(fmt.Sprintf("sitetheme: invalid embedded defaults: %v", err))
	}
	return NewStore(tree)
}

// LoadStore reads a configuration file and merges it over the built-in defaults.
// The format (YAML, TOML, JSON or JSONC) is chosen by the file extension.
//
// Example:
//
//	store, err := sitetheme.LoadStore(ctx, "/etc/deliq/site.yaml")
//	title := store.String("text.guestTitle", "Join the Queue!")
func LoadStore(ctx context.Context, path string) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}
	override, err := format.DecodeFile(path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %q: %w", path, err)
	}

	base := Default()
	return &Store{tree: maputil.Merge(base.tree, override)}, nil
}

// Lookup returns the value at the dotted path and whether it was found.
// The returned value is shared with the store and must not be modified.
func (s *Store) Lookup(path string) (any, bool) {
	return maputil.Lookup(s.tree, path)
}

// Get returns the value at the dotted path, or defaultValue when any segment
// of the path is missing or traverses a non-object value.
func (s *Store) Get(path string, defaultValue any) any {
	return maputil.LookupOr(s.tree, path, defaultValue)
}

// String returns the string at path, or defaultValue if it is missing or not a string.
func (s *Store) String(path, defaultValue string) string {
	if v, ok := s.Lookup(path); ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return defaultValue
}

// Bool returns the bool at path, or defaultValue if it is missing or not a bool.
func (s *Store) Bool(path string, defaultValue bool) bool {
	if v, ok := s.Lookup(path); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultValue
}

// Int returns the integer at path, or defaultValue if it is missing or not an
// integral number. Numbers decoded from YAML, TOML and JSON are all accepted.
func (s *Store) Int(path string, defaultValue int) int {
	v, ok := s.Lookup(path)
	if !ok {
		return defaultValue
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint64:
		if n <= math.MaxInt {
			return int(n)
		}
	case float64:
		if n == math.Trunc(n) && n >= math.MinInt && n < -math.MinInt {
			return int(n)
		}
	}
	return defaultValue
}

// Tree returns a deep copy of the whole configuration tree.
func (s *Store) Tree() map[string]any {
	return maputil.Clone(s.tree)
}

// Config returns the tree as a Config, ready to be applied or persisted.
func (s *Store) Config() Config {
	return Config(s.Tree())
}
