package sitetheme

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseConfig(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		cfg, err := ParseConfig([]byte(`{"colors":{"danger":"#dc3545"},"brand":{"name":"Deli Queue"}}`))
		if err != nil {
			t.Fatalf("ParseConfig() error = %v", err)
		}
		colors, ok := cfg.Colors()
		if !ok {
			t.Fatal("Colors() not found")
		}
		if colors["danger"] != "#dc3545" {
			t.Errorf("colors.danger = %v", colors["danger"])
		}
	})

	malformed := map[string]string{
		"syntax error": "{not json",
		"empty":        "",
		"whitespace":   "  \n",
		"array root":   `["#fff"]`,
		"string root":  `"#fff"`,
		"null root":    "null",
		"trailing":     `{"colors":{}} extra`,
	}
	for name, input := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(input))
			if !errors.Is(err, ErrMalformedConfig) {
				t.Errorf("ParseConfig(%q) error = %v, want ErrMalformedConfig", input, err)
			}
		})
	}
}

func TestConfig_Colors(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		wantOK bool
	}{
		{"nil config", nil, false},
		{"no colors", Config{"brand": map[string]any{}}, false},
		{"colors not an object", Config{"colors": []any{"#fff"}}, false},
		{"colors", Config{"colors": map[string]any{"primary": "#111"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := tt.cfg.Colors(); ok != tt.wantOK {
				t.Errorf("Colors() ok = %v, want %v", ok, tt.wantOK)
			}
		})
	}
}

func TestConfig_Marshal(t *testing.T) {
	cfg := Config{
		"colors":   map[string]any{"primary": "#111", "primaryHover": "#222"},
		"features": map[string]any{"readyPool": true},
	}
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	parsed, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if diff := cmp.Diff(cfg, parsed); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := (Config{"bad": make(chan int)}).Marshal(); err == nil {
		t.Error("Marshal() of unencodable value should fail")
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		v    any
		want bool
	}{
		{nil, false},
		{false, false},
		{true, true},
		{"", false},
		{"#fff", true},
		{0.0, false},
		{math.NaN(), false},
		{1.5, true},
		{0, false},
		{3, true},
		{int64(0), false},
		{json.Number("0"), false},
		{json.Number("12"), true},
		{map[string]any{}, true},
		{[]any{}, true},
	}
	for _, tt := range tests {
		if got := truthy(tt.v); got != tt.want {
			t.Errorf("truthy(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestPropertyValue(t *testing.T) {
	if got := propertyValue("#fff"); got != "#fff" {
		t.Errorf("propertyValue(string) = %q", got)
	}
	if got := propertyValue(true); got != "true" {
		t.Errorf("propertyValue(true) = %q", got)
	}
	if got := propertyValue(12.0); got != "12" {
		t.Errorf("propertyValue(12.0) = %q", got)
	}
}
