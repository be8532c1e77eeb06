package maputil

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		path string
		want []string
	}{
		{"single key", "colors", []string{"colors"}},
		{"nested", "colors.primary", []string{"colors", "primary"}},
		{"empty path", "", []string{""}},
		{"double dot", "a..b", []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.path)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %#v, want %#v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	data := map[string]any{
		"colors": map[string]any{
			"primary": "#007bff",
		},
		"features": map[string]any{
			"readyPool": false,
		},
		"images": []any{"logo.png", map[string]any{"alt": "Logo"}},
		"brand":  "Deli Queue",
		"unset":  nil,
	}

	tests := []struct {
		name   string
		path   string
		want   any
		wantOK bool
	}{
		{"top level", "brand", "Deli Queue", true},
		{"nested", "colors.primary", "#007bff", true},
		{"false value", "features.readyPool", false, true},
		{"nil value present", "unset", nil, true},
		{"slice index", "images.0", "logo.png", true},
		{"through slice", "images.1.alt", "Logo", true},
		{"slice out of range", "images.5", nil, false},
		{"slice non-numeric", "images.first", nil, false},
		{"missing leaf", "colors.missing", nil, false},
		{"missing branch", "missing.primary", nil, false},
		{"through scalar", "brand.name", nil, false},
		{"through nil", "unset.value", nil, false},
		{"empty path", "", nil, false},
		{"trailing dot", "colors.", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(data, tt.path)
			if ok != tt.wantOK {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.path, ok, tt.wantOK)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lookup(%q) = %#v, want %#v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLookup_EmptyKeyPresent(t *testing.T) {
	data := map[string]any{"": "root-empty"}
	got, ok := Lookup(data, "")
	if !ok || got != "root-empty" {
		t.Errorf("Lookup(\"\") = %v, %v, want %q, true", got, ok, "root-empty")
	}
}

func TestLookupOr(t *testing.T) {
	data := map[string]any{
		"a": map[string]any{
			"b": map[string]any{
				"c": "value",
			},
		},
	}

	tests := []struct {
		path string
		want any
	}{
		{"a.b.c", "value"},
		{"a.b.d", "default"},
		{"a.x.c", "default"},
		{"x.b.c", "default"},
		{"a.b.c.d", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := LookupOr(data, tt.path, "default"); got != tt.want {
				t.Errorf("LookupOr(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLookup_NonMapRoot(t *testing.T) {
	if _, ok := Lookup(nil, "a"); ok {
		t.Error("Lookup(nil) should not resolve")
	}
	if _, ok := Lookup("scalar", "a"); ok {
		t.Error("Lookup(scalar) should not resolve")
	}
}

func TestMerge(t *testing.T) {
	dst := map[string]any{
		"brand": map[string]any{"name": "Deli Queue", "logo": "a.png"},
		"colors": map[string]any{
			"primary":   "#007bff",
			"secondary": "#6c757d",
		},
		"tags": []any{"a"},
	}
	src := map[string]any{
		"brand":  map[string]any{"name": "Coaster Queue"},
		"colors": map[string]any{"primary": "#ff0000"},
		"tags":   []any{"b", "c"},
		"extra":  map[string]any{"x": 1},
	}

	got := Merge(dst, src)
	want := map[string]any{
		"brand": map[string]any{"name": "Coaster Queue", "logo": "a.png"},
		"colors": map[string]any{
			"primary":   "#ff0000",
			"secondary": "#6c757d",
		},
		"tags":  []any{"b", "c"},
		"extra": map[string]any{"x": 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Merge() = %#v, want %#v", got, want)
	}

	// Values taken from src must not alias src.
	src["extra"].(map[string]any)["x"] = 2
	if got["extra"].(map[string]any)["x"] != 1 {
		t.Error("Merge() result aliases src")
	}
}

func TestMerge_NilDst(t *testing.T) {
	got := Merge(nil, map[string]any{"a": 1})
	if !reflect.DeepEqual(got, map[string]any{"a": 1}) {
		t.Errorf("Merge(nil, ...) = %#v", got)
	}
}

func TestClone(t *testing.T) {
	original := map[string]any{
		"brand": "Deli Queue",
		"colors": map[string]any{
			"primary": "#007bff",
		},
		"images": []any{"logo.png", map[string]any{"alt": "Logo"}},
	}

	cloned := Clone(original)
	if !reflect.DeepEqual(cloned, original) {
		t.Fatalf("Clone() = %#v, want %#v", cloned, original)
	}

	cloned["brand"] = "changed"
	cloned["colors"].(map[string]any)["primary"] = "#000000"
	cloned["images"].([]any)[0] = "other.png"
	cloned["images"].([]any)[1].(map[string]any)["alt"] = "changed"

	if original["brand"] != "Deli Queue" {
		t.Error("original[brand] was modified")
	}
	if original["colors"].(map[string]any)["primary"] != "#007bff" {
		t.Error("original[colors][primary] was modified")
	}
	if original["images"].([]any)[0] != "logo.png" {
		t.Error("original[images][0] was modified")
	}
	if original["images"].([]any)[1].(map[string]any)["alt"] != "Logo" {
		t.Error("original[images][1][alt] was modified")
	}
}

func TestClone_Nil(t *testing.T) {
	got := Clone(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Clone(nil) = %#v, want empty map", got)
	}
}

func TestMerge_DoesNotAliasSource(t *testing.T) {
	src := map[string]any{"colors": map[string]any{"primary": "#111"}}
	got := Merge(map[string]any{}, src)

	src["colors"].(map[string]any)["primary"] = "#999"
	if got["colors"].(map[string]any)["primary"] != "#111" {
		t.Error("Merge result shares maps with src")
	}
}
