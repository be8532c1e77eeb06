package format

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"site.yaml", FormatYAML, false},
		{"site.YML", FormatYAML, false},
		{"site.toml", FormatTOML, false},
		{"site.json", FormatJSON, false},
		{"/etc/deliq/site.jsonc", FormatJSONC, false},
		{"site.ini", "", true},
		{"site", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Detect(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("Detect(%q) error = %v, want ErrUnsupportedFormat", tt.name, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect(%q) error = %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestDecode_AllFormats(t *testing.T) {
	tests := []struct {
		name string
		data string
		want map[string]any
	}{
		{
			name: "site.yaml",
			data: "colors:\n  primary: \"#111\"\nfeatures:\n  readyPool: true\n",
			want: map[string]any{
				"colors":   map[string]any{"primary": "#111"},
				"features": map[string]any{"readyPool": true},
			},
		},
		{
			name: "site.toml",
			data: "[colors]\nprimary = \"#111\"\n\n[features]\nreadyPool = true\n",
			want: map[string]any{
				"colors":   map[string]any{"primary": "#111"},
				"features": map[string]any{"readyPool": true},
			},
		},
		{
			name: "site.json",
			data: `{"colors":{"primary":"#111"},"features":{"readyPool":true}}`,
			want: map[string]any{
				"colors":   map[string]any{"primary": "#111"},
				"features": map[string]any{"readyPool": true},
			},
		},
		{
			name: "site.jsonc",
			data: "{\n  // brand colors\n  \"colors\": {\"primary\": \"#111\",},\n  \"features\": {\"readyPool\": true},\n}",
			want: map[string]any{
				"colors":   map[string]any{"primary": "#111"},
				"features": map[string]any{"readyPool": true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFile(tt.name, []byte(tt.data))
			if err != nil {
				t.Fatalf("DecodeFile() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DecodeFile() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	for _, f := range []Format{FormatYAML, FormatTOML, FormatJSON, FormatJSONC} {
		got, err := Decode(f, []byte("  \n"))
		if err != nil {
			t.Fatalf("Decode(%s, empty) error = %v", f, err)
		}
		if len(got) != 0 {
			t.Errorf("Decode(%s, empty) = %v, want empty map", f, got)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		data    string
		wantMsg string
	}{
		{"invalid json", FormatJSON, "{not json", "failed to parse JSON"},
		{"json array root", FormatJSON, `["a"]`, "root must be an object"},
		{"yaml scalar root", FormatYAML, "just text", "root must be an object"},
		{"invalid toml", FormatTOML, "[colors\nprimary=", "failed to parse TOML"},
		{"invalid jsonc", FormatJSONC, "{,}", "failed to parse JSONC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.format, []byte(tt.data))
			if err == nil {
				t.Fatal("Decode() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestDecode_UnknownFormat(t *testing.T) {
	_, err := Decode(Format("ini"), []byte("a=b"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Decode(ini) error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestNormalize_NonStringKeys(t *testing.T) {
	got, err := Decode(FormatYAML, []byte("defaults:\n  1: one\n  2: two\n"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	want := map[string]any{
		"defaults": map[string]any{"1": "one", "2": "two"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}
}
