package declare

import (
	"os"
	"path/filepath"
	"testing"

	"texforge/internal/channel"
)

const testDeclarations = `
version = 1

[[rules]]
match = "hero_*.png"
material = "hero"

[[rules]]
match = "*_packed.*"
role = "roughness"

[[rules]]
match = "*_preview.*"
ignore = true
`

func TestParseAndLookup(t *testing.T) {
	d, err := Parse([]byte(testDeclarations))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Empty() {
		t.Fatal("rules not loaded")
	}
	if d.Checksum == "" {
		t.Fatal("empty checksum")
	}

	tests := []struct {
		filename string
		found    bool
		override Override
	}{
		{"hero_basecolor.png", true, Override{Material: "hero"}},
		{"HERO_roughness.PNG", true, Override{Material: "hero"}},
		{"wood_packed.exr", true, Override{Role: channel.RoleRoughness, HasRole: true}},
		{"wood_preview.png", true, Override{Ignore: true}},
		{"wood_basecolor.png", false, Override{}},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, found := d.Lookup(tt.filename)
			if found != tt.found {
				t.Fatalf("Lookup(%q) found = %v, want %v", tt.filename, found, tt.found)
			}
			if got != tt.override {
				t.Errorf("Lookup(%q) = %+v, want %+v", tt.filename, got, tt.override)
			}
		})
	}
}

func TestLookupFirstMatchWins(t *testing.T) {
	d, err := Parse([]byte(`
[[rules]]
match = "wood_*"
material = "first"

[[rules]]
match = "wood_*"
material = "second"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, found := d.Lookup("wood_basecolor.png")
	if !found || got.Material != "first" {
		t.Fatalf("Lookup = %+v (found %v), want first rule", got, found)
	}
}

func TestParseRejectsInvalidRules(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing pattern", "[[rules]]\nmaterial = \"x\"\n"},
		{"bad glob", "[[rules]]\nmatch = \"[unclosed\"\n"},
		{"unknown role", "[[rules]]\nmatch = \"*\"\nrole = \"specular\"\n"},
		{"not toml", "rules = }{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Fatalf("Parse accepted %s", tt.name)
			}
		})
	}
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	d, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !d.Empty() {
		t.Fatal("expected empty declarations for missing file")
	}
	if _, found := d.Lookup("anything.png"); found {
		t.Fatal("empty declarations matched a filename")
	}
}

func TestLoadReadsScanRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "MATERIALS.toml"), []byte(testDeclarations), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, found := d.Lookup("hero_basecolor.png"); !found {
		t.Fatal("declarations from scan root not applied")
	}
}
