package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestManifestCreateAndFlush(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest(dir)
	ctx := context.Background()

	root, err := m.CreateNode(ctx, "RootMaterial", "MAT_wood", "chair")
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	tex, err := m.CreateNode(ctx, "TextureSampler", "wood_basecolor_tex", "chair")
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if err := m.SetParam(ctx, tex, "filename", "/t/chair/wood_basecolor.png"); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	if err := m.Connect(ctx, tex, root, "base_color"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "chair.yaml")); err != nil {
		t.Fatalf("scope file not written: %v", err)
	}
}

// A material written in one session is found by a fresh backend reading the
// same directory, so policies apply across runs.
func TestManifestFindExistingAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := NewManifest(dir)
	if _, err := first.CreateNode(ctx, "RootMaterial", "MAT_wood", "chair"); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if err := first.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	second := NewManifest(dir)
	_, found, err := second.FindExisting(ctx, "MAT_wood", "chair")
	if err != nil {
		t.Fatalf("FindExisting: %v", err)
	}
	if !found {
		t.Fatal("material from previous session not found")
	}

	// Only root material nodes count as existing materials.
	_, found, err = second.FindExisting(ctx, "MAT_steel", "chair")
	if err != nil {
		t.Fatalf("FindExisting: %v", err)
	}
	if found {
		t.Fatal("found a material that was never created")
	}
}

// Remove takes the whole material with it: the root plus everything wired
// to it, leaving other materials in the scope untouched.
func TestManifestRemoveCascades(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest(dir)
	ctx := context.Background()

	root, _ := m.CreateNode(ctx, "RootMaterial", "MAT_wood", "chair")
	tex, _ := m.CreateNode(ctx, "TextureSampler", "wood_tex", "chair")
	out, _ := m.CreateNode(ctx, "Output", "wood_out", "chair")
	if _, err := m.CreateNode(ctx, "RootMaterial", "MAT_steel", "chair"); err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if err := m.Connect(ctx, tex, root, "base_color"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := m.Connect(ctx, root, out, "output"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if err := m.Remove(ctx, root); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	_, found, err := m.FindExisting(ctx, "MAT_wood", "chair")
	if err != nil {
		t.Fatalf("FindExisting: %v", err)
	}
	if found {
		t.Fatal("removed material still found")
	}
	if err := m.SetParam(ctx, tex, "filename", "x"); err == nil {
		t.Fatal("removed sampler handle still accepts writes")
	}
	_, found, err = m.FindExisting(ctx, "MAT_steel", "chair")
	if err != nil || !found {
		t.Fatalf("unrelated material vanished (found=%v err=%v)", found, err)
	}
}

func TestManifestScopesAreSeparateFiles(t *testing.T) {
	dir := t.TempDir()
	m := NewManifest(dir)
	ctx := context.Background()

	if _, err := m.CreateNode(ctx, "RootMaterial", "MAT_wood", "chair"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.CreateNode(ctx, "RootMaterial", "MAT_wood", "table"); err != nil {
		t.Fatal(err)
	}
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	for _, f := range []string{"chair.yaml", "table.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing scope file %s: %v", f, err)
		}
	}
}
