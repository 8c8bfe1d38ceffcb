package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"texforge/internal/backend"
	"texforge/internal/channel"
	"texforge/internal/config"
	"texforge/internal/errors"
	"texforge/internal/graph"
	"texforge/internal/material"
	"texforge/internal/report"
)

func writeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func newTestEngine(t *testing.T, mutate func(*config.Config)) *Engine {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func descriptorByName(descs []*material.Descriptor, scope, name string) *material.Descriptor {
	for _, d := range descs {
		if d.MeshScope == scope && d.Name == name {
			return d
		}
	}
	return nil
}

func TestScanEndToEnd(t *testing.T) {
	root := writeTree(t,
		"chair/wood_basecolor.png",
		"chair/wood_roughness.png",
		"chair/wood_normal.png",
		"table/marble_basecolor.exr",
	)
	e := newTestEngine(t, nil)

	out, err := e.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if out.FromCache {
		t.Fatal("first scan reported as cached")
	}
	if len(out.Descriptors) != 2 {
		t.Fatalf("got %d descriptors, want 2: %+v", len(out.Descriptors), out.Descriptors)
	}

	wood := descriptorByName(out.Descriptors, "chair", "wood")
	if wood == nil {
		t.Fatal("chair/wood not found")
	}
	for _, role := range []channel.Role{channel.RoleBaseColor, channel.RoleRoughness, channel.RoleNormal} {
		if _, ok := wood.Channels[role]; !ok {
			t.Errorf("chair/wood missing %s channel", role)
		}
	}
	if descriptorByName(out.Descriptors, "table", "marble") == nil {
		t.Fatal("table/marble not found")
	}
}

func TestScanGroupsUdimSequences(t *testing.T) {
	root := writeTree(t,
		"rock/cliff_1001_basecolor.png",
		"rock/cliff_1002_basecolor.png",
		"rock/cliff_1011_basecolor.png",
		"rock/cliff_1001_normal.png",
		"rock/cliff_1002_normal.png",
	)
	e := newTestEngine(t, nil)

	out, err := e.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	cliff := descriptorByName(out.Descriptors, "rock", "cliff")
	if cliff == nil {
		t.Fatalf("rock/cliff not found in %+v", out.Descriptors)
	}
	base, ok := cliff.Channels[channel.RoleBaseColor]
	if !ok {
		t.Fatal("base color channel missing")
	}
	if base.Kind != material.RefUdimSequence {
		t.Fatalf("base color ref = %+v, want a UDIM sequence", base)
	}
	if base.Pattern != "cliff_<UDIM>_basecolor.png" {
		t.Errorf("pattern = %q", base.Pattern)
	}
	normal := cliff.Channels[channel.RoleNormal]
	if normal.Kind != material.RefUdimSequence {
		t.Fatalf("normal ref = %+v, want a UDIM sequence", normal)
	}
}

func TestScanCacheHitAndRefresh(t *testing.T) {
	root := writeTree(t, "chair/wood_basecolor.png")
	e := newTestEngine(t, nil)
	ctx := context.Background()

	if _, err := e.Scan(ctx, root); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	second, err := e.Scan(ctx, root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !second.FromCache {
		t.Fatal("unchanged tree not served from cache")
	}

	if err := e.Refresh(); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	third, err := e.Scan(ctx, root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if third.FromCache {
		t.Fatal("cache survived Refresh")
	}

	// A touched tree invalidates the cache by signature.
	if err := os.WriteFile(filepath.Join(root, "chair", "wood_normal.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	fourth, err := e.Scan(ctx, root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if fourth.FromCache {
		t.Fatal("changed tree served from cache")
	}
	if len(fourth.Descriptors[0].Channels) != 2 {
		t.Fatalf("new file not picked up: %+v", fourth.Descriptors[0])
	}
}

func TestScanReportsLowConfidence(t *testing.T) {
	root := writeTree(t, "chair/driftwood.png")
	e := newTestEngine(t, nil)

	out, err := e.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	d := descriptorByName(out.Descriptors, "chair", "driftwood")
	if d == nil {
		t.Fatal("descriptor missing")
	}
	if _, ok := d.Channels[channel.RoleBaseColor]; !ok {
		t.Fatal("unmatched file did not default to base color")
	}
	found := false
	for _, diag := range out.Diagnostics {
		if diag.Code == errors.LowConfidence {
			found = true
		}
	}
	if !found {
		t.Errorf("no low-confidence warning in %v", out.Diagnostics)
	}
}

func TestScanStrictModeExcludesUnmatched(t *testing.T) {
	root := writeTree(t, "chair/driftwood.png", "chair/wood_roughness.png")
	e := newTestEngine(t, func(c *config.Config) { c.Channels.Strict = true })

	out, err := e.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if descriptorByName(out.Descriptors, "chair", "driftwood") != nil {
		t.Fatal("unmatched file produced a material in strict mode")
	}
	found := false
	for _, diag := range out.Diagnostics {
		if diag.Code == errors.UnknownChannel {
			found = true
		}
	}
	if !found {
		t.Errorf("no unknown-channel warning in %v", out.Diagnostics)
	}
}

func TestScanHonorsDeclarations(t *testing.T) {
	root := writeTree(t,
		"chair/odd_name_one.png",
		"chair/odd_name_two.png",
		"chair/scratch_preview.png",
	)
	decls := `
[[rules]]
match = "odd_name_one.png"
material = "hero"
role = "basecolor"

[[rules]]
match = "odd_name_two.png"
material = "hero"
role = "roughness"

[[rules]]
match = "*_preview.*"
ignore = true
`
	if err := os.WriteFile(filepath.Join(root, "MATERIALS.toml"), []byte(decls), 0o644); err != nil {
		t.Fatal(err)
	}

	e := newTestEngine(t, nil)
	out, err := e.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	hero := descriptorByName(out.Descriptors, "chair", "hero")
	if hero == nil {
		t.Fatalf("declared material missing: %+v", out.Descriptors)
	}
	if len(hero.Channels) != 2 {
		t.Fatalf("hero channels = %+v, want declared basecolor and roughness", hero.Channels)
	}
	for _, d := range out.Descriptors {
		if d.Name == "scratch" || d.Name == "scratch_preview" {
			t.Fatal("ignored file produced a material")
		}
	}
}

func TestScanReportsUdimAmbiguity(t *testing.T) {
	// A trailing .1001. tile matches both the substance and the standard
	// convention; priority resolves it and a warning is recorded.
	root := writeTree(t, "rock/cliff_color.1001.exr")
	e := newTestEngine(t, nil)

	out, err := e.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	found := false
	for _, diag := range out.Diagnostics {
		if diag.Code == errors.UdimAmbiguous {
			found = true
		}
	}
	if !found {
		t.Errorf("no ambiguity warning in %v", out.Diagnostics)
	}
}

func TestMaterializeEndToEnd(t *testing.T) {
	root := writeTree(t,
		"chair/wood_basecolor.png",
		"chair/wood_normal.png",
		"table/marble_basecolor.exr",
	)
	e := newTestEngine(t, nil)
	mem := backend.NewMemory()

	rep, err := e.Materialize(context.Background(), root, mem, graph.PolicySkip)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(rep.Created) != 2 || len(rep.Skipped) != 0 {
		t.Fatalf("report = created %v skipped %v, want 2/0", rep.Created, rep.Skipped)
	}
	if _, ok := mem.Node("chair", "MAT_wood"); !ok {
		t.Error("MAT_wood missing in chair scope")
	}
	if _, ok := mem.Node("table", "MAT_marble"); !ok {
		t.Error("MAT_marble missing in table scope")
	}

	// Second run with skip policy creates nothing new.
	rep, err = e.Materialize(context.Background(), root, mem, graph.PolicySkip)
	if err != nil {
		t.Fatalf("second Materialize: %v", err)
	}
	if len(rep.Created) != 0 || len(rep.Skipped) != 2 {
		t.Fatalf("report = created %v skipped %v, want 0/2", rep.Created, rep.Skipped)
	}
}

// Conflicts with existing materials show up in the report whichever policy
// resolved them.
func TestMaterializeReportsExistingConflicts(t *testing.T) {
	root := writeTree(t,
		"chair/wood_basecolor.png",
		"table/marble_basecolor.exr",
	)
	e := newTestEngine(t, nil)
	mem := backend.NewMemory()

	rep, err := e.Materialize(context.Background(), root, mem, graph.PolicySkip)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	for _, d := range rep.Diagnostics {
		if d.Code == errors.MaterialExists {
			t.Fatalf("conflict reported on a fresh scene: %+v", d)
		}
	}

	rep, err = e.Materialize(context.Background(), root, mem, graph.PolicyOverwrite)
	if err != nil {
		t.Fatalf("overwrite Materialize: %v", err)
	}
	if len(rep.Created) != 2 {
		t.Fatalf("created = %v, want both materials rebuilt", rep.Created)
	}
	conflicts := 0
	for _, d := range rep.Diagnostics {
		if d.Code == errors.MaterialExists && d.Severity == report.SeverityWarning {
			conflicts++
			if d.Material == "" || d.Scope == "" {
				t.Errorf("conflict diagnostic missing material or scope: %+v", d)
			}
		}
	}
	if conflicts != 2 {
		t.Fatalf("conflict warnings = %d, want one per overwritten material", conflicts)
	}
}

// A backend failure fails that material and the batch carries on.
func TestMaterializePartialFailure(t *testing.T) {
	root := writeTree(t, "chair/wood_basecolor.png", "table/marble_basecolor.exr")
	e := newTestEngine(t, nil)
	mem := backend.NewMemory()
	mem.FailCreates = true

	rep, err := e.Materialize(context.Background(), root, mem, graph.PolicySkip)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if len(rep.Created) != 0 {
		t.Fatalf("created %v with a failing backend", rep.Created)
	}
	if len(rep.Errors()) != 2 {
		t.Fatalf("errors = %v, want one per material", rep.Errors())
	}
}

func TestMaterializeAsyncDeliversReport(t *testing.T) {
	root := writeTree(t, "chair/wood_basecolor.png")
	e := newTestEngine(t, nil)
	mem := backend.NewMemory()

	rep := <-e.MaterializeAsync(context.Background(), root, mem, graph.PolicySkip)
	if rep == nil {
		t.Fatal("no report delivered")
	}
	if len(rep.Created) != 1 {
		t.Fatalf("created = %v, want 1 material", rep.Created)
	}
}

func TestClassifyListingsDeterministicOrder(t *testing.T) {
	root := writeTree(t,
		"a/one_basecolor.png",
		"b/two_basecolor.png",
		"c/three_basecolor.png",
		"d/four_basecolor.png",
	)
	e := newTestEngine(t, func(c *config.Config) { c.Scan.Workers = 3 })

	want, err := e.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := e.Refresh(); err != nil {
			t.Fatal(err)
		}
		got, err := e.Scan(context.Background(), root)
		if err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if len(got.Descriptors) != len(want.Descriptors) {
			t.Fatalf("run %d: %d descriptors, want %d", i, len(got.Descriptors), len(want.Descriptors))
		}
		for j := range got.Descriptors {
			if got.Descriptors[j].Name != want.Descriptors[j].Name {
				t.Fatalf("run %d: order differs at %d: %s vs %s", i, j,
					got.Descriptors[j].Name, want.Descriptors[j].Name)
			}
		}
	}
}
