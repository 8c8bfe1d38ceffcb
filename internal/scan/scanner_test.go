package scan

import (
	"os"
	"path/filepath"
	"testing"
)

var testExtensions = []string{".png", ".exr", ".jpg"}

// writeTree creates the given relative files under a temp root.
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

func TestScanGroupsByDirectory(t *testing.T) {
	root := writeTree(t,
		"chair/wood_basecolor.png",
		"chair/wood_roughness.png",
		"table/marble_basecolor.exr",
		"table/detail/marble_normal.exr",
		"chair/notes.txt",
	)

	s := NewScanner(testExtensions, nil)
	res, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(res.Listings) != 3 {
		t.Fatalf("got %d listings, want 3: %+v", len(res.Listings), res.Listings)
	}
	if res.Signature == "" {
		t.Fatal("empty signature")
	}

	// Listings are sorted by directory; files within a listing by name.
	first := res.Listings[0]
	if first.MeshScope != "chair" || len(first.Files) != 2 {
		t.Fatalf("first listing = %+v, want 2 chair files", first)
	}
	if first.Files[0].Filename != "wood_basecolor.png" {
		t.Errorf("files not sorted: %v", first.Files)
	}

	// Nested directories keep the first path component as their scope.
	last := res.Listings[2]
	if last.MeshScope != "table" {
		t.Errorf("nested listing scope = %q, want table", last.MeshScope)
	}
}

func TestScanRootScope(t *testing.T) {
	root := writeTree(t, "loose_basecolor.png")

	s := NewScanner(testExtensions, nil)
	res, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(res.Listings))
	}
	if want := filepath.Base(root); res.Listings[0].MeshScope != want {
		t.Errorf("scope = %q, want root base %q", res.Listings[0].MeshScope, want)
	}
}

func TestScanIgnoresConfiguredDirs(t *testing.T) {
	root := writeTree(t,
		"chair/wood_basecolor.png",
		".texforge/cached.png",
	)

	s := NewScanner(testExtensions, []string{".texforge"})
	res, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Listings) != 1 || res.Listings[0].MeshScope != "chair" {
		t.Fatalf("listings = %+v, want only chair", res.Listings)
	}
}

func TestScanUnreadableRootIsFatal(t *testing.T) {
	s := NewScanner(testExtensions, nil)
	if _, err := s.Scan(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

type flakyLister struct {
	inner   Lister
	failDir string
}

func (l flakyLister) List(dir string) ([]TextureFile, []string, error) {
	if filepath.Base(dir) == l.failDir {
		return nil, nil, os.ErrPermission
	}
	return l.inner.List(dir)
}

// An unreadable subdirectory is recorded as a subtree error; siblings still
// scan.
func TestScanSubtreeErrorIsNotFatal(t *testing.T) {
	root := writeTree(t,
		"chair/wood_basecolor.png",
		"locked/secret_basecolor.png",
	)

	s := NewScanner(testExtensions, nil,
		WithLister(flakyLister{inner: fsLister{}, failDir: "locked"}))
	res, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Listings) != 1 || res.Listings[0].MeshScope != "chair" {
		t.Fatalf("listings = %+v, want only chair", res.Listings)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %+v, want one subtree error", res.Errors)
	}
}

// A symlinked directory pointing outside the scan root is not followed; it
// is recorded as a subtree error instead.
func TestScanSymlinkEscapeIsNotFollowed(t *testing.T) {
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "leak_basecolor.png"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	root := writeTree(t, "chair/wood_basecolor.png")
	if err := os.Symlink(outside, filepath.Join(root, "escape")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	s := NewScanner(testExtensions, nil)
	res, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(res.Listings) != 1 || res.Listings[0].MeshScope != "chair" {
		t.Fatalf("listings = %+v, want only chair", res.Listings)
	}
	escaped := false
	for _, e := range res.Errors {
		if e.Directory == filepath.Join(root, "escape") {
			escaped = true
		}
	}
	if !escaped {
		t.Fatalf("escaping symlink not reported: %+v", res.Errors)
	}
}

// The signature is stable for an unchanged tree and moves when a file is
// added or touched.
func TestScanSignature(t *testing.T) {
	root := writeTree(t, "chair/wood_basecolor.png")
	s := NewScanner(testExtensions, nil)

	first, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	second, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if first.Signature != second.Signature {
		t.Fatal("signature changed for unchanged tree")
	}

	if err := os.WriteFile(filepath.Join(root, "chair", "wood_roughness.png"), []byte("xx"), 0o644); err != nil {
		t.Fatal(err)
	}
	third, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if third.Signature == first.Signature {
		t.Fatal("signature unchanged after adding a file")
	}
}

func TestMeshScope(t *testing.T) {
	tests := []struct{ root, dir, want string }{
		{"/assets/tex", "/assets/tex/chair", "chair"},
		{"/assets/tex", "/assets/tex/chair/detail", "chair"},
		{"/assets/tex", "/assets/tex", "tex"},
	}
	for _, tt := range tests {
		if got := MeshScope(filepath.FromSlash(tt.root), filepath.FromSlash(tt.dir)); got != tt.want {
			t.Errorf("MeshScope(%q, %q) = %q, want %q", tt.root, tt.dir, got, tt.want)
		}
	}
}
