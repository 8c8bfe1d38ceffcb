// Package scan implements the directory scanner: it walks a texture root and
// yields per-directory file listings. No naming or classification logic lives
// here; later stages consume the listings.
package scan

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"texforge/internal/errors"
	"texforge/internal/paths"
)

// TextureFile describes one candidate texture file found during a scan.
// Immutable once created.
type TextureFile struct {
	Directory string    `json:"directory"`
	Filename  string    `json:"filename"`
	Extension string    `json:"extension"` // lowercase, with leading dot
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"modTime"`
}

// Path returns the full path of the file.
func (f TextureFile) Path() string {
	return filepath.Join(f.Directory, f.Filename)
}

// Listing groups the texture files of one directory together with the mesh
// scope the directory maps to. Materials are never merged across scopes.
type Listing struct {
	Directory string        `json:"directory"`
	MeshScope string        `json:"meshScope"`
	Files     []TextureFile `json:"files"`
}

// SubtreeError records a directory that could not be read. Fatal only for
// that subtree; the scan continues with siblings.
type SubtreeError struct {
	Directory string `json:"directory"`
	Err       error  `json:"-"`
	Message   string `json:"message"`
}

// Result is the output of one scan pass.
type Result struct {
	Root      string         `json:"root"`
	Signature string         `json:"signature"`
	Listings  []Listing      `json:"listings"`
	Errors    []SubtreeError `json:"errors,omitempty"`
	ScannedAt time.Time      `json:"scannedAt"`
}

// Lister supplies raw directory entries for a root. The default implementation
// reads the local filesystem; an asset-service client can be substituted.
type Lister interface {
	// List returns the entries of one directory: file names with sizes and
	// mod times, and the names of subdirectories to descend into.
	List(dir string) (files []TextureFile, subdirs []string, err error)
}

// Scanner walks a texture root using a Lister.
type Scanner struct {
	lister     Lister
	extensions map[string]bool
	ignoreDirs map[string]bool
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLister substitutes the directory lister. Used by tests and by callers
// backed by an asset service instead of a local filesystem.
func WithLister(l Lister) Option {
	return func(s *Scanner) { s.lister = l }
}

// NewScanner creates a scanner recognizing the given texture extensions and
// skipping the given directory names.
func NewScanner(extensions, ignoreDirs []string, opts ...Option) *Scanner {
	s := &Scanner{
		lister:     fsLister{},
		extensions: make(map[string]bool, len(extensions)),
		ignoreDirs: make(map[string]bool, len(ignoreDirs)),
	}
	for _, ext := range extensions {
		s.extensions[strings.ToLower(ext)] = true
	}
	for _, dir := range ignoreDirs {
		s.ignoreDirs[dir] = true
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan walks root and returns per-directory listings of recognized texture
// files. An unreadable root is fatal; unreadable subdirectories are recorded
// as subtree errors and skipped.
func (s *Scanner) Scan(root string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.New(errors.RootUnreadable, fmt.Sprintf("invalid root path %q", root), err)
	}

	if _, _, err := s.lister.List(absRoot); err != nil {
		return nil, errors.New(errors.RootUnreadable, fmt.Sprintf("cannot read scan root %q", absRoot), err)
	}

	result := &Result{
		Root:      absRoot,
		ScannedAt: time.Now().UTC(),
	}
	s.walk(absRoot, absRoot, map[string]bool{}, result)

	sort.Slice(result.Listings, func(i, j int) bool {
		return result.Listings[i].Directory < result.Listings[j].Directory
	})
	result.Signature = signature(result.Listings)
	return result, nil
}

// walk descends into dir. seen holds symlink-resolved directories already
// visited, so a link cycle inside the root terminates.
func (s *Scanner) walk(root, dir string, seen map[string]bool, result *Result) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		resolved = dir
	}
	if seen[resolved] {
		return
	}
	seen[resolved] = true

	files, subdirs, err := s.lister.List(dir)
	if err != nil {
		result.Errors = append(result.Errors, SubtreeError{
			Directory: dir,
			Err:       err,
			Message:   err.Error(),
		})
		return
	}

	var textures []TextureFile
	for _, f := range files {
		if s.extensions[f.Extension] {
			textures = append(textures, f)
		}
	}
	if len(textures) > 0 {
		sort.Slice(textures, func(i, j int) bool {
			return textures[i].Filename < textures[j].Filename
		})
		result.Listings = append(result.Listings, Listing{
			Directory: dir,
			MeshScope: MeshScope(root, dir),
			Files:     textures,
		})
	}

	sort.Strings(subdirs)
	for _, sub := range subdirs {
		if s.ignoreDirs[sub] {
			continue
		}
		full := filepath.Join(dir, sub)
		if !paths.IsWithinRoot(full, root) {
			result.Errors = append(result.Errors, SubtreeError{
				Directory: full,
				Message:   "links outside the scan root",
			})
			continue
		}
		s.walk(root, full, seen, result)
	}
}

// MeshScope derives the mesh identity for a directory: the first path
// component below the root, or the root's own directory name for files that
// sit directly in the root.
func MeshScope(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return filepath.Base(root)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 0 && parts[0] != "" && parts[0] != "." {
		return parts[0]
	}
	return filepath.Base(dir)
}

// signature hashes every (path, mtime, size) triple of a scan so cached scan
// results can be invalidated when anything under the root changes.
func signature(listings []Listing) string {
	h := sha256.New()
	for _, l := range listings {
		for _, f := range l.Files {
			fmt.Fprintf(h, "%s|%d|%d\n", paths.NormalizePath(f.Path()), f.ModTime.UnixNano(), f.Size)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// fsLister is the local-filesystem Lister.
type fsLister struct{}

func (fsLister) List(dir string) ([]TextureFile, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	var files []TextureFile
	var subdirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			subdirs = append(subdirs, entry.Name())
			continue
		}
		var info os.FileInfo
		if entry.Type()&os.ModeSymlink != 0 {
			// Follow the link; the walk decides whether its target is
			// allowed inside the root.
			info, err = os.Stat(filepath.Join(dir, entry.Name()))
			if err != nil {
				continue
			}
			if info.IsDir() {
				subdirs = append(subdirs, entry.Name())
				continue
			}
		} else {
			info, err = entry.Info()
			if err != nil {
				continue
			}
		}
		files = append(files, TextureFile{
			Directory: dir,
			Filename:  entry.Name(),
			Extension: strings.ToLower(filepath.Ext(entry.Name())),
			Size:      info.Size(),
			ModTime:   info.ModTime(),
		})
	}
	return files, subdirs, nil
}
