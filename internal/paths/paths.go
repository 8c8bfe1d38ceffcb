// Package paths centralizes filesystem locations for texforge state.
// All tool-owned files live under <projectRoot>/.texforge so a project can be
// cleaned up by deleting a single directory.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// DataDirName is the per-project state directory created next to the textures.
const DataDirName = ".texforge"

// DataDir returns the state directory path for a project root.
func DataDir(projectRoot string) string {
	return filepath.Join(projectRoot, DataDirName)
}

// EnsureDataDir creates the state directory if it does not exist and returns it.
func EnsureDataDir(projectRoot string) (string, error) {
	dir := DataDir(projectRoot)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// CatalogPath returns the sqlite catalog location for a project root.
func CatalogPath(projectRoot string) string {
	return filepath.Join(DataDir(projectRoot), "texforge.db")
}

// ConfigPath returns the config file location for a project root.
func ConfigPath(projectRoot string) string {
	return filepath.Join(DataDir(projectRoot), "config.toml")
}

// DeclarationsPath returns the MATERIALS.toml location for a scan root.
// Declarations sit next to the textures, not under the state dir, because
// they are authored by artists and belong in version control.
func DeclarationsPath(scanRoot string) string {
	return filepath.Join(scanRoot, "MATERIALS.toml")
}

// CanonicalizePath converts an absolute path to a root-relative canonical path.
// Symlinks are resolved, the result uses forward slashes on every platform.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if os.IsNotExist(err) {
			resolved = absolutePath
		} else {
			return "", err
		}
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			rootResolved = root
		} else {
			return "", err
		}
	}

	relativePath, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(relativePath), nil
}

// IsWithinRoot checks if a path is inside the given root directory.
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}

// NormalizePath converts backslashes to forward slashes. Useful for paths
// that are already relative but came from an OS-specific source.
func NormalizePath(path string) string {
	return filepath.ToSlash(path)
}
