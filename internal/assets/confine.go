package assets

import (
	"path/filepath"
	"strings"

	"github.com/lumen-signage/lumen/pkg/signage"
)

// Confine resolves a relative path against root and returns the absolute
// path, or a KindOutOfBounds error if the resolution escapes the root.
// The root must already be canonical (symlinks resolved). Candidate paths
// are cleaned and, where they exist, symlink-resolved before the prefix
// check, so `..` segments, absolute paths, and symlink hops cannot bypass
// containment. The comparison is case-insensitive because the deployment
// target may sit on a case-insensitive filesystem.
func Confine(root string, rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	rel = filepath.FromSlash(rel)
	if filepath.IsAbs(rel) {
		return "", signage.NewError(signage.KindOutOfBounds, "absolute path not allowed")
	}

	abs := filepath.Clean(filepath.Join(root, rel))
	resolved := abs
	if target, err := filepath.EvalSymlinks(abs); err == nil {
		resolved = target
	} else if parent, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		// Path does not exist yet; confine its parent instead.
		resolved = filepath.Join(parent, filepath.Base(abs))
	}

	if !contained(root, resolved) {
		return "", signage.NewError(signage.KindOutOfBounds, "path escapes asset root")
	}
	return abs, nil
}

func contained(root string, path string) bool {
	root = strings.ToLower(filepath.Clean(root))
	path = strings.ToLower(filepath.Clean(path))
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
