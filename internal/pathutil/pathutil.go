// Package pathutil provides path canonicalization and ancestry helpers
// shared by the destination mapper, grouping, and planning stages.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Canonical resolves p to an absolute, symlink-free path. It is meant to be
// called once per input path at CLI ingress so every later comparison works
// on a stable, de-aliased representation.
func Canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}

// IsRelativeTo reports whether path is dir itself or a descendant of dir.
// Both arguments must already be canonical (absolute, symlink-resolved,
// clean); this never consults filepath.Rel, which would happily compute a
// ".." relative path between unrelated trees and give a false positive.
func IsRelativeTo(path, dir string) bool {
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

// RelativeTo returns path's relative form under dir. Callers must have
// already established IsRelativeTo(path, dir) == true; this only strips the
// prefix, it does not re-derive ancestry.
func RelativeTo(path, dir string) string {
	path = filepath.Clean(path)
	dir = filepath.Clean(dir)
	if path == dir {
		return "."
	}
	return strings.TrimPrefix(path, dir+string(filepath.Separator))
}

// ModTime returns path's modification time, as recorded by the filesystem.
func ModTime(path string) (time.Time, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}
