// Package destmap builds and resolves the source-to-destination mapping
// described by spec component E: every source path's intended location
// under the target directory.
package destmap

import (
	"path/filepath"

	"github.com/kergoth/archive-cp/internal/archiveerr"
	"github.com/kergoth/archive-cp/internal/pathutil"
)

// Source describes one CLI-supplied source argument, already canonicalized.
type Source struct {
	// Path is the canonical absolute source path.
	Path string
	// IsDir reports whether Path is a directory.
	IsDir bool
	// CopyContents is true when the argument carried the trailing "/."
	// copy-contents marker: the directory's members, not the directory
	// itself, are mounted at the target.
	CopyContents bool
}

// Map is the ordered source-to-destination mapping. Iteration order follows
// insertion order so destination-mapper fallback lookups (rule 2 of
// spec §4.E) are reproducible across runs.
type Map struct {
	order []string
	dest  map[string]string
	isDir map[string]bool
}

// New returns an empty Map.
func New() *Map {
	return &Map{dest: make(map[string]string), isDir: make(map[string]bool)}
}

// Build constructs the ordered SourceMap from the CLI's source arguments and
// the canonical target directory. If target already exists, it is also
// inserted mapping to itself, so existing target contents participate in
// deduplication.
func Build(sources []Source, target string, targetExists bool) *Map {
	m := New()
	for _, s := range sources {
		var dest string
		if s.IsDir && s.CopyContents {
			dest = target
		} else {
			dest = filepath.Join(target, filepath.Base(s.Path))
		}
		m.add(s.Path, dest, s.IsDir)
	}
	if targetExists {
		m.add(target, target, true)
	}
	return m
}

func (m *Map) add(source, dest string, isDir bool) {
	if _, ok := m.dest[source]; !ok {
		m.order = append(m.order, source)
	}
	m.dest[source] = dest
	m.isDir[source] = isDir
}

// Sources returns the mapped source paths in insertion order.
func (m *Map) Sources() []string {
	return m.order
}

// Destination resolves p to its absolute destination path, per spec §4.E:
// an exact source match is used directly; failing that, the first directory
// source in insertion order that encloses p supplies the mapping, with p's
// path relative to it appended; failing that, p is outside every declared
// source.
func (m *Map) Destination(p string) (string, error) {
	if dest, ok := m.dest[p]; ok {
		return dest, nil
	}
	for _, s := range m.order {
		if !m.isDir[s] {
			continue
		}
		if pathutil.IsRelativeTo(p, s) {
			rel := pathutil.RelativeTo(p, s)
			return filepath.Join(m.dest[s], rel), nil
		}
	}
	return "", &archiveerr.UnmappedPathError{Path: p}
}
