// Package planner implements spec component G: turning one destination
// bucket's duplicate clusters into a concrete, collision-free set of
// destination filenames.
package planner

import (
	"path/filepath"
	"sort"

	"github.com/kergoth/archive-cp/internal/archiveerr"
	"github.com/kergoth/archive-cp/internal/group"
	"github.com/kergoth/archive-cp/internal/namegrammar"
	"github.com/kergoth/archive-cp/internal/orderedmap"
	"github.com/kergoth/archive-cp/internal/pathutil"
)

// Plan is the result of planning one destination bucket: where its files
// go, what already occupies that directory, and which duplicates were not
// retained.
type Plan struct {
	// Target is the canonical archive root this bucket was planned
	// against.
	Target string
	// DestDir is the absolute directory under target that this bucket's
	// files occupy.
	DestDir string
	// OldState lists destdir-relative names, already present on disk,
	// that belong to members of this bucket.
	OldState []string
	// NewState maps a destdir-relative filename to the absolute source
	// path that should occupy it.
	NewState *orderedmap.Map[string]
	// Unselected lists absolute paths discarded by representative
	// selection or by uniquification. The executor never writes them; one
	// that is also listed in OldState is removed as superseded.
	Unselected []string
}

// Build builds the Plan for one destination bucket: relpath is the bucket's
// key from group.Buckets, clusters its member clusters, target the
// canonical archive root.
func Build(relpath string, clusters []group.Cluster, target string) (*Plan, error) {
	destdir := filepath.Join(target, filepath.Dir(relpath))

	var allMembers []string
	for _, c := range clusters {
		allMembers = append(allMembers, c.Members...)
	}

	oldState, err := oldStateOf(allMembers, destdir)
	if err != nil {
		return nil, err
	}

	var representatives []string
	var unselected []string
	for _, c := range clusters {
		rep, rest, err := selectRepresentative(c.Members, target)
		if err != nil {
			return nil, err
		}
		representatives = append(representatives, rep)
		unselected = append(unselected, rest...)
	}

	newest, rest, err := selectNewest(representatives)
	if err != nil {
		return nil, err
	}

	newState := orderedmap.New[string]()
	newState.Set(namegrammar.BaseName(filepath.Base(newest)), newest)

	uniques, discarded, err := uniqueNames(rest)
	if err != nil {
		return nil, err
	}
	for _, name := range uniques.Keys() {
		path, _ := uniques.Get(name)
		newState.Set(name, path)
	}
	unselected = append(unselected, discarded...)

	return &Plan{
		Target:     target,
		DestDir:    destdir,
		OldState:   oldState,
		NewState:   newState,
		Unselected: unselected,
	}, nil
}

// oldStateOf returns, in encounter order, the destdir-relative names of
// every member already under destdir.
func oldStateOf(members []string, destdir string) ([]string, error) {
	var old []string
	for _, m := range members {
		if pathutil.IsRelativeTo(m, destdir) {
			old = append(old, pathutil.RelativeTo(m, destdir))
		}
	}
	return old, nil
}

// selectRepresentative picks the surviving member of a duplicate cluster:
// the oldest, with existing target members preferred over outsiders on
// mtime ties, and the lexicographically smallest path breaking any
// remaining tie. The sorts are stable and applied in ascending priority so
// that mtime dominates.
func selectRepresentative(members []string, target string) (rep string, unselected []string, err error) {
	ordered := append([]string(nil), members...)

	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	sort.SliceStable(ordered, func(i, j int) bool {
		return pathutil.IsRelativeTo(ordered[i], target) && !pathutil.IsRelativeTo(ordered[j], target)
	})

	mtimes := make(map[string]int64, len(ordered))
	for _, p := range ordered {
		t, err := pathutil.ModTime(p)
		if err != nil {
			return "", nil, err
		}
		mtimes[p] = t.UnixNano()
	}
	sort.SliceStable(ordered, func(i, j int) bool { return mtimes[ordered[i]] < mtimes[ordered[j]] })

	return ordered[0], ordered[1:], nil
}

// selectNewest sorts representatives by modification time descending and
// returns the newest, and the rest in that order.
func selectNewest(representatives []string) (newest string, rest []string, err error) {
	ordered := append([]string(nil), representatives...)
	mtimes := make(map[string]int64, len(ordered))
	for _, p := range ordered {
		t, err := pathutil.ModTime(p)
		if err != nil {
			return "", nil, err
		}
		mtimes[p] = t.UnixNano()
	}
	sort.SliceStable(ordered, func(i, j int) bool { return mtimes[ordered[i]] > mtimes[ordered[j]] })
	return ordered[0], ordered[1:], nil
}

// uniqueNames assigns each candidate a disambiguated destdir-relative name,
// escalating from each path's bare natural name through a timestamp suffix
// and then a checksum suffix. See the package-level algorithm description
// in DESIGN.md for the rationale behind each step.
func uniqueNames(candidates []string) (*orderedmap.Map[string], []string, error) {
	byName := orderedmap.New[[]string]()
	for _, p := range candidates {
		name := namegrammar.BaseName(filepath.Base(p))
		existing, _ := byName.Get(name)
		byName.Set(name, append(existing, p))
	}

	uniques := orderedmap.New[string]()
	var discarded []string

	// promoteSingles does not run before the first escalation pass: a
	// candidate's own base name is the bucket's natural key, which the
	// newest representative has already claimed, so every remaining
	// candidate must go through at least the timestamp suffix before it
	// can be considered unique, even one that looks alone in its initial
	// by-base-name bucket.
	promoteSingles := func() {
		for _, name := range append([]string(nil), byName.Keys()...) {
			members, _ := byName.Get(name)
			if len(members) == 1 {
				uniques.Set(name, members[0])
				byName.Delete(name)
			}
		}
	}

	escalate := func(addSuffix func(path, name string) (string, error)) error {
		next := orderedmap.New[[]string]()
		for _, name := range append([]string(nil), byName.Keys()...) {
			members, _ := byName.Get(name)
			byName.Delete(name)
			for _, p := range members {
				newName, err := addSuffix(p, name)
				if err != nil {
					return err
				}
				existing, _ := next.Get(newName)
				next.Set(newName, append(existing, p))
			}
		}
		for _, name := range next.Keys() {
			members, _ := next.Get(name)
			existing, _ := byName.Get(name)
			byName.Set(name, append(existing, members...))
		}
		return nil
	}

	if err := escalate(namegrammar.AddTimeStemSuffix); err != nil {
		return nil, nil, err
	}
	promoteSingles()

	if err := escalate(namegrammar.AddChksumStemSuffix); err != nil {
		return nil, nil, err
	}
	promoteSingles()

	for _, name := range append([]string(nil), byName.Keys()...) {
		members, _ := byName.Get(name)
		if len(members) == 0 {
			continue
		}
		if _, claimed := uniques.Get(name); claimed {
			return nil, nil, &archiveerr.IndistinguishableFilesError{Name: name, Paths: members}
		}
		uniques.Set(name, members[0])
		discarded = append(discarded, members[1:]...)
	}

	return uniques, discarded, nil
}
