// Package executor implements spec component H: applying one planner.Plan
// to the filesystem without ever exposing an intermediate name collision.
package executor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/kergoth/archive-cp/internal/fileutil"
	"github.com/kergoth/archive-cp/internal/pathutil"
	"github.com/kergoth/archive-cp/internal/planner"
)

// Verbosity gates which log line categories Apply emits. Values are
// ordered so a caller can compare directly (opts.Verbosity >= Verbose).
type Verbosity int

const (
	Quiet   Verbosity = -1
	Normal  Verbosity = 0
	Verbose Verbosity = 1
	Debug   Verbosity = 2
)

// Progress is notified once per new-state entry Apply processes, so a
// caller can drive a determinate progress bar across many plans.
type Progress interface {
	Add(n int)
}

// Options configures one Apply call.
type Options struct {
	Verbosity Verbosity
	// DryRun suppresses every filesystem mutation; log lines are still
	// emitted so the caller sees the full plan.
	DryRun bool
	// Out receives log lines. Required.
	Out      io.Writer
	Progress Progress
}

// renameEntry is one new-state assignment resolved to an absolute
// destination, shared by the per-category queues Apply builds.
type renameEntry struct {
	name string
	src  string
	dst  string
}

// Apply applies plan to the filesystem in a fixed order: no-ops, staging of
// postponed renames, direct in-target renames, commit of the staged
// postponed renames, and external writes, then removal of superseded
// old-state entries.
func Apply(plan *planner.Plan, opts Options) error {
	// A dry run at Normal verbosity still reports every planned operation.
	if opts.DryRun && opts.Verbosity == Normal {
		opts.Verbosity = Verbose
	}

	oldSet := make(map[string]bool, len(plan.OldState))
	for _, name := range plan.OldState {
		oldSet[name] = true
	}

	var noops, postponed, direct, external []renameEntry
	inTargetRenameNames := make(map[string]bool)

	for _, name := range plan.NewState.Keys() {
		src, _ := plan.NewState.Get(name)
		dst := filepath.Join(plan.DestDir, name)
		e := renameEntry{name: name, src: src, dst: dst}

		if !pathutil.IsRelativeTo(src, plan.Target) {
			external = append(external, e)
			continue
		}
		if src == dst {
			noops = append(noops, e)
			continue
		}
		inTargetRenameNames[name] = true
		if oldSet[name] {
			postponed = append(postponed, e)
		} else {
			direct = append(direct, e)
		}
	}

	for _, e := range noops {
		if opts.Verbosity >= Debug {
			fmt.Fprintf(opts.Out, "skipped %s (nothing to do)\n", e.src)
		}
		progress(opts, 1)
	}

	for _, path := range plan.Unselected {
		if opts.Verbosity >= Debug {
			fmt.Fprintf(opts.Out, "skipped %s (unselected duplicate)\n", path)
		}
	}

	// Postponed renames are staged (hardlinked into a scratch directory)
	// before any in-target rename runs, but not committed onto their final
	// destination until every direct in-target rename has completed. A
	// direct rename's source can be exactly the path a postponed rename is
	// about to overwrite (a same-bucket swap); committing postponed first
	// would make the direct rename read already-overwritten content.
	var stageDir string
	var staged []stagedRename
	if len(postponed) > 0 {
		var err error
		stageDir, staged, err = stagePostponed(plan.DestDir, postponed, opts)
		if err != nil {
			return err
		}
		if stageDir != "" {
			defer os.RemoveAll(stageDir)
		}
	}

	for _, e := range direct {
		if opts.Verbosity >= Verbose {
			fmt.Fprintf(opts.Out, "renamed '%s' -> '%s'\n", e.src, e.dst)
		}
		if !opts.DryRun {
			if err := os.Rename(e.src, e.dst); err != nil {
				return fmt.Errorf("rename %s -> %s: %w", e.src, e.dst, err)
			}
		}
		progress(opts, 1)
	}

	if err := commitPostponed(staged, opts); err != nil {
		return err
	}

	for _, e := range external {
		if opts.Verbosity >= Verbose {
			fmt.Fprintf(opts.Out, "'%s' -> '%s'\n", e.src, e.dst)
		}
		if !opts.DryRun {
			if err := os.MkdirAll(filepath.Dir(e.dst), 0o755); err != nil {
				return fmt.Errorf("mkdir %s: %w", filepath.Dir(e.dst), err)
			}
			if err := os.Remove(e.dst); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove %s: %w", e.dst, err)
			}
			if err := fileutil.LinkFile(e.src, e.dst); err != nil {
				return err
			}
		}
		progress(opts, 1)
	}

	return removeSuperseded(plan, inTargetRenameNames, opts)
}

// stagedRename is one postponed rename whose source has already been
// hardlinked into the scratch directory, awaiting commitPostponed.
type stagedRename struct {
	tmp string
	dst string
	src string
}

// stagePostponed hardlinks each postponed entry's source into a temp
// directory inside destdir, without touching any entry's final
// destination. Committing is deferred to commitPostponed so that direct
// in-target renames in the same bucket can run first.
func stagePostponed(destdir string, entries []renameEntry, opts Options) (string, []stagedRename, error) {
	if opts.Verbosity >= Debug {
		for _, e := range entries {
			fmt.Fprintf(opts.Out, "postponed '%s' (%s already exists)\n", e.src, filepath.Base(e.dst))
		}
	}

	if opts.DryRun {
		for _, e := range entries {
			if opts.Verbosity >= Verbose {
				fmt.Fprintf(opts.Out, "renamed '%s' -> '%s'\n", e.src, e.dst)
			}
			progress(opts, 1)
		}
		return "", nil, nil
	}

	stageDir, err := os.MkdirTemp(destdir, ".archive-cp-stage-*")
	if err != nil {
		return "", nil, fmt.Errorf("create staging dir in %s: %w", destdir, err)
	}

	var all []stagedRename
	for i, e := range entries {
		tmp := filepath.Join(stageDir, fmt.Sprintf("%d", i))
		if err := fileutil.LinkFile(e.src, tmp); err != nil {
			return stageDir, nil, err
		}
		all = append(all, stagedRename{tmp: tmp, dst: e.dst, src: e.src})
	}

	return stageDir, all, nil
}

// commitPostponed unlinks each staged entry's final destination, if
// present, and renames the staged file into place. Called only after
// every direct in-target rename in the bucket has completed.
func commitPostponed(staged []stagedRename, opts Options) error {
	for _, s := range staged {
		if err := os.Remove(s.dst); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", s.dst, err)
		}
		if err := os.Rename(s.tmp, s.dst); err != nil {
			return fmt.Errorf("rename %s -> %s: %w", s.tmp, s.dst, err)
		}
		if opts.Verbosity >= Verbose {
			fmt.Fprintf(opts.Out, "renamed '%s' -> '%s'\n", s.src, s.dst)
		}
		progress(opts, 1)
	}
	return nil
}

// removeSuperseded deletes old-state entries that neither survive in the
// new state nor are the destination of an in-target rename in this plan.
func removeSuperseded(plan *planner.Plan, inTargetRenameNames map[string]bool, opts Options) error {
	newKeys := make(map[string]bool)
	for _, name := range plan.NewState.Keys() {
		newKeys[name] = true
	}

	var toRemove []string
	for _, name := range plan.OldState {
		if newKeys[name] || inTargetRenameNames[name] {
			continue
		}
		toRemove = append(toRemove, name)
	}
	sort.Strings(toRemove)

	for _, name := range toRemove {
		path := filepath.Join(plan.DestDir, name)
		if _, err := os.Lstat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if opts.Verbosity >= Verbose {
			fmt.Fprintf(opts.Out, "removed '%s'\n", path)
		}
		if !opts.DryRun {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("remove %s: %w", path, err)
			}
		}
	}
	return nil
}

func progress(opts Options, n int) {
	if opts.Progress != nil {
		opts.Progress.Add(n)
	}
}
