package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kergoth/archive-cp/internal/archiveerr"
	"github.com/kergoth/archive-cp/internal/destmap"
	"github.com/kergoth/archive-cp/internal/detector"
	"github.com/kergoth/archive-cp/internal/executor"
	"github.com/kergoth/archive-cp/internal/group"
	"github.com/kergoth/archive-cp/internal/pathutil"
	"github.com/kergoth/archive-cp/internal/planner"
	"github.com/kergoth/archive-cp/internal/progress"
)

const version = "0.1.0"

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		var usageErr *archiveerr.UsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(os.Stderr, color.RedString("error:")+" "+err.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, color.RedString("error:")+" "+err.Error())
		os.Exit(1)
	}
}

type options struct {
	file       string
	dryRun     bool
	ignoreCase bool
	quiet      bool
	verbose    bool
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:     "archive-cp [OPTIONS] [SOURCE_FILE]... TARGET_DIRECTORY",
		Short:   "Archive files into a target directory without ever losing data to collisions",
		Long:    "archive-cp copies files and directories into a target archive, collapsing content-identical duplicates and renaming rather than overwriting whenever two distinct files would otherwise collide.",
		Version: version,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
				return &archiveerr.UsageError{Msg: err.Error()}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read additional source paths, one per line, from PATH ('-' for stdin)")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "plan only; do not mutate the filesystem")
	cmd.Flags().BoolVarP(&opts.ignoreCase, "ignore-case", "i", false, "case-insensitive destination bucketing")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress detector stderr and info output")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log each applied operation")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "also log skipped, postponed, and unselected duplicates")

	return cmd
}

func run(cmd *cobra.Command, args []string, opts *options) error {
	verbosity := executor.Normal
	switch {
	case opts.debug:
		verbosity = executor.Debug
	case opts.verbose:
		verbosity = executor.Verbose
	case opts.quiet:
		verbosity = executor.Quiet
	}

	rawSources := args[:len(args)-1]
	rawTarget := args[len(args)-1]

	if opts.file != "" {
		extra, err := readSourceList(opts.file)
		if err != nil {
			return &archiveerr.UsageError{Msg: fmt.Sprintf("reading --file %s: %v", opts.file, err)}
		}
		rawSources = append(rawSources, extra...)
	}
	if len(rawSources) == 0 {
		return &archiveerr.UsageError{Msg: "at least one source is required (positionally or via --file)"}
	}

	target, err := canonicalTarget(rawTarget)
	if err != nil {
		return &archiveerr.UsageError{Msg: fmt.Sprintf("target %s: %v", rawTarget, err)}
	}

	sources := make([]destmap.Source, 0, len(rawSources))
	for _, raw := range rawSources {
		src, err := canonicalSource(raw)
		if err != nil {
			return &archiveerr.UsageError{Msg: err.Error()}
		}
		sources = append(sources, src)
	}

	dm := destmap.Build(sources, target, true)

	if verbosity >= executor.Debug {
		fmt.Fprintf(cmd.ErrOrStderr(), "invoking %s on %d source(s)\n", detector.ToolName, len(dm.Sources()))
	}

	spinner := progress.NewSpinner(!opts.quiet, "clustering duplicates")
	clusters, err := detector.Run(context.Background(), dm.Sources(), detector.Options{Quiet: opts.quiet})
	spinner.Finish()
	if err != nil {
		return err
	}

	buckets, err := group.Buckets(clusters, target, dm, opts.ignoreCase)
	if err != nil {
		return err
	}

	// Plan every bucket up front so the apply phase can drive a determinate
	// bar sized to the total number of new-state entries across all
	// buckets, rather than an indeterminate spinner.
	var plans []*planner.Plan
	var total int64
	for _, relpath := range buckets.Keys() {
		bucketClusters, _ := buckets.Get(relpath)
		plan, err := planner.Build(relpath, bucketClusters, target)
		if err != nil {
			return err
		}
		plans = append(plans, plan)
		total += int64(plan.NewState.Len())

		if opts.debug {
			logDebugPlan(cmd, plan)
		}
	}

	bar := progress.NewBar(!opts.quiet && !opts.dryRun, total, "applying plan")
	defer bar.Finish()

	for _, plan := range plans {
		if err := executor.Apply(plan, executor.Options{
			Verbosity: verbosity,
			DryRun:    opts.dryRun,
			Out:       cmd.OutOrStdout(),
			Progress:  bar,
		}); err != nil {
			return err
		}
	}

	return nil
}

// logDebugPlan previews a bucket's new-state assignments before applying
// them, showing each source's size and age to make an otherwise-opaque
// escalated filename easier to place.
func logDebugPlan(cmd *cobra.Command, plan *planner.Plan) {
	for _, name := range plan.NewState.Keys() {
		src, _ := plan.NewState.Get(name)
		info, err := os.Stat(src)
		if err != nil {
			continue
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s (%s, %s)\n",
			name, humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
	}
}

// canonicalTarget resolves the target directory, creating it if it does not
// yet exist so sources can be written into it.
func canonicalTarget(raw string) (string, error) {
	if _, err := os.Stat(raw); os.IsNotExist(err) {
		if err := os.MkdirAll(raw, 0o755); err != nil {
			return "", err
		}
	}
	return pathutil.Canonical(raw)
}

// canonicalSource resolves one CLI source argument, recognizing the
// trailing "/." copy-contents marker before canonicalization would
// otherwise absorb it, and validating the source exists.
func canonicalSource(raw string) (destmap.Source, error) {
	copyContents := false
	trimmed := strings.TrimSuffix(raw, string(filepath.Separator)+".")
	if trimmed != raw {
		copyContents = true
		raw = trimmed
	}

	info, err := os.Stat(raw)
	if err != nil {
		return destmap.Source{}, fmt.Errorf("source %s: %w", raw, err)
	}

	canon, err := pathutil.Canonical(raw)
	if err != nil {
		return destmap.Source{}, fmt.Errorf("source %s: %w", raw, err)
	}

	return destmap.Source{Path: canon, IsDir: info.IsDir(), CopyContents: copyContents && info.IsDir()}, nil
}

// readSourceList reads one path per line from path, or from standard input
// when path is "-".
func readSourceList(path string) ([]string, error) {
	var f *os.File
	if path == "-" {
		f = os.Stdin
	} else {
		var err error
		f, err = os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
