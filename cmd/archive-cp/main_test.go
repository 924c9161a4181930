package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/kergoth/archive-cp/internal/archiveerr"
	"github.com/kergoth/archive-cp/internal/detector"
)

// requireDetector skips the test when the external duplicate-cluster
// detector the pipeline shells out to isn't installed, the way
// checkExternalTool gates optional functionality in the backup tool this
// pack also retrieved.
func requireDetector(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath(detector.ToolName); err != nil {
		t.Skipf("%s not found in PATH: %v", detector.ToolName, err)
	}
}

func writeFileWithMTime(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

// TestArchiveCmd_CollisionRename exercises spec scenario S1: an existing
// target file collides by name with an incoming source of different
// content, so the older file is renamed aside with a timestamp suffix
// rather than overwritten.
func TestArchiveCmd_CollisionRename(t *testing.T) {
	requireDetector(t)

	target := t.TempDir()
	old := filepath.Join(target, "a.txt")
	writeFileWithMTime(t, old, "old content", time.Unix(1000, 0))

	srcDir := t.TempDir()
	newSrc := filepath.Join(srcDir, "a.txt")
	writeFileWithMTime(t, newSrc, "new content", time.Unix(2000, 0))

	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{newSrc, target})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got %v: %s", err, out.String())
	}

	got, err := os.ReadFile(old)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new content" {
		t.Fatalf("a.txt content = %q, want new content", got)
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("target has %d entries, want 2 (a.txt plus the renamed-aside original): %v", len(entries), entries)
	}
}

// TestArchiveCmd_NoOp exercises spec scenario S3: the source argument is
// already the file sitting at its destination, so nothing is mutated.
func TestArchiveCmd_NoOp(t *testing.T) {
	requireDetector(t)

	target := t.TempDir()
	existing := filepath.Join(target, "y.txt")
	writeFileWithMTime(t, existing, "content", time.Unix(500, 0))

	before, err := os.Stat(existing)
	if err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--debug", existing, target})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got %v: %s", err, out.String())
	}

	after, err := os.Stat(existing)
	if err != nil {
		t.Fatal(err)
	}
	if !after.ModTime().Equal(before.ModTime()) || after.Size() != before.Size() {
		t.Fatalf("no-op mutated %s: before %v/%d, after %v/%d", existing, before.ModTime(), before.Size(), after.ModTime(), after.Size())
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("target has %d entries, want 1 (y.txt only)", len(entries))
	}
}

// TestArchiveCmd_DryRunSuppressesMutation exercises --dry-run: the plan is
// still logged, but nothing on disk changes.
func TestArchiveCmd_DryRunSuppressesMutation(t *testing.T) {
	requireDetector(t)

	target := t.TempDir()
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "new.txt")
	writeFileWithMTime(t, src, "content", time.Unix(42, 0))

	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--dry-run", "--verbose", src, target})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got %v: %s", err, out.String())
	}

	if _, err := os.Stat(filepath.Join(target, "new.txt")); !os.IsNotExist(err) {
		t.Fatal("dry-run should not have written new.txt into target")
	}
	if out.Len() == 0 {
		t.Fatal("dry-run should still log the planned operation")
	}
}

// TestArchiveCmd_MissingSourceIsUsageError exercises the exit-code mapping
// for a positional source that doesn't exist: a UsageError, not a generic
// failure.
func TestArchiveCmd_MissingSourceIsUsageError(t *testing.T) {
	target := t.TempDir()
	missing := filepath.Join(t.TempDir(), "does-not-exist.txt")

	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{missing, target})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected an error for a missing source")
	}
	var usageErr *archiveerr.UsageError
	if !errors.As(err, &usageErr) {
		t.Fatalf("expected a UsageError (the kind main() maps to exit code 2), got %T: %v", err, err)
	}
}

// TestArchiveCmd_FileFlagReadsSourceList exercises -f/--file reading an
// extra source list from a path on disk (the "-" for stdin variant is not
// exercised here).
func TestArchiveCmd_FileFlagReadsSourceList(t *testing.T) {
	requireDetector(t)

	target := t.TempDir()
	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "listed.txt")
	writeFileWithMTime(t, src, "content", time.Unix(1, 0))

	listFile := filepath.Join(t.TempDir(), "sources.list")
	if err := os.WriteFile(listFile, []byte(src+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--file", listFile, target})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected no error, got %v: %s", err, out.String())
	}

	if _, err := os.Stat(filepath.Join(target, "listed.txt")); err != nil {
		t.Fatalf("expected listed.txt to be written into target: %v", err)
	}
}
