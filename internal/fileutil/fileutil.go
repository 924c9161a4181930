// Package fileutil provides the low-level, filesystem-mutating primitives
// the executor composes: hashing, hardlinking with a copy fallback, and
// atomic same-directory renames.
package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// HashBlockSize is the fixed read buffer size used by SHA256Sum, matching
// the streaming block size of the tool this package was ported from.
const HashBlockSize = 128 * 1024

// SHA256Sum returns the lowercase hex SHA-256 digest of the file at path,
// streamed through a fixed HashBlockSize buffer rather than io.Copy, so the
// buffer size stays explicit and independent of io.Copy's internal default.
func SHA256Sum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, HashBlockSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// LinkFile creates dst as a hard link to src, falling back to a full copy
// when the filesystem cannot hard link across the pair (cross-device links,
// or a filesystem that doesn't support them at all).
func LinkFile(src, dst string) error {
	err := os.Link(src, dst)
	if err == nil {
		return nil
	}
	if !isUnsupportedLink(err) {
		return fmt.Errorf("link %s -> %s: %w", src, dst, err)
	}
	return CopyFile(src, dst)
}

// isUnsupportedLink reports whether err indicates the link(2) syscall
// itself is unusable for this pair of paths (cross-device, or a filesystem
// that doesn't implement hard links at all). Every other failure, including
// a permissions error, is fatal for the current run and is not recovered
// into a copy fallback.
func isUnsupportedLink(err error) bool {
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return false
	}
	var errno syscall.Errno
	if !errors.As(linkErr.Err, &errno) {
		return false
	}
	return errno == syscall.EXDEV || errno == syscall.ENOTSUP
}

// CopyFile copies src to dst by way of a temporary file in dst's directory,
// renamed into place once the copy completes, so a reader never observes a
// partially-written dst.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp, err := reserveTempName(filepath.Dir(dst), filepath.Base(dst))
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	if err := copyContents(tmp, in, info.Mode()); err != nil {
		return err
	}
	// reserveTempName's file already exists by the time copyContents opens
	// it, so the mode passed there never takes effect (OpenFile only
	// applies its mode bits when it creates the file); chmod explicitly,
	// then preserve the source's mtime the way shutil.copy2 does, so a
	// cross-device fallback copy is indistinguishable from a hard link for
	// every later mtime-driven comparison (spec §4.G representative
	// selection).
	if err := os.Chmod(tmp, info.Mode()); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp, err)
	}
	if err := os.Chtimes(tmp, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("chtimes %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, dst, err)
	}
	return nil
}

// reserveTempName creates an empty file in dir alongside base and returns
// its path, for use as an atomic-rename staging target.
func reserveTempName(dir, base string) (string, error) {
	f, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func copyContents(path string, src io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
