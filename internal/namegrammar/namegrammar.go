// Package namegrammar strips and appends the tool's own historical
// filename suffix forms, so that re-archiving previously archived output is
// idempotent.
package namegrammar

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kergoth/archive-cp/internal/fileutil"
	"github.com/kergoth/archive-cp/internal/pathutil"
)

// timeLayout formats a modification time as the TIME suffix form's
// timestamp component, always in UTC.
const timeLayout = "20060102T150405"

// reTimeChk matches the TIME+CHK suffix form: stem, timestamp, 8 alphanumeric
// checksum characters, optional single-component extension.
var reTimeChk = regexp.MustCompile(`^(.*)\.(\d{8}T\d{6})\.([0-9A-Za-z]{8})(\.[^.]+)?$`)

// reTime matches the bare TIME suffix form: stem, timestamp, optional
// single-component extension.
var reTime = regexp.MustCompile(`^(.*)\.(\d{8}T\d{6})(\.[^.]+)?$`)

// BaseName returns name with its longest matching historical suffix form
// removed. TIME+CHK is tried before TIME, since a TIME+CHK name without an
// extension would otherwise satisfy the shorter TIME pattern, with its
// checksum segment taken as the extension.
// If neither matches, name is returned unchanged.
func BaseName(name string) string {
	if m := reTimeChk.FindStringSubmatch(name); m != nil {
		return m[1] + m[4]
	}
	if m := reTime.FindStringSubmatch(name); m != nil {
		return m[1] + m[3]
	}
	return name
}

// AddTimeStemSuffix returns name with a UTC timestamp suffix (derived from
// path's modification time) inserted before its extension.
func AddTimeStemSuffix(path, name string) (string, error) {
	mtime, err := pathutil.ModTime(path)
	if err != nil {
		return "", err
	}
	stem, ext := splitStemExt(name)
	return fmt.Sprintf("%s.%s%s", stem, mtime.UTC().Format(timeLayout), ext), nil
}

// AddChksumStemSuffix returns name with an 8-hex-character content checksum
// suffix, derived from path's SHA-256 digest, inserted before its extension.
func AddChksumStemSuffix(path, name string) (string, error) {
	sum, err := fileutil.SHA256Sum(path)
	if err != nil {
		return "", err
	}
	stem, ext := splitStemExt(name)
	return fmt.Sprintf("%s.%s%s", stem, sum[:8], ext), nil
}

// splitStemExt splits name into its stem and its trailing ".ext" component,
// if any. A name with no dot, or whose only dot is at position 0 (a dotfile
// with no further extension), has no extension.
func splitStemExt(name string) (stem, ext string) {
	i := strings.LastIndex(name, ".")
	if i <= 0 {
		return name, ""
	}
	return name[:i], name[i:]
}
