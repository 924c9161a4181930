// Package detector adapts the external fclones-style content duplicate
// clusterer: it feeds candidate paths to the subprocess and parses its
// fdupes-format output back into clusters.
package detector

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"

	"github.com/kergoth/archive-cp/internal/archiveerr"
)

// ToolName is the external binary invoked to cluster duplicates.
const ToolName = "fclones"

// Args is the fixed argument set passed to ToolName, per the external tool
// contract: group results in fdupes format, read the file list from
// standard input, consider hardlinks as duplicates, no minimum size, no
// required redundancy.
var Args = []string{"group", "-f", "fdupes", "--stdin", "-H", "--rf-over=0", "--min=0"}

// Options configures a detector run.
type Options struct {
	// Quiet suppresses the subprocess's stderr entirely.
	Quiet bool
}

// Run invokes ToolName with paths fed one per line on stdin and returns the
// parsed duplicate clusters in the order the detector emitted them.
func Run(ctx context.Context, paths []string, opts Options) ([][]string, error) {
	cmd := exec.CommandContext(ctx, ToolName, Args...)
	cmd.Stdin = strings.NewReader(buildInput(paths))

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	var stderr bytes.Buffer
	if !opts.Quiet {
		cmd.Stderr = &stderr
	}

	if err := cmd.Run(); err != nil {
		return nil, &archiveerr.ExternalToolError{
			Tool:   ToolName,
			Err:    err,
			Stderr: strings.TrimSpace(stderr.String()),
		}
	}

	return parse(&stdout)
}

// buildInput encodes paths as LF-separated UTF-8 lines, one per path.
func buildInput(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.String()
}

// parse reads fdupes-format output: blocks of one-per-line absolute paths
// separated by blank lines. Trailing CR is trimmed. Empty leading/trailing
// blocks are skipped.
func parse(r io.Reader) ([][]string, error) {
	var clusters [][]string
	var current []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			if len(current) > 0 {
				clusters = append(clusters, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(current) > 0 {
		clusters = append(clusters, current)
	}
	return clusters, nil
}
