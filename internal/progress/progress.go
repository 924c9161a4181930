// Package progress wraps github.com/schollz/progressbar/v3 with an
// enabled/disabled switch, so callers can unconditionally drive a Bar
// without checking whether one is actually wanted.
package progress

import (
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

const updateInterval = 50 * time.Millisecond

// Bar wraps progressbar.ProgressBar. All methods are no-ops when disabled.
type Bar struct {
	bar *progressbar.ProgressBar
}

// NewSpinner returns an indeterminate spinner, used while the external
// duplicate detector subprocess runs. Disabled when enabled is false.
func NewSpinner(enabled bool, description string) *Bar {
	if !enabled {
		return &Bar{}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(updateInterval),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetDescription(description),
		progressbar.OptionClearOnFinish(),
	)
	return &Bar{bar: bar}
}

// NewBar returns a determinate bar over total units, used while the
// executor applies planned buckets. Disabled when enabled is false.
func NewBar(enabled bool, total int64, description string) *Bar {
	if !enabled {
		return &Bar{}
	}
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(updateInterval),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(description),
		progressbar.OptionClearOnFinish(),
	)
	return &Bar{bar: bar}
}

// Add advances the bar by n, satisfying executor.Progress.
func (b *Bar) Add(n int) {
	if b.bar != nil {
		_ = b.bar.Add(n)
	}
}

// Finish completes the bar.
func (b *Bar) Finish() {
	if b.bar != nil {
		_ = b.bar.Finish()
	}
}
