// Package cliutil holds the small pieces of output formatting shared by
// cmd/sql2arc and cmd/inspire2arc, grounded on kraklabs-cie's
// internal/ui/color.go color-output conventions.
package cliutil

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/fairagro/m4.2-inspire-to-arc/internal/pipeline"
)

func init() {
	color.NoColor = !isatty.IsTerminal(os.Stderr.Fd())
}

// PrintSummary writes a human-readable, colorized run summary to stderr:
// green when every dataset succeeded, yellow when some failed.
func PrintSummary(name string, stats pipeline.Stats) {
	bold := color.New(color.Bold)
	bold.Fprintf(os.Stderr, "%s run complete\n", name)

	fmt.Fprintf(os.Stderr, "  datasets found:    %d\n", stats.FoundDatasets)
	fmt.Fprintf(os.Stderr, "  studies mapped:    %d\n", stats.TotalStudies)
	fmt.Fprintf(os.Stderr, "  assays mapped:     %d\n", stats.TotalAssays)

	if stats.FailedDatasets == 0 {
		color.New(color.FgGreen).Fprintf(os.Stderr, "  ✓ 0 failures (%.2fs)\n", stats.DurationSeconds)
		return
	}

	color.New(color.FgYellow).Fprintf(os.Stderr, "  ⚠ %d failed: %v (%.2fs)\n",
		stats.FailedDatasets, stats.FailedIDs, stats.DurationSeconds)
}
