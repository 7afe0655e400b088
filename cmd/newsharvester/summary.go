package main

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/usecase"
)

func statusColor(status domain.BatchStatus) func(a ...interface{}) string {
	switch status {
	case domain.BatchCompleted, domain.BatchReadyForProcessing:
		return color.New(color.FgGreen).SprintFunc()
	case domain.BatchFailed:
		return color.New(color.FgRed).SprintFunc()
	default:
		return color.New(color.FgYellow).SprintFunc()
	}
}

// nameWidth is the display width of the widest organization name; names may be CJK.
func nameWidth(names []string) int {
	width := 0
	for _, n := range names {
		width = max(width, runewidth.StringWidth(n))
	}
	return width
}

func printDiscovery(w io.Writer, results []usecase.DiscoveryResult) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "%s\n", cyan("=== Discovery ==="))
	if len(results) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("no organizations"))
		return
	}
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Organization.Name
	}
	width := nameWidth(names)

	for _, r := range results {
		b := r.Batch
		fmt.Fprintf(w, "  %s  %s  %s  %d new urls\n",
			runewidth.FillRight(r.Organization.Name, width), gray(b.ID), statusColor(b.Status)(string(b.Status)), b.TotalURLs)
		for _, name := range slices.Sorted(maps.Keys(b.SourceCounts)) {
			fmt.Fprintf(w, "      %-8s %d\n", name, b.SourceCounts[name])
		}
		if b.Error != "" {
			fmt.Fprintf(w, "      %s\n", color.New(color.FgRed).Sprint(b.Error))
		}
	}
}

func printReports(w io.Writer, reports []usecase.BatchReport) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(w, "%s\n", cyan("=== Batches ==="))
	if len(reports) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("nothing processed"))
		return
	}
	names := make([]string, len(reports))
	for i, r := range reports {
		names[i] = r.Organization.Name
	}
	width := nameWidth(names)

	for _, r := range reports {
		b := r.Batch
		fmt.Fprintf(w, "  %s  %s  %s  %d/%d processed, %s ok, %s failed\n",
			runewidth.FillRight(r.Organization.Name, width), gray(b.ID), statusColor(b.Status)(string(b.Status)),
			b.ProcessedURLs, b.TotalURLs, green(b.SuccessfulURLs), red(b.FailedURLs))
		if b.Error != "" {
			fmt.Fprintf(w, "      %s\n", red(b.Error))
		}
	}
}
