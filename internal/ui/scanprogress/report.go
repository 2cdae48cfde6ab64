package scanprogress

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/cleftly/cleftly/internal/library"
	"github.com/cleftly/cleftly/internal/ui/render"
)

// DefaultMaxExamples is how many paths are listed per category.
const DefaultMaxExamples = 3

// Report renders the outcome of a scan: new tracks per source, then
// relocations, duplicates and removals, then totals.
func Report(stats *library.ScanStats, maxExamples, width int) string {
	if stats == nil {
		return ""
	}
	if maxExamples <= 0 {
		maxExamples = DefaultMaxExamples
	}
	r := reporter{max: maxExamples, width: max(width, 20)}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Library Scan Complete"))
	sb.WriteString("\n\n")

	sources := make([]string, 0, len(stats.Added))
	for src := range stats.Added {
		sources = append(sources, src)
	}
	slices.Sort(sources)
	for _, src := range sources {
		sb.WriteString(sourceStyle.Render(src))
		sb.WriteString("\n")
		r.category(&sb, "Added", stats.Added[src], successStyle)
	}

	if len(stats.Relocated) > 0 {
		moves := make([]string, len(stats.Relocated))
		for i, m := range stats.Relocated {
			moves[i] = m.From + " → " + m.To
		}
		r.category(&sb, "Moved", moves, accentStyle)
	}
	r.category(&sb, "Duplicates skipped", stats.Duplicates, warningStyle)
	r.category(&sb, "Removed", stats.Removed, errorStyle)

	if !stats.Changed() {
		sb.WriteString(subtleStyle.Render("No changes"))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", min(40, r.width)))
	sb.WriteString("\n")
	sb.WriteString(sourceStyle.Render(Summary(stats)))
	return sb.String()
}

// Summary is the one-line total of a scan.
func Summary(stats *library.ScanStats) string {
	return fmt.Sprintf("%s scanned: %s added, %s moved, %s removed, %s, %s",
		english.Plural(stats.Discovered, "file", ""),
		humanize.Comma(int64(stats.TotalAdded())),
		humanize.Comma(int64(len(stats.Relocated))),
		humanize.Comma(int64(len(stats.Removed))),
		english.Plural(stats.NewAlbums, "new album", ""),
		english.Plural(stats.NewArtists, "new artist", ""),
	)
}

type reporter struct {
	max   int
	width int
}

func (r reporter) category(sb *strings.Builder, label string, paths []string, style lipgloss.Style) {
	if len(paths) == 0 {
		return
	}
	sb.WriteString("  ")
	sb.WriteString(style.Render(fmt.Sprintf("%s: %s", label, humanize.Comma(int64(len(paths))))))
	sb.WriteString("\n")

	for i, path := range paths {
		if i >= r.max {
			sb.WriteString("    ")
			sb.WriteString(subtleStyle.Render(fmt.Sprintf("... and %s more", humanize.Comma(int64(len(paths)-r.max)))))
			sb.WriteString("\n")
			break
		}
		sb.WriteString("    • ")
		sb.WriteString(subtleStyle.Render(render.TruncateLeft(path, r.width-6)))
		sb.WriteString("\n")
	}
}
