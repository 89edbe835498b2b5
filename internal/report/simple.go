package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/microcrawl/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// lineWidth is the width of the section rules.
const lineWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing in them are shown.
	showEmpty bool

	// verbose prints every context of every value and the visit trace.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the full report in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	summary := model.NewSummary(report)
	w.writeHeader(&sb, summary)
	w.writeStats(&sb, summary.Stats)
	w.writeMatches(&sb, report.Matches)
	w.writeVisits(&sb, report)
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// WriteSummary outputs the condensed report in human-readable format.
func (w *SimpleWriter) WriteSummary(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeStats(&sb, summary.Stats)

	if summary.HasFindings() || w.showEmpty {
		writeSection(&sb, "VALUES")
		if !summary.HasFindings() {
			sb.WriteString("  No values found\n")
		}
		for _, v := range summary.Values {
			fmt.Fprintf(&sb, "  [+] %s\n", v)
		}
		sb.WriteString("\n")
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func writeRule(sb *strings.Builder, ch string) {
	sb.WriteString(strings.Repeat(ch, lineWidth))
	sb.WriteString("\n")
}

func writeSection(sb *strings.Builder, title string) {
	writeRule(sb, "-")
	sb.WriteString(title)
	sb.WriteString("\n")
	writeRule(sb, "-")
	sb.WriteString("\n")
}

// writeHeader writes the report header with crawl information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.Summary) {
	sb.WriteString("\n")
	writeRule(sb, "=")
	sb.WriteString("                         MICROCRAWL REPORT\n")
	writeRule(sb, "=")
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Seed:           %s\n", summary.Seed)
	fmt.Fprintf(sb, "Pattern:        %s\n", patternTitle(summary.Pattern))
	fmt.Fprintf(sb, "Started:        %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", summary.Duration.Round(time.Millisecond))

	switch {
	case summary.Error != "":
		fmt.Fprintf(sb, "Status:         INTERRUPTED - %s (partial results)\n", summary.Error)
	case summary.Stats.BudgetExhausted:
		sb.WriteString("Status:         Request budget exhausted\n")
	default:
		sb.WriteString("Status:         Complete\n")
	}
	sb.WriteString("\n")
}

// writeStats writes the crawl counters.
func (w *SimpleWriter) writeStats(sb *strings.Builder, stats model.CrawlStats) {
	writeSection(sb, "CRAWL SUMMARY")

	fmt.Fprintf(sb, "  Requests:     %d\n", stats.RequestsIssued)
	fmt.Fprintf(sb, "  Pages:        %d\n", stats.PagesFetched)
	fmt.Fprintf(sb, "  Failures:     %d\n", stats.FetchFailures)
	fmt.Fprintf(sb, "  Discovered:   %d\n", stats.URLsDiscovered)
	fmt.Fprintf(sb, "  Not visited:  %d\n", stats.URLsPending)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:        %d unique values\n", stats.UniqueMatches)
	sb.WriteString("\n")
}

// writeMatches writes every value with its first context, or with all of
// them in verbose mode.
func (w *SimpleWriter) writeMatches(sb *strings.Builder, matches []model.Match) {
	if len(matches) == 0 && !w.showEmpty {
		return
	}
	writeSection(sb, "MATCHES")

	if len(matches) == 0 {
		sb.WriteString("  No values found\n\n")
		return
	}

	for _, m := range matches {
		fmt.Fprintf(sb, "  * %s\n", m.Value)
		if !w.verbose {
			if c := m.FirstContext(); c != "" {
				fmt.Fprintf(sb, "    Context: %s\n", truncateString(c, 120))
			}
			continue
		}
		for i, c := range m.Contexts {
			fmt.Fprintf(sb, "    [%d] %s\n", i+1, c)
		}
	}
	sb.WriteString("\n")
}

// writeVisits lists failed fetches, and every fetch in verbose mode.
func (w *SimpleWriter) writeVisits(sb *strings.Builder, report *model.CrawlReport) {
	visits := report.FailedVisits()
	title := "FAILED REQUESTS"
	if w.verbose {
		visits = report.Visits
		title = "VISITED PAGES"
	}
	if len(visits) == 0 && !w.showEmpty {
		return
	}
	writeSection(sb, title)

	if len(visits) == 0 {
		sb.WriteString("  None\n\n")
		return
	}
	for _, v := range visits {
		if !v.OK() {
			fmt.Fprintf(sb, "  [x] %s\n      %s\n", v.URL, v.Error)
			continue
		}
		fmt.Fprintf(sb, "  [%d] %s (depth %d, %d links, %d new, %d values)\n",
			v.StatusCode, v.URL, v.Depth, v.Links, v.NewLinks, v.Matches)
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	writeRule(sb, "=")
	sb.WriteString("Report generated by microcrawl\n")
	sb.WriteString("https://github.com/nao1215/microcrawl\n")
	writeRule(sb, "=")
}

// patternTitle renders a preset name for display.
func patternTitle(name string) string {
	if name == "" {
		return "Custom"
	}
	return cases.Title(language.English).String(name)
}
