package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/microcrawl/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for sharing and
// documentation.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the full report in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	summary := model.NewSummary(report)
	w.writeHeader(md, summary)
	w.writeStats(md, summary)
	w.writeMatches(md, report.Matches)
	w.writeFailures(md, report.FailedVisits())
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteSummary outputs the condensed report in Markdown format.
func (w *MarkdownWriter) WriteSummary(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeStats(md, summary)

	md.H2("Values")
	md.PlainText("")
	if !summary.HasFindings() {
		md.PlainText("No values found.")
	} else {
		md.BulletList(quoteAll(summary.Values)...)
	}
	md.PlainText("")
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report title and crawl information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.Summary) {
	md.H1("microcrawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + summary.Seed + "`"},
			{"Pattern", patternTitle(summary.Pattern)},
			{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Duration.Round(time.Millisecond).String()},
			{"Status", statusText(summary)},
		},
	})
	md.PlainText("")
}

func statusText(summary *model.Summary) string {
	switch {
	case summary.Error != "":
		return "❌ Interrupted - " + summary.Error
	case summary.Stats.BudgetExhausted:
		return "⚠️ Request budget exhausted"
	default:
		return "✅ Complete"
	}
}

// writeStats writes the counter table and an alert for the outcome.
func (w *MarkdownWriter) writeStats(md *markdown.Markdown, summary *model.Summary) {
	stats := summary.Stats

	md.H2("Crawl Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Requests issued", strconv.Itoa(stats.RequestsIssued)},
			{"Pages fetched", strconv.Itoa(stats.PagesFetched)},
			{"Fetch failures", strconv.Itoa(stats.FetchFailures)},
			{"URLs discovered", strconv.Itoa(stats.URLsDiscovered)},
			{"URLs not visited", strconv.Itoa(stats.URLsPending)},
			{"**Unique values**", "**" + strconv.Itoa(stats.UniqueMatches) + "**"},
		},
	})
	md.PlainText("")

	if len(summary.Hosts) > 0 {
		md.PlainText("Hosts visited:")
		md.PlainText("")
		md.BulletList(quoteAll(summary.Hosts)...)
		md.PlainText("")
	}

	switch {
	case summary.Error != "":
		md.Cautionf("The crawl was interrupted after %d request(s); results are partial.", stats.RequestsIssued)
	case stats.BudgetExhausted:
		md.Warningf("The request budget ran out with %d URL(s) not visited.", stats.URLsPending)
	case stats.UniqueMatches > 0:
		md.Note("Every reachable page within the budget was visited.")
	default:
		md.Tip("No values matched the pattern.")
	}
	md.PlainText("")
}

// writeMatches writes the value table followed by the contexts of each value.
func (w *MarkdownWriter) writeMatches(md *markdown.Markdown, matches []model.Match) {
	md.H2("Matches")
	md.PlainText("")

	if len(matches) == 0 {
		md.PlainText("No values found.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(matches))
	for i, m := range matches {
		rows[i] = []string{
			"`" + m.Value + "`",
			strconv.Itoa(len(m.Contexts)),
			truncateString(m.FirstContext(), 60),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Value", "Contexts", "First context"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, m := range matches {
		if len(m.Contexts) > 1 {
			md.Details(m.Value, "- "+strings.Join(m.Contexts, "\n- "))
		}
	}
	md.PlainText("")
}

// writeFailures lists the requests that did not produce a page.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, failed []model.PageVisit) {
	if len(failed) == 0 {
		return
	}
	md.H2("Failed Requests")
	md.PlainText("")

	rows := make([][]string, len(failed))
	for i, v := range failed {
		rows[i] = []string{"`" + v.URL + "`", strconv.Itoa(v.Depth), truncateString(v.Error, 60)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by [microcrawl](https://github.com/nao1215/microcrawl)*")
}

func quoteAll(values []string) []string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "`" + v + "`"
	}
	return quoted
}
