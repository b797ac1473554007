package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/zorah/internal/model"
)

// MarkdownWriter renders a run as a GitHub-flavoured Markdown document.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter on output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write renders report.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	sum := report.Summary()

	w.writeHeader(md, report)
	w.writeSummary(md, sum)
	w.writeVendors(md, sum)
	w.writeResults(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Zorah Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Seed", "`" + report.Seed + "`"},
			{"Scope Domain", "`" + report.ScopeDomain + "`"},
			{"Run ID", "`" + report.ID + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration().Round(time.Millisecond).String()},
			{"URLs Visited", strconv.Itoa(len(report.Results))},
			{"Status", runStatus(report)},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, sum model.Summary) {
	md.H2("Result Types")
	md.PlainText("")

	rows := make([][]string, 0, len(model.AllResultTypes())+1)
	for _, t := range model.AllResultTypes() {
		rows = append(rows, []string{t.String(), strconv.Itoa(sum.Count(t))})
	}
	rows = append(rows, []string{"**Total**", "**" + strconv.Itoa(sum.Total) + "**"})
	md.Table(markdown.TableSet{
		Header: []string{"Type", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if sum.Total > 0 {
		w.writePieChart(md, sum)
	}
	w.writeAlert(md, sum)
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, sum model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Result Type Distribution"),
		piechart.WithShowData(true),
	)
	for _, t := range model.AllResultTypes() {
		if n := sum.Count(t); n > 0 {
			chart.LabelAndIntValue(t.String(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, sum model.Summary) {
	blocked := sum.Count(model.ResultTypeBlocked)
	errored := sum.Count(model.ResultTypeError)

	switch {
	case blocked > 0:
		md.Warningf("%d URL(s) were blocked by a WAF or anti-bot page.", blocked)
	case errored > 0:
		md.Importantf("%d URL(s) could not be fetched or processed.", errored)
	case sum.Total == 0:
		md.Note("No URLs were visited.")
	default:
		md.Tip("Every visited URL was served without a block.")
	}
	md.PlainText("")

	if sum.MixedSignalPages > 0 {
		md.Cautionf("%d response(s) carried signals of more than one CDN/WAF vendor.", sum.MixedSignalPages)
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeVendors(md *markdown.Markdown, sum model.Summary) {
	md.H2("Detected Services")
	md.PlainText("")

	if len(sum.CDNs) == 0 && len(sum.WAFs) == 0 {
		md.PlainText("No responses were fingerprinted.")
		md.PlainText("")
		return
	}

	md.PlainText("### CDN")
	md.PlainText("")
	md.Table(vendorTable(sum.CDNs))
	md.PlainText("")

	md.PlainText("### WAF")
	md.PlainText("")
	md.Table(vendorTable(sum.WAFs))
	md.PlainText("")
}

func vendorTable(counts []model.ServiceCount) markdown.TableSet {
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{cell(c.Name), strconv.Itoa(c.Count)}
	}
	return markdown.TableSet{Header: []string{"Vendor", "Responses"}, Rows: rows}
}

func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Results")
	md.PlainText("")

	if len(report.Results) == 0 {
		md.PlainText("No results.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Results))
	for i, res := range report.Results {
		rows[i] = []string{
			cell(truncateString(res.URL, 60)),
			res.Type.String(),
			res.Status.String(),
			cell(truncateString(res.Title, 40)),
			cell(res.Services.CDN),
			cell(res.Services.WAF),
			cell(truncateString(res.Note, 50)),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Type", "Status", "Title", "CDN", "WAF", "Note"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [zorah](https://github.com/nao1215/zorah)*")
}

// cell escapes characters that would break a table row.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
