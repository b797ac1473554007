package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/nao1215/zorah/internal/model"
)

// SimpleWriter prints a run for the terminal: a header, one table row
// per record and a coloured per-type summary.
type SimpleWriter struct {
	baseWriter
	colorize bool
	verbose  bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithColor forces colour on or off. By default fatih/color decides
// from the terminal.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.colorize = enabled
	}
}

// WithVerbose adds the Note column and the mixed-signal vendors.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter on output.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		colorize:   !color.NoColor,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write prints report.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeResults(&sb, report)
	w.writeSummary(&sb, report.Summary())

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          ZORAH CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Seed:          %s\n", report.Seed)
	fmt.Fprintf(sb, "Scope Domain:  %s\n", report.ScopeDomain)
	fmt.Fprintf(sb, "Started:       %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:      %s\n", report.Duration().Round(time.Millisecond))
	fmt.Fprintf(sb, "Status:        %s\n\n", runStatus(report))
}

func (w *SimpleWriter) writeResults(sb *strings.Builder, report *model.CrawlReport) {
	if len(report.Results) == 0 {
		sb.WriteString("No URLs were visited.\n\n")
		return
	}

	headers := []any{"URL", "Type", "Status", "CDN", "WAF", "Title"}
	if w.verbose {
		headers = append(headers, "Note")
	}

	tbl := table.New(headers...).WithWriter(sb)
	if w.colorize {
		header := w.newColor(color.FgCyan, color.Underline).SprintfFunc()
		tbl.WithHeaderFormatter(header)
	}

	for _, res := range report.Results {
		row := []any{
			truncateString(res.URL, 60),
			res.Type.String(),
			res.Status.String(),
			res.Services.CDN,
			res.Services.WAF,
			truncateString(res.Title, 40),
		}
		if w.verbose {
			note := res.Note
			if res.Services.HasMixedSignals() {
				note += " [mixed: " + strings.Join(res.Services.MixedSignals, ", ") + "]"
			}
			row = append(row, note)
		}
		tbl.AddRow(row...)
	}
	tbl.Print()
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, sum model.Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, t := range model.AllResultTypes() {
		label := w.typeLabel(t, fmt.Sprintf("%-9s", t.String()+":"))
		fmt.Fprintf(sb, "  %s %d\n", label, sum.Count(t))
	}
	fmt.Fprintf(sb, "  %-9s %d\n\n", "TOTAL:", sum.Total)

	if len(sum.CDNs) > 0 {
		sb.WriteString("  CDN: " + joinCounts(sum.CDNs) + "\n")
	}
	if len(sum.WAFs) > 0 {
		sb.WriteString("  WAF: " + joinCounts(sum.WAFs) + "\n")
	}
	if sum.MixedSignalPages > 0 {
		fmt.Fprintf(sb, "  Mixed vendor signals on %d response(s)\n", sum.MixedSignalPages)
	}
	sb.WriteString("\n")
}

// typeLabel colours text by result type: red for Blocked and Error,
// yellow for Redirect, green for Page. Cells of the results table stay
// uncoloured so column widths line up.
func (w *SimpleWriter) typeLabel(t model.ResultType, text string) string {
	var attr color.Attribute
	switch t {
	case model.ResultTypeBlocked, model.ResultTypeError:
		attr = color.FgRed
	case model.ResultTypeRedirect:
		attr = color.FgYellow
	case model.ResultTypePage:
		attr = color.FgGreen
	default:
		return text
	}
	return w.newColor(attr).Sprint(text)
}

func (w *SimpleWriter) newColor(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if w.colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func joinCounts(counts []model.ServiceCount) string {
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprintf("%s (%d)", c.Name, c.Count)
	}
	return strings.Join(parts, ", ")
}
