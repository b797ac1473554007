package report

import (
	"io"

	"github.com/nao1215/zorah/internal/model"
)

// Writer renders a crawl report to its destination.
type Writer interface {
	// Write returns the number of bytes written.
	Write(report *model.CrawlReport) (int, error)
}

// MultiWriter writes one report to several Writers in order, for
// example the terminal and a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write stops at the first failing writer.
func (m *MultiWriter) Write(report *model.CrawlReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// truncateString cuts s to maxLen runes, ending in "..." when cut.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// runStatus describes how a run ended.
func runStatus(report *model.CrawlReport) string {
	if report.Interrupted {
		return "Interrupted (partial results)"
	}
	return "Complete"
}
