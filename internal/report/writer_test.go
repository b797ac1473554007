package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/zorah/internal/model"
)

// createTestReport creates a finished run with one record of most types.
func createTestReport() *model.CrawlReport {
	report := model.NewCrawlReport("https://example.com/", "example.com")
	report.StartedAt = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	report.Add(model.Result{
		URL:      "https://example.com/",
		Title:    "Example | Home",
		Status:   200,
		Type:     model.ResultTypePage,
		Note:     "OK",
		Services: model.ServiceVerdict{CDN: "Cloudflare", WAF: "Cloudflare"},
	})
	report.Add(model.Result{
		URL:    "https://example.com/admin",
		Title:  "Just a moment...",
		Status: 403,
		Type:   model.ResultTypeBlocked,
		Note:   "Anti-Bot page detected",
		Services: model.ServiceVerdict{
			CDN:          "Akamai",
			WAF:          "Akamai (Bot Manager)",
			MixedSignals: []string{"Cloudflare", "Akamai"},
		},
	})
	report.Add(model.Result{
		URL:      "https://example.com/brochure.pdf",
		Title:    "[File] brochure.pdf",
		Status:   200,
		Type:     model.ResultTypeFile,
		Note:     "File detected. Type: application/pdf",
		Services: model.Unfingerprinted(),
	})
	report.Add(model.Result{
		URL:      "https://example.com/down",
		Title:    "[No Response]",
		Status:   model.NoStatus,
		Type:     model.ResultTypeError,
		Note:     "Connection failed (e.g., SSL error or timeout)",
		Services: model.Unfingerprinted(),
	})
	report.FinishedAt = report.StartedAt.Add(1500 * time.Millisecond)
	return report
}

// TestSimpleWriter tests the terminal writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and every record", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithColor(false))
		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"ZORAH CRAWL REPORT",
			"Scope Domain:  example.com",
			"Status:        Complete",
			"https://example.com/admin",
			"brochure.pdf",
			"N/A",
			"Akamai (Bot Manager)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})

	t.Run("writes summary counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithColor(false))
		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"Blocked:  1",
			"Redirect: 0",
			"TOTAL:    4",
			"CDN: Akamai (1), Cloudflare (1)",
			"Mixed vendor signals on 1 response(s)",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q:\n%s", want, output)
			}
		}
	})

	t.Run("no colour codes when disabled", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithColor(false))
		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(buf.String(), "\x1b[") {
			t.Error("expected no ANSI escape codes")
		}
	})

	t.Run("colour codes when enabled", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithColor(true))
		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\x1b[") {
			t.Error("expected ANSI escape codes")
		}
	})

	t.Run("verbose adds notes and mixed vendors", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithColor(false), WithVerbose(true))
		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Anti-Bot page detected [mixed: Cloudflare, Akamai]") {
			t.Errorf("expected mixed vendors in note column:\n%s", output)
		}
	})

	t.Run("interrupted empty run", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport("https://example.com/", "example.com")
		report.Interrupted = true
		report.Finish()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithColor(false))
		if _, err := w.Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Interrupted (partial results)") {
			t.Error("expected interrupted status")
		}
		if !strings.Contains(output, "No URLs were visited.") {
			t.Error("expected empty run message")
		}
	})
}

// TestJSONWriter tests the records writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs the records array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)
		if _, err := w.Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var parsed []map[string]any
		if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
			t.Fatalf("output is not a JSON array: %v", err)
		}
		if len(parsed) != 4 {
			t.Fatalf("expected 4 records, got %d", len(parsed))
		}
		if parsed[1]["type"] != "Blocked" {
			t.Errorf("expected Blocked, got %v", parsed[1]["type"])
		}
		if parsed[3]["status"] != "N/A" {
			t.Errorf("expected N/A status, got %v", parsed[3]["status"])
		}
	})

	t.Run("compact output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lines := strings.Split(strings.TrimSpace(buf.String()), "\n"); len(lines) != 1 {
			t.Errorf("expected compact output (1 line), got %d lines", len(lines))
		}
	})

	t.Run("pretty print with indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lines := strings.Split(strings.TrimSpace(buf.String()), "\n"); len(lines) < 5 {
			t.Errorf("expected multi-line output, got %d lines", len(lines))
		}
	})

	t.Run("custom indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent(">", "\t")).Write(createTestReport()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "\n>\t{") {
			t.Errorf("expected custom prefix and indent:\n%s", buf.String())
		}
	})

	t.Run("empty run is an empty array", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		report := &model.CrawlReport{}
		if _, err := NewJSONWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("expected [], got %q", buf.String())
		}
	})
}

// TestFullJSONWriter tests the full run writer.
func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewFullJSONWriter(&buf, "1.2.3", WithPrettyPrint())
	report := createTestReport()
	if _, err := w.Write(report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed JSONReport
	if err := json.Unmarshal(buf.Bytes(), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", parsed.Version)
	}
	if parsed.Report == nil || parsed.Report.ID != report.ID || len(parsed.Report.Results) != 4 {
		t.Fatalf("unexpected report %+v", parsed.Report)
	}
	if parsed.Summary.Total != 4 || parsed.Summary.Count(model.ResultTypeBlocked) != 1 {
		t.Errorf("unexpected summary %+v", parsed.Summary)
	}
}

// failingWriter fails every write.
type failingWriter struct{}

func (failingWriter) Write(*model.CrawlReport) (int, error) {
	return 0, errors.New("disk full")
}

// TestMultiWriter tests writing to multiple outputs.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		multi := NewMultiWriter(NewSimpleWriter(&buf1, WithColor(false)), NewJSONWriter(&buf2))

		n, err := multi.Write(createTestReport())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf1.Len()+buf2.Len() {
			t.Errorf("expected %d bytes, got %d", buf1.Len()+buf2.Len(), n)
		}
		if strings.HasPrefix(buf1.String(), "[") {
			t.Error("expected buf1 (simple) to not be JSON")
		}
		if !strings.HasPrefix(buf2.String(), "[") {
			t.Error("expected buf2 to be a JSON array")
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		multi := NewMultiWriter(failingWriter{}, NewJSONWriter(&buf))
		if _, err := multi.Write(createTestReport()); err == nil {
			t.Fatal("expected error")
		}
		if buf.Len() != 0 {
			t.Error("expected later writers to be skipped")
		}
	})
}

// TestMarkdownWriter tests the Markdown writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	render := func(t *testing.T, report *model.CrawlReport) string {
		t.Helper()
		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return buf.String()
	}

	t.Run("writes every section", func(t *testing.T) {
		t.Parallel()

		output := render(t, createTestReport())
		for _, want := range []string{
			"# Zorah Crawl Report",
			"example.com",
			"## Result Types",
			"## Detected Services",
			"### CDN",
			"Akamai (Bot Manager)",
			"## Results",
			"https://example.com/brochure.pdf",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
	})

	t.Run("includes pie chart", func(t *testing.T) {
		t.Parallel()

		output := render(t, createTestReport())
		if !strings.Contains(output, "```mermaid") || !strings.Contains(output, "pie") {
			t.Error("expected a mermaid pie chart")
		}
	})

	t.Run("warns about blocked urls and mixed signals", func(t *testing.T) {
		t.Parallel()

		output := render(t, createTestReport())
		if !strings.Contains(output, "[!WARNING]") {
			t.Error("expected WARNING alert for blocked urls")
		}
		if !strings.Contains(output, "[!CAUTION]") {
			t.Error("expected CAUTION alert for mixed signals")
		}
	})

	t.Run("empty run", func(t *testing.T) {
		t.Parallel()

		report := model.NewCrawlReport("https://example.com/", "example.com")
		report.Finish()
		output := render(t, report)
		if !strings.Contains(output, "No responses were fingerprinted.") {
			t.Error("expected empty vendor section")
		}
		if strings.Contains(output, "```mermaid") {
			t.Error("expected no chart for an empty run")
		}
	})
}

// TestTruncateString tests rune-aware truncation.
func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"日本語のタイトルです", 6, "日本語..."},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := truncateString(tt.in, tt.max); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

// TestCell tests table cell escaping.
func TestCell(t *testing.T) {
	t.Parallel()

	if got := cell("a | b\nc"); got != `a \| b c` {
		t.Errorf("unexpected cell %q", got)
	}
}
