package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/zorah/internal/database"
	"github.com/nao1215/zorah/internal/model"
)

func record(url string, t model.ResultType, status model.StatusCode, cdn, waf string) model.Result {
	return model.Result{
		URL:      url,
		Title:    "t",
		Status:   status,
		Type:     t,
		Note:     "n",
		Services: model.ServiceVerdict{CDN: cdn, WAF: waf},
	}
}

// createRunPair returns two runs of example.com: /old disappears, /new
// appears, /shop becomes blocked and / stays the same.
func createRunPair() (previous, current *model.CrawlReport) {
	previous = model.NewCrawlReport("https://example.com/", "example.com")
	previous.StartedAt = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	previous.Add(record("https://example.com/", model.ResultTypePage, 200, "Cloudflare", "N/A"))
	previous.Add(record("https://example.com/shop", model.ResultTypePage, 200, "Cloudflare", "N/A"))
	previous.Add(record("https://example.com/old", model.ResultTypePage, 200, "Cloudflare", "N/A"))
	previous.FinishedAt = previous.StartedAt.Add(time.Minute)

	current = model.NewCrawlReport("https://example.com/", "example.com")
	current.StartedAt = time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	current.Add(record("https://example.com/", model.ResultTypePage, 200, "Cloudflare", "N/A"))
	current.Add(record("https://example.com/shop", model.ResultTypeBlocked, 403, "Cloudflare", "Cloudflare"))
	current.Add(record("https://example.com/new", model.ResultTypePage, 200, "Cloudflare", "N/A"))
	current.FinishedAt = current.StartedAt.Add(time.Minute)
	return previous, current
}

// TestCompareReports tests the URL diff.
func TestCompareReports(t *testing.T) {
	t.Parallel()

	previous, current := createRunPair()
	c := compareReports(previous, current)

	if c.ScopeDomain != "example.com" {
		t.Errorf("unexpected scope domain %q", c.ScopeDomain)
	}
	if len(c.Added) != 1 || c.Added[0].URL != "https://example.com/new" {
		t.Errorf("unexpected added %+v", c.Added)
	}
	if len(c.Removed) != 1 || c.Removed[0].URL != "https://example.com/old" {
		t.Errorf("unexpected removed %+v", c.Removed)
	}
	if len(c.Changed) != 1 {
		t.Fatalf("expected 1 changed URL, got %+v", c.Changed)
	}
	ch := c.Changed[0]
	if ch.URL != "https://example.com/shop" {
		t.Errorf("unexpected changed URL %q", ch.URL)
	}
	if strings.Join(ch.Fields, ",") != "type,status,waf" {
		t.Errorf("unexpected changed fields %v", ch.Fields)
	}
	if c.UnchangedCount != 1 {
		t.Errorf("expected 1 unchanged URL, got %d", c.UnchangedCount)
	}
	if c.Current.ByType[model.ResultTypeBlocked] != 1 || c.Previous.ByType[model.ResultTypeBlocked] != 0 {
		t.Errorf("unexpected blocked counts %v / %v", c.Previous.ByType, c.Current.ByType)
	}
}

// TestCompareReportsIdentical tests that a run compared with itself has
// no differences.
func TestCompareReportsIdentical(t *testing.T) {
	t.Parallel()

	_, current := createRunPair()
	c := compareReports(current, current)

	if len(c.Added)+len(c.Removed)+len(c.Changed) != 0 {
		t.Errorf("expected no differences, got %+v", c)
	}
	if c.UnchangedCount != len(current.Results) {
		t.Errorf("expected %d unchanged, got %d", len(current.Results), c.UnchangedCount)
	}
}

func TestDescribeChange(t *testing.T) {
	t.Parallel()

	previous, current := createRunPair()
	ch := compareReports(previous, current).Changed[0]

	want := "type: Page -> Blocked, status: 200 -> 403, waf: N/A -> Cloudflare"
	if got := describeChange(ch); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		delta int
		want  string
	}{
		{3, "+3"},
		{-2, "-2"},
		{0, "0"},
	}
	for _, tc := range testCases {
		if got := formatDelta(tc.delta); got != tc.want {
			t.Errorf("formatDelta(%d) = %q, want %q", tc.delta, got, tc.want)
		}
	}
}

// TestComparisonOutput tests the three output formats.
func TestComparisonOutput(t *testing.T) {
	t.Parallel()

	previous, current := createRunPair()
	c := compareReports(previous, current)

	t.Run("text", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if err := writeComparisonText(&buf, c, false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"Run Comparison: example.com",
			"[+] https://example.com/new",
			"[-] https://example.com/old",
			"[~] https://example.com/shop",
			"Unchanged: 1 URL(s)",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
		if strings.Contains(out, "\x1b[") {
			t.Error("expected no ANSI escapes without colour")
		}
	})

	t.Run("markdown", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if err := writeComparisonMarkdown(&buf, c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out := buf.String()
		for _, want := range []string{
			"# Run Comparison: example.com",
			"## New URLs (1)",
			"## URLs No Longer Visited (1)",
			"## Changed URLs (1)",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if err := writeComparisonJSON(&buf, c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var decoded struct {
			Added   []model.Result `json:"added"`
			Changed []struct {
				URL    string   `json:"url"`
				Fields []string `json:"fields"`
			} `json:"changed"`
			Current struct {
				ByType map[string]int `json:"by_type"`
			} `json:"current"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded.Added) != 1 || len(decoded.Changed) != 1 {
			t.Errorf("unexpected decoded comparison %+v", decoded)
		}
		if decoded.Current.ByType["Blocked"] != 1 {
			t.Errorf("expected by_type keyed by type name, got %v", decoded.Current.ByType)
		}
	})
}

// archiveRuns stores reports in a fresh archive and returns its directory.
func archiveRuns(t *testing.T, reports ...*model.CrawlReport) string {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer db.Close()
	for _, r := range reports {
		if err := db.SaveReport(context.Background(), r); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}
	return dir
}

func runCompare(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	cmd := NewCompareCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// TestCompareCmd tests the compare command against an archive.
func TestCompareCmd(t *testing.T) {
	t.Parallel()

	previous, current := createRunPair()
	dir := archiveRuns(t, previous, current)

	t.Run("latest two runs", func(t *testing.T) {
		out, err := runCompare(t, "--db-dir", dir, "--json", "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var c Comparison
		if err := json.Unmarshal([]byte(out), &c); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if c.Current.ID != current.ID || c.Previous.ID != previous.ID {
			t.Errorf("compared wrong runs: %s vs %s", c.Previous.ID, c.Current.ID)
		}
	})

	t.Run("with explicit run", func(t *testing.T) {
		out, err := runCompare(t, "--db-dir", dir, "--with-run", previous.ID, "example.com")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, previous.ID) {
			t.Errorf("expected previous run ID in output:\n%s", out)
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		if _, err := runCompare(t, "--db-dir", dir, "--with-run", "missing", "example.com"); err == nil {
			t.Error("expected error for unknown run")
		}
	})

	t.Run("unknown domain", func(t *testing.T) {
		if _, err := runCompare(t, "--db-dir", dir, "example.org"); err == nil {
			t.Error("expected error for unknown domain")
		}
	})

	t.Run("conflicting formats", func(t *testing.T) {
		if _, err := runCompare(t, "--db-dir", dir, "--json", "--markdown", "example.com"); err == nil {
			t.Error("expected error for --json with --markdown")
		}
	})
}

// TestCompareCmdSingleRun tests that one run cannot be compared.
func TestCompareCmdSingleRun(t *testing.T) {
	t.Parallel()

	_, current := createRunPair()
	dir := archiveRuns(t, current)

	_, err := runCompare(t, "--db-dir", dir, "example.com")
	if err == nil || !strings.Contains(err.Error(), "at least 2 runs") {
		t.Errorf("expected 'at least 2 runs' error, got %v", err)
	}
}
