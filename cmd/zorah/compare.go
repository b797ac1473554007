package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/nao1215/markdown"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/nao1215/zorah/internal/model"
)

// Names of the record fields compared between runs.
const (
	fieldType   = "type"
	fieldStatus = "status"
	fieldCDN    = "cdn"
	fieldWAF    = "waf"
)

// NewCompareCmd creates the compare command.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <scope-domain>",
		Short: "Compare two archived runs of a site",
		Long: `Compare shows what changed between two archived runs of one scope domain:
- URLs visited only in the newer run
- URLs no longer visited
- URLs whose type, status, CDN or WAF changed

By default the latest two runs are compared. Use --with-run to compare
the latest run against an older one (see 'zorah history <scope-domain>').

Examples:
  # Compare the latest two runs
  zorah compare example.com

  # Compare the latest run with a specific one
  zorah compare --with-run 2f1c... example.com

  # Output the comparison as JSON
  zorah compare --json example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runCompareCmd,
	}

	addArchiveFlags(cmd)
	cmd.Flags().StringP("with-run", "r", "",
		"Compare the latest run with this run ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output the comparison as JSON")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the comparison as Markdown")

	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}
	jsonOutput := v.GetBool("json")
	markdownOutput := v.GetBool("markdown")
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown cannot be used together")
	}

	scopeDomain := strings.ToLower(strings.TrimSpace(args[0]))

	db, err := openArchive(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	reports, err := db.GetLatestReports(ctx, scopeDomain, 2)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		return fmt.Errorf("no archived runs for %s", scopeDomain)
	}
	current := reports[0]

	var previous *model.CrawlReport
	if runID := v.GetString("with-run"); runID != "" {
		previous, err = db.GetReportByID(ctx, runID)
		if err != nil {
			return err
		}
		if previous == nil {
			return fmt.Errorf("run %s not found", runID)
		}
		if previous.ScopeDomain != scopeDomain {
			return fmt.Errorf("run %s belongs to %s, not %s", runID, previous.ScopeDomain, scopeDomain)
		}
	} else {
		if len(reports) < 2 {
			return fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(reports))
		}
		previous = reports[1]
	}

	comparison := compareReports(previous, current)

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return writeComparisonJSON(out, comparison)
	case markdownOutput:
		return writeComparisonMarkdown(out, comparison)
	default:
		return writeComparisonText(out, comparison, !color.NoColor)
	}
}

// Comparison is the difference between two runs of one scope domain.
type Comparison struct {
	ScopeDomain string  `json:"scope_domain"`
	Previous    RunInfo `json:"previous"`
	Current     RunInfo `json:"current"`

	// Added are records whose URL only the current run visited.
	Added []model.Result `json:"added"`

	// Removed are records whose URL only the previous run visited.
	Removed []model.Result `json:"removed"`

	// Changed are URLs visited by both runs with different outcomes.
	Changed []ResultChange `json:"changed"`

	UnchangedCount int `json:"unchanged_count"`
}

// RunInfo identifies one side of a comparison.
type RunInfo struct {
	ID          string                   `json:"id"`
	Seed        string                   `json:"seed"`
	StartedAt   time.Time                `json:"started_at"`
	Interrupted bool                     `json:"interrupted,omitempty"`
	Total       int                      `json:"total"`
	ByType      map[model.ResultType]int `json:"by_type"`
}

// ResultChange is one URL whose record differs between runs.
type ResultChange struct {
	URL      string       `json:"url"`
	Fields   []string     `json:"fields"`
	Previous model.Result `json:"previous"`
	Current  model.Result `json:"current"`
}

// compareReports diffs two runs by URL. Added and Changed follow the
// current run's visit order, Removed the previous run's.
func compareReports(previous, current *model.CrawlReport) *Comparison {
	c := &Comparison{
		ScopeDomain: current.ScopeDomain,
		Previous:    newRunInfo(previous),
		Current:     newRunInfo(current),
		Added:       []model.Result{},
		Removed:     []model.Result{},
		Changed:     []ResultChange{},
	}

	prevByURL := indexByURL(previous.Results)
	currByURL := indexByURL(current.Results)

	seen := make(map[string]bool, len(current.Results))
	for _, res := range current.Results {
		if seen[res.URL] {
			continue
		}
		seen[res.URL] = true
		old, ok := prevByURL[res.URL]
		if !ok {
			c.Added = append(c.Added, res)
			continue
		}
		if fields := changedFields(old, res); len(fields) > 0 {
			c.Changed = append(c.Changed, ResultChange{URL: res.URL, Fields: fields, Previous: old, Current: res})
		} else {
			c.UnchangedCount++
		}
	}

	clear(seen)
	for _, res := range previous.Results {
		if seen[res.URL] {
			continue
		}
		seen[res.URL] = true
		if _, ok := currByURL[res.URL]; !ok {
			c.Removed = append(c.Removed, res)
		}
	}
	return c
}

func newRunInfo(r *model.CrawlReport) RunInfo {
	sum := r.Summary()
	return RunInfo{
		ID:          r.ID,
		Seed:        r.Seed,
		StartedAt:   r.StartedAt,
		Interrupted: r.Interrupted,
		Total:       sum.Total,
		ByType:      sum.ByType,
	}
}

// indexByURL maps each URL to its first record.
func indexByURL(results []model.Result) map[string]model.Result {
	m := make(map[string]model.Result, len(results))
	for _, res := range results {
		if _, seen := m[res.URL]; !seen {
			m[res.URL] = res
		}
	}
	return m
}

// changedFields lists which compared fields differ. Titles and notes are
// ignored: they change with content, not with how the site is served.
func changedFields(prev, curr model.Result) []string {
	var fields []string
	if prev.Type != curr.Type {
		fields = append(fields, fieldType)
	}
	if prev.Status != curr.Status {
		fields = append(fields, fieldStatus)
	}
	if prev.Services.CDN != curr.Services.CDN {
		fields = append(fields, fieldCDN)
	}
	if prev.Services.WAF != curr.Services.WAF {
		fields = append(fields, fieldWAF)
	}
	return fields
}

// describeChange renders "type: Page -> Blocked, waf: N/A -> Cloudflare".
func describeChange(ch ResultChange) string {
	parts := make([]string, 0, len(ch.Fields))
	for _, f := range ch.Fields {
		var before, after string
		switch f {
		case fieldType:
			before, after = ch.Previous.Type.String(), ch.Current.Type.String()
		case fieldStatus:
			before, after = ch.Previous.Status.String(), ch.Current.Status.String()
		case fieldCDN:
			before, after = ch.Previous.Services.CDN, ch.Current.Services.CDN
		case fieldWAF:
			before, after = ch.Previous.Services.WAF, ch.Current.Services.WAF
		}
		parts = append(parts, fmt.Sprintf("%s: %s -> %s", f, before, after))
	}
	return strings.Join(parts, ", ")
}

func writeComparisonJSON(out io.Writer, c *Comparison) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

func writeComparisonText(out io.Writer, c *Comparison, colorize bool) error {
	paint := func(attr color.Attribute) func(format string, a ...any) string {
		col := color.New(attr)
		if colorize {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
		return col.SprintfFunc()
	}
	green, red, yellow := paint(color.FgGreen), paint(color.FgRed), paint(color.FgYellow)

	fmt.Fprintf(out, "Run Comparison: %s\n", c.ScopeDomain)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "\nPrevious run: %s  %s%s\n", c.Previous.ID, c.Previous.StartedAt.Format("2006-01-02 15:04:05"), interruptedMark(c.Previous))
	fmt.Fprintf(out, "Current run:  %s  %s%s\n\n", c.Current.ID, c.Current.StartedAt.Format("2006-01-02 15:04:05"), interruptedMark(c.Current))

	tbl := table.New("Type", "Previous", "Current", "Change").WithWriter(out)
	if colorize {
		tbl.WithHeaderFormatter(paint(color.Underline))
	}
	for _, t := range model.AllResultTypes() {
		prev, curr := c.Previous.ByType[t], c.Current.ByType[t]
		tbl.AddRow(t.String(), prev, curr, formatDelta(curr-prev))
	}
	tbl.AddRow("Total", c.Previous.Total, c.Current.Total, formatDelta(c.Current.Total-c.Previous.Total))
	tbl.Print()

	if len(c.Added) > 0 {
		fmt.Fprintf(out, "\nNew URLs (%d):\n", len(c.Added))
		for _, r := range c.Added {
			fmt.Fprintf(out, "  %s %s [%s]\n", green("[+]"), r.URL, r.Type)
		}
	}
	if len(c.Removed) > 0 {
		fmt.Fprintf(out, "\nURLs no longer visited (%d):\n", len(c.Removed))
		for _, r := range c.Removed {
			fmt.Fprintf(out, "  %s %s [%s]\n", red("[-]"), r.URL, r.Type)
		}
	}
	if len(c.Changed) > 0 {
		fmt.Fprintf(out, "\nChanged URLs (%d):\n", len(c.Changed))
		for _, ch := range c.Changed {
			fmt.Fprintf(out, "  %s %s\n      %s\n", yellow("[~]"), ch.URL, describeChange(ch))
		}
	}
	fmt.Fprintf(out, "\nUnchanged: %d URL(s)\n", c.UnchangedCount)
	return nil
}

func writeComparisonMarkdown(out io.Writer, c *Comparison) error {
	md := markdown.NewMarkdown(out)

	md.H1("Run Comparison: " + c.ScopeDomain)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"", "Previous", "Current"},
		Rows: [][]string{
			{"Run ID", "`" + c.Previous.ID + "`", "`" + c.Current.ID + "`"},
			{"Started", c.Previous.StartedAt.Format("2006-01-02 15:04"), c.Current.StartedAt.Format("2006-01-02 15:04")},
		},
	})
	md.PlainText("")

	md.H2("Result Types")
	md.PlainText("")
	rows := make([][]string, 0, len(model.AllResultTypes())+1)
	for _, t := range model.AllResultTypes() {
		prev, curr := c.Previous.ByType[t], c.Current.ByType[t]
		rows = append(rows, []string{t.String(), strconv.Itoa(prev), strconv.Itoa(curr), formatDelta(curr - prev)})
	}
	rows = append(rows, []string{"**Total**", strconv.Itoa(c.Previous.Total), strconv.Itoa(c.Current.Total),
		formatDelta(c.Current.Total - c.Previous.Total)})
	md.Table(markdown.TableSet{Header: []string{"Type", "Previous", "Current", "Change"}, Rows: rows})
	md.PlainText("")

	if len(c.Added) > 0 {
		md.H2(fmt.Sprintf("New URLs (%d)", len(c.Added)))
		md.PlainText("")
		md.BulletList(resultItems(c.Added)...)
		md.PlainText("")
	}
	if len(c.Removed) > 0 {
		md.H2(fmt.Sprintf("URLs No Longer Visited (%d)", len(c.Removed)))
		md.PlainText("")
		md.BulletList(resultItems(c.Removed)...)
		md.PlainText("")
	}
	if len(c.Changed) > 0 {
		md.H2(fmt.Sprintf("Changed URLs (%d)", len(c.Changed)))
		md.PlainText("")
		items := make([]string, len(c.Changed))
		for i, ch := range c.Changed {
			items[i] = fmt.Sprintf("`%s`: %s", ch.URL, describeChange(ch))
		}
		md.BulletList(items...)
		md.PlainText("")
	}

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*%d URL(s) unchanged*", c.UnchangedCount)
	return md.Build()
}

func resultItems(results []model.Result) []string {
	items := make([]string, len(results))
	for i, r := range results {
		items[i] = fmt.Sprintf("`%s` (%s, %s)", r.URL, r.Type, r.Status)
	}
	return items
}

func interruptedMark(r RunInfo) string {
	if r.Interrupted {
		return " (interrupted)"
	}
	return ""
}

// formatDelta renders a signed difference.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
