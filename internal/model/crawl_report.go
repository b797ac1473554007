package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// CrawlReport is the output of one crawl run: the records in visit order
// plus enough metadata to archive and compare runs.
type CrawlReport struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// Seed is the URL the run started from, after normalization.
	Seed string `json:"seed"`

	// ScopeDomain is the registrable domain the run was confined to.
	ScopeDomain string `json:"scope_domain"`

	// StartedAt and FinishedAt bound the run in wall-clock time.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Interrupted is set when the run was cancelled before the frontier
	// drained or the budget was reached. Results are still valid.
	Interrupted bool `json:"interrupted,omitempty"`

	// Results holds one record per visited URL, in visit order.
	Results []Result `json:"results"`
}

// NewCrawlReport creates an empty report for a run starting now.
func NewCrawlReport(seed, scopeDomain string) *CrawlReport {
	return &CrawlReport{
		ID:          uuid.NewString(),
		Seed:        seed,
		ScopeDomain: scopeDomain,
		StartedAt:   time.Now(),
		Results:     make([]Result, 0),
	}
}

// Add appends one record.
func (r *CrawlReport) Add(result Result) {
	r.Results = append(r.Results, result)
}

// Finish stamps the end time.
func (r *CrawlReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration is the elapsed time of a finished run.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ServiceCount is one row of a vendor tally.
type ServiceCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Summary aggregates a report for display.
type Summary struct {
	Total            int                `json:"total"`
	ByType           map[ResultType]int `json:"by_type"`
	CDNs             []ServiceCount     `json:"cdns"`
	WAFs             []ServiceCount     `json:"wafs"`
	MixedSignalPages int                `json:"mixed_signal_pages"`
}

// Count returns the number of records of the given type.
func (s Summary) Count(t ResultType) int {
	return s.ByType[t]
}

// Summary tallies result types and detected vendors. Files and failed
// fetches are not fingerprinted, so they do not contribute vendor rows.
func (r *CrawlReport) Summary() Summary {
	sum := Summary{
		Total:  len(r.Results),
		ByType: make(map[ResultType]int, len(resultTypeNames)),
	}
	cdns := make(map[string]int)
	wafs := make(map[string]int)

	for _, res := range r.Results {
		sum.ByType[res.Type]++
		if res.Services.HasMixedSignals() {
			sum.MixedSignalPages++
		}
		if res.Services.CDN == NotAvailable && res.Services.WAF == NotAvailable {
			continue
		}
		cdns[res.Services.CDN]++
		wafs[res.Services.WAF]++
	}

	sum.CDNs = sortedCounts(cdns)
	sum.WAFs = sortedCounts(wafs)
	return sum
}

// sortedCounts orders a tally by count descending, then name.
func sortedCounts(m map[string]int) []ServiceCount {
	out := make([]ServiceCount, 0, len(m))
	for name, n := range m {
		out = append(out, ServiceCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
