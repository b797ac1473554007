package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/nao1215/zorah/internal/classify"
	"github.com/nao1215/zorah/internal/fetch"
	"github.com/nao1215/zorah/internal/model"
	"github.com/nao1215/zorah/internal/scope"
)

// DefaultMaxPages is the number of distinct URLs visited per run.
const DefaultMaxPages = 250

// Record placeholders for URLs that could not be classified normally.
const (
	titleNoResponse   = "[No Response]"
	titleParsingError = "[Parsing Error]"
	titleFilePrefix   = "[File] "

	noteConnectionFailed = "Connection failed (e.g., SSL error or timeout)"
	noteLocalErrorPrefix = "Local error: "
	noteFilePrefix       = "File detected. Type: "
)

// Spider crawls a single site per Crawl call.
type Spider struct {
	fetcher        fetch.Fetcher
	parser         Parser
	maxPages       int
	ignorePatterns []string
	followPatterns []string
	logger         *slog.Logger
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxPages sets the visit budget. Values <= 0 keep the default.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		if maxPages > 0 {
			s.maxPages = maxPages
		}
	}
}

// WithParser replaces the HTML parser.
func WithParser(p Parser) SpiderOption {
	return func(s *Spider) {
		s.parser = p
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithIgnorePatterns sets path globs ("/admin/*", "*.pdf") whose URLs
// are never enqueued.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns restricts enqueued URLs to paths matching at least
// one glob. An empty list allows every path.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// NewSpider creates a Spider that fetches through fetcher.
func NewSpider(fetcher fetch.Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:  fetcher,
		parser:   HTMLParser,
		maxPages: DefaultMaxPages,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Crawl visits the site of seed breadth-first and returns one record per
// visited URL in visit order.
//
// It fails with ErrInvalidSeed before any fetch when the seed is empty
// or has no registrable domain. When ctx is cancelled mid-run, the
// partial report is returned with Interrupted set, together with the
// context's error.
func (s *Spider) Crawl(ctx context.Context, seed string) (*model.CrawlReport, error) {
	r, err := s.newRun(seed)
	if err != nil {
		return nil, err
	}

	s.logger.Info("starting crawl",
		"seed", r.report.Seed,
		"scope_domain", r.scope.Domain(),
		"max_pages", s.maxPages)

	for r.step(ctx) {
	}
	r.report.Finish()

	s.logger.Info("crawl finished",
		"seed", r.report.Seed,
		"processed", len(r.visited),
		"records", len(r.report.Results),
		"interrupted", r.report.Interrupted)

	if r.report.Interrupted {
		return r.report, ctx.Err()
	}
	return r.report, nil
}

// run is the private state of one Crawl call.
type run struct {
	spider   *Spider
	scope    scope.Scope
	frontier *frontier
	visited  visitedSet
	report   *model.CrawlReport
}

// newRun validates the seed and sets up the initial state.
func (s *Spider) newRun(seed string) (*run, error) {
	normalized, err := normalizeSeed(seed)
	if err != nil {
		return nil, err
	}

	sc, err := scope.New(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}

	return &run{
		spider:   s,
		scope:    sc,
		frontier: newFrontier(normalized),
		visited:  make(visitedSet),
		report:   model.NewCrawlReport(normalized, sc.Domain()),
	}, nil
}

// normalizeSeed trims the seed, defaults its scheme to http and strips
// the fragment.
func normalizeSeed(seed string) (string, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return "", fmt.Errorf("%w: empty url", ErrInvalidSeed)
	}
	if !strings.Contains(seed, "://") {
		seed = "http://" + seed
	}
	return stripFragment(seed), nil
}

// stripFragment removes everything from the first '#'.
func stripFragment(u string) string {
	if i := strings.IndexByte(u, '#'); i >= 0 {
		return u[:i]
	}
	return u
}

// step processes one frontier entry. It returns false when the run is
// over: frontier drained, budget spent or context cancelled.
func (r *run) step(ctx context.Context) bool {
	if r.frontier.len() == 0 || len(r.visited) >= r.spider.maxPages {
		return false
	}
	if ctx.Err() != nil {
		r.report.Interrupted = true
		return false
	}

	current := stripFragment(r.frontier.pop())
	if r.visited.has(current) {
		return true
	}
	r.visited.add(current)

	result, links, ok := r.visit(ctx, current)
	if !ok {
		r.report.Interrupted = true
		return false
	}

	r.report.Add(result)
	if result.Type == model.ResultTypePage {
		r.expand(current, links)
	}
	return true
}

// visit fetches and classifies one URL. Every failure is turned into a
// record, except a fetch cut short by cancellation, which reports
// ok == false. links is only non-nil for a Page.
func (r *run) visit(ctx context.Context, current string) (result model.Result, links []string, ok bool) {
	logger := r.spider.logger

	res, err := r.spider.fetcher.Fetch(ctx, current)
	if err != nil {
		if ctx.Err() != nil {
			return model.Result{}, nil, false
		}
		if errors.Is(err, fetch.ErrLocalProcessing) {
			logger.Error("local processing failed", "url", current, "error", err)
			return localErrorResult(current, err), nil, true
		}
		logger.Warn("fetch failed", "url", current, "error", err)
		return connectionFailedResult(current), nil, true
	}

	body, materialized := res.Body()
	if !materialized {
		logger.Debug("recording file", "url", current, "content_type", res.Meta.ContentType)
		return fileResult(current, res.Meta), nil, true
	}

	c, doc, err := r.spider.analyze(res.Meta, body)
	if err != nil {
		logger.Error("local processing failed", "url", current, "error", err)
		return localErrorResult(current, err), nil, true
	}

	if c.Services.HasMixedSignals() {
		logger.Warn("mixed vendor signals",
			"url", current,
			"vendors", strings.Join(c.Services.MixedSignals, ","),
			"cdn", c.Services.CDN,
			"waf", c.Services.WAF)
	}

	if c.Type == model.ResultTypePage {
		links = doc.Links()
	}
	return model.NewResult(current, c), links, true
}

// analyze parses and classifies a materialized body. A panic in either
// step is reported as an error.
func (s *Spider) analyze(meta model.ResponseMeta, body []byte) (c model.Classification, doc Document, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("recovered panic: %v", p)
		}
	}()

	doc, err = s.parser.Parse(body)
	if err != nil {
		return model.Classification{}, nil, err
	}
	return classify.Classify(meta, doc), doc, nil
}

// expand enqueues the in-scope links of a page.
func (r *run) expand(current string, links []string) {
	base, err := url.Parse(current)
	if err != nil {
		return
	}

	for _, href := range links {
		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		target := base.ResolveReference(ref)
		target.Fragment = ""
		target.RawFragment = ""

		if target.Scheme != "http" && target.Scheme != "https" {
			continue
		}
		next := target.String()
		if r.visited.has(next) || !r.scope.Contains(next) {
			continue
		}
		if !allowedPath(target, r.spider.ignorePatterns, r.spider.followPatterns) {
			continue
		}
		r.frontier.push(next)
	}
}

func connectionFailedResult(u string) model.Result {
	return model.Result{
		URL:      u,
		Title:    titleNoResponse,
		Status:   model.NoStatus,
		Type:     model.ResultTypeError,
		Note:     noteConnectionFailed,
		Services: model.Unfingerprinted(),
	}
}

func localErrorResult(u string, err error) model.Result {
	return model.Result{
		URL:      u,
		Title:    titleParsingError,
		Status:   model.NoStatus,
		Type:     model.ResultTypeError,
		Note:     noteLocalErrorPrefix + err.Error(),
		Services: model.Unfingerprinted(),
	}
}

// fileResult records a response whose body was never downloaded.
func fileResult(u string, meta model.ResponseMeta) model.Result {
	return model.Result{
		URL:      u,
		Title:    titleFilePrefix + fileName(u),
		Status:   model.StatusCode(meta.StatusCode),
		Type:     model.ResultTypeFile,
		Note:     noteFilePrefix + meta.Header("content-type"),
		Services: model.Unfingerprinted(),
	}
}

// fileName returns the last path segment of u, or u itself when the
// path ends in a slash or is empty.
func fileName(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	p := parsed.Path
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		p = p[i+1:]
	}
	if p == "" {
		return u
	}
	return p
}
