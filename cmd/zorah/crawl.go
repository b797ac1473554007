package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/zorah/internal/batch"
	"github.com/nao1215/zorah/internal/config"
	"github.com/nao1215/zorah/internal/crawler"
	"github.com/nao1215/zorah/internal/database"
	"github.com/nao1215/zorah/internal/fetch"
	"github.com/nao1215/zorah/internal/model"
	"github.com/nao1215/zorah/internal/report"
	"github.com/nao1215/zorah/internal/scope"
	"github.com/nao1215/zorah/internal/transport"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url>...",
		Short: "Crawl sites and classify every response",
		Long: `Crawl visits each seed URL's site breadth-first, staying within the seed's
registrable domain, and prints one record per visited URL.

Each record carries the URL, page title, HTTP status, a type (Page, File,
Redirect, Error or Blocked), a short note and the CDN and WAF vendors
detected from the response. Links are only followed from Page responses.

Several seeds are crawled concurrently (see --batch). Press Ctrl+C to stop
early; the records collected so far are still reported.

Examples:
  # Crawl a site and print a table
  zorah crawl https://www.example.com

  # Print the records as JSON
  zorah crawl --json https://www.example.com

  # Crawl two sites, 50 pages each, and archive the runs
  zorah crawl -p 50 --save example.com example.org

  # Route the crawl through Tor
  zorah crawl --tor https://www.example.com`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of seeds crawled concurrently")
	cmd.Flags().BoolP("json", "j", false,
		"Output the records as a JSON array")
	cmd.Flags().Bool("full-json", false,
		"Output JSON including run metadata and a summary")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the report as Markdown")
	cmd.Flags().StringP("output", "o", "",
		"Write the report to a file instead of stdout")
	cmd.Flags().BoolP("save", "s", false,
		"Archive finished runs for history and compare")

	return cmd
}

// addCrawlFlags registers the options shared by crawl and serve.
func addCrawlFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	flags.IntP("max-pages", "p", config.DefaultMaxPages,
		"Maximum number of URLs visited per seed")
	flags.Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum bytes read from one HTML body")
	flags.StringP("proxy", "x", "",
		"Proxy URL (socks5://host:port, http://host:port or host:port for SOCKS5)")
	flags.Bool("tor", false,
		"Start an embedded Tor daemon and crawl through it")
	flags.Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	flags.StringP("user-agent", "u", "",
		"Override the User-Agent header")
	flags.StringP("config", "c", "",
		"Path to a .zorah configuration file")
	flags.String("db-dir", config.XDGDataDir(),
		"Directory of the run archive")
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.ValidateCrawl(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// buildConfig reads the options shared by crawl and serve from flags,
// the environment and the configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	v, err := newViper(cmd)
	if err != nil {
		return nil, err
	}

	cfg := config.NewConfig()
	cfg.Targets = args
	cfg.Verbose = v.GetBool("verbose")
	cfg.Timeout = v.GetDuration("timeout")
	cfg.MaxPages = v.GetInt("max-pages")
	cfg.MaxBodySize = v.GetInt64("max-body-size")
	cfg.Proxy = v.GetString("proxy")
	cfg.UseTor = v.GetBool("tor")
	cfg.TorStartupTimeout = v.GetDuration("tor-timeout")
	cfg.UserAgent = v.GetString("user-agent")
	cfg.ConfigFilePath = v.GetString("config")
	cfg.DBDir = v.GetString("db-dir")

	cfg.SiteConfigs, err = loadSiteConfigs(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildCrawlConfig is buildConfig plus the crawl command's output options.
func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return nil, err
	}

	v, err := newViper(cmd)
	if err != nil {
		return nil, err
	}
	cfg.BatchSize = v.GetInt("batch")
	cfg.FullJSON = v.GetBool("full-json")
	cfg.JSONReport = v.GetBool("json") || cfg.FullJSON
	cfg.MarkdownReport = v.GetBool("markdown")
	cfg.ReportFile = v.GetString("output")
	cfg.SaveToDB = v.GetBool("save")
	return cfg, nil
}

// loadSiteConfigs loads the .zorah file. An explicit path that does not
// exist is an error; with no path, a missing file means no site options.
func loadSiteConfigs(explicitPath string) (*config.File, error) {
	path := config.FindConfigFile(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("configuration file not found: %s", explicitPath)
		}
		return &config.File{Sites: make(map[string]config.SiteConfig)}, nil
	}

	cf, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return cf, nil
}

// runCrawl crawls every target and writes one report per seed as it
// finishes.
func runCrawl(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	proxy, stopProxy, err := setupProxy(ctx, cfg, stderr, logger)
	if err != nil {
		return err
	}
	defer stopProxy()

	out, closeOut, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOut()

	writers := []report.Writer{newReportWriter(cfg, out)}
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer db.Close()
		writers = append(writers, &archiveWriter{ctx: context.WithoutCancel(ctx), db: db, logger: logger})
	}
	writer := report.NewMultiWriter(writers...)

	processor := batch.NewProcessor(
		newCrawlerFactory(cfg, proxy, logger),
		batch.WithConcurrency(cfg.BatchSize),
		batch.WithLogger(logger),
	)

	var (
		mu       sync.Mutex
		failed   []string
		writeErr error
	)
	procErr := processor.Process(ctx, cfg.Targets, func(o batch.Outcome) {
		mu.Lock()
		defer mu.Unlock()

		if o.Report == nil {
			failed = append(failed, o.Seed)
			fmt.Fprintf(stderr, "crawl of %s failed: %v\n", o.Seed, o.Err)
			return
		}
		if o.Report.Interrupted {
			fmt.Fprintf(stderr, "crawl of %s interrupted after %d records\n", o.Seed, len(o.Report.Results))
		}
		if _, err := writer.Write(o.Report); err != nil && writeErr == nil {
			writeErr = fmt.Errorf("failed to write report for %s: %w", o.Seed, err)
		}
	})

	switch {
	case writeErr != nil:
		return writeErr
	case procErr != nil:
		return fmt.Errorf("crawl interrupted: %w", procErr)
	case len(failed) > 0:
		return fmt.Errorf("%d of %d crawls failed: %s", len(failed), len(cfg.Targets), strings.Join(failed, ", "))
	}
	return nil
}

// newCrawlerFactory returns a batch.Factory that builds an independent
// HTTP client and spider for each seed, applying that seed's site
// options.
func newCrawlerFactory(cfg *config.Config, proxy string, logger *slog.Logger) batch.Factory {
	return func(seed string) (batch.Crawler, error) {
		site := siteConfigFor(cfg.SiteConfigs, seed)

		clientOpts := []transport.ClientOption{
			transport.WithTimeout(cfg.Timeout),
			transport.WithSiteDomain(seedDomain(seed)),
		}
		if proxy != "" {
			clientOpts = append(clientOpts, transport.WithProxy(proxy))
		}
		if site.Cookie != "" {
			clientOpts = append(clientOpts, transport.WithCookie(site.Cookie))
		}
		if len(site.Headers) > 0 {
			clientOpts = append(clientOpts, transport.WithHeaders(site.Headers))
		}
		client, err := transport.NewHTTPClient(clientOpts...)
		if err != nil {
			return nil, err
		}

		fetchOpts := []fetch.Option{
			fetch.WithMaxBodySize(cfg.MaxBodySize),
			fetch.WithLogger(logger),
		}
		if cfg.UserAgent != "" {
			fetchOpts = append(fetchOpts, fetch.WithHeader("User-Agent", cfg.UserAgent))
		}

		maxPages := cfg.MaxPages
		if site.MaxPages > 0 {
			maxPages = site.MaxPages
		}

		return crawler.NewSpider(
			fetch.NewHTTPFetcher(client, fetchOpts...),
			crawler.WithMaxPages(maxPages),
			crawler.WithIgnorePatterns(site.IgnorePatterns),
			crawler.WithFollowPatterns(site.FollowPatterns),
			crawler.WithLogger(logger),
		), nil
	}
}

// siteConfigFor resolves the site options of the seed's scope domain.
// A seed without a usable host gets the defaults; the spider reports
// the invalid seed itself.
func siteConfigFor(cf *config.File, seed string) config.SiteConfig {
	return cf.GetSiteConfig(seedDomain(seed))
}

// seedDomain is the scope domain of a seed as the spider will see it, or
// "" when it has none.
func seedDomain(seed string) string {
	seed = strings.TrimSpace(seed)
	if !strings.Contains(seed, "://") {
		seed = "http://" + seed
	}
	domain, err := scope.Domain(seed)
	if err != nil {
		return ""
	}
	return domain
}

// setupProxy returns the proxy URL the crawl should use and a function
// releasing it. SOCKS5 proxies are checked before the first request.
func setupProxy(ctx context.Context, cfg *config.Config, stderr io.Writer, logger *slog.Logger) (string, func(), error) {
	noop := func() {}

	if cfg.UseTor {
		return startEmbeddedTor(ctx, cfg, stderr, logger)
	}
	if cfg.Proxy == "" {
		return "", noop, nil
	}

	if addr, ok := transport.SOCKSAddress(cfg.Proxy); ok {
		if err := transport.CheckProxy(ctx, addr).Err(); err != nil {
			return "", noop, fmt.Errorf("proxy check failed for %s: %w", transport.RedactProxyURL(cfg.Proxy), err)
		}
	}
	logger.Info("using proxy", "proxy", transport.RedactProxyURL(cfg.Proxy))
	return cfg.Proxy, noop, nil
}

// startEmbeddedTor bootstraps a private Tor daemon and returns its SOCKS
// endpoint.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, stderr io.Writer, logger *slog.Logger) (string, func(), error) {
	fmt.Fprintln(stderr, "Starting embedded Tor daemon...")
	fmt.Fprintf(stderr, "This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	tor := transport.NewEmbeddedTor(transport.WithStartupTimeout(cfg.TorStartupTimeout))
	if err := tor.Start(ctx); err != nil {
		return "", nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}
	stop := func() {
		if err := tor.Stop(); err != nil {
			logger.Warn("failed to stop embedded Tor", "error", err)
		}
	}

	proxy, err := tor.ProxyURL()
	if err != nil {
		stop()
		return "", nil, err
	}
	if addr, ok := transport.SOCKSAddress(proxy); ok {
		if err := transport.CheckProxy(ctx, addr).Err(); err != nil {
			stop()
			return "", nil, fmt.Errorf("embedded Tor proxy check failed: %w", err)
		}
	}

	logger.Info("embedded Tor daemon started", "proxy", proxy)
	fmt.Fprintf(stderr, "Embedded Tor daemon started (SOCKS proxy: %s)\n\n", proxy)
	return proxy, stop, nil
}

// openOutput opens the report file, or returns stdout when path is "".
func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports can reveal internal URLs; keep them owner-readable.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// newReportWriter selects the report format.
func newReportWriter(cfg *config.Config, out io.Writer) report.Writer {
	switch {
	case cfg.FullJSON:
		return report.NewFullJSONWriter(out, getVersion(), report.WithPrettyPrint())
	case cfg.JSONReport:
		return report.NewJSONWriter(out, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(out)
	default:
		opts := []report.SimpleWriterOption{report.WithVerbose(cfg.Verbose)}
		if cfg.ReportFile != "" {
			opts = append(opts, report.WithColor(false))
		}
		return report.NewSimpleWriter(out, opts...)
	}
}

// archiveWriter stores reports in the run archive. It writes no bytes.
type archiveWriter struct {
	ctx    context.Context
	db     *database.CrawlDB
	logger *slog.Logger
}

func (a *archiveWriter) Write(r *model.CrawlReport) (int, error) {
	if err := a.db.SaveReport(a.ctx, r); err != nil {
		return 0, fmt.Errorf("failed to archive run: %w", err)
	}
	a.logger.Info("run archived", "run_id", r.ID, "scope_domain", r.ScopeDomain)
	return 0, nil
}

var _ report.Writer = (*archiveWriter)(nil)
