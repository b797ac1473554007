package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/zorah/internal/model"
)

// DefaultConcurrency is the number of seeds crawled at once.
const DefaultConcurrency = 4

// Crawler runs one crawl. *crawler.Spider satisfies it.
type Crawler interface {
	Crawl(ctx context.Context, seed string) (*model.CrawlReport, error)
}

// Factory builds the Crawler for one seed.
type Factory func(seed string) (Crawler, error)

// Outcome is the result of crawling one seed. Report may be non-nil
// together with Err when the run was interrupted.
type Outcome struct {
	Index  int
	Seed   string
	Report *model.CrawlReport
	Err    error
}

// Processor crawls seeds concurrently.
type Processor struct {
	factory     Factory
	concurrency int
	logger      *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithConcurrency sets how many seeds run at once. Non-positive values
// keep the default.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithLogger sets the logger for batch progress.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a Processor that builds crawlers with factory.
func NewProcessor(factory Factory, opts ...Option) *Processor {
	p := &Processor{
		factory:     factory,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// Process crawls seeds and calls callback once per seed that was
// started, from the goroutine that ran it. callback must be safe for
// concurrent use.
//
// A failing seed does not stop the others; its error travels in the
// Outcome. Process returns the context's error when it was cancelled
// before every seed had started.
func (p *Processor) Process(ctx context.Context, seeds []string, callback func(Outcome)) error {
	p.logger.Info("starting batch",
		"seeds", len(seeds),
		"concurrency", p.concurrency)
	start := time.Now()

	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)

	for i, seed := range seeds {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			callback(p.crawlOne(ctx, i, seed, len(seeds)))
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	p.logger.Info("batch complete",
		"seeds", len(seeds),
		"elapsed", time.Since(start))
	return err
}

// ProcessAll is Process collecting outcomes in seed order. Seeds that
// never started because of cancellation have a nil Report and the
// context's error.
func (p *Processor) ProcessAll(ctx context.Context, seeds []string) ([]Outcome, error) {
	outcomes := make([]Outcome, len(seeds))
	for i, seed := range seeds {
		outcomes[i] = Outcome{Index: i, Seed: seed}
	}

	// Each goroutine writes only its own index.
	err := p.Process(ctx, seeds, func(o Outcome) {
		outcomes[o.Index] = o
	})

	if err != nil {
		for i := range outcomes {
			if outcomes[i].Report == nil && outcomes[i].Err == nil {
				outcomes[i].Err = err
			}
		}
	}
	return outcomes, err
}

func (p *Processor) crawlOne(ctx context.Context, index int, seed string, total int) Outcome {
	out := Outcome{Index: index, Seed: seed}

	p.logger.Info("crawling seed",
		"seed", seed,
		"index", index+1,
		"total", total)

	c, err := p.factory(seed)
	if err != nil {
		p.logger.Warn("could not prepare crawl", "seed", seed, "error", err)
		out.Err = err
		return out
	}

	out.Report, out.Err = c.Crawl(ctx, seed)
	if out.Err != nil {
		p.logger.Warn("crawl failed", "seed", seed, "error", out.Err)
		return out
	}
	p.logger.Info("crawl completed",
		"seed", seed,
		"records", len(out.Report.Results))
	return out
}
