package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/microcrawl/internal/model"
	"golang.org/x/sync/errgroup"
)

// Factory builds the pipeline for one seed. Building per seed lets every
// seed carry its own site settings.
type Factory func(seed string) (*Pipeline, error)

// BatchProcessor crawls several seeds concurrently, one pipeline per seed.
// Each crawl is sequential and owns its state; only whole crawls run in
// parallel.
type BatchProcessor struct {
	// factory creates a fresh pipeline for each seed.
	factory Factory

	// concurrency is the maximum number of concurrent crawls.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Non-positive values keep the default of 4.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch crawls every seed and returns the reports in seed order.
// Reports of failed crawls carry the error message. The returned error is
// non-nil only when ctx was cancelled, in which case seeds that never
// started have a nil report.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) ([]*model.CrawlReport, error) {
	reports := make([]*model.CrawlReport, len(seeds))

	startTime := time.Now()
	err := bp.ProcessBatchWithCallback(ctx, seeds, func(report *model.CrawlReport, index int) {
		reports[index] = report
	})

	bp.logger.Info("batch processing complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)
	return reports, err
}

// ProcessBatchWithCallback crawls every seed and calls callback with each
// finished report and the index of its seed. The callback is called from
// the goroutine that ran the crawl, so it must be safe for concurrent use.
// Seeds not started before ctx is cancelled produce no callback.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	seeds []string,
	callback func(report *model.CrawlReport, index int),
) error {
	bp.logger.Info("starting batch processing",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bp.logger.Debug("crawling seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)
			callback(bp.run(ctx, seed), i)
			return nil
		})
	}

	return g.Wait()
}

// run builds and executes the pipeline for one seed. Failures are recorded
// in the report and never stop the other crawls.
func (bp *BatchProcessor) run(ctx context.Context, seed string) *model.CrawlReport {
	report := model.NewCrawlReport(seed)

	p, err := bp.factory(seed)
	if err != nil {
		report.Error = err.Error()
		bp.logger.Warn("failed to build pipeline", "seed", seed, "error", err)
		return report
	}
	if err := p.Execute(ctx, report); err != nil {
		bp.logger.Warn("crawl failed", "seed", seed, "error", err)
	}
	return report
}
