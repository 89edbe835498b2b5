package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/nao1215/microcrawl/internal/config"
	"github.com/nao1215/microcrawl/internal/crawler"
	"github.com/nao1215/microcrawl/internal/database"
	"github.com/nao1215/microcrawl/internal/fetcher"
	"github.com/nao1215/microcrawl/internal/model"
	"github.com/nao1215/microcrawl/internal/pattern"
)

// CrawlStep runs a bounded crawl from the report's seed and fills the
// report with the pages visited and the values found.
type CrawlStep struct {
	// fetcher retrieves and parses pages.
	fetcher fetcher.Fetcher

	// pattern is matched against the rendered text of every element.
	pattern *pattern.Pattern

	// maxRequests bounds the number of fetches.
	maxRequests int

	// sameHostOnly keeps the crawl on the seed's host.
	sameHostOnly bool

	// ignorePatterns are URL path globs to skip during crawling.
	ignorePatterns []string

	// followPatterns are URL path globs to follow during crawling.
	followPatterns []string

	// logger for structured logging.
	logger *slog.Logger
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlMaxRequests sets the request budget.
func WithCrawlMaxRequests(n int) CrawlStepOption {
	return func(s *CrawlStep) {
		s.maxRequests = n
	}
}

// WithCrawlSameHostOnly restricts the crawl to the seed's host.
func WithCrawlSameHostOnly(enabled bool) CrawlStepOption {
	return func(s *CrawlStep) {
		s.sameHostOnly = enabled
	}
}

// WithCrawlIgnorePatterns sets URL path globs to skip.
func WithCrawlIgnorePatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.ignorePatterns = patterns
	}
}

// WithCrawlFollowPatterns sets URL path globs to follow.
func WithCrawlFollowPatterns(patterns []string) CrawlStepOption {
	return func(s *CrawlStep) {
		s.followPatterns = patterns
	}
}

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		s.logger = logger
	}
}

// NewCrawlStep creates a crawl step that matches p on pages retrieved by f.
// The request budget defaults to config.DefaultMaxRequests.
func NewCrawlStep(f fetcher.Fetcher, p *pattern.Pattern, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		fetcher:     f,
		pattern:     p,
		maxRequests: config.DefaultMaxRequests,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
//
// A cancelled crawl still fills the report with what was found before the
// cancellation; the context error is returned.
func (s *CrawlStep) Do(ctx context.Context, report *model.CrawlReport) error {
	spider, err := crawler.NewSpider(s.fetcher,
		crawler.WithLogger(s.logger),
		crawler.WithSameHostOnly(s.sameHostOnly),
		crawler.WithIgnorePatterns(s.ignorePatterns),
		crawler.WithFollowPatterns(s.followPatterns),
	)
	if err != nil {
		return err
	}

	report.MaxRequests = s.maxRequests
	if s.pattern != nil {
		report.PatternName = s.pattern.Name()
		report.PatternSource = s.pattern.Source()
	}

	report.StartedAt = time.Now()
	result, err := spider.Analyze(ctx, report.Seed, crawler.CrawlConfig{
		MaxRequests: s.maxRequests,
		Pattern:     s.pattern,
	})
	report.FinishedAt = time.Now()
	if result == nil {
		return err
	}

	report.Seed = result.Seed()
	report.Stats = result.Stats()
	report.Visits = result.Visits()
	report.Matches = slices.AppendSeq(make([]model.Match, 0, report.Stats.UniqueMatches), result.Matches())

	s.logger.Debug("crawl step completed",
		"seed", report.Seed,
		"requests", report.Stats.RequestsIssued,
		"matches", report.Stats.UniqueMatches,
		"budget_exhausted", report.Stats.BudgetExhausted,
	)
	return err
}

// PersistStep stores the report in the results database.
type PersistStep struct {
	// db is the results database. A nil db turns the step into a no-op.
	db *database.ResultDB

	// logger for structured logging.
	logger *slog.Logger
}

// PersistStepOption configures a PersistStep.
type PersistStepOption func(*PersistStep)

// WithPersistLogger sets a custom logger for the persist step.
func WithPersistLogger(logger *slog.Logger) PersistStepOption {
	return func(s *PersistStep) {
		s.logger = logger
	}
}

// NewPersistStep creates a step that saves reports to db.
func NewPersistStep(db *database.ResultDB, opts ...PersistStepOption) *PersistStep {
	s := &PersistStep{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do saves the report and sets its ID.
func (s *PersistStep) Do(ctx context.Context, report *model.CrawlReport) error {
	if s.db == nil {
		return nil
	}
	id, err := s.db.SaveReport(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to save crawl report: %w", err)
	}
	s.logger.Info("crawl report saved to database", "seed", report.Seed, "id", id)
	return nil
}

// ClientFactory creates an HTTP client that sends cookie and headers with
// every request.
type ClientFactory func(cookie string, headers map[string]string) (*http.Client, error)

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// Pattern is matched against every element's rendered text.
	Pattern *pattern.Pattern

	// MaxRequests is the request budget of each crawl.
	MaxRequests int

	// Cookie is the cookie string to send with HTTP requests.
	Cookie string

	// Headers are additional HTTP headers to send with requests.
	Headers map[string]string

	// IgnorePatterns are URL path globs to skip during crawling.
	IgnorePatterns []string

	// FollowPatterns are URL path globs to follow during crawling.
	FollowPatterns []string

	// SameHostOnly keeps the crawl on the seed's host.
	SameHostOnly bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelinePattern sets the pattern to match.
func WithPipelinePattern(p *pattern.Pattern) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Pattern = p
	}
}

// WithPipelineMaxRequests sets the request budget.
func WithPipelineMaxRequests(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxRequests = n
	}
}

// WithPipelineCookie sets the cookie for HTTP requests.
func WithPipelineCookie(cookie string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Cookie = cookie
	}
}

// WithPipelineHeaders sets additional HTTP headers.
func WithPipelineHeaders(headers map[string]string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Headers = headers
	}
}

// WithPipelineIgnorePatterns sets URL path globs to skip during crawling.
func WithPipelineIgnorePatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.IgnorePatterns = patterns
	}
}

// WithPipelineFollowPatterns sets URL path globs to follow during crawling.
func WithPipelineFollowPatterns(patterns []string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.FollowPatterns = patterns
	}
}

// WithPipelineSameHostOnly restricts crawls to the seed's host.
func WithPipelineSameHostOnly(enabled bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SameHostOnly = enabled
	}
}

// WithPipelineUserAgent sets the User-Agent header for HTTP requests.
func WithPipelineUserAgent(userAgent string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.UserAgent = userAgent
	}
}

// WithPipelineMaxBodySize sets the maximum response body size in bytes.
func WithPipelineMaxBodySize(maxBodySize int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxBodySize = maxBodySize
	}
}

// DefaultPipeline creates the standard pipeline: a crawl step followed by a
// persist step when db is not nil.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelinePattern, etc).
func DefaultPipeline(newClient ClientFactory, db *database.ResultDB, pipelineOpts []Option, configOpts ...DefaultPipelineOption) (*Pipeline, error) {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		MaxRequests: config.DefaultMaxRequests,
		UserAgent:   config.DefaultUserAgent,
		MaxBodySize: config.DefaultMaxBodySize,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	client, err := newClient(cfg.Cookie, cfg.Headers)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	f := fetcher.NewHTTPFetcher(client,
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithLogger(p.logger),
	)

	p.AddStep(NewCrawlStep(f, cfg.Pattern,
		WithCrawlMaxRequests(cfg.MaxRequests),
		WithCrawlSameHostOnly(cfg.SameHostOnly),
		WithCrawlIgnorePatterns(cfg.IgnorePatterns),
		WithCrawlFollowPatterns(cfg.FollowPatterns),
		WithCrawlLogger(p.logger),
	))
	if db != nil {
		p.AddStep(NewPersistStep(db, WithPersistLogger(p.logger)))
	}
	return p, nil
}
