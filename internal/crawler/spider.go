package crawler

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/nao1215/microcrawl/internal/fetcher"
	"github.com/nao1215/microcrawl/internal/model"
	"github.com/nao1215/microcrawl/internal/pattern"
)

// CrawlConfig is the per-run configuration passed to Analyze.
type CrawlConfig struct {
	// MaxRequests is the upper bound on fetches issued, successful or not.
	MaxRequests int

	// Pattern is applied to the rendered text of every element.
	Pattern *pattern.Pattern
}

// Validate reports the first problem with the configuration.
func (c CrawlConfig) Validate() error {
	if c.Pattern == nil {
		return ErrNoPattern
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxRequests, c.MaxRequests)
	}
	return nil
}

// State is the lifecycle of a crawl run.
type State int

const (
	// StatePending means the run has not started.
	StatePending State = iota

	// StateRunning means the run is fetching pages.
	StateRunning

	// StateDone means the budget ran out, the frontier drained or the
	// context was cancelled.
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Spider runs bounded crawls. A Spider holds only configuration, so one
// value may run any number of crawls, including concurrently; all crawl
// state lives in the run.
type Spider struct {
	fetcher fetcher.Fetcher
	logger  *slog.Logger

	// sameHostOnly keeps the crawl on the seed's host.
	sameHostOnly bool

	// ignorePatterns and followPatterns are the raw globs, ignore and
	// follow their compiled form.
	ignorePatterns []string
	followPatterns []string
	ignore         []glob.Glob
	follow         []glob.Glob
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithLogger sets the logger. Visits and fetch failures are logged at
// debug level.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		s.logger = logger
	}
}

// WithSameHostOnly restricts the crawl to links on the seed's host.
func WithSameHostOnly(enabled bool) SpiderOption {
	return func(s *Spider) {
		s.sameHostOnly = enabled
	}
}

// WithIgnorePatterns sets URL path globs to skip (e.g. "/admin/*", "*.pdf").
// A "*" matches across path separators.
func WithIgnorePatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.ignorePatterns = patterns
	}
}

// WithFollowPatterns sets URL path globs to follow. When set, only links
// whose path matches at least one glob enter the frontier.
func WithFollowPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.followPatterns = patterns
	}
}

// NewSpider creates a Spider that retrieves pages with f.
// It fails if an ignore or follow glob does not compile.
func NewSpider(f fetcher.Fetcher, opts ...SpiderOption) (*Spider, error) {
	s := &Spider{
		fetcher: f,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.ignore, err = compileGlobs(s.ignorePatterns); err != nil {
		return nil, err
	}
	if s.follow, err = compileGlobs(s.followPatterns); err != nil {
		return nil, err
	}
	return s, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Result is the outcome of one crawl run.
type Result struct {
	seed      string
	state     State
	stats     model.CrawlStats
	visits    []model.PageVisit
	collector *Collector
}

// Seed returns the normalized seed URL.
func (r *Result) Seed() string {
	return r.seed
}

// State returns the run state. It is StateDone for every result returned
// by Analyze.
func (r *Result) State() State {
	return r.state
}

// Matches yields the distinct values in order of first discovery, each with
// its accumulated contexts.
func (r *Result) Matches() iter.Seq[model.Match] {
	return r.collector.Matches()
}

// Stats returns the crawl counters.
func (r *Result) Stats() model.CrawlStats {
	return r.stats
}

// Visits returns every fetch in the order it was issued.
func (r *Result) Visits() []model.PageVisit {
	return r.visits
}

// run is the state of one crawl.
type run struct {
	cfg       CrawlConfig
	seedHost  string
	frontier  *Frontier
	collector *Collector
	result    *Result
}

// Analyze crawls breadth-first from seed and returns every value the
// pattern matched.
//
// At most cfg.MaxRequests fetches are issued. Each discovered URL is
// fetched at most once. A page that cannot be fetched or parsed is a dead
// end and does not stop the crawl. If ctx is cancelled the crawl stops
// before the next fetch and the partial result is returned with ctx.Err().
func (s *Spider) Analyze(ctx context.Context, seed string, cfg CrawlConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start, err := NormalizeSeed(seed)
	if err != nil {
		return nil, err
	}
	startURL, err := url.Parse(start)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}

	r := &run{
		cfg:       cfg,
		seedHost:  startURL.Host,
		frontier:  NewFrontier(start),
		collector: NewCollector(),
	}
	r.result = &Result{
		seed:      start,
		state:     StatePending,
		visits:    make([]model.PageVisit, 0),
		collector: r.collector,
	}

	err = s.loop(ctx, r)
	s.finish(r)
	return r.result, err
}

func (s *Spider) loop(ctx context.Context, r *run) error {
	r.result.state = StateRunning
	s.logger.Debug("crawl started",
		"seed", r.result.seed,
		"pattern", r.cfg.Pattern.Name(),
		"max_requests", r.cfg.MaxRequests)

	for r.result.stats.RequestsIssued < r.cfg.MaxRequests {
		if err := ctx.Err(); err != nil {
			return err
		}

		entry, ok := r.frontier.Next()
		if !ok {
			return nil
		}

		r.result.stats.RequestsIssued++
		s.visit(ctx, r, entry)
	}
	return nil
}

// visit fetches one URL and folds its matches and links into the run.
func (s *Spider) visit(ctx context.Context, r *run, entry FrontierEntry) {
	v := model.PageVisit{
		URL:       entry.URL,
		Depth:     entry.Depth,
		FetchedAt: time.Now(),
	}

	doc, err := s.fetcher.Fetch(ctx, entry.URL)
	if err != nil {
		r.result.stats.FetchFailures++
		v.Error = err.Error()
		r.result.visits = append(r.result.visits, v)
		s.logger.Debug("fetch failed",
			"url", entry.URL,
			"request", r.result.stats.RequestsIssued,
			"error", err)
		return
	}
	r.result.stats.PagesFetched++
	v.StatusCode = doc.StatusCode
	v.Title = doc.Title()
	v.Hash = model.FormatHash(doc.Hash)
	v.Size = doc.Size

	if !s.markLanding(r, entry, doc) {
		r.result.visits = append(r.result.visits, v)
		s.logger.Debug("redirect target already visited", "url", entry.URL, "final_url", doc.URL.String())
		return
	}

	pending := scan(doc, r.cfg.Pattern)
	v.Matches = r.collector.fold(pending)

	links := s.admit(r, ExtractLinks(doc, doc.BaseURL()))
	v.Links = len(links)
	v.NewLinks = r.frontier.AddAll(links, entry.Depth+1)
	r.result.visits = append(r.result.visits, v)

	s.logger.Debug("visited",
		"url", entry.URL,
		"request", r.result.stats.RequestsIssued,
		"depth", entry.Depth,
		"links", v.Links,
		"new_links", v.NewLinks,
		"matches", v.Matches)
}

// markLanding records the final URL of a redirected fetch as visited, so
// that links to the landing page do not fetch it again. It returns false
// when the landing page had already been processed.
func (s *Spider) markLanding(r *run, entry FrontierEntry, doc *fetcher.Document) bool {
	if doc.URL == nil {
		return true
	}
	final, ok := Resolve(doc.URL, doc.URL.String())
	if !ok || final.String() == entry.URL {
		return true
	}
	s.logger.Debug("redirected", "url", entry.URL, "final_url", final.String())
	return r.frontier.MarkVisited(final.String())
}

// scan walks the document and returns its surviving matches.
func scan(doc *fetcher.Document, p *pattern.Pattern) *pendingSet {
	pending := newPendingSet()
	for el := range Elements(doc.Root()) {
		pending.accumulate(el, Classify(p, el))
	}
	return pending
}

// admit filters links by host and path rules.
func (s *Spider) admit(r *run, links []string) []string {
	if !s.sameHostOnly && len(s.ignore) == 0 && len(s.follow) == 0 {
		return links
	}
	admitted := make([]string, 0, len(links))
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil {
			continue
		}
		if s.sameHostOnly && !strings.EqualFold(u.Host, r.seedHost) {
			continue
		}
		if !s.shouldCrawl(u) {
			continue
		}
		admitted = append(admitted, link)
	}
	return admitted
}

// shouldCrawl applies the ignore globs first, then the follow globs.
func (s *Spider) shouldCrawl(u *url.URL) bool {
	path := u.Path
	if path == "" {
		path = "/"
	}
	for _, g := range s.ignore {
		if g.Match(path) {
			return false
		}
	}
	if len(s.follow) == 0 {
		return true
	}
	for _, g := range s.follow {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func (s *Spider) finish(r *run) {
	r.result.state = StateDone
	r.result.stats.URLsDiscovered = r.frontier.Len()
	r.result.stats.URLsPending = r.frontier.Pending()
	r.result.stats.UniqueMatches = r.collector.Len()
	r.result.stats.BudgetExhausted = r.result.stats.RequestsIssued >= r.cfg.MaxRequests &&
		r.frontier.Pending() > 0

	s.logger.Info("crawl finished",
		"seed", r.result.seed,
		"requests", r.result.stats.RequestsIssued,
		"failures", r.result.stats.FetchFailures,
		"matches", r.result.stats.UniqueMatches)
}
