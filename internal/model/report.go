package model

import "time"

// CrawlStats describes a finished crawl.
type CrawlStats struct {
	// RequestsIssued is the number of fetches attempted. It never exceeds
	// the request budget.
	RequestsIssued int `json:"requests_issued"`

	// PagesFetched is the number of fetches that produced a document.
	PagesFetched int `json:"pages_fetched"`

	// FetchFailures is the number of fetches that failed.
	FetchFailures int `json:"fetch_failures"`

	// URLsDiscovered is the number of distinct URLs ever added to the
	// frontier, the seed included.
	URLsDiscovered int `json:"urls_discovered"`

	// URLsPending is the number of discovered URLs that were never fetched.
	URLsPending int `json:"urls_pending"`

	// UniqueMatches is the number of distinct values found.
	UniqueMatches int `json:"unique_matches"`

	// BudgetExhausted is true when the crawl stopped because the request
	// budget ran out while URLs were still pending.
	BudgetExhausted bool `json:"budget_exhausted"`
}

// CrawlReport is everything known about one crawl run.
type CrawlReport struct {
	// ID is the database identifier, 0 for reports that were not saved.
	ID int64 `json:"id,omitempty"`

	// Seed is the normalized seed URL.
	Seed string `json:"seed"`

	// PatternName is the preset name, or "custom".
	PatternName string `json:"pattern_name"`

	// PatternSource is the regular expression source.
	PatternSource string `json:"pattern_source"`

	// MaxRequests is the request budget of the run.
	MaxRequests int `json:"max_requests"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl ended.
	FinishedAt time.Time `json:"finished_at"`

	// Stats holds the crawl counters.
	Stats CrawlStats `json:"stats"`

	// Visits lists every fetch in the order it was issued.
	Visits []PageVisit `json:"visits,omitempty"`

	// Matches lists the distinct values in order of first discovery.
	Matches []Match `json:"matches"`

	// Error contains the error message if the crawl was interrupted.
	Error string `json:"error,omitempty"`
}

// NewCrawlReport creates an empty report for the given seed.
func NewCrawlReport(seed string) *CrawlReport {
	return &CrawlReport{
		Seed:      seed,
		StartedAt: time.Now(),
		Visits:    make([]PageVisit, 0),
		Matches:   make([]Match, 0),
	}
}

// Duration returns the wall-clock time of the crawl, or 0 if it has not
// finished.
func (r *CrawlReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedVisits returns the visits that did not produce a document.
func (r *CrawlReport) FailedVisits() []PageVisit {
	failed := make([]PageVisit, 0)
	for _, v := range r.Visits {
		if !v.OK() {
			failed = append(failed, v)
		}
	}
	return failed
}

// FindMatch returns the record for value, or false if it was not found.
func (r *CrawlReport) FindMatch(value string) (Match, bool) {
	for _, m := range r.Matches {
		if m.Value == value {
			return m, true
		}
	}
	return Match{}, false
}

// HasMatches reports whether the crawl found anything.
func (r *CrawlReport) HasMatches() bool {
	return len(r.Matches) > 0
}
