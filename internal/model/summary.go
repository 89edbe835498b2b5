package model

import (
	"net/url"
	"sort"
	"time"
)

// Summary is a condensed, human-readable view of a CrawlReport.
//
// It is computed rather than stored so the full report stays the single
// source of truth for JSON output and the database.
type Summary struct {
	// Seed is the crawled seed URL.
	Seed string `json:"seed"`

	// Pattern is the preset name, or "custom".
	Pattern string `json:"pattern"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// Duration is the crawl's wall-clock time.
	Duration time.Duration `json:"duration"`

	// Stats holds the crawl counters.
	Stats CrawlStats `json:"stats"`

	// Values lists the distinct matched values in order of discovery.
	Values []string `json:"values"`

	// Hosts lists the distinct hosts that were fetched, sorted.
	Hosts []string `json:"hosts"`

	// Error is the interruption message, if any.
	Error string `json:"error,omitempty"`
}

// NewSummary condenses a report.
func NewSummary(r *CrawlReport) *Summary {
	s := &Summary{
		Seed:      r.Seed,
		Pattern:   r.PatternName,
		StartedAt: r.StartedAt,
		Duration:  r.Duration(),
		Stats:     r.Stats,
		Values:    make([]string, 0, len(r.Matches)),
		Hosts:     make([]string, 0),
		Error:     r.Error,
	}
	for _, m := range r.Matches {
		s.Values = append(s.Values, m.Value)
	}
	s.collectHosts(r.Visits)
	return s
}

func (s *Summary) collectHosts(visits []PageVisit) {
	seen := make(map[string]bool)
	for _, v := range visits {
		u, err := url.Parse(v.URL)
		if err != nil || u.Host == "" || seen[u.Host] {
			continue
		}
		seen[u.Host] = true
		s.Hosts = append(s.Hosts, u.Host)
	}
	sort.Strings(s.Hosts)
}

// HasFindings reports whether any value was found.
func (s *Summary) HasFindings() bool {
	return len(s.Values) > 0
}
