package model

import (
	"testing"
	"time"
)

// TestNewCrawlReport tests the CrawlReport constructor.
func TestNewCrawlReport(t *testing.T) {
	t.Parallel()

	report := NewCrawlReport("http://example.com/")

	t.Run("sets seed", func(t *testing.T) {
		t.Parallel()
		if report.Seed != "http://example.com/" {
			t.Errorf("got %q, expected %q", report.Seed, "http://example.com/")
		}
	})

	t.Run("sets start timestamp", func(t *testing.T) {
		t.Parallel()
		if report.StartedAt.IsZero() {
			t.Error("expected StartedAt to be set")
		}
		if time.Since(report.StartedAt) > time.Minute {
			t.Error("StartedAt is too old")
		}
	})

	t.Run("initializes slices", func(t *testing.T) {
		t.Parallel()
		if report.Visits == nil || report.Matches == nil {
			t.Error("expected Visits and Matches to be initialized")
		}
	})

	t.Run("has no matches", func(t *testing.T) {
		t.Parallel()
		if report.HasMatches() {
			t.Error("new report should have no matches")
		}
	})
}

func TestCrawlReportDuration(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		finished time.Time
		want     time.Duration
	}{
		{name: "unfinished", finished: time.Time{}, want: 0},
		{name: "finished", finished: start.Add(3 * time.Second), want: 3 * time.Second},
		{name: "clock skew", finished: start.Add(-time.Second), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &CrawlReport{StartedAt: start, FinishedAt: tt.finished}
			if got := r.Duration(); got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCrawlReportFailedVisits(t *testing.T) {
	t.Parallel()

	r := NewCrawlReport("http://example.com/")
	r.Visits = append(r.Visits,
		PageVisit{URL: "http://example.com/", StatusCode: 200},
		PageVisit{URL: "http://example.com/dead", Error: "unexpected status 404"},
	)

	failed := r.FailedVisits()
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed visit, got %d", len(failed))
	}
	if failed[0].URL != "http://example.com/dead" {
		t.Errorf("unexpected failed visit %q", failed[0].URL)
	}
}

func TestCrawlReportFindMatch(t *testing.T) {
	t.Parallel()

	r := NewCrawlReport("http://example.com/")
	r.Matches = append(r.Matches, Match{Value: "a@example.com", Contexts: []string{"mail a@example.com"}})

	m, ok := r.FindMatch("a@example.com")
	if !ok {
		t.Fatal("expected match to be found")
	}
	if m.FirstContext() != "mail a@example.com" {
		t.Errorf("FirstContext() = %q", m.FirstContext())
	}

	if _, ok := r.FindMatch("b@example.com"); ok {
		t.Error("unexpected match for unknown value")
	}
	if !r.HasMatches() {
		t.Error("expected HasMatches to be true")
	}
}

func TestFormatHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0000000000000000"},
		{0xff, "00000000000000ff"},
		{0xdeadbeefcafebabe, "deadbeefcafebabe"},
	}
	for _, tt := range tests {
		if got := FormatHash(tt.in); got != tt.want {
			t.Errorf("FormatHash(%x) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewSummary(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &CrawlReport{
		Seed:        "http://b.example/",
		PatternName: "email",
		StartedAt:   start,
		FinishedAt:  start.Add(2 * time.Second),
		Stats:       CrawlStats{RequestsIssued: 3, PagesFetched: 2, FetchFailures: 1},
		Visits: []PageVisit{
			{URL: "http://b.example/"},
			{URL: "http://a.example/x"},
			{URL: "http://b.example/y"},
		},
		Matches: []Match{{Value: "x@b.example"}, {Value: "y@a.example"}},
	}

	s := NewSummary(r)

	if s.Pattern != "email" {
		t.Errorf("Pattern = %q", s.Pattern)
	}
	if s.Duration != 2*time.Second {
		t.Errorf("Duration = %v", s.Duration)
	}
	if len(s.Values) != 2 || s.Values[0] != "x@b.example" {
		t.Errorf("Values = %v", s.Values)
	}
	if len(s.Hosts) != 2 || s.Hosts[0] != "a.example" || s.Hosts[1] != "b.example" {
		t.Errorf("Hosts = %v", s.Hosts)
	}
	if !s.HasFindings() {
		t.Error("expected findings")
	}
	if s.Stats.FetchFailures != 1 {
		t.Errorf("Stats not copied: %+v", s.Stats)
	}
}
