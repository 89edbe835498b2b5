package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/microcrawl/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *ResultDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// sampleReport returns a finished report for seed started at start.
func sampleReport(seed string, start time.Time, values ...string) *model.CrawlReport {
	r := model.NewCrawlReport(seed)
	r.PatternName = "email"
	r.PatternSource = `\S+@\S+`
	r.MaxRequests = 10
	r.StartedAt = start
	r.FinishedAt = start.Add(time.Second)
	r.Visits = []model.PageVisit{
		{URL: seed, StatusCode: 200, Title: "Home", Hash: "00000000000000ff", Links: 1, Matches: len(values), FetchedAt: start},
		{URL: seed + "dead", Depth: 1, Error: "unexpected status 404", FetchedAt: start},
	}
	for _, v := range values {
		r.Matches = append(r.Matches, model.Match{Value: v, Contexts: []string{"mail " + v, "contact mail " + v}})
	}
	r.Stats = model.CrawlStats{
		RequestsIssued: 2,
		PagesFetched:   1,
		FetchFailures:  1,
		URLsDiscovered: 2,
		UniqueMatches:  len(values),
	}
	return r
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error when CreateIfNotExists=false and database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected informative error, got %q", err.Error())
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created when CreateIfNotExists=false")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		ctx := context.Background()

		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		id, err := db1.SaveReport(ctx, sampleReport("http://example.com/", time.Now()))
		if err != nil {
			t.Fatalf("failed to save report: %v", err)
		}
		db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db2.Close()

		if _, err := db2.GetReport(ctx, id); err != nil {
			t.Errorf("expected stored run to persist: %v", err)
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

func TestSaveAndGetReport(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	report := sampleReport("http://example.com/", start, "a@example.com", "b@example.com")
	id, err := db.SaveReport(ctx, report)
	if err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}
	if id == 0 || report.ID != id {
		t.Fatalf("expected report ID to be set, got id=%d report.ID=%d", id, report.ID)
	}

	got, err := db.GetReport(ctx, id)
	if err != nil {
		t.Fatalf("GetReport failed: %v", err)
	}

	if got.ID != id {
		t.Errorf("expected ID %d, got %d", id, got.ID)
	}
	if got.Seed != report.Seed || got.PatternName != "email" {
		t.Errorf("unexpected run header %+v", got)
	}
	if !got.StartedAt.Equal(start) {
		t.Errorf("expected StartedAt %v, got %v", start, got.StartedAt)
	}
	if len(got.Matches) != 2 || got.Matches[1].Value != "b@example.com" {
		t.Errorf("unexpected matches %+v", got.Matches)
	}
	if len(got.Visits) != 2 || got.Visits[1].Error == "" {
		t.Errorf("unexpected visits %+v", got.Visits)
	}
	if got.Stats != report.Stats {
		t.Errorf("expected stats %+v, got %+v", report.Stats, got.Stats)
	}
}

func TestGetReport_NotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	_, err := db.GetReport(context.Background(), 42)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}

	_, err = db.LatestReport(context.Background(), "http://nowhere.test/")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRunsAndLatest(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	reports := []*model.CrawlReport{
		sampleReport("http://a.test/", base, "x@a.test"),
		sampleReport("http://b.test/", base.Add(time.Hour)),
		sampleReport("http://a.test/", base.Add(2*time.Hour), "x@a.test", "y@a.test"),
	}
	for _, r := range reports {
		if _, err := db.SaveReport(ctx, r); err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}
	}

	t.Run("all runs newest first", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "")
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[0].ID != reports[2].ID || runs[2].ID != reports[0].ID {
			t.Errorf("unexpected order: %+v", runs)
		}
		if runs[0].UniqueMatches != 2 || runs[0].FetchFailures != 1 {
			t.Errorf("unexpected counters %+v", runs[0])
		}
		if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
			t.Errorf("unexpected StartedAt %v", runs[0].StartedAt)
		}
	})

	t.Run("filtered by seed", func(t *testing.T) {
		t.Parallel()

		runs, err := db.ListRuns(ctx, "http://b.test/")
		if err != nil {
			t.Fatalf("ListRuns failed: %v", err)
		}
		if len(runs) != 1 || runs[0].Seed != "http://b.test/" {
			t.Errorf("unexpected runs %+v", runs)
		}
	})

	t.Run("latest report per seed", func(t *testing.T) {
		t.Parallel()

		latest, err := db.LatestReport(ctx, "http://a.test/")
		if err != nil {
			t.Fatalf("LatestReport failed: %v", err)
		}
		if latest.ID != reports[2].ID {
			t.Errorf("expected run %d, got %d", reports[2].ID, latest.ID)
		}
	})

	t.Run("seeds", func(t *testing.T) {
		t.Parallel()

		seeds, err := db.ListSeeds(ctx)
		if err != nil {
			t.Fatalf("ListSeeds failed: %v", err)
		}
		if len(seeds) != 2 || seeds[0] != "http://a.test/" || seeds[1] != "http://b.test/" {
			t.Errorf("unexpected seeds %v", seeds)
		}
	})

	t.Run("value sightings across runs", func(t *testing.T) {
		t.Parallel()

		sightings, err := db.FindValue(ctx, "x@a.test")
		if err != nil {
			t.Fatalf("FindValue failed: %v", err)
		}
		if len(sightings) != 2 {
			t.Fatalf("expected 2 sightings, got %d", len(sightings))
		}
		if sightings[0].RunID != reports[2].ID {
			t.Errorf("expected newest run first, got %+v", sightings[0])
		}
		if sightings[0].FirstContext != "mail x@a.test" || sightings[0].ContextCount != 2 {
			t.Errorf("unexpected sighting %+v", sightings[0])
		}

		none, err := db.FindValue(ctx, "nobody@nowhere.test")
		if err != nil {
			t.Fatalf("FindValue failed: %v", err)
		}
		if len(none) != 0 {
			t.Errorf("expected no sightings, got %+v", none)
		}
	})
}

func TestDeleteRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	id, err := db.SaveReport(ctx, sampleReport("http://a.test/", time.Now(), "x@a.test"))
	if err != nil {
		t.Fatalf("SaveReport failed: %v", err)
	}

	if err := db.DeleteRun(ctx, id); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := db.GetReport(ctx, id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected run to be gone, got %v", err)
	}
	sightings, err := db.FindValue(ctx, "x@a.test")
	if err != nil {
		t.Fatalf("FindValue failed: %v", err)
	}
	if len(sightings) != 0 {
		t.Errorf("expected values to be deleted with the run, got %+v", sightings)
	}

	if err := db.DeleteRun(ctx, id); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound on second delete, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []string{
		"2024-01-02T03:04:05.000000000Z",
		"2024-01-02T03:04:05Z",
		"2024-01-02 03:04:05",
	}
	for _, in := range tests {
		if got := parseTimestamp(in); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}
	if got := parseTimestamp("garbage"); !got.IsZero() {
		t.Errorf("expected zero time for garbage, got %v", got)
	}
	if got := parseTimestamp(""); !got.IsZero() {
		t.Errorf("expected zero time for empty input, got %v", got)
	}
}
