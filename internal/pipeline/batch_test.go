package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/microcrawl/internal/model"
)

// seedPipeline returns a factory whose pipelines record the seed as the
// only match.
func seedPipeline(running, peak *atomic.Int32) Factory {
	return func(seed string) (*Pipeline, error) {
		p := New()
		p.AddStep(&mockStep{name: "record", doFunc: func(_ context.Context, r *model.CrawlReport) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			running.Add(-1)
			r.Matches = append(r.Matches, model.Match{Value: seed})
			return nil
		}})
		return p, nil
	}
}

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("uses defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(string) (*Pipeline, error) { return New(), nil })
		if bp.concurrency != 4 {
			t.Errorf("expected default concurrency 4, got %d", bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(nil, WithConcurrency(0))
		if bp.concurrency != 4 {
			t.Errorf("expected default concurrency 4, got %d", bp.concurrency)
		}
		bp = NewBatchProcessor(nil, WithConcurrency(2))
		if bp.concurrency != 2 {
			t.Errorf("expected concurrency 2, got %d", bp.concurrency)
		}
	})
}

// TestBatchProcessorProcessBatch tests concurrent crawling of several seeds.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("returns reports in seed order", func(t *testing.T) {
		t.Parallel()

		var running, peak atomic.Int32
		bp := NewBatchProcessor(seedPipeline(&running, &peak), WithConcurrency(3))

		seeds := []string{"http://a.test/", "http://b.test/", "http://c.test/", "http://d.test/", "http://e.test/"}
		reports, err := bp.ProcessBatch(context.Background(), seeds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reports) != len(seeds) {
			t.Fatalf("expected %d reports, got %d", len(seeds), len(reports))
		}
		for i, r := range reports {
			if r == nil || r.Seed != seeds[i] {
				t.Fatalf("report %d: expected seed %s, got %+v", i, seeds[i], r)
			}
			if _, ok := r.FindMatch(seeds[i]); !ok {
				t.Errorf("report %d: expected its own match, got %+v", i, r.Matches)
			}
		}
		if p := peak.Load(); p > 3 {
			t.Errorf("expected at most 3 concurrent crawls, saw %d", p)
		}
	})

	t.Run("records factory errors in the report", func(t *testing.T) {
		t.Parallel()

		factoryErr := errors.New("bad site settings")
		bp := NewBatchProcessor(func(seed string) (*Pipeline, error) {
			if seed == "http://bad.test/" {
				return nil, factoryErr
			}
			return New(), nil
		})

		reports, err := bp.ProcessBatch(context.Background(), []string{"http://good.test/", "http://bad.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reports[0].Error != "" {
			t.Errorf("expected good seed without error, got %q", reports[0].Error)
		}
		if reports[1].Error != factoryErr.Error() {
			t.Errorf("expected factory error in report, got %q", reports[1].Error)
		}
	})

	t.Run("records step errors without stopping others", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(seed string) (*Pipeline, error) {
			p := New()
			p.AddStep(&mockStep{name: "maybe-fail", doFunc: func(context.Context, *model.CrawlReport) error {
				if seed == "http://fail.test/" {
					return errors.New("crawl broke")
				}
				return nil
			}})
			return p, nil
		}, WithConcurrency(1))

		reports, err := bp.ProcessBatch(context.Background(), []string{"http://fail.test/", "http://ok.test/"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reports[0].Error != "crawl broke" {
			t.Errorf("expected step error recorded, got %q", reports[0].Error)
		}
		if reports[1] == nil || reports[1].Error != "" {
			t.Errorf("expected second seed to succeed, got %+v", reports[1])
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var calls atomic.Int32
		bp := NewBatchProcessor(func(string) (*Pipeline, error) {
			calls.Add(1)
			return New(), nil
		})

		_, err := bp.ProcessBatch(ctx, []string{"http://a.test/", "http://b.test/"})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if calls.Load() != 0 {
			t.Errorf("expected no pipeline to be built, got %d", calls.Load())
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests streaming results.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	var running, peak atomic.Int32
	bp := NewBatchProcessor(seedPipeline(&running, &peak), WithConcurrency(2))

	seeds := []string{"http://a.test/", "http://b.test/", "http://c.test/"}

	var mu sync.Mutex
	seen := make(map[int]string)
	err := bp.ProcessBatchWithCallback(context.Background(), seeds, func(r *model.CrawlReport, index int) {
		mu.Lock()
		defer mu.Unlock()
		seen[index] = r.Seed
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != len(seeds) {
		t.Fatalf("expected %d callbacks, got %d", len(seeds), len(seen))
	}
	for i, seed := range seeds {
		if seen[i] != seed {
			t.Errorf("index %d: expected %s, got %s", i, seed, seen[i])
		}
	}
}
