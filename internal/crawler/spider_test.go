package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/nao1215/microcrawl/internal/fetcher"
	"github.com/nao1215/microcrawl/internal/model"
	"github.com/nao1215/microcrawl/internal/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSpider(t *testing.T, f fetcher.Fetcher, opts ...SpiderOption) *Spider {
	t.Helper()
	s, err := NewSpider(f, opts...)
	require.NoError(t, err)
	return s
}

// chainSite returns n pages where page i links to page i+1.
func chainSite(n int) map[string]string {
	pages := make(map[string]string, n)
	for i := range n {
		u := fmt.Sprintf("http://site.test/%d", i)
		if i == 0 {
			u = "http://site.test/"
		}
		pages[u] = fmt.Sprintf(`<html><body><p>page %d</p><a href="/%d">next</a></body></html>`, i, i+1)
	}
	return pages
}

func TestCrawlConfig_Validate(t *testing.T) {
	t.Parallel()

	p := pattern.MustCompile(`x`)

	tests := []struct {
		name    string
		cfg     CrawlConfig
		wantErr error
	}{
		{name: "valid", cfg: CrawlConfig{MaxRequests: 1, Pattern: p}},
		{name: "missing pattern", cfg: CrawlConfig{MaxRequests: 10}, wantErr: ErrNoPattern},
		{name: "zero budget", cfg: CrawlConfig{MaxRequests: 0, Pattern: p}, wantErr: ErrInvalidMaxRequests},
		{name: "negative budget", cfg: CrawlConfig{MaxRequests: -1, Pattern: p}, wantErr: ErrInvalidMaxRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSpider_Analyze_ConfigErrors(t *testing.T) {
	t.Parallel()

	f := newSiteFetcher(chainSite(3))
	s := newTestSpider(t, f)

	_, err := s.Analyze(context.Background(), "http://site.test/", CrawlConfig{MaxRequests: 10})
	require.ErrorIs(t, err, ErrNoPattern)

	_, err = s.Analyze(context.Background(), "ftp://site.test/", CrawlConfig{MaxRequests: 10, Pattern: emailPattern(t)})
	require.ErrorIs(t, err, ErrInvalidSeed)

	assert.Equal(t, 0, f.total(), "no fetch may happen on a configuration error")
}

func TestSpider_Analyze_BudgetBound(t *testing.T) {
	t.Parallel()

	for _, budget := range []int{1, 3, 7} {
		t.Run(fmt.Sprintf("budget %d", budget), func(t *testing.T) {
			t.Parallel()

			f := newSiteFetcher(chainSite(20))
			s := newTestSpider(t, f)

			result, err := s.Analyze(context.Background(), "http://site.test/", CrawlConfig{
				MaxRequests: budget,
				Pattern:     emailPattern(t),
			})
			require.NoError(t, err)

			assert.Equal(t, budget, f.total())
			assert.Equal(t, budget, result.Stats().RequestsIssued)
			assert.True(t, result.Stats().BudgetExhausted)
			assert.Len(t, result.Visits(), budget)
			assert.Equal(t, StateDone, result.State())
		})
	}
}

func TestSpider_Analyze_VisitsEachURLOnce(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"http://site.test/":  `<a href="/a">a</a><a href="/b">b</a><a href="/#top">self</a>`,
		"http://site.test/a": `<a href="/">home</a><a href="/b">b</a><a href="http://site.test/a#x">self</a>`,
		"http://site.test/b": `<a href="/a">a</a><a href="/">home</a>`,
	}
	f := newSiteFetcher(pages)
	s := newTestSpider(t, f)

	result, err := s.Analyze(context.Background(), "http://site.test/", CrawlConfig{
		MaxRequests: 100,
		Pattern:     emailPattern(t),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, f.total())
	for u, n := range f.calls {
		assert.Equal(t, 1, n, "fetched %s more than once", u)
	}
	assert.Equal(t, []string{"http://site.test/", "http://site.test/a", "http://site.test/b"}, f.order)
	assert.False(t, result.Stats().BudgetExhausted)
	assert.Equal(t, 3, result.Stats().URLsDiscovered)
	assert.Equal(t, 0, result.Stats().URLsPending)
}

func TestSpider_Analyze_DeadLinks(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"http://site.test/":      `<p>seed</p><a href="/dead">dead</a><a href="/alive">alive</a>`,
		"http://site.test/alive": `<p>reach me at alive@site.test</p>`,
	}
	f := newSiteFetcher(pages)
	s := newTestSpider(t, f)

	result, err := s.Analyze(context.Background(), "http://site.test/", CrawlConfig{
		MaxRequests: 10,
		Pattern:     emailPattern(t),
	})
	require.NoError(t, err)

	matches := slices.Collect(result.Matches())
	require.Len(t, matches, 1)
	assert.Equal(t, "alive@site.test", matches[0].Value)

	stats := result.Stats()
	assert.Equal(t, 3, stats.RequestsIssued)
	assert.Equal(t, 2, stats.PagesFetched)
	assert.Equal(t, 1, stats.FetchFailures)

	var dead model.PageVisit
	for _, v := range result.Visits() {
		if v.URL == "http://site.test/dead" {
			dead = v
		}
	}
	assert.False(t, dead.OK())
	assert.Contains(t, dead.Error, "not found")
}

func TestSpider_Analyze_SeedFailure(t *testing.T) {
	t.Parallel()

	f := newSiteFetcher(map[string]string{})
	s := newTestSpider(t, f)

	result, err := s.Analyze(context.Background(), "http://site.test/", CrawlConfig{
		MaxRequests: 5,
		Pattern:     emailPattern(t),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.total())
	assert.Empty(t, slices.Collect(result.Matches()))
	assert.Equal(t, 1, result.Stats().FetchFailures)
}

func TestSpider_Analyze_SameHostOnly(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"http://site.test/":      `<a href="/local">local</a><a href="http://elsewhere.test/">away</a>`,
		"http://site.test/local": `<p>local</p>`,
		"http://elsewhere.test/": `<p>away@elsewhere.test</p>`,
	}

	t.Run("follows other hosts by default", func(t *testing.T) {
		t.Parallel()
		f := newSiteFetcher(pages)
		_, err := newTestSpider(t, f).Analyze(context.Background(), "http://site.test/", CrawlConfig{MaxRequests: 10, Pattern: emailPattern(t)})
		require.NoError(t, err)
		assert.Equal(t, 1, f.calls["http://elsewhere.test/"])
	})

	t.Run("stays on the seed host", func(t *testing.T) {
		t.Parallel()
		f := newSiteFetcher(pages)
		_, err := newTestSpider(t, f, WithSameHostOnly(true)).Analyze(context.Background(), "http://site.test/", CrawlConfig{MaxRequests: 10, Pattern: emailPattern(t)})
		require.NoError(t, err)
		assert.Equal(t, 0, f.calls["http://elsewhere.test/"])
		assert.Equal(t, 1, f.calls["http://site.test/local"])
	})
}

func TestSpider_Analyze_PathPatterns(t *testing.T) {
	t.Parallel()

	pages := map[string]string{
		"http://site.test/": `<a href="/docs/a">a</a><a href="/docs/deep/b">b</a><a href="/private/x">x</a><a href="/file.pdf">pdf</a>`,
	}

	tests := []struct {
		name    string
		opts    []SpiderOption
		fetched []string
		skipped []string
	}{
		{
			name:    "ignore",
			opts:    []SpiderOption{WithIgnorePatterns([]string{"/private/*", "*.pdf"})},
			fetched: []string{"http://site.test/docs/a", "http://site.test/docs/deep/b"},
			skipped: []string{"http://site.test/private/x", "http://site.test/file.pdf"},
		},
		{
			name:    "follow",
			opts:    []SpiderOption{WithFollowPatterns([]string{"/docs/*"})},
			fetched: []string{"http://site.test/docs/a", "http://site.test/docs/deep/b"},
			skipped: []string{"http://site.test/private/x", "http://site.test/file.pdf"},
		},
		{
			name: "ignore wins over follow",
			opts: []SpiderOption{
				WithFollowPatterns([]string{"/docs/*"}),
				WithIgnorePatterns([]string{"/docs/deep/*"}),
			},
			fetched: []string{"http://site.test/docs/a"},
			skipped: []string{"http://site.test/docs/deep/b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newSiteFetcher(pages)
			_, err := newTestSpider(t, f, tt.opts...).Analyze(context.Background(), "http://site.test/", CrawlConfig{MaxRequests: 10, Pattern: emailPattern(t)})
			require.NoError(t, err)

			for _, u := range tt.fetched {
				assert.Equal(t, 1, f.calls[u], "expected %s to be fetched", u)
			}
			for _, u := range tt.skipped {
				assert.Equal(t, 0, f.calls[u], "expected %s to be skipped", u)
			}
		})
	}

	t.Run("invalid glob", func(t *testing.T) {
		t.Parallel()
		_, err := NewSpider(newSiteFetcher(pages), WithIgnorePatterns([]string{"[unclosed"}))
		assert.Error(t, err)
	})
}

func TestSpider_Analyze_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newSiteFetcher(chainSite(5))
	result, err := newTestSpider(t, f).Analyze(ctx, "http://site.test/", CrawlConfig{MaxRequests: 10, Pattern: emailPattern(t)})

	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Equal(t, 0, f.total())
	assert.Equal(t, StateDone, result.State())
	assert.Equal(t, 1, result.Stats().URLsPending)
}

func TestSpider_Analyze_EmailEndToEnd(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><head><title>Home</title></head><body>
			<p>Contact: a@x.org</p>
			<a href="/p2#team">team</a>
		</body></html>`)
	})
	mux.HandleFunc("/p2", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, `<html><body><div><span>Sales b@y.org</span></div></body></html>`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	s := newTestSpider(t, fetcher.NewHTTPFetcher(server.Client()))
	result, err := s.Analyze(context.Background(), server.URL, CrawlConfig{
		MaxRequests: 10,
		Pattern:     emailPattern(t),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Stats().RequestsIssued)
	assert.Equal(t, 2, result.Stats().PagesFetched)

	matches := slices.Collect(result.Matches())
	require.Len(t, matches, 2)
	assert.Equal(t, "a@x.org", matches[0].Value)
	assert.Equal(t, "Contact: a@x.org", matches[0].FirstContext())
	assert.Equal(t, "b@y.org", matches[1].Value)
	assert.Equal(t, "Sales b@y.org", matches[1].FirstContext())

	visits := result.Visits()
	require.Len(t, visits, 2)
	assert.Equal(t, "Home", visits[0].Title)
	assert.Equal(t, http.StatusOK, visits[0].StatusCode)
	assert.Equal(t, 1, visits[1].Depth)
	assert.Equal(t, server.URL+"/p2", visits[1].URL)
	assert.Len(t, visits[0].Hash, 16)
}

func TestSpider_Analyze_Redirects(t *testing.T) {
	t.Parallel()

	newServer := func(t *testing.T, hits map[string]int, mu *sync.Mutex) *httptest.Server {
		t.Helper()
		mux := http.NewServeMux()
		count := func(r *http.Request) {
			mu.Lock()
			hits[r.URL.Path]++
			mu.Unlock()
		}
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			count(r)
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			http.Redirect(w, r, "/home", http.StatusFound)
		})
		mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
			count(r)
			http.Redirect(w, r, "/home", http.StatusMovedPermanently)
		})
		mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
			count(r)
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body><p>a@x.org</p><a href="/home">home</a><a href="/old">old</a></body></html>`)
		})
		server := httptest.NewServer(mux)
		t.Cleanup(server.Close)
		return server
	}

	var mu sync.Mutex
	hits := make(map[string]int)
	server := newServer(t, hits, &mu)

	s := newTestSpider(t, fetcher.NewHTTPFetcher(server.Client()))
	result, err := s.Analyze(context.Background(), server.URL, CrawlConfig{
		MaxRequests: 10,
		Pattern:     emailPattern(t),
	})
	require.NoError(t, err)

	// "/" lands on /home, so the self link is not fetched again. "/old"
	// lands on /home as well and its content is not folded twice.
	assert.Equal(t, 2, result.Stats().RequestsIssued)
	assert.Equal(t, 0, result.Stats().URLsPending)

	matches := slices.Collect(result.Matches())
	require.Len(t, matches, 1)
	assert.Len(t, matches[0].Contexts, 3)

	visits := result.Visits()
	require.Len(t, visits, 2)
	assert.Equal(t, 1, visits[0].Matches)
	assert.Equal(t, server.URL+"/old", visits[1].URL)
	assert.Equal(t, 0, visits[1].Matches)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits["/"])
	assert.Equal(t, 1, hits["/old"])
}
