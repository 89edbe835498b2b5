package crawler

import (
	"context"
	"errors"
	"sync"

	"github.com/nao1215/microcrawl/internal/fetcher"
)

var errNotFound = errors.New("not found")

// siteFetcher serves pages from memory and counts requests per URL.
type siteFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls map[string]int
	order []string
}

func newSiteFetcher(pages map[string]string) *siteFetcher {
	return &siteFetcher{pages: pages, calls: make(map[string]int)}
}

func (f *siteFetcher) Fetch(_ context.Context, rawURL string) (*fetcher.Document, error) {
	f.mu.Lock()
	f.calls[rawURL]++
	f.order = append(f.order, rawURL)
	content, ok := f.pages[rawURL]
	f.mu.Unlock()

	if !ok {
		return nil, errNotFound
	}
	return fetcher.ParseString(rawURL, content)
}

func (f *siteFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

func mustParse(rawURL, content string) *fetcher.Document {
	doc, err := fetcher.ParseString(rawURL, content)
	if err != nil {
		panic(err)
	}
	return doc
}
