// Package crawler implements a bounded breadth-first crawl that extracts
// pattern matches, with their surrounding text, from every page it visits.
//
// # Components
//
//   - Frontier: ordered, deduplicating set of URLs; queue and visited set in one
//   - Resolve / ExtractLinks: absolute, fragment-free outbound links of a page
//   - Elements: pre-order walk of a document's elements with rendered text and
//     the materialized ancestor chain of each element
//   - pendingSet: per-document matches, where a matching element evicts the
//     values it shares with matching ancestors
//   - Collector: crawl-wide match records keyed by value
//   - Spider: the orchestrator
//
// # Crawl loop
//
// The Spider takes the next unprocessed URL from the frontier, fetches it,
// scans the document, folds its matches into the collector and adds the
// page's links to the frontier. It stops after CrawlConfig.MaxRequests
// fetches or when the frontier is drained. A failed fetch makes the URL a
// dead end and the crawl continues.
//
// Pages are fetched one at a time. Several crawls may run concurrently (see
// package pipeline); each owns its frontier and collector.
//
// # Usage
//
//	spider, err := crawler.NewSpider(fetcher.NewHTTPFetcher(client))
//	result, err := spider.Analyze(ctx, "https://example.com", crawler.CrawlConfig{
//	    MaxRequests: 100,
//	    Pattern:     pattern.MustCompile(`...`),
//	})
//	for m := range result.Matches() {
//	    fmt.Println(m.Value, m.Contexts)
//	}
package crawler
