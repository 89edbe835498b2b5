// Package fetcher turns a URL into a navigable HTML document.
//
// Fetcher is the boundary between the crawl core and the network. The core
// treats any error from Fetch the same way (the URL becomes a dead end), so
// implementations report transport failures, non-2xx statuses, non-HTML
// content and parse failures all as errors.
//
// HTTPFetcher is the production implementation. It limits the body size,
// decodes legacy character sets to UTF-8 and parses with goquery, which in
// turn uses golang.org/x/net/html.
package fetcher
