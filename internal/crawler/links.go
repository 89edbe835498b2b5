package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/microcrawl/internal/fetcher"
)

// ExtractLinks returns the distinct absolute URLs of all anchors in doc,
// resolved against base, in document order. Anchors with a blank href or an
// href that does not resolve are skipped.
func ExtractLinks(doc *fetcher.Document, base *url.URL) []string {
	seen := make(map[string]struct{})
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.TrimSpace(href) == "" {
			return
		}
		u, ok := Resolve(base, href)
		if !ok {
			return
		}
		link := u.String()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links
}
