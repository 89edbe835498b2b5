package crawler

import (
	"fmt"
	"net/url"
	"strings"

	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

// urlParser follows the WHATWG URL standard, the same algorithm browsers use
// to resolve hrefs.
var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// Resolve resolves href against base and strips any fragment.
// It handles absolute, scheme-relative and path-relative references.
// Blank or unparsable hrefs, and references to anything other than an
// http or https URL with a host, yield false.
func Resolve(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if base == nil || href == "" {
		return nil, false
	}

	ref, err := urlParser.ParseRef(base.String(), href)
	if err != nil {
		return nil, false
	}

	u, err := url.Parse(ref.Href(true))
	if err != nil {
		return nil, false
	}
	if !isCrawlable(u) {
		return nil, false
	}
	return u, true
}

// NormalizeSeed turns user input into the canonical form the frontier
// stores. A missing scheme defaults to http.
func NormalizeSeed(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidSeed
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	parsed, err := urlParser.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	u, err := url.Parse(parsed.Href(true))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSeed, err)
	}
	if !isCrawlable(u) {
		return "", fmt.Errorf("%w: %q is not an http(s) URL", ErrInvalidSeed, raw)
	}
	return u.String(), nil
}

func isCrawlable(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
