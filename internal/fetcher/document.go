package fetcher

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
	whatwgUrl "github.com/nlnwa/whatwg-url/url"
	"golang.org/x/net/html"
)

// baseParser resolves <base href> with the WHATWG algorithm used for links.
var baseParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// Document is a parsed HTML page.
type Document struct {
	// URL is the address the document was served from, after redirects.
	URL *url.URL

	// StatusCode is the HTTP status of the response. Zero for documents
	// parsed from memory.
	StatusCode int

	// ContentType is the Content-Type header of the response.
	ContentType string

	// Hash is the xxhash of the raw body, for change detection.
	Hash uint64

	// Size is the number of body bytes read.
	Size int

	dom *goquery.Document
}

// Parse builds a Document from HTML read from r. The reader must yield UTF-8.
func Parse(u *url.URL, r io.Reader) (*Document, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return parseBytes(u, body, body)
}

// ParseString is a convenience wrapper around Parse.
func ParseString(rawURL, content string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid document URL: %w", err)
	}
	return Parse(u, strings.NewReader(content))
}

// parseBytes parses decoded HTML; raw is hashed as received on the wire.
func parseBytes(u *url.URL, raw, decoded []byte) (*Document, error) {
	dom, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	dom.Url = u

	return &Document{
		URL:  u,
		Hash: xxhash.Sum64(raw),
		Size: len(raw),
		dom:  dom,
	}, nil
}

// Root returns the document's root element (normally <html>), or nil for a
// document without elements.
func (d *Document) Root() *html.Node {
	if d.dom == nil || len(d.dom.Nodes) == 0 {
		return nil
	}
	for n := d.dom.Nodes[0].FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			return n
		}
	}
	return nil
}

// Find returns the elements matching a CSS selector.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.dom.Find(selector)
}

// Title returns the trimmed text of the first <title> element.
func (d *Document) Title() string {
	return strings.TrimSpace(d.dom.Find("title").First().Text())
}

// BaseURL returns the URL relative links resolve against: the first
// <base href> when present and valid, otherwise the document URL.
func (d *Document) BaseURL() *url.URL {
	href, ok := d.dom.Find("base[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" || d.URL == nil {
		return d.URL
	}
	ref, err := baseParser.ParseRef(d.URL.String(), strings.TrimSpace(href))
	if err != nil {
		return d.URL
	}
	u, err := url.Parse(ref.Href(true))
	if err != nil {
		return d.URL
	}
	return u
}
