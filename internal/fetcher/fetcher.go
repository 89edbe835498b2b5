package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"golang.org/x/net/html/charset"
)

// Default fetch settings.
const (
	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "microcrawl/1.0 (+https://github.com/nao1215/microcrawl)"

	// DefaultMaxBodySize caps the bytes read from a response body.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// sniffLen is the number of bytes http.DetectContentType looks at.
	sniffLen = 512
)

// Fetcher retrieves and parses a page.
type Fetcher interface {
	// Fetch returns the parsed document at rawURL, or an error if the page
	// could not be retrieved or is not HTML.
	Fetch(ctx context.Context, rawURL string) (*Document, error)
}

// HTTPFetcher fetches pages over HTTP.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize limits the number of body bytes read per page.
// Larger bodies are truncated, not rejected.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher creates a fetcher using client. A nil client means
// http.DefaultClient.
func NewHTTPFetcher(client *http.Client, opts ...Option) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &HTTPFetcher{
		client:      client,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, rawURL)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType, raw) {
		return nil, fmt.Errorf("%w: %q", ErrNotHTML, contentType)
	}

	decoded, err := decode(raw, contentType)
	if err != nil {
		f.logger.Debug("charset decoding failed, using raw body", "url", rawURL, "error", err)
		decoded = raw
	}

	finalURL := resp.Request.URL
	if finalURL == nil {
		finalURL, err = url.Parse(rawURL)
		if err != nil {
			return nil, err
		}
	}

	doc, err := parseBytes(finalURL, raw, decoded)
	if err != nil {
		return nil, err
	}
	doc.StatusCode = resp.StatusCode
	doc.ContentType = contentType

	return doc, nil
}

// isHTML reports whether a response is an HTML document. Without a
// Content-Type header the body is sniffed.
func isHTML(contentType string, body []byte) bool {
	if contentType == "" {
		if len(body) > sniffLen {
			body = body[:sniffLen]
		}
		contentType = http.DetectContentType(body)
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// decode converts body to UTF-8 using the Content-Type charset, a <meta>
// declaration, or content sniffing, in that order.
func decode(body []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
