package model

import (
	"fmt"
	"time"
)

// PageVisit records one fetch issued during a crawl, successful or not.
type PageVisit struct {
	// URL is the address taken from the frontier.
	URL string `json:"url"`

	// Depth is the link distance from the seed. The seed has depth 0.
	Depth int `json:"depth"`

	// StatusCode is the HTTP status of the response, 0 when no response
	// was received.
	StatusCode int `json:"status_code,omitempty"`

	// Title is the page title, if any.
	Title string `json:"title,omitempty"`

	// Hash is the xxhash of the body, as 16 hex digits.
	Hash string `json:"hash,omitempty"`

	// Size is the number of body bytes read.
	Size int `json:"size,omitempty"`

	// Links is the number of distinct links found on the page.
	Links int `json:"links"`

	// NewLinks is the number of those links that were new to the frontier.
	NewLinks int `json:"new_links"`

	// Matches is the number of values found on the page.
	Matches int `json:"matches"`

	// Error is the fetch or parse error message for failed visits.
	Error string `json:"error,omitempty"`

	// FetchedAt is when the request was issued.
	FetchedAt time.Time `json:"fetched_at"`
}

// OK reports whether the page was fetched and scanned.
func (v PageVisit) OK() bool {
	return v.Error == ""
}

// FormatHash renders a 64-bit content hash the way PageVisit stores it.
func FormatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}
