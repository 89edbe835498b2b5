package crawler

import "errors"

var (
	// ErrNoPattern is returned by Analyze when the configuration carries no
	// pattern. A crawl without a pattern would spend its whole request
	// budget and find nothing.
	ErrNoPattern = errors.New("no pattern configured")

	// ErrInvalidMaxRequests is returned when MaxRequests is not positive.
	ErrInvalidMaxRequests = errors.New("max requests must be positive")

	// ErrInvalidSeed is returned when the seed URL cannot be parsed as an
	// http or https URL.
	ErrInvalidSeed = errors.New("invalid seed URL")
)
