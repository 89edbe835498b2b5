package database

import "errors"

// ErrRunNotFound is returned when no stored run matches a lookup.
var ErrRunNotFound = errors.New("crawl run not found")
