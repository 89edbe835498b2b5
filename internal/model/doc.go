// Package model defines the data structures shared by the crawler, the
// report writers and the results database.
//
// This package contains the following main types:
//   - Match: a matched value and the text surrounding each occurrence
//   - PageVisit: one fetch issued during a crawl
//   - CrawlStats: counters describing a finished crawl
//   - CrawlReport: everything known about one crawl run
//   - Summary: a condensed view of a report for human-readable output
//
// The models are serializable to JSON for report output and database
// storage.
package model
