// Package database provides SQLite-based storage for crawl results.
//
// This package implements the ResultDB, which stores:
//   - Crawl runs with their configuration and counters
//   - Every page visit of a run
//   - Every distinct value a run found, for lookups across runs
//   - The complete report as JSON, so a stored run can be rendered again
//
// SQLite is accessed through modernc.org/sqlite, a CGO-free driver, and the
// database is a single file in the XDG data directory.
package database
