// Package pipeline runs the steps that turn a seed URL into a stored crawl
// report.
//
// A Pipeline executes its steps in order against one model.CrawlReport:
// CrawlStep fills it from a bounded crawl and PersistStep writes it to the
// results database. BatchProcessor runs one pipeline per seed with bounded
// concurrency using errgroup; every crawl keeps its own state.
package pipeline
