// Package main provides the entry point for the microcrawl CLI.
//
// microcrawl crawls web pages breadth-first from one or more seed URLs,
// matches a pattern against the text of every element and reports each
// distinct value with the text around it.
//
// Usage:
//
//	microcrawl crawl -p email https://example.com
//	microcrawl history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
