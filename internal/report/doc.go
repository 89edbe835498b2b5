// Package report renders crawl reports.
//
// Three formats are available:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: structured JSON for other tools
//   - MarkdownWriter: Markdown for sharing and documentation
//
// Writers implement the Writer interface, so they can be used
// interchangeably and composed with MultiWriter.
package report
