package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	t.Run("resolves and deduplicates in document order", func(t *testing.T) {
		t.Parallel()

		doc := mustParse("http://x/a/", `<html><body>
			<a href="page.html#one">one</a>
			<a href="page.html#two">two</a>
			<a href="/root">root</a>
			<a href="">blank</a>
			<a href="   ">spaces</a>
			<a>no href</a>
			<a href="mailto:me@example.com">mail</a>
			<a href="https://other.example/">other</a>
			<a href="/root">again</a>
		</body></html>`)

		links := ExtractLinks(doc, doc.URL)

		assert.Equal(t, []string{
			"http://x/a/page.html",
			"http://x/root",
			"https://other.example/",
		}, links)
	})

	t.Run("no anchors", func(t *testing.T) {
		t.Parallel()

		doc := mustParse("http://x/", `<p>nothing here</p>`)
		links := ExtractLinks(doc, doc.URL)
		assert.NotNil(t, links)
		assert.Empty(t, links)
	})

	t.Run("honours base element", func(t *testing.T) {
		t.Parallel()

		doc := mustParse("http://x/a/b", `<html><head><base href="http://y/docs/"></head>
			<body><a href="guide.html">guide</a></body></html>`)
		links := ExtractLinks(doc, doc.BaseURL())
		assert.Equal(t, []string{"http://y/docs/guide.html"}, links)
	})
}
