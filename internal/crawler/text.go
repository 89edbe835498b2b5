package crawler

import (
	"strings"

	"golang.org/x/net/html"
)

// hiddenElements never contribute rendered text and are not walked.
var hiddenElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// inlineElements are rendered without a word break around them. Every
// other element separates its text from its neighbours, so that
// <p>a@x.org</p><p>b@y.org</p> renders as "a@x.org b@y.org".
var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true,
	"cite": true, "code": true, "data": true, "dfn": true, "em": true,
	"font": true, "i": true, "kbd": true, "mark": true, "q": true,
	"s": true, "samp": true, "small": true, "span": true, "strong": true,
	"sub": true, "sup": true, "time": true, "tt": true, "u": true,
	"var": true, "wbr": true,
}

// renderText returns the visible text of n and its descendants in document
// order, with whitespace runs collapsed to a single space.
func renderText(n *html.Node) string {
	var b strings.Builder
	appendText(&b, n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func appendText(b *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
		case html.ElementNode:
			if hiddenElements[c.Data] {
				continue
			}
			inline := inlineElements[c.Data]
			if !inline {
				b.WriteByte(' ')
			}
			appendText(b, c)
			if !inline {
				b.WriteByte(' ')
			}
		}
	}
}
