package crawler

import (
	"iter"

	"github.com/nao1215/microcrawl/internal/pattern"
	"golang.org/x/net/html"
)

// Element is one element of a document as seen by the walk.
type Element struct {
	// Node is the underlying element node. It belongs to the document.
	Node *html.Node

	// Text is the rendered text of the element and its descendants.
	Text string

	// Ancestors is the chain of enclosing elements from the immediate
	// parent up to the root element. The root element has none.
	Ancestors []*Element
}

// Tag returns the element's tag name.
func (e *Element) Tag() string {
	return e.Node.Data
}

// Depth returns the number of ancestors.
func (e *Element) Depth() int {
	return len(e.Ancestors)
}

// IsAncestorOf reports whether e encloses other.
func (e *Element) IsAncestorOf(other *Element) bool {
	for _, a := range other.Ancestors {
		if a == e {
			return true
		}
	}
	return false
}

// OutcomeKind tells whether an element matched.
type OutcomeKind int

const (
	// NoMatch means the element's text did not match.
	NoMatch OutcomeKind = iota

	// Matched means the element's text produced at least one value.
	Matched
)

// Outcome is the result of applying a pattern to one element.
type Outcome struct {
	Kind   OutcomeKind
	Values []string
}

// Classify applies p to the element's rendered text.
func Classify(p *pattern.Pattern, e *Element) Outcome {
	values := p.FindAll(e.Text)
	if len(values) == 0 {
		return Outcome{Kind: NoMatch}
	}
	return Outcome{Kind: Matched, Values: values}
}

// Elements walks root and its descendant elements in pre-order: a parent is
// yielded before its children, siblings in document order. Script, style,
// noscript and template subtrees are skipped.
func Elements(root *html.Node) iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		if root == nil || root.Type != html.ElementNode {
			return
		}
		walk(root, nil, yield)
	}
}

// walk yields n and then its subtree. stack holds the ancestors of n,
// outermost first. It returns false when the consumer stopped iterating.
func walk(n *html.Node, stack []*Element, yield func(*Element) bool) bool {
	el := &Element{
		Node:      n,
		Text:      renderText(n),
		Ancestors: nearestFirst(stack),
	}
	if !yield(el) {
		return false
	}

	stack = append(stack, el)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || hiddenElements[c.Data] {
			continue
		}
		if !walk(c, stack, yield) {
			return false
		}
	}
	return true
}

func nearestFirst(stack []*Element) []*Element {
	if len(stack) == 0 {
		return nil
	}
	out := make([]*Element, len(stack))
	for i, e := range stack {
		out[len(stack)-1-i] = e
	}
	return out
}
