package crawler

import (
	"iter"
	"slices"

	"github.com/nao1215/microcrawl/internal/model"
	"golang.org/x/net/html"
)

// MaxContextAncestors is the number of enclosing elements whose text is
// recorded next to the matching element's own text.
const MaxContextAncestors = 3

type pendingEntry struct {
	element *Element
	values  []string
}

// pendingSet holds the matches of a single document. A matching element
// takes over the values it shares with pending ancestors, so the most
// specific enclosing element wins for each value.
type pendingSet struct {
	order   []*Element
	entries map[*html.Node]*pendingEntry
}

func newPendingSet() *pendingSet {
	return &pendingSet{entries: make(map[*html.Node]*pendingEntry)}
}

// accumulate records the outcome for el. Outcomes without values are
// ignored.
func (p *pendingSet) accumulate(el *Element, out Outcome) {
	if out.Kind != Matched || len(out.Values) == 0 {
		return
	}

	for _, ancestor := range el.Ancestors {
		entry, ok := p.entries[ancestor.Node]
		if !ok {
			continue
		}
		entry.values = slices.DeleteFunc(entry.values, func(v string) bool {
			return slices.Contains(out.Values, v)
		})
		if len(entry.values) == 0 {
			delete(p.entries, ancestor.Node)
		}
	}

	p.entries[el.Node] = &pendingEntry{element: el, values: slices.Clone(out.Values)}
	p.order = append(p.order, el)
}

// Len returns the number of elements still pending.
func (p *pendingSet) Len() int {
	return len(p.entries)
}

// all yields the surviving entries in document order.
func (p *pendingSet) all() iter.Seq[*pendingEntry] {
	return func(yield func(*pendingEntry) bool) {
		for _, el := range p.order {
			entry, ok := p.entries[el.Node]
			if !ok {
				continue
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// Collector accumulates match records across a whole crawl. Records are
// unique by value and kept in order of first discovery.
type Collector struct {
	index   map[string]int
	records []model.Match
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{index: make(map[string]int)}
}

// fold merges a document's pending matches into the crawl-wide records.
// It returns the number of distinct values on the page.
func (c *Collector) fold(p *pendingSet) int {
	page := make(map[string]struct{})
	for entry := range p.all() {
		contexts := contextOf(entry.element)
		for _, value := range entry.values {
			page[value] = struct{}{}
			i, ok := c.index[value]
			if !ok {
				i = len(c.records)
				c.index[value] = i
				c.records = append(c.records, model.Match{Value: value})
			}
			c.records[i].Contexts = append(c.records[i].Contexts, contexts...)
		}
	}
	return len(page)
}

// contextOf returns the element's own text followed by the texts of its
// nearest ancestors, closest first.
func contextOf(el *Element) []string {
	n := min(len(el.Ancestors), MaxContextAncestors)
	contexts := make([]string, 0, n+1)
	contexts = append(contexts, el.Text)
	for _, a := range el.Ancestors[:n] {
		contexts = append(contexts, a.Text)
	}
	return contexts
}

// Len returns the number of distinct values collected.
func (c *Collector) Len() int {
	return len(c.records)
}

// Matches yields copies of the records in order of first discovery.
func (c *Collector) Matches() iter.Seq[model.Match] {
	return func(yield func(model.Match) bool) {
		for _, m := range c.records {
			if !yield(model.Match{Value: m.Value, Contexts: slices.Clone(m.Contexts)}) {
				return
			}
		}
	}
}
