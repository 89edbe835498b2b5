package crawler

// FrontierEntry is a URL together with its link distance from the seed.
type FrontierEntry struct {
	URL   string
	Depth int
}

// Frontier is an ordered set of URLs that doubles as the crawl queue and
// the visited set. A URL is added at most once and handed out at most once,
// in insertion order.
type Frontier struct {
	entries []FrontierEntry
	index   map[string]struct{}
	next    int

	// visited holds every URL handed out by Next or passed to MarkVisited.
	visited map[string]struct{}

	// preempted counts queued entries that MarkVisited settled before Next
	// reached them.
	preempted int
}

// NewFrontier returns a frontier holding the given seeds at depth 0.
func NewFrontier(seeds ...string) *Frontier {
	f := &Frontier{
		index:   make(map[string]struct{}),
		visited: make(map[string]struct{}),
	}
	for _, s := range seeds {
		f.Add(s, 0)
	}
	return f
}

// Add appends url unless it is already known. It reports whether the URL
// was new.
func (f *Frontier) Add(url string, depth int) bool {
	if _, ok := f.index[url]; ok {
		return false
	}
	f.index[url] = struct{}{}
	f.entries = append(f.entries, FrontierEntry{URL: url, Depth: depth})
	return true
}

// AddAll adds every URL at the given depth and returns how many were new.
func (f *Frontier) AddAll(urls []string, depth int) int {
	added := 0
	for _, u := range urls {
		if f.Add(u, depth) {
			added++
		}
	}
	return added
}

// MarkVisited records url as already fetched without queueing it, e.g. the
// landing page of a redirect. A queued copy is skipped by Next. It reports
// whether url had not been visited before.
func (f *Frontier) MarkVisited(url string) bool {
	if _, ok := f.visited[url]; ok {
		return false
	}
	if _, queued := f.index[url]; queued {
		f.preempted++
	}
	f.index[url] = struct{}{}
	f.visited[url] = struct{}{}
	return true
}

// Next returns the oldest unprocessed entry and marks it processed.
func (f *Frontier) Next() (FrontierEntry, bool) {
	for f.next < len(f.entries) {
		e := f.entries[f.next]
		f.next++
		if _, ok := f.visited[e.URL]; ok {
			f.preempted--
			continue
		}
		f.visited[e.URL] = struct{}{}
		return e, true
	}
	return FrontierEntry{}, false
}

// Contains reports whether url was ever added.
func (f *Frontier) Contains(url string) bool {
	_, ok := f.index[url]
	return ok
}

// Len returns the number of distinct URLs ever added or marked visited.
func (f *Frontier) Len() int {
	return len(f.index)
}

// Pending returns the number of URLs that Next will still hand out.
func (f *Frontier) Pending() int {
	return len(f.entries) - f.next - f.preempted
}
