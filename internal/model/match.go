package model

// Match is a distinct value found during a crawl.
type Match struct {
	// Value is the matched substring.
	Value string `json:"value"`

	// Contexts holds the text around every occurrence of Value: for each
	// occurrence, the matching element's own text followed by the texts of
	// up to three enclosing elements, closest first.
	Contexts []string `json:"contexts"`
}

// FirstContext returns the first recorded context, which is the text of
// the element the value was first found in.
func (m Match) FirstContext() string {
	if len(m.Contexts) == 0 {
		return ""
	}
	return m.Contexts[0]
}
