// Package pattern provides the compiled patterns a crawl applies to the
// rendered text of every element.
//
// A Pattern is immutable once compiled. It is built either from a named
// preset (see Presets) or from raw regular expression source:
//
//	p, err := pattern.FromPreset("email")
//	p, err := pattern.Compile(`\b[A-Z]{3}-\d{4}\b`)
//
// FindAll returns the distinct substrings of a text that match, in order of
// first occurrence.
package pattern
