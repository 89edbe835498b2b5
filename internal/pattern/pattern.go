package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled regular expression applied to element text.
// The zero value is not usable; construct one with Compile, MustCompile
// or FromPreset.
type Pattern struct {
	// name is the preset name, or empty for raw patterns.
	name string

	// re is the compiled expression. It is never modified after construction.
	re *regexp.Regexp

	// accept, when set, drops matches that fit the expression but are not
	// valid values (e.g. onion addresses with a bad checksum).
	accept func(string) bool
}

// Compile compiles raw regular expression source into a Pattern.
// The source uses RE2 syntax as accepted by the regexp package.
func Compile(source string) (*Pattern, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptyPattern
	}
	re, err := regexp.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", source, err)
	}
	return &Pattern{re: re}, nil
}

// MustCompile is like Compile but panics if the source is invalid.
func MustCompile(source string) *Pattern {
	p, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the preset name, or "custom" for raw patterns.
func (p *Pattern) Name() string {
	if p.name == "" {
		return "custom"
	}
	return p.name
}

// Source returns the regular expression source.
func (p *Pattern) Source() string {
	return p.re.String()
}

// String implements fmt.Stringer.
func (p *Pattern) String() string {
	if p.name != "" {
		return p.name
	}
	return p.re.String()
}

// FindAll returns the distinct substrings of text that match the pattern,
// in order of first occurrence. It returns nil when text is empty or nothing
// matches.
func (p *Pattern) FindAll(text string) []string {
	if text == "" {
		return nil
	}

	matches := p.re.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	values := make([]string, 0, len(matches))
	for _, m := range matches {
		if m == "" {
			continue
		}
		if p.accept != nil && !p.accept(m) {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		values = append(values, m)
	}

	if len(values) == 0 {
		return nil
	}
	return values
}
