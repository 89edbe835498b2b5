package pattern

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Preset names.
const (
	PresetEmail    = "email"
	PresetOnion    = "onion"
	PresetBitcoin  = "bitcoin"
	PresetEthereum = "ethereum"
)

// Preset is a named, ready-made pattern.
type Preset struct {
	// Name is the identifier used on the command line and in config files.
	Name string

	// Description is a one-line summary shown by `microcrawl presets`.
	Description string

	// Source is the regular expression source.
	Source string

	accept func(string) bool
}

// emailSource matches RFC 5322 style addresses, including quoted local parts
// and IP literal domains. Matching is case-insensitive.
const emailSource = `(?i)(?:[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+(?:\.[a-z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*|"(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21\x23-\x5b\x5d-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])*")@(?:(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?|\[(?:(?:(2(5[0-5]|[0-4][0-9])|1[0-9][0-9]|[1-9]?[0-9]))\.){3}(?:(2(5[0-5]|[0-4][0-9])|1[0-9][0-9]|[1-9]?[0-9])|[a-z0-9-]*[a-z0-9]:(?:[\x01-\x08\x0b\x0c\x0e-\x1f\x21-\x5a\x53-\x7f]|\\[\x01-\x09\x0b\x0c\x0e-\x7f])+)\])`

var presets = map[string]Preset{
	PresetEmail: {
		Name:        PresetEmail,
		Description: "E-mail addresses (RFC 5322 style, quoted local parts, IP literals)",
		Source:      emailSource,
	},
	PresetOnion: {
		Name:        PresetOnion,
		Description: "Tor onion service addresses (v2, and v3 with a valid checksum)",
		Source:      `\b[a-z2-7]{16}(?:[a-z2-7]{40})?\.onion\b`,
		accept:      validOnion,
	},
	PresetBitcoin: {
		Name:        PresetBitcoin,
		Description: "Bitcoin addresses (legacy and bech32)",
		Source:      `\b(?:[13][a-km-zA-HJ-NP-Z1-9]{25,34}|bc1[a-z0-9]{39,59})\b`,
	},
	PresetEthereum: {
		Name:        PresetEthereum,
		Description: "Ethereum addresses",
		Source:      `\b0x[a-fA-F0-9]{40}\b`,
	},
}

// compiled caches preset expressions; they are compiled once at init.
var compiled = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(presets))
	for name, p := range presets {
		m[name] = regexp.MustCompile(p.Source)
	}
	return m
}()

// FromPreset returns the Pattern registered under name.
// Names are matched case-insensitively.
func FromPreset(name string) (*Pattern, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	re, ok := compiled[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownPreset, name, strings.Join(PresetNames(), ", "))
	}
	return &Pattern{name: key, re: re, accept: presets[key].accept}, nil
}

// Presets returns all registered presets sorted by name.
func Presets() []Preset {
	result := make([]Preset, 0, len(presets))
	for _, p := range presets {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// PresetNames returns the sorted preset names.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve builds a Pattern from either a preset name or raw source.
// A non-empty source wins over the preset. It returns ErrEmptyPattern when
// both are empty.
func Resolve(preset, source string) (*Pattern, error) {
	if source != "" {
		return Compile(source)
	}
	if preset != "" {
		return FromPreset(preset)
	}
	return nil, ErrEmptyPattern
}
