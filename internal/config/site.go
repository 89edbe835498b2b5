package config

import "maps"

// SiteConfig holds crawl settings for a single site.
type SiteConfig struct {
	// Pattern is a preset name (e.g. "email", "onion").
	Pattern string `yaml:"pattern,omitempty"`

	// Regex is a raw regular expression. It takes precedence over Pattern.
	Regex string `yaml:"regex,omitempty"`

	// MaxRequests overrides the request budget. Zero keeps the inherited value.
	MaxRequests int `yaml:"maxRequests,omitempty"`

	// Cookie is an HTTP cookie sent with every request to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent with every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are URL path globs to skip during crawling.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path globs to follow. If specified, only
	// matching URLs enter the frontier.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// SameHost restricts the crawl to the seed's host. Nil keeps the
	// inherited value.
	SameHost *bool `yaml:"sameHost,omitempty"`
}

// SameHostOnly reports whether the same-host restriction is on.
func (sc SiteConfig) SameHostOnly() bool {
	return sc.SameHost != nil && *sc.SameHost
}

// File represents the structure of the .microcrawl configuration file.
type File struct {
	// Sites maps hosts (e.g. "example.com") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a host, merged over the
// defaults.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := mergeSiteConfig(SiteConfig{}, cf.Defaults)
	if siteConfig, ok := cf.Sites[host]; ok {
		result = mergeSiteConfig(result, siteConfig)
	}
	return result
}

// mergeSiteConfig returns base with every set field of override applied.
// Header maps are merged; the inputs are never modified.
func mergeSiteConfig(base, override SiteConfig) SiteConfig {
	result := base
	result.Headers = maps.Clone(base.Headers)

	if override.Regex != "" {
		result.Regex = override.Regex
		result.Pattern = ""
	} else if override.Pattern != "" {
		result.Pattern = override.Pattern
		result.Regex = ""
	}
	if override.MaxRequests != 0 {
		result.MaxRequests = override.MaxRequests
	}
	if override.Cookie != "" {
		result.Cookie = override.Cookie
	}
	if len(override.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(override.Headers))
		}
		maps.Copy(result.Headers, override.Headers)
	}
	if len(override.IgnorePatterns) > 0 {
		result.IgnorePatterns = override.IgnorePatterns
	}
	if len(override.FollowPatterns) > 0 {
		result.FollowPatterns = override.FollowPatterns
	}
	if override.SameHost != nil {
		result.SameHost = boolPtr(*override.SameHost)
	}
	return result
}
