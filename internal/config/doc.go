// Package config provides configuration structures and utilities for
// microcrawl. It defines the options for crawling (request budget, pattern,
// transport), report generation preferences and the optional .microcrawl
// file with per-site settings.
package config
