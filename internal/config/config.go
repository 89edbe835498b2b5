package config

import (
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultMaxRequests is the request budget of a crawl. Every fetch
	// counts, including failed ones.
	DefaultMaxRequests = 100

	// DefaultTimeout bounds each HTTP request, redirects included.
	// Crawls through Tor need a larger value.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of seeds crawled concurrently.
	DefaultBatchSize = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "microcrawl"

	// DefaultUserAgent identifies microcrawl in HTTP requests.
	DefaultUserAgent = "microcrawl/1.0 (+https://github.com/nao1215/microcrawl)"

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds all configuration options for a microcrawl run.
// It is populated from CLI flags and passed through the application rather
// than kept in global state.
type Config struct {
	// Seeds are the start URLs. Each seed is crawled independently.
	Seeds []string

	// Pattern is the name of a built-in pattern preset (e.g. "email").
	Pattern string

	// Regex is a raw regular expression. It takes precedence over Pattern.
	Regex string

	// MaxRequests is the request budget per seed.
	MaxRequests int

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// SameHostOnly keeps every crawl on its seed's host.
	SameHostOnly bool

	// ProxyAddress is a SOCKS5 proxy in "host:port" form. Empty means a
	// direct connection.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and crawls through it.
	// Mutually exclusive with ProxyAddress.
	UseTor bool

	// TorStartupTimeout is the maximum time to wait for the embedded Tor
	// daemon. Only used when UseTor is set.
	TorStartupTimeout time.Duration

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON writes log records as JSON instead of text.
	LogJSON bool

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, .microcrawl is searched in the current directory and then
	// in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the settings loaded from the configuration file.
	SiteConfigs *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with
	// JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path. Empty means stdout.
	ReportFile string

	// DBDir is the directory of the results database.
	DBDir string

	// SaveToDB stores every crawl in the results database.
	SaveToDB bool

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum number of body bytes read per page.
	MaxBodySize int64
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		MaxRequests:       DefaultMaxRequests,
		Timeout:           DefaultTimeout,
		BatchSize:         DefaultBatchSize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		UserAgent:         DefaultUserAgent,
		MaxBodySize:       DefaultMaxBodySize,
		SaveToDB:          true,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns the XDG data directory for microcrawl.
// On Linux: ~/.local/share/microcrawl
// On macOS: ~/Library/Application Support/microcrawl
// On Windows: %LOCALAPPDATA%\microcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for microcrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Seeds) == 0 {
		return ErrNoSeed
	}
	if c.MaxRequests <= 0 {
		return ErrInvalidMaxRequests
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.UseTor && c.ProxyAddress != "" {
		return ErrConflictingTransports
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	for _, seed := range c.Seeds {
		s := c.SettingsFor(seed)
		if strings.TrimSpace(s.Pattern) == "" && strings.TrimSpace(s.Regex) == "" {
			return ErrNoPattern
		}
		if s.MaxRequests <= 0 {
			return ErrInvalidMaxRequests
		}
	}
	return nil
}

// SettingsFor returns the effective site settings for seed: the command
// line values, overridden by the file defaults, overridden by the entry
// for the seed's host.
func (c *Config) SettingsFor(seed string) SiteConfig {
	base := SiteConfig{
		Pattern:     c.Pattern,
		Regex:       c.Regex,
		MaxRequests: c.MaxRequests,
	}
	if c.SameHostOnly {
		base.SameHost = boolPtr(true)
	}
	if c.SiteConfigs == nil {
		return base
	}
	return mergeSiteConfig(base, c.SiteConfigs.GetSiteConfig(SiteKey(seed)))
}

// SiteKey returns the key a seed is looked up under in the sites section:
// its lower-cased host, or the trimmed input if it has none.
func SiteKey(seed string) string {
	raw := strings.TrimSpace(seed)
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSpace(seed))
	}
	return strings.ToLower(u.Host)
}

func boolPtr(b bool) *bool {
	return &b
}
