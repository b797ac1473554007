package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is used for XDG directory names.
	AppName = "zorah"

	// DefaultTimeout bounds each request, headers and body included.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxPages is the number of distinct URLs visited per seed.
	DefaultMaxPages = 250

	// DefaultBatchSize is the number of seeds crawled concurrently.
	DefaultBatchSize = 4

	// DefaultMaxBodySize caps the bytes read from one HTML body.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	// DefaultListenAddr is where `zorah serve` listens.
	DefaultListenAddr = "127.0.0.1:8080"

	// DefaultTorStartupTimeout bounds embedded Tor bootstrapping.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Config holds every option of a zorah invocation. It is built by
// NewConfig, then overridden by flags and environment variables.
type Config struct {
	// Targets are the seed URLs to crawl.
	Targets []string

	// Timeout bounds each request.
	Timeout time.Duration

	// MaxPages is the visit budget per seed.
	MaxPages int

	// BatchSize is the number of seeds crawled at once.
	BatchSize int

	// MaxBodySize caps HTML body reads. Zero selects the default.
	MaxBodySize int64

	// Proxy routes traffic through a SOCKS5 or HTTP proxy.
	Proxy string

	// UseTor starts an embedded Tor daemon and crawls through it.
	UseTor bool

	// TorStartupTimeout bounds embedded Tor bootstrapping.
	TorStartupTimeout time.Duration

	// UserAgent overrides the shared User-Agent header when non-empty.
	UserAgent string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit .zorah file path.
	ConfigFilePath string

	// SiteConfigs holds the loaded .zorah file, if any.
	SiteConfigs *File

	// JSONReport selects JSON output. FullJSON includes run metadata.
	JSONReport bool
	FullJSON   bool

	// MarkdownReport selects Markdown output.
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// SaveToDB archives every finished run in the database under DBDir.
	SaveToDB bool
	DBDir    string

	// ListenAddr is the API server address.
	ListenAddr string

	// LogJSON switches the server log to JSON lines.
	LogJSON bool
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Timeout:           DefaultTimeout,
		MaxPages:          DefaultMaxPages,
		BatchSize:         DefaultBatchSize,
		MaxBodySize:       DefaultMaxBodySize,
		TorStartupTimeout: DefaultTorStartupTimeout,
		ListenAddr:        DefaultListenAddr,
		DBDir:             XDGDataDir(),
	}
}

// XDGDataDir returns zorah's data directory
// (~/.local/share/zorah on Linux).
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns zorah's config directory
// (~/.config/zorah on Linux).
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the options shared by every command and returns the
// first problem found.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxPages <= 0 {
		return ErrInvalidMaxPages
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Proxy != "" && c.UseTor {
		return ErrConflictingProxy
	}
	return nil
}

// ValidateCrawl is Validate plus the requirement of at least one seed.
func (c *Config) ValidateCrawl() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.Validate()
}
