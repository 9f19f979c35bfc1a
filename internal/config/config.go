package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTorProxyAddress is the SOCKS port of a standalone Tor daemon.
	DefaultTorProxyAddress = "127.0.0.1:9050"

	// DefaultTorBrowserProxyAddress is the SOCKS port Tor Browser opens.
	// It is tried when the standalone daemon is not reachable.
	DefaultTorBrowserProxyAddress = "127.0.0.1:9150"

	// DefaultTimeout bounds one HTTP request. Tor circuits are slow, so
	// this is generous.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxAttempts is the number of fetch attempts per URL.
	DefaultMaxAttempts = 3

	// DefaultRetryDelay is the base of the linear backoff: the wait
	// before attempt n+1 is n times this value.
	DefaultRetryDelay = 5 * time.Second

	// DefaultRequestDelay is the minimum gap between two requests.
	DefaultRequestDelay = 2 * time.Second

	// DefaultUserAgent is sent with every request. A common browser string
	// keeps forum anti-bot pages away.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; rv:91.0) Gecko/20100101 Firefox/91.0"

	// DefaultMaxBodySize is the largest response body accepted.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MiB

	// DefaultOutputDir is where artifacts are written.
	DefaultOutputDir = "output"

	// DefaultBatchSize is the number of threads scraped concurrently.
	// Kept low because every request shares one Tor circuit.
	DefaultBatchSize = 2

	// DefaultTorStartupTimeout bounds the embedded Tor bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "darkthread"
)

// Config holds every option of a scrape. It is built from CLI flags and
// passed down explicitly.
type Config struct {
	// TorProxyAddress is the SOCKS5 proxy in "host:port" form.
	TorProxyAddress string

	// FallbackProxyAddresses are tried in order when TorProxyAddress does
	// not answer. Only used when the proxy address was not set explicitly.
	FallbackProxyAddresses []string

	// Timeout bounds a single HTTP request.
	Timeout time.Duration

	// MaxAttempts is the number of fetch attempts per URL, at least 1.
	MaxAttempts int

	// RetryDelay is the base delay of the linear retry schedule.
	RetryDelay time.Duration

	// RequestDelay is the politeness gap between requests.
	RequestDelay time.Duration

	// UserAgent is the User-Agent header.
	UserAgent string

	// MaxBodySize is the response size limit in bytes. Zero means the default.
	MaxBodySize int64

	// OutputDir receives data/ and reports/.
	OutputDir string

	// Verbose enables debug logging.
	Verbose bool

	// BatchSize is the number of URLs processed concurrently.
	BatchSize int

	// ConfigFilePath overrides the site file search.
	ConfigFilePath string

	// SiteConfigs holds the loaded site file, if any.
	SiteConfigs *File

	// JSONReport prints the full JSON report to stdout.
	JSONReport bool

	// MarkdownReport prints the narrative report to stdout.
	MarkdownReport bool

	// Targets are the thread URLs to scrape.
	Targets []string

	// UseEmbeddedTor starts a private Tor daemon instead of using
	// TorProxyAddress.
	UseEmbeddedTor bool

	// TorStartupTimeout bounds the embedded daemon bootstrap.
	TorStartupTimeout time.Duration

	// DBDir holds the history database.
	DBDir string

	// SaveToDB records each run in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		TorProxyAddress:        DefaultTorProxyAddress,
		FallbackProxyAddresses: []string{DefaultTorBrowserProxyAddress},
		Timeout:                DefaultTimeout,
		MaxAttempts:            DefaultMaxAttempts,
		RetryDelay:             DefaultRetryDelay,
		RequestDelay:           DefaultRequestDelay,
		UserAgent:              DefaultUserAgent,
		MaxBodySize:            DefaultMaxBodySize,
		OutputDir:              DefaultOutputDir,
		BatchSize:              DefaultBatchSize,
		TorStartupTimeout:      DefaultTorStartupTimeout,
		DBDir:                  XDGDataDir(),
		SaveToDB:               true,
	}
}

// ProxyCandidates returns the proxy addresses to probe, primary first,
// without duplicates.
func (c *Config) ProxyCandidates() []string {
	seen := make(map[string]bool)
	var out []string
	for _, addr := range append([]string{c.TorProxyAddress}, c.FallbackProxyAddresses...) {
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}

// XDGDataDir returns the XDG data directory for darkthread.
// On Linux: ~/.local/share/darkthread
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for darkthread.
// On Linux: ~/.config/darkthread
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate returns the first problem found in the configuration.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if c.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.RequestDelay < 0 {
		return ErrInvalidRequestDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.OutputDir == "" {
		return ErrEmptyOutputDir
	}
	if c.SaveToDB && c.DBDir == "" {
		return ErrEmptyDBDir
	}
	return nil
}
