package config

import "time"

// Visited-set backends
const (
	VisitedBackendMemory = "memory" // map guarded by a mutex
	VisitedBackendBadger = "badger" // in-memory badger instance
)

// AppConfig holds the configuration for one crawl run
type AppConfig struct {
	AllowedDomains         []string         `yaml:"allowed_domains"`
	ExcludedExtensions     []string         `yaml:"excluded_extensions,omitempty"`
	DisallowedPathPatterns []string         `yaml:"disallowed_path_patterns,omitempty"` // Regex patterns for paths to exclude
	TrapThreshold          int              `yaml:"trap_threshold,omitempty"`           // Visits per path pattern before it is a trap
	MinWords               int              `yaml:"min_words,omitempty"`                // Minimum visible words for a page to count; 0 = 100
	StopWords              []string         `yaml:"stop_words,omitempty"`
	VisitedBackend         string           `yaml:"visited_backend,omitempty"`
	TopWords               int              `yaml:"top_words,omitempty"` // Size of the word-frequency report
	NumWorkers             int              `yaml:"num_workers,omitempty"`
	UserAgent              string           `yaml:"user_agent,omitempty"`
	MaxBodyBytes           int64            `yaml:"max_body_bytes,omitempty"`
	LogLevel               string           `yaml:"log_level,omitempty"`
	HTTPClientSettings     HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the HTTP client used by the fetch command
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// DefaultAllowedDomains are the registrable hosts crawled when none are configured
var DefaultAllowedDomains = []string{
	"ics.uci.edu",
	"cs.uci.edu",
	"informatics.uci.edu",
	"stat.uci.edu",
}

// DefaultExcludedExtensions lists binary, media, archive and document
// extensions that are never worth fetching as pages.
var DefaultExcludedExtensions = []string{
	"css", "js", "bmp", "gif", "jpg", "jpeg", "ico", "png", "tif", "tiff",
	"mid", "mp2", "mp3", "mp4", "wav", "avi", "mov", "mpeg", "ram", "m4v",
	"mkv", "ogg", "ogv", "pdf", "ps", "eps", "tex", "ppt", "pptx", "doc",
	"docx", "xls", "xlsx", "names", "data", "dat", "exe", "bz2", "tar", "msi",
	"bin", "7z", "psd", "dmg", "iso", "epub", "dll", "cnf", "tgz", "sha1",
	"thmx", "mso", "arff", "rtf", "jar", "csv", "rm", "smil", "wmv", "swf",
	"wma", "zip", "rar", "gz", "svg", "webp", "webm", "odt", "ods", "odp",
	"apk", "war", "img", "sql", "bam", "mat", "pkl", "npy", "h5",
}

// Default returns an AppConfig with every default applied
func Default() *AppConfig {
	cfg := &AppConfig{}
	_, _ = cfg.Validate()
	return cfg
}

// StopWordSet returns the configured stop words as a lookup set
func (c *AppConfig) StopWordSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.StopWords))
	for _, w := range c.StopWords {
		set[w] = struct{}{}
	}
	return set
}
