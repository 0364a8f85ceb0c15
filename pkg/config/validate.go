package config

import (
	"fmt"
	"strings"
	"time"

	"crawl-core/pkg/utils"
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// AllowedDomains
	if len(c.AllowedDomains) == 0 {
		c.AllowedDomains = append([]string(nil), DefaultAllowedDomains...)
	}
	domains := make([]string, 0, len(c.AllowedDomains))
	for _, d := range c.AllowedDomains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d == "" {
			warnings = append(warnings, "allowed_domains contains an empty entry, ignoring it")
			continue
		}
		domains = append(domains, d)
	}
	if len(domains) == 0 {
		return warnings, fmt.Errorf("%w: allowed_domains has no usable entries", utils.ErrConfigValidation)
	}
	c.AllowedDomains = domains

	// ExcludedExtensions
	if len(c.ExcludedExtensions) == 0 {
		c.ExcludedExtensions = append([]string(nil), DefaultExcludedExtensions...)
	}
	for i, ext := range c.ExcludedExtensions {
		c.ExcludedExtensions[i] = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	}

	// DisallowedPathPatterns must compile
	if _, err := utils.CompileRegexPatterns(c.DisallowedPathPatterns); err != nil {
		return warnings, err
	}

	// TrapThreshold
	if c.TrapThreshold <= 0 {
		if c.TrapThreshold < 0 {
			warnings = append(warnings, "trap_threshold should be > 0, defaulting to 10")
		}
		c.TrapThreshold = 10
	}

	// MinWords
	if c.MinWords < 0 {
		warnings = append(warnings, "min_words cannot be negative, defaulting to 100")
		c.MinWords = 100
	} else if c.MinWords == 0 {
		c.MinWords = 100
	}

	// StopWords
	if len(c.StopWords) == 0 {
		c.StopWords = append([]string(nil), DefaultStopWords...)
	}
	for i, w := range c.StopWords {
		c.StopWords[i] = strings.ToLower(strings.TrimSpace(w))
	}

	// VisitedBackend
	switch c.VisitedBackend {
	case "":
		c.VisitedBackend = VisitedBackendMemory
	case VisitedBackendMemory, VisitedBackendBadger:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown visited_backend '%s', defaulting to '%s'", c.VisitedBackend, VisitedBackendMemory))
		c.VisitedBackend = VisitedBackendMemory
	}

	// TopWords
	if c.TopWords <= 0 {
		c.TopWords = 50
	}

	// NumWorkers
	if c.NumWorkers <= 0 {
		if c.NumWorkers < 0 {
			warnings = append(warnings, "num_workers should be > 0, defaulting to 4")
		}
		c.NumWorkers = 4
	}

	// UserAgent
	if c.UserAgent == "" {
		c.UserAgent = "crawl-core/1.0"
	}

	// MaxBodyBytes
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 10 * 1024 * 1024
	}

	// LogLevel
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	// HTTPClientSettings defaults
	c.validateHTTPClientSettings()

	return warnings, nil
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 30 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}
