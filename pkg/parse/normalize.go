// Package parse turns raw hrefs into the normalized URL strings used as identity keys
// by every crawl-wide table.
package parse

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"crawl-core/pkg/utils"
)

// NormalizeURL standardizes an absolute URL for comparison and storage.
// It lowercases the scheme and host, removes default ports (80 for http, 443 for https), removes trailing slashes from paths (unless root "/"), ensures empty path becomes "/", and removes the fragment
// The query string is kept: pages that differ by query are distinct pages
// Does not modify the input *url.URL
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	// Work on a copy
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	// Remove default ports
	host, port, err := net.SplitHostPort(normalized.Host)
	if err == nil {
		if (normalized.Scheme == "http" && port == "80") ||
			(normalized.Scheme == "https" && port == "443") {
			if strings.Contains(host, ":") {
				host = "[" + host + "]" // IPv6 literal
			}
			normalized.Host = host
		}
	}

	// Opaque URLs (mailto:, javascript:) have no path to normalize
	if normalized.Opaque == "" {
		if normalized.Path == "" {
			normalized.Path = "/"
			normalized.RawPath = ""
		} else if len(normalized.Path) > 1 && strings.HasSuffix(normalized.Path, "/") {
			normalized.Path = strings.TrimSuffix(normalized.Path, "/")
			normalized.RawPath = strings.TrimSuffix(normalized.RawPath, "/")
		}
	}

	normalized.Fragment = ""
	normalized.RawFragment = ""
	normalized.ForceQuery = false // "page?" and "page" are the same resource

	return normalized.String()
}

// Resolve resolves href against base (which may be nil for absolute hrefs) and
// returns the absolute URL with dot segments removed.
// Fails with ErrMalformedURL when href does not parse or the result lacks a scheme,
// or lacks a host for hierarchical schemes.
func Resolve(base *url.URL, href string) (*url.URL, error) {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", utils.ErrMalformedURL, href, err)
	}
	if base == nil {
		base = &url.URL{}
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme == "" {
		return nil, fmt.Errorf("%w: %q has no scheme after resolution", utils.ErrMalformedURL, href)
	}
	if abs.Opaque == "" && abs.Host == "" && (abs.Scheme == "http" || abs.Scheme == "https") {
		return nil, fmt.Errorf("%w: %q has no host", utils.ErrMalformedURL, href)
	}
	return abs, nil
}

// Normalize resolves href against base and normalizes the result.
// Empty and fragment-only hrefs resolve to the base page itself.
func Normalize(base *url.URL, href string) (string, error) {
	abs, err := Resolve(base, href)
	if err != nil {
		return "", err
	}
	return NormalizeURL(abs), nil
}

// ParseAndNormalize parses an absolute URL string and normalizes it using NormalizeURL
// Returns the normalized string, the parsed URL object (fragment intact), and any parse error
func ParseAndNormalize(urlStr string) (string, *url.URL, error) {
	parsed, err := Resolve(nil, urlStr)
	if err != nil {
		return "", nil, err
	}
	return NormalizeURL(parsed), parsed, nil
}
