package scope

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"crawl-core/pkg/config"
	"crawl-core/pkg/utils"
)

// Filter decides whether a normalized URL belongs to the crawl
type Filter struct {
	domains    []string            // lowercase, no leading dot
	extensions map[string]struct{} // lowercase, no leading dot
	disallowed []*regexp.Regexp    // matched against the URL path
}

// New builds a Filter from a validated config
func New(cfg *config.AppConfig) (*Filter, error) {
	compiled, err := utils.CompileRegexPatterns(cfg.DisallowedPathPatterns)
	if err != nil {
		return nil, err
	}
	return NewFilter(cfg.AllowedDomains, cfg.ExcludedExtensions, compiled), nil
}

// NewFilter builds a Filter from explicit rules. Domains and extensions are
// normalized here so callers may pass them in any case.
func NewFilter(domains, extensions []string, disallowed []*regexp.Regexp) *Filter {
	f := &Filter{
		extensions: make(map[string]struct{}, len(extensions)),
		disallowed: disallowed,
	}
	for _, d := range domains {
		d = strings.Trim(strings.ToLower(strings.TrimSpace(d)), ".")
		if d != "" {
			f.domains = append(f.domains, d)
		}
	}
	for _, ext := range extensions {
		ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
		if ext != "" {
			f.extensions[ext] = struct{}{}
		}
	}
	return f
}

// Allowed reports whether a normalized URL string is in scope.
// Unparseable input is never in scope.
func (f *Filter) Allowed(normalized string) bool {
	u, err := url.Parse(normalized)
	if err != nil {
		return false
	}
	return f.Check(u) == nil
}

// Check returns nil when u is in scope, otherwise an error wrapping
// ErrUnsupportedScheme, ErrScopeViolation or ErrExcludedExtension.
func (f *Filter) Check(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("%w: '%s'", utils.ErrUnsupportedScheme, u.Scheme)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if !f.hostAllowed(host) {
		return fmt.Errorf("%w: host '%s' not under an allowed domain", utils.ErrScopeViolation, host)
	}

	// Query and fragment live outside u.Path so they never affect the extension
	if ext := Extension(u.Path); ext != "" {
		if _, blocked := f.extensions[ext]; blocked {
			return fmt.Errorf("%w: '.%s' in '%s'", utils.ErrExcludedExtension, ext, u.Path)
		}
	}

	for _, pattern := range f.disallowed {
		if pattern.MatchString(u.Path) {
			return fmt.Errorf("%w: path '%s' matches disallowed pattern '%s'", utils.ErrScopeViolation, u.Path, pattern.String())
		}
	}
	return nil
}

// hostAllowed matches on label boundaries: the host equals an allowed domain
// or ends with "."+domain.
func (f *Filter) hostAllowed(host string) bool {
	if host == "" {
		return false
	}
	for _, d := range f.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Extension returns the lowercase extension of the final path segment,
// without the dot, or "" when there is none.
func Extension(p string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(p), "."))
}
