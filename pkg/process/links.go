package process

import (
	"net/url"

	"github.com/sirupsen/logrus"

	"crawl-core/pkg/parse"
	"crawl-core/pkg/scope"
)

// LinkExtractor turns raw hrefs into normalized, in-scope candidate links
type LinkExtractor struct {
	filter *scope.Filter
	log    *logrus.Entry
}

// NewLinkExtractor creates a LinkExtractor
func NewLinkExtractor(filter *scope.Filter, log *logrus.Entry) *LinkExtractor {
	return &LinkExtractor{
		filter: filter,
		log:    log.WithField("component", "link_extractor"),
	}
}

// Extract resolves every href against base, normalizes it and keeps only
// in-scope results. base must be the URL the page was served from, trailing
// slash intact, or relative hrefs on directory pages resolve one level up.
// Document order and in-page duplicates are preserved; cross-page dedup
// belongs to the visited set.
func (le *LinkExtractor) Extract(base *url.URL, hrefs []string) []string {
	if len(hrefs) == 0 {
		return nil
	}

	links := make([]string, 0, len(hrefs))
	skipped := 0
	for _, href := range hrefs {
		normalized, err := parse.Normalize(base, href)
		if err != nil {
			le.log.Debugf("Skipping href '%s': %v", href, err)
			skipped++
			continue
		}
		if !le.filter.Allowed(normalized) {
			skipped++
			continue
		}
		links = append(links, normalized)
	}

	le.log.Debugf("Extracted %d links (%d skipped) from %s", len(links), skipped, base.String())
	return links
}
