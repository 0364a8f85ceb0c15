// Package sitemap expands sitemap.xml documents into seed URLs for a crawl.
package sitemap

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"crawl-core/pkg/fetch"
	"crawl-core/pkg/utils"
)

// DefaultMaxSitemaps bounds how many sitemap documents one Collect call fetches
const DefaultMaxSitemaps = 50

// xmlURL represents a <url> element in a sitemap
type xmlURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// xmlURLSet represents a <urlset> element
type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []xmlURL `xml:"url"`
}

// xmlSitemapIndex represents a <sitemapindex> element
type xmlSitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []xmlURL `xml:"sitemap"`
}

// Parse decodes a sitemap document. A sitemap index yields nested sitemap
// locations, a URL set yields page locations. Blank locations are skipped.
func Parse(data []byte) (pages []string, nested []string, err error) {
	var index xmlSitemapIndex
	errIndex := xml.Unmarshal(data, &index)
	if errIndex == nil {
		for _, sm := range index.Sitemaps {
			if loc := strings.TrimSpace(sm.Loc); loc != "" {
				nested = append(nested, loc)
			}
		}
		return nil, nested, nil
	}

	var set xmlURLSet
	errURLSet := xml.Unmarshal(data, &set)
	if errURLSet != nil {
		return nil, nil, fmt.Errorf("%w: not a sitemap index (%v) or URL set (%v)", utils.ErrParsing, errIndex, errURLSet)
	}
	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			pages = append(pages, loc)
		}
	}
	return pages, nil, nil
}

// Collector fetches a sitemap and every sitemap it references
type Collector struct {
	fetcher     fetch.HTTPFetcher
	maxSitemaps int
	log         *logrus.Entry
}

// NewCollector creates a Collector. maxSitemaps <= 0 uses DefaultMaxSitemaps.
func NewCollector(fetcher fetch.HTTPFetcher, maxSitemaps int, log *logrus.Entry) *Collector {
	if maxSitemaps <= 0 {
		maxSitemaps = DefaultMaxSitemaps
	}
	return &Collector{
		fetcher:     fetcher,
		maxSitemaps: maxSitemaps,
		log:         log.WithField("component", "sitemap"),
	}
}

// Collect returns the page URLs listed under rootURL, in document order and
// without repeats. Only a failure of the root sitemap is an error; broken
// nested sitemaps are logged and skipped.
func (c *Collector) Collect(ctx context.Context, rootURL string) ([]string, error) {
	queue := []string{rootURL}
	processed := map[string]bool{rootURL: true}
	seenPages := make(map[string]bool)
	var pages []string

	for fetched := 0; len(queue) > 0; fetched++ {
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		if fetched >= c.maxSitemaps {
			c.log.Warnf("Sitemap limit (%d) reached, %d sitemap(s) not fetched", c.maxSitemaps, len(queue))
			break
		}

		smURL := queue[0]
		queue = queue[1:]
		smLog := c.log.WithField("sitemap_url", smURL)

		found, nested, err := c.fetchOne(ctx, smURL)
		if err != nil {
			if smURL == rootURL || errors.Is(err, context.Canceled) {
				return nil, err
			}
			smLog.Warnf("Skipping nested sitemap: %v", err)
			continue
		}

		for _, loc := range nested {
			abs, err := resolve(smURL, loc)
			if err != nil {
				smLog.Warnf("Invalid nested sitemap URL '%s': %v", loc, err)
				continue
			}
			if !processed[abs] {
				processed[abs] = true
				queue = append(queue, abs)
			}
		}

		added := 0
		for _, loc := range found {
			if !seenPages[loc] {
				seenPages[loc] = true
				pages = append(pages, loc)
				added++
			}
		}
		smLog.Infof("Sitemap parsed: %d page(s), %d nested sitemap(s)", added, len(nested))
	}

	return pages, nil
}

func (c *Collector) fetchOne(ctx context.Context, smURL string) (pages []string, nested []string, err error) {
	result, err := c.fetcher.Fetch(ctx, smURL)
	if err != nil {
		return nil, nil, err
	}
	if result.Status != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: sitemap '%s' returned status %d", utils.ErrFetch, smURL, result.Status)
	}
	return Parse(result.Body)
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
