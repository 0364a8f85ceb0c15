package models

import (
	"strings"
	"time"
)

// FetchResult is the record handed to the core by the network layer.
// The core treats it as read-only.
type FetchResult struct {
	URL          string            `json:"url"`
	Status       int               `json:"status"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         []byte            `json:"body,omitempty"`
	RedirectedTo string            `json:"redirected_to,omitempty"` // Final URL when the fetcher followed redirects
}

// Header returns the value of the named header, matching the name case-insensitively.
func (r FetchResult) Header(name string) string {
	if v, ok := r.Headers[name]; ok {
		return v
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// ContentType returns the declared Content-Type header, if any
func (r FetchResult) ContentType() string {
	return r.Header("Content-Type")
}

// Outcome describes what the decision engine did with one fetched page.
type Outcome struct {
	URL          string   // Normalized requested URL (empty if it could not be normalized)
	EffectiveURL string   // URL after redirect resolution; equals URL when no redirect
	Verdict      Verdict  // Final verdict of the admission pipeline
	WordCount    int      // Word count of visible text (0 when not computed)
	Fingerprint  string   // Content fingerprint (empty when not computed)
	Links        []string // Outbound links, only for admitted pages
}

// WorkItem is one URL waiting in the crawl frontier
type WorkItem struct {
	URL   string
	Depth int // Link distance from the nearest seed
}

// DecisionRecord is one line of the JSONL decision log
type DecisionRecord struct {
	URL          string `json:"url"`
	EffectiveURL string `json:"effective_url,omitempty"`
	Depth        int    `json:"depth,omitempty"`
	Status       int    `json:"status"`
	Admitted     bool   `json:"admitted"`
	Reason       string `json:"reason"`
	WordCount    int    `json:"word_count,omitempty"`
	Links        int    `json:"links"`
	FetchError   string `json:"fetch_error,omitempty"`
}

// LongestPage records the admitted page with the highest word count.
type LongestPage struct {
	URL       string `yaml:"url" json:"url"`
	WordCount int    `yaml:"word_count" json:"word_count"`
}

// SubdomainCount is one row of the subdomain census.
type SubdomainCount struct {
	Subdomain string `yaml:"subdomain" json:"subdomain"`
	Pages     int    `yaml:"pages" json:"pages"`
}

// WordCount is one row of the word-frequency table.
type WordCount struct {
	Word  string `yaml:"word" json:"word"`
	Count int    `yaml:"count" json:"count"`
}

// Report is a consistent snapshot of the crawl analytics.
type Report struct {
	RunID       string           `yaml:"run_id" json:"run_id"`
	GeneratedAt time.Time        `yaml:"generated_at" json:"generated_at"`
	UniquePages int              `yaml:"unique_pages" json:"unique_pages"`
	VisitedURLs int              `yaml:"visited_urls" json:"visited_urls"`
	LongestPage LongestPage      `yaml:"longest_page" json:"longest_page"`
	Subdomains  []SubdomainCount `yaml:"subdomains" json:"subdomains"`
	TopWords    []WordCount      `yaml:"top_words" json:"top_words"`
	Rejections  map[string]int64 `yaml:"rejections,omitempty" json:"rejections,omitempty"`
}
