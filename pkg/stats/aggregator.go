// Package stats aggregates crawl-wide statistics over admitted pages. The
// tables feed reports only and never influence admission.
package stats

import (
	"sort"
	"sync"

	"crawl-core/pkg/models"
)

// Aggregator holds the longest-page record, the subdomain index and the
// word-frequency table. Each table has its own lock.
type Aggregator struct {
	longestMu sync.RWMutex
	longest   models.LongestPage

	subMu      sync.RWMutex
	subdomains map[string]map[string]struct{} // host -> page URLs

	wordsMu sync.RWMutex
	words   map[string]int
}

// NewAggregator creates an empty Aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{
		subdomains: make(map[string]map[string]struct{}),
		words:      make(map[string]int),
	}
}

// Record adds one admitted page. wordCount is the page's full token count;
// contentWords are its lowercase tokens with stop words already removed.
func (a *Aggregator) Record(pageURL, host string, wordCount int, contentWords []string) {
	a.longestMu.Lock()
	// Strictly greater: ties keep the first page seen
	if a.longest.URL == "" || wordCount > a.longest.WordCount {
		a.longest = models.LongestPage{URL: pageURL, WordCount: wordCount}
	}
	a.longestMu.Unlock()

	a.subMu.Lock()
	pages, ok := a.subdomains[host]
	if !ok {
		pages = make(map[string]struct{})
		a.subdomains[host] = pages
	}
	pages[pageURL] = struct{}{}
	a.subMu.Unlock()

	if len(contentWords) == 0 {
		return
	}
	a.wordsMu.Lock()
	for _, w := range contentWords {
		a.words[w]++
	}
	a.wordsMu.Unlock()
}

// Longest returns the current longest-page record; zero value before any page
func (a *Aggregator) Longest() models.LongestPage {
	a.longestMu.RLock()
	defer a.longestMu.RUnlock()
	return a.longest
}

// Subdomains returns the page count per host, sorted by host
func (a *Aggregator) Subdomains() []models.SubdomainCount {
	a.subMu.RLock()
	out := make([]models.SubdomainCount, 0, len(a.subdomains))
	for host, pages := range a.subdomains {
		out = append(out, models.SubdomainCount{Subdomain: host, Pages: len(pages)})
	}
	a.subMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Subdomain < out[j].Subdomain
	})
	return out
}

// UniquePages returns the number of distinct pages recorded
func (a *Aggregator) UniquePages() int {
	a.subMu.RLock()
	defer a.subMu.RUnlock()
	total := 0
	for _, pages := range a.subdomains {
		total += len(pages)
	}
	return total
}

// TopWords returns the n most frequent words, by count descending then word
// ascending. n <= 0 returns every word.
func (a *Aggregator) TopWords(n int) []models.WordCount {
	a.wordsMu.RLock()
	out := make([]models.WordCount, 0, len(a.words))
	for w, c := range a.words {
		out = append(out, models.WordCount{Word: w, Count: c})
	}
	a.wordsMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Snapshot fills the statistics part of a report with the top n words
func (a *Aggregator) Snapshot(n int) models.Report {
	return models.Report{
		UniquePages: a.UniquePages(),
		LongestPage: a.Longest(),
		Subdomains:  a.Subdomains(),
		TopWords:    a.TopWords(n),
	}
}
