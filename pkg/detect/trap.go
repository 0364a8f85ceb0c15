package detect

import (
	"net/url"
	"regexp"
	"sync"
)

// DefaultTrapThreshold is the number of visits a path pattern may receive
// before further URLs of that pattern are traps
const DefaultTrapThreshold = 10

// PatternPlaceholder replaces each run of digits in a trap pattern
const PatternPlaceholder = "[n]"

var digitRun = regexp.MustCompile(`[0-9]+`)

// TrapDetector counts visits per generalized path pattern. Calendars,
// pagination and session ids differ only in their numbers, so they
// collapse onto one pattern and trip the threshold together.
type TrapDetector struct {
	mu        sync.Mutex
	counts    map[string]int
	threshold int
}

// NewTrapDetector creates a TrapDetector. A threshold <= 0 uses the default.
func NewTrapDetector(threshold int) *TrapDetector {
	if threshold <= 0 {
		threshold = DefaultTrapThreshold
	}
	return &TrapDetector{
		counts:    make(map[string]int),
		threshold: threshold,
	}
}

// Pattern generalizes a URL path by replacing every maximal digit run with
// PatternPlaceholder, e.g. /page/123/view -> /page/[n]/view
func Pattern(path string) string {
	if path == "" {
		path = "/"
	}
	return digitRun.ReplaceAllLiteralString(path, PatternPlaceholder)
}

// Observe records one visit to u's pattern and reports whether the updated
// count exceeds the threshold. Host and query do not contribute. The decoded
// path is used so hex digits of percent-escapes are not mistaken for numbers.
func (d *TrapDetector) Observe(u *url.URL) (pattern string, count int, trap bool) {
	pattern = Pattern(u.Path)

	d.mu.Lock()
	d.counts[pattern]++
	count = d.counts[pattern]
	d.mu.Unlock()

	return pattern, count, count > d.threshold
}

// Threshold returns the configured visit limit
func (d *TrapDetector) Threshold() int { return d.threshold }

// Counts returns a copy of the pattern visit counts
func (d *TrapDetector) Counts() map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make(map[string]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}
