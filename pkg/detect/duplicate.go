package detect

import (
	"sync"

	"crawl-core/pkg/utils"
)

// ContentDeduplicator remembers fingerprints of visible text already admitted.
// Pages differing only in markup share a fingerprint.
type ContentDeduplicator struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewContentDeduplicator creates an empty ContentDeduplicator
func NewContentDeduplicator() *ContentDeduplicator {
	return &ContentDeduplicator{seen: make(map[string]struct{})}
}

// CheckAndRecord fingerprints text and inserts it if new. A duplicate leaves
// the table unchanged.
func (d *ContentDeduplicator) CheckAndRecord(text string) (fingerprint string, duplicate bool) {
	fingerprint = utils.ContentFingerprint(text)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.seen[fingerprint]; exists {
		return fingerprint, true
	}
	d.seen[fingerprint] = struct{}{}
	return fingerprint, false
}

// Len returns the number of distinct fingerprints recorded
func (d *ContentDeduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
