package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"crawl-core/pkg/config"
	"crawl-core/pkg/utils"
)

// VisitedStore is the crawl-wide set of normalized URLs already claimed.
// Implementations must make MarkVisited an atomic check-then-insert.
type VisitedStore interface {
	// MarkVisited adds the URL if absent.
	// Returns true if the URL was newly added, false if it already existed
	MarkVisited(normalizedURL string) (bool, error)

	// IsVisited reports membership without changing the set
	IsVisited(normalizedURL string) (bool, error)

	// Count returns the number of URLs in the set
	Count() (int, error)

	// WriteVisitedLog writes every URL, one per line and sorted, to filePath
	WriteVisitedLog(filePath string) error

	// Close releases resources. The set is not persisted.
	Close() error
}

// Open creates an empty VisitedStore for the configured backend
func Open(ctx context.Context, backend string, logger *logrus.Entry) (VisitedStore, error) {
	switch backend {
	case "", config.VisitedBackendMemory:
		return NewMemoryStore(), nil
	case config.VisitedBackendBadger:
		return NewBadgerStore(ctx, logger)
	default:
		return nil, fmt.Errorf("%w: unknown visited backend '%s'", utils.ErrConfigValidation, backend)
	}
}
