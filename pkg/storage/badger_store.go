package storage

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"crawl-core/pkg/log"
	"crawl-core/pkg/utils"
)

const pageKeyPrefix = "page:" // Prefix for visited URL keys in DB

// BadgerStore implements the VisitedStore interface using an in-memory
// BadgerDB. Nothing touches disk; the set lives for one run.
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	ctx      context.Context // Parent context
	keyCount atomic.Int64    // Cached key count for O(1) Count
}

// NewBadgerStore opens an empty in-memory BadgerStore
func NewBadgerStore(ctx context.Context, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{
		log: logger.WithField("store", "badger"),
		ctx: ctx,
	}

	opts := badger.DefaultOptions("").
		WithInMemory(true).
		WithLogger(log.NewBadgerLogger(logger)).
		WithNumVersionsToKeep(1)

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open in-memory badger database: %w", utils.ErrDatabase, err)
	}

	store.log.Debug("In-memory visited URL database initialized.")
	return store, nil
}

const maxConflictRetries = 10

// dbUpdate runs fn in an update transaction, retrying when two workers
// claim the same URL at once and badger reports ErrConflict.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// MarkVisited implements the VisitedStore interface
func (s *BadgerStore) MarkVisited(normalizedURL string) (bool, error) {
	if s.db == nil || s.db.IsClosed() {
		return false, fmt.Errorf("%w: visited DB not open", utils.ErrDatabase)
	}
	key := []byte(pageKeyPrefix + normalizedURL)

	added := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		added = false // reset on conflict retry
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			errSet := txn.SetEntry(badger.NewEntry(key, []byte{}))
			if errSet == nil {
				added = true
			}
			return errSet
		}
		// Key already exists or another error occurred
		return errGet
	})

	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in MarkVisited: %v", err)
		return false, fmt.Errorf("%w: marking key '%s': %w", utils.ErrDatabase, string(key), err)
	}
	if added {
		s.keyCount.Add(1)
	}
	return added, nil
}

// IsVisited implements the VisitedStore interface
func (s *BadgerStore) IsVisited(normalizedURL string) (bool, error) {
	if s.db == nil || s.db.IsClosed() {
		return false, fmt.Errorf("%w: visited DB not open", utils.ErrDatabase)
	}
	key := []byte(pageKeyPrefix + normalizedURL)

	found := false
	errView := s.db.View(func(txn *badger.Txn) error {
		_, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return errGet
		}
		found = true
		return nil
	})
	if errView != nil {
		return false, fmt.Errorf("%w: reading key '%s': %w", utils.ErrDatabase, string(key), errView)
	}
	return found, nil
}

// Count implements the VisitedStore interface.
// Returns the cached key count maintained by atomic increments on writes.
func (s *BadgerStore) Count() (int, error) {
	return int(s.keyCount.Load()), nil
}

// WriteVisitedLog implements the VisitedStore interface. Badger iterates in
// key order, so the output is already sorted.
func (s *BadgerStore) WriteVisitedLog(filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		s.log.Errorf("Failed create visited log '%s': %v", filePath, err)
		return fmt.Errorf("create visited log '%s': %w", filePath, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	writtenCount := 0
	iterErr := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(pageKeyPrefix)

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-s.ctx.Done():
				return s.ctx.Err()
			default:
			}

			key := it.Item().KeyCopy(nil)
			if _, err := writer.WriteString(string(key[len(prefix):]) + "\n"); err != nil {
				return err
			}
			writtenCount++
		}
		return nil
	})
	if iterErr != nil {
		s.log.Errorf("Error writing visited log '%s': %v", filePath, iterErr)
		return fmt.Errorf("write visited log '%s': %w", filePath, iterErr)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush visited log '%s': %w", filePath, err)
	}
	s.log.Infof("Wrote %d URLs to visited log: %s", writtenCount, filePath)
	return nil
}

// Close implements the VisitedStore interface
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing visited DB: %v", err)
			return err
		}
		s.log.Debug("Visited DB closed.")
	}
	return nil
}
