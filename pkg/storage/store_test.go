package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crawl-core/pkg/config"
	"crawl-core/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newBadgerTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(context.Background(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// backends runs fn against every VisitedStore implementation
func backends(t *testing.T, fn func(t *testing.T, store VisitedStore)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewMemoryStore())
	})
	t.Run("badger", func(t *testing.T) {
		fn(t, newBadgerTestStore(t))
	})
}

func TestMarkVisited(t *testing.T) {
	backends(t, func(t *testing.T, store VisitedStore) {
		added, err := store.MarkVisited("http://www.ics.uci.edu/a")
		require.NoError(t, err)
		assert.True(t, added, "first mark should add")

		added, err = store.MarkVisited("http://www.ics.uci.edu/a")
		require.NoError(t, err)
		assert.False(t, added, "second mark should report existing")

		visited, err := store.IsVisited("http://www.ics.uci.edu/a")
		require.NoError(t, err)
		assert.True(t, visited)

		visited, err = store.IsVisited("http://www.ics.uci.edu/b")
		require.NoError(t, err)
		assert.False(t, visited)

		count, err := store.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestMarkVisited_ConcurrentSingleWinner(t *testing.T) {
	backends(t, func(t *testing.T, store VisitedStore) {
		var winners atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				added, err := store.MarkVisited("http://www.ics.uci.edu/race")
				assert.NoError(t, err)
				if added {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), winners.Load())
		count, err := store.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestWriteVisitedLog(t *testing.T) {
	backends(t, func(t *testing.T, store VisitedStore) {
		for _, u := range []string{"http://c.ics.uci.edu/", "http://a.ics.uci.edu/", "http://b.ics.uci.edu/"} {
			_, err := store.MarkVisited(u)
			require.NoError(t, err)
		}

		outPath := filepath.Join(t.TempDir(), "visited.log")
		require.NoError(t, store.WriteVisitedLog(outPath))

		data, err := os.ReadFile(outPath)
		require.NoError(t, err)
		assert.Equal(t, "http://a.ics.uci.edu/\nhttp://b.ics.uci.edu/\nhttp://c.ics.uci.edu/\n", string(data))
		assert.NotContains(t, string(data), pageKeyPrefix)
	})
}

func TestWriteVisitedLog_InvalidPath(t *testing.T) {
	backends(t, func(t *testing.T, store VisitedStore) {
		assert.Error(t, store.WriteVisitedLog("/nonexistent/dir/file.log"))
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.VisitedBackendMemory, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open(ctx, "", testLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open(ctx, config.VisitedBackendBadger, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, "redis", testLogger())
	assert.ErrorIs(t, err, utils.ErrConfigValidation)
}

func TestBadgerStore_ClosedStore(t *testing.T) {
	store, err := NewBadgerStore(context.Background(), testLogger())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.NoError(t, store.Close(), "second close should be safe")

	_, err = store.MarkVisited("http://www.ics.uci.edu/")
	assert.ErrorIs(t, err, utils.ErrDatabase)
	_, err = store.IsVisited("http://www.ics.uci.edu/")
	assert.ErrorIs(t, err, utils.ErrDatabase)
}

func TestBadgerStore_WriteVisitedLogCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store, err := NewBadgerStore(ctx, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	for i := 0; i < 5; i++ {
		_, err := store.MarkVisited(fmt.Sprintf("http://www.ics.uci.edu/%d", i))
		require.NoError(t, err)
	}
	cancel()

	err = store.WriteVisitedLog(filepath.Join(t.TempDir(), "visited.log"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDBUpdateConflictRetry(t *testing.T) {
	t.Run("succeeds after transient conflicts", func(t *testing.T) {
		store := newBadgerTestStore(t)
		attempts := 0
		err := store.dbUpdate(func(txn *badger.Txn) error {
			attempts++
			if attempts <= 3 {
				return badger.ErrConflict
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 4, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		store := newBadgerTestStore(t)
		attempts := 0
		err := store.dbUpdate(func(txn *badger.Txn) error {
			attempts++
			return badger.ErrConflict
		})
		require.Error(t, err)
		require.ErrorIs(t, err, utils.ErrDatabase)
		assert.Contains(t, err.Error(), "transaction conflict not resolved")
		assert.Equal(t, maxConflictRetries, attempts)
	})

	t.Run("non-conflict error returned immediately", func(t *testing.T) {
		store := newBadgerTestStore(t)
		attempts := 0
		sentinel := errors.New("some other error")
		err := store.dbUpdate(func(txn *badger.Txn) error {
			attempts++
			return sentinel
		})
		require.Error(t, err)
		require.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, attempts)
	})
}
