package storage

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"sync"
)

// MemoryStore implements VisitedStore with a map guarded by a mutex
type MemoryStore struct {
	mu      sync.RWMutex
	visited map[string]struct{}
}

// NewMemoryStore returns an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{visited: make(map[string]struct{})}
}

// MarkVisited implements the VisitedStore interface
func (s *MemoryStore) MarkVisited(normalizedURL string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.visited[normalizedURL]; exists {
		return false, nil
	}
	s.visited[normalizedURL] = struct{}{}
	return true, nil
}

// IsVisited implements the VisitedStore interface
func (s *MemoryStore) IsVisited(normalizedURL string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.visited[normalizedURL]
	return exists, nil
}

// Count implements the VisitedStore interface
func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visited), nil
}

// WriteVisitedLog implements the VisitedStore interface
func (s *MemoryStore) WriteVisitedLog(filePath string) error {
	s.mu.RLock()
	urls := make([]string, 0, len(s.visited))
	for u := range s.visited {
		urls = append(urls, u)
	}
	s.mu.RUnlock()
	sort.Strings(urls)

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("create visited log '%s': %w", filePath, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, u := range urls {
		if _, err := writer.WriteString(u + "\n"); err != nil {
			return fmt.Errorf("write visited log '%s': %w", filePath, err)
		}
	}
	return writer.Flush()
}

// Close implements the VisitedStore interface
func (s *MemoryStore) Close() error { return nil }
