// Package memory provides an in-process blob store used for development and
// tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/vitaltrack/healthd/internal/app/blob"
)

// Store keeps uploaded files in memory, keyed by their generated URL.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ blob.Store = (*Store)(nil)

func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) Put(ctx context.Context, fileName, contentType string, body io.Reader) (blob.Object, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return blob.Object{}, err
	}

	url := fmt.Sprintf("memory://documents/%s/%s", uuid.NewString(), fileName)

	s.mu.Lock()
	s.objects[url] = data
	s.mu.Unlock()

	return blob.Object{URL: url, Size: int64(len(data))}, nil
}

func (s *Store) Delete(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[url]; !ok {
		return blob.ErrNotFound
	}
	delete(s.objects, url)
	return nil
}

// Get returns the stored bytes. Test helper.
func (s *Store) Get(url string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[url]
	return data, ok
}

// Len reports the number of stored objects. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
