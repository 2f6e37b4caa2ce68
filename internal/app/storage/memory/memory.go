// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vitaltrack/healthd/internal/app/domain/document"
	"github.com/vitaltrack/healthd/internal/app/domain/vitals"
	"github.com/vitaltrack/healthd/internal/app/storage"
)

// Store is an in-memory persistence gateway.
type Store struct {
	mu         sync.RWMutex
	seq        int64
	vitals     map[vitals.Kind]map[string]vitals.Entry
	vitalSeq   map[string]int64
	documents  map[string]document.Document
	docSeq     map[string]int64
	identities map[string]string
}

var _ storage.VitalStore = (*Store)(nil)
var _ storage.DocumentStore = (*Store)(nil)
var _ storage.IdentityStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	s := &Store{
		vitals:     make(map[vitals.Kind]map[string]vitals.Entry),
		vitalSeq:   make(map[string]int64),
		documents:  make(map[string]document.Document),
		docSeq:     make(map[string]int64),
		identities: make(map[string]string),
	}
	for _, kind := range vitals.Kinds() {
		s.vitals[kind] = make(map[string]vitals.Entry)
	}
	return s
}

func (s *Store) nextSeqLocked() int64 {
	s.seq++
	return s.seq
}

// --- VitalStore -------------------------------------------------------------

func (s *Store) ListVitals(_ context.Context, kind vitals.Kind, ownerKey string) ([]vitals.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []vitals.Entry
	for _, entry := range s.vitals[kind] {
		if entry.OwnerKey == ownerKey {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EntryDate != result[j].EntryDate {
			return result[i].EntryDate > result[j].EntryDate
		}
		return s.vitalSeq[result[i].ID] > s.vitalSeq[result[j].ID]
	})
	return result, nil
}

func (s *Store) CreateVital(_ context.Context, kind vitals.Kind, entry vitals.Entry) (vitals.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createVitalLocked(kind, entry), nil
}

func (s *Store) createVitalLocked(kind vitals.Kind, entry vitals.Entry) vitals.Entry {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	s.vitals[kind][entry.ID] = entry
	s.vitalSeq[entry.ID] = s.nextSeqLocked()
	return entry
}

func (s *Store) DeleteVital(_ context.Context, kind vitals.Kind, id, ownerKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.vitals[kind][id]
	if !ok || entry.OwnerKey != ownerKey {
		return nil
	}
	delete(s.vitals[kind], id)
	delete(s.vitalSeq, id)
	return nil
}

func (s *Store) CountVitals(_ context.Context, kind vitals.Kind, ownerKey string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, entry := range s.vitals[kind] {
		if entry.OwnerKey == ownerKey {
			count++
		}
	}
	return count, nil
}

func (s *Store) ReplaceVitals(_ context.Context, kind vitals.Kind, ownerKey string, entries []vitals.Entry) ([]vitals.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entry := range s.vitals[kind] {
		if entry.OwnerKey == ownerKey {
			delete(s.vitals[kind], id)
			delete(s.vitalSeq, id)
		}
	}

	result := make([]vitals.Entry, 0, len(entries))
	for _, entry := range entries {
		entry.OwnerKey = ownerKey
		result = append(result, s.createVitalLocked(kind, entry))
	}
	return result, nil
}

// --- DocumentStore ----------------------------------------------------------

func (s *Store) ListDocuments(_ context.Context, ownerKey string) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []document.Document
	for _, doc := range s.documents {
		if doc.OwnerKey == ownerKey {
			result = append(result, doc)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].EntryDate != result[j].EntryDate {
			return result[i].EntryDate > result[j].EntryDate
		}
		return s.docSeq[result[i].ID] > s.docSeq[result[j].ID]
	})
	return result, nil
}

func (s *Store) CreateDocument(_ context.Context, doc document.Document) (document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.ID = uuid.NewString()
	doc.CreatedAt = time.Now().UTC()
	s.documents[doc.ID] = doc
	s.docSeq[doc.ID] = s.nextSeqLocked()
	return doc, nil
}

func (s *Store) GetDocument(_ context.Context, id, ownerKey string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok || doc.OwnerKey != ownerKey {
		return document.Document{}, sql.ErrNoRows
	}
	return doc, nil
}

func (s *Store) DeleteDocument(_ context.Context, id, ownerKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok || doc.OwnerKey != ownerKey {
		return nil
	}
	delete(s.documents, id)
	delete(s.docSeq, id)
	return nil
}

func (s *Store) CountDocuments(_ context.Context, ownerKey string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, doc := range s.documents {
		if doc.OwnerKey == ownerKey {
			count++
		}
	}
	return count, nil
}

// --- IdentityStore ----------------------------------------------------------

func (s *Store) EnsureIdentity(_ context.Context, ownerKey, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[ownerKey]; !ok {
		s.identities[ownerKey] = name
	}
	return nil
}
