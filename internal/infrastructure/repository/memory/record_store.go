package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/riskibarqy/touchline/internal/domain/record"
)

type docKey struct {
	kind record.Kind
	id   string
}

// RecordStore keeps documents in process memory.
type RecordStore struct {
	mu    sync.RWMutex
	items map[docKey]record.Document
}

func NewRecordStore() *RecordStore {
	return &RecordStore{items: make(map[docKey]record.Document)}
}

func (s *RecordStore) Put(_ context.Context, doc record.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[docKey{kind: doc.Kind, id: doc.ID}] = cloneDocument(doc)
	return nil
}

func (s *RecordStore) Get(_ context.Context, kind record.Kind, id string) (record.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.items[docKey{kind: kind, id: id}]
	if !ok {
		return record.Document{}, false, nil
	}
	return cloneDocument(doc), true, nil
}

func (s *RecordStore) List(_ context.Context, q record.Query) ([]record.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]record.Document, 0)
	for _, doc := range s.items {
		if q.Matches(doc) {
			out = append(out, cloneDocument(doc))
		}
	}
	sortDocuments(out)
	return out, nil
}

func (s *RecordStore) Count(_ context.Context, q record.Query) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, doc := range s.items {
		if q.Matches(doc) {
			n++
		}
	}
	return n, nil
}

func (s *RecordStore) ListUnsynced(_ context.Context, kind record.Kind) ([]record.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]record.Document, 0)
	for key, doc := range s.items {
		if key.kind == kind && !doc.Synced {
			out = append(out, cloneDocument(doc))
		}
	}
	sortDocuments(out)
	return out, nil
}

func (s *RecordStore) MarkSynced(_ context.Context, kind record.Kind, id string, version, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey{kind: kind, id: id}
	doc, ok := s.items[key]
	if !ok || !doc.UpdatedAt.Equal(version) {
		return false, nil
	}

	syncedAt := at
	doc.Synced = true
	doc.SyncedAt = &syncedAt
	s.items[key] = doc
	return true, nil
}

func (s *RecordStore) ApplyRemote(_ context.Context, doc record.Document) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey{kind: doc.Kind, id: doc.ID}
	if local, ok := s.items[key]; ok && !local.Synced {
		return false, nil
	}

	doc.Synced = true
	s.items[key] = cloneDocument(doc)
	return true, nil
}

func (s *RecordStore) IsEmpty(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items) == 0, nil
}

func sortDocuments(docs []record.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})
}

func cloneDocument(doc record.Document) record.Document {
	copied := doc
	copied.Payload = append([]byte(nil), doc.Payload...)
	if doc.DeletedAt != nil {
		t := *doc.DeletedAt
		copied.DeletedAt = &t
	}
	if doc.SyncedAt != nil {
		t := *doc.SyncedAt
		copied.SyncedAt = &t
	}
	return copied
}
