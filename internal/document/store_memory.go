package document

import (
	"context"
	"sync"

	dErrors "kycgate/pkg/domain-errors"
)

// Store persists document records.
type Store interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	FindByApplication(ctx context.Context, applicationID string) ([]*Record, error)
	DeleteByApplication(ctx context.Context, applicationID string) error
}

// InMemoryStore keeps document records in memory for tests and local runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	byID map[string]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[string]*Record)}
}

func (s *InMemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *rec
	s.byID[rec.ID] = &copied
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
	}
	copied := *rec
	return &copied, nil
}

func (s *InMemoryStore) FindByApplication(_ context.Context, applicationID string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Record
	for _, rec := range s.byID {
		if rec.ApplicationID == applicationID {
			copied := *rec
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) DeleteByApplication(_ context.Context, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.byID {
		if rec.ApplicationID == applicationID {
			delete(s.byID, id)
		}
	}
	return nil
}
