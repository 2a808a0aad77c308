package screening

import (
	"context"
	"sync"

	dErrors "kycgate/pkg/domain-errors"
)

// InMemoryResultStore keeps screening results in memory for tests and local
// runs.
type InMemoryResultStore struct {
	mu      sync.RWMutex
	results map[string]*Result
}

func NewInMemoryResultStore() *InMemoryResultStore {
	return &InMemoryResultStore{results: make(map[string]*Result)}
}

func (s *InMemoryResultStore) Save(_ context.Context, result *Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *result
	s.results[result.ID] = &copied
	return nil
}

func (s *InMemoryResultStore) Get(_ context.Context, id string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "screening result not found")
	}
	copied := *result
	return &copied, nil
}

func (s *InMemoryResultStore) FindByApplication(_ context.Context, applicationID string) ([]*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Result
	for _, r := range s.results {
		if r.ApplicationID == applicationID {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryResultStore) DeleteByApplication(_ context.Context, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.results {
		if r.ApplicationID == applicationID {
			delete(s.results, id)
		}
	}
	return nil
}

// StaticListStore serves fixed entries, used in tests.
type StaticListStore struct {
	mu      sync.RWMutex
	entries map[ListName][]Entry
	errs    map[ListName]error
}

func NewStaticListStore() *StaticListStore {
	return &StaticListStore{
		entries: make(map[ListName][]Entry),
		errs:    make(map[ListName]error),
	}
}

func (s *StaticListStore) SetEntries(list ListName, entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[list] = entries
}

func (s *StaticListStore) FailWith(list ListName, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[list] = err
}

func (s *StaticListStore) Entries(_ context.Context, list ListName) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.errs[list]; err != nil {
		return nil, err
	}
	return s.entries[list], nil
}
