package verification

import (
	"context"
	"sync"

	dErrors "kycgate/pkg/domain-errors"
)

// InMemoryAttemptStore keeps attempts in memory for tests and local runs.
type InMemoryAttemptStore struct {
	mu       sync.RWMutex
	attempts []*Attempt
}

func NewInMemoryAttemptStore() *InMemoryAttemptStore {
	return &InMemoryAttemptStore{}
}

func (s *InMemoryAttemptStore) Save(_ context.Context, attempt *Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *attempt
	for i, existing := range s.attempts {
		if existing.ID == attempt.ID {
			s.attempts[i] = &copied
			return nil
		}
	}
	s.attempts = append(s.attempts, &copied)
	return nil
}

func (s *InMemoryAttemptStore) Latest(_ context.Context, applicationID string, typ Type) (*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.attempts) - 1; i >= 0; i-- {
		a := s.attempts[i]
		if a.ApplicationID == applicationID && a.Type == typ {
			copied := *a
			return &copied, nil
		}
	}
	return nil, dErrors.New(dErrors.CodeNotFound, "no verification attempt recorded")
}

func (s *InMemoryAttemptStore) FindByApplication(_ context.Context, applicationID string) ([]*Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Attempt
	for _, a := range s.attempts {
		if a.ApplicationID == applicationID {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryAttemptStore) DeleteByApplication(_ context.Context, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.attempts[:0]
	for _, a := range s.attempts {
		if a.ApplicationID != applicationID {
			kept = append(kept, a)
		}
	}
	s.attempts = kept
	return nil
}
