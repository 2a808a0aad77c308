package application

import (
	"context"
	"sync"

	dErrors "kycgate/pkg/domain-errors"
)

// InMemoryStore keeps applications in memory for tests and local runs.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*Application
	byRef map[string]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:  make(map[string]*Application),
		byRef: make(map[string]string),
	}
}

func (s *InMemoryStore) Create(_ context.Context, app *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[app.ID]; exists {
		return dErrors.New(dErrors.CodeConflict, "application already exists")
	}
	copied := *app
	s.byID[app.ID] = &copied
	s.byRef[app.Ref] = app.ID
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, app *Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[app.ID]; !exists {
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	copied := *app
	s.byID[app.ID] = &copied
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.byID[id]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	copied := *app
	return &copied, nil
}

func (s *InMemoryStore) GetByRef(ctx context.Context, ref string) (*Application, error) {
	s.mu.RLock()
	id, ok := s.byRef[ref]
	s.mu.RUnlock()
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	return s.Get(ctx, id)
}

func (s *InMemoryStore) FindByStatus(_ context.Context, status Status) ([]*Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Application
	for _, app := range s.byID {
		if app.Status == status {
			copied := *app
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.byID[id]
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	delete(s.byRef, app.Ref)
	delete(s.byID, id)
	return nil
}

// InMemoryBlobStore keeps blob content in memory.
type InMemoryBlobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemoryBlobStore() *InMemoryBlobStore {
	return &InMemoryBlobStore{blobs: make(map[string][]byte)}
}

func (s *InMemoryBlobStore) Put(_ context.Context, key string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(content))
	copy(copied, content)
	s.blobs[key] = copied
	return nil
}

func (s *InMemoryBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.blobs[key]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "blob not found")
	}
	copied := make([]byte, len(content))
	copy(copied, content)
	return copied, nil
}

func (s *InMemoryBlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}
