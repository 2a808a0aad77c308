package application

import "context"

// Store persists applications.
type Store interface {
	Create(ctx context.Context, app *Application) error
	Update(ctx context.Context, app *Application) error
	Get(ctx context.Context, id string) (*Application, error)
	GetByRef(ctx context.Context, ref string) (*Application, error)
	FindByStatus(ctx context.Context, status Status) ([]*Application, error)
	Delete(ctx context.Context, id string) error
}

// BlobStore holds raw document and biometric sample bytes, keyed by document
// id. Metadata lives in the document store; only content goes here.
type BlobStore interface {
	Put(ctx context.Context, key string, content []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
