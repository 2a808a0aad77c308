package audit

import (
	"context"

	dErrors "kycgate/pkg/domain-errors"
)

// Worker consumes audit events from a channel and persists them, keeping the
// decisioning hot path free of audit sink latency.
type Worker struct {
	store Store
	inbox <-chan Event
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}

// Queue is a Store whose Append enqueues for a Worker instead of writing to
// the sink synchronously. A full inbox rejects the event rather than
// blocking the caller.
type Queue struct {
	inbox chan Event
	store Store
}

func NewQueue(store Store, size int) *Queue {
	return &Queue{inbox: make(chan Event, size), store: store}
}

func (q *Queue) Append(_ context.Context, event Event) error {
	select {
	case q.inbox <- event:
		return nil
	default:
		return dErrors.New(dErrors.CodeUnavailable, "audit queue full")
	}
}

// ListBySubject reads through to the backing store. Events still in the
// inbox are not visible yet.
func (q *Queue) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	return q.store.ListBySubject(ctx, subject)
}

// Worker returns the drain loop for this queue's inbox.
func (q *Queue) Worker() *Worker {
	return NewWorker(q.store, q.inbox)
}
