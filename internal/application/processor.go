package application

import (
	"context"
	"log/slog"

	dErrors "kycgate/pkg/domain-errors"
)

// Processor consumes submitted application ids from a queue and runs the
// compliance pipeline for each. It decouples submission latency from
// provider latency; Submit enqueues, the processor catches up.
type Processor struct {
	service *Service
	queue   chan string
	logger  *slog.Logger
}

func NewProcessor(service *Service, queueSize int, logger *slog.Logger) *Processor {
	return &Processor{
		service: service,
		queue:   make(chan string, queueSize),
		logger:  logger,
	}
}

// Enqueue schedules an application for processing. It fails fast when the
// queue is full rather than blocking the submitter.
func (p *Processor) Enqueue(applicationID string) error {
	select {
	case p.queue <- applicationID:
		return nil
	default:
		return dErrors.New(dErrors.CodeUnavailable, "processing queue is full")
	}
}

// Run drains the queue until the context is cancelled. A pipeline failure
// for one application never stops the worker.
func (p *Processor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case applicationID := <-p.queue:
			if _, err := p.service.Process(ctx, applicationID); err != nil {
				p.logger.ErrorContext(ctx, "pipeline run failed",
					"application_id", applicationID,
					"error", err,
				)
			}
		}
	}
}
