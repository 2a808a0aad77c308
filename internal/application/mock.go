package application

import (
	"context"
	"time"
)

// MockOCRProvider returns canned text lines with configurable latency,
// standing in for a real OCR engine.
type MockOCRProvider struct {
	Latency    time.Duration
	Lines      []string
	Confidence float64
	Err        error
}

func (m MockOCRProvider) Recognize(ctx context.Context, _ []byte) ([]string, float64, error) {
	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(m.Latency):
		}
	}
	if m.Err != nil {
		return nil, 0, m.Err
	}
	return m.Lines, m.Confidence, nil
}
