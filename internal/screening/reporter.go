package screening

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	dErrors "kycgate/pkg/domain-errors"
)

// Reporter files confirmed matches with the Financial Monitoring Unit and
// returns the filing reference.
type Reporter interface {
	FileReport(ctx context.Context, result *Result) (reference string, err error)
}

// MockFMUReporter simulates the FMU goAML portal with configurable latency
// and failure injection. References follow the portal's FMU-<year>-<serial>
// format.
type MockFMUReporter struct {
	Latency time.Duration
	Fail    bool
}

func NewMockFMUReporter() *MockFMUReporter {
	return &MockFMUReporter{Latency: 50 * time.Millisecond}
}

func (m *MockFMUReporter) FileReport(ctx context.Context, result *Result) (string, error) {
	if m.Latency > 0 {
		select {
		case <-ctx.Done():
			return "", dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "fmu filing cancelled")
		case <-time.After(m.Latency):
		}
	}
	if m.Fail {
		return "", dErrors.New(dErrors.CodeUnavailable, "fmu portal rejected submission")
	}
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "generate fmu reference")
	}
	return fmt.Sprintf("FMU-%d-%s", time.Now().Year(), strings.ToUpper(hex.EncodeToString(buf))), nil
}
