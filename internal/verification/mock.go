package verification

import (
	"context"
	"time"

	"kycgate/internal/identity"
)

// MockIdentityProvider simulates the national registry with configurable
// latency and canned field matches.
type MockIdentityProvider struct {
	Latency time.Duration
	Result  IdentityResult
	Err     error
}

func (c MockIdentityProvider) Name() string { return "mock_registry" }

func (c MockIdentityProvider) VerifyIdentity(ctx context.Context, _ identity.Record) (IdentityResult, error) {
	if err := sleepOrCancel(ctx, c.Latency); err != nil {
		return IdentityResult{}, err
	}
	if c.Err != nil {
		return IdentityResult{}, c.Err
	}
	result := c.Result
	if result.SessionRef == "" {
		result.SessionRef = "mock-identity-session"
	}
	return result, nil
}

// MockBiometricProvider returns a canned face match score.
type MockBiometricProvider struct {
	Latency time.Duration
	Score   float64
	Err     error
}

func (c MockBiometricProvider) Name() string { return "mock_biometric" }

func (c MockBiometricProvider) VerifyBiometric(ctx context.Context, _ string, _ []byte) (BiometricResult, error) {
	if err := sleepOrCancel(ctx, c.Latency); err != nil {
		return BiometricResult{}, err
	}
	if c.Err != nil {
		return BiometricResult{}, c.Err
	}
	return BiometricResult{MatchScore: c.Score, SessionRef: "mock-biometric-session"}, nil
}

// MockLivenessProvider returns canned liveness and face match scores.
type MockLivenessProvider struct {
	Latency   time.Duration
	Liveness  float64
	FaceMatch float64
	Err       error
}

func (c MockLivenessProvider) Name() string { return "mock_liveness" }

func (c MockLivenessProvider) CheckLiveness(ctx context.Context, _ string, _ []byte) (LivenessResult, error) {
	if err := sleepOrCancel(ctx, c.Latency); err != nil {
		return LivenessResult{}, err
	}
	if c.Err != nil {
		return LivenessResult{}, c.Err
	}
	return LivenessResult{
		LivenessScore:  c.Liveness,
		FaceMatchScore: c.FaceMatch,
		SessionRef:     "mock-liveness-session",
	}, nil
}

func sleepOrCancel(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
