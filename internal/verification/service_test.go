package verification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/identity"
	dErrors "kycgate/pkg/domain-errors"
)

func applicant() identity.Record {
	return identity.Record{
		CNIC:        "15059-0123456-7",
		FullName:    "Ahmed Khan",
		FatherName:  "Imran Khan",
		DateOfBirth: time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC),
		Gender:      identity.GenderMale,
	}
}

func fullIdentityMatch() IdentityResult {
	return IdentityResult{NameMatch: true, FatherNameMatch: true, DOBMatch: true, IDValid: true}
}

func newService(idp IdentityProvider, bio BiometricProvider, live LivenessProvider, opts ...Option) (*Service, *InMemoryAttemptStore) {
	store := NewInMemoryAttemptStore()
	return New(idp, bio, live, store, opts...), store
}

func TestVerifyIdentity_AllFieldsMatch(t *testing.T) {
	svc, _ := newService(
		MockIdentityProvider{Result: fullIdentityMatch()},
		MockBiometricProvider{},
		MockLivenessProvider{},
	)

	attempt, err := svc.VerifyIdentity(context.Background(), "app-1", applicant())
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, attempt.Status)
	assert.True(t, attempt.Verified)
	assert.Equal(t, 100.0, attempt.MatchScore)
	require.NotNil(t, attempt.CompletedAt)
}

func TestVerifyIdentity_WeightedScoreBelowThresholdFails(t *testing.T) {
	// Name, father and DOB match but the ID is flagged invalid: 80 < 85.
	result := fullIdentityMatch()
	result.IDValid = false
	svc, _ := newService(
		MockIdentityProvider{Result: result},
		MockBiometricProvider{},
		MockLivenessProvider{},
	)

	attempt, err := svc.VerifyIdentity(context.Background(), "app-1", applicant())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, attempt.Status)
	assert.False(t, attempt.Verified)
	assert.Equal(t, 80.0, attempt.MatchScore)
	assert.Equal(t, "below_threshold", attempt.ErrorCode)
}

func TestVerifyIdentity_ScoreExactlyAtThresholdPasses(t *testing.T) {
	// Name, DOB and ID match without father name: 30+25+20 = 75 fails, but
	// with a threshold of 75 it passes on the boundary.
	result := IdentityResult{NameMatch: true, DOBMatch: true, IDValid: true}
	cfg := DefaultConfig()
	cfg.IdentityThreshold = 75
	svc, _ := newService(
		MockIdentityProvider{Result: result},
		MockBiometricProvider{},
		MockLivenessProvider{},
		WithConfig(cfg),
	)

	attempt, err := svc.VerifyIdentity(context.Background(), "app-1", applicant())
	require.NoError(t, err)
	assert.True(t, attempt.Verified)
}

func TestVerifyIdentity_ProviderErrorRecordsFailedAttempt(t *testing.T) {
	svc, store := newService(
		MockIdentityProvider{Err: errors.New("registry offline")},
		MockBiometricProvider{},
		MockLivenessProvider{},
	)

	attempt, err := svc.VerifyIdentity(context.Background(), "app-1", applicant())
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, attempt.Status)
	assert.Equal(t, "provider_error", attempt.ErrorCode)

	saved, err := store.Latest(context.Background(), "app-1", TypeIdentity)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, saved.Status)
}

func TestVerifyIdentity_TimeoutIsDistinctFromFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 10 * time.Millisecond
	svc, _ := newService(
		MockIdentityProvider{Latency: 200 * time.Millisecond, Result: fullIdentityMatch()},
		MockBiometricProvider{},
		MockLivenessProvider{},
		WithConfig(cfg),
	)

	attempt, err := svc.VerifyIdentity(context.Background(), "app-1", applicant())
	require.NoError(t, err)
	assert.Equal(t, StatusTimeout, attempt.Status)
	assert.Equal(t, "provider_timeout", attempt.ErrorCode)
}

func TestVerifyIdentity_SuccessfulAttemptIsNotRepeated(t *testing.T) {
	svc, _ := newService(
		MockIdentityProvider{Result: fullIdentityMatch()},
		MockBiometricProvider{},
		MockLivenessProvider{},
	)
	ctx := context.Background()

	first, err := svc.VerifyIdentity(ctx, "app-1", applicant())
	require.NoError(t, err)
	second, err := svc.VerifyIdentity(ctx, "app-1", applicant())
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestVerifyIdentity_RetryBudgetExhausts(t *testing.T) {
	svc, _ := newService(
		MockIdentityProvider{Err: errors.New("registry offline")},
		MockBiometricProvider{},
		MockLivenessProvider{},
	)
	ctx := context.Background()

	// First call plus three retries, then the budget is spent.
	for i := 0; i < 4; i++ {
		attempt, err := svc.VerifyIdentity(ctx, "app-1", applicant())
		require.NoError(t, err)
		assert.Equal(t, i, attempt.RetryCount)
	}

	_, err := svc.VerifyIdentity(ctx, "app-1", applicant())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodePreconditionFailed))
}

func TestVerifyBiometric(t *testing.T) {
	t.Run("above threshold passes", func(t *testing.T) {
		svc, _ := newService(
			MockIdentityProvider{},
			MockBiometricProvider{Score: 92},
			MockLivenessProvider{},
		)
		attempt, err := svc.VerifyBiometric(context.Background(), "app-1", "15059-0123456-7", []byte("selfie"))
		require.NoError(t, err)
		assert.True(t, attempt.Verified)
		assert.Equal(t, 92.0, attempt.MatchScore)
	})

	t.Run("boundary score passes", func(t *testing.T) {
		svc, _ := newService(
			MockIdentityProvider{},
			MockBiometricProvider{Score: 80},
			MockLivenessProvider{},
		)
		attempt, err := svc.VerifyBiometric(context.Background(), "app-1", "15059-0123456-7", []byte("selfie"))
		require.NoError(t, err)
		assert.True(t, attempt.Verified)
	})

	t.Run("below threshold fails", func(t *testing.T) {
		svc, _ := newService(
			MockIdentityProvider{},
			MockBiometricProvider{Score: 79.9},
			MockLivenessProvider{},
		)
		attempt, err := svc.VerifyBiometric(context.Background(), "app-1", "15059-0123456-7", []byte("selfie"))
		require.NoError(t, err)
		assert.False(t, attempt.Verified)
	})

	t.Run("missing sample rejected", func(t *testing.T) {
		svc, _ := newService(MockIdentityProvider{}, MockBiometricProvider{}, MockLivenessProvider{})
		_, err := svc.VerifyBiometric(context.Background(), "app-1", "15059-0123456-7", nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestCheckLiveness(t *testing.T) {
	t.Run("both thresholds met passes", func(t *testing.T) {
		svc, _ := newService(
			MockIdentityProvider{},
			MockBiometricProvider{},
			MockLivenessProvider{Liveness: 85, FaceMatch: 90},
		)
		attempt, err := svc.CheckLiveness(context.Background(), "app-1", "15059-0123456-7", []byte("frames"))
		require.NoError(t, err)
		assert.True(t, attempt.Verified)
		assert.Equal(t, 87.5, attempt.MatchScore)
	})

	t.Run("strong face match cannot carry weak liveness", func(t *testing.T) {
		// Mean is 84.5 but the liveness score alone is below its threshold.
		svc, _ := newService(
			MockIdentityProvider{},
			MockBiometricProvider{},
			MockLivenessProvider{Liveness: 69, FaceMatch: 100},
		)
		attempt, err := svc.CheckLiveness(context.Background(), "app-1", "15059-0123456-7", []byte("frames"))
		require.NoError(t, err)
		assert.False(t, attempt.Verified)
	})

	t.Run("strong liveness cannot carry weak face match", func(t *testing.T) {
		svc, _ := newService(
			MockIdentityProvider{},
			MockBiometricProvider{},
			MockLivenessProvider{Liveness: 100, FaceMatch: 74},
		)
		attempt, err := svc.CheckLiveness(context.Background(), "app-1", "15059-0123456-7", []byte("frames"))
		require.NoError(t, err)
		assert.False(t, attempt.Verified)
	})
}

func TestAttemptCanRetry(t *testing.T) {
	a := &Attempt{Status: StatusFailed, RetryCount: 2}
	assert.True(t, a.CanRetry(3))
	a.RetryCount = 3
	assert.False(t, a.CanRetry(3))
	a = &Attempt{Status: StatusSuccess}
	assert.False(t, a.CanRetry(3))
	a = &Attempt{Status: StatusTimeout, RetryCount: 0}
	assert.True(t, a.CanRetry(3))
}
