package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/identity"
)

var now = time.Date(2026, time.April, 10, 9, 0, 0, 0, time.UTC)

func newPending(t *testing.T) *Application {
	t.Helper()
	app, err := NewApplication(identity.Record{
		CNIC:        "15059-0123456-7",
		FullName:    "Ahmed Khan",
		FatherName:  "Imran Khan",
		DateOfBirth: time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC),
		Gender:      identity.GenderMale,
	}, now)
	require.NoError(t, err)
	return app
}

func TestNew(t *testing.T) {
	app := newPending(t)
	assert.Equal(t, StatusPending, app.Status)
	assert.Regexp(t, `^KYC-2026-[0-9A-F]{8}$`, app.Ref)
	assert.False(t, app.IsTerminal())
	assert.False(t, app.IsCompliant())
}

func TestNew_NormalizesIdentity(t *testing.T) {
	app, err := NewApplication(identity.Record{
		CNIC:        "1505901234567",
		FullName:    "  Ahmed   Khan ",
		FatherName:  "Imran Khan",
		DateOfBirth: time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC),
		Gender:      identity.GenderMale,
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "15059-0123456-7", app.Identity.CNIC)
	assert.Equal(t, "Ahmed Khan", app.Identity.FullName)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusInProgress, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusApproved, false},
		{StatusPending, StatusUnderReview, false},
		{StatusInProgress, StatusApproved, true},
		{StatusInProgress, StatusUnderReview, true},
		{StatusInProgress, StatusRejected, true},
		{StatusUnderReview, StatusApproved, true},
		{StatusUnderReview, StatusRejected, true},
		{StatusUnderReview, StatusInProgress, false},
		{StatusApproved, StatusRejected, false},
		{StatusApproved, StatusUnderReview, false},
		{StatusRejected, StatusApproved, false},
		{StatusRejected, StatusInProgress, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestSubmitSetsConsentAndTimestamps(t *testing.T) {
	app := newPending(t)
	require.NoError(t, app.Submit(true, now))
	assert.Equal(t, StatusInProgress, app.Status)
	assert.True(t, app.ConsentGiven)
	require.NotNil(t, app.ConsentAt)
	require.NotNil(t, app.SubmittedAt)
	assert.Equal(t, now, *app.SubmittedAt)
}

func TestSubmitWithoutConsent(t *testing.T) {
	app := newPending(t)
	err := app.Submit(false, now)
	require.Error(t, err)
	assert.Equal(t, StatusPending, app.Status)
}

func TestApproveRequiresTier(t *testing.T) {
	app := newPending(t)
	require.NoError(t, app.Submit(true, now))
	require.NoError(t, app.MarkUnderReview(now))

	assert.Error(t, app.Approve("reviewer-1", "", now))
	assert.Error(t, app.Approve("reviewer-1", AccountTier("platinum"), now))
	require.NoError(t, app.Approve("reviewer-1", TierPremium, now))
	assert.Equal(t, TierPremium, app.AccountTier)
	assert.True(t, app.IsTerminal())
}

func TestRejectRequiresReason(t *testing.T) {
	app := newPending(t)
	assert.Error(t, app.Reject("reviewer-1", "", now))
	require.NoError(t, app.Reject("reviewer-1", "forged documents", now))
	assert.Equal(t, "forged documents", app.RejectionReason)
	assert.Equal(t, "reviewer-1", app.ProcessedBy)

	// Terminal, no further transitions.
	assert.Error(t, app.Submit(true, now))
	assert.Error(t, app.Approve("reviewer-2", TierBasic, now))
}

func TestIsCompliant_RequiresEveryFlag(t *testing.T) {
	for mask := 0; mask < 16; mask++ {
		app := Application{
			IdentityVerified:  mask&1 != 0,
			BiometricVerified: mask&2 != 0,
			SanctionsCleared:  mask&4 != 0,
			PEPCleared:        mask&8 != 0,
		}
		assert.Equal(t, mask == 15, app.IsCompliant(), "mask %04b", mask)
	}
}

func TestProgressPercentage(t *testing.T) {
	app := newPending(t)
	assert.Equal(t, 0, app.ProgressPercentage())

	require.NoError(t, app.Submit(true, now))
	assert.Equal(t, 20, app.ProgressPercentage())

	app.IdentityVerified = true
	app.BiometricVerified = true
	assert.Equal(t, 60, app.ProgressPercentage())

	app.SanctionsCleared = true
	app.PEPCleared = true
	assert.Equal(t, 100, app.ProgressPercentage())
	assert.True(t, app.IsCompliant())
}
