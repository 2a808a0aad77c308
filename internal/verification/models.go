// Package verification runs third-party identity checks for KYC
// applications: registry identity matching, biometric comparison and
// liveness detection. Each call is recorded as an Attempt so retries and
// provider failures stay auditable.
package verification

import (
	"time"

	"github.com/google/uuid"
)

// Type of verification performed.
type Type string

const (
	TypeIdentity  Type = "identity"
	TypeBiometric Type = "biometric"
	TypeLiveness  Type = "liveness"
)

// Status of a verification attempt. Timeout is distinct from failure so
// operators can tell a slow provider from a rejected applicant.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusTimeout Status = "timeout"
)

// Attempt records one provider call and its outcome.
type Attempt struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"application_id"`
	Type          Type       `json:"type"`
	Provider      string     `json:"provider"`
	Status        Status     `json:"status"`
	MatchScore    float64    `json:"match_score"`
	Verified      bool       `json:"verified"`
	SessionRef    string     `json:"session_ref,omitempty"`
	ErrorCode     string     `json:"error_code,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	RetryCount    int        `json:"retry_count"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func newAttempt(applicationID string, typ Type, provider string, now time.Time) *Attempt {
	return &Attempt{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		Type:          typ,
		Provider:      provider,
		Status:        StatusPending,
		StartedAt:     now,
	}
}

// CanRetry reports whether another provider call is allowed: only failed or
// timed-out attempts retry, and only below the configured ceiling.
func (a *Attempt) CanRetry(maxRetries int) bool {
	if a.Status != StatusFailed && a.Status != StatusTimeout {
		return false
	}
	return a.RetryCount < maxRetries
}

func (a *Attempt) complete(status Status, now time.Time) {
	a.Status = status
	a.CompletedAt = &now
}
