// Package application owns the KYC application aggregate: its state machine
// from intake to decision, the processing pipeline that joins verification,
// screening and risk scoring, and the reviewer operations on the outcome.
package application

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"kycgate/internal/identity"
	"kycgate/internal/risk"
	dErrors "kycgate/pkg/domain-errors"
)

// Status of an application.
type Status string

const (
	StatusPending     Status = "pending"
	StatusInProgress  Status = "in_progress"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// AccountTier granted on approval.
type AccountTier string

const (
	TierBasic   AccountTier = "basic"
	TierStandard AccountTier = "standard"
	TierPremium AccountTier = "premium"
)

func ValidTier(t AccountTier) bool {
	switch t {
	case TierBasic, TierStandard, TierPremium:
		return true
	}
	return false
}

// SystemActor marks decisions made by the pipeline rather than a reviewer.
const SystemActor = "system"

// Application is the KYC aggregate.
type Application struct {
	ID       string          `json:"id"`
	Ref      string          `json:"ref"`
	Identity identity.Record `json:"identity"`
	Status   Status          `json:"status"`

	ConsentGiven bool       `json:"consent_given"`
	ConsentAt    *time.Time `json:"consent_at,omitempty"`

	IdentityVerified  bool `json:"identity_verified"`
	BiometricVerified bool `json:"biometric_verified"`
	SanctionsCleared  bool `json:"sanctions_cleared"`
	PEPCleared        bool `json:"pep_cleared"`

	RiskScore    int           `json:"risk_score"`
	RiskCategory risk.Category `json:"risk_category"`

	AccountTier     AccountTier `json:"account_tier,omitempty"`
	ProcessedBy     string      `json:"processed_by,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`

	ComplianceData map[string]string `json:"compliance_data,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

// NewApplication validates the identity record and opens a pending
// application with a human-readable reference.
func NewApplication(rec identity.Record, now time.Time) (*Application, error) {
	rec.Normalize()
	if err := rec.Validate(now); err != nil {
		return nil, err
	}
	ref, err := newRef(now)
	if err != nil {
		return nil, err
	}
	return &Application{
		ID:        uuid.NewString(),
		Ref:       ref,
		Identity:  rec,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// newRef builds the customer-facing reference, KYC-<year>-<8 hex chars>.
func newRef(now time.Time) (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "generate application ref")
	}
	return fmt.Sprintf("KYC-%d-%s", now.Year(), strings.ToUpper(hex.EncodeToString(buf))), nil
}

// IsTerminal reports whether the application has reached a final decision.
func (a *Application) IsTerminal() bool {
	return a.Status == StatusApproved || a.Status == StatusRejected
}

// IsCompliant reports whether every compliance check has passed.
func (a *Application) IsCompliant() bool {
	return a.IdentityVerified && a.BiometricVerified && a.SanctionsCleared && a.PEPCleared
}

// ProgressPercentage reports how far through the five compliance steps the
// application is: submission plus the four check flags, 20 points each.
func (a *Application) ProgressPercentage() int {
	progress := 0
	if a.Status != StatusPending {
		progress += 20
	}
	if a.IdentityVerified {
		progress += 20
	}
	if a.BiometricVerified {
		progress += 20
	}
	if a.SanctionsCleared {
		progress += 20
	}
	if a.PEPCleared {
		progress += 20
	}
	return progress
}
