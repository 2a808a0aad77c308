package application

import (
	"fmt"
	"time"

	dErrors "kycgate/pkg/domain-errors"
)

// transitions is the full status graph. Anything absent is forbidden;
// approved and rejected have no outgoing edges.
var transitions = map[Status][]Status{
	StatusPending:     {StatusInProgress, StatusRejected},
	StatusInProgress:  {StatusApproved, StatusUnderReview, StatusRejected},
	StatusUnderReview: {StatusApproved, StatusRejected},
}

// CanTransition reports whether the status graph permits from → to.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (a *Application) transition(to Status, now time.Time) error {
	if !CanTransition(a.Status, to) {
		return dErrors.New(dErrors.CodePreconditionFailed,
			fmt.Sprintf("cannot move application from %s to %s", a.Status, to))
	}
	a.Status = to
	a.UpdatedAt = now
	return nil
}

// Submit moves a pending application into processing. The service checks
// mandatory documents before calling; consent is checked here because it is
// an aggregate invariant, not a stored lookup.
func (a *Application) Submit(consent bool, now time.Time) error {
	if a.Status != StatusPending {
		return dErrors.New(dErrors.CodePreconditionFailed,
			fmt.Sprintf("cannot submit application in status %s", a.Status))
	}
	if !consent {
		return dErrors.New(dErrors.CodeValidation, "applicant consent is required")
	}
	if err := a.transition(StatusInProgress, now); err != nil {
		return err
	}
	a.ConsentGiven = true
	a.ConsentAt = &now
	a.SubmittedAt = &now
	return nil
}

// MarkUnderReview parks a processed application for an analyst.
func (a *Application) MarkUnderReview(now time.Time) error {
	return a.transition(StatusUnderReview, now)
}

// Approve finalizes the application with an account tier. A tier is always
// required; actor is the reviewer, or SystemActor for auto-approval.
func (a *Application) Approve(actor string, tier AccountTier, now time.Time) error {
	if actor == "" {
		return dErrors.New(dErrors.CodeValidation, "approving actor is required")
	}
	if !ValidTier(tier) {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown account tier %q", tier))
	}
	if err := a.transition(StatusApproved, now); err != nil {
		return err
	}
	a.AccountTier = tier
	a.ProcessedBy = actor
	a.ProcessedAt = &now
	return nil
}

// Reject finalizes the application with a reason. Rejection is allowed from
// any non-terminal status, but never without a reason.
func (a *Application) Reject(actor, reason string, now time.Time) error {
	if actor == "" {
		return dErrors.New(dErrors.CodeValidation, "rejecting actor is required")
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	if err := a.transition(StatusRejected, now); err != nil {
		return err
	}
	a.RejectionReason = reason
	a.ProcessedBy = actor
	a.ProcessedAt = &now
	return nil
}
