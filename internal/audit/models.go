// Package audit records compliance-relevant events: every application state
// change, screening outcome and regulator filing. Events are append-only and
// published asynchronously so the hot path never blocks on the audit sink.
package audit

import "time"

// Action identifies what happened.
type Action string

const (
	ActionApplicationCreated   Action = "application_created"
	ActionApplicationSubmitted Action = "application_submitted"
	ActionAutoApproved         Action = "application_auto_approved"
	ActionUnderReview          Action = "application_under_review"
	ActionApproved             Action = "application_approved"
	ActionRejected             Action = "application_rejected"
	ActionDeleted              Action = "application_deleted"
	ActionScreeningCompleted   Action = "screening_completed"
	ActionScreeningFailed      Action = "screening_failed"
	ActionReportedToFMU        Action = "reported_to_fmu"
	ActionVerificationCompleted Action = "verification_completed"
	ActionVerificationFailed   Action = "verification_failed"
)

// Event is one audit log entry. Subject is the application the event
// concerns; Actor is the human or system component that caused it.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	Subject   string    `json:"subject"`
	Actor     string    `json:"actor,omitempty"`
	Decision  string    `json:"decision,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Detail    map[string]string `json:"detail,omitempty"`
}
