// Package screening runs watchlist checks for KYC applications: UN and
// domestic sanctions lists, PEP lists and the local proscribed-persons list.
// Each list produces one Result per application; results feed the compliance
// flags the application state machine acts on.
package screening

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	dErrors "kycgate/pkg/domain-errors"
)

// ListName identifies a watchlist.
type ListName string

const (
	ListUNSanctions    ListName = "un_sanctions"
	ListTFSRegime      ListName = "tfs_regime"
	ListPEP            ListName = "pep_check"
	ListLocalProscribed ListName = "local_proscribed"
	ListOFAC           ListName = "ofac"
)

// AllLists is the set screened for every application, in a stable order.
var AllLists = []ListName{ListUNSanctions, ListTFSRegime, ListPEP, ListLocalProscribed, ListOFAC}

// IsPEP reports whether the list tracks politically exposed persons rather
// than sanctioned entities. PEP matches never clear automatically.
func (l ListName) IsPEP() bool { return l == ListPEP }

// Reportable reports whether matches on this list are filed with the
// Financial Monitoring Unit. PEP and OFAC hits stay in manual review without
// a regulator filing.
func (l ListName) Reportable() bool {
	return l == ListUNSanctions || l == ListTFSRegime || l == ListLocalProscribed
}

// Entry is a single watchlist record as loaded from the list source.
type Entry struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	FatherName  string   `json:"father_name,omitempty"`
	DateOfBirth string   `json:"date_of_birth,omitempty"`
	Nationality string   `json:"nationality,omitempty"`
	ListedAt    string   `json:"listed_at,omitempty"`
	Reference   string   `json:"reference,omitempty"`
}

// MatchBasis records which field of the entry produced the winning score.
type MatchBasis string

const (
	BasisName  MatchBasis = "name"
	BasisAlias MatchBasis = "alias"
)

// Match is one watchlist entry that scored at or above the match threshold.
type Match struct {
	Entry Entry      `json:"entry"`
	Score float64    `json:"score"`
	Basis MatchBasis `json:"basis"`
}

// Status of a screening result.
type Status string

const (
	StatusPending       Status = "pending"
	StatusClear         Status = "clear"
	StatusMatchFound    Status = "match_found"
	StatusFalsePositive Status = "false_positive"
	StatusUnderReview   Status = "under_review"
)

// RiskLevel derived from the highest match score on a result.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

func riskLevelFromScore(score float64) RiskLevel {
	switch {
	case score >= 90:
		return RiskCritical
	case score >= 75:
		return RiskHigh
	case score >= 50:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Result is the outcome of screening one application against one list.
type Result struct {
	ID            string     `json:"id"`
	ApplicationID string     `json:"application_id"`
	List          ListName   `json:"list"`
	Status        Status     `json:"status"`
	RiskLevel     RiskLevel  `json:"risk_level"`
	Matches       []Match    `json:"matches,omitempty"`
	HighestScore  float64    `json:"highest_score"`
	RequiresManualReview bool `json:"requires_manual_review"`
	FailureReason string     `json:"failure_reason,omitempty"`

	ReportedToFMU bool       `json:"reported_to_fmu"`
	FMUReference  string     `json:"fmu_reference,omitempty"`
	ReportedAt    *time.Time `json:"reported_at,omitempty"`

	ReviewedBy string     `json:"reviewed_by,omitempty"`
	ReviewNote string     `json:"review_note,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	ScreenedAt time.Time `json:"screened_at"`
}

func newResult(applicationID string, list ListName, now time.Time) *Result {
	return &Result{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		List:          list,
		Status:        StatusPending,
		RiskLevel:     RiskLow,
		ScreenedAt:    now,
	}
}

func (r *Result) markClear() {
	r.Status = StatusClear
	r.RiskLevel = RiskLow
	r.Matches = nil
	r.HighestScore = 0
	r.RequiresManualReview = false
}

// markMatchFound records the matches in descending score order and derives
// the risk level. A local proscribed-persons hit is always critical. Any
// match above low risk needs an analyst, and PEP hits need one regardless
// of level.
func (r *Result) markMatchFound(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	r.Status = StatusMatchFound
	r.Matches = matches
	r.HighestScore = matches[0].Score
	r.RiskLevel = riskLevelFromScore(r.HighestScore)
	if r.List == ListLocalProscribed {
		r.RiskLevel = RiskCritical
	}
	r.RequiresManualReview = r.RiskLevel != RiskLow || r.List.IsPEP()
}

// markUnderReview records a technical screening failure. The application
// must not clear on a failed check, so the result is parked for an analyst.
func (r *Result) markUnderReview(reason string) {
	r.Status = StatusUnderReview
	r.FailureReason = reason
	r.RequiresManualReview = true
}

// MarkFalsePositive resolves a match as a false positive. Only results with
// an open match can be resolved, and a resolved result stays resolved.
func (r *Result) MarkFalsePositive(reviewer, note string, now time.Time) error {
	if reviewer == "" {
		return dErrors.New(dErrors.CodeValidation, "reviewer is required")
	}
	if r.Status != StatusMatchFound && r.Status != StatusUnderReview {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("cannot mark %s result as false positive", r.Status))
	}
	r.Status = StatusFalsePositive
	r.RequiresManualReview = false
	r.ReviewedBy = reviewer
	r.ReviewNote = note
	r.ReviewedAt = &now
	return nil
}

// ConfirmMatch records an analyst confirming the hit is genuine. The match
// stays on the record; only the review obligation is discharged.
func (r *Result) ConfirmMatch(reviewer, note string, now time.Time) error {
	if reviewer == "" {
		return dErrors.New(dErrors.CodeValidation, "reviewer is required")
	}
	if r.Status != StatusMatchFound {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("cannot confirm %s result", r.Status))
	}
	r.RequiresManualReview = false
	r.ReviewedBy = reviewer
	r.ReviewNote = note
	r.ReviewedAt = &now
	return nil
}

// Escalate raises a result to critical and reopens manual review.
func (r *Result) Escalate(reviewer, note string, now time.Time) error {
	if reviewer == "" {
		return dErrors.New(dErrors.CodeValidation, "reviewer is required")
	}
	if r.Status != StatusMatchFound && r.Status != StatusUnderReview {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("cannot escalate %s result", r.Status))
	}
	r.RiskLevel = RiskCritical
	r.RequiresManualReview = true
	r.ReviewedBy = reviewer
	r.ReviewNote = note
	r.ReviewedAt = &now
	return nil
}

// ShouldReport reports whether this result must be filed with the Financial
// Monitoring Unit: a match on a reportable list at high or critical risk
// that has not already been filed and was not resolved as a false positive.
func (r *Result) ShouldReport() bool {
	return r.List.Reportable() &&
		r.Status == StatusMatchFound &&
		(r.RiskLevel == RiskHigh || r.RiskLevel == RiskCritical) &&
		!r.ReportedToFMU
}

// markReported records the FMU filing reference.
func (r *Result) markReported(reference string, now time.Time) {
	r.ReportedToFMU = true
	r.FMUReference = reference
	r.ReportedAt = &now
}

// Flags are the compliance booleans derived from a full set of results for
// one application.
type Flags struct {
	SanctionsCleared bool
	PEPCleared       bool
}

// ComputeFlags folds a set of results into compliance flags. Sanctions are
// cleared only when no non-PEP list has an unresolved hit or an unresolved
// technical failure; PEP clearance is the same test over the PEP list.
// A missing result for a list counts as not cleared.
func ComputeFlags(results []*Result) Flags {
	f := Flags{SanctionsCleared: true, PEPCleared: true}
	seen := make(map[ListName]bool, len(results))
	for _, r := range results {
		seen[r.List] = true
		open := r.Status == StatusMatchFound || r.Status == StatusUnderReview || r.Status == StatusPending
		if !open {
			continue
		}
		if r.List.IsPEP() {
			f.PEPCleared = false
		} else {
			f.SanctionsCleared = false
		}
	}
	for _, l := range AllLists {
		if seen[l] {
			continue
		}
		if l.IsPEP() {
			f.PEPCleared = false
		} else {
			f.SanctionsCleared = false
		}
	}
	return f
}

// Summary aggregates an application's screening state for reviewers.
type Summary struct {
	ApplicationID    string             `json:"application_id"`
	Lists            map[ListName]Status `json:"lists"`
	HighestRiskLevel RiskLevel          `json:"highest_risk_level"`
	OpenMatches      int                `json:"open_matches"`
	PendingReview    int                `json:"pending_review"`
	ReportedToFMU    int                `json:"reported_to_fmu"`
	SanctionsCleared bool               `json:"sanctions_cleared"`
	PEPCleared       bool               `json:"pep_cleared"`
}
