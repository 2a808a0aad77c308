// Package document manages uploaded KYC documents: typing, integrity
// hashing, retention and the OCR field extraction that feeds risk scoring.
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	dErrors "kycgate/pkg/domain-errors"
)

// Type of uploaded document.
type Type string

const (
	TypeCNICFront         Type = "cnic_front"
	TypeCNICBack          Type = "cnic_back"
	TypeSelfie            Type = "selfie"
	TypeUtilityBill       Type = "utility_bill"
	TypeBankStatement     Type = "bank_statement"
	TypeSalaryCertificate Type = "salary_certificate"
)

// MandatoryTypes must all be present before an application can be submitted.
var MandatoryTypes = []Type{TypeCNICFront, TypeCNICBack, TypeSelfie}

func ValidType(t Type) bool {
	switch t {
	case TypeCNICFront, TypeCNICBack, TypeSelfie, TypeUtilityBill, TypeBankStatement, TypeSalaryCertificate:
		return true
	}
	return false
}

// Status of a document through its processing lifecycle.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusVerified   Status = "verified"
	StatusRejected   Status = "rejected"
)

// retentionPeriod is how long documents are kept after upload. Regulatory
// record-keeping requires seven years.
const retentionPeriod = 7 * 365 * 24 * time.Hour

// Record is one uploaded document.
type Record struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	Type          Type      `json:"type"`
	FileName      string    `json:"file_name"`
	ContentType   string    `json:"content_type"`
	SizeBytes     int64     `json:"size_bytes"`
	Hash          string    `json:"hash"`
	Status        Status    `json:"status"`
	RejectionReason string  `json:"rejection_reason,omitempty"`

	Extracted  *ExtractedFields `json:"extracted,omitempty"`
	Confidence float64          `json:"confidence"`

	UploadedAt time.Time `json:"uploaded_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// NewRecord hashes the content and stamps the retention deadline.
func NewRecord(applicationID string, typ Type, fileName, contentType string, content []byte, now time.Time) (*Record, error) {
	if !ValidType(typ) {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown document type %q", typ))
	}
	if len(content) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "document content is empty")
	}
	sum := sha256.Sum256(content)
	return &Record{
		ID:            uuid.NewString(),
		ApplicationID: applicationID,
		Type:          typ,
		FileName:      fileName,
		ContentType:   contentType,
		SizeBytes:     int64(len(content)),
		Hash:          hex.EncodeToString(sum[:]),
		Status:        StatusUploaded,
		UploadedAt:    now,
		ExpiresAt:     now.Add(retentionPeriod),
	}, nil
}

// VerifyIntegrity recomputes the content hash and compares it to the stored
// one.
func (r *Record) VerifyIntegrity(content []byte) bool {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]) == r.Hash
}

// IsTerminal reports whether the document has reached a final status.
func (r *Record) IsTerminal() bool {
	return r.Status == StatusVerified || r.Status == StatusRejected
}

// MarkProcessing moves an uploaded document into OCR processing.
func (r *Record) MarkProcessing() error {
	if r.Status != StatusUploaded {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("cannot process document in status %s", r.Status))
	}
	r.Status = StatusProcessing
	return nil
}

// MarkVerified records the extraction outcome. Terminal statuses never
// change again.
func (r *Record) MarkVerified(extracted *ExtractedFields, confidence float64) error {
	if r.IsTerminal() {
		return dErrors.New(dErrors.CodeInvariantViolation, "document status is final")
	}
	r.Status = StatusVerified
	r.Extracted = extracted
	r.Confidence = confidence
	return nil
}

// MarkRejected records why the document was refused.
func (r *Record) MarkRejected(reason string) error {
	if r.IsTerminal() {
		return dErrors.New(dErrors.CodeInvariantViolation, "document status is final")
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeValidation, "rejection reason is required")
	}
	r.Status = StatusRejected
	r.RejectionReason = reason
	return nil
}

// Expired reports whether the retention period has lapsed.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// MissingMandatory returns the mandatory types absent from the given set.
func MissingMandatory(docs []*Record) []Type {
	present := make(map[Type]bool, len(docs))
	for _, d := range docs {
		if d.Status != StatusRejected {
			present[d.Type] = true
		}
	}
	var missing []Type
	for _, t := range MandatoryTypes {
		if !present[t] {
			missing = append(missing, t)
		}
	}
	return missing
}

// AverageConfidence is the mean OCR confidence over verified documents,
// zero when none have been processed.
func AverageConfidence(docs []*Record) float64 {
	total, n := 0.0, 0
	for _, d := range docs {
		if d.Status == StatusVerified {
			total += d.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}
