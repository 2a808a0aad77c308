package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	dErrors "kycgate/pkg/domain-errors"
)

// PostgresStore persists applications in PostgreSQL. Identity and
// compliance data are stored as JSONB; the decision fields are columns so
// reviewers can query by status.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL for the applications table. Integration tests apply it
// to a fresh container; production uses migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS kyc_applications (
    id               UUID PRIMARY KEY,
    ref              TEXT NOT NULL UNIQUE,
    status           TEXT NOT NULL,
    identity         JSONB NOT NULL,
    consent_given    BOOLEAN NOT NULL DEFAULT FALSE,
    consent_at       TIMESTAMPTZ,
    identity_verified  BOOLEAN NOT NULL DEFAULT FALSE,
    biometric_verified BOOLEAN NOT NULL DEFAULT FALSE,
    sanctions_cleared  BOOLEAN NOT NULL DEFAULT FALSE,
    pep_cleared        BOOLEAN NOT NULL DEFAULT FALSE,
    risk_score       INTEGER NOT NULL DEFAULT 0,
    risk_category    TEXT NOT NULL DEFAULT '',
    account_tier     TEXT NOT NULL DEFAULT '',
    processed_by     TEXT NOT NULL DEFAULT '',
    rejection_reason TEXT NOT NULL DEFAULT '',
    compliance_data  JSONB,
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL,
    submitted_at     TIMESTAMPTZ,
    processed_at     TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_kyc_applications_status ON kyc_applications (status);
`

// EnsureSchema applies the DDL.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "apply applications schema")
	}
	return nil
}

const insertApplication = `
INSERT INTO kyc_applications (
    id, ref, status, identity, consent_given, consent_at,
    identity_verified, biometric_verified, sanctions_cleared, pep_cleared,
    risk_score, risk_category, account_tier, processed_by, rejection_reason,
    compliance_data, created_at, updated_at, submitted_at, processed_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`

func (s *PostgresStore) Create(ctx context.Context, app *Application) error {
	identityJSON, complianceJSON, err := encodeJSONFields(app)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, insertApplication,
		app.ID, app.Ref, app.Status, identityJSON, app.ConsentGiven, app.ConsentAt,
		app.IdentityVerified, app.BiometricVerified, app.SanctionsCleared, app.PEPCleared,
		app.RiskScore, app.RiskCategory, app.AccountTier, app.ProcessedBy, app.RejectionReason,
		complianceJSON, app.CreatedAt, app.UpdatedAt, app.SubmittedAt, app.ProcessedAt,
	)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "insert application")
	}
	return nil
}

const updateApplication = `
UPDATE kyc_applications SET
    status = $2, identity = $3, consent_given = $4, consent_at = $5,
    identity_verified = $6, biometric_verified = $7, sanctions_cleared = $8,
    pep_cleared = $9, risk_score = $10, risk_category = $11, account_tier = $12,
    processed_by = $13, rejection_reason = $14, compliance_data = $15,
    updated_at = $16, submitted_at = $17, processed_at = $18
WHERE id = $1`

func (s *PostgresStore) Update(ctx context.Context, app *Application) error {
	identityJSON, complianceJSON, err := encodeJSONFields(app)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, updateApplication,
		app.ID, app.Status, identityJSON, app.ConsentGiven, app.ConsentAt,
		app.IdentityVerified, app.BiometricVerified, app.SanctionsCleared, app.PEPCleared,
		app.RiskScore, app.RiskCategory, app.AccountTier, app.ProcessedBy, app.RejectionReason,
		complianceJSON, app.UpdatedAt, app.SubmittedAt, app.ProcessedAt,
	)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update application")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	return nil
}

const selectApplication = `
SELECT id, ref, status, identity, consent_given, consent_at,
       identity_verified, biometric_verified, sanctions_cleared, pep_cleared,
       risk_score, risk_category, account_tier, processed_by, rejection_reason,
       compliance_data, created_at, updated_at, submitted_at, processed_at
FROM kyc_applications`

func (s *PostgresStore) Get(ctx context.Context, id string) (*Application, error) {
	row := s.db.QueryRowContext(ctx, selectApplication+" WHERE id = $1", id)
	return scanApplication(row)
}

func (s *PostgresStore) GetByRef(ctx context.Context, ref string) (*Application, error) {
	row := s.db.QueryRowContext(ctx, selectApplication+" WHERE ref = $1", ref)
	return scanApplication(row)
}

func (s *PostgresStore) FindByStatus(ctx context.Context, status Status) ([]*Application, error) {
	rows, err := s.db.QueryContext(ctx, selectApplication+" WHERE status = $1 ORDER BY created_at", status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "query applications by status")
	}
	defer rows.Close()

	var out []*Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "iterate applications")
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM kyc_applications WHERE id = $1", id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete application")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*Application, error) {
	var (
		app            Application
		identityJSON   []byte
		complianceJSON []byte
		consentAt      sql.NullTime
		submittedAt    sql.NullTime
		processedAt    sql.NullTime
	)
	err := row.Scan(
		&app.ID, &app.Ref, &app.Status, &identityJSON, &app.ConsentGiven, &consentAt,
		&app.IdentityVerified, &app.BiometricVerified, &app.SanctionsCleared, &app.PEPCleared,
		&app.RiskScore, &app.RiskCategory, &app.AccountTier, &app.ProcessedBy, &app.RejectionReason,
		&complianceJSON, &app.CreatedAt, &app.UpdatedAt, &submittedAt, &processedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, "application not found")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan application")
	}
	if err := json.Unmarshal(identityJSON, &app.Identity); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeIntegrity, "decode identity")
	}
	if len(complianceJSON) > 0 {
		if err := json.Unmarshal(complianceJSON, &app.ComplianceData); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeIntegrity, "decode compliance data")
		}
	}
	app.ConsentAt = timePtr(consentAt)
	app.SubmittedAt = timePtr(submittedAt)
	app.ProcessedAt = timePtr(processedAt)
	return &app, nil
}

func encodeJSONFields(app *Application) (identityJSON, complianceJSON []byte, err error) {
	identityJSON, err = json.Marshal(app.Identity)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode identity")
	}
	if app.ComplianceData != nil {
		complianceJSON, err = json.Marshal(app.ComplianceData)
		if err != nil {
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode compliance data")
		}
	}
	return identityJSON, complianceJSON, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
