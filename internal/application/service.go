package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"kycgate/internal/application/metrics"
	"kycgate/internal/audit"
	"kycgate/internal/document"
	"kycgate/internal/identity"
	"kycgate/internal/risk"
	"kycgate/internal/screening"
	"kycgate/internal/verification"
	dErrors "kycgate/pkg/domain-errors"
)

// Screener runs all watchlist checks for an application.
type Screener interface {
	ScreenAll(ctx context.Context, applicationID string, rec identity.Record) ([]*screening.Result, screening.Flags, error)
}

// Verifier runs provider verification calls.
type Verifier interface {
	VerifyIdentity(ctx context.Context, applicationID string, rec identity.Record) (*verification.Attempt, error)
	VerifyBiometric(ctx context.Context, applicationID, cnic string, selfie []byte) (*verification.Attempt, error)
	CheckLiveness(ctx context.Context, applicationID, cnic string, sample []byte) (*verification.Attempt, error)
	Attempts(ctx context.Context, applicationID string) ([]*verification.Attempt, error)
}

// OCRProvider turns document content into text lines plus an optional
// provider-reported confidence. Zero confidence means the provider did not
// score the scan and the extractor's own score applies.
type OCRProvider interface {
	Recognize(ctx context.Context, content []byte) (lines []string, confidence float64, err error)
}

// Cascader deletes per-application records, used for the pending-delete
// cascade across stores.
type Cascader interface {
	DeleteByApplication(ctx context.Context, applicationID string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config carries the auto-approval policy.
type Config struct {
	// AutoApproveMaxScore is the highest risk score eligible for automatic
	// approval.
	AutoApproveMaxScore int
	// AutoApproveTier is granted on automatic approval.
	AutoApproveTier AccountTier
}

func DefaultConfig() Config {
	return Config{AutoApproveMaxScore: 30, AutoApproveTier: TierBasic}
}

// Service orchestrates the application lifecycle.
type Service struct {
	store    Store
	docs     document.Store
	blobs    BlobStore
	screener Screener
	verifier Verifier
	assessor *risk.Engine
	ocr      OCRProvider
	cascades []Cascader
	cfg      Config
	locks    keyedLocks
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audit    AuditPublisher
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

func WithOCRProvider(p OCRProvider) Option {
	return func(s *Service) {
		s.ocr = p
	}
}

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithCascades registers stores whose per-application records are removed
// when a pending application is deleted.
func WithCascades(cascades ...Cascader) Option {
	return func(s *Service) {
		s.cascades = cascades
	}
}

func New(store Store, docs document.Store, blobs BlobStore, screener Screener, verifier Verifier, assessor *risk.Engine, opts ...Option) *Service {
	s := &Service{
		store:    store,
		docs:     docs,
		blobs:    blobs,
		screener: screener,
		verifier: verifier,
		assessor: assessor,
		cfg:      DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates the applicant identity and opens a pending application.
func (s *Service) Create(ctx context.Context, rec identity.Record) (*Application, error) {
	app, err := NewApplication(rec, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create application")
	}
	s.metrics.RecordEvent("created")
	s.emit(ctx, audit.Event{
		Action:  audit.ActionApplicationCreated,
		Subject: app.ID,
		Actor:   SystemActor,
		Detail:  map[string]string{"ref": app.Ref},
	})
	s.logger.InfoContext(ctx, "application created", "application_id", app.ID, "ref", app.Ref)
	return app, nil
}

// Get returns one application by id.
func (s *Service) Get(ctx context.Context, id string) (*Application, error) {
	return s.store.Get(ctx, id)
}

// GetByRef returns one application by its customer-facing reference.
func (s *Service) GetByRef(ctx context.Context, ref string) (*Application, error) {
	return s.store.GetByRef(ctx, ref)
}

// UploadDocument stores a document's content and metadata against a pending
// application. One live document per type; a rejected upload can be
// replaced. Non-selfie documents are OCR'd inline when a provider is wired.
func (s *Service) UploadDocument(ctx context.Context, applicationID string, typ document.Type, fileName, contentType string, content []byte) (*document.Record, error) {
	unlock := s.locks.lock(applicationID)
	defer unlock()

	app, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusPending {
		return nil, dErrors.New(dErrors.CodePreconditionFailed,
			fmt.Sprintf("cannot upload documents to application in status %s", app.Status))
	}

	existing, err := s.docs.FindByApplication(ctx, applicationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load documents")
	}
	for _, d := range existing {
		if d.Type == typ && d.Status != document.StatusRejected {
			return nil, dErrors.New(dErrors.CodeConflict,
				fmt.Sprintf("a %s document is already on file", typ))
		}
	}

	rec, err := document.NewRecord(applicationID, typ, fileName, contentType, content, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.blobs.Put(ctx, rec.ID, content); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store document content")
	}

	if s.ocr != nil && typ != document.TypeSelfie {
		s.extractFields(ctx, rec, content)
	}

	if err := s.docs.Save(ctx, rec); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save document")
	}
	s.metrics.RecordEvent("document_uploaded")
	s.logger.InfoContext(ctx, "document uploaded",
		"application_id", applicationID,
		"document_id", rec.ID,
		"type", typ,
		"status", rec.Status,
		"confidence", rec.Confidence,
	)
	return rec, nil
}

// FetchDocument returns a document record and its stored content. Content
// whose hash no longer matches the record is never served.
func (s *Service) FetchDocument(ctx context.Context, documentID string) (*document.Record, []byte, error) {
	rec, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	content, err := s.blobs.Get(ctx, rec.ID)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "load document content")
	}
	if !rec.VerifyIntegrity(content) {
		s.logger.ErrorContext(ctx, "document hash mismatch",
			"application_id", rec.ApplicationID,
			"document_id", rec.ID,
		)
		return nil, nil, dErrors.New(dErrors.CodeIntegrity,
			fmt.Sprintf("stored content for document %s does not match its recorded hash", rec.ID))
	}
	return rec, content, nil
}

// extractFields runs OCR over the content. A provider failure leaves the
// document uploaded but unscored rather than rejecting it; the risk engine
// penalizes the missing confidence instead.
func (s *Service) extractFields(ctx context.Context, rec *document.Record, content []byte) {
	if err := rec.MarkProcessing(); err != nil {
		return
	}
	lines, providerConfidence, err := s.ocr.Recognize(ctx, content)
	if err != nil {
		rec.Status = document.StatusUploaded
		s.logger.ErrorContext(ctx, "ocr extraction failed",
			"application_id", rec.ApplicationID,
			"document_id", rec.ID,
			"error", err,
		)
		return
	}
	fields := document.Extract(lines)
	confidence := fields.ConfidenceScore()
	if providerConfidence > 0 {
		confidence = providerConfidence
	}
	if err := rec.MarkVerified(fields, confidence); err != nil {
		s.logger.ErrorContext(ctx, "document verify failed", "document_id", rec.ID, "error", err)
	}
}

// Submit moves a pending application into processing once the mandatory
// documents are on file and consent is given.
func (s *Service) Submit(ctx context.Context, applicationID string, consent bool) (*Application, error) {
	unlock := s.locks.lock(applicationID)
	defer unlock()

	app, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	docs, err := s.docs.FindByApplication(ctx, applicationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load documents")
	}
	if missing := document.MissingMandatory(docs); len(missing) > 0 {
		return nil, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("mandatory documents missing: %v", missing))
	}
	if err := app.Submit(consent, time.Now()); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save application")
	}
	s.metrics.RecordEvent("submitted")
	s.emit(ctx, audit.Event{
		Action:  audit.ActionApplicationSubmitted,
		Subject: app.ID,
		Actor:   SystemActor,
	})
	s.logger.InfoContext(ctx, "application submitted", "application_id", app.ID)
	return app, nil
}

// Process runs the full compliance pipeline: verification and screening fan
// out concurrently, join, and the combined outcome is risk-scored and
// decided. Provider failures do not abort the pipeline; the affected check
// simply stays unverified and weighs into the risk score.
func (s *Service) Process(ctx context.Context, applicationID string) (*Application, error) {
	unlock := s.locks.lock(applicationID)
	defer unlock()

	start := time.Now()
	app, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusInProgress {
		return nil, dErrors.New(dErrors.CodePreconditionFailed,
			fmt.Sprintf("cannot process application in status %s", app.Status))
	}

	docs, err := s.docs.FindByApplication(ctx, applicationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load documents")
	}
	selfie, err := s.selfieContent(ctx, docs)
	if err != nil {
		return nil, err
	}

	var (
		idAttempt, bioAttempt, liveAttempt *verification.Attempt
		flags                              screening.Flags
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		attempt, err := s.verifier.VerifyIdentity(gctx, app.ID, app.Identity)
		if err != nil {
			s.logger.ErrorContext(gctx, "identity verification unavailable", "application_id", app.ID, "error", err)
			return nil
		}
		idAttempt = attempt
		return nil
	})
	g.Go(func() error {
		attempt, err := s.verifier.VerifyBiometric(gctx, app.ID, app.Identity.CNIC, selfie)
		if err != nil {
			s.logger.ErrorContext(gctx, "biometric verification unavailable", "application_id", app.ID, "error", err)
			return nil
		}
		bioAttempt = attempt
		return nil
	})
	g.Go(func() error {
		attempt, err := s.verifier.CheckLiveness(gctx, app.ID, app.Identity.CNIC, selfie)
		if err != nil {
			s.logger.ErrorContext(gctx, "liveness check unavailable", "application_id", app.ID, "error", err)
			return nil
		}
		liveAttempt = attempt
		return nil
	})
	g.Go(func() error {
		_, screeningFlags, err := s.screener.ScreenAll(gctx, app.ID, app.Identity)
		if err != nil {
			s.logger.ErrorContext(gctx, "screening unavailable", "application_id", app.ID, "error", err)
			return nil
		}
		flags = screeningFlags
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	app.IdentityVerified = idAttempt != nil && idAttempt.Verified
	app.BiometricVerified = bioAttempt != nil && bioAttempt.Verified &&
		liveAttempt != nil && liveAttempt.Verified
	app.SanctionsCleared = flags.SanctionsCleared
	app.PEPCleared = flags.PEPCleared

	assessment := s.assessor.Assess(risk.Input{
		IdentityVerified:      app.IdentityVerified,
		BiometricVerified:     app.BiometricVerified,
		SanctionsCleared:      app.SanctionsCleared,
		PEPCleared:            app.PEPCleared,
		Age:                   app.Identity.AgeAt(start),
		AvgDocumentConfidence: document.AverageConfidence(docs),
	})
	app.RiskScore = assessment.Score
	app.RiskCategory = assessment.Category

	now := time.Now()
	if app.IsCompliant() && app.RiskScore <= s.cfg.AutoApproveMaxScore && app.RiskCategory == risk.CategoryLow {
		if err := app.Approve(SystemActor, s.cfg.AutoApproveTier, now); err != nil {
			return nil, err
		}
		s.metrics.RecordDecision("auto_approved", SystemActor, time.Since(start), app.RiskScore)
		s.emit(ctx, audit.Event{
			Action:   audit.ActionAutoApproved,
			Subject:  app.ID,
			Actor:    SystemActor,
			Decision: string(app.AccountTier),
		})
	} else {
		if err := app.MarkUnderReview(now); err != nil {
			return nil, err
		}
		s.metrics.RecordDecision("under_review", SystemActor, time.Since(start), app.RiskScore)
		s.emit(ctx, audit.Event{
			Action:  audit.ActionUnderReview,
			Subject: app.ID,
			Actor:   SystemActor,
			Reason:  fmt.Sprintf("risk score %d (%s)", app.RiskScore, app.RiskCategory),
		})
	}

	if err := s.store.Update(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save application")
	}
	s.logger.InfoContext(ctx, "application processed",
		"application_id", app.ID,
		"status", app.Status,
		"risk_score", app.RiskScore,
		"risk_category", app.RiskCategory,
		"progress", app.ProgressPercentage(),
	)
	return app, nil
}

// Approve finalizes an under-review application. Reviewer and tier are both
// required.
func (s *Service) Approve(ctx context.Context, applicationID, reviewer string, tier AccountTier) (*Application, error) {
	unlock := s.locks.lock(applicationID)
	defer unlock()

	app, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != StatusUnderReview {
		return nil, dErrors.New(dErrors.CodePreconditionFailed,
			fmt.Sprintf("only under_review applications can be approved by a reviewer, got %s", app.Status))
	}
	if err := app.Approve(reviewer, tier, time.Now()); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save application")
	}
	s.metrics.RecordDecision("approved", "reviewer", 0, app.RiskScore)
	s.emit(ctx, audit.Event{
		Action:   audit.ActionApproved,
		Subject:  app.ID,
		Actor:    reviewer,
		Decision: string(tier),
	})
	s.logger.InfoContext(ctx, "application approved",
		"application_id", app.ID, "reviewer", reviewer, "tier", tier)
	return app, nil
}

// Reject finalizes an application with a reason, from any non-terminal
// status.
func (s *Service) Reject(ctx context.Context, applicationID, actor, reason string) (*Application, error) {
	unlock := s.locks.lock(applicationID)
	defer unlock()

	app, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if err := app.Reject(actor, reason, time.Now()); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, app); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save application")
	}
	s.metrics.RecordDecision("rejected", "reviewer", 0, app.RiskScore)
	s.emit(ctx, audit.Event{
		Action:  audit.ActionRejected,
		Subject: app.ID,
		Actor:   actor,
		Reason:  reason,
	})
	s.logger.InfoContext(ctx, "application rejected",
		"application_id", app.ID, "actor", actor, "reason", reason)
	return app, nil
}

// Delete removes a pending application and cascades across every store
// holding its records. Anything past pending is part of the compliance
// record and cannot be deleted.
func (s *Service) Delete(ctx context.Context, applicationID string) error {
	unlock := s.locks.lock(applicationID)
	defer unlock()

	app, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.Status != StatusPending {
		return dErrors.New(dErrors.CodePreconditionFailed,
			fmt.Sprintf("cannot delete application in status %s", app.Status))
	}

	docs, err := s.docs.FindByApplication(ctx, applicationID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load documents")
	}
	for _, d := range docs {
		if err := s.blobs.Delete(ctx, d.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "delete document content")
		}
	}
	if err := s.docs.DeleteByApplication(ctx, applicationID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete documents")
	}
	for _, c := range s.cascades {
		if err := c.DeleteByApplication(ctx, applicationID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "cascade delete")
		}
	}
	if err := s.store.Delete(ctx, applicationID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete application")
	}
	s.metrics.RecordEvent("deleted")
	s.emit(ctx, audit.Event{
		Action:  audit.ActionDeleted,
		Subject: applicationID,
		Actor:   SystemActor,
	})
	s.logger.InfoContext(ctx, "application deleted", "application_id", applicationID)
	return nil
}

// OnVerificationCompleted handles an asynchronous provider callback. A
// callback that lands after the application reached a terminal status is a
// no-op; decisions are never reopened by stragglers.
func (s *Service) OnVerificationCompleted(ctx context.Context, applicationID string) error {
	unlock := s.locks.lock(applicationID)
	defer unlock()

	app, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.IsTerminal() {
		s.logger.InfoContext(ctx, "late verification callback ignored",
			"application_id", app.ID, "status", app.Status)
		return nil
	}

	attempts, err := s.verifier.Attempts(ctx, applicationID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load verification attempts")
	}
	var idOK, bioOK, liveOK bool
	for _, a := range attempts {
		if a.Status != verification.StatusSuccess {
			continue
		}
		switch a.Type {
		case verification.TypeIdentity:
			idOK = true
		case verification.TypeBiometric:
			bioOK = true
		case verification.TypeLiveness:
			liveOK = true
		}
	}
	now := time.Now()
	app.IdentityVerified = idOK
	app.BiometricVerified = bioOK && liveOK

	// The compliance signals changed, so the stored score must follow them.
	docs, err := s.docs.FindByApplication(ctx, applicationID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load documents")
	}
	assessment := s.assessor.Assess(risk.Input{
		IdentityVerified:      app.IdentityVerified,
		BiometricVerified:     app.BiometricVerified,
		SanctionsCleared:      app.SanctionsCleared,
		PEPCleared:            app.PEPCleared,
		Age:                   app.Identity.AgeAt(now),
		AvgDocumentConfidence: document.AverageConfidence(docs),
	})
	app.RiskScore = assessment.Score
	app.RiskCategory = assessment.Category
	app.UpdatedAt = now
	if err := s.store.Update(ctx, app); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "save application")
	}
	s.logger.InfoContext(ctx, "verification callback applied",
		"application_id", app.ID,
		"identity_verified", app.IdentityVerified,
		"biometric_verified", app.BiometricVerified,
		"risk_score", app.RiskScore,
	)
	return nil
}

func (s *Service) selfieContent(ctx context.Context, docs []*document.Record) ([]byte, error) {
	for _, d := range docs {
		if d.Type == document.TypeSelfie && d.Status != document.StatusRejected {
			content, err := s.blobs.Get(ctx, d.ID)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load selfie content")
			}
			return content, nil
		}
	}
	return nil, dErrors.New(dErrors.CodePreconditionFailed, "no selfie document on file")
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
