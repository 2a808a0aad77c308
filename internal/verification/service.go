package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kycgate/internal/audit"
	"kycgate/internal/identity"
	"kycgate/internal/verification/metrics"
	dErrors "kycgate/pkg/domain-errors"
)

// AttemptStore persists verification attempts.
type AttemptStore interface {
	Save(ctx context.Context, attempt *Attempt) error
	Latest(ctx context.Context, applicationID string, typ Type) (*Attempt, error)
	FindByApplication(ctx context.Context, applicationID string) ([]*Attempt, error)
	DeleteByApplication(ctx context.Context, applicationID string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config carries verification thresholds and retry policy.
type Config struct {
	// IdentityThreshold is the minimum weighted field score for the
	// identity check to pass.
	IdentityThreshold float64
	// BiometricThreshold is the minimum face match score.
	BiometricThreshold float64
	// LivenessThreshold and FaceMatchThreshold must both be met
	// independently; a strong face match never compensates for a weak
	// liveness signal.
	LivenessThreshold  float64
	FaceMatchThreshold float64
	MaxRetries         int
	Timeout            time.Duration
}

func DefaultConfig() Config {
	return Config{
		IdentityThreshold:  85,
		BiometricThreshold: 80,
		LivenessThreshold:  70,
		FaceMatchThreshold: 75,
		MaxRetries:         3,
		Timeout:            30 * time.Second,
	}
}

// Weights for the identity field score. ID validity carries the rest of the
// hundred.
const (
	weightName   = 30
	weightFather = 25
	weightDOB    = 25
	weightID     = 20
)

// Service orchestrates provider calls and records attempts.
type Service struct {
	identityProvider  IdentityProvider
	biometricProvider BiometricProvider
	livenessProvider  LivenessProvider
	attempts          AttemptStore
	cfg               Config
	logger            *slog.Logger
	metrics           *metrics.Metrics
	audit             AuditPublisher
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

func WithConfig(cfg Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

func New(idp IdentityProvider, bio BiometricProvider, live LivenessProvider, attempts AttemptStore, opts ...Option) *Service {
	s := &Service{
		identityProvider:  idp,
		biometricProvider: bio,
		livenessProvider:  live,
		attempts:          attempts,
		cfg:               DefaultConfig(),
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// VerifyIdentity checks the declared identity fields against the registry.
// The field matches are weighted into a score; the attempt passes at or
// above the identity threshold. A successful prior attempt is returned
// as-is, and a failed one retries only within the retry budget.
func (s *Service) VerifyIdentity(ctx context.Context, applicationID string, rec identity.Record) (*Attempt, error) {
	attempt, err := s.begin(ctx, applicationID, TypeIdentity, s.identityProvider.Name())
	if err != nil || attempt.Status == StatusSuccess {
		return attempt, err
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	result, err := s.identityProvider.VerifyIdentity(callCtx, rec)
	if err != nil {
		return s.fail(ctx, attempt, err, start)
	}

	score := 0.0
	if result.NameMatch {
		score += weightName
	}
	if result.FatherNameMatch {
		score += weightFather
	}
	if result.DOBMatch {
		score += weightDOB
	}
	if result.IDValid {
		score += weightID
	}
	attempt.MatchScore = score
	attempt.Verified = score >= s.cfg.IdentityThreshold
	attempt.SessionRef = result.SessionRef
	return s.finish(ctx, attempt, start)
}

// VerifyBiometric compares the captured selfie against the registry photo.
func (s *Service) VerifyBiometric(ctx context.Context, applicationID, cnic string, selfie []byte) (*Attempt, error) {
	if len(selfie) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "selfie sample is required")
	}
	attempt, err := s.begin(ctx, applicationID, TypeBiometric, s.biometricProvider.Name())
	if err != nil || attempt.Status == StatusSuccess {
		return attempt, err
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	result, err := s.biometricProvider.VerifyBiometric(callCtx, cnic, selfie)
	if err != nil {
		return s.fail(ctx, attempt, err, start)
	}
	attempt.MatchScore = result.MatchScore
	attempt.Verified = result.MatchScore >= s.cfg.BiometricThreshold
	attempt.SessionRef = result.SessionRef
	return s.finish(ctx, attempt, start)
}

// CheckLiveness runs a liveness session. The recorded score is the mean of
// the liveness and face match scores, but passing requires each to clear
// its own threshold.
func (s *Service) CheckLiveness(ctx context.Context, applicationID, cnic string, sample []byte) (*Attempt, error) {
	if len(sample) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "liveness sample is required")
	}
	attempt, err := s.begin(ctx, applicationID, TypeLiveness, s.livenessProvider.Name())
	if err != nil || attempt.Status == StatusSuccess {
		return attempt, err
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	result, err := s.livenessProvider.CheckLiveness(callCtx, cnic, sample)
	if err != nil {
		return s.fail(ctx, attempt, err, start)
	}
	attempt.MatchScore = (result.LivenessScore + result.FaceMatchScore) / 2
	attempt.Verified = result.LivenessScore >= s.cfg.LivenessThreshold &&
		result.FaceMatchScore >= s.cfg.FaceMatchThreshold
	attempt.SessionRef = result.SessionRef
	return s.finish(ctx, attempt, start)
}

// Attempts returns every recorded attempt for an application.
func (s *Service) Attempts(ctx context.Context, applicationID string) ([]*Attempt, error) {
	return s.attempts.FindByApplication(ctx, applicationID)
}

// begin resolves the prior attempt for this check. A verified prior attempt
// short-circuits; an exhausted retry budget is a precondition failure.
func (s *Service) begin(ctx context.Context, applicationID string, typ Type, provider string) (*Attempt, error) {
	prior, err := s.attempts.Latest(ctx, applicationID, typ)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load prior verification attempt")
	}

	attempt := newAttempt(applicationID, typ, provider, time.Now())
	if prior != nil {
		if prior.Status == StatusSuccess {
			return prior, nil
		}
		if !prior.CanRetry(s.cfg.MaxRetries) {
			return nil, dErrors.New(dErrors.CodePreconditionFailed,
				"verification retry limit reached for "+string(typ))
		}
		attempt.RetryCount = prior.RetryCount + 1
		s.metrics.RecordRetry(string(typ))
	}
	return attempt, nil
}

func (s *Service) fail(ctx context.Context, attempt *Attempt, callErr error, start time.Time) (*Attempt, error) {
	status := StatusFailed
	if errors.Is(callErr, context.DeadlineExceeded) {
		status = StatusTimeout
		attempt.ErrorCode = "provider_timeout"
	} else {
		attempt.ErrorCode = "provider_error"
	}
	attempt.ErrorMessage = callErr.Error()
	attempt.complete(status, time.Now())

	if err := s.attempts.Save(ctx, attempt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save verification attempt")
	}
	s.metrics.RecordAttempt(string(attempt.Type), attempt.Provider, string(status), time.Since(start))
	s.emit(ctx, audit.Event{
		Action:  audit.ActionVerificationFailed,
		Subject: attempt.ApplicationID,
		Actor:   "system",
		Reason:  attempt.ErrorMessage,
		Detail:  map[string]string{"type": string(attempt.Type), "provider": attempt.Provider},
	})
	s.logger.ErrorContext(ctx, "verification call failed",
		"application_id", attempt.ApplicationID,
		"type", attempt.Type,
		"provider", attempt.Provider,
		"status", status,
		"retry_count", attempt.RetryCount,
		"error", callErr,
	)
	return attempt, nil
}

func (s *Service) finish(ctx context.Context, attempt *Attempt, start time.Time) (*Attempt, error) {
	if attempt.Verified {
		attempt.complete(StatusSuccess, time.Now())
	} else {
		attempt.complete(StatusFailed, time.Now())
		attempt.ErrorCode = "below_threshold"
	}

	if err := s.attempts.Save(ctx, attempt); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save verification attempt")
	}
	s.metrics.RecordAttempt(string(attempt.Type), attempt.Provider, string(attempt.Status), time.Since(start))
	s.emit(ctx, audit.Event{
		Action:   audit.ActionVerificationCompleted,
		Subject:  attempt.ApplicationID,
		Actor:    "system",
		Decision: string(attempt.Status),
		Detail:   map[string]string{"type": string(attempt.Type), "provider": attempt.Provider},
	})
	s.logger.InfoContext(ctx, "verification completed",
		"application_id", attempt.ApplicationID,
		"type", attempt.Type,
		"provider", attempt.Provider,
		"verified", attempt.Verified,
		"score", attempt.MatchScore,
	)
	return attempt, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
