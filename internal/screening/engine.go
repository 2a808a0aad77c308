package screening

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"kycgate/internal/audit"
	"kycgate/internal/identity"
	"kycgate/internal/screening/matcher"
	"kycgate/internal/screening/metrics"
	dErrors "kycgate/pkg/domain-errors"
)

// ListStore supplies watchlist entries.
type ListStore interface {
	Entries(ctx context.Context, list ListName) ([]Entry, error)
}

// ResultStore persists screening results.
type ResultStore interface {
	Save(ctx context.Context, result *Result) error
	Get(ctx context.Context, id string) (*Result, error)
	FindByApplication(ctx context.Context, applicationID string) ([]*Result, error)
	DeleteByApplication(ctx context.Context, applicationID string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config carries the screening thresholds.
type Config struct {
	// MatchThreshold is the minimum similarity percentage for a watchlist
	// entry to count as a match.
	MatchThreshold float64
	// DOBBonus is added when the entry carries an exact date of birth match.
	DOBBonus float64
}

func DefaultConfig() Config {
	return Config{MatchThreshold: 70, DOBBonus: 10}
}

// Engine screens applicant identities against all configured watchlists.
type Engine struct {
	lists    ListStore
	results  ResultStore
	reporter Reporter
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audit    AuditPublisher
}

type Option func(e *Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(e *Engine) {
		e.audit = publisher
	}
}

func WithReporter(r Reporter) Option {
	return func(e *Engine) {
		e.reporter = r
	}
}

func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

func NewEngine(lists ListStore, results ResultStore, opts ...Option) *Engine {
	e := &Engine{
		lists:   lists,
		results: results,
		cfg:     DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Screen checks one applicant against one list and persists the result.
// A failure to load the list does not clear the applicant: the result is
// parked under_review with the failure recorded, and no error is returned
// so sibling lists keep screening.
func (e *Engine) Screen(ctx context.Context, applicationID string, rec identity.Record, list ListName) (*Result, error) {
	start := time.Now()
	result := newResult(applicationID, list, start)

	entries, err := e.lists.Entries(ctx, list)
	if err != nil {
		result.markUnderReview(err.Error())
		e.logger.ErrorContext(ctx, "watchlist load failed",
			"application_id", applicationID,
			"list", list,
			"error", err,
		)
		e.metrics.RecordScreening(string(list), string(StatusUnderReview), time.Since(start))
		e.emit(ctx, audit.Event{
			Action:  audit.ActionScreeningFailed,
			Subject: applicationID,
			Actor:   "system",
			Reason:  err.Error(),
			Detail:  map[string]string{"list": string(list)},
		})
		if saveErr := e.results.Save(ctx, result); saveErr != nil {
			return nil, dErrors.Wrap(saveErr, dErrors.CodeInternal, "save screening result")
		}
		return result, nil
	}

	e.metrics.SetListEntries(string(list), len(entries))

	matches := e.match(rec, entries)
	if len(matches) == 0 {
		result.markClear()
	} else {
		result.markMatchFound(matches)
		e.metrics.RecordMatch(string(list), string(result.RiskLevel))
	}

	if result.ShouldReport() {
		e.report(ctx, result)
	}

	if err := e.results.Save(ctx, result); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save screening result")
	}

	e.metrics.RecordScreening(string(list), string(result.Status), time.Since(start))
	e.emit(ctx, audit.Event{
		Action:   audit.ActionScreeningCompleted,
		Subject:  applicationID,
		Actor:    "system",
		Decision: string(result.Status),
		Detail: map[string]string{
			"list":       string(list),
			"risk_level": string(result.RiskLevel),
		},
	})
	e.logger.InfoContext(ctx, "screening completed",
		"application_id", applicationID,
		"list", list,
		"status", result.Status,
		"matches", len(result.Matches),
		"risk_level", result.RiskLevel,
	)
	return result, nil
}

// ScreenAll fans out across every watchlist concurrently and returns the
// results along with the derived compliance flags. Results already resolved
// as false positives by an analyst are carried forward, not re-opened.
func (e *Engine) ScreenAll(ctx context.Context, applicationID string, rec identity.Record) ([]*Result, Flags, error) {
	existing, err := e.results.FindByApplication(ctx, applicationID)
	if err != nil {
		return nil, Flags{}, dErrors.Wrap(err, dErrors.CodeInternal, "load prior screening results")
	}
	resolved := make(map[ListName]*Result)
	for _, r := range existing {
		if r.Status == StatusFalsePositive {
			resolved[r.List] = r
		}
	}

	results := make([]*Result, len(AllLists))
	g, gctx := errgroup.WithContext(ctx)
	for i, list := range AllLists {
		if prior, ok := resolved[list]; ok {
			results[i] = prior
			continue
		}
		g.Go(func() error {
			r, err := e.Screen(gctx, applicationID, rec, list)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Flags{}, err
	}
	return results, ComputeFlags(results), nil
}

// match scores the applicant against each entry. The base score is the best
// of the name and alias similarities; a father-name match averages in, and
// an exact date of birth adds a fixed bonus. Scores are capped at 100.
func (e *Engine) match(rec identity.Record, entries []Entry) []Match {
	dob := rec.DateOfBirth.Format("2006-01-02")
	var matches []Match
	for _, entry := range entries {
		nameScore := matcher.Similarity(rec.FullName, entry.Name)
		aliasScore := 0.0
		for _, alias := range entry.Aliases {
			if s := matcher.Similarity(rec.FullName, alias); s > aliasScore {
				aliasScore = s
			}
		}
		base := nameScore
		basis := BasisName
		if aliasScore > nameScore {
			base = aliasScore
			basis = BasisAlias
		}
		if entry.FatherName != "" && rec.FatherName != "" {
			base = (base + matcher.Similarity(rec.FatherName, entry.FatherName)) / 2
		}
		if entry.DateOfBirth != "" && entry.DateOfBirth == dob {
			base += e.cfg.DOBBonus
		}
		if base < e.cfg.MatchThreshold {
			continue
		}
		if base > 100 {
			base = 100
		}
		matches = append(matches, Match{Entry: entry, Score: base, Basis: basis})
	}
	return matches
}

// report files the result with the FMU. Filing failures are logged and left
// for the next screening pass; the match itself is never dropped.
func (e *Engine) report(ctx context.Context, result *Result) {
	if e.reporter == nil {
		return
	}
	reference, err := e.reporter.FileReport(ctx, result)
	if err != nil {
		e.logger.ErrorContext(ctx, "fmu report filing failed",
			"application_id", result.ApplicationID,
			"list", result.List,
			"error", err,
		)
		e.metrics.RecordFMUReport("failed")
		return
	}
	result.markReported(reference, time.Now())
	e.metrics.RecordFMUReport("filed")
	e.emit(ctx, audit.Event{
		Action:   audit.ActionReportedToFMU,
		Subject:  result.ApplicationID,
		Actor:    "system",
		Decision: reference,
		Detail:   map[string]string{"list": string(result.List)},
	})
	e.logger.InfoContext(ctx, "match reported to fmu",
		"application_id", result.ApplicationID,
		"list", result.List,
		"reference", reference,
	)
}

// Review applies an analyst decision to a stored result.
func (e *Engine) Review(ctx context.Context, resultID, reviewer, action, note string) (*Result, error) {
	result, err := e.results.Get(ctx, resultID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	switch action {
	case "false_positive":
		err = result.MarkFalsePositive(reviewer, note, now)
	case "confirm":
		err = result.ConfirmMatch(reviewer, note, now)
	case "escalate":
		err = result.Escalate(reviewer, note, now)
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "unknown review action: "+action)
	}
	if err != nil {
		return nil, err
	}
	if result.ShouldReport() {
		e.report(ctx, result)
	}
	if err := e.results.Save(ctx, result); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "save reviewed result")
	}
	e.logger.InfoContext(ctx, "screening result reviewed",
		"result_id", resultID,
		"reviewer", reviewer,
		"action", action,
		"status", result.Status,
	)
	return result, nil
}

// Summarize folds an application's results into a reviewer-facing summary.
func (e *Engine) Summarize(ctx context.Context, applicationID string) (*Summary, error) {
	results, err := e.results.FindByApplication(ctx, applicationID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load screening results")
	}
	if len(results) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no screening results for application")
	}
	flags := ComputeFlags(results)
	s := &Summary{
		ApplicationID:    applicationID,
		Lists:            make(map[ListName]Status, len(results)),
		HighestRiskLevel: RiskLow,
		SanctionsCleared: flags.SanctionsCleared,
		PEPCleared:       flags.PEPCleared,
	}
	rank := map[RiskLevel]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3}
	for _, r := range results {
		s.Lists[r.List] = r.Status
		if rank[r.RiskLevel] > rank[s.HighestRiskLevel] {
			s.HighestRiskLevel = r.RiskLevel
		}
		if r.Status == StatusMatchFound {
			s.OpenMatches++
		}
		if r.RequiresManualReview {
			s.PendingReview++
		}
		if r.ReportedToFMU {
			s.ReportedToFMU++
		}
	}
	return s, nil
}

func (e *Engine) emit(ctx context.Context, event audit.Event) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Emit(ctx, event); err != nil {
		e.logger.ErrorContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
